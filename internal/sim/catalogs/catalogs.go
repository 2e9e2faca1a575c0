package catalogs

import (
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"blobcraft.ai/internal/sim/world/feature/chem"
	"blobcraft.ai/internal/sim/world/logic/fixed"
)

//go:embed schema/*.schema.json
var schemaFS embed.FS

type Capability string

const (
	CapTile       Capability = "tile"
	CapCore       Capability = "core"
	CapNode       Capability = "node"
	CapStructure  Capability = "structure"
	CapFactory    Capability = "factory"
	CapObserver   Capability = "observer"
	CapCombatUnit Capability = "combat_unit"
	CapSmokePod   Capability = "smoke_pod"
	CapInsulated  Capability = "insulated"
)

// Kind ids the engine spawns by name.
const (
	KindCore     = "core"
	KindObserver = "observer"
)

type Catalogs struct {
	Chems ChemCatalog
	Tiles TileCatalog
}

type ChemCatalog struct {
	Default chem.Type
	ByID    map[chem.Type]chem.Profile
	Digest  string
}

type TileCatalog struct {
	ByID   map[string]TileKind
	Digest string
}

type TileKind struct {
	ID           string       `json:"id"`
	Capabilities []Capability `json:"capabilities"`
	Cost         fixed.Fixed2 `json:"cost"`
	ReturnsCost  bool         `json:"returns_cost"`
}

func (k TileKind) Has(c Capability) bool {
	for _, have := range k.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

func (c *Catalogs) Chem(t chem.Type) (chem.Profile, bool) {
	if c == nil {
		return chem.Profile{}, false
	}
	p, ok := c.Chems.ByID[t]
	return p, ok
}

func (c *Catalogs) Kind(id string) (TileKind, bool) {
	if c == nil {
		return TileKind{}, false
	}
	k, ok := c.Tiles.ByID[id]
	return k, ok
}

// KindIDs returns tile kind ids in sorted order.
func (c *Catalogs) KindIDs() []string {
	ids := make([]string, 0, len(c.Tiles.ByID))
	for id := range c.Tiles.ByID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type chemsFile struct {
	DefaultChem string    `yaml:"default_chem"`
	Chems       []chemDef `yaml:"chems"`
}

type chemDef struct {
	ID                  string             `yaml:"id"`
	Color               string             `yaml:"color"`
	DamageModifier      string             `yaml:"damage_modifier"`
	ExplosionResistance *float64           `yaml:"explosion_resistance"`
	Damage              map[string]float64 `yaml:"damage"`
}

type tilesFile struct {
	Kinds []tileDef `yaml:"kinds"`
}

type tileDef struct {
	ID           string   `yaml:"id"`
	Capabilities []string `yaml:"capabilities"`
	Cost         float64  `yaml:"cost"`
	ReturnsCost  bool     `yaml:"returns_cost"`
}

// Load reads chems.yaml and tiles.yaml from configDir. Any error is a fatal misconfiguration.
func Load(configDir string) (*Catalogs, error) {
	chemsRaw, err := os.ReadFile(filepath.Join(configDir, "chems.yaml"))
	if err != nil {
		return nil, err
	}
	tilesRaw, err := os.ReadFile(filepath.Join(configDir, "tiles.yaml"))
	if err != nil {
		return nil, err
	}
	return Parse(chemsRaw, tilesRaw)
}

func Parse(chemsRaw, tilesRaw []byte) (*Catalogs, error) {
	var c Catalogs
	if err := parseChems(chemsRaw, &c.Chems); err != nil {
		return nil, fmt.Errorf("chems.yaml: %w", err)
	}
	if err := parseTiles(tilesRaw, &c.Tiles); err != nil {
		return nil, fmt.Errorf("tiles.yaml: %w", err)
	}
	return &c, nil
}

func parseChems(raw []byte, out *ChemCatalog) error {
	if err := validateDoc("chems", raw); err != nil {
		return err
	}
	var f chemsFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)
	out.ByID = make(map[chem.Type]chem.Profile, len(f.Chems))
	for _, d := range f.Chems {
		t, ok := chem.Parse(d.ID)
		if !ok {
			return fmt.Errorf("unknown chem id: %s", d.ID)
		}
		if _, dup := out.ByID[t]; dup {
			return fmt.Errorf("duplicate chem id: %s", d.ID)
		}
		out.ByID[t] = chem.Profile{
			Color:               d.Color,
			DamageModifier:      d.DamageModifier,
			ExplosionResistance: d.ExplosionResistance,
			Damage:              d.Damage,
		}
	}
	for _, t := range chem.All {
		if _, ok := out.ByID[t]; !ok {
			return fmt.Errorf("missing chem profile: %s", t)
		}
	}
	def, ok := chem.Parse(f.DefaultChem)
	if !ok {
		return fmt.Errorf("unknown default_chem: %s", f.DefaultChem)
	}
	out.Default = def
	return nil
}

func parseTiles(raw []byte, out *TileCatalog) error {
	if err := validateDoc("tiles", raw); err != nil {
		return err
	}
	var f tilesFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return err
	}
	out.Digest = sha256Hex(raw)
	out.ByID = make(map[string]TileKind, len(f.Kinds))
	for _, d := range f.Kinds {
		if _, dup := out.ByID[d.ID]; dup {
			return fmt.Errorf("duplicate tile kind: %s", d.ID)
		}
		k := TileKind{ID: d.ID, Cost: fixed.FromFloat(d.Cost), ReturnsCost: d.ReturnsCost}
		for _, c := range d.Capabilities {
			k.Capabilities = append(k.Capabilities, Capability(c))
		}
		out.ByID[d.ID] = k
	}
	core, ok := out.ByID[KindCore]
	if !ok || !core.Has(CapCore) || !core.Has(CapTile) {
		return fmt.Errorf("kind %q must exist with capabilities [tile core]", KindCore)
	}
	if _, ok := out.ByID[KindObserver]; !ok {
		return fmt.Errorf("missing kind %q", KindObserver)
	}
	return nil
}

// validateDoc checks a yaml document against the embedded JSON schema of the same name.
func validateDoc(name string, raw []byte) error {
	src, err := schemaFS.ReadFile("schema/" + name + ".schema.json")
	if err != nil {
		return err
	}
	sch, err := jsonschema.CompileString(name+".schema.json", string(src))
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return err
	}
	// Round-trip through JSON so the validator sees plain JSON types.
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	return sch.Validate(v)
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
