package world

import (
	"fmt"
	"path/filepath"
	"testing"

	"blobcraft.ai/internal/sim/catalogs"
	"blobcraft.ai/internal/sim/tuning"
)

type fakeSpatial struct {
	at  map[Vec2i][]EntityID
	pos map[EntityID]Vec2i
}

func newFakeSpatial() *fakeSpatial {
	return &fakeSpatial{at: map[Vec2i][]EntityID{}, pos: map[EntityID]Vec2i{}}
}

func (s *fakeSpatial) Anchor(id EntityID, p Vec2i) {
	s.pos[id] = p
	s.at[p] = append(s.at[p], id)
}

func (s *fakeSpatial) Unanchor(id EntityID) {
	p, ok := s.pos[id]
	if !ok {
		return
	}
	delete(s.pos, id)
	s.at[p] = removeID(s.at[p], id)
	if len(s.at[p]) == 0 {
		delete(s.at, p)
	}
}

func (s *fakeSpatial) TilesIntersecting(box Box) []Vec2i {
	var out []Vec2i
	for _, c := range box.Cells() {
		if len(s.at[c]) > 0 {
			out = append(out, c)
		}
	}
	return out
}

func (s *fakeSpatial) StructuresAt(p Vec2i) []EntityID {
	return append([]EntityID(nil), s.at[p]...)
}

type fakeMinds struct {
	next     int
	created  int
	owner    map[MindID]UserID
	host     map[MindID]EntityID
	sessions map[UserID]Session

	binds    []EntityID
	detaches int
	attaches []EntityID
}

func newFakeMinds() *fakeMinds {
	return &fakeMinds{
		owner:    map[MindID]UserID{},
		host:     map[MindID]EntityID{},
		sessions: map[UserID]Session{},
	}
}

func (m *fakeMinds) connect(user UserID, mind MindID) {
	m.sessions[user] = Session{ID: "s-" + string(user), User: user, Mind: mind}
	if mind != "" {
		m.owner[mind] = user
	}
}

func (m *fakeMinds) ResolveIdentity(entity EntityID) (MindID, bool) {
	for mind, h := range m.host {
		if h == entity && h != 0 {
			return mind, true
		}
	}
	return "", false
}

func (m *fakeMinds) CreateIdentity(user UserID, label string) MindID {
	m.next++
	m.created++
	id := MindID(fmt.Sprintf("mind-%d", m.next))
	m.owner[id] = user
	return id
}

func (m *fakeMinds) SetOwner(mind MindID, user UserID) {
	m.owner[mind] = user
	if s, ok := m.sessions[user]; ok {
		s.Mind = mind
		m.sessions[user] = s
	}
}

func (m *fakeMinds) BindIdentity(mind MindID, host EntityID) {
	m.host[mind] = host
	m.binds = append(m.binds, host)
}

func (m *fakeMinds) DetachIdentity(mind MindID) {
	m.host[mind] = 0
	m.detaches++
}

func (m *fakeMinds) LiveSessionOf(mind MindID) (Session, bool) {
	user, ok := m.owner[mind]
	if !ok {
		return Session{}, false
	}
	s, ok := m.sessions[user]
	return s, ok
}

func (m *fakeMinds) SessionOfUser(user UserID) (Session, bool) {
	s, ok := m.sessions[user]
	return s, ok
}

func (m *fakeMinds) AttachSession(user UserID, host EntityID) {
	m.attaches = append(m.attaches, host)
	if s, ok := m.sessions[user]; ok {
		s.Host = host
		m.sessions[user] = s
	}
}

type sentNotice struct {
	to  EntityID
	msg Notice
}

type fakePresentation struct {
	resource []int
	health   []int
	notices  []sentNotice
	briefs   []Session
}

func (p *fakePresentation) ShowResourceLevel(_ EntityID, level int) {
	p.resource = append(p.resource, level)
}

func (p *fakePresentation) ShowHealthLevel(_ EntityID, level int) {
	p.health = append(p.health, level)
}

func (p *fakePresentation) Notify(to EntityID, msg Notice) {
	p.notices = append(p.notices, sentNotice{to: to, msg: msg})
}

func (p *fakePresentation) Brief(s Session, _ string) { p.briefs = append(p.briefs, s) }

func (p *fakePresentation) count(key string) int {
	n := 0
	for _, s := range p.notices {
		if s.msg.Key == key {
			n++
		}
	}
	return n
}

type fakeRound struct {
	stage   Stage
	alerts  []string
	cancels int
}

func (r *fakeRound) CurrentStage() Stage { return r.stage }
func (r *fakeRound) SetAlertLevel(region, level string) {
	r.alerts = append(r.alerts, region+"="+level)
}
func (r *fakeRound) CancelPendingRoundEnd() { r.cancels++ }

type fakeDefense struct {
	profile    map[EntityID]string
	resistance map[EntityID][]float64
	calls      int
}

func newFakeDefense() *fakeDefense {
	return &fakeDefense{profile: map[EntityID]string{}, resistance: map[EntityID][]float64{}}
}

func (d *fakeDefense) SetDamageProfile(id EntityID, profile string) {
	d.profile[id] = profile
	d.calls++
}

func (d *fakeDefense) SetExplosionResistance(id EntityID, f float64) {
	d.resistance[id] = append(d.resistance[id], f)
	d.calls++
}

func (d *fakeDefense) lastResistance(id EntityID) (float64, bool) {
	rs := d.resistance[id]
	if len(rs) == 0 {
		return 0, false
	}
	return rs[len(rs)-1], true
}

type harness struct {
	w       *World
	spatial *fakeSpatial
	minds   *fakeMinds
	present *fakePresentation
	round   *fakeRound
	defense *fakeDefense
}

func loadCatalogs(t *testing.T) *catalogs.Catalogs {
	t.Helper()
	cats, err := catalogs.Load(filepath.Join("..", "..", "..", "configs"))
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	return cats
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWith(t, loadCatalogs(t))
}

func newHarnessWith(t *testing.T, cats *catalogs.Catalogs) *harness {
	t.Helper()
	h := &harness{
		spatial: newFakeSpatial(),
		minds:   newFakeMinds(),
		present: &fakePresentation{},
		round:   &fakeRound{},
		defense: newFakeDefense(),
	}
	tn := tuning.Defaults()
	w, err := New(WorldConfig{ID: "test", Tuning: tn}, cats, Collaborators{
		Spatial:      h.spatial,
		Minds:        h.minds,
		Presentation: h.present,
		Round:        h.round,
		Defense:      h.defense,
	})
	if err != nil {
		t.Fatalf("new world: %v", err)
	}
	h.w = w
	return h
}

func (h *harness) spawn(t *testing.T, pos Vec2i) EntityID {
	t.Helper()
	id, ok := h.w.SpawnOrganism(pos, "station")
	if !ok {
		t.Fatalf("spawn failed")
	}
	return id
}

// possess gives the organism a live observer through the fresh-identity path.
func (h *harness) possess(t *testing.T, org EntityID, user UserID) EntityID {
	t.Helper()
	h.minds.connect(user, "")
	if !h.w.CreateObserver(org, user) {
		t.Fatalf("CreateObserver failed")
	}
	o, _ := h.w.Organism(org)
	if o.Observer == 0 {
		t.Fatalf("no observer bound")
	}
	return o.Observer
}

func (h *harness) steps(n int) {
	for i := 0; i < n; i++ {
		h.w.StepOnce()
	}
}

// checkOwnership asserts every tile in the set points back to its organism.
func checkOwnership(t *testing.T, w *World) {
	t.Helper()
	seen := map[EntityID]EntityID{}
	for _, org := range w.OrganismIDs() {
		for _, id := range w.TileIDs(org) {
			if prev, dup := seen[id]; dup {
				t.Fatalf("tile %d owned by %d and %d", id, prev, org)
			}
			seen[id] = org
			tile, ok := w.TileOf(id)
			if !ok {
				t.Fatalf("tile %d of %d has no tile component", id, org)
			}
			if tile.Owner != org {
				t.Fatalf("tile %d owner = %d, want %d", id, tile.Owner, org)
			}
		}
	}
}
