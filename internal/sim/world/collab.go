package world

import "blobcraft.ai/internal/sim/world/feature/destruction"

// Spatial is the map the organism grows on.
type Spatial interface {
	Anchor(id EntityID, pos Vec2i)
	Unanchor(id EntityID)
	TilesIntersecting(box Box) []Vec2i
	StructuresAt(pos Vec2i) []EntityID
}

type MindID string
type UserID string

// Session is a connected player as seen by the identity layer.
type Session struct {
	ID   string   `json:"id"`
	User UserID   `json:"user"`
	Mind MindID   `json:"mind,omitempty"`
	Host EntityID `json:"host,omitempty"`
}

type Minds interface {
	ResolveIdentity(entity EntityID) (MindID, bool)
	CreateIdentity(user UserID, label string) MindID
	SetOwner(mind MindID, user UserID)
	BindIdentity(mind MindID, host EntityID)
	DetachIdentity(mind MindID)
	LiveSessionOf(mind MindID) (Session, bool)
	SessionOfUser(user UserID) (Session, bool)
	AttachSession(user UserID, host EntityID)
}

type Severity string

const (
	SeveritySmall        Severity = "small"
	SeverityLarge        Severity = "large"
	SeverityLargeCaution Severity = "large_caution"
)

const (
	NoticeSpentResource      = "blob-spent-resource"
	NoticeNotEnoughResources = "blob-not-enough-resources"
	NoticeNoNearbyNode       = "blob-target-nearby-not-node"
)

type Notice struct {
	Key      string            `json:"key"`
	Severity Severity          `json:"severity"`
	Args     map[string]string `json:"args,omitempty"`
}

// Presentation receives everything the observer is shown.
// Implementations are called from the world loop and must not block.
type Presentation interface {
	ShowResourceLevel(observer EntityID, level int)
	ShowHealthLevel(observer EntityID, level int)
	Notify(to EntityID, msg Notice)
	Brief(session Session, key string)
}

type Stage = destruction.Stage

const (
	StageDefault  = destruction.StageDefault
	StageBegin    = destruction.StageBegin
	StageMedium   = destruction.StageMedium
	StageCritical = destruction.StageCritical
	StageEnd      = destruction.StageEnd
)

type RoundControl interface {
	CurrentStage() Stage
	SetAlertLevel(region, level string)
	CancelPendingRoundEnd()
}

type Defense interface {
	SetDamageProfile(id EntityID, profile string)
	SetExplosionResistance(id EntityID, fraction float64)
}

// Collaborators bundles the external systems the engine drives.
type Collaborators struct {
	Spatial      Spatial
	Minds        Minds
	Presentation Presentation
	Round        RoundControl
	Defense      Defense
}

func (c Collaborators) validate() error {
	switch {
	case c.Spatial == nil:
		return errMissing("spatial")
	case c.Minds == nil:
		return errMissing("minds")
	case c.Presentation == nil:
		return errMissing("presentation")
	case c.Round == nil:
		return errMissing("round control")
	case c.Defense == nil:
		return errMissing("defense")
	}
	return nil
}
