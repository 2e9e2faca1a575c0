package protocol

// HELLO (client -> server). User identifies the player; an empty user only receives broadcast events.
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	User            string `json:"user,omitempty"`
	WantEvents      bool   `json:"want_events,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	WorldID         string      `json:"world_id"`
	SessionID       string      `json:"session_id,omitempty"`
	TickRateHz      int         `json:"tick_rate_hz"`
	Catalogs        CatalogRefs `json:"catalogs"`
}

type CatalogRefs struct {
	ChemsDigest string `json:"chems_digest"`
	TilesDigest string `json:"tiles_digest"`
}

// Alert kinds.
const (
	AlertResource = "RESOURCE"
	AlertHealth   = "HEALTH"
)

// ALERT (server -> client): a bounded level shown on the observer's HUD.
type AlertMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Observer        uint64 `json:"observer"`
	Alert           string `json:"alert"`
	Level           int    `json:"level"`
	Max             int    `json:"max"`
}

// NOTICE (server -> client): a localised popup on an entity.
type NoticeMsg struct {
	Type            string            `json:"type"`
	ProtocolVersion string            `json:"protocol_version"`
	To              uint64            `json:"to"`
	Key             string            `json:"key"`
	Severity        string            `json:"severity"`
	Args            map[string]string `json:"args,omitempty"`
}

// BRIEFING (server -> client): the one-time narrative greeting of a new faction member.
type BriefingMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	User            string `json:"user"`
	SessionID       string `json:"session_id"`
	Key             string `json:"key"`
}

// EVENT (server -> client): an engine event for dashboards.
type EventMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	Tick            uint64         `json:"tick"`
	WorldID         string         `json:"world_id"`
	Kind            string         `json:"kind"`
	Organism        uint64         `json:"organism"`
	Data            map[string]any `json:"data,omitempty"`
}

// ERROR (server -> client)
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}
