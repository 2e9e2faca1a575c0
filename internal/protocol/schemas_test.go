package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"blobcraft.ai/internal/protocol"
)

func compile(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	p := filepath.Join("..", "..", "schemas", name)
	s, err := jsonschema.Compile(p)
	if err != nil {
		t.Fatalf("compile %s: %v", name, err)
	}
	return s
}

// asJSON round-trips a Go message so the validator sees what goes on the wire.
func asJSON(t *testing.T, msg any) any {
	t.Helper()
	b, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return v
}

func TestSchemas_ValidateSamples(t *testing.T) {
	validate := func(s *jsonschema.Schema, v any) {
		t.Helper()
		if err := s.Validate(v); err != nil {
			t.Fatalf("validate: %v", err)
		}
	}

	var hello any
	_ = json.Unmarshal([]byte(`{
	  "type":"HELLO",
	  "protocol_version":"1.0",
	  "user":"alice",
	  "want_events":true
	}`), &hello)
	validate(compile(t, "hello.schema.json"), hello)

	validate(compile(t, "welcome.schema.json"), asJSON(t, protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		WorldID:         "blob-1",
		SessionID:       "s-1",
		TickRateHz:      10,
		Catalogs:        protocol.CatalogRefs{ChemsDigest: "deadbeef", TilesDigest: "deadbeef"},
	}))

	validate(compile(t, "alert.schema.json"), asJSON(t, protocol.AlertMsg{
		Type:            protocol.TypeAlert,
		ProtocolVersion: protocol.Version,
		Observer:        7,
		Alert:           protocol.AlertResource,
		Level:           4,
		Max:             16,
	}))

	validate(compile(t, "notice.schema.json"), asJSON(t, protocol.NoticeMsg{
		Type:            protocol.TypeNotice,
		ProtocolVersion: protocol.Version,
		To:              7,
		Key:             "blob-spent-resource",
		Severity:        "large_caution",
		Args:            map[string]string{"point": "4"},
	}))

	validate(compile(t, "briefing.schema.json"), asJSON(t, protocol.BriefingMsg{
		Type:            protocol.TypeBriefing,
		ProtocolVersion: protocol.Version,
		User:            "alice",
		SessionID:       "s-1",
		Key:             "blob-role-greeting",
	}))

	validate(compile(t, "event.schema.json"), asJSON(t, protocol.EventMsg{
		Type:            protocol.TypeEvent,
		ProtocolVersion: protocol.Version,
		Tick:            12,
		WorldID:         "blob-1",
		Kind:            "CHEMISTRY_CHANGED",
		Organism:        1,
		Data:            map[string]any{"old": "ReactiveSpines", "new": "BlazingOil"},
	}))
}

func TestSchemas_RejectBadAlert(t *testing.T) {
	s := compile(t, "alert.schema.json")
	bad := asJSON(t, protocol.AlertMsg{Type: protocol.TypeAlert, ProtocolVersion: protocol.Version, Observer: 7, Alert: "MOOD", Level: 1})
	if err := s.Validate(bad); err == nil {
		t.Fatalf("expected unknown alert kind rejected")
	}
}
