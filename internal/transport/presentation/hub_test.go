package presentation

import (
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"blobcraft.ai/internal/protocol"
	"blobcraft.ai/internal/sim/catalogs"
	"blobcraft.ai/internal/sim/inproc"
	"blobcraft.ai/internal/sim/tuning"
	"blobcraft.ai/internal/sim/world"
)

func dialHub(t *testing.T, h *Hub, hello protocol.HelloMsg) (*websocket.Conn, protocol.WelcomeMsg) {
	t.Helper()
	srv := httptest.NewServer(h.WSHandler())
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	hello.Type = protocol.TypeHello
	hello.ProtocolVersion = protocol.Version
	if err := conn.WriteJSON(hello); err != nil {
		t.Fatalf("write hello: %v", err)
	}
	var welcome protocol.WelcomeMsg
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&welcome); err != nil {
		t.Fatalf("read welcome: %v", err)
	}
	return conn, welcome
}

func readType(t *testing.T, conn *websocket.Conn, out any) string {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, b, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	base, err := protocol.DecodeBase(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out != nil {
		if err := json.Unmarshal(b, out); err != nil {
			t.Fatalf("unmarshal %s: %v", base.Type, err)
		}
	}
	return base.Type
}

func TestHandshakeAndObserverRouting(t *testing.T) {
	minds := inproc.NewMinds()
	h := NewHub(minds, Info{WorldID: "blob-1", TickRateHz: 10, ResourceMax: 16, HealthMax: 20}, Options{}, nil)

	conn, welcome := dialHub(t, h, protocol.HelloMsg{User: "alice"})
	if welcome.Type != protocol.TypeWelcome || welcome.WorldID != "blob-1" || welcome.SessionID == "" {
		t.Fatalf("welcome = %+v", welcome)
	}
	s, ok := minds.SessionOfUser("alice")
	if !ok || s.ID != welcome.SessionID {
		t.Fatalf("session not opened: %+v %v", s, ok)
	}
	minds.AttachSession("alice", 7)

	// Not alice's observer: dropped on the floor.
	h.Notify(8, world.Notice{Key: "other"})
	h.ShowResourceLevel(7, 3)

	var alert protocol.AlertMsg
	if typ := readType(t, conn, &alert); typ != protocol.TypeAlert {
		t.Fatalf("type = %s", typ)
	}
	if alert.Alert != protocol.AlertResource || alert.Level != 3 || alert.Max != 16 || alert.Observer != 7 {
		t.Fatalf("alert = %+v", alert)
	}

	h.Notify(7, world.Notice{Key: world.NoticeSpentResource, Severity: world.SeveritySmall, Args: map[string]string{"point": "4"}})
	var notice protocol.NoticeMsg
	if typ := readType(t, conn, &notice); typ != protocol.TypeNotice {
		t.Fatalf("type = %s", typ)
	}
	if notice.Key != world.NoticeSpentResource || notice.Args["point"] != "4" || notice.Severity != "small" {
		t.Fatalf("notice = %+v", notice)
	}

	h.Brief(world.Session{ID: welcome.SessionID, User: "alice"}, "blob-role-greeting")
	var brief protocol.BriefingMsg
	if typ := readType(t, conn, &brief); typ != protocol.TypeBriefing || brief.Key != "blob-role-greeting" {
		t.Fatalf("briefing = %s %+v", typ, brief)
	}
}

func TestEventsOnlyForSubscribers(t *testing.T) {
	minds := inproc.NewMinds()
	h := NewHub(minds, Info{WorldID: "blob-1"}, Options{}, nil)

	quiet, _ := dialHub(t, h, protocol.HelloMsg{User: "bob"})
	feed, welcome := dialHub(t, h, protocol.HelloMsg{WantEvents: true})
	if welcome.SessionID != "" {
		t.Fatalf("anonymous client got session %q", welcome.SessionID)
	}

	if err := h.WriteEvent(world.EventEntry{Tick: 4, World: "blob-1", Kind: string(world.EventOrganismDestroyed), Organism: 3, Data: map[string]any{"rollback": true}}); err != nil {
		t.Fatalf("WriteEvent: %v", err)
	}
	var ev protocol.EventMsg
	if typ := readType(t, feed, &ev); typ != protocol.TypeEvent {
		t.Fatalf("type = %s", typ)
	}
	if ev.Kind != string(world.EventOrganismDestroyed) || ev.Organism != 3 || ev.Tick != 4 {
		t.Fatalf("event = %+v", ev)
	}

	_ = quiet.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, _, err := quiet.ReadMessage(); err == nil {
		t.Fatalf("non-subscriber received an event")
	}
}

func TestRejectsBadHello(t *testing.T) {
	h := NewHub(inproc.NewMinds(), Info{}, Options{}, nil)
	srv := httptest.NewServer(h.WSHandler())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if err := conn.WriteJSON(map[string]string{"type": "EVENT", "protocol_version": protocol.Version}); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("expected policy violation close, got %v", err)
	}
	if st := h.Stats(); st.Clients != 0 {
		t.Fatalf("clients = %d", st.Clients)
	}
}

func TestSendLatestDropsOldest(t *testing.T) {
	ch := make(chan []byte, 2)
	sendLatest(ch, []byte("a"))
	sendLatest(ch, []byte("b"))
	if !sendLatest(ch, []byte("c")) {
		t.Fatalf("expected a drop")
	}
	if got := string(<-ch); got != "b" {
		t.Fatalf("head = %q, want b", got)
	}
	if got := string(<-ch); got != "c" {
		t.Fatalf("tail = %q, want c", got)
	}
}

func TestIsLoopbackRemote(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1:4000": true,
		"[::1]:80":       true,
		"10.0.0.2:9":     false,
		"garbage":        false,
	}
	for in, want := range cases {
		if got := isLoopbackRemote(in); got != want {
			t.Fatalf("isLoopbackRemote(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFreshObserverReceivesAlerts(t *testing.T) {
	cats, err := catalogs.Load(filepath.Join("..", "..", "..", "configs"))
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	minds := inproc.NewMinds()
	h := NewHub(minds, Info{WorldID: "blob-1", ResourceMax: 16, HealthMax: 20}, Options{}, nil)
	w, err := world.New(world.WorldConfig{ID: "blob-1", Tuning: tuning.Defaults()}, cats, world.Collaborators{
		Spatial:      inproc.NewGrid(),
		Minds:        minds,
		Presentation: h,
		Round:        inproc.NewRound(),
		Defense:      inproc.NewDefense(),
	})
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	conn, _ := dialHub(t, h, protocol.HelloMsg{User: "alice"})

	org, ok := w.SpawnOrganism(world.Vec2i{}, "station")
	if !ok {
		t.Fatalf("spawn failed")
	}
	if !w.CreateObserver(org, "alice") {
		t.Fatalf("CreateObserver failed")
	}
	view, _ := w.Organism(org)

	if typ := readType(t, conn, nil); typ != protocol.TypeBriefing {
		t.Fatalf("first message = %s, want %s", typ, protocol.TypeBriefing)
	}
	got := map[string]protocol.AlertMsg{}
	for i := 0; i < 2; i++ {
		var alert protocol.AlertMsg
		if typ := readType(t, conn, &alert); typ != protocol.TypeAlert {
			t.Fatalf("message %d = %s, want %s", i, typ, protocol.TypeAlert)
		}
		if alert.Observer != uint64(view.Observer) {
			t.Fatalf("alert observer = %d, want %d", alert.Observer, view.Observer)
		}
		got[alert.Alert] = alert
	}
	if a, ok := got[protocol.AlertResource]; !ok || a.Level != 0 || a.Max != 16 {
		t.Fatalf("resource alert = %+v (present %v)", a, ok)
	}
	if a, ok := got[protocol.AlertHealth]; !ok || a.Level != 20 || a.Max != 20 {
		t.Fatalf("health alert = %+v (present %v)", a, ok)
	}
}
