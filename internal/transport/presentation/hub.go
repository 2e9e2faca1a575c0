package presentation

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"blobcraft.ai/internal/protocol"
	"blobcraft.ai/internal/sim/world"
)

// Sessions is the slice of the identity layer the hub needs to route messages.
type Sessions interface {
	Connect(user world.UserID) world.Session
	Disconnect(user world.UserID)
	SessionOfUser(user world.UserID) (world.Session, bool)
}

type Info struct {
	WorldID     string
	TickRateHz  int
	ChemsDigest string
	TilesDigest string
	ResourceMax int
	HealthMax   int
}

type Options struct {
	AllowRemote bool
	OutBuffer   int
}

type client struct {
	id     uint64
	user   world.UserID
	events bool
	out    chan []byte
}

// Hub fans presentation output of the engine out to websocket clients.
// Its world-facing methods never block the world loop; a full client buffer drops the oldest message.
type Hub struct {
	log      *log.Logger
	sessions Sessions
	info     Info
	opts     Options

	upgrader websocket.Upgrader
	nextID   atomic.Uint64

	mu      sync.RWMutex
	clients map[uint64]*client

	sent    atomic.Uint64
	dropped atomic.Uint64
}

type Stats struct {
	Clients int
	Sent    uint64
	Dropped uint64
}

func NewHub(sessions Sessions, info Info, opts Options, logger *log.Logger) *Hub {
	if opts.OutBuffer <= 0 {
		opts.OutBuffer = 256
	}
	return &Hub{
		log:      logger,
		sessions: sessions,
		info:     info,
		opts:     opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
		clients: map[uint64]*client{},
	}
}

func (h *Hub) Stats() Stats {
	h.mu.RLock()
	n := len(h.clients)
	h.mu.RUnlock()
	return Stats{Clients: n, Sent: h.sent.Load(), Dropped: h.dropped.Load()}
}

func (h *Hub) ShowResourceLevel(observer world.EntityID, level int) {
	h.toObserver(observer, protocol.AlertMsg{
		Type:            protocol.TypeAlert,
		ProtocolVersion: protocol.Version,
		Observer:        uint64(observer),
		Alert:           protocol.AlertResource,
		Level:           level,
		Max:             h.info.ResourceMax,
	})
}

func (h *Hub) ShowHealthLevel(observer world.EntityID, level int) {
	h.toObserver(observer, protocol.AlertMsg{
		Type:            protocol.TypeAlert,
		ProtocolVersion: protocol.Version,
		Observer:        uint64(observer),
		Alert:           protocol.AlertHealth,
		Level:           level,
		Max:             h.info.HealthMax,
	})
}

func (h *Hub) Notify(to world.EntityID, n world.Notice) {
	h.toObserver(to, protocol.NoticeMsg{
		Type:            protocol.TypeNotice,
		ProtocolVersion: protocol.Version,
		To:              uint64(to),
		Key:             n.Key,
		Severity:        string(n.Severity),
		Args:            n.Args,
	})
}

func (h *Hub) Brief(s world.Session, key string) {
	b, err := json.Marshal(protocol.BriefingMsg{
		Type:            protocol.TypeBriefing,
		ProtocolVersion: protocol.Version,
		User:            string(s.User),
		SessionID:       s.ID,
		Key:             key,
	})
	if err != nil {
		return
	}
	h.fanout(b, func(c *client) bool { return c.user == s.User })
}

// WriteEvent forwards engine events to clients that asked for them.
func (h *Hub) WriteEvent(e world.EventEntry) error {
	b, err := json.Marshal(protocol.EventMsg{
		Type:            protocol.TypeEvent,
		ProtocolVersion: protocol.Version,
		Tick:            e.Tick,
		WorldID:         e.World,
		Kind:            e.Kind,
		Organism:        uint64(e.Organism),
		Data:            e.Data,
	})
	if err != nil {
		return err
	}
	h.fanout(b, func(c *client) bool { return c.events })
	return nil
}

func (h *Hub) toObserver(observer world.EntityID, msg any) {
	b, err := json.Marshal(msg)
	if err != nil {
		return
	}
	h.fanout(b, func(c *client) bool {
		if c.user == "" {
			return false
		}
		s, ok := h.sessions.SessionOfUser(c.user)
		return ok && s.Host == observer
	})
}

func (h *Hub) fanout(b []byte, match func(c *client) bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		if !match(c) {
			continue
		}
		if sendLatest(c.out, b) {
			h.dropped.Add(1)
		}
		h.sent.Add(1)
	}
}

// sendLatest enqueues b, dropping the oldest queued message if the buffer is full.
// It reports whether a message was dropped.
func sendLatest(ch chan []byte, b []byte) bool {
	select {
	case ch <- b:
		return false
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
	return true
}

func (h *Hub) register(user world.UserID, events bool) *client {
	c := &client{
		id:     h.nextID.Add(1),
		user:   user,
		events: events,
		out:    make(chan []byte, h.opts.OutBuffer),
	}
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
	return c
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c.id)
	others := false
	for _, o := range h.clients {
		if o.user == c.user {
			others = true
			break
		}
	}
	h.mu.Unlock()
	if c.user != "" && !others {
		h.sessions.Disconnect(c.user)
	}
}

func (h *Hub) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !h.opts.AllowRemote && !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := h.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send HELLO first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var hello protocol.HelloMsg
		if err := json.Unmarshal(msg, &hello); err != nil {
			closeWith(conn, websocket.ClosePolicyViolation, "bad hello")
			return
		}
		if hello.Type != protocol.TypeHello || hello.ProtocolVersion != protocol.Version {
			closeWith(conn, websocket.ClosePolicyViolation, "expected HELLO")
			return
		}

		user := world.UserID(strings.TrimSpace(hello.User))
		welcome := protocol.WelcomeMsg{
			Type:            protocol.TypeWelcome,
			ProtocolVersion: protocol.Version,
			WorldID:         h.info.WorldID,
			TickRateHz:      h.info.TickRateHz,
			Catalogs:        protocol.CatalogRefs{ChemsDigest: h.info.ChemsDigest, TilesDigest: h.info.TilesDigest},
		}
		if user != "" {
			welcome.SessionID = h.sessions.Connect(user).ID
		}
		c := h.register(user, hello.WantEvents)
		defer h.unregister(c)

		_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
		if err := conn.WriteJSON(welcome); err != nil {
			return
		}
		if h.log != nil {
			h.log.Printf("presentation client %d connected user=%q events=%v", c.id, user, c.events)
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer goroutine.
		writeErr := make(chan error, 1)
		go func() {
			for {
				select {
				case <-ctx.Done():
					writeErr <- ctx.Err()
					return
				case b := <-c.out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						writeErr <- err
						return
					}
				}
			}
		}()

		// Reader loop: the feed is server -> client; reads only detect disconnects.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}

		cancel()
		closeWith(conn, websocket.CloseNormalClosure, "bye")

		// Best-effort wait for the writer to stop so it doesn't outlive conn.
		select {
		case <-writeErr:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func closeWith(conn *websocket.Conn, code int, text string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(time.Second))
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
