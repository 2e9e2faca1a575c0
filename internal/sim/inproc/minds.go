package inproc

import (
	"sync"

	"github.com/google/uuid"

	"blobcraft.ai/internal/sim/world"
)

type mind struct {
	id    world.MindID
	label string
	owner world.UserID
	host  world.EntityID
}

// Minds tracks identities and the player sessions attached to them.
type Minds struct {
	mu       sync.Mutex
	minds    map[world.MindID]*mind
	sessions map[world.UserID]*world.Session
}

func NewMinds() *Minds {
	return &Minds{minds: map[world.MindID]*mind{}, sessions: map[world.UserID]*world.Session{}}
}

// Connect opens (or returns) the live session of user.
func (m *Minds) Connect(user world.UserID) world.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[user]; ok {
		return *s
	}
	s := &world.Session{ID: uuid.NewString(), User: user}
	for _, md := range m.minds {
		if md.owner == user {
			s.Mind = md.id
			s.Host = md.host
			break
		}
	}
	m.sessions[user] = s
	return *s
}

func (m *Minds) Disconnect(user world.UserID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, user)
}

func (m *Minds) ResolveIdentity(entity world.EntityID) (world.MindID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entity == 0 {
		return "", false
	}
	for _, md := range m.minds {
		if md.host == entity {
			return md.id, true
		}
	}
	return "", false
}

func (m *Minds) CreateIdentity(user world.UserID, label string) world.MindID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := world.MindID(uuid.NewString())
	m.minds[id] = &mind{id: id, label: label, owner: user}
	return id
}

func (m *Minds) SetOwner(id world.MindID, user world.UserID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	md := m.minds[id]
	if md == nil {
		md = &mind{id: id}
		m.minds[id] = md
	}
	md.owner = user
	if s, ok := m.sessions[user]; ok {
		s.Mind = id
	}
}

func (m *Minds) BindIdentity(id world.MindID, host world.EntityID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if md := m.minds[id]; md != nil {
		md.host = host
	}
}

func (m *Minds) DetachIdentity(id world.MindID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if md := m.minds[id]; md != nil {
		md.host = 0
	}
}

func (m *Minds) LiveSessionOf(id world.MindID) (world.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	md := m.minds[id]
	if md == nil || md.owner == "" {
		return world.Session{}, false
	}
	s, ok := m.sessions[md.owner]
	if !ok {
		return world.Session{}, false
	}
	return *s, true
}

func (m *Minds) SessionOfUser(user world.UserID) (world.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[user]
	if !ok {
		return world.Session{}, false
	}
	return *s, true
}

func (m *Minds) AttachSession(user world.UserID, host world.EntityID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[user]; ok {
		s.Host = host
	}
}

// Host reports the entity a mind currently inhabits.
func (m *Minds) Host(id world.MindID) (world.EntityID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	md := m.minds[id]
	if md == nil || md.host == 0 {
		return 0, false
	}
	return md.host, true
}

func (m *Minds) Label(id world.MindID) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if md := m.minds[id]; md != nil {
		return md.label
	}
	return ""
}
