package world

// FactionMember is one identity on the possession faction roster.
type FactionMember struct {
	Mind      MindID `json:"mind"`
	User      UserID `json:"user"`
	Objective string `json:"objective,omitempty"`
	Briefed   bool   `json:"briefed"`
}

// Faction is the process-wide roster of possession-faction members.
// Members are only added by the possession path and the roster is cleared on reset.
type Faction struct {
	objective string
	started   bool
	members   map[MindID]*FactionMember
	order     []MindID
}

func newFaction(objective string) *Faction {
	return &Faction{objective: objective, members: map[MindID]*FactionMember{}}
}

// Start activates the faction rule. It reports true only on the first call since the last reset.
func (f *Faction) Start() bool {
	if f.started {
		return false
	}
	f.started = true
	return true
}

func (f *Faction) Started() bool { return f.started }

func (f *Faction) Len() int { return len(f.order) }

func (f *Faction) Members() []FactionMember {
	out := make([]FactionMember, 0, len(f.order))
	for _, m := range f.order {
		out = append(out, *f.members[m])
	}
	return out
}

// register adds mind to the roster; the objective is assigned once per mind.
func (f *Faction) register(mind MindID, user UserID) (*FactionMember, bool) {
	if m, ok := f.members[mind]; ok {
		m.User = user
		return m, false
	}
	m := &FactionMember{Mind: mind, User: user, Objective: f.objective}
	f.members[mind] = m
	f.order = append(f.order, mind)
	return m, true
}

func (f *Faction) reset() {
	f.started = false
	f.members = map[MindID]*FactionMember{}
	f.order = nil
}
