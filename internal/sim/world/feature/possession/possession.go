package possession

// State is the step a possession session has reached.
type State int

const (
	Requested State = iota
	MindResolved
	PendingFirstDetach
	PendingReattach
	Bound
	Abandoned
)

func (s State) String() string {
	switch s {
	case Requested:
		return "REQUESTED"
	case MindResolved:
		return "MIND_RESOLVED"
	case PendingFirstDetach:
		return "PENDING_FIRST_DETACH"
	case PendingReattach:
		return "PENDING_REATTACH"
	case Bound:
		return "BOUND"
	case Abandoned:
		return "ABANDONED"
	default:
		return "UNKNOWN"
	}
}

func (s State) Terminal() bool { return s == Bound || s == Abandoned }

var transitions = map[State][]State{
	Requested:          {MindResolved, Abandoned},
	MindResolved:       {Bound, PendingFirstDetach, Abandoned},
	PendingFirstDetach: {PendingReattach, Abandoned},
	PendingReattach:    {Bound, Abandoned},
}

func CanAdvance(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// MindSource says where the session's identity came from.
type MindSource int

const (
	FromOrganism MindSource = iota
	FromRequester
	Fresh
)

func (m MindSource) String() string {
	switch m {
	case FromOrganism:
		return "organism"
	case FromRequester:
		return "requester"
	default:
		return "fresh"
	}
}

// ResolveSource picks the identity to reuse: the organism's bound one first,
// then the requester's active one, else a fresh identity.
func ResolveSource(organismHasMind, requesterHasMind bool) MindSource {
	switch {
	case organismHasMind:
		return FromOrganism
	case requesterHasMind:
		return FromRequester
	default:
		return Fresh
	}
}

// NextAfterResolve is the state that follows identity resolution.
// Fresh identities have no previous host and bind immediately.
func NextAfterResolve(src MindSource) State {
	if src == Fresh {
		return Bound
	}
	return PendingFirstDetach
}
