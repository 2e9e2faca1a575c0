package destruction

import "strings"

// Stage mirrors the round stage reported by round control.
type Stage int

const (
	StageDefault Stage = iota
	StageBegin
	StageMedium
	StageCritical
	StageEnd
)

func (s Stage) String() string {
	switch s {
	case StageBegin:
		return "BEGIN"
	case StageMedium:
		return "MEDIUM"
	case StageCritical:
		return "CRITICAL"
	case StageEnd:
		return "END"
	default:
		return "DEFAULT"
	}
}

// ParseStage accepts the names String produces, case-insensitively.
func ParseStage(s string) (Stage, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEFAULT":
		return StageDefault, true
	case "BEGIN":
		return StageBegin, true
	case "MEDIUM":
		return StageMedium, true
	case "CRITICAL":
		return StageCritical, true
	case "END":
		return StageEnd, true
	}
	return StageDefault, false
}

// ShouldRollback reports whether losing an organism resets the region alert.
// live counts organisms not yet terminating, including the one being destroyed.
func ShouldRollback(live int, stage Stage) bool {
	if live > 1 {
		return false
	}
	return stage == StageBegin || stage == StageCritical
}

// NeutralColor is the colour orphaned tiles are reset to.
const NeutralColor = "#ffffff"
