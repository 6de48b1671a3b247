package game

// ActionType enumerates the hidden-information actions a turn-holder can take.
type ActionType int

const (
	ActionScan ActionType = iota
	ActionHack
	ActionEvade
	ActionEncrypt
)

// String returns the wire verb for the action.
func (a ActionType) String() string {
	switch a {
	case ActionScan:
		return "SCAN"
	case ActionHack:
		return "HACK"
	case ActionEvade:
		return "EVADE"
	case ActionEncrypt:
		return "ENCRYPT"
	}
	return "UNKNOWN"
}

// Action is one turn's move. X and Y are meaningful for SCAN and HACK only.
type Action struct {
	Type ActionType
	X    int
	Y    int
}
