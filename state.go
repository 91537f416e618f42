package omnia

// State tracks where a scope is in its lifecycle. Transitions are one
// way: an open scope either commits or rolls back, and a terminal scope
// stays terminal.
type State int

const (
	StateOpen State = iota
	StateCommitted
	StateRolledBack
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateCommitted:
		return "committed"
	case StateRolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}
