package orchestrator

// State tracks one item download through its lifecycle.
type State string

const (
	StateResolving State = "resolving"
	StateSelecting State = "selecting"
	StateFetching  State = "fetching"
	StateMerging   State = "merging"
	StateCompleted State = "completed"
	StateSkipped   State = "skipped"
	StateFailed    State = "failed"
)

// validTransitions defines allowed state transitions.
// Key is the "from" state, value is list of valid "to" states.
var validTransitions = map[State][]State{
	StateResolving: {StateSelecting, StateFailed},
	StateSelecting: {StateFetching, StateSkipped, StateFailed},
	StateFetching:  {StateMerging, StateCompleted, StateFailed},
	StateMerging:   {StateCompleted, StateFailed},
	// terminal states have no transitions out
	StateCompleted: {},
	StateSkipped:   {},
	StateFailed:    {},
}

// CanTransitionTo returns true if transitioning from s to target is valid.
func (s State) CanTransitionTo(target State) bool {
	for _, v := range validTransitions[s] {
		if v == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true once a state can never be re-entered or left.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateSkipped || s == StateFailed
}
