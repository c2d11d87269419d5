package record

// State is the lifecycle state of a process record as reported by the engine.
type State string

// Lifecycle state constants. The engine defines exactly these six values.
const (
	StateCreated  State = "created"
	StateWaiting  State = "waiting"
	StateRunning  State = "running"
	StateFinished State = "finished"
	StateExcepted State = "excepted"
	StateKilled   State = "killed"
)

// Legend describes the lifecycle state hierarchy, for user-facing output.
const Legend = `
Process state hierarchy:
- terminated
    - 'finished'
        - finished_ok ('exit_status' == 0)
        - failed      ('exit_status' >  0)
    - 'excepted'
    - 'killed'
- not terminated
    - 'created'
    - 'waiting'
    - 'running'
`

// Terminated reports whether the state is final.
func (s State) Terminated() bool {
	switch s {
	case StateFinished, StateExcepted, StateKilled:
		return true
	}
	return false
}

// AllStates returns every lifecycle state in declaration order.
func AllStates() []State {
	return []State{StateCreated, StateWaiting, StateRunning, StateFinished, StateExcepted, StateKilled}
}

// States returns a subset of lifecycle states. terminated=nil selects all
// states, true the terminated ones, false the not terminated ones.
func States(terminated *bool) []State {
	if terminated == nil {
		return AllStates()
	}
	if *terminated {
		return []State{StateFinished, StateExcepted, StateKilled}
	}
	return []State{StateCreated, StateWaiting, StateRunning}
}

// ValidStates reports whether every supplied state is one of the six defined
// lifecycle states.
func ValidStates(states []State) bool {
	for _, s := range states {
		if !s.Terminated() {
			switch s {
			case StateCreated, StateWaiting, StateRunning:
			default:
				return false
			}
		}
	}
	return true
}

// Terminated and NotTerminated are ready-made selectors for States.
var (
	Terminated    = boolPtr(true)
	NotTerminated = boolPtr(false)
)

func boolPtr(v bool) *bool { return &v }
