package session

// State is the lifecycle phase of the recording controller. Transitions are
// serialized by the controller mutex; there is never more than one session
// in flight.
type State int

const (
	Idle State = iota
	Starting
	Active
	Stopping
	Stopped
	Failed
)

var stateNames = map[State]string{
	Idle:     "idle",
	Starting: "starting",
	Active:   "active",
	Stopping: "stopping",
	Stopped:  "stopped",
	Failed:   "failed",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "unknown"
}
