package acquisition

// State is the lifecycle stage of the acquisition service.
type State int32

const (
	StateStopped State = iota
	StateStarting
	StateListening
	StateStopping
	StateFaulted
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateListening:
		return "listening"
	case StateStopping:
		return "stopping"
	case StateFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}
