package appbase

// State is a plugin's position in its lifecycle. States only move forward.
type State int32

const (
	// StateRegistered is the state of a freshly constructed plugin.
	StateRegistered State = iota
	// StateInitialized follows a successful Initialize hook.
	StateInitialized
	// StateStarted follows a successful Startup hook.
	StateStarted
	// StateStopped is entered before the Shutdown hook runs.
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateRegistered:
		return "registered"
	case StateInitialized:
		return "initialized"
	case StateStarted:
		return "started"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
