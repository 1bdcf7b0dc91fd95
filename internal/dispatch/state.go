package dispatch

// State is a step of the per-request dispatch state machine
type State int

const (
	StateIdle State = iota
	StateAwaitingLock
	StateAttemptingPrimary
	StateCoolingDownBeforeFallback
	StateAttemptingFallback
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingLock:
		return "awaiting_lock"
	case StateAttemptingPrimary:
		return "attempting_primary"
	case StateCoolingDownBeforeFallback:
		return "cooling_down_before_fallback"
	case StateAttemptingFallback:
		return "attempting_fallback"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
