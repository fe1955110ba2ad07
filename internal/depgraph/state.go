package depgraph

// ServiceState mirrors the Lifecycle state machine's states. The
// declaration order is not itself a satisfaction ordering — STOPPING,
// ERRORED, and BROKEN are side-states a dependency can land in without
// ever having satisfied a requirement, so satisfaction uses the dedicated
// progressionRank table below rather than a raw `<` over these constants.
type ServiceState int

const (
	StateNew ServiceState = iota
	StateInstalled
	StateStarting
	StateRunning
	StateStopping
	StateFinished
	StateErrored
	StateBroken
)

// progressionRank gives the satisfiedBy ordering from spec §4.6:
// NEW < INSTALLED < STARTING < RUNNING < FINISHED. STOPPING, ERRORED, and
// BROKEN are deliberately absent — a dependency sitting in any of them
// never satisfies a requirement, no matter how low that requirement is.
var progressionRank = map[ServiceState]int{
	StateNew:       0,
	StateInstalled: 1,
	StateStarting:  2,
	StateRunning:   3,
	StateFinished:  4,
}

// atLeast reports whether s has reached at least required in the
// satisfiedBy progression. Either side being a side-state (STOPPING,
// ERRORED, BROKEN) makes the result false.
func (s ServiceState) atLeast(required ServiceState) bool {
	sr, ok := progressionRank[s]
	if !ok {
		return false
	}
	rr, ok := progressionRank[required]
	if !ok {
		return false
	}
	return sr >= rr
}

func (s ServiceState) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateInstalled:
		return "INSTALLED"
	case StateStarting:
		return "STARTING"
	case StateRunning:
		return "RUNNING"
	case StateStopping:
		return "STOPPING"
	case StateFinished:
		return "FINISHED"
	case StateErrored:
		return "ERRORED"
	case StateBroken:
		return "BROKEN"
	default:
		return "UNKNOWN"
	}
}
