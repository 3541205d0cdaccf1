package stabilize

// Phase identifies where the stabilization state machine currently
// stands. Transitions: Probing -> Resetting when the probed master
// count matches the target; Resetting -> Stable when every master
// flushed inside the timeout; Resetting -> Probing when any node
// failed its flush; Probing -> Failed on a probe transport or parse
// failure, which no amount of retrying can repair.
type Phase string

const (
	PhaseProbing   Phase = "Probing"
	PhaseResetting Phase = "Resetting"
	PhaseStable    Phase = "Stable"
	PhaseFailed    Phase = "Failed"
)

func (p Phase) String() string {
	return string(p)
}
