package checkout

type State string

const (
	StateIdle      State = "IDLE"
	StateReviewing State = "REVIEWING"
)

// String representation (for logging)
func (s State) String() string {
	return string(s)
}
