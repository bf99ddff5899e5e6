package session

// Phase is the position of the controller in its shutdown sequence.
type Phase int

const (
	PhaseIdle Phase = iota
	PhasePausing
	PhaseEnumerating
	PhaseRequesting
	PhaseDraining
	PhasePersisting
	PhaseClosed
)

var phaseNames = [...]string{
	PhaseIdle:        "idle",
	PhasePausing:     "pausing",
	PhaseEnumerating: "enumerating",
	PhaseRequesting:  "requesting",
	PhaseDraining:    "draining",
	PhasePersisting:  "persisting",
	PhaseClosed:      "closed",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}
