package exam

// Phase is a step of one generation action.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseCredentialCheck
	PhaseBlocked
	PhaseRequesting
	PhaseStreaming
	PhaseRendering
	PhaseComplete
	PhaseFailed
)

var phaseNames = [...]string{
	PhaseIdle:            "idle",
	PhaseCredentialCheck: "credential_check",
	PhaseBlocked:         "blocked",
	PhaseRequesting:      "requesting",
	PhaseStreaming:       "streaming",
	PhaseRendering:       "rendering",
	PhaseComplete:        "complete",
	PhaseFailed:          "failed",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// Terminal reports whether no further phase follows p in the same action.
func (p Phase) Terminal() bool {
	return p == PhaseBlocked || p == PhaseComplete || p == PhaseFailed
}

// PhaseHook observes phase transitions. It runs on the action's goroutine
// and must not block.
type PhaseHook func(session string, p Phase)
