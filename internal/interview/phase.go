package interview

// Phase is the controller's lifecycle state. All user-visible behavior,
// including whether the answer button is enabled, derives from it.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseInitializing
	PhaseAwaitingAnswer
	PhaseListening
	PhaseTranscribing
	PhaseAwaitingAIReply
	PhaseAISpeaking
	PhaseEnded
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseInitializing:
		return "initializing"
	case PhaseAwaitingAnswer:
		return "awaiting_answer"
	case PhaseListening:
		return "listening"
	case PhaseTranscribing:
		return "transcribing"
	case PhaseAwaitingAIReply:
		return "awaiting_ai_reply"
	case PhaseAISpeaking:
		return "ai_speaking"
	case PhaseEnded:
		return "ended"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// AnswerControlEnabled reports whether the user may press the answer button.
// Computed from the phase, never stored: the user may start an answer only
// while awaiting one and end it only while listening.
func (p Phase) AnswerControlEnabled() bool {
	return p == PhaseAwaitingAnswer || p == PhaseListening
}

// Terminal reports whether the interview is over.
func (p Phase) Terminal() bool {
	return p == PhaseEnded
}
