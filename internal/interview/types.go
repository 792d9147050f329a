package interview

import "context"

// Exchange is one prompt/answer turn of the interview transcript.
type Exchange struct {
	Prompt string `json:"question"`
	Answer string `json:"answer"`
}

// Transcriber converts a finished answer recording to text.
// An empty string with nil error means nothing intelligible was heard.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Assistant is the conversational interviewer.
type Assistant interface {
	// CreateSession opens a new conversation and returns its opaque handle.
	CreateSession(ctx context.Context) (string, error)
	// SubmitAndGetReply sends one user utterance and returns the assistant's reply.
	SubmitAndGetReply(ctx context.Context, sessionID, utterance string) (string, error)
}

// Synthesizer converts reply text to a playable audio buffer.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Submitter delivers the completed transcript to the results workflow.
type Submitter interface {
	Submit(ctx context.Context, identifier string, transcript []Exchange) error
}

// Recorder captures microphone audio between Start and Stop.
// Stop returns the full recording of the answer.
type Recorder interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) ([]byte, error)
}

// Player plays one synthesized audio buffer at a time. Play blocks until the
// audio reaches its natural end; Stop halts any in-progress playback.
type Player interface {
	Play(ctx context.Context, audio []byte) error
	Stop()
}

// Snapshot is an immutable view of controller state for observers.
type Snapshot struct {
	SessionID            string     `json:"sessionId,omitempty"`
	Phase                string     `json:"phase"`
	CurrentPrompt        string     `json:"currentPrompt,omitempty"`
	Transcript           []Exchange `json:"transcript"`
	AnswerControlEnabled bool       `json:"answerControlEnabled"`
	Error                string     `json:"error,omitempty"`
}
