package interview

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
)

// Sentinel errors surfaced to the UI shell.
var (
	ErrEmptyTranscription = errors.New("interview: transcription returned no text")
	ErrNotInitialized     = errors.New("interview: session not initialized")
	ErrSubmissionFailed   = errors.New("interview: transcript submission failed")
)

// DefaultEndMarkers are the phrases whose presence in an assistant reply
// signals the end of the interview. Substring matching is the upstream
// assistant's contract; see DESIGN.md for the structured-signal caveat.
var DefaultEndMarkers = []string{
	"면접이 종료되었습니다",
	"면접을 마치겠습니다",
	"수고하셨습니다",
}

// DefaultOpeningMessage is the first user message sent to the assistant to
// make it produce the greeting/first question.
const DefaultOpeningMessage = "면접을 시작해주세요."

// Config wires a Controller's collaborators and tunables.
type Config struct {
	Transcriber Transcriber
	Assistant   Assistant
	Synthesizer Synthesizer
	Submitter   Submitter
	Recorder    Recorder
	Player      Player

	// Identifier accompanies the submitted transcript (the candidate's phone number).
	Identifier string
	// OpeningMessage overrides DefaultOpeningMessage when non-empty.
	OpeningMessage string
	// EndMarkers overrides DefaultEndMarkers when non-empty.
	EndMarkers []string
	// RetryDelay is the backoff before the single automatic assistant retry.
	RetryDelay time.Duration
	// OnChange, when set, receives a snapshot after every transition.
	OnChange func(Snapshot)
}

// Controller runs one interview session: the listen -> transcribe -> reply ->
// speak loop, end detection, and transcript submission. All transitions go
// through one mutex; re-entrant user events that would start a conflicting
// operation are rejected by phase guard.
type Controller struct {
	transcriber Transcriber
	assistant   Assistant
	synth       Synthesizer
	submitter   Submitter
	recorder    Recorder
	player      Player

	identifier string
	opening    string
	endMarkers []string
	retryDelay time.Duration
	onChange   func(Snapshot)

	mu         sync.Mutex
	gen        int
	phase      Phase
	sessionID  string
	prompt     string
	transcript []Exchange
	lastErr    error
	submitted  bool
	// starting is set while recorder.Start is in flight. The phase stays
	// AwaitingAnswer until capture has actually begun, so a second toggle
	// arriving mid-start cannot race a Stop ahead of the Start.
	starting bool
}

// NewController validates the capability set and returns a controller in the
// uninitialized phase. Each controller owns its player and recorder for the
// lifetime of one session; nothing here is process-global.
func NewController(cfg Config) (*Controller, error) {
	switch {
	case cfg.Transcriber == nil:
		return nil, errors.New("interview: transcriber required")
	case cfg.Assistant == nil:
		return nil, errors.New("interview: assistant required")
	case cfg.Synthesizer == nil:
		return nil, errors.New("interview: synthesizer required")
	case cfg.Submitter == nil:
		return nil, errors.New("interview: submitter required")
	case cfg.Recorder == nil:
		return nil, errors.New("interview: recorder required")
	case cfg.Player == nil:
		return nil, errors.New("interview: player required")
	}
	opening := cfg.OpeningMessage
	if opening == "" {
		opening = DefaultOpeningMessage
	}
	markers := cfg.EndMarkers
	if len(markers) == 0 {
		markers = DefaultEndMarkers
	}
	delay := cfg.RetryDelay
	if delay < 0 {
		delay = 0
	}
	return &Controller{
		transcriber: cfg.Transcriber,
		assistant:   cfg.Assistant,
		synth:       cfg.Synthesizer,
		submitter:   cfg.Submitter,
		recorder:    cfg.Recorder,
		player:      cfg.Player,
		identifier:  cfg.Identifier,
		opening:     opening,
		endMarkers:  markers,
		retryDelay:  delay,
		onChange:    cfg.OnChange,
		phase:       PhaseUninitialized,
	}, nil
}

// Snapshot returns the current observable state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	ts := make([]Exchange, len(c.transcript))
	copy(ts, c.transcript)
	s := Snapshot{
		SessionID:            c.sessionID,
		Phase:                c.phase.String(),
		CurrentPrompt:        c.prompt,
		Transcript:           ts,
		AnswerControlEnabled: c.phase.AnswerControlEnabled(),
	}
	if c.lastErr != nil {
		s.Error = c.lastErr.Error()
	}
	return s
}

// transition applies mutate under the lock if the controller has not been
// reset since gen was captured, then notifies the observer. Returns false
// when the pipeline that captured gen has been superseded.
func (c *Controller) transition(gen int, mutate func()) bool {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return false
	}
	mutate()
	snap := c.snapshotLocked()
	cb := c.onChange
	c.mu.Unlock()
	if cb != nil {
		cb(snap)
	}
	return true
}

// Initialize creates the assistant session, plays the greeting, and enables
// the answer control. It is idempotent: concurrent or repeated calls while a
// session exists are no-ops, so a double mount cannot create two assistant
// sessions. After Close (or an initialization failure followed by Close) the
// controller may be initialized again.
func (c *Controller) Initialize(ctx context.Context) error {
	c.mu.Lock()
	if c.phase != PhaseUninitialized {
		c.mu.Unlock()
		log.Printf("interview: initialize ignored in phase %s", c.phase)
		return nil
	}
	gen := c.gen
	c.phase = PhaseInitializing
	c.lastErr = nil
	c.mu.Unlock()

	id, err := c.assistant.CreateSession(ctx)
	if err != nil {
		c.transition(gen, func() {
			c.phase = PhaseFailed
			c.lastErr = fmt.Errorf("create session: %w", err)
		})
		return fmt.Errorf("interview: create session: %w", err)
	}

	greeting, err := c.askWithRetry(ctx, id, c.opening)
	if err != nil {
		c.transition(gen, func() {
			c.phase = PhaseFailed
			c.lastErr = fmt.Errorf("fetch greeting: %w", err)
		})
		return fmt.Errorf("interview: fetch greeting: %w", err)
	}

	if !c.transition(gen, func() {
		c.sessionID = id
		c.prompt = greeting
		c.phase = PhaseAISpeaking
	}) {
		return nil
	}

	c.speak(ctx, greeting)

	if c.isEnd(greeting) {
		return c.finish(ctx, gen)
	}
	c.transition(gen, func() { c.phase = PhaseAwaitingAnswer })
	return nil
}

// Toggle is the single control surface: it starts an answer when one is
// awaited, finishes it when listening, and re-arms a failed mid-interview
// turn. In any other phase the event is rejected as a no-op, which is what
// keeps overlapping turns impossible.
func (c *Controller) Toggle(ctx context.Context) error {
	c.mu.Lock()
	switch c.phase {
	case PhaseAwaitingAnswer:
		if c.starting {
			c.mu.Unlock()
			log.Printf("interview: toggle ignored, capture start in flight")
			return nil
		}
		gen := c.gen
		c.starting = true
		c.mu.Unlock()

		err := c.recorder.Start(ctx)
		if err != nil {
			c.transition(gen, func() {
				c.starting = false
				c.lastErr = fmt.Errorf("start recording: %w", err)
			})
			return fmt.Errorf("interview: start recording: %w", err)
		}
		if !c.transition(gen, func() {
			c.starting = false
			c.phase = PhaseListening
			c.lastErr = nil
		}) {
			// Reset raced the start; the capture belongs to no session.
			discardCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			if _, err := c.recorder.Stop(discardCtx); err != nil {
				log.Printf("interview: discarding orphaned capture: %v", err)
			}
			cancel()
		}
		return nil
	case PhaseListening:
		gen := c.gen
		c.phase = PhaseTranscribing
		snap := c.snapshotLocked()
		cb := c.onChange
		c.mu.Unlock()
		if cb != nil {
			cb(snap)
		}
		return c.completeAnswer(ctx, gen)
	case PhaseFailed:
		// A mid-interview failure keeps the session and the standing
		// prompt; a toggle re-arms the turn. A failure before any
		// session exists needs a fresh Close + Initialize.
		if c.sessionID == "" {
			c.mu.Unlock()
			log.Printf("interview: toggle ignored, no session to resume")
			return nil
		}
		c.phase = PhaseAwaitingAnswer
		c.lastErr = nil
		snap := c.snapshotLocked()
		cb := c.onChange
		c.mu.Unlock()
		if cb != nil {
			cb(snap)
		}
		return nil
	default:
		p := c.phase
		c.mu.Unlock()
		log.Printf("interview: toggle ignored in phase %s", p)
		return nil
	}
}

// completeAnswer runs the back half of a turn: stop capture, transcribe,
// record the answer, fetch the next reply, and speak it.
func (c *Controller) completeAnswer(ctx context.Context, gen int) error {
	audio, err := c.recorder.Stop(ctx)
	if err != nil {
		c.transition(gen, func() {
			c.phase = PhaseAwaitingAnswer
			c.lastErr = fmt.Errorf("stop recording: %w", err)
		})
		return fmt.Errorf("interview: stop recording: %w", err)
	}

	text, err := c.transcriber.Transcribe(ctx, audio)
	if err != nil {
		c.transition(gen, func() {
			c.phase = PhaseAwaitingAnswer
			c.lastErr = fmt.Errorf("transcribe: %w", err)
		})
		return fmt.Errorf("interview: transcribe: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		c.transition(gen, func() {
			c.phase = PhaseAwaitingAnswer
			c.lastErr = ErrEmptyTranscription
		})
		return ErrEmptyTranscription
	}

	// The answer is in the transcript before the assistant round trip so a
	// network failure cannot lose what the candidate already said.
	var sessionID string
	if !c.transition(gen, func() {
		c.transcript = append(c.transcript, Exchange{Prompt: c.prompt, Answer: text})
		c.lastErr = nil
		c.phase = PhaseAwaitingAIReply
		sessionID = c.sessionID
	}) {
		return nil
	}

	reply, err := c.askWithRetry(ctx, sessionID, text)
	if err != nil {
		c.transition(gen, func() {
			c.phase = PhaseFailed
			c.lastErr = fmt.Errorf("assistant reply: %w", err)
		})
		return fmt.Errorf("interview: assistant reply: %w", err)
	}

	if !c.transition(gen, func() {
		c.prompt = reply
		c.phase = PhaseAISpeaking
	}) {
		return nil
	}

	c.speak(ctx, reply)

	if c.isEnd(reply) {
		return c.finish(ctx, gen)
	}
	c.transition(gen, func() { c.phase = PhaseAwaitingAnswer })
	return nil
}

// askWithRetry performs the assistant round trip with one automatic retry.
func (c *Controller) askWithRetry(ctx context.Context, sessionID, utterance string) (string, error) {
	reply, err := c.assistant.SubmitAndGetReply(ctx, sessionID, utterance)
	if err == nil {
		if reply = strings.TrimSpace(reply); reply != "" {
			return reply, nil
		}
		err = errors.New("empty assistant reply")
	}
	log.Printf("interview: assistant call failed, retrying: %v", err)
	if c.retryDelay > 0 {
		select {
		case <-time.After(c.retryDelay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	reply, err = c.assistant.SubmitAndGetReply(ctx, sessionID, utterance)
	if err != nil {
		return "", err
	}
	if reply = strings.TrimSpace(reply); reply == "" {
		return "", errors.New("empty assistant reply")
	}
	return reply, nil
}

// speak synthesizes and plays text, blocking until playback reaches its
// natural end. Synthesis and playback failures degrade to "speech already
// ended" so a corrupt buffer can never hang the session.
func (c *Controller) speak(ctx context.Context, text string) {
	audio, err := c.synth.Synthesize(ctx, text)
	if err != nil {
		log.Printf("interview: synthesis failed, continuing without audio: %v", err)
		return
	}
	if err := c.player.Play(ctx, audio); err != nil {
		log.Printf("interview: playback failed, treating as finished: %v", err)
	}
}

// finish submits the transcript exactly once, after the closing message has
// finished playing, and moves to the ended phase. A delivery failure keeps
// the transcript and is surfaced distinctly; RetrySubmission may be called.
func (c *Controller) finish(ctx context.Context, gen int) error {
	c.mu.Lock()
	if c.gen != gen || c.submitted {
		c.mu.Unlock()
		return nil
	}
	id := c.identifier
	ts := make([]Exchange, len(c.transcript))
	copy(ts, c.transcript)
	c.mu.Unlock()

	err := c.submitter.Submit(ctx, id, ts)
	if err != nil {
		log.Printf("interview: submission failed, retrying: %v", err)
		err = c.submitter.Submit(ctx, id, ts)
	}

	c.transition(gen, func() {
		c.phase = PhaseEnded
		if err != nil {
			c.lastErr = fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
		} else {
			c.submitted = true
			c.lastErr = nil
		}
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
	}
	return nil
}

// RetrySubmission re-attempts transcript delivery after the interview ended
// with a submission failure.
func (c *Controller) RetrySubmission(ctx context.Context) error {
	c.mu.Lock()
	if c.phase != PhaseEnded || c.submitted {
		c.mu.Unlock()
		return nil
	}
	gen := c.gen
	c.mu.Unlock()
	return c.finish(ctx, gen)
}

// isEnd reports whether reply contains any of the end-marker phrases.
func (c *Controller) isEnd(reply string) bool {
	for _, m := range c.endMarkers {
		if strings.Contains(reply, m) {
			return true
		}
	}
	return false
}

// Close tears the session down from any phase: playback stopped, capture
// stopped and discarded, assistant handle released. In-flight pipelines are
// superseded and abandon their remaining transitions. The controller returns
// to the uninitialized phase and may be initialized again.
func (c *Controller) Close() {
	c.mu.Lock()
	c.gen++
	wasListening := c.phase == PhaseListening
	c.phase = PhaseUninitialized
	c.sessionID = ""
	c.prompt = ""
	c.transcript = nil
	c.lastErr = nil
	c.submitted = false
	c.starting = false
	snap := c.snapshotLocked()
	cb := c.onChange
	c.mu.Unlock()

	c.player.Stop()
	if wasListening {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if _, err := c.recorder.Stop(ctx); err != nil {
			log.Printf("interview: discarding capture on close: %v", err)
		}
		cancel()
	}
	if cb != nil {
		cb(snap)
	}
}
