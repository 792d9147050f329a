// Package playback owns at most one in-progress synthesized-speech playback
// per interview session and reports completion to the session controller.
package playback

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// ErrDecode marks an audio buffer that cannot be interpreted as PCM.
var ErrDecode = errors.New("playback: undecodable audio")

// SampleRate of the PCM the synthesizers produce (16-bit LE mono).
const SampleRate = 48000

// Sink consumes PCM bytes and performs delivery (e.g. Opus encode to a
// WebRTC track). Implementations buffer internally and pace output.
type Sink interface {
	WritePCM(pcm []byte)
	FlushTail()
	// Reset drops queued audio immediately (used when playback is stopped).
	Reset()
}

// Controller plays one audio buffer at a time on a Sink. It is owned by a
// single session and torn down with it; it is not shared between sessions.
type Controller struct {
	sink       Sink
	onSpeaking func(bool)

	mu      sync.Mutex
	gen     int
	playing bool
	cancel  context.CancelFunc
}

// NewController returns a controller that delivers audio to sink.
func NewController(sink Sink) *Controller {
	if sink == nil {
		sink = nopSink{}
	}
	return &Controller{sink: sink}
}

// OnSpeakingChanged registers the single observer of the speaking flag.
// It must be set before the first Play.
func (c *Controller) OnSpeakingChanged(fn func(bool)) {
	c.mu.Lock()
	c.onSpeaking = fn
	c.mu.Unlock()
}

// Speaking reports whether a playback is in progress.
func (c *Controller) Speaking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.playing
}

// Play delivers pcm to the sink and blocks until the audio would have
// reached its natural end. If another playback is in progress it is stopped
// first; two playbacks never overlap. A buffer that is not valid 16-bit PCM
// fails with ErrDecode and leaves the speaking flag false.
func (c *Controller) Play(ctx context.Context, pcm []byte) error {
	if len(pcm) == 0 || len(pcm)%2 != 0 {
		return ErrDecode
	}

	c.mu.Lock()
	if c.playing {
		log.Printf("playback: superseding in-progress playback")
		c.stopLocked()
	}
	c.gen++
	gen := c.gen
	playCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.playing = true
	notify := c.onSpeaking
	c.mu.Unlock()
	if notify != nil {
		notify(true)
	}

	c.sink.WritePCM(pcm)

	// The sink paces delivery itself; natural end is when the buffer's
	// duration has elapsed.
	dur := time.Duration(len(pcm)/2) * time.Second / SampleRate
	timer := time.NewTimer(dur)
	defer timer.Stop()
	interrupted := false
	select {
	case <-timer.C:
	case <-playCtx.Done():
		interrupted = true
	}

	c.mu.Lock()
	if c.gen != gen {
		// A newer playback took over; its state is not ours to clear.
		c.mu.Unlock()
		return nil
	}
	c.playing = false
	c.cancel = nil
	notify = c.onSpeaking
	c.mu.Unlock()
	cancel()

	if !interrupted {
		c.sink.FlushTail()
	}
	if notify != nil {
		notify(false)
	}
	return nil
}

// Stop halts the in-progress playback immediately and reports speaking=false
// synchronously. It is idempotent; with nothing playing it is a no-op.
func (c *Controller) Stop() {
	c.mu.Lock()
	if !c.playing {
		c.mu.Unlock()
		return
	}
	c.stopLocked()
	notify := c.onSpeaking
	c.mu.Unlock()
	if notify != nil {
		notify(false)
	}
}

// stopLocked cancels the active playback and drops queued audio. The gen
// bump supersedes the interrupted Play goroutine so it cannot report a
// second speaking=false edge when it wakes. Caller holds c.mu.
func (c *Controller) stopLocked() {
	c.gen++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.playing = false
	c.sink.Reset()
}

type nopSink struct{}

func (nopSink) WritePCM([]byte) {}
func (nopSink) FlushTail()      {}
func (nopSink) Reset()          {}
