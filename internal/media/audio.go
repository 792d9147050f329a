package media

import (
	"sync"
	"time"

	"github.com/hraban/opus"
	"github.com/pion/webrtc/v3"
	"github.com/pion/webrtc/v3/pkg/media"
)

const (
	outSampleRate   = 48000
	frameSamples    = 960 // 20ms at 48kHz
	frameDuration   = 20 * time.Millisecond
	silenceTailLen  = 10 // frames appended after a flush to avoid clipping
	frameQueueDepth = 4096
)

// SampleWriter is the subset of a WebRTC local track the writer needs.
type SampleWriter interface {
	WriteSample(s media.Sample) error
}

// OpusPacedWriter encodes 48kHz 16-bit mono PCM to Opus and writes 20ms
// frames to the track at real-time pace. It implements playback.Sink: the
// playback controller writes a whole reply's PCM at once and the writer
// meters it out.
type OpusPacedWriter struct {
	enc    *opus.Encoder
	track  SampleWriter
	frames chan []byte
	stopCh chan struct{}

	mu      sync.Mutex
	pcmBuf  []int16
	stopped bool
}

// NewOpusPacedWriter constructs a writer for the session's outbound track.
func NewOpusPacedWriter(track SampleWriter) (*OpusPacedWriter, error) {
	enc, err := opus.NewEncoder(outSampleRate, 1, opus.AppVoIP)
	if err != nil {
		return nil, err
	}
	w := &OpusPacedWriter{
		enc:    enc,
		track:  track,
		frames: make(chan []byte, frameQueueDepth),
		stopCh: make(chan struct{}),
	}
	go w.pace()
	return w, nil
}

// WritePCM buffers PCM bytes and emits encoded frames for every full 20ms.
func (w *OpusPacedWriter) WritePCM(pcm []byte) {
	if len(pcm) < 2 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	n := len(pcm) / 2
	for i := 0; i < n; i++ {
		w.pcmBuf = append(w.pcmBuf, int16(uint16(pcm[2*i])|uint16(pcm[2*i+1])<<8))
	}
	w.encodeFullFramesLocked()
}

// encodeFullFramesLocked drains complete frames from pcmBuf to the queue.
// Caller holds w.mu.
func (w *OpusPacedWriter) encodeFullFramesLocked() {
	out := make([]byte, 4000)
	for len(w.pcmBuf) >= frameSamples {
		n, err := w.enc.Encode(w.pcmBuf[:frameSamples], out)
		if err == nil && n > 0 {
			pkt := make([]byte, n)
			copy(pkt, out[:n])
			w.enqueue(pkt)
		}
		w.pcmBuf = append(w.pcmBuf[:0], w.pcmBuf[frameSamples:]...)
	}
}

// FlushTail pads the last partial frame and appends a short silence tail.
func (w *OpusPacedWriter) FlushTail() {
	w.mu.Lock()
	out := make([]byte, 4000)
	if len(w.pcmBuf) > 0 {
		pad := make([]int16, frameSamples)
		copy(pad, w.pcmBuf)
		if n, err := w.enc.Encode(pad, out); err == nil && n > 0 {
			pkt := make([]byte, n)
			copy(pkt, out[:n])
			w.enqueue(pkt)
		}
		w.pcmBuf = w.pcmBuf[:0]
	}
	silence := make([]int16, frameSamples)
	for i := 0; i < silenceTailLen; i++ {
		if n, err := w.enc.Encode(silence, out); err == nil && n > 0 {
			pkt := make([]byte, n)
			copy(pkt, out[:n])
			w.enqueue(pkt)
		}
	}
	w.mu.Unlock()
}

// Reset drops all queued audio immediately (playback stop).
func (w *OpusPacedWriter) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pcmBuf = w.pcmBuf[:0]
	for {
		select {
		case <-w.frames:
		default:
			return
		}
	}
}

// Close stops the pacing goroutine.
func (w *OpusPacedWriter) Close() {
	w.mu.Lock()
	if !w.stopped {
		w.stopped = true
		close(w.stopCh)
	}
	w.mu.Unlock()
}

func (w *OpusPacedWriter) enqueue(pkt []byte) {
	select {
	case <-w.stopCh:
	case w.frames <- pkt:
	}
}

func (w *OpusPacedWriter) pace() {
	ticker := time.NewTicker(frameDuration)
	defer ticker.Stop()
	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			select {
			case frame := <-w.frames:
				_ = w.track.WriteSample(media.Sample{Data: frame, Duration: frameDuration})
			default:
			}
		}
	}
}

// newOutboundTrack creates the Opus track the browser hears the interviewer on.
func newOutboundTrack() (*webrtc.TrackLocalStaticSample, error) {
	return webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: outSampleRate, Channels: 1},
		"interviewer-audio", "interviewer",
	)
}
