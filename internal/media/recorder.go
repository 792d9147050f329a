package media

import (
	"context"
	"encoding/binary"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/srlee0408/AIInterview/internal/storage"
)

const micSampleRate = 16000

// TrackRecorder buffers decoded microphone PCM between Start and Stop and
// returns each answer as a WAV blob for transcription. When a storage
// backend is configured, every answer is also archived asynchronously.
type TrackRecorder struct {
	store     storage.Storage
	keyPrefix string

	mu        sync.Mutex
	recording bool
	pcm       []byte
}

// NewTrackRecorder creates a recorder. store may be nil to disable archival.
func NewTrackRecorder(store storage.Storage, keyPrefix string) *TrackRecorder {
	return &TrackRecorder{store: store, keyPrefix: keyPrefix}
}

// Append feeds decoded 16kHz 16-bit mono PCM from the remote track. Audio
// arriving while no answer is being recorded is dropped.
func (r *TrackRecorder) Append(pcm []byte) {
	r.mu.Lock()
	if r.recording {
		r.pcm = append(r.pcm, pcm...)
	}
	r.mu.Unlock()
}

// Start begins capturing an answer.
func (r *TrackRecorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recording {
		return fmt.Errorf("media: recording already in progress")
	}
	r.recording = true
	r.pcm = r.pcm[:0]
	return nil
}

// Stop ends the capture and returns the answer as a WAV blob.
func (r *TrackRecorder) Stop(ctx context.Context) ([]byte, error) {
	r.mu.Lock()
	if !r.recording {
		r.mu.Unlock()
		return nil, fmt.Errorf("media: no recording in progress")
	}
	r.recording = false
	pcm := make([]byte, len(r.pcm))
	copy(pcm, r.pcm)
	r.pcm = r.pcm[:0]
	r.mu.Unlock()

	wav := encodeWAV(pcm, micSampleRate)
	if r.store != nil && len(pcm) > 0 {
		key := fmt.Sprintf("%s/answer_%d.wav", r.keyPrefix, time.Now().UnixMilli())
		buf := make([]byte, len(wav))
		copy(buf, wav)
		go func() {
			if err := r.store.Upload(key, "audio/wav", buf); err != nil {
				log.Printf("media: answer archive failed: %v", err)
			}
		}()
	}
	return wav, nil
}

// encodeWAV wraps raw 16-bit mono PCM in a RIFF/WAVE header.
func encodeWAV(pcm []byte, sampleRate int) []byte {
	const (
		numChannels   = 1
		bitsPerSample = 16
	)
	byteRate := sampleRate * numChannels * bitsPerSample / 8
	blockAlign := numChannels * bitsPerSample / 8

	buf := make([]byte, 44+len(pcm))
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+len(pcm)))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], numChannels)
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], bitsPerSample)
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(len(pcm)))
	copy(buf[44:], pcm)
	return buf
}
