package media

import (
	"context"
	"encoding/binary"
	"strings"
	"sync"
	"testing"
	"time"
)

type archiveStore struct {
	mu   sync.Mutex
	keys []string
	data map[string][]byte
}

func (a *archiveStore) Upload(key, contentType string, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.data == nil {
		a.data = make(map[string][]byte)
	}
	a.keys = append(a.keys, key)
	a.data[key] = data
	return nil
}

func TestTrackRecorder_CapturesBetweenStartAndStop(t *testing.T) {
	r := NewTrackRecorder(nil, "recordings/test")
	ctx := context.Background()

	r.Append([]byte{1, 1}) // before Start: dropped
	if err := r.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	r.Append([]byte{2, 2, 3, 3})
	r.Append([]byte{4, 4})

	wav, err := r.Stop(ctx)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	r.Append([]byte{5, 5}) // after Stop: dropped

	if string(wav[0:4]) != "RIFF" || string(wav[8:12]) != "WAVE" {
		t.Fatalf("not a wav container: % x", wav[:12])
	}
	if rate := binary.LittleEndian.Uint32(wav[24:28]); rate != micSampleRate {
		t.Fatalf("sample rate %d, want %d", rate, micSampleRate)
	}
	if size := binary.LittleEndian.Uint32(wav[40:44]); size != 6 {
		t.Fatalf("data chunk size %d, want 6", size)
	}
	want := []byte{2, 2, 3, 3, 4, 4}
	got := wav[44:]
	if len(got) != len(want) {
		t.Fatalf("payload %d bytes, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("payload[%d]=%d, want %d", i, got[i], want[i])
		}
	}
}

func TestTrackRecorder_RejectsDoubleStartAndBareStop(t *testing.T) {
	r := NewTrackRecorder(nil, "recordings/test")
	ctx := context.Background()

	if _, err := r.Stop(ctx); err == nil {
		t.Fatalf("stop without start must fail")
	}
	if err := r.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := r.Start(ctx); err == nil {
		t.Fatalf("double start must fail")
	}
}

func TestTrackRecorder_NewCaptureDiscardsPrevious(t *testing.T) {
	r := NewTrackRecorder(nil, "recordings/test")
	ctx := context.Background()

	_ = r.Start(ctx)
	r.Append([]byte{9, 9})
	if _, err := r.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}

	_ = r.Start(ctx)
	r.Append([]byte{1, 1})
	wav, err := r.Stop(ctx)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if size := binary.LittleEndian.Uint32(wav[40:44]); size != 2 {
		t.Fatalf("second capture leaked earlier audio: data size %d", size)
	}
}

func TestTrackRecorder_ArchivesAnswer(t *testing.T) {
	store := &archiveStore{}
	r := NewTrackRecorder(store, "recordings/sess-1")
	ctx := context.Background()

	_ = r.Start(ctx)
	r.Append([]byte{1, 1})
	if _, err := r.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}

	// Archival is asynchronous.
	deadline := time.After(time.Second)
	for {
		store.mu.Lock()
		n := len(store.keys)
		store.mu.Unlock()
		if n == 1 {
			break
		}
		select {
		case <-deadline:
			t.Fatal("answer was not archived")
		case <-time.After(5 * time.Millisecond):
		}
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	if !strings.HasPrefix(store.keys[0], "recordings/sess-1/answer_") {
		t.Fatalf("unexpected archive key %q", store.keys[0])
	}
}
