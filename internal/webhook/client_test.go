package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srlee0408/AIInterview/internal/interview"
)

func TestSubmit_PostsOrderedTranscript(t *testing.T) {
	var got resultPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	transcript := []interview.Exchange{
		{Prompt: "자기소개 부탁드립니다.", Answer: "안녕하세요."},
		{Prompt: "지원 동기를 말씀해주세요.", Answer: "성장하고 싶습니다."},
	}
	require.NoError(t, c.Submit(context.Background(), "01012345678", transcript))

	assert.Equal(t, "01012345678", got.Phone)
	assert.Equal(t, transcript, got.Answers)
	assert.InDelta(t, time.Now().Unix(), got.CompletedAt, 5)
}

func TestSubmit_RetriesOnceOnFailure(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			http.Error(w, "temporarily down", http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	c.RetryDelay = time.Millisecond
	require.NoError(t, c.Submit(context.Background(), "010", nil))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestSubmit_FailsAfterRetry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "")
	c.RetryDelay = time.Millisecond
	err := c.Submit(context.Background(), "010", nil)
	require.ErrorContains(t, err, "status=500")
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestSubmit_NotConfigured(t *testing.T) {
	c := NewClient("", "")
	require.Error(t, c.Submit(context.Background(), "010", nil))
}

func TestSubmitPhone(t *testing.T) {
	var got phonePayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	defer srv.Close()

	c := NewClient("", srv.URL)
	require.NoError(t, c.SubmitPhone(context.Background(), "01099998888"))
	assert.Equal(t, "01099998888", got.Phone)
	assert.InDelta(t, time.Now().UnixMilli(), got.Time, 5000)
}
