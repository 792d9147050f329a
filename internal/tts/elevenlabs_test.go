package tts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElevenLabs_Synthesize(t *testing.T) {
	pcm := []byte{0x01, 0x00, 0x02, 0x00, 0x03, 0x00}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/text-to-speech/voice_ko/stream", r.URL.Path)
		assert.Equal(t, "pcm_48000", r.URL.Query().Get("output_format"))
		assert.Equal(t, "el-key", r.Header.Get("xi-api-key"))
		_, _ = w.Write(pcm)
	}))
	defer srv.Close()

	c := NewElevenLabsClient("el-key", "voice_ko")
	c.BaseURL = srv.URL

	audio, err := c.Synthesize(context.Background(), "면접을 시작해주세요.")
	require.NoError(t, err)
	assert.Equal(t, pcm, audio)
}

func TestElevenLabs_Synthesize_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"quota exceeded"}`, http.StatusPaymentRequired)
	}))
	defer srv.Close()

	c := NewElevenLabsClient("el-key", "voice_ko")
	c.BaseURL = srv.URL

	_, err := c.Synthesize(context.Background(), "안녕하세요")
	require.ErrorContains(t, err, "status=402")
}

func TestElevenLabs_Synthesize_EmptyAudio(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewElevenLabsClient("el-key", "voice_ko")
	c.BaseURL = srv.URL

	_, err := c.Synthesize(context.Background(), "안녕하세요")
	require.ErrorContains(t, err, "empty audio")
}

func TestElevenLabs_Synthesize_MissingConfig(t *testing.T) {
	c := NewElevenLabsClient("", "")
	_, err := c.Synthesize(context.Background(), "안녕하세요")
	require.Error(t, err)

	c = NewElevenLabsClient("el-key", "voice_ko")
	_, err = c.Synthesize(context.Background(), "")
	require.Error(t, err)
}
