package transcribe

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseMultipartForm(1<<20))

		assert.Equal(t, "whisper-1", r.FormValue("model"))
		assert.Equal(t, "ko", r.FormValue("language"))
		assert.Equal(t, "verbose_json", r.FormValue("response_format"))
		assert.Equal(t, "0.2", r.FormValue("temperature"))
		assert.NotEmpty(t, r.FormValue("prompt"))

		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "answer.wav", hdr.Filename)
		data, err := io.ReadAll(f)
		require.NoError(t, err)
		assert.Equal(t, []byte("RIFFxxxx"), data)

		_, _ = w.Write([]byte(`{"text":" 네 준비되었습니다 ","language":"korean"}`))
	}))
	defer srv.Close()

	c := NewWhisperClient("sk-test")
	c.Endpoint = srv.URL

	text, err := c.Transcribe(context.Background(), []byte("RIFFxxxx"))
	require.NoError(t, err)
	assert.Equal(t, "네 준비되었습니다", text)
}

func TestTranscribe_EmptyAudioSkipsUpload(t *testing.T) {
	c := NewWhisperClient("sk-test")
	c.Endpoint = "http://127.0.0.1:1" // must never be contacted

	text, err := c.Transcribe(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestTranscribe_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"bad audio"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewWhisperClient("sk-test")
	c.Endpoint = srv.URL

	_, err := c.Transcribe(context.Background(), []byte{1, 2})
	require.ErrorContains(t, err, "status=400")
}

func TestTranscribe_MissingKey(t *testing.T) {
	c := NewWhisperClient("")
	_, err := c.Transcribe(context.Background(), []byte{1, 2})
	require.Error(t, err)
}
