// Package transcribe converts finished answer recordings to text.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const defaultEndpoint = "https://api.openai.com/v1/audio/transcriptions"

// WhisperClient uploads a whole answer recording to the whisper-1 model.
// The interview is push-to-talk, so request/response transcription of the
// complete blob is all that is needed; no streaming.
type WhisperClient struct {
	HTTPClient *http.Client
	Endpoint   string
	APIKey     string
	Language   string
	Prompt     string
}

func NewWhisperClient(apiKey string) *WhisperClient {
	return &WhisperClient{
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
		Endpoint:   defaultEndpoint,
		APIKey:     apiKey,
		Language:   "ko",
		Prompt:     "이것은 면접 답변입니다. 명확하고 전문적인 어투로 변환해주세요.",
	}
}

type transcriptionResponse struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

// Transcribe sends the recording and returns the recognized text. An empty
// result is returned as-is; the caller decides whether that is retryable.
func (c *WhisperClient) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if c.APIKey == "" {
		return "", fmt.Errorf("whisper: api key missing")
	}
	if len(audio) == 0 {
		return "", nil
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "answer.wav")
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(audio); err != nil {
		return "", err
	}
	fields := map[string]string{
		"model":           "whisper-1",
		"language":        c.Language,
		"response_format": "verbose_json",
		"temperature":     "0.2",
	}
	if c.Prompt != "" {
		fields["prompt"] = c.Prompt
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return "", err
		}
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("whisper: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("whisper: status=%d body=%s", resp.StatusCode, string(b))
	}
	var tr transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("whisper: decode response: %w", err)
	}
	return strings.TrimSpace(tr.Text), nil
}
