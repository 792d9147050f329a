// Package assistant talks to the OpenAI Assistants API: one thread per
// interview, one run per candidate utterance.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.openai.com/v1"

// OpenAIClient drives an assistant thread over the Assistants v2 REST API.
type OpenAIClient struct {
	HTTPClient   *http.Client
	BaseURL      string
	APIKey       string
	AssistantID  string
	PollInterval time.Duration
}

func NewOpenAIClient(apiKey, assistantID string) *OpenAIClient {
	return &OpenAIClient{
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
		BaseURL:      defaultBaseURL,
		APIKey:       apiKey,
		AssistantID:  assistantID,
		PollInterval: time.Second,
	}
}

type threadResponse struct {
	ID string `json:"id"`
}

type runResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type messageContent struct {
	Type string `json:"type"`
	Text struct {
		Value string `json:"value"`
	} `json:"text"`
}

type messageListResponse struct {
	Data []struct {
		Role    string           `json:"role"`
		Content []messageContent `json:"content"`
	} `json:"data"`
}

// CreateSession opens a new thread and returns its id.
func (c *OpenAIClient) CreateSession(ctx context.Context) (string, error) {
	if c.APIKey == "" || c.AssistantID == "" {
		return "", fmt.Errorf("openai: api key or assistant id missing")
	}
	var tr threadResponse
	if err := c.do(ctx, http.MethodPost, "/threads", map[string]any{}, &tr); err != nil {
		return "", fmt.Errorf("openai: create thread: %w", err)
	}
	if tr.ID == "" {
		return "", fmt.Errorf("openai: create thread: empty id")
	}
	return tr.ID, nil
}

// SubmitAndGetReply appends the utterance to the thread, runs the assistant,
// polls the run to completion, and returns the newest assistant message.
func (c *OpenAIClient) SubmitAndGetReply(ctx context.Context, threadID, utterance string) (string, error) {
	if threadID == "" {
		return "", fmt.Errorf("openai: thread id missing")
	}
	msg := map[string]any{"role": "user", "content": utterance}
	if err := c.do(ctx, http.MethodPost, "/threads/"+threadID+"/messages", msg, nil); err != nil {
		return "", fmt.Errorf("openai: add message: %w", err)
	}

	var run runResponse
	body := map[string]any{"assistant_id": c.AssistantID}
	if err := c.do(ctx, http.MethodPost, "/threads/"+threadID+"/runs", body, &run); err != nil {
		return "", fmt.Errorf("openai: create run: %w", err)
	}

	status := run.Status
	for status == "queued" || status == "in_progress" {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.PollInterval):
		}
		var cur runResponse
		if err := c.do(ctx, http.MethodGet, "/threads/"+threadID+"/runs/"+run.ID, nil, &cur); err != nil {
			return "", fmt.Errorf("openai: poll run: %w", err)
		}
		status = cur.Status
	}
	if status != "completed" {
		return "", fmt.Errorf("openai: run finished with status %q", status)
	}

	var list messageListResponse
	if err := c.do(ctx, http.MethodGet, "/threads/"+threadID+"/messages?limit=1", nil, &list); err != nil {
		return "", fmt.Errorf("openai: list messages: %w", err)
	}
	if len(list.Data) == 0 {
		return "", fmt.Errorf("openai: no messages in thread")
	}
	for _, content := range list.Data[0].Content {
		if content.Type == "text" {
			return strings.TrimSpace(content.Text.Value), nil
		}
	}
	return "", fmt.Errorf("openai: unexpected reply content type")
}

func (c *OpenAIClient) do(ctx context.Context, method, path string, body any, out any) error {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("OpenAI-Beta", "assistants=v2")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status=%d body=%s", resp.StatusCode, string(b))
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
