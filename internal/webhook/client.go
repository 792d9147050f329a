// Package webhook delivers interview artifacts to the automation workflow
// endpoints: the completed transcript and the phone-number intake.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/srlee0408/AIInterview/internal/interview"
)

// Client posts to the automation workflow endpoints.
type Client struct {
	HTTPClient *http.Client
	ResultURL  string
	PhoneURL   string
	RetryDelay time.Duration
}

func NewClient(resultURL, phoneURL string) *Client {
	return &Client{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		ResultURL:  resultURL,
		PhoneURL:   phoneURL,
		RetryDelay: 2 * time.Second,
	}
}

type resultPayload struct {
	Phone       string               `json:"phone"`
	Answers     []interview.Exchange `json:"answers"`
	CompletedAt int64                `json:"completedAt"`
}

type phonePayload struct {
	Phone string `json:"phone"`
	Time  int64  `json:"time"`
}

// Submit delivers the full ordered transcript for one interview. Called
// exactly once per interview by the session controller; the controller owns
// its retry policy, this client retries once more on transport failure.
func (c *Client) Submit(ctx context.Context, identifier string, transcript []interview.Exchange) error {
	if c.ResultURL == "" {
		return fmt.Errorf("webhook: result url not configured")
	}
	payload := resultPayload{
		Phone:       identifier,
		Answers:     transcript,
		CompletedAt: time.Now().Unix(),
	}
	err := c.post(ctx, c.ResultURL, payload)
	if err == nil {
		return nil
	}
	log.Printf("webhook: result delivery failed, retrying: %v", err)
	select {
	case <-time.After(c.RetryDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := c.post(ctx, c.ResultURL, payload); err != nil {
		return fmt.Errorf("webhook: submit result: %w", err)
	}
	return nil
}

// SubmitPhone records a candidate's phone number before the interview starts.
func (c *Client) SubmitPhone(ctx context.Context, phone string) error {
	if c.PhoneURL == "" {
		return fmt.Errorf("webhook: phone url not configured")
	}
	if err := c.post(ctx, c.PhoneURL, phonePayload{Phone: phone, Time: time.Now().UnixMilli()}); err != nil {
		return fmt.Errorf("webhook: submit phone: %w", err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, url string, payload any) error {
	buf, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status=%d body=%s", resp.StatusCode, string(b))
	}
	return nil
}
