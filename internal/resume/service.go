// Package resume backs the operator screen: past interview submissions
// fetched from the automation service, résumé HTML viewing/editing, and PDF
// export. It is a thin CRUD layer; rendering lives in the external converter.
package resume

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/srlee0408/AIInterview/internal/storage"
)

// Submission is one past interview as the automation service reports it.
type Submission struct {
	ID          string `json:"id"`
	Phone       string `json:"phone"`
	SubmittedAt string `json:"submittedAt"`
	Status      string `json:"status"`
	ResumeHTML  string `json:"resumeHtml,omitempty"`
}

// Service proxies the automation service's submission store and handles PDF
// export through the external converter.
type Service struct {
	HTTPClient *http.Client
	// BaseURL of the automation service's data webhooks.
	BaseURL string
	// ConvertURL is the external HTML-to-PDF converter endpoint.
	ConvertURL string
	store      storage.Storage
}

func NewService(baseURL, convertURL string, store storage.Storage) *Service {
	return &Service{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		BaseURL:    strings.TrimRight(baseURL, "/"),
		ConvertURL: convertURL,
		store:      store,
	}
}

// ListSubmissions fetches the submission rows for the listing table.
func (s *Service) ListSubmissions(ctx context.Context) ([]Submission, error) {
	var out []Submission
	if err := s.get(ctx, "/submissions", &out); err != nil {
		return nil, fmt.Errorf("resume: list submissions: %w", err)
	}
	return out, nil
}

// GetResume fetches one submission including its generated résumé HTML.
func (s *Service) GetResume(ctx context.Context, id string) (Submission, error) {
	var out Submission
	if err := s.get(ctx, "/submissions/"+id, &out); err != nil {
		return Submission{}, fmt.Errorf("resume: get %s: %w", id, err)
	}
	return out, nil
}

// UpdateResume stores operator edits to the résumé HTML.
func (s *Service) UpdateResume(ctx context.Context, id, html string) error {
	body, _ := json.Marshal(map[string]string{"resumeHtml": html})
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.BaseURL+"/submissions/"+id, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("resume: update %s: %w", id, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("resume: update %s: status=%d body=%s", id, resp.StatusCode, string(b))
	}
	return nil
}

// ExportPDF renders the submission's résumé through the converter and stores
// the document, returning the object key.
func (s *Service) ExportPDF(ctx context.Context, id string) (string, error) {
	if s.ConvertURL == "" {
		return "", fmt.Errorf("resume: pdf converter not configured")
	}
	sub, err := s.GetResume(ctx, id)
	if err != nil {
		return "", err
	}
	if sub.ResumeHTML == "" {
		return "", fmt.Errorf("resume: submission %s has no resume yet", id)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.ConvertURL, strings.NewReader(sub.ResumeHTML))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "text/html; charset=utf-8")
	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("resume: convert %s: %w", id, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("resume: convert %s: status=%d body=%s", id, resp.StatusCode, string(b))
	}
	pdf, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("resume: read pdf: %w", err)
	}

	key := fmt.Sprintf("resumes/%s_%s.pdf", id, uuid.NewString())
	if s.store == nil {
		return "", fmt.Errorf("resume: storage not configured")
	}
	if err := s.store.Upload(key, "application/pdf", pdf); err != nil {
		return "", err
	}
	return key, nil
}

func (s *Service) get(ctx context.Context, path string, out any) error {
	if s.BaseURL == "" {
		return fmt.Errorf("automation base url not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := s.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status=%d body=%s", resp.StatusCode, string(b))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
