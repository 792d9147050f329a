package resume

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu          sync.Mutex
	key         string
	contentType string
	data        []byte
}

func (f *fakeStore) Upload(key, contentType string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.key = key
	f.contentType = contentType
	f.data = append([]byte(nil), data...)
	return nil
}

func TestListSubmissions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/submissions", r.URL.Path)
		_, _ = w.Write([]byte(`[
			{"id":"s1","phone":"01011112222","submittedAt":"2026-08-30T10:00:00Z","status":"completed"},
			{"id":"s2","phone":"01033334444","submittedAt":"2026-08-31T09:00:00Z","status":"pending"}
		]`))
	}))
	defer srv.Close()

	svc := NewService(srv.URL, "", nil)
	subs, err := svc.ListSubmissions(context.Background())
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "s1", subs[0].ID)
	assert.Equal(t, "pending", subs[1].Status)
}

func TestGetResume(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/submissions/s1", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"s1","phone":"01011112222","resumeHtml":"<h1>이력서</h1>"}`))
	}))
	defer srv.Close()

	svc := NewService(srv.URL, "", nil)
	sub, err := svc.GetResume(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "<h1>이력서</h1>", sub.ResumeHTML)
}

func TestUpdateResume(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/submissions/s1", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "<h1>수정된 이력서</h1>", body["resumeHtml"])
	}))
	defer srv.Close()

	svc := NewService(srv.URL, "", nil)
	require.NoError(t, svc.UpdateResume(context.Background(), "s1", "<h1>수정된 이력서</h1>"))
}

func TestExportPDF(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"s1","resumeHtml":"<h1>이력서</h1>"}`))
	}))
	defer api.Close()

	converter := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		html, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, "<h1>이력서</h1>", string(html))
		_, _ = w.Write([]byte("%PDF-1.7 fake"))
	}))
	defer converter.Close()

	store := &fakeStore{}
	svc := NewService(api.URL, converter.URL, store)

	key, err := svc.ExportPDF(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "resumes/s1_"))
	assert.True(t, strings.HasSuffix(key, ".pdf"))

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, key, store.key)
	assert.Equal(t, "application/pdf", store.contentType)
	assert.Equal(t, []byte("%PDF-1.7 fake"), store.data)
}

func TestExportPDF_NoResumeYet(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"s1"}`))
	}))
	defer api.Close()

	svc := NewService(api.URL, "http://example.invalid/convert", &fakeStore{})
	_, err := svc.ExportPDF(context.Background(), "s1")
	require.ErrorContains(t, err, "no resume yet")
}

func TestExportPDF_ConverterNotConfigured(t *testing.T) {
	svc := NewService("http://example.invalid", "", &fakeStore{})
	_, err := svc.ExportPDF(context.Background(), "s1")
	require.Error(t, err)
}
