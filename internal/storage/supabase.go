// Package storage persists interview artifacts (answer recordings, exported
// résumé PDFs) in object storage.
package storage

import (
	"bytes"
	"fmt"

	"github.com/supabase-community/supabase-go"
)

// Storage abstracts object upload so services and tests do not depend on the
// concrete backend.
type Storage interface {
	Upload(key, contentType string, data []byte) error
}

// Supabase stores objects in a Supabase storage bucket.
type Supabase struct {
	client *supabase.Client
	bucket string
}

// NewSupabase constructs the client. URL and key must be set; bucket
// defaults to "interviews".
func NewSupabase(url, serviceRoleKey, bucket string) (*Supabase, error) {
	if url == "" || serviceRoleKey == "" {
		return nil, fmt.Errorf("storage: SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY required")
	}
	if bucket == "" {
		bucket = "interviews"
	}
	client, err := supabase.NewClient(url, serviceRoleKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("storage: create supabase client: %w", err)
	}
	return &Supabase{client: client, bucket: bucket}, nil
}

func (s *Supabase) Upload(key, contentType string, data []byte) error {
	_, err := s.client.Storage.UploadFile(s.bucket, key, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("storage: upload %s: %w", key, err)
	}
	return nil
}
