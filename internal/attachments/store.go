// Package attachments stores reference images for cart lines, e.g. a photo of
// the cake design the customer asked for.
package attachments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PlaceholderURL is attached when the media service cannot take the upload.
// The sale is never blocked on a missing photo.
const PlaceholderURL = "/assets/attachment-placeholder.png"

// Attachment is a stored reference image for one cart line.
type Attachment struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	FileName    string    `json:"fileName,omitempty"`
	ContentType string    `json:"contentType,omitempty"`
	Placeholder bool      `json:"placeholder,omitempty"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

// Upload carries one file captured at the terminal.
type Upload struct {
	FileName    string
	ContentType string
	Data        []byte
}

// Store persists uploads somewhere a production floor screen can fetch them.
type Store interface {
	Upload(ctx context.Context, up Upload) (Attachment, error)
}

// Placeholder builds the degraded attachment used when an upload fails.
func Placeholder(fileName string) Attachment {
	return Attachment{
		ID:          uuid.NewString(),
		URL:         PlaceholderURL,
		FileName:    fileName,
		Placeholder: true,
		UploadedAt:  time.Now().UTC(),
	}
}

// HTTPStore forwards uploads to the media service as multipart form data.
type HTTPStore struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// Upload posts the file and returns the stored attachment reference.
func (s *HTTPStore) Upload(ctx context.Context, up Upload) (Attachment, error) {
	if s == nil || s.BaseURL == "" {
		return Attachment{}, errors.New("attachments: base url not configured")
	}
	if len(up.Data) == 0 {
		return Attachment{}, errors.New("attachments: empty upload")
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", up.FileName)
	if err != nil {
		return Attachment{}, err
	}
	if _, err := part.Write(up.Data); err != nil {
		return Attachment{}, err
	}
	if err := mw.Close(); err != nil {
		return Attachment{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(s.BaseURL, "/")+"/uploads", &buf)
	if err != nil {
		return Attachment{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if s.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.APIKey)
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Attachment{}, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Attachment{}, fmt.Errorf("attachments: upload returned status %d", resp.StatusCode)
	}

	var out struct {
		Data struct {
			ID  string `json:"id"`
			URL string `json:"url"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Attachment{}, fmt.Errorf("attachments: decode upload response: %w", err)
	}
	id := out.Data.ID
	if id == "" {
		id = uuid.NewString()
	}
	if out.Data.URL == "" {
		return Attachment{}, errors.New("attachments: upload response missing url")
	}
	return Attachment{
		ID:          id,
		URL:         out.Data.URL,
		FileName:    up.FileName,
		ContentType: up.ContentType,
		UploadedAt:  time.Now().UTC(),
	}, nil
}

// NoopStore hands out placeholders without talking to anything. It is the
// default when no media service is configured.
type NoopStore struct{}

// Upload implements Store.
func (NoopStore) Upload(_ context.Context, up Upload) (Attachment, error) {
	return Placeholder(up.FileName), nil
}
