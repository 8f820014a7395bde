package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/mohammadamiw/salamatlab-sub001/internal/models"
)

// Uploader turns paper prescription files into URLs before submission.
type Uploader interface {
	Upload(ctx context.Context, files []models.Attachment) ([]string, error)
}

// HTTPUploader posts files as multipart form data to the upload endpoint,
// which responds with {urls: [...]}.
type HTTPUploader struct {
	url    string
	client *http.Client
}

// NewHTTPUploader creates an uploader for the endpoint at url.
func NewHTTPUploader(url string) *HTTPUploader {
	return &HTTPUploader{
		url:    url,
		client: &http.Client{Timeout: DefaultRequestTimeout},
	}
}

// Upload sends the files under the files[] form field.
func (u *HTTPUploader) Upload(ctx context.Context, files []models.Attachment) ([]string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for _, f := range files {
		part, err := writer.CreateFormFile("files[]", f.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to add %s to upload form: %w", f.Name, err)
		}
		if _, err := part.Write(f.Content); err != nil {
			return nil, fmt.Errorf("failed to write %s to upload form: %w", f.Name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.url, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload endpoint unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("upload endpoint returned status %d", resp.StatusCode)
	}

	var result models.UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode upload response: %w", err)
	}
	slog.Debug("HTTPUploader.Upload: files uploaded", "count", len(result.URLs))
	return result.URLs, nil
}
