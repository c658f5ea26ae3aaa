package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"
)

// HTTPUploader posts slips to the external image upload service as
// multipart/form-data with fields "myFile" and "userId".
type HTTPUploader struct {
	url    string
	client *http.Client
}

// NewHTTPUploader creates an HTTPUploader
func NewHTTPUploader(url string, timeout time.Duration) *HTTPUploader {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPUploader{url: url, client: &http.Client{Timeout: timeout}}
}

type uploadServiceResponse struct {
	Message string  `json:"message"`
	Data    *Result `json:"data"`
}

// Upload sends the slip and returns the stored file's URL
func (u *HTTPUploader) Upload(ctx context.Context, f File, identifier string) (*Result, error) {
	if len(f.Data) == 0 {
		return nil, &RejectedError{Status: http.StatusBadRequest, Message: "no file buffer provided for upload"}
	}

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="myFile"; filename=%q`, f.Filename))
	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailed, err)
	}
	if _, err := part.Write(f.Data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailed, err)
	}
	if err := mw.WriteField("userId", identifier); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailed, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.url, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailed, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFailed, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrFailed, err)
	}

	// error bodies may be plain text; decodeErr only matters on success
	var parsed uploadServiceResponse
	decodeErr := json.Unmarshal(raw, &parsed)

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		msg := parsed.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &RejectedError{Status: resp.StatusCode, Message: msg}
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: upload service returned status %d", ErrFailed, resp.StatusCode)
	}

	if decodeErr != nil {
		return nil, fmt.Errorf("%w: invalid response format from image upload service: %v", ErrFailed, decodeErr)
	}
	if parsed.Data == nil || parsed.Data.URL == "" {
		return nil, fmt.Errorf("%w: image upload service response has no data.url", ErrFailed)
	}

	return parsed.Data, nil
}
