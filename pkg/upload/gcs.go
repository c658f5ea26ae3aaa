package upload

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSUploader writes slips to a Google Cloud Storage bucket
type GCSUploader struct {
	client        *storage.Client
	bucket        string
	publicBaseURL string
	now           func() time.Time
}

// NewGCSUploader opens a storage client. credentialsFile may be empty to use
// application default credentials.
func NewGCSUploader(ctx context.Context, bucket, credentialsFile, publicBaseURL string) (*GCSUploader, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	if publicBaseURL == "" {
		publicBaseURL = "https://storage.googleapis.com/" + bucket
	}

	return &GCSUploader{
		client:        client,
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		now:           time.Now,
	}, nil
}

// Upload writes the slip object and returns its public URL
func (u *GCSUploader) Upload(ctx context.Context, f File, identifier string) (*Result, error) {
	if len(f.Data) == 0 {
		return nil, &RejectedError{Status: 400, Message: "no file buffer provided for upload"}
	}

	name := objectName(identifier, f.Filename, u.now())

	w := u.client.Bucket(u.bucket).Object(name).NewWriter(ctx)
	w.ContentType = f.ContentType
	w.Metadata = map[string]string{"userId": identifier}

	if _, err := w.Write(f.Data); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("%w: write object: %v", ErrFailed, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("%w: close object: %v", ErrFailed, err)
	}

	return &Result{
		FileID:   name,
		FileName: f.Filename,
		URL:      u.publicBaseURL + "/" + name,
	}, nil
}

// Close releases the storage client
func (u *GCSUploader) Close() error {
	return u.client.Close()
}
