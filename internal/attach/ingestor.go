// Package attach converts user-provided files into the transport-encoded
// form the model gateway sends inline, enforcing a size ceiling before any
// network interaction happens.
package attach

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/abdul34602/novaaipro1/internal/storage"
)

// MaxFileSize is the default ingestion ceiling: 100 MiB.
const MaxFileSize = 100 * 1024 * 1024

// TooLargeError reports a file rejected before any remote call was made.
type TooLargeError struct {
	Name  string
	Size  int64
	Limit int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("attachment %q is too large: %d bytes exceeds the %d byte limit", e.Name, e.Size, e.Limit)
}

// Ingestor encodes files for transport and enforces the size ceiling.
type Ingestor struct {
	limit int64
}

// NewIngestor creates an ingestor with the given byte ceiling.
// A non-positive limit falls back to MaxFileSize.
func NewIngestor(limit int64) *Ingestor {
	if limit <= 0 {
		limit = MaxFileSize
	}
	return &Ingestor{limit: limit}
}

// Limit returns the configured byte ceiling.
func (ing *Ingestor) Limit() int64 {
	return ing.limit
}

// Ingest encodes one file into a transport-ready attachment. Files at
// exactly the limit are accepted; one byte over is rejected.
func (ing *Ingestor) Ingest(name, mimeType string, data []byte) (storage.Attachment, error) {
	size := int64(len(data))
	if size > ing.limit {
		return storage.Attachment{}, &TooLargeError{Name: name, Size: size, Limit: ing.limit}
	}

	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	return storage.Attachment{
		ID:        uuid.New().String(),
		Name:      name,
		MimeType:  mimeType,
		SizeBytes: size,
		Payload:   fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data)),
		CreatedAt: time.Now(),
	}, nil
}

// File is one selected file awaiting ingestion.
type File struct {
	Name     string
	MimeType string
	Data     []byte
}

// IngestAll encodes a batch of files. Oversized files are rejected
// individually; the remaining valid files still proceed.
func (ing *Ingestor) IngestAll(files []File) ([]storage.Attachment, []error) {
	var attachments []storage.Attachment
	var errs []error
	for _, f := range files {
		att, err := ing.Ingest(f.Name, f.MimeType, f.Data)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		attachments = append(attachments, att)
	}
	return attachments, errs
}
