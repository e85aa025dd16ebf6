package domain

import "time"

// DocumentStatus enumerates the ingestion lifecycle states of an upload.
type DocumentStatus string

const (
	DocumentStatusUploaded   DocumentStatus = "uploaded"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusReady      DocumentStatus = "ready"
	DocumentStatusFailed     DocumentStatus = "failed"
)

// Document represents an uploaded PDF and its extracted content.
type Document struct {
	ID            string
	AccountID     string
	Title         string
	StorageKey    string
	Language      string
	PageCount     int
	Status        DocumentStatus
	ExtractedText string
	ErrorMessage  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// IsReady reports whether text extraction has completed and study aids can be
// generated from the document.
func (d Document) IsReady() bool {
	return d.Status == DocumentStatusReady
}
