package domain

import (
	"fmt"
	"time"
)

// Document is a single indexed section of a travel guide, as returned by the
// search index. It is read-only once retrieved.
type Document struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Section       string    `json:"section"`
	Category      []string  `json:"category"`
	Content       string    `json:"content"`
	ContentVector []float32 `json:"content_vector,omitempty"`
	Source        string    `json:"source,omitempty"`
}

// RetrievedDoc is the per-query summary of a document that survived
// relevance filtering. Its ID is "{title}#{section}".
type RetrievedDoc struct {
	ID         string   `json:"id"`
	Category   []string `json:"category"`
	Similarity float64  `json:"similarity,omitempty"`
}

// RetrievedDocID builds the "{title}#{section}" identifier used across
// retrieval summaries and evaluation scenarios.
func RetrievedDocID(title, section string) string {
	return fmt.Sprintf("%s#%s", title, section)
}

type GuideStatus string

const (
	GuideUploaded GuideStatus = "uploaded"
	GuideIndexing GuideStatus = "indexing"
	GuideIndexed  GuideStatus = "indexed"
	GuideFailed   GuideStatus = "failed"
)

// Guide tracks an uploaded travel guide through the ingestion pipeline.
type Guide struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Filename    string      `json:"filename"`
	StoragePath string      `json:"storage_path"`
	Sections    int         `json:"sections"`
	Status      GuideStatus `json:"status"`
	Error       string      `json:"error,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}
