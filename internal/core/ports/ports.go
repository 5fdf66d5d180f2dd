package ports

import (
	"context"
	"io"

	"github.com/Shiroi-Max/koala-route/internal/core/domain"
)

// VectorSearcher performs semantic search over the travel-guide index.
type VectorSearcher interface {
	Search(ctx context.Context, query string, k int) ([]domain.Document, error)
}

// DocumentIndexer writes to and deletes from the travel-guide index.
type DocumentIndexer interface {
	IndexSections(ctx context.Context, docs []domain.Document) error
	DeleteByIDs(ctx context.Context, ids []string) error
}

// Embedder builds vectors for queries and document sections. Query and
// document vectors share one fixed dimensionality per deployment.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// ChatCompleter generates a response from an assembled message list.
type ChatCompleter interface {
	Complete(ctx context.Context, messages []domain.ChatMessage) (string, error)
}

// PromptCatalog resolves named prompt templates.
type PromptCatalog interface {
	Prompt(name string) (string, error)
	FormattedPrompt(name string, values map[string]string) (string, error)
}

// ScenarioSource lists and loads evaluation scenarios.
type ScenarioSource interface {
	List() ([]string, error)
	ByName(name string) (*domain.Scenario, error)
}

// GuideRegistry persists ingestion state for uploaded guides.
type GuideRegistry interface {
	Create(ctx context.Context, guide *domain.Guide) error
	GetByID(ctx context.Context, id string) (*domain.Guide, error)
	UpdateStatus(ctx context.Context, id string, status domain.GuideStatus, errMessage string) error
	SetIndexed(ctx context.Context, id, title string, sections int) error
}

// ObjectStorage stores uploaded guide files until the worker indexes them.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue carries guide-uploaded events from the API to the worker.
type MessageQueue interface {
	PublishGuideUploaded(ctx context.Context, guideID string) error
	SubscribeGuideUploaded(ctx context.Context, handler func(context.Context, string) error) error
}
