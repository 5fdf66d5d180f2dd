package usecase

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Shiroi-Max/koala-route/internal/core/domain"
	"github.com/Shiroi-Max/koala-route/internal/core/ports"
)

// IngestGuideUseCase accepts an uploaded Markdown guide, stores it, records
// it in the registry and hands it to the worker through the queue.
type IngestGuideUseCase struct {
	registry ports.GuideRegistry
	storage  ports.ObjectStorage
	queue    ports.MessageQueue
}

func NewIngestGuideUseCase(
	registry ports.GuideRegistry,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
) *IngestGuideUseCase {
	return &IngestGuideUseCase{
		registry: registry,
		storage:  storage,
		queue:    queue,
	}
}

func (uc *IngestGuideUseCase) Upload(ctx context.Context, filename string, body io.Reader) (*domain.Guide, error) {
	if !strings.EqualFold(filepath.Ext(filename), ".md") {
		return nil, fmt.Errorf("%w: only .md guides are accepted, got %q", domain.ErrInvalidInput, filename)
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(filename))
	now := time.Now().UTC()

	if err := uc.storage.Save(ctx, storageKey, body); err != nil {
		return nil, fmt.Errorf("save guide file: %w", err)
	}

	guide := &domain.Guide{
		ID:          id,
		Filename:    filename,
		StoragePath: storageKey,
		Status:      domain.GuideUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := uc.registry.Create(ctx, guide); err != nil {
		return nil, fmt.Errorf("create guide record: %w", err)
	}

	if err := uc.queue.PublishGuideUploaded(ctx, guide.ID); err != nil {
		return nil, fmt.Errorf("publish ingestion event: %w", err)
	}
	return guide, nil
}

// IndexGuideUseCase runs in the worker: it parses the stored guide into
// sections, maps section headings to category tags, embeds every section and
// writes them to the search index.
type IndexGuideUseCase struct {
	registry   ports.GuideRegistry
	storage    ports.ObjectStorage
	embedder   ports.Embedder
	indexer    ports.DocumentIndexer
	categories map[string][]string
}

func NewIndexGuideUseCase(
	registry ports.GuideRegistry,
	storage ports.ObjectStorage,
	embedder ports.Embedder,
	indexer ports.DocumentIndexer,
	categories map[string][]string,
) *IndexGuideUseCase {
	return &IndexGuideUseCase{
		registry:   registry,
		storage:    storage,
		embedder:   embedder,
		indexer:    indexer,
		categories: categories,
	}
}

func (uc *IndexGuideUseCase) IndexByID(ctx context.Context, guideID string) error {
	if err := uc.registry.UpdateStatus(ctx, guideID, domain.GuideIndexing, ""); err != nil {
		return fmt.Errorf("set status=indexing: %w", err)
	}

	title, count, err := uc.indexGuide(ctx, guideID)
	if err != nil {
		if failErr := uc.registry.UpdateStatus(ctx, guideID, domain.GuideFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.registry.SetIndexed(ctx, guideID, title, count); err != nil {
		return fmt.Errorf("set status=indexed: %w", err)
	}
	return nil
}

func (uc *IndexGuideUseCase) indexGuide(ctx context.Context, guideID string) (string, int, error) {
	guide, err := uc.registry.GetByID(ctx, guideID)
	if err != nil {
		return "", 0, fmt.Errorf("load guide record: %w", err)
	}

	file, err := uc.storage.Open(ctx, guide.StoragePath)
	if err != nil {
		return "", 0, fmt.Errorf("open guide file: %w", err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return "", 0, fmt.Errorf("read guide file: %w", err)
	}

	title, sections := SplitGuideSections(string(content))
	if title == "" {
		title = strings.TrimSuffix(guide.Filename, filepath.Ext(guide.Filename))
	}
	if len(sections) == 0 {
		return "", 0, fmt.Errorf("%w: guide %q has no level-2 sections", domain.ErrInvalidInput, guide.Filename)
	}

	texts := make([]string, len(sections))
	for i, section := range sections {
		texts[i] = section.Content
	}
	vectors, err := uc.embedder.Embed(ctx, texts)
	if err != nil {
		return "", 0, fmt.Errorf("embed sections: %w", err)
	}
	if len(vectors) != len(sections) {
		return "", 0, fmt.Errorf("embedding count mismatch: %d sections, %d vectors", len(sections), len(vectors))
	}

	docs := make([]domain.Document, 0, len(sections))
	for i, section := range sections {
		docs = append(docs, domain.Document{
			ID:            uuid.NewString(),
			Title:         title,
			Section:       section.Title,
			Category:      uc.categories[strings.TrimSpace(section.Title)],
			Content:       section.Content,
			ContentVector: vectors[i],
			Source:        fmt.Sprintf("%s#section-%d", guide.StoragePath, i+1),
		})
	}

	if err := uc.indexer.IndexSections(ctx, docs); err != nil {
		return "", 0, fmt.Errorf("index sections: %w", err)
	}
	return title, len(docs), nil
}

// DeleteSectionsUseCase removes indexed sections by ID batch.
type DeleteSectionsUseCase struct {
	indexer ports.DocumentIndexer
}

func NewDeleteSectionsUseCase(indexer ports.DocumentIndexer) *DeleteSectionsUseCase {
	return &DeleteSectionsUseCase{indexer: indexer}
}

func (uc *DeleteSectionsUseCase) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return fmt.Errorf("%w: no section ids given", domain.ErrInvalidInput)
	}
	if err := uc.indexer.DeleteByIDs(ctx, ids); err != nil {
		return fmt.Errorf("delete sections: %w", err)
	}
	return nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "guide.md"
	}
	return base
}
