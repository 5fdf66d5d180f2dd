package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/Shiroi-Max/koala-route/internal/core/domain"
	"github.com/Shiroi-Max/koala-route/internal/core/ports"
)

// MatchPolicy selects how the thematic pre-filter compares interest tags
// against a document. Both behaviors exist in production deployments.
type MatchPolicy string

const (
	// MatchCategoryTags keeps a document when an interest tag is a member of
	// its category tag list (case-insensitive exact match). Default.
	MatchCategoryTags MatchPolicy = "category"
	// MatchSectionSubstring keeps a document when an interest tag is a
	// substring of its section label (case-insensitive).
	MatchSectionSubstring MatchPolicy = "section"
)

// RelevanceFilter narrows raw search hits to topically matching documents,
// re-ranks them by cosine similarity against recomputed embeddings and drops
// everything below the similarity threshold.
type RelevanceFilter struct {
	embedder ports.Embedder
	policy   MatchPolicy
}

func NewRelevanceFilter(embedder ports.Embedder, policy MatchPolicy) *RelevanceFilter {
	if policy != MatchSectionSubstring {
		policy = MatchCategoryTags
	}
	return &RelevanceFilter{embedder: embedder, policy: policy}
}

// Filter runs the three filtering stages and returns the assembled context
// block plus the parallel summary list. Empty results are valid: callers
// must treat an empty context as "use the fallback prompt", not as an error.
func (f *RelevanceFilter) Filter(
	ctx context.Context,
	query string,
	docs []domain.Document,
	interests []string,
	threshold float64,
) (string, []domain.RetrievedDoc, error) {
	kept := f.thematicFilter(docs, interests)
	if len(kept) == 0 {
		return "", nil, nil
	}

	queryVector, err := f.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return "", nil, fmt.Errorf("embed query: %w", err)
	}

	texts := make([]string, len(kept))
	for i, doc := range kept {
		texts[i] = fmt.Sprintf("%s. %s", doc.Title, doc.Content)
	}
	vectors, err := f.embedder.Embed(ctx, texts)
	if err != nil {
		return "", nil, fmt.Errorf("embed documents: %w", err)
	}
	if len(vectors) != len(kept) {
		return "", nil, fmt.Errorf("embedding count mismatch: %d texts, %d vectors", len(kept), len(vectors))
	}

	type scored struct {
		doc        domain.Document
		similarity float64
	}
	relevant := make([]scored, 0, len(kept))
	for i, doc := range kept {
		similarity, err := cosineSimilarity(queryVector, vectors[i])
		if err != nil {
			return "", nil, fmt.Errorf("score %q: %w", domain.RetrievedDocID(doc.Title, doc.Section), err)
		}
		if similarity >= threshold {
			relevant = append(relevant, scored{doc: doc, similarity: similarity})
		}
	}
	if len(relevant) == 0 {
		return "", nil, nil
	}

	// Descending similarity; ties keep the original retrieval order.
	sort.SliceStable(relevant, func(i, j int) bool {
		return relevant[i].similarity > relevant[j].similarity
	})

	blocks := make([]string, 0, len(relevant))
	summaries := make([]domain.RetrievedDoc, 0, len(relevant))
	for _, s := range relevant {
		blocks = append(blocks, fmt.Sprintf("## %s > %s\n\n%s", s.doc.Title, s.doc.Section, strings.TrimSpace(s.doc.Content)))
		summaries = append(summaries, domain.RetrievedDoc{
			ID:         domain.RetrievedDocID(s.doc.Title, s.doc.Section),
			Category:   s.doc.Category,
			Similarity: s.similarity,
		})
	}
	return strings.Join(blocks, "\n\n"), summaries, nil
}

// thematicFilter is a no-op when no interests were stated.
func (f *RelevanceFilter) thematicFilter(docs []domain.Document, interests []string) []domain.Document {
	if len(interests) == 0 {
		return docs
	}
	kept := make([]domain.Document, 0, len(docs))
	for _, doc := range docs {
		if f.matches(doc, interests) {
			kept = append(kept, doc)
		}
	}
	return kept
}

func (f *RelevanceFilter) matches(doc domain.Document, interests []string) bool {
	switch f.policy {
	case MatchSectionSubstring:
		section := strings.ToLower(doc.Section)
		for _, interest := range interests {
			if strings.Contains(section, interest) {
				return true
			}
		}
	default:
		for _, category := range doc.Category {
			category = strings.ToLower(strings.TrimSpace(category))
			for _, interest := range interests {
				if category == interest {
					return true
				}
			}
		}
	}
	return false
}

// cosineSimilarity works on raw, non-normalized vectors. Mismatched
// dimensions mean the query and document embeddings came from different
// models and are not comparable. A zero-norm operand scores 0; the result
// is clamped to [-1, 1].
func cosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("embedding dimension mismatch: %d vs %d", len(a), len(b))
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	similarity := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if similarity > 1 {
		return 1, nil
	}
	if similarity < -1 {
		return -1, nil
	}
	return similarity, nil
}
