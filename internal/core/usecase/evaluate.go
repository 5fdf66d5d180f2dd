package usecase

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/Shiroi-Max/koala-route/internal/core/domain"
	"github.com/Shiroi-Max/koala-route/internal/core/ports"
)

// CoherenceMode selects how semantic coherence is computed. A deployment
// picks one mode and sticks to it; the two are never mixed.
type CoherenceMode string

const (
	// CoherenceRetrievalMean averages the retrieval-time similarity scores
	// carried on the retrieved-document summaries. Default.
	CoherenceRetrievalMean CoherenceMode = "retrieval"
	// CoherenceEmbedding compares the embeddings of the generated and the
	// reference response directly.
	CoherenceEmbedding CoherenceMode = "embedding"
)

// Evaluator scores a pipeline run against a hand-authored scenario. Every
// metric degrades to a documented default on degenerate input instead of
// failing.
type Evaluator struct {
	embedder ports.Embedder
	kEval    float64
	mode     CoherenceMode
}

func NewEvaluator(embedder ports.Embedder, kEval float64, mode CoherenceMode) *Evaluator {
	if kEval <= 0 || kEval > 1 {
		kEval = 0.6
	}
	if mode != CoherenceEmbedding {
		mode = CoherenceRetrievalMean
	}
	return &Evaluator{embedder: embedder, kEval: kEval, mode: mode}
}

// RecallAtK computes adaptive recall: k scales with the number of retrieved
// documents instead of being fixed, so retrieving fewer, more precise
// documents is rewarded. An empty expected set scores 0.0 by definition.
func (e *Evaluator) RecallAtK(expected []string, retrieved []domain.RetrievedDoc) float64 {
	if len(expected) == 0 {
		return 0.0
	}

	k := int(math.Ceil(e.kEval * float64(len(retrieved))))
	if k < 1 {
		k = 1
	}
	if k > len(retrieved) {
		k = len(retrieved)
	}

	expectedSet := make(map[string]struct{}, len(expected))
	for _, id := range expected {
		expectedSet[id] = struct{}{}
	}

	found := 0
	for _, doc := range retrieved[:k] {
		if _, ok := expectedSet[doc.ID]; ok {
			found++
		}
	}
	return float64(found) / float64(len(expectedSet))
}

// ThematicCoverage is the fraction of the user's interest tags present among
// the category tags of the retrieved documents. No stated interests means
// vacuously full coverage (1.0).
func (e *Evaluator) ThematicCoverage(interests []string, retrieved []domain.RetrievedDoc) float64 {
	if len(interests) == 0 {
		return 1.0
	}

	normalized := make(map[string]struct{}, len(interests))
	for _, interest := range interests {
		tag := strings.ToLower(strings.TrimSpace(interest))
		if tag != "" {
			normalized[tag] = struct{}{}
		}
	}
	if len(normalized) == 0 {
		return 1.0
	}

	categories := make(map[string]struct{})
	for _, doc := range retrieved {
		for _, category := range doc.Category {
			categories[strings.ToLower(strings.TrimSpace(category))] = struct{}{}
		}
	}

	matches := 0
	for tag := range normalized {
		if _, ok := categories[tag]; ok {
			matches++
		}
	}
	return float64(matches) / float64(len(normalized))
}

// SemanticCoherence scores the generated response depending on the
// configured mode. In retrieval mode it is the mean of the retrieval-time
// similarities (0.0 with no retrieved documents). In embedding mode it is
// the cosine similarity of the generated and reference response embeddings
// (0.0 when either text is empty).
func (e *Evaluator) SemanticCoherence(
	ctx context.Context,
	generated, reference string,
	retrieved []domain.RetrievedDoc,
) (float64, error) {
	switch e.mode {
	case CoherenceEmbedding:
		if strings.TrimSpace(generated) == "" || strings.TrimSpace(reference) == "" {
			return 0.0, nil
		}
		vectors, err := e.embedder.Embed(ctx, []string{generated, reference})
		if err != nil {
			return 0, fmt.Errorf("embed responses: %w", err)
		}
		if len(vectors) != 2 {
			return 0, fmt.Errorf("expected 2 embeddings, got %d", len(vectors))
		}
		return cosineSimilarity(vectors[0], vectors[1])
	default:
		if len(retrieved) == 0 {
			return 0.0, nil
		}
		var sum float64
		for _, doc := range retrieved {
			sum += doc.Similarity
		}
		return sum / float64(len(retrieved)), nil
	}
}

// EvaluateScenario computes the full metric report for one scenario run.
// When the scenario requests evaluation but misses a required field, it
// fails with an error naming the field; it never silently skips a metric.
func (e *Evaluator) EvaluateScenario(
	ctx context.Context,
	scenario *domain.Scenario,
	turn *domain.TurnResult,
) (*domain.EvaluationResult, error) {
	if scenario == nil {
		return nil, fmt.Errorf("%w: scenario is nil", domain.ErrInvalidInput)
	}
	if scenario.Name == "" {
		return nil, fmt.Errorf("%w: scenario field %q is missing", domain.ErrInvalidInput, "name")
	}

	result := &domain.EvaluationResult{
		Scenario: scenario.Name,
		Metrics:  map[string]float64{},
	}
	if !scenario.EvaluateRetrievalDocs {
		return result, nil
	}

	if scenario.UserInput == "" {
		return nil, fmt.Errorf("%w: scenario field %q is missing", domain.ErrInvalidInput, "user_input")
	}
	if scenario.ExpectedRelevantDocs == nil {
		return nil, fmt.Errorf("%w: scenario field %q is missing", domain.ErrInvalidInput, "expected_relevant_docs")
	}
	if turn == nil {
		return nil, fmt.Errorf("%w: turn result is nil", domain.ErrInvalidInput)
	}
	if e.mode == CoherenceEmbedding && scenario.ReferenceResponse == "" {
		return nil, fmt.Errorf("%w: scenario field %q is missing", domain.ErrInvalidInput, "reference_response")
	}

	recall := e.RecallAtK(scenario.ExpectedRelevantDocs, turn.RetrievedDocs)
	coverage := e.ThematicCoverage(scenario.Interests, turn.RetrievedDocs)
	coherence, err := e.SemanticCoherence(ctx, turn.Response, scenario.ReferenceResponse, turn.RetrievedDocs)
	if err != nil {
		return nil, fmt.Errorf("semantic coherence: %w", err)
	}

	result.Metrics[domain.MetricAdaptiveRecall] = round2(recall)
	result.Metrics[domain.MetricThematicCoverage] = round2(coverage)
	result.Metrics[domain.MetricSemanticCoherence] = round2(coherence)
	return result, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
