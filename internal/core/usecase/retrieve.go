package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Shiroi-Max/koala-route/internal/core/domain"
	"github.com/Shiroi-Max/koala-route/internal/core/ports"
)

// RetrieveUseCase is the "consulta" node: it extracts the user's interests
// from the filled prompt, runs the semantic search and narrows the hits with
// the relevance filter.
type RetrieveUseCase struct {
	searcher  ports.VectorSearcher
	filter    *RelevanceFilter
	extractor InterestExtractor
	prompts   ports.PromptCatalog

	basePrompt string
	k          int
	threshold  float64
}

func NewRetrieveUseCase(
	searcher ports.VectorSearcher,
	filter *RelevanceFilter,
	extractor InterestExtractor,
	prompts ports.PromptCatalog,
	basePrompt string,
	k int,
	threshold float64,
) *RetrieveUseCase {
	if k <= 0 {
		k = 15
	}
	return &RetrieveUseCase{
		searcher:   searcher,
		filter:     filter,
		extractor:  extractor,
		prompts:    prompts,
		basePrompt: basePrompt,
		k:          k,
		threshold:  threshold,
	}
}

// GetContext fills the state with the filtered context and the retrieval
// summaries, and advances the stage to StageRetrieved. Finding nothing is a
// valid outcome and leaves the context empty.
func (uc *RetrieveUseCase) GetContext(ctx context.Context, state *domain.FlowState) error {
	template, err := uc.prompts.Prompt(uc.basePrompt)
	if err != nil {
		return fmt.Errorf("load base prompt: %w", err)
	}

	interests, err := uc.extractor.Extract(template, state.Input)
	if err != nil {
		return fmt.Errorf("extract interests: %w", err)
	}

	docs, err := uc.searcher.Search(ctx, state.Input, uc.k)
	if err != nil {
		return fmt.Errorf("similarity search: %w", err)
	}

	contextText, summaries, err := uc.filter.Filter(ctx, state.Input, docs, interests, uc.threshold)
	if err != nil {
		return fmt.Errorf("relevance filter: %w", err)
	}

	slog.Debug("retrieval_done",
		"raw_docs", len(docs),
		"relevant_docs", len(summaries),
		"interests", interests,
	)

	state.Context = contextText
	state.Retrieved = summaries
	state.Stage = domain.StageRetrieved
	return nil
}
