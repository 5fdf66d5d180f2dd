package usecase

import (
	"context"
	"fmt"

	"github.com/Shiroi-Max/koala-route/internal/core/domain"
	"github.com/Shiroi-Max/koala-route/internal/core/ports"
)

// GenerateUseCase is the "llm" node: a thin wrapper over the chat-completion
// collaborator that terminates the turn.
type GenerateUseCase struct {
	completer ports.ChatCompleter
}

func NewGenerateUseCase(completer ports.ChatCompleter) *GenerateUseCase {
	return &GenerateUseCase{completer: completer}
}

func (uc *GenerateUseCase) Generate(ctx context.Context, state *domain.FlowState) error {
	if len(state.Messages) == 0 {
		return fmt.Errorf("%w: no messages assembled for generation", domain.ErrInvalidInput)
	}

	response, err := uc.completer.Complete(ctx, state.Messages)
	if err != nil {
		return fmt.Errorf("chat completion: %w", err)
	}

	state.Response = response
	state.Stage = domain.StageDone
	return nil
}
