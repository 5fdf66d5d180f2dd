package usecase

import (
	"context"

	"github.com/Shiroi-Max/koala-route/internal/core/domain"
)

// Flow runs one full turn through the node graph:
//
//	controlador -> consulta -> controlador -> llm -> done
//
// Each user query gets a fresh FlowState; nothing survives the turn.
type Flow struct {
	controller *Controller
	retriever  *RetrieveUseCase
	generator  *GenerateUseCase
}

func NewFlow(controller *Controller, retriever *RetrieveUseCase, generator *GenerateUseCase) *Flow {
	return &Flow{
		controller: controller,
		retriever:  retriever,
		generator:  generator,
	}
}

// Run executes the turn. A collaborator failure aborts the whole turn and is
// reported as a FlowError naming the node; no partial response is returned.
func (f *Flow) Run(ctx context.Context, input string) (*domain.TurnResult, error) {
	state := domain.NewFlowState(input)

	for state.Stage != domain.StageDone {
		if err := f.controller.Run(state); err != nil {
			return nil, err
		}

		switch f.controller.Next(state) {
		case domain.NodeConsulta:
			if err := f.retriever.GetContext(ctx, state); err != nil {
				return nil, &domain.FlowError{Node: domain.NodeConsulta, Err: err}
			}
		case domain.NodeLLM:
			if err := f.generator.Generate(ctx, state); err != nil {
				return nil, &domain.FlowError{Node: domain.NodeLLM, Err: err}
			}
		}
	}

	retrieved := state.Retrieved
	if retrieved == nil {
		retrieved = []domain.RetrievedDoc{}
	}
	return &domain.TurnResult{
		Response:      state.Response,
		RetrievedDocs: retrieved,
	}, nil
}
