package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/Shiroi-Max/koala-route/internal/core/domain"
)

func newTestFlow(searcher *searcherFake, embedder *embedderFake, completer *completerFake) *Flow {
	prompts := &promptsFake{prompts: map[string]string{
		"prompt_base":     "Sus intereses son: {interests}. Pregunta:",
		"fallback_prompt": "Responde con tu conocimiento general.",
	}}
	filter := NewRelevanceFilter(embedder, MatchCategoryTags)
	retriever := NewRetrieveUseCase(
		searcher,
		filter,
		NewTemplateExtractor("interests"),
		prompts,
		"prompt_base",
		15,
		0.4,
	)
	controller := NewController(prompts, "fallback_prompt", "español", 512)
	generator := NewGenerateUseCase(completer)
	return NewFlow(controller, retriever, generator)
}

func TestFlowRunsRetrievalThenGeneration(t *testing.T) {
	searcher := &searcherFake{docs: []domain.Document{{
		Title:    "Valencia",
		Section:  "Comida y Bebida",
		Category: []string{"Gastronomía"},
		Content:  "Cuna de la paella valenciana.",
	}}}
	input := "Sus intereses son: Gastronomía. Pregunta: ¿dónde comer en Valencia?"
	embedder := &embedderFake{vectors: map[string][]float32{
		input: {1, 0},
		"Valencia. Cuna de la paella valenciana.": unitVector(0.8),
	}}
	completer := &completerFake{response: "Prueba la paella en el Mercado Central."}

	flow := newTestFlow(searcher, embedder, completer)
	turn, err := flow.Run(context.Background(), input)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if turn.Response != "Prueba la paella en el Mercado Central." {
		t.Fatalf("response = %q", turn.Response)
	}
	if len(turn.RetrievedDocs) != 1 || turn.RetrievedDocs[0].ID != "Valencia#Comida y Bebida" {
		t.Fatalf("retrieved docs = %+v", turn.RetrievedDocs)
	}
	if searcher.gotK != 15 {
		t.Fatalf("search k = %d, want 15", searcher.gotK)
	}

	// With context the completer must receive exactly one user message.
	if len(completer.got) != 1 || completer.got[0].Role != domain.RoleUser {
		t.Fatalf("completer received %+v", completer.got)
	}
}

func TestFlowEmptyRetrievalFallsBack(t *testing.T) {
	searcher := &searcherFake{}
	embedder := &embedderFake{}
	completer := &completerFake{response: "Te recomiendo el norte de España."}

	flow := newTestFlow(searcher, embedder, completer)
	turn, err := flow.Run(context.Background(), "¿dónde ir de senderismo?")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(turn.RetrievedDocs) != 0 {
		t.Fatalf("retrieved docs = %+v, want empty slice", turn.RetrievedDocs)
	}
	if turn.RetrievedDocs == nil {
		t.Fatalf("retrieved docs must be an empty slice, not nil")
	}
	if len(completer.got) != 2 || completer.got[0].Role != domain.RoleSystem {
		t.Fatalf("completer received %+v, want fallback system prompt first", completer.got)
	}
}

func TestFlowSearchErrorIsAttributedToConsulta(t *testing.T) {
	searcher := &searcherFake{err: errors.New("index unavailable")}
	flow := newTestFlow(searcher, &embedderFake{}, &completerFake{})

	_, err := flow.Run(context.Background(), "hola")
	var flowErr *domain.FlowError
	if !errors.As(err, &flowErr) {
		t.Fatalf("expected FlowError, got %v", err)
	}
	if flowErr.Node != domain.NodeConsulta {
		t.Fatalf("node = %q, want %q", flowErr.Node, domain.NodeConsulta)
	}
}

func TestFlowCompletionErrorIsAttributedToLLM(t *testing.T) {
	completer := &completerFake{err: errors.New("model overloaded")}
	flow := newTestFlow(&searcherFake{}, &embedderFake{}, completer)

	_, err := flow.Run(context.Background(), "hola")
	var flowErr *domain.FlowError
	if !errors.As(err, &flowErr) {
		t.Fatalf("expected FlowError, got %v", err)
	}
	if flowErr.Node != domain.NodeLLM {
		t.Fatalf("node = %q, want %q", flowErr.Node, domain.NodeLLM)
	}
}

func TestFlowEmptyInputFailsBeforeAnyNode(t *testing.T) {
	searcher := &searcherFake{err: errors.New("must not be called")}
	flow := newTestFlow(searcher, &embedderFake{}, &completerFake{})

	_, err := flow.Run(context.Background(), "")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	var flowErr *domain.FlowError
	if errors.As(err, &flowErr) {
		t.Fatalf("input validation must not be attributed to a node, got %v", err)
	}
}
