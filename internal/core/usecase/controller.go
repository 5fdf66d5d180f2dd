package usecase

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/Shiroi-Max/koala-route/internal/core/domain"
	"github.com/Shiroi-Max/koala-route/internal/core/ports"
	"github.com/Shiroi-Max/koala-route/internal/prompt"
)

// maxContextWords caps the retrieved context embedded into the user message.
const maxContextWords = 400

// Controller decides the next node of the flow and assembles the outgoing
// message set after retrieval.
type Controller struct {
	prompts         ports.PromptCatalog
	fallbackPrompt  string
	language        string
	maxPromptTokens int
}

func NewController(prompts ports.PromptCatalog, fallbackPrompt, language string, maxPromptTokens int) *Controller {
	return &Controller{
		prompts:         prompts,
		fallbackPrompt:  fallbackPrompt,
		language:        language,
		maxPromptTokens: maxPromptTokens,
	}
}

// Next returns the node to execute: retrieval when the turn just started,
// generation otherwise.
func (c *Controller) Next(state *domain.FlowState) string {
	if state.Stage == domain.StageStart {
		return domain.NodeConsulta
	}
	return domain.NodeLLM
}

// Run prepares the message set once retrieval has happened. With context the
// user message embeds context and question; without it the fallback system
// prompt is applied and the question passed bare. Exactly one user message
// and at most one system message are produced.
func (c *Controller) Run(state *domain.FlowState) error {
	if strings.TrimSpace(state.Input) == "" {
		return fmt.Errorf("%w: flow state has no input", domain.ErrInvalidInput)
	}
	if state.Stage != domain.StageRetrieved {
		return nil
	}

	fallback := ""
	if state.Context == "" {
		text, err := c.prompts.FormattedPrompt(c.fallbackPrompt, map[string]string{
			"language": c.language,
		})
		if err != nil {
			return fmt.Errorf("load fallback prompt: %w", err)
		}
		fallback = text
	}

	context := capWords(state.Context, maxContextWords)
	state.Messages = prompt.BuildMessages(state.Input, context, fallback)

	if c.maxPromptTokens > 0 {
		if estimate := prompt.EstimateTokens(state.Messages); estimate > c.maxPromptTokens {
			slog.Warn("prompt_budget_exceeded",
				"estimated_tokens", estimate,
				"max_prompt_tokens", c.maxPromptTokens,
			)
		}
	}
	return nil
}

func capWords(text string, limit int) string {
	if text == "" || limit <= 0 {
		return text
	}
	words := strings.Fields(text)
	if len(words) <= limit {
		return text
	}
	return strings.Join(words[:limit], " ")
}
