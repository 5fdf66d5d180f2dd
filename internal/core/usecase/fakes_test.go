package usecase

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/Shiroi-Max/koala-route/internal/core/domain"
)

// embedderFake returns canned vectors keyed by input text. Unknown texts get
// a zero vector so cosine similarity degrades to 0.
type embedderFake struct {
	vectors map[string][]float32
	err     error
}

func (f *embedderFake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if v, ok := f.vectors[text]; ok {
			out[i] = v
			continue
		}
		out[i] = []float32{0, 0}
	}
	return out, nil
}

func (f *embedderFake) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := f.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

type searcherFake struct {
	docs []domain.Document
	err  error
	gotK int
}

func (f *searcherFake) Search(_ context.Context, _ string, k int) ([]domain.Document, error) {
	f.gotK = k
	if f.err != nil {
		return nil, f.err
	}
	return f.docs, nil
}

type completerFake struct {
	response string
	err      error
	got      []domain.ChatMessage
}

func (f *completerFake) Complete(_ context.Context, messages []domain.ChatMessage) (string, error) {
	f.got = messages
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

type promptsFake struct {
	prompts map[string]string
}

func (f *promptsFake) Prompt(name string) (string, error) {
	text, ok := f.prompts[name]
	if !ok {
		return "", fmt.Errorf("%w: prompt %q not defined", domain.ErrConfig, name)
	}
	return text, nil
}

func (f *promptsFake) FormattedPrompt(name string, values map[string]string) (string, error) {
	text, err := f.Prompt(name)
	if err != nil {
		return "", err
	}
	for key, value := range values {
		text = strings.ReplaceAll(text, "{"+key+"}", value)
	}
	return text, nil
}

// unitVector builds a 2D unit vector whose cosine similarity against
// (1, 0) equals cos.
func unitVector(cos float64) []float32 {
	sin := 1 - cos*cos
	if sin < 0 {
		sin = 0
	}
	return []float32{float32(cos), float32(math.Sqrt(sin))}
}
