package prompt

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Shiroi-Max/koala-route/internal/core/domain"
)

// Catalog holds the named prompt templates loaded from the prompts YAML
// file. Templates use "{placeholder}" tokens for substitution.
type Catalog struct {
	prompts map[string]string
}

func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.WrapError(domain.ErrConfig, "read prompts file", err)
	}
	return ParseCatalog(data)
}

func ParseCatalog(data []byte) (*Catalog, error) {
	prompts := make(map[string]string)
	if err := yaml.Unmarshal(data, &prompts); err != nil {
		return nil, domain.WrapError(domain.ErrConfig, "parse prompts file", err)
	}
	return &Catalog{prompts: prompts}, nil
}

func (c *Catalog) Prompt(name string) (string, error) {
	text, ok := c.prompts[name]
	if !ok {
		return "", fmt.Errorf("%w: prompt %q not defined", domain.ErrConfig, name)
	}
	return text, nil
}

// FormattedPrompt substitutes "{key}" tokens with the given values. Tokens
// without a value are left as-is, so an interest extractor can still locate
// an unsubstituted placeholder.
func (c *Catalog) FormattedPrompt(name string, values map[string]string) (string, error) {
	text, err := c.Prompt(name)
	if err != nil {
		return "", err
	}
	for key, value := range values {
		text = strings.ReplaceAll(text, "{"+key+"}", value)
	}
	return text, nil
}
