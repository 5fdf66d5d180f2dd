package usecase

import (
	"fmt"
	"regexp"
	"strings"
)

// InterestExtractor recovers the normalized interest tags a user stated in a
// filled prompt. Implementations never fail on a non-matching input: no match
// means "no interest filter requested" and yields an empty list.
type InterestExtractor interface {
	Extract(template, filled string) ([]string, error)
}

// TemplateExtractor matches the filled text against the prompt template it
// was built from. The interests placeholder becomes a capturing wildcard,
// every other placeholder a non-capturing one, and the rest of the template
// is matched literally.
type TemplateExtractor struct {
	placeholder string
}

func NewTemplateExtractor(placeholder string) *TemplateExtractor {
	if placeholder == "" {
		placeholder = "interests"
	}
	return &TemplateExtractor{placeholder: placeholder}
}

var placeholderPattern = regexp.MustCompile(`\\\{[a-zA-Z_]+\\\}`)

func (e *TemplateExtractor) Extract(template, filled string) ([]string, error) {
	token := "{" + e.placeholder + "}"
	quotedToken := regexp.QuoteMeta(token)

	pattern := regexp.QuoteMeta(template)
	pattern = strings.Replace(pattern, quotedToken, "(.+?)", 1)
	pattern = placeholderPattern.ReplaceAllString(pattern, "(?:.+?)")

	re, err := regexp.Compile("(?s)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("compile interest pattern: %w", err)
	}

	match := re.FindStringSubmatch(filled)
	if len(match) < 2 {
		return nil, nil
	}

	captured := strings.TrimSpace(match[1])
	// The filled text still carrying the literal placeholder means the
	// template was never substituted: no interests were stated.
	if captured == token {
		return nil, nil
	}
	return normalizeInterests(captured), nil
}

// LabeledExtractor locates interests after a literal field label (for
// example "intereses:") up to the next sentence terminator. It ignores the
// template argument; the label is the whole contract.
type LabeledExtractor struct {
	re *regexp.Regexp
}

func NewLabeledExtractor(label string) (*LabeledExtractor, error) {
	if label == "" {
		label = "intereses"
	}
	re, err := regexp.Compile(`(?is)` + regexp.QuoteMeta(label) + `\s*:\s*(.+?)(?:[.\n]|$)`)
	if err != nil {
		return nil, fmt.Errorf("compile label pattern: %w", err)
	}
	return &LabeledExtractor{re: re}, nil
}

func (e *LabeledExtractor) Extract(_, filled string) ([]string, error) {
	match := e.re.FindStringSubmatch(filled)
	if len(match) < 2 {
		return nil, nil
	}
	return normalizeInterests(match[1]), nil
}

func normalizeInterests(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		tag := strings.ToLower(strings.TrimSpace(part))
		if tag != "" {
			out = append(out, tag)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
