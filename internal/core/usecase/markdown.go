package usecase

import (
	"regexp"
	"strings"
)

// GuideSection is one level-2 section of a travel guide.
type GuideSection struct {
	Title   string
	Content string
}

var guideTitlePattern = regexp.MustCompile(`(?m)^\s*#\s+(.+)$`)

// SplitGuideSections extracts the main title (first level-1 heading) of a
// Markdown travel guide and splits the body into its level-2 sections.
func SplitGuideSections(text string) (string, []GuideSection) {
	title := ""
	if match := guideTitlePattern.FindStringSubmatch(text); match != nil {
		title = strings.TrimSpace(match[1])
	}

	var sections []GuideSection
	var current *GuideSection
	for _, line := range strings.Split(text, "\n") {
		if heading, ok := strings.CutPrefix(line, "## "); ok {
			if current != nil {
				current.Content = strings.TrimSpace(current.Content)
				sections = append(sections, *current)
			}
			current = &GuideSection{Title: strings.TrimSpace(heading)}
			continue
		}
		if current != nil {
			current.Content += line + "\n"
		}
	}
	if current != nil {
		current.Content = strings.TrimSpace(current.Content)
		sections = append(sections, *current)
	}
	return title, sections
}
