package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/system.txt
	systemRaw string

	//go:embed template/comparison.txt
	comparisonRaw string

	//go:embed template/analysis.txt
	analysisRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	System     string
	Comparison string
	Analysis   string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
func LoadPromptSet() PromptSet {
	return PromptSet{
		System:     strings.TrimSpace(systemRaw),
		Comparison: strings.TrimSpace(comparisonRaw),
		Analysis:   strings.TrimSpace(analysisRaw),
	}
}

// Compose joins non-empty prompt sections with a blank line.
func Compose(sections ...string) string {
	parts := make([]string, 0, len(sections))
	for _, s := range sections {
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, "\n\n")
}
