package prompt

import "testing"

func TestLoadPromptSetNotEmpty(t *testing.T) {
	t.Parallel()

	ps := LoadPromptSet()
	if ps.System == "" {
		t.Fatal("system prompt must not be empty")
	}
	if ps.Comparison == "" {
		t.Fatal("comparison prompt must not be empty")
	}
	if ps.Analysis == "" {
		t.Fatal("analysis prompt must not be empty")
	}
}

func TestComposeSkipsBlankSections(t *testing.T) {
	t.Parallel()

	got := Compose(" base ", "", "   ", "extra")
	if got != "base\n\nextra" {
		t.Fatalf("Compose() = %q", got)
	}
}
