package story

import (
	"testing"
)

func TestHighlightBracket(t *testing.T) {
	got := Highlight("You could run or hide.", []string{"run", "hide"}, HighlightBracket)
	want := "You could [run] or [hide]."
	if got != want {
		t.Errorf("bracket highlight: want %q, got %q", want, got)
	}
}

func TestHighlightNoneLeavesContent(t *testing.T) {
	content := "You could run or hide."
	if got := Highlight(content, []string{"run"}, HighlightNone); got != content {
		t.Errorf("none mode changed content: %q", got)
	}
}

func TestHighlightPunctuatedOption(t *testing.T) {
	// A label ending in punctuation has no trailing word boundary after
	// it; the substring fallback must still mark it.
	got := Highlight("You could go! or wait.", []string{"go!"}, HighlightBracket)
	want := "You could [go!] or wait."
	if got != want {
		t.Errorf("punctuated highlight: want %q, got %q", want, got)
	}
}

func TestHighlightDoesNotMarkSubwords(t *testing.T) {
	got := Highlight("The running water, run away.", []string{"run"}, HighlightBracket)
	want := "The running water, [run] away."
	if got != want {
		t.Errorf("boundary highlight: want %q, got %q", want, got)
	}
}
