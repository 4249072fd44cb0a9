package tell

import (
	"strings"
	"testing"

	"github.com/solsword/firelight/internal/eval"
	"github.com/solsword/firelight/internal/markup"
	"github.com/solsword/firelight/internal/story"
	"github.com/solsword/firelight/internal/value"
)

const src = "% title: Walk\n" +
	"% start: out\n" +
	"\n" +
	"# (out)\n" +
	"\n" +
	"[[go|home|(set~ mood~ \"happy\")]] today.\n" +
	"\n" +
	"# (home)\n" +
	"\n" +
	"Back home, feeling (eval~ mood).\n"

func walkStory(t *testing.T) *story.Story {
	t.Helper()
	s, err := markup.ParseStory(src)
	if err != nil {
		t.Fatalf("ParseStory: %v", err)
	}
	return s
}

func newTelling(t *testing.T) *Telling {
	t.Helper()
	return New("reader", walkStory(t), eval.New(eval.Options{}), story.HighlightNone)
}

func TestAdvanceFollowsLinkAndRunsTransition(t *testing.T) {
	tl := newTelling(t)
	msgs, err := tl.Advance("go")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tl.Node != "home" {
		t.Errorf("expected to land at 'home', got %q", tl.Node)
	}
	if !value.Equal(tl.State.Get("mood"), value.Str("happy")) {
		t.Errorf("transition did not set mood: %s", tl.State.Get("mood").Repr())
	}
	if len(msgs) != 1 || !strings.Contains(msgs[0], "feeling happy") {
		t.Errorf("destination not rendered with new state: %v", msgs)
	}
}

func TestDecisionMatchIsCaseInsensitive(t *testing.T) {
	tl := newTelling(t)
	if _, err := tl.Advance("  GO "); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tl.Node != "home" {
		t.Errorf("case-insensitive match failed, at %q", tl.Node)
	}
}

func TestInvalidDecision(t *testing.T) {
	tl := newTelling(t)
	msgs, err := tl.Advance("fly")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tl.Node != "out" {
		t.Errorf("telling moved on invalid decision")
	}
	if len(msgs) != 2 || !strings.Contains(msgs[0], "not a valid decision") {
		t.Errorf("expected invalid-decision message plus re-render, got %v", msgs)
	}
}

func TestStatusLifecycle(t *testing.T) {
	tl := newTelling(t)
	if tl.Status() != StatusBeginning {
		t.Errorf("fresh telling status: %q", tl.Status())
	}
	if _, err := tl.Advance("go"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 'home' has no successors, so the telling ends there.
	if tl.Status() != StatusFinished {
		t.Errorf("ending status: %q", tl.Status())
	}
	msgs, err := tl.Advance("anything")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 1 || msgs[0] != "This telling has come to an end." {
		t.Errorf("finished telling should refuse to advance: %v", msgs)
	}
}

func TestConfusedRestart(t *testing.T) {
	tl := newTelling(t)
	tl.Node = "vanished"
	msgs, err := tl.Advance("go")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tl.Node != "out" {
		t.Errorf("restart should return to start, got %q", tl.Node)
	}
	if len(msgs) != 3 || !strings.Contains(msgs[0], "gotten confused") {
		t.Errorf("expected apology messages, got %v", msgs)
	}
}

func TestVisitTrackingDrivesOnce(t *testing.T) {
	s, err := markup.ParseStory("% title: Loop\n% start: a\n\n" +
		"# (a)\n\n(once~ first time) (again~ once more) [[on|b]]\n\n" +
		"# (b)\n\nBack [[around|a]]\n")
	if err != nil {
		t.Fatalf("ParseStory: %v", err)
	}
	tl := New("reader", s, eval.New(eval.Options{}), story.HighlightNone)

	text, err := tl.Current()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(text, "first time") || strings.Contains(text, "once more") {
		t.Errorf("first visit: %q", text)
	}

	if _, err := tl.Advance("on"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	msgs, err := tl.Advance("around")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(msgs[0], "once more") || strings.Contains(msgs[0], "first time") {
		t.Errorf("return visit: %v", msgs)
	}
}

func TestPrevNodeVariable(t *testing.T) {
	tl := newTelling(t)
	if _, err := tl.Advance("go"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !value.Equal(tl.State.Get("_prev"), value.Str("out")) {
		t.Errorf("_prev: got %s", tl.State.Get("_prev").Repr())
	}
}

func TestCommands(t *testing.T) {
	tl := newTelling(t)
	msgs, err := tl.Advance("/title/")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(msgs[0], "Walk") {
		t.Errorf("/title/: %v", msgs)
	}
	if tl.Node != "out" {
		t.Errorf("commands must not move the telling")
	}
}

func TestResumeKeepsState(t *testing.T) {
	tl := newTelling(t)
	if _, err := tl.Advance("go"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resumed := Resume("reader", walkStory(t), eval.New(eval.Options{}),
		tl.Node, tl.State.Vars().Clone(), story.HighlightNone)
	if resumed.Node != "home" {
		t.Errorf("resumed at %q", resumed.Node)
	}
	if !value.Equal(resumed.State.Get("mood"), value.Str("happy")) {
		t.Errorf("resumed state lost mood")
	}
}

func TestBracketHighlight(t *testing.T) {
	tl := New("reader", walkStory(t), eval.New(eval.Options{}), story.HighlightBracket)
	text, err := tl.Current()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(text, "[go]") {
		t.Errorf("expected bracketed option, got %q", text)
	}
}
