package markup

import (
	"strings"
	"testing"

	"github.com/solsword/firelight/internal/value"
)

const sample = "% title: The Cave\n" +
	"% author: A. Nonymous\n" +
	"% start: mouth\n" +
	"% modules: lib\n" +
	"% state: {\"mood\": \"wary\", \"coins\": 3}\n" +
	"\n" +
	"`` a comment that should vanish\n" +
	"# (mouth)\n" +
	"\n" +
	"You stand at the cave mouth. You could\n" +
	"[[enter|dark|(set~ mood~ \"bold\")]] or just [[leave]].\n" +
	"\n" +
	"A second paragraph.\n" +
	"\n" +
	"# (dark)\n" +
	"\n" +
	"It is dark in here.\n" +
	"\n" +
	"# (leave)\n" +
	"\n" +
	"You walk away.\n"

func TestParseStoryMetadata(t *testing.T) {
	s, err := ParseStory(sample)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Title != "The Cave" || s.Author != "A. Nonymous" || s.Start != "mouth" {
		t.Errorf("bad metadata: %q %q %q", s.Title, s.Author, s.Start)
	}
	if len(s.Modules) != 1 || s.Modules[0] != "lib" {
		t.Errorf("bad modules: %v", s.Modules)
	}
	if v, _ := s.Setup.Get("coins"); !value.Equal(v, value.Int(3)) {
		t.Errorf("bad setup state: %s", s.Setup.Repr())
	}
	if len(s.Nodes) != 3 {
		t.Errorf("expected 3 nodes, got %d", len(s.Nodes))
	}
}

func TestLinksExtracted(t *testing.T) {
	s, err := ParseStory(sample)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mouth := s.Nodes["mouth"]
	if len(mouth.Successors) != 2 {
		t.Fatalf("expected 2 successors, got %v", mouth.Successors)
	}
	enter := mouth.Successors["enter"]
	if enter.Dest != "dark" {
		t.Errorf("enter dest: got %q", enter.Dest)
	}
	if enter.Transition != `(set~ mood~ "bold")` {
		t.Errorf("enter transition: got %q", enter.Transition)
	}
	leave := mouth.Successors["leave"]
	if leave.Dest != "leave" || leave.Transition != "" {
		t.Errorf("leave should default: %+v", leave)
	}
	// Link markup replaced by bare display text.
	if strings.Contains(mouth.Content, "[[") {
		t.Errorf("link markup left in content: %q", mouth.Content)
	}
}

func TestReflow(t *testing.T) {
	s, err := ParseStory(sample)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mouth := s.Nodes["mouth"]
	want := "You stand at the cave mouth. You could enter or just leave.\nA second paragraph."
	if mouth.Content != want {
		t.Errorf("reflow:\nwant %q\n got %q", want, mouth.Content)
	}
}

func TestCommentsRemoved(t *testing.T) {
	s, err := ParseStory(sample)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for name, n := range s.Nodes {
		if strings.Contains(n.Content, "comment") {
			t.Errorf("comment leaked into node %s: %q", name, n.Content)
		}
	}
}

func TestMetadataContinuation(t *testing.T) {
	src := "% title: Long\n" +
		"%  Winded Title\n" +
		"\n" +
		"# (only)\n\nText.\n"
	s, err := ParseStory(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Title != "Long Winded Title" {
		t.Errorf("continuation: got %q", s.Title)
	}
}

func TestMetadataDefaults(t *testing.T) {
	s, err := ParseStory("# (only)\n\nText.\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Title != "Untitled" || s.Author != "Unknown" {
		t.Errorf("defaults: %q by %q", s.Title, s.Author)
	}
	if s.Start != "only" {
		t.Errorf("start should default to first node, got %q", s.Start)
	}
}

func TestIdempotentReparse(t *testing.T) {
	first, err := ParseStory(sample)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := ParseStory(Render(first))
	if err != nil {
		t.Fatalf("reparse failed: %v", err)
	}
	if second.Title != first.Title || second.Start != first.Start {
		t.Errorf("metadata changed on reparse")
	}
	if len(second.Nodes) != len(first.Nodes) {
		t.Fatalf("node count changed: %d vs %d", len(second.Nodes), len(first.Nodes))
	}
	for name, n1 := range first.Nodes {
		n2, ok := second.Nodes[name]
		if !ok {
			t.Fatalf("node %s lost on reparse", name)
		}
		if n1.Content != n2.Content {
			t.Errorf("node %s content changed:\n%q\n%q", name, n1.Content, n2.Content)
		}
		if len(n1.Successors) != len(n2.Successors) {
			t.Errorf("node %s successors changed", name)
		}
		for k, s1 := range n1.Successors {
			if s2 := n2.Successors[k]; s1 != s2 {
				t.Errorf("node %s successor %s changed: %+v vs %+v", name, k, s1, s2)
			}
		}
	}
}

func TestRenderCollidingLabels(t *testing.T) {
	// One link's destination doubles as another link's display text;
	// rendering must not nest the second link inside the first.
	src := "% title: Collide\n% start: a\n\n" +
		"# (a)\n\nYou can [[go|home]] or stay [[home]].\n\n" +
		"# (home)\n\nHome.\n"
	first, err := ParseStory(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rendered := Render(first)
	if strings.Contains(rendered, "[[go|[[") {
		t.Fatalf("nested link markup in render: %q", rendered)
	}
	second, err := ParseStory(rendered)
	if err != nil {
		t.Fatalf("reparse failed: %v", err)
	}
	a1, a2 := first.Nodes["a"], second.Nodes["a"]
	if a2.Content != a1.Content {
		t.Errorf("content changed:\n%q\n%q", a1.Content, a2.Content)
	}
	for _, opt := range []string{"go", "home"} {
		if a2.Successors[opt] != a1.Successors[opt] {
			t.Errorf("successor %q changed: %+v vs %+v", opt, a1.Successors[opt], a2.Successors[opt])
		}
	}
}

func TestFirstNodeRoundTrip(t *testing.T) {
	src := "# (room)\n\nA [[door|hall]] stands open.\n"
	n1, rest, err := ParseFirstNode(src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n1 == nil || rest != "" {
		t.Fatalf("expected one node and no remainder, got %v / %q", n1, rest)
	}
	n2, _, err := ParseFirstNode(RenderNode(n1))
	if err != nil {
		t.Fatalf("reparse failed: %v", err)
	}
	if n2.Name != n1.Name || n2.Content != n1.Content {
		t.Errorf("round trip changed node: %+v vs %+v", n1, n2)
	}
	if n2.Successors["door"] != n1.Successors["door"] {
		t.Errorf("round trip changed successor")
	}
}

func TestNoNode(t *testing.T) {
	n, rest, err := ParseFirstNode("no heading here")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != nil || rest != "no heading here" {
		t.Errorf("expected no node, got %v / %q", n, rest)
	}
}

func TestStateMustBeObject(t *testing.T) {
	_, err := ParseStory("% state: [1, 2]\n\n# (a)\n\nx\n")
	if err == nil {
		t.Fatal("expected an error for non-object state")
	}
}
