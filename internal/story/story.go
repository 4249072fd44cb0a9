// Package story defines the immutable story graph the evaluator walks:
// nodes, their link successors, and story-level metadata.
package story

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/fatih/color"

	"github.com/solsword/firelight/internal/value"
)

// Successor is one outgoing link from a node. Transition is raw text
// evaluated when the link is taken; it may mutate story state.
type Successor struct {
	Dest       string
	Transition string
}

// Node is a single story node. Content is raw markup-free text that may
// still contain macro calls; Options preserves the order links appeared
// in the source.
type Node struct {
	Name       string
	Content    string
	Options    []string
	Successors map[string]Successor
}

// IsEnding reports whether the node has no outgoing links.
func (n *Node) IsEnding() bool {
	return len(n.Successors) == 0
}

// Story is a parsed story: metadata, the start node name, the node set,
// required module names, and the initial state template.
type Story struct {
	Title   string
	Author  string
	Start   string
	Nodes   map[string]*Node
	Order   []string // node names in source order
	Modules []string
	Setup   *value.Dict
}

// New validates the node set and returns a story. The start node must
// exist and node names must be unique.
func New(title, author, start string, nodes []*Node, modules []string, setup *value.Dict) (*Story, error) {
	if len(nodes) == 0 {
		return nil, fmt.Errorf("story '%s' has no nodes", title)
	}
	if start == "" {
		start = nodes[0].Name
	}
	byName := make(map[string]*Node, len(nodes))
	order := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if _, dup := byName[n.Name]; dup {
			return nil, fmt.Errorf("story '%s' has duplicate node '%s'", title, n.Name)
		}
		byName[n.Name] = n
		order = append(order, n.Name)
	}
	if _, ok := byName[start]; !ok {
		return nil, fmt.Errorf("story '%s' start node '%s' does not exist", title, start)
	}
	if setup == nil {
		setup = value.NewDict()
	}
	return &Story{
		Title:   title,
		Author:  author,
		Start:   start,
		Nodes:   byName,
		Order:   order,
		Modules: modules,
		Setup:   setup,
	}, nil
}

// Get looks up a node by name.
func (s *Story) Get(name string) (*Node, bool) {
	n, ok := s.Nodes[name]
	return n, ok
}

// HasModule reports whether the story declares the named module.
func (s *Story) HasModule(name string) bool {
	for _, m := range s.Modules {
		if m == name {
			return true
		}
	}
	return false
}

// InitialState clones the setup template for a fresh telling.
func (s *Story) InitialState() *value.Dict {
	return s.Setup.Clone()
}

// Highlight modes for rendering option words inside node content.
const (
	HighlightNone    = "none"
	HighlightBracket = "bracket"
	HighlightColor   = "color"
)

// Highlight marks each option word occurring in already-expanded content
// so a reader can see what the valid decisions are. "bracket" wraps the
// word in square brackets, "color" applies terminal colors, and "none"
// returns the content unchanged. Options are matched on word boundaries
// when possible; labels that start or end with punctuation fall back to
// a plain substring match.
func Highlight(content string, options []string, mode string) string {
	if mode == HighlightNone || mode == "" {
		return content
	}
	for _, opt := range options {
		var marked string
		switch mode {
		case HighlightBracket:
			marked = "[" + opt + "]"
		case HighlightColor:
			marked = color.New(color.FgCyan, color.Bold).Sprint(opt)
		default:
			continue
		}
		re, err := regexp.Compile(`\b` + regexp.QuoteMeta(opt) + `\b`)
		if err == nil && re.MatchString(content) {
			content = re.ReplaceAllString(content, marked)
		} else {
			content = strings.ReplaceAll(content, opt, marked)
		}
	}
	return content
}
