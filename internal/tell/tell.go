// Package tell tracks one reader's progress through one story and
// implements decision-driven traversal.
package tell

import (
	"fmt"
	"strings"

	"github.com/solsword/firelight/internal/eval"
	"github.com/solsword/firelight/internal/story"
	"github.com/solsword/firelight/internal/value"
)

// Telling status values, kept in the _status_ system variable.
const (
	StatusBeginning = "beginning"
	StatusUnfolding = "unfolding"
	StatusFinished  = "finished"
)

// Commands a reader can issue instead of a decision.
const (
	CmdTitle  = "/title/"
	CmdStatus = "/status/"
)

const visitsKey = "_visits_"

// Telling is one reader's progress through one story.
type Telling struct {
	Reader    string
	Story     *story.Story
	Node      string
	State     *eval.State
	Highlight string

	ev *eval.Evaluator
}

// New starts a fresh telling at the story's start node.
func New(reader string, st *story.Story, ev *eval.Evaluator, highlight string) *Telling {
	t := &Telling{
		Reader:    reader,
		Story:     st,
		Node:      st.Start,
		Highlight: highlight,
		ev:        ev,
	}
	t.State = initialState(st)
	return t
}

// Resume reconstructs a telling from persisted position and state.
func Resume(reader string, st *story.Story, ev *eval.Evaluator, node string, vars *value.Dict, highlight string) *Telling {
	return &Telling{
		Reader:    reader,
		Story:     st,
		Node:      node,
		State:     eval.NewState(vars),
		Highlight: highlight,
		ev:        ev,
	}
}

func initialState(st *story.Story) *eval.State {
	s := eval.NewState(st.InitialState())
	s.Set("_name_", value.Str(st.Title))
	s.Set("_status_", value.Str(StatusBeginning))
	return s
}

// Status returns the telling's lifecycle status.
func (t *Telling) Status() string {
	return t.State.Get("_status_").Text()
}

// Current renders the current node without advancing.
func (t *Telling) Current() (string, error) {
	node, ok := t.Story.Get(t.Node)
	if !ok {
		return "", fmt.Errorf("telling is at unknown node '%s'", t.Node)
	}
	return t.renderNode(node)
}

// renderNode expands a node's content against the telling state,
// maintaining the visit bookkeeping the once/again builtins rely on.
// State mutations made by the node's macros persist.
func (t *Telling) renderNode(n *story.Node) (string, error) {
	visits := t.visitCount(n.Name)
	t.State.Set("_first", value.Bool(visits == 0))
	t.State.Set("_node", value.Str(n.Name))

	text, newState, err := t.ev.EvalText(n.Content, t.Story, t.State)
	if err != nil {
		return "", err
	}
	t.State = newState
	t.bumpVisits(n.Name)

	return story.Highlight(text, n.Options, t.Highlight), nil
}

func (t *Telling) visitCount(name string) int64 {
	d, ok := t.State.Get(visitsKey).(*value.Dict)
	if !ok {
		return 0
	}
	if n, ok := d.Get(name); ok {
		if i, ok := n.(value.Int); ok {
			return int64(i)
		}
	}
	return 0
}

func (t *Telling) bumpVisits(name string) {
	d, ok := t.State.Get(visitsKey).(*value.Dict)
	if !ok {
		d = value.NewDict()
	}
	d.Set(name, value.Int(t.visitCount(name)+1))
	t.State.Set(visitsKey, d)
}

// restart resets the telling and renders the start node, returning the
// apology messages shown when the stored position has gone bad.
func (t *Telling) restart(at string) ([]string, error) {
	msgs := []string{
		fmt.Sprintf("Sorry, I've gotten confused at '%s' in '%s'.", at, t.Story.Title),
		"Starting over from the beginning.",
	}
	t.Node = t.Story.Start
	t.State = initialState(t.Story)
	text, err := t.Current()
	if err != nil {
		return nil, err
	}
	return append(msgs, text), nil
}

// Advance takes a decision at the current node and moves the telling
// along the matching link: the link's transition text is evaluated for
// its state effects, then the destination node is rendered. The returned
// messages are what the reader should see.
func (t *Telling) Advance(decision string) ([]string, error) {
	node, ok := t.Story.Get(t.Node)
	if !ok {
		return t.restart(t.Node)
	}

	if t.Status() == StatusFinished {
		return []string{"This telling has come to an end."}, nil
	}

	switch strings.ToLower(strings.TrimSpace(decision)) {
	case CmdTitle:
		return []string{fmt.Sprintf("This is '%s' by %s.", t.Story.Title, t.Story.Author)}, nil
	case CmdStatus:
		return []string{fmt.Sprintf("You are at '%s'; the telling is %s.", t.Node, t.Status())}, nil
	}

	matched := ""
	for _, opt := range node.Options {
		if strings.EqualFold(opt, strings.TrimSpace(decision)) {
			matched = opt
			break
		}
	}
	if matched == "" {
		text, err := t.renderNode(node)
		if err != nil {
			return nil, err
		}
		return []string{
			fmt.Sprintf("'%s' is not a valid decision at this point in the story.", strings.ToLower(decision)),
			text,
		}, nil
	}

	succ := node.Successors[matched]
	next, ok := t.Story.Get(succ.Dest)
	if !ok {
		return t.restart(succ.Dest)
	}

	if t.Status() == StatusBeginning {
		t.State.Set("_status_", value.Str(StatusUnfolding))
	}

	// Transition macros run for their state effects; their rendered
	// text is discarded.
	if succ.Transition != "" {
		_, newState, err := t.ev.EvalText(succ.Transition, t.Story, t.State)
		if err != nil {
			return nil, err
		}
		t.State = newState
	}

	if next.IsEnding() {
		t.State.Set("_status_", value.Str(StatusFinished))
	}

	t.State.Set("_prev", value.Str(t.Node))
	t.Node = succ.Dest

	text, err := t.renderNode(next)
	if err != nil {
		return nil, err
	}
	return []string{text}, nil
}
