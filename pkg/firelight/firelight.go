package firelight

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/solsword/firelight/internal/eval"
	"github.com/solsword/firelight/internal/markup"
	"github.com/solsword/firelight/internal/store"
	"github.com/solsword/firelight/internal/story"
	"github.com/solsword/firelight/internal/tell"
	"github.com/solsword/firelight/internal/value"
)

// Runtime is the firelight story engine: a store of stories and
// tellings plus the macro evaluator that renders them.
type Runtime struct {
	store         Store
	resolver      Resolver
	evaluator     *eval.Evaluator
	maxExpansions int
	highlight     string
	log           zerolog.Logger
	initErr       error
}

// New creates a runtime with the given options. Without a store option
// it keeps everything in memory.
func New(opts ...Option) (*Runtime, error) {
	r := &Runtime{
		highlight: HighlightBracket,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.initErr != nil {
		return nil, r.initErr
	}
	if r.store == nil {
		r.store = store.NewMemory()
	}
	if r.resolver == nil {
		r.resolver = func(name string) (*story.Story, error) {
			s, err := r.store.GetStory(name)
			if errors.Is(err, store.ErrNotFound) {
				return nil, nil
			}
			return s, err
		}
	}
	r.evaluator = eval.New(eval.Options{
		Resolver:      r.resolver,
		MaxExpansions: r.maxExpansions,
		Logger:        r.log,
	})
	return r, nil
}

// Close releases the underlying store.
func (r *Runtime) Close() error {
	return r.store.Close()
}

// ImportStory parses story source and saves it. An existing story of
// the same title is only replaced when force is set.
func (r *Runtime) ImportStory(source string, force bool) (*story.Story, error) {
	s, err := markup.ParseStory(source)
	if err != nil {
		return nil, err
	}
	if !force {
		if _, err := r.store.GetStory(s.Title); err == nil {
			return nil, fmt.Errorf("story '%s' already exists (use force to replace)", s.Title)
		} else if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}
	if err := r.store.PutStory(s); err != nil {
		return nil, err
	}
	r.log.Info().Str("title", s.Title).Str("author", s.Author).Msg("imported story")
	return s, nil
}

// ImportStoryFile imports a story from a markup file.
func (r *Runtime) ImportStoryFile(path string, force bool) (*story.Story, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return r.ImportStory(string(data), force)
}

// ListStories lists stored story titles.
func (r *Runtime) ListStories() ([]string, error) {
	return r.store.ListStories()
}

// GetStory loads a stored story.
func (r *Runtime) GetStory(title string) (*story.Story, error) {
	return r.store.GetStory(title)
}

// Begin starts a new telling of a story for a reader, replacing any
// existing one, and returns it with the start node's rendered text.
func (r *Runtime) Begin(reader, title string) (*tell.Telling, string, error) {
	s, err := r.store.GetStory(title)
	if err != nil {
		return nil, "", err
	}
	t := tell.New(reader, s, r.evaluator, r.highlight)
	text, err := t.Current()
	if err != nil {
		return nil, "", err
	}
	if err := r.Save(t); err != nil {
		return nil, "", err
	}
	return t, text, nil
}

// Resume loads a reader's saved telling, starting a new one when
// nothing is saved yet.
func (r *Runtime) Resume(reader, title string) (*tell.Telling, string, error) {
	rec, err := r.store.GetTelling(reader, title)
	if errors.Is(err, store.ErrNotFound) {
		return r.Begin(reader, title)
	}
	if err != nil {
		return nil, "", err
	}
	s, err := r.store.GetStory(title)
	if err != nil {
		return nil, "", err
	}
	t := tell.Resume(reader, s, r.evaluator, rec.Node, rec.State, r.highlight)
	text, err := t.Current()
	if err != nil {
		return nil, "", err
	}
	return t, text, nil
}

// Advance applies a decision to a telling and saves the result.
func (r *Runtime) Advance(t *tell.Telling, decision string) ([]string, error) {
	msgs, err := t.Advance(decision)
	if err != nil {
		return nil, err
	}
	if err := r.Save(t); err != nil {
		return nil, err
	}
	return msgs, nil
}

// Save persists a telling's position and state.
func (r *Runtime) Save(t *tell.Telling) error {
	return r.store.PutTelling(&store.TellingRecord{
		Reader: t.Reader,
		Story:  t.Story.Title,
		Node:   t.Node,
		State:  t.State.Vars(),
	})
}

// EvalExpr evaluates one expression against a fresh state, with no
// story context.
func (r *Runtime) EvalExpr(src string) (value.Value, error) {
	v, _, err := r.evaluator.EvalExpr(src, nil, eval.NewState(nil))
	return v, err
}

// EvalText expands macro text against a fresh state, with no story
// context.
func (r *Runtime) EvalText(src string) (string, error) {
	text, _, err := r.evaluator.EvalText(src, nil, eval.NewState(nil))
	return text, err
}
