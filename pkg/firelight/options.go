// Package firelight provides the public API for the firelight story
// engine: importing stories, beginning and resuming tellings, and
// evaluating macro text or expressions directly.
package firelight

import (
	"github.com/rs/zerolog"

	"github.com/solsword/firelight/internal/eval"
	"github.com/solsword/firelight/internal/store"
	"github.com/solsword/firelight/internal/story"
)

// Option configures a Runtime.
type Option func(*Runtime)

// Store interface for custom persistence backends.
type Store = store.Store

// TellingRecord is a persisted telling snapshot.
type TellingRecord = store.TellingRecord

// ErrNotFound is returned when a story or telling does not exist.
var ErrNotFound = store.ErrNotFound

// Resolver loads a module story by name.
type Resolver = eval.Resolver

// WithStore sets a custom store.
func WithStore(s Store) Option {
	return func(r *Runtime) {
		r.store = s
	}
}

// WithSQLiteStore configures SQLite persistence at the given path.
func WithSQLiteStore(path string) Option {
	return func(r *Runtime) {
		s, err := store.NewSQLite(path)
		if err != nil {
			r.initErr = err
			return
		}
		r.store = s
	}
}

// WithMemoryStore configures an in-memory store (for testing).
func WithMemoryStore() Option {
	return func(r *Runtime) {
		r.store = store.NewMemory()
	}
}

// WithModuleResolver overrides module resolution. The default looks
// modules up in the store by title.
func WithModuleResolver(res Resolver) Option {
	return func(r *Runtime) {
		r.resolver = res
	}
}

// WithMaxExpansions bounds macro calls per render.
func WithMaxExpansions(n int) Option {
	return func(r *Runtime) {
		r.maxExpansions = n
	}
}

// WithHighlight selects how option words are marked in rendered node
// text: "none", "bracket", or "color".
func WithHighlight(mode string) Option {
	return func(r *Runtime) {
		r.highlight = mode
	}
}

// WithLogger sets the structured logger.
func WithLogger(log zerolog.Logger) Option {
	return func(r *Runtime) {
		r.log = log
	}
}

// Highlight mode constants.
const (
	HighlightNone    = story.HighlightNone
	HighlightBracket = story.HighlightBracket
	HighlightColor   = story.HighlightColor
)
