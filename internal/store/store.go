// Package store persists stories and tellings. Stories round-trip
// through their markup source; telling state round-trips through JSON.
package store

import (
	"errors"

	"github.com/solsword/firelight/internal/story"
	"github.com/solsword/firelight/internal/value"
)

// ErrNotFound is returned when a story or telling does not exist.
var ErrNotFound = errors.New("not found")

// TellingRecord is the persisted position and state of one reader in
// one story. Reader plus story title is the unique key.
type TellingRecord struct {
	Reader string
	Story  string
	Node   string
	State  *value.Dict
}

// Store is the persistence interface shared by the in-memory and SQLite
// backends.
type Store interface {
	PutStory(s *story.Story) error
	GetStory(title string) (*story.Story, error)
	DeleteStory(title string) error
	ListStories() ([]string, error)

	PutTelling(rec *TellingRecord) error
	GetTelling(reader, storyTitle string) (*TellingRecord, error)
	DeleteTelling(reader, storyTitle string) error

	Close() error
}
