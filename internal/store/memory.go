package store

import (
	"sort"
	"sync"

	"github.com/solsword/firelight/internal/story"
)

// Memory is a Store kept entirely in process memory, for tests and
// ephemeral sessions.
type Memory struct {
	mu       sync.RWMutex
	stories  map[string]*story.Story
	tellings map[tellingKey]*TellingRecord
}

type tellingKey struct {
	reader string
	story  string
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		stories:  make(map[string]*story.Story),
		tellings: make(map[tellingKey]*TellingRecord),
	}
}

func (m *Memory) PutStory(s *story.Story) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stories[s.Title] = s
	return nil
}

func (m *Memory) GetStory(title string) (*story.Story, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.stories[title]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

func (m *Memory) DeleteStory(title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.stories[title]; !ok {
		return ErrNotFound
	}
	delete(m.stories, title)
	return nil
}

func (m *Memory) ListStories() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	titles := make([]string, 0, len(m.stories))
	for t := range m.stories {
		titles = append(titles, t)
	}
	sort.Strings(titles)
	return titles, nil
}

func (m *Memory) PutTelling(rec *TellingRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Clone so the caller's ongoing mutations don't alias the stored
	// snapshot.
	m.tellings[tellingKey{rec.Reader, rec.Story}] = &TellingRecord{
		Reader: rec.Reader,
		Story:  rec.Story,
		Node:   rec.Node,
		State:  rec.State.Clone(),
	}
	return nil
}

func (m *Memory) GetTelling(reader, storyTitle string) (*TellingRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.tellings[tellingKey{reader, storyTitle}]
	if !ok {
		return nil, ErrNotFound
	}
	return &TellingRecord{
		Reader: rec.Reader,
		Story:  rec.Story,
		Node:   rec.Node,
		State:  rec.State.Clone(),
	}, nil
}

func (m *Memory) DeleteTelling(reader, storyTitle string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := tellingKey{reader, storyTitle}
	if _, ok := m.tellings[key]; !ok {
		return ErrNotFound
	}
	delete(m.tellings, key)
	return nil
}

func (m *Memory) Close() error {
	return nil
}
