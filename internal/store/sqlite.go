package store

import (
	"database/sql"
	"fmt"
	"sync"

	"github.com/solsword/firelight/internal/markup"
	"github.com/solsword/firelight/internal/story"
	"github.com/solsword/firelight/internal/value"
)

// Current schema version
const SchemaVersion = "1"

// SQLite is a SQLite-backed store. Stories persist as their rendered
// markup source; telling state persists as JSON.
type SQLite struct {
	mu sync.Mutex
	db *sql.DB
}

// NewSQLite opens or creates a SQLite store at the given path.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS stories (
			title TEXT PRIMARY KEY,
			author TEXT NOT NULL,
			source TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS tellings (
			reader TEXT NOT NULL,
			story TEXT NOT NULL,
			node TEXT NOT NULL,
			state TEXT NOT NULL,
			PRIMARY KEY (reader, story)
		);
		CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLite{db: db}

	version, err := s.getMetadataUnlocked("schema_version")
	if err != nil {
		db.Close()
		return nil, err
	}
	if version == "" {
		if err := s.setMetadataUnlocked("schema_version", SchemaVersion); err != nil {
			db.Close()
			return nil, err
		}
	} else if version != SchemaVersion {
		db.Close()
		return nil, fmt.Errorf("unsupported schema version: %s (expected %s)", version, SchemaVersion)
	}

	return s, nil
}

func (s *SQLite) getMetadataUnlocked(key string) (string, error) {
	var v string
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

func (s *SQLite) setMetadataUnlocked(key, val string) error {
	_, err := s.db.Exec(
		"INSERT INTO metadata (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, val,
	)
	return err
}

func (s *SQLite) PutStory(st *story.Story) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		"INSERT INTO stories (title, author, source) VALUES (?, ?, ?) ON CONFLICT(title) DO UPDATE SET author = excluded.author, source = excluded.source",
		st.Title, st.Author, markup.Render(st),
	)
	return err
}

func (s *SQLite) GetStory(title string) (*story.Story, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var source string
	err := s.db.QueryRow("SELECT source FROM stories WHERE title = ?", title).Scan(&source)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return markup.ParseStory(source)
}

func (s *SQLite) DeleteStory(title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec("DELETE FROM stories WHERE title = ?", title)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) ListStories() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.Query("SELECT title FROM stories ORDER BY title")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var titles []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		titles = append(titles, t)
	}
	return titles, rows.Err()
}

func (s *SQLite) PutTelling(rec *TellingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	js, err := value.ToJSON(rec.State)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		"INSERT INTO tellings (reader, story, node, state) VALUES (?, ?, ?, ?) ON CONFLICT(reader, story) DO UPDATE SET node = excluded.node, state = excluded.state",
		rec.Reader, rec.Story, rec.Node, string(js),
	)
	return err
}

func (s *SQLite) GetTelling(reader, storyTitle string) (*TellingRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var node, stateJSON string
	err := s.db.QueryRow(
		"SELECT node, state FROM tellings WHERE reader = ? AND story = ?",
		reader, storyTitle,
	).Scan(&node, &stateJSON)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	v, err := value.FromJSON([]byte(stateJSON))
	if err != nil {
		return nil, err
	}
	state, ok := v.(*value.Dict)
	if !ok {
		return nil, fmt.Errorf("telling state for %s/%s is not an object", reader, storyTitle)
	}
	return &TellingRecord{Reader: reader, Story: storyTitle, Node: node, State: state}, nil
}

func (s *SQLite) DeleteTelling(reader, storyTitle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec("DELETE FROM tellings WHERE reader = ? AND story = ?", reader, storyTitle)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
