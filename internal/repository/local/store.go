// Package local keeps every collection in a single JSON document on disk,
// one array per "zuco_" key. A document written by a different schema
// version is discarded and reseeded.
package local

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	SchemaVersion = 4

	keyPrefix  = "zuco_"
	versionKey = "zuco_schema_version"
)

// Dataset maps a table name to a slice of records.
type Dataset map[string]any

type Seeder func() (Dataset, error)

// Empty seeds nothing.
func Empty() Seeder {
	return func() (Dataset, error) { return Dataset{}, nil }
}

type Store struct {
	mu   sync.Mutex
	path string
	docs map[string]json.RawMessage
}

// Open loads the document at path, reseeding it when it is missing or
// carries another schema version. An empty path keeps everything in memory.
func Open(path string, seed Seeder) (*Store, error) {
	s := &Store{path: path, docs: map[string]json.RawMessage{}}

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := json.Unmarshal(raw, &s.docs); err != nil {
				s.docs = map[string]json.RawMessage{}
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("read store: %w", err)
		}
	}

	if s.version() != SchemaVersion {
		if err := s.reseed(seed); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) version() int {
	var v int
	if raw, ok := s.docs[versionKey]; ok {
		_ = json.Unmarshal(raw, &v)
	}
	return v
}

func (s *Store) reseed(seed Seeder) error {
	data, err := seed()
	if err != nil {
		return fmt.Errorf("seed store: %w", err)
	}

	s.docs = map[string]json.RawMessage{}
	for table, rows := range data {
		raw, err := json.Marshal(rows)
		if err != nil {
			return fmt.Errorf("encode seed %s: %w", table, err)
		}
		s.docs[keyPrefix+table] = raw
	}
	s.docs[versionKey] = json.RawMessage(fmt.Sprint(SchemaVersion))
	return s.flush()
}

// flush writes the document through a temp file so a crash never leaves a
// half written store behind. Callers hold mu.
func (s *Store) flush() error {
	if s.path == "" {
		return nil
	}
	raw, err := json.MarshalIndent(s.docs, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace store: %w", err)
	}
	return nil
}
