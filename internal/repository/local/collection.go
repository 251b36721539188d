package local

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ldotspots/zuco-motors/internal/repository"
)

// Collection is one "zuco_" array inside the store. Every call reads and
// writes the whole array under the store lock.
type Collection[T repository.Record] struct {
	store *Store
	key   string
}

func NewCollection[T repository.Record](s *Store, table string) *Collection[T] {
	return &Collection[T]{store: s, key: keyPrefix + table}
}

func (c *Collection[T]) load() ([]T, error) {
	var recs []T
	raw, ok := c.store.docs[c.key]
	if !ok {
		return recs, nil
	}
	if err := json.Unmarshal(raw, &recs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", c.key, err)
	}
	return recs, nil
}

func (c *Collection[T]) save(recs []T) error {
	if recs == nil {
		recs = []T{}
	}
	raw, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.key, err)
	}
	prev, had := c.store.docs[c.key]
	c.store.docs[c.key] = raw
	if err := c.store.flush(); err != nil {
		if had {
			c.store.docs[c.key] = prev
		} else {
			delete(c.store.docs, c.key)
		}
		return err
	}
	return nil
}

func index[T repository.Record](recs []T, id string) int {
	for i, r := range recs {
		if r.RecordID() == id {
			return i
		}
	}
	return -1
}

func (c *Collection[T]) Create(_ context.Context, rec T) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	recs, err := c.load()
	if err != nil {
		return err
	}
	if index(recs, rec.RecordID()) >= 0 {
		return repository.ErrConflict
	}
	return c.save(append(recs, rec))
}

func (c *Collection[T]) Get(_ context.Context, id string) (T, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	var zero T
	recs, err := c.load()
	if err != nil {
		return zero, err
	}
	i := index(recs, id)
	if i < 0 {
		return zero, repository.ErrNotFound
	}
	return recs[i], nil
}

func (c *Collection[T]) Update(ctx context.Context, rec T) error {
	_, err := c.Mutate(ctx, rec.RecordID(), func(cur *T) error {
		*cur = rec
		return nil
	})
	return err
}

// Mutate applies fn to the stored record and saves the result atomically.
func (c *Collection[T]) Mutate(_ context.Context, id string, fn func(*T) error) (T, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	var zero T
	recs, err := c.load()
	if err != nil {
		return zero, err
	}
	i := index(recs, id)
	if i < 0 {
		return zero, repository.ErrNotFound
	}
	if err := fn(&recs[i]); err != nil {
		return zero, err
	}
	if err := c.save(recs); err != nil {
		return zero, err
	}
	return recs[i], nil
}

func (c *Collection[T]) Delete(_ context.Context, id string) error {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	recs, err := c.load()
	if err != nil {
		return err
	}
	i := index(recs, id)
	if i < 0 {
		return repository.ErrNotFound
	}
	return c.save(append(recs[:i], recs[i+1:]...))
}

// List returns the records matching f in insertion order.
func (c *Collection[T]) List(_ context.Context, f repository.Filter) ([]T, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	recs, err := c.load()
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(recs))
	for _, rec := range recs {
		if len(f) > 0 {
			doc, err := asDoc(rec)
			if err != nil {
				return nil, err
			}
			if !f.Matches(doc) {
				continue
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

func (c *Collection[T]) IDs(_ context.Context, prefix string) ([]string, error) {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()

	recs, err := c.load()
	if err != nil {
		return nil, err
	}
	ids := []string{}
	for _, rec := range recs {
		if strings.HasPrefix(rec.RecordID(), prefix) {
			ids = append(ids, rec.RecordID())
		}
	}
	return ids, nil
}

func asDoc(rec any) (map[string]any, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
