// Package memory provides a process-local RecordStore.
//
// It backs `quizctl server --store memory` and the in-process test suites.
// Contents are lost when the process exits.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/quizdesk/quizdesk/pkg/model"
	"github.com/quizdesk/quizdesk/pkg/store"
)

var (
	_ store.RecordStore = (*RecordStore)(nil)
	_ store.HealthStore = (*RecordStore)(nil)
)

// RecordStore keeps records in a map guarded by a read/write mutex.
type RecordStore struct {
	mu      sync.RWMutex
	records map[string]model.Record
}

// NewRecordStore returns an empty store.
func NewRecordStore() *RecordStore {
	return &RecordStore{records: make(map[string]model.Record)}
}

func matches(rec model.Record, f store.Filter) bool {
	if f.ID != "" && rec.ID != f.ID {
		return false
	}
	if f.Username != "" && rec.Username != f.Username {
		return false
	}
	if f.LastEphemeralID != "" && rec.LastEphemeralID != f.LastEphemeralID {
		return false
	}
	if f.ActiveOnly && !rec.IsActive {
		return false
	}
	return true
}

// FindOne returns the oldest record matching filter.
func (s *RecordStore) FindOne(ctx context.Context, filter store.Filter) (*model.Record, error) {
	found, err := s.FindMany(ctx, filter)
	if err != nil || len(found) == 0 {
		return nil, err
	}
	return &found[0], nil
}

// FindMany returns the matching records ordered by creation time.
func (s *RecordStore) FindMany(ctx context.Context, filter store.Filter) ([]model.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var found []model.Record
	for _, rec := range s.records {
		if !matches(rec, filter) {
			continue
		}
		if err := rec.Validate(); err != nil {
			return nil, err
		}
		found = append(found, rec)
	}
	sort.Slice(found, func(i, j int) bool {
		if found[i].CreatedAt.Equal(found[j].CreatedAt) {
			return found[i].ID < found[j].ID
		}
		return found[i].CreatedAt.Before(found[j].CreatedAt)
	})
	return found, nil
}

// Insert stores rec unless its id or active username is already taken.
func (s *RecordStore) Insert(ctx context.Context, rec model.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := rec.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[rec.ID]; ok {
		return store.ErrConflict
	}
	if rec.IsActive {
		for _, existing := range s.records {
			if existing.IsActive && existing.Username == rec.Username {
				return store.ErrConflict
			}
		}
	}
	s.records[rec.ID] = rec
	return nil
}

// Merge applies patch to the record with id.
func (s *RecordStore) Merge(ctx context.Context, id string, patch store.Patch) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return store.ErrNotFound
	}
	if patch.IsActive != nil && *patch.IsActive && !rec.IsActive {
		for otherID, other := range s.records {
			if otherID != id && other.IsActive && other.Username == rec.Username {
				return store.ErrConflict
			}
		}
	}
	patch.Apply(&rec)
	s.records[id] = rec
	return nil
}

// CheckConnectivity always succeeds for the in-process store.
func (s *RecordStore) CheckConnectivity(ctx context.Context) error {
	return ctx.Err()
}
