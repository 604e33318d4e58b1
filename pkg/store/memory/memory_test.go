package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizdesk/quizdesk/pkg/model"
	"github.com/quizdesk/quizdesk/pkg/store"
)

func record(id, username string, active bool, created time.Time) model.Record {
	return model.Record{
		ID:               id,
		Username:         username,
		DisplayName:      username,
		OriginalUsername: username,
		Role:             model.RoleAdmin,
		IsActive:         active,
		CreatedAt:        created,
		LastLoginAt:      created,
		LastEphemeralID:  id,
	}
}

func TestRecordStore_InsertAndFind(t *testing.T) {
	ctx := context.Background()
	s := NewRecordStore()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.Insert(ctx, record("p1", "alice", true, t0)))

	rec, err := s.FindOne(ctx, store.Filter{Username: "alice", ActiveOnly: true})
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "p1", rec.ID)

	rec, err = s.FindOne(ctx, store.Filter{Username: "bob"})
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestRecordStore_InsertConflict(t *testing.T) {
	ctx := context.Background()
	s := NewRecordStore()
	t0 := time.Now()

	require.NoError(t, s.Insert(ctx, record("p1", "alice", true, t0)))

	err := s.Insert(ctx, record("p2", "alice", true, t0))
	assert.ErrorIs(t, err, store.ErrConflict)

	err = s.Insert(ctx, record("p1", "other", true, t0))
	assert.ErrorIs(t, err, store.ErrConflict)

	// An inactive record may share the username.
	assert.NoError(t, s.Insert(ctx, record("p3", "alice", false, t0)))
}

func TestRecordStore_InsertRejectsMalformed(t *testing.T) {
	err := NewRecordStore().Insert(context.Background(), model.Record{ID: "p1"})
	assert.ErrorIs(t, err, store.ErrMalformedRecord)
}

func TestRecordStore_FindManyRejectsMalformed(t *testing.T) {
	s := NewRecordStore()
	bad := record("p1", "alice", true, time.Now())
	bad.Role = 0
	s.records[bad.ID] = bad

	got, err := s.FindMany(context.Background(), store.Filter{Username: "alice"})
	assert.ErrorIs(t, err, store.ErrMalformedRecord)
	assert.Nil(t, got)

	_, err = s.FindOne(context.Background(), store.Filter{ID: "p1"})
	assert.ErrorIs(t, err, store.ErrMalformedRecord)
}

func TestRecordStore_FindManyOrdersByCreation(t *testing.T) {
	ctx := context.Background()
	s := NewRecordStore()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.Insert(ctx, record("late", "alice", false, t0.Add(time.Hour))))
	require.NoError(t, s.Insert(ctx, record("early", "alice", true, t0)))

	found, err := s.FindMany(ctx, store.Filter{Username: "alice"})
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "early", found[0].ID)
	assert.Equal(t, "late", found[1].ID)
}

func TestRecordStore_Merge(t *testing.T) {
	ctx := context.Background()
	s := NewRecordStore()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.Insert(ctx, record("p1", "alice", true, t0)))

	t1 := t0.Add(24 * time.Hour)
	require.NoError(t, s.Merge(ctx, "p1", store.LoginPatch(t1, "eph-9")))

	rec, err := s.FindOne(ctx, store.Filter{LastEphemeralID: "eph-9"})
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "p1", rec.ID)
	assert.Equal(t, t1, rec.LastLoginAt)
	assert.Equal(t, t0, rec.CreatedAt)

	err = s.Merge(ctx, "missing", store.LoginPatch(t1, "eph-9"))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRecordStore_ReactivateConflict(t *testing.T) {
	ctx := context.Background()
	s := NewRecordStore()
	t0 := time.Now()
	require.NoError(t, s.Insert(ctx, record("old", "alice", false, t0)))
	require.NoError(t, s.Insert(ctx, record("new", "alice", true, t0)))

	active := true
	err := s.Merge(ctx, "old", store.Patch{IsActive: &active})
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestRecordStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewRecordStore()
	_, err := s.FindOne(ctx, store.Filter{Username: "alice"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, s.CheckConnectivity(ctx), context.Canceled)
}
