package store

import (
	"context"
	"errors"
	"time"

	"github.com/quizdesk/quizdesk/pkg/model"
)

var (
	// ErrNotFound is returned by Merge when no record has the given id.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned by Insert when an active record already holds
	// the username, or when the id is taken.
	ErrConflict = errors.New("record conflicts with an existing record")

	// ErrMalformedRecord is returned when a record fails validation.
	ErrMalformedRecord = model.ErrMalformedRecord
)

// Filter selects records by field equality. Zero-valued fields are ignored.
type Filter struct {
	ID              string
	Username        string
	LastEphemeralID string
	ActiveOnly      bool
}

// Patch lists the fields merged into an existing record. Nil fields are
// left untouched.
type Patch struct {
	DisplayName     *string
	IsActive        *bool
	LastLoginAt     *time.Time
	LastEphemeralID *string
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.DisplayName == nil && p.IsActive == nil && p.LastLoginAt == nil && p.LastEphemeralID == nil
}

// Apply merges the patch into rec.
func (p Patch) Apply(rec *model.Record) {
	if p.DisplayName != nil {
		rec.DisplayName = *p.DisplayName
	}
	if p.IsActive != nil {
		rec.IsActive = *p.IsActive
	}
	if p.LastLoginAt != nil {
		rec.LastLoginAt = *p.LastLoginAt
	}
	if p.LastEphemeralID != nil {
		rec.LastEphemeralID = *p.LastEphemeralID
	}
}

// LoginPatch is the merge written on every successful login.
func LoginPatch(at time.Time, ephemeralID string) Patch {
	return Patch{LastLoginAt: &at, LastEphemeralID: &ephemeralID}
}

// RecordStore abstracts the durable user record collection.
type RecordStore interface {
	// FindOne returns the first record matching filter, or nil when none does.
	FindOne(ctx context.Context, filter Filter) (*model.Record, error)

	// FindMany returns every record matching filter, oldest first.
	FindMany(ctx context.Context, filter Filter) ([]model.Record, error)

	// Insert creates rec. It fails with ErrConflict when rec is active and
	// another active record has the same username.
	Insert(ctx context.Context, rec model.Record) error

	// Merge applies patch to the record with the given id.
	Merge(ctx context.Context, id string, patch Patch) error
}

// HealthStore provides health check operations
type HealthStore interface {
	// CheckConnectivity verifies the backing store is reachable
	CheckConnectivity(ctx context.Context) error
}
