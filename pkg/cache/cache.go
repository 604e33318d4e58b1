// Package cache defines the device-scoped key/value cache that mirrors the
// last resolved identity.
//
// The cache is a continuity hint, never a source of truth: the resolver
// consults it first when an ephemeral credential reappears, and falls back
// to the record store when the entry is missing or incomplete.
package cache

import (
	"context"

	"github.com/quizdesk/quizdesk/pkg/model"
)

// Well-known keys.
const (
	KeyUserID      = "userId"
	KeyUserRole    = "userRole"
	KeyUsername    = "username"
	KeyRedirectURL = "redirectUrl"
)

// EntryKeys are the keys that together form an Entry.
var EntryKeys = []string{KeyUserID, KeyUserRole, KeyUsername}

// LocalCache is a string key/value store scoped to one device.
type LocalCache interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
	// Remove deletes the given keys. Missing keys are ignored.
	Remove(ctx context.Context, keys ...string) error
}

// Entry is the cached mirror of a resolved identity.
type Entry struct {
	PersistentID string
	Role         model.Role
	Username     string
}

// Complete reports whether the entry is usable on its own: it needs both
// a persistent id and a known role.
func (e Entry) Complete() bool {
	return e.PersistentID != "" && e.Role.IsARole()
}

// Load reads the entry keys. Missing keys leave the matching field empty
// and an unparseable role leaves Role unset.
func Load(ctx context.Context, c LocalCache) (Entry, error) {
	var e Entry
	var err error

	if e.PersistentID, _, err = c.Get(ctx, KeyUserID); err != nil {
		return Entry{}, err
	}
	if e.Username, _, err = c.Get(ctx, KeyUsername); err != nil {
		return Entry{}, err
	}
	role, _, err := c.Get(ctx, KeyUserRole)
	if err != nil {
		return Entry{}, err
	}
	if parsed, perr := model.RoleString(role); perr == nil {
		e.Role = parsed
	}
	return e, nil
}

// Save writes every entry key.
func Save(ctx context.Context, c LocalCache, e Entry) error {
	if err := c.Set(ctx, KeyUserID, e.PersistentID); err != nil {
		return err
	}
	if err := c.Set(ctx, KeyUserRole, e.Role.String()); err != nil {
		return err
	}
	return c.Set(ctx, KeyUsername, e.Username)
}

// Clear removes the entry keys.
func Clear(ctx context.Context, c LocalCache) error {
	return c.Remove(ctx, EntryKeys...)
}
