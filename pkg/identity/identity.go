package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/quizdesk/quizdesk/pkg/model"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

const (
	// Key is the context key for Identity.
	Key ContextKey = "identity"
)

// ErrEmptyUsername is returned when a username is blank after normalization.
var ErrEmptyUsername = errors.New("username is required")

// Identity is the resolved user of the current session.
type Identity struct {
	PersistentID string     `json:"persistentId"`
	DisplayName  string     `json:"displayName"`
	Role         model.Role `json:"role"`
}

// IsAdmin reports whether the identity carries the admin role.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == model.RoleAdmin
}

// IsStudent reports whether the identity carries the student role.
func (i *Identity) IsStudent() bool {
	return i != nil && i.Role == model.RoleStudent
}

// FromRecord builds the identity for a stored record.
func FromRecord(rec *model.Record) *Identity {
	return &Identity{
		PersistentID: rec.ID,
		DisplayName:  rec.DisplayName,
		Role:         rec.Role,
	}
}

// NormalizeUsername trims surrounding whitespace and lowercases the name.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// ValidateUsername normalizes username and rejects blank names.
func ValidateUsername(username string) (string, error) {
	normalized := NormalizeUsername(username)
	if normalized == "" {
		return "", ErrEmptyUsername
	}
	return normalized, nil
}

// Get retrieves Identity from context.
func Get(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(Key).(*Identity)
	return id, ok && id != nil
}

// Set stores Identity in context.
func Set(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, Key, id)
}
