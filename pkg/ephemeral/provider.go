package ephemeral

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNoCredential is returned when an operation needs the current
	// credential and none is present.
	ErrNoCredential = errors.New("no ephemeral credential")

	// ErrInvalidToken is returned for tokens that fail signature, expiry
	// or claim checks.
	ErrInvalidToken = errors.New("invalid ephemeral token")
)

// Credential is a short-lived anonymous credential.
type Credential struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName,omitempty"`
	Token       string    `json:"-"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Listener receives credential changes. A nil credential means absent.
type Listener func(cred *Credential)

// Provider abstracts the anonymous authentication service.
type Provider interface {
	// Start loads any persisted credential and emits the initial present or
	// absent event to listeners.
	Start(ctx context.Context) error

	// SignIn mints a fresh credential and makes it current.
	SignIn(ctx context.Context) (*Credential, error)

	// SignOut drops the current credential.
	SignOut(ctx context.Context) error

	// UpdateDisplayName sets the display name carried by cred.
	UpdateDisplayName(ctx context.Context, cred *Credential, name string) error

	// Current returns the current credential, or nil.
	Current() *Credential

	// OnChange registers fn and returns a function that removes it.
	OnChange(fn Listener) (unsubscribe func())
}
