package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/quizdesk/quizdesk/pkg/audit"
	"github.com/quizdesk/quizdesk/pkg/cache"
	"github.com/quizdesk/quizdesk/pkg/ephemeral"
	"github.com/quizdesk/quizdesk/pkg/identity"
	"github.com/quizdesk/quizdesk/pkg/model"
	"github.com/quizdesk/quizdesk/pkg/resolver"
)

// ErrLogoutFailed is returned when the provider sign-out fails. The local
// session is cleared regardless.
var ErrLogoutFailed = errors.New("logout failed")

// State is a published snapshot of the session.
type State struct {
	Identity    *identity.Identity `json:"identity"`
	Initialized bool               `json:"initialized"`
}

// Authenticated reports whether the state carries an identity.
func (s State) Authenticated() bool {
	return s.Identity != nil
}

// Config holds the optional settings of a Controller.
type Config struct {
	// CallTimeout bounds the provider sign-out and cache writes done by the
	// controller itself. Defaults to resolver.DefaultCallTimeout.
	CallTimeout time.Duration
	Logger      *slog.Logger
	// Audit defaults to audit.Log.
	Audit func(audit.Event)
}

// Controller serializes session mutations and publishes their outcome.
type Controller struct {
	resolver *resolver.Resolver
	provider ephemeral.Provider
	cache    cache.LocalCache

	callTimeout time.Duration
	logger      *slog.Logger
	audit       func(audit.Event)

	queue  *queue
	stream *stream

	mu      sync.RWMutex
	state   State
	baseCtx context.Context

	ready     chan struct{}
	readyOnce sync.Once

	unsubscribe func()
	closeOnce   sync.Once
}

// NewController creates a controller. Call Start to begin receiving
// provider notifications.
func NewController(res *resolver.Resolver, provider ephemeral.Provider, cfg Config) *Controller {
	c := &Controller{
		resolver:    res,
		provider:    provider,
		cache:       res.Cache(),
		callTimeout: cfg.CallTimeout,
		logger:      cfg.Logger,
		audit:       cfg.Audit,
		queue:       newQueue(),
		stream:      newStream(),
		baseCtx:     context.Background(),
		ready:       make(chan struct{}),
	}
	if c.callTimeout <= 0 {
		c.callTimeout = resolver.DefaultCallTimeout
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.audit == nil {
		c.audit = audit.Log
	}
	return c
}

// Start subscribes to the provider and asks it for its initial credential.
// ctx is used for the reconciliations triggered by provider notifications
// until Close.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.unsubscribe != nil {
		c.mu.Unlock()
		return errors.New("session controller already started")
	}
	c.baseCtx = ctx
	c.unsubscribe = c.provider.OnChange(c.onProviderChange)
	c.mu.Unlock()

	if err := c.provider.Start(ctx); err != nil {
		// Treat an unreadable credential as absent so readiness still flips.
		c.logger.Warn("ephemeral provider failed to start", "error", err)
		c.onProviderChange(nil)
	}
	return nil
}

// Close stops the controller. Pending operations fail with ErrClosed and
// subscriber channels are closed.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		unsubscribe := c.unsubscribe
		c.mu.Unlock()
		if unsubscribe != nil {
			unsubscribe()
		}
		c.queue.close()
		c.stream.close()
	})
}

func (c *Controller) onProviderChange(cred *ephemeral.Credential) {
	c.queue.push(func() {
		c.mu.RLock()
		ctx := c.baseCtx
		c.mu.RUnlock()
		c.handleProviderChange(ctx, cred)
	})
}

func (c *Controller) handleProviderChange(ctx context.Context, cred *ephemeral.Credential) {
	if c.Initialized() {
		// Login, logout and restore publish their own outcome; the
		// notifications they cause are already reflected. Only a credential
		// that disappears under a live session needs reconciling.
		if cred == nil && c.Current() != nil {
			c.logger.Info("ephemeral credential lost, restoring session")
			c.publish(c.resolver.ReconcileOnEphemeralAbsent(ctx))
		}
		return
	}

	var id *identity.Identity
	if cred != nil {
		id = c.resolver.ReconcileOnEphemeralPresent(ctx, cred)
	} else {
		id = c.resolver.ReconcileOnEphemeralAbsent(ctx)
	}

	c.mu.Lock()
	c.state = State{Identity: id, Initialized: true}
	state := c.state
	c.mu.Unlock()
	c.stream.publish(state)

	c.readyOnce.Do(func() { close(c.ready) })
	c.logger.Debug("session initialized", "authenticated", id != nil)
}

// publish replaces the identity and notifies subscribers. Only queue tasks
// call it.
func (c *Controller) publish(id *identity.Identity) {
	c.mu.Lock()
	c.state.Identity = id
	state := c.state
	c.mu.Unlock()
	c.stream.publish(state)
}

// Ready is closed once the session has been initialized.
func (c *Controller) Ready() <-chan struct{} {
	return c.ready
}

// WaitForAuth blocks until the session is initialized and returns the
// identity at that point, which is nil when unauthenticated.
func (c *Controller) WaitForAuth(ctx context.Context) (*identity.Identity, error) {
	select {
	case <-c.ready:
		return c.Current(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Subscribe returns a channel of session states, starting with the current
// one, and a function that ends the subscription.
func (c *Controller) Subscribe() (<-chan State, func()) {
	return c.stream.subscribe()
}

// Login logs in as username. requestedRole only applies to new accounts.
func (c *Controller) Login(ctx context.Context, username string, requestedRole model.Role) (*identity.Identity, error) {
	var id *identity.Identity
	err := c.queue.do(ctx, func(ctx context.Context) error {
		var err error
		id, err = c.resolver.LoginWithUsername(ctx, username, requestedRole)
		if err != nil {
			return err
		}
		c.publish(id)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return id, nil
}

// Logout signs out and clears the local session. The local state is
// cleared even when the provider fails, in which case ErrLogoutFailed is
// returned.
func (c *Controller) Logout(ctx context.Context) error {
	return c.queue.do(ctx, func(ctx context.Context) error {
		prev := c.Current()

		callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
		signOutErr := c.provider.SignOut(callCtx)
		cancel()

		callCtx, cancel = context.WithTimeout(ctx, c.callTimeout)
		keys := append(append([]string{}, cache.EntryKeys...), cache.KeyRedirectURL)
		if err := c.cache.Remove(callCtx, keys...); err != nil {
			c.logger.Warn("failed to clear cache on logout", "error", err)
		}
		cancel()

		c.publish(nil)

		event := audit.LogoutEvent{Success: signOutErr == nil, ClientIP: audit.ClientIP(ctx)}
		if prev != nil {
			event.PersistentID = prev.PersistentID
		}
		if signOutErr != nil {
			event.ErrorMessage = signOutErr.Error()
			c.logger.Warn("provider sign-out failed", "error", signOutErr)
			c.audit(event)
			return fmt.Errorf("%w: %w", ErrLogoutFailed, signOutErr)
		}
		c.logger.Info("logged out", "persistent_id", event.PersistentID)
		c.audit(event)
		return nil
	})
}

// State returns the last published state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Initialized reports whether the first provider notification has been
// reconciled.
func (c *Controller) Initialized() bool {
	return c.State().Initialized
}

// Current returns the current identity, or nil.
func (c *Controller) Current() *identity.Identity {
	return c.State().Identity
}

// IsAuthenticated reports whether an identity is published.
func (c *Controller) IsAuthenticated() bool {
	return c.Current() != nil
}

// IsAdmin reports whether the current identity is an admin.
func (c *Controller) IsAdmin() bool {
	return c.Current().IsAdmin()
}

// IsStudent reports whether the current identity is a student.
func (c *Controller) IsStudent() bool {
	return c.Current().IsStudent()
}

// Role returns the role of the current identity and whether there is one.
func (c *Controller) Role() (model.Role, bool) {
	id := c.Current()
	if id == nil {
		return 0, false
	}
	return id.Role, true
}

// Username returns the display name of the current identity.
func (c *Controller) Username() string {
	if id := c.Current(); id != nil {
		return id.DisplayName
	}
	return ""
}

// UserID returns the persistent id of the current identity, falling back
// to the cached id when no identity is published.
func (c *Controller) UserID(ctx context.Context) string {
	if id := c.Current(); id != nil {
		return id.PersistentID
	}

	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()
	cached, _, err := c.cache.Get(ctx, cache.KeyUserID)
	if err != nil {
		c.logger.Warn("failed to read cached user id", "error", err)
		return ""
	}
	return cached
}

// TakeResumeDestination returns and forgets the destination recorded when
// an unauthenticated navigation was redirected to login.
func (c *Controller) TakeResumeDestination(ctx context.Context) (string, error) {
	var dest string
	err := c.queue.do(ctx, func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
		defer cancel()

		var err error
		dest, _, err = c.cache.Get(ctx, cache.KeyRedirectURL)
		if err != nil {
			return err
		}
		if dest == "" {
			return nil
		}
		return c.cache.Remove(ctx, cache.KeyRedirectURL)
	})
	return dest, err
}

// IsUsernameAvailable reports whether username is free for a new account.
func (c *Controller) IsUsernameAvailable(ctx context.Context, username string) bool {
	return c.resolver.IsUsernameAvailable(ctx, username)
}
