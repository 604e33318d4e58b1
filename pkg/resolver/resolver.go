package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/quizdesk/quizdesk/pkg/audit"
	"github.com/quizdesk/quizdesk/pkg/cache"
	"github.com/quizdesk/quizdesk/pkg/ephemeral"
	"github.com/quizdesk/quizdesk/pkg/identity"
	"github.com/quizdesk/quizdesk/pkg/model"
	"github.com/quizdesk/quizdesk/pkg/store"
)

var (
	// ErrLoginFailed is returned when a login cannot be completed. The
	// session is left as it was.
	ErrLoginFailed = errors.New("login failed")

	// ErrStoreQueryFailed marks a record lookup that failed during
	// reconciliation. It is logged and never returned.
	ErrStoreQueryFailed = errors.New("store query failed")
)

// DefaultCallTimeout bounds a single provider, store or cache call.
const DefaultCallTimeout = 5 * time.Second

// Reconciliation sources reported in logs and audit events.
const (
	SourceCache           = "cache"
	SourceRecordID        = "record-id"
	SourceLastEphemeralID = "last-ephemeral-id"
	SourceFallback        = "fallback"
	SourceRestore         = "restore"
)

// Config holds the optional settings of a Resolver.
type Config struct {
	// CallTimeout bounds each collaborator call. Defaults to DefaultCallTimeout.
	CallTimeout time.Duration
	// DefaultRole is used for new accounts. Defaults to model.DefaultRole.
	DefaultRole model.Role
	Logger      *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
	// Audit receives security events. Defaults to audit.Log.
	Audit func(audit.Event)
}

// Resolver implements login and identity reconciliation.
type Resolver struct {
	provider ephemeral.Provider
	records  store.RecordStore
	cache    cache.LocalCache

	callTimeout time.Duration
	defaultRole model.Role
	logger      *slog.Logger
	now         func() time.Time
	audit       func(audit.Event)
}

// New creates a Resolver over the three collaborators.
func New(provider ephemeral.Provider, records store.RecordStore, c cache.LocalCache, cfg Config) *Resolver {
	r := &Resolver{
		provider:    provider,
		records:     records,
		cache:       c,
		callTimeout: cfg.CallTimeout,
		defaultRole: cfg.DefaultRole,
		logger:      cfg.Logger,
		now:         cfg.Now,
		audit:       cfg.Audit,
	}
	if r.callTimeout <= 0 {
		r.callTimeout = DefaultCallTimeout
	}
	if !r.defaultRole.IsARole() {
		r.defaultRole = model.DefaultRole
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.audit == nil {
		r.audit = audit.Log
	}
	return r
}

// Cache returns the device cache the resolver writes to.
func (r *Resolver) Cache() cache.LocalCache {
	return r.cache
}

// call runs fn with the per-call timeout applied to ctx.
func (r *Resolver) call(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()
	return fn(ctx)
}

func (r *Resolver) findOne(ctx context.Context, filter store.Filter) (*model.Record, error) {
	var rec *model.Record
	err := r.call(ctx, func(ctx context.Context) error {
		var err error
		rec, err = r.records.FindOne(ctx, filter)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreQueryFailed, err)
	}
	return rec, nil
}

func (r *Resolver) findActive(ctx context.Context, username string) (*model.Record, error) {
	return r.findOne(ctx, store.Filter{Username: username, ActiveOnly: true})
}

func (r *Resolver) signIn(ctx context.Context) (*ephemeral.Credential, error) {
	var cred *ephemeral.Credential
	err := r.call(ctx, func(ctx context.Context) error {
		var err error
		cred, err = r.provider.SignIn(ctx)
		return err
	})
	return cred, err
}

func (r *Resolver) setDisplayName(ctx context.Context, cred *ephemeral.Credential, name string) {
	err := r.call(ctx, func(ctx context.Context) error {
		return r.provider.UpdateDisplayName(ctx, cred, name)
	})
	if err != nil {
		r.logger.Warn("failed to set credential display name", "credential", cred.ID, "error", err)
	}
}

func (r *Resolver) saveEntry(ctx context.Context, entry cache.Entry) {
	err := r.call(ctx, func(ctx context.Context) error {
		return cache.Save(ctx, r.cache, entry)
	})
	if err != nil {
		r.logger.Warn("failed to write cache entry", "persistent_id", entry.PersistentID, "error", err)
	}
}

func (r *Resolver) clearEntry(ctx context.Context) {
	err := r.call(ctx, func(ctx context.Context) error {
		return cache.Clear(ctx, r.cache)
	})
	if err != nil {
		r.logger.Warn("failed to clear cache entry", "error", err)
	}
}

// LoginWithUsername logs in as username, creating the account on first use.
// requestedRole only applies to new accounts; the zero Role selects the
// configured default.
func (r *Resolver) LoginWithUsername(ctx context.Context, username string, requestedRole model.Role) (*identity.Identity, error) {
	normalized, err := identity.ValidateUsername(username)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}

	id, created, err := r.login(ctx, username, normalized, requestedRole)
	if err != nil {
		r.logger.Warn("login failed", "username", normalized, "error", err)
		r.audit(audit.LoginEvent{Username: normalized, ClientIP: audit.ClientIP(ctx), ErrorMessage: err.Error()})
		return nil, fmt.Errorf("%w: %w", ErrLoginFailed, err)
	}

	r.logger.Info("logged in", "username", normalized, "persistent_id", id.PersistentID, "role", id.Role, "created", created)
	r.audit(audit.LoginEvent{
		Username:     normalized,
		PersistentID: id.PersistentID,
		Role:         id.Role.String(),
		ClientIP:     audit.ClientIP(ctx),
		Created:      created,
		Success:      true,
	})
	return id, nil
}

func (r *Resolver) login(ctx context.Context, raw, normalized string, requestedRole model.Role) (*identity.Identity, bool, error) {
	// A failed lookup cannot tell "new" from "returning"; creating here
	// could duplicate the account, so the login fails instead.
	rec, err := r.findActive(ctx, normalized)
	if err != nil {
		return nil, false, err
	}

	if rec != nil {
		id, err := r.attach(ctx, rec)
		return id, false, err
	}
	return r.create(ctx, raw, normalized, requestedRole)
}

// attach bridges a fresh credential to an existing record.
func (r *Resolver) attach(ctx context.Context, rec *model.Record) (*identity.Identity, error) {
	cred, err := r.signIn(ctx)
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}
	id, err := r.bind(ctx, rec, cred)
	if err != nil {
		r.discard(ctx, cred)
		return nil, err
	}
	return id, nil
}

// discard signs out a credential whose login did not complete. Left live,
// a restart would find it with no record or cache entry behind it.
func (r *Resolver) discard(ctx context.Context, cred *ephemeral.Credential) {
	if current := r.provider.Current(); current == nil || current.ID != cred.ID {
		return
	}
	err := r.call(context.WithoutCancel(ctx), r.provider.SignOut)
	if err != nil {
		r.logger.Warn("failed to sign out abandoned credential", "credential", cred.ID, "error", err)
	}
}

// bind records cred as the latest credential of rec and mirrors the
// resulting identity into the cache.
func (r *Resolver) bind(ctx context.Context, rec *model.Record, cred *ephemeral.Credential) (*identity.Identity, error) {
	r.setDisplayName(ctx, cred, rec.DisplayName)

	patch := store.LoginPatch(r.now(), cred.ID)
	err := r.call(ctx, func(ctx context.Context) error {
		return r.records.Merge(ctx, rec.ID, patch)
	})
	if err != nil {
		return nil, fmt.Errorf("update record %s: %w", rec.ID, err)
	}

	r.saveEntry(ctx, cache.Entry{PersistentID: rec.ID, Role: rec.Role, Username: rec.Username})
	return identity.FromRecord(rec), nil
}

func (r *Resolver) create(ctx context.Context, raw, normalized string, requestedRole model.Role) (*identity.Identity, bool, error) {
	role := requestedRole
	if !role.IsARole() {
		role = r.defaultRole
	}

	cred, err := r.signIn(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("sign in: %w", err)
	}

	id, created, err := r.insert(ctx, cred, raw, normalized, role)
	if err != nil {
		r.discard(ctx, cred)
		return nil, false, err
	}
	return id, created, nil
}

// insert creates the record for cred, or binds cred to the record of a
// concurrent writer that won the username.
func (r *Resolver) insert(ctx context.Context, cred *ephemeral.Credential, raw, normalized string, role model.Role) (*identity.Identity, bool, error) {
	displayName := strings.TrimSpace(raw)
	r.setDisplayName(ctx, cred, displayName)

	now := r.now()
	rec := model.Record{
		ID:               cred.ID,
		Username:         normalized,
		DisplayName:      displayName,
		OriginalUsername: raw,
		Role:             role,
		IsActive:         true,
		CreatedAt:        now,
		LastLoginAt:      now,
		LastEphemeralID:  cred.ID,
	}

	err := r.call(ctx, func(ctx context.Context) error {
		return r.records.Insert(ctx, rec)
	})
	if errors.Is(err, store.ErrConflict) {
		// Another writer created the account first; join it.
		winner, ferr := r.findActive(ctx, normalized)
		if ferr != nil {
			return nil, false, ferr
		}
		if winner == nil {
			return nil, false, fmt.Errorf("insert %s: %w", normalized, err)
		}
		id, err := r.bind(ctx, winner, cred)
		return id, false, err
	}
	if err != nil {
		return nil, false, fmt.Errorf("insert %s: %w", normalized, err)
	}

	r.saveEntry(ctx, cache.Entry{PersistentID: rec.ID, Role: rec.Role, Username: rec.Username})
	return identity.FromRecord(&rec), true, nil
}

// ReconcileOnEphemeralPresent resolves the identity behind a live
// credential. It never fails; at worst it returns the degraded identity.
func (r *Resolver) ReconcileOnEphemeralPresent(ctx context.Context, cred *ephemeral.Credential) *identity.Identity {
	id, source := r.resolvePresent(ctx, cred)

	degraded := source == SourceFallback
	if degraded {
		r.logger.Warn("degraded reconciliation", "credential", cred.ID, "role", id.Role)
	} else {
		r.logger.Info("session resumed", "persistent_id", id.PersistentID, "role", id.Role, "source", source)
	}
	r.audit(audit.ReconcileEvent{
		CredentialID: cred.ID,
		PersistentID: id.PersistentID,
		Role:         id.Role.String(),
		Source:       source,
		Degraded:     degraded,
	})
	return id
}

func (r *Resolver) resolvePresent(ctx context.Context, cred *ephemeral.Credential) (*identity.Identity, string) {
	var entry cache.Entry
	err := r.call(ctx, func(ctx context.Context) error {
		var err error
		entry, err = cache.Load(ctx, r.cache)
		return err
	})
	if err != nil {
		r.logger.Warn("failed to read cache entry", "error", err)
	} else if entry.Complete() {
		return &identity.Identity{
			PersistentID: entry.PersistentID,
			DisplayName:  firstNonEmpty(cred.DisplayName, entry.Username),
			Role:         entry.Role,
		}, SourceCache
	}

	tiers := []struct {
		source string
		filter store.Filter
	}{
		{SourceRecordID, store.Filter{ID: cred.ID}},
		{SourceLastEphemeralID, store.Filter{LastEphemeralID: cred.ID}},
	}
	for _, tier := range tiers {
		rec, err := r.findOne(ctx, tier.filter)
		if err != nil {
			r.logger.Warn("reconciliation tier failed", "source", tier.source, "credential", cred.ID, "error", err)
			continue
		}
		if rec == nil {
			continue
		}
		r.saveEntry(ctx, cache.Entry{PersistentID: rec.ID, Role: rec.Role, Username: rec.Username})
		return &identity.Identity{
			PersistentID: rec.ID,
			DisplayName:  firstNonEmpty(cred.DisplayName, rec.DisplayName),
			Role:         rec.Role,
		}, tier.source
	}

	return &identity.Identity{
		PersistentID: cred.ID,
		DisplayName:  cred.DisplayName,
		Role:         model.RoleAdmin,
	}, SourceFallback
}

// ReconcileOnEphemeralAbsent restores the cached session, if any. It
// returns nil when there is nothing to restore.
func (r *Resolver) ReconcileOnEphemeralAbsent(ctx context.Context) *identity.Identity {
	var username string
	err := r.call(ctx, func(ctx context.Context) error {
		var err error
		username, _, err = r.cache.Get(ctx, cache.KeyUsername)
		return err
	})
	if err != nil {
		r.logger.Warn("failed to read cached username", "error", err)
		return nil
	}
	if identity.NormalizeUsername(username) == "" {
		r.clearEntry(ctx)
		return nil
	}
	return r.RestoreFromCache(ctx, username)
}

// RestoreFromCache logs username in again without user interaction. On any
// failure the cache entry is cleared and nil is returned.
func (r *Resolver) RestoreFromCache(ctx context.Context, username string) *identity.Identity {
	normalized := identity.NormalizeUsername(username)

	id, err := r.restore(ctx, normalized)
	if err != nil || id == nil {
		if err != nil {
			r.logger.Warn("failed to restore cached session", "username", normalized, "error", err)
		} else {
			r.logger.Info("cached session has no active account", "username", normalized)
		}
		r.clearEntry(ctx)
		r.audit(audit.ReconcileEvent{Source: SourceRestore, Cleared: true})
		return nil
	}

	r.logger.Info("session restored", "username", normalized, "persistent_id", id.PersistentID, "role", id.Role)
	r.audit(audit.ReconcileEvent{
		PersistentID: id.PersistentID,
		Role:         id.Role.String(),
		Source:       SourceRestore,
	})
	return id
}

func (r *Resolver) restore(ctx context.Context, normalized string) (*identity.Identity, error) {
	if normalized == "" {
		return nil, nil
	}
	rec, err := r.findActive(ctx, normalized)
	if err != nil || rec == nil {
		return nil, err
	}
	return r.attach(ctx, rec)
}

// IsUsernameAvailable reports whether no active account uses username.
// A failed lookup reports the name as available; the login itself is the
// authoritative check.
func (r *Resolver) IsUsernameAvailable(ctx context.Context, username string) bool {
	normalized := identity.NormalizeUsername(username)
	if normalized == "" {
		return false
	}
	rec, err := r.findActive(ctx, normalized)
	if err != nil {
		r.logger.Warn("username availability check failed", "username", normalized, "error", err)
		return true
	}
	return rec == nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
