package resolver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizdesk/quizdesk/pkg/audit"
	"github.com/quizdesk/quizdesk/pkg/cache"
	"github.com/quizdesk/quizdesk/pkg/cache/sqlite"
	"github.com/quizdesk/quizdesk/pkg/ephemeral"
	"github.com/quizdesk/quizdesk/pkg/identity"
	"github.com/quizdesk/quizdesk/pkg/model"
	"github.com/quizdesk/quizdesk/pkg/store"
	"github.com/quizdesk/quizdesk/pkg/store/memory"
)

var (
	testKey = []byte("0123456789abcdef0123456789abcdef")
	t0      = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
)

// flakyStore wraps the memory store and fails selected lookups.
type flakyStore struct {
	*memory.RecordStore

	mu       sync.Mutex
	findErr  func(store.Filter) error
	mergeErr  error
	insertErr error
	lookups   []store.Filter
}

func (s *flakyStore) Insert(ctx context.Context, rec model.Record) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	return s.RecordStore.Insert(ctx, rec)
}

func (s *flakyStore) FindOne(ctx context.Context, filter store.Filter) (*model.Record, error) {
	s.mu.Lock()
	s.lookups = append(s.lookups, filter)
	fail := s.findErr
	s.mu.Unlock()
	if fail != nil {
		if err := fail(filter); err != nil {
			return nil, err
		}
	}
	return s.RecordStore.FindOne(ctx, filter)
}

func (s *flakyStore) Merge(ctx context.Context, id string, patch store.Patch) error {
	if s.mergeErr != nil {
		return s.mergeErr
	}
	return s.RecordStore.Merge(ctx, id, patch)
}

func (s *flakyStore) Lookups() []store.Filter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]store.Filter(nil), s.lookups...)
}

// failingProvider refuses to mint credentials.
type failingProvider struct {
	*ephemeral.TokenProvider
}

func (failingProvider) SignIn(context.Context) (*ephemeral.Credential, error) {
	return nil, errors.New("provider unavailable")
}

type fixture struct {
	resolver *Resolver
	provider *ephemeral.TokenProvider
	records  *flakyStore
	cache    *sqlite.Cache

	mu     sync.Mutex
	events []audit.Event
}

func (f *fixture) Events() []audit.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]audit.Event(nil), f.events...)
}

func newFixture(t *testing.T, records *flakyStore) *fixture {
	t.Helper()
	c, err := sqlite.Open(context.Background(), sqlite.InMemory)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	if records == nil {
		records = &flakyStore{RecordStore: memory.NewRecordStore()}
	}
	f := &fixture{records: records, cache: c}
	f.provider = ephemeral.NewTokenProvider(testKey, time.Hour, c).WithClock(func() time.Time { return t0 })
	f.resolver = New(f.provider, records, c, Config{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:    func() time.Time { return t0 },
		Audit: func(e audit.Event) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.events = append(f.events, e)
		},
	})
	return f
}

func (f *fixture) entry(t *testing.T) cache.Entry {
	t.Helper()
	e, err := cache.Load(context.Background(), f.cache)
	require.NoError(t, err)
	return e
}

func seed(t *testing.T, s store.RecordStore, rec model.Record) {
	t.Helper()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = t0.Add(-24 * time.Hour)
		rec.LastLoginAt = rec.CreatedAt
	}
	require.NoError(t, s.Insert(context.Background(), rec))
}

func TestLoginWithUsername_CreatesAccount(t *testing.T) {
	ctx := audit.WithClientIP(context.Background(), "10.1.2.3")
	f := newFixture(t, nil)

	id, err := f.resolver.LoginWithUsername(ctx, "  Alice ", model.RoleStudent)
	require.NoError(t, err)

	cred := f.provider.Current()
	require.NotNil(t, cred)
	assert.Equal(t, cred.ID, id.PersistentID)
	assert.Equal(t, model.RoleStudent, id.Role)
	assert.Equal(t, "Alice", id.DisplayName)
	assert.Equal(t, "Alice", cred.DisplayName)

	rec, err := f.records.FindOne(ctx, store.Filter{ID: id.PersistentID})
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "alice", rec.Username)
	assert.Equal(t, "  Alice ", rec.OriginalUsername)
	assert.Equal(t, cred.ID, rec.LastEphemeralID)
	assert.True(t, rec.IsActive)

	assert.Equal(t, cache.Entry{PersistentID: id.PersistentID, Role: model.RoleStudent, Username: "alice"}, f.entry(t))

	events := f.Events()
	require.Len(t, events, 1)
	login, ok := events[0].(audit.LoginEvent)
	require.True(t, ok)
	assert.True(t, login.Success)
	assert.True(t, login.Created)
	assert.Equal(t, "10.1.2.3", login.ClientIP)
}

func TestLoginWithUsername_DefaultRole(t *testing.T) {
	f := newFixture(t, nil)

	id, err := f.resolver.LoginWithUsername(context.Background(), "bob", 0)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, id.Role)
}

func TestLoginWithUsername_ReturningUserKeepsIDAndRole(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	first, err := f.resolver.LoginWithUsername(ctx, "carol", model.RoleStudent)
	require.NoError(t, err)
	firstCred := f.provider.Current()

	// A later login from a fresh credential, asking for another role.
	second, err := f.resolver.LoginWithUsername(ctx, "CAROL", model.RoleAdmin)
	require.NoError(t, err)
	secondCred := f.provider.Current()

	assert.NotEqual(t, firstCred.ID, secondCred.ID)
	assert.Equal(t, first.PersistentID, second.PersistentID)
	assert.Equal(t, model.RoleStudent, second.Role)
	assert.Equal(t, "carol", secondCred.DisplayName)

	rec, err := f.records.FindOne(ctx, store.Filter{ID: first.PersistentID})
	require.NoError(t, err)
	assert.Equal(t, secondCred.ID, rec.LastEphemeralID)

	all, err := f.records.FindMany(ctx, store.Filter{Username: "carol"})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestLoginWithUsername_EmptyUsername(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.resolver.LoginWithUsername(context.Background(), "   ", model.RoleAdmin)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLoginFailed)
	assert.ErrorIs(t, err, identity.ErrEmptyUsername)
	assert.Nil(t, f.provider.Current())
}

func TestLoginWithUsername_LookupFailureDoesNotCreate(t *testing.T) {
	ctx := context.Background()
	records := &flakyStore{
		RecordStore: memory.NewRecordStore(),
		findErr:     func(store.Filter) error { return errors.New("connection refused") },
	}
	f := newFixture(t, records)

	_, err := f.resolver.LoginWithUsername(ctx, "dave", model.RoleAdmin)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLoginFailed)
	assert.ErrorIs(t, err, ErrStoreQueryFailed)

	all, err := records.RecordStore.FindMany(ctx, store.Filter{})
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Nil(t, f.provider.Current())

	events := f.Events()
	require.Len(t, events, 1)
	assert.False(t, events[0].(audit.LoginEvent).Success)
}

func TestLoginWithUsername_SignInFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.resolver.provider = failingProvider{f.provider}

	_, err := f.resolver.LoginWithUsername(context.Background(), "erin", model.RoleAdmin)
	assert.ErrorIs(t, err, ErrLoginFailed)
	assert.Equal(t, cache.Entry{}, f.entry(t))
}

func TestLoginWithUsername_MergeFailure(t *testing.T) {
	ctx := context.Background()
	records := &flakyStore{RecordStore: memory.NewRecordStore(), mergeErr: errors.New("write failed")}
	seed(t, records, model.Record{ID: "p-frank", Username: "frank", DisplayName: "Frank", Role: model.RoleAdmin, IsActive: true})
	f := newFixture(t, records)

	_, err := f.resolver.LoginWithUsername(ctx, "frank", model.RoleAdmin)
	assert.ErrorIs(t, err, ErrLoginFailed)
	assert.Equal(t, cache.Entry{}, f.entry(t))
	assert.Nil(t, f.provider.Current())
}

func TestLoginWithUsername_InsertFailureSignsOut(t *testing.T) {
	ctx := context.Background()
	records := &flakyStore{RecordStore: memory.NewRecordStore(), insertErr: errors.New("write failed")}
	f := newFixture(t, records)

	_, err := f.resolver.LoginWithUsername(ctx, "sam", model.RoleStudent)
	assert.ErrorIs(t, err, ErrLoginFailed)
	assert.Nil(t, f.provider.Current())

	token, ok, err := f.cache.Get(ctx, ephemeral.CacheKey)
	require.NoError(t, err)
	assert.False(t, ok, "abandoned token still persisted: %s", token)
}

func TestLoginWithUsername_ConcurrentLoginsShareOneRecord(t *testing.T) {
	ctx := context.Background()
	shared := &flakyStore{RecordStore: memory.NewRecordStore()}

	const devices = 8
	fixtures := make([]*fixture, devices)
	for i := range fixtures {
		fixtures[i] = newFixture(t, shared)
	}

	ids := make([]string, devices)
	var wg sync.WaitGroup
	for i, f := range fixtures {
		wg.Add(1)
		go func(i int, f *fixture) {
			defer wg.Done()
			id, err := f.resolver.LoginWithUsername(ctx, "grace", model.RoleStudent)
			if assert.NoError(t, err) {
				ids[i] = id.PersistentID
			}
		}(i, f)
	}
	wg.Wait()

	active, err := shared.FindMany(ctx, store.Filter{Username: "grace", ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, active, 1)
	for _, id := range ids {
		assert.Equal(t, active[0].ID, id)
	}
}

func TestReconcileOnEphemeralPresent_CacheFirst(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	cred, err := f.provider.SignIn(ctx)
	require.NoError(t, err)
	require.NoError(t, cache.Save(ctx, f.cache, cache.Entry{PersistentID: "p-cached", Role: model.RoleStudent, Username: "heidi"}))

	id := f.resolver.ReconcileOnEphemeralPresent(ctx, cred)

	assert.Equal(t, &identity.Identity{PersistentID: "p-cached", DisplayName: "heidi", Role: model.RoleStudent}, id)
	assert.Empty(t, f.records.Lookups())
	assert.Equal(t, SourceCache, f.Events()[0].(audit.ReconcileEvent).Source)
}

func TestReconcileOnEphemeralPresent_IncompleteCacheFallsThrough(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	cred, err := f.provider.SignIn(ctx)
	require.NoError(t, err)
	seed(t, f.records, model.Record{ID: cred.ID, Username: "ivan", DisplayName: "Ivan", Role: model.RoleStudent, IsActive: true})
	require.NoError(t, f.cache.Set(ctx, cache.KeyUserID, "p-stale"))

	id := f.resolver.ReconcileOnEphemeralPresent(ctx, cred)

	assert.Equal(t, cred.ID, id.PersistentID)
	assert.Equal(t, model.RoleStudent, id.Role)
	assert.Equal(t, "Ivan", id.DisplayName)
	assert.Equal(t, cache.Entry{PersistentID: cred.ID, Role: model.RoleStudent, Username: "ivan"}, f.entry(t))
}

func TestReconcileOnEphemeralPresent_LastEphemeralID(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	cred, err := f.provider.SignIn(ctx)
	require.NoError(t, err)
	seed(t, f.records, model.Record{ID: "p-judy", Username: "judy", DisplayName: "Judy", Role: model.RoleAdmin, IsActive: true, LastEphemeralID: cred.ID})

	id := f.resolver.ReconcileOnEphemeralPresent(ctx, cred)

	assert.Equal(t, "p-judy", id.PersistentID)
	assert.Equal(t, model.RoleAdmin, id.Role)
	lookups := f.records.Lookups()
	require.Len(t, lookups, 2)
	assert.Equal(t, store.Filter{ID: cred.ID}, lookups[0])
	assert.Equal(t, store.Filter{LastEphemeralID: cred.ID}, lookups[1])
	assert.Equal(t, "p-judy", f.entry(t).PersistentID)
}

func TestReconcileOnEphemeralPresent_FailedTierAdvances(t *testing.T) {
	ctx := context.Background()
	records := &flakyStore{
		RecordStore: memory.NewRecordStore(),
		findErr: func(f store.Filter) error {
			if f.ID != "" {
				return errors.New("index unavailable")
			}
			return nil
		},
	}
	f := newFixture(t, records)
	cred, err := f.provider.SignIn(ctx)
	require.NoError(t, err)
	seed(t, records, model.Record{ID: "p-ken", Username: "ken", Role: model.RoleStudent, IsActive: true, LastEphemeralID: cred.ID})

	id := f.resolver.ReconcileOnEphemeralPresent(ctx, cred)

	assert.Equal(t, "p-ken", id.PersistentID)
	assert.Equal(t, model.RoleStudent, id.Role)
	assert.Equal(t, SourceLastEphemeralID, f.Events()[0].(audit.ReconcileEvent).Source)
}

func TestReconcileOnEphemeralPresent_DegradedFallback(t *testing.T) {
	ctx := context.Background()
	records := &flakyStore{
		RecordStore: memory.NewRecordStore(),
		findErr:     func(store.Filter) error { return errors.New("offline") },
	}
	f := newFixture(t, records)
	cred, err := f.provider.SignIn(ctx)
	require.NoError(t, err)

	id := f.resolver.ReconcileOnEphemeralPresent(ctx, cred)

	assert.Equal(t, cred.ID, id.PersistentID)
	assert.Equal(t, model.RoleAdmin, id.Role)
	// The degraded identity is never cached.
	assert.Equal(t, cache.Entry{}, f.entry(t))

	event := f.Events()[0].(audit.ReconcileEvent)
	assert.True(t, event.Degraded)
	assert.Equal(t, SourceFallback, event.Source)
}

func TestReconcileOnEphemeralAbsent_NoCachedUsername(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	require.NoError(t, f.cache.Set(ctx, cache.KeyUserID, "p-orphan"))

	assert.Nil(t, f.resolver.ReconcileOnEphemeralAbsent(ctx))
	assert.Equal(t, cache.Entry{}, f.entry(t))
	assert.Nil(t, f.provider.Current())
}

func TestReconcileOnEphemeralAbsent_RestoresCachedUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	seed(t, f.records, model.Record{ID: "p-liz", Username: "liz", DisplayName: "Liz", Role: model.RoleStudent, IsActive: true})
	require.NoError(t, cache.Save(ctx, f.cache, cache.Entry{PersistentID: "p-liz", Role: model.RoleStudent, Username: "liz"}))

	id := f.resolver.ReconcileOnEphemeralAbsent(ctx)
	require.NotNil(t, id)
	assert.Equal(t, "p-liz", id.PersistentID)
	assert.Equal(t, model.RoleStudent, id.Role)

	cred := f.provider.Current()
	require.NotNil(t, cred)
	assert.Equal(t, "Liz", cred.DisplayName)

	rec, err := f.records.FindOne(ctx, store.Filter{ID: "p-liz"})
	require.NoError(t, err)
	assert.Equal(t, cred.ID, rec.LastEphemeralID)
	assert.True(t, t0.Equal(rec.LastLoginAt))
}

func TestRestoreFromCache_InactiveRecordClearsCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	seed(t, f.records, model.Record{ID: "p-mallory", Username: "mallory", Role: model.RoleAdmin, IsActive: false})
	require.NoError(t, cache.Save(ctx, f.cache, cache.Entry{PersistentID: "p-mallory", Role: model.RoleAdmin, Username: "mallory"}))

	assert.Nil(t, f.resolver.RestoreFromCache(ctx, "mallory"))
	assert.Equal(t, cache.Entry{}, f.entry(t))
	assert.Nil(t, f.provider.Current())

	event := f.Events()[0].(audit.ReconcileEvent)
	assert.True(t, event.Cleared)
}

func TestRestoreFromCache_StoreFailureClearsCache(t *testing.T) {
	ctx := context.Background()
	records := &flakyStore{
		RecordStore: memory.NewRecordStore(),
		findErr:     func(store.Filter) error { return errors.New("timeout") },
	}
	f := newFixture(t, records)
	require.NoError(t, cache.Save(ctx, f.cache, cache.Entry{PersistentID: "p-nia", Role: model.RoleAdmin, Username: "nia"}))

	assert.Nil(t, f.resolver.RestoreFromCache(ctx, "nia"))
	assert.Equal(t, cache.Entry{}, f.entry(t))
}

func TestIsUsernameAvailable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	seed(t, f.records, model.Record{ID: "p-oscar", Username: "oscar", Role: model.RoleAdmin, IsActive: true})
	seed(t, f.records, model.Record{ID: "p-peggy", Username: "peggy", Role: model.RoleAdmin, IsActive: false})

	assert.False(t, f.resolver.IsUsernameAvailable(ctx, " OSCAR "))
	assert.True(t, f.resolver.IsUsernameAvailable(ctx, "peggy"))
	assert.True(t, f.resolver.IsUsernameAvailable(ctx, "trent"))
	assert.False(t, f.resolver.IsUsernameAvailable(ctx, "  "))

	f.records.findErr = func(store.Filter) error { return errors.New("offline") }
	assert.True(t, f.resolver.IsUsernameAvailable(ctx, "oscar"))
}
