package ephemeral

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/quizdesk/quizdesk/pkg/cache"
)

// CacheKey is the device cache key holding the current token.
const CacheKey = "ephemeralToken"

const issuer = "quizdesk"

var _ Provider = (*TokenProvider)(nil)

type tokenClaims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// TokenProvider mints signed JWT credentials.
type TokenProvider struct {
	key   []byte
	ttl   time.Duration
	cache cache.LocalCache

	now   func() time.Time
	newID func() string

	mu        sync.Mutex
	current   *Credential
	listeners map[int]Listener
	nextID    int
}

// NewTokenProvider creates a provider signing with key. Tokens expire after
// ttl and are persisted in c.
func NewTokenProvider(key []byte, ttl time.Duration, c cache.LocalCache) *TokenProvider {
	return &TokenProvider{
		key:       key,
		ttl:       ttl,
		cache:     c,
		now:       time.Now,
		newID:     uuid.NewString,
		listeners: make(map[int]Listener),
	}
}

// WithClock replaces the time source.
func (p *TokenProvider) WithClock(now func() time.Time) *TokenProvider {
	p.now = now
	return p
}

func (p *TokenProvider) OnChange(fn Listener) func() {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	p.listeners[id] = fn

	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, id)
	}
}

func (p *TokenProvider) Current() *Credential {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *TokenProvider) Start(ctx context.Context) error {
	raw, ok, err := p.cache.Get(ctx, CacheKey)
	if err != nil {
		return fmt.Errorf("failed to load ephemeral token: %w", err)
	}

	var cred *Credential
	if ok {
		cred, err = p.Parse(raw)
		if err != nil {
			cred = nil
			if err := p.cache.Remove(ctx, CacheKey); err != nil {
				return fmt.Errorf("failed to drop stale ephemeral token: %w", err)
			}
		}
	}

	p.setAndEmit(cred)
	return nil
}

func (p *TokenProvider) SignIn(ctx context.Context) (*Credential, error) {
	now := p.now()
	cred, err := p.sign(p.newID(), "", now, now.Add(p.ttl))
	if err != nil {
		return nil, err
	}
	if err := p.cache.Set(ctx, CacheKey, cred.Token); err != nil {
		return nil, fmt.Errorf("failed to persist ephemeral token: %w", err)
	}

	p.setAndEmit(cred)
	return cred, nil
}

func (p *TokenProvider) SignOut(ctx context.Context) error {
	if err := p.cache.Remove(ctx, CacheKey); err != nil {
		return fmt.Errorf("failed to remove ephemeral token: %w", err)
	}
	p.setAndEmit(nil)
	return nil
}

func (p *TokenProvider) UpdateDisplayName(ctx context.Context, cred *Credential, name string) error {
	current := p.Current()
	if cred == nil || current == nil || current.ID != cred.ID {
		return ErrNoCredential
	}

	updated, err := p.sign(current.ID, name, p.now(), current.ExpiresAt)
	if err != nil {
		return err
	}
	if err := p.cache.Set(ctx, CacheKey, updated.Token); err != nil {
		return fmt.Errorf("failed to persist ephemeral token: %w", err)
	}

	p.mu.Lock()
	p.current = updated
	p.mu.Unlock()
	return nil
}

// Parse verifies a token and returns the credential it carries.
func (p *TokenProvider) Parse(raw string) (*Credential, error) {
	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return p.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return &Credential{
		ID:          claims.Subject,
		DisplayName: claims.Name,
		Token:       raw,
		ExpiresAt:   claims.ExpiresAt.Time,
	}, nil
}

func (p *TokenProvider) sign(id, name string, issuedAt, expiresAt time.Time) (*Credential, error) {
	claims := tokenClaims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   id,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign ephemeral token: %w", err)
	}

	return &Credential{
		ID:          id,
		DisplayName: name,
		Token:       signed,
		ExpiresAt:   claims.ExpiresAt.Time,
	}, nil
}

func (p *TokenProvider) setAndEmit(cred *Credential) {
	p.mu.Lock()
	p.current = cred
	listeners := make([]Listener, 0, len(p.listeners))
	for _, fn := range p.listeners {
		listeners = append(listeners, fn)
	}
	p.mu.Unlock()

	for _, fn := range listeners {
		fn(cred)
	}
}
