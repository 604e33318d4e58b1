package authz

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/quizdesk/quizdesk/pkg/audit"
	"github.com/quizdesk/quizdesk/pkg/cache"
	"github.com/quizdesk/quizdesk/pkg/identity"
	"github.com/quizdesk/quizdesk/pkg/model"
)

// Deny reasons.
const (
	ReasonLoginRequired = "login-required"
	ReasonForbidden     = "forbidden"
)

// Decision is the outcome of an access check. A denied decision carries
// the destination to redirect to and the reason.
type Decision struct {
	Allow       bool   `json:"allow"`
	Destination string `json:"destination,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// Allowed is the decision that grants access.
var Allowed = Decision{Allow: true}

// DenyRedirect builds a denied decision.
func DenyRedirect(destination, reason string) Decision {
	return Decision{Destination: destination, Reason: reason}
}

// RedirectURL is the URL a denied navigation should go to. Login-required
// redirects carry login=required so the landing page opens its login form.
func (d Decision) RedirectURL() string {
	if d.Allow {
		return ""
	}
	if d.Reason != ReasonLoginRequired {
		return d.Destination
	}
	u, err := url.Parse(d.Destination)
	if err != nil {
		return d.Destination
	}
	q := u.Query()
	q.Set("login", "required")
	u.RawQuery = q.Encode()
	return u.String()
}

// Evaluate applies the access rules for id on a resource of class. A nil
// id means unauthenticated.
func Evaluate(id *identity.Identity, class ResourceClass, landing string) Decision {
	if id == nil {
		if class == Public {
			return Allowed
		}
		return DenyRedirect(landing, ReasonLoginRequired)
	}
	if id.Role == model.RoleAdmin && class == StudentOnly {
		return Allowed
	}
	if id.Role == model.RoleStudent && class == AdminOnly {
		return DenyRedirect(landing, ReasonForbidden)
	}
	return Allowed
}

// Gate evaluates navigations and records where to resume after login.
type Gate struct {
	landing     string
	cache       cache.LocalCache
	callTimeout time.Duration
	logger      *slog.Logger
	audit       func(audit.Event)
}

// GateConfig holds the optional settings of a Gate.
type GateConfig struct {
	// Landing is where denied navigations go. Defaults to "/".
	Landing     string
	CallTimeout time.Duration
	Logger      *slog.Logger
	Audit       func(audit.Event)
}

// NewGate creates a gate that records resumption destinations in c.
func NewGate(c cache.LocalCache, cfg GateConfig) *Gate {
	g := &Gate{
		landing:     cfg.Landing,
		cache:       c,
		callTimeout: cfg.CallTimeout,
		logger:      cfg.Logger,
		audit:       cfg.Audit,
	}
	if g.landing == "" {
		g.landing = "/"
	}
	if g.callTimeout <= 0 {
		g.callTimeout = 5 * time.Second
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	if g.audit == nil {
		g.audit = audit.Log
	}
	return g
}

// Landing returns the landing path.
func (g *Gate) Landing() string {
	return g.landing
}

// Decide evaluates a navigation to path. When the navigation needs a login,
// path is remembered as the resumption destination.
func (g *Gate) Decide(ctx context.Context, id *identity.Identity, class ResourceClass, path string) Decision {
	d := Evaluate(id, class, g.landing)
	if d.Allow {
		return d
	}

	if d.Reason == ReasonLoginRequired && path != "" {
		ctx, cancel := context.WithTimeout(ctx, g.callTimeout)
		if err := g.cache.Set(ctx, cache.KeyRedirectURL, path); err != nil {
			g.logger.Warn("failed to record resume destination", "path", path, "error", err)
		}
		cancel()
	}

	event := audit.AuthorizeEvent{
		Path:   path,
		Class:  class.String(),
		Reason: d.Reason,
	}
	if id != nil {
		event.PersistentID = id.PersistentID
		event.Role = id.Role.String()
	}
	event.ClientIP = audit.ClientIP(ctx)
	g.audit(event)
	g.logger.Debug("navigation denied", "path", path, "class", class, "reason", d.Reason)
	return d
}
