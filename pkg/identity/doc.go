// Package identity holds the resolved identity of the current user.
//
// An Identity is the answer to "who is using this device right now": the
// persistent id of their durable record, the name to show them and the
// role that decides what they may open. It is produced by the resolver
// and published by the session controller; nothing else creates one.
//
// # Request context
//
// HTTP handlers read the session identity from the request context, where
// middleware.WithIdentity stores it:
//
//	id, ok := identity.Get(r.Context())
//	if ok && id.IsAdmin() {
//	    ...
//	}
//
// Usernames are compared in normalized form. NormalizeUsername trims
// surrounding whitespace and lowercases, so "  Alice " and "alice" name
// the same account.
package identity
