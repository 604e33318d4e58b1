// Package ephemeral issues the short-lived anonymous credentials that stand
// in for a user during one session.
//
// A credential carries no identity of its own. The resolver bridges it to a
// durable record; the provider only mints, persists and revokes it and
// tells listeners when it appears or disappears.
//
// # Tokens
//
// TokenProvider mints HS256 JWTs whose subject is a random UUID (the
// credential id) and whose "name" claim carries the display name. The
// current token is kept in the device cache so a restarted process sees
// the same credential again.
//
//	p := ephemeral.NewTokenProvider(key, time.Hour, localCache)
//	unsubscribe := p.OnChange(func(cred *ephemeral.Credential) {
//	    // cred == nil means no credential is present
//	})
//	defer unsubscribe()
//	err := p.Start(ctx)
package ephemeral
