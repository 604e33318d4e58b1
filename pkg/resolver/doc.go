// Package resolver reconciles the ephemeral credential, the durable record
// store and the device cache into a single Identity.
//
// # Login
//
// LoginWithUsername looks up the active record for the normalized username.
// A returning user gets a fresh credential bridged to their existing record,
// and the stored role always wins over the requested one. A new username
// gets a new record keyed by the credential id.
//
// # Reconciliation
//
// When the provider reports a live credential, the persistent id and role
// are resolved by trying, in order:
//
//  1. the cache entry
//  2. the record whose id is the credential id
//  3. the record whose last ephemeral id is the credential id
//  4. the credential id itself with the admin role (degraded)
//
// When the provider reports no credential, the cached username (if any) is
// logged in again silently. Store failures during reconciliation only move
// to the next step; they never surface as errors.
//
// The resolver keeps no session state of its own. Serializing logins and
// reconciliations is left to the caller; package session runs them on a
// single queue.
package resolver
