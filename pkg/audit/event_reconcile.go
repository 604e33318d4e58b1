package audit

import "fmt"

// ReconcileEvent records how a session was resumed without an explicit
// login: from the cache, from a record lookup, by restoring the cached
// username, or by the degraded fallback.
type ReconcileEvent struct {
	CredentialID string
	PersistentID string
	Role         string
	// Source names the tier that produced the identity.
	Source   string
	Degraded bool
	// Cleared is true when a stale cache entry was dropped instead.
	Cleared bool
}

func (e ReconcileEvent) MessageID() string {
	return "reconcile"
}

func (e ReconcileEvent) Message() string {
	switch {
	case e.Cleared:
		return "cached session could not be restored and was cleared"
	case e.Degraded:
		return fmt.Sprintf("credential %s resolved by degraded fallback with role %s", e.CredentialID, e.Role)
	default:
		return fmt.Sprintf("session resumed as %s with role %s from %s", e.PersistentID, e.Role, e.Source)
	}
}

func (e ReconcileEvent) Severity() Severity {
	if e.Degraded {
		return SeverityWarning
	}
	return SeverityNotice
}

func (e ReconcileEvent) Facility() int {
	return FacilityAuth
}

func (e ReconcileEvent) StructuredData() map[string]map[string]string {
	return map[string]map[string]string{
		SDIDSubject: {
			"id":         e.PersistentID,
			"role":       e.Role,
			"credential": e.CredentialID,
		},
		SDIDAction: {
			"operation": "reconcile",
			"source":    e.Source,
		},
	}
}
