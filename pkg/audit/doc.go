// Package audit provides audit logging for quizdesk session operations.
//
// Security-relevant events are written as RFC5424 syslog lines and, when
// AUDIT_DATABASE_URL is set, persisted to the messages table.
//
// # Event Types
//
//   - LoginEvent: username login, including account creation
//   - LogoutEvent: logout, including local-only logouts
//   - ReconcileEvent: session resumed from cache, record lookup or fallback
//   - AuthorizeEvent: navigation denied by the gate
//
// # Usage
//
//	audit.Log(audit.LoginEvent{
//	    Username:     "alice",
//	    PersistentID: id.PersistentID,
//	    Role:         id.Role.String(),
//	    Success:      true,
//	})
//
// Set QUIZDESK_AUDIT_ENABLED=false to disable audit output.
package audit
