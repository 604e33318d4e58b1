// Command quizctl runs and operates the quizdesk identity and session
// service.
//
// quizdesk gives a device a durable identity on top of short-lived
// anonymous credentials. A user logs in with a username; the service keeps
// one persistent record per username, mints a fresh credential for every
// session, and restores the session after restarts from a device cache.
//
// # Quick Start
//
//	# Generate the credential signing key
//	export QUIZDESK_SIGNING_KEY="$(quizctl signing-key generate)"
//
//	# Create the schema
//	export DATABASE_URL=postgres://quizdesk@localhost/quizdesk?sslmode=disable
//	quizctl db migrate
//
//	# Start the server
//	quizctl server
//
// The session commands (login, logout, whoami, authorize) act on this
// device's session directly, without a running server.
//
// # Environment Variables
//
//   - DATABASE_URL: PostgreSQL connection string for the record store
//   - QUIZDESK_SIGNING_KEY: Base64-encoded key for ephemeral credentials
//   - QUIZDESK_CACHE_PATH: Device cache file
//   - QUIZDESK_CONFIG_PATH: Directory holding quizdesk.yml
//   - QUIZDESK_LOG_LEVEL: Log level (debug, info, warn, error)
//   - QUIZDESK_AUDIT_ENABLED: Set to false to disable the audit log
//   - AUDIT_DATABASE_URL: Optional database for audit messages
//   - PORT, BIND_ADDRESS: Server listen address
package main
