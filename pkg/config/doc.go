// Package config provides configuration management for quizdesk.
//
// # Configuration Sources
//
// Configuration is loaded in three layers, later layers winning:
//
//   - Built-in defaults
//   - The YAML file $QUIZDESK_CONFIG_PATH/quizdesk.yml (default /etc/quizdesk)
//   - Environment variables
//
// Every attribute remembers which layer set it; `quizctl configuration show`
// prints the table.
//
// # Key Configuration Options
//
//   - DATABASE_URL: PostgreSQL record store
//   - QUIZDESK_CACHE_PATH: SQLite device cache file
//   - QUIZDESK_SIGNING_KEY: base64 HMAC key for ephemeral credentials
//   - QUIZDESK_CALL_TIMEOUT: per-call timeout in milliseconds
//   - QUIZDESK_LOG_LEVEL: debug, info, warn or error
package config
