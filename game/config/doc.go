// Package config provides runtime configuration for the Dame game server.
//
// The config package handles:
//   - Reading settings from environment variables (optionally seeded from a
//     .env file by the caller)
//   - Default values for every setting
//   - Validation of search and queue limits
//
// Environment:
//
//	HOST            listen host (default localhost)
//	PORT            listen port (default 5002)
//	SEARCH_DEPTH    AI search depth in plies (default 5)
//	WORKER_TIMEOUT  upper bound for a single AI search (default 2m)
//	QUEUE_LIMIT     per-session update buffer, 0 for unbounded (default 256)
//	MAX_PLIES       plies before a game is declared drawn, 0 disables (default 200)
//	LOAD_FILE       optional startup snapshot to resume
//	STATIC_DIR      directory served at / (default ./static)
//	DEBUG           verbose logging
//	NGROK_ENABLED, NGROK_AUTHTOKEN, NGROK_DOMAIN  optional public tunnel
//
// Command-line flags default to these values and take precedence over them.
package config
