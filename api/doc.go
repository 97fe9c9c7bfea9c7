// Package api provides HTTP REST API handlers for the Dame game server.
//
// The api package implements:
//   - Game endpoints used by the browser client
//   - Session inspection, AI retry and snapshot export
//   - WebSocket upgrade handling for spectators
//   - Static file serving
//
// Endpoints:
//
// Game Operations (served at the root and under /rest):
//   - POST /new/{white}/{black} - Create a game; players are "human" or "ai"
//   - GET /get/{id} - Pop the oldest undelivered board, or {} when none
//   - GET /select/{id}/{x}/{y} - List legal destinations of a piece
//   - POST /move/{id}/{x}/{y}/{dx}/{dy} - Submit a human move
//
// Sessions:
//   - GET /sessions - List all sessions
//   - GET /sessions/{id} - Session state, pending AI flag and last failure
//   - POST /retry/{id} - Dispatch the AI again after a failed search
//   - GET /snapshot/{id} - Export a record usable with --load
//
// Other:
//   - GET /healthz - Liveness
//   - GET /ws?session={id} - Board update stream
//
// Error Handling:
//
// Errors are returned as JSON with appropriate HTTP status codes:
//
//	{"error": "error message"}
//
// Unknown sessions yield 404, rejected moves 409, malformed path values and
// player kinds 400, and engine failures 500.
package api
