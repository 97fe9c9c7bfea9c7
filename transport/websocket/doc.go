// Package websocket provides a WebSocket push stream for the Dame game server.
//
// The websocket package implements:
//   - Session-aware spectator connections
//   - Broadcasting of every board appended to a session's update queue
//   - Broadcasting of AI worker failures
//   - Connection lifecycle management with ping/pong keepalive
//
// Architecture:
//
// The package uses a hub-and-spoke model where a central Hub manages all
// WebSocket connections. Each client connection is handled by a reader and a
// writer goroutine. The hub implements session.Notifier, so the session
// manager publishes boards without knowing about connections.
//
// Message Protocol:
//
// Outgoing messages are JSON objects, one per frame:
//
//	{"session_id": "...", "event": "board_update", "board": {...}}
//	{"session_id": "...", "event": "worker_failure", "data": {"message": "...", "at": "...", "attempts": 1}}
//
// Incoming frames are ignored.
//
// Usage:
//
//	hub := websocket.NewHub(log)
//	go hub.Run(ctx)
//
//	manager := session.NewManager(eng, session.Options{Notifier: hub})
//	router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("session"))
//	})
//
// Concurrency:
//
// BroadcastBoard never blocks. When the hub cannot keep up, updates are
// dropped and logged; a client whose own buffer is full is disconnected.
package websocket
