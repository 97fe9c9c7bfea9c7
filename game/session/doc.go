// Package session provides session management for the Dame game server.
//
// The session package implements:
//   - Thread-safe session storage keyed by unique session IDs
//   - Per-session update queues consumed by polling clients
//   - Asynchronous AI move computation on isolated worker goroutines
//   - A single result collector that merges AI results back into sessions
//   - One-time resume of a session from a startup snapshot
//
// Core Types:
//
// Manager is the entry point used by the service layer. It owns a Store of
// Sessions, a Dispatcher that starts AI searches, and a Collector that applies
// their results. Each Session holds its board, its fixed player kinds, the
// in-flight AI flag and an UpdateQueue of board snapshots.
//
// Concurrency:
//
// Every board mutation happens while holding the session's mutex: human moves
// inline in the calling goroutine, AI results only in the collector goroutine.
// Workers receive a private copy of the board and report back exclusively
// through the results channel. At most one AI search is in flight per session,
// and each search is bounded by the worker timeout.
//
// Usage:
//
//	manager := session.NewManager(engine.NewDame(engine.DefaultMaxPlies), session.Options{
//		Depth:         5,
//		WorkerTimeout: time.Minute,
//	})
//	defer manager.Close()
//
//	snap, err := manager.CreateSession(session.Human, session.AI)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Poll for the AI's reply
//	board, ok := manager.Poll(snap.UID)
//
// Lifecycle:
//
// Sessions live for the lifetime of the process. Close stops the collector
// and cancels outstanding searches.
package session
