// Package service provides the business logic layer for the Dame game server.
//
// The service package implements:
//   - Player kind parsing for new games
//   - Board views shaped the way clients expect them
//   - Move submission, piece selection and update polling
//   - Session inspection, AI retry and snapshot export
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game
// operations. Sessions is the subset of session.Manager it builds on, which
// keeps transports testable with a mock.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the session manager. It never blocks on the AI: moves return as soon as the
// human board is stored, and AI replies arrive through Poll.
//
// Usage:
//
//	manager := session.NewManager(engine.NewDame(engine.DefaultMaxPlies), session.Options{})
//	gameService := service.NewGameService(manager)
//
//	// Create a new session
//	view, err := gameService.NewGame(ctx, "ai", "human")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Submit a move and wait for the reply
//	_, err = gameService.Move(ctx, view.UID(), 1, 5, 0, 4)
//	update, err := gameService.Poll(ctx, view.UID())
package service
