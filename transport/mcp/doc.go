// Package mcp exposes the Dame REST API as Model Context Protocol tools.
//
// The client holds no game state. Every tool call is proxied to the REST
// server and the returned board is rendered as a text diagram:
//   - new_game, session_info, list_sessions: session management
//   - select_piece, move_piece: human moves
//   - poll_update: drains the session's update queue one board at a time
//   - retry_ai: re-dispatches the AI after a failed search
//   - game_rules: static help text
//
// Transport Modes:
//
// The server returned by GetMCPServer can be served over stdio with
// server.ServeStdio, or over HTTP by passing request bodies to HandleMessage.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:5002/rest")
//	server.ServeStdio(client.GetMCPServer())
package mcp
