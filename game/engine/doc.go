// Package engine provides the board-game engine used by the session layer.
//
// The engine package implements:
//   - The Engine contract consumed by game sessions (new game, move queries,
//     move application and AI search)
//   - An opaque JSON Board representation that sessions pass through untouched
//   - Dame, an 8x8 checkers engine with mandatory captures, multi-jumps and
//     promotion, plus a bounded-depth minimax search
//
// Boards:
//
// Callers outside this package treat a Board as raw JSON. The only fields the
// session layer reads are "next_move" and "winner", via ReadStatus.
//
// Usage:
//
//	eng := engine.NewDame(engine.DefaultMaxPlies)
//
//	board, err := eng.NewGame()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Move the black piece at (1,5) to (0,4)
//	board, err = eng.ApplyMove(board, 1, 5, 0, 4)
//	if errors.Is(err, engine.ErrInvalidMove) {
//		// rejected, board unchanged
//	}
//
//	// Let the engine play for the side to move
//	board, err = eng.Search(ctx, board, 5)
//
// Rules:
//
// Black moves first. Normal pieces move one square diagonally forward and
// capture by jumping an adjacent opponent piece. Captures are mandatory, and a
// piece that captured keeps moving while it can capture again. Pieces reaching
// the far row become dames, which move in both directions. A player left
// without a legal move loses; a game that reaches the ply limit is a draw.
package engine
