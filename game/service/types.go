package service

import (
	"encoding/json"
	"fmt"

	"github.com/wricardo/mcp-training/damegame/game/engine"
	"github.com/wricardo/mcp-training/damegame/game/session"
)

// BoardView is a board as returned to clients: the engine's board fields,
// plus session fields on create. An empty view means "no update".
type BoardView map[string]any

// NewBoardView decodes a board into a view.
func NewBoardView(board engine.Board) (BoardView, error) {
	view := BoardView{}
	if len(board) == 0 {
		return view, nil
	}
	if err := json.Unmarshal(board, &view); err != nil {
		return nil, fmt.Errorf("%w: %v", engine.ErrMalformedBoard, err)
	}
	return view, nil
}

// newSessionView merges the session identity into the board fields, the
// shape of the create response.
func newSessionView(snap *session.Snapshot) (BoardView, error) {
	view, err := NewBoardView(snap.Board)
	if err != nil {
		return nil, err
	}
	view["uid"] = snap.UID
	view["player_white"] = snap.PlayerWhite
	view["player_black"] = snap.PlayerBlack
	return view, nil
}

// Board re-encodes the view as an engine board.
func (v BoardView) Board() (engine.Board, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode board view: %w", err)
	}
	return engine.Board(data), nil
}

// UID returns the session ID carried by a create response.
func (v BoardView) UID() string {
	uid, _ := v["uid"].(string)
	return uid
}

// SelectResult lists the legal destinations of a piece.
type SelectResult struct {
	ValidMoves []engine.Point `json:"valid_moves"`
}

// HealthInfo reports server liveness
type HealthInfo struct {
	Status        string `json:"status"`
	Sessions      int    `json:"sessions"`
	ResumePending bool   `json:"resume_pending"`
}
