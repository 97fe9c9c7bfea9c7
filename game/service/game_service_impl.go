package service

import (
	"context"
	"fmt"

	"github.com/wricardo/mcp-training/damegame/game/session"
)

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions Sessions
}

// NewGameService creates a new game service instance
func NewGameService(sessions Sessions) GameService {
	return &gameServiceImpl{
		sessions: sessions,
	}
}

// NewGame creates a session for the given player kinds ("human" or "ai")
func (s *gameServiceImpl) NewGame(ctx context.Context, white, black string) (BoardView, error) {
	whiteKind, err := session.ParsePlayerKind(white)
	if err != nil {
		return nil, fmt.Errorf("player_white: %w", err)
	}
	blackKind, err := session.ParsePlayerKind(black)
	if err != nil {
		return nil, fmt.Errorf("player_black: %w", err)
	}

	snap, err := s.sessions.CreateSession(whiteKind, blackKind)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return newSessionView(snap)
}

// SessionInfo retrieves session information
func (s *gameServiceImpl) SessionInfo(ctx context.Context, sessionID string) (*session.Info, error) {
	return s.sessions.Info(sessionID)
}

// ListSessions returns all sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*session.Info, error) {
	return s.sessions.List(), nil
}

// Snapshot exports a session in the startup snapshot format
func (s *gameServiceImpl) Snapshot(ctx context.Context, sessionID string) (*session.Snapshot, error) {
	return s.sessions.Snapshot(sessionID)
}

// Select lists the destinations of the piece at (x, y)
func (s *gameServiceImpl) Select(ctx context.Context, sessionID string, x, y int) (*SelectResult, error) {
	moves, err := s.sessions.MovesFor(sessionID, x, y)
	if err != nil {
		return nil, err
	}
	return &SelectResult{ValidMoves: moves}, nil
}

// Move submits a human move and returns the resulting board
func (s *gameServiceImpl) Move(ctx context.Context, sessionID string, x, y, dx, dy int) (BoardView, error) {
	board, err := s.sessions.ApplyHumanMove(sessionID, x, y, dx, dy)
	if err != nil {
		return nil, err
	}
	view, err := NewBoardView(board)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", session.ErrEngineFailure, err)
	}
	return view, nil
}

// Retry dispatches the AI again after a failed search
func (s *gameServiceImpl) Retry(ctx context.Context, sessionID string) (*session.Info, error) {
	return s.sessions.Retry(sessionID)
}

// Poll returns the oldest undelivered board, or an empty view
func (s *gameServiceImpl) Poll(ctx context.Context, sessionID string) (BoardView, error) {
	board, ok := s.sessions.Poll(sessionID)
	if !ok {
		return BoardView{}, nil
	}
	view, err := NewBoardView(board)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", session.ErrEngineFailure, err)
	}
	return view, nil
}

// Health reports liveness and the number of sessions
func (s *gameServiceImpl) Health(ctx context.Context) *HealthInfo {
	return &HealthInfo{
		Status:        "ok",
		Sessions:      s.sessions.Count(),
		ResumePending: s.sessions.ResumePending(),
	}
}
