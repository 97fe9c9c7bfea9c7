package service

import (
	"context"

	"github.com/wricardo/mcp-training/damegame/game/engine"
	"github.com/wricardo/mcp-training/damegame/game/session"
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	NewGame(ctx context.Context, white, black string) (BoardView, error)
	SessionInfo(ctx context.Context, sessionID string) (*session.Info, error)
	ListSessions(ctx context.Context) ([]*session.Info, error)
	Snapshot(ctx context.Context, sessionID string) (*session.Snapshot, error)

	// Game Operations
	Select(ctx context.Context, sessionID string, x, y int) (*SelectResult, error)
	Move(ctx context.Context, sessionID string, x, y, dx, dy int) (BoardView, error)
	Retry(ctx context.Context, sessionID string) (*session.Info, error)

	// Updates
	Poll(ctx context.Context, sessionID string) (BoardView, error)

	Health(ctx context.Context) *HealthInfo
}

// Sessions is the subset of session.Manager the service depends on
type Sessions interface {
	CreateSession(white, black session.PlayerKind) (*session.Snapshot, error)
	ApplyHumanMove(id string, x, y, dx, dy int) (engine.Board, error)
	MovesFor(id string, x, y int) ([]engine.Point, error)
	Poll(id string) (engine.Board, bool)
	Info(id string) (*session.Info, error)
	List() []*session.Info
	Retry(id string) (*session.Info, error)
	Snapshot(id string) (*session.Snapshot, error)
	Count() int
	ResumePending() bool
}
