package session

import (
	"errors"
	"fmt"

	"github.com/wricardo/mcp-training/damegame/game/engine"
)

var (
	ErrNotFound          = errors.New("session not found")
	ErrSessionExists     = errors.New("session already exists")
	ErrInvalidPlayerKind = errors.New("invalid player kind")
	ErrEngineFailure     = errors.New("engine failure")
	ErrWorkerFailure     = errors.New("ai worker failed")
	ErrMalformedSnapshot = errors.New("malformed snapshot")

	// ErrNotHumanTurn and ErrGameFinished reject a move without touching the
	// board, so they match engine.ErrInvalidMove as well.
	ErrNotHumanTurn = fmt.Errorf("%w: not a human player's turn", engine.ErrInvalidMove)
	ErrGameFinished = fmt.Errorf("%w: game is finished", engine.ErrInvalidMove)

	ErrWorkerTimeout = fmt.Errorf("%w: timed out", ErrWorkerFailure)
)
