package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidMove    = errors.New("invalid move")
	ErrMalformedBoard = errors.New("malformed board")
)

// Engine is the contract between game sessions and the rules implementation.
// Implementations must be safe for concurrent use: every method receives its
// own Board copy and returns a new one.
type Engine interface {
	// NewGame returns the initial board.
	NewGame() (Board, error)

	// MovesFor returns the destinations reachable by the piece at (x, y).
	// Empty cells, foreign pieces and blocked pieces yield an empty slice.
	MovesFor(b Board, x, y int) ([]Point, error)

	// ApplyMove moves the piece at (x, y) to (dx, dy). Illegal moves return
	// an error wrapping ErrInvalidMove.
	ApplyMove(b Board, x, y, dx, dy int) (Board, error)

	// Search computes and applies the engine's move for the side to move.
	Search(ctx context.Context, b Board, depth int) (Board, error)
}

// Board is an opaque JSON encoded board state.
type Board []byte

// MarshalJSON emits the board verbatim.
func (b Board) MarshalJSON() ([]byte, error) {
	if len(b) == 0 {
		return []byte("null"), nil
	}
	return b, nil
}

// UnmarshalJSON stores a copy of the raw board.
func (b *Board) UnmarshalJSON(data []byte) error {
	if b == nil {
		return errors.New("engine.Board: UnmarshalJSON on nil pointer")
	}
	*b = append((*b)[0:0], data...)
	return nil
}

// Clone returns an independent copy of the board bytes.
func (b Board) Clone() Board {
	if b == nil {
		return nil
	}
	c := make(Board, len(b))
	copy(c, b)
	return c
}

// Color identifies a side, or the outcome of a game when used as a winner.
type Color uint8

const (
	None Color = iota
	White
	Black
	Draw
)

func (c Color) String() string {
	switch c {
	case White:
		return "White"
	case Black:
		return "Black"
	case Draw:
		return "Draw"
	default:
		return "None"
	}
}

// Opponent returns the other side. None and Draw have no opponent.
func (c Color) Opponent() Color {
	switch c {
	case White:
		return Black
	case Black:
		return White
	default:
		return None
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText accepts color names case-insensitively.
func (c *Color) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "none", "":
		*c = None
	case "white":
		*c = White
	case "black":
		*c = Black
	case "draw":
		*c = Draw
	default:
		return fmt.Errorf("%w: unknown color %q", ErrMalformedBoard, string(text))
	}
	return nil
}

// Point is a board coordinate, encoded as a [x, y] pair.
type Point struct {
	X int
	Y int
}

// MarshalJSON encodes the point as [x, y].
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{p.X, p.Y})
}

// UnmarshalJSON decodes a [x, y] pair.
func (p *Point) UnmarshalJSON(data []byte) error {
	var pair [2]int
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	p.X, p.Y = pair[0], pair[1]
	return nil
}

// Status is the part of a board the session layer is allowed to interpret.
type Status struct {
	NextMove Color `json:"next_move"`
	Winner   Color `json:"winner"`
}

// Finished reports whether the game reached a terminal state.
func (s Status) Finished() bool {
	return s.Winner != None
}

// ReadStatus decodes next_move and winner from any engine's board.
func ReadStatus(b Board) (Status, error) {
	var s Status
	if len(b) == 0 {
		return s, fmt.Errorf("%w: empty board", ErrMalformedBoard)
	}
	if err := json.Unmarshal(b, &s); err != nil {
		if errors.Is(err, ErrMalformedBoard) {
			return s, err
		}
		return s, fmt.Errorf("%w: %v", ErrMalformedBoard, err)
	}
	if !s.Finished() && s.NextMove != White && s.NextMove != Black {
		return s, fmt.Errorf("%w: next_move must be White or Black", ErrMalformedBoard)
	}
	return s, nil
}
