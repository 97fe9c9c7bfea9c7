package engine

import (
	"context"
	"encoding/json"
	"fmt"
)

// DefaultMaxPlies is the number of single steps after which a game is drawn.
const DefaultMaxPlies = 200

// dameState is the JSON layout of a Dame board.
type dameState struct {
	Board     [size * size]Piece `json:"board"`
	NextMove  Color              `json:"next_move"`
	Winner    Color              `json:"winner"`
	Movable   []Point            `json:"valid_pieces_to_move"`
	LastMoves [][4]int           `json:"last_moves"`
	MoveNo    int                `json:"move_no"`
}

// Dame implements Engine for 8x8 checkers.
type Dame struct {
	maxPlies int
}

// NewDame creates a checkers engine. maxPlies <= 0 disables the draw limit.
func NewDame(maxPlies int) *Dame {
	return &Dame{maxPlies: maxPlies}
}

func decodeDame(b Board) (position, error) {
	var st dameState
	if err := json.Unmarshal(b, &st); err != nil {
		return position{}, fmt.Errorf("%w: %v", ErrMalformedBoard, err)
	}
	if st.Winner == None && st.NextMove != White && st.NextMove != Black {
		return position{}, fmt.Errorf("%w: next_move must be White or Black", ErrMalformedBoard)
	}
	p := position{
		cells:  st.Board,
		next:   st.NextMove,
		winner: st.Winner,
		moveNo: st.MoveNo,
	}
	if st.Movable != nil {
		p.movable = append([]Point(nil), st.Movable...)
	} else if !p.finished() {
		p.updateMovable()
	}
	return p, nil
}

func encodeDame(p position, last []Step) (Board, error) {
	st := dameState{
		Board:     p.cells,
		NextMove:  p.next,
		Winner:    p.winner,
		Movable:   p.movable,
		LastMoves: make([][4]int, 0, len(last)),
		MoveNo:    p.moveNo,
	}
	if st.Movable == nil {
		st.Movable = []Point{}
	}
	for _, s := range last {
		st.LastMoves = append(st.LastMoves, [4]int{s.X, s.Y, s.DX, s.DY})
	}
	data, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("encode board: %w", err)
	}
	return Board(data), nil
}

// NewGame returns the standard starting position with black to move.
func (d *Dame) NewGame() (Board, error) {
	return encodeDame(newPosition(), nil)
}

// MovesFor returns the legal destinations for the piece at (x, y).
func (d *Dame) MovesFor(b Board, x, y int) ([]Point, error) {
	p, err := decodeDame(b)
	if err != nil {
		return nil, err
	}
	moves := p.movesFor(x, y)
	if moves == nil {
		return []Point{}, nil
	}
	return moves, nil
}

// ApplyMove performs a single step and clears the previous last_moves.
func (d *Dame) ApplyMove(b Board, x, y, dx, dy int) (Board, error) {
	p, err := decodeDame(b)
	if err != nil {
		return nil, err
	}
	step := Step{X: x, Y: y, DX: dx, DY: dy}
	if err := p.apply(step, d.maxPlies); err != nil {
		return nil, err
	}
	return encodeDame(p, []Step{step})
}

// Search plays for the side to move until the turn passes to the opponent,
// so a multi-jump is completed in one call.
func (d *Dame) Search(ctx context.Context, b Board, depth int) (Board, error) {
	p, err := decodeDame(b)
	if err != nil {
		return nil, err
	}
	if p.finished() {
		return nil, fmt.Errorf("%w: game is finished", ErrInvalidMove)
	}
	mover := p.next
	var played []Step
	for !p.finished() && p.next == mover {
		s := newSearcher(ctx, mover, depth, d.maxPlies)
		step, err := s.best(p)
		if err != nil {
			return nil, err
		}
		if err := p.apply(step, d.maxPlies); err != nil {
			return nil, fmt.Errorf("search produced illegal step %s: %w", step, err)
		}
		played = append(played, step)
	}
	return encodeDame(p, played)
}

// Render returns a text diagram of a Dame board.
func Render(b Board) (string, error) {
	p, err := decodeDame(b)
	if err != nil {
		return "", err
	}
	return p.String(), nil
}

// LastMoves returns the steps recorded on a Dame board.
func LastMoves(b Board) ([]Step, error) {
	var st struct {
		LastMoves [][4]int `json:"last_moves"`
	}
	if err := json.Unmarshal(b, &st); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedBoard, err)
	}
	steps := make([]Step, 0, len(st.LastMoves))
	for _, m := range st.LastMoves {
		steps = append(steps, Step{m[0], m[1], m[2], m[3]})
	}
	return steps, nil
}
