package engine

import (
	"fmt"
	"strings"
)

const size = 8

// Piece is the content of a single square.
type Piece uint8

const (
	Empty Piece = iota
	WhiteNormal
	WhiteDame
	BlackNormal
	BlackDame
)

var pieceNames = [...]string{"Empty", "WhiteNormal", "WhiteDame", "BlackNormal", "BlackDame"}

func (p Piece) String() string {
	if int(p) < len(pieceNames) {
		return pieceNames[p]
	}
	return fmt.Sprintf("Piece(%d)", p)
}

// MarshalText implements encoding.TextMarshaler.
func (p Piece) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Piece) UnmarshalText(text []byte) error {
	for i, name := range pieceNames {
		if strings.EqualFold(name, string(text)) {
			*p = Piece(i)
			return nil
		}
	}
	return fmt.Errorf("%w: unknown piece %q", ErrMalformedBoard, string(text))
}

// Color returns the side owning the piece, or None for an empty square.
func (p Piece) Color() Color {
	switch p {
	case WhiteNormal, WhiteDame:
		return White
	case BlackNormal, BlackDame:
		return Black
	default:
		return None
	}
}

func (p Piece) isDame() bool {
	return p == WhiteDame || p == BlackDame
}

// Step is a single piece movement from (X, Y) to (DX, DY).
type Step struct {
	X, Y, DX, DY int
}

// String uses square names like "b6-a5". Steps leaving the board, which
// only come from unchecked input, print as raw coordinates.
func (s Step) String() string {
	if !inside(s.X, s.Y) || !inside(s.DX, s.DY) {
		return fmt.Sprintf("(%d,%d)-(%d,%d)", s.X, s.Y, s.DX, s.DY)
	}
	files := "abcdefgh"
	return fmt.Sprintf("%c%d-%c%d", files[s.X], s.Y+1, files[s.DX], s.DY+1)
}

// position holds the rules state of a checkers game. It is a value type so
// that search can copy it cheaply; movable is replaced, never mutated.
type position struct {
	cells   [size * size]Piece
	next    Color
	winner  Color
	movable []Point
	moveNo  int
}

func newPosition() position {
	var p position
	white := []Point{
		{0, 0}, {2, 0}, {4, 0}, {6, 0}, {1, 1}, {3, 1}, {5, 1}, {7, 1},
		{0, 2}, {2, 2}, {4, 2}, {6, 2},
	}
	black := []Point{
		{1, 5}, {3, 5}, {5, 5}, {7, 5}, {0, 6}, {2, 6}, {4, 6}, {6, 6},
		{1, 7}, {3, 7}, {5, 7}, {7, 7},
	}
	for _, pt := range white {
		p.cells[pt.Y*size+pt.X] = WhiteNormal
	}
	for _, pt := range black {
		p.cells[pt.Y*size+pt.X] = BlackNormal
	}
	p.next = Black
	p.winner = None
	p.updateMovable()
	return p
}

func inside(x, y int) bool {
	return x >= 0 && x < size && y >= 0 && y < size
}

func (p *position) at(x, y int) Piece {
	if !inside(x, y) {
		return Empty
	}
	return p.cells[y*size+x]
}

func (p *position) isEmpty(x, y int) bool {
	return inside(x, y) && p.cells[y*size+x] == Empty
}

func (p *position) finished() bool {
	return p.winner != None
}

// stepsFor appends the raw destinations in direction dir for a piece at (x, y)
// whose opponent is opp, flagging captures.
func (p *position) stepsFor(dst []Point, x, y, dir int, opp Color) (out []Point, jumps bool) {
	for _, dx := range [2]int{-1, 1} {
		if p.isEmpty(x+dx, y+dir) {
			dst = append(dst, Point{x + dx, y + dir})
		}
		if p.isEmpty(x+2*dx, y+2*dir) && p.at(x+dx, y+dir).Color() == opp {
			dst = append(dst, Point{x + 2*dx, y + 2*dir})
			jumps = true
		}
	}
	return dst, jumps
}

// destinations returns where the piece at (x, y) may move, ignoring whether
// another piece is forced to capture. Captures exclude plain moves.
func (p *position) destinations(x, y int) []Point {
	piece := p.at(x, y)
	if piece == Empty || piece.Color() != p.next {
		return nil
	}
	opp := p.next.Opponent()
	var (
		cands []Point
		jumps bool
		j     bool
	)
	switch piece {
	case WhiteNormal:
		cands, jumps = p.stepsFor(cands, x, y, 1, opp)
	case BlackNormal:
		cands, jumps = p.stepsFor(cands, x, y, -1, opp)
	case WhiteDame, BlackDame:
		cands, jumps = p.stepsFor(cands, x, y, 1, opp)
		cands, j = p.stepsFor(cands, x, y, -1, opp)
		jumps = jumps || j
	}
	if !jumps {
		return cands
	}
	out := cands[:0]
	for _, c := range cands {
		if abs(c.Y-y) == 2 {
			out = append(out, c)
		}
	}
	return out
}

func (p *position) canCapture(x, y int) bool {
	for _, d := range p.destinations(x, y) {
		if abs(d.X-x) == 2 {
			return true
		}
	}
	return false
}

func (p *position) updateMovable() {
	var jumpers, movers []Point
	for i, piece := range p.cells {
		if piece == Empty || piece.Color() != p.next {
			continue
		}
		x, y := i%size, i/size
		if p.canCapture(x, y) {
			jumpers = append(jumpers, Point{x, y})
		} else if len(p.destinations(x, y)) > 0 {
			movers = append(movers, Point{x, y})
		}
	}
	if len(jumpers) > 0 {
		p.movable = jumpers
		return
	}
	p.movable = movers
}

func (p *position) isMovable(x, y int) bool {
	for _, m := range p.movable {
		if m.X == x && m.Y == y {
			return true
		}
	}
	return false
}

// movesFor returns the legal destinations for the piece at (x, y).
func (p *position) movesFor(x, y int) []Point {
	if p.finished() || !p.isMovable(x, y) {
		return nil
	}
	return p.destinations(x, y)
}

// legalSteps lists every legal step for the side to move.
func (p *position) legalSteps() []Step {
	if p.finished() {
		return nil
	}
	var steps []Step
	for _, m := range p.movable {
		for _, d := range p.destinations(m.X, m.Y) {
			steps = append(steps, Step{m.X, m.Y, d.X, d.Y})
		}
	}
	return steps
}

// apply performs a single step, rejecting anything that is not legal.
func (p *position) apply(s Step, maxPlies int) error {
	if p.finished() {
		return fmt.Errorf("%w: game is finished", ErrInvalidMove)
	}
	if !p.isMovable(s.X, s.Y) {
		return fmt.Errorf("%w: piece at (%d,%d) cannot move", ErrInvalidMove, s.X, s.Y)
	}
	legal := false
	for _, d := range p.destinations(s.X, s.Y) {
		if d.X == s.DX && d.Y == s.DY {
			legal = true
			break
		}
	}
	if !legal {
		return fmt.Errorf("%w: (%d,%d) is not reachable from (%d,%d)", ErrInvalidMove, s.DX, s.DY, s.X, s.Y)
	}

	mover := p.next
	src, dst := s.Y*size+s.X, s.DY*size+s.DX
	p.cells[dst] = p.cells[src]
	p.cells[src] = Empty
	p.moveNo++

	captured := false
	if abs(s.DX-s.X) == 2 {
		p.cells[((s.Y+s.DY)/2)*size+(s.X+s.DX)/2] = Empty
		captured = true
	}

	promoted := false
	if s.DY == 0 && mover == Black && p.cells[dst] == BlackNormal {
		p.cells[dst] = BlackDame
		promoted = true
	}
	if s.DY == size-1 && mover == White && p.cells[dst] == WhiteNormal {
		p.cells[dst] = WhiteDame
		promoted = true
	}

	if captured && !promoted && p.canCapture(s.DX, s.DY) {
		p.movable = []Point{{s.DX, s.DY}}
	} else {
		p.next = mover.Opponent()
		p.updateMovable()
		if len(p.movable) == 0 {
			p.winner = mover
		}
	}

	if p.winner == None && maxPlies > 0 && p.moveNo >= maxPlies {
		p.winner = Draw
		p.movable = nil
	}
	return nil
}

func (p *position) count(c Color) (normal, dames int) {
	for _, piece := range p.cells {
		if piece.Color() != c {
			continue
		}
		if piece.isDame() {
			dames++
		} else {
			normal++
		}
	}
	return normal, dames
}

// String renders the board with white at the top, one row per line.
func (p *position) String() string {
	var b strings.Builder
	b.WriteString("  a b c d e f g h\n")
	for y := 0; y < size; y++ {
		fmt.Fprintf(&b, "%d", y+1)
		for x := 0; x < size; x++ {
			b.WriteByte(' ')
			switch p.at(x, y) {
			case WhiteNormal:
				b.WriteByte('w')
			case WhiteDame:
				b.WriteByte('W')
			case BlackNormal:
				b.WriteByte('b')
			case BlackDame:
				b.WriteByte('B')
			default:
				b.WriteByte('.')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
