package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/wricardo/mcp-training/damegame/game/engine"
)

// fakeBoard is a scripted board: every move flips the side to move and
// bumps N. The game is won by the mover once N reaches finishAt.
type fakeBoard struct {
	NextMove string `json:"next_move"`
	Winner   string `json:"winner"`
	N        int    `json:"n"`
}

type fakeEngine struct {
	finishAt   int
	searchFunc func(ctx context.Context, b engine.Board) (engine.Board, error)
	searches   atomic.Int32
}

func decodeFake(t testing.TB, b engine.Board) fakeBoard {
	t.Helper()
	var fb fakeBoard
	if err := json.Unmarshal(b, &fb); err != nil {
		t.Fatalf("bad fake board %s: %v", b, err)
	}
	return fb
}

func fakeBoardJSON(next string, n int) engine.Board {
	return engine.Board(fmt.Sprintf(`{"next_move":%q,"winner":"None","n":%d}`, next, n))
}

func (f *fakeEngine) advance(b engine.Board) (engine.Board, error) {
	var fb fakeBoard
	if err := json.Unmarshal(b, &fb); err != nil {
		return nil, fmt.Errorf("%w: %v", engine.ErrMalformedBoard, err)
	}
	if fb.Winner != "None" {
		return nil, fmt.Errorf("%w: finished", engine.ErrInvalidMove)
	}
	mover := fb.NextMove
	fb.N++
	if fb.NextMove == "White" {
		fb.NextMove = "Black"
	} else {
		fb.NextMove = "White"
	}
	if f.finishAt > 0 && fb.N >= f.finishAt {
		fb.Winner = mover
	}
	data, err := json.Marshal(fb)
	if err != nil {
		return nil, err
	}
	return engine.Board(data), nil
}

func (f *fakeEngine) NewGame() (engine.Board, error) {
	return fakeBoardJSON("Black", 0), nil
}

func (f *fakeEngine) MovesFor(b engine.Board, x, y int) ([]engine.Point, error) {
	if x < 0 || x > 7 || y < 0 || y > 7 {
		return nil, nil
	}
	return []engine.Point{{X: x + 1, Y: y + 1}}, nil
}

// ApplyMove rejects moves that do not change square.
func (f *fakeEngine) ApplyMove(b engine.Board, x, y, dx, dy int) (engine.Board, error) {
	if x == dx && y == dy {
		return nil, fmt.Errorf("%w: null move", engine.ErrInvalidMove)
	}
	return f.advance(b)
}

func (f *fakeEngine) Search(ctx context.Context, b engine.Board, depth int) (engine.Board, error) {
	f.searches.Add(1)
	if f.searchFunc != nil {
		return f.searchFunc(ctx, b)
	}
	return f.advance(b)
}

type recordingNotifier struct {
	mu     sync.Mutex
	boards map[string][]engine.Board
	events []recordedEvent
}

type recordedEvent struct {
	sessionID string
	event     string
	data      interface{}
}

func (n *recordingNotifier) BroadcastBoard(sessionID string, board engine.Board) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.boards == nil {
		n.boards = make(map[string][]engine.Board)
	}
	n.boards[sessionID] = append(n.boards[sessionID], board)
}

func (n *recordingNotifier) BroadcastEvent(sessionID string, event string, data interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, recordedEvent{sessionID, event, data})
}

func (n *recordingNotifier) eventsFor(sessionID string) []recordedEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []recordedEvent
	for _, e := range n.events {
		if e.sessionID == sessionID {
			out = append(out, e)
		}
	}
	return out
}

func (n *recordingNotifier) count(sessionID string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.boards[sessionID])
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func newTestManager(t *testing.T, eng engine.Engine, opts Options) *Manager {
	t.Helper()
	m := NewManager(eng, opts)
	t.Cleanup(m.Close)
	return m
}

func mustInfo(t *testing.T, m *Manager, id string) *Info {
	t.Helper()
	info, err := m.Info(id)
	if err != nil {
		t.Fatalf("Info failed: %v", err)
	}
	return info
}
