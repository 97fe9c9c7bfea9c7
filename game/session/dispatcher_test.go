package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wricardo/mcp-training/damegame/game/engine"
)

func receive(t *testing.T, d *Dispatcher) Result {
	t.Helper()
	select {
	case res := <-d.Results():
		return res
	case <-time.After(3 * time.Second):
		t.Fatal("no result from dispatcher")
		return Result{}
	}
}

func TestDispatcher_Dispatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eng := &fakeEngine{}
	d := NewDispatcher(ctx, eng, 3, time.Second, nil)

	board := fakeBoardJSON("White", 4)
	if !d.Dispatch("s1", 7, board) {
		t.Fatal("Expected the dispatch to start")
	}
	// The worker owns a private copy.
	board[0] = 'X'

	res := receive(t, d)
	if res.SessionID != "s1" || res.Version != 7 || res.Err != nil {
		t.Fatalf("Unexpected result: %+v", res)
	}
	if fb := decodeFake(t, res.Board); fb.N != 5 || fb.NextMove != "Black" {
		t.Errorf("Unexpected board: %+v", fb)
	}
}

func TestDispatcher_Errors(t *testing.T) {
	tests := []struct {
		name   string
		search func(ctx context.Context, b engine.Board) (engine.Board, error)
		want   error
	}{
		{
			name: "engine error",
			search: func(ctx context.Context, b engine.Board) (engine.Board, error) {
				return nil, engine.ErrInvalidMove
			},
			want: ErrWorkerFailure,
		},
		{
			name: "empty board",
			search: func(ctx context.Context, b engine.Board) (engine.Board, error) {
				return nil, nil
			},
			want: ErrWorkerFailure,
		},
		{
			name: "deadline",
			search: func(ctx context.Context, b engine.Board) (engine.Board, error) {
				<-ctx.Done()
				return nil, ctx.Err()
			},
			want: ErrWorkerTimeout,
		},
		{
			name: "panic",
			search: func(ctx context.Context, b engine.Board) (engine.Board, error) {
				panic("bad state")
			},
			want: ErrWorkerFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			d := NewDispatcher(ctx, &fakeEngine{searchFunc: tt.search}, 3, 20*time.Millisecond, nil)

			d.Dispatch("s1", 1, fakeBoardJSON("White", 0))
			res := receive(t, d)
			if !errors.Is(res.Err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, res.Err)
			}
		})
	}
}

func TestDispatcher_Close(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	d := NewDispatcher(ctx, &fakeEngine{}, 3, time.Second, nil)

	cancel()
	d.Close()
	if d.Dispatch("s1", 1, fakeBoardJSON("White", 0)) {
		t.Error("Expected no dispatch after Close")
	}
}

func TestCollector_Run(t *testing.T) {
	results := make(chan Result, 2)
	var seen []string
	c := NewCollector(results, func(r Result) {
		seen = append(seen, r.SessionID)
	})

	results <- Result{SessionID: "a"}
	results <- Result{SessionID: "b"}
	close(results)
	c.Run(context.Background())

	if len(seen) != 2 || seen[0] != "a" || seen[1] != "b" {
		t.Errorf("Expected results in order, got %v", seen)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	NewCollector(make(chan Result), func(Result) {
		t.Error("Unexpected result")
	}).Run(ctx)
}
