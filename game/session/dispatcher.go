package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/wricardo/mcp-training/damegame/game/engine"
	"github.com/wricardo/mcp-training/damegame/pkg/logger"
)

// DefaultWorkerTimeout bounds a single AI search when no timeout is configured.
const DefaultWorkerTimeout = 2 * time.Minute

// resultBuffer is the capacity of the results channel.
const resultBuffer = 64

// Result is what a worker reports back for one dispatch.
type Result struct {
	SessionID string
	Version   uint64
	Board     engine.Board
	Err       error
	Elapsed   time.Duration
}

// Dispatcher starts AI searches on worker goroutines and funnels their
// outcomes into a single results channel.
type Dispatcher struct {
	engine  engine.Engine
	depth   int
	timeout time.Duration
	log     *logger.Logger

	ctx     context.Context
	results chan Result

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher whose workers stop when ctx is done.
func NewDispatcher(ctx context.Context, eng engine.Engine, depth int, timeout time.Duration, log *logger.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultWorkerTimeout
	}
	return &Dispatcher{
		engine:  eng,
		depth:   depth,
		timeout: timeout,
		log:     log,
		ctx:     ctx,
		results: make(chan Result, resultBuffer),
	}
}

// Results is the channel the collector drains.
func (d *Dispatcher) Results() <-chan Result {
	return d.results
}

// Dispatch starts a search for the session's board at the given version.
// It never blocks, and reports false once the dispatcher is closed.
func (d *Dispatcher) Dispatch(sessionID string, version uint64, board engine.Board) bool {
	private := board.Clone()

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return false
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()

		res := d.run(sessionID, version, private)
		select {
		case d.results <- res:
		case <-d.ctx.Done():
		}
	}()
	return true
}

// Close refuses further dispatches and waits for running workers to report
// or give up. Workers only give up once the dispatcher's context is done.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) run(sessionID string, version uint64, board engine.Board) Result {
	start := time.Now()
	ctx, cancel := context.WithTimeout(d.ctx, d.timeout)
	defer cancel()

	type outcome struct {
		board engine.Board
		err   error
	}
	// Buffered so a search that outlives the timeout can still finish and exit.
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("%w: panic: %v", ErrWorkerFailure, r)}
			}
		}()
		b, err := d.engine.Search(ctx, board, d.depth)
		done <- outcome{board: b, err: err}
	}()

	res := Result{SessionID: sessionID, Version: version}
	select {
	case out := <-done:
		res.Board = out.board
		res.Err = classifySearchError(out.err)
		if res.Err == nil && len(res.Board) == 0 {
			res.Err = fmt.Errorf("%w: search returned an empty board", ErrWorkerFailure)
		}
	case <-ctx.Done():
		res.Err = classifySearchError(ctx.Err())
	}
	res.Elapsed = time.Since(start)

	if res.Err != nil {
		d.log.Error("AI search failed",
			logger.F("uid", sessionID),
			logger.Duration("elapsed", res.Elapsed),
			logger.Err(res.Err))
	} else {
		d.log.Debug("AI search finished",
			logger.F("uid", sessionID),
			logger.Duration("elapsed", res.Elapsed))
	}
	return res
}

func classifySearchError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrWorkerFailure):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return ErrWorkerTimeout
	default:
		return fmt.Errorf("%w: %w", ErrWorkerFailure, err)
	}
}
