package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wricardo/mcp-training/damegame/game/engine"
	"github.com/wricardo/mcp-training/damegame/pkg/logger"
)

// DefaultDepth is the search depth used when none is configured.
const DefaultDepth = 5

// Board update sources, as they appear in [BOARD] log lines.
const (
	sourceNew    = "new"
	sourceHuman  = "human"
	sourceAI     = "ai"
	sourceLoaded = "loaded"
)

// EventWorkerFailure is published with the session's Failure when an AI
// search fails or times out.
const EventWorkerFailure = "worker_failure"

// Notifier receives every board that is appended to a session's update
// queue, and session events such as EventWorkerFailure. It is called with
// the session locked and must not block.
type Notifier interface {
	BroadcastBoard(sessionID string, board engine.Board)
	BroadcastEvent(sessionID string, event string, data interface{})
}

// Options configures a Manager.
type Options struct {
	// Depth is the AI search depth. Zero selects DefaultDepth.
	Depth int
	// WorkerTimeout bounds each AI search. Zero selects DefaultWorkerTimeout.
	WorkerTimeout time.Duration
	// QueueLimit bounds each update queue. Zero selects DefaultQueueLimit,
	// a negative value leaves queues unbounded.
	QueueLimit int
	Notifier   Notifier
	Logger     *logger.Logger
}

// Info is a read-only view of a session's state.
type Info struct {
	ID          string       `json:"uid"`
	PlayerWhite PlayerKind   `json:"player_white"`
	PlayerBlack PlayerKind   `json:"player_black"`
	State       State        `json:"state"`
	NextMove    engine.Color `json:"next_move"`
	Winner      engine.Color `json:"winner"`
	PendingAI   bool         `json:"pending_ai"`
	Version     uint64       `json:"version"`
	Queued      int          `json:"queued"`
	Dropped     int          `json:"dropped"`
	Failure     *Failure     `json:"failure,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Manager coordinates sessions, AI workers and the result collector.
type Manager struct {
	engine     engine.Engine
	store      *Store
	dispatcher *Dispatcher
	notifier   Notifier
	log        *logger.Logger
	queueLimit int

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// NewManager creates a manager and starts its result collector. Call Close
// to stop it.
func NewManager(eng engine.Engine, opts Options) *Manager {
	if opts.Depth < 1 {
		opts.Depth = DefaultDepth
	}
	if opts.QueueLimit == 0 {
		opts.QueueLimit = DefaultQueueLimit
	}
	if opts.Logger == nil {
		opts.Logger = logger.Discard()
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		engine:     eng,
		store:      NewStore(),
		notifier:   opts.Notifier,
		log:        opts.Logger,
		queueLimit: opts.QueueLimit,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	m.dispatcher = NewDispatcher(ctx, eng, opts.Depth, opts.WorkerTimeout, opts.Logger)

	collector := NewCollector(m.dispatcher.Results(), m.applyResult)
	go func() {
		defer close(m.done)
		collector.Run(ctx)
	}()

	return m
}

// Close stops the collector and cancels outstanding searches.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		m.cancel()
		<-m.done
		m.dispatcher.Close()
	})
}

// CreateSession starts a game for the given players. If a resume snapshot
// is pending it is consumed, and the session takes over its ID and board.
func (m *Manager) CreateSession(white, black PlayerKind) (*Snapshot, error) {
	players := Players{White: white, Black: black}
	for _, kind := range []PlayerKind{white, black} {
		if _, err := ParsePlayerKind(string(kind)); err != nil {
			return nil, err
		}
	}

	s, resumed := m.store.takeResume(func(snap *Snapshot) *Session {
		return newSession(snap.UID, players, snap.Board.Clone(), m.queueLimit)
	})
	if !resumed {
		board, err := m.engine.NewGame()
		if err != nil {
			return nil, fmt.Errorf("%w: new game: %w", ErrEngineFailure, err)
		}
		s = newSession(uuid.New().String(), players, board, m.queueLimit)
		if err := m.store.Insert(s); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m.log.Info("Session created",
		logger.F("uid", s.ID),
		logger.F("white", string(white)),
		logger.F("black", string(black)),
		logger.F("resumed", fmt.Sprintf("%t", resumed)))
	m.logBoard(sourceNew, s)

	snap := s.snapshot()
	m.evaluateDispatch(s)
	return snap, nil
}

// ApplyHumanMove moves the piece at (x, y) to (dx, dy) on behalf of the
// human player whose turn it is.
func (m *Manager) ApplyHumanMove(id string, x, y, dx, dy int) (engine.Board, error) {
	s, err := m.store.Get(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	status, err := engine.ReadStatus(s.board)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEngineFailure, err)
	}
	if status.Finished() {
		return nil, ErrGameFinished
	}
	if s.Players.For(status.NextMove) != Human {
		return nil, ErrNotHumanTurn
	}

	next, err := m.engine.ApplyMove(s.board.Clone(), x, y, dx, dy)
	if err != nil {
		if errors.Is(err, engine.ErrInvalidMove) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrEngineFailure, err)
	}

	m.commit(s, next, sourceHuman)
	m.evaluateDispatch(s)
	return next.Clone(), nil
}

// MovesFor lists the destinations of the piece at (x, y). The result is
// never nil.
func (m *Manager) MovesFor(id string, x, y int) ([]engine.Point, error) {
	s, err := m.store.Get(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	board := s.board.Clone()
	s.mu.Unlock()

	moves, err := m.engine.MovesFor(board, x, y)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEngineFailure, err)
	}
	if moves == nil {
		moves = []engine.Point{}
	}
	return moves, nil
}

// Poll removes and returns the oldest undelivered board of a session.
// Unknown sessions and empty queues both report false.
func (m *Manager) Poll(id string) (engine.Board, bool) {
	s, err := m.store.Get(id)
	if err != nil {
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.queue.Pop()
	if !ok {
		return nil, false
	}
	return b.Clone(), true
}

// Info describes a session.
func (m *Manager) Info(id string) (*Info, error) {
	s, err := m.store.Get(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info(), nil
}

// List describes every session, oldest first.
func (m *Manager) List() []*Info {
	sessions := m.store.List()
	infos := make([]*Info, 0, len(sessions))
	for _, s := range sessions {
		s.mu.Lock()
		infos = append(infos, s.info())
		s.mu.Unlock()
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})
	return infos
}

// Count returns the number of sessions.
func (m *Manager) Count() int {
	return m.store.Count()
}

// ResumePending reports whether a loaded snapshot still waits for a create.
func (m *Manager) ResumePending() bool {
	return m.store.ResumePending()
}

// Retry dispatches the AI again for a session whose last search failed.
// It is a no-op when a search is already running or it is not the AI's turn.
func (m *Manager) Retry(id string) (*Info, error) {
	s, err := m.store.Get(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failure != nil {
		m.log.Info("Retrying AI search",
			logger.F("uid", s.ID),
			logger.Int("attempts", s.failure.Attempts))
	}
	m.evaluateDispatch(s)
	return s.info(), nil
}

// Snapshot returns a resume record for the session's current board.
func (m *Manager) Snapshot(id string) (*Snapshot, error) {
	s, err := m.store.Get(id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot(), nil
}

// Resume arms the one-time resume slot. The next CreateSession takes over
// the snapshot's ID and board.
func (m *Manager) Resume(snap *Snapshot) error {
	if snap == nil {
		return fmt.Errorf("%w: nil snapshot", ErrMalformedSnapshot)
	}
	if snap.UID == "" {
		return fmt.Errorf("%w: missing uid", ErrMalformedSnapshot)
	}
	if _, err := engine.ReadStatus(snap.Board); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedSnapshot, err)
	}

	stored := *snap
	stored.Board = snap.Board.Clone()
	if err := m.store.SetResume(&stored); err != nil {
		return err
	}

	m.log.Info("Snapshot loaded", logger.F("uid", stored.UID))
	m.logSnapshot(sourceLoaded, &stored)
	return nil
}

// applyResult merges one worker result. It runs only on the collector
// goroutine.
func (m *Manager) applyResult(res Result) {
	s, err := m.store.Get(res.SessionID)
	if err != nil {
		m.log.Error("Result for unknown session", logger.F("uid", res.SessionID))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.pendingAI || res.Version != s.dispatchVersion {
		m.log.Debug("Discarding result of an abandoned search",
			logger.F("uid", s.ID),
			logger.F("version", fmt.Sprintf("%d", res.Version)))
		return
	}
	s.pendingAI = false

	if res.Version != s.version {
		m.log.Info("Discarding stale AI result",
			logger.F("uid", s.ID),
			logger.F("result_version", fmt.Sprintf("%d", res.Version)),
			logger.F("version", fmt.Sprintf("%d", s.version)))
		m.evaluateDispatch(s)
		return
	}

	if res.Err == nil {
		if _, err := engine.ReadStatus(res.Board); err != nil {
			res.Err = fmt.Errorf("%w: %w", ErrEngineFailure, err)
		}
	}
	if res.Err != nil {
		attempts := 1
		if s.failure != nil {
			attempts = s.failure.Attempts + 1
		}
		s.failure = &Failure{
			Message:  res.Err.Error(),
			At:       time.Now(),
			Attempts: attempts,
		}
		m.log.Error("AI move failed",
			logger.F("uid", s.ID),
			logger.Int("attempts", attempts),
			logger.Err(res.Err))
		if m.notifier != nil {
			m.notifier.BroadcastEvent(s.ID, EventWorkerFailure, *s.failure)
		}
		return
	}

	s.failure = nil
	m.commit(s, res.Board, sourceAI)
	m.evaluateDispatch(s)
}

// evaluateDispatch starts an AI search if the side to move is played by the
// AI and none is running yet. Callers hold s.mu.
func (m *Manager) evaluateDispatch(s *Session) {
	status, err := engine.ReadStatus(s.board)
	if err != nil {
		m.log.Error("Unreadable board", logger.F("uid", s.ID), logger.Err(err))
		return
	}
	if status.Finished() {
		return
	}
	if s.Players.For(status.NextMove) != AI || s.pendingAI {
		return
	}

	if !m.dispatcher.Dispatch(s.ID, s.version, s.board) {
		return
	}
	s.pendingAI = true
	s.dispatchVersion = s.version
	m.log.Debug("AI search dispatched",
		logger.F("uid", s.ID),
		logger.F("color", status.NextMove.String()),
		logger.F("version", fmt.Sprintf("%d", s.version)))
}

// commit stores a new board and publishes it. Callers hold s.mu.
func (m *Manager) commit(s *Session, board engine.Board, source string) {
	s.board = board
	s.version++
	s.queue.Push(board)
	if m.notifier != nil {
		m.notifier.BroadcastBoard(s.ID, board.Clone())
	}
	m.logBoard(source, s)
}

func (m *Manager) logBoard(source string, s *Session) {
	if !m.log.DebugEnabled() {
		return
	}
	m.logSnapshot(source, s.snapshot())
}

// logSnapshot writes a line whose snapshot field can be saved as-is and
// passed back with --load.
func (m *Manager) logSnapshot(source string, snap *Snapshot) {
	if !m.log.DebugEnabled() {
		return
	}
	data, err := json.Marshal(snap)
	if err != nil {
		m.log.Error("Failed to encode board", logger.F("uid", snap.UID), logger.Err(err))
		return
	}
	m.log.Debug("[BOARD]",
		logger.F("source", source),
		logger.F("uid", snap.UID),
		logger.F("snapshot", string(data)))
}

func (s *Session) snapshot() *Snapshot {
	return &Snapshot{
		UID:         s.ID,
		PlayerWhite: s.Players.White,
		PlayerBlack: s.Players.Black,
		Board:       s.board.Clone(),
	}
}

func (s *Session) info() *Info {
	info := &Info{
		ID:          s.ID,
		PlayerWhite: s.Players.White,
		PlayerBlack: s.Players.Black,
		PendingAI:   s.pendingAI,
		Version:     s.version,
		Queued:      s.queue.Len(),
		Dropped:     s.queue.Dropped(),
		CreatedAt:   s.CreatedAt,
	}
	if s.failure != nil {
		f := *s.failure
		info.Failure = &f
	}
	if status, err := engine.ReadStatus(s.board); err == nil {
		info.NextMove = status.NextMove
		info.Winner = status.Winner
		info.State = s.state(status)
	}
	return info
}
