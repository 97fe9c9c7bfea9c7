package session

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/wricardo/mcp-training/damegame/game/engine"
)

// PlayerKind tells whether a color is driven by a client or by search.
type PlayerKind string

const (
	Human PlayerKind = "human"
	AI    PlayerKind = "ai"
)

// ParsePlayerKind accepts "human" or "ai" in any case.
func ParsePlayerKind(s string) (PlayerKind, error) {
	switch PlayerKind(strings.ToLower(strings.TrimSpace(s))) {
	case Human:
		return Human, nil
	case AI:
		return AI, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidPlayerKind, s)
}

// Players is the fixed assignment of kinds to colors.
type Players struct {
	White PlayerKind `json:"player_white"`
	Black PlayerKind `json:"player_black"`
}

// For returns the kind playing color c.
func (p Players) For(c engine.Color) PlayerKind {
	switch c {
	case engine.White:
		return p.White
	case engine.Black:
		return p.Black
	}
	return ""
}

// State is the per-session game state machine.
type State string

const (
	AwaitingHumanMove State = "awaiting_human_move"
	AwaitingAIResult  State = "awaiting_ai_result"
	Finished          State = "finished"
)

// Failure records the last AI search that did not produce a board.
type Failure struct {
	Message  string    `json:"message"`
	At       time.Time `json:"at"`
	Attempts int       `json:"attempts"`
}

// Session is a single game. Everything below mu is guarded by it.
type Session struct {
	ID        string
	Players   Players
	CreatedAt time.Time

	mu              sync.Mutex
	board           engine.Board
	version         uint64
	pendingAI       bool
	dispatchVersion uint64
	failure         *Failure
	queue           *UpdateQueue
}

func newSession(id string, players Players, board engine.Board, queueLimit int) *Session {
	return &Session{
		ID:        id,
		Players:   players,
		CreatedAt: time.Now(),
		board:     board,
		queue:     NewUpdateQueue(queueLimit),
	}
}

// state derives the state machine position. Callers hold s.mu.
func (s *Session) state(st engine.Status) State {
	if st.Finished() {
		return Finished
	}
	if s.Players.For(st.NextMove) == AI {
		return AwaitingAIResult
	}
	return AwaitingHumanMove
}

// Store holds every session of the process, plus the single resume slot
// filled from a startup snapshot.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	resume   *Snapshot
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
	}
}

// Insert adds a session, rejecting duplicate IDs.
func (st *Store) Insert(s *Session) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, exists := st.sessions[s.ID]; exists {
		return fmt.Errorf("%w: %s", ErrSessionExists, s.ID)
	}
	if st.resume != nil && st.resume.UID == s.ID {
		return fmt.Errorf("%w: %s is reserved for resume", ErrSessionExists, s.ID)
	}
	st.sessions[s.ID] = s
	return nil
}

// Get retrieves a session by ID.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	s, exists := st.sessions[id]
	st.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, nil
}

// List returns all sessions.
func (st *Store) List() []*Session {
	st.mu.RLock()
	defer st.mu.RUnlock()

	result := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		result = append(result, s)
	}
	return result
}

// Count returns the number of sessions.
func (st *Store) Count() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// SetResume fills the resume slot. It fails if the slot is taken or the
// snapshot's ID is already in use.
func (st *Store) SetResume(snap *Snapshot) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.resume != nil {
		return fmt.Errorf("%w: resume slot already holds %s", ErrSessionExists, st.resume.UID)
	}
	if _, exists := st.sessions[snap.UID]; exists {
		return fmt.Errorf("%w: %s", ErrSessionExists, snap.UID)
	}
	st.resume = snap
	return nil
}

// takeResume empties the resume slot and inserts the session built from it
// in one step, so concurrent creators cannot both claim the snapshot.
func (st *Store) takeResume(build func(*Snapshot) *Session) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.resume == nil {
		return nil, false
	}
	s := build(st.resume)
	st.resume = nil
	st.sessions[s.ID] = s
	return s, true
}

// ResumePending reports whether the resume slot is still filled.
func (st *Store) ResumePending() bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.resume != nil
}
