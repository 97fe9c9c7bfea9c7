package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/wricardo/mcp-training/damegame/game/engine"
)

// Snapshot is the one-time resume record accepted at startup. It is also the
// shape of the create response before the board fields are merged in.
type Snapshot struct {
	UID         string       `json:"uid"`
	PlayerWhite PlayerKind   `json:"player_white"`
	PlayerBlack PlayerKind   `json:"player_black"`
	Board       engine.Board `json:"board"`
}

// Players returns the player kinds recorded in the snapshot.
func (s *Snapshot) Players() Players {
	return Players{White: s.PlayerWhite, Black: s.PlayerBlack}
}

// ParseSnapshot decodes and validates a snapshot. The board may be given
// either as a JSON object or as a string holding the board JSON.
func ParseSnapshot(data []byte) (*Snapshot, error) {
	var raw struct {
		UID         string          `json:"uid"`
		PlayerWhite string          `json:"player_white"`
		PlayerBlack string          `json:"player_black"`
		Board       json.RawMessage `json:"board"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}

	if strings.TrimSpace(raw.UID) == "" {
		return nil, fmt.Errorf("%w: missing uid", ErrMalformedSnapshot)
	}
	white, err := ParsePlayerKind(raw.PlayerWhite)
	if err != nil {
		return nil, fmt.Errorf("%w: player_white: %w", ErrMalformedSnapshot, err)
	}
	black, err := ParsePlayerKind(raw.PlayerBlack)
	if err != nil {
		return nil, fmt.Errorf("%w: player_black: %w", ErrMalformedSnapshot, err)
	}

	board, err := decodeSnapshotBoard(raw.Board)
	if err != nil {
		return nil, err
	}
	if _, err := engine.ReadStatus(board); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedSnapshot, err)
	}

	return &Snapshot{
		UID:         raw.UID,
		PlayerWhite: white,
		PlayerBlack: black,
		Board:       board,
	}, nil
}

func decodeSnapshotBoard(raw json.RawMessage) (engine.Board, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, fmt.Errorf("%w: missing board", ErrMalformedSnapshot)
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("%w: board: %v", ErrMalformedSnapshot, err)
		}
		raw = bytes.TrimSpace([]byte(s))
	}
	if !json.Valid(raw) || raw[0] != '{' {
		return nil, fmt.Errorf("%w: board is not a JSON object", ErrMalformedSnapshot)
	}
	return engine.Board(raw).Clone(), nil
}

// LoadSnapshot reads a snapshot file.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}
	snap, err := ParseSnapshot(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return snap, nil
}

// SaveSnapshot writes a snapshot file that LoadSnapshot accepts.
func SaveSnapshot(path string, snap *Snapshot) error {
	if snap == nil {
		return fmt.Errorf("snapshot cannot be nil")
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot file: %w", err)
	}
	return nil
}
