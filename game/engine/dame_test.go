package engine

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestDame_NewGame(t *testing.T) {
	eng := NewDame(DefaultMaxPlies)

	board, err := eng.NewGame()
	if err != nil {
		t.Fatalf("NewGame failed: %v", err)
	}

	status, err := ReadStatus(board)
	if err != nil {
		t.Fatalf("ReadStatus failed: %v", err)
	}
	if status.NextMove != Black {
		t.Errorf("Expected Black to move first, got %v", status.NextMove)
	}
	if status.Finished() {
		t.Error("Expected a fresh game not to be finished")
	}

	var raw map[string]any
	if err := json.Unmarshal(board, &raw); err != nil {
		t.Fatalf("Board is not valid JSON: %v", err)
	}
	for _, key := range []string{"board", "next_move", "winner", "valid_pieces_to_move", "last_moves", "move_no"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("Expected key %q in board JSON", key)
		}
	}
	if raw["winner"] != "None" {
		t.Errorf("Expected winner None, got %v", raw["winner"])
	}
	cells, _ := raw["board"].([]any)
	if len(cells) != 64 || cells[0] != "WhiteNormal" {
		t.Errorf("Expected 64 named cells starting with WhiteNormal, got %d cells", len(cells))
	}
}

func TestDame_MovesFor(t *testing.T) {
	eng := NewDame(DefaultMaxPlies)
	board, _ := eng.NewGame()

	moves, err := eng.MovesFor(board, 1, 5)
	if err != nil {
		t.Fatalf("MovesFor failed: %v", err)
	}
	if len(moves) != 2 {
		t.Errorf("Expected 2 moves, got %v", moves)
	}

	moves, err = eng.MovesFor(board, 3, 3)
	if err != nil {
		t.Fatalf("MovesFor on empty cell failed: %v", err)
	}
	if moves == nil || len(moves) != 0 {
		t.Errorf("Expected empty non-nil slice for empty cell, got %#v", moves)
	}

	data, _ := json.Marshal(map[string]any{"valid_moves": moves})
	if string(data) != `{"valid_moves":[]}` {
		t.Errorf("Unexpected encoding: %s", data)
	}
}

func TestDame_ApplyMove(t *testing.T) {
	eng := NewDame(DefaultMaxPlies)
	board, _ := eng.NewGame()

	t.Run("legal move", func(t *testing.T) {
		next, err := eng.ApplyMove(board, 1, 5, 0, 4)
		if err != nil {
			t.Fatalf("ApplyMove failed: %v", err)
		}
		status, _ := ReadStatus(next)
		if status.NextMove != White {
			t.Errorf("Expected White to move next, got %v", status.NextMove)
		}
		last, err := LastMoves(next)
		if err != nil {
			t.Fatalf("LastMoves failed: %v", err)
		}
		if len(last) != 1 || last[0] != (Step{1, 5, 0, 4}) {
			t.Errorf("Expected last move b6-a5, got %v", last)
		}
	})

	t.Run("illegal move is rejected", func(t *testing.T) {
		_, err := eng.ApplyMove(board, 1, 5, 1, 4)
		if !errors.Is(err, ErrInvalidMove) {
			t.Errorf("Expected ErrInvalidMove, got %v", err)
		}
	})

	t.Run("wrong color is rejected", func(t *testing.T) {
		_, err := eng.ApplyMove(board, 0, 2, 1, 3)
		if !errors.Is(err, ErrInvalidMove) {
			t.Errorf("Expected ErrInvalidMove, got %v", err)
		}
	})

	t.Run("malformed board", func(t *testing.T) {
		_, err := eng.ApplyMove(Board(`{"board":`), 1, 5, 0, 4)
		if !errors.Is(err, ErrMalformedBoard) {
			t.Errorf("Expected ErrMalformedBoard, got %v", err)
		}
	})
}

func TestDame_Search(t *testing.T) {
	eng := NewDame(DefaultMaxPlies)
	board, _ := eng.NewGame()

	next, err := eng.Search(context.Background(), board, 3)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	status, _ := ReadStatus(next)
	if status.NextMove != White {
		t.Errorf("Expected the turn to pass to White, got %v", status.NextMove)
	}
	last, _ := LastMoves(next)
	if len(last) == 0 {
		t.Error("Expected the search to record its move")
	}
}

func TestDame_SearchTakesCapture(t *testing.T) {
	eng := NewDame(0)
	p := emptyPosition(White)
	place(&p, 2, 2, WhiteNormal)
	place(&p, 3, 3, BlackNormal)
	place(&p, 7, 7, BlackNormal)
	p.updateMovable()
	board, err := encodeDame(p, nil)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	next, err := eng.Search(context.Background(), board, 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	last, _ := LastMoves(next)
	if len(last) != 1 || last[0] != (Step{2, 2, 4, 4}) {
		t.Errorf("Expected the forced capture, got %v", last)
	}
}

func TestDame_SearchHonoursContext(t *testing.T) {
	eng := NewDame(DefaultMaxPlies)
	board, _ := eng.NewGame()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := eng.Search(ctx, board, 6)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestDame_SearchFinishedGame(t *testing.T) {
	eng := NewDame(DefaultMaxPlies)
	board := Board(`{"board":[],"next_move":"White","winner":"Black"}`)

	_, err := eng.Search(context.Background(), board, 3)
	if !errors.Is(err, ErrInvalidMove) {
		t.Errorf("Expected ErrInvalidMove, got %v", err)
	}
}

func TestDame_AIVsAITerminates(t *testing.T) {
	eng := NewDame(60)
	board, _ := eng.NewGame()

	for i := 0; i < 100; i++ {
		status, err := ReadStatus(board)
		if err != nil {
			t.Fatalf("ReadStatus failed: %v", err)
		}
		if status.Finished() {
			return
		}
		board, err = eng.Search(context.Background(), board, 2)
		if err != nil {
			t.Fatalf("Search failed at turn %d: %v", i, err)
		}
	}
	t.Fatal("Expected the game to finish within the ply limit")
}

func TestDame_AcceptsLegacyBoard(t *testing.T) {
	cells := make([]string, 64)
	for i := range cells {
		cells[i] = "Empty"
	}
	cells[2*8+2] = "WhiteDame"
	cells[6*8+6] = "BlackDame"
	legacy := map[string]any{
		"positions":            [][2]int{{2, 2}, {6, 6}},
		"board":                cells,
		"next_move":            "Black",
		"valid_pieces_to_move": [][2]int{{6, 6}},
		"winner":               "None",
		"last_moves":           [][4]int{},
		"move_no":              12,
	}
	data, _ := json.Marshal(legacy)

	eng := NewDame(DefaultMaxPlies)
	moves, err := eng.MovesFor(Board(data), 6, 6)
	if err != nil {
		t.Fatalf("MovesFor failed: %v", err)
	}
	if len(moves) != 4 {
		t.Errorf("Expected 4 moves for a free dame, got %v", moves)
	}
}

func TestReadStatus(t *testing.T) {
	tests := []struct {
		name    string
		board   string
		want    Status
		wantErr bool
	}{
		{"white to move", `{"next_move":"White","winner":"None"}`, Status{White, None}, false},
		{"case insensitive", `{"next_move":"BLACK","winner":"none"}`, Status{Black, None}, false},
		{"finished", `{"next_move":"White","winner":"Black"}`, Status{White, Black}, false},
		{"draw", `{"next_move":"Black","winner":"Draw"}`, Status{Black, Draw}, false},
		{"missing mover", `{"winner":"None"}`, Status{}, true},
		{"unknown color", `{"next_move":"Green","winner":"None"}`, Status{}, true},
		{"not json", `nope`, Status{}, true},
		{"empty", ``, Status{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadStatus(Board(tt.board))
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedBoard) {
					t.Errorf("Expected ErrMalformedBoard, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadStatus failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestRender(t *testing.T) {
	eng := NewDame(DefaultMaxPlies)
	board, _ := eng.NewGame()

	out, err := Render(board)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 9 {
		t.Fatalf("Expected header plus 8 rows, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[1], "1 w . w") {
		t.Errorf("Unexpected first row: %q", lines[1])
	}
}

func TestBoardJSON(t *testing.T) {
	payload := struct {
		Board Board `json:"board"`
	}{}
	if err := json.Unmarshal([]byte(`{"board":{"next_move":"White"}}`), &payload); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if string(payload.Board) != `{"next_move":"White"}` {
		t.Errorf("Unexpected raw board: %s", payload.Board)
	}
	out, _ := json.Marshal(payload)
	if string(out) != `{"board":{"next_move":"White"}}` {
		t.Errorf("Unexpected encoding: %s", out)
	}
}
