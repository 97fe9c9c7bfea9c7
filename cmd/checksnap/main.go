// Command checksnap validates resume snapshot files before they are passed
// to the server with --load. For each file it checks:
//   - JSON structure and the uid, player_white, player_black and board fields
//   - Player kinds are "human" or "ai"
//   - The board decodes as a Dame position with a known side to move
//   - Unfinished games still have a legal move
//
// Arguments are snapshot files; without arguments every *.json file in the
// current directory is checked.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wricardo/mcp-training/damegame/game/engine"
	"github.com/wricardo/mcp-training/damegame/game/session"
)

// ValidationResult captures the outcome of validating a single file.
// Notes holds informational lines; Errors is empty when the file is valid.
type ValidationResult struct {
	File   string
	Valid  bool
	Notes  []string
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...any) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// validateSnapshot loads and validates a single snapshot file.
func validateSnapshot(path string) ValidationResult {
	result := ValidationResult{
		File:  filepath.Base(path),
		Valid: true,
	}

	snap, err := session.LoadSnapshot(path)
	if err != nil {
		result.fail("%v", err)
		return result
	}
	result.Notes = append(result.Notes,
		fmt.Sprintf("uid %s", snap.UID),
		fmt.Sprintf("white: %s, black: %s", snap.PlayerWhite, snap.PlayerBlack))

	status, err := engine.ReadStatus(snap.Board)
	if err != nil {
		result.fail("%v", err)
		return result
	}

	if _, err := engine.Render(snap.Board); err != nil {
		result.fail("board is not a Dame position: %v", err)
		return result
	}

	if status.Finished() {
		result.Notes = append(result.Notes, fmt.Sprintf("finished, winner %s", status.Winner))
		return result
	}
	result.Notes = append(result.Notes, fmt.Sprintf("next move: %s", status.NextMove))

	legal, err := countLegalMoves(snap.Board)
	if err != nil {
		result.fail("%v", err)
		return result
	}
	if legal == 0 {
		result.fail("%s has no legal move but the game is not marked finished", status.NextMove)
		return result
	}
	result.Notes = append(result.Notes, fmt.Sprintf("%d legal moves", legal))
	return result
}

// countLegalMoves sums the destinations of every square on the board.
func countLegalMoves(board engine.Board) (int, error) {
	eng := engine.NewDame(0)
	total := 0
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			moves, err := eng.MovesFor(board, x, y)
			if err != nil {
				return 0, err
			}
			total += len(moves)
		}
	}
	return total, nil
}

func main() {
	files := os.Args[1:]
	if len(files) == 0 {
		var err error
		files, err = filepath.Glob("*.json")
		if err != nil {
			fmt.Printf("Error finding snapshot files: %v\n", err)
			os.Exit(1)
		}
	}
	if len(files) == 0 {
		fmt.Println("No snapshot files given")
		os.Exit(1)
	}

	allValid := true
	for _, file := range files {
		result := validateSnapshot(file)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)
		if result.Valid {
			fmt.Println("✅ VALID")
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
		}
		for _, note := range result.Notes {
			fmt.Println("  ✓ " + note)
		}
		for _, err := range result.Errors {
			fmt.Println("  ❌ " + err)
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All snapshots are valid!")
	} else {
		fmt.Println("❌ Some snapshots have errors")
		os.Exit(1)
	}
}
