// Command selfplay runs AI-versus-AI games through the session manager and
// prints a short report for each: plies played, winner, and the final board.
// The final position of the last game can be written as a resume snapshot.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/damegame/game/engine"
	"github.com/wricardo/mcp-training/damegame/game/session"
	"github.com/wricardo/mcp-training/damegame/pkg/logger"
)

const (
	defaultGames   = 1
	defaultDepth   = 2
	defaultTimeout = 5 * time.Minute
	pollInterval   = 10 * time.Millisecond
)

// GameSummary describes one finished game. A turn is one board update; it
// holds several plies when a piece makes a multi-jump.
type GameSummary struct {
	UID     string
	Turns   int
	Plies   int
	Winner  engine.Color
	Elapsed time.Duration
	Final   *session.Snapshot
}

var errGameTimeout = errors.New("game did not finish in time")

// playGame starts an AI-vs-AI session and drains its updates until the
// game is finished.
func playGame(ctx context.Context, manager *session.Manager) (*GameSummary, error) {
	start := time.Now()
	snap, err := manager.CreateSession(session.AI, session.AI)
	if err != nil {
		return nil, err
	}
	summary := &GameSummary{UID: snap.UID}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		for {
			board, ok := manager.Poll(snap.UID)
			if !ok {
				break
			}
			steps, err := engine.LastMoves(board)
			if err != nil {
				return nil, err
			}
			summary.Turns++
			summary.Plies += len(steps)
		}

		info, err := manager.Info(snap.UID)
		if err != nil {
			return nil, err
		}
		if info.Failure != nil {
			return nil, fmt.Errorf("%w: %s", session.ErrWorkerFailure, info.Failure.Message)
		}
		if info.State == session.Finished && info.Queued == 0 {
			summary.Winner = info.Winner
			summary.Elapsed = time.Since(start)
			summary.Final, err = manager.Snapshot(snap.UID)
			return summary, err
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w after %d plies: %w", errGameTimeout, summary.Plies, ctx.Err())
		case <-ticker.C:
		}
	}
}

func printSummary(n int, s *GameSummary) {
	fmt.Printf("\n=== Game %d (%s) ===\n", n, s.UID)
	if board, err := engine.Render(s.Final.Board); err == nil {
		fmt.Print(board)
	}
	fmt.Printf("Turns: %d  Plies: %d\n", s.Turns, s.Plies)
	if s.Winner == engine.Draw {
		fmt.Println("Result: draw")
	} else {
		fmt.Printf("Result: %s wins\n", s.Winner)
	}
	fmt.Printf("Elapsed: %s\n", s.Elapsed.Round(time.Millisecond))
}

// intFlag returns the flag's value, or def when the flag was not given.
func intFlag(cmd *cli.Command, name string, def int) int {
	if cmd.IsSet(name) {
		return int(cmd.Int(name))
	}
	return def
}

func run(ctx context.Context, cmd *cli.Command) error {
	games := intFlag(cmd, "games", defaultGames)
	depth := intFlag(cmd, "depth", defaultDepth)
	maxPlies := intFlag(cmd, "max-plies", engine.DefaultMaxPlies)
	timeout := defaultTimeout
	if cmd.IsSet("timeout") {
		timeout = cmd.Duration("timeout")
	}
	if games < 1 || depth < 1 {
		return fmt.Errorf("games and depth must be at least 1")
	}

	log := logger.NewWithWriter(os.Stderr, cmd.Bool("debug"))
	manager := session.NewManager(engine.NewDame(maxPlies), session.Options{
		Depth:         depth,
		WorkerTimeout: timeout,
		QueueLimit:    -1,
		Logger:        log,
	})
	defer manager.Close()

	var last *GameSummary
	wins := map[engine.Color]int{}
	for i := 1; i <= games; i++ {
		gameCtx, cancel := context.WithTimeout(ctx, timeout)
		summary, err := playGame(gameCtx, manager)
		cancel()
		if err != nil {
			return fmt.Errorf("game %d: %w", i, err)
		}
		printSummary(i, summary)
		wins[summary.Winner]++
		last = summary
	}

	if games > 1 {
		fmt.Printf("\n=== Totals over %d games ===\n", games)
		fmt.Printf("White: %d  Black: %d  Draw: %d\n", wins[engine.White], wins[engine.Black], wins[engine.Draw])
	}

	if out := cmd.String("out"); out != "" {
		if err := session.SaveSnapshot(out, last.Final); err != nil {
			return err
		}
		fmt.Printf("\nFinal position written to %s\n", out)
	}
	return nil
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "selfplay",
		Usage: "Play AI-versus-AI Dame games",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "games", Usage: "Number of games to play (default 1)"},
			&cli.IntFlag{Name: "depth", Usage: "Search depth for both sides (default 2)"},
			&cli.IntFlag{Name: "max-plies", Usage: "Plies before a game is drawn (default 200)"},
			&cli.DurationFlag{Name: "timeout", Usage: "Limit for each game and each search (default 5m)"},
			&cli.StringFlag{Name: "out", Usage: "Write the last game's final position as a snapshot"},
			&cli.BoolFlag{Name: "debug", Usage: "Log every board"},
		},
		Action: run,
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
