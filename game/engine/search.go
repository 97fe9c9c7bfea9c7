package engine

import (
	"context"
	"errors"
	"math/rand/v2"
)

// ctxCheckInterval is how many evaluated nodes pass between context checks.
const ctxCheckInterval = 1024

var errNoMoves = errors.New("no legal moves")

// searcher runs a plain minimax from the point of view of one side.
type searcher struct {
	ctx      context.Context
	ai       Color
	depth    int
	maxPlies int
	nodes    int
}

type scored struct {
	score float64
	first Step
}

func newSearcher(ctx context.Context, ai Color, depth, maxPlies int) *searcher {
	if depth < 1 {
		depth = 1
	}
	return &searcher{ctx: ctx, ai: ai, depth: depth, maxPlies: maxPlies}
}

// best returns the chosen step for the side to move in p. Ties are broken at
// random so repeated games do not replay identically.
func (s *searcher) best(p position) (Step, error) {
	steps := p.legalSteps()
	if len(steps) == 0 {
		return Step{}, errNoMoves
	}
	var candidates []scored
	for _, step := range steps {
		child := p
		if err := child.apply(step, s.maxPlies); err != nil {
			return Step{}, err
		}
		score, err := s.minimax(child, 1)
		if err != nil {
			return Step{}, err
		}
		candidates = append(candidates, scored{score: score, first: step})
	}
	top := candidates[0].score
	for _, c := range candidates[1:] {
		if s.better(p.next, c.score, top) {
			top = c.score
		}
	}
	var ties []Step
	for _, c := range candidates {
		if c.score == top {
			ties = append(ties, c.first)
		}
	}
	return ties[rand.IntN(len(ties))], nil
}

// better reports whether a beats b for the side mover.
func (s *searcher) better(mover Color, a, b float64) bool {
	if mover == s.ai {
		return a > b
	}
	return a < b
}

func (s *searcher) minimax(p position, ply int) (float64, error) {
	s.nodes++
	if s.nodes%ctxCheckInterval == 0 {
		if err := s.ctx.Err(); err != nil {
			return 0, err
		}
	}
	if p.finished() || ply >= s.depth {
		return s.evaluate(&p), nil
	}
	steps := p.legalSteps()
	if len(steps) == 0 {
		return s.evaluate(&p), nil
	}
	var (
		best  float64
		found bool
	)
	for _, step := range steps {
		child := p
		if err := child.apply(step, s.maxPlies); err != nil {
			return 0, err
		}
		score, err := s.minimax(child, ply+1)
		if err != nil {
			return 0, err
		}
		if !found || s.better(p.next, score, best) {
			best = score
			found = true
		}
	}
	return best, nil
}

// evaluate scores p from the searching side's perspective: large values are
// good for the AI, small values for its opponent.
func (s *searcher) evaluate(p *position) float64 {
	var outcome float64
	switch {
	case p.winner == s.ai:
		outcome = 1
	case p.finished() && p.winner != Draw:
		outcome = -1
	}
	opp := s.ai.Opponent()
	aiNormal, aiDames := p.count(s.ai)
	oppNormal, oppDames := p.count(opp)
	material := float64(aiNormal-oppNormal) / 12
	dames := float64(aiDames-oppDames) / 12
	return outcome*20 + material + dames*3 + float64(aiDames)
}
