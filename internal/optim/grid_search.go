package optim

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var ErrNoCandidate = errors.New("optim: no candidate could be evaluated")

// Evaluator scores one parameter assignment; lower is better.
type Evaluator func(ctx context.Context, params map[string]float64) (float64, error)

type GridSearch struct {
	paramNames []string
	ranges     [][]float64

	// Workers bounds concurrent evaluations. Zero means GOMAXPROCS.
	Workers int
	Logger  *zap.Logger
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// Candidates enumerates the cartesian product of the ranges, last parameter
// varying fastest.
func (g *GridSearch) Candidates() []map[string]float64 {
	out := []map[string]float64{{}}
	for i, name := range g.paramNames {
		next := make([]map[string]float64, 0, len(out)*len(g.ranges[i]))
		for _, base := range out {
			for _, v := range g.ranges[i] {
				c := make(map[string]float64, len(base)+1)
				for k, bv := range base {
					c[k] = bv
				}
				c[name] = v
				next = append(next, c)
			}
		}
		out = next
	}
	return out
}

// Search evaluates every candidate and returns the one with the lowest
// score. Candidates whose evaluation fails or scores NaN are skipped; ties go
// to the earlier candidate.
func (g *GridSearch) Search(ctx context.Context, eval Evaluator) (map[string]float64, float64, error) {
	if len(g.paramNames) != len(g.ranges) {
		return nil, 0, fmt.Errorf("optim: %d parameters but %d ranges", len(g.paramNames), len(g.ranges))
	}
	log := g.Logger
	if log == nil {
		log = zap.NewNop()
	}
	workers := g.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	candidates := g.Candidates()
	scores := make([]float64, len(candidates))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i, params := range candidates {
		i, params := i, params
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			score, err := eval(egCtx, params)
			if err != nil {
				log.Debug("candidate rejected", zap.Any("params", params), zap.Error(err))
				scores[i] = math.NaN()
				return nil
			}
			scores[i] = score
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, 0, err
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	best := -1
	for i, s := range scores {
		if math.IsNaN(s) {
			continue
		}
		if best < 0 || s < scores[best] {
			best = i
		}
	}
	if best < 0 {
		return nil, 0, ErrNoCandidate
	}

	log.Info("grid search done",
		zap.Int("candidates", len(candidates)),
		zap.Any("best", candidates[best]),
		zap.Float64("score", scores[best]),
	)
	return candidates[best], scores[best], nil
}
