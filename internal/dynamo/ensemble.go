package dynamo

import (
	"context"
	"sync"
)

// Ensemble runs independently built simulators concurrently from the same
// initial state. Each simulator must own its plant, controller and metrics.
type Ensemble struct {
	runs []*Simulator
}

func NewEnsemble(sims ...*Simulator) *Ensemble {
	return &Ensemble{runs: sims}
}

func (e *Ensemble) Run(ctx context.Context, x0 State, cfg Config) ([]*Result, error) {
	results := make([]*Result, len(e.runs))
	errs := make([]error, len(e.runs))

	var wg sync.WaitGroup
	for i, s := range e.runs {
		wg.Add(1)
		go func(idx int, s *Simulator) {
			defer wg.Done()
			results[idx], errs[idx] = s.Run(ctx, x0, cfg)
		}(i, s)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return results, nil
}
