package optim

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/pidlab/internal/config"
	"github.com/san-kum/pidlab/internal/experiment"
)

// ExperimentEvaluator scores controller parameters by running base with the
// overrides applied and reading metric from the result. Runs that diverge
// score +Inf.
func ExperimentEvaluator(base *config.Config, metric string) Evaluator {
	return func(ctx context.Context, params map[string]float64) (float64, error) {
		cfg := base.Clone()
		for name, v := range params {
			if err := cfg.ControllerParams.Set(name, v); err != nil {
				return 0, err
			}
		}

		exp, err := experiment.FromConfig(cfg)
		if err != nil {
			return 0, err
		}
		result, err := exp.Run(ctx)
		if err != nil {
			return 0, err
		}
		if len(result.Errors) > 0 {
			return math.Inf(1), nil
		}

		val, ok := result.Metrics[metric]
		if !ok {
			return 0, fmt.Errorf("optim: run has no metric %q", metric)
		}
		return val, nil
	}
}
