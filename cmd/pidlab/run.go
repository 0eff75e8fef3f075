package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/pidlab/internal/automation"
	"github.com/san-kum/pidlab/internal/config"
	"github.com/san-kum/pidlab/internal/dynamo"
	"github.com/san-kum/pidlab/internal/experiment"
	"github.com/san-kum/pidlab/internal/optim"
	"github.com/san-kum/pidlab/internal/storage"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	exp, err := experiment.FromConfig(cfg)
	if err != nil {
		return err
	}
	if traceEvery > 0 {
		exp.GetSimulator().AddObserver(&stepTracer{log: logger, every: traceEvery})
	}

	fmt.Printf("running %s with %s controller...\n", cfg.Plant, cfg.Controller)
	start := time.Now()

	result, err := exp.Run(cmd.Context())
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	for _, e := range result.Errors {
		logger.Warn("simulation stopped early", zap.Error(e))
	}

	runID, err := st.Save(cfg, result)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d\n", result.StepsTaken)
	fmt.Println("\nmetrics:")
	for _, name := range sortedMetricNames(result.Metrics) {
		fmt.Printf("  %s: %.6f\n", name, result.Metrics[name])
	}

	return nil
}

// stepTracer logs every n-th simulation step.
type stepTracer struct {
	log   *zap.Logger
	every int
	n     int
}

func (s *stepTracer) OnStep(x dynamo.State, u dynamo.Control, t float64) {
	if s.n%s.every == 0 {
		s.log.Debug("step",
			zap.Int("n", s.n),
			zap.Float64("t", t),
			zap.Float64s("x", x),
			zap.Float64s("u", u),
		)
	}
	s.n++
}

func compareControlGains(cmd *cobra.Command, args []string) error {
	base, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}
	if base.Controller != "pid" {
		return fmt.Errorf("compare needs the pid controller, got %s", base.Controller)
	}

	sims := make([]*dynamo.Simulator, 0, len(kcValues))
	for _, v := range kcValues {
		cfg := base.Clone()
		cfg.ControllerParams.ControlGain = v
		exp, err := experiment.FromConfig(cfg)
		if err != nil {
			return fmt.Errorf("kc=%g: %w", v, err)
		}
		sims = append(sims, exp.GetSimulator())
	}

	simCfg := dynamo.Config{Dt: base.Dt, Duration: base.Duration, ValidateState: true}
	results, err := dynamo.NewEnsemble(sims...).Run(cmd.Context(), base.GetInitState(), simCfg)
	if err != nil {
		return err
	}

	cp := base.ControllerParams
	fmt.Printf("comparing anti-windup gains for %s (setpoint=%g, saturation=%g)\n\n", base.Plant, cp.Setpoint, cp.Saturation)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KC\tIAE\tISE\tOVERSHOOT\tSATURATED\tEFFORT")
	traces := make([][]float64, 0, len(results))
	for i, r := range results {
		m := r.Metrics
		fmt.Fprintf(w, "%g\t%.4f\t%.4f\t%.2f%%\t%.1f%%\t%.4f\n",
			kcValues[i], m["iae"], m["ise"], 100*m["overshoot"], 100*m["saturation"], m["control_effort"])
		traces = append(traces, r.Series(cp.Index))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(asciigraph.PlotMany(traces,
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("x%d for kc=%v", cp.Index, kcValues)),
	))
	return nil
}

func tuneController(cmd *cobra.Command, args []string) error {
	base, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}
	if len(tuneRanges) == 0 {
		return fmt.Errorf("at least one --range is required")
	}

	names := make([]string, 0, len(tuneRanges))
	ranges := make([][]float64, 0, len(tuneRanges))
	for _, spec := range tuneRanges {
		name, values, err := optim.ParseRange(spec)
		if err != nil {
			return err
		}
		names = append(names, name)
		ranges = append(ranges, values)
	}

	gs := optim.NewGridSearch(names, ranges)
	gs.Workers = workers
	gs.Logger = logger

	fmt.Printf("tuning %s over %d candidates, minimising %s...\n", base.Plant, len(gs.Candidates()), metricName)
	start := time.Now()
	best, score, err := gs.Search(cmd.Context(), optim.ExperimentEvaluator(base, metricName))
	if err != nil {
		return err
	}
	fmt.Printf("done in %v\n\nbest %s: %.6f\n", time.Since(start), metricName, score)
	for _, name := range names {
		fmt.Printf("  %s = %g\n", name, best[name])
	}

	if outFile == "" {
		return nil
	}
	tuned := base.Clone()
	for name, v := range best {
		if err := tuned.ControllerParams.Set(name, v); err != nil {
			return err
		}
	}
	if err := config.Save(outFile, tuned); err != nil {
		return err
	}
	fmt.Printf("\nwrote %s\n", outFile)
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	fmt.Printf("scenario: %s\n", sc.Name)
	if sc.Description != "" {
		fmt.Printf("%s\n", sc.Description)
	}
	fmt.Println()

	results, runErr := automation.RunScenario(cmd.Context(), sc, st, logger)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tPLANT\tKC\tIAE\tOVERSHOOT\tSATURATED\tRUN")
	for _, r := range results {
		m := r.Metrics
		runID := r.RunID
		if runID == "" {
			runID = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%g\t%.4f\t%.2f%%\t%.1f%%\t%s\n",
			r.Name, r.Config.Plant, r.Config.ControllerParams.ControlGain,
			m["iae"], 100*m["overshoot"], 100*m["saturation"], runID)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return runErr
}

func runSweep(cmd *cobra.Command, args []string) error {
	base, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}

	results, err := automation.RunSweep(cmd.Context(), &automation.ParameterSweep{
		Base:      base,
		ParamName: sweepParam,
		ParamMin:  sweepMin,
		ParamMax:  sweepMax,
		NumSteps:  sweepSteps,
	}, logger)
	if err != nil {
		return err
	}

	fmt.Printf("sweeping %s on %s\n\n", sweepParam, base.Plant)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tIAE\tOVERSHOOT\tSATURATED\tEFFORT\n", sweepParam)
	for _, r := range results {
		if r.Diverged {
			fmt.Fprintf(w, "%g\tdiverged\t\t\t\n", r.ParamValue)
			continue
		}
		m := r.Metrics
		fmt.Fprintf(w, "%g\t%.4f\t%.2f%%\t%.1f%%\t%.4f\n",
			r.ParamValue, m["iae"], 100*m["overshoot"], 100*m["saturation"], m["control_effort"])
	}
	return w.Flush()
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	base, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("running %d trials on %s (perturbation %g)...\n", trials, base.Plant, perturbation)
	results, err := automation.RunMonteCarlo(cmd.Context(), &automation.MonteCarloConfig{
		Base:         base,
		Perturbation: perturbation,
		NumTrials:    trials,
		Tolerance:    tolerance,
		Seed:         base.Seed,
	}, logger)
	if err != nil {
		return err
	}

	settled, unsettled := automation.MonteCarloStats(results)
	fmt.Printf("settled:   %d\n", settled)
	fmt.Printf("unsettled: %d\n", unsettled)
	if len(results) > 0 {
		fmt.Printf("rate:      %.1f%%\n", 100*float64(settled)/float64(len(results)))
	}
	return nil
}
