package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"time"

	"github.com/san-kum/pidlab/internal/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	dataDir string
	verbose bool
	logger  = zap.NewNop()

	// run configuration
	configFile string
	preset     string
	dt         float64
	duration   float64
	seed       int64
	integrator string
	controller string
	kp         float64
	ki         float64
	kd         float64
	tc         float64
	kc         float64
	sat        float64
	setpoint   float64
	index      int
	precision  string
	initState  []float64

	// output
	outFile    string
	asJSON     bool
	traceEvery int

	// compare / tune
	kcValues   []float64
	tuneRanges []string
	metricName string
	workers    int

	// sweep / montecarlo
	sweepParam   string
	sweepMin     float64
	sweepMax     float64
	sweepSteps   int
	perturbation float64
	trials       int
	tolerance    float64

	// live
	period time.Duration
	speed  float64
	spStep float64
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pidlab",
		Short: "anti-windup PID controller lab",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := newLogger(verbose)
			if err != nil {
				return err
			}
			logger = l
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".pidlab", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run [plant]",
		Short: "run a closed-loop simulation and store it",
		Args:  cobra.ExactArgs(1),
		RunE:  runSimulation,
	}
	addRunFlags(runCmd)
	runCmd.Flags().IntVar(&traceEvery, "trace", 0, "log every n-th step at debug level (with --verbose)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot tracked value and control of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run metadata and trajectory to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run trajectory to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default stdout)")

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "render tracked value, setpoint and control to SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default <run_id>.svg)")

	presetsCmd := &cobra.Command{
		Use:   "presets [plant]",
		Short: "list available presets for a plant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Printf("no presets for plant: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range presets {
				marker := " "
				if config.DefaultPresets[args[0]] == p {
					marker = "*"
				}
				fmt.Printf(" %s%s\n", marker, p)
			}
			return nil
		},
	}

	compareCmd := &cobra.Command{
		Use:   "compare [plant]",
		Short: "run the same loop across anti-windup gains",
		Args:  cobra.ExactArgs(1),
		RunE:  compareControlGains,
	}
	addRunFlags(compareCmd)
	compareCmd.Flags().Float64SliceVar(&kcValues, "kcs", []float64{0, 0.1, 0.5, 1}, "anti-windup gains to compare")

	tuneCmd := &cobra.Command{
		Use:   "tune [plant]",
		Short: "grid search controller parameters",
		Args:  cobra.ExactArgs(1),
		RunE:  tuneController,
	}
	addRunFlags(tuneCmd)
	tuneCmd.Flags().StringArrayVar(&tuneRanges, "range", nil, "parameter range, name=a,b,c or name=lo:hi:n (repeatable)")
	tuneCmd.Flags().StringVar(&metricName, "metric", "iae", "metric to minimise")
	tuneCmd.Flags().IntVar(&workers, "workers", 0, "concurrent evaluations (0 = GOMAXPROCS)")
	tuneCmd.Flags().StringVarP(&outFile, "out", "o", "", "write the best configuration to this yaml file")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "step-response figures of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().Float64Var(&setpoint, "setpoint", 0, "setpoint for runs without a pid controller")
	analyzeCmd.Flags().IntVar(&index, "index", 0, "state index for runs without a pid controller")
	analyzeCmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a yaml scenario",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep [plant]",
		Short: "vary one controller parameter over a range",
		Args:  cobra.ExactArgs(1),
		RunE:  runSweep,
	}
	addRunFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParam, "param", "kc", "controller parameter to vary")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 0, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 1, "last value")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 5, "number of values")

	monteCarloCmd := &cobra.Command{
		Use:   "montecarlo [plant]",
		Short: "run trials from perturbed initial states",
		Args:  cobra.ExactArgs(1),
		RunE:  runMonteCarlo,
	}
	addRunFlags(monteCarloCmd)
	monteCarloCmd.Flags().Float64Var(&perturbation, "perturb", 0.5, "maximum perturbation per state component")
	monteCarloCmd.Flags().IntVar(&trials, "trials", 50, "number of trials")
	monteCarloCmd.Flags().Float64Var(&tolerance, "tol", 0.05, "final tracking error counted as settled")

	liveCmd := &cobra.Command{
		Use:   "live [plant]",
		Short: "drive a simulated plant in real time with a live view",
		Args:  cobra.ExactArgs(1),
		RunE:  runLive,
	}
	addRunFlags(liveCmd)
	liveCmd.Flags().DurationVar(&period, "period", 50*time.Millisecond, "loop period")
	liveCmd.Flags().Float64Var(&speed, "speed", 1, "simulated seconds per wall-clock second")
	liveCmd.Flags().Float64Var(&spStep, "step", 1, "setpoint change per +/- key")

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportJSONCmd, exportCSVCmd, exportSVGCmd, presetsCmd,
		compareCmd, tuneCmd, analyzeCmd, scenarioCmd, sweepCmd, monteCarloCmd, liveCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}

func addRunFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&preset, "preset", "", "use preset configuration")
	f.Float64Var(&dt, "dt", config.DefaultDt, "sampling time")
	f.Float64Var(&duration, "time", config.DefaultDuration, "duration")
	f.Int64Var(&seed, "seed", 0, "random seed")
	f.StringVar(&integrator, "integrator", "rk4", "integrator")
	f.StringVar(&controller, "controller", "pid", "controller")
	f.Float64Var(&kp, "kp", config.DefaultKp, "proportional gain")
	f.Float64Var(&ki, "ki", config.DefaultKi, "integral gain")
	f.Float64Var(&kd, "kd", config.DefaultKd, "derivative gain")
	f.Float64Var(&tc, "tc", config.DefaultTimeConst, "derivative filter time constant")
	f.Float64Var(&kc, "kc", config.DefaultControlGain, "anti-windup gain")
	f.Float64Var(&sat, "sat", config.DefaultSaturation, "output saturation")
	f.Float64Var(&setpoint, "setpoint", config.DefaultSetpoint, "setpoint")
	f.IntVar(&index, "index", 0, "regulated state index")
	f.StringVar(&precision, "precision", config.DefaultPrecision, "controller arithmetic: float32 or float64")
	f.Float64SliceVar(&initState, "init", nil, "initial state")
}

// resolveConfig layers the plant default, --preset, --config and explicitly
// set flags, in that order.
func resolveConfig(cmd *cobra.Command, plant string) (*config.Config, error) {
	cfg := config.ForPlant(plant)

	if preset != "" {
		p := config.GetPreset(plant, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(plant))
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		cfg.Plant = plant
	}

	flags := cmd.Flags()
	cp := &cfg.ControllerParams
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("time") {
		cfg.Duration = duration
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if flags.Changed("controller") {
		cfg.Controller = controller
	}
	if flags.Changed("init") {
		cfg.InitState = initState
	}
	if flags.Changed("index") {
		cp.Index = index
	}
	if flags.Changed("precision") {
		cp.Precision = precision
	}

	gains := map[string]float64{"kp": kp, "ki": ki, "kd": kd, "tc": tc, "kc": kc, "sat": sat, "setpoint": setpoint}
	for _, name := range config.ControllerParamNames {
		if !flags.Changed(name) {
			continue
		}
		if err := cp.Set(name, gains[name]); err != nil {
			return nil, err
		}
	}

	logger.Debug("resolved config",
		zap.String("plant", cfg.Plant),
		zap.String("controller", cfg.Controller),
		zap.Float64("dt", cfg.Dt),
		zap.Float64("duration", cfg.Duration),
	)
	return cfg, nil
}

func sortedMetricNames(m map[string]float64) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
