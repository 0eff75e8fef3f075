package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/pidlab/internal/dynamo"
	"github.com/san-kum/pidlab/internal/experiment"
	"github.com/san-kum/pidlab/internal/loop"
	"github.com/san-kum/pidlab/internal/viz"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// scaledClock runs speed times faster than the wall clock. Readings keep
// their monotonic component.
func scaledClock(speed float64) func() time.Time {
	start := time.Now()
	return func() time.Time {
		return start.Add(time.Duration(float64(time.Since(start)) * speed))
	}
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}
	if cfg.Controller != "pid" {
		return fmt.Errorf("live needs the pid controller, got %s", cfg.Controller)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if !(speed > 0) || math.IsInf(speed, 1) {
		return fmt.Errorf("speed must be positive and finite, got %g", speed)
	}

	registry := experiment.NewRegistry()
	plant, err := registry.GetPlant(cfg.Plant)
	if err != nil {
		return err
	}
	if tunable, ok := plant.(dynamo.Configurable); ok {
		for k, v := range cfg.PlantParams {
			if err := tunable.SetParam(k, v); err != nil {
				return fmt.Errorf("plant_params: %w", err)
			}
		}
	}
	integ, err := registry.GetIntegrator(cfg.Integrator)
	if err != nil {
		return err
	}

	clock := scaledClock(speed)
	cp := cfg.ControllerParams
	sim, err := loop.NewPlantSim(plant, integ, cfg.GetInitState(), cp.Index)
	if err != nil {
		return err
	}
	sim.WithClock(clock)

	// The TUI owns the terminal, so the driver only logs with --verbose.
	driverLog := zap.NewNop()
	if verbose {
		driverLog = logger
	}

	snaps := make(chan loop.Snapshot, 64)
	driver, err := loop.New(cp.PIDConfig(), sim, sim, loop.Options{
		Period:    period,
		Setpoint:  cp.Setpoint,
		Snapshots: snaps,
		Logger:    driverLog,
		Clock:     clock,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- driver.Run(ctx) }()

	title := fmt.Sprintf("%s  x%d  (%gx)", cfg.Plant, cp.Index, speed)
	m := viz.NewModel(driver, snaps, title, spStep).WithReset(sim.Reset)
	_, uiErr := tea.NewProgram(m).Run()

	cancel()
	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		return errors.Join(uiErr, err)
	}
	return uiErr
}
