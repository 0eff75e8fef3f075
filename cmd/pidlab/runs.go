package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/pidlab/internal/analysis"
	"github.com/san-kum/pidlab/internal/export"
	"github.com/san-kum/pidlab/internal/storage"
	"github.com/spf13/cobra"
)

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPLANT\tTIME\tDURATION\tDT\tINTEG\tCTRL\tKC")

	for _, run := range runs {
		kcCol := "-"
		if run.Gains != nil {
			kcCol = fmt.Sprintf("%g", run.Gains.ControlGain)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%.4fs\t%s\t%s\t%s\n",
			run.ID,
			run.Plant,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			run.Integrator,
			run.Controller,
			kcCol,
		)
	}

	return w.Flush()
}

// trackedIndex is the regulated state of a run, or 0 for open-loop runs.
func trackedIndex(meta *storage.RunMetadata) int {
	if meta.Gains != nil {
		return meta.Gains.Index
	}
	return 0
}

func column(rows [][]float64, i int) []float64 {
	out := make([]float64, len(rows))
	for r, row := range rows {
		if i < len(row) {
			out[r] = row[i]
		}
	}
	return out
}

func constant(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	states, _, err := st.LoadStates(runID)
	if err != nil {
		return err
	}
	if len(states) == 0 {
		return fmt.Errorf("no data to plot")
	}
	controls, err := st.LoadControls(runID)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("plant: %s\n", meta.Plant)
	fmt.Printf("samples: %d\n\n", len(states))

	idx := trackedIndex(meta)
	tracked := column(states, idx)
	if meta.Gains != nil {
		fmt.Println(asciigraph.PlotMany([][]float64{tracked, constant(len(tracked), meta.Gains.Setpoint)},
			asciigraph.Height(12),
			asciigraph.Width(80),
			asciigraph.SeriesColors(asciigraph.Green, asciigraph.Red),
			asciigraph.Caption(fmt.Sprintf("x%d (green) vs setpoint %g (red)", idx, meta.Gains.Setpoint)),
		))
	} else {
		fmt.Println(asciigraph.Plot(tracked,
			asciigraph.Height(12),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("x%d vs time", idx)),
		))
	}
	fmt.Println()

	if len(controls) > 0 && len(controls[0]) > 0 {
		// the last row has no control applied
		u := column(controls[:len(controls)-1], 0)
		if len(u) > 1 {
			fmt.Println(asciigraph.Plot(u,
				asciigraph.Height(6),
				asciigraph.Width(80),
				asciigraph.Caption("control u0"),
			))
			fmt.Println()
		}
	}

	return nil
}

func output(stdout io.Writer) (io.Writer, func() error, error) {
	if outFile == "" {
		return stdout, func() error { return nil }, nil
	}
	f, err := os.Create(outFile)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	w, closeFn, err := output(os.Stdout)
	if err != nil {
		return err
	}
	return errors.Join(storage.New(dataDir).ExportJSON(args[0], w), closeFn())
}

func exportCSV(cmd *cobra.Command, args []string) error {
	w, closeFn, err := output(os.Stdout)
	if err != nil {
		return err
	}
	return errors.Join(storage.New(dataDir).ExportCSV(args[0], w), closeFn())
}

func exportSVG(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	states, times, err := st.LoadStates(runID)
	if err != nil {
		return err
	}
	controls, err := st.LoadControls(runID)
	if err != nil {
		return err
	}

	idx := trackedIndex(meta)
	series := []export.Series{
		{Name: fmt.Sprintf("x%d", idx), Values: column(states, idx), Color: "#00ff88"},
	}
	if meta.Gains != nil {
		series = append(series, export.Series{Name: "setpoint", Values: constant(len(times), meta.Gains.Setpoint), Color: "#ff4444"})
	}
	if len(controls) > 1 {
		series = append(series, export.Series{Name: "u0", Values: column(controls[:len(controls)-1], 0), Color: "#ffcc00"})
	}

	path := outFile
	if path == "" {
		path = runID + ".svg"
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.WriteTimeSeriesSVG(f, times, series, 800, 400); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	states, times, err := st.LoadStates(runID)
	if err != nil {
		return err
	}

	idx, target := index, setpoint
	if meta.Gains != nil {
		if !cmd.Flags().Changed("index") {
			idx = meta.Gains.Index
		}
		if !cmd.Flags().Changed("setpoint") {
			target = meta.Gains.Setpoint
		}
	} else if !cmd.Flags().Changed("setpoint") {
		return fmt.Errorf("run %s has no pid controller; pass --setpoint", runID)
	}

	info, err := analysis.StepResponse(times, column(states, idx), target)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	fmt.Printf("step response: %s\n", meta.ID)
	fmt.Printf("plant: %s, x%d -> %g\n\n", meta.Plant, idx, target)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "rise time (10-90%%)\t%.4fs\n", info.RiseTime)
	fmt.Fprintf(w, "peak\t%.4f at %.4fs\n", info.Peak, info.PeakTime)
	fmt.Fprintf(w, "overshoot\t%.2f%%\n", 100*info.Overshoot)
	if info.Settled {
		fmt.Fprintf(w, "settling time (2%%)\t%.4fs\n", info.SettlingTime)
	} else {
		fmt.Fprintf(w, "settling time (2%%)\tnot settled\n")
	}
	fmt.Fprintf(w, "steady-state error\t%.6f\n", info.SteadyError)
	return w.Flush()
}
