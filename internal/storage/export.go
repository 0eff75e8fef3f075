package storage

import (
	"encoding/csv"
	"encoding/json"
	"io"
)

type ExportData struct {
	RunMetadata
	Times    []float64   `json:"times"`
	States   [][]float64 `json:"states"`
	Controls [][]float64 `json:"controls"`
}

// ExportJSON writes a run's metadata together with its full trajectory.
func (s *Store) ExportJSON(runID string, w io.Writer) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	tb, err := s.readTable(runID)
	if err != nil {
		return err
	}

	data := ExportData{
		RunMetadata: *meta,
		Times:       tb.times,
		States:      tb.states,
		Controls:    tb.controls,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// ExportCSV re-emits a run's trajectory table.
func (s *Store) ExportCSV(runID string, w io.Writer) error {
	tb, err := s.readTable(runID)
	if err != nil {
		return err
	}
	if len(tb.states) == 0 {
		return ErrNoData
	}

	cw := csv.NewWriter(w)
	if err := WriteCSV(cw, tb.times, tb.states, tb.controls); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}
