package storage

import (
	"encoding/json"
	"io"
	"os"
)

type ExportData struct {
	Run        RunMetadata `json:"run"`
	Times      []float64   `json:"times"`
	Original   []float64   `json:"original,omitempty"`
	Controlled []float64   `json:"controlled,omitempty"`
}

// ExportJSON writes a run's metadata and responses as one JSON document.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	resp, err := s.LoadResponse(runID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ExportData{
		Run:        *meta,
		Times:      resp.Times,
		Original:   resp.Original,
		Controlled: resp.Controlled,
	})
}

// ExportCSV copies a run's response table.
func (s *Store) ExportCSV(w io.Writer, runID string) error {
	if _, err := s.Load(runID); err != nil {
		return err
	}
	f, err := os.Open(s.path(runID, responseFile))
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(w, f)
	return err
}
