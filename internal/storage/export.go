package storage

import (
	"encoding/json"
	"io"
)

type ExportData struct {
	Run  RunMetadata `json:"run"`
	Rows []Row       `json:"rows"`
}

// ExportJSON writes the metadata and the log of a run as one document.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	rows, err := s.LoadLog(runID)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ExportData{Run: *meta, Rows: rows})
}

// ExportCSV writes the log of a run in the same layout as log.csv.
func (s *Store) ExportCSV(w io.Writer, runID string) error {
	rows, err := s.LoadLog(runID)
	if err != nil {
		return err
	}
	return writeRows(w, rows)
}
