// Package storage keeps a directory per run with its metadata, the
// configuration it ran with and a per-step log.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/dropsim/internal/config"
	"github.com/san-kum/dropsim/internal/dynamo"
)

const (
	metadataFile = "metadata.json"
	configFile   = "config.yaml"
	logFile      = "log.csv"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Timestamp time.Time          `json:"timestamp"`
	TEnd      float64            `json:"t_end"`
	Time      float64            `json:"time"`
	Steps     int                `json:"steps"`
	Failures  int                `json:"failures"`
	Leaves    int                `json:"leaves"`
	Output    string             `json:"output"`
	Error     string             `json:"error,omitempty"`
	Metrics   map[string]float64 `json:"metrics"`
}

// Save writes a new run directory. runErr is the error the run stopped
// with, if any; an aborted run is still recorded.
func (s *Store) Save(cfg *config.Config, result *dynamo.Result, leaves int, rows []Row, runErr error) (string, error) {
	now := time.Now()
	base := fmt.Sprintf("%s_%d", cfg.Name, now.Unix())
	runID := base
	for k := 2; ; k++ {
		err := os.Mkdir(filepath.Join(s.baseDir, runID), 0755)
		if err == nil {
			break
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", err
		}
		runID = fmt.Sprintf("%s_%d", base, k)
	}
	runDir := filepath.Join(s.baseDir, runID)

	meta := RunMetadata{
		ID:        runID,
		Name:      cfg.Name,
		Timestamp: now,
		TEnd:      cfg.Solver.TEnd,
		Time:      result.State.T,
		Steps:     result.Steps,
		Failures:  result.Failures,
		Leaves:    leaves,
		Output:    cfg.Output.Dir,
		Metrics:   make(map[string]float64, len(result.Metrics)),
	}
	for name, v := range result.Metrics {
		// json has no NaN
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			meta.Metrics[name] = v
		}
	}
	if runErr != nil {
		meta.Error = runErr.Error()
	}

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()
	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	if err := config.Save(filepath.Join(runDir, configFile), cfg); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, logFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()
	if err := writeRows(csvFile, rows); err != nil {
		return "", err
	}
	return runID, csvFile.Sync()
}

func writeRows(out io.Writer, rows []Row) error {
	w := csv.NewWriter(out)
	if err := w.Write(rowHeader); err != nil {
		return err
	}
	for _, r := range rows {
		if err := w.Write(r.record()); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns every run under the store, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadConfig reads the configuration a run was started with.
func (s *Store) LoadConfig(runID string) (*config.Config, error) {
	return config.Load(filepath.Join(s.baseDir, runID, configFile))
}

// LoadLog reads the per-step log of a run.
func (s *Store) LoadLog(runID string) ([]Row, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, logFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []Row{}, nil
	}

	rows := make([]Row, 0, len(records)-1)
	for n, record := range records[1:] {
		row, err := parseRow(record)
		if err != nil {
			return nil, fmt.Errorf("storage: %s line %d: %w", logFile, n+2, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
