package dynamo

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/san-kum/dropsim/internal/mesh"
)

const checkpointVersion = 1

// checkpoint is everything a run needs to continue bit for bit: the leaf
// set, the leaf values of every registered field and the controller
// state. Halos and coarse levels are rebuilt by synchronisation.
type checkpoint struct {
	Version  int
	L0       float64
	MaxLevel int
	Axi      bool

	State    State
	Previous float64
	NRelax   [2]int
	Volume0  float64
	Failures int

	Leaves []mesh.Cell
	Fields map[string][]float64
}

// Dump writes a checkpoint of the current run to w.
func (s *Simulator) Dump(w io.Writer) error {
	m := s.Mesh
	cells := m.LeafCells()
	cp := checkpoint{
		Version:  checkpointVersion,
		L0:       m.L0,
		MaxLevel: m.MaxLevel,
		Axi:      m.Axi,
		State:    s.state,
		Previous: s.clock.Previous(),
		Volume0:  s.volume0,
		Failures: s.failures,
		Leaves:   cells,
		Fields:   make(map[string][]float64),
	}
	cp.NRelax[0], cp.NRelax[1] = s.Flow.NRelax()
	for _, f := range m.Fields() {
		vals := make([]float64, len(cells))
		for n, c := range cells {
			vals[n] = f.At(m, c.Level(), c.I(), c.J())
		}
		cp.Fields[f.Name] = vals
	}
	if err := gob.NewEncoder(w).Encode(&cp); err != nil {
		return fmt.Errorf("dynamo: encode checkpoint: %w", err)
	}
	return nil
}

// Restore replaces the mesh and fields with a checkpoint read from r.
func (s *Simulator) Restore(r io.Reader) error {
	var cp checkpoint
	if err := gob.NewDecoder(r).Decode(&cp); err != nil {
		return fmt.Errorf("dynamo: decode checkpoint: %w", err)
	}
	m := s.Mesh
	switch {
	case cp.Version != checkpointVersion:
		return fmt.Errorf("%w: version %d", ErrCheckpoint, cp.Version)
	case cp.L0 != m.L0 || cp.Axi != m.Axi:
		return fmt.Errorf("%w: domain %g (axi=%v), run has %g (axi=%v)", ErrCheckpoint, cp.L0, cp.Axi, m.L0, m.Axi)
	case cp.MaxLevel > m.MaxLevel:
		return fmt.Errorf("%w: level %d deeper than %d", ErrCheckpoint, cp.MaxLevel, m.MaxLevel)
	}
	for _, f := range m.Fields() {
		if len(cp.Fields[f.Name]) != len(cp.Leaves) {
			return fmt.Errorf("%w: field %q missing", ErrCheckpoint, f.Name)
		}
	}

	if err := m.SetLeaves(cp.Leaves); err != nil {
		return fmt.Errorf("%w: %v", ErrCheckpoint, err)
	}
	for _, f := range m.Fields() {
		f.Fill(0)
		vals := cp.Fields[f.Name]
		for n, c := range cp.Leaves {
			f.Set(m, c.Level(), c.I(), c.J(), vals[n])
		}
	}
	m.SyncAll()

	s.state = cp.State
	s.clock.Restore(cp.Previous)
	s.Flow.SetNRelax(cp.NRelax[0], cp.NRelax[1])
	s.volume0 = cp.Volume0
	s.failures = cp.Failures
	s.ready = true
	return nil
}

// DumpFile writes a checkpoint to a temporary file next to path and
// renames it into place.
func (s *Simulator) DumpFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := s.Dump(w); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// RestoreFile reads the checkpoint at path. A missing file yields an
// error wrapping fs.ErrNotExist.
func (s *Simulator) RestoreFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return s.Restore(bufio.NewReader(f))
}
