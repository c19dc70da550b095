package storage

import (
	"fmt"
	"strconv"

	"github.com/san-kum/dropsim/internal/dynamo"
)

// Row is one line of the run log.
type Row struct {
	I          int     `json:"i"`
	T          float64 `json:"t"`
	Dt         float64 `json:"dt"`
	UMax       float64 `json:"u_max"`
	Volume     float64 `json:"volume"`
	Divergence float64 `json:"divergence"`
	PIter      int     `json:"prediction_iterations"`
	PfIter     int     `json:"projection_iterations"`
	Leaves     int     `json:"leaves"`
	// Probed is set on rows where the contact line was measured.
	Probed bool    `json:"probed"`
	Theta  float64 `json:"theta,omitempty"`
	Radius float64 `json:"radius,omitempty"`
}

var rowHeader = []string{
	"i", "t", "dt", "u_max", "volume", "divergence",
	"prediction_iterations", "projection_iterations", "leaves", "theta", "radius",
}

func (r Row) record() []string {
	theta, radius := "", ""
	if r.Probed {
		theta, radius = formatFloat(r.Theta), formatFloat(r.Radius)
	}
	return []string{
		strconv.Itoa(r.I),
		formatFloat(r.T),
		formatFloat(r.Dt),
		formatFloat(r.UMax),
		formatFloat(r.Volume),
		formatFloat(r.Divergence),
		strconv.Itoa(r.PIter),
		strconv.Itoa(r.PfIter),
		strconv.Itoa(r.Leaves),
		theta,
		radius,
	}
}

func parseRow(record []string) (Row, error) {
	if len(record) != len(rowHeader) {
		return Row{}, fmt.Errorf("expected %d columns, got %d", len(rowHeader), len(record))
	}
	var (
		r    Row
		err  error
		ints = []*int{&r.I, &r.PIter, &r.PfIter, &r.Leaves}
		cols = []int{0, 6, 7, 8}
	)
	for k, p := range ints {
		if *p, err = strconv.Atoi(record[cols[k]]); err != nil {
			return Row{}, err
		}
	}
	floats := []*float64{&r.T, &r.Dt, &r.UMax, &r.Volume, &r.Divergence}
	for k, p := range floats {
		if *p, err = strconv.ParseFloat(record[k+1], 64); err != nil {
			return Row{}, err
		}
	}
	if record[9] != "" {
		r.Probed = true
		if r.Theta, err = strconv.ParseFloat(record[9], 64); err != nil {
			return Row{}, err
		}
		if r.Radius, err = strconv.ParseFloat(record[10], 64); err != nil {
			return Row{}, err
		}
	}
	return r, nil
}

// Recorder is an observer that keeps a Row per step. The contact line is
// measured every ProbeEvery steps; zero disables it.
type Recorder struct {
	ProbeEvery int
	Rows       []Row
}

func (r *Recorder) OnStep(s *dynamo.Simulator, st dynamo.StepStats) error {
	state := s.State()
	row := Row{
		I:          state.I,
		T:          state.T,
		Dt:         st.Dt,
		UMax:       s.Flow.MaxVelocity(),
		Volume:     s.Volume(),
		Divergence: st.Divergence,
		PIter:      st.Prediction.Iterations,
		PfIter:     st.Projection.Iterations,
		Leaves:     s.Mesh.Leaves(),
	}
	if r.ProbeEvery > 0 && state.I%r.ProbeEvery == 0 {
		if p := s.Probe(); p.OK {
			row.Probed, row.Theta, row.Radius = true, p.Theta, p.Radius
		}
	}
	r.Rows = append(r.Rows, row)
	return nil
}

// Series extracts the probed contact angle and wetted radius.
func Series(rows []Row) (t, theta, radius []float64) {
	for _, r := range rows {
		if !r.Probed {
			continue
		}
		t = append(t, r.T)
		theta = append(theta, r.Theta)
		radius = append(radius, r.Radius)
	}
	return t, theta, radius
}
