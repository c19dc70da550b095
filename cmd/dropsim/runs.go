package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/dropsim/internal/analysis"
	"github.com/san-kum/dropsim/internal/export"
	"github.com/san-kum/dropsim/internal/storage"
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
	fmt.Fprintln(w, "ID\tNAME\tTIME\tT\tSTEPS\tFAIL\tLEAVES\tTHETA\tSTATUS")

	for _, run := range runs {
		status := "ok"
		if run.Error != "" {
			status = run.Error
		}
		theta := "-"
		if v, ok := run.Metrics["contact_angle"]; ok {
			theta = fmt.Sprintf("%.1f", v)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.4g/%gs\t%d\t%d\t%d\t%s\t%s\n",
			run.ID,
			run.Name,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Time,
			run.TEnd,
			run.Steps,
			run.Failures,
			run.Leaves,
			theta,
			status,
		)
	}

	return w.Flush()
}

func plot(data []float64, height int, caption string) {
	if len(data) < 2 {
		return
	}
	fmt.Println(asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(80),
		asciigraph.Caption(caption),
	))
	fmt.Println()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	rows, err := st.LoadLog(runID)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("name: %s\n", meta.Name)
	fmt.Printf("steps: %d (t=%g)\n\n", meta.Steps, meta.Time)

	dts := make([]float64, len(rows))
	umax := make([]float64, len(rows))
	leaves := make([]float64, len(rows))
	for i, r := range rows {
		dts[i] = r.Dt
		umax[i] = r.UMax
		leaves[i] = float64(r.Leaves)
	}
	plot(dts, 10, "dt")
	plot(umax, 10, "|u|max")
	plot(leaves, 10, "leaf cells")

	_, theta, radius := storage.Series(rows)
	plot(theta, 10, "contact angle (degrees)")
	plot(radius, 10, "wetted radius (m)")
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	rows, err := st.LoadLog(runID)
	if err != nil {
		return err
	}

	t, theta, radius := storage.Series(rows)
	if len(t) < 2 {
		return fmt.Errorf("not enough contact line samples")
	}

	fmt.Printf("contact line analysis: %s\n", meta.ID)
	fmt.Printf("samples: %d over %gs\n\n", len(t), t[len(t)-1]-t[0])

	fmt.Printf("final angle:  %.2f°\n", theta[len(theta)-1])
	fmt.Printf("final radius: %.4g m\n", radius[len(radius)-1])
	fmt.Printf("angle settled (±1°) at %gs\n", analysis.SettlingTime(t, theta, 1))
	tol := 0.01 * radius[len(radius)-1]
	fmt.Printf("radius settled (±1%%) at %gs\n", analysis.SettlingTime(t, radius, tol))

	if freq, ok := analysis.DominantFrequency(t, radius); ok {
		fmt.Printf("dominant oscillation: %.3f hz (period %.4g s)\n", freq, 1/freq)
	} else {
		fmt.Println("dominant oscillation: none")
	}
	fmt.Println()

	fmt.Println("radius vs angle:")
	fmt.Println(analysis.Portrait(radius, theta, 60, 20))

	n := 1
	for n < len(radius) {
		n *= 2
	}
	ps := analysis.PowerSpectrum(analysis.Resample(t, radius, n))
	plot(ps[1:len(ps)/4+1], 15, "power spectrum (wetted radius)")
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir)

	var w io.Writer = os.Stdout
	if dest != "" {
		f, err := os.Create(dest)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "json":
		return st.ExportJSON(w, runID)
	case "csv":
		return st.ExportCSV(w, runID)
	case "svg":
		return exportSVG(st, runID, w)
	default:
		return fmt.Errorf("unknown format: %s (available: json, csv, svg)", format)
	}
}

// exportSVG draws an interface frame written during the run.
func exportSVG(st *storage.Store, runID string, w io.Writer) error {
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	cfg, err := st.LoadConfig(runID)
	if err != nil {
		return err
	}

	dir := filepath.Join(meta.Output, "interface")
	path := filepath.Join(dir, fmt.Sprintf("%04d.dat", frame))
	if frame < 0 {
		frames, err := filepath.Glob(filepath.Join(dir, "*.dat"))
		if err != nil {
			return err
		}
		if len(frames) == 0 {
			return fmt.Errorf("no interface frames in %s", dir)
		}
		sort.Strings(frames)
		path = frames[len(frames)-1]
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	segs, err := export.ReadFacets(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	_, err = io.WriteString(w, export.FacetsSVG(segs, cfg.Domain.Size, 800, "#00ccff"))
	return err
}
