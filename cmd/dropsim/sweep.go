package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/dropsim/internal/config"
	"github.com/san-kum/dropsim/internal/dynamo"
	"github.com/san-kum/dropsim/internal/metrics"
	"github.com/san-kum/dropsim/internal/output"
	"github.com/san-kum/dropsim/internal/storage"
)

// sweepMember is one contact angle of a sweep.
type sweepMember struct {
	cfg *config.Config
	sim *dynamo.Simulator
	out *output.Writer
	rec *storage.Recorder
}

func runSweep(cmd *cobra.Command, args []string) error {
	base := config.GetPreset(sweepPreset)
	if base == nil {
		return fmt.Errorf("unknown preset: %s (available: %v)", sweepPreset, config.ListPresets())
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		base = loaded
	}
	if cmd.Flags().Changed("tend") {
		base.Solver.TEnd = sweepTEnd
	}
	if len(angles) == 0 {
		return fmt.Errorf("no contact angles given")
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	members := make([]*sweepMember, len(angles))
	ens := &dynamo.Ensemble{}
	for i, a := range angles {
		c := *base
		c.Name = fmt.Sprintf("%s-%g", base.Name, a)
		c.Contact.Angle = a
		c.Output.Dir = filepath.Join(base.Output.Dir, fmt.Sprintf("theta-%g", a))
		if err := c.Validate(); err != nil {
			return fmt.Errorf("angle %g: %w", a, err)
		}
		sim, err := c.Simulation()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(c.Output.Dir, 0755); err != nil {
			return err
		}
		log, err := os.Create(filepath.Join(c.Output.Dir, "log.txt"))
		if err != nil {
			return err
		}
		defer log.Close()

		members[i] = &sweepMember{
			cfg: &c,
			out: output.New(outputOptions(&c, log)),
			rec: &storage.Recorder{ProbeEvery: 10},
		}
		ens.Configs = append(ens.Configs, sim)
	}
	ens.Setup = func(i int, s *dynamo.Simulator) error {
		m := members[i]
		m.sim = s
		for _, metric := range metrics.Default() {
			s.AddMetric(metric)
		}
		s.AddObserver(m.out)
		s.AddObserver(m.rec)
		return nil
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	fmt.Printf("sweeping %d contact angles from %s, t_end=%gs\n", len(angles), base.Name, base.Solver.TEnd)
	start := time.Now()
	results, runErr := ens.Run(ctx)
	fmt.Printf("completed in %v\n\n", time.Since(start).Round(time.Millisecond))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ANGLE\tRUN\tSTEPS\tTHETA\tRADIUS\tDRIFT\tSTATUS")
	for i, m := range members {
		res := results[i]
		if res == nil || m.sim == nil {
			fmt.Fprintf(w, "%g\t-\t-\t-\t-\t-\tnot started\n", angles[i])
			continue
		}
		if err := m.out.Close(); err != nil {
			return err
		}
		var memberErr error
		status := "ok"
		if res.State.T < m.cfg.Solver.TEnd {
			memberErr = runErr
			status = "stopped"
		}
		runID, err := st.Save(m.cfg, res, m.sim.Mesh.Leaves(), m.rec.Rows, memberErr)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%g\t%s\t%d\t%.2f\t%.4g\t%.2e\t%s\n",
			angles[i], runID, res.Steps,
			res.Metrics["contact_angle"], res.Metrics["wetted_radius"], res.Metrics["mass_drift"],
			status)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return runErr
}
