package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/san-kum/dropsim/internal/config"
	"github.com/san-kum/dropsim/internal/dynamo"
	"github.com/san-kum/dropsim/internal/metrics"
	"github.com/san-kum/dropsim/internal/output"
	"github.com/san-kum/dropsim/internal/storage"
	"github.com/san-kum/dropsim/internal/viz"
)

var (
	dataDir    string
	configFile string
	preset     string
	restart    string
	outDir     string
	live       bool
	angle      float64
	minLevel   int
	maxLevel   int
	tEnd       float64
	body       float64
	// export
	format string
	frame  int
	dest   string
	// sweep
	angles      []float64
	sweepPreset string
	sweepTEnd   float64
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ccff"))
	keyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	errStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff5555"))
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Flag defaults mirror the default
// configuration and the sweep's base preset.
func newRootCmd() *cobra.Command {
	def := config.DefaultConfig()
	coarse := config.GetPreset("coarse")

	rootCmd := &cobra.Command{
		Use:          "dropsim",
		Short:        "axisymmetric sessile drop simulator",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".dropsim", "data directory")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a drop simulation",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	runCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	runCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	runCmd.Flags().StringVar(&restart, "restart", "", "checkpoint to restart from")
	runCmd.Flags().StringVar(&outDir, "out", "", "output directory")
	runCmd.Flags().BoolVar(&live, "live", false, "show the live terminal view")
	runCmd.Flags().Float64Var(&angle, "angle", def.Contact.Angle, "contact angle (degrees)")
	runCmd.Flags().IntVar(&minLevel, "min-level", def.Domain.MinLevel, "coarsest refinement level")
	runCmd.Flags().IntVar(&maxLevel, "max-level", def.Domain.MaxLevel, "finest refinement level")
	runCmd.Flags().Float64Var(&tEnd, "tend", def.Solver.TEnd, "end time (s)")
	runCmd.Flags().Float64Var(&body, "body", def.Fluids.Body, "extra uniform body acceleration (m/s^2)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run history",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "analyze the contact line of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run data",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVar(&format, "format", "json", "json, csv or svg")
	exportCmd.Flags().IntVar(&frame, "frame", -1, "interface frame for svg (default: last)")
	exportCmd.Flags().StringVar(&dest, "out", "", "output file (default: stdout)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list presets",
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range config.ListPresets() {
				p := config.GetPreset(name)
				fmt.Printf("  %-10s θ=%g°  levels %d..%d  t_end=%gs\n",
					name, p.Contact.Angle, p.Domain.MinLevel, p.Domain.MaxLevel, p.Solver.TEnd)
			}
		},
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "print a configuration as yaml",
		Args:  cobra.NoArgs,
		RunE:  printConfig,
	}
	configCmd.Flags().StringVar(&preset, "preset", "", "print this preset instead of the defaults")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "run one simulation per contact angle",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	sweepCmd.Flags().Float64SliceVar(&angles, "angles", []float64{60, 90, 120}, "contact angles (degrees)")
	sweepCmd.Flags().StringVar(&sweepPreset, "preset", coarse.Name, "base preset")
	sweepCmd.Flags().StringVar(&configFile, "config", "", "base config file (overrides preset)")
	sweepCmd.Flags().Float64Var(&sweepTEnd, "tend", coarse.Solver.TEnd, "end time (s)")

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, analyzeCmd, exportCmd, presetsCmd, configCmd, sweepCmd)
	return rootCmd
}

// loadConfig applies the preset, then the config file, then any flag the
// user set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("angle") {
		cfg.Contact.Angle = angle
	}
	if flags.Changed("min-level") {
		cfg.Domain.MinLevel = minLevel
	}
	if flags.Changed("max-level") {
		cfg.Domain.MaxLevel = maxLevel
		cfg.Domain.InitLevel = min(cfg.Domain.InitLevel, maxLevel)
	}
	if flags.Changed("tend") {
		cfg.Solver.TEnd = tEnd
	}
	if flags.Changed("body") {
		cfg.Fluids.Body = body
	}
	if flags.Changed("restart") {
		cfg.Output.Restart = restart
	}
	if flags.Changed("out") {
		cfg.Output.Dir = outDir
	}
	return cfg, cfg.Validate()
}

func outputOptions(cfg *config.Config, log io.Writer) output.Options {
	o := cfg.Output
	return output.Options{
		Dir:        o.Dir,
		Every:      o.Every,
		MovieEvery: o.MovieEvery,
		LogEvery:   o.LogEvery,
		ImageSize:  o.ImageSize,
		MovieSize:  o.MovieSize,
		VortRange:  o.VortRange,
		GIFFrames:  o.GIFFrames,
		Log:        log,
	}
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	sim, err := cfg.Simulation()
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.Output.Dir, 0755); err != nil {
		return err
	}

	s, err := dynamo.New(sim)
	if err != nil {
		return err
	}
	if err := s.Init(cfg.Output.Restart); err != nil {
		return err
	}

	// the live view owns the terminal, so the log goes to a file
	var log io.Writer = os.Stderr
	if live {
		f, err := os.Create(filepath.Join(cfg.Output.Dir, "log.txt"))
		if err != nil {
			return err
		}
		defer f.Close()
		log = f
	}

	for _, m := range metrics.Default() {
		s.AddMetric(m)
	}
	out := output.New(outputOptions(cfg, log))
	rec := &storage.Recorder{ProbeEvery: 10}
	s.AddObserver(out)
	s.AddObserver(rec)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	fmt.Printf("running %s: θ=%g°, levels %d..%d, t_end=%gs\n",
		cfg.Name, cfg.Contact.Angle, cfg.Domain.MinLevel, cfg.Domain.MaxLevel, cfg.Solver.TEnd)
	start := time.Now()

	var (
		result *dynamo.Result
		runErr error
	)
	if live {
		feed := viz.NewFeed(5)
		s.AddObserver(feed)
		done := make(chan struct{})
		go func() {
			defer close(done)
			result, runErr = s.Run(ctx)
			feed.Close()
		}()
		if err := viz.Run(feed, cancel); err != nil {
			cancel()
			<-done
			return err
		}
		<-done
	} else {
		result, runErr = s.Run(ctx)
	}
	elapsed := time.Since(start)

	if err := out.Close(); err != nil {
		return err
	}
	runID, err := st.Save(cfg, result, s.Mesh.Leaves(), rec.Rows, runErr)
	if err != nil {
		return err
	}

	printSummary(runID, result, elapsed, runErr)
	if runErr != nil && !errors.Is(runErr, dynamo.ErrContextCanceled) {
		return runErr
	}
	return nil
}

func printSummary(runID string, result *dynamo.Result, elapsed time.Duration, runErr error) {
	fmt.Println(titleStyle.Render("run " + runID))
	if runErr != nil {
		fmt.Println(errStyle.Render("stopped: " + runErr.Error()))
	}
	fmt.Printf("%s %v\n", keyStyle.Render("elapsed: "), elapsed.Round(time.Millisecond))
	if result == nil {
		return
	}
	fmt.Printf("%s %d (t=%g)\n", keyStyle.Render("steps:   "), result.Steps, result.State.T)
	fmt.Printf("%s %d\n", keyStyle.Render("failures:"), result.Failures)
	fmt.Println(keyStyle.Render("metrics:"))
	for _, name := range []string{"mass_drift", "max_divergence", "convergence", "kinetic_energy", "contact_angle", "wetted_radius"} {
		if v, ok := result.Metrics[name]; ok {
			fmt.Printf("  %-15s %g\n", name, v)
		}
	}
}

func printConfig(cmd *cobra.Command, args []string) error {
	cfg := config.DefaultConfig()
	if preset != "" {
		if cfg = config.GetPreset(preset); cfg == nil {
			return fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	data, err := cfg.Marshal()
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}
