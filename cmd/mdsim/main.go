package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/san-kum/mdsim/internal/config"
	"github.com/san-kum/mdsim/internal/integrators"
	"github.com/san-kum/mdsim/internal/mdsys"
	"github.com/san-kum/mdsim/internal/metrics"
	"github.com/san-kum/mdsim/internal/sim"
	"github.com/san-kum/mdsim/internal/storage"
	"github.com/san-kum/mdsim/internal/systems"
	"github.com/san-kum/mdsim/internal/tui"
)

var (
	dataDir     string
	configFile  string
	scheduleStr string

	dt          float64
	steps       int
	reportEvery int
	seed        int64
	particles   int
	integrator  string
	temperature float64
	friction    float64
	drudeTemp   float64
	drudeFric   float64
	tolerance   float64

	plotSeries string
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mdsim",
		Short: "molecular dynamics integrator lab",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
				Level:      level,
				TimeFormat: time.Kitchen,
			})))
		},
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".mdsim", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	runCmd := &cobra.Command{
		Use:   "run [system]",
		Short: "run a simulation",
		Args:  cobra.ExactArgs(1),
		RunE:  runSimulation,
	}
	addRunFlags(runCmd)

	liveCmd := &cobra.Command{
		Use:   "live [system]",
		Short: "run a simulation with a live terminal view",
		Args:  cobra.ExactArgs(1),
		RunE:  runLive,
	}
	addRunFlags(liveCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored run's series",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&plotSeries, "series", "temperature", "series to plot (temperature|energy|kinetic|potential)")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "print a stored run's metadata as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}

	rootCmd.AddCommand(runCmd, liveCmd, listCmd, plotCmd, exportCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "macro timestep (ps)")
	cmd.Flags().IntVar(&steps, "steps", config.DefaultSteps, "number of macro steps")
	cmd.Flags().IntVar(&reportEvery, "report", config.DefaultReportEvery, "sample interval (steps)")
	cmd.Flags().Int64Var(&seed, "seed", 1, "random seed")
	cmd.Flags().IntVar(&particles, "particles", config.DefaultParticles, "particle count (lattice systems)")
	cmd.Flags().StringVar(&integrator, "integrator", "mts", "integrator (mts|langevin|nose-hoover|drude)")
	cmd.Flags().StringVar(&scheduleStr, "schedule", "0:1", "MTS schedule, group:substeps pairs")
	cmd.Flags().Float64Var(&temperature, "temp", config.DefaultTemperature, "target temperature (K)")
	cmd.Flags().Float64Var(&friction, "friction", config.DefaultFriction, "friction / coupling rate (1/ps)")
	cmd.Flags().Float64Var(&drudeTemp, "drude-temp", config.DefaultDrudeTemperature, "Drude target temperature (K)")
	cmd.Flags().Float64Var(&drudeFric, "drude-friction", config.DefaultDrudeFriction, "Drude coupling rate (1/ps)")
	cmd.Flags().Float64Var(&tolerance, "tolerance", config.DefaultTolerance, "constraint tolerance")
}

// buildConfig merges the config file (if any) with command-line flags;
// explicitly set flags win.
func buildConfig(cmd *cobra.Command, system string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	cfg.System = system
	set := func(name string) bool { return cmd.Flags().Changed(name) }
	if configFile == "" || set("integrator") {
		cfg.Integrator = integrator
	}
	if configFile == "" || set("dt") {
		cfg.Dt = dt
	}
	if configFile == "" || set("steps") {
		cfg.Steps = steps
	}
	if configFile == "" || set("report") {
		cfg.ReportEvery = reportEvery
	}
	if configFile == "" || set("seed") {
		cfg.Seed = seed
	}
	if configFile == "" || set("particles") {
		cfg.Particles = particles
	}
	if configFile == "" || set("temp") {
		cfg.Temperature = temperature
	}
	if configFile == "" || set("friction") {
		cfg.Friction = friction
	}
	if configFile == "" || set("drude-temp") {
		cfg.DrudeTemperature = drudeTemp
	}
	if configFile == "" || set("drude-friction") {
		cfg.DrudeFriction = drudeFric
	}
	if configFile == "" || set("tolerance") {
		cfg.ConstraintTolerance = tolerance
	}
	if configFile == "" || set("schedule") {
		pairs, err := config.ParseSchedule(scheduleStr)
		if err != nil {
			return nil, err
		}
		cfg.Schedule = pairs
	}
	return cfg, nil
}

func buildContext(cfg *config.Config) (*mdsys.Context, error) {
	var c *mdsys.Context
	switch cfg.System {
	case "argon":
		c = systems.ArgonCluster(cfg.Particles)
		c.SetVelocitiesToTemperature(cfg.Temperature, cfg.Seed)
	case "ideal-gas":
		c = systems.IdealGas(cfg.Particles)
		c.SetVelocitiesToTemperature(cfg.Temperature, cfg.Seed)
	case "harmonic":
		c = systems.HarmonicLattice(cfg.Particles, 1000)
		c.SetVelocitiesToTemperature(cfg.Temperature, cfg.Seed)
	case "chain":
		c = systems.ConstrainedChain(cfg.Seed)
	case "drude":
		c = systems.DrudeLattice(cfg.Particles)
		c.SetVelocitiesToTemperature(cfg.Temperature, cfg.Seed)
	default:
		return nil, fmt.Errorf("unknown system %q", cfg.System)
	}
	return c, nil
}

func buildIntegrator(cfg *config.Config) (mdsys.Integrator, error) {
	switch cfg.Integrator {
	case "mts":
		m := integrators.NewMTSIntegrator(cfg.Dt, cfg.BuildSchedule())
		m.SetConstraintTolerance(cfg.ConstraintTolerance)
		return m, nil
	case "langevin", "mts-langevin":
		l := integrators.NewMTSLangevinIntegrator(cfg.Temperature, cfg.Friction, cfg.Dt, cfg.BuildSchedule())
		l.SetRandomSeed(cfg.Seed)
		l.SetConstraintTolerance(cfg.ConstraintTolerance)
		return l, nil
	case "nose-hoover":
		nh, err := integrators.NewThermostatedNoseHooverIntegrator(cfg.Temperature, cfg.Friction, cfg.Dt)
		if err != nil {
			return nil, err
		}
		nh.SetConstraintTolerance(cfg.ConstraintTolerance)
		return nh, nil
	case "drude":
		d := integrators.NewDrudeNoseHooverIntegrator(
			cfg.Temperature, cfg.Friction, cfg.DrudeTemperature, cfg.DrudeFriction, cfg.Dt)
		d.SetConstraintTolerance(cfg.ConstraintTolerance)
		return d, nil
	default:
		return nil, fmt.Errorf("unknown integrator %q", cfg.Integrator)
	}
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args[0])
	if err != nil {
		return err
	}
	c, err := buildContext(cfg)
	if err != nil {
		return err
	}
	integ, err := buildIntegrator(cfg)
	if err != nil {
		return err
	}

	runner := sim.New(c, integ)
	temp := metrics.NewTemperature()
	drift := metrics.NewEnergyDrift(2)
	runner.AddMetric(temp)
	runner.AddMetric(drift)
	if c.System().NumConstraints() > 0 {
		runner.AddMetric(metrics.NewConstraintViolation())
	}

	slog.Info("starting run",
		"system", cfg.System, "integrator", cfg.Integrator,
		"particles", c.NumParticles(), "steps", cfg.Steps, "dt", cfg.Dt)

	start := time.Now()
	result, err := runner.Run(context.Background(), sim.Config{
		Steps:       cfg.Steps,
		ReportEvery: cfg.ReportEvery,
	})
	if err != nil {
		return err
	}
	slog.Info("run finished", "elapsed", time.Since(start), "steps", result.StepsTaken)

	store := storage.New(dataDir)
	if err := store.Init(); err != nil {
		return err
	}
	runID, err := store.Save(storage.RunMetadata{
		System:      cfg.System,
		Integrator:  cfg.Integrator,
		Seed:        cfg.Seed,
		Dt:          cfg.Dt,
		Steps:       result.StepsTaken,
		Temperature: cfg.Temperature,
	}, result)
	if err != nil {
		return err
	}
	slog.Info("run saved", "id", runID)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "metric\tvalue\n")
	for name, value := range result.Metrics {
		fmt.Fprintf(w, "%s\t%.6g\n", name, value)
	}
	if hb, ok := integ.(interface{ HeatBathEnergy() float64 }); ok {
		fmt.Fprintf(w, "heat_bath_energy\t%.6g\n", hb.HeatBathEnergy())
	}
	return w.Flush()
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args[0])
	if err != nil {
		return err
	}
	c, err := buildContext(cfg)
	if err != nil {
		return err
	}
	integ, err := buildIntegrator(cfg)
	if err != nil {
		return err
	}

	samples := make(chan tui.Sample, 16)
	runner := sim.New(c, integ)
	hb, hasHeatBath := integ.(interface{ HeatBathEnergy() float64 })
	runner.AddObserver(sim.ObserverFunc(func(c *mdsys.Context, step int) {
		s := tui.Sample{
			Step:        step,
			Time:        c.Time(),
			Kinetic:     c.KineticEnergy(),
			Potential:   c.PotentialEnergy(mdsys.AllGroups),
			Temperature: c.Temperature(),
		}
		if hasHeatBath {
			s.HeatBath = hb.HeatBathEnergy()
			s.ShowsHeatBath = true
		}
		// Drop samples rather than stall the run when the view lags
		// or has already quit.
		select {
		case samples <- s:
		default:
		}
	}))

	errCh := make(chan error, 1)
	go func() {
		defer close(samples)
		_, err := runner.Run(context.Background(), sim.Config{
			Steps:       cfg.Steps,
			ReportEvery: cfg.ReportEvery,
		})
		errCh <- err
	}()

	title := fmt.Sprintf("%s · %s", cfg.System, cfg.Integrator)
	if _, err := tea.NewProgram(tui.NewModel(title, samples)).Run(); err != nil {
		return err
	}
	return <-errCh
}

func listRuns(cmd *cobra.Command, args []string) error {
	store := storage.New(dataDir)
	runs, err := store.List()
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "id\tsystem\tintegrator\tsteps\tdt\ttimestamp\n")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%g\t%s\n",
			r.ID, r.System, r.Integrator, r.Steps, r.Dt, r.Timestamp.Format(time.RFC3339))
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	store := storage.New(dataDir)
	series, err := store.LoadSeries(args[0])
	if err != nil {
		return err
	}
	var data []float64
	switch plotSeries {
	case "temperature":
		data = series.Temperature
	case "kinetic":
		data = series.Kinetic
	case "potential":
		data = series.Potential
	case "energy":
		data = make([]float64, len(series.Kinetic))
		for i := range data {
			data[i] = series.Kinetic[i] + series.Potential[i]
		}
	default:
		return fmt.Errorf("unknown series %q", plotSeries)
	}
	if len(data) == 0 {
		return fmt.Errorf("run %s has no samples", args[0])
	}
	fmt.Println(asciigraph.Plot(data,
		asciigraph.Height(16), asciigraph.Width(72),
		asciigraph.Caption(fmt.Sprintf("%s · %s", args[0], plotSeries))))
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	store := storage.New(dataDir)
	meta, err := store.Load(args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}
