package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/spheresim/internal/config"
	"github.com/san-kum/spheresim/internal/experiment"
	"github.com/san-kum/spheresim/internal/export"
	"github.com/san-kum/spheresim/internal/gui"
	"github.com/san-kum/spheresim/internal/metrics"
	"github.com/san-kum/spheresim/internal/optim"
	"github.com/san-kum/spheresim/internal/physics"
	"github.com/san-kum/spheresim/internal/storage"
	"github.com/san-kum/spheresim/internal/viz"
	"github.com/spf13/cobra"
)

var (
	dataDir    string
	configFile string
	preset     string
	dt         float64
	frames     int
	workers    int
	seed       uint64
	count      int
	extent     float64
	speed      float64
	radius     float64
	frameRate  int
	svgWidth   int
	svgHeight  int
	benchRuns  []int
	numRuns    int
	leafSizes  []int
	nodeSizes  []float64
	objective  string
)

// main registers the commands and falls back to the interactive terminal
// picker when no subcommand is given.
func main() {
	rootCmd := &cobra.Command{
		Use:   "spheresim",
		Short: "parallel sphere collision lab",
		RunE: func(cmd *cobra.Command, args []string) error {
			return viz.RunInteractive()
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".spheresim", "data directory")

	runCmd := &cobra.Command{
		Use:   "run [scenario]",
		Short: "run a headless simulation and save it",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	addSceneFlags(runCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot collisions and frame time of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export per-frame stats to CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return storage.New(dataDir).ExportFramesCSV(os.Stdout, args[0])
		},
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a run to JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return storage.New(dataDir).ExportJSON(os.Stdout, args[0])
		},
	}

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "render the final snapshot of a run to SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().IntVar(&svgWidth, "width", 800, "image width")
	exportSVGCmd.Flags().IntVar(&svgHeight, "height", 800, "image height")

	benchCmd := &cobra.Command{
		Use:   "bench [scenario]",
		Short: "time frames across worker counts",
		Args:  cobra.MaximumNArgs(1),
		RunE:  benchScenario,
	}
	addSceneFlags(benchCmd)
	benchCmd.Flags().IntSliceVar(&benchRuns, "pool", []int{1, 2, 4, 8, 16}, "worker counts to compare")

	ensembleCmd := &cobra.Command{
		Use:   "ensemble [scenario]",
		Short: "run one scenario under several seeds in parallel",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runEnsemble,
	}
	addSceneFlags(ensembleCmd)
	ensembleCmd.Flags().IntVar(&numRuns, "runs", 4, "number of seeds")

	tuneCmd := &cobra.Command{
		Use:   "tune [scenario]",
		Short: "grid search the octree options",
		Args:  cobra.MaximumNArgs(1),
		RunE:  tuneOctree,
	}
	addSceneFlags(tuneCmd)
	tuneCmd.Flags().IntSliceVar(&leafSizes, "leaf", []int{4, 8, 16, 32, 64}, "leaf capacities to try")
	tuneCmd.Flags().Float64SliceVar(&nodeSizes, "node", []float64{1, 5, 10, 20}, "minimum node sizes to try")
	tuneCmd.Flags().StringVar(&objective, "objective", "time", "objective to minimise (time, candidates)")

	liveCmd := &cobra.Command{
		Use:   "live [scenario]",
		Short: "run a simulation in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig(cmd, args)
			if err != nil {
				return err
			}
			return viz.RunLive(cfg)
		},
	}
	addSceneFlags(liveCmd)

	guiCmd := &cobra.Command{
		Use:   "gui [scenario]",
		Short: "run a simulation in a raylib window",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig(cmd, args)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()
			return gui.Run(ctx, cfg, log.New(os.Stderr, "spheresim: ", log.LstdFlags))
		},
	}
	addSceneFlags(guiCmd)

	presetsCmd := &cobra.Command{
		Use:   "presets [scenario]",
		Short: "list presets",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scenarios := config.ListScenarios()
			if len(args) > 0 {
				scenarios = args
			}
			for _, s := range scenarios {
				presets := config.ListPresets(s)
				if len(presets) == 0 {
					fmt.Printf("no presets for scenario: %s\n", s)
					continue
				}
				fmt.Printf("presets for %s:\n", s)
				for _, p := range presets {
					fmt.Printf("  %s\n", p)
				}
			}
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportCSVCmd, exportJSONCmd, exportSVGCmd, benchCmd, ensembleCmd, tuneCmd, liveCmd, guiCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addSceneFlags(cmd *cobra.Command) {
	d := config.DefaultConfig()
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().Float64Var(&dt, "dt", d.Dt, "timestep")
	cmd.Flags().IntVar(&frames, "frames", d.Frames, "frames to simulate")
	cmd.Flags().IntVar(&workers, "workers", d.Workers, "task pool size (0 = one per cpu)")
	cmd.Flags().Uint64Var(&seed, "seed", d.Seed, "random seed")
	cmd.Flags().IntVar(&count, "count", d.Spawn.Count, "number of spheres")
	cmd.Flags().Float64Var(&extent, "extent", d.Spawn.Extent, "spawn half extent")
	cmd.Flags().Float64Var(&speed, "speed", d.Spawn.Speed, "spawn speed")
	cmd.Flags().Float64Var(&radius, "radius", d.Spawn.Radius, "sphere radius")
	cmd.Flags().IntVar(&frameRate, "fps", d.Render.FPS, "render rate")
}

// buildConfig layers defaults, then a preset, then the fields of a config
// file, then any flag set explicitly on the command line.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	scenario := config.DefaultScenario
	if len(args) > 0 {
		scenario = args[0]
	}

	cfg := config.DefaultConfig()
	cfg.Scenario = scenario

	if preset != "" {
		p := config.GetPreset(scenario, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(scenario))
		}
		cfg = p
	}

	if configFile != "" {
		if err := config.LoadInto(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if len(args) > 0 {
			cfg.Scenario = scenario
		}
	}

	flags := cmd.Flags()
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("frames") {
		cfg.Frames = frames
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("count") {
		cfg.Spawn.Count = count
	}
	if flags.Changed("extent") {
		cfg.Spawn.Extent = extent
	}
	if flags.Changed("speed") {
		cfg.Spawn.Speed = speed
	}
	if flags.Changed("radius") {
		cfg.Spawn.Radius = radius
	}
	if flags.Changed("fps") {
		cfg.Render.FPS = frameRate
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	exp := experiment.New(cfg, nil)
	if err := exp.Setup(metrics.Default(2 * cfg.Spawn.Extent)...); err != nil {
		return err
	}
	defer exp.Close()

	fmt.Printf("running %s: %d spheres, %d frames on %d workers...\n",
		cfg.Scenario, exp.Manager().Len(), cfg.Frames, exp.Manager().Config().Workers)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	result, runErr := exp.Run(ctx)
	elapsed := time.Since(start)

	runID, err := saveRun(st, cfg, result, runErr)
	if err != nil {
		return err
	}

	if runErr != nil {
		fmt.Printf("interrupted after %v\n", elapsed)
	} else {
		fmt.Printf("completed in %v\n", elapsed)
	}
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("frames: %d\n", len(result.Frames))
	fmt.Println("\nmetrics:")
	for _, name := range experiment.MetricNames(result.Metrics) {
		fmt.Printf("  %s: %.6f\n", name, result.Metrics[name])
	}

	return runErr
}

// saveRun stores result unless the run failed for a reason other than
// cancellation. A cancelled run keeps the frames simulated before the
// interrupt; runErr is still returned to the caller.
func saveRun(st *storage.Store, cfg *config.Config, result *experiment.Result, runErr error) (string, error) {
	if runErr != nil {
		if !errors.Is(runErr, context.Canceled) || result == nil || len(result.Frames) == 0 {
			return "", runErr
		}
	}
	return st.Save(cfg, result)
}

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
	fmt.Fprintln(w, "ID\tSCENARIO\tTIME\tOBJECTS\tFRAMES\tDT\tWORKERS")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%.4fs\t%d\n",
			run.ID,
			run.Scenario,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Objects,
			run.Frames,
			run.Dt,
			run.Workers,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	stats, err := st.LoadFrames(runID)
	if err != nil {
		return err
	}

	if len(stats) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scenario: %s\n", meta.Scenario)
	fmt.Printf("frames: %d\n\n", len(stats))

	series := []struct {
		caption string
		value   func(physics.FrameStats) float64
	}{
		{"collisions per frame", func(s physics.FrameStats) float64 { return float64(s.Collisions) }},
		{"broad phase candidates", func(s physics.FrameStats) float64 { return float64(s.Candidates) }},
		{"frame time (ms)", func(s physics.FrameStats) float64 { return float64(s.Total) / float64(time.Millisecond) }},
	}

	for _, s := range series {
		data := make([]float64, len(stats))
		for i, f := range stats {
			data[i] = s.value(f)
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(s.caption),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	return nil
}

func exportSVG(cmd *cobra.Command, args []string) error {
	objects, err := storage.New(dataDir).LoadObjects(args[0])
	if err != nil {
		return err
	}
	if len(objects) == 0 {
		return fmt.Errorf("no objects to export")
	}
	_, err = fmt.Fprint(os.Stdout, export.SnapshotToSVG(objects, svgWidth, svgHeight))
	return err
}

func benchScenario(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	fmt.Printf("benchmarking %s: %d spheres, %d frames\n\n", cfg.Scenario, cfg.Spawn.Count, cfg.Frames)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WORKERS\tFRAMES\tTIME\tFRAME AVG\tCOLLISIONS\tFRAMES/SEC")

	for _, n := range benchRuns {
		run := *cfg
		run.Workers = n

		exp := experiment.New(&run, nil)
		if err := exp.Setup(); err != nil {
			return err
		}

		start := time.Now()
		result, err := exp.Run(context.Background())
		exp.Close()
		if err != nil {
			return err
		}
		elapsed := time.Since(start)

		collisions := 0
		for _, f := range result.Frames {
			collisions += f.Collisions
		}
		done := len(result.Frames)
		avg := time.Duration(0)
		if done > 0 {
			avg = elapsed / time.Duration(done)
		}

		fmt.Fprintf(w, "%d\t%d\t%v\t%v\t%d\t%.1f\n",
			n, done, elapsed.Round(time.Millisecond), avg, collisions, float64(done)/elapsed.Seconds())
	}

	return w.Flush()
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ens := experiment.NewEnsemble(cfg, nil, numRuns, cfg.Seed)
	ens.Observers = func() []metrics.Metric {
		return metrics.Default(2 * cfg.Spawn.Extent)
	}

	fmt.Printf("running %d seeds of %s from seed %d...\n", numRuns, cfg.Scenario, cfg.Seed)
	start := time.Now()
	results, err := ens.Run(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("completed in %v\n\n", time.Since(start))

	mean := experiment.MeanMetrics(results)
	names := experiment.MetricNames(mean)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprint(w, "SEED")
	for _, name := range names {
		fmt.Fprintf(w, "\t%s", name)
	}
	fmt.Fprintln(w)
	for i, r := range results {
		fmt.Fprintf(w, "%d", cfg.Seed+uint64(i))
		for _, name := range names {
			fmt.Fprintf(w, "\t%.6f", r.Metrics[name])
		}
		fmt.Fprintln(w)
	}
	fmt.Fprint(w, "mean")
	for _, name := range names {
		fmt.Fprintf(w, "\t%.6f", mean[name])
	}
	fmt.Fprintln(w)

	return w.Flush()
}

func tuneOctree(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	var obj optim.Objective
	switch objective {
	case "time":
		obj = optim.MeanFrameTime
	case "candidates":
		obj = optim.CandidatesPerObject
	default:
		return fmt.Errorf("unknown objective: %s (available: time, candidates)", objective)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("tuning octree for %s: %d leaf sizes x %d node sizes...\n", cfg.Scenario, len(leafSizes), len(nodeSizes))
	g := optim.NewGridSearch(nil, optim.LeafCapacity(leafSizes...), optim.MinNodeSize(nodeSizes...))
	best, score, err := g.Search(ctx, cfg, obj)
	if err != nil {
		return err
	}

	fmt.Printf("best %s: %.4f\n", objective, score)
	fmt.Printf("  max_objects_in_leaf: %.0f\n", best["max_objects_in_leaf"])
	fmt.Printf("  min_node_size: %g\n", best["min_node_size"])
	return nil
}
