package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/san-kum/ptune/internal/config"
	"github.com/san-kum/ptune/internal/control"
	"github.com/san-kum/ptune/internal/dynamo"
	"github.com/san-kum/ptune/internal/export"
	"github.com/san-kum/ptune/internal/logging"
	"github.com/san-kum/ptune/internal/lti"
	"github.com/san-kum/ptune/internal/registry"
	"github.com/san-kum/ptune/internal/sim"
	"github.com/san-kum/ptune/internal/storage"
	"github.com/san-kum/ptune/internal/viz"
	"github.com/spf13/cobra"
)

var (
	dataDir    string
	logLevel   string
	logFormat  string
	configFile string
	preset     string
	runName    string
	num        string
	den        string
	target     float64
	closed     bool
	attempts   int
	seed       uint64
	global     string
	method     string
	lower      float64
	upper      float64
	budget     time.Duration
	// Output
	showPlot  bool
	pngPath   string
	save      bool
	verify    bool
	verifyInt string
	annotate  bool
	theme     string
	width     int
	height    int
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "ptune",
		Short:         "proportional gain tuning for a settling-time target",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".ptune", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "find Kp meeting a settling-time target",
		Args:  cobra.NoArgs,
		RunE:  runTune,
	}
	addSystemFlags(tuneCmd)
	tuneCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	tuneCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	tuneCmd.Flags().StringVar(&runName, "name", "", "run name")
	tuneCmd.Flags().Float64Var(&target, "target", config.DefaultTarget, "settling-time target (s)")
	tuneCmd.Flags().IntVar(&attempts, "attempts", config.DefaultMaxAttempts, "maximum solver attempts")
	tuneCmd.Flags().Uint64Var(&seed, "seed", config.DefaultSeed, "random seed")
	tuneCmd.Flags().StringVar(&global, "global", "de", "global search (de, grid, none)")
	tuneCmd.Flags().Float64Var(&lower, "lo", config.DefaultLowerBound, "lower gain bound")
	tuneCmd.Flags().Float64Var(&upper, "hi", config.DefaultUpperBound, "upper gain bound")
	tuneCmd.Flags().DurationVar(&budget, "budget", 0, "time budget for the search (0 = none)")
	tuneCmd.Flags().BoolVar(&save, "save", false, "store the run")
	tuneCmd.Flags().BoolVar(&verify, "verify", false, "verify the loop in the time domain")
	tuneCmd.Flags().StringVar(&verifyInt, "integrator", "rk4", "integrator for --verify")
	addPlotFlags(tuneCmd)

	stepCmd := &cobra.Command{
		Use:   "step",
		Short: "step-response characteristics of a system",
		Args:  cobra.NoArgs,
		RunE:  runStep,
	}
	addSystemFlags(stepCmd)
	addPlotFlags(stepCmd)

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show run summary",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run step responses",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&pngPath, "png", "", "write the plot to an image (png, svg, pdf)")
	plotCmd.Flags().BoolVar(&annotate, "annotate", false, "label every marker")
	plotCmd.Flags().IntVar(&width, "width", 80, "chart width")
	plotCmd.Flags().IntVar(&height, "height", 15, "chart height")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run responses to CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return storage.New(dataDir).ExportCSV(os.Stdout, args[0])
		},
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run to JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return storage.New(dataDir).ExportJSON(os.Stdout, args[0])
		},
	}

	viewCmd := &cobra.Command{
		Use:   "view [run_id]",
		Short: "interactive step-response viewer",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runView,
	}
	addSystemFlags(viewCmd)
	viewCmd.Flags().Float64Var(&target, "target", config.DefaultTarget, "settling-time target (s)")
	viewCmd.Flags().StringVar(&theme, "theme", "cyberpunk", "color theme ("+strings.Join(viz.ThemeNames(), ", ")+")")

	rootCmd.AddCommand(tuneCmd, stepCmd, presetsCmd, listCmd, showCmd, plotCmd, exportCSVCmd, exportJSONCmd, viewCmd)
	rootCmd.AddCommand(batchCommands()...)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, viz.ErrorStyle.Render("error: "+err.Error()))
		os.Exit(1)
	}
}

func addSystemFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&num, "num", "", "numerator coefficients, highest power first (e.g. \"1\")")
	cmd.Flags().StringVar(&den, "den", "", "denominator coefficients, highest power first (e.g. \"1,-2\")")
	cmd.Flags().BoolVar(&closed, "closed", false, "the system is an already closed unity-feedback loop")
	cmd.Flags().StringVar(&method, "method", "zoh", "step simulation method (zoh, euler, rk4, rk45)")
}

func addPlotFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&showPlot, "plot", false, "draw the step responses in the terminal")
	cmd.Flags().StringVar(&pngPath, "png", "", "write the plot to an image (png, svg, pdf)")
	cmd.Flags().BoolVar(&annotate, "annotate", false, "label every marker")
	cmd.Flags().IntVar(&width, "width", 80, "chart width")
	cmd.Flags().IntVar(&height, "height", 15, "chart height")
}

func newLogger() (*slog.Logger, error) {
	return logging.New(logging.Config{Level: logLevel, Format: logFormat})
}

// parseCoeffs accepts coefficients separated by commas and/or spaces.
func parseCoeffs(s string) ([]float64, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	if len(fields) == 0 {
		return nil, fmt.Errorf("no coefficients in %q", s)
	}
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("coefficient %q: %w", f, err)
		}
		out[i] = v
	}
	return out, nil
}

// resolveConfig layers defaults, a preset, a config file and finally the
// flags the user set explicitly.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
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
	if flags.Changed("num") {
		coeffs, err := parseCoeffs(num)
		if err != nil {
			return nil, fmt.Errorf("--num: %w", err)
		}
		cfg.Plant.Num = coeffs
	}
	if flags.Changed("den") {
		coeffs, err := parseCoeffs(den)
		if err != nil {
			return nil, fmt.Errorf("--den: %w", err)
		}
		cfg.Plant.Den = coeffs
	}
	if flags.Changed("closed") {
		cfg.Plant.Closed = closed
	}
	if flags.Changed("name") {
		cfg.Name = runName
	}
	if flags.Changed("target") {
		cfg.Target = target
	}
	if flags.Changed("attempts") {
		cfg.Solver.MaxAttempts = attempts
	}
	if flags.Changed("seed") {
		cfg.Solver.Seed = seed
	}
	if flags.Changed("global") {
		cfg.Solver.Global = global
	}
	if flags.Changed("lo") {
		cfg.Solver.LowerBound = lower
	}
	if flags.Changed("hi") {
		cfg.Solver.UpperBound = upper
	}
	if flags.Changed("budget") {
		cfg.Solver.Budget = budget
	}
	if flags.Changed("method") {
		cfg.Simulation.Method = method
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// tuning is one synthesis together with what was built from it.
type tuning struct {
	cfg     *config.Config
	result  *control.Result
	overlay *viz.Overlay
	opts    lti.Options
	err     error
}

func synthesize(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*tuning, error) {
	plant, err := cfg.TransferFunction()
	if err != nil {
		return nil, err
	}
	syn, err := registry.New().Synthesizer(cfg, logger)
	if err != nil {
		return nil, err
	}

	res, err := syn.Synthesize(ctx, plant, cfg.Target, cfg.Plant.Closed)
	var synErr *control.SynthesisError
	if err != nil && (!errors.As(err, &synErr) || res == nil) {
		return nil, err
	}

	o, oerr := viz.BuildOverlay(viz.TuningSeries(res), syn.Options)
	if oerr != nil {
		return nil, oerr
	}
	return &tuning{cfg: cfg, result: res, overlay: o, opts: syn.Options, err: err}, nil
}

func runTune(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	start := time.Now()
	tn, err := synthesize(ctx, cfg, logger)
	if err != nil {
		return err
	}
	logger.Info("tuning finished", "elapsed", time.Since(start).Round(time.Millisecond), "found", tn.result.Controlled != nil)

	fmt.Println(viz.Panel("TUNING", summaryRows(tn.result)))
	if w := tn.result.Diagnostics.Warnings; len(w) > 0 {
		fmt.Println(viz.Warnings(w))
	}

	var metricValues map[string]float64
	if verify && tn.result.Controlled != nil {
		metricValues, err = verifyLoop(ctx, tn)
		if err != nil {
			logger.Warn("verification skipped", "err", err)
		}
	}

	if err := renderPlots(tn.overlay); err != nil {
		return err
	}

	if save {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(runMetadata(tn, metricValues), responseOf(tn.overlay))
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
	}
	return tn.err
}

func verifyLoop(ctx context.Context, tn *tuning) (map[string]float64, error) {
	integ, err := registry.New().GetIntegrator(verifyInt)
	if err != nil {
		return nil, err
	}
	dcfg := dynamo.DefaultConfig()
	dcfg.Dt = tn.cfg.Simulation.Dt
	dcfg.Duration = tn.cfg.Simulation.Duration
	if dcfg.Duration == 0 {
		dcfg.Duration = tn.overlay.TMax
	}

	v, err := sim.Verify(ctx, tn.result.Open, tn.result.Gain, integ, dcfg)
	if err != nil {
		return nil, err
	}
	rows := []viz.Row{
		{Label: "Integrator", Value: verifyInt},
		{Label: "Steps", Value: strconv.Itoa(v.Result.StepsTaken)},
		{Label: "Max dev.", Value: fmt.Sprintf("%.3e", v.MaxDeviation)},
	}
	for _, name := range sortedNames(v.Result.Metrics) {
		rows = append(rows, viz.Row{Label: name, Value: fmt.Sprintf("%.6f", v.Result.Metrics[name])})
	}
	fmt.Println(viz.Panel("VERIFICATION", rows))
	return v.Result.Metrics, nil
}

func renderPlots(o *viz.Overlay) error {
	var ann *viz.Annotations
	if annotate {
		ann = viz.NewAnnotations()
		ann.ShowAll(o)
	}
	if showPlot {
		fmt.Println(viz.RenderASCII(o, ann, width, height))
	}
	if pngPath != "" {
		if err := export.Save(pngPath, o, ann); err != nil {
			return err
		}
		fmt.Printf("plot written to %s\n", pngPath)
	}
	return nil
}

func runStep(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	g, err := cfg.TransferFunction()
	if err != nil {
		return err
	}
	if !cfg.Plant.Closed {
		g = lti.Feedback(g)
	}
	sm, err := registry.New().GetMethod(cfg.Simulation.Method)
	if err != nil {
		return err
	}
	opts := lti.DefaultOptions()
	opts.SettlingBand = cfg.Simulation.SettlingBand
	opts.Method = sm

	rows := []viz.Row{{Label: "Closed loop", Value: g.String()}}
	info, err := lti.Characteristics(g, opts)
	if err != nil {
		rows = append(rows, viz.Row{Label: "Response", Value: err.Error()})
	} else {
		rows = append(rows, stepRows(info)...)
	}
	fmt.Println(viz.Panel("STEP RESPONSE", rows))

	o, err := viz.BuildOverlay([]viz.Series{{System: g, Label: "System"}}, opts)
	if err != nil {
		return err
	}
	return renderPlots(o)
}

func runView(cmd *cobra.Command, args []string) error {
	var o *viz.Overlay
	if len(args) == 1 {
		meta, err := storage.New(dataDir).Load(args[0])
		if err != nil {
			return err
		}
		if o, err = overlayOf(meta); err != nil {
			return err
		}
	} else {
		cfg, err := resolveConfig(cmd)
		if err != nil {
			return err
		}
		tn, err := synthesize(cmd.Context(), cfg, logging.Discard())
		if err != nil {
			return err
		}
		o = tn.overlay
	}
	return viz.RunViewer(o, viz.NewAnnotations(), theme)
}

func listPresets(cmd *cobra.Command, args []string) error {
	for _, name := range config.ListPresets() {
		p := config.GetPreset(name)
		g, err := p.TransferFunction()
		if err != nil {
			return err
		}
		fmt.Printf("  %-22s %-28s target %.3gs\n", name, g.String(), p.Target)
	}
	return nil
}

func summaryRows(res *control.Result) []viz.Row {
	d := res.Diagnostics
	rows := []viz.Row{
		{Label: "Plant", Value: res.Open.String()},
		{Label: "Target", Value: fmt.Sprintf("%.4fs", res.Target)},
	}
	if res.Controlled != nil {
		rows = append(rows,
			viz.Row{Label: "Kp", Value: fmt.Sprintf("%.6f", res.Gain)},
			viz.Row{Label: "Cost", Value: fmt.Sprintf("%.3e", d.Cost)},
		)
	} else {
		rows = append(rows, viz.Row{Label: "Kp", Value: "not found"})
	}
	rows = append(rows,
		viz.Row{Label: "Converged", Value: strconv.FormatBool(d.Converged)},
		viz.Row{Label: "Attempts", Value: strconv.Itoa(d.Attempts)},
		viz.Row{Label: "Evaluations", Value: strconv.Itoa(d.Evaluations)},
	)
	if d.Original != nil {
		rows = append(rows, viz.Row{Label: "Original ts", Value: fmt.Sprintf("%.4fs", d.Original.SettlingTime)})
	} else {
		rows = append(rows, viz.Row{Label: "Original ts", Value: "unstable"})
	}
	if d.Achieved != nil {
		rows = append(rows,
			viz.Row{Label: "Achieved ts", Value: fmt.Sprintf("%.4fs", d.Achieved.SettlingTime)},
			viz.Row{Label: "Overshoot", Value: fmt.Sprintf("%.2f%%", d.Achieved.Overshoot())},
		)
	}
	if d.Message != "" {
		rows = append(rows, viz.Row{Label: "Solver", Value: d.Message})
	}
	return rows
}

func stepRows(info lti.StepInfo) []viz.Row {
	return []viz.Row{
		{Label: "Rise time", Value: fmt.Sprintf("%.4fs", info.RiseTime)},
		{Label: "Settling", Value: fmt.Sprintf("%.4fs", info.SettlingTime)},
		{Label: "Overshoot", Value: fmt.Sprintf("%.2f%%", info.Overshoot())},
		{Label: "Peak", Value: fmt.Sprintf("%.4f at %.4fs", info.Peak, info.PeakTime)},
		{Label: "Final", Value: fmt.Sprintf("%.4f", info.SteadyState)},
	}
}
