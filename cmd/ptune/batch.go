package main

import (
	"fmt"
	"math"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/san-kum/ptune/internal/automation"
	"github.com/san-kum/ptune/internal/lti"
	"github.com/san-kum/ptune/internal/registry"
	"github.com/san-kum/ptune/internal/viz"
	"github.com/spf13/cobra"
)

var (
	sweepFrom    float64
	sweepTo      float64
	sweepSteps   int
	perturbation float64
	trials       int
)

func batchCommands() []*cobra.Command {
	batchCmd := &cobra.Command{
		Use:   "batch [scenario.yaml]",
		Short: "run the tuning jobs of a scenario file",
		Args:  cobra.ExactArgs(1),
		RunE:  runBatch,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "tune one plant for a range of targets",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	addSystemFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	sweepCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	sweepCmd.Flags().Float64Var(&sweepFrom, "from", 1, "first target (s)")
	sweepCmd.Flags().Float64Var(&sweepTo, "to", 5, "last target (s)")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 5, "number of targets")

	robustCmd := &cobra.Command{
		Use:   "robust",
		Short: "tune, then check the gain against perturbed plants",
		Args:  cobra.NoArgs,
		RunE:  runRobust,
	}
	addSystemFlags(robustCmd)
	robustCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	robustCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	robustCmd.Flags().Float64Var(&target, "target", 2, "settling-time target (s)")
	robustCmd.Flags().Float64Var(&perturbation, "perturb", 0.1, "relative coefficient perturbation")
	robustCmd.Flags().IntVar(&trials, "trials", 100, "number of perturbed plants")
	robustCmd.Flags().Uint64Var(&seed, "seed", 1, "random seed")

	return []*cobra.Command{batchCmd, sweepCmd, robustCmd}
}

func runBatch(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	results, err := automation.RunScenario(ctx, sc, registry.New(), logger)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "JOB\tTARGET\tKP\tACHIEVED\tSTATUS")
	failed := 0
	for _, r := range results {
		targetStr, gain, achieved, status := "-", "-", "-", "ok"
		if r.Config != nil {
			targetStr = fmt.Sprintf("%.3gs", r.Config.Target)
		}
		if r.Result != nil && r.Result.Controlled != nil {
			gain = fmt.Sprintf("%.4f", r.Result.Gain)
			if a := r.Result.Diagnostics.Achieved; a != nil {
				achieved = fmt.Sprintf("%.4fs", a.SettlingTime)
			}
		}
		if r.Err != nil {
			status = r.Err.Error()
			failed++
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.Job, targetStr, gain, achieved, status)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d jobs failed", failed, len(results))
	}
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	sweep := &automation.TargetSweep{Config: cfg, From: sweepFrom, To: sweepTo, Steps: sweepSteps}
	results, err := automation.RunSweep(ctx, sweep, registry.New(), logger)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TARGET\tKP\tACHIEVED\tCOST")
	for _, r := range results {
		if !r.Found {
			fmt.Fprintf(w, "%.4fs\t-\t-\t-\n", r.Target)
			continue
		}
		fmt.Fprintf(w, "%.4fs\t%.6f\t%s\t%.3e\n", r.Target, r.Gain, seconds(r.Achieved), r.Cost)
	}
	return w.Flush()
}

func runRobust(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	tn, err := synthesize(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if tn.err != nil {
		return tn.err
	}

	mc := &automation.MonteCarloConfig{
		Open:         tn.result.Open,
		Gain:         tn.result.Gain,
		Perturbation: perturbation,
		Trials:       trials,
		Seed:         cfg.Solver.Seed,
		Options:      tn.opts,
	}
	results, err := automation.RunMonteCarlo(ctx, mc)
	if err != nil {
		return err
	}
	stable, unstable, mean, std := automation.MonteCarloStats(results)

	fmt.Println(viz.Panel("ROBUSTNESS", []viz.Row{
		{Label: "Kp", Value: fmt.Sprintf("%.6f", tn.result.Gain)},
		{Label: "Perturbation", Value: fmt.Sprintf("±%.1f%%", perturbation*100)},
		{Label: "Stable", Value: fmt.Sprintf("%d / %d", stable, stable+unstable)},
		{Label: "Settling", Value: fmt.Sprintf("%s ± %s", seconds(mean), seconds(std))},
		{Label: "Nominal ts", Value: nominal(tn.result.Diagnostics.Achieved)},
	}))
	return nil
}

func seconds(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.4fs", v)
}

func nominal(info *lti.StepInfo) string {
	if info == nil {
		return "-"
	}
	return seconds(info.SettlingTime)
}
