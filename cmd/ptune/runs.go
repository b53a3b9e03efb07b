package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/san-kum/ptune/internal/control"
	"github.com/san-kum/ptune/internal/lti"
	"github.com/san-kum/ptune/internal/registry"
	"github.com/san-kum/ptune/internal/storage"
	"github.com/san-kum/ptune/internal/viz"
	"github.com/spf13/cobra"
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
	fmt.Fprintln(w, "ID\tTIME\tPLANT\tTARGET\tKP\tCONVERGED")

	for _, run := range runs {
		gain := "-"
		if run.Found {
			gain = fmt.Sprintf("%.4f", run.Gain)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.3gs\t%s\t%t\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			plantString(run.Plant),
			run.Target,
			gain,
			run.Converged,
		)
	}

	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	meta, err := storage.New(dataDir).Load(args[0])
	if err != nil {
		return err
	}

	rows := []viz.Row{
		{Label: "Run", Value: meta.ID},
		{Label: "Created", Value: meta.Timestamp.Format("2006-01-02 15:04:05")},
		{Label: "Plant", Value: plantString(meta.Plant)},
		{Label: "Target", Value: fmt.Sprintf("%.4fs", meta.Target)},
	}
	if meta.Found {
		rows = append(rows,
			viz.Row{Label: "Kp", Value: fmt.Sprintf("%.6f", meta.Gain)},
			viz.Row{Label: "Cost", Value: fmt.Sprintf("%.3e", meta.Cost)},
		)
	} else {
		rows = append(rows, viz.Row{Label: "Kp", Value: "not found"})
	}
	rows = append(rows,
		viz.Row{Label: "Converged", Value: strconv.FormatBool(meta.Converged)},
		viz.Row{Label: "Attempts", Value: strconv.Itoa(meta.Attempts)},
		viz.Row{Label: "Evaluations", Value: strconv.Itoa(meta.Evaluations)},
		viz.Row{Label: "Search", Value: fmt.Sprintf("%s, seed %d", meta.Global, meta.Seed)},
		viz.Row{Label: "Method", Value: meta.Method},
	)
	if meta.Achieved != nil {
		rows = append(rows, stepRows(*meta.Achieved)...)
	}
	for _, name := range sortedNames(meta.Metrics) {
		rows = append(rows, viz.Row{Label: name, Value: fmt.Sprintf("%.6f", meta.Metrics[name])})
	}
	fmt.Println(viz.Panel("RUN", rows))
	if len(meta.Warnings) > 0 {
		fmt.Println(viz.Warnings(meta.Warnings))
	}
	return nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, err := storage.New(dataDir).Load(args[0])
	if err != nil {
		return err
	}
	o, err := overlayOf(meta)
	if err != nil {
		return err
	}

	showPlot = pngPath == ""
	fmt.Printf("run: %s\n\n", meta.ID)
	return renderPlots(o)
}

func plantString(p storage.PlantRecord) string {
	g, err := lti.New(p.Num, p.Den)
	if err != nil {
		return "invalid"
	}
	if p.Closed {
		return g.String() + " (closed)"
	}
	return g.String()
}

// overlayOf rebuilds the plotted series of a stored run from its plant and
// gain.
func overlayOf(meta *storage.RunMetadata) (*viz.Overlay, error) {
	plant, err := lti.New(meta.Plant.Num, meta.Plant.Den)
	if err != nil {
		return nil, err
	}
	open, original := plant, lti.Feedback(plant)
	if meta.Plant.Closed {
		if open, err = lti.RecoverOpenLoop(plant); err != nil {
			return nil, err
		}
		original = plant
	}

	res := &control.Result{Gain: meta.Gain, Open: open, Original: original}
	if meta.Found {
		controlled := lti.Feedback(lti.Series(control.PGain(meta.Gain), open))
		res.Controlled = &controlled
	}

	opts := lti.DefaultOptions()
	if sm, err := registry.New().GetMethod(meta.Method); err == nil {
		opts.Method = sm
	}
	return viz.BuildOverlay(viz.TuningSeries(res), opts)
}

func runMetadata(tn *tuning, metrics map[string]float64) storage.RunMetadata {
	res, d := tn.result, tn.result.Diagnostics
	return storage.RunMetadata{
		Name:        tn.cfg.Name,
		Plant:       storage.PlantRecord{Num: tn.cfg.Plant.Num, Den: tn.cfg.Plant.Den, Closed: tn.cfg.Plant.Closed},
		Target:      res.Target,
		Gain:        res.Gain,
		Found:       res.Controlled != nil,
		Cost:        d.Cost,
		Converged:   d.Converged,
		Attempts:    d.Attempts,
		Evaluations: d.Evaluations,
		Method:      tn.cfg.Simulation.Method,
		Global:      tn.cfg.Solver.Global,
		Seed:        tn.cfg.Solver.Seed,
		Warnings:    d.Warnings,
		Original:    d.Original,
		Achieved:    d.Achieved,
		Metrics:     metrics,
	}
}

func responseOf(o *viz.Overlay) storage.Response {
	resp := storage.Response{Times: o.Times}
	if len(o.Curves) > 0 {
		resp.Original = o.Curves[0].Outputs
	}
	if len(o.Curves) > 1 {
		resp.Controlled = o.Curves[1].Outputs
	}
	return resp
}

func sortedNames(m map[string]float64) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
