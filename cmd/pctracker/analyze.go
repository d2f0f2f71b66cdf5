package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	rootpkg "tools.zach/dev/pctracker"
	"tools.zach/dev/pctracker/internal/atomicfile"
	"tools.zach/dev/pctracker/internal/classify"
	"tools.zach/dev/pctracker/internal/config"
	"tools.zach/dev/pctracker/internal/paths"
	"tools.zach/dev/pctracker/internal/report"
	"tools.zach/dev/pctracker/internal/store"
)

// analyzeOptions are the analyze flags. Zero threshold and examples mean
// "take the config value" unless the flag was given.
type analyzeOptions struct {
	since, until string
	rulesFile    string
	format       string
	threshold    float64
	examples     int
	allWindows   bool
	runs         bool

	thresholdSet bool
	examplesSet  bool
}

func newAnalyzeCmd(dataDir *string) *cobra.Command {
	var opts analyzeOptions
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Print where the recorded time went",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts.thresholdSet = cmd.Flags().Changed("threshold")
			opts.examplesSet = cmd.Flags().Changed("examples")
			return runAnalyze(cmd.Context(), paths.DataDir{Root: *dataDir}, opts, cmd.OutOrStdout(), time.Now())
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.since, "since", "", "Only count time after this date or RFC3339 timestamp")
	f.StringVar(&opts.until, "until", "", "Only count time before this date or RFC3339 timestamp")
	f.StringVar(&opts.rulesFile, "rules", "", "Rules file (default from analyze.rules_file)")
	f.StringVar(&opts.format, "format", "text", "Output format: text or json")
	f.Float64Var(&opts.threshold, "threshold", 0, "Minimum cluster size for unmatched examples; below 1 is a fraction")
	f.IntVar(&opts.examples, "examples", 0, "Maximum example clusters per node")
	f.BoolVar(&opts.allWindows, "all-windows", false, "Count unfocused windows too")
	f.BoolVar(&opts.runs, "runs", false, "Append a summary of recording runs")
	return cmd
}

// parseBound accepts "", a local date (2006-01-02), a local date and minute
// (2006-01-02 15:04) or RFC3339.
func parseBound(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	for _, layout := range []string{time.DateOnly, "2006-01-02 15:04", "2006-01-02T15:04"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q: want YYYY-MM-DD or RFC3339", s)
}

// loadRules reads the rules file, writing the built-in rules first when it
// does not exist yet.
func loadRules(path string) ([]classify.Rule, error) {
	if _, err := atomicfile.WriteIfMissing(path, rootpkg.DefaultRulesTOML, 0o644); err != nil {
		return nil, fmt.Errorf("write default rules: %w", err)
	}
	return classify.LoadFile(path)
}

func runAnalyze(ctx context.Context, dp paths.DataDir, opts analyzeOptions, w io.Writer, now time.Time) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(dp.Root)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	since, err := parseBound(opts.since)
	if err != nil {
		return err
	}
	until, err := parseBound(opts.until)
	if err != nil {
		return err
	}
	if !since.IsZero() && !until.IsZero() && !since.Before(until) {
		return fmt.Errorf("--since %s is not before --until %s", opts.since, opts.until)
	}

	renderer, err := report.ForFormat(opts.format)
	if err != nil {
		return err
	}
	if opts.runs && opts.format == "json" {
		return fmt.Errorf("--runs is only supported with text output")
	}

	rulesPath := dp.Rules(cfg.Analyze.RulesFile)
	if opts.rulesFile != "" {
		rulesPath = opts.rulesFile
	}
	rules, err := loadRules(rulesPath)
	if err != nil {
		return err
	}

	build := report.Options{Threshold: cfg.Analyze.Threshold, Examples: cfg.Analyze.Examples}
	if opts.thresholdSet {
		if err := config.CheckThreshold(opts.threshold); err != nil {
			return fmt.Errorf("--%w", err)
		}
		build.Threshold = opts.threshold
	}
	if opts.examplesSet {
		build.Examples = opts.examples
	}

	st, err := store.Open(dp.Database(cfg.Store.File), cfg.BusyTimeout())
	if err != nil {
		return err
	}
	defer st.Close()

	intervals, err := st.Intervals(ctx, store.Filter{
		Since:      since,
		Until:      until,
		OnlyActive: cfg.Analyze.OnlyActive && !opts.allWindows,
	})
	if err != nil {
		return err
	}

	c := classify.New("", rules)
	for _, iv := range intervals {
		c.Add(iv.Title, iv.Clip(since, until))
	}
	if err := renderer.Render(w, report.Build(c.Root(), build)); err != nil {
		return fmt.Errorf("render report: %w", err)
	}

	if !opts.runs {
		return nil
	}
	runs, err := st.Runs(ctx, since, until)
	if err != nil {
		return err
	}
	summary := make([]report.Run, len(runs))
	for i, r := range runs {
		summary[i] = report.Run{Start: r.Start, End: r.End, Reason: r.Reason}
	}
	return report.WriteRunSummary(w, report.SummarizeRuns(summary, since, until, now.UTC()))
}
