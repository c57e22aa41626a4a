package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/atikulmunna/gclens/internal/analysis"
	"github.com/atikulmunna/gclens/internal/output"
	"github.com/atikulmunna/gclens/internal/source"
	"github.com/atikulmunna/gclens/internal/store"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [paths...]",
	Short: "Analyze GC logs",
	Long: `Analyze one or more GC logs. Each argument is a path or glob pattern;
a pattern matching several files is read as one rotated log, oldest first.
Gzip and zip compressed files are read transparently.

Examples:
  gclens analyze gc.log
  gclens analyze "/var/log/app/gc*.log" --output json
  gclens analyze gc.log.gz -a "pause.*" --store gclens.db`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	renderer, err := output.New(cfg.Output, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	var st *store.Store
	if cfg.StorePath != "" {
		if st, err = store.Open(cfg.StorePath, logger); err != nil {
			return err
		}
		defer st.Close()
	}

	results, err := analyzeAll(ctx, args)
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		err = multierr.Append(err, renderer.Render(r.Model))
		if st != nil {
			if _, serr := st.Save(ctx, output.NewReport(r.Model)); serr != nil {
				err = multierr.Append(err, serr)
			}
		}
	}
	return err
}

func newAnalyzer() (*analysis.Analyzer, error) {
	return analysis.New(
		analysis.WithLogger(logger),
		analysis.WithAggregators(cfg.Aggregators...),
		analysis.WithDetectionBudget(cfg.DetectionLines),
		analysis.WithFragmentThreshold(cfg.FragmentThreshold),
		analysis.WithWorkers(cfg.Workers),
	)
}

// analyzeAll resolves every pattern and analyses the logs found. Patterns
// that match nothing are reported alongside failed analyses.
func analyzeAll(ctx context.Context, patterns []string) ([]analysis.Result, error) {
	a, err := newAnalyzer()
	if err != nil {
		return nil, err
	}

	var (
		logs    []*source.Log
		missing error
	)
	for _, p := range patterns {
		found, err := source.Resolve([]string{p}, source.WithLogger(logger))
		if err != nil {
			missing = multierr.Append(missing, err)
			continue
		}
		logs = append(logs, found...)
	}
	if len(logs) == 0 {
		return nil, missing
	}

	results, err := a.AnalyzeAll(ctx, logs)
	for _, r := range results {
		if r.Err != nil {
			logger.Error("analysis failed", zap.String("log", r.Log.Name()), zap.Error(r.Err))
		}
	}
	if err != nil {
		err = fmt.Errorf("%d of %d logs failed: %w", len(multierr.Errors(err)), len(logs), err)
	}
	return results, multierr.Append(missing, err)
}
