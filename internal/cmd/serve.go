package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/atikulmunna/gclens/internal/config"
	"github.com/atikulmunna/gclens/internal/output"
	"github.com/atikulmunna/gclens/internal/server"
	"github.com/atikulmunna/gclens/internal/store"
	"github.com/atikulmunna/gclens/internal/watcher"
)

var watchLogs bool

var serveCmd = &cobra.Command{
	Use:   "serve [paths...]",
	Short: "Serve analyses over HTTP",
	Long: `Analyze the given GC logs and serve the results as a JSON API, pushing
each new analysis to websocket clients on /ws. With --watch, a log is
analysed again from its start whenever one of its files changes.

Examples:
  gclens serve gc.log --port 8080
  gclens serve "/var/log/app/gc*.log" --watch --store gclens.db`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "HTTP port")
	serveCmd.Flags().BoolVarP(&watchLogs, "watch", "w", false, "re-analyze logs when their files change")
	cobra.CheckErr(viper.BindPFlag(config.KeyServerPort, serveCmd.Flags().Lookup("port")))
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	path := cfg.StorePath
	if path == "" {
		path = ":memory:"
	}
	st, err := store.Open(path, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	srv := server.New(st, cfg.ServerPort, logger)
	publish := func(ctx context.Context, patterns []string) {
		results, err := analyzeAll(ctx, patterns)
		if err != nil {
			logger.Warn("some logs were not analysed", zap.Error(err))
		}
		for _, r := range results {
			if r.Err != nil {
				continue
			}
			rec, err := st.Save(ctx, output.NewReport(r.Model))
			if err != nil {
				logger.Error("save analysis", zap.String("log", r.Log.Name()), zap.Error(err))
				continue
			}
			srv.Publish(rec)
		}
	}

	if len(args) > 0 {
		publish(ctx, args)
	}
	if watchLogs && len(args) > 0 {
		w, err := watcher.New(args, watcher.WithLogger(logger))
		if err != nil {
			return err
		}
		logger.Info("watching logs", zap.Strings("dirs", w.Dirs()))
		go w.Start(ctx)
		go func() {
			for pattern := range w.Changes() {
				logger.Info("log changed", zap.String("log", pattern))
				publish(ctx, []string{pattern})
			}
		}()
	}

	return srv.Start(ctx)
}
