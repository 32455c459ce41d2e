package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/joss/ducky/internal/app"
	"github.com/joss/ducky/internal/runtime"
	"github.com/joss/ducky/internal/server"
)

func serveCmd() *cobra.Command {
	cmd := newCommand(CommandConfig{
		Use:   "serve",
		Short: "Run the redirect server",
		Long: `Run an HTTP server that redirects /?q=<query> to its destination.

Point your browser's search engine at http://<listen>/?q=%s.
Extra bang datasets are reloaded when they change (bangs.watch).`,
		Args: cobra.NoArgs,
		RunApp: func(ctx context.Context, a *app.App, cmd *cobra.Command, args []string) error {
			listen, _ := cmd.Flags().GetString("listen")
			if listen == "" {
				listen = a.Config.Server.Listen
			}

			shutdown := runtime.NewShutdownManager(runtime.DefaultShutdownTimeout, a.Log)
			stop := shutdown.ListenForSignals()
			defer stop()

			// The services close after the server has drained, in newCommand.
			shutdown.RegisterCloser("log-sync", func() error {
				_ = a.Log.Sync()
				return nil
			})
			shutdown.RegisterSimple("metrics", func() {
				results, matches := a.Engine.CacheStats()
				a.Log.Info("final_metrics",
					zap.Any("resolutions", a.Metrics.Resolutions()),
					zap.Any("result_cache", results),
					zap.Any("match_cache", matches),
					zap.Int64("cache_hits", a.Metrics.CacheHits.Load()),
					zap.Int64("reloads", a.Metrics.Reloads.Load()))
			})

			srv := server.New(a.Redirect,
				server.WithRecent(a.Recent),
				server.WithHealth(a.Store),
				server.WithMetrics(a.Metrics.Handler()),
				server.WithLogger(a.Log),
			)

			g, gctx := errgroup.WithContext(shutdown.Context())
			g.Go(func() error {
				return srv.ListenAndServe(gctx, listen)
			})
			if a.Config.Bangs.Watch {
				w, err := a.Watcher()
				if err != nil {
					return err
				}
				a.Log.Info("watching bang datasets", zap.String("dir", w.Dir()))
				g.Go(func() error {
					return w.Run(gctx)
				})
			}

			err := g.Wait()
			return errors.Join(err, shutdown.Shutdown())
		},
	})
	cmd.Flags().String("listen", "", "Listen address (default server.listen)")
	return cmd
}
