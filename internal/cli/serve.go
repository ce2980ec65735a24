package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/kqstats/stats-server-go/internal/feed"
	"github.com/kqstats/stats-server-go/internal/server"
	"github.com/kqstats/stats-server-go/internal/stats"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var errFeedClosed = errors.New("cabinet feed disconnected")

// NewServeCommand creates the serve command.
func NewServeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Track a live cabinet and serve stats to overlays",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(opts)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			logger.Info("starting kqstats server",
				zap.String("version", opts.Version),
				zap.String("feed", cfg.Feed.Address),
				zap.String("address", cfg.Server.Address),
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			bus := feed.NewBus()
			engine := stats.NewEngine(bus, logger)
			hub := server.NewHub(engine.Snapshot, cfg.Server.SendBuffer, logger)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				hub.Run(gctx)
				return nil
			})

			if _, err := engine.Subscribe(stats.EventChange, hub.Publish); err != nil {
				return err
			}
			if err := engine.Start(); err != nil {
				return err
			}

			client, err := feed.Dial(gctx, cfg.Feed.Address, bus, cfg.Feed.ReadTimeout, logger)
			if err != nil {
				stop()
				_ = g.Wait()
				return err
			}
			logger.Info("connected to cabinet", zap.String("address", cfg.Feed.Address))

			g.Go(func() error {
				if err := client.Run(gctx); err != nil {
					return err
				}
				if gctx.Err() == nil {
					return errFeedClosed
				}
				return nil
			})
			g.Go(func() error {
				return server.ListenAndServe(gctx, cfg.Server.Address, server.NewMux(hub), logger)
			})

			err = g.Wait()
			logger.Info("kqstats server stopped")
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
}
