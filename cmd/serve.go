package cmd

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"github.com/zalepa/crimedash/incident"
	"github.com/zalepa/crimedash/web"
)

func cmdServe() *cli.Command {
	var (
		dataCfg   datasetConfig
		serverCfg serverConfig
		storeCfg  storeConfig
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the admin and user dashboards over HTTP",
		Flags: joinFlags(
			dataCfg.Flags(),
			serverCfg.Flags(),
			storeCfg.Flags(),
		),
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)
			logger.Info("Starting crimedash server",
				slog.Any("dataset", dataCfg),
				slog.Any("server", serverCfg),
				slog.Any("store", storeCfg),
			)

			cfg, err := dataCfg.Configure()
			if err != nil {
				return err
			}

			kv, err := storeCfg.Configure()
			if err != nil {
				return err
			}
			defer kv.Close()

			server, err := web.NewServer(ctx, serverCfg.Addr, kv, cfg, web.WithMaxSessions(serverCfg.MaxSessions))
			if err != nil {
				return goerr.Wrap(err, "failed to create HTTP server")
			}

			// A failed load is logged by the server and leaves the dashboards
			// empty; serving continues.
			_ = server.LoadDataset(ctx, incident.NewLoader(), dataCfg.Source)

			go func() {
				logger.Info("HTTP server starting", slog.String("addr", serverCfg.Addr))
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("HTTP server error", slog.Any("error", err))
				}
			}()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

			select {
			case <-ctx.Done():
				logger.Info("Context cancelled, shutting down...")
			case sig := <-sigChan:
				logger.Info("Signal received, shutting down...", slog.Any("signal", sig))
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := server.Shutdown(shutdownCtx); err != nil {
				return goerr.Wrap(err, "failed to shutdown server gracefully")
			}

			logger.Info("Server shutdown complete")
			return nil
		},
	}
}
