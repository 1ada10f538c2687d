package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/pushdeploy/pkg/cli/config"
	controller "github.com/m-mizutani/pushdeploy/pkg/controller/http"
	"github.com/m-mizutani/pushdeploy/pkg/usecase"
	"github.com/m-mizutani/pushdeploy/pkg/utils/async"
	"github.com/urfave/cli/v3"
)

const shutdownTimeout = 10 * time.Second

func cmdServe(pipelineCfg *config.Pipeline, slackCfg *config.Slack) *cli.Command {
	var serverCfg config.Server

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Accept push webhooks and run the pipeline of the pushed repository",
		Flags:   serverCfg.Flags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			base, err := pipelineCfg.Base()
			if err != nil {
				return err
			}
			base.SlackWebhook = slackCfg.WebhookURL

			queue := async.NewQueue()
			server, err := controller.NewServer(ctx,
				usecase.NewWebhook(base, newPipeline, usecase.WithDispatcher(queue.Dispatch)),
				controller.WithAddr(serverCfg.Addr),
				controller.WithWebhookSecret(serverCfg.WebhookSecret),
			)
			if err != nil {
				return goerr.Wrap(err, "failed to create HTTP server")
			}

			ctxlog.From(ctx).Info("Starting pushdeploy server",
				slog.String("addr", serverCfg.Addr),
				slog.String("repos_dir", base.ReposDir),
			)
			return serve(ctx, server, queue, serverCfg.DrainTimeout)
		},
	}
}

// serve runs server until ctx ends, a signal arrives or the listener fails, then drains queue
func serve(ctx context.Context, server *controller.Server, queue *async.Queue, drain time.Duration) error {
	logger := ctxlog.From(ctx)

	listenErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		}
		close(listenErr)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-listenErr:
		if err != nil {
			return goerr.Wrap(err, "HTTP server stopped", goerr.V("addr", server.Addr))
		}
	case <-ctx.Done():
		logger.Info("Context cancelled, shutting down")
	case sig := <-sigChan:
		logger.Info("Signal received, shutting down", slog.Any("signal", sig))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return goerr.Wrap(err, "failed to shutdown server gracefully")
	}

	drainCtx, cancelDrain := context.WithTimeout(context.Background(), drain)
	defer cancelDrain()
	if err := queue.Wait(drainCtx); err != nil {
		return err
	}

	logger.Info("Server shutdown complete")
	return nil
}
