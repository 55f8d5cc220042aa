package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kasuganosora/codepals/api"
	"github.com/kasuganosora/codepals/engine"
	"github.com/kasuganosora/codepals/scheduler"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(root *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load the saved game and serve the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := wireApp(root.configPath, true)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, a, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.host:server.port)")
	return cmd
}

// serve runs until ctx is cancelled, then drains HTTP, disposes the engine
// and releases the shared handles.
func serve(ctx context.Context, a *app, addr string) error {
	if addr == "" {
		addr = net.JoinHostPort(a.cfg.Server.Host, strconv.Itoa(a.cfg.Server.Port))
	}
	if a.cfg.Security.JWTSecret == "" {
		a.logger.Warn("security.jwt_secret is not set; the API accepts unauthenticated requests")
	}

	eng := a.newEngine()
	outcome := eng.InitializeOrLoad(ctx)
	if outcome.Warning != "" {
		a.logger.Warn("saved game replaced by a new one",
			zap.String("reason", outcome.Warning),
			zap.String("backup_key", outcome.BackupKey))
	}
	a.logger.Info("serving player", zap.String("player_id", eng.PlayerID()))

	sched := scheduler.New(a.logger)
	eng.Start(sched)

	srv := newHTTPServer(a, eng, sched, addr)
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutting down")
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn("http shutdown", zap.Error(err))
	}
	eng.Dispose(shutdownCtx)
	sched.Stop()
	a.Close(shutdownCtx)

	if serveErr != nil {
		return fmt.Errorf("serve %s: %w", addr, serveErr)
	}
	return nil
}

func newHTTPServer(a *app, eng *engine.Engine, sched *scheduler.Scheduler, addr string) *http.Server {
	if !a.cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.Deps{
		Engine:    eng,
		Scheduler: sched,
		Cache:     a.cache,
		PubSub:    a.pubsub,
		Security:  a.cfg.Security,
		Channel:   a.cfg.Engine.NotifyChannel,
		Logger:    a.logger,
	})
	return &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
