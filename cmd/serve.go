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

	"github.com/genflow/genflow/engine/app"
	"github.com/genflow/genflow/engine/infra/cache"
	"github.com/genflow/genflow/engine/infra/server/router"
	llmadapter "github.com/genflow/genflow/engine/llm/adapter"
	"github.com/genflow/genflow/engine/llm/usage"
	"github.com/genflow/genflow/pkg/config"
	"github.com/genflow/genflow/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

const registrySize = 32

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the generation API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd.Context())
		},
	}
}

func runServer(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.NewLogger(&logger.Config{Level: cfg.Log.Level, JSON: cfg.Log.JSON})
	ctx = logger.ContextWithLogger(ctx, log)
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisConn, err := cache.NewRedis(ctx, &cfg.Redis)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer redisConn.Close()
	registry, err := llmadapter.NewRegistry(llmadapter.NewDefaultFactory(), registrySize)
	if err != nil {
		return fmt.Errorf("creating client registry: %w", err)
	}
	defer registry.Close()

	svc := app.NewService(app.Dependencies{
		Config:   cfg,
		Flags:    cache.NewRedisFlagStore(redisConn.Client(), cfg.Queue.StopFlagTTL),
		Registry: registry,
		Provider: llmadapter.ProviderConfig{
			Provider: cfg.Provider.Name,
			Model:    cfg.Provider.Model,
			APIKey:   cfg.Provider.APIKey,
			BaseURL:  cfg.Provider.BaseURL,
		},
		Usage: usage.NewCalculator(nil),
	})

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger(log))
	router.Register(engine, svc)

	srv := &http.Server{
		Addr:    net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler: engine,
		BaseContext: func(net.Listener) context.Context {
			return logger.ContextWithLogger(context.Background(), log)
		},
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// requestLogger attaches the root logger to every request context so
// downstream packages pick it up via logger.FromContext.
func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := logger.ContextWithLogger(c.Request.Context(), log)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
