package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/gridtools/gridfold/internal/api"
	"github.com/gridtools/gridfold/pkg/pipeline"
)

// newServeCmd creates the serve command, which runs the HTTP reduction
// service until interrupted.
func newServeCmd() *cobra.Command {
	var (
		addr     string
		redisURL string
		cacheOff bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP reduction service",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			c, err := openCache(ctx, CacheConfig{RedisURL: redisURL}, cacheOff)
			if err != nil {
				return err
			}
			runner := pipeline.NewRunner(c, nil, logger)
			defer runner.Close()

			srv := &http.Server{
				Addr:              addr,
				Handler:           api.NewServer(runner, logger).Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errc := make(chan error, 1)
			go func() {
				logger.Info("listening", "addr", addr)
				errc <- srv.ListenAndServe()
			}()

			select {
			case err := <-errc:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					return fmt.Errorf("shutdown: %w", err)
				}
				logger.Info("server stopped")
				return nil
			}
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", ":8080", "listen address")
	cmd.Flags().StringVar(&redisURL, "redis", "", "redis URL for the shared result cache")
	cmd.Flags().BoolVar(&cacheOff, "no-cache", false, "disable result caching")

	return cmd
}
