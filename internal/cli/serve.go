package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/bryan-buckman/readhubx/internal/server"
)

const shutdownTimeout = 10 * time.Second

func (e *env) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the API proxy, feed and subscription server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, subs, err := e.openStore()
			if err != nil {
				return err
			}
			defer db.Close()
			log.Printf("Using %s database", db.DatabaseType())

			srv := server.New(subs, server.Config{
				PublicURL: e.cfg.PublicURL,
				Proxy:     e.cfg.ProxyConfig(),
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, srv, e.cfg.Addr)
		},
	}
	cmd.Flags().String("addr", "", "listen address (default :8080)")
	_ = e.v.BindPFlag("addr", cmd.Flags().Lookup("addr"))
	return cmd
}

// run serves until ctx is done or the listener fails, then shuts down.
func run(ctx context.Context, srv *server.Server, addr string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(addr)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Printf("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}
