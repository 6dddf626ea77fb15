package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bryan-buckman/readhubx/internal/rss"
)

func (e *env) watchCmd() *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "watch <feed-url>",
		Short: "Poll a readhubx feed.xml and print new topics as they appear",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			p := e.printer(cmd.OutOrStdout())
			w := rss.NewWatcher(args[0], interval)
			err := w.Run(ctx, p.WatchItems)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 5*time.Minute, "polling interval")
	return cmd
}
