// Package cli contains the readhubx commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bryan-buckman/readhubx/internal/app"
	"github.com/bryan-buckman/readhubx/internal/config"
	"github.com/bryan-buckman/readhubx/internal/database"
	"github.com/bryan-buckman/readhubx/internal/readhub"
	"github.com/bryan-buckman/readhubx/internal/subscription"
)

// env is the state shared by all commands of one root.
type env struct {
	version string
	cfgFile string
	noColor bool
	verbose bool

	v   *viper.Viper
	cfg *config.Config
}

// Execute runs the root command.
func Execute(version string) error {
	return NewRootCmd(version).Execute()
}

// NewRootCmd builds the command tree.
func NewRootCmd(version string) *cobra.Command {
	e := &env{version: version, v: config.New("")}

	root := &cobra.Command{
		Use:   "readhubx",
		Short: "ReadHub news client and CORS proxy",
		Long: `readhubx follows companies, products, people and tags on ReadHub.

It stores subscriptions locally, prints the topic feed for them, and can run
an HTTP server that proxies the ReadHub API with CORS headers.

Example usage:
  readhubx search 字节跳动            # Find entities
  readhubx subscribe 42 Acme company  # Follow one
  readhubx feed --pages 2             # Print the topic feed
  readhubx serve                      # Run the proxy server`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return e.init()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&e.cfgFile, "config", "", "config file (default is ./readhubx.yaml)")
	pf.String("db", "", "SQLite path or postgres:// DSN")
	pf.String("api-base", "", "ReadHub API base URL used by client commands")
	pf.BoolVar(&e.noColor, "no-color", false, "disable colored output")
	pf.BoolVarP(&e.verbose, "verbose", "v", false, "show loading progress and fetch errors")
	_ = e.v.BindPFlag("db", pf.Lookup("db"))
	_ = e.v.BindPFlag("api_base", pf.Lookup("api-base"))

	root.AddCommand(
		e.serveCmd(),
		e.feedCmd(),
		e.searchCmd(),
		e.subscribeCmd(),
		e.unsubscribeCmd(),
		e.subscriptionsCmd(),
		e.topicCmd(),
		e.activityCmd(),
		e.watchCmd(),
		e.versionCmd(),
	)
	return root
}

func (e *env) init() error {
	if e.cfgFile != "" {
		e.v.SetConfigFile(e.cfgFile)
	}
	cfg, err := config.Load(e.v)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	e.cfg = cfg
	return nil
}

func (e *env) printer(w io.Writer) *Printer {
	colors := e.cfg != nil && e.cfg.Color && !e.noColor
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		colors = false
	}
	return NewPrinter(w, colors)
}

func (e *env) logf(format string, args ...any) {
	if e.verbose {
		log.Printf(format, args...)
	}
}

// openStore opens the database and the subscription store on top of it.
// The caller closes the returned database.
func (e *env) openStore() (database.Store, *subscription.Store, error) {
	if dir := filepath.Dir(e.cfg.DB); !isDSN(e.cfg.DB) && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	db, err := database.Open(e.cfg.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	return db, subscription.New(db), nil
}

func isDSN(s string) bool {
	return strings.HasPrefix(s, "postgres://") || strings.HasPrefix(s, "postgresql://")
}

// withController opens the store, builds a controller and runs fn.
func (e *env) withController(cmd *cobra.Command, fn func(ctx context.Context, c *app.Controller, p *Printer) error) error {
	db, subs, err := e.openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	p := e.printer(cmd.OutOrStdout())
	opts := []app.Option{app.WithLogf(e.logf)}
	if e.verbose {
		opts = append(opts, app.WithRenderer(e.printer(cmd.ErrOrStderr()).progress()))
	}
	api := readhub.NewClient(e.cfg.APIBase)
	return fn(cmd.Context(), app.NewController(api, subs, opts...), p)
}
