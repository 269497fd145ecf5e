package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/dossier/internal/pipeline"
	"github.com/ppiankov/dossier/internal/web"
)

var (
	serveAddr    string
	serveTimeout time.Duration
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the lookup form and JSON API over HTTP",
	Long: `Serve starts a web server with:
- a lookup form at /
- a JSON API at /api/lookup?company=...&country=...
- saved lookups at /api/history (when the history store is enabled)
- Prometheus metrics at /metrics

Example:
  dossier serve
  dossier serve --addr :9090 --save`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	serveCmd.Flags().DurationVar(&serveTimeout, "lookup-timeout", 5*time.Minute, "timeout for a single lookup")
	serveCmd.Flags().BoolVar(&saveHistory, "save", false, "save lookups to the history database")
	addCommonFlags(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyCommonFlags(cmd, cfg)
	if saveHistory {
		cfg.Store.Enabled = true
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	if err := validateProvider(cfg); err != nil {
		return err
	}

	logger, err := newLogger(verbose)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	p, err := pipeline.NewFromConfig(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	opts := []web.Option{
		web.WithLogger(logger),
		web.WithLookupTimeout(serveTimeout),
	}
	if h := p.History(); h != nil {
		opts = append(opts, web.WithHistory(h))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "✓ Serving on %s (LLM: %s/%s)\n", cfg.Server.Addr, cfg.LLM.Provider, cfg.LLM.Model)
	return web.NewServer(p, opts...).ListenAndServe(ctx, cfg.Server.Addr)
}
