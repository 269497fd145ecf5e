package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/dossier/internal/model"
	"github.com/ppiankov/dossier/internal/pipeline"
)

var (
	lookupCountry string
	lookupFormat  string
	lookupOut     string
	lookupTimeout time.Duration
	noCache       bool
	checkLinks    bool
	saveHistory   bool
	llmProvider   string
	llmModel      string
	strictSources bool
	ignoreRobots  bool
	httpProxy     string
	httpsProxy    string
)

// lookupCmd represents the lookup command
var lookupCmd = &cobra.Command{
	Use:   "lookup <company>",
	Short: "Research one company and print its company record",
	Long: `Lookup researches a company and shows:
- a table of registration, contact, ownership and revenue details
- the references the research report cited
- notices for any stage that could not complete

Example:
  dossier lookup "Acme Ltd"
  dossier lookup "Acme Ltd" --country "United Kingdom" --format markdown --out acme.md
  dossier lookup "Acme Ltd" --check-links --save`,
	Args: cobra.ExactArgs(1),
	RunE: runLookup,
}

func init() {
	rootCmd.AddCommand(lookupCmd)

	lookupCmd.Flags().StringVar(&lookupCountry, "country", "", "country the company is registered in (optional)")
	lookupCmd.Flags().StringVar(&lookupFormat, "format", "", "output format: table, markdown, json (default from config)")
	lookupCmd.Flags().StringVar(&lookupOut, "out", "", "write output to this file instead of stdout")
	lookupCmd.Flags().DurationVar(&lookupTimeout, "timeout", 5*time.Minute, "overall lookup timeout")
	lookupCmd.Flags().BoolVar(&checkLinks, "check-links", false, "check that reference links are reachable")
	lookupCmd.Flags().BoolVar(&saveHistory, "save", false, "save the lookup to the history database")
	addCommonFlags(lookupCmd)
}

// addCommonFlags registers flags shared by lookup, batch and serve
func addCommonFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable cache (force fresh research)")
	cmd.Flags().StringVar(&llmProvider, "llm-provider", "", "LLM provider (openai, anthropic, ollama)")
	cmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name")
	cmd.Flags().BoolVar(&strictSources, "strict-sources", false, "warn about citations outside the fetched sources")
	cmd.Flags().BoolVar(&ignoreRobots, "ignore-robots", false, "do not consult robots.txt")
	cmd.Flags().StringVar(&httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	cmd.Flags().StringVar(&httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
}

// applyCommonFlags overrides config values with the flags that were set
func applyCommonFlags(cmd *cobra.Command, cfg *model.Config) {
	if noCache {
		cfg.Cache.Enabled = false
	}
	if cmd.Flags().Changed("llm-provider") {
		cfg.LLM.Provider = llmProvider
		cfg.LLM.APIKey = viper.GetString("llm.api_key")
		applyProviderEnv(cfg)
	}
	if cmd.Flags().Changed("llm-model") {
		cfg.LLM.Model = llmModel
	}
	if strictSources {
		cfg.Research.StrictSources = true
	}
	if ignoreRobots {
		cfg.HTTP.RespectRobots = false
	}
	if httpProxy != "" {
		cfg.HTTP.HTTPProxy = httpProxy
	}
	if httpsProxy != "" {
		cfg.HTTP.HTTPSProxy = httpsProxy
	}
	cfg.Output.Verbose = verbose
}

func runLookup(cmd *cobra.Command, args []string) error {
	company := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyCommonFlags(cmd, cfg)
	if checkLinks {
		cfg.LinkCheck.Enabled = true
	}
	if saveHistory {
		cfg.Store.Enabled = true
	}
	format := cfg.Output.Format
	if lookupFormat != "" {
		format = lookupFormat
	}

	if err := validateProvider(cfg); err != nil {
		return err
	}

	if strings.TrimSpace(company) == "" {
		return errors.New(pipeline.EmptyCompanyWarning)
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	if verbose {
		fmt.Fprintf(os.Stderr, "Researching: %s\n", company)
		fmt.Fprintf(os.Stderr, "Provider:    %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
		fmt.Fprintf(os.Stderr, "Cache:       %v\n", cfg.Cache.Enabled)
		fmt.Fprintln(os.Stderr)
	}

	res := p.Run(ctx, company, lookupCountry)

	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Lookup %s finished in %s\n", res.ID, res.Duration.Round(time.Millisecond))
		if len(res.Coercions) > 0 {
			fmt.Fprintf(os.Stderr, "✓ %d fields replaced during normalization\n", len(res.Coercions))
		}
		fmt.Fprintln(os.Stderr)
	}

	renderer := pipeline.NewRenderer()
	if lookupOut != "" {
		if err := renderer.WriteFile(res, lookupOut, format); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "✓ Wrote %s\n", lookupOut)
		return nil
	}

	out, err := renderer.Render(res, format)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}
