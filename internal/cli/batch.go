package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"
	"unicode"

	"github.com/spf13/cobra"

	"github.com/ppiankov/dossier/internal/pipeline"
	"github.com/ppiankov/dossier/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchFormat  string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Look up multiple companies from a file in parallel",
	Long: `Batch looks up many companies concurrently:
- Read targets from input file, one per line: "Company" or "Company | Country"
- Blank lines and lines starting with # are skipped
- Process lookups in parallel with configurable worker count
- Write one output file per company

Example:
  dossier batch companies.txt
  dossier batch companies.txt --concurrency 4 --output-dir ./dossiers
  dossier batch companies.txt --format json --timeout 30m`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./dossiers", "output directory for results")
	batchCmd.Flags().StringVar(&batchFormat, "format", pipeline.FormatMarkdown, "output format: table, markdown, json")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for batch processing")
	batchCmd.Flags().BoolVar(&saveHistory, "save", false, "save every lookup to the history database")
	addCommonFlags(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyCommonFlags(cmd, cfg)
	if saveHistory {
		cfg.Store.Enabled = true
	}
	if cmd.Flags().Changed("concurrency") || cfg.Concurrency.Workers <= 0 {
		cfg.Concurrency.Workers = concurrency
	}
	if err := validateProvider(cfg); err != nil {
		return err
	}
	format, err := pipeline.ParseFormat(batchFormat)
	if err != nil {
		return err
	}

	logger, err := newLogger(verbose)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Dossier Batch Processing\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Format:       %s\n", format)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "  LLM:          %s/%s\n", cfg.LLM.Provider, cfg.LLM.Model)
	fmt.Fprintf(os.Stderr, "\n")

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	p, err := pipeline.NewFromConfig(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close() }()

	processor := worker.NewBatchProcessor[*pipeline.Result](p, cfg.Concurrency.Workers)

	fmt.Fprintf(os.Stderr, "⚙️  Looking up companies with %d workers...\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "\n")

	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	renderer := pipeline.NewRenderer()
	ext := pipeline.FileExtension(format)
	used := make(map[string]int)

	var complete, degraded, failed int
	for _, result := range results {
		if result.Error != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.Target, result.Error)
			continue
		}

		slug := uniqueSlug(used, sanitizeFilename(result.Target.String()))
		path := filepath.Join(outputDir, slug+ext)
		if err := renderer.WriteFile(result.Value, path, format); err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write output: %v\n", result.Target, err)
			continue
		}

		if result.Value.Degraded {
			degraded++
			fmt.Fprintf(os.Stderr, "! %s (%d notices) → %s\n", result.Target, len(result.Value.Notices), path)
			continue
		}
		complete++
		fmt.Fprintf(os.Stderr, "✓ %s → %s\n", result.Target, path)
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d companies\n", len(results))
	fmt.Fprintf(os.Stderr, "  Complete:  %d\n", complete)
	fmt.Fprintf(os.Stderr, "  Degraded:  %d\n", degraded)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failed)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}

// sanitizeFilename turns a batch target into a lowercase, dash-separated
// file name
func sanitizeFilename(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}

	slug := strings.TrimSuffix(b.String(), "-")

	// Limit length
	if runes := []rune(slug); len(runes) > 100 {
		slug = strings.TrimSuffix(string(runes[:100]), "-")
	}
	if slug == "" {
		slug = "company"
	}
	return slug
}

// uniqueSlug appends a counter when two targets map to the same file name
func uniqueSlug(used map[string]int, slug string) string {
	n := used[slug]
	used[slug] = n + 1
	if n == 0 {
		return slug
	}
	return fmt.Sprintf("%s-%d", slug, n+1)
}
