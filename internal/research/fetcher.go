package research

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/ppiankov/dossier/internal/cache"
	"github.com/ppiankov/dossier/internal/extract"
	"github.com/ppiankov/dossier/internal/httputil"
	"github.com/ppiankov/dossier/internal/metrics"
	"github.com/ppiankov/dossier/internal/model"
	"github.com/ppiankov/dossier/internal/util"
	"github.com/ppiankov/dossier/internal/worker"
)

var (
	// ErrDisallowed is returned when robots.txt forbids fetching a source
	ErrDisallowed = errors.New("disallowed by robots.txt")

	// ErrNotHTML is returned for responses that are not HTML documents
	ErrNotHTML = errors.New("not an HTML document")
)

const truncationMarker = "\n\n[truncated]"

// Page is a fetched research source converted to markdown
type Page struct {
	URL         string    `json:"url"`
	FinalURL    string    `json:"final_url"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Markdown    string    `json:"markdown"`
	Truncated   bool      `json:"truncated,omitempty"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// Fetcher downloads research sources politely and turns them into markdown
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	maxChars   int
	robots     *util.RobotsChecker
	limiter    *worker.Limiter
	cache      cache.Cache
	cacheTTL   time.Duration
	policy     *bluemonday.Policy
	md         *converter.Converter
	logger     *zap.Logger
}

// FetcherOption configures a Fetcher
type FetcherOption func(*Fetcher)

// WithRobots enables robots.txt checks
func WithRobots(r *util.RobotsChecker) FetcherOption {
	return func(f *Fetcher) { f.robots = r }
}

// WithLimiter enables per-host pacing
func WithLimiter(l *worker.Limiter) FetcherOption {
	return func(f *Fetcher) { f.limiter = l }
}

// WithPageCache caches converted pages for ttl
func WithPageCache(c cache.Cache, ttl time.Duration) FetcherOption {
	return func(f *Fetcher) {
		f.cache = c
		f.cacheTTL = ttl
	}
}

// WithMaxChars truncates page markdown to n characters (0 = no limit)
func WithMaxChars(n int) FetcherOption {
	return func(f *Fetcher) { f.maxChars = n }
}

// WithHTTPClient replaces the default client
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *Fetcher) { f.httpClient = c }
}

// WithFetchLogger sets the logger
func WithFetchLogger(l *zap.Logger) FetcherOption {
	return func(f *Fetcher) { f.logger = l }
}

// NewFetcher creates a Fetcher from HTTP settings
func NewFetcher(cfg model.HTTPConfig, opts ...FetcherOption) *Fetcher {
	maxBytes := cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 2_000_000
	}

	f := &Fetcher{
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: util.NewTransport(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("stopped after 5 redirects")
				}
				return nil
			},
		},
		userAgent: cfg.UserAgent,
		maxBytes:  maxBytes,
		cache:     cache.Nop{},
		policy:    bluemonday.UGCPolicy(),
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
		logger: zap.NewNop(),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

func (f *Fetcher) applyCrawlDelay(rawURL string, delay time.Duration) {
	if f.limiter == nil {
		return
	}
	if err := f.limiter.ApplyCrawlDelay(rawURL, delay); err != nil {
		f.logger.Debug("crawl delay not applied", zap.String("url", rawURL), zap.Error(err))
	}
}

// Fetch retrieves rawURL and returns its content as markdown
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	key := cache.Key(cache.NamespacePage, rawURL, fmt.Sprint(f.maxChars))

	var cached Page
	if cache.GetJSON(f.cache, key, &cached) {
		metrics.SourceFetches.WithLabelValues("cached").Inc()
		return &cached, nil
	}

	if f.robots != nil {
		allowed, crawlDelay, err := f.robots.CanFetch(ctx, rawURL)
		if err != nil {
			metrics.SourceFetches.WithLabelValues("error").Inc()
			return nil, err
		}
		if !allowed {
			metrics.SourceFetches.WithLabelValues("disallowed").Inc()
			return nil, fmt.Errorf("%s: %w", rawURL, ErrDisallowed)
		}
		f.applyCrawlDelay(rawURL, crawlDelay)
	}

	if f.limiter != nil {
		if err := f.limiter.Wait(ctx, rawURL); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	page, err := f.fetch(ctx, rawURL)
	if err != nil {
		metrics.SourceFetches.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.SourceFetches.WithLabelValues("ok").Inc()

	if err := cache.SetJSON(f.cache, key, page, f.cacheTTL); err != nil {
		f.logger.Debug("page cache write failed", zap.String("url", rawURL), zap.Error(err))
	}

	return page, nil
}

func (f *Fetcher) fetch(ctx context.Context, rawURL string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := httputil.DoWithRetry(ctx, f.httpClient, req, 0)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status: %s", resp.Status)
	}

	if ct := strings.ToLower(resp.Header.Get("Content-Type")); ct != "" && !strings.Contains(ct, "html") {
		return nil, fmt.Errorf("%s (%s): %w", rawURL, ct, ErrNotHTML)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	finalURL := resp.Request.URL.String()
	raw := string(body)

	meta, err := extract.ParsePage(raw, finalURL)
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	markdown, err := f.md.ConvertString(f.policy.Sanitize(raw), converter.WithDomain(finalURL))
	if err != nil {
		return nil, fmt.Errorf("convert to markdown: %w", err)
	}

	text, truncated := truncate(strings.TrimSpace(markdown), f.maxChars)

	title := meta.Title
	if title == "" {
		title = finalURL
	}

	return &Page{
		URL:         rawURL,
		FinalURL:    finalURL,
		Title:       title,
		Description: meta.Description,
		Markdown:    text,
		Truncated:   truncated,
		FetchedAt:   time.Now().UTC(),
	}, nil
}

// truncate cuts s to at most maxChars runes, on a rune boundary
func truncate(s string, maxChars int) (string, bool) {
	if maxChars <= 0 || utf8.RuneCountInString(s) <= maxChars {
		return s, false
	}

	n := 0
	for i := range s {
		if n == maxChars {
			return strings.TrimSpace(s[:i]) + truncationMarker, true
		}
		n++
	}
	return s, false
}
