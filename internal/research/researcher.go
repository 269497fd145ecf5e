// Package research produces citation-annotated research reports about a
// company from fetched web sources and an LLM.
package research

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/dossier/internal/cache"
	"github.com/ppiankov/dossier/internal/llm"
	"github.com/ppiankov/dossier/internal/metrics"
	"github.com/ppiankov/dossier/internal/model"
)

// ErrEmptyReport is returned when the model produced no report text
var ErrEmptyReport = errors.New("model returned an empty report")

// Query is one research request. Text is the natural-language question;
// Company and Country drive source discovery.
type Query struct {
	Text    string `json:"text"`
	Company string `json:"company"`
	Country string `json:"country,omitempty"`
}

// PageFetcher retrieves one research source
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Page, error)
}

// Researcher generates research reports
type Researcher struct {
	provider     llm.Provider
	fetcher      PageFetcher
	cfg          model.ResearchConfig
	fetchWorkers int
	cache        cache.Cache
	logger       *zap.Logger
	now          func() time.Time
}

// ResearcherOption configures a Researcher
type ResearcherOption func(*Researcher)

// WithReportCache caches finished reports by query text
func WithReportCache(c cache.Cache) ResearcherOption {
	return func(r *Researcher) { r.cache = c }
}

// WithFetchWorkers bounds concurrent source fetches
func WithFetchWorkers(n int) ResearcherOption {
	return func(r *Researcher) { r.fetchWorkers = n }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) ResearcherOption {
	return func(r *Researcher) { r.logger = l }
}

// NewResearcher creates a Researcher. fetcher may be nil, in which case
// reports are written without web sources.
func NewResearcher(provider llm.Provider, fetcher PageFetcher, cfg model.ResearchConfig, opts ...ResearcherOption) *Researcher {
	r := &Researcher{
		provider:     provider,
		fetcher:      fetcher,
		cfg:          cfg,
		fetchWorkers: 4,
		cache:        cache.Nop{},
		logger:       zap.NewNop(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.fetchWorkers <= 0 {
		r.fetchWorkers = 1
	}
	return r
}

// Generate returns a markdown research report with inline [title](url)
// citations, a "## Conclusion" and a "## References" section
func (r *Researcher) Generate(ctx context.Context, q Query) (string, error) {
	if strings.TrimSpace(q.Text) == "" {
		return "", fmt.Errorf("empty research query")
	}

	key := cache.Key(cache.NamespaceReport, q.Text)
	if data, ok := r.cache.Get(key); ok {
		metrics.ReportCacheHits.Inc()
		r.logger.Debug("report served from cache", zap.String("company", q.Company))
		return string(data), nil
	}

	sources, err := r.gather(ctx, q)
	if err != nil {
		return "", err
	}

	prompt, err := renderReportPrompt(q.Text, sources, r.now())
	if err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}

	resp, err := r.provider.Complete(ctx, llm.CompletionRequest{
		System:    reportSystem,
		Prompt:    prompt,
		MaxTokens: r.cfg.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%s research: %w", r.provider.Name(), err)
	}
	metrics.RecordTokens(r.provider.Name(), "research", resp.TokensUsed)

	report := strings.TrimSpace(resp.Text)
	if report == "" {
		return "", ErrEmptyReport
	}

	if r.cfg.StrictSources {
		r.warnUnknownCitations(report, sources)
	}

	if err := r.cache.Set(key, []byte(report), r.cfg.ReportTTL); err != nil {
		r.logger.Debug("report cache write failed", zap.Error(err))
	}

	return report, nil
}

// gather fetches all configured sources concurrently. Individual failures
// are logged and skipped; only cancellation is returned.
func (r *Researcher) gather(ctx context.Context, q Query) ([]*Page, error) {
	if r.fetcher == nil {
		return nil, nil
	}

	urls := ExpandSources(r.cfg.Sources, q.Company, q.Country, r.cfg.MaxSources)
	pages := make([]*Page, len(urls))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(r.fetchWorkers)

	for i, u := range urls {
		g.Go(func() error {
			page, err := r.fetcher.Fetch(gCtx, u)
			if err != nil {
				if gCtx.Err() != nil {
					return gCtx.Err()
				}
				r.logger.Warn("source fetch failed", zap.String("url", u), zap.Error(err))
				return nil
			}
			pages[i] = page
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("gathering sources: %w", err)
	}

	var fetched []*Page
	for _, p := range pages {
		if p != nil && strings.TrimSpace(p.Markdown) != "" {
			fetched = append(fetched, p)
		}
	}

	r.logger.Info("sources gathered",
		zap.String("company", q.Company),
		zap.Int("requested", len(urls)),
		zap.Int("fetched", len(fetched)))

	return fetched, nil
}

func (r *Researcher) warnUnknownCitations(report string, sources []*Page) {
	known := make(map[string]bool, 2*len(sources))
	for _, s := range sources {
		known[s.URL] = true
		known[s.FinalURL] = true
	}

	for _, u := range llm.ExtractURLs(report) {
		if !known[u] {
			r.logger.Warn("report cites a URL outside the fetched sources", zap.String("url", u))
		}
	}
}
