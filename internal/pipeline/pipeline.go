// Package pipeline runs a company lookup end to end: research, citation
// splitting, structured extraction, normalization and display formatting.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ppiankov/dossier/internal/cache"
	"github.com/ppiankov/dossier/internal/extract"
	"github.com/ppiankov/dossier/internal/llm"
	"github.com/ppiankov/dossier/internal/metrics"
	"github.com/ppiankov/dossier/internal/model"
	"github.com/ppiankov/dossier/internal/normalize"
	"github.com/ppiankov/dossier/internal/research"
	"github.com/ppiankov/dossier/internal/score"
	"github.com/ppiankov/dossier/internal/store"
	"github.com/ppiankov/dossier/internal/util"
	"github.com/ppiankov/dossier/internal/validate"
	"github.com/ppiankov/dossier/internal/worker"
)

// Messages shown to the user
const (
	NoReferencesPlaceholder = "No references available due to error"
	RetrySuggestion         = "Please try again with a different company name or check your internet connection."
	EmptyCompanyWarning     = "Please enter a company name."
)

// ReportGenerator produces a raw research report for a query
type ReportGenerator interface {
	Generate(ctx context.Context, q research.Query) (string, error)
}

// Extractor turns report text into a best-effort company draft
type Extractor interface {
	Extract(ctx context.Context, text string) (model.Draft, error)
}

// Recorder persists finished lookups
type Recorder interface {
	Save(ctx context.Context, res *Result) error
}

// Scorer rates how complete a finished lookup is
type Scorer interface {
	Calculate(record model.CompanyRecord, refs []extract.Reference, checks []validate.LinkCheck) score.Score
}

// LinkChecker checks reference URLs
type LinkChecker interface {
	Check(ctx context.Context, refs []extract.Reference) []validate.LinkCheck
}

// Pipeline orchestrates company lookups. It holds no per-lookup state, so
// Run may be called concurrently.
type Pipeline struct {
	generator   ReportGenerator
	extractor   Extractor
	linkChecker LinkChecker
	recorder    Recorder
	scorer      Scorer
	logger      *zap.Logger
	now         func() time.Time
	history     *store.Store
	closers     []io.Closer
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithLinkChecker checks reference links after splitting
func WithLinkChecker(c LinkChecker) Option {
	return func(p *Pipeline) { p.linkChecker = c }
}

// WithRecorder saves every finished lookup
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

// WithScorer replaces the default completeness scorer
func WithScorer(s Scorer) Option {
	return func(p *Pipeline) { p.scorer = s }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// New creates a pipeline from its collaborators
func New(gen ReportGenerator, ext Extractor, opts ...Option) *Pipeline {
	p := &Pipeline{
		generator: gen,
		extractor: ext,
		scorer:    score.NewScorer(nil),
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewFromConfig wires the real researcher, extractor, link checker and
// history store described by cfg. Call Close when done.
func NewFromConfig(cfg *model.Config, logger *zap.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg, logger))
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}

	c := cache.New(cfg.Cache)
	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)

	fetchOpts := []research.FetcherOption{
		research.WithLimiter(limiter),
		research.WithPageCache(c, cfg.Cache.DiskTTL),
		research.WithMaxChars(cfg.Research.MaxSourceChars),
		research.WithFetchLogger(logger),
	}
	if cfg.HTTP.RespectRobots {
		robotsClient := &http.Client{
			Timeout:   cfg.HTTP.Timeout,
			Transport: util.NewTransport(cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy, cfg.HTTP.NoProxy),
		}
		fetchOpts = append(fetchOpts, research.WithRobots(util.NewRobotsChecker(cfg.HTTP.UserAgent, robotsClient)))
	}

	researcher := research.NewResearcher(provider,
		research.NewFetcher(cfg.HTTP, fetchOpts...),
		cfg.Research,
		research.WithReportCache(c),
		research.WithFetchWorkers(cfg.Concurrency.FetchWorkers),
		research.WithLogger(logger),
	)

	extractor := llm.NewExtractor(provider, cfg.Extraction.Model, cfg.Extraction.MaxTokens, logger)

	opts := []Option{
		WithLogger(logger),
		WithScorer(score.NewScorer(validate.NewSourceClassifier(cfg.LinkCheck))),
	}
	if cfg.LinkCheck.Enabled {
		opts = append(opts, WithLinkChecker(validate.NewLinkChecker(cfg.LinkCheck, cfg.HTTP, logger)))
	}

	p := New(researcher, extractor, opts...)

	if cfg.Store.Enabled {
		st, err := store.Open(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("history store: %w", err)
		}
		p.recorder = StoreRecorder{Store: st}
		p.history = st
		p.closers = append(p.closers, st)
	}

	return p, nil
}

// History returns the history store opened by NewFromConfig, or nil when
// history is disabled
func (p *Pipeline) History() *store.Store {
	return p.history
}

// Close releases resources opened by NewFromConfig
func (p *Pipeline) Close() error {
	var firstErr error
	for _, c := range p.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// BuildQuery builds the research query for a company. A non-blank country
// selects the country-specific wording; both forms ask for the same fields.
func BuildQuery(company, country string) research.Query {
	company = strings.TrimSpace(company)
	country = strings.TrimSpace(country)

	var text string
	if country != "" {
		text = fmt.Sprintf("Provide the %s details specifically in %s, including registration number, primary address, "+
			"legal form, country, town, registration date, contact info, general details, UBO, directors/shareholders, "+
			"subsidiaries, parent company, and last reported revenue. Focus on the company's operations, "+
			"registration number, and registration in %s.", company, country, country)
	} else {
		text = fmt.Sprintf("Provide the %s details, including registration number, primary address, legal form, "+
			"country, town, registration date, contact info, general details, UBO, directors/shareholders, "+
			"subsidiaries, parent company, and last reported revenue. Make sure to include any company "+
			"registration or identification numbers.", company)
	}

	return research.Query{Text: text, Company: company, Country: country}
}

// Run looks up one company. It never fails: every stage failure becomes a
// notice and placeholder content, and the result always reaches StageDone.
func (p *Pipeline) Run(ctx context.Context, company, country string) (res *Result) {
	query := BuildQuery(company, country)
	res = &Result{
		ID:        uuid.NewString(),
		Company:   query.Company,
		Country:   query.Country,
		Query:     query.Text,
		Stage:     model.StageIdle,
		StartedAt: p.now().UTC(),
	}

	logger := p.logger.With(zap.String("lookup_id", res.ID), zap.String("company", res.Company))
	logger.Info("lookup started", zap.String("country", res.Country))

	formatted := false
	defer func() {
		if r := recover(); r != nil {
			metrics.StageFailures.WithLabelValues(string(res.Stage)).Inc()
			p.notify(logger, res, res.Stage, fmt.Sprintf("An error occurred: %v", r))
			p.notify(logger, res, res.Stage, RetrySuggestion)
			// a panic after formatting keeps the table already built
			if !formatted {
				res.Table = model.ErrorTable()
			}
		}

		res.Stage = model.StageDone
		res.Duration = p.now().Sub(res.StartedAt)
		metrics.RecordLookup(res.Degraded, res.Duration)

		logger.Info("lookup finished",
			zap.Bool("degraded", res.Degraded),
			zap.Int("score", res.Score.Index),
			zap.Int("notices", len(res.Notices)),
			zap.Duration("duration", res.Duration))

		p.save(ctx, logger, res)
	}()

	p.runQuery(ctx, logger, res, query)
	p.runExtraction(ctx, logger, res)
	p.runFormatting(logger, res)
	formatted = true
	res.Score = p.scorer.Calculate(res.Record, res.ReferenceList(), res.LinkChecks)

	return res
}

// runQuery runs the Querying and Splitting stages
func (p *Pipeline) runQuery(ctx context.Context, logger *zap.Logger, res *Result, q research.Query) {
	res.Stage = model.StageQuerying

	var raw string
	err := p.timed(model.StageQuerying, func() (err error) {
		raw, err = p.generator.Generate(ctx, q)
		return err
	})
	if err != nil {
		res.Narrative = ""
		res.References = NoReferencesPlaceholder
		p.notify(logger, res, model.StageQuerying, fmt.Sprintf("Error during research: %v", err))
		return
	}

	res.Stage = model.StageSplitting
	_ = p.timed(model.StageSplitting, func() error {
		res.Narrative, res.References = extract.SplitCitations(raw)
		return nil
	})

	if p.linkChecker != nil {
		res.LinkChecks = p.linkChecker.Check(ctx, extract.ParseReferences(res.References))
	}
}

// runExtraction runs the Extracting and Normalizing stages
func (p *Pipeline) runExtraction(ctx context.Context, logger *zap.Logger, res *Result) {
	res.Stage = model.StageExtracting

	var draft model.Draft
	err := p.timed(model.StageExtracting, func() (err error) {
		draft, err = p.extractor.Extract(ctx, res.Narrative)
		return err
	})

	res.Stage = model.StageNormalizing
	if err != nil {
		res.Record = normalize.Fallback()
		p.notify(logger, res, model.StageExtracting, fmt.Sprintf("Error processing company information: %v", err))
		return
	}

	_ = p.timed(model.StageNormalizing, func() error {
		res.Record, res.Coercions = normalize.Normalize(draft)
		return nil
	})

	for _, c := range res.Coercions {
		metrics.FieldCoercions.WithLabelValues(c.Field).Inc()
	}
	if len(res.Coercions) > 0 {
		logger.Debug("fields coerced", zap.Int("count", len(res.Coercions)))
	}
}

// runFormatting runs the Formatting stage
func (p *Pipeline) runFormatting(logger *zap.Logger, res *Result) {
	res.Stage = model.StageFormatting

	err := p.timed(model.StageFormatting, func() (err error) {
		res.Table, err = normalize.FormatForDisplay(&res.Record)
		return err
	})
	if err != nil {
		p.notify(logger, res, model.StageFormatting, fmt.Sprintf("Error formatting company data: %v", err))
	}
}

func (p *Pipeline) save(ctx context.Context, logger *zap.Logger, res *Result) {
	if p.recorder == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			p.notify(logger, res, model.StageDone, fmt.Sprintf("Error saving lookup history: %v", r))
		}
	}()
	if err := p.recorder.Save(ctx, res); err != nil {
		p.notify(logger, res, model.StageDone, fmt.Sprintf("Error saving lookup history: %v", err))
	}
}

func (p *Pipeline) timed(stage model.Stage, fn func() error) error {
	start := p.now()
	err := fn()
	metrics.RecordStage(string(stage), p.now().Sub(start), err != nil)
	return err
}

func (p *Pipeline) notify(logger *zap.Logger, res *Result, stage model.Stage, msg string) {
	res.Notices = append(res.Notices, model.Notice{Stage: stage, Message: msg})
	res.Degraded = true
	logger.Warn(msg, zap.String("stage", string(stage)))
}
