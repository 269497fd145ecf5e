// Package validate checks the reference links of a research report.
package validate

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/dossier/internal/extract"
	"github.com/ppiankov/dossier/internal/metrics"
	"github.com/ppiankov/dossier/internal/model"
	"github.com/ppiankov/dossier/internal/util"
)

const checkMaxRetries = 3

// checkSleepFunc waits between retries (injectable for tests)
var checkSleepFunc = func(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// LinkCheck is the outcome of checking one reference URL
type LinkCheck struct {
	URL         string `json:"url"`
	Label       string `json:"label,omitempty"`
	Accessible  bool   `json:"accessible"`
	Dead        bool   `json:"dead"`
	StatusCode  int    `json:"status_code,omitempty"`
	RedirectURL string `json:"redirect_url,omitempty"`
	Tier        Tier   `json:"tier"`
	Error       string `json:"error,omitempty"`
}

// LinkChecker checks reference links concurrently
type LinkChecker struct {
	httpClient *http.Client
	maxWorkers int
	userAgent  string
	classifier *SourceClassifier
	logger     *zap.Logger
}

// NewLinkChecker creates a link checker
func NewLinkChecker(cfg model.LinkCheckConfig, httpCfg model.HTTPConfig, logger *zap.Logger) *LinkChecker {
	maxWorkers := cfg.Workers
	if maxWorkers <= 0 {
		maxWorkers = 10
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &LinkChecker{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: util.NewTransport(httpCfg.HTTPProxy, httpCfg.HTTPSProxy, httpCfg.NoProxy),
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		maxWorkers: maxWorkers,
		userAgent:  httpCfg.UserAgent,
		classifier: NewSourceClassifier(cfg),
		logger:     logger,
	}
}

// Check checks every reference that carries a URL. Results follow reference
// order; a URL cited more than once is checked once.
func (c *LinkChecker) Check(ctx context.Context, refs []extract.Reference) []LinkCheck {
	var targets []extract.Reference
	seen := make(map[string]bool)
	for _, ref := range refs {
		if ref.URL == "" || seen[ref.URL] {
			continue
		}
		seen[ref.URL] = true
		targets = append(targets, ref)
	}

	if len(targets) == 0 {
		return []LinkCheck{}
	}

	results := make([]LinkCheck, len(targets))
	var wg sync.WaitGroup

	// Create semaphore to limit concurrent requests
	semaphore := make(chan struct{}, c.maxWorkers)

	for i, ref := range targets {
		wg.Add(1)
		go func(idx int, r extract.Reference) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				results[idx] = LinkCheck{
					URL:   r.URL,
					Label: r.Label,
					Tier:  c.classifier.Classify(r.URL),
					Error: "context cancelled",
				}
				return
			case semaphore <- struct{}{}:
			}
			defer func() { <-semaphore }()

			results[idx] = c.checkWithRetry(ctx, r)
		}(i, ref)
	}

	wg.Wait()

	for _, r := range results {
		metrics.LinkChecks.WithLabelValues(r.status()).Inc()
	}

	return results
}

func (r LinkCheck) status() string {
	switch {
	case r.Accessible:
		return "accessible"
	case r.Dead:
		return "dead"
	default:
		return "unreachable"
	}
}

// checkSingle sends a HEAD request, falling back to GET for servers that
// refuse HEAD
func (c *LinkChecker) checkSingle(ctx context.Context, ref extract.Reference) LinkCheck {
	result := LinkCheck{
		URL:   ref.URL,
		Label: ref.Label,
		Tier:  c.classifier.Classify(ref.URL),
	}

	resp, err := c.do(ctx, http.MethodHead, ref.URL)
	if err == nil && (resp.StatusCode == http.StatusMethodNotAllowed || resp.StatusCode == http.StatusNotImplemented) {
		_ = resp.Body.Close()
		resp, err = c.do(ctx, http.MethodGet, ref.URL)
	}
	if err != nil {
		result.Error = err.Error()
		result.Dead = !isRetryableNetworkError(result.Error)
		return result
	}
	defer func() { _ = resp.Body.Close() }()

	result.StatusCode = resp.StatusCode

	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		result.Accessible = true
	} else if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		result.Dead = true
	}

	if final := resp.Request.URL.String(); final != ref.URL {
		result.RedirectURL = final
	}

	return result
}

func (c *LinkChecker) do(ctx context.Context, method, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// checkWithRetry retries transient failures with exponential backoff
func (c *LinkChecker) checkWithRetry(ctx context.Context, ref extract.Reference) LinkCheck {
	var result LinkCheck
	for attempt := 0; attempt < checkMaxRetries; attempt++ {
		result = c.checkSingle(ctx, ref)
		if !isRetryable(result) || ctx.Err() != nil {
			return result
		}
		if attempt < checkMaxRetries-1 {
			backoff := time.Duration(1<<uint(attempt)) * time.Second
			c.logger.Debug("retrying link check",
				zap.String("url", ref.URL), zap.Int("attempt", attempt+1), zap.Duration("backoff", backoff))
			checkSleepFunc(ctx, backoff)
		}
	}
	return result
}

// isRetryable returns true for results that indicate transient failures
func isRetryable(result LinkCheck) bool {
	if result.StatusCode >= 500 && result.StatusCode < 600 {
		return true
	}
	if result.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return result.Error != "" && isRetryableNetworkError(result.Error)
}

// isRetryableNetworkError checks error strings for transient network failures
func isRetryableNetworkError(errMsg string) bool {
	s := strings.ToLower(errMsg)
	return strings.Contains(s, "timeout") ||
		strings.Contains(s, "connection refused") ||
		strings.Contains(s, "connection reset")
}
