package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

// Target is one company to look up
type Target struct {
	Company string `json:"company"`
	Country string `json:"country,omitempty"`
}

// String renders the target in batch file form
func (t Target) String() string {
	if t.Country == "" {
		return t.Company
	}
	return t.Company + " | " + t.Country
}

// Runner performs one company lookup. Lookups report problems inside R
// rather than as errors.
type Runner[R any] interface {
	Run(ctx context.Context, company, country string) R
}

// LookupJob runs one lookup
type LookupJob[R any] struct {
	Index  int
	Target Target
	Runner Runner[R]
}

// Execute executes the lookup job
func (j *LookupJob[R]) Execute(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return &LookupResult[R]{Index: j.Index, Target: j.Target, Error: err}
	}
	return &LookupResult[R]{
		Index:  j.Index,
		Target: j.Target,
		Value:  j.Runner.Run(ctx, j.Target.Company, j.Target.Country),
	}
}

// LookupResult is the outcome of one lookup job
type LookupResult[R any] struct {
	Index  int
	Target Target
	Value  R
	Error  error // set only when the lookup never ran
}

// GetError returns the error from the lookup result
func (r *LookupResult[R]) GetError() error {
	return r.Error
}

// BatchProcessor looks up many companies concurrently
type BatchProcessor[R any] struct {
	runner      Runner[R]
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor[R any](runner Runner[R], concurrency int) *BatchProcessor[R] {
	return &BatchProcessor[R]{
		runner:      runner,
		concurrency: concurrency,
	}
}

// ProcessTargets runs all lookups and returns results in input order.
// Targets not started before ctx is cancelled carry ctx's error.
func (b *BatchProcessor[R]) ProcessTargets(ctx context.Context, targets []Target) []*LookupResult[R] {
	if len(targets) == 0 {
		return []*LookupResult[R]{}
	}

	pool := NewPoolWithContext(ctx, b.concurrency)
	pool.Start()

	go func() {
		defer pool.Close()
		for i, target := range targets {
			if !pool.Submit(&LookupJob[R]{Index: i, Target: target, Runner: b.runner}) {
				return
			}
		}
	}()

	ordered := make([]*LookupResult[R], len(targets))
	for r := range pool.Results() {
		lr := r.(*LookupResult[R])
		ordered[lr.Index] = lr
	}
	pool.Shutdown()

	for i, target := range targets {
		if ordered[i] == nil {
			err := ctx.Err()
			if err == nil {
				err = context.Canceled
			}
			ordered[i] = &LookupResult[R]{Index: i, Target: target, Error: err}
		}
	}

	return ordered
}

// ProcessFile reads targets from a file and looks them up concurrently
func (b *BatchProcessor[R]) ProcessFile(ctx context.Context, filePath string) ([]*LookupResult[R], error) {
	targets, err := ReadTargetsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read targets: %w", err)
	}

	return b.ProcessTargets(ctx, targets), nil
}

// ParseTarget parses one "Company | Country" line. The country is optional.
func ParseTarget(line string) (Target, bool) {
	company, country, _ := strings.Cut(line, "|")
	t := Target{
		Company: strings.TrimSpace(company),
		Country: strings.TrimSpace(country),
	}
	return t, t.Company != ""
}

// ReadTargetsFromFile reads one target per line. Blank lines and lines
// starting with '#' are skipped; repeated targets are dropped.
func ReadTargetsFromFile(filePath string) ([]Target, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var targets []Target
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		target, ok := ParseTarget(line)
		if !ok {
			continue
		}

		key := strings.ToLower(target.String())
		if !seen[key] {
			seen[key] = true
			targets = append(targets, target)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return targets, nil
}
