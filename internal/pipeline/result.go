package pipeline

import (
	"context"
	"time"

	"github.com/ppiankov/dossier/internal/extract"
	"github.com/ppiankov/dossier/internal/model"
	"github.com/ppiankov/dossier/internal/normalize"
	"github.com/ppiankov/dossier/internal/score"
	"github.com/ppiankov/dossier/internal/store"
	"github.com/ppiankov/dossier/internal/validate"
)

// Result is the outcome of one company lookup
type Result struct {
	ID         string               `json:"id"`
	Company    string               `json:"company"`
	Country    string               `json:"country,omitempty"`
	Query      string               `json:"query"`
	Narrative  string               `json:"narrative"`
	References string               `json:"references"`
	Record     model.CompanyRecord  `json:"record"`
	Table      model.DisplayTable   `json:"table"`
	Score      score.Score          `json:"score"`
	Coercions  []normalize.Coercion `json:"coercions,omitempty"`
	LinkChecks []validate.LinkCheck `json:"link_checks,omitempty"`
	Notices    []model.Notice       `json:"notices,omitempty"`
	Stage      model.Stage          `json:"stage"`
	Degraded   bool                 `json:"degraded"`
	StartedAt  time.Time            `json:"started_at"`
	Duration   time.Duration        `json:"duration"`
}

// ReferenceList parses References into entries
func (r *Result) ReferenceList() []extract.Reference {
	return extract.ParseReferences(r.References)
}

// Lookup converts the result to its stored form
func (r *Result) Lookup() store.Lookup {
	return store.Lookup{
		ID:         r.ID,
		Company:    r.Company,
		Country:    r.Country,
		Query:      r.Query,
		Narrative:  r.Narrative,
		References: r.References,
		Record:     r.Record,
		Table:      r.Table,
		Notices:    r.Notices,
		Degraded:   r.Degraded,
		Score:      r.Score.Index,
		Confidence: r.Score.Confidence,
		CreatedAt:  r.StartedAt,
		Duration:   r.Duration,
	}
}

// FromLookup rebuilds a finished result from history
func FromLookup(l store.Lookup) *Result {
	return &Result{
		ID:         l.ID,
		Company:    l.Company,
		Country:    l.Country,
		Query:      l.Query,
		Narrative:  l.Narrative,
		References: l.References,
		Record:     l.Record,
		Table:      l.Table,
		Notices:    l.Notices,
		Score:      score.Score{Index: l.Score, Confidence: l.Confidence},
		Stage:      model.StageDone,
		Degraded:   l.Degraded,
		StartedAt:  l.CreatedAt,
		Duration:   l.Duration,
	}
}

// StoreRecorder saves results to the history store
type StoreRecorder struct {
	Store *store.Store
}

// Save implements Recorder
func (s StoreRecorder) Save(ctx context.Context, res *Result) error {
	return s.Store.Save(ctx, res.Lookup())
}
