package reconcile

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/kjannette/valuator-backend/internal/models"
)

// Source identifies which upstream snapshot a candidate field is read from.
type Source int

const (
	SourceProfile Source = iota
	SourceMetrics
	SourceRatios
	SourceQuote
	SourceIncome // most recent income statement
	SourceGrowth // most recent income-statement growth row
)

func (s Source) String() string {
	switch s {
	case SourceProfile:
		return "profile"
	case SourceMetrics:
		return "metrics"
	case SourceRatios:
		return "ratios"
	case SourceQuote:
		return "quote"
	case SourceIncome:
		return "income"
	case SourceGrowth:
		return "growth"
	}
	return "unknown"
}

// Candidate is one upstream field that may carry a canonical value.
type Candidate struct {
	Source Source
	Key    string
}

// sources holds the first record of every snapshot, keyed by Source.
type sources map[Source]map[string]any

func newSources(s models.Snapshots) sources {
	return sources{
		SourceProfile: s.Profile.First(),
		SourceMetrics: s.Metrics.First(),
		SourceRatios:  s.Ratios.First(),
		SourceQuote:   s.Quote.First(),
		SourceIncome:  s.Income.First(),
		SourceGrowth:  s.Growth.First(),
	}
}

// NumberResolver declares the priority order for one numeric canonical field.
type NumberResolver struct {
	Field      string
	Candidates []Candidate
}

// Resolve returns the first finite candidate, or nil when none is present.
func (r NumberResolver) Resolve(src sources) *float64 {
	for _, c := range r.Candidates {
		if v, ok := finite(src[c.Source][c.Key]); ok {
			return &v
		}
	}
	return nil
}

// ResolveOr is Resolve with a default for required fields.
func (r NumberResolver) ResolveOr(src sources, fallback float64) float64 {
	if v := r.Resolve(src); v != nil {
		return *v
	}
	return fallback
}

// resolveRow applies the resolver to a single record of the given source,
// used for rows other than the first (historical income statements).
func (r NumberResolver) resolveRow(source Source, row map[string]any) *float64 {
	return r.Resolve(sources{source: row})
}

// TextResolver declares the priority order for one string field.
type TextResolver struct {
	Field      string
	Candidates []Candidate
}

// Resolve returns the first non-blank string candidate, or "".
func (r TextResolver) Resolve(src sources) string {
	for _, c := range r.Candidates {
		if s, ok := src[c.Source][c.Key].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// finite reports whether v is a usable number. Strings and other types are
// never coerced; NaN and ±Inf count as absent; -0 becomes 0.
func finite(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if f == 0 {
		f = 0
	}
	return f, true
}
