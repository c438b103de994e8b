package retrieval

import (
	"regexp"
	"strings"
	"time"

	"github.com/samyotech/catalog-assistant/internal/catalog"
)

// TemporalPredicate decides whether a record creation timestamp matches the
// time window implied by the question. Candidates without a usable timestamp
// are excluded before the predicate is consulted.
type TemporalPredicate func(t time.Time) bool

// Plan describes how to retrieve for a question: an optional target category,
// an optional temporal window, and advisory output hints. The hints annotate
// the plan but do not alter retrieval or synthesis.
type Plan struct {
	Category catalog.Category // empty means search every index
	Temporal TemporalPredicate
	Format   string
	Fields   []string
}

// dateLiterals are the explicit date formats recognized in questions.
var dateLiterals = []struct {
	pattern *regexp.Regexp
	layout  string
}{
	{regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`), "2006-01-02"},
	{regexp.MustCompile(`\b(\d{2}/\d{2}/\d{4})\b`), "02/01/2006"},
	{regexp.MustCompile(`\b(\d{2}-\d{2}-\d{4})\b`), "02-01-2006"},
}

// formatKeywords are scanned in order; first hit wins.
var formatKeywords = []string{"table", "list", "json", "text"}

// fieldKeywords are the record fields callers commonly ask for by name.
var fieldKeywords = []string{
	"name", "price", "discount", "quantity", "status", "email", "amount", "date", "title",
}

// Planner derives a retrieval plan from a question. Category detection is a
// loose keyword-containment scan over the synonym table, deliberately
// independent of the entity normalizer.
type Planner struct {
	mapping *catalog.Mapping
	now     func() time.Time
}

// NewPlanner creates a planner over the given category mapping.
func NewPlanner(mapping *catalog.Mapping) *Planner {
	return &Planner{
		mapping: mapping,
		now:     time.Now,
	}
}

// WithClock overrides the planner's clock. Intended for tests.
func (p *Planner) WithClock(now func() time.Time) *Planner {
	p.now = now
	return p
}

// Plan inspects the question and returns the retrieval plan.
func (p *Planner) Plan(question string) Plan {
	q := strings.ToLower(question)

	return Plan{
		Category: p.detectCategory(q),
		Temporal: p.detectTemporal(q),
		Format:   detectFormat(q),
		Fields:   detectFields(q),
	}
}

// detectCategory scans the synonym phrases in stable order and returns the
// category of the first phrase contained in the question.
func (p *Planner) detectCategory(q string) catalog.Category {
	for _, keyword := range p.mapping.Keywords() {
		if strings.Contains(q, keyword) {
			if category, ok := p.mapping.Lookup(keyword); ok {
				return category
			}
		}
	}
	return ""
}

func (p *Planner) detectTemporal(q string) TemporalPredicate {
	now := p.now()
	today := dateOf(now)

	switch {
	case strings.Contains(q, "today"):
		return func(t time.Time) bool {
			return dateOf(t).Equal(today)
		}
	case strings.Contains(q, "week"):
		// Week runs Monday through today, inclusive.
		offset := (int(now.Weekday()) + 6) % 7
		start := today.AddDate(0, 0, -offset)
		return func(t time.Time) bool {
			d := dateOf(t)
			return !d.Before(start) && !d.After(today)
		}
	case strings.Contains(q, "month"):
		return func(t time.Time) bool {
			return t.Year() == now.Year() && t.Month() == now.Month()
		}
	}

	for _, lit := range dateLiterals {
		if m := lit.pattern.FindStringSubmatch(q); m != nil {
			if day, err := time.Parse(lit.layout, m[1]); err == nil {
				target := dateOf(day)
				return func(t time.Time) bool {
					return dateOf(t).Equal(target)
				}
			}
		}
	}

	return nil
}

func detectFormat(q string) string {
	for _, kw := range formatKeywords {
		if strings.Contains(q, kw) {
			return kw
		}
	}
	return ""
}

func detectFields(q string) []string {
	var fields []string
	for _, kw := range fieldKeywords {
		if strings.Contains(q, kw) {
			fields = append(fields, kw)
		}
	}
	return fields
}

func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
