// Package intent classifies questions into structured query intents.
package intent

import (
	"regexp"
	"strings"

	"github.com/samyotech/catalog-assistant/internal/catalog"
)

// Kind tags the classified purpose of a question.
type Kind string

const (
	KindNone                    Kind = "none"
	KindCount                   Kind = "count"
	KindList                    Kind = "list"
	KindOrderByID               Kind = "order_by_id"
	KindOrdersByDate            Kind = "orders_by_date"
	KindOrdersByDateRange       Kind = "orders_by_date_range"
	KindOrdersByUser            Kind = "orders_by_user"
	KindSubcategoriesByCategory Kind = "subcategories_by_category"
)

// Intent is the classified purpose of a question plus its extracted
// parameters. Constructed once per question; immutable afterwards.
type Intent struct {
	Kind Kind
	// Entity is the normalized entity phrase (count/list) or category name
	// (subcategories).
	Entity string
	// User is the free-text user name or email fragment (orders by user).
	User string
	// OrderID is the raw order identifier (order by id).
	OrderID string
	// Date is an ISO calendar date literal (orders by date).
	Date string
	// Start and End are ISO calendar date literals (orders by date range).
	Start string
	End   string
}

// Structured reports whether the intent maps to a structured query.
func (i Intent) Structured() bool {
	return i.Kind != KindNone
}

type rule struct {
	pattern *regexp.Regexp
	build   func(m []string) Intent
}

// Classifier applies an ordered rule list to questions, first match wins.
// Relational and parameterized rules precede the generic count/list rules so
// a generic pattern never swallows a more specific one.
type Classifier struct {
	normalizer *catalog.Normalizer
	rules      []rule
}

// NewClassifier creates a classifier backed by the given normalizer.
func NewClassifier(normalizer *catalog.Normalizer) *Classifier {
	c := &Classifier{normalizer: normalizer}

	entity := func(phrase string) string {
		return c.normalizer.Clean(phrase)
	}

	c.rules = []rule{
		{
			pattern: regexp.MustCompile(`subcategories.*under (?:the )?(.+?) categor`),
			build: func(m []string) Intent {
				return Intent{Kind: KindSubcategoriesByCategory, Entity: entity(m[1])}
			},
		},
		{
			pattern: regexp.MustCompile(`orders? (?:for|of|by) user (.+)`),
			build: func(m []string) Intent {
				return Intent{Kind: KindOrdersByUser, User: strings.TrimSpace(m[1])}
			},
		},
		{
			pattern: regexp.MustCompile(`order details? (?:for|of)? ?order id ([\w-]+)`),
			build: func(m []string) Intent {
				return Intent{Kind: KindOrderByID, OrderID: strings.TrimSpace(m[1])}
			},
		},
		{
			pattern: regexp.MustCompile(`orders? (?:on|for|placed on) (\d{4}-\d{2}-\d{2})`),
			build: func(m []string) Intent {
				return Intent{Kind: KindOrdersByDate, Date: m[1]}
			},
		},
		{
			pattern: regexp.MustCompile(`orders? (?:between|from) (\d{4}-\d{2}-\d{2}) (?:and|to) (\d{4}-\d{2}-\d{2})`),
			build: func(m []string) Intent {
				return Intent{Kind: KindOrdersByDateRange, Start: m[1], End: m[2]}
			},
		},
		// Count patterns. The entity-bearing group is always last.
		{
			pattern: regexp.MustCompile(`how many (.+?)\?`),
			build: func(m []string) Intent {
				return Intent{Kind: KindCount, Entity: entity(m[1])}
			},
		},
		{
			pattern: regexp.MustCompile(`count (?:all )?(.+?)$`),
			build: func(m []string) Intent {
				return Intent{Kind: KindCount, Entity: entity(m[1])}
			},
		},
		{
			pattern: regexp.MustCompile(`what(?:'s| is) the total number of (.+?)\?`),
			build: func(m []string) Intent {
				return Intent{Kind: KindCount, Entity: entity(m[1])}
			},
		},
		// List patterns.
		{
			pattern: regexp.MustCompile(`list (?:all )?(.+?)$`),
			build: func(m []string) Intent {
				return Intent{Kind: KindList, Entity: entity(m[1])}
			},
		},
		{
			pattern: regexp.MustCompile(`show me (?:all )?(.+?)$`),
			build: func(m []string) Intent {
				return Intent{Kind: KindList, Entity: entity(m[1])}
			},
		},
		{
			pattern: regexp.MustCompile(`display (?:all )?(.+?)$`),
			build: func(m []string) Intent {
				return Intent{Kind: KindList, Entity: entity(m[1])}
			},
		},
		{
			pattern: regexp.MustCompile(`get (?:all )?(.+?)$`),
			build: func(m []string) Intent {
				return Intent{Kind: KindList, Entity: entity(m[1])}
			},
		},
	}

	return c
}

// Classify matches the question against the rule list. Unmatched questions
// yield KindNone; there is no error path.
func (c *Classifier) Classify(question string) Intent {
	q := strings.ToLower(strings.TrimSpace(question))

	for _, r := range c.rules {
		if m := r.pattern.FindStringSubmatch(q); m != nil {
			return r.build(m)
		}
	}

	return Intent{Kind: KindNone}
}
