// Package catalog maps free-text entity phrases onto the fixed set of record
// categories backing the store.
package catalog

// Category names a record collection in the store.
type Category string

// Mapping resolves entity phrases to categories. It is plain data so new
// categories can be added without touching classifier logic.
type Mapping struct {
	synonyms map[string]Category
	// keywords preserves a stable scan order for loose containment detection.
	keywords []string
}

// NewMapping builds a mapping from phrase→category pairs. Scan order for
// keyword detection follows the order pairs are given.
func NewMapping(pairs []MappingEntry) *Mapping {
	m := &Mapping{
		synonyms: make(map[string]Category, len(pairs)),
		keywords: make([]string, 0, len(pairs)),
	}
	for _, p := range pairs {
		if _, dup := m.synonyms[p.Phrase]; !dup {
			m.keywords = append(m.keywords, p.Phrase)
		}
		m.synonyms[p.Phrase] = p.Category
	}
	return m
}

// MappingEntry is one phrase→category pair.
type MappingEntry struct {
	Phrase   string
	Category Category
}

// DefaultMapping returns the pet-store synonym table. Multi-word domain
// synonyms ("pet type") sit alongside singular and plural surface forms.
func DefaultMapping() *Mapping {
	return NewMapping([]MappingEntry{
		{"product", "products"},
		{"products", "products"},
		{"customer", "customers"},
		{"customers", "customers"},
		{"employee", "employees"},
		{"employees", "employees"},
		{"order", "orders"},
		{"orders", "orders"},
		{"category", "categories"},
		{"categories", "categories"},
		{"subcategory", "subcategories"},
		{"subcategories", "subcategories"},
		{"purchase", "purchases"},
		{"purchases", "purchases"},
		{"user", "users"},
		{"users", "users"},
		{"company", "companies"},
		{"companies", "companies"},
		{"product type", "additemmodels"},
		{"product types", "additemmodels"},
		{"pet type", "pettypemodels"},
		{"pet types", "pettypemodels"},
		{"package model", "packagemodels"},
		{"package models", "packagemodels"},
		{"registration model", "registrationmodels"},
		{"registration models", "registrationmodels"},
		{"setting", "settings"},
		{"settings", "settings"},
	})
}

// Lookup resolves an exact phrase.
func (m *Mapping) Lookup(phrase string) (Category, bool) {
	c, ok := m.synonyms[phrase]
	return c, ok
}

// Resolve resolves a cleaned phrase, retrying once with the trailing "s"
// toggled before giving up.
func (m *Mapping) Resolve(phrase string) (Category, bool) {
	if c, ok := m.synonyms[phrase]; ok {
		return c, true
	}
	if len(phrase) > 1 && phrase[len(phrase)-1] == 's' {
		if c, ok := m.synonyms[phrase[:len(phrase)-1]]; ok {
			return c, true
		}
	} else if phrase != "" {
		if c, ok := m.synonyms[phrase+"s"]; ok {
			return c, true
		}
	}
	return "", false
}

// Keywords returns the synonym phrases in stable scan order.
func (m *Mapping) Keywords() []string {
	return m.keywords
}
