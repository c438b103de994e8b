package catalog

import "strings"

// trailingFillers are phrases questions commonly tack onto the entity,
// stripped repeatedly from the end before normalization.
var trailingFillers = []string{
	"have been placed", "are there", "exist", "are registered", "are available",
	"are in the store", "in the store", "in each category", "with their categories",
	"details", "profiles", "information", "models", "types",
}

// protectedPlurals are entity words kept in plural form; stripping their "s"
// would leave a phrase the mapping no longer knows.
var protectedPlurals = map[string]bool{
	"orders":        true,
	"users":         true,
	"customers":     true,
	"employees":     true,
	"categories":    true,
	"subcategories": true,
	"purchases":     true,
	"companies":     true,
	"settings":      true,
	"products":      true,
}

// pluralOverrides force specific singulars to their canonical plural form.
var pluralOverrides = map[string]string{
	"product":     "products",
	"order":       "orders",
	"category":    "categories",
	"subcategory": "subcategories",
	"purchase":    "purchases",
	"user":        "users",
	"company":     "companies",
}

// Normalizer canonicalizes free-text entity phrases against a Mapping.
type Normalizer struct {
	mapping *Mapping
}

// NewNormalizer creates a normalizer over the given mapping.
func NewNormalizer(mapping *Mapping) *Normalizer {
	return &Normalizer{mapping: mapping}
}

// Clean lowercases, strips filler phrases and punctuation, and applies
// morphological normalization. Deterministic; no store access.
func (n *Normalizer) Clean(phrase string) string {
	entity := strings.ToLower(strings.TrimSpace(phrase))

	for stripped := true; stripped; {
		stripped = false
		for _, filler := range trailingFillers {
			if strings.HasSuffix(entity, filler) {
				entity = strings.TrimSpace(entity[:len(entity)-len(filler)])
				stripped = true
			}
		}
	}

	entity = strings.Trim(entity, " ?.")

	if strings.HasSuffix(entity, "ies") {
		entity = entity[:len(entity)-3] + "y" // categories -> category
	} else if strings.HasSuffix(entity, "s") && !strings.HasSuffix(entity, "ss") {
		if !protectedPlurals[entity] {
			entity = entity[:len(entity)-1]
		}
	}

	if canonical, ok := pluralOverrides[entity]; ok {
		entity = canonical
	}

	return entity
}

// Normalize cleans a phrase and resolves it to a category. The second return
// is false when no known synonym matches, even after the add/remove "s" retry.
func (n *Normalizer) Normalize(phrase string) (Category, bool) {
	return n.mapping.Resolve(n.Clean(phrase))
}
