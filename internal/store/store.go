// Package store defines the read contract against the business record store.
// The assistant only reads; writes belong to the storefront application.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates a lookup matched no record.
var ErrNotFound = errors.New("store: record not found")

// Record is one structured item from a backing collection. Fields preserves
// the stored values, Order the field order as stored, so generic formatting
// stays deterministic.
type Record struct {
	ID     string
	Fields map[string]interface{}
	Order  []string
}

// Get returns a field value by name.
func (r Record) Get(key string) (interface{}, bool) {
	v, ok := r.Fields[key]
	return v, ok
}

// CreatedAt returns the record creation timestamp when present and parsable.
func (r Record) CreatedAt() (time.Time, bool) {
	v, ok := r.Fields["createdAt"]
	if !ok {
		return time.Time{}, false
	}
	return ParseTimestamp(v)
}

// ParseTimestamp coerces the common stored timestamp shapes to time.Time.
func ParseTimestamp(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if ts, err := time.Parse(layout, t); err == nil {
				return ts, true
			}
		}
	case int64:
		return time.UnixMilli(t), true
	}
	return time.Time{}, false
}

// Reference is an equality filter on a foreign-key field.
type Reference struct {
	Field string
	ID    string
}

// TimeRange is an inclusive range filter on the creation timestamp.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// Filter describes the lookups the assistant needs. Zero value matches all
// records of a collection. At most one of the selective fields is expected
// to be set per query.
type Filter struct {
	// NameEquals matches records whose "name" equals the value, case-insensitively.
	NameEquals string
	// NameOrEmailContains matches records whose "name" or "email" contains the
	// value as a case-insensitive substring.
	NameOrEmailContains string
	// Reference matches records whose named field equals the referenced id.
	Reference *Reference
	// ID matches the record identifier, tolerating both typed and raw string ids.
	ID string
	// CreatedBetween bounds the creation timestamp inclusively.
	CreatedBetween *TimeRange
}

// Reader is the read-only record store contract.
type Reader interface {
	// ListCategories returns the names of all queryable record collections.
	ListCategories(ctx context.Context) ([]string, error)
	// Count returns the number of records in a collection.
	Count(ctx context.Context, category string) (int64, error)
	// Find returns all records matching the filter.
	Find(ctx context.Context, category string, f Filter) ([]Record, error)
	// FindOne returns the first record matching the filter, or ErrNotFound.
	FindOne(ctx context.Context, category string, f Filter) (*Record, error)
}
