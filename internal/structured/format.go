// Package structured executes pattern-matched intents as deterministic
// record-store lookups and renders the results as answer text.
package structured

import (
	"fmt"
	"strings"

	"github.com/samyotech/catalog-assistant/internal/store"
)

// fieldOr returns the named field rendered as text, or a fallback.
func fieldOr(r store.Record, key, fallback string) string {
	if v, ok := r.Get(key); ok && v != nil {
		return fmt.Sprintf("%v", v)
	}
	return fallback
}

// FormatProduct renders the key commercial fields of a product record.
func FormatProduct(r store.Record) string {
	return fmt.Sprintf("Name: %s, Price: %s, Original Price: %s, Discount: %s, Quantity: %s",
		fieldOr(r, "productName", "N/A"),
		fieldOr(r, "price", "N/A"),
		fieldOr(r, "originalPrice", "N/A"),
		fieldOr(r, "discount", "N/A"),
		fieldOr(r, "quantity", "N/A"))
}

// FormatOrder renders an order record. The user name is preferred over the
// raw user id, and legacy field names (total, status) are tolerated.
func FormatOrder(r store.Record) string {
	user := "N/A"
	if u, ok := r.Get("user"); ok {
		if m, ok := u.(map[string]interface{}); ok {
			if name, ok := m["name"]; ok && name != nil {
				user = fmt.Sprintf("%v", name)
			}
		}
	}
	if user == "N/A" {
		user = fieldOr(r, "userId", "N/A")
	}

	total := fieldOr(r, "amount", "")
	if total == "" {
		total = fieldOr(r, "total", "N/A")
	}

	status := fieldOr(r, "orderStatus", "")
	if status == "" {
		status = fieldOr(r, "status", "N/A")
	}

	return fmt.Sprintf("OrderID: %s, User: %s, Date: %s, Total: %s, Status: %s",
		fieldOr(r, "_id", "N/A"), user, fieldOr(r, "createdAt", "N/A"), total, status)
}

// genericNameKeys are tried in order for a record's display field.
var genericNameKeys = []string{"name", "productName", "title", "username", "email"}

// FormatGeneric renders a record from any other category: the first known
// name-like field, or a summary of the first three stored fields.
func FormatGeneric(r store.Record) string {
	for _, key := range genericNameKeys {
		if v, ok := r.Get(key); ok && v != nil {
			return fmt.Sprintf("%s: %v", capitalize(key), v)
		}
	}

	parts := make([]string, 0, 3)
	for _, key := range r.Order {
		if len(parts) == 3 {
			break
		}
		parts = append(parts, fmt.Sprintf("%s: %v", key, r.Fields[key]))
	}
	return strings.Join(parts, ", ")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
