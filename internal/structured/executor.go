package structured

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samyotech/catalog-assistant/internal/catalog"
	"github.com/samyotech/catalog-assistant/internal/intent"
	"github.com/samyotech/catalog-assistant/internal/observability"
	"github.com/samyotech/catalog-assistant/internal/store"
)

// listPreviewLimit caps how many records a list answer renders before
// summarizing the remainder.
const listPreviewLimit = 10

// Executor runs structured intents against the record store. Domain
// conditions (nothing found, bad parameter, unknown entity) become
// user-facing text; only collaborator failures surface as errors.
type Executor struct {
	logger  *observability.Logger
	reader  store.Reader
	mapping *catalog.Mapping
}

// NewExecutor creates a structured query executor.
func NewExecutor(logger *observability.Logger, reader store.Reader, mapping *catalog.Mapping) *Executor {
	return &Executor{
		logger:  logger.WithComponent("structured"),
		reader:  reader,
		mapping: mapping,
	}
}

// Execute answers a structured intent. The returned error is reserved for
// record-store failures; every domain outcome is a message string.
func (e *Executor) Execute(ctx context.Context, it intent.Intent) (string, error) {
	e.logger.Debug().
		Str("intent", string(it.Kind)).
		Str("entity", it.Entity).
		Msg("executing structured query")

	switch it.Kind {
	case intent.KindSubcategoriesByCategory:
		return e.subcategoriesByCategory(ctx, it.Entity)
	case intent.KindOrdersByUser:
		return e.ordersByUser(ctx, it.User)
	case intent.KindOrderByID:
		return e.orderByID(ctx, it.OrderID)
	case intent.KindOrdersByDate:
		return e.ordersByDate(ctx, it.Date)
	case intent.KindOrdersByDateRange:
		return e.ordersByDateRange(ctx, it.Start, it.End)
	case intent.KindCount:
		return e.count(ctx, it.Entity)
	case intent.KindList:
		return e.list(ctx, it.Entity)
	default:
		return "Sorry, I can't handle that type of query yet.", nil
	}
}

func (e *Executor) subcategoriesByCategory(ctx context.Context, name string) (string, error) {
	cat, err := e.reader.FindOne(ctx, "categories", store.Filter{NameEquals: name})
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Sprintf("No category found with name '%s'.", name), nil
	}
	if err != nil {
		return "", fmt.Errorf("find category: %w", err)
	}

	subcats, err := e.reader.Find(ctx, "subcategories", store.Filter{
		Reference: &store.Reference{Field: "categoryId", ID: cat.ID},
	})
	if err != nil {
		return "", fmt.Errorf("find subcategories: %w", err)
	}
	if len(subcats) == 0 {
		return fmt.Sprintf("No subcategories found under '%s'.", name), nil
	}

	lines := make([]string, len(subcats))
	for i, sc := range subcats {
		lines[i] = fmt.Sprintf("%d. %s", i+1, fieldOr(sc, "name", "N/A"))
	}
	return fmt.Sprintf("Subcategories under '%s' category:\n%s", name, strings.Join(lines, "\n")), nil
}

func (e *Executor) ordersByUser(ctx context.Context, userText string) (string, error) {
	user, err := e.reader.FindOne(ctx, "users", store.Filter{NameOrEmailContains: userText})
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Sprintf("No user found matching '%s'.", userText), nil
	}
	if err != nil {
		return "", fmt.Errorf("find user: %w", err)
	}

	orders, err := e.reader.Find(ctx, "orders", store.Filter{
		Reference: &store.Reference{Field: "userId", ID: user.ID},
	})
	if err != nil {
		return "", fmt.Errorf("find orders: %w", err)
	}
	if len(orders) == 0 {
		return fmt.Sprintf("No orders found for user '%s'.", userText), nil
	}

	return fmt.Sprintf("Orders for user '%s':\n%s", userText, numberedOrders(orders)), nil
}

func (e *Executor) orderByID(ctx context.Context, id string) (string, error) {
	order, err := e.reader.FindOne(ctx, "orders", store.Filter{ID: id})
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Sprintf("No order found with ID '%s'.", id), nil
	}
	if err != nil {
		return "", fmt.Errorf("find order: %w", err)
	}
	return "Order details:\n" + FormatOrder(*order), nil
}

func (e *Executor) ordersByDate(ctx context.Context, date string) (string, error) {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return "Invalid date format. Use YYYY-MM-DD.", nil
	}

	// Single-date queries span the whole calendar day.
	orders, err := e.reader.Find(ctx, "orders", store.Filter{
		CreatedBetween: &store.TimeRange{
			From: day,
			To:   day.Add(24*time.Hour - time.Millisecond),
		},
	})
	if err != nil {
		return "", fmt.Errorf("find orders by date: %w", err)
	}
	if len(orders) == 0 {
		return fmt.Sprintf("No orders found on %s.", date), nil
	}

	return fmt.Sprintf("Orders on %s:\n%s", date, numberedOrders(orders)), nil
}

func (e *Executor) ordersByDateRange(ctx context.Context, start, end string) (string, error) {
	from, err := time.Parse("2006-01-02", start)
	if err != nil {
		return "Invalid date format. Use YYYY-MM-DD.", nil
	}
	to, err := time.Parse("2006-01-02", end)
	if err != nil {
		return "Invalid date format. Use YYYY-MM-DD.", nil
	}

	// The end bound is the literal end date at midnight; unlike single-date
	// queries, end-of-day is not added. Known discrepancy, kept as-is.
	orders, err := e.reader.Find(ctx, "orders", store.Filter{
		CreatedBetween: &store.TimeRange{From: from, To: to},
	})
	if err != nil {
		return "", fmt.Errorf("find orders by date range: %w", err)
	}
	if len(orders) == 0 {
		return fmt.Sprintf("No orders found between %s and %s.", start, end), nil
	}

	return fmt.Sprintf("Orders from %s to %s:\n%s", start, end, numberedOrders(orders)), nil
}

func (e *Executor) count(ctx context.Context, entity string) (string, error) {
	category, ok := e.mapping.Resolve(entity)
	if !ok {
		return fmt.Sprintf("Sorry, I can't find information for '%s'.", entity), nil
	}

	n, err := e.reader.Count(ctx, string(category))
	if err != nil {
		return "", fmt.Errorf("count %s: %w", category, err)
	}
	return fmt.Sprintf("There are %d %s in the store.", n, category), nil
}

func (e *Executor) list(ctx context.Context, entity string) (string, error) {
	category, ok := e.mapping.Resolve(entity)
	if !ok {
		return fmt.Sprintf("Sorry, I can't find information for '%s'.", entity), nil
	}

	records, err := e.reader.Find(ctx, string(category), store.Filter{})
	if err != nil {
		return "", fmt.Errorf("list %s: %w", category, err)
	}
	if len(records) == 0 {
		return fmt.Sprintf("No %s found.", category), nil
	}

	preview := records
	if len(preview) > listPreviewLimit {
		preview = preview[:listPreviewLimit]
	}

	format := formatterFor(category)
	lines := make([]string, len(preview))
	for i, rec := range preview {
		lines[i] = fmt.Sprintf("%d. %s", i+1, format(withoutID(rec)))
	}

	more := ""
	if len(records) > listPreviewLimit {
		more = fmt.Sprintf("\n...and %d more.", len(records)-listPreviewLimit)
	}

	return fmt.Sprintf("Here are the %s in the store:\n%s%s", category, strings.Join(lines, "\n"), more), nil
}

func formatterFor(category catalog.Category) func(store.Record) string {
	switch category {
	case "products":
		return FormatProduct
	case "orders":
		return FormatOrder
	default:
		return FormatGeneric
	}
}

// withoutID strips the identifier field from list output.
func withoutID(r store.Record) store.Record {
	if _, ok := r.Fields["_id"]; !ok {
		return r
	}
	out := store.Record{
		ID:     r.ID,
		Fields: make(map[string]interface{}, len(r.Fields)-1),
		Order:  make([]string, 0, len(r.Order)-1),
	}
	for _, key := range r.Order {
		if key == "_id" {
			continue
		}
		out.Fields[key] = r.Fields[key]
		out.Order = append(out.Order, key)
	}
	return out
}

func numberedOrders(orders []store.Record) string {
	lines := make([]string, len(orders))
	for i, o := range orders {
		lines[i] = fmt.Sprintf("%d. %s", i+1, FormatOrder(o))
	}
	return strings.Join(lines, "\n")
}
