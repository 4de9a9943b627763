package service

import (
	"context"
	"strings"
	"time"

	"inventrack/internal/cache"
	"inventrack/internal/metrics"
	"inventrack/internal/model"
	"inventrack/internal/repository"
	"inventrack/internal/ws"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const dateLayout = "2006-01-02"

// Cached dashboard summaries live under DashboardCacheKey plus the current
// generation. Invalidation moves the generation, so a summary built from
// data read before a commit can only land under a key nobody reads again.
const (
	DashboardCacheKey      = "dashboard:summary"
	DashboardGenerationKey = "dashboard:generation"
)

func dashboardSummaryKey(generation string) string {
	return DashboardCacheKey + ":" + generation
}

// Actor is the authenticated caller a change is attributed to
type Actor struct {
	ID    uuid.UUID
	Name  string
	Email string
}

func (a Actor) wsActor() *ws.Actor {
	return &ws.Actor{ID: a.ID.String(), Name: a.Name, Email: a.Email}
}

// Effects are the side effects that run only after a unit of work committed.
// Every field is optional.
type Effects struct {
	Hub     ws.Publisher
	Cache   cache.Cache
	Metrics *metrics.Metrics
}

func (e Effects) publish(event ws.Event) {
	if e.Hub != nil {
		e.Hub.Publish(event)
	}
}

func (e Effects) invalidateDashboard(ctx context.Context) {
	if e.Cache == nil {
		return
	}
	if err := e.Cache.Set(ctx, DashboardGenerationKey, []byte(uuid.NewString()), 0); err != nil {
		zap.L().Warn("dashboard cache invalidation failed", zap.Error(err))
	}
}

// parseDateRange turns inclusive YYYY-MM-DD bounds into a half-open range
// in local time. Either bound may be empty.
func parseDateRange(from, to string) (repository.DateRange, error) {
	var r repository.DateRange
	fields := map[string]string{}

	if from = strings.TrimSpace(from); from != "" {
		t, err := time.ParseInLocation(dateLayout, from, time.Local)
		if err != nil {
			fields["from_date"] = "The from date field must be a valid date (YYYY-MM-DD)."
		} else {
			r.From = &t
		}
	}
	if to = strings.TrimSpace(to); to != "" {
		t, err := time.ParseInLocation(dateLayout, to, time.Local)
		if err != nil {
			fields["to_date"] = "The to date field must be a valid date (YYYY-MM-DD)."
		} else {
			end := t.AddDate(0, 0, 1)
			r.To = &end
		}
	}
	if len(fields) == 0 && r.From != nil && r.To != nil && !r.From.Before(*r.To) {
		fields["to_date"] = "The to date field must be a date after or equal to from date."
	}
	if len(fields) > 0 {
		return r, &ValidationError{Fields: fields}
	}
	return r, nil
}

// parseOptionalID parses an optional id filter
func parseOptionalID(field, raw string) (*uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, NewValidationError(field, "The selected "+strings.ReplaceAll(field, "_", " ")+" is invalid.")
	}
	return &id, nil
}

func stockValue(products []model.Product) decimal.Decimal {
	total := decimal.Zero
	for _, p := range products {
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(p.Stock))))
	}
	return total
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
