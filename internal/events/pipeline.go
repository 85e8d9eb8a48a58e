package events

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/localbeat/server/internal/metrics"
	"github.com/localbeat/server/internal/telemetry"
)

const (
	// DefaultPageSize is the number of items requested per provider page.
	DefaultPageSize = 200
	// DefaultMaxPages caps pagination to bound worst-case search latency.
	DefaultMaxPages = 5
	// DefaultUnit is used when the caller does not specify a radius unit.
	DefaultUnit = "miles"
)

const tracerName = "github.com/localbeat/server/internal/events"

// Pipeline turns SearchParams into a de-duplicated, sorted slice of
// EventRecord: validate, fetch pages sequentially, normalize, dedup, sort.
// It holds no state across searches.
type Pipeline struct {
	provider Provider
	validate *validator.Validate
	logger   zerolog.Logger
	pageSize int
	maxPages int
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithPageSize overrides the per-page item count requested from the provider.
func WithPageSize(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.pageSize = n
		}
	}
}

// WithMaxPages overrides the hard page-count cap.
func WithMaxPages(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxPages = n
		}
	}
}

// NewPipeline creates a pipeline backed by the given provider transport.
func NewPipeline(provider Provider, logger zerolog.Logger, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		provider: provider,
		validate: validator.New(),
		logger:   logger.With().Str("component", "events").Logger(),
		pageSize: DefaultPageSize,
		maxPages: DefaultMaxPages,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Fetch runs one search. Zero results is success (empty slice, nil error).
// A failed page aborts the whole fetch; partial results are never returned.
func (p *Pipeline) Fetch(ctx context.Context, params SearchParams) ([]EventRecord, error) {
	if params.Unit == "" {
		params.Unit = DefaultUnit
	}
	if err := p.validateParams(params); err != nil {
		metrics.SearchesTotal.WithLabelValues("invalid_params").Inc()
		return nil, err
	}

	tracer := telemetry.GetTracer(tracerName)
	ctx, span := tracer.Start(ctx, "pipeline.Fetch")
	defer span.End()
	span.SetAttributes(
		attribute.String("search.postal_code", params.PostalCode),
		attribute.Int("search.radius", params.Radius),
	)

	start, end := params.Window()
	query := ProviderQuery{
		PostalCode:   params.PostalCode,
		Radius:       params.Radius,
		Unit:         params.Unit,
		StartsAfter:  start,
		StartsBefore: end,
		PageSize:     p.pageSize,
	}

	var items []ProviderItem
	totalPages := 1
	pagesFetched := 0
	for page := 0; page < totalPages && page < p.maxPages; page++ {
		query.Page = page

		pageStart := time.Now()
		result, err := p.provider.FetchPage(ctx, query)
		metrics.ProviderPageDuration.Observe(time.Since(pageStart).Seconds())
		if err != nil {
			metrics.ProviderPagesTotal.WithLabelValues(outcomeLabel(err)).Inc()
			metrics.SearchesTotal.WithLabelValues(outcomeLabel(err)).Inc()
			p.logger.Warn().
				Err(err).
				Int("page", page).
				Str("postal_code", params.PostalCode).
				Msg("provider page fetch failed")
			return nil, err
		}
		metrics.ProviderPagesTotal.WithLabelValues("ok").Inc()
		pagesFetched++

		if result.TotalPages > 0 {
			totalPages = result.TotalPages
		}
		items = append(items, result.Items...)
	}

	records := dedupe(normalize(items))
	sortRecords(records)

	metrics.SearchesTotal.WithLabelValues("ok").Inc()
	metrics.SearchResults.Observe(float64(len(records)))
	span.SetAttributes(
		attribute.Int("search.pages", pagesFetched),
		attribute.Int("search.results", len(records)),
	)
	p.logger.Debug().
		Str("postal_code", params.PostalCode).
		Int("pages", pagesFetched).
		Int("results", len(records)).
		Msg("search complete")

	return records, nil
}

func (p *Pipeline) validateParams(params SearchParams) error {
	err := p.validate.Struct(params)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		first := fieldErrs[0]
		return InvalidParametersError{
			Field:   strings.ToLower(first.Field()),
			Message: validationMessage(first),
		}
	}
	return InvalidParametersError{Message: err.Error()}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "len":
		return "must be exactly " + fe.Param() + " characters"
	case "numeric":
		return "must contain only digits"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	default:
		return "is invalid"
	}
}

// normalize maps provider items to records, dropping items without a usable
// start date or provider identifier.
func normalize(items []ProviderItem) []EventRecord {
	records := make([]EventRecord, 0, len(items))
	for _, item := range items {
		if item.StartsAt == nil || item.ID == "" {
			continue
		}
		records = append(records, EventRecord{
			ID:        item.ID,
			Name:      item.Name,
			StartsAt:  *item.StartsAt,
			Venue:     item.Venue,
			Latitude:  item.Latitude,
			Longitude: item.Longitude,
			PriceMin:  item.PriceMin,
			PriceMax:  item.PriceMax,
			Currency:  item.Currency,
			ImageURL:  item.ImageURL,
			URL:       item.URL,
		})
	}
	return records
}

// dedupe collapses records sharing a provider ID, last seen wins.
func dedupe(records []EventRecord) []EventRecord {
	seen := make(map[string]int, len(records))
	out := records[:0]
	for _, record := range records {
		if idx, ok := seen[record.ID]; ok {
			out[idx] = record
			continue
		}
		seen[record.ID] = len(out)
		out = append(out, record)
	}
	return out
}

// sortRecords orders priced records first (ascending price, then start
// time); unpriced records follow, ordered by start time.
func sortRecords(records []EventRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		switch {
		case a.Priced() && !b.Priced():
			return true
		case !a.Priced() && b.Priced():
			return false
		case a.Priced() && b.Priced() && *a.PriceMin != *b.PriceMin:
			return *a.PriceMin < *b.PriceMin
		default:
			return a.StartsAt.Before(b.StartsAt)
		}
	})
}

func outcomeLabel(err error) string {
	var authErr AuthError
	var malformedErr MalformedResponseError
	switch {
	case errors.As(err, &authErr):
		return "auth_error"
	case errors.As(err, &malformedErr):
		return "malformed_response"
	default:
		return "provider_error"
	}
}
