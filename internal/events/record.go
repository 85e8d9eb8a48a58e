package events

import (
	"context"
	"strings"
	"time"
)

// SearchParams describes one user-triggered search: the postal code and
// radius to scope the provider query, and the calendar month to cover.
type SearchParams struct {
	PostalCode string     `validate:"required,len=5,numeric"`
	Radius     int        `validate:"required,gt=0"`
	Unit       string     `validate:"omitempty,oneof=miles km"`
	Year       int        `validate:"required,min=2000,max=2100"`
	Month      time.Month `validate:"required,min=1,max=12"`
}

// Window returns the UTC query window for the target month. The upper bound
// is exclusive: first instant of the following month.
func (p SearchParams) Window() (start, end time.Time) {
	start = time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// ParseMonth parses a "YYYY-MM" month designator.
func ParseMonth(value string) (int, time.Month, error) {
	parsed, err := time.Parse("2006-01", strings.TrimSpace(value))
	if err != nil {
		return 0, 0, InvalidParametersError{Field: "month", Message: "must be formatted as YYYY-MM"}
	}
	return parsed.Year(), parsed.Month(), nil
}

// EventRecord is the normalized representation of one event returned to the
// UI. Records are created fresh on each search and never mutated; absent
// price, coordinates, and image stay absent instead of defaulting to zero.
type EventRecord struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartsAt  time.Time `json:"starts_at"`
	Venue     string    `json:"venue,omitempty"`
	Latitude  *float64  `json:"latitude,omitempty"`
	Longitude *float64  `json:"longitude,omitempty"`
	PriceMin  *float64  `json:"price_min,omitempty"`
	PriceMax  *float64  `json:"price_max,omitempty"`
	Currency  string    `json:"currency,omitempty"`
	ImageURL  string    `json:"image_url,omitempty"`
	URL       string    `json:"url"`
}

// Priced reports whether the record carries a listed minimum price.
func (r EventRecord) Priced() bool {
	return r.PriceMin != nil
}

// Provider is the injected transport to the events provider. Implementations
// translate one page request into one HTTP call and map failures onto the
// error taxonomy in this package.
type Provider interface {
	FetchPage(ctx context.Context, query ProviderQuery) (*ProviderPage, error)
}

// ProviderQuery carries the parameters for a single provider page request.
type ProviderQuery struct {
	PostalCode   string
	Radius       int
	Unit         string
	StartsAfter  time.Time
	StartsBefore time.Time
	Page         int
	PageSize     int
}

// ProviderPage is one page of provider results plus paging metadata.
type ProviderPage struct {
	Items      []ProviderItem
	Page       int
	TotalPages int
}

// ProviderItem is a provider result before normalization. StartsAt is nil
// when the provider has no usable start date for the item.
type ProviderItem struct {
	ID        string
	Name      string
	StartsAt  *time.Time
	Venue     string
	Latitude  *float64
	Longitude *float64
	PriceMin  *float64
	PriceMax  *float64
	Currency  string
	ImageURL  string
	URL       string
}
