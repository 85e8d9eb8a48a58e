package ticketmaster

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/localbeat/server/internal/events"
)

const (
	// DefaultBaseURL is the public Discovery API endpoint
	DefaultBaseURL = "https://app.ticketmaster.com"
	// DefaultTimeout for HTTP requests
	DefaultTimeout = 12 * time.Second
	// DefaultRateLimit is 5 requests per second (Discovery API free tier)
	DefaultRateLimit = rate.Limit(5.0)

	searchPath = "/discovery/v2/events.json"

	// isoSeconds is the timestamp format the Discovery API accepts:
	// ISO 8601 UTC with second precision and a literal Z, no milliseconds.
	isoSeconds = "2006-01-02T15:04:05Z"
)

// maxErrorBody bounds how much of an error response body is echoed into
// error messages.
const maxErrorBody = 512

// Client handles communication with the Ticketmaster Discovery API. It
// implements events.Provider. Requests are not retried: a failed page
// surfaces immediately so the pipeline can abort the fetch.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithRateLimit sets a custom rate limit (requests per second).
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewClient creates a Discovery API client. apiKey may be empty; the first
// fetch then fails with events.AuthError rather than failing at startup.
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	client := &Client{
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		baseURL: baseURL,
		apiKey:  apiKey,
		limiter: rate.NewLimiter(DefaultRateLimit, 1),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// FetchPage requests one page of events scoped to the query's postal code,
// radius, and time window.
func (c *Client) FetchPage(ctx context.Context, query events.ProviderQuery) (*events.ProviderPage, error) {
	if c.apiKey == "" {
		return nil, events.AuthError{Message: "api key is not configured"}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, events.ProviderError{Message: fmt.Sprintf("rate limiter: %v", err)}
	}

	params := url.Values{}
	params.Set("apikey", c.apiKey)
	params.Set("postalCode", query.PostalCode)
	params.Set("radius", strconv.Itoa(query.Radius))
	params.Set("unit", query.Unit)
	params.Set("startDateTime", query.StartsAfter.UTC().Format(isoSeconds))
	// endDateTime is inclusive on the provider side; the query window's
	// upper bound is exclusive.
	params.Set("endDateTime", query.StartsBefore.UTC().Add(-time.Second).Format(isoSeconds))
	params.Set("size", strconv.Itoa(query.PageSize))
	params.Set("page", strconv.Itoa(query.Page))
	params.Set("sort", "date,asc")

	requestURL := fmt.Sprintf("%s%s?%s", c.baseURL, searchPath, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, events.ProviderError{Message: fmt.Sprintf("create request: %v", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, events.ProviderError{Message: fmt.Sprintf("http request: %v", err)}
	}

	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, events.ProviderError{Status: resp.StatusCode, Message: fmt.Sprintf("read response: %v", err)}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, events.AuthError{Status: resp.StatusCode, Message: "api key is invalid or unauthorized"}
	case resp.StatusCode != http.StatusOK:
		return nil, events.ProviderError{Status: resp.StatusCode, Message: truncate(string(body), maxErrorBody)}
	}

	var decoded SearchResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, events.MalformedResponseError{Err: err}
	}

	page := &events.ProviderPage{
		Page:       decoded.Page.Number,
		TotalPages: decoded.Page.TotalPages,
	}
	if decoded.Embedded != nil {
		page.Items = make([]events.ProviderItem, 0, len(decoded.Embedded.Events))
		for _, ev := range decoded.Embedded.Events {
			page.Items = append(page.Items, toProviderItem(ev))
		}
	}
	return page, nil
}

// toProviderItem maps one wire event to the pipeline's provider item shape.
// Missing price, coordinates, and image stay absent.
func toProviderItem(ev Event) events.ProviderItem {
	item := events.ProviderItem{
		ID:       ev.ID,
		Name:     ev.Name,
		StartsAt: parseStart(ev.Dates.Start),
		URL:      eventURL(ev),
	}

	if ev.Embedded != nil && len(ev.Embedded.Venues) > 0 {
		venue := ev.Embedded.Venues[0]
		item.Venue = venue.Name
		if venue.Location != nil {
			lat, latErr := strconv.ParseFloat(venue.Location.Latitude, 64)
			lon, lonErr := strconv.ParseFloat(venue.Location.Longitude, 64)
			if latErr == nil && lonErr == nil {
				item.Latitude = &lat
				item.Longitude = &lon
			}
		}
	}

	if len(ev.PriceRanges) > 0 {
		pr := ev.PriceRanges[0]
		item.PriceMin = pr.Min
		item.PriceMax = pr.Max
		item.Currency = pr.Currency
	}

	if len(ev.Images) > 0 {
		item.ImageURL = ev.Images[0].URL
	}

	return item
}

// parseStart prefers the exact dateTime, falls back to the date-only form,
// and returns nil when neither parses.
func parseStart(start DateStart) *time.Time {
	if start.DateTime != "" {
		if parsed, err := time.Parse(time.RFC3339, start.DateTime); err == nil {
			return &parsed
		}
	}
	if start.LocalDate != "" {
		if parsed, err := time.Parse("2006-01-02", start.LocalDate); err == nil {
			return &parsed
		}
	}
	return nil
}

// eventURL prefers the API's url field and falls back to the canonical event
// page built from the event ID.
func eventURL(ev Event) string {
	if ev.URL != "" {
		return ev.URL
	}
	if ev.ID != "" {
		return "https://www.ticketmaster.com/event/" + ev.ID
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
