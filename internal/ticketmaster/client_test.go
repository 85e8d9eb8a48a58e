package ticketmaster

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/localbeat/server/internal/events"
)

func testQuery() events.ProviderQuery {
	return events.ProviderQuery{
		PostalCode:   "01907",
		Radius:       5,
		Unit:         "miles",
		StartsAfter:  time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		StartsBefore: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		Page:         0,
		PageSize:     200,
	}
}

func float64Ptr(v float64) *float64 { return &v }

func TestFetchPage_Success(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if query.Get("apikey") != "test-key" {
			t.Errorf("unexpected apikey: %s", query.Get("apikey"))
		}
		if query.Get("postalCode") != "01907" {
			t.Errorf("unexpected postalCode: %s", query.Get("postalCode"))
		}
		if query.Get("radius") != "5" {
			t.Errorf("unexpected radius: %s", query.Get("radius"))
		}
		if query.Get("unit") != "miles" {
			t.Errorf("unexpected unit: %s", query.Get("unit"))
		}
		if query.Get("startDateTime") != "2026-08-01T00:00:00Z" {
			t.Errorf("unexpected startDateTime: %s", query.Get("startDateTime"))
		}
		// the exclusive window end is sent as an inclusive provider bound
		if query.Get("endDateTime") != "2026-08-31T23:59:59Z" {
			t.Errorf("unexpected endDateTime: %s", query.Get("endDateTime"))
		}
		if query.Get("sort") != "date,asc" {
			t.Errorf("unexpected sort: %s", query.Get("sort"))
		}
		if query.Get("size") != "200" || query.Get("page") != "0" {
			t.Errorf("unexpected paging: size=%s page=%s", query.Get("size"), query.Get("page"))
		}

		response := SearchResponse{
			Embedded: &Embedded{
				Events: []Event{
					{
						ID:   "vvG1fZ9p",
						Name: "North Shore Jazz Night",
						URL:  "https://www.ticketmaster.com/north-shore-jazz/event/vvG1fZ9p",
						Dates: Dates{Start: DateStart{
							DateTime: "2026-08-14T23:30:00Z",
						}},
						Images:      []Image{{URL: "https://img.example.com/jazz.jpg"}},
						PriceRanges: []PriceRange{{Type: "standard", Currency: "USD", Min: float64Ptr(29.5), Max: float64Ptr(110)}},
						Embedded: &EventEmbedded{Venues: []Venue{{
							Name:     "Lynn Auditorium",
							Location: &Location{Latitude: "42.4668", Longitude: "-70.9495"},
						}}},
					},
					{
						ID:    "k8xLqQ2w",
						Name:  "Community Art Walk",
						Dates: Dates{Start: DateStart{LocalDate: "2026-08-22"}},
					},
				},
			},
			Page: PageInfo{Size: 200, TotalElements: 2, TotalPages: 1, Number: 0},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response)
	}))
	defer mockServer.Close()

	client := NewClient(mockServer.URL, "test-key", WithRateLimit(100))

	page, err := client.FetchPage(context.Background(), testQuery())
	if err != nil {
		t.Fatalf("FetchPage failed: %v", err)
	}

	if page.TotalPages != 1 || page.Page != 0 {
		t.Errorf("unexpected paging metadata: %+v", page)
	}
	if len(page.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(page.Items))
	}

	jazz := page.Items[0]
	if jazz.ID != "vvG1fZ9p" || jazz.Name != "North Shore Jazz Night" {
		t.Errorf("unexpected item: %+v", jazz)
	}
	if jazz.StartsAt == nil || !jazz.StartsAt.Equal(time.Date(2026, 8, 14, 23, 30, 0, 0, time.UTC)) {
		t.Errorf("unexpected start: %v", jazz.StartsAt)
	}
	if jazz.Venue != "Lynn Auditorium" {
		t.Errorf("unexpected venue: %s", jazz.Venue)
	}
	if jazz.Latitude == nil || *jazz.Latitude != 42.4668 {
		t.Errorf("unexpected latitude: %v", jazz.Latitude)
	}
	if jazz.PriceMin == nil || *jazz.PriceMin != 29.5 || jazz.Currency != "USD" {
		t.Errorf("unexpected price: %v %s", jazz.PriceMin, jazz.Currency)
	}
	if jazz.PriceMax == nil || *jazz.PriceMax != 110 {
		t.Errorf("unexpected max price: %v", jazz.PriceMax)
	}
	if jazz.ImageURL != "https://img.example.com/jazz.jpg" {
		t.Errorf("unexpected image: %s", jazz.ImageURL)
	}

	artWalk := page.Items[1]
	if artWalk.StartsAt == nil || !artWalk.StartsAt.Equal(time.Date(2026, 8, 22, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("expected localDate fallback, got %v", artWalk.StartsAt)
	}
	if artWalk.PriceMin != nil || artWalk.PriceMax != nil || artWalk.Latitude != nil || artWalk.ImageURL != "" {
		t.Errorf("expected absent fields to stay absent: %+v", artWalk)
	}
	// missing url falls back to the canonical event page
	if artWalk.URL != "https://www.ticketmaster.com/event/k8xLqQ2w" {
		t.Errorf("unexpected fallback URL: %s", artWalk.URL)
	}
}

func TestFetchPage_MissingKeyFailsWithoutRequest(t *testing.T) {
	requestCount := 0
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount++
	}))
	defer mockServer.Close()

	client := NewClient(mockServer.URL, "", WithRateLimit(100))

	_, err := client.FetchPage(context.Background(), testQuery())
	var authErr events.AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if authErr.Status != 0 {
		t.Errorf("expected status 0 for missing key, got %d", authErr.Status)
	}
	if requestCount != 0 {
		t.Errorf("expected no request, got %d", requestCount)
	}
}

func TestFetchPage_UnauthorizedIsAuthError(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		client := NewClient(mockServer.URL, "bad-key", WithRateLimit(100))
		_, err := client.FetchPage(context.Background(), testQuery())
		mockServer.Close()

		var authErr events.AuthError
		if !errors.As(err, &authErr) {
			t.Fatalf("status %d: expected AuthError, got %v", status, err)
		}
		if authErr.Status != status {
			t.Errorf("expected status %d, got %d", status, authErr.Status)
		}
	}
}

func TestFetchPage_ServerErrorIsProviderError(t *testing.T) {
	requestCount := 0
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestCount++
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream exploded"))
	}))
	defer mockServer.Close()

	client := NewClient(mockServer.URL, "test-key", WithRateLimit(100))

	_, err := client.FetchPage(context.Background(), testQuery())
	var providerErr events.ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if providerErr.Status != http.StatusBadGateway {
		t.Errorf("expected status 502, got %d", providerErr.Status)
	}
	// no internal retries
	if requestCount != 1 {
		t.Errorf("expected 1 request, got %d", requestCount)
	}
}

func TestFetchPage_InvalidJSONIsMalformedResponse(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("<html>definitely not json</html>"))
	}))
	defer mockServer.Close()

	client := NewClient(mockServer.URL, "test-key", WithRateLimit(100))

	_, err := client.FetchPage(context.Background(), testQuery())
	var malformedErr events.MalformedResponseError
	if !errors.As(err, &malformedErr) {
		t.Fatalf("expected MalformedResponseError, got %v", err)
	}
}

func TestFetchPage_NoEmbeddedEventsMeansEmptyPage(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"page":{"size":200,"totalElements":0,"totalPages":0,"number":0}}`))
	}))
	defer mockServer.Close()

	client := NewClient(mockServer.URL, "test-key", WithRateLimit(100))

	page, err := client.FetchPage(context.Background(), testQuery())
	if err != nil {
		t.Fatalf("FetchPage failed: %v", err)
	}
	if len(page.Items) != 0 {
		t.Errorf("expected empty page, got %d items", len(page.Items))
	}
}

func TestFetchPage_ContextCancellation(t *testing.T) {
	mockServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer mockServer.Close()

	client := NewClient(mockServer.URL, "test-key", WithRateLimit(100))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.FetchPage(ctx, testQuery())
	if err == nil {
		t.Fatal("expected error from cancelled context, got nil")
	}
	var providerErr events.ProviderError
	if !errors.As(err, &providerErr) {
		t.Errorf("expected ProviderError for transport failure, got %v", err)
	}
}
