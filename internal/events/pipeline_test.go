package events

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type fakeProvider struct {
	fetch func(ctx context.Context, query ProviderQuery) (*ProviderPage, error)
	calls int
}

func (f *fakeProvider) FetchPage(ctx context.Context, query ProviderQuery) (*ProviderPage, error) {
	f.calls++
	return f.fetch(ctx, query)
}

func validParams() SearchParams {
	return SearchParams{
		PostalCode: "01907",
		Radius:     5,
		Unit:       "miles",
		Year:       2026,
		Month:      time.August,
	}
}

func itemAt(id string, start time.Time) ProviderItem {
	return ProviderItem{ID: id, Name: "Event " + id, StartsAt: &start, URL: "https://example.com/" + id}
}

func pricedItemAt(id string, start time.Time, price float64) ProviderItem {
	item := itemAt(id, start)
	max := price * 2
	item.PriceMin = &price
	item.PriceMax = &max
	item.Currency = "USD"
	return item
}

func TestFetch_EmptyResultIsSuccess(t *testing.T) {
	provider := &fakeProvider{
		fetch: func(_ context.Context, _ ProviderQuery) (*ProviderPage, error) {
			return &ProviderPage{TotalPages: 1}, nil
		},
	}
	pipeline := NewPipeline(provider, zerolog.Nop())

	records, err := pipeline.Fetch(context.Background(), validParams())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected 0 records, got %d", len(records))
	}
}

func TestFetch_InvalidParamsBeforeAnyCall(t *testing.T) {
	provider := &fakeProvider{
		fetch: func(_ context.Context, _ ProviderQuery) (*ProviderPage, error) {
			t.Fatal("provider must not be called for invalid params")
			return nil, nil
		},
	}
	pipeline := NewPipeline(provider, zerolog.Nop())

	params := validParams()
	params.PostalCode = "00000"
	params.Radius = -5

	_, err := pipeline.Fetch(context.Background(), params)
	var invalidErr InvalidParametersError
	if !errors.As(err, &invalidErr) {
		t.Fatalf("expected InvalidParametersError, got %v", err)
	}
	if invalidErr.Field != "radius" {
		t.Errorf("expected radius to be rejected, got field %q", invalidErr.Field)
	}
	if provider.calls != 0 {
		t.Errorf("expected 0 provider calls, got %d", provider.calls)
	}
}

func TestFetch_RejectsBadPostalCode(t *testing.T) {
	cases := []string{"", "1907", "019070", "0190a"}
	for _, postalCode := range cases {
		provider := &fakeProvider{
			fetch: func(_ context.Context, _ ProviderQuery) (*ProviderPage, error) {
				return &ProviderPage{TotalPages: 1}, nil
			},
		}
		pipeline := NewPipeline(provider, zerolog.Nop())

		params := validParams()
		params.PostalCode = postalCode

		_, err := pipeline.Fetch(context.Background(), params)
		var invalidErr InvalidParametersError
		if !errors.As(err, &invalidErr) {
			t.Errorf("postal code %q: expected InvalidParametersError, got %v", postalCode, err)
		}
		if provider.calls != 0 {
			t.Errorf("postal code %q: provider was called", postalCode)
		}
	}
}

func TestFetch_DeduplicatesByProviderID(t *testing.T) {
	start := time.Date(2026, 8, 10, 19, 0, 0, 0, time.UTC)
	provider := &fakeProvider{
		fetch: func(_ context.Context, _ ProviderQuery) (*ProviderPage, error) {
			return &ProviderPage{
				Items: []ProviderItem{
					itemAt("a", start),
					itemAt("b", start.Add(time.Hour)),
					itemAt("a", start.Add(2*time.Hour)),
				},
				TotalPages: 1,
			}, nil
		},
	}
	pipeline := NewPipeline(provider, zerolog.Nop())

	records, err := pipeline.Fetch(context.Background(), validParams())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records after dedup, got %d", len(records))
	}
	counts := map[string]int{}
	for _, record := range records {
		counts[record.ID]++
	}
	if counts["a"] != 1 || counts["b"] != 1 {
		t.Errorf("expected each ID exactly once, got %v", counts)
	}
	// last seen wins
	for _, record := range records {
		if record.ID == "a" && !record.StartsAt.Equal(start.Add(2*time.Hour)) {
			t.Errorf("expected last-seen item for ID a, got start %v", record.StartsAt)
		}
	}
}

func TestFetch_DropsItemsWithoutStartDate(t *testing.T) {
	start := time.Date(2026, 8, 10, 19, 0, 0, 0, time.UTC)
	provider := &fakeProvider{
		fetch: func(_ context.Context, _ ProviderQuery) (*ProviderPage, error) {
			return &ProviderPage{
				Items: []ProviderItem{
					itemAt("a", start),
					{ID: "no-date", Name: "Mystery"},
				},
				TotalPages: 1,
			}, nil
		},
	}
	pipeline := NewPipeline(provider, zerolog.Nop())

	records, err := pipeline.Fetch(context.Background(), validParams())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(records) != 1 || records[0].ID != "a" {
		t.Fatalf("expected only the dated record, got %v", records)
	}
}

func TestFetch_SortsPricedBeforeUnpriced(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	provider := &fakeProvider{
		fetch: func(_ context.Context, _ ProviderQuery) (*ProviderPage, error) {
			return &ProviderPage{
				Items: []ProviderItem{
					itemAt("free-late", base.AddDate(0, 0, 20)),
					pricedItemAt("cheap", base.AddDate(0, 0, 15), 10),
					itemAt("free-early", base.AddDate(0, 0, 2)),
					pricedItemAt("pricey", base.AddDate(0, 0, 1), 80),
					pricedItemAt("cheap-later", base.AddDate(0, 0, 25), 10),
				},
				TotalPages: 1,
			}, nil
		},
	}
	pipeline := NewPipeline(provider, zerolog.Nop())

	records, err := pipeline.Fetch(context.Background(), validParams())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	wantOrder := []string{"cheap", "cheap-later", "pricey", "free-early", "free-late"}
	if len(records) != len(wantOrder) {
		t.Fatalf("expected %d records, got %d", len(wantOrder), len(records))
	}
	for i, want := range wantOrder {
		if records[i].ID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, records[i].ID)
		}
	}

	// Invariant: every priced record precedes every unpriced record, and
	// within each group start time is non-decreasing at equal price.
	seenUnpriced := false
	for _, record := range records {
		if record.Priced() && seenUnpriced {
			t.Fatalf("priced record %s after an unpriced record", record.ID)
		}
		if !record.Priced() {
			seenUnpriced = true
		}
	}

	// The full price range survives normalization
	if records[0].PriceMax == nil || *records[0].PriceMax != 20 {
		t.Errorf("expected max price 20 on %s, got %v", records[0].ID, records[0].PriceMax)
	}
}

func TestFetch_FollowsPagesUntilExhaustion(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	pageItems := func(page, n int) []ProviderItem {
		items := make([]ProviderItem, 0, n)
		for i := 0; i < n; i++ {
			items = append(items, itemAt(
				fmt.Sprintf("p%d-%d", page, i),
				base.Add(time.Duration(page*100+i)*time.Minute),
			))
		}
		return items
	}

	provider := &fakeProvider{}
	provider.fetch = func(_ context.Context, query ProviderQuery) (*ProviderPage, error) {
		switch query.Page {
		case 0:
			return &ProviderPage{Items: pageItems(0, 20), Page: 0, TotalPages: 2}, nil
		case 1:
			return &ProviderPage{Items: pageItems(1, 3), Page: 1, TotalPages: 2}, nil
		default:
			t.Fatalf("unexpected request for page %d", query.Page)
			return nil, nil
		}
	}
	pipeline := NewPipeline(provider, zerolog.Nop())

	records, err := pipeline.Fetch(context.Background(), validParams())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(records) != 23 {
		t.Fatalf("expected 23 records, got %d", len(records))
	}
	if provider.calls != 2 {
		t.Fatalf("expected 2 page requests, got %d", provider.calls)
	}
}

func TestFetch_StopsAtPageCap(t *testing.T) {
	start := time.Date(2026, 8, 10, 19, 0, 0, 0, time.UTC)
	provider := &fakeProvider{}
	provider.fetch = func(_ context.Context, query ProviderQuery) (*ProviderPage, error) {
		return &ProviderPage{
			Items:      []ProviderItem{itemAt(fmt.Sprintf("page-%d", query.Page), start)},
			Page:       query.Page,
			TotalPages: 100,
		}, nil
	}
	pipeline := NewPipeline(provider, zerolog.Nop(), WithMaxPages(3))

	records, err := pipeline.Fetch(context.Background(), validParams())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if provider.calls != 3 {
		t.Fatalf("expected 3 page requests at the cap, got %d", provider.calls)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
}

func TestFetch_FailedPageAbortsWholeFetch(t *testing.T) {
	start := time.Date(2026, 8, 10, 19, 0, 0, 0, time.UTC)
	provider := &fakeProvider{}
	provider.fetch = func(_ context.Context, query ProviderQuery) (*ProviderPage, error) {
		if query.Page == 0 {
			return &ProviderPage{Items: []ProviderItem{itemAt("a", start)}, TotalPages: 3}, nil
		}
		return nil, ProviderError{Status: 500, Message: "boom"}
	}
	pipeline := NewPipeline(provider, zerolog.Nop())

	records, err := pipeline.Fetch(context.Background(), validParams())
	var providerErr ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if records != nil {
		t.Fatalf("expected no partial results, got %d records", len(records))
	}
}

func TestFetch_PropagatesAuthError(t *testing.T) {
	provider := &fakeProvider{
		fetch: func(_ context.Context, _ ProviderQuery) (*ProviderPage, error) {
			return nil, AuthError{Status: 401, Message: "api key is invalid or unauthorized"}
		},
	}
	pipeline := NewPipeline(provider, zerolog.Nop())

	_, err := pipeline.Fetch(context.Background(), validParams())
	var authErr AuthError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if authErr.Status != 401 {
		t.Errorf("expected status 401, got %d", authErr.Status)
	}
}

func TestFetch_QueryWindowCoversTargetMonth(t *testing.T) {
	var captured ProviderQuery
	provider := &fakeProvider{
		fetch: func(_ context.Context, query ProviderQuery) (*ProviderPage, error) {
			captured = query
			return &ProviderPage{TotalPages: 1}, nil
		},
	}
	pipeline := NewPipeline(provider, zerolog.Nop())

	if _, err := pipeline.Fetch(context.Background(), validParams()); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	wantStart := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	if !captured.StartsAfter.Equal(wantStart) {
		t.Errorf("expected window start %v, got %v", wantStart, captured.StartsAfter)
	}
	if !captured.StartsBefore.Equal(wantEnd) {
		t.Errorf("expected window end %v, got %v", wantEnd, captured.StartsBefore)
	}
	if captured.PostalCode != "01907" || captured.Radius != 5 || captured.Unit != "miles" {
		t.Errorf("unexpected query scope: %+v", captured)
	}
}
