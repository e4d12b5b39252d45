package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/robertarktes/travel-storefront/internal/domain"
	"github.com/robertarktes/travel-storefront/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{data: map[string][]byte{}}
}

func (c *memCache) GetJSON(_ context.Context, key string, dst interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (c *memCache) SetJSON(_ context.Context, key string, v interface{}, _ time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = raw
	return nil
}

type fakeStore struct {
	mu           sync.Mutex
	calls        map[string]int
	queries      []Query
	destinations []domain.Destination
	packages     []domain.Package
	listings     []domain.CategoryListing
	deals        []domain.Deal
	failDeals    bool
}

func (f *fakeStore) record(name string, q Query) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[name]++
	f.queries = append(f.queries, q)
}

func (f *fakeStore) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func limit[T any](items []T, n int64) []T {
	if n > 0 && int64(len(items)) > n {
		return items[:n]
	}
	return items
}

func (f *fakeStore) Destinations(_ context.Context, q Query) ([]domain.Destination, error) {
	f.record("destinations", q)
	var out []domain.Destination
	for _, d := range f.destinations {
		if q.Field == "isFeatured" && d.IsFeatured != q.Value.(bool) {
			continue
		}
		out = append(out, d)
	}
	return limit(out, q.Limit), nil
}

func (f *fakeStore) Packages(_ context.Context, q Query) ([]domain.Package, error) {
	f.record("packages", q)
	var out []domain.Package
	for _, p := range f.packages {
		if q.Field == "isFeatured" && p.IsFeatured != q.Value.(bool) {
			continue
		}
		out = append(out, p)
	}
	return limit(out, q.Limit), nil
}

func (f *fakeStore) Listings(_ context.Context, q Query) ([]domain.CategoryListing, error) {
	f.record("listings", q)
	var out []domain.CategoryListing
	for _, l := range f.listings {
		if l.Type == q.Value {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeStore) Deals(_ context.Context, q Query) ([]domain.Deal, error) {
	f.record("deals", q)
	if f.failDeals {
		return nil, errors.New("store unavailable")
	}
	var out []domain.Deal
	for _, d := range f.deals {
		if d.IsActive {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeStore) Destination(_ context.Context, id string) (*domain.Destination, error) {
	for _, d := range f.destinations {
		if d.ID == id {
			return &d, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeStore) Package(_ context.Context, id string) (*domain.Package, error) {
	for _, p := range f.packages {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeStore) Listing(_ context.Context, id string) (*domain.CategoryListing, error) {
	for _, l := range f.listings {
		if l.ID == id {
			return &l, nil
		}
	}
	return nil, domain.ErrNotFound
}

func seededStore() *fakeStore {
	return &fakeStore{
		destinations: []domain.Destination{
			{ID: "d1", Name: "Goa", Country: "India", IsFeatured: true},
			{ID: "d2", Name: "Paris", Country: "France", IsFeatured: true},
			{ID: "d3", Name: "Manali", Country: "India"},
		},
		packages: []domain.Package{
			{ID: "p1", Title: "Maldives Escape", Category: "Honeymoon", IsFeatured: true, Price: 85000},
			{ID: "p2", Title: "Kerala Backwaters", Category: "Family"},
			{ID: "p3", Title: "Ladakh Ride", Category: "Adventure"},
			{ID: "p4", Title: "Swiss Alps", Category: "Luxury"},
			{ID: "p5", Title: "Bali Honeymoon", Category: "Honeymoon"},
		},
		listings: []domain.CategoryListing{
			{ID: "l1", Type: "hotels", Title: "Taj Fort Aguada", Arrival: "Goa"},
			{ID: "l2", Type: "flights", Title: "6E-201", Departure: "Delhi", Arrival: "Goa", Price: 4500},
		},
		deals: []domain.Deal{
			{ID: "x1", Title: "Monsoon Sale", IsActive: true},
			{ID: "x2", Title: "Expired", IsActive: false},
		},
	}
}

func newTestService(store *fakeStore) *Service {
	return NewService(store, newMemCache(), time.Minute, observability.NewNopLogger())
}

func TestService_SearchUsesCachedResultSet(t *testing.T) {
	store := seededStore()
	svc := newTestService(store)
	ctx := context.Background()

	assert.Len(t, svc.Destinations(ctx, ""), 3)
	assert.Len(t, svc.Destinations(ctx, "india"), 2)
	assert.Len(t, svc.Destinations(ctx, "par"), 1)

	assert.Equal(t, 1, store.count("destinations"), "searches must not re-query the store")
}

func TestService_PackagesCategoryChip(t *testing.T) {
	svc := newTestService(seededStore())
	ctx := context.Background()

	assert.Len(t, svc.Packages(ctx, "", "All"), 5)
	assert.Len(t, svc.Packages(ctx, "", ""), 5)
	assert.Len(t, svc.Packages(ctx, "", "honeymoon"), 2)

	got := svc.Packages(ctx, "bali", "Honeymoon")
	require.Len(t, got, 1)
	assert.Equal(t, "p5", got[0].ID)

	assert.Empty(t, svc.Packages(ctx, "ladakh", "Luxury"))
}

func TestService_CategoryQueriesByType(t *testing.T) {
	store := seededStore()
	svc := newTestService(store)

	got, err := svc.Category(context.Background(), "Hotels", "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "l1", got[0].ID)

	got, err = svc.Category(context.Background(), "flights", "delhi")
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = svc.Category(context.Background(), "spaceships", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestService_FetchFailureDegradesToEmpty(t *testing.T) {
	store := seededStore()
	store.failDeals = true
	svc := newTestService(store)

	deals := svc.Deals(context.Background(), "")
	assert.NotNil(t, deals)
	assert.Empty(t, deals)
}

func TestService_HomeFeed(t *testing.T) {
	store := seededStore()
	store.failDeals = true
	svc := newTestService(store)

	feed := svc.Home(context.Background())

	assert.Len(t, feed.FeaturedDestinations, 2)
	require.NotNil(t, feed.FeaturedPackage)
	assert.Equal(t, "p1", feed.FeaturedPackage.ID)
	assert.Len(t, feed.Packages, 3)
	assert.Empty(t, feed.Deals)
}

func TestService_Item(t *testing.T) {
	svc := newTestService(seededStore())
	ctx := context.Background()

	item, err := svc.Item(ctx, "package", "p1")
	require.NoError(t, err)
	assert.Equal(t, domain.KindPackage, item.Kind)
	assert.Equal(t, "Maldives Escape", item.Name)
	assert.True(t, item.Lodging())

	item, err = svc.Item(ctx, "flights", "l2")
	require.NoError(t, err)
	assert.False(t, item.Lodging())
	assert.Equal(t, 4500.0, item.Price)

	_, err = svc.Item(ctx, "hotels", "l2")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Item(ctx, "rockets", "l2")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Item(ctx, "destination", "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
