package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/travel-storefront/internal/domain"
	"github.com/robertarktes/travel-storefront/internal/observability"
	"golang.org/x/sync/errgroup"
)

// Query is a single field-equality lookup with an optional limit. An empty
// Field selects the whole collection.
type Query struct {
	Field string      `json:"field,omitempty"`
	Value interface{} `json:"value,omitempty"`
	Limit int64       `json:"limit,omitempty"`
}

func (q Query) cacheKey(collection string) string {
	if q.Field == "" {
		return fmt.Sprintf("catalog:%s:all:%d", collection, q.Limit)
	}
	return fmt.Sprintf("catalog:%s:%s=%v:%d", collection, q.Field, q.Value, q.Limit)
}

type Store interface {
	Destinations(ctx context.Context, q Query) ([]domain.Destination, error)
	Packages(ctx context.Context, q Query) ([]domain.Package, error)
	Listings(ctx context.Context, q Query) ([]domain.CategoryListing, error)
	Deals(ctx context.Context, q Query) ([]domain.Deal, error)

	Destination(ctx context.Context, id string) (*domain.Destination, error)
	Package(ctx context.Context, id string) (*domain.Package, error)
	Listing(ctx context.Context, id string) (*domain.CategoryListing, error)
}

type Cache interface {
	GetJSON(ctx context.Context, key string, dst interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error
}

const (
	collDestinations = "destinations"
	collPackages     = "packages"
	collCategory     = "category"
	collDeals        = "deals"
)

var CategoryTypes = []string{"flights", "hotels", "trains", "buses", "cabs", "holidays"}

var PackageCategories = []string{"Honeymoon", "Family", "Adventure", "Luxury"}

const AllPackages = "All"

type Service struct {
	store  Store
	cache  Cache
	ttl    time.Duration
	logger observability.Logger
}

func NewService(store Store, cache Cache, ttl time.Duration, logger observability.Logger) *Service {
	return &Service{store: store, cache: cache, ttl: ttl, logger: logger}
}

// load answers q from the result-set cache, falling back to the store. A store
// failure is logged and degrades to an empty list.
func load[T any](ctx context.Context, s *Service, collection string, q Query, fetch func(context.Context, Query) ([]T, error)) []T {
	key := q.cacheKey(collection)
	var items []T

	if s.cache != nil {
		hit, err := s.cache.GetJSON(ctx, key, &items)
		if err != nil {
			s.logger.WithField("key", key).WithError(err).Warn("catalog cache read failed")
		}
		if hit {
			observability.CatalogCache.WithLabelValues(collection, "hit").Inc()
			return items
		}
	}

	items, err := fetch(ctx, q)
	if err != nil {
		observability.CatalogCache.WithLabelValues(collection, "error").Inc()
		s.logger.WithField("collection", collection).WithError(err).Error("catalog fetch failed")
		return []T{}
	}
	observability.CatalogCache.WithLabelValues(collection, "miss").Inc()
	if items == nil {
		items = []T{}
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, key, items, s.ttl); err != nil {
			s.logger.WithField("key", key).WithError(err).Warn("catalog cache write failed")
		}
	}
	return items
}

func (s *Service) Destinations(ctx context.Context, term string) []domain.Destination {
	items := load(ctx, s, collDestinations, Query{}, s.store.Destinations)
	return NewView(items, destinationFields).Filter(term)
}

// Packages applies the category chip first, then the title search.
func (s *Service) Packages(ctx context.Context, term, category string) []domain.Package {
	items := load(ctx, s, collPackages, Query{}, s.store.Packages)
	view := NewView(items, packageFields)
	category = strings.TrimSpace(category)
	if category != "" && !strings.EqualFold(category, AllPackages) {
		view = view.Where(func(p domain.Package) bool {
			return strings.EqualFold(p.Category, category)
		})
	}
	return view.Filter(term)
}

func ValidCategory(typ string) (string, bool) {
	typ = strings.ToLower(strings.TrimSpace(typ))
	for _, c := range CategoryTypes {
		if c == typ {
			return typ, true
		}
	}
	return "", false
}

func (s *Service) Category(ctx context.Context, typ, term string) ([]domain.CategoryListing, error) {
	norm, ok := ValidCategory(typ)
	if !ok {
		return nil, errors.Wrapf(domain.ErrNotFound, "category %q", typ)
	}
	items := load(ctx, s, collCategory, Query{Field: "type", Value: norm}, s.store.Listings)
	return NewView(items, listingFields).Filter(term), nil
}

func (s *Service) Deals(ctx context.Context, term string) []domain.Deal {
	items := load(ctx, s, collDeals, Query{Field: "isActive", Value: true}, s.store.Deals)
	return NewView(items, dealFields).Filter(term)
}

type HomeFeed struct {
	FeaturedDestinations []domain.Destination `json:"featured_destinations"`
	FeaturedPackage      *domain.Package      `json:"featured_package"`
	Packages             []domain.Package     `json:"packages"`
	Deals                []domain.Deal        `json:"deals"`
}

// Home fetches the landing page sections concurrently. Each section degrades
// to empty on its own.
func (s *Service) Home(ctx context.Context) HomeFeed {
	var feed HomeFeed
	var featured []domain.Package

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		feed.FeaturedDestinations = load(gctx, s, collDestinations, Query{Field: "isFeatured", Value: true, Limit: 4}, s.store.Destinations)
		return nil
	})
	g.Go(func() error {
		featured = load(gctx, s, collPackages, Query{Field: "isFeatured", Value: true, Limit: 1}, s.store.Packages)
		return nil
	})
	g.Go(func() error {
		feed.Packages = load(gctx, s, collPackages, Query{Field: "isFeatured", Value: false, Limit: 3}, s.store.Packages)
		return nil
	})
	g.Go(func() error {
		feed.Deals = load(gctx, s, collDeals, Query{Field: "isActive", Value: true}, s.store.Deals)
		return nil
	})
	_ = g.Wait()

	if len(featured) > 0 {
		feed.FeaturedPackage = &featured[0]
	}
	return feed
}

func (s *Service) Destination(ctx context.Context, id string) (*domain.Destination, error) {
	d, err := s.store.Destination(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "destination %s", id)
	}
	return d, nil
}

func (s *Service) Package(ctx context.Context, id string) (*domain.Package, error) {
	p, err := s.store.Package(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "package %s", id)
	}
	return p, nil
}

// Item resolves something bookable by kind. Kinds other than destination and
// package are category listing types.
func (s *Service) Item(ctx context.Context, kind, id string) (domain.BookableItem, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case domain.KindDestination:
		d, err := s.Destination(ctx, id)
		if err != nil {
			return domain.BookableItem{}, err
		}
		return d.Bookable(), nil
	case domain.KindPackage:
		p, err := s.Package(ctx, id)
		if err != nil {
			return domain.BookableItem{}, err
		}
		return p.Bookable(), nil
	}

	typ, ok := ValidCategory(kind)
	if !ok {
		return domain.BookableItem{}, errors.Wrapf(domain.ErrInvalidInput, "unknown item kind %q", kind)
	}
	l, err := s.store.Listing(ctx, id)
	if err != nil {
		return domain.BookableItem{}, errors.Wrapf(err, "listing %s", id)
	}
	if !strings.EqualFold(l.Type, typ) {
		return domain.BookableItem{}, errors.Wrapf(domain.ErrNotFound, "listing %s is not %s", id, typ)
	}
	return l.Bookable(), nil
}
