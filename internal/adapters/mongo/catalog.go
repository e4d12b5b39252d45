package mongo

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/travel-storefront/internal/catalog"
	"github.com/robertarktes/travel-storefront/internal/domain"
	"github.com/robertarktes/travel-storefront/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CatalogRepository reads the storefront collections. Every list query is a
// single field equality with an optional limit.
type CatalogRepository struct {
	destinations *mongo.Collection
	packages     *mongo.Collection
	listings     *mongo.Collection
	deals        *mongo.Collection
	logger       observability.Logger
}

func NewCatalogRepository(db *mongo.Database, logger observability.Logger) *CatalogRepository {
	return &CatalogRepository{
		destinations: db.Collection("destinations"),
		packages:     db.Collection("packages"),
		listings:     db.Collection("category"),
		deals:        db.Collection("deals"),
		logger:       logger,
	}
}

func findAll[D any, T any](ctx context.Context, coll *mongo.Collection, q catalog.Query, conv func(D) T) ([]T, error) {
	filter := bson.M{}
	if q.Field != "" {
		filter[q.Field] = q.Value
	}
	opts := options.Find()
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}

	cur, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "find %s", coll.Name())
	}
	var docs []D
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrapf(err, "decode %s", coll.Name())
	}
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		out = append(out, conv(d))
	}
	return out, nil
}

func findOne[D any](ctx context.Context, coll *mongo.Collection, id string) (*D, error) {
	var doc D
	err := coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "find %s %s", coll.Name(), id)
	}
	return &doc, nil
}

func (c *CatalogRepository) Destinations(ctx context.Context, q catalog.Query) ([]domain.Destination, error) {
	return findAll(ctx, c.destinations, q, destinationDoc.toDomain)
}

func (c *CatalogRepository) Packages(ctx context.Context, q catalog.Query) ([]domain.Package, error) {
	return findAll(ctx, c.packages, q, packageDoc.toDomain)
}

func (c *CatalogRepository) Listings(ctx context.Context, q catalog.Query) ([]domain.CategoryListing, error) {
	return findAll(ctx, c.listings, q, listingDoc.toDomain)
}

func (c *CatalogRepository) Deals(ctx context.Context, q catalog.Query) ([]domain.Deal, error) {
	return findAll(ctx, c.deals, q, dealDoc.toDomain)
}

func (c *CatalogRepository) Destination(ctx context.Context, id string) (*domain.Destination, error) {
	doc, err := findOne[destinationDoc](ctx, c.destinations, id)
	if err != nil {
		return nil, err
	}
	d := doc.toDomain()
	return &d, nil
}

func (c *CatalogRepository) Package(ctx context.Context, id string) (*domain.Package, error) {
	doc, err := findOne[packageDoc](ctx, c.packages, id)
	if err != nil {
		return nil, err
	}
	p := doc.toDomain()
	return &p, nil
}

func (c *CatalogRepository) Listing(ctx context.Context, id string) (*domain.CategoryListing, error) {
	doc, err := findOne[listingDoc](ctx, c.listings, id)
	if err != nil {
		return nil, err
	}
	l := doc.toDomain()
	return &l, nil
}

func upsert(ctx context.Context, coll *mongo.Collection, id string, doc interface{}) error {
	_, err := coll.ReplaceOne(ctx, bson.M{"_id": id}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return errors.Wrapf(err, "upsert %s %s", coll.Name(), id)
	}
	return nil
}

// The Upsert methods back out-of-band catalog editing from the operator CLI.

func (c *CatalogRepository) UpsertDestination(ctx context.Context, d domain.Destination) error {
	return upsert(ctx, c.destinations, d.ID, destinationDoc(d))
}

func (c *CatalogRepository) UpsertPackage(ctx context.Context, p domain.Package) error {
	return upsert(ctx, c.packages, p.ID, packageDoc(p))
}

func (c *CatalogRepository) UpsertListing(ctx context.Context, l domain.CategoryListing) error {
	return upsert(ctx, c.listings, l.ID, listingDoc(l))
}

func (c *CatalogRepository) UpsertDeal(ctx context.Context, d domain.Deal) error {
	return upsert(ctx, c.deals, d.ID, dealDoc(d))
}
