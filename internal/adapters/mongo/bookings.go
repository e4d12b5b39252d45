package mongo

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/travel-storefront/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type BookingRepository struct {
	coll *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	return &BookingRepository{coll: db.Collection("bookings")}
}

// EnsureIndexes creates the history index. Safe to call on every start.
func (r *BookingRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	return err
}

// InsertBooking returns domain.ErrConflict when the id is taken, which is how a
// retried completion recognises its own earlier write.
func (r *BookingRepository) InsertBooking(ctx context.Context, b domain.Booking) error {
	_, err := r.coll.InsertOne(ctx, bookingFromDomain(b))
	if mongo.IsDuplicateKeyError(err) {
		return errors.Wrapf(domain.ErrConflict, "booking %s", b.ID)
	}
	return err
}

func (r *BookingRepository) GetBooking(ctx context.Context, id string) (*domain.Booking, error) {
	doc, err := findOne[bookingDoc](ctx, r.coll, id)
	if err != nil {
		return nil, err
	}
	b := doc.toDomain()
	return &b, nil
}

func (r *BookingRepository) BookingsByUser(ctx context.Context, userID uuid.UUID) ([]domain.Booking, error) {
	cur, err := r.coll.Find(ctx, bson.M{"userId": userID.String()},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, errors.Wrap(err, "find bookings")
	}
	var docs []bookingDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decode bookings")
	}
	out := make([]domain.Booking, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}
