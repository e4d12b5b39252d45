package mongo

import (
	"context"

	"github.com/robertarktes/travel-storefront/internal/domain"
	"go.mongodb.org/mongo-driver/mongo"
)

type ContactRepository struct {
	coll *mongo.Collection
}

func NewContactRepository(db *mongo.Database) *ContactRepository {
	return &ContactRepository{coll: db.Collection("contacts")}
}

func (r *ContactRepository) InsertContact(ctx context.Context, m domain.ContactMessage) error {
	_, err := r.coll.InsertOne(ctx, contactDoc{
		ID:        m.ID.String(),
		FirstName: m.FirstName,
		Email:     m.Email,
		Message:   m.Message,
		CreatedAt: m.CreatedAt,
	})
	return err
}
