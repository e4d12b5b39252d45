package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/robertarktes/travel-storefront/internal/domain"
	"github.com/robertarktes/travel-storefront/internal/payment"
)

// FlowStore keeps in-progress flows. Lock returns domain.ErrConflict when
// another request holds the flow.
type FlowStore interface {
	Load(ctx context.Context, id uuid.UUID) (*domain.Flow, error)
	Save(ctx context.Context, f *domain.Flow, ttl time.Duration) error
	Delete(ctx context.Context, id uuid.UUID) error
	Lock(ctx context.Context, id uuid.UUID, ttl time.Duration) (func(), error)
}

type ItemLookup interface {
	Item(ctx context.Context, kind, id string) (domain.BookableItem, error)
}

type Gateway interface {
	KeyID() string
	CreateOrder(ctx context.Context, req payment.OrderRequest) (payment.Order, error)
	VerifyCheckout(orderID, paymentID, signature string) bool
	VerifyWebhook(body []byte, signature string) bool
}

// IntentStore is the relational ledger of payment intents. MarkCaptured is a
// conditional transition and reports whether this caller made it.
type IntentStore interface {
	CreateIntent(ctx context.Context, in domain.PaymentIntent) error
	GetIntent(ctx context.Context, id uuid.UUID) (*domain.PaymentIntent, error)
	IntentByOrder(ctx context.Context, gatewayOrderID string) (*domain.PaymentIntent, error)
	MarkCaptured(ctx context.Context, id uuid.UUID, paymentID string) (bool, error)
	MarkBooked(ctx context.Context, in domain.PaymentIntent, b domain.Booking) error
	RecordFailure(ctx context.Context, id uuid.UUID, reason string) error
	CapturedBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.PaymentIntent, error)
	ExpireCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// BookingStore returns domain.ErrConflict when a booking with the same id exists.
type BookingStore interface {
	InsertBooking(ctx context.Context, b domain.Booking) error
	GetBooking(ctx context.Context, id string) (*domain.Booking, error)
	BookingsByUser(ctx context.Context, userID uuid.UUID) ([]domain.Booking, error)
}

type Auditor interface {
	LogEvent(ctx context.Context, action string, userID uuid.UUID, data map[string]interface{}) error
}
