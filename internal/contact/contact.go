package contact

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/travel-storefront/internal/domain"
	"github.com/robertarktes/travel-storefront/internal/observability"
)

type Store interface {
	InsertContact(ctx context.Context, m domain.ContactMessage) error
}

type Publisher interface {
	PublishJSON(ctx context.Context, routingKey string, v interface{}) error
}

type Service struct {
	store  Store
	pub    Publisher
	logger observability.Logger
	now    func() time.Time
}

func NewService(store Store, pub Publisher, logger observability.Logger) *Service {
	return &Service{store: store, pub: pub, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

type Request struct {
	FirstName string
	Email     string
	Message   string
}

// Submit stores the message and announces it. The announcement is fire-and-forget.
func (s *Service) Submit(ctx context.Context, req Request) (domain.ContactMessage, error) {
	m := domain.ContactMessage{
		ID:        uuid.New(),
		FirstName: strings.TrimSpace(req.FirstName),
		Email:     strings.TrimSpace(req.Email),
		Message:   strings.TrimSpace(req.Message),
		CreatedAt: s.now(),
	}
	if m.FirstName == "" || m.Email == "" || m.Message == "" {
		return domain.ContactMessage{}, domain.Prompt(domain.ErrInvalidInput, domain.PromptContactForm)
	}

	if err := s.store.InsertContact(ctx, m); err != nil {
		return domain.ContactMessage{}, errors.Wrap(err, "insert contact message")
	}

	if s.pub != nil {
		if err := s.pub.PublishJSON(ctx, domain.EventContactReceived, m); err != nil {
			s.logger.WithField("contact_id", m.ID).WithError(err).Warn("failed to publish contact message")
		}
	}
	return m, nil
}
