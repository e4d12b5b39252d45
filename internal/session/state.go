package session

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/travel-storefront/internal/auth"
	"github.com/robertarktes/travel-storefront/internal/booking"
	"github.com/robertarktes/travel-storefront/internal/catalog"
	"github.com/robertarktes/travel-storefront/internal/config"
	"github.com/robertarktes/travel-storefront/internal/contact"
	"github.com/robertarktes/travel-storefront/internal/observability"
)

// State is the application-wide state built once in main and handed to the
// HTTP layer. Close tears down every registered resource exactly once.
type State struct {
	Config      *config.Config
	Logger      observability.Logger
	Catalog     *catalog.Service
	Bookings    *booking.Service
	Auth        *auth.Service
	Contact     *contact.Service
	Preferences *Preferences

	mu      sync.Mutex
	closers []func(context.Context) error
	once    sync.Once
	err     error
}

// OnClose registers a teardown step. Steps run in reverse registration order.
func (s *State) OnClose(fn func(context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closers = append(s.closers, fn)
}

func (s *State) Close(ctx context.Context) error {
	s.once.Do(func() {
		s.mu.Lock()
		closers := s.closers
		s.closers = nil
		s.mu.Unlock()

		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](ctx); err != nil {
				s.err = errors.CombineErrors(s.err, err)
			}
		}
	})
	return s.err
}
