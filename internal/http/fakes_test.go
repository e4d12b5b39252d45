package http

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/travel-storefront/internal/catalog"
	"github.com/robertarktes/travel-storefront/internal/domain"
	"github.com/robertarktes/travel-storefront/internal/idempotency"
	"github.com/robertarktes/travel-storefront/internal/payment"
)

type fakeCatalog struct {
	destinations []domain.Destination
	packages     []domain.Package
	listings     []domain.CategoryListing
	deals        []domain.Deal
}

func (f *fakeCatalog) Destinations(context.Context, catalog.Query) ([]domain.Destination, error) {
	return f.destinations, nil
}

func (f *fakeCatalog) Packages(context.Context, catalog.Query) ([]domain.Package, error) {
	return f.packages, nil
}

func (f *fakeCatalog) Listings(_ context.Context, q catalog.Query) ([]domain.CategoryListing, error) {
	var out []domain.CategoryListing
	for _, l := range f.listings {
		if q.Field != "type" || l.Type == q.Value {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeCatalog) Deals(context.Context, catalog.Query) ([]domain.Deal, error) {
	return f.deals, nil
}

func (f *fakeCatalog) Destination(_ context.Context, id string) (*domain.Destination, error) {
	for _, d := range f.destinations {
		if d.ID == id {
			return &d, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeCatalog) Package(_ context.Context, id string) (*domain.Package, error) {
	for _, p := range f.packages {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeCatalog) Listing(_ context.Context, id string) (*domain.CategoryListing, error) {
	for _, l := range f.listings {
		if l.ID == id {
			return &l, nil
		}
	}
	return nil, domain.ErrNotFound
}

type memFlows struct {
	mu    sync.Mutex
	flows map[uuid.UUID]domain.Flow
	// busy makes the next Lock calls fail as if another request held the flow.
	busy int
}

func (m *memFlows) Load(_ context.Context, id uuid.UUID) (*domain.Flow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.flows[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &f, nil
}

func (m *memFlows) Save(_ context.Context, f *domain.Flow, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flows[f.ID] = *f
	return nil
}

func (m *memFlows) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.flows, id)
	return nil
}

func (m *memFlows) Lock(context.Context, uuid.UUID, time.Duration) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.busy > 0 {
		m.busy--
		return nil, domain.ErrConflict
	}
	return func() {}, nil
}

// stubGateway accepts the signature "valid" for any order it created.
type stubGateway struct {
	mu     sync.Mutex
	orders int
}

func (g *stubGateway) KeyID() string { return "rzp_test_key" }

func (g *stubGateway) CreateOrder(_ context.Context, req payment.OrderRequest) (payment.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.orders++
	return payment.Order{ID: "order_" + uuid.NewString()[:8], Amount: req.Amount, Currency: req.Currency, Status: "created"}, nil
}

func (g *stubGateway) VerifyCheckout(_, _, signature string) bool { return signature == "valid" }

func (g *stubGateway) VerifyWebhook(_ []byte, signature string) bool { return signature == "valid" }

type memLedger struct {
	mu       sync.Mutex
	intents  map[uuid.UUID]domain.PaymentIntent
	bookings map[string]domain.Booking
	reads    int
	// insertFailures fails that many booking writes before accepting them.
	insertFailures int
}

func newMemLedger() *memLedger {
	return &memLedger{intents: map[uuid.UUID]domain.PaymentIntent{}, bookings: map[string]domain.Booking{}}
}

func (m *memLedger) CreateIntent(_ context.Context, in domain.PaymentIntent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.intents[in.ID] = in
	return nil
}

func (m *memLedger) GetIntent(_ context.Context, id uuid.UUID) (*domain.PaymentIntent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	in, ok := m.intents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &in, nil
}

func (m *memLedger) IntentByOrder(_ context.Context, orderID string) (*domain.PaymentIntent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, in := range m.intents {
		if in.GatewayOrderID == orderID {
			return &in, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memLedger) MarkCaptured(_ context.Context, id uuid.UUID, paymentID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	in := m.intents[id]
	if in.Status != domain.IntentCreated && in.Status != domain.IntentExpired {
		return false, nil
	}
	in.Status = domain.IntentCaptured
	in.PaymentID = paymentID
	m.intents[id] = in
	return true, nil
}

func (m *memLedger) MarkBooked(_ context.Context, in domain.PaymentIntent, _ domain.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur := m.intents[in.ID]
	cur.Status = domain.IntentBooked
	m.intents[in.ID] = cur
	return nil
}

func (m *memLedger) RecordFailure(context.Context, uuid.UUID, string) error { return nil }

func (m *memLedger) CapturedBefore(context.Context, time.Time, int) ([]domain.PaymentIntent, error) {
	return nil, nil
}

func (m *memLedger) ExpireCreatedBefore(context.Context, time.Time) (int64, error) { return 0, nil }

func (m *memLedger) InsertBooking(_ context.Context, b domain.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertFailures > 0 {
		m.insertFailures--
		return errors.New("bookings store unavailable")
	}
	if _, ok := m.bookings[b.ID]; ok {
		return domain.ErrConflict
	}
	m.bookings[b.ID] = b
	return nil
}

func (m *memLedger) GetBooking(_ context.Context, id string) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &b, nil
}

func (m *memLedger) BookingsByUser(_ context.Context, userID uuid.UUID) ([]domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	var out []domain.Booking
	for _, b := range m.bookings {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memLedger) bookingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bookings)
}

type memUsers struct {
	mu    sync.Mutex
	users map[string]domain.User
}

func (m *memUsers) CreateUser(_ context.Context, u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.Email]; ok {
		return domain.ErrConflict
	}
	m.users[u.Email] = u
	return nil
}

func (m *memUsers) UserByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

type memKV struct {
	mu      sync.Mutex
	revoked map[string]bool
	themes  map[string]bool
	idem    map[string]idempotency.Response
	held    map[string]bool
}

func newMemKV() *memKV {
	return &memKV{revoked: map[string]bool{}, themes: map[string]bool{}, idem: map[string]idempotency.Response{}, held: map[string]bool{}}
}

func (m *memKV) Revoke(_ context.Context, tokenID string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[tokenID] = true
	return nil
}

func (m *memKV) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.revoked[tokenID], nil
}

func (m *memKV) GetTheme(_ context.Context, key string) (bool, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	dark, ok := m.themes[key]
	return dark, ok, nil
}

func (m *memKV) SetTheme(_ context.Context, key string, dark bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.themes[key] = dark
	return nil
}

func (m *memKV) Get(_ context.Context, key string) (*idempotency.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.idem[key]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *memKV) Set(_ context.Context, key string, resp idempotency.Response, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.idem[key] = resp
	return nil
}

func (m *memKV) Reserve(_ context.Context, key string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[key] {
		return false, nil
	}
	m.held[key] = true
	return true, nil
}

func (m *memKV) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, key)
	return nil
}

type memContacts struct {
	mu   sync.Mutex
	msgs []domain.ContactMessage
}

func (m *memContacts) InsertContact(_ context.Context, msg domain.ContactMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, msg)
	return nil
}
