package booking

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robertarktes/travel-storefront/internal/domain"
	"github.com/robertarktes/travel-storefront/internal/payment"
)

type memFlows struct {
	mu     sync.Mutex
	flows  map[uuid.UUID]domain.Flow
	locked map[uuid.UUID]bool
}

func newMemFlows() *memFlows {
	return &memFlows{flows: map[uuid.UUID]domain.Flow{}, locked: map[uuid.UUID]bool{}}
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

func (m *memFlows) Lock(_ context.Context, id uuid.UUID, _ time.Duration) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locked[id] {
		return nil, domain.ErrConflict
	}
	m.locked[id] = true
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.locked, id)
	}, nil
}

type fakeItems map[string]domain.BookableItem

func (f fakeItems) Item(_ context.Context, kind, id string) (domain.BookableItem, error) {
	it, ok := f[kind+"/"+id]
	if !ok {
		return domain.BookableItem{}, domain.ErrNotFound
	}
	return it, nil
}

type fakeGateway struct {
	mu      sync.Mutex
	orders  []payment.OrderRequest
	valid   map[string]string
	hookOK  bool
	failing bool
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{valid: map[string]string{}, hookOK: true}
}

func (g *fakeGateway) KeyID() string { return "rzp_test" }

func (g *fakeGateway) CreateOrder(_ context.Context, req payment.OrderRequest) (payment.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failing {
		return payment.Order{}, errors.New("gateway down")
	}
	g.orders = append(g.orders, req)
	id := "order_" + string(rune('A'+len(g.orders)-1))
	return payment.Order{ID: id, Amount: req.Amount, Currency: req.Currency, Status: "created"}, nil
}

// sign registers a signature the fake will accept for the order/payment pair.
func (g *fakeGateway) sign(orderID, paymentID string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	sig := "sig-" + orderID + "-" + paymentID
	g.valid[orderID+"|"+paymentID] = sig
	return sig
}

func (g *fakeGateway) VerifyCheckout(orderID, paymentID, signature string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	want, ok := g.valid[orderID+"|"+paymentID]
	return ok && want == signature
}

func (g *fakeGateway) VerifyWebhook(_ []byte, signature string) bool {
	return g.hookOK && signature == "hook-sig"
}

func (g *fakeGateway) orderCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.orders)
}

type memIntents struct {
	mu       sync.Mutex
	byID     map[uuid.UUID]domain.PaymentIntent
	booked   []domain.Booking
	bookFail error
	// afterRead runs once, after the next GetIntent has taken its snapshot.
	afterRead func()
}

func newMemIntents() *memIntents {
	return &memIntents{byID: map[uuid.UUID]domain.PaymentIntent{}}
}

func (m *memIntents) CreateIntent(_ context.Context, in domain.PaymentIntent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[in.ID] = in
	return nil
}

func (m *memIntents) GetIntent(_ context.Context, id uuid.UUID) (*domain.PaymentIntent, error) {
	m.mu.Lock()
	in, ok := m.byID[id]
	hook := m.afterRead
	m.afterRead = nil
	m.mu.Unlock()
	if hook != nil {
		hook()
	}
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &in, nil
}

func (m *memIntents) IntentByOrder(_ context.Context, orderID string) (*domain.PaymentIntent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, in := range m.byID {
		if in.GatewayOrderID == orderID {
			return &in, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *memIntents) MarkCaptured(_ context.Context, id uuid.UUID, paymentID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	in, ok := m.byID[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if in.Status != domain.IntentCreated && in.Status != domain.IntentExpired {
		return false, nil
	}
	in.Status = domain.IntentCaptured
	in.PaymentID = paymentID
	m.byID[id] = in
	return true, nil
}

func (m *memIntents) MarkBooked(_ context.Context, in domain.PaymentIntent, b domain.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bookFail != nil {
		return m.bookFail
	}
	cur := m.byID[in.ID]
	if cur.Status != domain.IntentCaptured {
		return domain.ErrConflict
	}
	cur.Status = domain.IntentBooked
	m.byID[in.ID] = cur
	m.booked = append(m.booked, b)
	return nil
}

func (m *memIntents) RecordFailure(_ context.Context, id uuid.UUID, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	in := m.byID[id]
	in.Attempts++
	in.LastError = reason
	m.byID[id] = in
	return nil
}

func (m *memIntents) CapturedBefore(_ context.Context, cutoff time.Time, limit int) ([]domain.PaymentIntent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.PaymentIntent
	for _, in := range m.byID {
		if in.Status == domain.IntentCaptured && in.UpdatedAt.Before(cutoff) {
			out = append(out, in)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memIntents) ExpireCreatedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, in := range m.byID {
		if in.Status == domain.IntentCreated && in.CreatedAt.Before(cutoff) {
			in.Status = domain.IntentExpired
			m.byID[id] = in
			n++
		}
	}
	return n, nil
}

func (m *memIntents) status(id uuid.UUID) domain.IntentStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.byID[id].Status
}

type memBookings struct {
	mu      sync.Mutex
	byID    map[string]domain.Booking
	writes  int
	failing error
}

func newMemBookings() *memBookings {
	return &memBookings{byID: map[string]domain.Booking{}}
}

func (m *memBookings) InsertBooking(_ context.Context, b domain.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing != nil {
		return m.failing
	}
	if _, ok := m.byID[b.ID]; ok {
		return domain.ErrConflict
	}
	m.byID[b.ID] = b
	m.writes++
	return nil
}

func (m *memBookings) GetBooking(_ context.Context, id string) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &b, nil
}

func (m *memBookings) BookingsByUser(_ context.Context, userID uuid.UUID) ([]domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Booking
	for _, b := range m.byID {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memBookings) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

type nopAuditor struct{}

func (nopAuditor) LogEvent(context.Context, string, uuid.UUID, map[string]interface{}) error {
	return nil
}
