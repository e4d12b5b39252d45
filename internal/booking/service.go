package booking

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/robertarktes/travel-storefront/internal/domain"
	"github.com/robertarktes/travel-storefront/internal/observability"
	"github.com/robertarktes/travel-storefront/internal/payment"
)

const (
	lockTTL            = 10 * time.Second
	settleRereads      = 3
	checkoutName       = "Travel Booking"
	checkoutDesc       = "Travel Booking Payment"
	checkoutThemeColor = "#1d4ed8"
)

type Options struct {
	BaseRate float64
	Currency string
	FlowTTL  time.Duration
	// SettleWait is the pause between re-reads of an intent another caller
	// is still booking.
	SettleWait time.Duration
}

type Service struct {
	flows    FlowStore
	items    ItemLookup
	gateway  Gateway
	intents  IntentStore
	bookings BookingStore
	audit    Auditor
	logger   observability.Logger
	opts     Options
	now      func() time.Time
}

func NewService(flows FlowStore, items ItemLookup, gateway Gateway, intents IntentStore, bookings BookingStore, audit Auditor, logger observability.Logger, opts Options) *Service {
	if opts.BaseRate <= 0 {
		opts.BaseRate = domain.DefaultBaseRate
	}
	if opts.Currency == "" {
		opts.Currency = "INR"
	}
	if opts.FlowTTL <= 0 {
		opts.FlowTTL = 30 * time.Minute
	}
	if opts.SettleWait <= 0 {
		opts.SettleWait = 150 * time.Millisecond
	}
	return &Service{
		flows:    flows,
		items:    items,
		gateway:  gateway,
		intents:  intents,
		bookings: bookings,
		audit:    audit,
		logger:   logger,
		opts:     opts,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type StartRequest struct {
	Kind string
	ID   string
}

// StartFlow looks the item up once and snapshots it into a new flow.
func (s *Service) StartFlow(ctx context.Context, req StartRequest, caller uuid.UUID) (*domain.Flow, error) {
	item, err := s.items.Item(ctx, req.Kind, req.ID)
	if err != nil {
		return nil, err
	}
	if item.Currency == "" {
		item.Currency = s.opts.Currency
	}

	now := s.now()
	f := domain.NewFlow(s.opts.BaseRate, now)
	if caller != uuid.Nil {
		if err := f.Claim(caller); err != nil {
			return nil, err
		}
	}
	if err := f.Select(item, now); err != nil {
		return nil, err
	}
	if err := s.flows.Save(ctx, f, s.opts.FlowTTL); err != nil {
		return nil, errors.Wrap(err, "save flow")
	}
	return f, nil
}

func (s *Service) GetFlow(ctx context.Context, id, caller uuid.UUID) (*domain.Flow, error) {
	f, err := s.flows.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := canAccess(f, caller); err != nil {
		return nil, err
	}
	return f, nil
}

// A flow nobody has claimed yet is reachable by anyone holding its id.
func canAccess(f *domain.Flow, caller uuid.UUID) error {
	if f.OwnerID != uuid.Nil && f.OwnerID != caller {
		return domain.ErrForbidden
	}
	return nil
}

// mutate serialises changes to one flow behind its lock.
func (s *Service) mutate(ctx context.Context, id, caller uuid.UUID, fn func(f *domain.Flow, now time.Time) error) (*domain.Flow, error) {
	release, err := s.flows.Lock(ctx, id, lockTTL)
	if err != nil {
		return nil, err
	}
	defer release()

	f, err := s.flows.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := canAccess(f, caller); err != nil {
		return nil, err
	}
	if err := fn(f, s.now()); err != nil {
		return f, err
	}
	if err := s.flows.Save(ctx, f, s.opts.FlowTTL); err != nil {
		return nil, errors.Wrap(err, "save flow")
	}
	return f, nil
}

func (s *Service) AdjustTravelers(ctx context.Context, id, caller uuid.UUID, counter domain.Counter, increment bool) (*domain.Flow, error) {
	return s.mutate(ctx, id, caller, func(f *domain.Flow, now time.Time) error {
		return f.Adjust(counter, increment, now)
	})
}

// TravelerInput updates only the fields that are set.
type TravelerInput struct {
	Adults   *int
	Children *int
	Rooms    *int
	Date     *time.Time
}

// merge overlays the set fields of in on the flow's current selection.
func (in TravelerInput) merge(cur domain.TravelerSelection) (domain.TravelerSelection, *time.Time) {
	if in.Adults != nil {
		cur.Adults = *in.Adults
	}
	if in.Children != nil {
		cur.Children = *in.Children
	}
	if in.Rooms != nil {
		cur.Rooms = *in.Rooms
	}
	date := cur.Date
	if in.Date != nil {
		date = in.Date
	}
	return cur, date
}

func (s *Service) SetTravelers(ctx context.Context, id, caller uuid.UUID, in TravelerInput) (*domain.Flow, error) {
	return s.mutate(ctx, id, caller, func(f *domain.Flow, now time.Time) error {
		sel, date := in.merge(f.Travelers)
		return f.SetTravelers(sel.Adults, sel.Children, sel.Rooms, date, now)
	})
}

func (s *Service) Proceed(ctx context.Context, id, caller uuid.UUID) (*domain.Flow, error) {
	return s.mutate(ctx, id, caller, func(f *domain.Flow, now time.Time) error {
		return f.Proceed(now)
	})
}

// SubmitPaymentInfo needs a signed-in traveler; an anonymous flow is claimed here.
func (s *Service) SubmitPaymentInfo(ctx context.Context, id, caller uuid.UUID, contact domain.ContactDetails, method domain.PaymentMethod) (*domain.Flow, error) {
	if caller == uuid.Nil {
		return nil, domain.ErrUnauthenticated
	}
	return s.mutate(ctx, id, caller, func(f *domain.Flow, now time.Time) error {
		if err := f.Claim(caller); err != nil {
			return err
		}
		return f.EnterPaymentInfo(contact, method, now)
	})
}

func (s *Service) Abandon(ctx context.Context, id, caller uuid.UUID) error {
	release, err := s.flows.Lock(ctx, id, lockTTL)
	if err != nil {
		return err
	}
	defer release()

	f, err := s.flows.Load(ctx, id)
	if err != nil {
		return err
	}
	if err := canAccess(f, caller); err != nil {
		return err
	}
	// An in-flight flow stays so the success callback can still confirm it.
	if f.State == domain.StatePaymentInFlight {
		return domain.ErrFlowClosed
	}
	return s.flows.Delete(ctx, id)
}

type Prefill struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact"`
}

// Checkout is everything the hosted payment widget needs to open.
type Checkout struct {
	FlowID      uuid.UUID       `json:"flow_id"`
	Key         string          `json:"key"`
	OrderID     string          `json:"order_id"`
	Amount      int64           `json:"amount"`
	Currency    string          `json:"currency"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Image       string          `json:"image,omitempty"`
	Prefill     Prefill         `json:"prefill"`
	Method      map[string]bool `json:"method"`
	ThemeColor  string          `json:"theme_color"`
	Display     string          `json:"display_total"`
}

func (s *Service) checkout(f *domain.Flow) Checkout {
	c := Checkout{
		FlowID:      f.ID,
		Key:         s.gateway.KeyID(),
		OrderID:     f.GatewayOrderID,
		Amount:      domain.ToMinorUnits(f.Total()),
		Currency:    f.Currency(),
		Name:        checkoutName,
		Description: checkoutDesc,
		Prefill:     Prefill{Name: f.Contact.Name, Email: f.Contact.Email, Contact: f.Contact.Phone},
		Method:      map[string]bool{},
		ThemeColor:  checkoutThemeColor,
		Display:     domain.FormatPrice(f.Total(), f.Currency()),
	}
	if f.Item != nil {
		c.Name = f.Item.Name
		c.Image = f.Item.Img
	}
	if f.Method != "" && f.Method != domain.MethodAll {
		c.Method[string(f.Method)] = true
	}
	return c
}

// InitiatePayment opens one gateway order per flow. Repeating the call while the
// payment is in flight hands back the same order.
func (s *Service) InitiatePayment(ctx context.Context, id, caller uuid.UUID) (Checkout, error) {
	if caller == uuid.Nil {
		return Checkout{}, domain.ErrUnauthenticated
	}

	var out Checkout
	_, err := s.mutate(ctx, id, caller, func(f *domain.Flow, now time.Time) error {
		if err := f.Claim(caller); err != nil {
			return err
		}
		switch f.State {
		case domain.StatePaymentInFlight:
			out = s.checkout(f)
			return nil
		case domain.StatePaymentInfoEntered:
		case domain.StateConfirmed:
			return domain.ErrFlowClosed
		default:
			return domain.ErrInvalidTransition
		}

		amount := domain.ToMinorUnits(f.Total())
		order, err := s.gateway.CreateOrder(ctx, payment.OrderRequest{
			Amount:   amount,
			Currency: f.Currency(),
			Receipt:  f.ID.String(),
			Notes:    map[string]string{"flow_id": f.ID.String(), "user_id": caller.String()},
		})
		if err != nil {
			return errors.Wrap(err, "create gateway order")
		}

		intent := domain.PaymentIntent{
			ID:             uuid.New(),
			FlowID:         f.ID,
			UserID:         caller,
			GatewayOrderID: order.ID,
			Amount:         amount,
			Currency:       f.Currency(),
			Status:         domain.IntentCreated,
			Draft:          f.Draft(),
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := s.intents.CreateIntent(ctx, intent); err != nil {
			return errors.Wrap(err, "create payment intent")
		}
		if err := f.BeginPayment(intent.ID, order.ID, now); err != nil {
			return err
		}
		out = s.checkout(f)
		return nil
	})
	if err != nil {
		return Checkout{}, err
	}
	return out, nil
}

type Callback struct {
	OrderID   string
	PaymentID string
	Signature string
}

type Confirmation struct {
	FlowID    uuid.UUID `json:"flow_id"`
	BookingID string    `json:"booking_id"`
	PaymentID string    `json:"payment_id"`
	Total     float64   `json:"total_price"`
	Currency  string    `json:"currency"`
	Display   string    `json:"display_total"`
}

func confirmationOf(f *domain.Flow) Confirmation {
	return Confirmation{
		FlowID:    f.ID,
		BookingID: f.BookingID,
		PaymentID: f.PaymentID,
		Total:     f.Total(),
		Currency:  f.Currency(),
		Display:   domain.FormatPrice(f.Total(), f.Currency()),
	}
}

// HandlePaymentSuccess is the widget's success callback. Nothing is written
// before the signature checks out, and a confirmed flow answers repeats with
// its stored confirmation.
func (s *Service) HandlePaymentSuccess(ctx context.Context, id, caller uuid.UUID, cb Callback) (Confirmation, error) {
	if caller == uuid.Nil {
		return Confirmation{}, domain.ErrUnauthenticated
	}

	var out Confirmation
	_, err := s.mutate(ctx, id, caller, func(f *domain.Flow, now time.Time) error {
		switch f.State {
		case domain.StateConfirmed:
			out = confirmationOf(f)
			return nil
		case domain.StatePaymentInFlight:
		default:
			return domain.ErrInvalidTransition
		}

		if cb.OrderID != f.GatewayOrderID || !s.gateway.VerifyCheckout(cb.OrderID, cb.PaymentID, cb.Signature) {
			observability.PaymentCallbacks.WithLabelValues("callback", "unverified").Inc()
			return domain.ErrPaymentUnverified
		}

		b, err := s.settle(ctx, cb.OrderID, cb.PaymentID, "callback")
		if err != nil {
			return err
		}
		if err := f.Confirm(b.ID, b.PaymentID, now); err != nil {
			return err
		}
		out = confirmationOf(f)
		return nil
	})
	if err != nil {
		return Confirmation{}, err
	}
	return out, nil
}

// HandleWebhook covers payments whose widget callback never reached us.
// Unknown orders and non-capture events are acknowledged and ignored.
func (s *Service) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if !s.gateway.VerifyWebhook(body, signature) {
		observability.PaymentCallbacks.WithLabelValues("webhook", "unverified").Inc()
		return domain.ErrPaymentUnverified
	}
	ev, err := payment.ParseWebhook(body)
	if err != nil {
		return errors.Wrapf(domain.ErrInvalidInput, "%v", err)
	}
	log := s.logger.WithField("event", ev.Event).WithField("order_id", ev.OrderID)
	if !ev.Captures() {
		log.Debug("ignoring webhook event")
		return nil
	}

	b, err := s.settle(ctx, ev.OrderID, ev.PaymentID, "webhook")
	switch {
	case errors.Is(err, domain.ErrNotFound):
		log.Warn("webhook for unknown order")
		return nil
	case errors.Is(err, domain.ErrBookingPending):
		log.WithError(err).Warn("booking pending after webhook")
		return nil
	case err != nil:
		return err
	}

	s.ConfirmFlow(ctx, b)
	return nil
}

// ConfirmFlow moves the traveler's flow to Confirmed when the booking was
// completed outside the callback path. Best effort: the booking is already durable.
func (s *Service) ConfirmFlow(ctx context.Context, b *domain.Booking) {
	log := s.logger.WithField("booking_id", b.ID)
	intentID, err := uuid.Parse(b.ID)
	if err != nil {
		log.WithError(err).Warn("booking id is not an intent id, flow left as is")
		return
	}
	in, err := s.intents.GetIntent(ctx, intentID)
	if err != nil {
		log.WithError(err).Warn("intent lookup failed, flow left as is")
		return
	}
	log = log.WithField("flow_id", in.FlowID)
	release, err := s.flows.Lock(ctx, in.FlowID, lockTTL)
	if err != nil {
		// The holder is usually the widget callback, which confirms the flow itself.
		log.WithError(err).Warn("flow busy, confirmation left to the holder")
		return
	}
	defer release()

	f, err := s.flows.Load(ctx, in.FlowID)
	if err != nil {
		log.WithError(err).Debug("flow gone before confirmation")
		return
	}
	if f.State != domain.StatePaymentInFlight {
		return
	}
	if err := f.Confirm(b.ID, b.PaymentID, s.now()); err != nil {
		log.WithError(err).Warn("flow refused confirmation")
		return
	}
	if err := s.flows.Save(ctx, f, s.opts.FlowTTL); err != nil {
		log.WithError(err).Warn("failed to save confirmed flow")
	}
}

// awaitBooked re-reads an intent that another caller captured, giving that
// caller a short window to finish the booking write.
func (s *Service) awaitBooked(ctx context.Context, id uuid.UUID) (*domain.PaymentIntent, error) {
	current, err := s.intents.GetIntent(ctx, id)
	for i := 0; i < settleRereads && err == nil && current.Status == domain.IntentCaptured; i++ {
		select {
		case <-ctx.Done():
			return current, nil
		case <-time.After(s.opts.SettleWait):
		}
		current, err = s.intents.GetIntent(ctx, id)
	}
	return current, err
}

// settle runs the two-phase confirmation for a verified payment. Only the caller
// that moves the intent to CAPTURED writes the booking; everyone else either
// reads the finished booking or is told it is pending.
func (s *Service) settle(ctx context.Context, orderID, paymentID, source string) (*domain.Booking, error) {
	in, err := s.intents.IntentByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if in.Status == domain.IntentBooked {
		observability.PaymentCallbacks.WithLabelValues(source, "duplicate").Inc()
		return s.bookings.GetBooking(ctx, in.ID.String())
	}

	won, err := s.intents.MarkCaptured(ctx, in.ID, paymentID)
	if err != nil {
		return nil, errors.Wrap(err, "mark intent captured")
	}
	if !won {
		observability.PaymentCallbacks.WithLabelValues(source, "duplicate").Inc()
		current, err := s.awaitBooked(ctx, in.ID)
		if err != nil {
			return nil, err
		}
		if current.Status == domain.IntentBooked {
			return s.bookings.GetBooking(ctx, in.ID.String())
		}
		return nil, domain.Prompt(domain.ErrBookingPending, domain.PromptBookingFailed)
	}

	in.Status = domain.IntentCaptured
	in.PaymentID = paymentID
	b, err := s.Complete(ctx, *in)
	if err != nil {
		observability.PaymentCallbacks.WithLabelValues(source, "booking_failed").Inc()
		s.logger.WithField("intent_id", in.ID).WithField("payment_id", paymentID).WithError(err).Error("payment captured but booking write failed")
		if rerr := s.intents.RecordFailure(ctx, in.ID, err.Error()); rerr != nil {
			s.logger.WithField("intent_id", in.ID).WithError(rerr).Error("failed to record booking failure")
		}
		return nil, domain.Prompt(domain.ErrBookingPending, domain.PromptBookingFailed)
	}
	observability.PaymentCallbacks.WithLabelValues(source, "booked").Inc()
	return b, nil
}

// Complete writes the booking for a CAPTURED intent and closes the intent. The
// booking id is the intent id, so a retry after a partial failure never writes twice.
func (s *Service) Complete(ctx context.Context, in domain.PaymentIntent) (*domain.Booking, error) {
	if in.Status != domain.IntentCaptured {
		return nil, errors.Wrapf(domain.ErrInvalidTransition, "intent %s is %s", in.ID, in.Status)
	}

	b := in.Draft
	b.ID = in.ID.String()
	b.UserID = in.UserID
	b.PaymentID = in.PaymentID
	b.Status = domain.BookingStatusConfirmed
	b.CreatedAt = s.now()
	if b.Currency == "" {
		b.Currency = in.Currency
	}

	if err := s.bookings.InsertBooking(ctx, b); err != nil && !errors.Is(err, domain.ErrConflict) {
		return nil, errors.Wrap(err, "insert booking")
	}
	if err := s.intents.MarkBooked(ctx, in, b); err != nil {
		if errors.Is(err, domain.ErrConflict) && s.alreadyBooked(ctx, in.ID) {
			if stored, gerr := s.bookings.GetBooking(ctx, b.ID); gerr == nil {
				return stored, nil
			}
			return &b, nil
		}
		return nil, errors.Wrap(err, "mark intent booked")
	}

	observability.BookingsConfirmed.Inc()
	if s.audit != nil {
		if err := s.audit.LogEvent(ctx, "booking.confirmed", b.UserID, map[string]interface{}{
			"booking_id":  b.ID,
			"payment_id":  b.PaymentID,
			"order_id":    in.GatewayOrderID,
			"total_price": b.TotalPrice,
		}); err != nil {
			s.logger.WithField("booking_id", b.ID).WithError(err).Warn("audit write failed")
		}
	}
	return &b, nil
}

// alreadyBooked covers a caller that lost the race to close the intent; the
// winner has already counted and audited the booking.
func (s *Service) alreadyBooked(ctx context.Context, id uuid.UUID) bool {
	current, err := s.intents.GetIntent(ctx, id)
	return err == nil && current.Status == domain.IntentBooked
}

func (s *Service) ListBookings(ctx context.Context, caller uuid.UUID) ([]domain.Booking, error) {
	if caller == uuid.Nil {
		return nil, domain.ErrUnauthenticated
	}
	list, err := s.bookings.BookingsByUser(ctx, caller)
	if err != nil {
		return nil, errors.Wrap(err, "list bookings")
	}
	if list == nil {
		list = []domain.Booking{}
	}
	return list, nil
}

func (s *Service) GetBooking(ctx context.Context, caller uuid.UUID, id string) (*domain.Booking, error) {
	if caller == uuid.Nil {
		return nil, domain.ErrUnauthenticated
	}
	b, err := s.bookings.GetBooking(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	if b.UserID != caller {
		return nil, domain.ErrForbidden
	}
	return b, nil
}
