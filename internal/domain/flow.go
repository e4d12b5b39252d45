package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type FlowState string

const (
	StateBrowsing               FlowState = "BROWSING"
	StateDetailSelected         FlowState = "DETAIL_SELECTED"
	StateTravelerDetailsEntered FlowState = "TRAVELER_DETAILS_ENTERED"
	StatePaymentInfoEntered     FlowState = "PAYMENT_INFO_ENTERED"
	StatePaymentInFlight        FlowState = "PAYMENT_IN_FLIGHT"
	StateConfirmed              FlowState = "CONFIRMED"
)

type PaymentMethod string

const (
	MethodAll        PaymentMethod = "all"
	MethodUPI        PaymentMethod = "upi"
	MethodCard       PaymentMethod = "card"
	MethodNetbanking PaymentMethod = "netbanking"
)

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return MethodAll, nil
	case MethodAll, MethodUPI, MethodCard, MethodNetbanking:
		return m, nil
	}
	return "", ErrInvalidInput
}

type ContactDetails struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

func (c ContactDetails) Complete() bool {
	return strings.TrimSpace(c.Name) != "" &&
		strings.TrimSpace(c.Email) != "" &&
		strings.TrimSpace(c.Phone) != ""
}

// Flow is one traveler's walk from item selection to a confirmed booking.
// Transitions are only made through its methods.
type Flow struct {
	ID             uuid.UUID         `json:"id"`
	OwnerID        uuid.UUID         `json:"owner_id"`
	State          FlowState         `json:"state"`
	Item           *BookableItem     `json:"item,omitempty"`
	Travelers      TravelerSelection `json:"travelers"`
	Contact        ContactDetails    `json:"contact"`
	Method         PaymentMethod     `json:"method,omitempty"`
	BaseRate       float64           `json:"base_rate"`
	IntentID       uuid.UUID         `json:"intent_id"`
	GatewayOrderID string            `json:"gateway_order_id,omitempty"`
	PaymentID      string            `json:"payment_id,omitempty"`
	BookingID      string            `json:"booking_id,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

func NewFlow(baseRate float64, now time.Time) *Flow {
	return &Flow{
		ID:        uuid.New(),
		State:     StateBrowsing,
		Travelers: NewTravelerSelection(),
		BaseRate:  baseRate,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (f *Flow) closed() bool {
	return f.State == StatePaymentInFlight || f.State == StateConfirmed
}

// editable covers the steps where traveler details can still change.
func (f *Flow) editable() error {
	switch {
	case f.closed():
		return ErrFlowClosed
	case f.State == StateBrowsing || f.Item == nil:
		return ErrInvalidTransition
	}
	return nil
}

// Select stores the chosen item by value. Re-selecting before payment restarts
// the detail step with the same traveler counts.
func (f *Flow) Select(item BookableItem, now time.Time) error {
	if f.closed() {
		return ErrFlowClosed
	}
	f.Item = &item
	f.State = StateDetailSelected
	f.UpdatedAt = now
	return nil
}

func (f *Flow) Adjust(c Counter, increment bool, now time.Time) error {
	if err := f.editable(); err != nil {
		return err
	}
	var err error
	if increment {
		err = f.Travelers.Increment(c)
	} else {
		err = f.Travelers.Decrement(c)
	}
	if err != nil {
		return err
	}
	f.touchDetails(now)
	return nil
}

func (f *Flow) SetTravelers(adults, children, rooms int, date *time.Time, now time.Time) error {
	if err := f.editable(); err != nil {
		return err
	}
	f.Travelers.Set(adults, children, rooms)
	f.Travelers.SetDate(date)
	f.touchDetails(now)
	return nil
}

// Changing traveler details sends the flow back to the detail step; the traveler
// has to proceed again so the date check always runs on the latest selection.
func (f *Flow) touchDetails(now time.Time) {
	f.State = StateDetailSelected
	f.UpdatedAt = now
}

func (f *Flow) Proceed(now time.Time) error {
	switch f.State {
	case StateDetailSelected:
	case StateTravelerDetailsEntered, StatePaymentInfoEntered:
		return nil
	case StatePaymentInFlight, StateConfirmed:
		return ErrFlowClosed
	default:
		return ErrInvalidTransition
	}
	if f.Travelers.Date == nil {
		return Prompt(ErrDateRequired, PromptDateRequired)
	}
	f.State = StateTravelerDetailsEntered
	f.UpdatedAt = now
	return nil
}

// Claim binds an anonymous flow to the signed-in traveler. A flow owned by
// someone else is never handed over.
func (f *Flow) Claim(owner uuid.UUID) error {
	if owner == uuid.Nil {
		return ErrUnauthenticated
	}
	if f.OwnerID != uuid.Nil && f.OwnerID != owner {
		return ErrForbidden
	}
	f.OwnerID = owner
	return nil
}

func (f *Flow) EnterPaymentInfo(contact ContactDetails, method PaymentMethod, now time.Time) error {
	switch f.State {
	case StateTravelerDetailsEntered, StatePaymentInfoEntered:
	case StatePaymentInFlight, StateConfirmed:
		return ErrFlowClosed
	default:
		return ErrInvalidTransition
	}
	if !contact.Complete() {
		return Prompt(ErrContactDetailsRequired, PromptContactRequired)
	}
	if method == "" {
		method = MethodAll
	}
	f.Contact = ContactDetails{
		Name:  strings.TrimSpace(contact.Name),
		Email: strings.TrimSpace(contact.Email),
		Phone: strings.TrimSpace(contact.Phone),
	}
	f.Method = method
	f.State = StatePaymentInfoEntered
	f.UpdatedAt = now
	return nil
}

func (f *Flow) BeginPayment(intentID uuid.UUID, gatewayOrderID string, now time.Time) error {
	if f.State != StatePaymentInfoEntered {
		if f.closed() {
			return ErrFlowClosed
		}
		return ErrInvalidTransition
	}
	f.IntentID = intentID
	f.GatewayOrderID = gatewayOrderID
	f.State = StatePaymentInFlight
	f.UpdatedAt = now
	return nil
}

// Confirm is only reached from the payment-success path.
func (f *Flow) Confirm(bookingID, paymentID string, now time.Time) error {
	switch f.State {
	case StatePaymentInFlight:
	case StateConfirmed:
		return ErrFlowClosed
	default:
		return ErrInvalidTransition
	}
	f.BookingID = bookingID
	f.PaymentID = paymentID
	f.State = StateConfirmed
	f.UpdatedAt = now
	return nil
}

func (f *Flow) Total() float64 {
	if f.Item == nil {
		return 0
	}
	return Estimate(f.Travelers, BaseRate(f.Item.Price, f.BaseRate), f.Item.Lodging())
}

func (f *Flow) Currency() string {
	if f.Item != nil && f.Item.Currency != "" {
		return strings.ToUpper(f.Item.Currency)
	}
	return "INR"
}

// Draft is the booking that will be written once the payment is verified.
// Rooms are only recorded for lodging-like bookings.
func (f *Flow) Draft() Booking {
	b := Booking{
		UserID:        f.OwnerID,
		UserName:      f.Contact.Name,
		UserEmail:     f.Contact.Email,
		UserPhone:     f.Contact.Phone,
		Adults:        f.Travelers.Adults,
		Children:      f.Travelers.Children,
		TotalPrice:    f.Total(),
		Currency:      f.Currency(),
		PaymentMethod: string(f.Method),
		Status:        BookingStatusConfirmed,
	}
	if f.Item != nil {
		b.BookingType = f.Item.Kind
		b.DestinationID = f.Item.ID
		b.DestinationName = f.Item.Name
		if f.Item.Lodging() {
			rooms := f.Travelers.Rooms
			b.Rooms = &rooms
		}
	}
	if f.Travelers.Date != nil {
		b.Date = *f.Travelers.Date
	}
	return b
}
