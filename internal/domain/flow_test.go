package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

var testNow = time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

func hotelItem() BookableItem {
	return BookableItem{Kind: "hotels", ID: "h-1", Name: "Sea View Resort", Price: 0, Currency: "INR"}
}

func selectedFlow(t *testing.T, item BookableItem) *Flow {
	t.Helper()
	f := NewFlow(2000, testNow)
	if err := f.Select(item, testNow); err != nil {
		t.Fatal(err)
	}
	return f
}

func TestFlow_ProceedRequiresDate(t *testing.T) {
	f := selectedFlow(t, hotelItem())

	for i := 0; i < 3; i++ {
		err := f.Proceed(testNow)
		var pe *PromptError
		if !errors.As(err, &pe) || pe.Prompt != PromptDateRequired {
			t.Fatalf("attempt %d: expected date prompt, got %v", i, err)
		}
		if !errors.Is(err, ErrDateRequired) {
			t.Fatalf("expected ErrDateRequired, got %v", err)
		}
		if f.State != StateDetailSelected {
			t.Fatalf("state should not advance, got %s", f.State)
		}
	}

	date := testNow.AddDate(0, 1, 0)
	if err := f.SetTravelers(2, 0, 1, &date, testNow); err != nil {
		t.Fatal(err)
	}
	if err := f.Proceed(testNow); err != nil {
		t.Fatalf("expected date to unblock, got %v", err)
	}
	if f.State != StateTravelerDetailsEntered {
		t.Errorf("expected TRAVELER_DETAILS_ENTERED, got %s", f.State)
	}
}

func TestFlow_PaymentInfoRequiresAllContactFields(t *testing.T) {
	f := selectedFlow(t, hotelItem())
	date := testNow.AddDate(0, 0, 7)
	_ = f.SetTravelers(1, 0, 1, &date, testNow)
	_ = f.Proceed(testNow)

	err := f.EnterPaymentInfo(ContactDetails{Name: "Asha", Email: "asha@example.com", Phone: "  "}, MethodUPI, testNow)
	if !errors.Is(err, ErrContactDetailsRequired) || err.Error() != PromptContactRequired {
		t.Fatalf("expected contact prompt, got %v", err)
	}

	err = f.EnterPaymentInfo(ContactDetails{Name: " Asha ", Email: "asha@example.com", Phone: "9999999999"}, "", testNow)
	if err != nil {
		t.Fatal(err)
	}
	if f.Method != MethodAll || f.Contact.Name != "Asha" {
		t.Errorf("unexpected payment info %+v %s", f.Contact, f.Method)
	}
}

func TestFlow_FullTransitionSequence(t *testing.T) {
	f := selectedFlow(t, hotelItem())
	date := testNow.AddDate(0, 0, 10)
	owner := uuid.New()

	steps := []struct {
		name string
		fn   func() error
		want FlowState
	}{
		{"travelers", func() error { return f.SetTravelers(2, 0, 2, &date, testNow) }, StateDetailSelected},
		{"proceed", func() error { return f.Proceed(testNow) }, StateTravelerDetailsEntered},
		{"claim", func() error { return f.Claim(owner) }, StateTravelerDetailsEntered},
		{"payment info", func() error {
			return f.EnterPaymentInfo(ContactDetails{Name: "A", Email: "a@b.c", Phone: "1"}, MethodCard, testNow)
		}, StatePaymentInfoEntered},
		{"begin payment", func() error { return f.BeginPayment(uuid.New(), "order_1", testNow) }, StatePaymentInFlight},
		{"confirm", func() error { return f.Confirm("bk-1", "pay_1", testNow) }, StateConfirmed},
	}
	for _, s := range steps {
		if err := s.fn(); err != nil {
			t.Fatalf("%s: %v", s.name, err)
		}
		if f.State != s.want {
			t.Fatalf("%s: expected %s, got %s", s.name, s.want, f.State)
		}
	}

	if f.Total() != 8000 {
		t.Errorf("expected 8000, got %v", f.Total())
	}
}

func TestFlow_ClosedFlowRejectsMutation(t *testing.T) {
	f := selectedFlow(t, hotelItem())
	date := testNow.AddDate(0, 0, 1)
	_ = f.SetTravelers(1, 0, 1, &date, testNow)
	_ = f.Proceed(testNow)
	_ = f.EnterPaymentInfo(ContactDetails{Name: "A", Email: "a@b.c", Phone: "1"}, MethodUPI, testNow)
	_ = f.BeginPayment(uuid.New(), "order_1", testNow)

	if err := f.Adjust(CounterAdults, true, testNow); !errors.Is(err, ErrFlowClosed) {
		t.Errorf("in-flight flow should reject edits, got %v", err)
	}
	if err := f.BeginPayment(uuid.New(), "order_2", testNow); !errors.Is(err, ErrFlowClosed) {
		t.Errorf("second payment should be rejected, got %v", err)
	}
	if f.GatewayOrderID != "order_1" {
		t.Errorf("gateway order changed to %s", f.GatewayOrderID)
	}

	_ = f.Confirm("bk", "pay", testNow)
	if err := f.Confirm("bk-2", "pay-2", testNow); !errors.Is(err, ErrFlowClosed) {
		t.Errorf("expected ErrFlowClosed on repeat confirm, got %v", err)
	}
	if err := f.Select(hotelItem(), testNow); !errors.Is(err, ErrFlowClosed) {
		t.Errorf("expected ErrFlowClosed on reselect, got %v", err)
	}
	if f.BookingID != "bk" {
		t.Errorf("booking id changed to %s", f.BookingID)
	}
}

func TestFlow_ConfirmOnlyFromPaymentInFlight(t *testing.T) {
	f := selectedFlow(t, hotelItem())
	if err := f.Confirm("bk", "pay", testNow); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestFlow_EditAfterPaymentInfoReturnsToDetails(t *testing.T) {
	f := selectedFlow(t, hotelItem())
	date := testNow.AddDate(0, 0, 1)
	_ = f.SetTravelers(1, 0, 1, &date, testNow)
	_ = f.Proceed(testNow)
	_ = f.EnterPaymentInfo(ContactDetails{Name: "A", Email: "a@b.c", Phone: "1"}, MethodUPI, testNow)

	if err := f.Adjust(CounterChildren, true, testNow); err != nil {
		t.Fatal(err)
	}
	if f.State != StateDetailSelected {
		t.Errorf("expected DETAIL_SELECTED, got %s", f.State)
	}
	if err := f.BeginPayment(uuid.New(), "order", testNow); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestFlow_BrowsingRejectsEdits(t *testing.T) {
	f := NewFlow(2000, testNow)
	if err := f.Adjust(CounterAdults, true, testNow); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
	if err := f.Proceed(testNow); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestFlow_Claim(t *testing.T) {
	f := selectedFlow(t, hotelItem())
	a, b := uuid.New(), uuid.New()

	if err := f.Claim(uuid.Nil); !errors.Is(err, ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated, got %v", err)
	}
	if err := f.Claim(a); err != nil {
		t.Fatal(err)
	}
	if err := f.Claim(a); err != nil {
		t.Errorf("re-claim by owner should pass, got %v", err)
	}
	if err := f.Claim(b); !errors.Is(err, ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}
}

func TestFlow_DraftRoomsOnlyForLodging(t *testing.T) {
	date := testNow.AddDate(0, 0, 3)

	hotel := selectedFlow(t, hotelItem())
	_ = hotel.SetTravelers(2, 1, 2, &date, testNow)
	if d := hotel.Draft(); d.Rooms == nil || *d.Rooms != 2 || d.TotalPrice != 10000 {
		t.Errorf("unexpected hotel draft %+v", d)
	}

	flight := selectedFlow(t, BookableItem{Kind: "flights", ID: "f-1", Name: "DEL-BOM", Price: 4500})
	_ = flight.SetTravelers(2, 1, 3, &date, testNow)
	d := flight.Draft()
	if d.Rooms != nil {
		t.Errorf("flight draft should not carry rooms, got %d", *d.Rooms)
	}
	if d.TotalPrice != 11250 || d.BookingType != "flights" || d.Status != BookingStatusConfirmed {
		t.Errorf("unexpected flight draft %+v", d)
	}
	if !d.Date.Equal(date.Truncate(24 * time.Hour)) {
		t.Errorf("unexpected date %v", d.Date)
	}
}
