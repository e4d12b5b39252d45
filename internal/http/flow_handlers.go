package http

import (
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/robertarktes/travel-storefront/internal/booking"
	"github.com/robertarktes/travel-storefront/internal/domain"
)

type flowView struct {
	*domain.Flow
	Lodging bool    `json:"lodging"`
	Total   float64 `json:"total_price"`
	Display string  `json:"display_total"`
}

func viewOf(f *domain.Flow) flowView {
	v := flowView{Flow: f, Total: f.Total(), Display: domain.FormatPrice(f.Total(), f.Currency())}
	if f.Item != nil {
		v.Lodging = f.Item.Lodging()
	}
	return v
}

func flowID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid flow id"})
		return uuid.Nil, false
	}
	return id, true
}

type startFlowRequest struct {
	Kind string `json:"kind" validate:"required"`
	ID   string `json:"id" validate:"required"`
}

func (h *Handlers) StartFlow(w http.ResponseWriter, r *http.Request) {
	var req startFlowRequest
	if !decode(w, r, &req) {
		return
	}
	f, err := h.state.Bookings.StartFlow(r.Context(), booking.StartRequest{Kind: req.Kind, ID: req.ID}, callerID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewOf(f))
}

func (h *Handlers) GetFlow(w http.ResponseWriter, r *http.Request) {
	id, ok := flowID(w, r)
	if !ok {
		return
	}
	f, err := h.state.Bookings.GetFlow(r.Context(), id, callerID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(f))
}

// travelersRequest is a partial update: omitted fields keep their current value.
type travelersRequest struct {
	Adults   *int   `json:"adults"`
	Children *int   `json:"children"`
	Rooms    *int   `json:"rooms"`
	Date     string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

func (h *Handlers) SetTravelers(w http.ResponseWriter, r *http.Request) {
	id, ok := flowID(w, r)
	if !ok {
		return
	}
	var req travelersRequest
	if !decode(w, r, &req) {
		return
	}
	in := booking.TravelerInput{Adults: req.Adults, Children: req.Children, Rooms: req.Rooms}
	if req.Date != "" {
		d, _ := time.Parse("2006-01-02", req.Date)
		in.Date = &d
	}
	f, err := h.state.Bookings.SetTravelers(r.Context(), id, callerID(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(f))
}

// AdjustTraveler is the +/- stepper: /travelers/{field}/{op} with op inc or dec.
func (h *Handlers) AdjustTraveler(w http.ResponseWriter, r *http.Request) {
	id, ok := flowID(w, r)
	if !ok {
		return
	}
	counter, err := domain.ParseCounter(chi.URLParam(r, "field"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	var increment bool
	switch chi.URLParam(r, "op") {
	case "inc":
		increment = true
	case "dec":
	default:
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "op must be inc or dec"})
		return
	}
	f, err := h.state.Bookings.AdjustTravelers(r.Context(), id, callerID(r), counter, increment)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(f))
}

func (h *Handlers) Proceed(w http.ResponseWriter, r *http.Request) {
	id, ok := flowID(w, r)
	if !ok {
		return
	}
	f, err := h.state.Bookings.Proceed(r.Context(), id, callerID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(f))
}

type paymentInfoRequest struct {
	Name   string `json:"name"`
	Email  string `json:"email" validate:"omitempty,email"`
	Phone  string `json:"phone"`
	Method string `json:"method" validate:"omitempty,oneof=all upi card netbanking"`
}

func (h *Handlers) SubmitPaymentInfo(w http.ResponseWriter, r *http.Request) {
	id, ok := flowID(w, r)
	if !ok {
		return
	}
	var req paymentInfoRequest
	if !decode(w, r, &req) {
		return
	}
	method, err := domain.ParsePaymentMethod(req.Method)
	if err != nil {
		writeError(w, r, err)
		return
	}
	contact := domain.ContactDetails{Name: req.Name, Email: req.Email, Phone: req.Phone}
	f, err := h.state.Bookings.SubmitPaymentInfo(r.Context(), id, callerID(r), contact, method)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(f))
}

func (h *Handlers) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := flowID(w, r)
	if !ok {
		return
	}
	checkout, err := h.state.Bookings.InitiatePayment(r.Context(), id, callerID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, checkout)
}

// callbackRequest mirrors the fields the hosted widget hands its success handler.
type callbackRequest struct {
	PaymentID string `json:"razorpay_payment_id" validate:"required"`
	OrderID   string `json:"razorpay_order_id" validate:"required"`
	Signature string `json:"razorpay_signature" validate:"required"`
}

func (h *Handlers) PaymentCallback(w http.ResponseWriter, r *http.Request) {
	id, ok := flowID(w, r)
	if !ok {
		return
	}
	var req callbackRequest
	if !decode(w, r, &req) {
		return
	}
	conf, err := h.state.Bookings.HandlePaymentSuccess(r.Context(), id, callerID(r), booking.Callback{
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, conf)
}

func (h *Handlers) AbandonFlow(w http.ResponseWriter, r *http.Request) {
	id, ok := flowID(w, r)
	if !ok {
		return
	}
	if err := h.state.Bookings.Abandon(r.Context(), id, callerID(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PaymentWebhook is called by the gateway, not the browser; it authenticates
// with the webhook signature header.
func (h *Handlers) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "unreadable body"})
		return
	}
	if err := h.state.Bookings.HandleWebhook(r.Context(), body, r.Header.Get("X-Razorpay-Signature")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
