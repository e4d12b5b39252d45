package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/robertarktes/travel-storefront/internal/auth"
	"github.com/robertarktes/travel-storefront/internal/contact"
	"github.com/robertarktes/travel-storefront/internal/receipt"
	"github.com/robertarktes/travel-storefront/internal/session"
)

type signUpRequest struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
	DisplayName     string `json:"display_name"`
}

func (h *Handlers) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if !decode(w, r, &req) {
		return
	}
	sess, err := h.state.Auth.SignUp(r.Context(), auth.SignUpRequest{
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
		DisplayName:     req.DisplayName,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

type signInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (h *Handlers) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if !decode(w, r, &req) {
		return
	}
	sess, err := h.state.Auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *Handlers) SignOut(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	if err := h.state.Auth.SignOut(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Session lets the client mirror the current identity without guessing.
func (h *Handlers) Session(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusOK, map[string]interface{}{"authenticated": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"authenticated": true, "identity": id})
}

func (h *Handlers) ListBookings(w http.ResponseWriter, r *http.Request) {
	list, err := h.state.Bookings.ListBookings(r.Context(), callerID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handlers) GetBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.state.Bookings.GetBooking(r.Context(), callerID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *Handlers) BookingReceipt(w http.ResponseWriter, r *http.Request) {
	b, err := h.state.Bookings.GetBooking(r.Context(), callerID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	pdf, name, err := receipt.Render(*b)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.WriteHeader(http.StatusOK)
	w.Write(pdf)
}

type contactRequest struct {
	FirstName string `json:"first_name"`
	Email     string `json:"email" validate:"omitempty,email"`
	Message   string `json:"message" validate:"max=5000"`
}

func (h *Handlers) SubmitContact(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if !decode(w, r, &req) {
		return
	}
	m, err := h.state.Contact.Submit(r.Context(), contact.Request{
		FirstName: req.FirstName,
		Email:     req.Email,
		Message:   req.Message,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"id": m.ID, "status": "received"})
}

func (h *Handlers) preferenceKey(w http.ResponseWriter, r *http.Request) (string, bool) {
	key, err := session.ClientKey(callerID(r), r.Header.Get("X-Client-ID"))
	if err != nil {
		writeError(w, r, err)
		return "", false
	}
	return key, true
}

func (h *Handlers) GetTheme(w http.ResponseWriter, r *http.Request) {
	key, ok := h.preferenceKey(w, r)
	if !ok {
		return
	}
	theme, err := h.state.Preferences.Theme(r.Context(), key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, theme)
}

type themeRequest struct {
	Dark *bool `json:"dark" validate:"required"`
}

func (h *Handlers) SetTheme(w http.ResponseWriter, r *http.Request) {
	key, ok := h.preferenceKey(w, r)
	if !ok {
		return
	}
	var req themeRequest
	if !decode(w, r, &req) {
		return
	}
	theme, err := h.state.Preferences.SetTheme(r.Context(), key, *req.Dark)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, theme)
}

func (h *Handlers) ToggleTheme(w http.ResponseWriter, r *http.Request) {
	key, ok := h.preferenceKey(w, r)
	if !ok {
		return
	}
	theme, err := h.state.Preferences.ToggleTheme(r.Context(), key)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, theme)
}
