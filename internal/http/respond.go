package http

import (
	"encoding/json"
	"net/http"
	"reflect"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/robertarktes/travel-storefront/internal/domain"
)

const loginRedirect = "/login"

type errorBody struct {
	Error    string            `json:"error"`
	Prompt   string            `json:"prompt,omitempty"`
	Redirect string            `json:"redirect,omitempty"`
	Fields   map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusOf maps a domain error to its HTTP status.
func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrBookingPending):
		return http.StatusAccepted
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrPaymentUnverified):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrDateRequired),
		errors.Is(err, domain.ErrContactDetailsRequired):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrSerializationFailure),
		errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrFlowClosed):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	body := errorBody{Error: http.StatusText(status)}

	var prompt *domain.PromptError
	switch {
	case errors.As(err, &prompt):
		body.Error = prompt.Prompt
		body.Prompt = prompt.Prompt
	case status == http.StatusUnauthorized:
		body.Error = "sign in required"
		body.Redirect = loginRedirect
	case errors.Is(err, domain.ErrSerializationFailure) || errors.Is(err, domain.ErrConflict):
		body.Error = "conflict, try again"
	case status == http.StatusInternalServerError:
		LoggerFrom(r.Context()).WithField("path", r.URL.Path).WithError(err).Error("request failed")
	default:
		body.Error = rootMessage(err)
	}
	writeJSON(w, status, body)
}

// rootMessage is the innermost sentinel text, without wrapping context that
// may name internal ids.
func rootMessage(err error) string {
	return errors.UnwrapAll(err).Error()
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// decode reads a JSON body into dst and validates its tags. On failure it has
// already written the response.
func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body"})
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
			writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: "invalid request", Fields: fields})
			return false
		}
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return false
	}
	return true
}

func init() {
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}
