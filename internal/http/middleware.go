package http

import (
	"bytes"
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/robertarktes/travel-storefront/internal/auth"
	"github.com/robertarktes/travel-storefront/internal/domain"
	"github.com/robertarktes/travel-storefront/internal/idempotency"
	"github.com/robertarktes/travel-storefront/internal/observability"
	"github.com/robertarktes/travel-storefront/internal/rateLimit"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelhttp "go.opentelemetry.io/otel/propagation"
)

type ctxKey int

const (
	loggerKey ctxKey = iota
	identityKey
)

func RequestIDMiddleware(next http.Handler) http.Handler {
	return middleware.RequestID(next)
}

func LoggerMiddleware(logger observability.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := middleware.GetReqID(r.Context())
			entry := logger.WithField("request_id", reqID)
			ctx := context.WithValue(r.Context(), loggerKey, entry)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// LoggerFrom returns the request-scoped logger, or a no-op logger outside a request.
func LoggerFrom(ctx context.Context) observability.Logger {
	if l, ok := ctx.Value(loggerKey).(observability.Logger); ok {
		return l
	}
	return observability.NewNopLogger()
}

// IdentityMiddleware resolves the bearer token, if any, before handlers run.
// A bad or revoked token leaves the request anonymous.
func IdentityMiddleware(svc *auth.Service) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			id, err := svc.Observe(r.Context(), token)
			if err != nil {
				LoggerFrom(r.Context()).WithError(err).Debug("ignoring invalid session token")
				next.ServeHTTP(w, r)
				return
			}
			ctx := context.WithValue(r.Context(), identityKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

func IdentityFrom(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(identityKey).(domain.Identity)
	return id, ok
}

// callerID is the signed-in user or uuid.Nil for anonymous requests.
func callerID(r *http.Request) uuid.UUID {
	if ident, ok := IdentityFrom(r.Context()); ok {
		return ident.UserID
	}
	return uuid.Nil
}

// RequireIdentity answers 401 before the guarded handler runs, so guarded
// content is never produced for an anonymous session.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := IdentityFrom(r.Context()); !ok {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "sign in required", Redirect: loginRedirect})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		observability.RequestsTotal.WithLabelValues(route, strconv.Itoa(status), r.Method).Inc()
	})
}

// IdempotencyMiddleware replays the stored reply for a repeated
// Idempotency-Key. Requests without the header pass straight through. While a
// key is being processed a duplicate gets 409 and nothing is stored for it.
func IdempotencyMiddleware(idemp *idempotency.Idempotency) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if idemp == nil || r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}
			clientKey := r.Header.Get("Idempotency-Key")
			if clientKey == "" {
				next.ServeHTTP(w, r)
				return
			}
			if len(clientKey) < 16 || len(clientKey) > 255 {
				writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid Idempotency-Key"})
				return
			}

			key := idempotency.Key(callerID(r).String(), r.Method, r.URL.Path, clientKey)
			existing, err := idemp.Get(r.Context(), key)
			if err != nil {
				LoggerFrom(r.Context()).WithError(err).Warn("idempotency lookup failed")
			}
			if existing != nil {
				if existing.ContentType != "" {
					w.Header().Set("Content-Type", existing.ContentType)
				}
				w.Header().Set("Idempotent-Replayed", "true")
				w.WriteHeader(existing.Status)
				_, _ = w.Write(existing.Result)
				return
			}

			acquired, err := idemp.Begin(r.Context(), key)
			switch {
			case err != nil:
				LoggerFrom(r.Context()).WithError(err).Warn("idempotency reserve failed")
			case !acquired:
				writeJSON(w, http.StatusConflict, errorBody{Error: "request with this Idempotency-Key is still in progress"})
				return
			default:
				defer func() {
					if err := idemp.End(r.Context(), key); err != nil {
						LoggerFrom(r.Context()).WithError(err).Warn("idempotency release failed")
					}
				}()
			}

			var buf bytes.Buffer
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Tee(&buf)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			resp := idempotency.Response{
				Status:      status,
				ContentType: ww.Header().Get("Content-Type"),
				Result:      buf.Bytes(),
			}
			if err := idemp.Set(r.Context(), key, resp); err != nil {
				LoggerFrom(r.Context()).WithError(err).Warn("idempotency store failed")
			}
		})
	}
}

// RateLimitMiddleware limits per signed-in user, else per client IP.
func RateLimitMiddleware(rl *rateLimit.RateLimiter) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rl == nil {
				next.ServeHTTP(w, r)
				return
			}
			key := "ip:" + clientIP(r)
			if id, ok := IdentityFrom(r.Context()); ok {
				key = "user:" + id.UserID.String()
			}
			d, err := rl.Allow(r.Context(), key)
			if err != nil {
				LoggerFrom(r.Context()).WithError(err).Warn("rate limiter unavailable")
			}
			if d.Limit > 0 {
				w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(d.Limit, 10))
				w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.Reset, 10))
			}
			if !d.Allowed {
				observability.RateLimitExceeded.Inc()
				writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func TracingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), otelhttp.HeaderCarrier(r.Header))
		tracer := otel.Tracer("http")
		ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path)
		defer span.End()

		span.SetAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.url", r.URL.String()),
		)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))
		span.SetAttributes(attribute.Int("http.status_code", ww.Status()))
	})
}
