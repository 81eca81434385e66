package api

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/vietddude/packup/internal/infra/identity"
	"github.com/vietddude/packup/internal/metrics"
)

// HeaderOperationID lets callers supply their own operation id.
const HeaderOperationID = "X-Operation-Id"

type ctxKey int

const (
	opKey ctxKey = iota
	userKey
)

// OperationID returns the id assigned to the request.
func OperationID(ctx context.Context) string {
	op, _ := ctx.Value(opKey).(string)
	return op
}

// UserID returns the authenticated caller, or "".
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userKey).(string)
	return id
}

func withOperationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		op := strings.TrimSpace(r.Header.Get(HeaderOperationID))
		if op == "" || len(op) > 64 {
			op = uuid.NewString()
		}
		w.Header().Set(HeaderOperationID, op)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), opKey, op)))
	})
}

// instrument records request count and latency by route pattern.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
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
		metrics.HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		metrics.HTTPDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

// requireUser rejects requests without a valid bearer token.
func requireUser(resolver identity.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := identity.BearerToken(r.Header.Get("Authorization"))
			if !ok {
				writeError(w, r, http.StatusUnauthorized, CodeAuthInvalid, "Missing Authorization", nil)
				return
			}
			uid, err := resolver.UserID(r.Context(), token)
			if err != nil {
				writeFailure(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, uid)))
		})
	}
}

// optionalUser resolves a bearer token when one is sent. Invalid tokens are
// treated as anonymous.
func optionalUser(resolver identity.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token, ok := identity.BearerToken(r.Header.Get("Authorization")); ok {
				if uid, err := resolver.UserID(r.Context(), token); err == nil {
					r = r.WithContext(context.WithValue(r.Context(), userKey, uid))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP is the rate limit key for anonymous callers. RealIP middleware
// has already rewritten RemoteAddr from forwarding headers.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
