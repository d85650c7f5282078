package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shophive/cart-service/internal/domain"
	"github.com/shophive/cart-service/internal/service"
	"github.com/shophive/cart-service/internal/session"
)

type ctxKey int

const (
	shopperKey ctxKey = iota
	authTokenKey
	requestIDKey
)

const (
	// VisitorCookie carries the anonymous session token that keys the
	// visitor's cart until they authenticate.
	VisitorCookie = "shophive_visitor"

	// SessionCookie carries the auth session token for browser clients;
	// API clients send it as a bearer token instead.
	SessionCookie = "shophive_session"
)

// SessionMiddleware classifies every request as an authenticated or
// anonymous shopper. An auth token (bearer header or cookie) that
// resolves wins; everyone else gets a visitor token, minted lazily on
// their first request.
func SessionMiddleware(store session.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			visitor := visitorToken(w, r)
			shopper := service.Shopper{Token: visitor}

			if token := authToken(r); token != "" {
				userID, err := store.GetAuth(ctx, token)
				switch {
				case err == nil:
					shopper.UserID = userID
					shopper.Authenticated = true
					ctx = context.WithValue(ctx, authTokenKey, token)
				case errors.Is(err, domain.ErrUnauthenticated):
					// Expired or bogus token; fall through as anonymous.
				default:
					respondError(w, http.StatusServiceUnavailable, "service_unavailable", "session store unreachable")
					return
				}
			}

			ctx = context.WithValue(ctx, shopperKey, shopper)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestIDMiddleware adds a unique request ID to each request.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = fmt.Sprintf("req-%d", time.Now().UnixNano())
		}

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func authToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return token
		}
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}

func visitorToken(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(VisitorCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	token := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     VisitorCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int((72 * time.Hour).Seconds()),
	})
	return token
}

func shopperFromContext(ctx context.Context) service.Shopper {
	if shopper, ok := ctx.Value(shopperKey).(service.Shopper); ok {
		return shopper
	}
	return service.Shopper{}
}

func authTokenFromContext(ctx context.Context) string {
	if token, ok := ctx.Value(authTokenKey).(string); ok {
		return token
	}
	return ""
}

func getRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(requestIDKey).(string); ok {
		return requestID
	}
	return ""
}
