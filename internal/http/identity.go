package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/events"
	"github.com/andreasstove999/ecommerce-system/storefront-service-go/internal/user"
)

const (
	HeaderUserID        = "X-User-Id"
	HeaderCorrelationID = "X-Correlation-Id"
)

type ctxKey string

const (
	ctxUserID        ctxKey = "user_id"
	ctxCorrelationID ctxKey = "correlation_id"
)

var errMissingIdentity = errors.New("missing identity")

func correlationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cid := r.Header.Get(HeaderCorrelationID)
		if cid == "" {
			cid = uuid.NewString()
		}
		w.Header().Set(HeaderCorrelationID, cid)

		ctx := context.WithValue(r.Context(), ctxCorrelationID, cid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireUser resolves the caller's id once and stores it in the request
// context. With a JWT secret configured the id is the "sub" claim of a
// verified HS256 bearer token, otherwise the gateway's X-User-Id header.
func (h *Handler) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, err := h.identify(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		ctx := context.WithValue(r.Context(), ctxUserID, uid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) identify(r *http.Request) (string, error) {
	if h.jwtSecret == nil {
		uid := strings.TrimSpace(r.Header.Get(HeaderUserID))
		if uid == "" {
			return "", fmt.Errorf("%w: header %s is required", errMissingIdentity, HeaderUserID)
		}
		return uid, nil
	}

	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("%w: bearer token is required", errMissingIdentity)
	}

	token, err := jwt.Parse(strings.TrimSpace(raw), func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return h.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return "", errors.New("invalid token")
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", errors.New("token has no subject")
	}
	return sub, nil
}

// requireAdmin must run after requireUser.
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := h.requestContext(r)
		u, err := h.users.Get(ctx, userIDFrom(r.Context()))
		cancel()
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				writeError(w, http.StatusUnauthorized, "unknown user")
				return
			}
			h.writeServiceError(w, r, err)
			return
		}
		if !u.IsAdmin() {
			writeError(w, http.StatusForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func userIDFrom(ctx context.Context) string {
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func correlationIDFrom(ctx context.Context) string {
	if v, ok := ctx.Value(ctxCorrelationID).(string); ok {
		return v
	}
	return ""
}

func eventMeta(ctx context.Context) events.EventMeta {
	return events.EventMeta{
		CorrelationID: correlationIDFrom(ctx),
		CausationID:   middleware.GetReqID(ctx),
	}
}
