package rest

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/jupiterclapton/post-service/internal/core/ports"
)

// Clé privée pour le contexte (évite les collisions)
type contextKey struct{ name string }

var userCtxKey = &contextKey{"user_id"}

// RequireAuth valide le header "Bearer <token>" et injecte l'identité dans le contexte.
func RequireAuth(validator ports.TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeError(w, http.StatusUnauthorized, "AuthRequired", "Missing Authorization header")
				return
			}
			if !strings.HasPrefix(header, "Bearer ") {
				writeError(w, http.StatusUnauthorized, "AuthRequired", "Expected: Bearer <token>")
				return
			}

			userID, err := validator.Validate(strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")))
			if err != nil {
				slog.Debug("Token rejected", "error", err)
				writeError(w, http.StatusUnauthorized, "InvalidToken", "Invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), userCtxKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext retourne l'identité injectée par RequireAuth ("" si absente).
func UserIDFromContext(ctx context.Context) string {
	raw, _ := ctx.Value(userCtxKey).(string)
	return raw
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
