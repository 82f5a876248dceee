package rest

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophchat/internal/common"
	"github.com/dmitrijs2005/gophchat/internal/logging"
	"github.com/dmitrijs2005/gophchat/internal/server/auth"
	"github.com/go-chi/chi/v5/middleware"
)

type ctxKey string

const userIDKey ctxKey = "userID"

const (
	msgNoToken      = "No token, authorization denied"
	msgTokenInvalid = "Token is not valid"
)

// UserIDFromContext returns the id stored by requireAuth.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

func (h *handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get(common.AuthorizationHeaderName)
		if !strings.HasPrefix(header, common.BearerPrefix) {
			Error(w, http.StatusUnauthorized, msgNoToken)
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, common.BearerPrefix))
		if token == "" {
			Error(w, http.StatusUnauthorized, msgNoToken)
			return
		}

		userID, err := auth.GetUserIDFromToken(token, h.JWTSecret)
		if err != nil {
			h.Logger.Debug(r.Context(), "token rejected", "error", err)
			Error(w, http.StatusUnauthorized, msgTokenInvalid)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestLogger tags the context with the chi request id and logs one line
// per request once it completes.
func (h *handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithRequestID(r.Context(), middleware.GetReqID(r.Context()))
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r.WithContext(ctx))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		args := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		}
		if status >= http.StatusInternalServerError {
			h.Logger.Error(ctx, "request", args...)
			return
		}
		h.Logger.Info(ctx, "request", args...)
	})
}
