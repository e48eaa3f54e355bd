package api

import (
	"context"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	appErrors "github.com/saf-slovakia/accountancy/customErrors"
	"github.com/saf-slovakia/accountancy/internal/auth"
	"github.com/saf-slovakia/accountancy/internal/contextutil"
	"github.com/saf-slovakia/accountancy/logging"
)

const TRACE_HEADER = "X-Trace-ID"

type userKey struct{}

func withUser(ctx context.Context, user auth.User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFromContext returns the user authenticated by RequireSession.
func UserFromContext(ctx context.Context) (auth.User, bool) {
	user, ok := ctx.Value(userKey{}).(auth.User)
	return user, ok
}

// WithTraceID tags every request with the caller's trace id or a fresh one.
func WithTraceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(TRACE_HEADER)
		if traceID == "" {
			traceID = uuid.New().String()
		}
		w.Header().Set(TRACE_HEADER, traceID)
		next.ServeHTTP(w, r.WithContext(contextutil.WithTraceID(r.Context(), traceID)))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// RequireSession rejects requests without a valid Authorization token.
func (api *Api) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("Authorization")
		if token == "" {
			writeJSON(w, 401, appErrors.ErrorResponse{
				Code:    appErrors.ErrAuth,
				Message: "authorization failed: Authorization header is required.",
			})
			return
		}

		user, err := api.Auth.CheckSession(r.Context(), token)
		if err != nil {
			logging.Logger.Debugf("[TraceID=%s] | session check failed: %v", contextutil.TraceIDFromContext(r.Context()), err)
			if httpStatusFromError(err) == 500 {
				writeJSON(w, 500, errorResponse(err))
				return
			}
			writeJSON(w, 401, appErrors.ErrorResponse{
				Code:    appErrors.ErrAuth,
				Message: "authorization failed: " + appErrors.MessageOf(err),
			})
			return
		}

		ctx := contextutil.WithActor(withUser(r.Context(), user), user.UserName)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
