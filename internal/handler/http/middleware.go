package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/ethnic-storefront/internal/session"
	"github.com/vasiliy-maslov/ethnic-storefront/internal/user"
)

// RequestLogger writes one zerolog access line per request.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		}
		event.
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("http: request served")
	})
}

// Identify resolves the request identity. The guest token comes from the
// X-Session-ID header and is minted and echoed back when missing or
// malformed. A session token from the cookie or a Bearer header upgrades
// the identity to the session's user. Unknown session tokens are treated
// as anonymous.
func Identify(store session.Store, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id session.Identity

			guest, ok := session.ParseGuestToken(r.Header.Get(session.GuestHeader))
			if !ok {
				guest = session.NewGuestToken()
			}
			id.GuestToken = guest
			w.Header().Set(session.GuestHeader, guest)

			if token := sessionToken(r, cookieName); token != "" {
				s, err := store.Get(r.Context(), token)
				switch {
				case err == nil:
					id.UserID = s.UserID
					id.Role = s.Role
					id.SessionToken = token
					id.PendingGuestToken = s.GuestToken
				case errors.Is(err, session.ErrNotFound):
					log.Debug().Msg("http: stale session token ignored")
				default:
					log.Error().Err(err).Msg("http: failed to load session")
					respondWithError(w, http.StatusInternalServerError, "Failed to load session")
					return
				}
			}

			next.ServeHTTP(w, r.WithContext(session.WithIdentity(r.Context(), id)))
		})
	}
}

func sessionToken(r *http.Request, cookieName string) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(cookieName); err == nil {
		return c.Value
	}
	return ""
}

// RequireAuth rejects anonymous callers with 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !session.FromContext(r.Context()).Authenticated() {
			respondWithError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole rejects anonymous callers with 401 and callers ranked below
// min with 403.
func RequireRole(min user.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := session.FromContext(r.Context())
			if !id.Authenticated() {
				respondWithError(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			if !id.Role.AtLeast(min) {
				log.Warn().Stringer("user_id", id.UserID).Stringer("role", id.Role).Stringer("required", min).Msg("http: role check failed")
				respondWithError(w, http.StatusForbidden, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
