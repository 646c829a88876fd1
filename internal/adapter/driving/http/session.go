package httphandler

import (
	"context"
	"net/http"

	"github.com/ericfisherdev/pagescan/internal/domain/model"
)

// SessionCookieName is the cookie that carries the signed session token.
const SessionCookieName = "token"

// SessionVerifier validates a session token and returns its username.
type SessionVerifier interface {
	Verify(token string) (string, bool)
}

// SessionExpiredHeader marks a 401 caused by a missing or invalid session, as
// opposed to an upstream OCR authentication failure that shares the status.
const SessionExpiredHeader = "X-Session-Expired"

type usernameKey struct{}

// UsernameFromContext returns the authenticated username stored by RequireAuth.
func UsernameFromContext(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(usernameKey{}).(string)
	return username, ok
}

// SessionUsername returns the username of a valid session cookie on r.
func SessionUsername(r *http.Request, verifier SessionVerifier) (string, bool) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return verifier.Verify(cookie.Value)
}

// SetSessionCookie stores token in an HTTP-only cookie that lives as long as
// the token itself.
func SetSessionCookie(w http.ResponseWriter, token string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(model.SessionTokenTTL.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearSessionCookie expires the session cookie.
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// RequireAuth rejects requests without a valid session cookie with a JSON
// 401. Missing, malformed and expired tokens are not told apart.
func RequireAuth(verifier SessionVerifier, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username, ok := SessionUsername(r, verifier)
		if !ok {
			w.Header().Set(SessionExpiredHeader, "1")
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), usernameKey{}, username)))
	}
}
