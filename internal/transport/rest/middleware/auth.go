package middleware

import (
	"encoding/json"
	"errors"
	"livepoll/internal/model"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// PresenterAuthorizer decides whether token grants presenter rights on the
// session with the given join code
type PresenterAuthorizer interface {
	AuthorizePresenter(code, token string) error
}

// AuthMiddleware guards presenter-only REST endpoints
type AuthMiddleware struct {
	authz PresenterAuthorizer
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(authz PresenterAuthorizer) *AuthMiddleware {
	return &AuthMiddleware{authz: authz}
}

// RequirePresenter validates the presenter token of the {code} route variable,
// taken from the Authorization header or the token query param
func (m *AuthMiddleware) RequirePresenter(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			token = r.URL.Query().Get("token")
		}

		err := m.authz.AuthorizePresenter(mux.Vars(r)["code"], token)
		switch {
		case err == nil:
			next.ServeHTTP(w, r)
		case errors.Is(err, model.ErrNoSession):
			writeError(w, http.StatusNotFound, model.ErrNoSession.Error())
		default:
			log.Debug().Err(err).Str("path", r.URL.Path).Msg("presenter authorization failed")
			writeError(w, http.StatusUnauthorized, model.ErrNotPresenter.Error())
		}
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}
