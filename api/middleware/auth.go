package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/escrowdesk/api/responses"
	pkgAuth "github.com/angelmondragon/escrowdesk/pkg/auth"
	"github.com/angelmondragon/escrowdesk/pkg/config"
	pkgerrors "github.com/angelmondragon/escrowdesk/pkg/errors"
	"github.com/angelmondragon/escrowdesk/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the
// credential that is forwarded to the marketplace backend.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			cred := pkgAuth.CredentialFromClaims(token, claims)
			ctx := WithCredential(r.Context(), cred)
			if logg != nil {
				ctx = logg.WithFields(logg.WithUserID(ctx, cred.UserID), map[string]any{
					"actor_role": cred.Role.String(),
				})
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
