package middleware

import (
	"context"

	"github.com/angelmondragon/escrowdesk/pkg/auth"
)

type contextKey string

const ctxCredential contextKey = "credential"

// CredentialFromContext returns the caller credential stored by Auth.
func CredentialFromContext(ctx context.Context) auth.Credential {
	if ctx == nil {
		return auth.Credential{}
	}
	if v, ok := ctx.Value(ctxCredential).(auth.Credential); ok {
		return v
	}
	return auth.Credential{}
}

func UserIDFromContext(ctx context.Context) string {
	return CredentialFromContext(ctx).UserID
}

func RoleFromContext(ctx context.Context) string {
	return string(CredentialFromContext(ctx).Role)
}

// WithCredential injects the caller credential into the context.
func WithCredential(ctx context.Context, cred auth.Credential) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxCredential, cred)
}
