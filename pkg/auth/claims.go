package auth

import (
	"github.com/angelmondragon/escrowdesk/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenClaims mirrors the token the marketplace backend issues.
type AccessTokenClaims struct {
	UserID string           `json:"user_id"`
	Role   enums.MemberRole `json:"role"`
	jwt.RegisteredClaims
}

// Credential is the caller identity threaded explicitly into every backend call.
// Token is forwarded verbatim as the upstream bearer credential.
type Credential struct {
	Token  string
	UserID string
	Role   enums.MemberRole
}

// IsZero reports whether no credential was supplied.
func (c Credential) IsZero() bool {
	return c.Token == ""
}

// AuthorizationHeader renders the upstream Authorization header value.
func (c Credential) AuthorizationHeader() string {
	if c.Token == "" {
		return ""
	}
	return "Bearer " + c.Token
}

// CredentialFromClaims binds verified claims to the raw token they came from.
func CredentialFromClaims(token string, claims *AccessTokenClaims) Credential {
	if claims == nil {
		return Credential{Token: token}
	}
	return Credential{Token: token, UserID: claims.UserID, Role: claims.Role}
}
