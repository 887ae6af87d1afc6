package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenClaims is the shape of bearer tokens the identity provider
// issues. The subject carries the user id; username travels as a
// custom claim so profiles can be provisioned lazily.
type AccessTokenClaims struct {
	Username string  `json:"username,omitempty"`
	Email    *string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// UserID parses the token subject into a user id.
func (c *AccessTokenClaims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}
