package auth

import (
	"errors"
	"fmt"

	"github.com/cartacocktail/carta-backend/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Role   enums.UserRole
	// JTI doubles as the refresh session key; a random one is generated when empty.
	JTI string
}

// AccessTokenClaims is the body of a carta access token. Role is carried so
// admin-only routes can be gated without a database read.
type AccessTokenClaims struct {
	UserID uuid.UUID      `json:"user_id"`
	Role   enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// Validate runs after the registered-claim checks on every strict parse.
func (c AccessTokenClaims) Validate() error {
	if c.UserID == uuid.Nil {
		return errors.New("token has no user id")
	}
	if c.Subject != c.UserID.String() {
		return errors.New("token subject does not match user id")
	}
	if !c.Role.IsValid() {
		return fmt.Errorf("token carries unknown role %q", c.Role)
	}
	if c.ID == "" {
		return errors.New("token has no session id")
	}
	return nil
}
