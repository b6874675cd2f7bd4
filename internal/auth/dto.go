package auth

import (
	"github.com/cartacocktail/carta-backend/internal/users"
	"github.com/cartacocktail/carta-backend/pkg/enums"
)

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest carries the refresh token; the expired access token travels in the
// Authorization header.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// TokenPair is returned by login and refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// LoginResponse contains the tokens and the signed-in user.
type LoginResponse struct {
	TokenPair
	User *users.UserDTO `json:"user"`
}

// CreateAccountRequest lets an admin add another operator.
type CreateAccountRequest struct {
	DisplayName string         `json:"displayName" validate:"required,max=128"`
	Email       string         `json:"email" validate:"required,email"`
	Password    string         `json:"password" validate:"required,min=8"`
	Role        enums.UserRole `json:"role" validate:"omitempty,oneof=admin staff"`
}
