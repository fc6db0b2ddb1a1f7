package model

import (
	"time"

	"github.com/google/uuid"
)

type LoginRequest struct {
	// Identifier accepts a username or an email address.
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type TokenClaims struct {
	AccountID uuid.UUID
	Email     string
	Role      Role
	ExpiresAt time.Time
}
