package auth

import (
	"time"

	"github.com/crispyspin/crispyspin-backend/internal/users"
)

// ChallengeResponse carries the message the wallet must sign.
type ChallengeResponse struct {
	Nonce     string    `json:"nonce"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// VerifyRequest is the signed login message submitted by the wallet.
type VerifyRequest struct {
	Message   string `json:"message" validate:"required"`
	Signature string `json:"signature" validate:"required"`
}

// VerifyResponse contains the access token minted after a successful login.
type VerifyResponse struct {
	AccessToken string         `json:"accessToken"`
	ExpiresAt   time.Time      `json:"expiresAt"`
	User        *users.Profile `json:"user"`
}
