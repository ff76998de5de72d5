package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/crispyspin/crispyspin-backend/pkg/address"
	"github.com/crispyspin/crispyspin-backend/pkg/config"
)

// clockSkew tolerates small drift between API replicas.
const clockSkew = 30 * time.Second

var signingMethod = jwt.SigningMethodHS256

// AccessTokenPayload is what a login knows about the caller.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Wallet string
	JTI    string
}

// AccessTokenClaims are carried by every access token. Wallet and Subject
// are the same lowercase address.
type AccessTokenClaims struct {
	UserID uuid.UUID `json:"user_id"`
	Wallet string    `json:"wallet"`
	jwt.RegisteredClaims
}

// TTL is the lifetime of access tokens minted with cfg.
func TTL(cfg config.JWTConfig) time.Duration {
	return time.Duration(cfg.ExpirationMinutes) * time.Minute
}

func checkConfig(cfg config.JWTConfig) error {
	switch {
	case cfg.Secret == "":
		return errors.New("jwt secret is required")
	case cfg.Issuer == "":
		return errors.New("jwt issuer is required")
	case cfg.ExpirationMinutes <= 0:
		return errors.New("jwt expiration minutes must be positive")
	}
	return nil
}

func MintAccessToken(cfg config.JWTConfig, now time.Time, payload AccessTokenPayload) (string, error) {
	if err := checkConfig(cfg); err != nil {
		return "", err
	}
	wallet, err := address.Normalize(payload.Wallet)
	if err != nil {
		return "", fmt.Errorf("invalid wallet: %w", err)
	}
	jti := strings.TrimSpace(payload.JTI)
	if jti == "" {
		jti = uuid.NewString()
	}

	signed, err := jwt.NewWithClaims(signingMethod, AccessTokenClaims{
		UserID: payload.UserID,
		Wallet: wallet,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    cfg.Issuer,
			Subject:   wallet,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TTL(cfg))),
		},
	}).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// ParseAccessToken verifies signature, issuer and expiry, and rejects tokens
// whose wallet claim is not a normalized address matching the subject.
func ParseAccessToken(cfg config.JWTConfig, raw string) (*AccessTokenClaims, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(clockSkew),
	)

	var claims AccessTokenClaims
	if _, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return []byte(cfg.Secret), nil
	}); err != nil {
		return nil, err
	}

	wallet, err := address.Normalize(claims.Wallet)
	if err != nil {
		return nil, fmt.Errorf("token wallet claim: %w", err)
	}
	if wallet != claims.Wallet || claims.Subject != wallet {
		return nil, errors.New("token wallet claim does not match subject")
	}
	return &claims, nil
}
