package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/crispyspin/crispyspin-backend/internal/users"
	"github.com/crispyspin/crispyspin-backend/pkg/address"
	pkgAuth "github.com/crispyspin/crispyspin-backend/pkg/auth"
	"github.com/crispyspin/crispyspin-backend/pkg/auth/challenge"
	"github.com/crispyspin/crispyspin-backend/pkg/config"
	"github.com/crispyspin/crispyspin-backend/pkg/db/models"
	pkgerrors "github.com/crispyspin/crispyspin-backend/pkg/errors"
	"github.com/crispyspin/crispyspin-backend/pkg/ethsig"
)

const invalidLoginMessage = "invalid login"

// Service defines the behavior needed by the auth controller.
type Service interface {
	Challenge(ctx context.Context, wallet string) (*ChallengeResponse, error)
	Verify(ctx context.Context, req VerifyRequest) (*VerifyResponse, error)
}

type service struct {
	users      userRepository
	challenges challengeStore
	jwtCfg     config.JWTConfig
	authCfg    config.AuthConfig
	chainID    int64
	now        func() time.Time
}

type userRepository interface {
	UpsertLogin(ctx context.Context, wallet string, at time.Time) (*models.User, error)
}

type challengeStore interface {
	Issue(ctx context.Context, wallet string) (string, error)
	Consume(ctx context.Context, nonce string) (string, error)
	TTL() time.Duration
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	UserRepo   userRepository
	Challenges challengeStore
	JWTConfig  config.JWTConfig
	AuthConfig config.AuthConfig
	ChainID    int64
	Clock      func() time.Time
}

// NewService constructs a wallet login service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.Challenges == nil {
		return nil, fmt.Errorf("challenge store is required")
	}
	if strings.TrimSpace(params.AuthConfig.Domain) == "" || strings.TrimSpace(params.AuthConfig.URI) == "" {
		return nil, fmt.Errorf("auth domain and uri are required")
	}
	if params.ChainID <= 0 {
		return nil, fmt.Errorf("chain id must be positive")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		users:      params.UserRepo,
		challenges: params.Challenges,
		jwtCfg:     params.JWTConfig,
		authCfg:    params.AuthConfig,
		chainID:    params.ChainID,
		now:        clock,
	}, nil
}

func (s *service) Challenge(ctx context.Context, wallet string) (*ChallengeResponse, error) {
	parsed, err := address.Parse(wallet)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid address")
	}
	nonce, err := s.challenges.Issue(ctx, parsed.Hex())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store challenge")
	}

	issuedAt := s.now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(s.challenges.TTL())
	msg := LoginMessage{
		Domain:         s.authCfg.Domain,
		Address:        parsed.Hex(),
		Statement:      s.authCfg.Statement,
		URI:            s.authCfg.URI,
		Version:        messageVersion,
		ChainID:        s.chainID,
		Nonce:          nonce,
		IssuedAt:       issuedAt,
		ExpirationTime: &expiresAt,
	}
	return &ChallengeResponse{Nonce: nonce, Message: msg.String(), ExpiresAt: expiresAt}, nil
}

func (s *service) Verify(ctx context.Context, req VerifyRequest) (*VerifyResponse, error) {
	msg, err := ParseLoginMessage(req.Message)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid login message")
	}
	now := s.now().UTC()
	if err := s.checkBinding(msg, now); err != nil {
		return nil, err
	}

	sig, err := ethsig.DecodeSignature(req.Signature)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid signature")
	}
	signer, err := ethsig.RecoverText([]byte(req.Message), sig)
	if err != nil || !address.Equal(signer.Hex(), msg.Address) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidLoginMessage)
	}

	issuedTo, err := s.challenges.Consume(ctx, msg.Nonce)
	if err != nil {
		if errors.Is(err, challenge.ErrChallengeNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidLoginMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume challenge")
	}
	if !address.Equal(issuedTo, msg.Address) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidLoginMessage)
	}

	wallet := address.MustNormalize(msg.Address)
	user, err := s.users.UpsertLogin(ctx, wallet, now)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodePersistence, err, "record login")
	}

	token, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Wallet: wallet,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}

	return &VerifyResponse{
		AccessToken: token,
		ExpiresAt:   now.Add(pkgAuth.TTL(s.jwtCfg)),
		User:        users.NewProfile(user),
	}, nil
}

// checkBinding rejects messages minted for another deployment or chain.
func (s *service) checkBinding(msg *LoginMessage, now time.Time) error {
	switch {
	case msg.Domain != s.authCfg.Domain:
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "domain mismatch")
	case msg.URI != s.authCfg.URI:
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "uri mismatch")
	case msg.Version != messageVersion:
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "unsupported version")
	case msg.ChainID != s.chainID:
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "chain id mismatch")
	case msg.ExpirationTime != nil && !now.Before(*msg.ExpirationTime):
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "login message expired")
	}
	return nil
}
