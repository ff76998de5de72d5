package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	pkgAuth "github.com/crispyspin/crispyspin-backend/pkg/auth"
	"github.com/crispyspin/crispyspin-backend/pkg/auth/challenge"
	"github.com/crispyspin/crispyspin-backend/pkg/config"
	"github.com/crispyspin/crispyspin-backend/pkg/db/models"
	pkgerrors "github.com/crispyspin/crispyspin-backend/pkg/errors"
	"github.com/crispyspin/crispyspin-backend/pkg/ethsig"
)

const testKeyHex = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

var (
	testNow    = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	testJWTCfg = config.JWTConfig{Secret: "secret", Issuer: "crispyspin", ExpirationMinutes: 60}
	testAuth   = config.AuthConfig{Domain: "spin.example.com", URI: "https://spin.example.com", Statement: "Sign in to CrispySpin"}
)

type memoryChallenges struct {
	mu      sync.Mutex
	byNonce map[string]string
	seq     int
	failGet error
}

func newMemoryChallenges() *memoryChallenges {
	return &memoryChallenges{byNonce: map[string]string{}}
}

func (m *memoryChallenges) Issue(ctx context.Context, wallet string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	nonce := strings.Repeat("a", 31) + string(rune('0'+m.seq))
	m.byNonce[nonce] = strings.ToLower(wallet)
	return nonce, nil
}

func (m *memoryChallenges) Consume(ctx context.Context, nonce string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet != nil {
		return "", m.failGet
	}
	wallet, ok := m.byNonce[nonce]
	if !ok {
		return "", challenge.ErrChallengeNotFound
	}
	delete(m.byNonce, nonce)
	return wallet, nil
}

func (m *memoryChallenges) TTL() time.Duration { return challenge.DefaultTTL }

type memoryUsers struct {
	byWallet map[string]*models.User
	err      error
}

func (m *memoryUsers) UpsertLogin(ctx context.Context, wallet string, at time.Time) (*models.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	user, ok := m.byWallet[wallet]
	if !ok {
		user = &models.User{ID: uuid.New(), Wallet: wallet, CreatedAt: at}
		m.byWallet[wallet] = user
	}
	user.LastLoginAt = &at
	return user, nil
}

type harness struct {
	svc        Service
	challenges *memoryChallenges
	users      *memoryUsers
	now        time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		challenges: newMemoryChallenges(),
		users:      &memoryUsers{byWallet: map[string]*models.User{}},
		now:        testNow,
	}
	svc, err := NewService(ServiceParams{
		UserRepo:   h.users,
		Challenges: h.challenges,
		JWTConfig:  testJWTCfg,
		AuthConfig: testAuth,
		ChainID:    8453,
		Clock:      func() time.Time { return h.now },
	})
	require.NoError(t, err)
	h.svc = svc
	return h
}

func sign(t *testing.T, message string) string {
	t.Helper()
	key, err := ethsig.ParsePrivateKey(testKeyHex)
	require.NoError(t, err)
	sig, err := ethsig.SignText(key, []byte(message))
	require.NoError(t, err)
	return hexutil.Encode(sig)
}

func testWallet(t *testing.T) string {
	t.Helper()
	key, err := ethsig.ParsePrivateKey(testKeyHex)
	require.NoError(t, err)
	return crypto.PubkeyToAddress(key.PublicKey).Hex()
}

func TestChallengeThenVerify(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	wallet := testWallet(t)

	ch, err := h.svc.Challenge(ctx, strings.ToLower(wallet))
	require.NoError(t, err)
	require.Contains(t, ch.Message, "\n"+wallet+"\n")
	require.Contains(t, ch.Message, "Nonce: "+ch.Nonce)
	require.Equal(t, testNow.Add(5*time.Minute), ch.ExpiresAt)

	resp, err := h.svc.Verify(ctx, VerifyRequest{Message: ch.Message, Signature: sign(t, ch.Message)})
	require.NoError(t, err)
	require.Equal(t, strings.ToLower(wallet), resp.User.Wallet)
	require.Equal(t, testNow.Add(time.Hour), resp.ExpiresAt)
	require.NotEmpty(t, resp.AccessToken)

	stored := h.users.byWallet[strings.ToLower(wallet)]
	require.NotNil(t, stored)
	require.True(t, stored.LastLoginAt.Equal(testNow))
}

func TestVerifyMintsParseableToken(t *testing.T) {
	h := newHarness(t)
	h.now = time.Now().UTC()
	ctx := context.Background()

	ch, err := h.svc.Challenge(ctx, testWallet(t))
	require.NoError(t, err)
	resp, err := h.svc.Verify(ctx, VerifyRequest{Message: ch.Message, Signature: sign(t, ch.Message)})
	require.NoError(t, err)

	claims, err := pkgAuth.ParseAccessToken(testJWTCfg, resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, strings.ToLower(testWallet(t)), claims.Wallet)
	require.Equal(t, resp.User.ID, claims.UserID)
}

func TestVerifyNonceIsSingleUse(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	ch, err := h.svc.Challenge(ctx, testWallet(t))
	require.NoError(t, err)
	req := VerifyRequest{Message: ch.Message, Signature: sign(t, ch.Message)}

	_, err = h.svc.Verify(ctx, req)
	require.NoError(t, err)

	_, err = h.svc.Verify(ctx, req)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeUnauthorized), "got %v", err)
}

func TestVerifyRejectsWrongSigner(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	other, err := crypto.GenerateKey()
	require.NoError(t, err)
	ch, err := h.svc.Challenge(ctx, testWallet(t))
	require.NoError(t, err)
	sig, err := ethsig.SignText(other, []byte(ch.Message))
	require.NoError(t, err)

	_, err = h.svc.Verify(ctx, VerifyRequest{Message: ch.Message, Signature: hexutil.Encode(sig)})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeUnauthorized), "got %v", err)
	require.Len(t, h.challenges.byNonce, 1, "a forged signature must not burn the challenge")
}

func TestVerifyRejectsNonceIssuedToAnotherWallet(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	foreign, err := h.svc.Challenge(ctx, "0x1111111111111111111111111111111111111111")
	require.NoError(t, err)

	msg, err := ParseLoginMessage(foreign.Message)
	require.NoError(t, err)
	msg.Address = testWallet(t)
	raw := msg.String()

	_, err = h.svc.Verify(ctx, VerifyRequest{Message: raw, Signature: sign(t, raw)})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeUnauthorized), "got %v", err)
}

func TestVerifyRejectsBindingMismatch(t *testing.T) {
	cases := map[string]func(m *LoginMessage){
		"domain":  func(m *LoginMessage) { m.Domain = "evil.example.com" },
		"uri":     func(m *LoginMessage) { m.URI = "https://evil.example.com" },
		"version": func(m *LoginMessage) { m.Version = "2" },
		"chain":   func(m *LoginMessage) { m.ChainID = 1 },
		"expired": func(m *LoginMessage) {
			past := testNow.Add(-time.Second)
			m.ExpirationTime = &past
		},
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)
			ch, err := h.svc.Challenge(context.Background(), testWallet(t))
			require.NoError(t, err)
			msg, err := ParseLoginMessage(ch.Message)
			require.NoError(t, err)
			mutate(msg)
			raw := msg.String()

			_, err = h.svc.Verify(context.Background(), VerifyRequest{Message: raw, Signature: sign(t, raw)})
			require.True(t, pkgerrors.Is(err, pkgerrors.CodeUnauthorized), "got %v", err)
		})
	}
}

func TestVerifyValidationErrors(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.Verify(ctx, VerifyRequest{Message: "hello", Signature: "0x00"})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation), "got %v", err)

	ch, err := h.svc.Challenge(ctx, testWallet(t))
	require.NoError(t, err)
	_, err = h.svc.Verify(ctx, VerifyRequest{Message: ch.Message, Signature: "0xdeadbeef"})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation), "got %v", err)

	_, err = h.svc.Challenge(ctx, "not-a-wallet")
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation), "got %v", err)
}

func TestVerifyDependencyFailures(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	ch, err := h.svc.Challenge(ctx, testWallet(t))
	require.NoError(t, err)
	req := VerifyRequest{Message: ch.Message, Signature: sign(t, ch.Message)}

	h.challenges.failGet = errors.New("redis down")
	_, err = h.svc.Verify(ctx, req)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeDependency), "got %v", err)

	h.challenges.failGet = nil
	h.users.err = errors.New("db down")
	_, err = h.svc.Verify(ctx, req)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodePersistence), "got %v", err)
}

func TestNewServiceValidatesParams(t *testing.T) {
	_, err := NewService(ServiceParams{Challenges: newMemoryChallenges(), AuthConfig: testAuth, ChainID: 1})
	require.Error(t, err)
	_, err = NewService(ServiceParams{UserRepo: &memoryUsers{}, AuthConfig: testAuth, ChainID: 1})
	require.Error(t, err)
	_, err = NewService(ServiceParams{UserRepo: &memoryUsers{}, Challenges: newMemoryChallenges(), ChainID: 1})
	require.Error(t, err)
	_, err = NewService(ServiceParams{UserRepo: &memoryUsers{}, Challenges: newMemoryChallenges(), AuthConfig: testAuth})
	require.Error(t, err)
}
