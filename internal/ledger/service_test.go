package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/crispyspin/crispyspin-backend/pkg/db/models"
	pkgerrors "github.com/crispyspin/crispyspin-backend/pkg/errors"
)

func TestServiceBalanceDefaultsToZero(t *testing.T) {
	svc, err := NewService(NewRepository(openTestDB(t)))
	require.NoError(t, err)

	balance, err := svc.Balance(context.Background(), "0x1111111111111111111111111111111111111111")
	require.NoError(t, err)
	require.Equal(t, wallet, balance.Wallet)
	require.Zero(t, balance.PointsTotal)
	require.Nil(t, balance.LastSpinAt)
}

func TestServiceBalanceReadsEntry(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	entry, err := repo.LockEntry(context.Background(), wallet)
	require.NoError(t, err)
	entry.SpinCredits = 5
	require.NoError(t, repo.SaveEntry(context.Background(), entry))

	svc, err := NewService(repo)
	require.NoError(t, err)
	balance, err := svc.Balance(context.Background(), "0x1111111111111111111111111111111111111111")
	require.NoError(t, err)
	require.Equal(t, int64(5), balance.SpinCredits)
}

func TestServiceRejectsInvalidWallet(t *testing.T) {
	svc, err := NewService(NewRepository(openTestDB(t)))
	require.NoError(t, err)
	_, err = svc.Balance(context.Background(), "not-a-wallet")
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

type brokenRepo struct {
	Repository
}

func (brokenRepo) FindEntry(context.Context, string) (*models.LedgerEntry, error) {
	return nil, errors.New("connection reset")
}

func TestServiceWrapsStorageFailures(t *testing.T) {
	svc, err := NewService(brokenRepo{})
	require.NoError(t, err)
	_, err = svc.Balance(context.Background(), wallet)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodePersistence))
}

func TestNewServiceRequiresRepository(t *testing.T) {
	_, err := NewService(nil)
	require.Error(t, err)
}
