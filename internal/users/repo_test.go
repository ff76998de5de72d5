package users

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/crispyspin/crispyspin-backend/pkg/db/models"
)

const testWallet = "0xabcdef0000000000000000000000000000000001"

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.User{}))
	return NewRepository(conn)
}

func TestUpsertLoginCreatesThenRefreshes(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	first := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	created, err := repo.UpsertLogin(ctx, testWallet, first)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, created.ID)
	require.Equal(t, testWallet, created.Wallet)
	require.NotNil(t, created.LastLoginAt)
	require.True(t, created.LastLoginAt.Equal(first))

	second := first.Add(48 * time.Hour)
	updated, err := repo.UpsertLogin(ctx, testWallet, second)
	require.NoError(t, err)
	require.Equal(t, created.ID, updated.ID)
	require.True(t, updated.LastLoginAt.Equal(second))

	var count int64
	require.NoError(t, repo.db.Model(&models.User{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestNewProfile(t *testing.T) {
	require.Nil(t, NewProfile(nil))

	joined := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	user := &models.User{ID: uuid.New(), Wallet: testWallet, CreatedAt: joined}
	profile := NewProfile(user)
	require.Equal(t, user.ID, profile.ID)
	require.Equal(t, testWallet, profile.Wallet)
	require.True(t, profile.MemberSince.Equal(joined))
	require.Nil(t, profile.LastLoginAt)
}
