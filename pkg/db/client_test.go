package db

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/crispyspin/crispyspin-backend/pkg/logger"
)

type ledgerRow struct {
	Wallet string `gorm:"primaryKey"`
	Points int
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&ledgerRow{}))
	return FromGorm(conn)
}

func countRows(t *testing.T, c *Client) int64 {
	t.Helper()
	var n int64
	require.NoError(t, c.DB().Model(&ledgerRow{}).Count(&n).Error)
	return n
}

func TestWithTxCommits(t *testing.T) {
	client := newTestClient(t)

	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return tx.Create(&ledgerRow{Wallet: "0xaaa", Points: 10}).Error
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, countRows(t, client))
}

func TestWithTxRollsBackOnError(t *testing.T) {
	client := newTestClient(t)
	boom := errors.New("boom")

	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		require.NoError(t, tx.Create(&ledgerRow{Wallet: "0xaaa"}).Error)
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.Zero(t, countRows(t, client))
}

func TestWithTxRollsBackOnPanic(t *testing.T) {
	client := newTestClient(t)

	require.Panics(t, func() {
		_ = client.WithTx(context.Background(), func(tx *gorm.DB) error {
			require.NoError(t, tx.Create(&ledgerRow{Wallet: "0xaaa"}).Error)
			panic("signer exploded")
		})
	})
	require.Zero(t, countRows(t, client))
}

func TestWithTxRollsBackWhenContextCancelled(t *testing.T) {
	client := newTestClient(t)
	ctx, cancel := context.WithCancel(context.Background())

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&ledgerRow{Wallet: "0xaaa"}).Error; err != nil {
			return err
		}
		cancel()
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, countRows(t, client))
}

func TestPing(t *testing.T) {
	require.NoError(t, newTestClient(t).Ping(context.Background()))
}

func TestQueryLoggerReportsSlowAndFailedStatements(t *testing.T) {
	buf := &bytes.Buffer{}
	ql := newQueryLogger(logger.New(logger.Options{ServiceName: "test", Output: buf}), 10*time.Millisecond)
	statement := func() (string, int64) { return "SELECT * FROM ledger_entries WHERE wallet = $1", 1 }

	ql.Trace(context.Background(), time.Now(), statement, nil)
	require.Empty(t, buf.String())

	ql.Trace(context.Background(), time.Now(), statement, gorm.ErrRecordNotFound)
	require.Empty(t, buf.String())

	ql.Trace(context.Background(), time.Now().Add(-time.Second), statement, nil)
	require.Contains(t, buf.String(), "db.query.slow")

	buf.Reset()
	ql.Trace(context.Background(), time.Now(), statement, errors.New("connection reset"))
	require.Contains(t, buf.String(), "db.query.failed")
	require.Contains(t, buf.String(), "connection reset")

	buf.Reset()
	ql.LogMode(gormlogger.Silent).Trace(context.Background(), time.Now(), statement, errors.New("quiet"))
	require.Empty(t, buf.String())
}

func TestQueryLoggerWithoutServiceLoggerDiscards(t *testing.T) {
	require.Equal(t, gormlogger.Discard, newQueryLogger(nil, time.Second))
}
