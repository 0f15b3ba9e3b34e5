package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vouchersys/vouchergate/internal/model"
	appErr "github.com/vouchersys/vouchergate/internal/pkg/errors"
)

func openTestSQLStore(t *testing.T) *sqlStore {
	t.Helper()
	db, err := OpenSQL("sqlite", filepath.Join(t.TempDir(), "otp.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQL(db).(*sqlStore)
}

func TestSQLStore_PutGetDelete(t *testing.T) {
	s := openTestSQLStore(t)
	base := time.Now()
	s.now = func() time.Time { return base }
	key := Key{Kind: model.KindCheque, ID: "42"}

	_, err := s.Get(context.Background(), key)
	require.ErrorIs(t, err, appErr.ErrNotFound)

	require.NoError(t, s.Put(context.Background(), key, newTestChallenge("654321", base, 10*time.Minute, "CV-042")))
	ch, err := s.Get(context.Background(), key)
	require.NoError(t, err)
	require.Equal(t, "654321", ch.CodeHash)
	require.Equal(t, "CV-042", ch.Voucher.VoucherNo)
	require.Equal(t, model.KindCheque, ch.Voucher.VoucherKind)

	require.NoError(t, s.Delete(context.Background(), key))
	_, err = s.Get(context.Background(), key)
	require.ErrorIs(t, err, appErr.ErrNotFound)
	require.NoError(t, s.Delete(context.Background(), key))
}

func TestSQLStore_PutSupersedes(t *testing.T) {
	s := openTestSQLStore(t)
	base := time.Now()
	s.now = func() time.Time { return base }
	key := Key{Kind: model.KindCash, ID: "7"}

	require.NoError(t, s.Put(context.Background(), key, newTestChallenge("111111", base, 10*time.Minute, "A")))
	require.NoError(t, s.Put(context.Background(), key, newTestChallenge("222222", base, 10*time.Minute, "B")))

	ch, err := s.Get(context.Background(), key)
	require.NoError(t, err)
	require.Equal(t, "222222", ch.CodeHash)
	require.Equal(t, "B", ch.Voucher.VoucherNo)
}

func TestSQLStore_ExpiryPurges(t *testing.T) {
	s := openTestSQLStore(t)
	base := time.Now()
	s.now = func() time.Time { return base }
	key := Key{Kind: model.KindCheque, ID: "42"}
	require.NoError(t, s.Put(context.Background(), key, newTestChallenge("123456", base, 10*time.Minute, "")))

	// valid through the exact expiry second
	s.now = func() time.Time { return base.Add(600 * time.Second) }
	_, err := s.Get(context.Background(), key)
	require.NoError(t, err)

	s.now = func() time.Time { return base.Add(601 * time.Second) }
	_, err = s.Get(context.Background(), key)
	require.ErrorIs(t, err, appErr.ErrExpired)
	_, err = s.Get(context.Background(), key)
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestSQLStore_DeleteExpired(t *testing.T) {
	s := openTestSQLStore(t)
	base := time.Now()
	s.now = func() time.Time { return base }
	require.NoError(t, s.Put(context.Background(), Key{Kind: model.KindCash, ID: "1"}, newTestChallenge("111111", base.Add(-20*time.Minute), 10*time.Minute, "")))
	require.NoError(t, s.Put(context.Background(), Key{Kind: model.KindCheque, ID: "2"}, newTestChallenge("222222", base, 10*time.Minute, "")))

	removed, err := s.DeleteExpired(context.Background(), base)
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	_, err = s.Get(context.Background(), Key{Kind: model.KindCheque, ID: "2"})
	require.NoError(t, err)
}
