package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vouchersys/vouchergate/internal/model"
	appErr "github.com/vouchersys/vouchergate/internal/pkg/errors"
)

func newTestChallenge(code string, issued time.Time, ttl time.Duration, no string) model.Challenge {
	return model.Challenge{
		CodeHash:  code,
		IssuedAt:  issued.Unix(),
		ExpiresAt: issued.Add(ttl).Unix(),
		Voucher:   model.VoucherRef{VoucherID: "42", VoucherKind: model.KindCheque, VoucherNo: no},
	}
}

func TestMemoryStore_PutOverwrites(t *testing.T) {
	base := time.Now()
	s := NewMemory().(*memoryStore)
	s.now = func() time.Time { return base }
	key := Key{Kind: model.KindCheque, ID: "42"}

	require.NoError(t, s.Put(context.Background(), key, newTestChallenge("111111", base, 10*time.Minute, "CV-001")))
	require.NoError(t, s.Put(context.Background(), key, newTestChallenge("222222", base, 10*time.Minute, "CV-002")))

	require.Len(t, s.items, 1)
	ch, err := s.Get(context.Background(), key)
	require.NoError(t, err)
	require.Equal(t, "222222", ch.CodeHash)
	require.Equal(t, "CV-002", ch.Voucher.VoucherNo)
}

func TestMemoryStore_GetAbsent(t *testing.T) {
	s := NewMemory()
	_, err := s.Get(context.Background(), Key{Kind: model.KindCash, ID: "7"})
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestMemoryStore_GetExpiredPurges(t *testing.T) {
	base := time.Now()
	s := NewMemory().(*memoryStore)
	s.now = func() time.Time { return base }
	key := Key{Kind: model.KindCheque, ID: "42"}
	require.NoError(t, s.Put(context.Background(), key, newTestChallenge("123456", base, 10*time.Minute, "")))

	s.now = func() time.Time { return base.Add(601 * time.Second) }
	_, err := s.Get(context.Background(), key)
	require.ErrorIs(t, err, appErr.ErrExpired)

	// the entry is gone, a retry reports absent rather than expired
	_, err = s.Get(context.Background(), key)
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestMemoryStore_ValidAtExactExpirySecond(t *testing.T) {
	base := time.Now()
	s := NewMemory().(*memoryStore)
	s.now = func() time.Time { return base }
	key := Key{Kind: model.KindCash, ID: "7"}
	require.NoError(t, s.Put(context.Background(), key, newTestChallenge("123456", base, 10*time.Minute, "")))

	s.now = func() time.Time { return base.Add(600 * time.Second) }
	_, err := s.Get(context.Background(), key)
	require.NoError(t, err)

	// the exact-expiry entry also survives a sweep
	removed, err := s.DeleteExpired(context.Background(), base.Add(600*time.Second))
	require.NoError(t, err)
	require.Zero(t, removed)

	s.now = func() time.Time { return base.Add(601 * time.Second) }
	_, err = s.Get(context.Background(), key)
	require.ErrorIs(t, err, appErr.ErrExpired)
}

func TestMemoryStore_DeleteIdempotent(t *testing.T) {
	s := NewMemory()
	key := Key{Kind: model.KindCash, ID: "9"}
	require.NoError(t, s.Delete(context.Background(), key))
	require.NoError(t, s.Put(context.Background(), key, newTestChallenge("000001", time.Now(), time.Minute, "")))
	require.NoError(t, s.Delete(context.Background(), key))
	require.NoError(t, s.Delete(context.Background(), key))
}

func TestMemoryStore_DeleteExpired(t *testing.T) {
	base := time.Now()
	s := NewMemory().(*memoryStore)
	s.now = func() time.Time { return base }
	require.NoError(t, s.Put(context.Background(), Key{Kind: model.KindCash, ID: "1"}, newTestChallenge("111111", base.Add(-11*time.Minute), 10*time.Minute, "")))
	require.NoError(t, s.Put(context.Background(), Key{Kind: model.KindCash, ID: "2"}, newTestChallenge("222222", base, 10*time.Minute, "")))

	removed, err := s.DeleteExpired(context.Background(), base)
	require.NoError(t, err)
	require.Equal(t, 1, removed)
	require.Len(t, s.items, 1)
}
