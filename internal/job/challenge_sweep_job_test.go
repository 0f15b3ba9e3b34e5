package job

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vouchersys/vouchergate/internal/model"
	"github.com/vouchersys/vouchergate/internal/store"
)

func TestChallengeSweepJob_PurgesExpiredOnly(t *testing.T) {
	cur := time.Now()
	st := store.NewMemoryWithClock(func() time.Time { return cur })

	stale := model.Challenge{
		CodeHash:  "111111",
		IssuedAt:  cur.Add(-20 * time.Minute).Unix(),
		ExpiresAt: cur.Add(-10 * time.Minute).Unix(),
		Voucher:   model.VoucherRef{VoucherID: "1", VoucherKind: model.KindCash, VoucherNo: "CSH-001"},
	}
	live := model.Challenge{
		CodeHash:  "222222",
		IssuedAt:  cur.Unix(),
		ExpiresAt: cur.Add(10 * time.Minute).Unix(),
		Voucher:   model.VoucherRef{VoucherID: "2", VoucherKind: model.KindCheque, VoucherNo: "CHQ-002"},
	}
	require.NoError(t, st.Put(context.Background(), store.Key{Kind: model.KindCash, ID: "1"}, stale))
	require.NoError(t, st.Put(context.Background(), store.Key{Kind: model.KindCheque, ID: "2"}, live))

	j := NewChallengeSweepJob(st)
	require.Equal(t, "challenge_sweep", j.Name())
	require.NoError(t, j.Run(context.Background()))

	_, err := st.Get(context.Background(), store.Key{Kind: model.KindCheque, ID: "2"})
	require.NoError(t, err)
}
