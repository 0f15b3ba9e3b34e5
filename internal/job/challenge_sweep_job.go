package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/vouchersys/vouchergate/internal/store"
)

// ChallengeSweepJob purges expired OTP challenges from the store. Expired
// rows are already rejected at read time; the sweep only reclaims storage
// for challenges that were never verified.
type ChallengeSweepJob struct {
	store store.Store
}

func NewChallengeSweepJob(s store.Store) *ChallengeSweepJob {
	return &ChallengeSweepJob{store: s}
}

func (j *ChallengeSweepJob) Name() string {
	return "challenge_sweep"
}

func (j *ChallengeSweepJob) Run(ctx context.Context) error {
	purged, err := j.store.DeleteExpired(ctx, time.Now())
	if err != nil {
		return err
	}
	if purged > 0 {
		logutil.GetLogger(ctx).Info("purged expired otp challenges", zap.Int("count", purged))
	}
	return nil
}
