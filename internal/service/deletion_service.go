package service

import (
	"context"
	"encoding/json"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/vouchersys/vouchergate/internal/ledger"
	"github.com/vouchersys/vouchergate/internal/model"
)

// DeletionService performs the irreversible voucher delete. It re-runs
// full challenge verification inline (consuming the challenge) rather
// than accepting a token minted by an earlier verify call; the verify
// endpoint is advisory UX only.
type DeletionService struct {
	challenges *ChallengeService
	ledger     *ledger.Client
}

func NewDeletionService(challenges *ChallengeService, client *ledger.Client) *DeletionService {
	return &DeletionService{challenges: challenges, ledger: client}
}

func (s *DeletionService) Delete(ctx context.Context, kind model.VoucherKind, voucherID, code string) (json.RawMessage, error) {
	ref, err := s.challenges.Verify(ctx, kind, voucherID, code)
	if err != nil {
		return nil, err
	}
	raw, err := s.ledger.DeleteVoucher(ctx, kind, voucherID)
	if err != nil {
		// the challenge is already consumed; a failed upstream delete sends
		// the caller back through a fresh issue/verify round
		logutil.GetLogger(ctx).Error("voucher delete failed after otp verification",
			zap.String("kind", string(kind)),
			zap.String("voucher_id", voucherID),
			zap.Error(err))
		return nil, err
	}
	logutil.GetLogger(ctx).Info("voucher deleted",
		zap.String("kind", string(kind)),
		zap.String("voucher_id", voucherID),
		zap.String("voucher_no", ref.VoucherNo))
	return raw, nil
}
