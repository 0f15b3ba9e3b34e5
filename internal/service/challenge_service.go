package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/vouchersys/vouchergate/internal/model"
	"github.com/vouchersys/vouchergate/internal/pkg/codehash"
	appErr "github.com/vouchersys/vouchergate/internal/pkg/errors"
	"github.com/vouchersys/vouchergate/internal/store"
)

const (
	// codeSpace gives 6-digit codes, left-zero-padded.
	codeSpace    = 1000000
	challengeTTL = 10 * time.Minute

	deleteOTPSubject = "OTP for Voucher Deletion"
)

type IssueResult struct {
	Email     string `json:"email"`
	ExpiresIn int    `json:"expires_in"`
}

// ChallengeService issues and verifies the one-time codes that gate
// voucher deletion. Every voucher has at most one live challenge; issuing
// again supersedes the previous code.
type ChallengeService struct {
	store     store.Store
	sender    EmailSender
	recipient string
	now       func() time.Time
	generate  func() (string, error)
}

func NewChallengeService(st store.Store, sender EmailSender, recipient string) *ChallengeService {
	return &ChallengeService{
		store:     st,
		sender:    sender,
		recipient: recipient,
		now:       time.Now,
		generate:  generateCode,
	}
}

func (s *ChallengeService) Issue(ctx context.Context, kind model.VoucherKind, voucherID, voucherNo string) (IssueResult, error) {
	voucherID = strings.TrimSpace(voucherID)
	if voucherID == "" {
		return IssueResult{}, appErr.ErrInvalid
	}
	code, err := s.generate()
	if err != nil {
		return IssueResult{}, err
	}
	hash, err := codehash.Hash(code)
	if err != nil {
		return IssueResult{}, err
	}
	now := s.now()
	ch := model.Challenge{
		CodeHash:  hash,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(challengeTTL).Unix(),
		Voucher:   model.VoucherRef{VoucherID: voucherID, VoucherKind: kind, VoucherNo: voucherNo},
	}
	key := store.Key{Kind: kind, ID: voucherID}
	if err := s.store.Put(ctx, key, ch); err != nil {
		return IssueResult{}, err
	}
	// storage and delivery are not transactional: a failed send leaves the
	// challenge in place and the caller's only recourse is resend
	if err := s.sender.Send(s.recipient, deleteOTPSubject, renderDeleteOTPEmail(ch.Voucher, code)); err != nil {
		logutil.GetLogger(ctx).Error("send otp email failed",
			zap.String("key", key.String()), zap.Error(err))
		return IssueResult{}, fmt.Errorf("%w: send otp email: %v", appErr.ErrUpstream, err)
	}
	logutil.GetLogger(ctx).Info("delete otp issued",
		zap.String("key", key.String()),
		zap.String("voucher_no", voucherNo),
		zap.Int64("expires_at", ch.ExpiresAt))
	return IssueResult{Email: s.recipient, ExpiresIn: int(challengeTTL / time.Second)}, nil
}

// Verify consumes the challenge on the first exact match. Expiry is
// checked (by the store) before comparison, so an expired-but-matching
// code is still rejected; a mismatch leaves the entry in place so the
// caller may retry until expiry.
func (s *ChallengeService) Verify(ctx context.Context, kind model.VoucherKind, voucherID, code string) (model.VoucherRef, error) {
	voucherID = strings.TrimSpace(voucherID)
	if voucherID == "" || code == "" {
		return model.VoucherRef{}, appErr.ErrInvalid
	}
	key := store.Key{Kind: kind, ID: voucherID}
	ch, err := s.store.Get(ctx, key)
	if err != nil {
		return model.VoucherRef{}, err
	}
	if err := codehash.Compare(ch.CodeHash, code); err != nil {
		return model.VoucherRef{}, appErr.ErrMismatch
	}
	if err := s.store.Delete(ctx, key); err != nil {
		return model.VoucherRef{}, err
	}
	logutil.GetLogger(ctx).Info("delete otp verified", zap.String("key", key.String()))
	return ch.Voucher, nil
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeSpace))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func renderDeleteOTPEmail(ref model.VoucherRef, code string) string {
	voucherNo := ref.VoucherNo
	if voucherNo == "" {
		voucherNo = "N/A"
	}
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>OTP Verification</title></head>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h1>Delete Voucher - OTP Verification</h1>
  <div style="background: #e3f2fd; padding: 15px; margin: 20px 0; border-radius: 8px;">
    <p><strong>Voucher Type:</strong> %s</p>
    <p><strong>Voucher ID:</strong> %s</p>
    <p><strong>Voucher Number:</strong> %s</p>
  </div>
  <p>Enter this code to confirm deletion:</p>
  <div style="background: #f0f0f0; padding: 30px; text-align: center; margin: 20px 0; border-radius: 8px;">
    <div style="font-size: 36px; font-weight: bold; color: #e53e3e; letter-spacing: 8px; font-family: monospace;">%s</div>
    <p>Valid for %d minutes</p>
  </div>
</body>
</html>`, strings.ToUpper(string(ref.VoucherKind)), ref.VoucherID, voucherNo, code, int(challengeTTL/time.Minute))
}
