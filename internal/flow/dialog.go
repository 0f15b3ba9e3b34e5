package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/vouchersys/vouchergate/internal/model"
	"github.com/vouchersys/vouchergate/internal/service"
)

// State is the challenge dialog's lifecycle position.
type State int

const (
	StateIdle State = iota
	StateIssued
	StateVerifying
	StateVerified
	StateRejected
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateIssued:
		return "issued"
	case StateVerifying:
		return "verifying"
	case StateVerified:
		return "verified"
	case StateRejected:
		return "rejected"
	case StateExpired:
		return "expired"
	default:
		return "unknown"
	}
}

const (
	windowSeconds = 600
	// resend stays disabled until the countdown is this low
	resendWindowSeconds = 60
	codeLength          = 6
)

type Issuer interface {
	Issue(ctx context.Context, kind model.VoucherKind, voucherID, voucherNo string) (service.IssueResult, error)
}

// Executor performs the OTP-gated delete; it re-validates the submitted
// code inline, so a rejected code surfaces here rather than through a
// separate verification round-trip.
type Executor interface {
	Delete(ctx context.Context, kind model.VoucherKind, voucherID, code string) (json.RawMessage, error)
}

// Dialog drives one OTP-gated deletion attempt: issue a code, count the
// validity window down second by second, gate resend and submission, and
// run the delete once a code is accepted. The caller owns the clock and
// calls Tick once per second while the dialog is open.
type Dialog struct {
	issuer   Issuer
	executor Executor
	voucher  model.VoucherRef

	state     State
	code      string
	remaining int
	email     string
}

func NewDialog(issuer Issuer, executor Executor, voucher model.VoucherRef) *Dialog {
	return &Dialog{issuer: issuer, executor: executor, voucher: voucher}
}

func (d *Dialog) State() State { return d.state }

// Email reports where the current code was delivered.
func (d *Dialog) Email() string { return d.email }

func (d *Dialog) Remaining() int { return d.remaining }

func (d *Dialog) Code() string { return d.code }

// Open issues the first challenge and starts the countdown.
func (d *Dialog) Open(ctx context.Context) error {
	if d.state != StateIdle {
		return fmt.Errorf("dialog already open")
	}
	return d.issue(ctx)
}

// Tick advances the countdown by one second while a challenge is live.
func (d *Dialog) Tick() {
	switch d.state {
	case StateIssued, StateVerifying, StateRejected:
	default:
		return
	}
	if d.remaining <= 0 {
		return
	}
	d.remaining--
	if d.remaining == 0 {
		d.state = StateExpired
	}
}

// CountdownLabel renders the remaining window as M:SS.
func (d *Dialog) CountdownLabel() string {
	return fmt.Sprintf("%d:%02d", d.remaining/60, d.remaining%60)
}

// SetCode filters the input to at most six digits. Editing the code after
// a rejection re-arms the dialog for another attempt.
func (d *Dialog) SetCode(raw string) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
		if b.Len() == codeLength {
			break
		}
	}
	d.code = b.String()
	if d.state == StateRejected {
		d.state = StateIssued
	}
}

func (d *Dialog) CanSubmit() bool {
	return d.state == StateIssued && len(d.code) == codeLength && d.remaining > 0
}

// CanResend throttles reissue to the tail of the window: disabled for the
// first 540 seconds, enabled once 60 or fewer remain or after expiry.
func (d *Dialog) CanResend() bool {
	switch d.state {
	case StateExpired:
		return true
	case StateIssued, StateRejected:
		return d.remaining <= resendWindowSeconds
	default:
		return false
	}
}

// Resend issues a fresh challenge, superseding the previous code, and
// resets the countdown to the full window.
func (d *Dialog) Resend(ctx context.Context) error {
	if !d.CanResend() {
		return fmt.Errorf("resend not available for another %d seconds", d.remaining-resendWindowSeconds)
	}
	return d.issue(ctx)
}

// Submit runs the gated delete with the entered code. On success the
// dialog closes and all local state resets; on rejection the challenge
// (and countdown) survive for another attempt.
func (d *Dialog) Submit(ctx context.Context) (json.RawMessage, error) {
	if !d.CanSubmit() {
		return nil, fmt.Errorf("enter the 6-digit code before the countdown runs out")
	}
	d.state = StateVerifying
	raw, err := d.executor.Delete(ctx, d.voucher.VoucherKind, d.voucher.VoucherID, d.code)
	if err != nil {
		d.state = StateRejected
		return nil, err
	}
	d.state = StateVerified
	d.Close()
	return raw, nil
}

// Close resets every piece of local state regardless of outcome.
func (d *Dialog) Close() {
	d.state = StateIdle
	d.code = ""
	d.remaining = 0
	d.email = ""
}

func (d *Dialog) issue(ctx context.Context) error {
	res, err := d.issuer.Issue(ctx, d.voucher.VoucherKind, d.voucher.VoucherID, d.voucher.VoucherNo)
	if err != nil {
		return err
	}
	d.state = StateIssued
	d.code = ""
	d.remaining = res.ExpiresIn
	d.email = res.Email
	return nil
}
