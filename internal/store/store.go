package store

import (
	"context"
	"time"

	"github.com/vouchersys/vouchergate/internal/model"
)

// Key identifies the single live challenge a voucher may have.
type Key struct {
	Kind model.VoucherKind
	ID   string
}

func (k Key) String() string {
	return string(k.Kind) + "_" + k.ID
}

// Store holds pending deletion challenges. Expiry is a store concern:
// Get on a past-expiry entry purges it and reports ErrExpired, so callers
// never see a stale challenge.
type Store interface {
	// Put unconditionally overwrites any existing entry for key.
	Put(ctx context.Context, key Key, ch model.Challenge) error
	// Get returns the live challenge for key, ErrNotFound when absent or
	// ErrExpired (after purging) when past its validity window.
	Get(ctx context.Context, key Key) (model.Challenge, error)
	// Delete removes the entry if present; absent keys are a no-op.
	Delete(ctx context.Context, key Key) error
	// DeleteExpired purges every entry past expiry and reports the count.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
