package filestore

import (
	"context"
	"fmt"

	"github.com/vouchersys/vouchergate/internal/config"
)

// Store persists exported voucher snapshot images.
type Store interface {
	Type() string
	Save(ctx context.Context, key string, r ReadSeekCloser, size int64) error
	Open(ctx context.Context, key string) (ReadSeekCloser, error)
}

type ReadSeekCloser interface {
	Read(p []byte) (n int, err error)
	Seek(offset int64, whence int) (int64, error)
	Close() error
}

func New(cfg config.SnapshotConfig) (Store, error) {
	switch cfg.Type {
	case "local":
		return newLocalStore(cfg)
	case "s3":
		return newS3Store(cfg.S3)
	default:
		return nil, fmt.Errorf("unsupported snapshot store type: %s", cfg.Type)
	}
}
