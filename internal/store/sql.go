package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/didi/gendry/builder"

	"github.com/vouchersys/vouchergate/internal/model"
	"github.com/vouchersys/vouchergate/internal/pkg/dbutil"
	appErr "github.com/vouchersys/vouchergate/internal/pkg/errors"
)

const challengeTable = "otp_challenges"

const challengeSchema = `CREATE TABLE IF NOT EXISTS otp_challenges (
	kind TEXT NOT NULL,
	voucher_id TEXT NOT NULL,
	voucher_no TEXT NOT NULL DEFAULT '',
	code_hash TEXT NOT NULL,
	issued_at BIGINT NOT NULL,
	expires_at BIGINT NOT NULL,
	PRIMARY KEY (kind, voucher_id)
)`

// OpenSQL opens the challenge database and ensures its schema. Supported
// drivers are "sqlite" and "postgres".
func OpenSQL(driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	if _, err := db.Exec(challengeSchema); err != nil {
		return nil, fmt.Errorf("ensure challenge schema: %w", err)
	}
	return db, nil
}

type sqlStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQL returns a Store backed by a SQL database. Unlike the in-memory
// store it survives process restarts and can be shared by several gateway
// instances.
func NewSQL(db *sql.DB) Store {
	return &sqlStore{db: db, now: time.Now}
}

func (s *sqlStore) Put(ctx context.Context, key Key, ch model.Challenge) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	delSQL, delArgs, err := builder.BuildDelete(challengeTable, whereKey(key))
	if err != nil {
		return err
	}
	delSQL, delArgs = dbutil.Finalize(delSQL, delArgs)
	if _, err := tx.ExecContext(ctx, delSQL, delArgs...); err != nil {
		return err
	}

	row := map[string]interface{}{
		"kind":       string(key.Kind),
		"voucher_id": key.ID,
		"voucher_no": ch.Voucher.VoucherNo,
		"code_hash":  ch.CodeHash,
		"issued_at":  ch.IssuedAt,
		"expires_at": ch.ExpiresAt,
	}
	insSQL, insArgs, err := builder.BuildInsert(challengeTable, []map[string]interface{}{row})
	if err != nil {
		return err
	}
	insSQL, insArgs = dbutil.Finalize(insSQL, insArgs)
	if _, err := tx.ExecContext(ctx, insSQL, insArgs...); err != nil {
		if dbutil.IsConflict(err) {
			// a concurrent Put for the same key landed between our delete
			// and insert; overwrite-last-wins, so its challenge stands
			return nil
		}
		return err
	}
	return tx.Commit()
}

func (s *sqlStore) Get(ctx context.Context, key Key) (model.Challenge, error) {
	fields := []string{"code_hash", "voucher_no", "issued_at", "expires_at"}
	sqlStr, args, err := builder.BuildSelect(challengeTable, whereKey(key), fields)
	if err != nil {
		return model.Challenge{}, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return model.Challenge{}, err
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		return model.Challenge{}, appErr.ErrNotFound
	}
	ch := model.Challenge{Voucher: model.VoucherRef{VoucherID: key.ID, VoucherKind: key.Kind}}
	if err := rows.Scan(&ch.CodeHash, &ch.Voucher.VoucherNo, &ch.IssuedAt, &ch.ExpiresAt); err != nil {
		return model.Challenge{}, err
	}
	_ = rows.Close()
	if ch.ExpiresAt < s.now().Unix() {
		if err := s.Delete(ctx, key); err != nil {
			return model.Challenge{}, err
		}
		return model.Challenge{}, appErr.ErrExpired
	}
	return ch, nil
}

func (s *sqlStore) Delete(ctx context.Context, key Key) error {
	sqlStr, args, err := builder.BuildDelete(challengeTable, whereKey(key))
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = s.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (s *sqlStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	where := map[string]interface{}{"expires_at <": now.Unix()}
	sqlStr, args, err := builder.BuildDelete(challengeTable, where)
	if err != nil {
		return 0, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := s.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func whereKey(key Key) map[string]interface{} {
	return map[string]interface{}{
		"kind":       string(key.Kind),
		"voucher_id": key.ID,
	}
}
