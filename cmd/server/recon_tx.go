package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"noticerecon/pkg/platform/tx"
)

const defaultNoticeTxTimeout = 5 * time.Second

// noticePostgresTx runs each notice mutation inside one database
// transaction. The transaction rides in context so the postgres store
// writes through it.
type noticePostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newNoticePostgresTx(db *sql.DB) *noticePostgresTx {
	return &noticePostgresTx{db: db}
}

func (t *noticePostgresTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("transaction aborted: %w", err)
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultNoticeTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	sqlTx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	if err := fn(tx.WithTx(ctx, sqlTx)); err != nil {
		return err
	}

	return sqlTx.Commit()
}
