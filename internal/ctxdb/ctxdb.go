package ctxdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNoDB = fmt.Errorf("ctxdb: no db found in context")
)

// context registration

var dbKey int

func WithDB(ctx context.Context, db *sql.DB) context.Context {
	return context.WithValue(ctx, &dbKey, db)
}

func GetDB(ctx context.Context) *sql.DB {
	if v := ctx.Value(&dbKey); v != nil {
		return v.(*sql.DB)
	}

	return nil
}

type TxFunc func(ctx context.Context, tx *sql.Tx) error

// UsingTx runs fn inside a transaction on the database found in ctx.
func UsingTx(ctx context.Context, opts *sql.TxOptions, fn TxFunc) error {
	db := GetDB(ctx)
	if db == nil {
		return ErrNoDB
	}

	return RunTx(ctx, db, opts, fn)
}

// RunTx commits if fn returns nil and rolls back on every other path,
// including a panic inside fn.
func RunTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn TxFunc) error {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(ctx, tx); err != nil {
		if err2 := tx.Rollback(); err2 != nil && !errors.Is(err2, sql.ErrTxDone) {
			return errors.Join(err, err2)
		}

		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

// middleware

func Register(db *sql.DB) func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	return func(rw http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
		next(rw, r.WithContext(WithDB(r.Context(), db)))
	}
}
