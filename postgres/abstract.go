package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	pgconn "github.com/jackc/pgx/v5/pgconn"

	"github.com/wmoralesdev/ues-live-go/domain"
	"github.com/wmoralesdev/ues-live-go/pkg/errs"
)

/*
абстрактный слой над *pgxpool.Pool / pgx.Tx
чтобы репозитории работали и в транзакции, и поверх пула
*/
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// mapWriteError — маппинг ошибок мутаций: FK на события означает,
// что событие уже удалено
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 23503 - foreign key violation
		if pgErr.Code == "23503" {
			return domain.ErrEventNotFound
		}
	}

	return fmt.Errorf("%w: %v", errs.ErrWrite, err)
}

func mapReadError(err error, notFound error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return notFound
	}

	return fmt.Errorf("%w: %v", errs.ErrFetch, err)
}
