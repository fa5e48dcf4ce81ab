package xpgx

import (
	"context"
	"errors"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	CodeUniqueViolation     = "23505"
	CodeForeignKeyViolation = "23503"
	CodeUndefinedTable      = "42P01"
	CodeQueryCanceled       = "57014"
)

// PgCode возвращает SQLSTATE, если err пришла от сервера.
func PgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsInfraError отличает сбои соединения и таймауты от ошибок самого запроса.
func IsInfraError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	if PgCode(err) == CodeQueryCanceled {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return false
	}

	return pgconn.SafeToRetry(err) || pgconn.Timeout(err)
}
