package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/TheLucianoBraga/zapgestor/internal/domain"
	"github.com/TheLucianoBraga/zapgestor/internal/middleware"
)

// tenantFromCtx extracts the tenant ID from the request context.
// All tenant-scoped queries must use this to enforce isolation.
func tenantFromCtx(ctx context.Context) string {
	return middleware.TenantIDFromContext(ctx)
}

// notFoundWrap checks whether err is pgx.ErrNoRows and, if so, wraps
// domain.ErrNotFound with the given message. Otherwise it wraps the
// original error.
func notFoundWrap(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", msg, domain.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// execExpectOne verifies that an Exec affected exactly one row. If not
// (and err is nil), it returns domain.ErrNotFound with the given message.
func execExpectOne(tag pgconn.CommandTag, err error, format string, args ...any) error {
	if err != nil {
		return fmt.Errorf(fmt.Sprintf(format, args...)+": %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf(fmt.Sprintf(format, args...)+": %w", domain.ErrNotFound)
	}
	return nil
}

// mutateExpectOne distinguishes "record missing" from "record exists
// but its status forbids the transition". When the guarded UPDATE hits
// zero rows, a second existence probe decides which error applies.
func (s *Store) mutateExpectOne(ctx context.Context, table, id string, tag pgconn.CommandTag, err error, op string) error {
	if err != nil {
		return fmt.Errorf("%s %s: %w", op, id, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	probeErr := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM `+table+` WHERE id = $1 AND tenant_id = $2)`,
		id, tenantFromCtx(ctx)).Scan(&exists)
	if probeErr != nil {
		return fmt.Errorf("%s %s: %w", op, id, probeErr)
	}
	if exists {
		return fmt.Errorf("%s %s: %w", op, id, domain.ErrInvalidTransition)
	}
	return fmt.Errorf("%s %s: %w", op, id, domain.ErrNotFound)
}
