package postgres

import (
	"context"
	"fmt"

	"github.com/TheLucianoBraga/zapgestor/internal/domain/schedule"
)

const chargeColumns = `id, tenant_id, customer_id,
	COALESCE(customer_item_id::text, ''), COALESCE(template_id::text, ''),
	type, days_offset, scheduled_for, sent_at, status,
	COALESCE(error_message, ''), created_at`

func scanCharge(row interface{ Scan(...any) error }) (schedule.Charge, error) {
	var c schedule.Charge
	err := row.Scan(&c.ID, &c.TenantID, &c.CustomerID, &c.CustomerItemID, &c.TemplateID,
		&c.Type, &c.DaysOffset, &c.ScheduledFor, &c.SentAt, &c.Status, &c.ErrorMessage, &c.CreatedAt)
	return c, err
}

func (s *Store) listCharges(ctx context.Context, where string) ([]schedule.Charge, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+chargeColumns+` FROM charge_schedules
		 WHERE tenant_id = $1 AND `+where+`
		 ORDER BY scheduled_for`,
		tenantFromCtx(ctx))
	if err != nil {
		return nil, fmt.Errorf("list charges: %w", err)
	}
	defer rows.Close()

	var result []schedule.Charge
	for rows.Next() {
		c, err := scanCharge(rows)
		if err != nil {
			return nil, fmt.Errorf("scan charge: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// ListPendingCharges returns the tenant's charge reminders awaiting dispatch.
func (s *Store) ListPendingCharges(ctx context.Context) ([]schedule.Charge, error) {
	return s.listCharges(ctx, `status = 'pending'`)
}

// ListChargeHistory returns sent and failed charges; cancelled records
// are filtered out like message history.
func (s *Store) ListChargeHistory(ctx context.Context) ([]schedule.Charge, error) {
	return s.listCharges(ctx, `status IN ('sent', 'failed')`)
}

// CancelCharge marks a pending charge cancelled.
func (s *Store) CancelCharge(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE charge_schedules SET status = 'cancelled'
		 WHERE id = $1 AND tenant_id = $2 AND status = 'pending'`,
		id, tenantFromCtx(ctx))
	return s.mutateExpectOne(ctx, "charge_schedules", id, tag, err, "cancel charge")
}

// RetryCharge resets a failed charge to pending, preserving the
// original scheduled_for.
func (s *Store) RetryCharge(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE charge_schedules SET status = 'pending', sent_at = NULL, error_message = NULL
		 WHERE id = $1 AND tenant_id = $2 AND status = 'failed'`,
		id, tenantFromCtx(ctx))
	return s.mutateExpectOne(ctx, "charge_schedules", id, tag, err, "retry charge")
}

// DeleteCharge hard-removes a terminal charge record.
func (s *Store) DeleteCharge(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM charge_schedules
		 WHERE id = $1 AND tenant_id = $2 AND status <> 'pending'`,
		id, tenantFromCtx(ctx))
	return s.mutateExpectOne(ctx, "charge_schedules", id, tag, err, "delete charge")
}
