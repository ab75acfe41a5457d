package postgres

import (
	"context"
	"fmt"

	"github.com/TheLucianoBraga/zapgestor/internal/domain/schedule"
)

const messageColumns = `id, tenant_id, customer_id,
	COALESCE(template_id::text, ''), COALESCE(custom_content, ''),
	scheduled_at, sent_at, status, COALESCE(error_message, ''), created_at`

func scanMessage(row interface{ Scan(...any) error }) (schedule.Message, error) {
	var m schedule.Message
	err := row.Scan(&m.ID, &m.TenantID, &m.CustomerID, &m.TemplateID, &m.CustomContent,
		&m.ScheduledAt, &m.SentAt, &m.Status, &m.ErrorMessage, &m.CreatedAt)
	return m, err
}

func (s *Store) listMessages(ctx context.Context, where string) ([]schedule.Message, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+messageColumns+` FROM scheduled_messages
		 WHERE tenant_id = $1 AND `+where+`
		 ORDER BY scheduled_at`,
		tenantFromCtx(ctx))
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var result []schedule.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

// ListPendingMessages returns the tenant's messages awaiting dispatch.
func (s *Store) ListPendingMessages(ctx context.Context) ([]schedule.Message, error) {
	return s.listMessages(ctx, `status = 'pending'`)
}

// ListMessageHistory returns sent and failed messages. Cancelled
// records stay in storage but are filtered from history by design.
func (s *Store) ListMessageHistory(ctx context.Context) ([]schedule.Message, error) {
	return s.listMessages(ctx, `status IN ('sent', 'failed')`)
}

// CancelMessage marks a pending message cancelled. The status predicate
// makes the transition legality check atomic with the update.
func (s *Store) CancelMessage(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE scheduled_messages SET status = 'cancelled'
		 WHERE id = $1 AND tenant_id = $2 AND status = 'pending'`,
		id, tenantFromCtx(ctx))
	return s.mutateExpectOne(ctx, "scheduled_messages", id, tag, err, "cancel message")
}

// RetryMessage resets a failed message to pending so the external
// scheduler picks it up again. The original scheduled_at is preserved.
func (s *Store) RetryMessage(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE scheduled_messages SET status = 'pending', sent_at = NULL, error_message = NULL
		 WHERE id = $1 AND tenant_id = $2 AND status = 'failed'`,
		id, tenantFromCtx(ctx))
	return s.mutateExpectOne(ctx, "scheduled_messages", id, tag, err, "retry message")
}

// DeleteMessage hard-removes a record in a terminal state, used for
// history cleanup. Pending records must be cancelled first.
func (s *Store) DeleteMessage(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM scheduled_messages
		 WHERE id = $1 AND tenant_id = $2 AND status <> 'pending'`,
		id, tenantFromCtx(ctx))
	return s.mutateExpectOne(ctx, "scheduled_messages", id, tag, err, "delete message")
}
