// Package schedule defines the message and charge queue entities. The
// records are created and fired by the external automation scheduler;
// this service only reads them and applies status mutations.
package schedule

import "time"

// Status is the lifecycle status shared by both queue entity types.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSent      Status = "sent"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// CanCancel reports whether a record may be cancelled. Only pending
// records can; everything else has already left the scheduler's set.
func (s Status) CanCancel() bool { return s == StatusPending }

// CanRetry reports whether a record may be re-queued. Only failed
// records re-enter the scheduler's processing set.
func (s Status) CanRetry() bool { return s == StatusFailed }

// Terminal reports whether the record has left the pending state.
// Terminal records keep their original scheduled time as an audit
// trail and may be hard-deleted.
func (s Status) Terminal() bool { return s != StatusPending }

// ChargeType describes when a charge reminder fires relative to the
// customer item's due date, together with DaysOffset.
type ChargeType string

const (
	ChargeBeforeDue ChargeType = "before_due"
	ChargeOnDue     ChargeType = "on_due"
	ChargeAfterDue  ChargeType = "after_due"
)

// Message is a scheduled WhatsApp message owned by a tenant.
type Message struct {
	ID            string     `json:"id"`
	TenantID      string     `json:"tenant_id"`
	CustomerID    string     `json:"customer_id"`
	TemplateID    string     `json:"template_id,omitempty"`
	CustomContent string     `json:"custom_content,omitempty"`
	ScheduledAt   time.Time  `json:"scheduled_at"`
	SentAt        *time.Time `json:"sent_at,omitempty"`
	Status        Status     `json:"status"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Charge is a scheduled billing reminder owned by a tenant.
type Charge struct {
	ID             string     `json:"id"`
	TenantID       string     `json:"tenant_id"`
	CustomerID     string     `json:"customer_id"`
	CustomerItemID string     `json:"customer_item_id,omitempty"`
	TemplateID     string     `json:"template_id,omitempty"`
	Type           ChargeType `json:"type"`
	DaysOffset     int        `json:"days_offset"`
	ScheduledFor   time.Time  `json:"scheduled_for"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
	Status         Status     `json:"status"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}
