package repository

import (
	"context"
	"fmt"
	"time"

	"bookingdesk/internal/domain"

	"gorm.io/gorm"
)

type OutboxRepository struct {
	db *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

type outboxModel struct {
	ID            string    `gorm:"column:id;primaryKey;size:64"`
	BookingID     string    `gorm:"column:booking_id;size:64;not null;index"`
	BusinessID    string    `gorm:"column:business_id;size:64;not null"`
	EventType     string    `gorm:"column:event_type;size:64;not null"`
	Payload       string    `gorm:"column:payload;type:text"`
	Status        string    `gorm:"column:status;size:16;not null;index:idx_outbox_due,priority:1"`
	Attempts      int       `gorm:"column:attempts;not null;default:0"`
	NextAttemptAt time.Time `gorm:"column:next_attempt_at;not null;index:idx_outbox_due,priority:2"`
	LastError     *string   `gorm:"column:last_error;type:text"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (outboxModel) TableName() string { return "outbox_events" }

func toOutboxModel(e domain.OutboxEvent) outboxModel {
	status := e.Status
	if status == "" {
		status = domain.OutboxNew
	}
	return outboxModel{
		ID:            e.ID,
		BookingID:     e.BookingID,
		BusinessID:    e.BusinessID,
		EventType:     string(e.Type),
		Payload:       string(e.Payload),
		Status:        string(status),
		Attempts:      e.Attempts,
		NextAttemptAt: e.NextAttemptAt,
		LastError:     nilIfEmpty(e.LastError),
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

func toDomainOutbox(m outboxModel) domain.OutboxEvent {
	var payload []byte
	if m.Payload != "" {
		payload = []byte(m.Payload)
	}
	return domain.OutboxEvent{
		ID:            m.ID,
		BookingID:     m.BookingID,
		BusinessID:    m.BusinessID,
		Type:          domain.OutboxEventType(m.EventType),
		Payload:       payload,
		Status:        domain.OutboxStatus(m.Status),
		Attempts:      m.Attempts,
		NextAttemptAt: m.NextAttemptAt,
		LastError:     deref(m.LastError),
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// FetchDue claims up to limit new events whose next attempt is due. Each row
// is claimed with a conditional update, so two pollers never get the same event.
func (r *OutboxRepository) FetchDue(ctx context.Context, limit int, now time.Time) ([]domain.OutboxEvent, error) {
	var candidates []outboxModel
	err := r.db.WithContext(ctx).
		Where("status = ? AND next_attempt_at <= ?", string(domain.OutboxNew), now).
		Order("created_at ASC").
		Limit(limit).
		Find(&candidates).Error
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}

	claimed := make([]domain.OutboxEvent, 0, len(candidates))
	for _, c := range candidates {
		res := r.db.WithContext(ctx).
			Model(&outboxModel{}).
			Where("id = ? AND status = ?", c.ID, string(domain.OutboxNew)).
			Updates(map[string]any{"status": string(domain.OutboxProcessing), "updated_at": now})
		if res.Error != nil {
			return nil, fmt.Errorf("claim outbox event %s: %w", c.ID, res.Error)
		}
		if res.RowsAffected == 1 {
			c.Status = string(domain.OutboxProcessing)
			c.UpdatedAt = now
			claimed = append(claimed, toDomainOutbox(c))
		}
	}
	return claimed, nil
}

func (r *OutboxRepository) MarkSent(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("id IN ?", ids).
		Updates(map[string]any{"status": string(domain.OutboxSent), "last_error": nil}).Error
	if err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	return nil
}

// MarkRetry puts an event back in the queue with its attempt count and the
// earliest time it may be picked up again.
func (r *OutboxRepository) MarkRetry(ctx context.Context, id string, attempts int, nextAttemptAt time.Time, lastErr string) error {
	err := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":          string(domain.OutboxNew),
			"attempts":        attempts,
			"next_attempt_at": nextAttemptAt,
			"last_error":      lastErr,
		}).Error
	if err != nil {
		return fmt.Errorf("mark retry: %w", err)
	}
	return nil
}

func (r *OutboxRepository) MarkDead(ctx context.Context, id string, attempts int, lastErr string) error {
	err := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     string(domain.OutboxDead),
			"attempts":   attempts,
			"last_error": lastErr,
		}).Error
	if err != nil {
		return fmt.Errorf("mark dead: %w", err)
	}
	return nil
}

// ReleaseStale returns events stuck in processing (a poller died mid-batch)
// to the queue.
func (r *OutboxRepository) ReleaseStale(ctx context.Context, olderThan time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("status = ? AND updated_at < ?", string(domain.OutboxProcessing), olderThan).
		Update("status", string(domain.OutboxNew))
	if res.Error != nil {
		return 0, fmt.Errorf("release stale: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *OutboxRepository) ListByBooking(ctx context.Context, bookingID string) ([]domain.OutboxEvent, error) {
	var rows []outboxModel
	err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list outbox by booking: %w", err)
	}
	out := make([]domain.OutboxEvent, 0, len(rows))
	for _, m := range rows {
		out = append(out, toDomainOutbox(m))
	}
	return out, nil
}
