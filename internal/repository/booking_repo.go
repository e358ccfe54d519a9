package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bookingdesk/internal/domain"

	"gorm.io/gorm"
)

type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

type bookingModel struct {
	ID                 string     `gorm:"column:id;primaryKey;size:64"`
	CustomerID         string     `gorm:"column:customer_id;size:64;not null;index:idx_bookings_customer"`
	BusinessID         string     `gorm:"column:business_id;size:64;not null;index:idx_bookings_business_status"`
	BusinessType       string     `gorm:"column:business_type;size:32;not null"`
	BookingDetails     string     `gorm:"column:booking_details;type:text;not null"`
	Amount             float64    `gorm:"column:amount;not null"`
	AdvanceAmount      float64    `gorm:"column:advance_amount;not null"`
	SpecialRequests    *string    `gorm:"column:special_requests;type:text"`
	Status             string     `gorm:"column:status;size:32;not null;index:idx_bookings_business_status"`
	PaymentStatus      string     `gorm:"column:payment_status;size:32;not null"`
	TransactionID      *string    `gorm:"column:transaction_id;size:128"`
	PaymentMethod      *string    `gorm:"column:payment_method;size:64"`
	RoomNumber         *string    `gorm:"column:room_number;size:32"`
	CreatedAt          time.Time  `gorm:"column:created_at;not null"`
	ApprovedAt         *time.Time `gorm:"column:approved_at"`
	PaymentSubmittedAt *time.Time `gorm:"column:payment_submitted_at"`
	PaymentVerifiedAt  *time.Time `gorm:"column:payment_verified_at"`
	CancelledAt        *time.Time `gorm:"column:cancelled_at"`
	UpdatedAt          time.Time  `gorm:"column:updated_at;not null"`
	Version            int64      `gorm:"column:version;not null;default:1"`
}

func (bookingModel) TableName() string { return "bookings" }

func toDomainBooking(m bookingModel) (*domain.Booking, error) {
	bt := domain.BusinessType(m.BusinessType)
	details, err := domain.DecodeDetails(bt, []byte(m.BookingDetails))
	if err != nil {
		return nil, fmt.Errorf("decode booking %s details: %w", m.ID, err)
	}

	return &domain.Booking{
		ID:                 m.ID,
		CustomerID:         m.CustomerID,
		BusinessID:         m.BusinessID,
		BusinessType:       bt,
		Details:            details,
		Amount:             m.Amount,
		AdvanceAmount:      m.AdvanceAmount,
		SpecialRequests:    deref(m.SpecialRequests),
		Status:             domain.NormalizeStatus(domain.BookingStatus(m.Status)),
		PaymentStatus:      domain.PaymentStatus(m.PaymentStatus),
		TransactionID:      m.TransactionID,
		PaymentMethod:      deref(m.PaymentMethod),
		RoomNumber:         deref(m.RoomNumber),
		CreatedAt:          m.CreatedAt,
		ApprovedAt:         m.ApprovedAt,
		PaymentSubmittedAt: m.PaymentSubmittedAt,
		PaymentVerifiedAt:  m.PaymentVerifiedAt,
		CancelledAt:        m.CancelledAt,
		UpdatedAt:          m.UpdatedAt,
		Version:            m.Version,
	}, nil
}

func toBookingModel(b *domain.Booking) (bookingModel, error) {
	raw, err := domain.EncodeDetails(b.Details)
	if err != nil {
		return bookingModel{}, err
	}

	return bookingModel{
		ID:                 b.ID,
		CustomerID:         b.CustomerID,
		BusinessID:         b.BusinessID,
		BusinessType:       string(b.BusinessType),
		BookingDetails:     string(raw),
		Amount:             b.Amount,
		AdvanceAmount:      b.AdvanceAmount,
		SpecialRequests:    nilIfEmpty(b.SpecialRequests),
		Status:             string(b.Status),
		PaymentStatus:      string(b.PaymentStatus),
		TransactionID:      b.TransactionID,
		PaymentMethod:      nilIfEmpty(b.PaymentMethod),
		RoomNumber:         nilIfEmpty(b.RoomNumber),
		CreatedAt:          b.CreatedAt,
		ApprovedAt:         b.ApprovedAt,
		PaymentSubmittedAt: b.PaymentSubmittedAt,
		PaymentVerifiedAt:  b.PaymentVerifiedAt,
		CancelledAt:        b.CancelledAt,
		UpdatedAt:          b.UpdatedAt,
		Version:            b.Version,
	}, nil
}

func (r *BookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	if b.Version == 0 {
		b.Version = 1
	}
	m, err := toBookingModel(b)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create booking %s: %w", b.ID, domain.ErrConflict)
		}
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

func (r *BookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	var m bookingModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return toDomainBooking(m)
}

// Update writes b only if the stored version still equals expectedVersion,
// and inserts events in the same transaction. On success b.Version is bumped.
func (r *BookingRepository) Update(ctx context.Context, b *domain.Booking, expectedVersion int64, events ...domain.OutboxEvent) error {
	next := *b
	next.Version = expectedVersion + 1
	m, err := toBookingModel(&next)
	if err != nil {
		return err
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&bookingModel{}).
			Where("id = ? AND version = ?", b.ID, expectedVersion).
			Select("*").
			Omit("id", "customer_id", "business_id", "business_type", "booking_details",
				"amount", "advance_amount", "created_at").
			Updates(&m)
		if res.Error != nil {
			return fmt.Errorf("update booking: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&bookingModel{}).Where("id = ?", b.ID).Count(&count).Error; err != nil {
				return fmt.Errorf("check booking: %w", err)
			}
			if count == 0 {
				return domain.ErrNotFound
			}
			return domain.ErrConflict
		}

		if len(events) == 0 {
			return nil
		}
		rows := make([]outboxModel, 0, len(events))
		for _, e := range events {
			rows = append(rows, toOutboxModel(e))
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("insert outbox events: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	b.Version = next.Version
	return nil
}

func (r *BookingRepository) ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]domain.Booking, error) {
	limit, offset = clampPage(limit, offset)

	var rows []bookingModel
	err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list customer bookings: %w", err)
	}
	return toDomainBookings(rows)
}

// ListByBusiness returns the business's bookings, newest first. An empty
// status returns every status.
func (r *BookingRepository) ListByBusiness(ctx context.Context, businessID string, status domain.BookingStatus, limit, offset int) ([]domain.Booking, error) {
	limit, offset = clampPage(limit, offset)

	q := r.db.WithContext(ctx).Where("business_id = ?", businessID)
	if status != "" {
		q = q.Where("status IN ?", storedStatuses(status))
	}

	var rows []bookingModel
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list business bookings: %w", err)
	}
	return toDomainBookings(rows)
}

// storedStatuses expands a lifecycle status to the legacy values that
// normalise to it.
func storedStatuses(s domain.BookingStatus) []string {
	switch s {
	case domain.BookingPendingApproval:
		return []string{string(s), "pending", "pending_payment"}
	case domain.BookingConfirmed:
		return []string{string(s), "approved", "Booked"}
	default:
		return []string{string(s)}
	}
}

func toDomainBookings(rows []bookingModel) ([]domain.Booking, error) {
	out := make([]domain.Booking, 0, len(rows))
	for _, m := range rows {
		b, err := toDomainBooking(m)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, nil
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
