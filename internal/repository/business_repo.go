package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bookingdesk/internal/domain"

	"gorm.io/gorm"
)

type BusinessRepository struct {
	db *gorm.DB
}

func NewBusinessRepository(db *gorm.DB) *BusinessRepository {
	return &BusinessRepository{db: db}
}

type businessModel struct {
	ID            string    `gorm:"column:id;primaryKey;size:64"`
	Name          string    `gorm:"column:business_name;size:255;not null"`
	Email         string    `gorm:"column:email;size:255;not null"`
	UPIID         *string   `gorm:"column:upi_id;size:128"`
	BusinessType  string    `gorm:"column:business_type;size:32;not null"`
	TotalBookings int64     `gorm:"column:total_bookings;not null;default:0"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (businessModel) TableName() string { return "businesses" }

var counterFields = map[string]bool{
	domain.CounterTotalBookings: true,
}

func (r *BusinessRepository) Create(ctx context.Context, b *domain.Business) error {
	m := businessModel{
		ID:            b.ID,
		Name:          b.Name,
		Email:         b.Email,
		UPIID:         nilIfEmpty(b.UPIID),
		BusinessType:  string(b.BusinessType),
		TotalBookings: b.TotalBookings,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create business %s: %w", b.ID, domain.ErrConflict)
		}
		return fmt.Errorf("create business: %w", err)
	}
	b.CreatedAt, b.UpdatedAt = m.CreatedAt, m.UpdatedAt
	return nil
}

func (r *BusinessRepository) GetByID(ctx context.Context, id string) (*domain.Business, error) {
	var m businessModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get business: %w", err)
	}
	return &domain.Business{
		ID:            m.ID,
		Name:          m.Name,
		Email:         m.Email,
		UPIID:         deref(m.UPIID),
		BusinessType:  domain.BusinessType(m.BusinessType),
		TotalBookings: m.TotalBookings,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}, nil
}

// IncrementCounter adds delta to a whitelisted counter column in a single
// UPDATE, so concurrent creates never lose an increment.
func (r *BusinessRepository) IncrementCounter(ctx context.Context, businessID, field string, delta int64) error {
	if !counterFields[field] {
		return fmt.Errorf("increment business counter: unknown field %q", field)
	}

	res := r.db.WithContext(ctx).
		Model(&businessModel{}).
		Where("id = ?", businessID).
		UpdateColumn(field, gorm.Expr(field+" + ?", delta))
	if res.Error != nil {
		return fmt.Errorf("increment business counter: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
