package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bookingdesk/internal/domain"

	"gorm.io/gorm"
)

type CustomerRepository struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

type customerModel struct {
	ID        string    `gorm:"column:id;primaryKey;size:64"`
	Username  string    `gorm:"column:username;size:255;not null"`
	Email     string    `gorm:"column:email;size:255;not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (customerModel) TableName() string { return "customers" }

func (r *CustomerRepository) Create(ctx context.Context, c *domain.Customer) error {
	m := customerModel{ID: c.ID, Username: c.Username, Email: c.Email, CreatedAt: c.CreatedAt}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create customer %s: %w", c.ID, domain.ErrConflict)
		}
		return fmt.Errorf("create customer: %w", err)
	}
	c.CreatedAt = m.CreatedAt
	return nil
}

func (r *CustomerRepository) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	var m customerModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return &domain.Customer{ID: m.ID, Username: m.Username, Email: m.Email, CreatedAt: m.CreatedAt}, nil
}
