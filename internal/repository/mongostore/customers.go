package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bookingdesk/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type CustomerRepository struct {
	coll *mongo.Collection
}

type customerDoc struct {
	ID        string    `bson:"_id"`
	Username  string    `bson:"username"`
	Email     string    `bson:"email"`
	CreatedAt time.Time `bson:"created_at"`
}

func (r *CustomerRepository) Create(ctx context.Context, c *domain.Customer) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	doc := customerDoc{ID: c.ID, Username: c.Username, Email: c.Email, CreatedAt: c.CreatedAt}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("create customer %s: %w", c.ID, domain.ErrConflict)
		}
		return fmt.Errorf("create customer: %w", err)
	}
	return nil
}

func (r *CustomerRepository) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	var doc customerDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return &domain.Customer{ID: doc.ID, Username: doc.Username, Email: doc.Email, CreatedAt: doc.CreatedAt.UTC()}, nil
}
