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

type BusinessRepository struct {
	coll *mongo.Collection
}

type businessDoc struct {
	ID            string    `bson:"_id"`
	Name          string    `bson:"business_name"`
	Email         string    `bson:"email"`
	UPIID         string    `bson:"upi_id,omitempty"`
	BusinessType  string    `bson:"business_type"`
	TotalBookings int64     `bson:"total_bookings"`
	CreatedAt     time.Time `bson:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at"`
}

var counterFields = map[string]bool{
	domain.CounterTotalBookings: true,
}

func (r *BusinessRepository) Create(ctx context.Context, b *domain.Business) error {
	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	if b.UpdatedAt.IsZero() {
		b.UpdatedAt = now
	}
	doc := businessDoc{
		ID:            b.ID,
		Name:          b.Name,
		Email:         b.Email,
		UPIID:         b.UPIID,
		BusinessType:  string(b.BusinessType),
		TotalBookings: b.TotalBookings,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("create business %s: %w", b.ID, domain.ErrConflict)
		}
		return fmt.Errorf("create business: %w", err)
	}
	return nil
}

func (r *BusinessRepository) GetByID(ctx context.Context, id string) (*domain.Business, error) {
	var doc businessDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get business: %w", err)
	}
	return &domain.Business{
		ID:            doc.ID,
		Name:          doc.Name,
		Email:         doc.Email,
		UPIID:         doc.UPIID,
		BusinessType:  domain.BusinessType(doc.BusinessType),
		TotalBookings: doc.TotalBookings,
		CreatedAt:     doc.CreatedAt.UTC(),
		UpdatedAt:     doc.UpdatedAt.UTC(),
	}, nil
}

// IncrementCounter applies $inc on a whitelisted counter field.
func (r *BusinessRepository) IncrementCounter(ctx context.Context, businessID, field string, delta int64) error {
	if !counterFields[field] {
		return fmt.Errorf("increment business counter: unknown field %q", field)
	}
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": businessID},
		bson.M{"$inc": bson.M{field: delta}},
	)
	if err != nil {
		return fmt.Errorf("increment business counter: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}
