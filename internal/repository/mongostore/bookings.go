package mongostore

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"bookingdesk/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type BookingRepository struct {
	store *Store
	coll  *mongo.Collection
}

type bookingDoc struct {
	ID                 string     `bson:"_id"`
	CustomerID         string     `bson:"customer_id"`
	BusinessID         string     `bson:"business_id"`
	BusinessType       string     `bson:"business_type"`
	BookingDetails     bson.Raw   `bson:"booking_details"`
	Amount             float64    `bson:"amount"`
	AdvanceAmount      float64    `bson:"advance_amount"`
	SpecialRequests    string     `bson:"special_requests,omitempty"`
	Status             string     `bson:"status"`
	PaymentStatus      string     `bson:"payment_status"`
	TransactionID      *string    `bson:"transaction_id"`
	PaymentMethod      string     `bson:"payment_method"`
	RoomNumber         string     `bson:"room_number"`
	CreatedAt          time.Time  `bson:"created_at"`
	ApprovedAt         *time.Time `bson:"approved_at"`
	PaymentSubmittedAt *time.Time `bson:"payment_submitted_at"`
	PaymentVerifiedAt  *time.Time `bson:"payment_verified_at"`
	CancelledAt        *time.Time `bson:"cancelled_at"`
	UpdatedAt          time.Time  `bson:"updated_at"`
	Version            int64      `bson:"version"`
}

func toBookingDoc(b *domain.Booking) (bookingDoc, error) {
	if b.Details == nil {
		return bookingDoc{}, fmt.Errorf("%w: missing", domain.ErrInvalidDetails)
	}
	raw, err := bson.Marshal(b.Details)
	if err != nil {
		return bookingDoc{}, fmt.Errorf("encode booking details: %w", err)
	}
	return bookingDoc{
		ID:                 b.ID,
		CustomerID:         b.CustomerID,
		BusinessID:         b.BusinessID,
		BusinessType:       string(b.BusinessType),
		BookingDetails:     raw,
		Amount:             b.Amount,
		AdvanceAmount:      b.AdvanceAmount,
		SpecialRequests:    b.SpecialRequests,
		Status:             string(b.Status),
		PaymentStatus:      string(b.PaymentStatus),
		TransactionID:      b.TransactionID,
		PaymentMethod:      b.PaymentMethod,
		RoomNumber:         b.RoomNumber,
		CreatedAt:          b.CreatedAt,
		ApprovedAt:         b.ApprovedAt,
		PaymentSubmittedAt: b.PaymentSubmittedAt,
		PaymentVerifiedAt:  b.PaymentVerifiedAt,
		CancelledAt:        b.CancelledAt,
		UpdatedAt:          b.UpdatedAt,
		Version:            b.Version,
	}, nil
}

func toDomainBooking(d bookingDoc) (*domain.Booking, error) {
	bt := domain.BusinessType(d.BusinessType)
	ptr, err := domain.NewDetails(bt)
	if err != nil {
		return nil, fmt.Errorf("booking %s: %w", d.ID, err)
	}
	if err := bson.Unmarshal(d.BookingDetails, ptr); err != nil {
		return nil, fmt.Errorf("decode booking %s details: %w", d.ID, err)
	}
	details := reflect.ValueOf(ptr).Elem().Interface().(domain.BookingDetails)

	return &domain.Booking{
		ID:                 d.ID,
		CustomerID:         d.CustomerID,
		BusinessID:         d.BusinessID,
		BusinessType:       bt,
		Details:            details,
		Amount:             d.Amount,
		AdvanceAmount:      d.AdvanceAmount,
		SpecialRequests:    d.SpecialRequests,
		Status:             domain.NormalizeStatus(domain.BookingStatus(d.Status)),
		PaymentStatus:      domain.PaymentStatus(d.PaymentStatus),
		TransactionID:      d.TransactionID,
		PaymentMethod:      d.PaymentMethod,
		RoomNumber:         d.RoomNumber,
		CreatedAt:          d.CreatedAt.UTC(),
		ApprovedAt:         utcPtr(d.ApprovedAt),
		PaymentSubmittedAt: utcPtr(d.PaymentSubmittedAt),
		PaymentVerifiedAt:  utcPtr(d.PaymentVerifiedAt),
		CancelledAt:        utcPtr(d.CancelledAt),
		UpdatedAt:          d.UpdatedAt.UTC(),
		Version:            d.Version,
	}, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

func (r *BookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	if b.Version == 0 {
		b.Version = 1
	}
	doc, err := toBookingDoc(b)
	if err != nil {
		return err
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("create booking %s: %w", b.ID, domain.ErrConflict)
		}
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

func (r *BookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	var doc bookingDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return toDomainBooking(doc)
}

// mutableFields is the $set document for an update. Identity fields and the
// details payload are never rewritten.
func mutableFields(d bookingDoc) bson.M {
	return bson.M{
		"status":               d.Status,
		"payment_status":       d.PaymentStatus,
		"transaction_id":       d.TransactionID,
		"payment_method":       d.PaymentMethod,
		"room_number":          d.RoomNumber,
		"special_requests":     d.SpecialRequests,
		"approved_at":          d.ApprovedAt,
		"payment_submitted_at": d.PaymentSubmittedAt,
		"payment_verified_at":  d.PaymentVerifiedAt,
		"cancelled_at":         d.CancelledAt,
		"updated_at":           d.UpdatedAt,
		"version":              d.Version,
	}
}

// Update is a compare-and-swap on version. Outbox events are inserted in the
// same transaction; without events a single-document update is enough.
func (r *BookingRepository) Update(ctx context.Context, b *domain.Booking, expectedVersion int64, events ...domain.OutboxEvent) error {
	next := *b
	next.Version = expectedVersion + 1
	doc, err := toBookingDoc(&next)
	if err != nil {
		return err
	}

	apply := func(ctx context.Context) error {
		res, err := r.coll.UpdateOne(ctx,
			bson.M{"_id": b.ID, "version": expectedVersion},
			bson.M{"$set": mutableFields(doc)},
		)
		if err != nil {
			return fmt.Errorf("update booking: %w", err)
		}
		if res.MatchedCount == 0 {
			n, err := r.coll.CountDocuments(ctx, bson.M{"_id": b.ID})
			if err != nil {
				return fmt.Errorf("check booking: %w", err)
			}
			if n == 0 {
				return domain.ErrNotFound
			}
			return domain.ErrConflict
		}
		if len(events) == 0 {
			return nil
		}
		docs := make([]any, 0, len(events))
		for _, e := range events {
			docs = append(docs, toOutboxDoc(e))
		}
		if _, err := r.store.db.Collection(collOutbox).InsertMany(ctx, docs); err != nil {
			return fmt.Errorf("insert outbox events: %w", err)
		}
		return nil
	}

	if len(events) == 0 {
		err = apply(ctx)
	} else {
		err = r.store.withTx(ctx, func(sc mongo.SessionContext) error { return apply(sc) })
	}
	if err != nil {
		return err
	}

	b.Version = next.Version
	return nil
}

func (r *BookingRepository) ListByCustomer(ctx context.Context, customerID string, limit, offset int) ([]domain.Booking, error) {
	return r.find(ctx, bson.M{"customer_id": customerID}, limit, offset)
}

func (r *BookingRepository) ListByBusiness(ctx context.Context, businessID string, status domain.BookingStatus, limit, offset int) ([]domain.Booking, error) {
	filter := bson.M{"business_id": businessID}
	if status != "" {
		filter["status"] = bson.M{"$in": storedStatuses(status)}
	}
	return r.find(ctx, filter, limit, offset)
}

func (r *BookingRepository) find(ctx context.Context, filter bson.M, limit, offset int) ([]domain.Booking, error) {
	limit, offset = clampPage(limit, offset)
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit)).
		SetSkip(int64(offset))

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer cur.Close(ctx)

	var docs []bookingDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode bookings: %w", err)
	}
	out := make([]domain.Booking, 0, len(docs))
	for _, d := range docs {
		b, err := toDomainBooking(d)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, nil
}

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

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
