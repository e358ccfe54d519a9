package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bookingdesk/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type OutboxRepository struct {
	coll *mongo.Collection
}

type outboxDoc struct {
	ID            string    `bson:"_id"`
	BookingID     string    `bson:"booking_id"`
	BusinessID    string    `bson:"business_id"`
	EventType     string    `bson:"event_type"`
	Payload       string    `bson:"payload,omitempty"`
	Status        string    `bson:"status"`
	Attempts      int       `bson:"attempts"`
	NextAttemptAt time.Time `bson:"next_attempt_at"`
	LastError     string    `bson:"last_error,omitempty"`
	CreatedAt     time.Time `bson:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at"`
}

func toOutboxDoc(e domain.OutboxEvent) outboxDoc {
	status := e.Status
	if status == "" {
		status = domain.OutboxNew
	}
	return outboxDoc{
		ID:            e.ID,
		BookingID:     e.BookingID,
		BusinessID:    e.BusinessID,
		EventType:     string(e.Type),
		Payload:       string(e.Payload),
		Status:        string(status),
		Attempts:      e.Attempts,
		NextAttemptAt: e.NextAttemptAt,
		LastError:     e.LastError,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

func toDomainOutbox(d outboxDoc) domain.OutboxEvent {
	var payload []byte
	if d.Payload != "" {
		payload = []byte(d.Payload)
	}
	return domain.OutboxEvent{
		ID:            d.ID,
		BookingID:     d.BookingID,
		BusinessID:    d.BusinessID,
		Type:          domain.OutboxEventType(d.EventType),
		Payload:       payload,
		Status:        domain.OutboxStatus(d.Status),
		Attempts:      d.Attempts,
		NextAttemptAt: d.NextAttemptAt.UTC(),
		LastError:     d.LastError,
		CreatedAt:     d.CreatedAt.UTC(),
		UpdatedAt:     d.UpdatedAt.UTC(),
	}
}

// FetchDue claims due events one at a time with findOneAndUpdate, so
// concurrent pollers never receive the same event.
func (r *OutboxRepository) FetchDue(ctx context.Context, limit int, now time.Time) ([]domain.OutboxEvent, error) {
	filter := bson.M{
		"status":          string(domain.OutboxNew),
		"next_attempt_at": bson.M{"$lte": now},
	}
	update := bson.M{"$set": bson.M{"status": string(domain.OutboxProcessing), "updated_at": now}}
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "created_at", Value: 1}}).
		SetReturnDocument(options.After)

	claimed := make([]domain.OutboxEvent, 0, limit)
	for len(claimed) < limit {
		var doc outboxDoc
		err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
		if errors.Is(err, mongo.ErrNoDocuments) {
			break
		}
		if err != nil {
			return claimed, fmt.Errorf("claim outbox event: %w", err)
		}
		claimed = append(claimed, toDomainOutbox(doc))
	}
	return claimed, nil
}

func (r *OutboxRepository) MarkSent(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := r.coll.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		bson.M{
			"$set":   bson.M{"status": string(domain.OutboxSent), "updated_at": time.Now().UTC()},
			"$unset": bson.M{"last_error": ""},
		},
	)
	if err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	return nil
}

func (r *OutboxRepository) MarkRetry(ctx context.Context, id string, attempts int, nextAttemptAt time.Time, lastErr string) error {
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"status":          string(domain.OutboxNew),
		"attempts":        attempts,
		"next_attempt_at": nextAttemptAt,
		"last_error":      lastErr,
		"updated_at":      time.Now().UTC(),
	}})
	if err != nil {
		return fmt.Errorf("mark retry: %w", err)
	}
	return nil
}

func (r *OutboxRepository) MarkDead(ctx context.Context, id string, attempts int, lastErr string) error {
	_, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"status":     string(domain.OutboxDead),
		"attempts":   attempts,
		"last_error": lastErr,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return fmt.Errorf("mark dead: %w", err)
	}
	return nil
}

func (r *OutboxRepository) ReleaseStale(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := r.coll.UpdateMany(ctx,
		bson.M{"status": string(domain.OutboxProcessing), "updated_at": bson.M{"$lt": olderThan}},
		bson.M{"$set": bson.M{"status": string(domain.OutboxNew), "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return 0, fmt.Errorf("release stale: %w", err)
	}
	return res.ModifiedCount, nil
}

func (r *OutboxRepository) ListByBooking(ctx context.Context, bookingID string) ([]domain.OutboxEvent, error) {
	cur, err := r.coll.Find(ctx, bson.M{"booking_id": bookingID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list outbox by booking: %w", err)
	}
	defer cur.Close(ctx)

	var docs []outboxDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode outbox events: %w", err)
	}
	out := make([]domain.OutboxEvent, 0, len(docs))
	for _, d := range docs {
		out = append(out, toDomainOutbox(d))
	}
	return out, nil
}
