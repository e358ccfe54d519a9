package booking

import (
	"context"
	"errors"
	"testing"

	"bookingdesk/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type loaderFunc func(ctx context.Context, id string) (*domain.Booking, error)

func (f loaderFunc) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	return f(ctx, id)
}

func TestGuard(t *testing.T) {
	record := &domain.Booking{ID: "b1", CustomerID: "c1", BusinessID: "biz1"}
	g := NewGuard(loaderFunc(func(_ context.Context, id string) (*domain.Booking, error) {
		switch id {
		case "b1":
			return record.Clone(), nil
		case "broken":
			return nil, errors.New("db down")
		}
		return nil, domain.ErrNotFound
	}))
	ctx := context.Background()

	b, err := g.ForCustomer(ctx, Customer("c1"), "b1")
	require.NoError(t, err)
	assert.Equal(t, "b1", b.ID)

	b, err = g.ForBusiness(ctx, Business("biz1"), "b1")
	require.NoError(t, err)
	assert.Equal(t, "b1", b.ID)

	_, err = g.ForCustomer(ctx, Customer("c2"), "b1")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = g.ForBusiness(ctx, Business("biz2"), "b1")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = g.ForCustomer(ctx, Customer("c1"), "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = g.ForParticipant(ctx, Business("biz1"), "broken")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)

	_, err = g.ForParticipant(ctx, Actor{ID: "x", Role: "admin"}, "b1")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestGuard_WrongRoleDoesNotLoad(t *testing.T) {
	loads := 0
	g := NewGuard(loaderFunc(func(context.Context, string) (*domain.Booking, error) {
		loads++
		return &domain.Booking{}, nil
	}))

	_, err := g.ForCustomer(context.Background(), Business("biz1"), "b1")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = g.ForBusiness(context.Background(), Customer("c1"), "b1")
	assert.ErrorIs(t, err, ErrForbidden)

	assert.Zero(t, loads)
}
