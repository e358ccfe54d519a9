package booking

import (
	"context"
	"errors"

	"bookingdesk/internal/domain"
	"bookingdesk/internal/pkg/jwt"
)

type Role string

const (
	RoleCustomer Role = jwt.RoleCustomer
	RoleBusiness Role = jwt.RoleBusiness
)

// Actor is the authenticated party performing an operation.
type Actor struct {
	ID   string
	Role Role
}

func Customer(id string) Actor { return Actor{ID: id, Role: RoleCustomer} }
func Business(id string) Actor { return Actor{ID: id, Role: RoleBusiness} }

type bookingLoader interface {
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
}

// Guard resolves a booking and checks that the actor owns it before any
// mutation is attempted.
type Guard struct {
	bookings bookingLoader
}

func NewGuard(bookings bookingLoader) *Guard {
	return &Guard{bookings: bookings}
}

func (g *Guard) ForCustomer(ctx context.Context, actor Actor, bookingID string) (*domain.Booking, error) {
	if actor.Role != RoleCustomer || actor.ID == "" {
		return nil, ErrForbidden
	}
	b, err := g.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.CustomerID != actor.ID {
		return nil, ErrForbidden
	}
	return b, nil
}

func (g *Guard) ForBusiness(ctx context.Context, actor Actor, bookingID string) (*domain.Booking, error) {
	if actor.Role != RoleBusiness || actor.ID == "" {
		return nil, ErrForbidden
	}
	b, err := g.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.BusinessID != actor.ID {
		return nil, ErrForbidden
	}
	return b, nil
}

// ForParticipant allows either side of the booking (read access).
func (g *Guard) ForParticipant(ctx context.Context, actor Actor, bookingID string) (*domain.Booking, error) {
	switch actor.Role {
	case RoleCustomer:
		return g.ForCustomer(ctx, actor, bookingID)
	case RoleBusiness:
		return g.ForBusiness(ctx, actor, bookingID)
	}
	return nil, ErrForbidden
}

func (g *Guard) load(ctx context.Context, bookingID string) (*domain.Booking, error) {
	if bookingID == "" {
		return nil, ErrNotFound
	}
	b, err := g.bookings.GetByID(ctx, bookingID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}
