package repository

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"bookingdesk/internal/database"
	"bookingdesk/internal/domain"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:repo_test_%s?mode=memory&cache=shared", name)
	db, err := database.Connect(dsn, nil)
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// Shared-cache in-memory SQLite reports table locks under concurrent writers.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

var testNow = time.Date(2024, 10, 1, 9, 0, 0, 0, time.UTC)

func newHotelBooking(id string) *domain.Booking {
	return &domain.Booking{
		ID:           id,
		CustomerID:   "cust-1",
		BusinessID:   "biz-1",
		BusinessType: domain.BusinessHotel,
		Details: domain.HotelDetails{
			CheckIn:  "2024-10-06",
			CheckOut: "2024-10-08",
			RoomType: "deluxe",
			Guests:   2,
		},
		Amount:        3000,
		AdvanceAmount: 1000,
		Status:        domain.BookingPendingApproval,
		PaymentStatus: domain.PaymentPending,
		CreatedAt:     testNow,
		UpdatedAt:     testNow,
	}
}
