package notification

import (
	"testing"

	"bookingdesk/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer("https://pay.example.test/payment/")
	require.NoError(t, err)
	return r
}

func TestRenderer_PaymentLink(t *testing.T) {
	r := newTestRenderer(t)
	assert.Equal(t, "https://pay.example.test/payment/bk-1", r.PaymentLink("bk-1"))
}

func TestRenderer_AcceptanceHotel(t *testing.T) {
	r := newTestRenderer(t)

	msg, err := r.Acceptance(hotelBooking(), hotelBusiness(), customer(), domain.NotificationPayload{RoomNumber: "305"})
	require.NoError(t, err)

	assert.Equal(t, "asha@example.test", msg.To)
	assert.Contains(t, msg.Subject, "Sea View Hotel")
	assert.Contains(t, msg.HTML, "https://pay.example.test/payment/bk-1")
	assert.Contains(t, msg.HTML, "seaview@upi")
	assert.Contains(t, msg.HTML, "Deluxe")
	assert.Contains(t, msg.HTML, "2024-10-10")
	assert.Contains(t, msg.HTML, "1000.00")
	// The payload snapshot wins over the current record.
	assert.Contains(t, msg.HTML, "305")
	assert.NotContains(t, msg.HTML, "204")
}

func TestRenderer_AcceptanceWithoutUPI(t *testing.T) {
	r := newTestRenderer(t)
	biz := hotelBusiness()
	biz.UPIID = ""

	msg, err := r.Acceptance(hotelBooking(), biz, customer(), domain.NotificationPayload{})
	require.NoError(t, err)
	assert.NotContains(t, msg.HTML, "Pay the advance by UPI")
}

func TestRenderer_ConfirmationUsesPayloadTransaction(t *testing.T) {
	r := newTestRenderer(t)
	b := hotelBooking()
	stale := "TXN-OLD"
	b.TransactionID = &stale

	msg, err := r.Confirmation(b, hotelBusiness(), customer(), domain.NotificationPayload{TransactionID: "TXN-42"})
	require.NoError(t, err)
	assert.Contains(t, msg.HTML, "TXN-42")
	assert.NotContains(t, msg.HTML, "TXN-OLD")
	assert.Contains(t, msg.Subject, "Payment confirmed")
}

func TestRenderer_VariantPerBusinessType(t *testing.T) {
	r := newTestRenderer(t)

	tests := []struct {
		name    string
		bt      domain.BusinessType
		details domain.BookingDetails
		want    string
	}{
		{"restaurant", domain.BusinessRestaurant, domain.RestaurantDetails{ReservationDate: "2024-10-05", ReservationTime: "19:30", PartySize: 4, Occasion: "Birthday"}, "Birthday"},
		{"cafe", domain.BusinessCafe, domain.CafeDetails{ReservationDate: "2024-10-05", ReservationTime: "08:15", PartySize: 2}, "08:15"},
		{"cab", domain.BusinessCab, domain.CabDetails{PickupLocation: "Airport", DropLocation: "Old Town", PickupTime: "2024-10-05T06:00", Passengers: 3}, "Old Town"},
		{"shopping falls back to generic", domain.BusinessShopping, domain.ShoppingDetails{AppointmentDate: "2024-10-05"}, "Booking type: shopping"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := hotelBooking()
			b.BusinessType = tt.bt
			b.Details = tt.details
			b.RoomNumber = ""

			msg, err := r.Acceptance(b, hotelBusiness(), customer(), domain.NotificationPayload{})
			require.NoError(t, err)
			assert.Contains(t, msg.HTML, tt.want)
		})
	}
}

func TestRenderer_EscapesBusinessName(t *testing.T) {
	r := newTestRenderer(t)
	biz := hotelBusiness()
	biz.Name = "<script>alert(1)</script>"

	msg, err := r.Acceptance(hotelBooking(), biz, customer(), domain.NotificationPayload{})
	require.NoError(t, err)
	assert.NotContains(t, msg.HTML, "<script>")
	assert.Contains(t, msg.HTML, "&lt;script&gt;")
}
