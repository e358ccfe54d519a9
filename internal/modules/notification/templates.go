package notification

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"bookingdesk/internal/domain"
)

// Message is a rendered email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

type templateData struct {
	CustomerName  string
	BusinessName  string
	BookingID     string
	Details       domain.BookingDetails
	Amount        float64
	AdvanceAmount float64
	RoomNumber    string
	PaymentLink   string
	UPIID         string
	TransactionID string
}

const layoutTemplate = `{{define "acceptance"}}<!DOCTYPE html>
<html><body style="font-family:Arial,sans-serif;color:#222">
<h2>Your booking with {{.BusinessName}} is approved</h2>
<p>Hi {{.CustomerName}},</p>
<p>{{.BusinessName}} has accepted your booking request <strong>{{.BookingID}}</strong>.</p>
{{template "details" .}}
<p>Total amount: {{printf "%.2f" .Amount}}<br>Advance due now: <strong>{{printf "%.2f" .AdvanceAmount}}</strong></p>
{{if .UPIID}}<p>Pay the advance by UPI to <strong>{{.UPIID}}</strong>, then submit your transaction id.</p>{{end}}
<p><a href="{{.PaymentLink}}" style="background:#1a73e8;color:#fff;padding:10px 16px;text-decoration:none;border-radius:4px">Complete payment</a></p>
<p>If the button does not work, open {{.PaymentLink}}</p>
</body></html>{{end}}
{{define "confirmation"}}<!DOCTYPE html>
<html><body style="font-family:Arial,sans-serif;color:#222">
<h2>Payment received, booking confirmed</h2>
<p>Hi {{.CustomerName}},</p>
<p>{{.BusinessName}} has verified your payment for booking <strong>{{.BookingID}}</strong>.</p>
<p>Transaction id: <strong>{{.TransactionID}}</strong></p>
{{template "details" .}}
<p>See you soon!</p>
</body></html>{{end}}`

var detailTemplates = map[domain.BusinessType]string{
	domain.BusinessHotel: `{{define "details"}}<table>
<tr><td>Room type</td><td>{{.Details.RoomType}}</td></tr>
<tr><td>Check-in</td><td>{{.Details.CheckIn}}</td></tr>
<tr><td>Check-out</td><td>{{.Details.CheckOut}}</td></tr>
<tr><td>Guests</td><td>{{.Details.Guests}}</td></tr>
{{if .RoomNumber}}<tr><td>Room number</td><td>{{.RoomNumber}}</td></tr>{{end}}
</table>{{end}}`,
	domain.BusinessRestaurant: `{{define "details"}}<table>
<tr><td>Date</td><td>{{.Details.ReservationDate}}</td></tr>
<tr><td>Time</td><td>{{.Details.ReservationTime}}</td></tr>
<tr><td>Party size</td><td>{{.Details.PartySize}}</td></tr>
{{if .Details.Occasion}}<tr><td>Occasion</td><td>{{.Details.Occasion}}</td></tr>{{end}}
</table>{{end}}`,
	domain.BusinessCafe: `{{define "details"}}<table>
<tr><td>Date</td><td>{{.Details.ReservationDate}}</td></tr>
<tr><td>Time</td><td>{{.Details.ReservationTime}}</td></tr>
<tr><td>Party size</td><td>{{.Details.PartySize}}</td></tr>
</table>{{end}}`,
	domain.BusinessCab: `{{define "details"}}<table>
<tr><td>Pickup</td><td>{{.Details.PickupLocation}}</td></tr>
<tr><td>Drop</td><td>{{.Details.DropLocation}}</td></tr>
<tr><td>Pickup time</td><td>{{.Details.PickupTime}}</td></tr>
<tr><td>Passengers</td><td>{{.Details.Passengers}}</td></tr>
</table>{{end}}`,
}

// Shopping and anything unrecognised.
const genericDetailTemplate = `{{define "details"}}<p>Booking type: {{.Details.Type}}</p>{{end}}`

// Renderer builds Acceptance and Confirmation emails. Each business type gets
// its own clone of the layout with the matching details block.
type Renderer struct {
	paymentBaseURL string
	byType         map[domain.BusinessType]*template.Template
	generic        *template.Template
}

func NewRenderer(paymentBaseURL string) (*Renderer, error) {
	base, err := template.New("layout").Parse(layoutTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	r := &Renderer{
		paymentBaseURL: strings.TrimRight(paymentBaseURL, "/"),
		byType:         make(map[domain.BusinessType]*template.Template, len(detailTemplates)),
	}
	for bt, src := range detailTemplates {
		t, err := withDetails(base, src)
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", bt, err)
		}
		r.byType[bt] = t
	}
	if r.generic, err = withDetails(base, genericDetailTemplate); err != nil {
		return nil, fmt.Errorf("parse generic template: %w", err)
	}
	return r, nil
}

func withDetails(base *template.Template, src string) (*template.Template, error) {
	t, err := base.Clone()
	if err != nil {
		return nil, err
	}
	return t.Parse(src)
}

// PaymentLink is the external payment page for a booking.
func (r *Renderer) PaymentLink(bookingID string) string {
	return r.paymentBaseURL + "/" + bookingID
}

func (r *Renderer) Acceptance(b *domain.Booking, biz *domain.Business, cust *domain.Customer, p domain.NotificationPayload) (Message, error) {
	data := r.data(b, biz, cust)
	data.PaymentLink = r.PaymentLink(b.ID)
	data.UPIID = biz.UPIID
	if p.RoomNumber != "" {
		data.RoomNumber = p.RoomNumber
	}
	html, err := r.render("acceptance", b.BusinessType, data)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      cust.Email,
		Subject: fmt.Sprintf("Booking approved by %s - complete your payment", biz.Name),
		HTML:    html,
	}, nil
}

func (r *Renderer) Confirmation(b *domain.Booking, biz *domain.Business, cust *domain.Customer, p domain.NotificationPayload) (Message, error) {
	data := r.data(b, biz, cust)
	data.TransactionID = p.TransactionID
	if data.TransactionID == "" && b.TransactionID != nil {
		data.TransactionID = *b.TransactionID
	}
	html, err := r.render("confirmation", b.BusinessType, data)
	if err != nil {
		return Message{}, err
	}
	return Message{
		To:      cust.Email,
		Subject: fmt.Sprintf("Payment confirmed for your %s booking", biz.Name),
		HTML:    html,
	}, nil
}

func (r *Renderer) data(b *domain.Booking, biz *domain.Business, cust *domain.Customer) templateData {
	return templateData{
		CustomerName:  cust.Username,
		BusinessName:  biz.Name,
		BookingID:     b.ID,
		Details:       b.Details,
		Amount:        b.Amount,
		AdvanceAmount: b.AdvanceAmount,
		RoomNumber:    b.RoomNumber,
	}
}

func (r *Renderer) render(name string, bt domain.BusinessType, data templateData) (string, error) {
	t, ok := r.byType[bt]
	if !ok {
		t = r.generic
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
