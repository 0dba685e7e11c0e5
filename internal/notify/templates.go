package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/readypixelgo/venue-booking/internal/model"
)

var (
	svMonths   = [...]string{"januari", "februari", "mars", "april", "maj", "juni", "juli", "augusti", "september", "oktober", "november", "december"}
	svWeekdays = [...]string{"söndag", "måndag", "tisdag", "onsdag", "torsdag", "fredag", "lördag"}
)

func svLongDate(t time.Time) string {
	return fmt.Sprintf("%s %d %s", svWeekdays[t.Weekday()], t.Day(), svMonths[t.Month()-1])
}

func svShortDate(t time.Time) string {
	return fmt.Sprintf("%d %s", t.Day(), svMonths[t.Month()-1][:3])
}

func svFullDate(t time.Time) string {
	return fmt.Sprintf("%d %s %d", t.Day(), svMonths[t.Month()-1], t.Year())
}

var confirmationTmpl = template.Must(template.New("confirmation").Parse(`<!DOCTYPE html>
<html lang="sv">
<head><meta charset="UTF-8"><meta name="viewport" content="width=device-width, initial-scale=1.0"></head>
<body style="margin:0; padding:0; background:#050816;">
<div style="max-width:640px; margin:0 auto; padding:32px; color:#e2e8f0; font-family:'Segoe UI', Tahoma, sans-serif; background:#0f172a; border-radius:20px;">
  <p style="letter-spacing:0.3em; text-transform:uppercase; font-size:13px;">Ready Pixel Go</p>
  <h1 style="font-size:28px; margin:0 0 24px;">Din bokning är bekräftad!</h1>
  <p>Tack för din bokning! Här är en sammanfattning av din session, spara gärna mejlet.</p>
  <p>När: <strong>{{.DateLabel}}, {{.B.TimeSlot}}</strong><br>Plats: <strong>{{.Address}}</strong></p>
  <p>Antal gäster: <strong>{{.Guests}}</strong> ({{.B.Adults}} vuxna{{if .B.Children}} + {{.B.Children}} barn{{end}})</p>
  <p>Betalning: <strong>{{.B.TotalPrice}} SEK</strong> {{.B.PaymentMethod}}</p>
  {{if .DiscountCode}}<p>Rabattkod: <strong>{{.DiscountCode}}</strong></p>{{end}}
  <p>Boknings-ID: <code>{{.B.ID}}</code><br>E-post: {{.B.Email}}{{if .B.Phone}}<br>Telefon: {{.B.Phone}}{{end}}</p>
  <ul>
    <li>Anländ 15 minuter innan din bokade tid</li>
    <li>Ta med innerskor och sportkläder</li>
  </ul>
  <p><a href="{{.SiteURL}}" style="color:#22d3ee;">{{.SiteURL}}</a></p>
</div>
</body>
</html>`))

var discountTmpl = template.Must(template.New("discount").Parse(`<!DOCTYPE html>
<html lang="sv">
<head><meta charset="UTF-8"></head>
<body style="margin:0; padding:0; background:#050816;">
<div style="max-width:600px; margin:0 auto; padding:28px; color:#e2e8f0; font-family:Arial, sans-serif; background:#0f172a; border-radius:20px;">
  <h2>Hej {{.Name}}!</h2>
  <p>Du är bland de första {{.Limit}} på vår väntelista. Här är din lanseringsrabatt:</p>
  <p>Kod: <code style="padding:6px 10px; background:#1e293b; border-radius:6px;">{{.Code}}</code></p>
  <p>Rabatt: {{.Percent}}% på hela bokningen</p>
  <p>Giltig till och med: {{.ExpiryLabel}}</p>
  <p>Använd koden i kassan på <a href="{{.SiteURL}}" style="color:#22d3ee;">{{.SiteURL}}</a>.</p>
  <p style="font-size:12px; color:#94a3b8;"><a href="{{.UnsubscribeURL}}" style="color:#94a3b8;">Avregistrera</a></p>
</div>
</body>
</html>`))

// ConfirmationSubject is the subject line of a booking confirmation.
func ConfirmationSubject(b model.Booking) string {
	d, err := time.Parse(model.DateLayout, b.BookingDate)
	if err != nil {
		return "Bokningsbekräftelse • " + VenueName
	}
	return fmt.Sprintf("Bokningsbekräftelse %s • %s", svShortDate(d), VenueName)
}

// RenderConfirmation renders the confirmation body for b.
func RenderConfirmation(b model.Booking, siteURL string) (string, error) {
	label := b.BookingDate
	if d, err := time.Parse(model.DateLayout, b.BookingDate); err == nil {
		label = svLongDate(d)
	}
	code := ""
	if b.DiscountCode != nil {
		code = *b.DiscountCode
	}
	var buf bytes.Buffer
	err := confirmationTmpl.Execute(&buf, map[string]any{
		"B":            b,
		"DateLabel":    label,
		"Guests":       b.Guests(),
		"Address":      VenueAddress,
		"DiscountCode": code,
		"SiteURL":      siteURL,
	})
	return buf.String(), err
}

// DiscountMail carries the values of a waitlist discount code email.
type DiscountMail struct {
	FirstName      string
	Code           string
	Percent        int
	LastDay        time.Time
	Limit          int
	UnsubscribeURL string
	SiteURL        string
}

// DiscountSubject is the subject line of a waitlist discount email.
func DiscountSubject(percent int) string {
	return fmt.Sprintf("Din lanseringsrabatt på %d%%", percent)
}

// RenderDiscount renders the waitlist discount body.
func RenderDiscount(d DiscountMail) (string, error) {
	name := d.FirstName
	if name == "" {
		name = "vän"
	}
	var buf bytes.Buffer
	err := discountTmpl.Execute(&buf, map[string]any{
		"Name":           name,
		"Limit":          d.Limit,
		"Code":           d.Code,
		"Percent":        d.Percent,
		"ExpiryLabel":    svFullDate(d.LastDay),
		"SiteURL":        d.SiteURL,
		"UnsubscribeURL": d.UnsubscribeURL,
	})
	return buf.String(), err
}
