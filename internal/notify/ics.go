package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/readypixelgo/venue-booking/internal/model"
)

const (
	VenueName    = "Ready Pixel Go"
	VenueAddress = "Sundbybergsvägen 1F, 171 73 Solna"
	venueDomain  = "readypixelgo.se"
	// SessionLength is the duration of one booked slot.
	SessionLength = time.Hour
)

// icsStockholm is a minimal VTIMEZONE so calendar clients resolve local
// times without a tz database lookup.
var icsStockholm = []string{
	"BEGIN:VTIMEZONE",
	"TZID:Europe/Stockholm",
	"X-LIC-LOCATION:Europe/Stockholm",
	"BEGIN:DAYLIGHT",
	"TZOFFSETFROM:+0100",
	"TZOFFSETTO:+0200",
	"TZNAME:CEST",
	"DTSTART:19700329T020000",
	"RRULE:FREQ=YEARLY;BYMONTH=3;BYDAY=-1SU",
	"END:DAYLIGHT",
	"BEGIN:STANDARD",
	"TZOFFSETFROM:+0200",
	"TZOFFSETTO:+0100",
	"TZNAME:CET",
	"DTSTART:19701025T030000",
	"RRULE:FREQ=YEARLY;BYMONTH=10;BYDAY=-1SU",
	"END:STANDARD",
	"END:VTIMEZONE",
}

// SlotStart returns the local start time of a booking.
func SlotStart(b model.Booking, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation("2006-01-02 15:04", b.BookingDate+" "+b.TimeSlot, loc)
}

// BuildICS renders a single-event calendar invite for a confirmed booking.
// Times are written in the venue's local zone with a TZID reference.
func BuildICS(b model.Booking, loc *time.Location, now time.Time) ([]byte, error) {
	start, err := SlotStart(b, loc)
	if err != nil {
		return nil, fmt.Errorf("ics: %w", err)
	}
	end := start.Add(SessionLength)
	const local = "20060102T150405"

	desc := []string{
		"Boknings-ID: " + b.ID,
		"E-post: " + b.Email,
	}
	if b.Phone != "" {
		desc = append(desc, "Telefon: "+b.Phone)
	}
	if b.PaymentMethod != "" {
		desc = append(desc, "Betalning: "+b.PaymentMethod)
	}
	if b.DiscountCode != nil && *b.DiscountCode != "" {
		desc = append(desc, "Rabattkod: "+*b.DiscountCode)
	}
	for i := range desc {
		desc[i] = icsEscape(desc[i])
	}

	tzid := loc.String()
	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//Ready Pixel Go//Booking Confirmation//EN",
		"CALSCALE:GREGORIAN",
		"METHOD:REQUEST",
	}
	if tzid == "Europe/Stockholm" {
		lines = append(lines, icsStockholm...)
	}
	lines = append(lines,
		"BEGIN:VEVENT",
		"UID:"+b.ID+"@"+venueDomain,
		"DTSTAMP:"+now.UTC().Format("20060102T150405Z"),
		"DTSTART;TZID="+tzid+":"+start.Format(local),
		"DTEND;TZID="+tzid+":"+end.Format(local),
		"SUMMARY:"+VenueName+" bokning",
		"STATUS:CONFIRMED",
		"SEQUENCE:0",
		"TRANSP:OPAQUE",
		"LOCATION:"+icsEscape(VenueAddress),
		"DESCRIPTION:"+strings.Join(desc, `\n`),
		"ORGANIZER;CN="+VenueName+":mailto:no-reply@"+venueDomain,
		"ATTENDEE;CN="+b.Email+";ROLE=REQ-PARTICIPANT;PARTSTAT=NEEDS-ACTION;RSVP=FALSE:mailto:"+b.Email,
		"END:VEVENT",
		"END:VCALENDAR",
		"",
	)
	return []byte(strings.Join(lines, "\r\n")), nil
}

var icsEscaper = strings.NewReplacer(`\`, `\\`, ";", `\;`, ",", `\,`, "\n", `\n`)

func icsEscape(s string) string { return icsEscaper.Replace(s) }
