package smoobu

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"property_manager/internal/domain"
)

// DefaultBlockNote is stored on blocks created without an explicit note.
const DefaultBlockNote = "Blocked via Property Manager"

/********** lookup tables (single source of truth) **********/

var channelSources = map[string]domain.BookingSource{
	"Airbnb":      domain.SourceAirbnb,
	"Booking.com": domain.SourceBookingCom,
	"VRBO":        domain.SourceVRBO,
	"Direct":      domain.SourceDirect,
}

var reservationStatuses = map[string]domain.BookingStatus{
	"confirmed":   domain.StatusConfirmed,
	"pending":     domain.StatusPending,
	"cancelled":   domain.StatusCancelled,
	"checked-in":  domain.StatusCheckedIn,
	"checked-out": domain.StatusCheckedOut,
}

/********** tiny helpers **********/

func ptrStr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func ptrF64(f float64) *float64 {
	if f == 0 {
		return nil
	}
	return &f
}

func ptrInt(i int) *int {
	if i == 0 {
		return nil
	}
	return &i
}

func idString(id int64) *string {
	s := strconv.FormatInt(id, 10)
	return &s
}

// MapChannel resolves a channel name; unknown channels are attributed to Smoobu itself.
func MapChannel(name string) domain.BookingSource {
	if src, ok := channelSources[name]; ok {
		return src
	}
	return domain.SourceSmoobu
}

// MapStatus resolves an upstream lifecycle string. Unknown values map to
// CONFIRMED and report ok=false so the caller can surface them.
func MapStatus(raw string) (status domain.BookingStatus, ok bool) {
	if st, found := reservationStatuses[strings.ToLower(strings.TrimSpace(raw))]; found {
		return st, true
	}
	return domain.StatusConfirmed, false
}

/********** reservation mapper **********/

func MapReservation(r Reservation) (domain.ExternalReservation, error) {
	checkIn, err := domain.ParseDate(r.Arrival)
	if err != nil {
		return domain.ExternalReservation{}, fmt.Errorf("reservation %d arrival %q: %w", r.ID, r.Arrival, err)
	}
	checkOut, err := domain.ParseDate(r.Departure)
	if err != nil {
		return domain.ExternalReservation{}, fmt.Errorf("reservation %d departure %q: %w", r.ID, r.Departure, err)
	}
	status, ok := MapStatus(r.Status)

	b := domain.Booking{
		Kind:        domain.KindReservation,
		NumGuests:   r.Adults + r.Children,
		CheckIn:     checkIn,
		CheckOut:    checkOut,
		TotalAmount: ptrF64(r.Price),
		Source:      MapChannel(r.Channel.Name),
		Status:      status,
		Notes:       ptrStr(r.GuestNotice),
		ExternalID:  idString(r.ID),
	}
	if r.IsBlockedBooking {
		b.Kind = domain.KindBlock
		b.NumGuests = 0
		b.TotalAmount = nil
		b.Notes = ptrStr(r.HostNotice)
	} else {
		b.Guest = &domain.Guest{
			Name:  strings.TrimSpace(r.GuestName),
			Email: ptrStr(r.Email),
			Phone: ptrStr(r.Phone),
		}
	}

	return domain.ExternalReservation{Booking: b, RawStatus: r.Status, Unmapped: !ok}, nil
}

/********** apartment mapper **********/

func MapApartment(a Apartment) domain.Property {
	p := domain.Property{
		Name:       strings.TrimSpace(a.Name),
		Address:    strings.TrimSpace(a.Street),
		City:       strings.TrimSpace(a.City),
		PostalCode: ptrStr(a.PostalCode),
		Country:    strings.TrimSpace(a.Country.Name),
		Lat:        ptrF64(a.Location.Latitude),
		Lon:        ptrF64(a.Location.Longitude),
		Bedrooms:   ptrInt(a.Rooms.Bedrooms),
		Status:     domain.PropertyActive,
		ExternalID: idString(a.ID),
	}
	return p
}

/********** message mapper **********/

// messageTimeLayouts are tried in order; Smoobu has used both.
var messageTimeLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"}

func MapMessage(m Message, bookingID int64) domain.Message {
	content := m.MessageText
	if strings.TrimSpace(content) == "" {
		content = m.MessageHTML
	}
	sender := domain.SenderGuest
	if m.Direction == "out" {
		sender = domain.SenderHost
	}
	var sentAt time.Time
	for _, layout := range messageTimeLayouts {
		if t, err := time.ParseInLocation(layout, m.CreatedAt, time.UTC); err == nil {
			sentAt = t.UTC()
			break
		}
	}
	return domain.Message{
		BookingID:  bookingID,
		ExternalID: idString(m.ID),
		Sender:     sender,
		Subject:    ptrStr(m.Subject),
		Content:    content,
		SentAt:     sentAt,
	}
}
