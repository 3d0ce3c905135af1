package domain

import "time"

type BookingStatus string

const (
	StatusPending    BookingStatus = "PENDING"
	StatusConfirmed  BookingStatus = "CONFIRMED"
	StatusCheckedIn  BookingStatus = "CHECKED_IN"
	StatusCheckedOut BookingStatus = "CHECKED_OUT"
	StatusCancelled  BookingStatus = "CANCELLED"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCheckedIn, StatusCheckedOut, StatusCancelled:
		return true
	}
	return false
}

type BookingSource string

const (
	SourceDirect     BookingSource = "DIRECT"
	SourceAirbnb     BookingSource = "AIRBNB"
	SourceBookingCom BookingSource = "BOOKING_COM"
	SourceVRBO       BookingSource = "VRBO"
	SourceSmoobu     BookingSource = "SMOOBU"
)

func (s BookingSource) Valid() bool {
	switch s {
	case SourceDirect, SourceAirbnb, SourceBookingCom, SourceVRBO, SourceSmoobu:
		return true
	}
	return false
}

// EntryKind tags a calendar entry as a guest reservation or an owner block.
type EntryKind string

const (
	KindReservation EntryKind = "reservation"
	KindBlock       EntryKind = "block"
)

type Guest struct {
	Name  string  `json:"name"`
	Email *string `json:"email,omitempty"`
	Phone *string `json:"phone,omitempty"`
}

// Booking is one calendar entry. Reservations carry a Guest; blocks carry
// only a note in Notes and a nil Guest.
type Booking struct {
	ID          int64         `json:"id"`
	PropertyID  int64         `json:"propertyId"`
	Kind        EntryKind     `json:"kind"`
	Guest       *Guest        `json:"guest,omitempty"`
	NumGuests   int           `json:"numGuests"`
	CheckIn     time.Time     `json:"checkIn"`
	CheckOut    time.Time     `json:"checkOut"` // exclusive
	TotalAmount *float64      `json:"totalAmount,omitempty"`
	Source      BookingSource `json:"source"`
	Status      BookingStatus `json:"status"`
	Notes       *string       `json:"notes,omitempty"`
	ExternalID  *string       `json:"smoobuId,omitempty"`
	SyncedAt    *time.Time    `json:"syncedAt,omitempty"`
	Version     int64         `json:"version"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

func (b Booking) IsBlock() bool { return b.Kind == KindBlock }

// GuestName returns the guest's name, or "" for blocks.
func (b Booking) GuestName() string {
	if b.Guest == nil {
		return ""
	}
	return b.Guest.Name
}

// Occupies reports whether the night starting on day is taken by this entry.
// The stay is the half-open interval [CheckIn, CheckOut).
func (b Booking) Occupies(day time.Time) bool {
	if b.Status == StatusCancelled {
		return false
	}
	d := Day(day)
	return !d.Before(Day(b.CheckIn)) && d.Before(Day(b.CheckOut))
}

// Overlaps reports whether the entry occupies any night in r.
func (b Booking) Overlaps(r DateRange) bool {
	return Day(b.CheckIn).Before(Day(r.End).AddDate(0, 0, 1)) && Day(b.CheckOut).After(Day(r.Start))
}

type CleaningStatus string

const (
	CleaningPending    CleaningStatus = "PENDING"
	CleaningInProgress CleaningStatus = "IN_PROGRESS"
	CleaningCompleted  CleaningStatus = "COMPLETED"
	CleaningCancelled  CleaningStatus = "CANCELLED"
)

type CleaningJob struct {
	ID            int64          `json:"id"`
	PropertyID    int64          `json:"propertyId"`
	BookingID     *int64         `json:"bookingId,omitempty"`
	ScheduledDate time.Time      `json:"scheduledDate"`
	Status        CleaningStatus `json:"status"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// TurnoverCleaning is the job spawned by a new reservation, due on checkout day.
func TurnoverCleaning(b Booking) CleaningJob {
	return CleaningJob{
		PropertyID:    b.PropertyID,
		ScheduledDate: Day(b.CheckOut),
		Status:        CleaningPending,
	}
}

// ExternalReservation is a mapped upstream reservation plus the status
// information the mapping had to default.
type ExternalReservation struct {
	Booking   Booking
	RawStatus string
	Unmapped  bool // RawStatus had no entry in the status table
}

type ReservationQuery struct {
	ApartmentID string
	From, To    *time.Time
	Page        int
	PageSize    int
}

type ReservationPage struct {
	Items     []ExternalReservation
	Page      int
	PageCount int
	PageSize  int
	Total     int
}

// Last reports whether no further pages should be requested. A reported
// page count is authoritative; a short page only ends the walk when the
// upstream sent no count.
func (p ReservationPage) Last(requested int) bool {
	if p.PageCount > 0 {
		return p.Page >= p.PageCount
	}
	if len(p.Items) == 0 {
		return true
	}
	size := requested
	if p.PageSize > 0 {
		size = p.PageSize
	}
	return len(p.Items) < size
}
