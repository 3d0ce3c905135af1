package domain

import (
	"context"
	"time"
)

type PropertyRepository interface {
	CreateProperty(ctx context.Context, p Property) (Property, error)
	UpdateProperty(ctx context.Context, p Property) error
	DeleteProperty(ctx context.Context, id int64) error
	GetProperty(ctx context.Context, id int64) (Property, error)
	FindPropertyByExternalID(ctx context.Context, externalID string) (Property, error)
	// ListLinkedProperties returns properties with an external id, optionally only the given one.
	ListLinkedProperties(ctx context.Context, onlyID *int64) ([]Property, error)
}

type BookingRepository interface {
	GetBooking(ctx context.Context, id int64) (Booking, error)
	FindBookingByExternalID(ctx context.Context, externalID string) (Booking, error)
	// CreateBooking stores b and, when job is non-nil, the cleaning job linked to it, atomically.
	CreateBooking(ctx context.Context, b Booking, job *CleaningJob) (Booking, error)
	// UpdateBooking writes b if its stored version still equals b.Version.
	UpdateBooking(ctx context.Context, b Booking) (Booking, error)
	DeleteBooking(ctx context.Context, id int64) error
	// ListActiveBookings returns non-cancelled entries occupying any night in r.
	ListActiveBookings(ctx context.Context, propertyID int64, r DateRange) ([]Booking, error)
	ListCleaningJobs(ctx context.Context, bookingID int64) ([]CleaningJob, error)
}

type RateRepository interface {
	ListRates(ctx context.Context, propertyID int64, r DateRange) ([]PropertyRate, error)
	// UpsertRates writes one override per day of r in a single transaction.
	UpsertRates(ctx context.Context, propertyID int64, r DateRange, rate float64) (int, error)
	DeleteRates(ctx context.Context, propertyID int64, r DateRange) (int, error)
}

type MessageRepository interface {
	// InsertMessageIfAbsent stores m unless its external id is already known.
	InsertMessageIfAbsent(ctx context.Context, m Message) (bool, error)
	CreateMessage(ctx context.Context, m Message) (Message, error)
	ListMessages(ctx context.Context, bookingID int64) ([]Message, error)
}

type Repository interface {
	PropertyRepository
	BookingRepository
	RateRepository
	MessageRepository
}

// Channel is the channel-manager port. Implementations return records
// already mapped onto local shapes.
type Channel interface {
	Configured() bool
	Reservations(ctx context.Context, q ReservationQuery) (ReservationPage, error)
	Apartments(ctx context.Context) ([]Property, error)
	Rates(ctx context.Context, apartmentID string, r DateRange) ([]RemoteRate, error)
	UpdateRates(ctx context.Context, u RemoteRateUpdate) error
	CheckAvailability(ctx context.Context, apartmentID string, r DateRange) (bool, error)
	BlockDates(ctx context.Context, apartmentID string, r DateRange, note string) (Booking, error)
	CancelReservation(ctx context.Context, reservationID string) error
	Messages(ctx context.Context, reservationID string, bookingID int64) ([]Message, error)
	SendMessage(ctx context.Context, reservationID, content, subject string) error
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// Clock lets services stamp SyncedAt deterministically in tests.
type Clock func() time.Time
