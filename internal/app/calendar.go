package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"property_manager/internal/domain"
)

// CalendarService owns bookings, blocks and occupancy questions.
type CalendarService struct {
	repo    domain.Repository
	channel domain.Channel
	now     domain.Clock
}

func NewCalendarService(repo domain.Repository, ch domain.Channel) *CalendarService {
	return &CalendarService{repo: repo, channel: ch, now: time.Now}
}

func (s *CalendarService) SetClock(c domain.Clock) { s.now = c }

type BookingInput struct {
	PropertyID  int64                `json:"propertyId" validate:"required"`
	GuestName   string               `json:"guestName" validate:"required"`
	GuestEmail  *string              `json:"guestEmail" validate:"omitempty,email"`
	GuestPhone  *string              `json:"guestPhone"`
	CheckIn     string               `json:"checkIn" validate:"required"`
	CheckOut    string               `json:"checkOut" validate:"required"`
	NumGuests   int                  `json:"numGuests" validate:"gte=0"`
	TotalAmount *float64             `json:"totalAmount" validate:"omitempty,gte=0"`
	Source      domain.BookingSource `json:"source"`
	Status      domain.BookingStatus `json:"status"`
	Notes       *string              `json:"notes"`
}

// CreateBooking stores a direct reservation together with its turnover cleaning job.
func (s *CalendarService) CreateBooking(ctx context.Context, in BookingInput) (domain.Booking, error) {
	if err := validateInput(in); err != nil {
		return domain.Booking{}, err
	}
	checkIn, err := domain.ParseDate(in.CheckIn)
	if err != nil {
		return domain.Booking{}, err
	}
	checkOut, err := domain.ParseDate(in.CheckOut)
	if err != nil {
		return domain.Booking{}, err
	}
	if !checkOut.After(checkIn) {
		return domain.Booking{}, domain.ValidationError{Field: "checkOut", Msg: "must be after checkIn"}
	}
	if in.Source == "" {
		in.Source = domain.SourceDirect
	}
	if !in.Source.Valid() {
		return domain.Booking{}, domain.ValidationError{Field: "source", Msg: "unknown source " + strconv.Quote(string(in.Source))}
	}
	if in.Status == "" {
		in.Status = domain.StatusConfirmed
	}
	if !in.Status.Valid() {
		return domain.Booking{}, domain.ValidationError{Field: "status", Msg: "unknown status " + strconv.Quote(string(in.Status))}
	}
	if in.NumGuests == 0 {
		in.NumGuests = 1
	}
	if _, err := s.repo.GetProperty(ctx, in.PropertyID); err != nil {
		return domain.Booking{}, err
	}

	b := domain.Booking{
		PropertyID: in.PropertyID,
		Kind:       domain.KindReservation,
		Guest: &domain.Guest{
			Name:  strings.TrimSpace(in.GuestName),
			Email: in.GuestEmail,
			Phone: in.GuestPhone,
		},
		NumGuests:   in.NumGuests,
		CheckIn:     checkIn,
		CheckOut:    checkOut,
		TotalAmount: in.TotalAmount,
		Source:      in.Source,
		Status:      in.Status,
		Notes:       in.Notes,
	}
	job := domain.TurnoverCleaning(b)
	return s.repo.CreateBooking(ctx, b, &job)
}

type BookingDetail struct {
	Booking      domain.Booking       `json:"booking"`
	CleaningJobs []domain.CleaningJob `json:"cleaningJobs"`
}

func (s *CalendarService) GetBooking(ctx context.Context, id int64) (BookingDetail, error) {
	b, err := s.repo.GetBooking(ctx, id)
	if err != nil {
		return BookingDetail{}, err
	}
	jobs, err := s.repo.ListCleaningJobs(ctx, id)
	if err != nil {
		return BookingDetail{}, fmt.Errorf("list cleaning jobs: %w", err)
	}
	return BookingDetail{Booking: b, CleaningJobs: jobs}, nil
}

// IsOccupied reports whether a non-cancelled entry covers the night of day.
// Checkout day is free: [checkIn, checkOut).
func (s *CalendarService) IsOccupied(ctx context.Context, propertyID int64, day time.Time) (bool, error) {
	if _, err := s.repo.GetProperty(ctx, propertyID); err != nil {
		return false, err
	}
	d := domain.Day(day)
	entries, err := s.repo.ListActiveBookings(ctx, propertyID, domain.DateRange{Start: d, End: d})
	if err != nil {
		return false, fmt.Errorf("list bookings: %w", err)
	}
	for _, e := range entries {
		if e.Occupies(d) {
			return true, nil
		}
	}
	return false, nil
}

type Availability struct {
	PropertyID int64            `json:"propertyId"`
	Start      string           `json:"startDate"`
	End        string           `json:"endDate"`
	Available  bool             `json:"isAvailable"`
	Entries    []domain.Booking `json:"bookings"`
}

// CheckAvailability asks the channel manager and lists local entries in the range.
func (s *CalendarService) CheckAvailability(ctx context.Context, propertyID int64, r domain.DateRange) (Availability, error) {
	p, err := s.linkedProperty(ctx, propertyID)
	if err != nil {
		return Availability{}, err
	}
	ok, err := s.channel.CheckAvailability(ctx, *p.ExternalID, r)
	if err != nil {
		return Availability{}, err
	}
	entries, err := s.repo.ListActiveBookings(ctx, propertyID, r)
	if err != nil {
		return Availability{}, fmt.Errorf("list bookings: %w", err)
	}
	return Availability{
		PropertyID: propertyID,
		Start:      domain.FormatDate(r.Start),
		End:        domain.FormatDate(r.End),
		Available:  ok,
		Entries:    entries,
	}, nil
}

type BlockInput struct {
	Start string `json:"startDate" validate:"required"`
	End   string `json:"endDate" validate:"required"`
	Note  string `json:"note"`
}

// BlockDates blocks [start, end) upstream and mirrors the block locally.
func (s *CalendarService) BlockDates(ctx context.Context, propertyID int64, in BlockInput) (domain.Booking, error) {
	if err := validateInput(in); err != nil {
		return domain.Booking{}, err
	}
	r, err := domain.NewDateRange(in.Start, in.End)
	if err != nil {
		return domain.Booking{}, err
	}
	if !r.End.After(r.Start) {
		return domain.Booking{}, domain.ValidationError{Field: "endDate", Msg: "must be after startDate"}
	}
	p, err := s.linkedProperty(ctx, propertyID)
	if err != nil {
		return domain.Booking{}, err
	}

	b, err := s.channel.BlockDates(ctx, *p.ExternalID, r, strings.TrimSpace(in.Note))
	if err != nil {
		return domain.Booking{}, err
	}
	b.PropertyID = p.ID
	now := s.now().UTC()
	b.SyncedAt = &now
	created, err := s.repo.CreateBooking(ctx, b, nil)
	if err != nil {
		// the upstream block exists; the next reservation sync will mirror it
		log.Error().Err(err).Str("external_id", *b.ExternalID).Msg("store block failed")
		return domain.Booking{}, fmt.Errorf("store block: %w", err)
	}
	return created, nil
}

// UnblockDates removes a block entry, cancelling it upstream first when linked.
func (s *CalendarService) UnblockDates(ctx context.Context, bookingID int64) error {
	b, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return err
	}
	if !b.IsBlock() {
		return domain.ValidationError{Field: "bookingId", Msg: "can only unblock blocked dates, not actual bookings"}
	}
	if b.ExternalID != nil {
		if err := s.channel.CancelReservation(ctx, *b.ExternalID); err != nil {
			return err
		}
	}
	return s.repo.DeleteBooking(ctx, bookingID)
}

// RemoteRates reads the channel manager's pricing for the property.
func (s *CalendarService) RemoteRates(ctx context.Context, propertyID int64, r domain.DateRange) ([]domain.RemoteRate, error) {
	p, err := s.linkedProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	return s.channel.Rates(ctx, *p.ExternalID, r)
}

type RemoteRateInput struct {
	Start     string   `json:"startDate" validate:"required"`
	End       string   `json:"endDate" validate:"required"`
	Price     *float64 `json:"price" validate:"omitempty,gte=0"`
	MinStay   *int     `json:"minStay" validate:"omitempty,gte=1"`
	Available *bool    `json:"available"`
}

func (s *CalendarService) UpdateRemoteRates(ctx context.Context, propertyID int64, in RemoteRateInput) error {
	if err := validateInput(in); err != nil {
		return err
	}
	r, err := domain.NewDateRange(in.Start, in.End)
	if err != nil {
		return err
	}
	p, err := s.linkedProperty(ctx, propertyID)
	if err != nil {
		return err
	}
	return s.channel.UpdateRates(ctx, domain.RemoteRateUpdate{
		ApartmentIDs: []string{*p.ExternalID},
		Range:        r,
		Price:        in.Price,
		MinStay:      in.MinStay,
		Available:    in.Available,
	})
}

func (s *CalendarService) linkedProperty(ctx context.Context, propertyID int64) (domain.Property, error) {
	p, err := s.repo.GetProperty(ctx, propertyID)
	if err != nil {
		return domain.Property{}, err
	}
	if !p.Linked() {
		return domain.Property{}, domain.NotFoundError{Resource: "property linked to Smoobu", ID: strconv.FormatInt(propertyID, 10)}
	}
	return p, nil
}
