package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"property_manager/internal/adapters/observability"
	"property_manager/internal/domain"
)

const (
	defaultPageSize = 100
	maxPages        = 1000
	defaultTimeout  = 5 * time.Minute
)

// SyncResult summarizes one reconciliation run. A run that returns a
// SyncResult with Errors still succeeded for every property not listed.
type SyncResult struct {
	RunID    string   `json:"runId"`
	Synced   int      `json:"synced"`
	Created  int      `json:"created"`
	Updated  int      `json:"updated"`
	Unmapped []string `json:"unmapped,omitempty"`
	Errors   []string `json:"errors,omitempty"`
}

type SyncService struct {
	channel  domain.Channel
	repo     domain.Repository
	pageSize int
	now      domain.Clock
	timeout  time.Duration
	flight   singleflight.Group
}

func NewSyncService(ch domain.Channel, repo domain.Repository, pageSize int) *SyncService {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &SyncService{channel: ch, repo: repo, pageSize: pageSize, now: time.Now, timeout: defaultTimeout}
}

func (s *SyncService) SetClock(c domain.Clock) { s.now = c }

// SetTimeout bounds a single run; non-positive values are ignored.
func (s *SyncService) SetTimeout(d time.Duration) {
	if d > 0 {
		s.timeout = d
	}
}

// share runs fn once per key. The run is detached from the caller's
// cancellation so callers that joined it are not failed by the first one
// leaving; each caller still stops waiting when its own ctx ends.
func (s *SyncService) share(ctx context.Context, key string, fn func(context.Context) (SyncResult, error)) (SyncResult, error) {
	ch := s.flight.DoChan(key, func() (any, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		return fn(runCtx)
	})
	select {
	case <-ctx.Done():
		return SyncResult{}, ctx.Err()
	case r := <-ch:
		if r.Shared {
			log.Debug().Str("key", key).Msg("joined in-flight sync")
		}
		res, _ := r.Val.(SyncResult)
		return res, r.Err
	}
}

// SyncReservations mirrors upstream reservations of every linked property,
// or only of propertyID when set. Identical concurrent calls share one run.
func (s *SyncService) SyncReservations(ctx context.Context, propertyID *int64) (SyncResult, error) {
	key := "reservations:all"
	if propertyID != nil {
		key = fmt.Sprintf("reservations:%d", *propertyID)
	}
	return s.share(ctx, key, func(ctx context.Context) (SyncResult, error) {
		return s.syncReservations(ctx, propertyID)
	})
}

func (s *SyncService) syncReservations(ctx context.Context, propertyID *int64) (SyncResult, error) {
	// Preconditions fail the whole run; everything after is per property.
	if !s.channel.Configured() {
		return SyncResult{}, domain.ConfigurationError{Setting: "SMOOBU_API_KEY", Msg: "Smoobu API key not configured"}
	}
	props, err := s.repo.ListLinkedProperties(ctx, propertyID)
	if err != nil {
		return SyncResult{}, fmt.Errorf("list linked properties: %w", err)
	}
	if len(props) == 0 {
		return SyncResult{}, domain.NotFoundError{Resource: "properties with Smoobu IDs"}
	}

	res := SyncResult{RunID: uuid.NewString()}
	l := log.With().Str("run_id", res.RunID).Str("sync", "reservations").Logger()
	l.Info().Int("properties", len(props)).Msg("sync started")

	for _, p := range props {
		if err := s.syncProperty(ctx, l, p, &res); err != nil {
			observability.ObserveSync("booking", "failed")
			l.Warn().Int64("property_id", p.ID).Err(err).
				Str("err_type", observability.LabelErr(err)).Msg("property sync failed")
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %s", p.Name, err))
			continue
		}
	}

	l.Info().
		Int("synced", res.Synced).
		Int("created", res.Created).
		Int("updated", res.Updated).
		Int("unmapped", len(res.Unmapped)).
		Int("errors", len(res.Errors)).
		Msg("sync finished")
	return res, nil
}

// syncProperty walks every page of the property's reservations.
func (s *SyncService) syncProperty(ctx context.Context, l zerolog.Logger, p domain.Property, res *SyncResult) error {
	for page := 1; page <= maxPages; page++ {
		pg, err := s.channel.Reservations(ctx, domain.ReservationQuery{
			ApartmentID: *p.ExternalID,
			Page:        page,
			PageSize:    s.pageSize,
		})
		if err != nil {
			return err
		}
		for _, er := range pg.Items {
			res.Synced++
			created, err := s.reconcile(ctx, p, er.Booking)
			if err != nil {
				return err
			}
			if created {
				res.Created++
				observability.ObserveSync("booking", "created")
			} else {
				res.Updated++
				observability.ObserveSync("booking", "updated")
			}
			if er.Unmapped {
				ext := *er.Booking.ExternalID
				res.Unmapped = append(res.Unmapped, fmt.Sprintf("%s: %s", ext, er.RawStatus))
				observability.ObserveUnmappedStatus(er.RawStatus)
				l.Warn().Str("external_id", ext).Str("status", er.RawStatus).
					Msg("unmapped reservation status, stored as CONFIRMED")
			}
		}
		if pg.Last(s.pageSize) {
			return nil
		}
	}
	return fmt.Errorf("reservations did not fit in %d pages", maxPages)
}

// reconcile upserts one mapped reservation keyed on its external id.
// A new reservation also gets its turnover cleaning job.
func (s *SyncService) reconcile(ctx context.Context, p domain.Property, b domain.Booking) (bool, error) {
	if b.ExternalID == nil {
		return false, errors.New("reservation without external id")
	}
	ext := *b.ExternalID
	b.PropertyID = p.ID
	now := s.now().UTC()
	b.SyncedAt = &now

	existing, err := s.repo.FindBookingByExternalID(ctx, ext)
	switch {
	case err == nil:
		// Ownership moves with the upstream apartment.
		if sameBooking(existing, b) {
			return false, nil
		}
		b.ID = existing.ID
		b.Version = existing.Version
		b.CreatedAt = existing.CreatedAt
		if _, err := s.repo.UpdateBooking(ctx, b); err != nil {
			return false, fmt.Errorf("update booking %s: %w", ext, err)
		}
		return false, nil

	case domain.IsNotFound(err):
		var job *domain.CleaningJob
		if !b.IsBlock() {
			j := domain.TurnoverCleaning(b)
			job = &j
		}
		if _, err := s.repo.CreateBooking(ctx, b, job); err != nil {
			return false, fmt.Errorf("create booking %s: %w", ext, err)
		}
		return true, nil

	default:
		return false, fmt.Errorf("lookup booking %s: %w", ext, err)
	}
}

// sameBooking compares the upstream-owned fields, ignoring sync bookkeeping.
func sameBooking(a, b domain.Booking) bool {
	return a.PropertyID == b.PropertyID &&
		a.Kind == b.Kind &&
		sameGuest(a.Guest, b.Guest) &&
		a.NumGuests == b.NumGuests &&
		a.CheckIn.Equal(b.CheckIn) &&
		a.CheckOut.Equal(b.CheckOut) &&
		eqPtr(a.TotalAmount, b.TotalAmount) &&
		a.Source == b.Source &&
		a.Status == b.Status &&
		eqPtr(a.Notes, b.Notes)
}

func sameGuest(a, b *domain.Guest) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Name == b.Name && eqPtr(a.Email, b.Email) && eqPtr(a.Phone, b.Phone)
}

func eqPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// SyncProperties imports Smoobu apartments as properties, keyed on the apartment id.
func (s *SyncService) SyncProperties(ctx context.Context) (SyncResult, error) {
	return s.share(ctx, "properties", s.syncProperties)
}

func (s *SyncService) syncProperties(ctx context.Context) (SyncResult, error) {
	if !s.channel.Configured() {
		return SyncResult{}, domain.ConfigurationError{Setting: "SMOOBU_API_KEY", Msg: "Smoobu API key not configured"}
	}
	apartments, err := s.channel.Apartments(ctx)
	if err != nil {
		return SyncResult{}, fmt.Errorf("list apartments: %w", err)
	}

	res := SyncResult{RunID: uuid.NewString(), Synced: len(apartments)}
	l := log.With().Str("run_id", res.RunID).Str("sync", "properties").Logger()

	for _, a := range apartments {
		existing, err := s.repo.FindPropertyByExternalID(ctx, *a.ExternalID)
		switch {
		case err == nil:
			if err := s.repo.UpdateProperty(ctx, mergeApartment(existing, a)); err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("%s: %s", a.Name, err))
				observability.ObserveSync("property", "failed")
				continue
			}
			res.Updated++
			observability.ObserveSync("property", "updated")
		case domain.IsNotFound(err):
			if _, err := s.repo.CreateProperty(ctx, a); err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("%s: %s", a.Name, err))
				observability.ObserveSync("property", "failed")
				continue
			}
			res.Created++
			observability.ObserveSync("property", "created")
		default:
			res.Errors = append(res.Errors, fmt.Sprintf("%s: %s", a.Name, err))
			observability.ObserveSync("property", "failed")
		}
	}

	l.Info().Int("synced", res.Synced).Int("created", res.Created).Int("updated", res.Updated).
		Int("errors", len(res.Errors)).Msg("sync finished")
	return res, nil
}

// mergeApartment overlays upstream fields on a stored property, keeping
// local address parts when Smoobu sends them empty.
func mergeApartment(p, a domain.Property) domain.Property {
	p.Name = a.Name
	if a.Address != "" {
		p.Address = a.Address
	}
	if a.City != "" {
		p.City = a.City
	}
	if a.Country != "" {
		p.Country = a.Country
	}
	p.PostalCode = a.PostalCode
	p.Lat, p.Lon = a.Lat, a.Lon
	p.Bedrooms = a.Bedrooms
	return p
}
