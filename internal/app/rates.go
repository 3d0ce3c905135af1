package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"property_manager/internal/domain"
)

// RateService answers per-day rate questions by overlaying overrides on the
// property default. Projections are cached per property generation; every
// write bumps the generation so stale ranges are never served.
type RateService struct {
	props    domain.PropertyRepository
	rates    domain.RateRepository
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewRateService(p domain.PropertyRepository, r domain.RateRepository, c domain.Cache, ttl time.Duration) *RateService {
	return &RateService{props: p, rates: r, cache: c, cacheTTL: ttl}
}

// ProjectRates returns one entry per day of r, both ends included.
func (s *RateService) ProjectRates(ctx context.Context, propertyID int64, r domain.DateRange) ([]domain.DayRate, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	key := fmt.Sprintf("rates:%d:%d:%s:%s", propertyID, s.generation(ctx, propertyID),
		domain.FormatDate(r.Start), domain.FormatDate(r.End))
	var out []domain.DayRate
	if s.cache != nil {
		if ok, _ := s.cache.Get(ctx, key, &out); ok {
			return out, nil
		}
	}

	p, err := s.props.GetProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	overrides, err := s.rates.ListRates(ctx, propertyID, r)
	if err != nil {
		return nil, fmt.Errorf("list rates: %w", err)
	}
	out = Project(p.DefaultRate, overrides, r)

	if s.cache != nil {
		_ = s.cache.Set(ctx, key, out, int(s.cacheTTL.Seconds()))
	}
	return out, nil
}

// Project overlays overrides on defaultRate for every day of r. A nil
// default projects as 0.
func Project(defaultRate *float64, overrides []domain.PropertyRate, r domain.DateRange) []domain.DayRate {
	byDay := make(map[string]float64, len(overrides))
	for _, o := range overrides {
		byDay[domain.FormatDate(o.Date)] = o.Rate
	}
	base := 0.0
	if defaultRate != nil {
		base = *defaultRate
	}

	days := r.Days()
	out := make([]domain.DayRate, 0, len(days))
	for _, d := range days {
		k := domain.FormatDate(d)
		if v, ok := byDay[k]; ok {
			out = append(out, domain.DayRate{Date: k, Rate: v, IsCustom: true})
			continue
		}
		out = append(out, domain.DayRate{Date: k, Rate: base})
	}
	return out
}

// SetRateRange writes an override for every day of r and returns how many were written.
func (s *RateService) SetRateRange(ctx context.Context, propertyID int64, r domain.DateRange, rate float64) (int, error) {
	if rate < 0 {
		return 0, domain.ValidationError{Field: "rate", Msg: "must not be negative"}
	}
	if err := r.Validate(); err != nil {
		return 0, err
	}
	if _, err := s.props.GetProperty(ctx, propertyID); err != nil {
		return 0, err
	}
	n, err := s.rates.UpsertRates(ctx, propertyID, r, rate)
	if err != nil {
		return 0, fmt.Errorf("upsert rates: %w", err)
	}
	s.Invalidate(ctx, propertyID)
	return n, nil
}

// ClearRateRange drops the overrides in r, reverting those days to the default.
func (s *RateService) ClearRateRange(ctx context.Context, propertyID int64, r domain.DateRange) (int, error) {
	if err := r.Validate(); err != nil {
		return 0, err
	}
	if _, err := s.props.GetProperty(ctx, propertyID); err != nil {
		return 0, err
	}
	n, err := s.rates.DeleteRates(ctx, propertyID, r)
	if err != nil {
		return 0, fmt.Errorf("delete rates: %w", err)
	}
	s.Invalidate(ctx, propertyID)
	return n, nil
}

// Invalidate retires every cached projection of the property.
func (s *RateService) Invalidate(ctx context.Context, propertyID int64) {
	if s == nil || s.cache == nil {
		return
	}
	// no TTL: the generation must outlive the projections keyed on it
	if err := s.cache.Set(ctx, genKey(propertyID), time.Now().UnixNano(), 0); err != nil {
		log.Warn().Int64("property_id", propertyID).Err(err).
			Dur("stale_for", s.cacheTTL).Msg("rate cache invalidation failed")
	}
}

func (s *RateService) generation(ctx context.Context, propertyID int64) int64 {
	if s.cache == nil {
		return 0
	}
	var gen int64
	if ok, err := s.cache.Get(ctx, genKey(propertyID), &gen); !ok || err != nil {
		return 0
	}
	return gen
}

func genKey(propertyID int64) string { return fmt.Sprintf("rates:%d:gen", propertyID) }
