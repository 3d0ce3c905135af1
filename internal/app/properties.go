package app

import (
	"context"
	"strings"

	"property_manager/internal/domain"
)

type PropertyService struct {
	repo  domain.PropertyRepository
	rates *RateService
}

func NewPropertyService(r domain.PropertyRepository, rates *RateService) *PropertyService {
	return &PropertyService{repo: r, rates: rates}
}

type PropertyInput struct {
	Name        string   `json:"name" validate:"required"`
	Address     string   `json:"address" validate:"required"`
	City        string   `json:"city" validate:"required"`
	PostalCode  *string  `json:"postalCode"`
	Country     string   `json:"country"`
	Latitude    *float64 `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude   *float64 `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
	Bedrooms    *int     `json:"bedrooms" validate:"omitempty,gte=0"`
	DailyRate   *float64 `json:"dailyRate" validate:"omitempty,gte=0"`
	MonthlyRent *float64 `json:"monthlyRent" validate:"omitempty,gte=0"`
	SmoobuID    *string  `json:"smoobuId" validate:"omitempty,numeric"`
	Status      string   `json:"status" validate:"omitempty,oneof=ACTIVE INACTIVE"`
}

func (in PropertyInput) apply(p domain.Property) domain.Property {
	p.Name = strings.TrimSpace(in.Name)
	p.Address = strings.TrimSpace(in.Address)
	p.City = strings.TrimSpace(in.City)
	p.PostalCode = in.PostalCode
	p.Country = strings.TrimSpace(in.Country)
	p.Lat, p.Lon = in.Latitude, in.Longitude
	p.Bedrooms = in.Bedrooms
	p.DefaultRate = in.DailyRate
	p.MonthlyRent = in.MonthlyRent
	p.ExternalID = in.SmoobuID
	if in.Status != "" {
		p.Status = domain.PropertyStatus(in.Status)
	}
	if p.Status == "" {
		p.Status = domain.PropertyActive
	}
	return p
}

func (s *PropertyService) Create(ctx context.Context, in PropertyInput) (domain.Property, error) {
	if err := validateInput(in); err != nil {
		return domain.Property{}, err
	}
	return s.repo.CreateProperty(ctx, in.apply(domain.Property{}))
}

func (s *PropertyService) Get(ctx context.Context, id int64) (domain.Property, error) {
	return s.repo.GetProperty(ctx, id)
}

func (s *PropertyService) Update(ctx context.Context, id int64, in PropertyInput) (domain.Property, error) {
	if err := validateInput(in); err != nil {
		return domain.Property{}, err
	}
	p, err := s.repo.GetProperty(ctx, id)
	if err != nil {
		return domain.Property{}, err
	}
	p = in.apply(p)
	if err := s.repo.UpdateProperty(ctx, p); err != nil {
		return domain.Property{}, err
	}
	// the default rate feeds every projection
	s.rates.Invalidate(ctx, id)
	return p, nil
}

// Delete removes the property; bookings, cleaning jobs, overrides and
// messages go with it.
func (s *PropertyService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.DeleteProperty(ctx, id); err != nil {
		return err
	}
	s.rates.Invalidate(ctx, id)
	return nil
}
