package domain

import "time"

type PropertyStatus string

const (
	PropertyActive   PropertyStatus = "ACTIVE"
	PropertyInactive PropertyStatus = "INACTIVE"
)

type Property struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Address     string         `json:"address"`
	City        string         `json:"city"`
	PostalCode  *string        `json:"postalCode,omitempty"`
	Country     string         `json:"country"`
	Lat         *float64       `json:"latitude,omitempty"`
	Lon         *float64       `json:"longitude,omitempty"`
	Bedrooms    *int           `json:"bedrooms,omitempty"`
	DefaultRate *float64       `json:"dailyRate,omitempty"` // nightly
	MonthlyRent *float64       `json:"monthlyRent,omitempty"`
	Status      PropertyStatus `json:"status"`
	ExternalID  *string        `json:"smoobuId,omitempty"` // Smoobu apartment id
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// Linked reports whether the property is mirrored on the channel manager.
func (p Property) Linked() bool { return p.ExternalID != nil && *p.ExternalID != "" }
