package domain

import "time"

// PropertyRate overrides the default nightly rate for a single day.
type PropertyRate struct {
	PropertyID int64
	Date       time.Time
	Rate       float64
	Version    int64
}

type DayRate struct {
	Date     string  `json:"date"`
	Rate     float64 `json:"rate"`
	IsCustom bool    `json:"isCustom"`
}

// RemoteRate is one day of channel-manager pricing.
type RemoteRate struct {
	Date      string   `json:"date"`
	Price     *float64 `json:"price"`
	MinStay   *int     `json:"minStay"`
	Available bool     `json:"available"`
}

type RemoteRateUpdate struct {
	ApartmentIDs []string
	Range        DateRange
	Price        *float64
	MinStay      *int
	Available    *bool
}
