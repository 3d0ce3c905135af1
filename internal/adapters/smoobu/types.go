package smoobu

// Wire shapes of the Smoobu API. Field names follow the upstream JSON,
// which mixes kebab-case, camelCase and snake_case.

type Ref struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Reservation struct {
	ID               int64   `json:"id"`
	ReferenceID      string  `json:"reference-id"`
	Apartment        Ref     `json:"apartment"`
	Channel          Ref     `json:"channel"`
	Arrival          string  `json:"arrival"`
	Departure        string  `json:"departure"`
	CreatedAt        string  `json:"created-at"`
	GuestName        string  `json:"guest-name"`
	Email            string  `json:"email"`
	Phone            string  `json:"phone"`
	Adults           int     `json:"adults"`
	Children         int     `json:"children"`
	Price            float64 `json:"price"`
	Language         string  `json:"language"`
	GuestNotice      string  `json:"guest-notice"`
	HostNotice       string  `json:"host-notice"`
	Status           string  `json:"status"`
	IsBlockedBooking bool    `json:"is-blocked-booking"`
}

type ReservationsPage struct {
	PageCount  int           `json:"page_count"`
	PageSize   int           `json:"page_size"`
	TotalItems int           `json:"total_items"`
	Page       int           `json:"page"`
	Bookings   []Reservation `json:"bookings"`
}

type ReservationFilter struct {
	ApartmentID int64
	From, To    string // YYYY-MM-DD
	Page        int
	PageSize    int
}

type Apartment struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Street     string `json:"street"`
	PostalCode string `json:"postalCode"`
	City       string `json:"city"`
	Country    Ref    `json:"country"`
	Timezone   string `json:"timezone"`
	Currency   string `json:"currency"`
	Price      struct {
		Minimal float64 `json:"minimal"`
		Maximal float64 `json:"maximal"`
	} `json:"price"`
	Rooms struct {
		MaxOccupancy int `json:"maxOccupancy"`
		Bedrooms     int `json:"bedrooms"`
		Bathrooms    int `json:"bathrooms"`
	} `json:"rooms"`
	Location struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location"`
}

type apartmentsResponse struct {
	Apartments []Apartment `json:"apartments"`
}

type Rate struct {
	Date            string   `json:"date"`
	Price           *float64 `json:"price"`
	MinLengthOfStay *int     `json:"min_length_of_stay"`
	Available       int      `json:"available"`
}

// RatesResponse is keyed by apartment id, then by date.
type RatesResponse struct {
	Data map[string]map[string]Rate `json:"data"`
}

type RateUpdate struct {
	Apartments      []int64  `json:"apartments"`
	DateFrom        string   `json:"dateFrom"`
	DateTo          string   `json:"dateTo"`
	DailyPrice      *float64 `json:"daily_price,omitempty"`
	MinLengthOfStay *int     `json:"min_length_of_stay,omitempty"`
	Available       *int     `json:"available,omitempty"`
}

type availabilityRequest struct {
	ArrivalDate   string  `json:"arrivalDate"`
	DepartureDate string  `json:"departureDate"`
	Apartments    []int64 `json:"apartments"`
}

type availabilityResponse struct {
	AvailableApartments []int64 `json:"availableApartments"`
}

type blockRequest struct {
	ApartmentID int64  `json:"apartment_id"`
	Arrival     string `json:"arrival"`
	Departure   string `json:"departure"`
	GuestName   string `json:"guest-name"`
	Blocked     bool   `json:"is-blocked-booking"`
	HostNotice  string `json:"host-notice"`
}

type Message struct {
	ID          int64  `json:"id"`
	Subject     string `json:"subject"`
	MessageHTML string `json:"messageHtml"`
	MessageText string `json:"messageText"`
	CreatedAt   string `json:"createdAt"`
	Direction   string `json:"direction"` // in|out
	Channel     string `json:"channel"`
}

type messagesResponse struct {
	Messages []Message `json:"messages"`
}

type sendMessageRequest struct {
	Message string `json:"message"`
	Subject string `json:"subject"`
}
