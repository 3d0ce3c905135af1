package smoobu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"property_manager/internal/adapters/observability"
	"property_manager/internal/domain"
)

const (
	DefaultAPIURL     = "https://login.smoobu.com/api"
	DefaultBookingURL = "https://login.smoobu.com/booking"

	service = "smoobu"
)

type Client struct {
	base        string
	bookingBase string
	hc          *http.Client
	key         string
	rl          *rate.Limiter
}

// New builds a client. An empty key is accepted; every call then fails
// with a domain.ConfigurationError.
func New(base, bookingBase, key string, rps int) *Client {
	if base == "" {
		base = DefaultAPIURL
	}
	if bookingBase == "" {
		bookingBase = DefaultBookingURL
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base:        strings.TrimRight(base, "/"),
		bookingBase: strings.TrimRight(bookingBase, "/"),
		hc:          &http.Client{Timeout: 20 * time.Second},
		key:         key,
		rl:          rate.NewLimiter(rate.Limit(rps), rps),
	}
}

func (c *Client) Configured() bool { return c.key != "" }

// ---- Reservations ----

// ListReservations returns one page; callers loop on PageCount.
func (c *Client) ListReservations(ctx context.Context, f ReservationFilter) (ReservationsPage, error) {
	q := url.Values{}
	if f.From != "" {
		q.Set("from", f.From)
	}
	if f.To != "" {
		q.Set("to", f.To)
	}
	if f.ApartmentID != 0 {
		q.Set("apartment_id", strconv.FormatInt(f.ApartmentID, 10))
	}
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(f.PageSize))
	}
	u := c.base + "/reservations"
	if enc := q.Encode(); enc != "" {
		u += "?" + enc
	}
	var out ReservationsPage
	return out, c.do(ctx, "reservations.list", http.MethodGet, u, nil, &out)
}

func (c *Client) GetReservation(ctx context.Context, id int64) (Reservation, error) {
	var out Reservation
	return out, c.do(ctx, "reservations.get", http.MethodGet, fmt.Sprintf("%s/reservations/%d", c.base, id), nil, &out)
}

// BlockDates creates a blocked reservation covering arrival..departure.
func (c *Client) BlockDates(ctx context.Context, apartmentID int64, arrival, departure, note string) (Reservation, error) {
	if note == "" {
		note = DefaultBlockNote
	}
	body := blockRequest{
		ApartmentID: apartmentID,
		Arrival:     arrival,
		Departure:   departure,
		GuestName:   "Blocked",
		Blocked:     true,
		HostNotice:  note,
	}
	var out Reservation
	return out, c.do(ctx, "reservations.create", http.MethodPost, c.base+"/reservations", body, &out)
}

func (c *Client) CancelReservation(ctx context.Context, id int64) error {
	return c.do(ctx, "reservations.delete", http.MethodDelete, fmt.Sprintf("%s/reservations/%d", c.base, id), nil, nil)
}

// ---- Apartments ----

func (c *Client) ListApartments(ctx context.Context) ([]Apartment, error) {
	var out apartmentsResponse
	if err := c.do(ctx, "apartments.list", http.MethodGet, c.base+"/apartments", nil, &out); err != nil {
		return nil, err
	}
	return out.Apartments, nil
}

func (c *Client) GetApartment(ctx context.Context, id int64) (Apartment, error) {
	var out Apartment
	return out, c.do(ctx, "apartments.get", http.MethodGet, fmt.Sprintf("%s/apartments/%d", c.base, id), nil, &out)
}

// ---- Rates & availability ----

func (c *Client) GetRates(ctx context.Context, apartmentIDs []int64, start, end string) (RatesResponse, error) {
	q := url.Values{}
	q.Set("start_date", start)
	q.Set("end_date", end)
	for _, id := range apartmentIDs {
		q.Add("apartments[]", strconv.FormatInt(id, 10))
	}
	var out RatesResponse
	return out, c.do(ctx, "rates.get", http.MethodGet, c.base+"/rates?"+q.Encode(), nil, &out)
}

func (c *Client) SetRates(ctx context.Context, u RateUpdate) error {
	return c.do(ctx, "rates.update", http.MethodPost, c.base+"/rates", u, nil)
}

// CheckAvailability asks the booking endpoint whether the apartment is free
// for the stay arrival..departure.
func (c *Client) CheckAvailability(ctx context.Context, apartmentID int64, arrival, departure string) (bool, error) {
	body := availabilityRequest{ArrivalDate: arrival, DepartureDate: departure, Apartments: []int64{apartmentID}}
	var out availabilityResponse
	if err := c.do(ctx, "availability.check", http.MethodPost, c.bookingBase+"/checkApartmentAvailability", body, &out); err != nil {
		return false, err
	}
	for _, id := range out.AvailableApartments {
		if id == apartmentID {
			return true, nil
		}
	}
	return false, nil
}

// ---- Messages ----

func (c *Client) ListMessages(ctx context.Context, reservationID int64) ([]Message, error) {
	var out messagesResponse
	u := fmt.Sprintf("%s/reservations/%d/messages", c.base, reservationID)
	if err := c.do(ctx, "messages.list", http.MethodGet, u, nil, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

func (c *Client) SendMessageToGuest(ctx context.Context, reservationID int64, message, subject string) error {
	if subject == "" {
		subject = "Message from host"
	}
	u := fmt.Sprintf("%s/reservations/%d/messages/send-message-to-guest", c.base, reservationID)
	return c.do(ctx, "messages.send", http.MethodPost, u, sendMessageRequest{Message: message, Subject: subject}, nil)
}

// ---- Internals ----

// do performs one rate-limited request. Non-2xx responses become
// domain.RemoteServiceError; there are no retries.
func (c *Client) do(ctx context.Context, endpoint, method, u string, in, out any) error {
	if c.key == "" {
		return domain.ConfigurationError{Setting: "SMOOBU_API_KEY", Msg: "Smoobu API key not configured"}
	}
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", endpoint, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	req.Header.Set("Api-Key", c.key)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", "property-manager/1.0")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal(service, endpoint, 0, time.Since(start))
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s %s: %w", service, endpoint, err)
	}
	defer resp.Body.Close()
	observability.ObserveExternal(service, endpoint, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// read a small error body for diagnostics
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return domain.RemoteServiceError{
			Service:  "Smoobu",
			Endpoint: endpoint,
			Status:   resp.StatusCode,
			Body:     strings.TrimSpace(string(b)),
		}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}
