package smoobu

import (
	"context"
	"sort"
	"strconv"

	"property_manager/internal/domain"
)

// Gateway adapts Client to domain.Channel, mapping wire shapes onto local ones.
type Gateway struct{ c *Client }

func NewGateway(c *Client) *Gateway { return &Gateway{c: c} }

func (g *Gateway) Configured() bool { return g.c.Configured() }

func parseID(field, s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.ValidationError{Field: field, Msg: "not a Smoobu id: " + strconv.Quote(s), Err: err}
	}
	return id, nil
}

func (g *Gateway) Reservations(ctx context.Context, q domain.ReservationQuery) (domain.ReservationPage, error) {
	f := ReservationFilter{Page: q.Page, PageSize: q.PageSize}
	if q.ApartmentID != "" {
		id, err := parseID("apartmentId", q.ApartmentID)
		if err != nil {
			return domain.ReservationPage{}, err
		}
		f.ApartmentID = id
	}
	if q.From != nil {
		f.From = domain.FormatDate(*q.From)
	}
	if q.To != nil {
		f.To = domain.FormatDate(*q.To)
	}

	page, err := g.c.ListReservations(ctx, f)
	if err != nil {
		return domain.ReservationPage{}, err
	}
	out := domain.ReservationPage{
		Page:      page.Page,
		PageCount: page.PageCount,
		PageSize:  page.PageSize,
		Total:     page.TotalItems,
		Items:     make([]domain.ExternalReservation, 0, len(page.Bookings)),
	}
	for _, r := range page.Bookings {
		er, err := MapReservation(r)
		if err != nil {
			return domain.ReservationPage{}, err
		}
		out.Items = append(out.Items, er)
	}
	return out, nil
}

func (g *Gateway) Apartments(ctx context.Context) ([]domain.Property, error) {
	as, err := g.c.ListApartments(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Property, 0, len(as))
	for _, a := range as {
		out = append(out, MapApartment(a))
	}
	return out, nil
}

func (g *Gateway) Rates(ctx context.Context, apartmentID string, r domain.DateRange) ([]domain.RemoteRate, error) {
	id, err := parseID("apartmentId", apartmentID)
	if err != nil {
		return nil, err
	}
	resp, err := g.c.GetRates(ctx, []int64{id}, domain.FormatDate(r.Start), domain.FormatDate(r.End))
	if err != nil {
		return nil, err
	}
	days := resp.Data[apartmentID]
	out := make([]domain.RemoteRate, 0, len(days))
	for date, rt := range days {
		if rt.Date != "" {
			date = rt.Date
		}
		out = append(out, domain.RemoteRate{
			Date:      date,
			Price:     rt.Price,
			MinStay:   rt.MinLengthOfStay,
			Available: rt.Available == 1,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

func (g *Gateway) UpdateRates(ctx context.Context, u domain.RemoteRateUpdate) error {
	ids := make([]int64, 0, len(u.ApartmentIDs))
	for _, s := range u.ApartmentIDs {
		id, err := parseID("apartmentId", s)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}
	ru := RateUpdate{
		Apartments:      ids,
		DateFrom:        domain.FormatDate(u.Range.Start),
		DateTo:          domain.FormatDate(u.Range.End),
		DailyPrice:      u.Price,
		MinLengthOfStay: u.MinStay,
	}
	if u.Available != nil {
		a := 0
		if *u.Available {
			a = 1
		}
		ru.Available = &a
	}
	return g.c.SetRates(ctx, ru)
}

func (g *Gateway) CheckAvailability(ctx context.Context, apartmentID string, r domain.DateRange) (bool, error) {
	id, err := parseID("apartmentId", apartmentID)
	if err != nil {
		return false, err
	}
	return g.c.CheckAvailability(ctx, id, domain.FormatDate(r.Start), domain.FormatDate(r.End))
}

// BlockDates creates the upstream block and returns it as a local block entry.
func (g *Gateway) BlockDates(ctx context.Context, apartmentID string, r domain.DateRange, note string) (domain.Booking, error) {
	id, err := parseID("apartmentId", apartmentID)
	if err != nil {
		return domain.Booking{}, err
	}
	if note == "" {
		note = DefaultBlockNote
	}
	res, err := g.c.BlockDates(ctx, id, domain.FormatDate(r.Start), domain.FormatDate(r.End), note)
	if err != nil {
		return domain.Booking{}, err
	}
	return domain.Booking{
		Kind:       domain.KindBlock,
		CheckIn:    domain.Day(r.Start),
		CheckOut:   domain.Day(r.End),
		Source:     domain.SourceSmoobu,
		Status:     domain.StatusConfirmed,
		Notes:      &note,
		ExternalID: idString(res.ID),
	}, nil
}

func (g *Gateway) CancelReservation(ctx context.Context, reservationID string) error {
	id, err := parseID("reservationId", reservationID)
	if err != nil {
		return err
	}
	return g.c.CancelReservation(ctx, id)
}

func (g *Gateway) Messages(ctx context.Context, reservationID string, bookingID int64) ([]domain.Message, error) {
	id, err := parseID("reservationId", reservationID)
	if err != nil {
		return nil, err
	}
	ms, err := g.c.ListMessages(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Message, 0, len(ms))
	for _, m := range ms {
		out = append(out, MapMessage(m, bookingID))
	}
	return out, nil
}

func (g *Gateway) SendMessage(ctx context.Context, reservationID, content, subject string) error {
	id, err := parseID("reservationId", reservationID)
	if err != nil {
		return err
	}
	return g.c.SendMessageToGuest(ctx, id, content, subject)
}

var _ domain.Channel = (*Gateway)(nil)
