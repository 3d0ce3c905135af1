package app_test

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"sync"
	"time"

	"property_manager/internal/domain"
)

// ---- in-memory repository ----

type memRepo struct {
	mu       sync.Mutex
	nextID   int64
	props    map[int64]domain.Property
	bookings map[int64]domain.Booking
	jobs     []domain.CleaningJob
	rates    map[string]domain.PropertyRate // "<property>|<date>"
	messages []domain.Message

	rateWrites int
}

func newMemRepo() *memRepo {
	return &memRepo{
		props:    map[int64]domain.Property{},
		bookings: map[int64]domain.Booking{},
		rates:    map[string]domain.PropertyRate{},
	}
}

func (m *memRepo) id() int64 { m.nextID++; return m.nextID }

func (m *memRepo) CreateProperty(ctx context.Context, p domain.Property) (domain.Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.id()
	m.props[p.ID] = p
	return p, nil
}

func (m *memRepo) UpdateProperty(ctx context.Context, p domain.Property) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.props[p.ID]; !ok {
		return domain.NotFoundError{Resource: "property"}
	}
	m.props[p.ID] = p
	return nil
}

func (m *memRepo) DeleteProperty(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.props[id]; !ok {
		return domain.NotFoundError{Resource: "property"}
	}
	delete(m.props, id)
	for bid, b := range m.bookings {
		if b.PropertyID == id {
			delete(m.bookings, bid)
		}
	}
	return nil
}

func (m *memRepo) GetProperty(ctx context.Context, id int64) (domain.Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.props[id]
	if !ok {
		return domain.Property{}, domain.NotFoundError{Resource: "property", ID: strconv.FormatInt(id, 10)}
	}
	return p, nil
}

func (m *memRepo) FindPropertyByExternalID(ctx context.Context, ext string) (domain.Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.props {
		if p.ExternalID != nil && *p.ExternalID == ext {
			return p, nil
		}
	}
	return domain.Property{}, domain.NotFoundError{Resource: "property"}
}

func (m *memRepo) ListLinkedProperties(ctx context.Context, onlyID *int64) ([]domain.Property, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Property
	for _, p := range m.props {
		if !p.Linked() || (onlyID != nil && p.ID != *onlyID) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memRepo) GetBooking(ctx context.Context, id int64) (domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return domain.Booking{}, domain.NotFoundError{Resource: "booking"}
	}
	return b, nil
}

func (m *memRepo) FindBookingByExternalID(ctx context.Context, ext string) (domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bookings {
		if b.ExternalID != nil && *b.ExternalID == ext {
			return b, nil
		}
	}
	return domain.Booking{}, domain.NotFoundError{Resource: "booking"}
}

func (m *memRepo) CreateBooking(ctx context.Context, b domain.Booking, job *domain.CleaningJob) (domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b.ID = m.id()
	b.Version = 1
	m.bookings[b.ID] = b
	if job != nil {
		j := *job
		j.ID = m.id()
		j.BookingID = &b.ID
		m.jobs = append(m.jobs, j)
	}
	return b, nil
}

func (m *memRepo) UpdateBooking(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.bookings[b.ID]
	if !ok {
		return domain.Booking{}, domain.NotFoundError{Resource: "booking"}
	}
	if cur.Version != b.Version {
		return domain.Booking{}, domain.ConflictError{Resource: "booking"}
	}
	b.Version++
	m.bookings[b.ID] = b
	return b, nil
}

func (m *memRepo) DeleteBooking(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bookings[id]; !ok {
		return domain.NotFoundError{Resource: "booking"}
	}
	delete(m.bookings, id)
	return nil
}

func (m *memRepo) ListActiveBookings(ctx context.Context, propertyID int64, r domain.DateRange) ([]domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Booking
	for _, b := range m.bookings {
		if b.PropertyID == propertyID && b.Status != domain.StatusCancelled && b.Overlaps(r) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CheckIn.Before(out[j].CheckIn) })
	return out, nil
}

func (m *memRepo) ListCleaningJobs(ctx context.Context, bookingID int64) ([]domain.CleaningJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.CleaningJob
	for _, j := range m.jobs {
		if j.BookingID != nil && *j.BookingID == bookingID {
			out = append(out, j)
		}
	}
	return out, nil
}

func rateKey(id int64, d time.Time) string {
	return strconv.FormatInt(id, 10) + "|" + domain.FormatDate(d)
}

func (m *memRepo) ListRates(ctx context.Context, propertyID int64, r domain.DateRange) ([]domain.PropertyRate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.PropertyRate
	for _, d := range r.Days() {
		if pr, ok := m.rates[rateKey(propertyID, d)]; ok {
			out = append(out, pr)
		}
	}
	return out, nil
}

func (m *memRepo) UpsertRates(ctx context.Context, propertyID int64, r domain.DateRange, rate float64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	days := r.Days()
	for _, d := range days {
		k := rateKey(propertyID, d)
		pr := m.rates[k]
		m.rates[k] = domain.PropertyRate{PropertyID: propertyID, Date: d, Rate: rate, Version: pr.Version + 1}
	}
	m.rateWrites++
	return len(days), nil
}

func (m *memRepo) DeleteRates(ctx context.Context, propertyID int64, r domain.DateRange) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, d := range r.Days() {
		k := rateKey(propertyID, d)
		if _, ok := m.rates[k]; ok {
			delete(m.rates, k)
			n++
		}
	}
	m.rateWrites++
	return n, nil
}

func (m *memRepo) InsertMessageIfAbsent(ctx context.Context, msg domain.Message) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, have := range m.messages {
		if have.ExternalID != nil && msg.ExternalID != nil && *have.ExternalID == *msg.ExternalID {
			return false, nil
		}
	}
	msg.ID = m.id()
	m.messages = append(m.messages, msg)
	return true, nil
}

func (m *memRepo) CreateMessage(ctx context.Context, msg domain.Message) (domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg.ID = m.id()
	m.messages = append(m.messages, msg)
	return msg, nil
}

func (m *memRepo) ListMessages(ctx context.Context, bookingID int64) ([]domain.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Message
	for _, msg := range m.messages {
		if msg.BookingID == bookingID {
			out = append(out, msg)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SentAt.Before(out[j].SentAt) })
	return out, nil
}

// snapshot returns bookings ordered by id, for state comparisons.
func (m *memRepo) snapshot() []domain.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Booking, 0, len(m.bookings))
	for _, b := range m.bookings {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memRepo) jobsFor(bookingID int64) []domain.CleaningJob {
	js, _ := m.ListCleaningJobs(context.Background(), bookingID)
	return js
}

// ---- fake channel ----

type fakeChannel struct {
	mu         sync.Mutex
	configured bool
	// reservations by apartment id; paged with the requested page size
	reservations map[string][]domain.ExternalReservation
	failFor      map[string]error
	pageCalls    map[string]int
	// pageCap, when set, serves at most this many items per page
	pageCap int
	// gate, when set, holds every page request until it is closed
	gate chan struct{}

	messages   map[string][]domain.Message
	sent       []string
	sendErr    error
	blocked    []string
	cancelled  []string
	available  bool
	apartments []domain.Property
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		configured:   true,
		reservations: map[string][]domain.ExternalReservation{},
		failFor:      map[string]error{},
		pageCalls:    map[string]int{},
		messages:     map[string][]domain.Message{},
	}
}

func (f *fakeChannel) Configured() bool { return f.configured }

func (f *fakeChannel) Reservations(ctx context.Context, q domain.ReservationQuery) (domain.ReservationPage, error) {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return domain.ReservationPage{}, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pageCalls[q.ApartmentID]++
	if err := f.failFor[q.ApartmentID]; err != nil {
		return domain.ReservationPage{}, err
	}
	all := f.reservations[q.ApartmentID]
	size := q.PageSize
	if f.pageCap > 0 && size > f.pageCap {
		size = f.pageCap
	}
	pageCount := (len(all) + size - 1) / size
	if pageCount == 0 {
		pageCount = 1
	}
	start := (q.Page - 1) * size
	end := start + size
	if start > len(all) {
		start = len(all)
	}
	if end > len(all) {
		end = len(all)
	}
	items := make([]domain.ExternalReservation, 0, end-start)
	for _, er := range all[start:end] {
		// hand out copies so the service cannot alias fixture pointers
		b := er.Booking
		if b.ExternalID != nil {
			ext := *b.ExternalID
			b.ExternalID = &ext
		}
		if b.Guest != nil {
			g := *b.Guest
			b.Guest = &g
		}
		items = append(items, domain.ExternalReservation{Booking: b, RawStatus: er.RawStatus, Unmapped: er.Unmapped})
	}
	return domain.ReservationPage{Items: items, Page: q.Page, PageCount: pageCount, PageSize: size, Total: len(all)}, nil
}

func (f *fakeChannel) Apartments(ctx context.Context) ([]domain.Property, error) {
	return f.apartments, nil
}

func (f *fakeChannel) Rates(ctx context.Context, apartmentID string, r domain.DateRange) ([]domain.RemoteRate, error) {
	return nil, nil
}

func (f *fakeChannel) UpdateRates(ctx context.Context, u domain.RemoteRateUpdate) error { return nil }

func (f *fakeChannel) CheckAvailability(ctx context.Context, apartmentID string, r domain.DateRange) (bool, error) {
	return f.available, nil
}

func (f *fakeChannel) BlockDates(ctx context.Context, apartmentID string, r domain.DateRange, note string) (domain.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ext := "blk-" + strconv.Itoa(len(f.blocked)+1)
	f.blocked = append(f.blocked, ext)
	return domain.Booking{
		Kind: domain.KindBlock, CheckIn: r.Start, CheckOut: r.End,
		Source: domain.SourceSmoobu, Status: domain.StatusConfirmed, Notes: &note, ExternalID: &ext,
	}, nil
}

func (f *fakeChannel) CancelReservation(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, id)
	return nil
}

func (f *fakeChannel) Messages(ctx context.Context, reservationID string, bookingID int64) ([]domain.Message, error) {
	return f.messages[reservationID], nil
}

func (f *fakeChannel) SendMessage(ctx context.Context, reservationID, content, subject string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, reservationID+":"+content)
	return nil
}

// ---- JSON-roundtrip cache ----

type fakeCache struct {
	store  map[string][]byte
	gets   int
	hits   int
	setErr error
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.gets++
	b, ok := c.store[key]
	if !ok {
		return false, nil
	}
	c.hits++
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.setErr != nil {
		return c.setErr
	}
	if c.store == nil {
		c.store = map[string][]byte{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.store[key] = b
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	delete(c.store, key)
	return nil
}

// ---- helpers ----

func ptr[T any](v T) *T { return &v }

func day(s string) time.Time {
	d, err := domain.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func rng(start, end string) domain.DateRange {
	return domain.DateRange{Start: day(start), End: day(end)}
}

func fixedClock() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

func extReservation(ext, checkIn, checkOut string) domain.ExternalReservation {
	return domain.ExternalReservation{
		RawStatus: "confirmed",
		Booking: domain.Booking{
			Kind:       domain.KindReservation,
			Guest:      &domain.Guest{Name: "Guest " + ext},
			NumGuests:  2,
			CheckIn:    day(checkIn),
			CheckOut:   day(checkOut),
			Source:     domain.SourceAirbnb,
			Status:     domain.StatusConfirmed,
			ExternalID: &ext,
		},
	}
}
