package app_test

import (
	"context"
	"testing"

	"property_manager/internal/app"
	"property_manager/internal/domain"
)

func newCalendar(repo *memRepo, ch *fakeChannel) *app.CalendarService {
	s := app.NewCalendarService(repo, ch)
	s.SetClock(fixedClock)
	return s
}

func TestIsOccupied_HalfOpenStay(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	p := seedLinked(t, repo, "Alpha", "1")
	svc := newCalendar(repo, newFakeChannel())
	if _, err := svc.CreateBooking(ctx, app.BookingInput{
		PropertyID: p.ID, GuestName: "Ana", CheckIn: "2024-06-01", CheckOut: "2024-06-05",
	}); err != nil {
		t.Fatal(err)
	}

	cases := map[string]bool{
		"2024-05-31": false,
		"2024-06-01": true,
		"2024-06-02": true,
		"2024-06-03": true,
		"2024-06-04": true,
		"2024-06-05": false,
	}
	for d, want := range cases {
		got, err := svc.IsOccupied(ctx, p.ID, day(d))
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("%s: occupied=%v want %v", d, got, want)
		}
	}
}

func TestIsOccupied_IgnoresCancelled(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	p := seedLinked(t, repo, "Alpha", "1")
	svc := newCalendar(repo, newFakeChannel())
	if _, err := svc.CreateBooking(ctx, app.BookingInput{
		PropertyID: p.ID, GuestName: "Ana", CheckIn: "2024-06-01", CheckOut: "2024-06-05",
		Status: domain.StatusCancelled,
	}); err != nil {
		t.Fatal(err)
	}
	if got, _ := svc.IsOccupied(ctx, p.ID, day("2024-06-02")); got {
		t.Fatal("cancelled stays do not occupy")
	}
}

func TestCreateBooking_DefaultsAndCleaningJob(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	p := seedLinked(t, repo, "Alpha", "1")
	svc := newCalendar(repo, newFakeChannel())

	b, err := svc.CreateBooking(ctx, app.BookingInput{
		PropertyID: p.ID, GuestName: " Ana ", CheckIn: "2024-06-01", CheckOut: "2024-06-05",
	})
	if err != nil {
		t.Fatal(err)
	}
	if b.Source != domain.SourceDirect || b.Status != domain.StatusConfirmed || b.NumGuests != 1 {
		t.Fatalf("defaults not applied: %+v", b)
	}
	if b.GuestName() != "Ana" {
		t.Fatalf("guest name %q", b.GuestName())
	}

	detail, err := svc.GetBooking(ctx, b.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(detail.CleaningJobs) != 1 || !detail.CleaningJobs[0].ScheduledDate.Equal(day("2024-06-05")) {
		t.Fatalf("unexpected cleaning jobs: %+v", detail.CleaningJobs)
	}
}

func TestCreateBooking_Validation(t *testing.T) {
	repo := newMemRepo()
	p := seedLinked(t, repo, "Alpha", "1")
	svc := newCalendar(repo, newFakeChannel())

	cases := map[string]app.BookingInput{
		"missing guest":      {PropertyID: p.ID, CheckIn: "2024-06-01", CheckOut: "2024-06-02"},
		"checkout not after": {PropertyID: p.ID, GuestName: "A", CheckIn: "2024-06-02", CheckOut: "2024-06-02"},
		"bad date":           {PropertyID: p.ID, GuestName: "A", CheckIn: "06/01/2024", CheckOut: "2024-06-02"},
		"bad source":         {PropertyID: p.ID, GuestName: "A", CheckIn: "2024-06-01", CheckOut: "2024-06-02", Source: "FAX"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.CreateBooking(context.Background(), in); !domain.IsValidation(err) {
				t.Fatalf("want validation error, got %v", err)
			}
		})
	}
}

func TestBlockDates_MirrorsUpstreamBlock(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	ch := newFakeChannel()
	p := seedLinked(t, repo, "Alpha", "1")
	svc := newCalendar(repo, ch)

	b, err := svc.BlockDates(ctx, p.ID, app.BlockInput{Start: "2024-08-01", End: "2024-08-04", Note: "painting"})
	if err != nil {
		t.Fatal(err)
	}
	if !b.IsBlock() || b.PropertyID != p.ID || b.ExternalID == nil || *b.ExternalID != "blk-1" {
		t.Fatalf("unexpected block: %+v", b)
	}
	if n := len(repo.jobsFor(b.ID)); n != 0 {
		t.Fatalf("blocks get no cleaning job, got %d", n)
	}
	if got, _ := svc.IsOccupied(ctx, p.ID, day("2024-08-03")); !got {
		t.Fatal("blocked night should be occupied")
	}

	if err := svc.UnblockDates(ctx, b.ID); err != nil {
		t.Fatal(err)
	}
	if len(ch.cancelled) != 1 || ch.cancelled[0] != "blk-1" {
		t.Fatalf("upstream cancel not sent: %v", ch.cancelled)
	}
	if _, err := repo.GetBooking(ctx, b.ID); !domain.IsNotFound(err) {
		t.Fatalf("block should be gone, got %v", err)
	}
}

func TestBlockDates_RequiresLinkedProperty(t *testing.T) {
	repo := newMemRepo()
	p, _ := repo.CreateProperty(context.Background(), domain.Property{Name: "Unlinked"})
	_, err := newCalendar(repo, newFakeChannel()).BlockDates(context.Background(), p.ID,
		app.BlockInput{Start: "2024-08-01", End: "2024-08-02"})
	if !domain.IsNotFound(err) {
		t.Fatalf("want not found, got %v", err)
	}
}

func TestUnblockDates_RejectsReservation(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	ch := newFakeChannel()
	p := seedLinked(t, repo, "Alpha", "1")
	svc := newCalendar(repo, ch)
	b, err := svc.CreateBooking(ctx, app.BookingInput{
		PropertyID: p.ID, GuestName: "Ana", CheckIn: "2024-06-01", CheckOut: "2024-06-05",
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.UnblockDates(ctx, b.ID); !domain.IsValidation(err) {
		t.Fatalf("want validation error, got %v", err)
	}
	if len(ch.cancelled) != 0 {
		t.Fatal("nothing should be cancelled upstream")
	}
}

func TestCheckAvailability(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	ch := newFakeChannel()
	ch.available = true
	p := seedLinked(t, repo, "Alpha", "1")
	svc := newCalendar(repo, ch)

	a, err := svc.CheckAvailability(ctx, p.ID, rng("2024-09-01", "2024-09-03"))
	if err != nil {
		t.Fatal(err)
	}
	if !a.Available || a.Start != "2024-09-01" || a.End != "2024-09-03" || len(a.Entries) != 0 {
		t.Fatalf("unexpected availability: %+v", a)
	}
}
