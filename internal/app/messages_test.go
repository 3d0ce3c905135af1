package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"property_manager/internal/app"
	"property_manager/internal/domain"
)

func seedBooking(t *testing.T, repo *memRepo, propertyID int64, ext *string) domain.Booking {
	t.Helper()
	b, err := repo.CreateBooking(context.Background(), domain.Booking{
		PropertyID: propertyID, Kind: domain.KindReservation, Guest: &domain.Guest{Name: "Ana"},
		CheckIn: day("2024-06-01"), CheckOut: day("2024-06-03"),
		Source: domain.SourceAirbnb, Status: domain.StatusConfirmed, ExternalID: ext,
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func newMessages(repo *memRepo, ch *fakeChannel) *app.MessageService {
	s := app.NewMessageService(repo, ch)
	s.SetClock(fixedClock)
	return s
}

func TestListMessages_SyncsOnceAndOrders(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	ch := newFakeChannel()
	p := seedLinked(t, repo, "Alpha", "1")
	b := seedBooking(t, repo, p.ID, ptr("r1"))
	ch.messages["r1"] = []domain.Message{
		{ExternalID: ptr("m2"), Sender: domain.SenderHost, Content: "see you", SentAt: time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)},
		{ExternalID: ptr("m1"), Sender: domain.SenderGuest, Content: "hello", SentAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
	}
	svc := newMessages(repo, ch)

	for i := 0; i < 2; i++ {
		msgs, err := svc.ListMessages(ctx, b.ID)
		if err != nil {
			t.Fatal(err)
		}
		if len(msgs) != 2 {
			t.Fatalf("call %d: want 2 messages, got %d", i, len(msgs))
		}
		if msgs[0].Content != "hello" || msgs[1].Content != "see you" {
			t.Fatalf("not oldest first: %+v", msgs)
		}
	}
}

func TestSendMessage_LinkedBooking(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	ch := newFakeChannel()
	p := seedLinked(t, repo, "Alpha", "1")
	b := seedBooking(t, repo, p.ID, ptr("r1"))

	m, err := newMessages(repo, ch).SendMessage(ctx, b.ID, app.SendMessageInput{Content: " Welcome! "})
	if err != nil {
		t.Fatal(err)
	}
	if m.Sender != domain.SenderHost || m.Content != "Welcome!" || m.SyncedAt == nil {
		t.Fatalf("unexpected message: %+v", m)
	}
	if len(ch.sent) != 1 || ch.sent[0] != "r1:Welcome!" {
		t.Fatalf("upstream send: %v", ch.sent)
	}
}

func TestSendMessage_UpstreamFailureStoresNothing(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	ch := newFakeChannel()
	ch.sendErr = domain.RemoteServiceError{Service: "Smoobu", Status: 503}
	p := seedLinked(t, repo, "Alpha", "1")
	b := seedBooking(t, repo, p.ID, ptr("r1"))

	_, err := newMessages(repo, ch).SendMessage(ctx, b.ID, app.SendMessageInput{Content: "hi"})
	var re domain.RemoteServiceError
	if !errors.As(err, &re) {
		t.Fatalf("want remote error, got %v", err)
	}
	if len(repo.messages) != 0 {
		t.Fatal("failed send must not be stored")
	}
}

func TestSendMessage_LocalBookingAndValidation(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	ch := newFakeChannel()
	p := seedLinked(t, repo, "Alpha", "1")
	b := seedBooking(t, repo, p.ID, nil)
	svc := newMessages(repo, ch)

	if _, err := svc.SendMessage(ctx, b.ID, app.SendMessageInput{Content: "   "}); !domain.IsValidation(err) {
		t.Fatalf("want validation error, got %v", err)
	}
	m, err := svc.SendMessage(ctx, b.ID, app.SendMessageInput{Content: "note", Subject: "Door code"})
	if err != nil {
		t.Fatal(err)
	}
	if m.SyncedAt != nil || len(ch.sent) != 0 {
		t.Fatal("unlinked bookings stay local")
	}
	if m.Subject == nil || *m.Subject != "Door code" {
		t.Fatalf("subject lost: %+v", m)
	}
}
