package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"property_manager/internal/domain"
)

type MessageService struct {
	repo    domain.Repository
	channel domain.Channel
	now     domain.Clock
}

func NewMessageService(repo domain.Repository, ch domain.Channel) *MessageService {
	return &MessageService{repo: repo, channel: ch, now: time.Now}
}

func (s *MessageService) SetClock(c domain.Clock) { s.now = c }

// ListMessages pulls new upstream messages for linked bookings (best-effort)
// and returns the local thread, oldest first.
func (s *MessageService) ListMessages(ctx context.Context, bookingID int64) ([]domain.Message, error) {
	b, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.ExternalID != nil && s.channel.Configured() {
		if n, err := s.SyncMessages(ctx, b); err != nil {
			log.Warn().Int64("booking_id", bookingID).Err(err).Msg("message sync failed, serving local thread")
		} else if n > 0 {
			log.Info().Int64("booking_id", bookingID).Int("new", n).Msg("messages synced")
		}
	}
	return s.repo.ListMessages(ctx, bookingID)
}

// SyncMessages inserts upstream messages not stored yet and returns how many were new.
func (s *MessageService) SyncMessages(ctx context.Context, b domain.Booking) (int, error) {
	if b.ExternalID == nil {
		return 0, nil
	}
	msgs, err := s.channel.Messages(ctx, *b.ExternalID, b.ID)
	if err != nil {
		return 0, err
	}
	now := s.now().UTC()
	n := 0
	for _, m := range msgs {
		m.BookingID = b.ID
		m.SyncedAt = &now
		if m.SentAt.IsZero() {
			m.SentAt = now
		}
		inserted, err := s.repo.InsertMessageIfAbsent(ctx, m)
		if err != nil {
			return n, fmt.Errorf("store message: %w", err)
		}
		if inserted {
			n++
		}
	}
	return n, nil
}

type SendMessageInput struct {
	Content string `json:"content" validate:"required"`
	Subject string `json:"subject"`
}

// SendMessage delivers to the guest through Smoobu when the booking is
// linked, then records the HOST message locally.
func (s *MessageService) SendMessage(ctx context.Context, bookingID int64, in SendMessageInput) (domain.Message, error) {
	in.Content = strings.TrimSpace(in.Content)
	if err := validateInput(in); err != nil {
		return domain.Message{}, err
	}
	b, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return domain.Message{}, err
	}

	now := s.now().UTC()
	m := domain.Message{BookingID: bookingID, Sender: domain.SenderHost, Content: in.Content, SentAt: now}
	if in.Subject != "" {
		subj := in.Subject
		m.Subject = &subj
	}
	if b.ExternalID != nil {
		if err := s.channel.SendMessage(ctx, *b.ExternalID, in.Content, in.Subject); err != nil {
			return domain.Message{}, err
		}
		m.SyncedAt = &now
	}
	return s.repo.CreateMessage(ctx, m)
}
