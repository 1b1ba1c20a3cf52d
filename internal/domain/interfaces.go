package domain

import (
	"context"
	"time"

	"labdesk/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// RecordSource is the remote record-keeping service.
type RecordSource interface {
	ListBookings(ctx context.Context) ([]models.Booking, error)
	ListRentals(ctx context.Context) ([]models.Rental, error)
	ListSubmissions(ctx context.Context) ([]models.Submission, error)
	ListLabs(ctx context.Context) ([]models.Lab, error)
	FetchStats(ctx context.Context) (*models.RemoteStats, error)

	ApproveBooking(ctx context.Context, id int64, decision BookingDecision) error
	RejectBooking(ctx context.Context, id int64, decision BookingDecision) error
	ApproveRental(ctx context.Context, id int64) error
	RejectRental(ctx context.Context, id int64, reason string) error
}

// BookingDecision carries the fields a booking mutation resubmits.
type BookingDecision struct {
	Date     string `json:"date,omitempty"`
	LabRoom  string `json:"lab_room,omitempty"`
	TimeSlot string `json:"time_slot,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// StateRepository keeps the operator session registry and rate limits.
type StateRepository interface {
	GetSession(ctx context.Context, id string) (*models.SessionInfo, error)
	SaveSession(ctx context.Context, info *models.SessionInfo) error
	DeleteSession(ctx context.Context, id string) error
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}
