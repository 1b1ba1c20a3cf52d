package notify

import (
	"errors"
	"fmt"
	"strings"

	"labdesk/internal/domain"
	"labdesk/internal/events"
	"labdesk/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

var errQueueFull = errors.New("notification queue is full")

// Queue accepts messages for asynchronous delivery.
type Queue interface {
	Enqueue(chatID int64, text string) bool
}

// TelegramNotifier posts operator decisions to the configured chats.
type TelegramNotifier struct {
	bot     domain.TelegramSender
	queue   Queue
	chatIDs []int64
	logger  *zerolog.Logger
}

func NewTelegramNotifier(bot domain.TelegramSender, chatIDs []int64, logger *zerolog.Logger) *TelegramNotifier {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &TelegramNotifier{
		bot:     bot,
		chatIDs: chatIDs,
		logger:  logger,
	}
}

// WithQueue routes messages through q instead of sending them inline.
func (n *TelegramNotifier) WithQueue(q Queue) *TelegramNotifier {
	n.queue = q
	return n
}

// Subscribe registers the notifier for decision events.
func (n *TelegramNotifier) Subscribe(bus *events.EventBus) {
	bus.Subscribe(events.EventRequestApproved, n.HandleDecision)
	bus.Subscribe(events.EventRequestRejected, n.HandleDecision)
}

func (n *TelegramNotifier) HandleDecision(event *events.Event) error {
	var payload events.DecisionEventPayload
	if err := event.Decode(&payload); err != nil {
		return fmt.Errorf("decode %s: %w", event.Type, err)
	}

	text := FormatDecision(event.Type, payload)
	if n.queue != nil {
		return n.enqueue(text)
	}

	var firstErr error
	for _, chatID := range n.chatIDs {
		msg := tgbotapi.NewMessage(chatID, text)
		if _, err := n.bot.Send(msg); err != nil {
			n.logger.Error().Err(err).Int64("chat_id", chatID).Msg("failed to send decision notification")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (n *TelegramNotifier) enqueue(text string) error {
	var err error
	for _, chatID := range n.chatIDs {
		if !n.queue.Enqueue(chatID, text) {
			err = errQueueFull
		}
	}
	return err
}

// FormatDecision renders a decision event as a short plain-text message.
func FormatDecision(eventType string, p events.DecisionEventPayload) string {
	verb := "approved"
	if eventType == events.EventRequestRejected {
		verb = "rejected"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s #%d %s", kindTitle(p.Kind), p.RequestID, verb)
	if p.Operator != "" {
		fmt.Fprintf(&sb, " by %s", p.Operator)
	}
	sb.WriteString("\n")
	if p.ActorName != "" || p.ItemLabel != "" {
		fmt.Fprintf(&sb, "%s: %s\n", orDash(p.ActorName), orDash(p.ItemLabel))
	}
	if p.Detail != "" {
		sb.WriteString(p.Detail + "\n")
	}
	if p.Comment != "" {
		fmt.Fprintf(&sb, "Reason: %s\n", p.Comment)
	}
	return strings.TrimRight(sb.String(), "\n")
}

var kindTitles = map[models.Kind]string{
	models.KindBooking:    "Booking",
	models.KindRental:     "Rental",
	models.KindSubmission: "CV",
}

func kindTitle(kind string) string {
	if title, ok := kindTitles[models.Kind(kind)]; ok {
		return title
	}
	return "Request"
}

func orDash(s string) string {
	if s == "" {
		return models.Placeholder
	}
	return s
}
