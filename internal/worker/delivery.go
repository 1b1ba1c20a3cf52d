package worker

import (
	"context"
	"time"

	"labdesk/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

const defaultQueueSize = 128

// Delivery is one message bound for one chat.
type Delivery struct {
	ChatID    int64
	Text      string
	CreatedAt time.Time
}

// DeliveryWorker sends queued Telegram messages off the request path,
// retrying transient failures with backoff.
type DeliveryWorker struct {
	sender domain.TelegramSender
	policy RetryPolicy
	queue  chan Delivery
	logger *zerolog.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

func NewDeliveryWorker(sender domain.TelegramSender, policy RetryPolicy, queueSize int, logger *zerolog.Logger) *DeliveryWorker {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &DeliveryWorker{
		sender: sender,
		policy: policy.withDefaults(),
		queue:  make(chan Delivery, queueSize),
		logger: logger,
		sleep:  sleepContext,
	}
}

// Enqueue schedules a message without blocking. It reports false when the
// queue is full and the message was dropped.
func (w *DeliveryWorker) Enqueue(chatID int64, text string) bool {
	d := Delivery{ChatID: chatID, Text: text, CreatedAt: time.Now()}
	select {
	case w.queue <- d:
		return true
	default:
		w.logger.Warn().Int64("chat_id", chatID).Msg("delivery queue full, message dropped")
		return false
	}
}

// Start consumes the queue until ctx is done. Messages still queued at
// that point are abandoned.
func (w *DeliveryWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("delivery worker started")
	defer w.logger.Info().Msg("delivery worker stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case d := <-w.queue:
			_ = w.Deliver(ctx, d)
		}
	}
}

// Deliver sends d, retrying per the policy. It returns the last error.
func (w *DeliveryWorker) Deliver(ctx context.Context, d Delivery) error {
	msg := tgbotapi.NewMessage(d.ChatID, d.Text)
	for attempt := 1; ; attempt++ {
		_, err := w.sender.Send(msg)
		if err == nil {
			return nil
		}

		delay, retry := w.policy.retryDelay(err, attempt)
		if !retry || attempt > w.policy.MaxRetries {
			w.logger.Error().Err(err).Int64("chat_id", d.ChatID).Int("attempts", attempt).Msg("message delivery failed")
			return err
		}

		w.logger.Warn().Err(err).Int64("chat_id", d.ChatID).Int("attempt", attempt).Dur("delay", delay).Msg("message delivery failed, retrying")
		if err := w.sleep(ctx, delay); err != nil {
			return err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
