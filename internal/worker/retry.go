package worker

import (
	"errors"
	"math"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// RetryPolicy defines exponential backoff parameters.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

func (r RetryPolicy) withDefaults() RetryPolicy {
	if r.MaxRetries < 0 {
		r.MaxRetries = 0
	}
	if r.InitialDelay <= 0 {
		r.InitialDelay = time.Second
	}
	if r.MaxDelay <= 0 {
		r.MaxDelay = time.Minute
	}
	if r.BackoffFactor <= 0 {
		r.BackoffFactor = 2
	}
	return r
}

// NextDelay returns the wait before retry number attempt (1-based),
// clamped to MaxDelay.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	r = r.withDefaults()
	if attempt < 1 {
		attempt = 1
	}
	d := time.Duration(float64(r.InitialDelay) * math.Pow(r.BackoffFactor, float64(attempt-1)))
	if d <= 0 || d > r.MaxDelay {
		d = r.MaxDelay
	}
	return d
}

// retryDelay decides whether a failed send is worth repeating. Telegram
// flood control carries its own wait in retry_after, which wins over the
// backoff schedule. Client errors such as a blocked bot are final.
func (r RetryPolicy) retryDelay(err error, attempt int) (time.Duration, bool) {
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		// transport failure
		return r.NextDelay(attempt), true
	}
	if apiErr.RetryAfter > 0 {
		return time.Duration(apiErr.RetryAfter) * time.Second, true
	}
	if apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError {
		return r.NextDelay(attempt), true
	}
	return 0, false
}
