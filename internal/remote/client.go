package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"labdesk/internal/domain"
	"labdesk/internal/metrics"
	"labdesk/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	pathBookings    = "/lab-bookings/"
	pathRentals     = "/equipment-rentals/"
	pathSubmissions = "/cvs/"
	pathLabs        = "/labs/"
	pathStudents    = "/student-profiles/"
	pathTutorials   = "/tutorials/"

	labsCacheKey = "labdesk:labs"
)

// Client talks to the record service REST API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *zerolog.Logger

	redis    *redis.Client
	cacheTTL time.Duration
}

var _ domain.RecordSource = (*Client)(nil)

// NewClient constructs a client for baseURL (e.g. http://host:8000/api).
// The token, when set, is sent as a bearer credential. A zero timeout
// leaves requests bounded only by their context.
func NewClient(baseURL, token string, timeout time.Duration, logger *zerolog.Logger) *Client {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// UseRedisCache enables read-through caching of the labs catalog.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

func (c *Client) ListBookings(ctx context.Context) ([]models.Booking, error) {
	var out []models.Booking
	if _, err := c.getList(ctx, pathBookings, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListRentals(ctx context.Context) ([]models.Rental, error) {
	var out []models.Rental
	if _, err := c.getList(ctx, pathRentals, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListSubmissions(ctx context.Context) ([]models.Submission, error) {
	var out []models.Submission
	if _, err := c.getList(ctx, pathSubmissions, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListLabs(ctx context.Context) ([]models.Lab, error) {
	var out []models.Lab
	if c.readCache(ctx, labsCacheKey, &out) {
		return out, nil
	}
	if _, err := c.getList(ctx, pathLabs, &out); err != nil {
		return nil, err
	}
	c.writeCache(ctx, labsCacheKey, out)
	return out, nil
}

// FetchStats collects the figures the dashboard cannot derive from the
// request lists: the student head count and total tutorial views.
func (c *Client) FetchStats(ctx context.Context) (*models.RemoteStats, error) {
	var students []json.RawMessage
	count, err := c.getList(ctx, pathStudents, &students)
	if err != nil {
		return nil, err
	}

	var tutorials []struct {
		Views models.Scalar `json:"views"`
	}
	if _, err := c.getList(ctx, pathTutorials, &tutorials); err != nil {
		return nil, err
	}

	stats := &models.RemoteStats{TotalStudents: len(students)}
	if count >= 0 {
		stats.TotalStudents = count
	}
	for _, t := range tutorials {
		if v, ok := t.Views.Int64(); ok {
			stats.TutorialViews += int(v)
		}
	}
	return stats, nil
}

func (c *Client) ApproveBooking(ctx context.Context, id int64, decision domain.BookingDecision) error {
	return c.decideBooking(ctx, id, "approve", models.StatusApproved, decision)
}

func (c *Client) RejectBooking(ctx context.Context, id int64, decision domain.BookingDecision) error {
	return c.decideBooking(ctx, id, "reject", models.StatusRejected, decision)
}

func (c *Client) ApproveRental(ctx context.Context, id int64) error {
	return c.send(ctx, http.MethodPost, actionPath(pathRentals, id, "approve"), struct{}{})
}

func (c *Client) RejectRental(ctx context.Context, id int64, reason string) error {
	body := map[string]string{"reason": reason, "reject_reason": reason}
	return c.send(ctx, http.MethodPost, actionPath(pathRentals, id, "reject"), body)
}

// decideBooking posts to the action route and, when the server does not
// expose it, patches the status directly.
func (c *Client) decideBooking(ctx context.Context, id int64, action, status string, d domain.BookingDecision) error {
	body := bookingFields(d)
	if d.Reason != "" {
		body["reason"] = d.Reason
		body["admin_comment"] = d.Reason
	}
	err := c.send(ctx, http.MethodPost, actionPath(pathBookings, id, action), body)

	var apiErr *APIError
	if err == nil || !errors.As(err, &apiErr) || !apiErr.routeMissing() {
		return err
	}

	c.logger.Debug().Int64("booking_id", id).Str("action", action).Msg("action route missing, patching status")

	patch := bookingFields(d)
	patch["status"] = status
	if d.Reason != "" {
		patch["reject_reason"] = d.Reason
		patch["admin_comment"] = d.Reason
	}
	return c.send(ctx, http.MethodPatch, pathBookings+strconv.FormatInt(id, 10)+"/", patch)
}

// bookingFields returns the non-empty day, room and slot of a decision.
func bookingFields(d domain.BookingDecision) map[string]string {
	out := map[string]string{}
	if d.TimeSlot != "" {
		out["time_slot"] = d.TimeSlot
	}
	if d.Date != "" {
		out["date"] = d.Date
	}
	if d.LabRoom != "" {
		out["lab_room"] = d.LabRoom
	}
	return out
}

func actionPath(base string, id int64, action string) string {
	return base + strconv.FormatInt(id, 10) + "/" + action + "/"
}

// getList decodes either a bare JSON array or a paginated
// {"count": n, "results": [...]} object into out. The returned count is
// the server's count when present, otherwise -1.
func (c *Client) getList(ctx context.Context, path string, out any) (int, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return -1, err
	}

	trimmed := bytes.TrimSpace(raw)
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		return -1, nil
	case trimmed[0] == '[':
		if err := json.Unmarshal(trimmed, out); err != nil {
			return -1, fmt.Errorf("decode %s: %w", path, err)
		}
		return -1, nil
	case trimmed[0] == '{':
		var page struct {
			Count   *int            `json:"count"`
			Results json.RawMessage `json:"results"`
		}
		if err := json.Unmarshal(trimmed, &page); err != nil {
			return -1, fmt.Errorf("decode %s: %w", path, err)
		}
		results := bytes.TrimSpace(page.Results)
		if len(results) > 0 && results[0] == '[' {
			if err := json.Unmarshal(results, out); err != nil {
				return -1, fmt.Errorf("decode %s results: %w", path, err)
			}
		}
		if page.Count != nil {
			return *page.Count, nil
		}
		return -1, nil
	default:
		return -1, nil
	}
}

func (c *Client) send(ctx context.Context, method, path string, body any) error {
	return c.do(ctx, method, path, body, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	endpoint := endpointLabel(path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.IncRemoteCall(endpoint, metrics.ResultError)
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.IncRemoteCall(endpoint, metrics.ResultError)
		return fmt.Errorf("read %s: %w", path, err)
	}

	if resp.StatusCode >= 300 {
		metrics.IncRemoteCall(endpoint, metrics.ResultError)
		return newAPIError(req, resp.StatusCode, data)
	}
	metrics.IncRemoteCall(endpoint, metrics.ResultOK)

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	return json.Unmarshal(data, out)
}

// endpointLabel keeps metric cardinality bounded by dropping ids.
func endpointLabel(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	kept := segments[:0]
	for _, s := range segments {
		if _, err := strconv.ParseInt(s, 10, 64); err == nil {
			continue
		}
		kept = append(kept, s)
	}
	return strings.Join(kept, "/")
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	if err := json.Unmarshal([]byte(val), out); err != nil {
		return false
	}
	return true
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, key, data, c.cacheTTL).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}
