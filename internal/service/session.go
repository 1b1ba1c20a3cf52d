package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"labdesk/internal/domain"
	"labdesk/internal/events"
	"labdesk/internal/metrics"
	"labdesk/internal/models"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const msgLoadFailed = "Failed to load dashboard data"

// SessionOptions tune the derived views of a session.
type SessionOptions struct {
	PendingLimit        int
	ActivityLimit       int
	DefaultRejectReason string
	UtilizationLabID    int64
	Location            *time.Location
	Now                 func() time.Time
}

func (o SessionOptions) withDefaults() SessionOptions {
	if o.PendingLimit <= 0 {
		o.PendingLimit = models.DefaultPendingLimit
	}
	if o.ActivityLimit <= 0 {
		o.ActivityLimit = models.DefaultActivityLimit
	}
	if strings.TrimSpace(o.DefaultRejectReason) == "" {
		o.DefaultRejectReason = models.DefaultRejectReason
	}
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Session is the state of one open dashboard: the last loaded snapshot,
// the action locks and the operator-facing error. It starts empty and is
// discarded when the dashboard closes.
type Session struct {
	id       string
	operator string
	source   domain.RecordSource
	events   domain.EventPublisher
	opts     SessionOptions
	logger   *zerolog.Logger
	locks    *ActionLocks

	// loadMu serializes reloads so snapshots replace each other in order.
	loadMu sync.Mutex

	mu          sync.RWMutex
	snapshot    *models.Snapshot
	utilization models.Utilization
	loading     bool
	lastError   string
}

func NewSession(id, operator string, source domain.RecordSource, publisher domain.EventPublisher, opts SessionOptions, logger *zerolog.Logger) *Session {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("session_id", id).Logger()
	return &Session{
		id:       id,
		operator: operator,
		source:   source,
		events:   publisher,
		opts:     opts.withDefaults(),
		logger:   &l,
		locks:    NewActionLocks(),
		snapshot: &models.Snapshot{},
	}
}

func (s *Session) ID() string       { return s.id }
func (s *Session) Operator() string { return s.operator }

// Snapshot returns the last loaded snapshot. Callers must not modify it.
func (s *Session) Snapshot() *models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

func (s *Session) LastError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastError
}

func (s *Session) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading
}

// ActionState reports the busy marker of one request.
func (s *Session) ActionState(kind models.Kind, id int64) models.ActionState {
	return s.locks.State(models.Key(kind, id))
}

func (s *Session) setError(msg string) {
	s.mu.Lock()
	s.lastError = msg
	s.mu.Unlock()
}

func (s *Session) setLoading(v bool) {
	s.mu.Lock()
	s.loading = v
	s.mu.Unlock()
}

// Load fetches every collection concurrently and replaces the snapshot.
// When any fetch fails the snapshot is reset to empty and the error
// message is set; the utilization refresh runs either way.
func (s *Session) Load(ctx context.Context) error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	s.mu.Lock()
	s.loading = true
	s.lastError = ""
	s.mu.Unlock()
	defer s.setLoading(false)

	snap, err := s.fetchBatch(ctx)

	s.mu.Lock()
	if err != nil {
		s.snapshot = &models.Snapshot{}
		s.lastError = OperatorMessage(err, msgLoadFailed)
	} else {
		s.snapshot = snap
	}
	s.mu.Unlock()

	s.refreshUtilization(ctx)

	if err != nil {
		s.logger.Error().Err(err).Msg("dashboard load failed")
		metrics.IncDashboardLoad(metrics.ResultError)
		s.publish(events.EventDashboardLoadFailed, events.LoadEventPayload{SessionID: s.id, Error: s.LastError()})
		return err
	}

	_, total := PendingQueue(snap, -1)
	s.logger.Debug().
		Int("bookings", len(snap.Bookings)).
		Int("rentals", len(snap.Rentals)).
		Int("submissions", len(snap.Submissions)).
		Msg("dashboard loaded")
	metrics.IncDashboardLoad(metrics.ResultOK)
	s.publish(events.EventDashboardReloaded, events.LoadEventPayload{SessionID: s.id, PendingTotal: total})
	return nil
}

// fetchBatch waits for every fetch to settle; the first failure fails the
// whole batch.
func (s *Session) fetchBatch(ctx context.Context) (*models.Snapshot, error) {
	snap := &models.Snapshot{}
	var g errgroup.Group

	g.Go(func() error {
		var err error
		snap.Bookings, err = s.source.ListBookings(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Rentals, err = s.source.ListRentals(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		snap.Submissions, err = s.source.ListSubmissions(ctx)
		return err
	})
	g.Go(func() error {
		stats, err := s.source.FetchStats(ctx)
		if err == nil && stats != nil {
			snap.Stats = *stats
		}
		return err
	})
	g.Go(func() error {
		var err error
		snap.Labs, err = s.source.ListLabs(ctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	snap.LoadedAt = s.opts.Now()
	return snap, nil
}

// refreshUtilization fetches labs and bookings on its own so the summary
// survives a failed batch.
func (s *Session) refreshUtilization(ctx context.Context) {
	var (
		labs     []models.Lab
		bookings []models.Booking
		g        errgroup.Group
	)
	g.Go(func() error {
		var err error
		labs, err = s.source.ListLabs(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		bookings, err = s.source.ListBookings(ctx)
		return err
	})

	var util models.Utilization
	if err := g.Wait(); err != nil {
		s.logger.Warn().Err(err).Msg("utilization fetch failed")
	} else if lab, ok := SelectLab(labs, s.opts.UtilizationLabID); ok {
		util = ComputeUtilization(lab, bookings, s.opts.Now(), s.opts.Location)
		if util.Available {
			metrics.SetUtilization(util.LabName, float64(util.PercentUsed))
		}
	}

	s.mu.Lock()
	s.utilization = util
	s.mu.Unlock()
}

// View derives everything the presentation layer renders.
func (s *Session) View() models.DashboardView {
	s.mu.RLock()
	snap := s.snapshot
	util := s.utilization
	loading := s.loading
	lastError := s.lastError
	s.mu.RUnlock()

	queue, total := PendingQueue(snap, s.opts.PendingLimit)
	return models.DashboardView{
		SessionID:    s.id,
		PendingQueue: queue,
		PendingTotal: total,
		Activity:     ActivityFeed(snap, s.opts.ActivityLimit),
		Stats:        ComputeStats(snap),
		Utilization:  util,
		Locks:        s.locks.Snapshot(),
		Loading:      loading,
		Error:        lastError,
		LoadedAt:     snap.LoadedAt,
	}
}

// Navigate forwards an opaque destination to the host shell.
func (s *Session) Navigate(destination string) error {
	destination = strings.TrimSpace(destination)
	if destination == "" {
		return ErrEmptyDestination
	}
	s.publish(events.EventNavigationRequested, events.NavigationPayload{SessionID: s.id, Destination: destination})
	return nil
}

func (s *Session) publish(eventType string, payload interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishJSON(eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("failed to publish event")
	}
}
