package service

import (
	"context"
	"fmt"
	"strings"

	"labdesk/internal/domain"
	"labdesk/internal/events"
	"labdesk/internal/metrics"
	"labdesk/internal/models"
)

// Actionable reports whether approve and reject apply to kind. Callers
// disable both for the other kinds.
func Actionable(kind models.Kind) bool {
	return kind == models.KindBooking || kind == models.KindRental
}

func (s *Session) Approve(ctx context.Context, kind models.Kind, id int64) error {
	return s.decide(ctx, kind, id, models.ActionApproving, "")
}

// Reject rejects with comment, or the default reason when it is blank.
func (s *Session) Reject(ctx context.Context, kind models.Kind, id int64, comment string) error {
	reason := strings.TrimSpace(comment)
	if reason == "" {
		reason = s.opts.DefaultRejectReason
	}
	return s.decide(ctx, kind, id, models.ActionRejecting, reason)
}

func (s *Session) decide(ctx context.Context, kind models.Kind, id int64, action models.ActionState, reason string) error {
	switch kind {
	case models.KindSubmission:
		metrics.IncDecision(string(kind), string(action), metrics.ResultSkipped)
		return nil
	case models.KindBooking, models.KindRental:
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedKind, kind)
	}

	key := models.Key(kind, id)
	if !s.locks.TryAcquire(key, action) {
		return ErrActionInProgress
	}
	defer s.locks.Release(key)

	s.setError("")

	snap := s.Snapshot()
	view, _ := findView(snap, kind, id)

	if err := s.mutate(ctx, snap, kind, id, action, reason); err != nil {
		s.setError(OperatorMessage(err, fallbackMessage(action)))
		metrics.IncDecision(string(kind), string(action), metrics.ResultError)
		s.logger.Error().Err(err).Str("key", key).Str("action", string(action)).Msg("decision failed")
		return err
	}

	metrics.IncDecision(string(kind), string(action), metrics.ResultOK)
	s.logger.Info().Str("key", key).Str("action", string(action)).Str("operator", s.operator).Msg("decision applied")

	eventType := events.EventRequestApproved
	if action == models.ActionRejecting {
		eventType = events.EventRequestRejected
	}
	s.publish(eventType, events.DecisionEventPayload{
		SessionID: s.id,
		Operator:  s.operator,
		Kind:      string(kind),
		RequestID: id,
		ActorName: view.ActorName,
		ItemLabel: view.ItemLabel,
		Detail:    view.Detail,
		Comment:   reason,
		DecidedAt: s.opts.Now(),
	})

	// The lock stays held until the reload settles. A failed reload is
	// already reported through the session error.
	_ = s.Load(ctx)
	return nil
}

func (s *Session) mutate(ctx context.Context, snap *models.Snapshot, kind models.Kind, id int64, action models.ActionState, reason string) error {
	if kind == models.KindRental {
		if action == models.ActionApproving {
			return s.source.ApproveRental(ctx, id)
		}
		return s.source.RejectRental(ctx, id, reason)
	}

	decision := domain.BookingDecision{Reason: reason}
	if b, ok := snap.FindBooking(id); ok {
		decision.Date = b.Day()
		decision.LabRoom = b.Location()
		decision.TimeSlot = slotLabel(b)
	} else {
		s.logger.Warn().Int64("booking_id", id).Msg("booking not in snapshot, deciding by id only")
	}

	if action == models.ActionApproving {
		return s.source.ApproveBooking(ctx, id, decision)
	}
	return s.source.RejectBooking(ctx, id, decision)
}

func fallbackMessage(action models.ActionState) string {
	if action == models.ActionRejecting {
		return "Failed to reject request"
	}
	return "Failed to approve request"
}

// findView projects the request with the given kind and id.
func findView(snap *models.Snapshot, kind models.Kind, id int64) (models.ProjectedView, bool) {
	if snap == nil {
		return models.ProjectedView{}, false
	}
	switch kind {
	case models.KindBooking:
		if b, ok := snap.FindBooking(id); ok {
			return ProjectBooking(b), true
		}
	case models.KindRental:
		for i := range snap.Rentals {
			if snap.Rentals[i].ID == id {
				return ProjectRental(&snap.Rentals[i]), true
			}
		}
	case models.KindSubmission:
		for i := range snap.Submissions {
			if snap.Submissions[i].ID == id {
				return ProjectSubmission(&snap.Submissions[i]), true
			}
		}
	}
	return models.ProjectedView{}, false
}
