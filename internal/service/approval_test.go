package service

import (
	"context"
	"errors"
	"testing"

	"labdesk/internal/domain"
	"labdesk/internal/events"
	"labdesk/internal/models"
	"labdesk/internal/remote"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func loadedSession(t *testing.T, src *MockRecordSource, bus *events.EventBus) *Session {
	t.Helper()
	s := NewSession("s-1", "admin", src, bus, testOptions(), testLogger())
	require.NoError(t, s.Load(context.Background()))
	return s
}

func TestApproveBookingSubmitsNormalizedSlot(t *testing.T) {
	src := stubSource(testSnapshot())
	bus := events.NewEventBus()
	var decided events.DecisionEventPayload
	bus.Subscribe(events.EventRequestApproved, func(e *events.Event) error {
		return e.Decode(&decided)
	})

	s := loadedSession(t, src, bus)
	src.On("ApproveBooking", mock.Anything, int64(2), domain.BookingDecision{
		Date:     "2025-11-15",
		LabRoom:  "Studio A",
		TimeSlot: "09:00-10:00",
	}).Return(nil).Once()

	require.NoError(t, s.Approve(context.Background(), models.KindBooking, 2))
	src.AssertExpectations(t)

	// Initial load plus the reload after the decision.
	src.AssertNumberOfCalls(t, "ListRentals", 2)
	assert.Equal(t, models.ActionIdle, s.ActionState(models.KindBooking, 2))
	assert.Equal(t, "booking", decided.Kind)
	assert.Equal(t, int64(2), decided.RequestID)
	assert.Equal(t, "Studio A", decided.ItemLabel)
	assert.Equal(t, "admin", decided.Operator)
}

func TestApproveRentalByIDOnly(t *testing.T) {
	src := stubSource(testSnapshot())
	s := loadedSession(t, src, nil)
	src.On("ApproveRental", mock.Anything, int64(3)).Return(nil).Once()

	require.NoError(t, s.Approve(context.Background(), models.KindRental, 3))
	src.AssertExpectations(t)
}

func TestRejectUsesCommentOrDefaultReason(t *testing.T) {
	src := stubSource(testSnapshot())
	bus := events.NewEventBus()
	var rejected []events.DecisionEventPayload
	bus.Subscribe(events.EventRequestRejected, func(e *events.Event) error {
		var p events.DecisionEventPayload
		if err := e.Decode(&p); err != nil {
			return err
		}
		rejected = append(rejected, p)
		return nil
	})
	s := loadedSession(t, src, bus)
	ctx := context.Background()

	src.On("RejectRental", mock.Anything, int64(3), models.DefaultRejectReason).Return(nil).Once()
	require.NoError(t, s.Reject(ctx, models.KindRental, 3, "   "))

	src.On("RejectBooking", mock.Anything, int64(1), mock.MatchedBy(func(d domain.BookingDecision) bool {
		return d.Reason == "Lab closed for maintenance" && d.TimeSlot == "09:00-10:00"
	})).Return(nil).Once()
	require.NoError(t, s.Reject(ctx, models.KindBooking, 1, " Lab closed for maintenance "))

	src.AssertExpectations(t)
	require.Len(t, rejected, 2)
	assert.Equal(t, models.DefaultRejectReason, rejected[0].Comment)
	assert.Equal(t, "Lab closed for maintenance", rejected[1].Comment)
}

func TestSubmissionDecisionsAreNoOps(t *testing.T) {
	src := stubSource(testSnapshot())
	s := loadedSession(t, src, nil)
	ctx := context.Background()

	require.NoError(t, s.Approve(ctx, models.KindSubmission, 4))
	require.NoError(t, s.Reject(ctx, models.KindSubmission, 4, "typos"))

	src.AssertNotCalled(t, "ApproveBooking", mock.Anything, mock.Anything, mock.Anything)
	src.AssertNotCalled(t, "RejectBooking", mock.Anything, mock.Anything, mock.Anything)
	src.AssertNotCalled(t, "ApproveRental", mock.Anything, mock.Anything)
	src.AssertNotCalled(t, "RejectRental", mock.Anything, mock.Anything, mock.Anything)
	src.AssertNumberOfCalls(t, "ListRentals", 1)
	assert.False(t, Actionable(models.KindSubmission))
	assert.True(t, Actionable(models.KindBooking))
	assert.True(t, Actionable(models.KindRental))
}

func TestDecisionUnknownKind(t *testing.T) {
	s := NewSession("s-1", "admin", new(MockRecordSource), nil, testOptions(), nil)
	err := s.Approve(context.Background(), models.Kind("tutorial"), 1)
	assert.ErrorIs(t, err, ErrUnsupportedKind)
}

func TestDecisionFailureKeepsSnapshot(t *testing.T) {
	src := stubSource(testSnapshot())
	s := loadedSession(t, src, nil)
	before := s.Snapshot()

	apiErr := &remote.APIError{StatusCode: 400, Detail: "Slot already taken"}
	src.On("ApproveBooking", mock.Anything, int64(1), mock.Anything).Return(apiErr).Once()

	err := s.Approve(context.Background(), models.KindBooking, 1)
	require.Error(t, err)

	view := s.View()
	assert.Equal(t, "Slot already taken", view.Error)
	assert.Same(t, before, s.Snapshot())
	assert.Equal(t, models.ActionIdle, s.ActionState(models.KindBooking, 1))
	assert.Empty(t, view.Locks)
	src.AssertNumberOfCalls(t, "ListRentals", 1)
}

func TestDecisionClearsPriorError(t *testing.T) {
	src := stubSource(testSnapshot())
	s := loadedSession(t, src, nil)
	ctx := context.Background()

	src.On("ApproveRental", mock.Anything, int64(3)).Return(errors.New("dial tcp: timeout")).Once()
	require.Error(t, s.Approve(ctx, models.KindRental, 3))
	assert.Equal(t, "dial tcp: timeout", s.LastError())

	src.On("ApproveRental", mock.Anything, int64(3)).Return(nil).Once()
	require.NoError(t, s.Approve(ctx, models.KindRental, 3))
	assert.Empty(t, s.LastError())
}

func TestDecisionRejectedWhileBusy(t *testing.T) {
	src := stubSource(testSnapshot())
	s := loadedSession(t, src, nil)

	require.True(t, s.locks.TryAcquire(models.Key(models.KindBooking, 1), models.ActionApproving))

	err := s.Reject(context.Background(), models.KindBooking, 1, "")
	assert.ErrorIs(t, err, ErrActionInProgress)
	assert.Equal(t, models.ActionApproving, s.ActionState(models.KindBooking, 1))
	src.AssertNotCalled(t, "RejectBooking", mock.Anything, mock.Anything, mock.Anything)
}

func TestLockHeldDuringReload(t *testing.T) {
	snap := testSnapshot()
	src := new(MockRecordSource)
	src.On("ListBookings", mock.Anything).Return(snap.Bookings, nil)
	src.On("ListSubmissions", mock.Anything).Return(snap.Submissions, nil)
	src.On("ListLabs", mock.Anything).Return(snap.Labs, nil)
	src.On("FetchStats", mock.Anything).Return(&snap.Stats, nil)
	src.On("ListRentals", mock.Anything).Return(snap.Rentals, nil).Once()

	s := loadedSession(t, src, nil)

	var stateDuringReload models.ActionState
	src.On("ListRentals", mock.Anything).Return(snap.Rentals, nil).Run(func(mock.Arguments) {
		stateDuringReload = s.ActionState(models.KindRental, 3)
	}).Once()
	src.On("RejectRental", mock.Anything, int64(3), "late").Return(nil).Once()

	require.NoError(t, s.Reject(context.Background(), models.KindRental, 3, "late"))
	assert.Equal(t, models.ActionRejecting, stateDuringReload)
	assert.Equal(t, models.ActionIdle, s.ActionState(models.KindRental, 3))
}

func TestApproveUnknownBookingDecidesByID(t *testing.T) {
	src := stubSource(testSnapshot())
	s := loadedSession(t, src, nil)
	src.On("ApproveBooking", mock.Anything, int64(99), domain.BookingDecision{}).Return(nil).Once()

	require.NoError(t, s.Approve(context.Background(), models.KindBooking, 99))
	src.AssertExpectations(t)
}
