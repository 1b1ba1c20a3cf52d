package service

import (
	"testing"
	"time"

	"labdesk/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingQueueGlobalCap(t *testing.T) {
	snap := &models.Snapshot{}
	for i := int64(1); i <= 5; i++ {
		snap.Bookings = append(snap.Bookings, booking(i, "pending", "2025-11-15", "09:00-10:00"))
	}
	for i := int64(11); i <= 13; i++ {
		snap.Rentals = append(snap.Rentals, rental(i, "PENDING"))
	}

	queue, total := PendingQueue(snap, 6)
	require.Len(t, queue, 6)
	assert.Equal(t, 8, total)
	for i := 0; i < 5; i++ {
		assert.Equal(t, models.KindBooking, queue[i].Kind)
		assert.Equal(t, int64(i+1), queue[i].ID)
	}
	assert.Equal(t, models.KindRental, queue[5].Kind)
	assert.Equal(t, int64(11), queue[5].ID)
}

func TestPendingQueueKindOrderAndFilter(t *testing.T) {
	snap := &models.Snapshot{
		Submissions: []models.Submission{submission(30, "pending"), submission(31, "draft")},
		Rentals:     []models.Rental{rental(20, "approved"), rental(21, " pending ")},
		Bookings:    []models.Booking{booking(10, "rejected", "", ""), booking(11, "pending", "", "")},
	}

	queue, total := PendingQueue(snap, 6)
	assert.Equal(t, 3, total)
	keys := make([]string, 0, len(queue))
	for _, v := range queue {
		keys = append(keys, v.Key)
	}
	assert.Equal(t, []string{"booking-11", "rental-21", "submission-30"}, keys)
}

func TestPendingQueueEmpty(t *testing.T) {
	queue, total := PendingQueue(nil, 6)
	assert.NotNil(t, queue)
	assert.Empty(t, queue)
	assert.Zero(t, total)
}

func TestActivityFeedOrdering(t *testing.T) {
	b1 := booking(1, "approved", "", "")
	b1.UpdatedAt = "2025-11-01T10:00:00Z"
	r2 := rental(2, "returned")
	r2.UpdatedAt = "2025-11-02T10:00:00Z"
	s3 := submission(3, "pending")
	s3.CreatedAt = "2025-11-03T10:00:00Z"
	none := booking(4, "cancelled", "", "")

	snap := &models.Snapshot{
		Bookings:    []models.Booking{none, b1},
		Rentals:     []models.Rental{r2},
		Submissions: []models.Submission{s3},
	}

	feed := ActivityFeed(snap, 3)
	require.Len(t, feed, 3)
	assert.Equal(t, "submission-3", feed[0].Key)
	assert.Equal(t, "CV submitted", feed[0].Action)
	assert.Equal(t, models.SeverityCompleted, feed[0].Severity)

	assert.Equal(t, "rental-2", feed[1].Key)
	assert.Equal(t, "Equipment returned", feed[1].Action)

	assert.Equal(t, "booking-1", feed[2].Key)
	assert.Equal(t, "Booking approved", feed[2].Action)
	assert.Equal(t, models.SeverityApproved, feed[2].Severity)

	all := ActivityFeed(snap, 10)
	require.Len(t, all, 4)
	assert.Equal(t, "booking-4", all[3].Key)
}

func TestActivityFeedStableTies(t *testing.T) {
	snap := &models.Snapshot{
		Bookings: []models.Booking{booking(1, "pending", "", ""), booking(2, "pending", "", "")},
		Rentals:  []models.Rental{rental(3, "pending")},
	}

	feed := ActivityFeed(snap, 3)
	require.Len(t, feed, 3)
	assert.Equal(t, "booking-1", feed[0].Key)
	assert.Equal(t, "booking-2", feed[1].Key)
	assert.Equal(t, "rental-3", feed[2].Key)
}

func TestActionLabel(t *testing.T) {
	tests := []struct {
		kind   models.Kind
		status string
		want   string
	}{
		{models.KindBooking, "approved", "Booking approved"},
		{models.KindBooking, "Pending", "Booking requested"},
		{models.KindBooking, "archived", "Booking updated"},
		{models.KindRental, "returned", "Equipment returned"},
		{models.KindRental, "active", "Equipment checked out"},
		{models.KindRental, "", "Rental updated"},
		{models.KindSubmission, "pending", "CV submitted"},
		{models.KindSubmission, "needs-changes", "CV changes requested"},
		{models.KindSubmission, "rejected", "CV updated"},
		{models.Kind("other"), "pending", "Request updated"},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind)+"/"+tt.status, func(t *testing.T) {
			assert.Equal(t, tt.want, ActionLabel(tt.kind, tt.status))
		})
	}
}

func TestSeverity(t *testing.T) {
	assert.Equal(t, models.SeverityApproved, Severity(" Approved "))
	for _, status := range []string{"pending", "rejected", "cancelled", "returned", ""} {
		assert.Equal(t, models.SeverityCompleted, Severity(status), status)
	}
}

func TestComputeStats(t *testing.T) {
	snap := &models.Snapshot{
		Bookings: []models.Booking{
			booking(1, "pending", "", ""),
			booking(2, "approved", "", ""),
			booking(3, "rejected", "", ""),
		},
		Rentals: []models.Rental{
			rental(4, "active"), rental(5, "in_use"), rental(6, "ongoing"), rental(7, "returned"),
		},
		Submissions: []models.Submission{submission(8, "pending"), submission(9, "approved")},
		Stats:       models.RemoteStats{TotalStudents: 248, TutorialViews: 1247},
	}

	stats := ComputeStats(snap)
	assert.Equal(t, models.DashboardStats{
		TotalStudents:      248,
		ActiveBookings:     2,
		PendingBookings:    1,
		ActiveRentals:      3,
		PendingSubmissions: 1,
		TutorialViews:      1247,
	}, stats)
	assert.Equal(t, models.DashboardStats{}, ComputeStats(nil))
}

func TestSelectLab(t *testing.T) {
	labs := []models.Lab{
		{ID: 1, Name: "Closed", IsActive: false},
		{ID: 2, Name: "Studio A", IsActive: true},
	}

	lab, ok := SelectLab(labs, 0)
	require.True(t, ok)
	assert.Equal(t, int64(2), lab.ID)

	lab, ok = SelectLab(labs, 1)
	require.True(t, ok)
	assert.Equal(t, int64(1), lab.ID)

	_, ok = SelectLab(labs, 99)
	assert.False(t, ok)

	_, ok = SelectLab(nil, 0)
	assert.False(t, ok)
}

func TestComputeUtilization(t *testing.T) {
	lab := &models.Lab{ID: 1, Name: "Studio A", Capacity: 30}
	other := booking(5, "approved", "2025-11-15", "09:00-10:00")
	other.Lab = "2"
	byName := booking(6, "approved", "2025-11-15", "09:00-10:00")
	byName.Lab = ""
	byName.LabName = "studio a"

	bookings := []models.Booking{
		booking(1, "approved", "2025-11-15", "09:00-10:00"),
		booking(2, "approved", "2025-11-15", "08:00-09:30"),
		booking(3, "pending", "2025-11-15", "09:00-10:00"),
		booking(4, "approved", "2025-11-16", "09:00-10:00"),
		other,
		byName,
	}

	u := ComputeUtilization(lab, bookings, fixedNow, time.UTC)
	assert.True(t, u.Available)
	assert.Equal(t, 30, u.Capacity)
	assert.Equal(t, 2, u.ActiveCount)
	assert.Equal(t, 7, u.PercentUsed)

	zero := ComputeUtilization(&models.Lab{ID: 1}, bookings, fixedNow, time.UTC)
	assert.False(t, zero.Available)
	assert.Equal(t, 2, zero.ActiveCount)

	assert.Equal(t, models.Utilization{}, ComputeUtilization(nil, bookings, fixedNow, time.UTC))
}

func TestComputeUtilizationUsesLocation(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*60*60)
	lab := &models.Lab{ID: 1, Name: "Studio A", Capacity: 4}
	bookings := []models.Booking{booking(1, "approved", "2025-11-15", "14:00-15:00")}

	u := ComputeUtilization(lab, bookings, fixedNow, loc)
	assert.Equal(t, 1, u.ActiveCount)
	assert.Equal(t, 25, u.PercentUsed)
}
