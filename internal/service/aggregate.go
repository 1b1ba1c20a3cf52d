package service

import (
	"math"
	"sort"
	"strings"
	"time"

	"labdesk/internal/models"
)

var actionLabels = map[models.Kind]map[string]string{
	models.KindBooking: {
		models.StatusPending:   "Booking requested",
		models.StatusApproved:  "Booking approved",
		models.StatusRejected:  "Booking rejected",
		models.StatusCancelled: "Booking cancelled",
		models.StatusCompleted: "Booking completed",
	},
	models.KindRental: {
		models.StatusPending:  "Rental requested",
		models.StatusApproved: "Rental approved",
		models.StatusRejected: "Rental rejected",
		models.StatusActive:   "Equipment checked out",
		models.StatusReturned: "Equipment returned",
		models.StatusOverdue:  "Rental overdue",
		models.StatusDamaged:  "Equipment reported damaged",
	},
	models.KindSubmission: {
		models.StatusPending:      "CV submitted",
		models.StatusApproved:     "CV approved",
		models.StatusNeedsChanges: "CV changes requested",
		models.StatusFlagged:      "CV flagged",
		models.StatusDraft:        "CV draft saved",
	},
}

var genericLabels = map[models.Kind]string{
	models.KindBooking:    "Booking updated",
	models.KindRental:     "Rental updated",
	models.KindSubmission: "CV updated",
}

// ActionLabel describes a (kind, status) pair for the activity feed.
func ActionLabel(kind models.Kind, status string) string {
	if label, ok := actionLabels[kind][models.NormalizeStatus(status)]; ok {
		return label
	}
	if label, ok := genericLabels[kind]; ok {
		return label
	}
	return "Request updated"
}

// Severity collapses every status onto the two feed severities.
func Severity(status string) string {
	if models.NormalizeStatus(status) == models.StatusApproved {
		return models.SeverityApproved
	}
	return models.SeverityCompleted
}

// PendingQueue returns the pending requests of all kinds, bookings first,
// then rentals, then submissions, capped at limit after concatenation.
// total is the pending count before the cap.
func PendingQueue(snap *models.Snapshot, limit int) (queue []models.ProjectedView, total int) {
	queue = []models.ProjectedView{}
	if snap == nil {
		return queue, 0
	}
	for _, views := range projectAll(snap) {
		for _, v := range views {
			if v.Status == models.StatusPending {
				queue = append(queue, v)
			}
		}
	}
	total = len(queue)
	if limit >= 0 && len(queue) > limit {
		queue = queue[:limit]
	}
	return queue, total
}

// ActivityFeed returns the most recently touched requests of all kinds.
// Records without timestamps rank as oldest; ties keep input order.
func ActivityFeed(snap *models.Snapshot, limit int) []models.ActivityItem {
	feed := []models.ActivityItem{}
	if snap == nil {
		return feed
	}

	var all []models.ProjectedView
	for _, views := range projectAll(snap) {
		all = append(all, views...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].SortTime.After(all[j].SortTime)
	})
	if limit >= 0 && len(all) > limit {
		all = all[:limit]
	}

	for _, v := range all {
		feed = append(feed, models.ActivityItem{
			ProjectedView: v,
			Action:        ActionLabel(v.Kind, v.Status),
			Severity:      Severity(v.Status),
		})
	}
	return feed
}

var activeRentalStatuses = map[string]bool{
	models.StatusActive: true,
	"in_use":            true,
	"in-use":            true,
	"ongoing":           true,
}

// ComputeStats derives the headline counters from the snapshot.
func ComputeStats(snap *models.Snapshot) models.DashboardStats {
	var stats models.DashboardStats
	if snap == nil {
		return stats
	}
	stats.TotalStudents = snap.Stats.TotalStudents
	stats.TutorialViews = snap.Stats.TutorialViews

	for i := range snap.Bookings {
		switch snap.Bookings[i].CanonicalStatus() {
		case models.StatusPending:
			stats.PendingBookings++
			stats.ActiveBookings++
		case models.StatusApproved:
			stats.ActiveBookings++
		}
	}
	for i := range snap.Rentals {
		if activeRentalStatuses[snap.Rentals[i].CanonicalStatus()] {
			stats.ActiveRentals++
		}
	}
	for i := range snap.Submissions {
		if snap.Submissions[i].CanonicalStatus() == models.StatusPending {
			stats.PendingSubmissions++
		}
	}
	return stats
}

// SelectLab picks the lab whose utilization is shown: labID when set and
// present, otherwise the first active lab, otherwise the first lab.
func SelectLab(labs []models.Lab, labID int64) (*models.Lab, bool) {
	if len(labs) == 0 {
		return nil, false
	}
	if labID > 0 {
		for i := range labs {
			if labs[i].ID == labID {
				return &labs[i], true
			}
		}
		return nil, false
	}
	for i := range labs {
		if labs[i].IsActive {
			return &labs[i], true
		}
	}
	return &labs[0], true
}

func bookingInLab(b *models.Booking, lab *models.Lab) bool {
	if id := b.LabID(); id != 0 {
		return id == lab.ID
	}
	return strings.EqualFold(b.Location(), strings.TrimSpace(lab.Name))
}

// ComputeUtilization counts the lab's bookings active at now, evaluated
// in loc, against its capacity.
func ComputeUtilization(lab *models.Lab, bookings []models.Booking, now time.Time, loc *time.Location) models.Utilization {
	if lab == nil {
		return models.Utilization{}
	}
	if loc != nil {
		now = now.In(loc)
	}
	today := now.Format(models.DayLayout)
	clock := models.ClockOf(now)

	u := models.Utilization{
		LabID:    lab.ID,
		LabName:  lab.Name,
		Capacity: lab.Capacity,
	}
	for i := range bookings {
		if bookingInLab(&bookings[i], lab) && models.IsActiveNow(&bookings[i], clock, today) {
			u.ActiveCount++
		}
	}
	if lab.Capacity > 0 {
		u.PercentUsed = int(math.Round(float64(u.ActiveCount) / float64(lab.Capacity) * 100))
		u.Available = true
	}
	return u
}
