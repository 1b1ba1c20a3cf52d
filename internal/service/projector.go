package service

import (
	"strings"
	"time"

	"labdesk/internal/models"
)

// timestampLayouts are tried in order when rendering record timestamps.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	models.DayLayout,
}

const displayLayout = "2006-01-02 15:04"

// parseTimestamp reads the ISO-ish timestamps of the record service.
func parseTimestamp(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// RenderTimestamp formats raw for display, or returns the placeholder.
func RenderTimestamp(raw string) string {
	t, ok := parseTimestamp(raw)
	if !ok {
		return models.Placeholder
	}
	return t.Format(displayLayout)
}

// sortTime is updated_at, else created_at, else the zero time.
func sortTime(base *models.RequestBase) time.Time {
	if t, ok := parseTimestamp(base.UpdatedAt.String()); ok {
		return t
	}
	if t, ok := parseTimestamp(base.CreatedAt.String()); ok {
		return t
	}
	return time.Time{}
}

// ResolveActorName picks the requester's display name: the free-text name,
// then the linked account's first and last name, then its username, then
// the default literal.
func ResolveActorName(freeText string, accounts ...*models.Account) string {
	if name := strings.TrimSpace(freeText); name != "" {
		return name
	}
	for _, acc := range accounts {
		if acc == nil {
			continue
		}
		full := strings.TrimSpace(strings.TrimSpace(acc.FirstName) + " " + strings.TrimSpace(acc.LastName))
		if full != "" {
			return full
		}
	}
	for _, acc := range accounts {
		if acc == nil {
			continue
		}
		if handle := strings.TrimSpace(acc.Username); handle != "" {
			return handle
		}
	}
	return models.DefaultActorName
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func orPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return models.Placeholder
	}
	return s
}

func baseView(kind models.Kind, base *models.RequestBase) models.ProjectedView {
	return models.ProjectedView{
		ID:        base.ID,
		Kind:      kind,
		Key:       models.Key(kind, base.ID),
		Status:    base.CanonicalStatus(),
		Timestamp: RenderTimestamp(base.CreatedAt.String()),
		SortTime:  sortTime(base),
	}
}

// BookingLabel is the lab name with the unit suffix when one is set.
func BookingLabel(b *models.Booking) string {
	label := b.Location()
	if label == "" {
		label = models.DefaultBookingLabel
	}
	if unit := b.UnitNumber.Trimmed(); unit != "" {
		label += " • unit " + unit
	}
	return label
}

// slotLabel is the normalized slot, or the raw text when it does not parse.
func slotLabel(b *models.Booking) string {
	if label := models.NormalizeSlot(b.TimeSlot.String()); label != "" {
		return label
	}
	return b.TimeSlot.Trimmed()
}

func ProjectBooking(b *models.Booking) models.ProjectedView {
	v := baseView(models.KindBooking, &b.RequestBase)
	v.ActorName = ResolveActorName(b.StudentName, b.Student, b.User)
	v.ItemLabel = BookingLabel(b)

	v.Detail = orPlaceholder(b.Day()) + " • " + orPlaceholder(slotLabel(b))
	return v
}

func ProjectRental(r *models.Rental) models.ProjectedView {
	v := baseView(models.KindRental, &r.RequestBase)
	v.ActorName = ResolveActorName(r.StudentName, r.Student, r.User)
	v.ItemLabel = firstNonBlank(r.EquipmentName, r.ItemName)
	if v.ItemLabel == "" {
		v.ItemLabel = models.DefaultRentalLabel
	}
	v.Detail = orPlaceholder(r.StartDate()) + " → " + orPlaceholder(r.EndDate()) + " (" + r.DurationText() + ")"
	return v
}

func ProjectSubmission(s *models.Submission) models.ProjectedView {
	v := baseView(models.KindSubmission, &s.RequestBase)
	v.ActorName = ResolveActorName(firstNonBlank(s.StudentName, s.FullName), s.Student, s.User)
	v.ItemLabel = firstNonBlank(s.Title, s.TemplateName)
	if v.ItemLabel == "" {
		v.ItemLabel = models.DefaultSubmissionLabel
	}
	v.Detail = orPlaceholder(s.TemplateName)
	return v
}

// Project dispatches on the request variant.
func Project(req models.ResourceRequest) models.ProjectedView {
	switch r := req.(type) {
	case *models.Booking:
		return ProjectBooking(r)
	case *models.Rental:
		return ProjectRental(r)
	case *models.Submission:
		return ProjectSubmission(r)
	}
	v := baseView(req.Kind(), req.Common())
	v.ActorName = models.DefaultActorName
	v.ItemLabel = models.Placeholder
	v.Detail = models.Placeholder
	return v
}

// projectAll returns the projected views of the snapshot in kind order.
func projectAll(snap *models.Snapshot) [][]models.ProjectedView {
	bookings := make([]models.ProjectedView, 0, len(snap.Bookings))
	for i := range snap.Bookings {
		bookings = append(bookings, ProjectBooking(&snap.Bookings[i]))
	}
	rentals := make([]models.ProjectedView, 0, len(snap.Rentals))
	for i := range snap.Rentals {
		rentals = append(rentals, ProjectRental(&snap.Rentals[i]))
	}
	submissions := make([]models.ProjectedView, 0, len(snap.Submissions))
	for i := range snap.Submissions {
		submissions = append(submissions, ProjectSubmission(&snap.Submissions[i]))
	}
	return [][]models.ProjectedView{bookings, rentals, submissions}
}
