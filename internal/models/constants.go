package models

// Kind identifies one of the three resource request streams.
type Kind string

const (
	KindBooking    Kind = "booking"
	KindRental     Kind = "rental"
	KindSubmission Kind = "submission"
)

// Kinds lists the request kinds in queue order.
var Kinds = []Kind{KindBooking, KindRental, KindSubmission}

// ParseKind accepts the kind names used by the HTTP API.
func ParseKind(s string) (Kind, bool) {
	switch Kind(NormalizeStatus(s)) {
	case KindBooking:
		return KindBooking, true
	case KindRental:
		return KindRental, true
	case KindSubmission:
		return KindSubmission, true
	}
	return "", false
}

const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"

	StatusActive   = "active"
	StatusReturned = "returned"
	StatusOverdue  = "overdue"
	StatusDamaged  = "damaged"

	StatusDraft        = "draft"
	StatusNeedsChanges = "needs-changes"
	StatusFlagged      = "flagged"
)

// Display severities of the activity feed.
const (
	SeverityApproved  = "approved"
	SeverityCompleted = "completed"
)

const (
	// Placeholder rendered for absent or unparsable values.
	Placeholder = "—"

	// DefaultActorName is used when no requester name can be resolved.
	DefaultActorName = "Student"

	DefaultBookingLabel    = "Lab"
	DefaultRentalLabel     = "Equipment"
	DefaultSubmissionLabel = "CV"

	// DefaultRejectReason is sent when the operator leaves the comment blank.
	DefaultRejectReason = "Rejected by admin"

	// DefaultPendingLimit caps the merged pending queue.
	DefaultPendingLimit = 6

	// DefaultActivityLimit caps the activity feed.
	DefaultActivityLimit = 3

	// DayLayout is the calendar day format of booking days.
	DayLayout = "2006-01-02"
)
