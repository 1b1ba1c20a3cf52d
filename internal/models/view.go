package models

import "time"

// ProjectedView is the kind-agnostic display record of any request.
// Every string field is always set; missing data renders as a sentinel.
type ProjectedView struct {
	ID        int64  `json:"id"`
	Kind      Kind   `json:"kind"`
	Key       string `json:"key"`
	ActorName string `json:"actor_name"`
	ItemLabel string `json:"item_label"`
	Status    string `json:"status"`
	Detail    string `json:"detail"`
	Timestamp string `json:"timestamp"`

	// SortTime is updated_at, else created_at, else the zero time.
	SortTime time.Time `json:"-"`
}

// ActivityItem is one entry of the recency feed.
type ActivityItem struct {
	ProjectedView
	Action   string `json:"action"`
	Severity string `json:"severity"`
}

// DashboardStats are the headline counters.
type DashboardStats struct {
	TotalStudents      int `json:"total_students"`
	ActiveBookings     int `json:"active_bookings"`
	PendingBookings    int `json:"pending_bookings"`
	ActiveRentals      int `json:"active_rentals"`
	PendingSubmissions int `json:"pending_submissions"`
	TutorialViews      int `json:"tutorial_views"`
}

// Utilization is the share of a lab's seats taken right now. PercentUsed
// is meaningful only when Available is true.
type Utilization struct {
	LabID       int64  `json:"lab_id"`
	LabName     string `json:"lab_name"`
	Capacity    int    `json:"capacity"`
	ActiveCount int    `json:"active_count"`
	PercentUsed int    `json:"percent_used"`
	Available   bool   `json:"available"`
}

// ActionState is the busy marker of one request.
type ActionState string

const (
	ActionIdle      ActionState = "none"
	ActionApproving ActionState = "approve"
	ActionRejecting ActionState = "reject"
)

// DashboardView is everything the presentation layer renders.
type DashboardView struct {
	SessionID    string                 `json:"session_id"`
	PendingQueue []ProjectedView        `json:"pending_queue"`
	PendingTotal int                    `json:"pending_total"`
	Activity     []ActivityItem         `json:"activity"`
	Stats        DashboardStats         `json:"stats"`
	Utilization  Utilization            `json:"utilization"`
	Locks        map[string]ActionState `json:"locks"`
	Loading      bool                   `json:"loading"`
	Error        string                 `json:"error,omitempty"`
	LoadedAt     time.Time              `json:"loaded_at"`
}

// SessionInfo is the registry entry of an operator session.
type SessionInfo struct {
	ID           string    `json:"id"`
	Operator     string    `json:"operator"`
	CreatedAt    time.Time `json:"created_at"`
	LastLoadedAt time.Time `json:"last_loaded_at"`
	LastSeenAt   time.Time `json:"last_seen_at"`
}
