package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Scalar keeps a JSON scalar of any type as text. Null, absent and
// structured values decode to the empty string.
type Scalar string

func (s *Scalar) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*s = ""
		return nil
	}
	switch trimmed[0] {
	case '"':
		var str string
		if err := json.Unmarshal(trimmed, &str); err != nil {
			return err
		}
		*s = Scalar(str)
	case '{', '[':
		*s = ""
	default:
		*s = Scalar(trimmed)
	}
	return nil
}

func (s Scalar) String() string { return string(s) }

// Trimmed returns the value without surrounding whitespace.
func (s Scalar) Trimmed() string { return strings.TrimSpace(string(s)) }

// Int64 parses the value as an integer.
func (s Scalar) Int64() (int64, bool) {
	n, err := strconv.ParseInt(s.Trimmed(), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Account is the linked user account of a requester. The record service
// sometimes sends a bare primary key instead of an object; that decodes
// to an empty account.
type Account struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	Email     string `json:"email"`
}

func (a *Account) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		*a = Account{}
		return nil
	}
	type plain Account
	var out plain
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return err
	}
	*a = Account(out)
	return nil
}

// ResourceRequest is implemented by Booking, Rental and Submission.
type ResourceRequest interface {
	Kind() Kind
	RequestID() int64
	Common() *RequestBase
}

// RequestBase holds the fields every request kind shares.
type RequestBase struct {
	ID          int64    `json:"id"`
	Status      Scalar   `json:"status"`
	StudentName string   `json:"student_name"`
	Student     *Account `json:"student"`
	User        *Account `json:"user"`
	CreatedAt   Scalar   `json:"created_at"`
	UpdatedAt   Scalar   `json:"updated_at"`
}

func (b *RequestBase) RequestID() int64     { return b.ID }
func (b *RequestBase) Common() *RequestBase { return b }

// Key returns the "<kind>-<id>" identifier used for action locks.
func Key(kind Kind, id int64) string {
	return string(kind) + "-" + strconv.FormatInt(id, 10)
}

// Booking is a lab seat reservation.
type Booking struct {
	RequestBase
	Lab          Scalar `json:"lab"`
	LabName      string `json:"lab_name"`
	LabRoom      string `json:"lab_room"`
	BookingDate  Scalar `json:"booking_date"`
	Date         Scalar `json:"date"`
	TimeSlot     Scalar `json:"time_slot"`
	UnitNumber   Scalar `json:"imac_number"`
	Purpose      string `json:"purpose"`
	AdminComment string `json:"admin_comment"`
}

func (b *Booking) Kind() Kind { return KindBooking }

// Day returns the booking day, preferring booking_date over date.
func (b *Booking) Day() string {
	if d := b.BookingDate.Trimmed(); d != "" {
		return d
	}
	return b.Date.Trimmed()
}

// Location returns the lab name, falling back to the lab room field.
func (b *Booking) Location() string {
	if name := strings.TrimSpace(b.LabName); name != "" {
		return name
	}
	return strings.TrimSpace(b.LabRoom)
}

// LabID returns the referenced lab primary key, or 0.
func (b *Booking) LabID() int64 {
	id, _ := b.Lab.Int64()
	return id
}

// Rental is an equipment rental request.
type Rental struct {
	RequestBase
	EquipmentName      string `json:"equipment_name"`
	ItemName           string `json:"item_name"`
	PickupDate         Scalar `json:"pickup_date"`
	RentalDate         Scalar `json:"rental_date"`
	ExpectedReturnDate Scalar `json:"expected_return_date"`
	DurationDays       Scalar `json:"duration_days"`
	Notes              string `json:"notes"`
	RejectReason       string `json:"reject_reason"`
}

func (r *Rental) Kind() Kind { return KindRental }

// StartDate returns the pickup date, falling back to the rental date.
func (r *Rental) StartDate() string {
	if d := r.PickupDate.Trimmed(); d != "" {
		return d
	}
	return r.RentalDate.Trimmed()
}

// EndDate returns the expected return date.
func (r *Rental) EndDate() string { return r.ExpectedReturnDate.Trimmed() }

// DurationText renders duration_days as "N day(s)".
func (r *Rental) DurationText() string {
	n, ok := r.DurationDays.Int64()
	if !ok || n <= 0 {
		return Placeholder
	}
	if n == 1 {
		return "1 day"
	}
	return strconv.FormatInt(n, 10) + " days"
}

// Submission is a CV document submitted for review.
type Submission struct {
	RequestBase
	FullName     string `json:"full_name"`
	Title        string `json:"title"`
	TemplateName string `json:"template_name"`
	AdminComment string `json:"admin_comment"`
}

func (s *Submission) Kind() Kind { return KindSubmission }

// Lab is a physical room with a seat capacity.
type Lab struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
	Location string `json:"location"`
	IsActive bool   `json:"is_active"`
}

// RemoteStats are the figures the record service computes for the dashboard.
type RemoteStats struct {
	TotalStudents int `json:"total_students"`
	TutorialViews int `json:"tutorial_views"`
}

// Snapshot is one full load of the record service. It is replaced as a
// whole on every reload and never patched.
type Snapshot struct {
	Bookings    []Booking    `json:"bookings"`
	Rentals     []Rental     `json:"rentals"`
	Submissions []Submission `json:"submissions"`
	Labs        []Lab        `json:"labs"`
	Stats       RemoteStats  `json:"stats"`
	LoadedAt    time.Time    `json:"loaded_at"`
}

// FindBooking looks a booking up by id.
func (s *Snapshot) FindBooking(id int64) (*Booking, bool) {
	if s == nil {
		return nil, false
	}
	for i := range s.Bookings {
		if s.Bookings[i].ID == id {
			return &s.Bookings[i], true
		}
	}
	return nil, false
}

// FindLab looks a lab up by id.
func (s *Snapshot) FindLab(id int64) (*Lab, bool) {
	if s == nil {
		return nil, false
	}
	for i := range s.Labs {
		if s.Labs[i].ID == id {
			return &s.Labs[i], true
		}
	}
	return nil, false
}
