package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		name string
		raw  any
		want string
	}{
		{"nil", nil, ""},
		{"lowercase", "pending", "pending"},
		{"mixed case and spaces", "  Approved ", "approved"},
		{"unknown passes through", "In_Use", "in_use"},
		{"scalar", Scalar(" REJECTED"), "rejected"},
		{"nil scalar pointer", (*Scalar)(nil), ""},
		{"number", 42, "42"},
		{"bool", true, "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeStatus(tt.raw))
		})
	}
}

func TestParseKind(t *testing.T) {
	k, ok := ParseKind(" Booking ")
	assert.True(t, ok)
	assert.Equal(t, KindBooking, k)

	_, ok = ParseKind("tutorial")
	assert.False(t, ok)
}

func TestParseWindow(t *testing.T) {
	t.Run("WellFormed", func(t *testing.T) {
		w, ok := ParseWindow("09:00-10:30")
		require.True(t, ok)
		assert.Equal(t, "09:00", w.Start)
		assert.Equal(t, "10:30", w.End)
		assert.Equal(t, "09:00-10:30", w.Label)
	})

	t.Run("SpacesAndSeconds", func(t *testing.T) {
		w, ok := ParseWindow(" 10:00:00 - 12:00:00 ")
		require.True(t, ok)
		assert.Equal(t, "10:00-12:00", w.Label)
	})

	t.Run("EnDash", func(t *testing.T) {
		w, ok := ParseWindow("14:00 – 16:00")
		require.True(t, ok)
		assert.Equal(t, "14:00-16:00", w.Label)
	})

	rejected := []string{"", "09:00", "09:00-", "-10:00", "9:00-10:00", "09:00-10:00-11:00"}
	for _, slot := range rejected {
		t.Run("Reject_"+slot, func(t *testing.T) {
			_, ok := ParseWindow(slot)
			assert.False(t, ok)
			assert.Equal(t, "", NormalizeSlot(slot))
		})
	}
}

func TestTimeWindowContains(t *testing.T) {
	w, ok := ParseWindow("09:00-10:00")
	require.True(t, ok)

	assert.True(t, w.Contains(9*60))
	assert.True(t, w.Contains(9*60+59))
	assert.False(t, w.Contains(10*60))
	assert.False(t, w.Contains(8*60+59))

	bad, ok := ParseWindow("ab:cd-ef:gh")
	require.True(t, ok)
	assert.False(t, bad.Contains(0))
}

func TestIsActiveNow(t *testing.T) {
	const today = "2025-11-15"
	booking := &Booking{
		RequestBase: RequestBase{ID: 1, Status: "Approved"},
		BookingDate: today,
		TimeSlot:    "09:00-10:00",
	}

	assert.True(t, IsActiveNow(booking, Clock{Hour: 9, Minute: 30}, today))
	assert.True(t, IsActiveNow(booking, Clock{Hour: 9, Minute: 0}, today))
	assert.False(t, IsActiveNow(booking, Clock{Hour: 10, Minute: 0}, today))
	assert.False(t, IsActiveNow(booking, Clock{Hour: 8, Minute: 59}, today))

	t.Run("NotApproved", func(t *testing.T) {
		b := *booking
		b.Status = "pending"
		assert.False(t, IsActiveNow(&b, Clock{Hour: 9, Minute: 30}, today))
	})

	t.Run("OtherDay", func(t *testing.T) {
		assert.False(t, IsActiveNow(booking, Clock{Hour: 9, Minute: 30}, "2025-11-16"))
	})

	t.Run("FallbackDayField", func(t *testing.T) {
		b := *booking
		b.BookingDate = ""
		b.Date = today
		assert.True(t, IsActiveNow(&b, Clock{Hour: 9, Minute: 30}, today))
	})

	t.Run("UnparsableSlot", func(t *testing.T) {
		b := *booking
		b.TimeSlot = "morning"
		assert.False(t, IsActiveNow(&b, Clock{Hour: 9, Minute: 30}, today))
	})

	t.Run("Nil", func(t *testing.T) {
		assert.False(t, IsActiveNow(nil, Clock{}, today))
	})
}

func TestClockOf(t *testing.T) {
	c := ClockOf(time.Date(2025, 1, 1, 13, 45, 0, 0, time.UTC))
	assert.Equal(t, 13*60+45, c.Minutes())
}

func TestDecodeRecords(t *testing.T) {
	t.Run("Booking", func(t *testing.T) {
		raw := `{"id": 7, "status": null, "student": 12, "lab": 3, "lab_name": "BMC Lab",
			"date": "2025-11-15", "time_slot": "10:00 - 12:00", "imac_number": 4}`
		var b Booking
		require.NoError(t, json.Unmarshal([]byte(raw), &b))
		assert.Equal(t, int64(7), b.ID)
		assert.Equal(t, "", b.CanonicalStatus())
		require.NotNil(t, b.Student)
		assert.Equal(t, Account{}, *b.Student)
		assert.Equal(t, int64(3), b.LabID())
		assert.Equal(t, "2025-11-15", b.Day())
		assert.Equal(t, "4", b.UnitNumber.String())
		assert.Equal(t, "BMC Lab", b.Location())
	})

	t.Run("Rental", func(t *testing.T) {
		raw := `{"id": 2, "status": "ACTIVE", "user": {"first_name": "Sarah", "last_name": "Johnson", "username": "sjohnson"},
			"item_name": "Canon EOS R5", "rental_date": "2025-11-01T10:00:00Z", "duration_days": 3}`
		var r Rental
		require.NoError(t, json.Unmarshal([]byte(raw), &r))
		assert.Equal(t, "active", r.CanonicalStatus())
		require.NotNil(t, r.User)
		assert.Equal(t, "sjohnson", r.User.Username)
		assert.Equal(t, "2025-11-01T10:00:00Z", r.StartDate())
		assert.Equal(t, "3 days", r.DurationText())
	})

	t.Run("DurationText", func(t *testing.T) {
		assert.Equal(t, "1 day", (&Rental{DurationDays: "1"}).DurationText())
		assert.Equal(t, Placeholder, (&Rental{}).DurationText())
	})
}

func TestSnapshotLookups(t *testing.T) {
	s := &Snapshot{
		Bookings: []Booking{{RequestBase: RequestBase{ID: 1}}, {RequestBase: RequestBase{ID: 2}}},
		Labs:     []Lab{{ID: 5, Name: "Studio A", Capacity: 30}},
	}

	b, ok := s.FindBooking(2)
	require.True(t, ok)
	assert.Equal(t, int64(2), b.ID)

	_, ok = s.FindBooking(3)
	assert.False(t, ok)

	lab, ok := s.FindLab(5)
	require.True(t, ok)
	assert.Equal(t, 30, lab.Capacity)

	var nilSnap *Snapshot
	_, ok = nilSnap.FindBooking(1)
	assert.False(t, ok)

	assert.Equal(t, "booking-12", Key(KindBooking, 12))
}
