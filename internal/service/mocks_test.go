package service

import (
	"context"
	"io"
	"time"

	"labdesk/internal/domain"
	"labdesk/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
)

type MockRecordSource struct {
	mock.Mock
}

func (m *MockRecordSource) ListBookings(ctx context.Context) ([]models.Booking, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Booking), args.Error(1)
}

func (m *MockRecordSource) ListRentals(ctx context.Context) ([]models.Rental, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Rental), args.Error(1)
}

func (m *MockRecordSource) ListSubmissions(ctx context.Context) ([]models.Submission, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Submission), args.Error(1)
}

func (m *MockRecordSource) ListLabs(ctx context.Context) ([]models.Lab, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Lab), args.Error(1)
}

func (m *MockRecordSource) FetchStats(ctx context.Context) (*models.RemoteStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RemoteStats), args.Error(1)
}

func (m *MockRecordSource) ApproveBooking(ctx context.Context, id int64, decision domain.BookingDecision) error {
	args := m.Called(ctx, id, decision)
	return args.Error(0)
}

func (m *MockRecordSource) RejectBooking(ctx context.Context, id int64, decision domain.BookingDecision) error {
	args := m.Called(ctx, id, decision)
	return args.Error(0)
}

func (m *MockRecordSource) ApproveRental(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRecordSource) RejectRental(ctx context.Context, id int64, reason string) error {
	args := m.Called(ctx, id, reason)
	return args.Error(0)
}

type MockStateRepository struct {
	mock.Mock
}

func (m *MockStateRepository) GetSession(ctx context.Context, id string) (*models.SessionInfo, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SessionInfo), args.Error(1)
}

func (m *MockStateRepository) SaveSession(ctx context.Context, info *models.SessionInfo) error {
	args := m.Called(ctx, info)
	return args.Error(0)
}

func (m *MockStateRepository) DeleteSession(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStateRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

// fixedNow is Saturday 2025-11-15 09:30 UTC.
var fixedNow = time.Date(2025, 11, 15, 9, 30, 0, 0, time.UTC)

func testOptions() SessionOptions {
	return SessionOptions{
		Location: time.UTC,
		Now:      func() time.Time { return fixedNow },
	}
}

func testLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func booking(id int64, status, day, slot string) models.Booking {
	return models.Booking{
		RequestBase: models.RequestBase{ID: id, Status: models.Scalar(status), StudentName: "Student " + string(rune('A'+id%26))},
		Lab:         "1",
		LabName:     "Studio A",
		BookingDate: models.Scalar(day),
		TimeSlot:    models.Scalar(slot),
	}
}

func rental(id int64, status string) models.Rental {
	return models.Rental{
		RequestBase:   models.RequestBase{ID: id, Status: models.Scalar(status)},
		EquipmentName: "Sony A7S III",
	}
}

func submission(id int64, status string) models.Submission {
	return models.Submission{
		RequestBase: models.RequestBase{ID: id, Status: models.Scalar(status)},
		Title:       "Portfolio",
	}
}

func testSnapshot() *models.Snapshot {
	return &models.Snapshot{
		Bookings: []models.Booking{
			booking(1, "pending", "2025-11-15", "09:00-10:00"),
			booking(2, "approved", "2025-11-15", "09:00 - 10:00"),
		},
		Rentals:     []models.Rental{rental(3, "pending")},
		Submissions: []models.Submission{submission(4, "pending")},
		Labs:        []models.Lab{{ID: 1, Name: "Studio A", Capacity: 30, IsActive: true}},
		Stats:       models.RemoteStats{TotalStudents: 248, TutorialViews: 1247},
	}
}

// stubSource answers every read with snap, any number of times.
func stubSource(snap *models.Snapshot) *MockRecordSource {
	src := new(MockRecordSource)
	src.On("ListBookings", mock.Anything).Return(snap.Bookings, nil).Maybe()
	src.On("ListRentals", mock.Anything).Return(snap.Rentals, nil).Maybe()
	src.On("ListSubmissions", mock.Anything).Return(snap.Submissions, nil).Maybe()
	src.On("ListLabs", mock.Anything).Return(snap.Labs, nil).Maybe()
	stats := snap.Stats
	src.On("FetchStats", mock.Anything).Return(&stats, nil).Maybe()
	return src
}
