package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"evrental-backend/internal/domain"
)

// MockVehicleRepo
type MockVehicleRepo struct {
	mock.Mock
}

func (m *MockVehicleRepo) Create(ctx context.Context, v *domain.Vehicle) error {
	args := m.Called(ctx, v)
	return args.Error(0)
}
func (m *MockVehicleRepo) GetByID(ctx context.Context, id int32) (*domain.Vehicle, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Vehicle), args.Error(1)
}
func (m *MockVehicleRepo) ListByStation(ctx context.Context, stationID int32) ([]domain.Vehicle, error) {
	args := m.Called(ctx, stationID)
	return args.Get(0).([]domain.Vehicle), args.Error(1)
}
func (m *MockVehicleRepo) Reserve(ctx context.Context, vehicleID int32) error {
	args := m.Called(ctx, vehicleID)
	return args.Error(0)
}
func (m *MockVehicleRepo) Release(ctx context.Context, vehicleID int32) error {
	args := m.Called(ctx, vehicleID)
	return args.Error(0)
}
func (m *MockVehicleRepo) UpdateLocation(ctx context.Context, vehicleID int32, lon, lat float64, at time.Time) error {
	args := m.Called(ctx, vehicleID, lon, lat, at)
	return args.Error(0)
}
func (m *MockVehicleRepo) UpdateBattery(ctx context.Context, vehicleID int32, level int32) error {
	args := m.Called(ctx, vehicleID, level)
	return args.Error(0)
}
func (m *MockVehicleRepo) RecordMaintenance(ctx context.Context, rec *domain.MaintenanceRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}
func (m *MockVehicleRepo) ClearMaintenance(ctx context.Context, vehicleID int32) error {
	args := m.Called(ctx, vehicleID)
	return args.Error(0)
}
func (m *MockVehicleRepo) ListMaintenance(ctx context.Context, vehicleID int32) ([]domain.MaintenanceRecord, error) {
	args := m.Called(ctx, vehicleID)
	return args.Get(0).([]domain.MaintenanceRecord), args.Error(1)
}
func (m *MockVehicleRepo) RefreshRating(ctx context.Context, vehicleID int32) error {
	args := m.Called(ctx, vehicleID)
	return args.Error(0)
}

// MockStationRepo
type MockStationRepo struct {
	mock.Mock
}

func (m *MockStationRepo) Create(ctx context.Context, s *domain.Station) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}
func (m *MockStationRepo) GetByID(ctx context.Context, id int32) (*domain.Station, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Station), args.Error(1)
}
func (m *MockStationRepo) List(ctx context.Context) ([]domain.Station, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Station), args.Error(1)
}
func (m *MockStationRepo) RecomputeAvailableCounts(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockBookingRepo
type MockBookingRepo struct {
	mock.Mock
}

func (m *MockBookingRepo) Create(ctx context.Context, b *domain.Booking) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}
func (m *MockBookingRepo) GetByID(ctx context.Context, id int32) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Booking), args.Error(1)
}
func (m *MockBookingRepo) ListByCustomer(ctx context.Context, customerID int32, status string, page, pageSize int32) ([]domain.Booking, int32, error) {
	args := m.Called(ctx, customerID, status, page, pageSize)
	return args.Get(0).([]domain.Booking), args.Get(1).(int32), args.Error(2)
}
func (m *MockBookingRepo) List(ctx context.Context, status string, page, pageSize int32) ([]domain.Booking, int32, error) {
	args := m.Called(ctx, status, page, pageSize)
	return args.Get(0).([]domain.Booking), args.Get(1).(int32), args.Error(2)
}
func (m *MockBookingRepo) CountNonTerminalByCustomer(ctx context.Context, customerID int32) (int32, error) {
	args := m.Called(ctx, customerID)
	return args.Get(0).(int32), args.Error(1)
}
func (m *MockBookingRepo) SetStatus(ctx context.Context, id int32, from, to domain.BookingStatus, releaseVehicle bool) error {
	args := m.Called(ctx, id, from, to, releaseVehicle)
	return args.Error(0)
}
func (m *MockBookingRepo) Cancel(ctx context.Context, id int32, from domain.BookingStatus, fee *domain.Penalty) error {
	args := m.Called(ctx, id, from, fee)
	return args.Error(0)
}
func (m *MockBookingRepo) SetPaymentStatus(ctx context.Context, id int32, status domain.PaymentStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}
func (m *MockBookingRepo) SetDamage(ctx context.Context, id int32, description string, photos []string, estimateCents int32) error {
	args := m.Called(ctx, id, description, photos, estimateCents)
	return args.Error(0)
}
func (m *MockBookingRepo) UpdateLastLocation(ctx context.Context, id int32, lon, lat float64, at time.Time) error {
	args := m.Called(ctx, id, lon, lat, at)
	return args.Error(0)
}

// MockRideRepo
type MockRideRepo struct {
	mock.Mock
}

func (m *MockRideRepo) Start(ctx context.Context, r *domain.Ride) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}
func (m *MockRideRepo) GetByID(ctx context.Context, id int32) (*domain.Ride, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ride), args.Error(1)
}
func (m *MockRideRepo) GetByBookingID(ctx context.Context, bookingID int32) (*domain.Ride, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ride), args.Error(1)
}
func (m *MockRideRepo) ListByCustomer(ctx context.Context, customerID int32, page, pageSize int32) ([]domain.Ride, int32, error) {
	args := m.Called(ctx, customerID, page, pageSize)
	return args.Get(0).([]domain.Ride), args.Get(1).(int32), args.Error(2)
}
func (m *MockRideRepo) Complete(ctx context.Context, r *domain.Ride, actualEnd time.Time, endStationID int32, penalties []domain.Penalty) error {
	args := m.Called(ctx, r, actualEnd, endStationID, penalties)
	return args.Error(0)
}
func (m *MockRideRepo) UpdateZoneState(ctx context.Context, rideID int32, outOfZoneSince *time.Time, penalized bool) error {
	args := m.Called(ctx, rideID, outOfZoneSince, penalized)
	return args.Error(0)
}
func (m *MockRideRepo) PenalizeZoneEpisode(ctx context.Context, rideID int32, p *domain.Penalty) (bool, error) {
	args := m.Called(ctx, rideID, p)
	return args.Get(0).(bool), args.Error(1)
}
func (m *MockRideRepo) AddIssue(ctx context.Context, issue *domain.RideIssue) error {
	args := m.Called(ctx, issue)
	return args.Error(0)
}
func (m *MockRideRepo) ListIssues(ctx context.Context, rideID int32) ([]domain.RideIssue, error) {
	args := m.Called(ctx, rideID)
	return args.Get(0).([]domain.RideIssue), args.Error(1)
}
func (m *MockRideRepo) SetRating(ctx context.Context, rideID int32, rating int32, feedback string) error {
	args := m.Called(ctx, rideID, rating, feedback)
	return args.Error(0)
}

// MockPenaltyRepo
type MockPenaltyRepo struct {
	mock.Mock
}

func (m *MockPenaltyRepo) Accrue(ctx context.Context, p *domain.Penalty) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}
func (m *MockPenaltyRepo) GetByID(ctx context.Context, id int32) (*domain.Penalty, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Penalty), args.Error(1)
}
func (m *MockPenaltyRepo) ListByBooking(ctx context.Context, bookingID int32) ([]domain.Penalty, error) {
	args := m.Called(ctx, bookingID)
	return args.Get(0).([]domain.Penalty), args.Error(1)
}
func (m *MockPenaltyRepo) ListByCustomer(ctx context.Context, customerID int32, page, pageSize int32) ([]domain.Penalty, int32, error) {
	args := m.Called(ctx, customerID, page, pageSize)
	return args.Get(0).([]domain.Penalty), args.Get(1).(int32), args.Error(2)
}
func (m *MockPenaltyRepo) Waive(ctx context.Context, id int32) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *MockPenaltyRepo) MarkPaid(ctx context.Context, id int32, paidAmountCents int32, paidAt time.Time) error {
	args := m.Called(ctx, id, paidAmountCents, paidAt)
	return args.Error(0)
}
func (m *MockPenaltyRepo) Remove(ctx context.Context, id int32) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
func (m *MockPenaltyRepo) Statistics(ctx context.Context) (*domain.PenaltyStatistics, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PenaltyStatistics), args.Error(1)
}

// MockPrincipalRepo
type MockPrincipalRepo struct {
	mock.Mock
}

func (m *MockPrincipalRepo) GetByID(ctx context.Context, id int32) (*domain.Principal, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Principal), args.Error(1)
}
func (m *MockPrincipalRepo) ListStaff(ctx context.Context) ([]domain.Principal, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Principal), args.Error(1)
}

// MockNotificationRepo
type MockNotificationRepo struct {
	mock.Mock
}

func (m *MockNotificationRepo) Create(ctx context.Context, note *domain.Notification) error {
	args := m.Called(ctx, note)
	return args.Error(0)
}
func (m *MockNotificationRepo) List(ctx context.Context, userID int32, limit, offset int32) ([]domain.Notification, int32, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]domain.Notification), args.Get(1).(int32), args.Error(2)
}
func (m *MockNotificationRepo) MarkAsRead(ctx context.Context, id, userID int32) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

// MockMailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, toEmail, toName, subject, body string) error {
	args := m.Called(ctx, toEmail, toName, subject, body)
	return args.Error(0)
}

// stubNotifier records fan-out calls without any assertions; most
// lifecycle tests only care that notifications never block the flow.
type stubNotifier struct {
	notified []int32
	staff    int
}

func (s *stubNotifier) Notify(ctx context.Context, userID int32, typ domain.NotificationType, title, message, link string) {
	s.notified = append(s.notified, userID)
}
func (s *stubNotifier) NotifyStaff(ctx context.Context, typ domain.NotificationType, title, message, link string) {
	s.staff++
}
func (s *stubNotifier) List(ctx context.Context, userID int32, page, pageSize int32) ([]domain.Notification, int32, error) {
	return nil, 0, nil
}
func (s *stubNotifier) MarkAsRead(ctx context.Context, userID, id int32) error {
	return nil
}
