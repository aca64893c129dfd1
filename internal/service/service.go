package service

import (
	"context"
	"time"

	"evrental-backend/internal/domain"
)

type FleetService interface {
	AddStation(ctx context.Context, actor domain.Actor, s *domain.Station) error
	GetStation(ctx context.Context, id int32) (*domain.Station, error)
	ListStations(ctx context.Context) ([]domain.Station, error)

	AddVehicle(ctx context.Context, actor domain.Actor, v *domain.Vehicle) error
	GetVehicle(ctx context.Context, id int32) (*domain.Vehicle, error)
	ListStationVehicles(ctx context.Context, stationID int32) ([]domain.Vehicle, error)

	// ReleaseVehicle is the idempotent staff action returning a vehicle
	// to the rentable pool outside the booking flow.
	ReleaseVehicle(ctx context.Context, actor domain.Actor, vehicleID int32) error

	// UpdateVehicleLocation ingests telemetry; it is best-effort and
	// never fails a lifecycle operation.
	UpdateVehicleLocation(ctx context.Context, vehicleID int32, lon, lat float64, at time.Time) error
	UpdateVehicleBattery(ctx context.Context, vehicleID int32, level int32) error

	RecordMaintenance(ctx context.Context, actor domain.Actor, rec *domain.MaintenanceRecord) error
	ClearMaintenance(ctx context.Context, actor domain.Actor, vehicleID int32) error
	ListMaintenance(ctx context.Context, vehicleID int32) ([]domain.MaintenanceRecord, error)
}

type CreateBookingRequest struct {
	VehicleID      int32     `json:"vehicle_id"`
	StartStationID int32     `json:"start_station_id"`
	EndStationID   int32     `json:"end_station_id"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
}

type DamageReportRequest struct {
	Description   string   `json:"description"`
	Photos        []string `json:"photos"`
	EstimateCents int32    `json:"estimate_cents"`
	Severity      string   `json:"severity"` // LOW, MEDIUM, HIGH
}

type BookingService interface {
	Create(ctx context.Context, actor domain.Actor, req CreateBookingRequest) (*domain.Booking, error)
	Get(ctx context.Context, actor domain.Actor, id int32) (*domain.Booking, error)
	ListMine(ctx context.Context, actor domain.Actor, status string, page, pageSize int32) ([]domain.Booking, int32, error)
	List(ctx context.Context, actor domain.Actor, status string, page, pageSize int32) ([]domain.Booking, int32, error)

	Approve(ctx context.Context, actor domain.Actor, id int32) error
	Decline(ctx context.Context, actor domain.Actor, id int32) error
	Cancel(ctx context.Context, actor domain.Actor, id int32) error

	// ReportDamage attaches a damage record and accrues the severity-
	// scaled penalty; the booking status is unchanged.
	ReportDamage(ctx context.Context, actor domain.Actor, id int32, req DamageReportRequest) error

	// ConfirmPayment consumes the external payment signal.
	ConfirmPayment(ctx context.Context, bookingID int32, confirmed bool) error
}

type RideReceipt struct {
	RideID     int32   `json:"ride_id"`
	CostCents  int32   `json:"cost_cents"`
	DistanceKm float64 `json:"distance_km"`
}

type RideService interface {
	Start(ctx context.Context, actor domain.Actor, bookingID int32, lon, lat float64) (*domain.Ride, error)
	Get(ctx context.Context, actor domain.Actor, id int32) (*domain.Ride, error)

	// TrackLocation records a position sample and evaluates the
	// operating-zone debounce. Best-effort: telemetry faults are logged,
	// never surfaced as lifecycle failures.
	TrackLocation(ctx context.Context, rideID int32, lon, lat float64, at time.Time) error

	// End settles the ride. Non-staff callers must be inside the end
	// station's geofence; staff may force-close with override set, which
	// is recorded as an audited override on the ride.
	End(ctx context.Context, actor domain.Actor, rideID int32, lon, lat float64, override bool) (*RideReceipt, error)

	ReportIssue(ctx context.Context, actor domain.Actor, rideID int32, issue, details string) error
	ListIssues(ctx context.Context, rideID int32) ([]domain.RideIssue, error)
	Rate(ctx context.Context, actor domain.Actor, rideID int32, rating int32, feedback string) error
}

type PenaltyService interface {
	// Accrue records a staff-initiated penalty; lifecycle-triggered
	// penalties (damage, late return, geofence) are accrued by the
	// booking and ride services with amounts from the pricing package.
	Accrue(ctx context.Context, actor domain.Actor, p *domain.Penalty) error

	Get(ctx context.Context, actor domain.Actor, id int32) (*domain.Penalty, error)
	ListByBooking(ctx context.Context, actor domain.Actor, bookingID int32) ([]domain.Penalty, error)
	ListMine(ctx context.Context, actor domain.Actor, page, pageSize int32) ([]domain.Penalty, int32, error)

	Waive(ctx context.Context, actor domain.Actor, id int32) error
	MarkPaid(ctx context.Context, actor domain.Actor, id int32, paidAmountCents int32) error
	Remove(ctx context.Context, actor domain.Actor, id int32) error

	Statistics(ctx context.Context, actor domain.Actor) (*domain.PenaltyStatistics, error)
}

type NotificationService interface {
	Notify(ctx context.Context, userID int32, typ domain.NotificationType, title, message, link string)
	NotifyStaff(ctx context.Context, typ domain.NotificationType, title, message, link string)
	List(ctx context.Context, userID int32, page, pageSize int32) ([]domain.Notification, int32, error)
	MarkAsRead(ctx context.Context, userID, id int32) error
}

// MailerService delivers a notification by email. Callers treat it as
// fire-and-forget; a delivery failure never affects lifecycle state.
type MailerService interface {
	Send(ctx context.Context, toEmail, toName, subject, body string) error
}
