package repository

import (
	"context"
	"time"

	"evrental-backend/internal/domain"
)

// The multi-entity lifecycle operations (booking create, ride start and
// complete, penalty mutations) are single methods here so their postgres
// implementations can run them as one transaction. Partial application
// across booking, vehicle, and station rows is the bug class these
// signatures exist to prevent.

type VehicleRepository interface {
	Create(ctx context.Context, v *domain.Vehicle) error
	GetByID(ctx context.Context, id int32) (*domain.Vehicle, error)
	ListByStation(ctx context.Context, stationID int32) ([]domain.Vehicle, error)

	// Reserve atomically moves AVAILABLE -> BOOKED and decrements the
	// station's available count. Fails with Conflict when the vehicle is
	// in any other state.
	Reserve(ctx context.Context, vehicleID int32) error

	// Release moves BOOKED/IN_USE -> AVAILABLE and increments the station
	// count. Releasing an already-available vehicle is a no-op.
	Release(ctx context.Context, vehicleID int32) error

	// UpdateLocation is best-effort telemetry: last write wins, never a
	// precondition failure.
	UpdateLocation(ctx context.Context, vehicleID int32, lon, lat float64, at time.Time) error

	UpdateBattery(ctx context.Context, vehicleID int32, level int32) error

	// RecordMaintenance appends a history record and forces the vehicle
	// into MAINTENANCE in the same transaction.
	RecordMaintenance(ctx context.Context, rec *domain.MaintenanceRecord) error
	ClearMaintenance(ctx context.Context, vehicleID int32) error
	ListMaintenance(ctx context.Context, vehicleID int32) ([]domain.MaintenanceRecord, error)

	// RefreshRating recomputes the vehicle's average rating from its
	// rated rides.
	RefreshRating(ctx context.Context, vehicleID int32) error
}

type StationRepository interface {
	Create(ctx context.Context, s *domain.Station) error
	GetByID(ctx context.Context, id int32) (*domain.Station, error)
	List(ctx context.Context) ([]domain.Station, error)

	// RecomputeAvailableCounts repairs drift in the cached counters by
	// recounting roster vehicles with status AVAILABLE.
	RecomputeAvailableCounts(ctx context.Context) (int64, error)
}

type BookingRepository interface {
	// Create inserts the booking and reserves its vehicle in one
	// transaction, re-checking that the customer holds no other
	// non-terminal booking inside that same transaction.
	Create(ctx context.Context, b *domain.Booking) error

	GetByID(ctx context.Context, id int32) (*domain.Booking, error)
	ListByCustomer(ctx context.Context, customerID int32, status string, page, pageSize int32) ([]domain.Booking, int32, error)
	List(ctx context.Context, status string, page, pageSize int32) ([]domain.Booking, int32, error)
	CountNonTerminalByCustomer(ctx context.Context, customerID int32) (int32, error)

	// SetStatus is a compare-and-set transition; it fails with Conflict
	// when the booking is no longer in the expected state. When
	// releaseVehicle is set, the vehicle release happens in the same
	// transaction, so a booking can never reach a terminal status with
	// its vehicle unreconciled.
	SetStatus(ctx context.Context, id int32, from, to domain.BookingStatus, releaseVehicle bool) error

	// Cancel moves the booking to CANCELLED, releases its vehicle, and
	// accrues the cancellation fee (when non-nil) in one transaction. The
	// fee never exists without the cancellation and vice versa.
	Cancel(ctx context.Context, id int32, from domain.BookingStatus, fee *domain.Penalty) error

	SetPaymentStatus(ctx context.Context, id int32, status domain.PaymentStatus) error
	SetDamage(ctx context.Context, id int32, description string, photos []string, estimateCents int32) error
	UpdateLastLocation(ctx context.Context, id int32, lon, lat float64, at time.Time) error
}

type RideRepository interface {
	// Start creates the ride, moves the booking APPROVED -> ONGOING and
	// the vehicle to IN_USE at the start location, all in one
	// transaction. A second concurrent start loses the booking CAS and
	// fails with Conflict.
	Start(ctx context.Context, r *domain.Ride) error

	GetByID(ctx context.Context, id int32) (*domain.Ride, error)
	GetByBookingID(ctx context.Context, bookingID int32) (*domain.Ride, error)
	ListByCustomer(ctx context.Context, customerID int32, page, pageSize int32) ([]domain.Ride, int32, error)

	// Complete finalizes the ride and settles the booking in one
	// transaction: ride ACTIVE -> COMPLETED with distance and cost,
	// settlement penalties (late return, improper parking) inserted,
	// booking -> COMPLETED (or PENALIZED when penalties accrued) with the
	// final cost and actual end time, vehicle released to AVAILABLE at
	// the end location and re-homed to the end station. A failed
	// settlement leaves no penalty rows behind, so a retry cannot charge
	// twice.
	Complete(ctx context.Context, r *domain.Ride, actualEnd time.Time, endStationID int32, penalties []domain.Penalty) error

	// UpdateZoneState persists the geofence debounce state evaluated on a
	// location update.
	UpdateZoneState(ctx context.Context, rideID int32, outOfZoneSince *time.Time, penalized bool) error

	// PenalizeZoneEpisode marks the ride's current out-of-zone episode as
	// penalized and accrues the violation in one transaction. The flag
	// flip is a compare-and-set, so of two concurrent evaluations exactly
	// one inserts the penalty; the other reports false.
	PenalizeZoneEpisode(ctx context.Context, rideID int32, p *domain.Penalty) (bool, error)

	AddIssue(ctx context.Context, issue *domain.RideIssue) error
	ListIssues(ctx context.Context, rideID int32) ([]domain.RideIssue, error)

	// SetRating records a one-time rating on a completed ride; a second
	// attempt fails with Conflict.
	SetRating(ctx context.Context, rideID int32, rating int32, feedback string) error
}

type PenaltyRepository interface {
	// Accrue inserts the penalty row and increments the booking's cached
	// penalty total in one transaction; neither applies without the
	// other.
	Accrue(ctx context.Context, p *domain.Penalty) error

	GetByID(ctx context.Context, id int32) (*domain.Penalty, error)
	ListByBooking(ctx context.Context, bookingID int32) ([]domain.Penalty, error)
	ListByCustomer(ctx context.Context, customerID int32, page, pageSize int32) ([]domain.Penalty, int32, error)

	// Waive and Remove decrement the booking cache symmetrically (never
	// below zero); MarkPaid records settlement without touching the
	// cache.
	Waive(ctx context.Context, id int32) error
	MarkPaid(ctx context.Context, id int32, paidAmountCents int32, paidAt time.Time) error
	Remove(ctx context.Context, id int32) error

	// Statistics aggregates the ledger, excluding penalties whose
	// customer no longer resolves and folding in legacy bookings that
	// carry a penalty flag without normalized rows.
	Statistics(ctx context.Context) (*domain.PenaltyStatistics, error)
}

type PrincipalRepository interface {
	GetByID(ctx context.Context, id int32) (*domain.Principal, error)
	ListStaff(ctx context.Context) ([]domain.Principal, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, note *domain.Notification) error
	List(ctx context.Context, userID int32, limit, offset int32) ([]domain.Notification, int32, error)
	MarkAsRead(ctx context.Context, id, userID int32) error
}
