package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"evrental-backend/internal/domain"
	"evrental-backend/internal/repository"

	_ "github.com/lib/pq"
)

type Store struct {
	db *sql.DB
	repository.VehicleRepository
	repository.StationRepository
	repository.BookingRepository
	repository.RideRepository
	repository.PenaltyRepository
	repository.PrincipalRepository
	repository.NotificationRepository
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:                     db,
		VehicleRepository:      NewVehicleRepository(db),
		StationRepository:      NewStationRepository(db),
		BookingRepository:      NewBookingRepository(db),
		RideRepository:         NewRideRepository(db),
		PenaltyRepository:      NewPenaltyRepository(db),
		PrincipalRepository:    NewPrincipalRepository(db),
		NotificationRepository: NewNotificationRepository(db),
	}
}

// inTx runs fn inside a transaction, rolling back on error. Every
// lifecycle operation that touches more than one row goes through this
// so callers can retry knowing no partial effect survived a failure.
func inTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// reserveVehicleTx is the atomic check-and-set guarding double booking:
// the UPDATE only matches an AVAILABLE vehicle, so of two concurrent
// reservations exactly one sees a row. The station counter moves in the
// same transaction.
func reserveVehicleTx(ctx context.Context, tx *sql.Tx, vehicleID int32) error {
	var stationID int32
	err := tx.QueryRowContext(ctx,
		`UPDATE vehicles SET status = 'BOOKED', updated_on = NOW()
		 WHERE id = $1 AND status = 'AVAILABLE'
		 RETURNING station_id`, vehicleID).Scan(&stationID)
	if errors.Is(err, sql.ErrNoRows) {
		var status string
		if scanErr := tx.QueryRowContext(ctx,
			`SELECT status FROM vehicles WHERE id = $1`, vehicleID).Scan(&status); scanErr != nil {
			if errors.Is(scanErr, sql.ErrNoRows) {
				return domain.NotFoundf("vehicle %d not found", vehicleID)
			}
			return scanErr
		}
		return domain.Conflictf("vehicle %d is not available (status %s)", vehicleID, status)
	}
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE stations SET available_count = available_count - 1
		 WHERE id = $1 AND available_count > 0`, stationID)
	return err
}

// releaseVehicleTx returns a vehicle to the rentable pool. Idempotent: a
// vehicle that is already AVAILABLE (or held in MAINTENANCE) is left
// untouched and the station counter only moves when the status did.
func releaseVehicleTx(ctx context.Context, tx *sql.Tx, vehicleID int32) error {
	var stationID int32
	err := tx.QueryRowContext(ctx,
		`UPDATE vehicles SET status = 'AVAILABLE', updated_on = NOW()
		 WHERE id = $1 AND status IN ('BOOKED', 'IN_USE')
		 RETURNING station_id`, vehicleID).Scan(&stationID)
	if errors.Is(err, sql.ErrNoRows) {
		// Already released, charging, or in maintenance: nothing to do.
		return nil
	}
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE stations SET available_count = available_count + 1 WHERE id = $1`, stationID)
	return err
}
