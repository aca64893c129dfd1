package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"evrental-backend/internal/domain"
	"evrental-backend/internal/repository"

	"github.com/lib/pq"
)

type bookingRepository struct {
	db *sql.DB
}

func NewBookingRepository(db *sql.DB) repository.BookingRepository {
	return &bookingRepository{db: db}
}

const bookingColumns = `id, customer_id, vehicle_id, start_station_id, end_station_id,
	start_time, end_time, actual_end_time, status, total_cost_cents, payment_status,
	base_rate_cents, included_km, extra_km_rate_cents,
	has_penalty, penalty_amount_cents,
	has_damage, COALESCE(damage_description, ''), damage_photos, damage_estimate_cents,
	last_longitude, last_latitude, last_seen_at, created_on, updated_on`

func scanBooking(row interface{ Scan(...any) error }) (*domain.Booking, error) {
	b := &domain.Booking{}
	err := row.Scan(&b.ID, &b.CustomerID, &b.VehicleID, &b.StartStationID, &b.EndStationID,
		&b.StartTime, &b.EndTime, &b.ActualEndTime, &b.Status, &b.TotalCostCents, &b.PaymentStatus,
		&b.BaseRateCents, &b.IncludedKm, &b.ExtraKmRateCents,
		&b.HasPenalty, &b.PenaltyAmountCents,
		&b.HasDamage, &b.DamageDescription, pq.Array(&b.DamagePhotos), &b.DamageEstimateCents,
		&b.LastLongitude, &b.LastLatitude, &b.LastSeenAt, &b.CreatedOn, &b.UpdatedOn)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *bookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		// Re-check the one-non-terminal-booking-per-customer rule inside
		// the insert transaction; the partial unique index in the schema
		// backs it against writers that race past this select.
		var existing int32
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM bookings
			 WHERE customer_id = $1 AND status IN ('PENDING', 'APPROVED', 'ONGOING')
			 LIMIT 1 FOR UPDATE`, b.CustomerID).Scan(&existing)
		if err == nil {
			return domain.Conflictf("customer %d already has an open booking (%d)", b.CustomerID, existing)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		// Reserving the vehicle and inserting the booking commit or roll
		// back together: no orphaned booking without a reserved vehicle.
		if err := reserveVehicleTx(ctx, tx, b.VehicleID); err != nil {
			return err
		}

		query := `INSERT INTO bookings (customer_id, vehicle_id, start_station_id, end_station_id,
		          start_time, end_time, status, total_cost_cents, payment_status,
		          base_rate_cents, included_km, extra_km_rate_cents, created_on, updated_on)
		          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NOW(), NOW()) RETURNING id`
		err = tx.QueryRowContext(ctx, query, b.CustomerID, b.VehicleID, b.StartStationID, b.EndStationID,
			b.StartTime, b.EndTime, b.Status, b.TotalCostCents, b.PaymentStatus,
			b.BaseRateCents, b.IncludedKm, b.ExtraKmRateCents).Scan(&b.ID)
		if isUniqueViolation(err) {
			return domain.Conflictf("customer %d already has an open booking", b.CustomerID)
		}
		return err
	})
}

func (r *bookingRepository) GetByID(ctx context.Context, id int32) (*domain.Booking, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("booking %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *bookingRepository) ListByCustomer(ctx context.Context, customerID int32, status string, page, pageSize int32) ([]domain.Booking, int32, error) {
	return r.list(ctx, `WHERE customer_id = $1`, []any{customerID}, status, page, pageSize)
}

func (r *bookingRepository) List(ctx context.Context, status string, page, pageSize int32) ([]domain.Booking, int32, error) {
	return r.list(ctx, `WHERE TRUE`, nil, status, page, pageSize)
}

func (r *bookingRepository) list(ctx context.Context, where string, args []any, status string, page, pageSize int32) ([]domain.Booking, int32, error) {
	offset := (page - 1) * pageSize
	query := `SELECT ` + bookingColumns + ` FROM bookings ` + where
	argIdx := len(args) + 1
	if status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, status)
		argIdx++
	}

	var count int32
	countQuery := "SELECT count(*) FROM (" + query + ") AS sub"
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&count); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(" ORDER BY created_on DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, pageSize, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, 0, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, count, rows.Err()
}

func (r *bookingRepository) CountNonTerminalByCustomer(ctx context.Context, customerID int32) (int32, error) {
	var count int32
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM bookings
		 WHERE customer_id = $1 AND status IN ('PENDING', 'APPROVED', 'ONGOING')`, customerID).Scan(&count)
	return count, err
}

func (r *bookingRepository) SetStatus(ctx context.Context, id int32, from, to domain.BookingStatus, releaseVehicle bool) error {
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		var vehicleID int32
		err := tx.QueryRowContext(ctx,
			`UPDATE bookings SET status = $3, updated_on = NOW()
			 WHERE id = $1 AND status = $2
			 RETURNING vehicle_id`, id, from, to).Scan(&vehicleID)
		if errors.Is(err, sql.ErrNoRows) {
			var current string
			if scanErr := tx.QueryRowContext(ctx,
				`SELECT status FROM bookings WHERE id = $1`, id).Scan(&current); scanErr != nil {
				if errors.Is(scanErr, sql.ErrNoRows) {
					return domain.NotFoundf("booking %d not found", id)
				}
				return scanErr
			}
			return domain.Conflictf("booking %d is %s, expected %s", id, current, from)
		}
		if err != nil {
			return err
		}

		if releaseVehicle {
			return releaseVehicleTx(ctx, tx, vehicleID)
		}
		return nil
	})
}

func (r *bookingRepository) Cancel(ctx context.Context, id int32, from domain.BookingStatus, fee *domain.Penalty) error {
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		var vehicleID int32
		err := tx.QueryRowContext(ctx,
			`UPDATE bookings SET status = 'CANCELLED', updated_on = NOW()
			 WHERE id = $1 AND status = $2
			 RETURNING vehicle_id`, id, from).Scan(&vehicleID)
		if errors.Is(err, sql.ErrNoRows) {
			var current string
			if scanErr := tx.QueryRowContext(ctx,
				`SELECT status FROM bookings WHERE id = $1`, id).Scan(&current); scanErr != nil {
				if errors.Is(scanErr, sql.ErrNoRows) {
					return domain.NotFoundf("booking %d not found", id)
				}
				return scanErr
			}
			return domain.Conflictf("booking %d is %s, expected %s", id, current, from)
		}
		if err != nil {
			return err
		}

		if err := releaseVehicleTx(ctx, tx, vehicleID); err != nil {
			return err
		}

		// The cancellation fee commits with the cancellation or not at
		// all; a retry after a failure repeats both together.
		if fee != nil {
			return accruePenaltyTx(ctx, tx, fee)
		}
		return nil
	})
}

func (r *bookingRepository) SetPaymentStatus(ctx context.Context, id int32, status domain.PaymentStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET payment_status = $2, updated_on = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFoundf("booking %d not found", id)
	}
	return nil
}

func (r *bookingRepository) SetDamage(ctx context.Context, id int32, description string, photos []string, estimateCents int32) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET has_damage = TRUE, damage_description = $2, damage_photos = $3,
		 damage_estimate_cents = $4, updated_on = NOW()
		 WHERE id = $1`, id, description, pq.Array(photos), estimateCents)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFoundf("booking %d not found", id)
	}
	return nil
}

func (r *bookingRepository) UpdateLastLocation(ctx context.Context, id int32, lon, lat float64, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET last_longitude = $2, last_latitude = $3, last_seen_at = $4, updated_on = NOW()
		 WHERE id = $1 AND (last_seen_at IS NULL OR last_seen_at <= $4)`, id, lon, lat, at)
	return err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
