package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"evrental-backend/internal/domain"
	"evrental-backend/internal/repository"
)

type rideRepository struct {
	db *sql.DB
}

func NewRideRepository(db *sql.DB) repository.RideRepository {
	return &rideRepository{db: db}
}

const rideColumns = `id, booking_id, vehicle_id, customer_id, start_time, end_time,
	start_longitude, start_latitude, end_longitude, end_latitude,
	distance_km, cost_cents, status, rating, COALESCE(feedback, ''),
	out_of_zone_since, zone_penalized, override_id, override_by, override_at,
	created_on, updated_on`

func scanRide(row interface{ Scan(...any) error }) (*domain.Ride, error) {
	r := &domain.Ride{}
	err := row.Scan(&r.ID, &r.BookingID, &r.VehicleID, &r.CustomerID, &r.StartTime, &r.EndTime,
		&r.StartLongitude, &r.StartLatitude, &r.EndLongitude, &r.EndLatitude,
		&r.DistanceKm, &r.CostCents, &r.Status, &r.Rating, &r.Feedback,
		&r.OutOfZoneSince, &r.ZonePenalized, &r.OverrideID, &r.OverrideBy, &r.OverrideAt,
		&r.CreatedOn, &r.UpdatedOn)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (r *rideRepository) Start(ctx context.Context, ride *domain.Ride) error {
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		// The booking CAS is the gate: only an APPROVED booking can move
		// to ONGOING, and only one of two concurrent starts sees the row.
		var vehicleID, customerID int32
		err := tx.QueryRowContext(ctx,
			`UPDATE bookings SET status = 'ONGOING', updated_on = NOW()
			 WHERE id = $1 AND status = 'APPROVED'
			 RETURNING vehicle_id, customer_id`, ride.BookingID).Scan(&vehicleID, &customerID)
		if errors.Is(err, sql.ErrNoRows) {
			var current string
			if scanErr := tx.QueryRowContext(ctx,
				`SELECT status FROM bookings WHERE id = $1`, ride.BookingID).Scan(&current); scanErr != nil {
				if errors.Is(scanErr, sql.ErrNoRows) {
					return domain.NotFoundf("booking %d not found", ride.BookingID)
				}
				return scanErr
			}
			if current == string(domain.BookingStatusOngoing) {
				return domain.Conflictf("booking %d already has an active ride", ride.BookingID)
			}
			return domain.Conflictf("booking %d is %s, expected APPROVED", ride.BookingID, current)
		}
		if err != nil {
			return err
		}
		ride.VehicleID = vehicleID
		ride.CustomerID = customerID

		// The vehicle must still be the booking's reserved one; a
		// maintenance hold in between fails the start.
		res, err := tx.ExecContext(ctx,
			`UPDATE vehicles SET status = 'IN_USE', longitude = $2, latitude = $3,
			 located_at = $4, updated_on = NOW()
			 WHERE id = $1 AND status = 'BOOKED'`,
			vehicleID, ride.StartLongitude, ride.StartLatitude, ride.StartTime)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.Conflictf("vehicle %d is not ready for this ride", vehicleID)
		}

		query := `INSERT INTO rides (booking_id, vehicle_id, customer_id, start_time,
		          start_longitude, start_latitude, status, created_on, updated_on)
		          VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW()) RETURNING id`
		err = tx.QueryRowContext(ctx, query, ride.BookingID, vehicleID, customerID,
			ride.StartTime, ride.StartLongitude, ride.StartLatitude, ride.Status).Scan(&ride.ID)
		if isUniqueViolation(err) {
			return domain.Conflictf("booking %d already has an active ride", ride.BookingID)
		}
		return err
	})
}

func (r *rideRepository) GetByID(ctx context.Context, id int32) (*domain.Ride, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+rideColumns+` FROM rides WHERE id = $1`, id)
	ride, err := scanRide(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("ride %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return ride, nil
}

func (r *rideRepository) GetByBookingID(ctx context.Context, bookingID int32) (*domain.Ride, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+rideColumns+` FROM rides WHERE booking_id = $1 ORDER BY created_on DESC LIMIT 1`, bookingID)
	ride, err := scanRide(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("no ride for booking %d", bookingID)
	}
	if err != nil {
		return nil, err
	}
	return ride, nil
}

func (r *rideRepository) ListByCustomer(ctx context.Context, customerID int32, page, pageSize int32) ([]domain.Ride, int32, error) {
	offset := (page - 1) * pageSize

	var count int32
	if err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM rides WHERE customer_id = $1`, customerID).Scan(&count); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+rideColumns+` FROM rides WHERE customer_id = $1
		 ORDER BY created_on DESC LIMIT $2 OFFSET $3`, customerID, pageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var rides []domain.Ride
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, 0, err
		}
		rides = append(rides, *ride)
	}
	return rides, count, rows.Err()
}

func (r *rideRepository) Complete(ctx context.Context, ride *domain.Ride, actualEnd time.Time, endStationID int32, penalties []domain.Penalty) error {
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE rides SET status = 'COMPLETED', end_time = $2,
			 end_longitude = $3, end_latitude = $4, distance_km = $5, cost_cents = $6,
			 override_id = $7, override_by = $8, override_at = $9, updated_on = NOW()
			 WHERE id = $1 AND status = 'ACTIVE'`,
			ride.ID, actualEnd, ride.EndLongitude, ride.EndLatitude,
			ride.DistanceKm, ride.CostCents, ride.OverrideID, ride.OverrideBy, ride.OverrideAt)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.Conflictf("ride %d is not active", ride.ID)
		}

		// Settlement penalties land before the booking transition so its
		// COMPLETED-or-PENALIZED decision sees them. They share the
		// settlement transaction: if anything below fails, no penalty row
		// survives for a retry to duplicate.
		for i := range penalties {
			if err := accruePenaltyTx(ctx, tx, &penalties[i]); err != nil {
				return err
			}
		}

		// Settlement: the booking leaves ONGOING with its final cost, the
		// actual end time, and the vehicle reconciled, all in this
		// transaction. A booking that accrued penalties closes as
		// PENALIZED instead of COMPLETED.
		res, err = tx.ExecContext(ctx,
			`UPDATE bookings SET
			 status = CASE WHEN has_penalty THEN 'PENALIZED' ELSE 'COMPLETED' END,
			 actual_end_time = $2, total_cost_cents = $3,
			 last_longitude = $4, last_latitude = $5, last_seen_at = $2, updated_on = NOW()
			 WHERE id = $1 AND status = 'ONGOING'`,
			ride.BookingID, actualEnd, ride.CostCents, ride.EndLongitude, ride.EndLatitude)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.Conflictf("booking %d is not ongoing", ride.BookingID)
		}

		res, err = tx.ExecContext(ctx,
			`UPDATE vehicles SET status = 'AVAILABLE', station_id = $2,
			 longitude = $3, latitude = $4, located_at = $5, updated_on = NOW()
			 WHERE id = $1 AND status = 'IN_USE'`,
			ride.VehicleID, endStationID, ride.EndLongitude, ride.EndLatitude, actualEnd)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.Conflictf("vehicle %d is not in use", ride.VehicleID)
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE stations SET available_count = available_count + 1 WHERE id = $1`, endStationID)
		return err
	})
}

func (r *rideRepository) UpdateZoneState(ctx context.Context, rideID int32, outOfZoneSince *time.Time, penalized bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE rides SET out_of_zone_since = $2, zone_penalized = $3, updated_on = NOW()
		 WHERE id = $1 AND status = 'ACTIVE'`, rideID, outOfZoneSince, penalized)
	return err
}

func (r *rideRepository) PenalizeZoneEpisode(ctx context.Context, rideID int32, p *domain.Penalty) (bool, error) {
	applied := false
	err := inTx(ctx, r.db, func(tx *sql.Tx) error {
		// The flag CAS decides whether this evaluation owns the episode.
		// A loser (already penalized, ride no longer active) inserts
		// nothing and the whole call is a no-op.
		res, err := tx.ExecContext(ctx,
			`UPDATE rides SET zone_penalized = TRUE, updated_on = NOW()
			 WHERE id = $1 AND status = 'ACTIVE' AND zone_penalized = FALSE`, rideID)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil
		}
		if err := accruePenaltyTx(ctx, tx, p); err != nil {
			return err
		}
		applied = true
		return nil
	})
	return applied, err
}

func (r *rideRepository) AddIssue(ctx context.Context, issue *domain.RideIssue) error {
	query := `INSERT INTO ride_issues (ride_id, issue, details, created_on)
	          VALUES ($1, $2, $3, NOW()) RETURNING id`
	return r.db.QueryRowContext(ctx, query, issue.RideID, issue.Issue, issue.Details).Scan(&issue.ID)
}

func (r *rideRepository) ListIssues(ctx context.Context, rideID int32) ([]domain.RideIssue, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, ride_id, issue, COALESCE(details, ''), created_on
		 FROM ride_issues WHERE ride_id = $1 ORDER BY created_on`, rideID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var issues []domain.RideIssue
	for rows.Next() {
		var issue domain.RideIssue
		if err := rows.Scan(&issue.ID, &issue.RideID, &issue.Issue, &issue.Details, &issue.CreatedOn); err != nil {
			return nil, err
		}
		issues = append(issues, issue)
	}
	return issues, rows.Err()
}

func (r *rideRepository) SetRating(ctx context.Context, rideID int32, rating int32, feedback string) error {
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		var vehicleID int32
		err := tx.QueryRowContext(ctx,
			`UPDATE rides SET rating = $2, feedback = $3, updated_on = NOW()
			 WHERE id = $1 AND status = 'COMPLETED' AND rating = 0
			 RETURNING vehicle_id`, rideID, rating, feedback).Scan(&vehicleID)
		if errors.Is(err, sql.ErrNoRows) {
			var status string
			var existing int32
			if scanErr := tx.QueryRowContext(ctx,
				`SELECT status, rating FROM rides WHERE id = $1`, rideID).Scan(&status, &existing); scanErr != nil {
				if errors.Is(scanErr, sql.ErrNoRows) {
					return domain.NotFoundf("ride %d not found", rideID)
				}
				return scanErr
			}
			if existing != 0 {
				return domain.Conflictf("ride %d is already rated", rideID)
			}
			return domain.Conflictf("ride %d is %s, only completed rides can be rated", rideID, status)
		}
		if err != nil {
			return err
		}

		// Keep the vehicle's running average in step with its rated rides.
		_, err = tx.ExecContext(ctx,
			`UPDATE vehicles SET rating = COALESCE(
			    (SELECT AVG(rating)::float8 FROM rides WHERE vehicle_id = $1 AND rating > 0), 0),
			 updated_on = NOW()
			 WHERE id = $1`, vehicleID)
		return err
	})
}
