package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"evrental-backend/internal/domain"
	"evrental-backend/internal/repository"
)

type vehicleRepository struct {
	db *sql.DB
}

func NewVehicleRepository(db *sql.DB) repository.VehicleRepository {
	return &vehicleRepository{db: db}
}

const vehicleColumns = `id, station_id, status, battery_level, longitude, latitude, located_at,
	price_per_hour_cents, base_rate_cents, included_km, extra_km_rate_cents, rating, created_on, updated_on`

func scanVehicle(row interface{ Scan(...any) error }) (*domain.Vehicle, error) {
	v := &domain.Vehicle{}
	err := row.Scan(&v.ID, &v.StationID, &v.Status, &v.BatteryLevel, &v.Longitude, &v.Latitude, &v.LocatedAt,
		&v.PricePerHourCents, &v.BaseRateCents, &v.IncludedKm, &v.ExtraKmRateCents, &v.Rating, &v.CreatedOn, &v.UpdatedOn)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (r *vehicleRepository) Create(ctx context.Context, v *domain.Vehicle) error {
	query := `INSERT INTO vehicles (station_id, status, battery_level, longitude, latitude,
	          price_per_hour_cents, base_rate_cents, included_km, extra_km_rate_cents, created_on, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW()) RETURNING id`
	return r.db.QueryRowContext(ctx, query, v.StationID, v.Status, v.BatteryLevel, v.Longitude, v.Latitude,
		v.PricePerHourCents, v.BaseRateCents, v.IncludedKm, v.ExtraKmRateCents).Scan(&v.ID)
}

func (r *vehicleRepository) GetByID(ctx context.Context, id int32) (*domain.Vehicle, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE id = $1`, id)
	v, err := scanVehicle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("vehicle %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (r *vehicleRepository) ListByStation(ctx context.Context, stationID int32) ([]domain.Vehicle, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+vehicleColumns+` FROM vehicles WHERE station_id = $1 ORDER BY id`, stationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var vehicles []domain.Vehicle
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, *v)
	}
	return vehicles, rows.Err()
}

func (r *vehicleRepository) Reserve(ctx context.Context, vehicleID int32) error {
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		return reserveVehicleTx(ctx, tx, vehicleID)
	})
}

func (r *vehicleRepository) Release(ctx context.Context, vehicleID int32) error {
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		return releaseVehicleTx(ctx, tx, vehicleID)
	})
}

func (r *vehicleRepository) UpdateLocation(ctx context.Context, vehicleID int32, lon, lat float64, at time.Time) error {
	// Last write wins; an older timestamp never overwrites a newer one.
	_, err := r.db.ExecContext(ctx,
		`UPDATE vehicles SET longitude = $2, latitude = $3, located_at = $4, updated_on = NOW()
		 WHERE id = $1 AND (located_at IS NULL OR located_at <= $4)`,
		vehicleID, lon, lat, at)
	return err
}

func (r *vehicleRepository) UpdateBattery(ctx context.Context, vehicleID int32, level int32) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE vehicles SET battery_level = $2, updated_on = NOW() WHERE id = $1`, vehicleID, level)
	return err
}

func (r *vehicleRepository) RecordMaintenance(ctx context.Context, rec *domain.MaintenanceRecord) error {
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`INSERT INTO vehicle_maintenance (vehicle_id, description, cost_cents, recorded_by, created_on)
			 VALUES ($1, $2, $3, $4, NOW()) RETURNING id`,
			rec.VehicleID, rec.Description, rec.CostCents, rec.RecordedBy).Scan(&rec.ID)
		if err != nil {
			return err
		}

		// Capacity-destructive: if the vehicle was rentable, the station
		// loses a slot in the same transaction.
		var wasAvailable bool
		err = tx.QueryRowContext(ctx,
			`SELECT status = 'AVAILABLE' FROM vehicles WHERE id = $1 FOR UPDATE`, rec.VehicleID).Scan(&wasAvailable)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFoundf("vehicle %d not found", rec.VehicleID)
		}
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE vehicles SET status = 'MAINTENANCE', updated_on = NOW() WHERE id = $1`, rec.VehicleID); err != nil {
			return err
		}
		if wasAvailable {
			_, err = tx.ExecContext(ctx,
				`UPDATE stations SET available_count = available_count - 1
				 WHERE id = (SELECT station_id FROM vehicles WHERE id = $1) AND available_count > 0`, rec.VehicleID)
			return err
		}
		return nil
	})
}

func (r *vehicleRepository) ClearMaintenance(ctx context.Context, vehicleID int32) error {
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		var stationID int32
		err := tx.QueryRowContext(ctx,
			`UPDATE vehicles SET status = 'AVAILABLE', updated_on = NOW()
			 WHERE id = $1 AND status = 'MAINTENANCE'
			 RETURNING station_id`, vehicleID).Scan(&stationID)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Conflictf("vehicle %d is not in maintenance", vehicleID)
		}
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE stations SET available_count = available_count + 1 WHERE id = $1`, stationID)
		return err
	})
}

func (r *vehicleRepository) ListMaintenance(ctx context.Context, vehicleID int32) ([]domain.MaintenanceRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, vehicle_id, description, cost_cents, recorded_by, created_on
		 FROM vehicle_maintenance WHERE vehicle_id = $1 ORDER BY created_on DESC`, vehicleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.MaintenanceRecord
	for rows.Next() {
		var rec domain.MaintenanceRecord
		if err := rows.Scan(&rec.ID, &rec.VehicleID, &rec.Description, &rec.CostCents, &rec.RecordedBy, &rec.CreatedOn); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *vehicleRepository) RefreshRating(ctx context.Context, vehicleID int32) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE vehicles SET rating = COALESCE(
		    (SELECT AVG(rating)::float8 FROM rides WHERE vehicle_id = $1 AND rating > 0), 0),
		 updated_on = NOW()
		 WHERE id = $1`, vehicleID)
	return err
}
