package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"evrental-backend/internal/domain"
	"evrental-backend/internal/repository"
)

type stationRepository struct {
	db *sql.DB
}

func NewStationRepository(db *sql.DB) repository.StationRepository {
	return &stationRepository{db: db}
}

func (r *stationRepository) Create(ctx context.Context, s *domain.Station) error {
	var polygon []byte
	if len(s.Polygon) > 0 {
		var err error
		polygon, err = json.Marshal(s.Polygon)
		if err != nil {
			return err
		}
	}
	query := `INSERT INTO stations (name, longitude, latitude, radius_m, polygon, available_count, created_on)
	          VALUES ($1, $2, $3, $4, $5, 0, NOW()) RETURNING id`
	return r.db.QueryRowContext(ctx, query, s.Name, s.Longitude, s.Latitude, s.RadiusM, polygon).Scan(&s.ID)
}

func (r *stationRepository) GetByID(ctx context.Context, id int32) (*domain.Station, error) {
	s := &domain.Station{}
	var polygon []byte
	query := `SELECT id, name, longitude, latitude, radius_m, polygon, available_count, created_on
	          FROM stations WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&s.ID, &s.Name, &s.Longitude, &s.Latitude, &s.RadiusM, &polygon, &s.AvailableCount, &s.CreatedOn)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("station %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	if len(polygon) > 0 {
		if err := json.Unmarshal(polygon, &s.Polygon); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (r *stationRepository) List(ctx context.Context) ([]domain.Station, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, longitude, latitude, radius_m, polygon, available_count, created_on
		 FROM stations ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stations []domain.Station
	for rows.Next() {
		var s domain.Station
		var polygon []byte
		if err := rows.Scan(&s.ID, &s.Name, &s.Longitude, &s.Latitude, &s.RadiusM, &polygon, &s.AvailableCount, &s.CreatedOn); err != nil {
			return nil, err
		}
		if len(polygon) > 0 {
			if err := json.Unmarshal(polygon, &s.Polygon); err != nil {
				return nil, err
			}
		}
		stations = append(stations, s)
	}
	return stations, rows.Err()
}

func (r *stationRepository) RecomputeAvailableCounts(ctx context.Context) (int64, error) {
	// The counter is a cache; this recount is the authoritative repair
	// for any drift.
	res, err := r.db.ExecContext(ctx, `
		UPDATE stations s SET available_count = sub.cnt
		FROM (SELECT st.id, COUNT(v.id) FILTER (WHERE v.status = 'AVAILABLE') AS cnt
		      FROM stations st LEFT JOIN vehicles v ON v.station_id = st.id
		      GROUP BY st.id) sub
		WHERE s.id = sub.id AND s.available_count <> sub.cnt`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
