package postgres

import (
	"context"
	"database/sql"
	"errors"

	"evrental-backend/internal/domain"
	"evrental-backend/internal/repository"
)

// The principals table is a read-only directory mirrored from the
// identity system; this service never writes it.
type principalRepository struct {
	db *sql.DB
}

func NewPrincipalRepository(db *sql.DB) repository.PrincipalRepository {
	return &principalRepository{db: db}
}

func (r *principalRepository) GetByID(ctx context.Context, id int32) (*domain.Principal, error) {
	p := &domain.Principal{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, role, name, email FROM principals WHERE id = $1`, id).
		Scan(&p.ID, &p.Role, &p.Name, &p.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("principal %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *principalRepository) ListStaff(ctx context.Context) ([]domain.Principal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, role, name, email FROM principals
		 WHERE role IN ('ADMIN', 'STATION_MASTER') ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var staff []domain.Principal
	for rows.Next() {
		var p domain.Principal
		if err := rows.Scan(&p.ID, &p.Role, &p.Name, &p.Email); err != nil {
			return nil, err
		}
		staff = append(staff, p)
	}
	return staff, rows.Err()
}
