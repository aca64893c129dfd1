package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"evrental-backend/internal/domain"
	"evrental-backend/internal/repository"
)

type penaltyRepository struct {
	db *sql.DB
}

func NewPenaltyRepository(db *sql.DB) repository.PenaltyRepository {
	return &penaltyRepository{db: db}
}

const penaltyColumns = `id, booking_id, customer_id, vehicle_id, amount_cents, reason, status,
	COALESCE(notes, ''), paid_amount_cents, paid_at, created_on, updated_on`

func scanPenalty(row interface{ Scan(...any) error }) (*domain.Penalty, error) {
	p := &domain.Penalty{}
	err := row.Scan(&p.ID, &p.BookingID, &p.CustomerID, &p.VehicleID, &p.AmountCents, &p.Reason, &p.Status,
		&p.Notes, &p.PaidAmountCents, &p.PaidAt, &p.CreatedOn, &p.UpdatedOn)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *penaltyRepository) Accrue(ctx context.Context, p *domain.Penalty) error {
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		return accruePenaltyTx(ctx, tx, p)
	})
}

// accruePenaltyTx inserts a penalty row and moves the booking cache
// inside the caller's transaction. Ride settlement and booking
// cancellation reuse it so their penalties commit or roll back with the
// state transition that caused them.
func accruePenaltyTx(ctx context.Context, tx *sql.Tx, p *domain.Penalty) error {
	query := `INSERT INTO penalties (booking_id, customer_id, vehicle_id, amount_cents, reason, status, notes, created_on, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW()) RETURNING id`
	err := tx.QueryRowContext(ctx, query, p.BookingID, p.CustomerID, p.VehicleID,
		p.AmountCents, p.Reason, p.Status, p.Notes).Scan(&p.ID)
	if err != nil {
		return err
	}

	// The booking cache moves with the row or not at all.
	res, err := tx.ExecContext(ctx,
		`UPDATE bookings SET penalty_amount_cents = penalty_amount_cents + $2,
		 has_penalty = TRUE, updated_on = NOW()
		 WHERE id = $1`, p.BookingID, p.AmountCents)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NotFoundf("booking %d not found", p.BookingID)
	}
	return nil
}

func (r *penaltyRepository) GetByID(ctx context.Context, id int32) (*domain.Penalty, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+penaltyColumns+` FROM penalties WHERE id = $1`, id)
	p, err := scanPenalty(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NotFoundf("penalty %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *penaltyRepository) ListByBooking(ctx context.Context, bookingID int32) ([]domain.Penalty, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+penaltyColumns+` FROM penalties WHERE booking_id = $1 ORDER BY created_on`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPenalties(rows)
}

func (r *penaltyRepository) ListByCustomer(ctx context.Context, customerID int32, page, pageSize int32) ([]domain.Penalty, int32, error) {
	offset := (page - 1) * pageSize

	var count int32
	if err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM penalties WHERE customer_id = $1`, customerID).Scan(&count); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+penaltyColumns+` FROM penalties WHERE customer_id = $1
		 ORDER BY created_on DESC LIMIT $2 OFFSET $3`, customerID, pageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	penalties, err := collectPenalties(rows)
	return penalties, count, err
}

func collectPenalties(rows *sql.Rows) ([]domain.Penalty, error) {
	var penalties []domain.Penalty
	for rows.Next() {
		p, err := scanPenalty(rows)
		if err != nil {
			return nil, err
		}
		penalties = append(penalties, *p)
	}
	return penalties, rows.Err()
}

func (r *penaltyRepository) Waive(ctx context.Context, id int32) error {
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		var bookingID, amount int32
		err := tx.QueryRowContext(ctx,
			`UPDATE penalties SET status = 'WAIVED', updated_on = NOW()
			 WHERE id = $1 AND status <> 'WAIVED'
			 RETURNING booking_id, amount_cents`, id).Scan(&bookingID, &amount)
		if errors.Is(err, sql.ErrNoRows) {
			if exists, checkErr := r.exists(ctx, tx, id); checkErr != nil {
				return checkErr
			} else if !exists {
				return domain.NotFoundf("penalty %d not found", id)
			}
			return domain.Conflictf("penalty %d is already waived", id)
		}
		if err != nil {
			return err
		}
		return decrementBookingPenalty(ctx, tx, bookingID, amount)
	})
}

func (r *penaltyRepository) MarkPaid(ctx context.Context, id int32, paidAmountCents int32, paidAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE penalties SET status = 'PAID', paid_amount_cents = $2, paid_at = $3, updated_on = NOW()
		 WHERE id = $1 AND status IN ('PENDING', 'DISPUTED')`, id, paidAmountCents, paidAt)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Conflictf("penalty %d cannot be marked paid", id)
	}
	return nil
}

func (r *penaltyRepository) Remove(ctx context.Context, id int32) error {
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		var bookingID, amount int32
		var status domain.PenaltyStatus
		err := tx.QueryRowContext(ctx,
			`DELETE FROM penalties WHERE id = $1
			 RETURNING booking_id, amount_cents, status`, id).Scan(&bookingID, &amount, &status)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NotFoundf("penalty %d not found", id)
		}
		if err != nil {
			return err
		}

		// A waived penalty already left the cache; only live amounts
		// reverse it.
		if status == domain.PenaltyStatusWaived {
			return nil
		}
		return decrementBookingPenalty(ctx, tx, bookingID, amount)
	})
}

func decrementBookingPenalty(ctx context.Context, tx *sql.Tx, bookingID, amount int32) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE bookings SET
		 penalty_amount_cents = GREATEST(0, penalty_amount_cents - $2),
		 has_penalty = EXISTS (SELECT 1 FROM penalties WHERE booking_id = $1 AND status <> 'WAIVED'),
		 updated_on = NOW()
		 WHERE id = $1`, bookingID, amount)
	return err
}

func (r *penaltyRepository) exists(ctx context.Context, tx *sql.Tx, id int32) (bool, error) {
	var found bool
	err := tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM penalties WHERE id = $1)`, id).Scan(&found)
	return found, err
}

func (r *penaltyRepository) Statistics(ctx context.Context) (*domain.PenaltyStatistics, error) {
	stats := &domain.PenaltyStatistics{}

	// Normalized ledger rollup. The inner join drops penalties whose
	// customer no longer resolves in the directory.
	rows, err := r.db.QueryContext(ctx, `
		SELECT p.customer_id, pr.name, count(*), COALESCE(SUM(p.amount_cents), 0)
		FROM penalties p
		JOIN principals pr ON pr.id = p.customer_id
		WHERE p.status <> 'WAIVED'
		GROUP BY p.customer_id, pr.name
		ORDER BY SUM(p.amount_cents) DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var rollup domain.PenaltyCustomerRollup
		if err := rows.Scan(&rollup.CustomerID, &rollup.CustomerName, &rollup.Count, &rollup.AmountCents); err != nil {
			return nil, err
		}
		stats.ByCustomer = append(stats.ByCustomer, rollup)
		stats.TotalCount += rollup.Count
		stats.TotalAmountCents += rollup.AmountCents
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Legacy fallback: bookings flagged before the normalized ledger
	// existed carry only the flat fields. Each counts as one penalty.
	legacy, err := r.db.QueryContext(ctx, `
		SELECT b.customer_id, pr.name, count(*), COALESCE(SUM(b.penalty_amount_cents), 0)
		FROM bookings b
		JOIN principals pr ON pr.id = b.customer_id
		WHERE b.has_penalty AND b.penalty_amount_cents > 0
		  AND NOT EXISTS (SELECT 1 FROM penalties p WHERE p.booking_id = b.id)
		GROUP BY b.customer_id, pr.name`)
	if err != nil {
		return nil, err
	}
	defer legacy.Close()

	for legacy.Next() {
		var rollup domain.PenaltyCustomerRollup
		if err := legacy.Scan(&rollup.CustomerID, &rollup.CustomerName, &rollup.Count, &rollup.AmountCents); err != nil {
			return nil, err
		}
		stats.TotalCount += rollup.Count
		stats.TotalAmountCents += rollup.AmountCents

		merged := false
		for i := range stats.ByCustomer {
			if stats.ByCustomer[i].CustomerID == rollup.CustomerID {
				stats.ByCustomer[i].Count += rollup.Count
				stats.ByCustomer[i].AmountCents += rollup.AmountCents
				merged = true
				break
			}
		}
		if !merged {
			stats.ByCustomer = append(stats.ByCustomer, rollup)
		}
	}
	return stats, legacy.Err()
}
