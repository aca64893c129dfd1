package postgres_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"evrental-backend/internal/domain"
	"evrental-backend/internal/repository/postgres"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func bookingRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "customer_id", "vehicle_id", "start_station_id", "end_station_id",
		"start_time", "end_time", "actual_end_time", "status", "total_cost_cents", "payment_status",
		"base_rate_cents", "included_km", "extra_km_rate_cents",
		"has_penalty", "penalty_amount_cents",
		"has_damage", "damage_description", "damage_photos", "damage_estimate_cents",
		"last_longitude", "last_latitude", "last_seen_at", "created_on", "updated_on",
	})
}

func TestBookingRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewBookingRepository(db)
	ctx := context.Background()

	start := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(3 * time.Hour)

	t.Run("Success", func(t *testing.T) {
		b := &domain.Booking{
			CustomerID:       3,
			VehicleID:        7,
			StartStationID:   1,
			EndStationID:     2,
			StartTime:        start,
			EndTime:          end,
			Status:           domain.BookingStatusPending,
			TotalCostCents:   2400,
			PaymentStatus:    domain.PaymentStatusUnpaid,
			BaseRateCents:    500,
			IncludedKm:       10,
			ExtraKmRateCents: 20,
		}

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id FROM bookings").
			WithArgs(b.CustomerID).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery("UPDATE vehicles SET status = 'BOOKED'").
			WithArgs(b.VehicleID).
			WillReturnRows(sqlmock.NewRows([]string{"station_id"}).AddRow(1))
		mock.ExpectExec("UPDATE stations SET available_count = available_count - 1").
			WithArgs(int32(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("INSERT INTO bookings").
			WithArgs(b.CustomerID, b.VehicleID, b.StartStationID, b.EndStationID,
				b.StartTime, b.EndTime, b.Status, b.TotalCostCents, b.PaymentStatus,
				b.BaseRateCents, b.IncludedKm, b.ExtraKmRateCents).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
		mock.ExpectCommit()

		err := repo.Create(ctx, b)
		assert.NoError(t, err)
		assert.Equal(t, int32(11), b.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("OpenBookingConflict", func(t *testing.T) {
		b := &domain.Booking{CustomerID: 3, VehicleID: 7}

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id FROM bookings").
			WithArgs(b.CustomerID).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(9))
		mock.ExpectRollback()

		err := repo.Create(ctx, b)
		assert.True(t, domain.IsConflict(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("VehicleNotAvailable", func(t *testing.T) {
		b := &domain.Booking{CustomerID: 3, VehicleID: 7}

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id FROM bookings").
			WithArgs(b.CustomerID).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery("UPDATE vehicles SET status = 'BOOKED'").
			WithArgs(b.VehicleID).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery("SELECT status FROM vehicles").
			WithArgs(b.VehicleID).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("MAINTENANCE"))
		mock.ExpectRollback()

		err := repo.Create(ctx, b)
		assert.True(t, domain.IsConflict(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBookingRepository_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewBookingRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		now := time.Now()
		rows := bookingRows().AddRow(
			1, 3, 7, 1, 2,
			now, now.Add(3*time.Hour), nil, "APPROVED", 2400, "UNPAID",
			500, 10.0, 20,
			false, 0,
			false, "", []byte("{}"), 0,
			0.0, 0.0, nil, now, now)

		mock.ExpectQuery("SELECT (.+) FROM bookings WHERE id = \\$1").
			WithArgs(int32(1)).
			WillReturnRows(rows)

		b, err := repo.GetByID(ctx, 1)
		assert.NoError(t, err)
		assert.NotNil(t, b)
		assert.Equal(t, domain.BookingStatusApproved, b.Status)
		assert.Equal(t, int32(500), b.BaseRateCents)
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM bookings WHERE id = \\$1").
			WithArgs(int32(99)).
			WillReturnError(sql.ErrNoRows)

		_, err := repo.GetByID(ctx, 99)
		assert.True(t, domain.IsNotFound(err))
	})
}

func TestBookingRepository_SetStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewBookingRepository(db)
	ctx := context.Background()

	t.Run("ApproveKeepsVehicleReserved", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("UPDATE bookings SET status").
			WithArgs(int32(1), domain.BookingStatusPending, domain.BookingStatusApproved).
			WillReturnRows(sqlmock.NewRows([]string{"vehicle_id"}).AddRow(7))
		mock.ExpectCommit()

		err := repo.SetStatus(ctx, 1, domain.BookingStatusPending, domain.BookingStatusApproved, false)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("DeclineReleasesVehicle", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("UPDATE bookings SET status").
			WithArgs(int32(1), domain.BookingStatusPending, domain.BookingStatusDeclined).
			WillReturnRows(sqlmock.NewRows([]string{"vehicle_id"}).AddRow(7))
		mock.ExpectQuery("UPDATE vehicles SET status = 'AVAILABLE'").
			WithArgs(int32(7)).
			WillReturnRows(sqlmock.NewRows([]string{"station_id"}).AddRow(1))
		mock.ExpectExec("UPDATE stations SET available_count = available_count \\+ 1").
			WithArgs(int32(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.SetStatus(ctx, 1, domain.BookingStatusPending, domain.BookingStatusDeclined, true)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("WrongStateConflict", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("UPDATE bookings SET status").
			WithArgs(int32(1), domain.BookingStatusPending, domain.BookingStatusApproved).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery("SELECT status FROM bookings").
			WithArgs(int32(1)).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("CANCELLED"))
		mock.ExpectRollback()

		err := repo.SetStatus(ctx, 1, domain.BookingStatusPending, domain.BookingStatusApproved, false)
		assert.True(t, domain.IsConflict(err))
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("UPDATE bookings SET status").
			WithArgs(int32(42), domain.BookingStatusPending, domain.BookingStatusApproved).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery("SELECT status FROM bookings").
			WithArgs(int32(42)).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		err := repo.SetStatus(ctx, 42, domain.BookingStatusPending, domain.BookingStatusApproved, false)
		assert.True(t, domain.IsNotFound(err))
	})
}

func TestBookingRepository_Cancel(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewBookingRepository(db)
	ctx := context.Background()

	t.Run("FeeCommitsWithTheCancellation", func(t *testing.T) {
		fee := &domain.Penalty{
			BookingID:   1,
			CustomerID:  3,
			VehicleID:   7,
			AmountCents: 1500,
			Reason:      domain.PenaltyReasonCancellation,
			Status:      domain.PenaltyStatusPending,
			Notes:       "approved booking cancelled by customer",
		}

		mock.ExpectBegin()
		mock.ExpectQuery("UPDATE bookings SET status = 'CANCELLED'").
			WithArgs(int32(1), domain.BookingStatusApproved).
			WillReturnRows(sqlmock.NewRows([]string{"vehicle_id"}).AddRow(7))
		mock.ExpectQuery("UPDATE vehicles SET status = 'AVAILABLE'").
			WithArgs(int32(7)).
			WillReturnRows(sqlmock.NewRows([]string{"station_id"}).AddRow(1))
		mock.ExpectExec("UPDATE stations SET available_count = available_count \\+ 1").
			WithArgs(int32(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("INSERT INTO penalties").
			WithArgs(fee.BookingID, fee.CustomerID, fee.VehicleID, fee.AmountCents, fee.Reason, fee.Status, fee.Notes).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(21))
		mock.ExpectExec("UPDATE bookings SET penalty_amount_cents = penalty_amount_cents \\+").
			WithArgs(fee.BookingID, fee.AmountCents).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.Cancel(ctx, 1, domain.BookingStatusApproved, fee)
		assert.NoError(t, err)
		assert.Equal(t, int32(21), fee.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("FreeCancellation", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("UPDATE bookings SET status = 'CANCELLED'").
			WithArgs(int32(1), domain.BookingStatusPending).
			WillReturnRows(sqlmock.NewRows([]string{"vehicle_id"}).AddRow(7))
		mock.ExpectQuery("UPDATE vehicles SET status = 'AVAILABLE'").
			WithArgs(int32(7)).
			WillReturnRows(sqlmock.NewRows([]string{"station_id"}).AddRow(1))
		mock.ExpectExec("UPDATE stations SET available_count = available_count \\+ 1").
			WithArgs(int32(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := repo.Cancel(ctx, 1, domain.BookingStatusPending, nil)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("FailedFeeRollsTheCancellationBack", func(t *testing.T) {
		fee := &domain.Penalty{
			BookingID: 1, CustomerID: 3, VehicleID: 7,
			AmountCents: 1500,
			Reason:      domain.PenaltyReasonCancellation,
			Status:      domain.PenaltyStatusPending,
		}

		mock.ExpectBegin()
		mock.ExpectQuery("UPDATE bookings SET status = 'CANCELLED'").
			WithArgs(int32(1), domain.BookingStatusApproved).
			WillReturnRows(sqlmock.NewRows([]string{"vehicle_id"}).AddRow(7))
		mock.ExpectQuery("UPDATE vehicles SET status = 'AVAILABLE'").
			WithArgs(int32(7)).
			WillReturnRows(sqlmock.NewRows([]string{"station_id"}).AddRow(1))
		mock.ExpectExec("UPDATE stations SET available_count = available_count \\+ 1").
			WithArgs(int32(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("INSERT INTO penalties").
			WillReturnError(sql.ErrConnDone)
		mock.ExpectRollback()

		err := repo.Cancel(ctx, 1, domain.BookingStatusApproved, fee)
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("WrongStateConflict", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("UPDATE bookings SET status = 'CANCELLED'").
			WithArgs(int32(1), domain.BookingStatusApproved).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery("SELECT status FROM bookings").
			WithArgs(int32(1)).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("CANCELLED"))
		mock.ExpectRollback()

		err := repo.Cancel(ctx, 1, domain.BookingStatusApproved, nil)
		assert.True(t, domain.IsConflict(err))
	})
}

func TestBookingRepository_SetDamage(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("error opening mock database: %v", err)
	}
	defer db.Close()

	repo := postgres.NewBookingRepository(db)
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectExec("UPDATE bookings SET has_damage = TRUE").
			WithArgs(int32(1), "scratched door", sqlmock.AnyArg(), int32(4000)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.SetDamage(ctx, 1, "scratched door", []string{"photos/a.jpg"}, 4000)
		assert.NoError(t, err)
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectExec("UPDATE bookings SET has_damage = TRUE").
			WithArgs(int32(99), "dent", sqlmock.AnyArg(), int32(0)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.SetDamage(ctx, 99, "dent", nil, 0)
		assert.True(t, domain.IsNotFound(err))
	})
}
