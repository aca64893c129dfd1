package jobs

import (
	"context"
	"fmt"
	"time"

	"evrental-backend/internal/domain"
	"evrental-backend/internal/logger"
)

// MarkOverdueBookings flags ONGOING bookings whose ride is still open
// past the planned end time. The booking stays ONGOING (settlement
// happens when the ride ends), this job only drives the reminders and
// the staff dashboard.
func (jr *JobRunner) MarkOverdueBookings() {
	jr.runWithRecovery("MarkOverdueBookings", func() {
		ctx := context.Background()

		query := `
			SELECT id, customer_id, vehicle_id, end_time
			FROM bookings
			WHERE status = 'ONGOING'
			  AND end_time < $1`

		rows, err := jr.db.QueryContext(ctx, query, time.Now())
		if err != nil {
			logger.Error("Failed to query overdue bookings", "error", err)
			return
		}
		defer rows.Close()

		count := 0
		for rows.Next() {
			var (
				id, customerID, vehicleID int32
				endTime                   time.Time
			)
			if err := rows.Scan(&id, &customerID, &vehicleID, &endTime); err != nil {
				logger.Error("Failed to scan overdue booking", "error", err)
				continue
			}
			count++

			jr.services.Notifications.NotifyStaff(ctx, domain.NotificationTypeWarning,
				"Overdue booking",
				fmt.Sprintf("Booking %d (vehicle %d) is past its planned return time", id, vehicleID),
				fmt.Sprintf("/bookings/%d", id))

			logger.Debug("Overdue booking flagged",
				"booking_id", id,
				"customer_id", customerID,
				"vehicle_id", vehicleID,
				"end_time", endTime)
		}
		if err := rows.Err(); err != nil {
			logger.Error("Error iterating overdue bookings", "error", err)
			return
		}

		logger.Info("Flagged overdue bookings", "count", count)
	})
}

// SendReturnReminders notifies customers whose planned return time is
// approaching within the next half hour.
func (jr *JobRunner) SendReturnReminders() {
	jr.runWithRecovery("SendReturnReminders", func() {
		ctx := context.Background()

		query := `
			SELECT id, customer_id, end_time
			FROM bookings
			WHERE status = 'ONGOING'
			  AND end_time BETWEEN $1 AND $2`

		now := time.Now()
		rows, err := jr.db.QueryContext(ctx, query, now, now.Add(30*time.Minute))
		if err != nil {
			logger.Error("Failed to query upcoming returns", "error", err)
			return
		}
		defer rows.Close()

		count := 0
		for rows.Next() {
			var (
				id, customerID int32
				endTime        time.Time
			)
			if err := rows.Scan(&id, &customerID, &endTime); err != nil {
				logger.Error("Failed to scan upcoming return", "error", err)
				continue
			}
			count++

			jr.services.Notifications.Notify(ctx, customerID, domain.NotificationTypeInfo,
				"Return reminder",
				fmt.Sprintf("Booking %d is due back at %s", id, endTime.Format(time.RFC3339)),
				fmt.Sprintf("/bookings/%d", id))

			if customer, err := jr.store.PrincipalRepository.GetByID(ctx, customerID); err == nil {
				_ = jr.services.Mailer.Send(ctx, customer.Email, customer.Name,
					"Return reminder",
					fmt.Sprintf("Your booking %d is due back at %s. Late returns are charged per minute.", id, endTime.Format(time.RFC3339)))
			}
		}
		if err := rows.Err(); err != nil {
			logger.Error("Error iterating upcoming returns", "error", err)
			return
		}

		logger.Info("Sent return reminders", "count", count)
	})
}

// ReconcileStationCounts repairs drift in the cached per-station
// available vehicle counters.
func (jr *JobRunner) ReconcileStationCounts() {
	jr.runWithRecovery("ReconcileStationCounts", func() {
		ctx := context.Background()

		repaired, err := jr.store.StationRepository.RecomputeAvailableCounts(ctx)
		if err != nil {
			logger.Error("Failed to reconcile station counts", "error", err)
			return
		}
		if repaired > 0 {
			logger.Warn("Repaired drifted station counters", "stations", repaired)
		} else {
			logger.Info("Station counters consistent")
		}
	})
}
