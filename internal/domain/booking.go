package domain

import (
	"math"
	"time"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusApproved  BookingStatus = "APPROVED"
	BookingStatusDeclined  BookingStatus = "DECLINED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
	BookingStatusOngoing   BookingStatus = "ONGOING"
	BookingStatusCompleted BookingStatus = "COMPLETED"
	BookingStatusPenalized BookingStatus = "PENALIZED"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "UNPAID"
	PaymentStatusPaid   PaymentStatus = "PAID"
)

// NonTerminalBookingStatuses are the states in which a booking still
// holds its vehicle. At most one booking per customer may be in any of
// these states at a time.
var NonTerminalBookingStatuses = []BookingStatus{
	BookingStatusPending,
	BookingStatusApproved,
	BookingStatusOngoing,
}

func (s BookingStatus) Terminal() bool {
	switch s {
	case BookingStatusPending, BookingStatusApproved, BookingStatusOngoing:
		return false
	}
	return true
}

type Booking struct {
	ID             int32      `json:"id"`
	CustomerID     int32      `json:"customer_id"`
	VehicleID      int32      `json:"vehicle_id"`
	StartStationID int32      `json:"start_station_id"`
	EndStationID   int32      `json:"end_station_id"`
	StartTime      time.Time  `json:"start_time"`
	EndTime        time.Time  `json:"end_time"` // planned return
	ActualEndTime  *time.Time `json:"actual_end_time,omitempty"`

	Status         BookingStatus `json:"status"`
	TotalCostCents int32         `json:"total_cost_cents"`
	PaymentStatus  PaymentStatus `json:"payment_status"`

	// Rate snapshot copied from the vehicle at creation time. Settlement
	// reads these, never the vehicle's live pricing.
	BaseRateCents    int32   `json:"base_rate_cents"`
	IncludedKm       float64 `json:"included_km"`
	ExtraKmRateCents int32   `json:"extra_km_rate_cents"`

	// Penalty cache. The penalties table is the source of truth; these
	// fields are kept in sync by every ledger mutation and serve legacy
	// reads that predate the normalized ledger.
	HasPenalty         bool  `json:"has_penalty"`
	PenaltyAmountCents int32 `json:"penalty_amount_cents"`

	HasDamage           bool     `json:"has_damage"`
	DamageDescription   string   `json:"damage_description,omitempty"`
	DamagePhotos        []string `json:"damage_photos,omitempty"` // opaque storage URLs
	DamageEstimateCents int32    `json:"damage_estimate_cents"`

	LastLongitude float64    `json:"last_longitude"`
	LastLatitude  float64    `json:"last_latitude"`
	LastSeenAt    *time.Time `json:"last_seen_at,omitempty"`

	CreatedOn string `json:"created_on"`
	UpdatedOn string `json:"updated_on"`
}

// IsLateReturn is derived from the timestamps, never stored. It is only
// meaningful once the actual end time is set.
func (b *Booking) IsLateReturn() bool {
	return b.ActualEndTime != nil && b.ActualEndTime.After(b.EndTime)
}

// LateMinutes returns the overrun rounded up to whole minutes, zero when
// the booking is not late.
func (b *Booking) LateMinutes() int32 {
	if !b.IsLateReturn() {
		return 0
	}
	over := b.ActualEndTime.Sub(b.EndTime)
	return int32(math.Ceil(over.Minutes()))
}
