package domain

import "time"

type PenaltyReason string

const (
	PenaltyReasonDamage            PenaltyReason = "DAMAGE"
	PenaltyReasonLateReturn        PenaltyReason = "LATE_RETURN"
	PenaltyReasonCancellation      PenaltyReason = "CANCELLATION"
	PenaltyReasonImproperParking   PenaltyReason = "IMPROPER_PARKING"
	PenaltyReasonGeofenceViolation PenaltyReason = "GEOFENCE_VIOLATION"
	PenaltyReasonOther             PenaltyReason = "OTHER"
)

type PenaltyStatus string

const (
	PenaltyStatusPending  PenaltyStatus = "PENDING"
	PenaltyStatusPaid     PenaltyStatus = "PAID"
	PenaltyStatusDisputed PenaltyStatus = "DISPUTED"
	PenaltyStatusWaived   PenaltyStatus = "WAIVED"
)

// Penalty is one row in the settlement ledger. The booking's
// penalty_amount_cents cache must always equal the sum of its non-waived
// penalty amounts; every mutation here updates both in one transaction.
type Penalty struct {
	ID          int32         `json:"id"`
	BookingID   int32         `json:"booking_id"`
	CustomerID  int32         `json:"customer_id"`
	VehicleID   int32         `json:"vehicle_id"`
	AmountCents int32         `json:"amount_cents"`
	Reason      PenaltyReason `json:"reason"`
	Status      PenaltyStatus `json:"status"`
	Notes       string        `json:"notes,omitempty"`

	PaidAmountCents int32      `json:"paid_amount_cents"`
	PaidAt          *time.Time `json:"paid_at,omitempty"`

	CreatedOn string `json:"created_on"`
	UpdatedOn string `json:"updated_on"`
}

// PenaltyCustomerRollup is one customer's aggregate in the statistics
// report.
type PenaltyCustomerRollup struct {
	CustomerID   int32  `json:"customer_id"`
	CustomerName string `json:"customer_name"`
	Count        int32  `json:"count"`
	AmountCents  int32  `json:"amount_cents"`
}

// PenaltyStatistics aggregates the ledger for reporting. Legacy bookings
// that carry a penalty flag without normalized rows are folded in as a
// single entry each.
type PenaltyStatistics struct {
	TotalCount       int32                   `json:"total_count"`
	TotalAmountCents int32                   `json:"total_amount_cents"`
	ByCustomer       []PenaltyCustomerRollup `json:"by_customer"`
}
