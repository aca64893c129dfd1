package domain

import "time"

type RideStatus string

const (
	RideStatusActive    RideStatus = "ACTIVE"
	RideStatusCompleted RideStatus = "COMPLETED"
	RideStatusCancelled RideStatus = "CANCELLED"
)

// Ride is the in-motion sub-session of an approved booking. Exactly one
// ride exists per booking and at most one may be ACTIVE.
type Ride struct {
	ID         int32      `json:"id"`
	BookingID  int32      `json:"booking_id"`
	VehicleID  int32      `json:"vehicle_id"`
	CustomerID int32      `json:"customer_id"`
	StartTime  time.Time  `json:"start_time"`
	EndTime    *time.Time `json:"end_time,omitempty"`

	StartLongitude float64  `json:"start_longitude"`
	StartLatitude  float64  `json:"start_latitude"`
	EndLongitude   *float64 `json:"end_longitude,omitempty"`
	EndLatitude    *float64 `json:"end_latitude,omitempty"`

	DistanceKm float64    `json:"distance_km"`
	CostCents  int32      `json:"cost_cents"`
	Status     RideStatus `json:"status"`

	Rating   int32  `json:"rating"` // 1-5, zero until rated
	Feedback string `json:"feedback,omitempty"`

	// Geofence debounce state, evaluated on every location update against
	// an injected clock. OutOfZoneSince is set when the vehicle leaves the
	// operating zone and cleared on re-entry; ZonePenalized marks that the
	// current continuous episode already accrued its penalty.
	OutOfZoneSince *time.Time `json:"out_of_zone_since,omitempty"`
	ZonePenalized  bool       `json:"zone_penalized"`

	// Audited staff force-close. Set only when a staff actor bypassed the
	// return geofence gate.
	OverrideID *string    `json:"override_id,omitempty"`
	OverrideBy *int32     `json:"override_by,omitempty"`
	OverrideAt *time.Time `json:"override_at,omitempty"`

	CreatedOn string `json:"created_on"`
	UpdatedOn string `json:"updated_on"`
}

// RideIssue is an ad-hoc problem report attached to a ride. Reporting
// one never changes the ride status.
type RideIssue struct {
	ID        int32  `json:"id"`
	RideID    int32  `json:"ride_id"`
	Issue     string `json:"issue"`
	Details   string `json:"details"`
	CreatedOn string `json:"created_on"`
}
