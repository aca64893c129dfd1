package domain

import "time"

type VehicleStatus string

const (
	VehicleStatusAvailable   VehicleStatus = "AVAILABLE"
	VehicleStatusBooked      VehicleStatus = "BOOKED"
	VehicleStatusInUse       VehicleStatus = "IN_USE"
	VehicleStatusCharging    VehicleStatus = "CHARGING"
	VehicleStatusMaintenance VehicleStatus = "MAINTENANCE"
)

// Vehicle is a rentable EV homed at a station. Pricing fields are the
// live rates; bookings copy them as a snapshot at creation time so a
// later rate change never alters an in-flight settlement.
type Vehicle struct {
	ID           int32         `json:"id"`
	StationID    int32         `json:"station_id"`
	Status       VehicleStatus `json:"status"`
	BatteryLevel int32         `json:"battery_level"` // 0-100
	Longitude    float64       `json:"longitude"`
	Latitude     float64       `json:"latitude"`
	LocatedAt    *time.Time    `json:"located_at,omitempty"`

	PricePerHourCents int32   `json:"price_per_hour_cents"`
	BaseRateCents     int32   `json:"base_rate_cents"`
	IncludedKm        float64 `json:"included_km"`
	ExtraKmRateCents  int32   `json:"extra_km_rate_cents"`

	Rating    float64 `json:"rating"` // running average over rated rides
	CreatedOn string  `json:"created_on"`
	UpdatedOn string  `json:"updated_on"`
}

// MaintenanceRecord is one entry in a vehicle's maintenance history.
// Recording one forces the vehicle out of the rentable pool until an
// explicit clear action.
type MaintenanceRecord struct {
	ID          int32  `json:"id"`
	VehicleID   int32  `json:"vehicle_id"`
	Description string `json:"description"`
	CostCents   int32  `json:"cost_cents"`
	RecordedBy  int32  `json:"recorded_by"`
	CreatedOn   string `json:"created_on"`
}
