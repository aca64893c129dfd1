package domain

import "evrental-backend/internal/geo"

// Station is a fixed pickup/return location. Its geofence is either an
// explicit polygon ring or a circle (center + radius) approximated to a
// polygon before containment tests.
//
// AvailableCount is a cache, adjusted inside the same transaction as the
// vehicle status change it reflects. It is reconstructible by counting
// roster vehicles with status AVAILABLE and a sweep job repairs drift.
type Station struct {
	ID             int32        `json:"id"`
	Name           string       `json:"name"`
	Longitude      float64      `json:"longitude"`
	Latitude       float64      `json:"latitude"`
	RadiusM        float64      `json:"radius_m"`
	Polygon        [][2]float64 `json:"polygon,omitempty"` // closed ring of [lon, lat], optional
	AvailableCount int32        `json:"available_count"`
	CreatedOn      string       `json:"created_on"`
}

const fenceSegments = 32

// Geofence returns the ring used for return containment tests: the
// explicit polygon when one is configured, otherwise the radius circle
// approximated to a polygon.
func (s *Station) Geofence() []geo.Point {
	if len(s.Polygon) >= 3 {
		return s.Polygon
	}
	return geo.CircleToPolygon(s.Longitude, s.Latitude, s.RadiusM, fenceSegments)
}
