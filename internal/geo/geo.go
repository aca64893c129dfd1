// Package geo provides the distance and containment primitives used by
// the ride session geofence gate and the zone debounce logic.
package geo

import "math"

const earthRadiusKm = 6371.0088

// minCosLat caps the longitude stretch of CircleToPolygon at roughly
// 89.4 degrees of latitude; beyond that cos(lat) collapses toward zero.
const minCosLat = 0.01

// Distance returns the haversine great-circle distance in kilometers
// between two points given as lat/lon in degrees.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// Point is a [longitude, latitude] pair, matching the persisted
// coordinate order.
type Point = [2]float64

// PointInPolygon reports whether p lies inside the closed ring using a
// ray-casting test. The ring is treated as closed whether or not the
// caller repeated the first vertex at the end. Rings with fewer than 3
// distinct vertices contain nothing.
func PointInPolygon(p Point, ring []Point) bool {
	ring = dropClosingVertex(ring)
	if countDistinct(ring) < 3 {
		return false
	}

	inside := false
	j := len(ring) - 1
	for i := 0; i < len(ring); i++ {
		xi, yi := ring[i][0], ring[i][1]
		xj, yj := ring[j][0], ring[j][1]
		if (yi > p[1]) != (yj > p[1]) &&
			p[0] < (xj-xi)*(p[1]-yi)/(yj-yi)+xi {
			inside = !inside
		}
		j = i
	}
	return inside
}

// CircleToPolygon approximates a circular geofence centered at
// (lon, lat) as a regular n-gon. The longitude offset is corrected by
// cos(latitude) so the fence stays circular away from the equator. The
// correction is clamped near the poles, where degrees of longitude
// degenerate, to keep the ring's coordinates finite.
func CircleToPolygon(lon, lat, radiusM float64, n int) []Point {
	if n < 3 {
		n = 3
	}
	radiusKm := radiusM / 1000
	// Degrees per kilometer along a meridian.
	degPerKm := 1 / (earthRadiusKm * math.Pi / 180)
	cosLat := math.Cos(lat * math.Pi / 180)
	if cosLat < minCosLat {
		cosLat = minCosLat
	}

	ring := make([]Point, 0, n+1)
	for i := 0; i < n; i++ {
		theta := 2 * math.Pi * float64(i) / float64(n)
		dLat := radiusKm * degPerKm * math.Sin(theta)
		dLon := radiusKm * degPerKm * math.Cos(theta) / cosLat
		ring = append(ring, Point{lon + dLon, lat + dLat})
	}
	ring = append(ring, ring[0])
	return ring
}

func dropClosingVertex(ring []Point) []Point {
	if len(ring) > 1 && ring[0] == ring[len(ring)-1] {
		return ring[:len(ring)-1]
	}
	return ring
}

func countDistinct(ring []Point) int {
	seen := make(map[Point]struct{}, len(ring))
	for _, v := range ring {
		seen[v] = struct{}{}
	}
	return len(seen)
}
