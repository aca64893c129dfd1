// Package pricing holds the settlement formulas: the ride cost formula
// applied to a booking's rate snapshot and the reason-specific penalty
// amount policies. The ledger itself is reason-agnostic; callers compute
// amounts here before accruing.
package pricing

import (
	"math"
	"time"
)

type DamageSeverity string

const (
	DamageSeverityLow    DamageSeverity = "LOW"
	DamageSeverityMedium DamageSeverity = "MEDIUM"
	DamageSeverityHigh   DamageSeverity = "HIGH"
)

// RideCost computes the final ride cost from the booking's rate
// snapshot: base rate plus the per-km rate for every kilometer beyond
// the included allowance. Fractional kilometers are charged pro rata and
// the result is rounded to whole cents.
func RideCost(baseRateCents int32, includedKm float64, extraKmRateCents int32, distanceKm float64) int32 {
	extra := distanceKm - includedKm
	if extra < 0 {
		extra = 0
	}
	return baseRateCents + int32(math.Round(extra*float64(extraKmRateCents)))
}

// DamagePenalty scales the base damage charge by reported severity.
func DamagePenalty(baseCents int32, severity DamageSeverity) int32 {
	switch severity {
	case DamageSeverityLow:
		return baseCents / 2
	case DamageSeverityHigh:
		return baseCents * 2
	default:
		return baseCents
	}
}

// LateReturnPenalty charges a flat base plus a per-minute rate for the
// overrun.
func LateReturnPenalty(baseCents, perMinuteCents, lateMinutes int32) int32 {
	if lateMinutes <= 0 {
		return 0
	}
	return baseCents + perMinuteCents*lateMinutes
}

// ImproperParkingPenalty scales with how far from the station the
// vehicle was left: beyond 100 m costs 1.5x, beyond 500 m costs 2x.
func ImproperParkingPenalty(baseCents int32, distanceM float64) int32 {
	switch {
	case distanceM > 500:
		return baseCents * 2
	case distanceM > 100:
		return baseCents * 3 / 2
	default:
		return baseCents
	}
}

// GeofencePenalty charges base * (durationMultiplier + distanceMultiplier)
// for a continuous out-of-zone episode. The duration multiplier starts
// at 1 and grows by 0.5 per full 10 minutes beyond the debounce
// threshold, capped at 3; the distance multiplier adds 0.5 beyond 100 m
// outside the zone and 1 beyond 500 m.
func GeofencePenalty(baseCents int32, outOfZone time.Duration, threshold time.Duration, distanceM float64) int32 {
	durMult := 1.0
	if beyond := outOfZone - threshold; beyond > 0 {
		durMult += 0.5 * math.Floor(beyond.Minutes()/10)
		if durMult > 3 {
			durMult = 3
		}
	}

	distMult := 0.0
	switch {
	case distanceM > 500:
		distMult = 1.0
	case distanceM > 100:
		distMult = 0.5
	}

	return int32(math.Round(float64(baseCents) * (durMult + distMult)))
}
