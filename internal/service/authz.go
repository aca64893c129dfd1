package service

import "evrental-backend/internal/domain"

// Capability predicates. All role/ownership branching lives here so the
// handlers and services stay free of scattered role checks and the rules
// are testable on their own.

func canManageFleet(actor domain.Actor) bool {
	return actor.IsStaff()
}

func canApproveBooking(actor domain.Actor) bool {
	return actor.IsStaff()
}

// canCancelBooking: the owning customer or staff, and only while the
// booking has not started moving. An ongoing booking is closed through
// the ride path, never cancelled directly.
func canCancelBooking(actor domain.Actor, b *domain.Booking) bool {
	if b.Status != domain.BookingStatusPending && b.Status != domain.BookingStatusApproved {
		return false
	}
	return actor.IsStaff() || actor.ID == b.CustomerID
}

func canViewBooking(actor domain.Actor, b *domain.Booking) bool {
	return actor.IsStaff() || actor.ID == b.CustomerID
}

func canReportDamage(actor domain.Actor) bool {
	return actor.IsStaff()
}

func canStartRide(actor domain.Actor, b *domain.Booking) bool {
	return actor.ID == b.CustomerID || actor.IsStaff()
}

func canEndRide(actor domain.Actor, r *domain.Ride) bool {
	return actor.ID == r.CustomerID || actor.IsStaff()
}

// canOverrideGeofence gates the audited force-close that bypasses the
// return-zone check.
func canOverrideGeofence(actor domain.Actor) bool {
	return actor.IsStaff()
}

func canRateRide(actor domain.Actor, r *domain.Ride) bool {
	return actor.ID == r.CustomerID
}

// Penalty settlement (waive, mark paid, remove) is admin-only.
func canSettlePenalty(actor domain.Actor) bool {
	return actor.Role == domain.RoleAdmin
}

func canViewPenalty(actor domain.Actor, p *domain.Penalty) bool {
	return actor.IsStaff() || actor.ID == p.CustomerID
}
