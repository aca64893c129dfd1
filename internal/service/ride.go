package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"evrental-backend/internal/domain"
	"evrental-backend/internal/geo"
	"evrental-backend/internal/logger"
	"evrental-backend/internal/pricing"
	"evrental-backend/internal/repository"
)

// ZonePolicy describes the operating zone the fleet may roam in and the
// debounce threshold before an excursion becomes a violation. The zone
// is a circle around a center, optionally tightened to an explicit
// polygon ring.
type ZonePolicy struct {
	CenterLongitude float64
	CenterLatitude  float64
	RadiusM         float64
	Polygon         []geo.Point
	Threshold       time.Duration
}

func (z ZonePolicy) Contains(lon, lat float64) bool {
	if len(z.Polygon) >= 3 {
		return geo.PointInPolygon(geo.Point{lon, lat}, z.Polygon)
	}
	return geo.Distance(z.CenterLatitude, z.CenterLongitude, lat, lon)*1000 <= z.RadiusM
}

// BeyondM is how far outside the zone a point sits, measured from the
// circular boundary. Used only to scale the violation penalty, so the
// circle approximation is fine even when a polygon gates containment.
func (z ZonePolicy) BeyondM(lon, lat float64) float64 {
	d := geo.Distance(z.CenterLatitude, z.CenterLongitude, lat, lon)*1000 - z.RadiusM
	if d < 0 {
		return 0
	}
	return d
}

type rideService struct {
	rideRepo    repository.RideRepository
	bookingRepo repository.BookingRepository
	vehicleRepo repository.VehicleRepository
	stationRepo repository.StationRepository
	noteSvc     NotificationService
	zone        ZonePolicy
	rates       PenaltyRates
	now         func() time.Time
}

func NewRideService(
	rideRepo repository.RideRepository,
	bookingRepo repository.BookingRepository,
	vehicleRepo repository.VehicleRepository,
	stationRepo repository.StationRepository,
	noteSvc NotificationService,
	zone ZonePolicy,
	rates PenaltyRates,
) RideService {
	return newRideService(rideRepo, bookingRepo, vehicleRepo, stationRepo, noteSvc, zone, rates, time.Now)
}

func newRideService(
	rideRepo repository.RideRepository,
	bookingRepo repository.BookingRepository,
	vehicleRepo repository.VehicleRepository,
	stationRepo repository.StationRepository,
	noteSvc NotificationService,
	zone ZonePolicy,
	rates PenaltyRates,
	now func() time.Time,
) *rideService {
	return &rideService{
		rideRepo:    rideRepo,
		bookingRepo: bookingRepo,
		vehicleRepo: vehicleRepo,
		stationRepo: stationRepo,
		noteSvc:     noteSvc,
		zone:        zone,
		rates:       rates,
		now:         now,
	}
}

func (s *rideService) Start(ctx context.Context, actor domain.Actor, bookingID int32, lon, lat float64) (*domain.Ride, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !canStartRide(actor, booking) {
		return nil, domain.Forbiddenf("not your booking")
	}
	if booking.Status != domain.BookingStatusApproved {
		return nil, domain.Conflictf("booking %d is %s, only approved bookings can start", bookingID, booking.Status)
	}

	ride := &domain.Ride{
		BookingID:      booking.ID,
		VehicleID:      booking.VehicleID,
		CustomerID:     booking.CustomerID,
		StartTime:      s.now(),
		StartLongitude: lon,
		StartLatitude:  lat,
		Status:         domain.RideStatusActive,
	}
	if err := s.rideRepo.Start(ctx, ride); err != nil {
		return nil, err
	}

	s.noteSvc.Notify(ctx, booking.CustomerID, domain.NotificationTypeInfo, "Ride started",
		fmt.Sprintf("Ride %d started on booking %d", ride.ID, booking.ID),
		fmt.Sprintf("/rides/%d", ride.ID))
	return ride, nil
}

func (s *rideService) Get(ctx context.Context, actor domain.Actor, id int32) (*domain.Ride, error) {
	ride, err := s.rideRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsStaff() && actor.ID != ride.CustomerID {
		return nil, domain.Forbiddenf("not your ride")
	}
	return ride, nil
}

// TrackLocation records one telemetry sample. Position writes are
// last-write-wins and faults are logged rather than returned; only the
// zone debounce can produce a lasting effect, the violation penalty.
func (s *rideService) TrackLocation(ctx context.Context, rideID int32, lon, lat float64, at time.Time) error {
	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return err
	}
	if ride.Status != domain.RideStatusActive {
		return domain.Conflictf("ride %d is %s, not tracking", rideID, ride.Status)
	}

	if err := s.vehicleRepo.UpdateLocation(ctx, ride.VehicleID, lon, lat, at); err != nil {
		logger.Warn("vehicle location update dropped", "vehicle_id", ride.VehicleID, "error", err)
	}
	if err := s.bookingRepo.UpdateLastLocation(ctx, ride.BookingID, lon, lat, at); err != nil {
		logger.Warn("booking location update dropped", "booking_id", ride.BookingID, "error", err)
	}

	return s.evaluateZone(ctx, ride, lon, lat, at)
}

// evaluateZone runs the debounce state machine. Leaving the zone only
// starts a timer; the penalty accrues once the excursion outlasts the
// threshold, and at most once per continuous episode. Re-entry resets
// everything.
func (s *rideService) evaluateZone(ctx context.Context, ride *domain.Ride, lon, lat float64, at time.Time) error {
	if s.zone.Contains(lon, lat) {
		if ride.OutOfZoneSince == nil {
			return nil
		}
		return s.rideRepo.UpdateZoneState(ctx, ride.ID, nil, false)
	}

	if ride.OutOfZoneSince == nil {
		since := at
		return s.rideRepo.UpdateZoneState(ctx, ride.ID, &since, false)
	}

	outFor := at.Sub(*ride.OutOfZoneSince)
	if ride.ZonePenalized || outFor < s.zone.Threshold {
		return nil
	}

	booking, err := s.bookingRepo.GetByID(ctx, ride.BookingID)
	if err != nil {
		return err
	}
	amount := pricing.GeofencePenalty(s.rates.GeofenceBaseCents, outFor, s.zone.Threshold, s.zone.BeyondM(lon, lat))
	penalty := &domain.Penalty{
		BookingID:   booking.ID,
		CustomerID:  booking.CustomerID,
		VehicleID:   booking.VehicleID,
		AmountCents: amount,
		Reason:      domain.PenaltyReasonGeofenceViolation,
		Status:      domain.PenaltyStatusPending,
		Notes:       fmt.Sprintf("outside operating zone for %s", outFor.Round(time.Second)),
	}
	// The penalized flag and the penalty row commit together; the repo's
	// flag CAS makes the episode accrue at most once even when samples
	// race or a crash lands between evaluations.
	applied, err := s.rideRepo.PenalizeZoneEpisode(ctx, ride.ID, penalty)
	if err != nil {
		return err
	}
	if !applied {
		return nil
	}

	s.noteSvc.Notify(ctx, booking.CustomerID, domain.NotificationTypeWarning, "Operating zone violation",
		fmt.Sprintf("Vehicle %d left the operating zone, a penalty of %d cents was charged", ride.VehicleID, amount),
		fmt.Sprintf("/rides/%d", ride.ID))
	s.noteSvc.NotifyStaff(ctx, domain.NotificationTypeWarning, "Operating zone violation",
		fmt.Sprintf("Ride %d (vehicle %d) exceeded the zone threshold", ride.ID, ride.VehicleID),
		fmt.Sprintf("/rides/%d", ride.ID))
	return nil
}

func (s *rideService) End(ctx context.Context, actor domain.Actor, rideID int32, lon, lat float64, override bool) (*RideReceipt, error) {
	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if !canEndRide(actor, ride) {
		return nil, domain.Forbiddenf("not your ride")
	}
	if ride.Status != domain.RideStatusActive {
		return nil, domain.Conflictf("ride %d is already %s", rideID, ride.Status)
	}

	booking, err := s.bookingRepo.GetByID(ctx, ride.BookingID)
	if err != nil {
		return nil, err
	}
	station, err := s.stationRepo.GetByID(ctx, booking.EndStationID)
	if err != nil {
		return nil, err
	}

	endTime := s.now()

	// Settlement penalties are collected here and inserted inside the
	// Complete transaction: if settlement fails, no penalty survives and
	// the retry starts clean.
	var penalties []domain.Penalty

	if !stationContains(station, lon, lat) {
		if !override {
			return nil, domain.GeofenceViolationf("position is outside the return zone of station %d", station.ID)
		}
		if !canOverrideGeofence(actor) {
			return nil, domain.Forbiddenf("only staff may override the return zone check")
		}

		overrideID := uuid.New().String()
		ride.OverrideID = &overrideID
		ride.OverrideBy = &actor.ID
		ride.OverrideAt = &endTime

		// Force-closing outside the fence still charges for the tow-back,
		// scaled by how far out the vehicle was left.
		distM := geo.Distance(station.Latitude, station.Longitude, lat, lon) * 1000
		penalties = append(penalties, domain.Penalty{
			BookingID:   booking.ID,
			CustomerID:  booking.CustomerID,
			VehicleID:   booking.VehicleID,
			AmountCents: pricing.ImproperParkingPenalty(s.rates.ParkingBaseCents, distM),
			Reason:      domain.PenaltyReasonImproperParking,
			Status:      domain.PenaltyStatusPending,
			Notes:       fmt.Sprintf("ride force-closed %.0f m from station %d (override %s)", distM, station.ID, overrideID),
		})
	}

	booking.ActualEndTime = &endTime
	if late := booking.LateMinutes(); late > 0 {
		penalties = append(penalties, domain.Penalty{
			BookingID:   booking.ID,
			CustomerID:  booking.CustomerID,
			VehicleID:   booking.VehicleID,
			AmountCents: pricing.LateReturnPenalty(s.rates.LateReturnBaseCents, s.rates.LateReturnPerMinuteCents, late),
			Reason:      domain.PenaltyReasonLateReturn,
			Status:      domain.PenaltyStatusPending,
			Notes:       fmt.Sprintf("returned %d minutes late", late),
		})
	}

	ride.EndLongitude = &lon
	ride.EndLatitude = &lat
	ride.DistanceKm = geo.Distance(ride.StartLatitude, ride.StartLongitude, lat, lon)
	ride.CostCents = pricing.RideCost(booking.BaseRateCents, booking.IncludedKm, booking.ExtraKmRateCents, ride.DistanceKm)

	if err := s.rideRepo.Complete(ctx, ride, endTime, station.ID, penalties); err != nil {
		return nil, err
	}

	s.noteSvc.Notify(ctx, booking.CustomerID, domain.NotificationTypeSuccess, "Ride completed",
		fmt.Sprintf("Ride %d settled at %d cents for %.2f km", ride.ID, ride.CostCents, ride.DistanceKm),
		fmt.Sprintf("/rides/%d", ride.ID))

	return &RideReceipt{RideID: ride.ID, CostCents: ride.CostCents, DistanceKm: ride.DistanceKm}, nil
}

func (s *rideService) ReportIssue(ctx context.Context, actor domain.Actor, rideID int32, issue, details string) error {
	if issue == "" {
		return domain.Invalidf("issue is required")
	}
	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return err
	}
	if !actor.IsStaff() && actor.ID != ride.CustomerID {
		return domain.Forbiddenf("not your ride")
	}

	if err := s.rideRepo.AddIssue(ctx, &domain.RideIssue{RideID: rideID, Issue: issue, Details: details}); err != nil {
		return err
	}
	s.noteSvc.NotifyStaff(ctx, domain.NotificationTypeWarning, "Ride issue reported",
		fmt.Sprintf("Ride %d: %s", rideID, issue),
		fmt.Sprintf("/rides/%d", rideID))
	return nil
}

func (s *rideService) ListIssues(ctx context.Context, rideID int32) ([]domain.RideIssue, error) {
	return s.rideRepo.ListIssues(ctx, rideID)
}

func (s *rideService) Rate(ctx context.Context, actor domain.Actor, rideID int32, rating int32, feedback string) error {
	if rating < 1 || rating > 5 {
		return domain.Invalidf("rating must be between 1 and 5")
	}
	ride, err := s.rideRepo.GetByID(ctx, rideID)
	if err != nil {
		return err
	}
	if !canRateRide(actor, ride) {
		return domain.Forbiddenf("only the rider may rate a ride")
	}
	return s.rideRepo.SetRating(ctx, rideID, rating, feedback)
}

// stationContains tests a point against the station's return geofence.
func stationContains(st *domain.Station, lon, lat float64) bool {
	return geo.PointInPolygon(geo.Point{lon, lat}, st.Geofence())
}
