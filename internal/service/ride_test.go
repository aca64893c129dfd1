package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"evrental-backend/internal/domain"
)

var testClock = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

type rideFixture struct {
	rideRepo    *MockRideRepo
	bookingRepo *MockBookingRepo
	vehicleRepo *MockVehicleRepo
	stationRepo *MockStationRepo
	notifier    *stubNotifier
	svc         *rideService
}

func newRideFixture(now time.Time) *rideFixture {
	f := &rideFixture{
		rideRepo:    new(MockRideRepo),
		bookingRepo: new(MockBookingRepo),
		vehicleRepo: new(MockVehicleRepo),
		stationRepo: new(MockStationRepo),
		notifier:    &stubNotifier{},
	}
	zone := ZonePolicy{
		CenterLongitude: 0,
		CenterLatitude:  0,
		RadiusM:         1000,
		Threshold:       5 * time.Minute,
	}
	rates := PenaltyRates{
		LateReturnBaseCents:      1000,
		LateReturnPerMinuteCents: 50,
		ParkingBaseCents:         2000,
		GeofenceBaseCents:        3000,
	}
	f.svc = newRideService(f.rideRepo, f.bookingRepo, f.vehicleRepo, f.stationRepo, f.notifier, zone, rates,
		func() time.Time { return now })
	return f
}

func TestRideService_Start(t *testing.T) {
	ctx := context.Background()
	customer := domain.Actor{ID: 1, Role: domain.RoleCustomer}

	t.Run("Success", func(t *testing.T) {
		f := newRideFixture(testClock)
		booking := &domain.Booking{ID: 5, CustomerID: 1, VehicleID: 7, Status: domain.BookingStatusApproved}
		f.bookingRepo.On("GetByID", ctx, int32(5)).Return(booking, nil)
		f.rideRepo.On("Start", ctx, mock.AnythingOfType("*domain.Ride")).Return(nil)

		ride, err := f.svc.Start(ctx, customer, 5, 0.001, 0.001)
		assert.NoError(t, err)
		assert.Equal(t, domain.RideStatusActive, ride.Status)
		assert.Equal(t, int32(7), ride.VehicleID)
		assert.Equal(t, testClock, ride.StartTime)
	})

	t.Run("Rejects a pending booking", func(t *testing.T) {
		f := newRideFixture(testClock)
		booking := &domain.Booking{ID: 5, CustomerID: 1, Status: domain.BookingStatusPending}
		f.bookingRepo.On("GetByID", ctx, int32(5)).Return(booking, nil)

		_, err := f.svc.Start(ctx, customer, 5, 0, 0)
		assert.True(t, domain.IsConflict(err))
	})

	t.Run("Rejects another customer", func(t *testing.T) {
		f := newRideFixture(testClock)
		booking := &domain.Booking{ID: 5, CustomerID: 2, Status: domain.BookingStatusApproved}
		f.bookingRepo.On("GetByID", ctx, int32(5)).Return(booking, nil)

		_, err := f.svc.Start(ctx, customer, 5, 0, 0)
		assert.Equal(t, domain.KindForbidden, domain.KindOf(err))
	})
}

func TestRideService_ZoneDebounce(t *testing.T) {
	ctx := context.Background()
	activeRide := func() *domain.Ride {
		return &domain.Ride{ID: 9, BookingID: 5, VehicleID: 7, CustomerID: 1, Status: domain.RideStatusActive}
	}

	t.Run("Inside the zone nothing changes", func(t *testing.T) {
		f := newRideFixture(testClock)
		f.rideRepo.On("GetByID", ctx, int32(9)).Return(activeRide(), nil)
		f.vehicleRepo.On("UpdateLocation", ctx, int32(7), 0.001, 0.001, testClock).Return(nil)
		f.bookingRepo.On("UpdateLastLocation", ctx, int32(5), 0.001, 0.001, testClock).Return(nil)

		err := f.svc.TrackLocation(ctx, 9, 0.001, 0.001, testClock)
		assert.NoError(t, err)
		f.rideRepo.AssertNotCalled(t, "UpdateZoneState", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Leaving the zone starts the timer without a penalty", func(t *testing.T) {
		f := newRideFixture(testClock)
		f.rideRepo.On("GetByID", ctx, int32(9)).Return(activeRide(), nil)
		f.vehicleRepo.On("UpdateLocation", ctx, int32(7), 0.05, 0.0, testClock).Return(nil)
		f.bookingRepo.On("UpdateLastLocation", ctx, int32(5), 0.05, 0.0, testClock).Return(nil)
		f.rideRepo.On("UpdateZoneState", ctx, int32(9), &testClock, false).Return(nil)

		err := f.svc.TrackLocation(ctx, 9, 0.05, 0.0, testClock)
		assert.NoError(t, err)
		f.rideRepo.AssertNotCalled(t, "PenalizeZoneEpisode", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Outlasting the threshold accrues the penalty once", func(t *testing.T) {
		left := testClock
		now := left.Add(6 * time.Minute)
		f := newRideFixture(now)
		ride := activeRide()
		ride.OutOfZoneSince = &left
		f.rideRepo.On("GetByID", ctx, int32(9)).Return(ride, nil)
		f.vehicleRepo.On("UpdateLocation", ctx, int32(7), 0.05, 0.0, now).Return(nil)
		f.bookingRepo.On("UpdateLastLocation", ctx, int32(5), 0.05, 0.0, now).Return(nil)
		f.bookingRepo.On("GetByID", ctx, int32(5)).Return(&domain.Booking{ID: 5, CustomerID: 1, VehicleID: 7}, nil)
		// base 3000 * (duration mult 1 + distance mult 1, ~4.5 km out)
		f.rideRepo.On("PenalizeZoneEpisode", ctx, int32(9), mock.MatchedBy(func(p *domain.Penalty) bool {
			return p.Reason == domain.PenaltyReasonGeofenceViolation && p.AmountCents == 6000
		})).Return(true, nil)

		err := f.svc.TrackLocation(ctx, 9, 0.05, 0.0, now)
		assert.NoError(t, err)
		f.rideRepo.AssertNumberOfCalls(t, "PenalizeZoneEpisode", 1)
		assert.Equal(t, []int32{1}, f.notifier.notified)
		assert.Equal(t, 1, f.notifier.staff)
	})

	t.Run("A penalized episode never accrues twice", func(t *testing.T) {
		left := testClock
		now := left.Add(30 * time.Minute)
		f := newRideFixture(now)
		ride := activeRide()
		ride.OutOfZoneSince = &left
		ride.ZonePenalized = true
		f.rideRepo.On("GetByID", ctx, int32(9)).Return(ride, nil)
		f.vehicleRepo.On("UpdateLocation", ctx, int32(7), 0.05, 0.0, now).Return(nil)
		f.bookingRepo.On("UpdateLastLocation", ctx, int32(5), 0.05, 0.0, now).Return(nil)

		err := f.svc.TrackLocation(ctx, 9, 0.05, 0.0, now)
		assert.NoError(t, err)
		f.rideRepo.AssertNotCalled(t, "PenalizeZoneEpisode", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Losing the episode flag stays silent", func(t *testing.T) {
		// A stale read can send two samples past the in-memory check; the
		// repo flag decides, and the loser must not notify anyone.
		left := testClock
		now := left.Add(6 * time.Minute)
		f := newRideFixture(now)
		ride := activeRide()
		ride.OutOfZoneSince = &left
		f.rideRepo.On("GetByID", ctx, int32(9)).Return(ride, nil)
		f.vehicleRepo.On("UpdateLocation", ctx, int32(7), 0.05, 0.0, now).Return(nil)
		f.bookingRepo.On("UpdateLastLocation", ctx, int32(5), 0.05, 0.0, now).Return(nil)
		f.bookingRepo.On("GetByID", ctx, int32(5)).Return(&domain.Booking{ID: 5, CustomerID: 1, VehicleID: 7}, nil)
		f.rideRepo.On("PenalizeZoneEpisode", ctx, int32(9), mock.AnythingOfType("*domain.Penalty")).Return(false, nil)

		err := f.svc.TrackLocation(ctx, 9, 0.05, 0.0, now)
		assert.NoError(t, err)
		assert.Empty(t, f.notifier.notified)
		assert.Zero(t, f.notifier.staff)
	})

	t.Run("Re-entry resets the episode", func(t *testing.T) {
		left := testClock
		now := left.Add(2 * time.Minute)
		f := newRideFixture(now)
		ride := activeRide()
		ride.OutOfZoneSince = &left
		f.rideRepo.On("GetByID", ctx, int32(9)).Return(ride, nil)
		f.vehicleRepo.On("UpdateLocation", ctx, int32(7), 0.001, 0.001, now).Return(nil)
		f.bookingRepo.On("UpdateLastLocation", ctx, int32(5), 0.001, 0.001, now).Return(nil)
		f.rideRepo.On("UpdateZoneState", ctx, int32(9), (*time.Time)(nil), false).Return(nil)

		err := f.svc.TrackLocation(ctx, 9, 0.001, 0.001, now)
		assert.NoError(t, err)
		f.rideRepo.AssertNotCalled(t, "PenalizeZoneEpisode", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestRideService_End(t *testing.T) {
	ctx := context.Background()
	customer := domain.Actor{ID: 1, Role: domain.RoleCustomer}
	master := domain.Actor{ID: 50, Role: domain.RoleStationMaster}

	activeRide := func() *domain.Ride {
		return &domain.Ride{
			ID: 9, BookingID: 5, VehicleID: 7, CustomerID: 1,
			Status:         domain.RideStatusActive,
			StartLongitude: 0.02, StartLatitude: 0,
		}
	}
	openBooking := func() *domain.Booking {
		return &domain.Booking{
			ID: 5, CustomerID: 1, VehicleID: 7,
			StartStationID: 2, EndStationID: 3,
			Status:        domain.BookingStatusOngoing,
			EndTime:       testClock.Add(time.Hour),
			BaseRateCents: 500, IncludedKm: 10, ExtraKmRateCents: 120,
		}
	}
	endStation := &domain.Station{ID: 3, Longitude: 0, Latitude: 0, RadiusM: 100}

	t.Run("Settles inside the return zone", func(t *testing.T) {
		f := newRideFixture(testClock)
		f.rideRepo.On("GetByID", ctx, int32(9)).Return(activeRide(), nil)
		f.bookingRepo.On("GetByID", ctx, int32(5)).Return(openBooking(), nil)
		f.stationRepo.On("GetByID", ctx, int32(3)).Return(endStation, nil)
		f.rideRepo.On("Complete", ctx, mock.AnythingOfType("*domain.Ride"), testClock, int32(3),
			mock.MatchedBy(func(ps []domain.Penalty) bool { return len(ps) == 0 })).Return(nil)

		receipt, err := f.svc.End(ctx, customer, 9, 0, 0, false)
		assert.NoError(t, err)
		// ~2.2 km, inside the 10 km allowance, so the base rate only
		assert.Equal(t, int32(500), receipt.CostCents)
		assert.InDelta(t, 2.23, receipt.DistanceKm, 0.05)
	})

	t.Run("Customer outside the zone is refused", func(t *testing.T) {
		f := newRideFixture(testClock)
		f.rideRepo.On("GetByID", ctx, int32(9)).Return(activeRide(), nil)
		f.bookingRepo.On("GetByID", ctx, int32(5)).Return(openBooking(), nil)
		f.stationRepo.On("GetByID", ctx, int32(3)).Return(endStation, nil)

		_, err := f.svc.End(ctx, customer, 9, 0, 0.01, false)
		assert.Equal(t, domain.KindGeofenceViolation, domain.KindOf(err))
		f.rideRepo.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Customer cannot override", func(t *testing.T) {
		f := newRideFixture(testClock)
		f.rideRepo.On("GetByID", ctx, int32(9)).Return(activeRide(), nil)
		f.bookingRepo.On("GetByID", ctx, int32(5)).Return(openBooking(), nil)
		f.stationRepo.On("GetByID", ctx, int32(3)).Return(endStation, nil)

		_, err := f.svc.End(ctx, customer, 9, 0, 0.01, true)
		assert.Equal(t, domain.KindForbidden, domain.KindOf(err))
	})

	t.Run("Staff override records the audit trail and the parking charge", func(t *testing.T) {
		f := newRideFixture(testClock)
		f.rideRepo.On("GetByID", ctx, int32(9)).Return(activeRide(), nil)
		f.bookingRepo.On("GetByID", ctx, int32(5)).Return(openBooking(), nil)
		f.stationRepo.On("GetByID", ctx, int32(3)).Return(endStation, nil)

		var completed *domain.Ride
		var settled []domain.Penalty
		f.rideRepo.On("Complete", ctx, mock.AnythingOfType("*domain.Ride"), testClock, int32(3), mock.Anything).
			Run(func(args mock.Arguments) {
				completed = args.Get(1).(*domain.Ride)
				settled = args.Get(4).([]domain.Penalty)
			}).Return(nil)

		_, err := f.svc.End(ctx, master, 9, 0, 0.01, true)
		assert.NoError(t, err)
		assert.NotNil(t, completed.OverrideID)
		assert.Equal(t, master.ID, *completed.OverrideBy)
		assert.Equal(t, testClock, *completed.OverrideAt)
		// ~1.1 km out, beyond 500 m doubles the base parking charge
		if assert.Len(t, settled, 1) {
			assert.Equal(t, domain.PenaltyReasonImproperParking, settled[0].Reason)
			assert.Equal(t, int32(4000), settled[0].AmountCents)
		}
	})

	t.Run("Late return settles with the ride", func(t *testing.T) {
		now := testClock.Add(90 * time.Minute) // 30 min past the planned end
		f := newRideFixture(now)
		f.rideRepo.On("GetByID", ctx, int32(9)).Return(activeRide(), nil)
		f.bookingRepo.On("GetByID", ctx, int32(5)).Return(openBooking(), nil)
		f.stationRepo.On("GetByID", ctx, int32(3)).Return(endStation, nil)
		// 1000 base + 50/min * 30
		f.rideRepo.On("Complete", ctx, mock.AnythingOfType("*domain.Ride"), now, int32(3),
			mock.MatchedBy(func(ps []domain.Penalty) bool {
				return len(ps) == 1 && ps[0].Reason == domain.PenaltyReasonLateReturn && ps[0].AmountCents == 2500
			})).Return(nil)

		_, err := f.svc.End(ctx, customer, 9, 0, 0, false)
		assert.NoError(t, err)
	})

	t.Run("A failed settlement charges nothing and a retry charges once", func(t *testing.T) {
		now := testClock.Add(90 * time.Minute)
		f := newRideFixture(now)
		f.rideRepo.On("GetByID", ctx, int32(9)).Return(activeRide(), nil)
		f.bookingRepo.On("GetByID", ctx, int32(5)).Return(openBooking(), nil)
		f.stationRepo.On("GetByID", ctx, int32(3)).Return(endStation, nil)

		lateOnly := mock.MatchedBy(func(ps []domain.Penalty) bool {
			return len(ps) == 1 && ps[0].Reason == domain.PenaltyReasonLateReturn && ps[0].AmountCents == 2500
		})
		f.rideRepo.On("Complete", ctx, mock.AnythingOfType("*domain.Ride"), now, int32(3), lateOnly).
			Return(errors.New("connection reset")).Once()
		f.rideRepo.On("Complete", ctx, mock.AnythingOfType("*domain.Ride"), now, int32(3), lateOnly).
			Return(nil).Once()

		_, err := f.svc.End(ctx, customer, 9, 0, 0, false)
		assert.Error(t, err)
		assert.Empty(t, f.notifier.notified)

		// The penalty only ever travels inside the settlement call, so
		// the retry presents the same single charge instead of stacking
		// a second one on top of a leftover row.
		receipt, err := f.svc.End(ctx, customer, 9, 0, 0, false)
		assert.NoError(t, err)
		assert.NotNil(t, receipt)
		f.rideRepo.AssertNumberOfCalls(t, "Complete", 2)
	})

	t.Run("A completed ride cannot end twice", func(t *testing.T) {
		f := newRideFixture(testClock)
		done := activeRide()
		done.Status = domain.RideStatusCompleted
		f.rideRepo.On("GetByID", ctx, int32(9)).Return(done, nil)

		_, err := f.svc.End(ctx, customer, 9, 0, 0, false)
		assert.True(t, domain.IsConflict(err))
	})
}

func TestRideService_Rate(t *testing.T) {
	ctx := context.Background()
	customer := domain.Actor{ID: 1, Role: domain.RoleCustomer}
	admin := domain.Actor{ID: 99, Role: domain.RoleAdmin}

	t.Run("Rejects out-of-range ratings", func(t *testing.T) {
		f := newRideFixture(testClock)
		err := f.svc.Rate(ctx, customer, 9, 6, "")
		assert.Equal(t, domain.KindInvalid, domain.KindOf(err))
	})

	t.Run("Only the rider may rate", func(t *testing.T) {
		f := newRideFixture(testClock)
		f.rideRepo.On("GetByID", ctx, int32(9)).Return(&domain.Ride{ID: 9, CustomerID: 1, Status: domain.RideStatusCompleted}, nil)
		err := f.svc.Rate(ctx, admin, 9, 5, "great")
		assert.Equal(t, domain.KindForbidden, domain.KindOf(err))
	})

	t.Run("Delegates a valid rating", func(t *testing.T) {
		f := newRideFixture(testClock)
		f.rideRepo.On("GetByID", ctx, int32(9)).Return(&domain.Ride{ID: 9, CustomerID: 1, Status: domain.RideStatusCompleted}, nil)
		f.rideRepo.On("SetRating", ctx, int32(9), int32(4), "good ride").Return(nil)
		err := f.svc.Rate(ctx, customer, 9, 4, "good ride")
		assert.NoError(t, err)
	})
}
