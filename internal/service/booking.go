package service

import (
	"context"
	"fmt"
	"math"

	"evrental-backend/internal/domain"
	"evrental-backend/internal/pricing"
	"evrental-backend/internal/repository"
)

// PenaltyRates are the base amounts the lifecycle services feed into the
// pricing policies. Loaded from config at startup.
type PenaltyRates struct {
	DamageBaseCents          int32
	LateReturnBaseCents      int32
	LateReturnPerMinuteCents int32
	ParkingBaseCents         int32
	GeofenceBaseCents        int32
	CancellationCents        int32
}

type bookingService struct {
	bookingRepo   repository.BookingRepository
	vehicleRepo   repository.VehicleRepository
	stationRepo   repository.StationRepository
	penaltyRepo   repository.PenaltyRepository
	principalRepo repository.PrincipalRepository
	noteSvc       NotificationService
	mailer        MailerService
	rates         PenaltyRates
}

func NewBookingService(
	bookingRepo repository.BookingRepository,
	vehicleRepo repository.VehicleRepository,
	stationRepo repository.StationRepository,
	penaltyRepo repository.PenaltyRepository,
	principalRepo repository.PrincipalRepository,
	noteSvc NotificationService,
	mailer MailerService,
	rates PenaltyRates,
) BookingService {
	return &bookingService{
		bookingRepo:   bookingRepo,
		vehicleRepo:   vehicleRepo,
		stationRepo:   stationRepo,
		penaltyRepo:   penaltyRepo,
		principalRepo: principalRepo,
		noteSvc:       noteSvc,
		mailer:        mailer,
		rates:         rates,
	}
}

func (s *bookingService) Create(ctx context.Context, actor domain.Actor, req CreateBookingRequest) (*domain.Booking, error) {
	if !req.EndTime.After(req.StartTime) {
		return nil, domain.Invalidf("end time must be after start time")
	}
	if _, err := s.stationRepo.GetByID(ctx, req.StartStationID); err != nil {
		return nil, err
	}
	if _, err := s.stationRepo.GetByID(ctx, req.EndStationID); err != nil {
		return nil, err
	}

	// Early check for an open booking; the repo re-checks inside the
	// insert transaction, this one just gives a clean error without
	// touching the vehicle.
	open, err := s.bookingRepo.CountNonTerminalByCustomer(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if open > 0 {
		return nil, domain.Conflictf("customer %d already has an open booking", actor.ID)
	}

	vehicle, err := s.vehicleRepo.GetByID(ctx, req.VehicleID)
	if err != nil {
		return nil, err
	}
	if vehicle.Status != domain.VehicleStatusAvailable {
		return nil, domain.Conflictf("vehicle %d is not available (status %s)", vehicle.ID, vehicle.Status)
	}

	hours := int32(math.Ceil(req.EndTime.Sub(req.StartTime).Hours()))
	booking := &domain.Booking{
		CustomerID:     actor.ID,
		VehicleID:      vehicle.ID,
		StartStationID: req.StartStationID,
		EndStationID:   req.EndStationID,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		Status:         domain.BookingStatusPending,
		PaymentStatus:  domain.PaymentStatusUnpaid,
		TotalCostCents: vehicle.PricePerHourCents * hours,

		// Rate snapshot: settlement uses these even if the vehicle's
		// pricing changes mid-booking.
		BaseRateCents:    vehicle.BaseRateCents,
		IncludedKm:       vehicle.IncludedKm,
		ExtraKmRateCents: vehicle.ExtraKmRateCents,
	}

	if err := s.bookingRepo.Create(ctx, booking); err != nil {
		return nil, err
	}

	s.noteSvc.NotifyStaff(ctx, domain.NotificationTypeInfo, "New booking request",
		fmt.Sprintf("Booking %d awaits approval (vehicle %d)", booking.ID, booking.VehicleID),
		fmt.Sprintf("/bookings/%d", booking.ID))
	return booking, nil
}

func (s *bookingService) Get(ctx context.Context, actor domain.Actor, id int32) (*domain.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canViewBooking(actor, booking) {
		return nil, domain.Forbiddenf("not your booking")
	}
	return booking, nil
}

func (s *bookingService) ListMine(ctx context.Context, actor domain.Actor, status string, page, pageSize int32) ([]domain.Booking, int32, error) {
	return s.bookingRepo.ListByCustomer(ctx, actor.ID, status, page, pageSize)
}

func (s *bookingService) List(ctx context.Context, actor domain.Actor, status string, page, pageSize int32) ([]domain.Booking, int32, error) {
	if !actor.IsStaff() {
		return nil, 0, domain.Forbiddenf("only staff may list all bookings")
	}
	return s.bookingRepo.List(ctx, status, page, pageSize)
}

func (s *bookingService) Approve(ctx context.Context, actor domain.Actor, id int32) error {
	if !canApproveBooking(actor) {
		return domain.Forbiddenf("only staff may approve bookings")
	}
	if err := s.bookingRepo.SetStatus(ctx, id, domain.BookingStatusPending, domain.BookingStatusApproved, false); err != nil {
		return err
	}
	s.notifyCustomer(ctx, id, domain.NotificationTypeSuccess, "Booking approved",
		fmt.Sprintf("Booking %d was approved, you can start your ride", id))
	return nil
}

func (s *bookingService) Decline(ctx context.Context, actor domain.Actor, id int32) error {
	if !canApproveBooking(actor) {
		return domain.Forbiddenf("only staff may decline bookings")
	}
	// Declining is terminal, so the vehicle goes back to the pool in
	// the same transaction.
	if err := s.bookingRepo.SetStatus(ctx, id, domain.BookingStatusPending, domain.BookingStatusDeclined, true); err != nil {
		return err
	}
	s.notifyCustomer(ctx, id, domain.NotificationTypeWarning, "Booking declined",
		fmt.Sprintf("Booking %d was declined", id))
	return nil
}

func (s *bookingService) Cancel(ctx context.Context, actor domain.Actor, id int32) error {
	booking, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if booking.Status == domain.BookingStatusOngoing {
		return domain.Conflictf("booking %d is ongoing, end the ride instead", id)
	}
	if booking.Status.Terminal() {
		return domain.Conflictf("booking %d is already %s", id, booking.Status)
	}
	if !canCancelBooking(actor, booking) {
		return domain.Forbiddenf("not allowed to cancel booking %d", id)
	}

	// A customer dropping an already-approved booking pays the
	// cancellation charge; staff cancellations never do. The fee rides
	// the cancellation transaction: a failed cancel leaves no fee, and a
	// fee is never lost to a cancel that already committed.
	var fee *domain.Penalty
	if booking.Status == domain.BookingStatusApproved && !actor.IsStaff() && s.rates.CancellationCents > 0 {
		fee = &domain.Penalty{
			BookingID:   booking.ID,
			CustomerID:  booking.CustomerID,
			VehicleID:   booking.VehicleID,
			AmountCents: s.rates.CancellationCents,
			Reason:      domain.PenaltyReasonCancellation,
			Status:      domain.PenaltyStatusPending,
			Notes:       "approved booking cancelled by customer",
		}
	}

	if err := s.bookingRepo.Cancel(ctx, id, booking.Status, fee); err != nil {
		return err
	}

	s.notifyCustomer(ctx, id, domain.NotificationTypeInfo, "Booking cancelled",
		fmt.Sprintf("Booking %d was cancelled", id))
	return nil
}

func (s *bookingService) ReportDamage(ctx context.Context, actor domain.Actor, id int32, req DamageReportRequest) error {
	if !canReportDamage(actor) {
		return domain.Forbiddenf("only staff may report damage")
	}
	if req.Description == "" {
		return domain.Invalidf("damage description is required")
	}

	booking, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.bookingRepo.SetDamage(ctx, id, req.Description, req.Photos, req.EstimateCents); err != nil {
		return err
	}

	base := s.rates.DamageBaseCents
	if req.EstimateCents > 0 {
		base = req.EstimateCents
	}
	penalty := &domain.Penalty{
		BookingID:   booking.ID,
		CustomerID:  booking.CustomerID,
		VehicleID:   booking.VehicleID,
		AmountCents: pricing.DamagePenalty(base, pricing.DamageSeverity(req.Severity)),
		Reason:      domain.PenaltyReasonDamage,
		Status:      domain.PenaltyStatusPending,
		Notes:       req.Description,
	}
	if err := s.penaltyRepo.Accrue(ctx, penalty); err != nil {
		return err
	}

	s.notifyCustomer(ctx, id, domain.NotificationTypeError, "Damage reported",
		fmt.Sprintf("Damage was reported on booking %d: %s", id, req.Description))
	return nil
}

func (s *bookingService) ConfirmPayment(ctx context.Context, bookingID int32, confirmed bool) error {
	if !confirmed {
		return s.bookingRepo.SetPaymentStatus(ctx, bookingID, domain.PaymentStatusUnpaid)
	}
	if err := s.bookingRepo.SetPaymentStatus(ctx, bookingID, domain.PaymentStatusPaid); err != nil {
		return err
	}
	s.notifyCustomer(ctx, bookingID, domain.NotificationTypeSuccess, "Payment received",
		fmt.Sprintf("Payment for booking %d was confirmed", bookingID))
	return nil
}

// notifyCustomer is fire-and-forget: the notification row plus a best-
// effort email to the directory address.
func (s *bookingService) notifyCustomer(ctx context.Context, bookingID int32, typ domain.NotificationType, title, message string) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return
	}
	s.noteSvc.Notify(ctx, booking.CustomerID, typ, title, message, fmt.Sprintf("/bookings/%d", bookingID))

	if customer, err := s.principalRepo.GetByID(ctx, booking.CustomerID); err == nil {
		_ = s.mailer.Send(ctx, customer.Email, customer.Name, title, message)
	}
}
