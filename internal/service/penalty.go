package service

import (
	"context"
	"fmt"
	"time"

	"evrental-backend/internal/domain"
	"evrental-backend/internal/repository"
)

type penaltyService struct {
	penaltyRepo repository.PenaltyRepository
	bookingRepo repository.BookingRepository
	noteSvc     NotificationService
}

func NewPenaltyService(
	penaltyRepo repository.PenaltyRepository,
	bookingRepo repository.BookingRepository,
	noteSvc NotificationService,
) PenaltyService {
	return &penaltyService{
		penaltyRepo: penaltyRepo,
		bookingRepo: bookingRepo,
		noteSvc:     noteSvc,
	}
}

func (s *penaltyService) Accrue(ctx context.Context, actor domain.Actor, p *domain.Penalty) error {
	if !actor.IsStaff() {
		return domain.Forbiddenf("only staff may record penalties")
	}
	if p.AmountCents <= 0 {
		return domain.Invalidf("penalty amount must be positive")
	}
	if p.Reason == "" {
		p.Reason = domain.PenaltyReasonOther
	}

	booking, err := s.bookingRepo.GetByID(ctx, p.BookingID)
	if err != nil {
		return err
	}
	p.CustomerID = booking.CustomerID
	p.VehicleID = booking.VehicleID
	p.Status = domain.PenaltyStatusPending

	if err := s.penaltyRepo.Accrue(ctx, p); err != nil {
		return err
	}
	s.noteSvc.Notify(ctx, p.CustomerID, domain.NotificationTypeWarning, "Penalty charged",
		fmt.Sprintf("A %s penalty of %d cents was charged on booking %d", p.Reason, p.AmountCents, p.BookingID),
		fmt.Sprintf("/penalties/%d", p.ID))
	return nil
}

func (s *penaltyService) Get(ctx context.Context, actor domain.Actor, id int32) (*domain.Penalty, error) {
	p, err := s.penaltyRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canViewPenalty(actor, p) {
		return nil, domain.Forbiddenf("not your penalty")
	}
	return p, nil
}

func (s *penaltyService) ListByBooking(ctx context.Context, actor domain.Actor, bookingID int32) ([]domain.Penalty, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !canViewBooking(actor, booking) {
		return nil, domain.Forbiddenf("not your booking")
	}
	return s.penaltyRepo.ListByBooking(ctx, bookingID)
}

func (s *penaltyService) ListMine(ctx context.Context, actor domain.Actor, page, pageSize int32) ([]domain.Penalty, int32, error) {
	return s.penaltyRepo.ListByCustomer(ctx, actor.ID, page, pageSize)
}

func (s *penaltyService) Waive(ctx context.Context, actor domain.Actor, id int32) error {
	if !canSettlePenalty(actor) {
		return domain.Forbiddenf("only admins may waive penalties")
	}
	p, err := s.penaltyRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.penaltyRepo.Waive(ctx, id); err != nil {
		return err
	}
	s.noteSvc.Notify(ctx, p.CustomerID, domain.NotificationTypeSuccess, "Penalty waived",
		fmt.Sprintf("The %s penalty on booking %d was waived", p.Reason, p.BookingID),
		fmt.Sprintf("/penalties/%d", id))
	return nil
}

func (s *penaltyService) MarkPaid(ctx context.Context, actor domain.Actor, id int32, paidAmountCents int32) error {
	if !canSettlePenalty(actor) {
		return domain.Forbiddenf("only admins may settle penalties")
	}
	if paidAmountCents < 0 {
		return domain.Invalidf("paid amount cannot be negative")
	}
	return s.penaltyRepo.MarkPaid(ctx, id, paidAmountCents, time.Now())
}

func (s *penaltyService) Remove(ctx context.Context, actor domain.Actor, id int32) error {
	if !canSettlePenalty(actor) {
		return domain.Forbiddenf("only admins may remove penalties")
	}
	return s.penaltyRepo.Remove(ctx, id)
}

func (s *penaltyService) Statistics(ctx context.Context, actor domain.Actor) (*domain.PenaltyStatistics, error) {
	if !actor.IsStaff() {
		return nil, domain.Forbiddenf("only staff may view penalty statistics")
	}
	return s.penaltyRepo.Statistics(ctx)
}
