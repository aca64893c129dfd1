package service

import (
	"context"
	"time"

	"evrental-backend/internal/domain"
	"evrental-backend/internal/logger"
	"evrental-backend/internal/repository"
)

type fleetService struct {
	vehicleRepo repository.VehicleRepository
	stationRepo repository.StationRepository
	noteSvc     NotificationService
}

func NewFleetService(
	vehicleRepo repository.VehicleRepository,
	stationRepo repository.StationRepository,
	noteSvc NotificationService,
) FleetService {
	return &fleetService{
		vehicleRepo: vehicleRepo,
		stationRepo: stationRepo,
		noteSvc:     noteSvc,
	}
}

func (s *fleetService) AddStation(ctx context.Context, actor domain.Actor, st *domain.Station) error {
	if !canManageFleet(actor) {
		return domain.Forbiddenf("only staff may add stations")
	}
	if st.Name == "" {
		return domain.Invalidf("station name is required")
	}
	if len(st.Polygon) == 0 && st.RadiusM <= 0 {
		return domain.Invalidf("station needs a polygon or a positive radius")
	}
	return s.stationRepo.Create(ctx, st)
}

func (s *fleetService) GetStation(ctx context.Context, id int32) (*domain.Station, error) {
	return s.stationRepo.GetByID(ctx, id)
}

func (s *fleetService) ListStations(ctx context.Context) ([]domain.Station, error) {
	return s.stationRepo.List(ctx)
}

func (s *fleetService) AddVehicle(ctx context.Context, actor domain.Actor, v *domain.Vehicle) error {
	if !canManageFleet(actor) {
		return domain.Forbiddenf("only staff may add vehicles")
	}
	if _, err := s.stationRepo.GetByID(ctx, v.StationID); err != nil {
		return err
	}
	if v.BatteryLevel < 0 || v.BatteryLevel > 100 {
		return domain.Invalidf("battery level must be between 0 and 100")
	}
	if v.Status == "" {
		v.Status = domain.VehicleStatusAvailable
	}
	return s.vehicleRepo.Create(ctx, v)
}

func (s *fleetService) GetVehicle(ctx context.Context, id int32) (*domain.Vehicle, error) {
	return s.vehicleRepo.GetByID(ctx, id)
}

func (s *fleetService) ListStationVehicles(ctx context.Context, stationID int32) ([]domain.Vehicle, error) {
	return s.vehicleRepo.ListByStation(ctx, stationID)
}

func (s *fleetService) ReleaseVehicle(ctx context.Context, actor domain.Actor, vehicleID int32) error {
	if !canManageFleet(actor) {
		return domain.Forbiddenf("only staff may release vehicles")
	}
	return s.vehicleRepo.Release(ctx, vehicleID)
}

func (s *fleetService) UpdateVehicleLocation(ctx context.Context, vehicleID int32, lon, lat float64, at time.Time) error {
	if err := s.vehicleRepo.UpdateLocation(ctx, vehicleID, lon, lat, at); err != nil {
		// Telemetry is best-effort; a dropped sample is a log line, not
		// a caller-visible failure.
		logger.Warn("vehicle location update dropped", "vehicle_id", vehicleID, "error", err)
	}
	return nil
}

func (s *fleetService) UpdateVehicleBattery(ctx context.Context, vehicleID int32, level int32) error {
	if level < 0 || level > 100 {
		return domain.Invalidf("battery level must be between 0 and 100")
	}
	return s.vehicleRepo.UpdateBattery(ctx, vehicleID, level)
}

func (s *fleetService) RecordMaintenance(ctx context.Context, actor domain.Actor, rec *domain.MaintenanceRecord) error {
	if !canManageFleet(actor) {
		return domain.Forbiddenf("only staff may record maintenance")
	}
	if rec.Description == "" {
		return domain.Invalidf("maintenance description is required")
	}
	rec.RecordedBy = actor.ID
	if err := s.vehicleRepo.RecordMaintenance(ctx, rec); err != nil {
		return err
	}
	s.noteSvc.NotifyStaff(ctx, domain.NotificationTypeWarning, "Vehicle in maintenance",
		"Vehicle taken out of service: "+rec.Description, "")
	return nil
}

func (s *fleetService) ClearMaintenance(ctx context.Context, actor domain.Actor, vehicleID int32) error {
	if !canManageFleet(actor) {
		return domain.Forbiddenf("only staff may clear maintenance")
	}
	return s.vehicleRepo.ClearMaintenance(ctx, vehicleID)
}

func (s *fleetService) ListMaintenance(ctx context.Context, vehicleID int32) ([]domain.MaintenanceRecord, error) {
	return s.vehicleRepo.ListMaintenance(ctx, vehicleID)
}
