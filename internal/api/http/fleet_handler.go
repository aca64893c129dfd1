package http

import (
	"net/http"
	"time"

	"evrental-backend/internal/domain"
	"evrental-backend/internal/service"
)

type FleetHandler struct {
	fleet service.FleetService
}

func NewFleetHandler(fleet service.FleetService) *FleetHandler {
	return &FleetHandler{fleet: fleet}
}

func (h *FleetHandler) CreateStation(w http.ResponseWriter, r *http.Request) {
	var station domain.Station
	if err := decodeBody(r, &station); err != nil {
		writeError(w, err)
		return
	}
	if err := h.fleet.AddStation(r.Context(), actorFrom(r), &station); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, station)
}

func (h *FleetHandler) GetStation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	station, err := h.fleet.GetStation(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, station)
}

func (h *FleetHandler) ListStations(w http.ResponseWriter, r *http.Request) {
	stations, err := h.fleet.ListStations(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stations)
}

func (h *FleetHandler) ListStationVehicles(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	vehicles, err := h.fleet.ListStationVehicles(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicles)
}

func (h *FleetHandler) CreateVehicle(w http.ResponseWriter, r *http.Request) {
	var vehicle domain.Vehicle
	if err := decodeBody(r, &vehicle); err != nil {
		writeError(w, err)
		return
	}
	if err := h.fleet.AddVehicle(r.Context(), actorFrom(r), &vehicle); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, vehicle)
}

func (h *FleetHandler) GetVehicle(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	vehicle, err := h.fleet.GetVehicle(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicle)
}

func (h *FleetHandler) ReleaseVehicle(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.fleet.ReleaseVehicle(r.Context(), actorFrom(r), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

type vehicleLocationRequest struct {
	Longitude float64    `json:"longitude"`
	Latitude  float64    `json:"latitude"`
	At        *time.Time `json:"at,omitempty"`
}

func (h *FleetHandler) UpdateVehicleLocation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req vehicleLocationRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	at := time.Now()
	if req.At != nil {
		at = *req.At
	}
	if err := h.fleet.UpdateVehicleLocation(r.Context(), id, req.Longitude, req.Latitude, at); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, nil)
}

func (h *FleetHandler) UpdateVehicleBattery(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Level int32 `json:"level"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.fleet.UpdateVehicleBattery(r.Context(), id, req.Level); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, nil)
}

func (h *FleetHandler) RecordMaintenance(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var rec domain.MaintenanceRecord
	if err := decodeBody(r, &rec); err != nil {
		writeError(w, err)
		return
	}
	rec.VehicleID = id
	if err := h.fleet.RecordMaintenance(r.Context(), actorFrom(r), &rec); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *FleetHandler) ClearMaintenance(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.fleet.ClearMaintenance(r.Context(), actorFrom(r), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *FleetHandler) ListMaintenance(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	records, err := h.fleet.ListMaintenance(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}
