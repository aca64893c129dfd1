package http

import (
	"net/http"
	"time"

	"evrental-backend/internal/service"
)

type RideHandler struct {
	rides service.RideService
}

func NewRideHandler(rides service.RideService) *RideHandler {
	return &RideHandler{rides: rides}
}

type startRideRequest struct {
	BookingID int32   `json:"booking_id"`
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

func (h *RideHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startRideRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	ride, err := h.rides.Start(r.Context(), actorFrom(r), req.BookingID, req.Longitude, req.Latitude)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ride)
}

func (h *RideHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	ride, err := h.rides.Get(r.Context(), actorFrom(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ride)
}

type trackRequest struct {
	Longitude float64    `json:"longitude"`
	Latitude  float64    `json:"latitude"`
	At        *time.Time `json:"at,omitempty"`
}

func (h *RideHandler) TrackLocation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req trackRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	at := time.Now()
	if req.At != nil {
		at = *req.At
	}
	if err := h.rides.TrackLocation(r.Context(), id, req.Longitude, req.Latitude, at); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, nil)
}

type endRideRequest struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
	Override  bool    `json:"override"`
}

func (h *RideHandler) End(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req endRideRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	receipt, err := h.rides.End(r.Context(), actorFrom(r), id, req.Longitude, req.Latitude, req.Override)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (h *RideHandler) ReportIssue(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Issue   string `json:"issue"`
		Details string `json:"details"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.rides.ReportIssue(r.Context(), actorFrom(r), id, req.Issue, req.Details); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, nil)
}

func (h *RideHandler) ListIssues(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	issues, err := h.rides.ListIssues(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, issues)
}

func (h *RideHandler) Rate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Rating   int32  `json:"rating"`
		Feedback string `json:"feedback"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.rides.Rate(r.Context(), actorFrom(r), id, req.Rating, req.Feedback); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
