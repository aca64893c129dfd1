package http

import (
	"context"
	"net/http"

	"evrental-backend/internal/domain"
	"evrental-backend/internal/service"
)

type BookingHandler struct {
	bookings  service.BookingService
	penalties service.PenaltyService
}

func NewBookingHandler(bookings service.BookingService, penalties service.PenaltyService) *BookingHandler {
	return &BookingHandler{bookings: bookings, penalties: penalties}
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateBookingRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	booking, err := h.bookings.Create(r.Context(), actorFrom(r), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	booking, err := h.bookings.Get(r.Context(), actorFrom(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (h *BookingHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)
	bookings, total, err := h.bookings.ListMine(r.Context(), actorFrom(r), r.URL.Query().Get("status"), page, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Items: bookings, Total: total, Page: page})
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)
	bookings, total, err := h.bookings.List(r.Context(), actorFrom(r), r.URL.Query().Get("status"), page, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Items: bookings, Total: total, Page: page})
}

func (h *BookingHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.bookings.Approve)
}

func (h *BookingHandler) Decline(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.bookings.Decline)
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.bookings.Cancel)
}

func (h *BookingHandler) ReportDamage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req service.DamageReportRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.bookings.ReportDamage(r.Context(), actorFrom(r), id, req); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// ConfirmPayment consumes the payment provider's webhook; it is mounted
// outside the auth middleware and trusted at the network level.
func (h *BookingHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Confirmed bool `json:"confirmed"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.bookings.ConfirmPayment(r.Context(), id, req.Confirmed); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *BookingHandler) ListPenalties(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	penalties, err := h.penalties.ListByBooking(r.Context(), actorFrom(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, penalties)
}

func (h *BookingHandler) transition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, actor domain.Actor, id int32) error) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := fn(r.Context(), actorFrom(r), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
