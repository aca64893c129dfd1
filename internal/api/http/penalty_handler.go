package http

import (
	"net/http"

	"evrental-backend/internal/domain"
	"evrental-backend/internal/service"
)

type PenaltyHandler struct {
	penalties service.PenaltyService
}

func NewPenaltyHandler(penalties service.PenaltyService) *PenaltyHandler {
	return &PenaltyHandler{penalties: penalties}
}

func (h *PenaltyHandler) Accrue(w http.ResponseWriter, r *http.Request) {
	var penalty domain.Penalty
	if err := decodeBody(r, &penalty); err != nil {
		writeError(w, err)
		return
	}
	if err := h.penalties.Accrue(r.Context(), actorFrom(r), &penalty); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, penalty)
}

func (h *PenaltyHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	penalty, err := h.penalties.Get(r.Context(), actorFrom(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, penalty)
}

func (h *PenaltyHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)
	penalties, total, err := h.penalties.ListMine(r.Context(), actorFrom(r), page, pageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Items: penalties, Total: total, Page: page})
}

func (h *PenaltyHandler) Waive(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.penalties.Waive(r.Context(), actorFrom(r), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *PenaltyHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		PaidAmountCents int32 `json:"paid_amount_cents"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.penalties.MarkPaid(r.Context(), actorFrom(r), id, req.PaidAmountCents); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *PenaltyHandler) Remove(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.penalties.Remove(r.Context(), actorFrom(r), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *PenaltyHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.penalties.Statistics(r.Context(), actorFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
