package lalurhttp

import (
	"net/http"
	"time"

	"github.com/Sconzo/lalur-sub001/internal/periodlock"
	"github.com/Sconzo/lalur-sub001/internal/platform/httpx"
	"github.com/Sconzo/lalur-sub001/internal/shared"
)

type advanceRequest struct {
	Cutoff string `json:"cutoff" validate:"required,datetime=2006-01-02"`
}

type cutoffResponse struct {
	CompanyID int64  `json:"companyId"`
	Cutoff    string `json:"cutoff,omitempty"`
}

type changeResponse struct {
	ID             int64  `json:"id"`
	PreviousCutoff string `json:"previousCutoff,omitempty"`
	NewCutoff      string `json:"newCutoff"`
	ChangedBy      int64  `json:"changedBy,omitempty"`
	ChangedAt      string `json:"changedAt"`
}

func (h *Handler) handleGetCutoff(w http.ResponseWriter, r *http.Request) {
	s, err := parseScope(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	cutoff, err := h.cutoffs.Cutoff(r.Context(), s.CompanyID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, cutoffResponse{CompanyID: s.CompanyID, Cutoff: formatDate(cutoff)})
}

func (h *Handler) handleAdvanceCutoff(w http.ResponseWriter, r *http.Request) {
	s, err := parseScope(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req advanceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.BadRequest(w, "invalid JSON body")
		return
	}
	if err := h.check(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	next, _ := time.Parse(time.DateOnly, req.Cutoff)
	change, err := h.cutoffs.AdvanceCutoff(r.Context(), periodlock.AdvanceInput{
		CompanyID: s.CompanyID,
		NewCutoff: next,
		ActorID:   shared.ActorFromContext(r.Context()),
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.ObserveCutoffAdvance()
	}
	httpx.JSON(w, http.StatusOK, toChangeResponse(change))
}

func (h *Handler) handleCutoffHistory(w http.ResponseWriter, r *http.Request) {
	s, err := parseScope(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	changes, err := h.cutoffs.History(r.Context(), s.CompanyID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]changeResponse, 0, len(changes))
	for _, c := range changes {
		out = append(out, toChangeResponse(c))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func toChangeResponse(c periodlock.Change) changeResponse {
	return changeResponse{
		ID:             c.ID,
		PreviousCutoff: formatDate(c.Previous),
		NewCutoff:      formatDate(c.New),
		ChangedBy:      c.ChangedBy,
		ChangedAt:      c.ChangedAt.UTC().Format(time.RFC3339),
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}
