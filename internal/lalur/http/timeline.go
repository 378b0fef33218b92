package lalurhttp

import (
	"net/http"

	"github.com/Sconzo/lalur-sub001/internal/platform/httpx"
)

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	s, err := parseScope(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	groups, err := h.params.Timeline(r.Context(), s.CompanyID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, groups)
}
