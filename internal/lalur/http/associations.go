package lalurhttp

import (
	"net/http"

	"github.com/Sconzo/lalur-sub001/internal/parameters"
	"github.com/Sconzo/lalur-sub001/internal/platform/httpx"
	"github.com/Sconzo/lalur-sub001/internal/shared"
)

type periodRequest struct {
	Year    int  `json:"year" validate:"gte=1900,lte=9999"`
	Month   *int `json:"month"`
	Quarter *int `json:"quarter"`
}

type associateRequest struct {
	ParameterID int64           `json:"parameterId" validate:"required,gt=0"`
	Values      []periodRequest `json:"values" validate:"dive"`
}

type periodResponse struct {
	ID      int64  `json:"id"`
	Year    int    `json:"year"`
	Month   *int   `json:"month,omitempty"`
	Quarter *int   `json:"quarter,omitempty"`
	Label   string `json:"label"`
}

type associationResponse struct {
	ID          int64            `json:"id"`
	CompanyID   int64            `json:"companyId"`
	ParameterID int64            `json:"parameterId"`
	Nature      string           `json:"nature"`
	Status      string           `json:"status"`
	Values      []periodResponse `json:"values"`
}

func (h *Handler) handleAssociate(w http.ResponseWriter, r *http.Request) {
	companyID, _, err := h.recordPath(r, "")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req associateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.BadRequest(w, "invalid JSON body")
		return
	}
	if err := h.check(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	values := make([]parameters.TemporalValue, 0, len(req.Values))
	for _, p := range req.Values {
		values = append(values, p.value())
	}
	assoc, err := h.params.Associate(r.Context(), parameters.AssociateInput{
		CompanyID:   companyID,
		ParameterID: req.ParameterID,
		ActorID:     shared.ActorFromContext(r.Context()),
		Values:      values,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toAssociationResponse(assoc))
}

func (h *Handler) handleAddValue(w http.ResponseWriter, r *http.Request) {
	companyID, associationID, err := h.recordPath(r, "associationID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req periodRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.BadRequest(w, "invalid JSON body")
		return
	}
	if err := h.check(req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	v, err := h.params.AddValue(r.Context(), companyID, associationID, req.value())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toPeriodResponse(v))
}

func (h *Handler) handleRemoveValue(w http.ResponseWriter, r *http.Request) {
	companyID, associationID, err := h.recordPath(r, "associationID")
	var valueID int64
	if err == nil {
		valueID, err = pathID(r, "valueID")
	}
	if err == nil {
		err = h.params.RemoveValue(r.Context(), companyID, associationID, valueID)
	}
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDeactivateAssociation(w http.ResponseWriter, r *http.Request) {
	companyID, associationID, err := h.recordPath(r, "associationID")
	if err == nil {
		err = h.params.Deactivate(r.Context(), companyID, associationID)
	}
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (p periodRequest) value() parameters.TemporalValue {
	return parameters.TemporalValue{Year: p.Year, Month: p.Month, Quarter: p.Quarter}
}

func toPeriodResponse(v parameters.TemporalValue) periodResponse {
	return periodResponse{ID: v.ID, Year: v.Year, Month: v.Month, Quarter: v.Quarter, Label: parameters.Label(v)}
}

func toAssociationResponse(a parameters.Association) associationResponse {
	values := make([]periodResponse, 0, len(a.Values))
	for _, v := range a.Values {
		values = append(values, toPeriodResponse(v))
	}
	return associationResponse{
		ID:          a.ID,
		CompanyID:   a.CompanyID,
		ParameterID: a.ParameterID,
		Nature:      string(a.Nature),
		Status:      string(a.Status),
		Values:      values,
	}
}
