package lalurhttp

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/Sconzo/lalur-sub001/internal/adjustments"
	"github.com/Sconzo/lalur-sub001/internal/ledger"
	"github.com/Sconzo/lalur-sub001/internal/platform/httpx"
	"github.com/Sconzo/lalur-sub001/internal/shared"
)

type entryRequest struct {
	DebitAccountID  int64           `json:"debitAccountId"`
	CreditAccountID int64           `json:"creditAccountId"`
	ReferenceDate   string          `json:"referenceDate" validate:"required,datetime=2006-01-02"`
	Amount          decimal.Decimal `json:"amount"`
	Memo            string          `json:"memo"`
	DocumentNumber  *string         `json:"documentNumber"`
	FiscalYear      int             `json:"fiscalYear"`
}

type entryResponse struct {
	ID              int64   `json:"id"`
	CompanyID       int64   `json:"companyId"`
	DebitAccountID  int64   `json:"debitAccountId"`
	CreditAccountID int64   `json:"creditAccountId"`
	ReferenceDate   string  `json:"referenceDate"`
	Amount          string  `json:"amount"`
	Memo            string  `json:"memo"`
	DocumentNumber  *string `json:"documentNumber,omitempty"`
	FiscalYear      int     `json:"fiscalYear"`
	Status          string  `json:"status"`
}

type adjustmentRequest struct {
	Month               int             `json:"month"`
	Year                int             `json:"year"`
	Apportionment       string          `json:"apportionment"`
	Relationship        string          `json:"relationship"`
	LedgerAccountID     *int64          `json:"ledgerAccountId"`
	AdjustmentAccountID *int64          `json:"adjustmentAccountId"`
	TaxParameterID      int64           `json:"taxParameterId"`
	Direction           string          `json:"direction"`
	Description         string          `json:"description"`
	Amount              decimal.Decimal `json:"amount"`
}

type adjustmentResponse struct {
	ID                  int64  `json:"id"`
	CompanyID           int64  `json:"companyId"`
	Month               int    `json:"month"`
	Year                int    `json:"year"`
	Apportionment       string `json:"apportionment"`
	Relationship        string `json:"relationship"`
	LedgerAccountID     *int64 `json:"ledgerAccountId,omitempty"`
	AdjustmentAccountID *int64 `json:"adjustmentAccountId,omitempty"`
	TaxParameterID      int64  `json:"taxParameterId"`
	Direction           string `json:"direction"`
	Description         string `json:"description"`
	Amount              string `json:"amount"`
	Status              string `json:"status"`
}

func (h *Handler) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	companyID, id, err := h.recordPath(r, "entryID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	e, err := h.ledger.Get(r.Context(), companyID, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toEntryResponse(e))
}

func (h *Handler) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	companyID, _, err := h.recordPath(r, "")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	e, ok := h.decodeEntry(w, r, companyID)
	if !ok {
		return
	}
	created, err := h.ledger.Create(r.Context(), e)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toEntryResponse(created))
}

func (h *Handler) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	companyID, id, err := h.recordPath(r, "entryID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	e, ok := h.decodeEntry(w, r, companyID)
	if !ok {
		return
	}
	e.ID = id
	updated, err := h.ledger.Update(r.Context(), e)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toEntryResponse(updated))
}

func (h *Handler) handleDeactivateEntry(w http.ResponseWriter, r *http.Request) {
	companyID, id, err := h.recordPath(r, "entryID")
	if err == nil {
		err = h.ledger.Deactivate(r.Context(), companyID, id)
	}
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleCreateAdjustment(w http.ResponseWriter, r *http.Request) {
	companyID, _, err := h.recordPath(r, "")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	a, ok := h.decodeAdjustment(w, r, companyID)
	if !ok {
		return
	}
	created, err := h.adjustments.Create(r.Context(), a)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toAdjustmentResponse(created))
}

func (h *Handler) handleUpdateAdjustment(w http.ResponseWriter, r *http.Request) {
	companyID, id, err := h.recordPath(r, "adjustmentID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	a, ok := h.decodeAdjustment(w, r, companyID)
	if !ok {
		return
	}
	a.ID = id
	updated, err := h.adjustments.Update(r.Context(), a)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toAdjustmentResponse(updated))
}

func (h *Handler) handleDeactivateAdjustment(w http.ResponseWriter, r *http.Request) {
	companyID, id, err := h.recordPath(r, "adjustmentID")
	if err == nil {
		err = h.adjustments.Deactivate(r.Context(), companyID, id)
	}
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// recordPath reads the company and, when param is set, the record id from the URL.
func (h *Handler) recordPath(r *http.Request, param string) (int64, int64, error) {
	s, err := parseScope(r)
	if err == nil {
		err = h.check(s)
	}
	if err != nil || param == "" {
		return s.CompanyID, 0, err
	}
	id, err := pathID(r, param)
	return s.CompanyID, id, err
}

func pathID(r *http.Request, param string) (int64, error) {
	raw := chi.URLParam(r, param)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		field := strings.TrimSuffix(param, "ID") + "Id"
		return 0, shared.NewFieldError(shared.ErrValidation, field, "invalid %s %q", field, raw)
	}
	return id, nil
}

func (h *Handler) decodeEntry(w http.ResponseWriter, r *http.Request, companyID int64) (ledger.Entry, bool) {
	var req entryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.BadRequest(w, "invalid JSON body")
		return ledger.Entry{}, false
	}
	if err := h.check(req); err != nil {
		httpx.RespondError(w, err)
		return ledger.Entry{}, false
	}
	date, _ := time.Parse(time.DateOnly, req.ReferenceDate)
	fy := req.FiscalYear
	if fy == 0 {
		fy = date.Year()
	}
	return ledger.Entry{
		CompanyID:       companyID,
		DebitAccountID:  req.DebitAccountID,
		CreditAccountID: req.CreditAccountID,
		Date:            date,
		Amount:          req.Amount,
		Memo:            req.Memo,
		DocumentNumber:  req.DocumentNumber,
		FiscalYear:      fy,
	}, true
}

func (h *Handler) decodeAdjustment(w http.ResponseWriter, r *http.Request, companyID int64) (adjustments.Adjustment, bool) {
	var req adjustmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.BadRequest(w, "invalid JSON body")
		return adjustments.Adjustment{}, false
	}
	apportionment, err := adjustments.ParseApportionment(req.Apportionment)
	if err != nil {
		httpx.RespondError(w, err)
		return adjustments.Adjustment{}, false
	}
	relationship, err := adjustments.ParseRelationship(req.Relationship)
	if err != nil {
		httpx.RespondError(w, err)
		return adjustments.Adjustment{}, false
	}
	direction, err := adjustments.ParseDirection(req.Direction)
	if err != nil {
		httpx.RespondError(w, err)
		return adjustments.Adjustment{}, false
	}
	return adjustments.Adjustment{
		CompanyID:           companyID,
		Month:               req.Month,
		Year:                req.Year,
		Apportionment:       apportionment,
		Relationship:        relationship,
		LedgerAccountID:     req.LedgerAccountID,
		AdjustmentAccountID: req.AdjustmentAccountID,
		TaxParameterID:      req.TaxParameterID,
		Direction:           direction,
		Description:         req.Description,
		Amount:              req.Amount,
	}, true
}

func toEntryResponse(e ledger.Entry) entryResponse {
	return entryResponse{
		ID:              e.ID,
		CompanyID:       e.CompanyID,
		DebitAccountID:  e.DebitAccountID,
		CreditAccountID: e.CreditAccountID,
		ReferenceDate:   e.Date.Format(time.DateOnly),
		Amount:          e.Amount.StringFixed(shared.AmountScale),
		Memo:            e.Memo,
		DocumentNumber:  e.DocumentNumber,
		FiscalYear:      e.FiscalYear,
		Status:          string(e.Status),
	}
}

func toAdjustmentResponse(a adjustments.Adjustment) adjustmentResponse {
	return adjustmentResponse{
		ID:                  a.ID,
		CompanyID:           a.CompanyID,
		Month:               a.Month,
		Year:                a.Year,
		Apportionment:       string(a.Apportionment),
		Relationship:        string(a.Relationship),
		LedgerAccountID:     a.LedgerAccountID,
		AdjustmentAccountID: a.AdjustmentAccountID,
		TaxParameterID:      a.TaxParameterID,
		Direction:           string(a.Direction),
		Description:         a.Description,
		Amount:              a.Amount.StringFixed(shared.AmountScale),
		Status:              string(a.Status),
	}
}
