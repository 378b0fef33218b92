package lalurhttp

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/Sconzo/lalur-sub001/internal/exporter"
	"github.com/Sconzo/lalur-sub001/internal/platform/httpx"
	"github.com/Sconzo/lalur-sub001/internal/shared"
)

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	s, err := parseScope(r)
	if err == nil {
		err = h.check(s)
	}
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportFilename(s)))
	res, err := h.exports.Export(r.Context(), w, s.Kind, exporter.Query{
		CompanyID:  s.CompanyID,
		FiscalYear: s.FiscalYear,
		From:       s.From,
		To:         s.To,
	})
	if err != nil {
		w.Header().Del("Content-Disposition")
		if shared.KindOf(err) == shared.KindInternal {
			h.logger.Error("export failed", slog.String("kind", s.Kind), slog.Int64("company_id", s.CompanyID), slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	h.logger.Debug("export served", slog.String("kind", res.Kind), slog.Int("rows", res.Rows))
}

func exportFilename(s scope) string {
	return fmt.Sprintf("%s-%d-%d.csv", s.Kind, s.CompanyID, s.FiscalYear)
}
