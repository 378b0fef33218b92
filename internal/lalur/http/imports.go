package lalurhttp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/Sconzo/lalur-sub001/internal/importer"
	"github.com/Sconzo/lalur-sub001/internal/platform/httpx"
	"github.com/Sconzo/lalur-sub001/internal/shared"
)

const (
	uploadField       = "file"
	idempotencyHeader = "Idempotency-Key"
)

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	s, err := parseScope(r)
	if err == nil {
		err = h.check(s)
	}
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	dryRun := false
	if raw := strings.TrimSpace(r.URL.Query().Get("dryRun")); raw != "" {
		if dryRun, err = strconv.ParseBool(raw); err != nil {
			httpx.RespondError(w, shared.NewFieldError(shared.ErrValidation, "dryRun", "invalid dryRun %q", raw))
			return
		}
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	body, closeBody, err := h.upload(r)
	if err != nil {
		h.respondUploadError(w, err)
		return
	}
	defer closeBody()

	key := strings.TrimSpace(r.Header.Get(idempotencyHeader))
	scope := fmt.Sprintf("import:%s:%d", s.Kind, s.CompanyID)
	claimed := false
	if key != "" && !dryRun && h.keys != nil {
		if err := h.keys.CheckAndInsert(r.Context(), key, scope); err != nil {
			httpx.RespondError(w, err)
			return
		}
		claimed = true
	}

	report, err := h.imports.Run(r.Context(), s.Kind, body, importer.Options{
		CompanyID:  s.CompanyID,
		FiscalYear: s.FiscalYear,
		DryRun:     dryRun,
	})
	if err != nil && claimed && report.ProcessedLines == 0 {
		if derr := h.keys.Delete(context.WithoutCancel(r.Context()), key, scope); derr != nil {
			h.logger.Warn("release idempotency key", slog.String("scope", scope), slog.Any("error", derr))
		}
	}
	if err != nil {
		if tooLarge(err) {
			h.respondUploadError(w, err)
			return
		}
		if shared.KindOf(err) == shared.KindInternal {
			h.logger.Error("import failed", slog.String("kind", s.Kind), slog.Int64("company_id", s.CompanyID),
				slog.String("run_id", report.RunID), slog.Any("error", err))
		}
		if report.TotalLines > 0 {
			httpx.RespondErrorWithReport(w, err, report)
			return
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

// upload returns the CSV payload from a multipart "file" part or a raw text/csv body.
func (h *Handler) upload(r *http.Request) (io.Reader, func(), error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		if mediaType == "text/csv" || mediaType == "text/plain" {
			return r.Body, func() {}, nil
		}
		return nil, nil, shared.NewFieldError(shared.ErrMissingParameter, uploadField, "expected a multipart upload with a %q part", uploadField)
	}
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		return nil, nil, err
	}
	file, _, err := r.FormFile(uploadField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil, shared.NewFieldError(shared.ErrMissingParameter, uploadField, "file is required")
		}
		return nil, nil, err
	}
	return file, func() { _ = file.Close() }, nil
}

func (h *Handler) respondUploadError(w http.ResponseWriter, err error) {
	if tooLarge(err) {
		httpx.Problem(w, http.StatusRequestEntityTooLarge, http.StatusText(http.StatusRequestEntityTooLarge),
			"upload exceeds "+strconv.FormatInt(h.maxUpload, 10)+" bytes")
		return
	}
	httpx.RespondError(w, err)
}

func tooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
