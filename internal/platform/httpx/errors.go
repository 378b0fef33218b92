// Package httpx provides HTTP response utilities.
package httpx

import (
	"net/http"

	"github.com/Sconzo/lalur-sub001/internal/shared"
)

var kindStatus = map[shared.Kind]int{
	shared.KindNotFound:                http.StatusNotFound,
	shared.KindDuplicateConstraint:     http.StatusConflict,
	shared.KindDuplicateTemporalValue:  http.StatusConflict,
	shared.KindPeriodLockViolation:     http.StatusConflict,
	shared.KindEmptyFile:               http.StatusBadRequest,
	shared.KindMissingParameter:        http.StatusBadRequest,
	shared.KindMalformedRow:            http.StatusBadRequest,
	shared.KindUnexpectedTemporalValue: http.StatusUnprocessableEntity,
	shared.KindInvalidTemporalValue:    http.StatusUnprocessableEntity,
	shared.KindInvalidCutoff:           http.StatusUnprocessableEntity,
	shared.KindUnresolvedReference:     http.StatusUnprocessableEntity,
	shared.KindDoubleEntryViolation:    http.StatusUnprocessableEntity,
	shared.KindInvalidAmount:           http.StatusUnprocessableEntity,
	shared.KindFiscalYearMismatch:      http.StatusUnprocessableEntity,
	shared.KindConditionalFKViolation:  http.StatusUnprocessableEntity,
	shared.KindValidation:              http.StatusBadRequest,
}

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	RespondErrorWithReport(w, err, nil)
}

// RespondErrorWithReport is RespondError with a partial report attached.
func RespondErrorWithReport(w http.ResponseWriter, err error, report any) {
	kind := shared.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	JSON(w, status, ProblemDetail{
		Type:   string(kind),
		Title:  http.StatusText(status),
		Status: status,
		Detail: shared.PublicMessage(err),
		Field:  shared.FieldOf(err),
		Report: report,
	})
}
