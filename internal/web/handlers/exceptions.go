package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/faceclock/faceclock/internal/attendance"
	"github.com/faceclock/faceclock/internal/database"
	"github.com/faceclock/faceclock/internal/exceptions"
)

// ExceptionHandler serves the exception-request endpoints.
type ExceptionHandler struct {
	processor *exceptions.Processor
}

// NewExceptionHandler wires the handler.
func NewExceptionHandler(processor *exceptions.Processor) *ExceptionHandler {
	return &ExceptionHandler{processor: processor}
}

type submitExceptionRequest struct {
	EmployeeID        string `json:"employeeId"`
	Date              string `json:"date"` // YYYY-MM-DD
	Type              string `json:"type"`
	Reason            string `json:"reason"`
	DocumentRef       string `json:"documentRef,omitempty"`
	DeviationMinutes  int    `json:"deviationMinutes"`
	RequestAdjustment bool   `json:"requestAdjustment"`
}

type exceptionResponse struct {
	ID                 string  `json:"id"`
	EmployeeID         string  `json:"employeeId"`
	Date               string  `json:"date"`
	Type               string  `json:"type"`
	Status             string  `json:"status"`
	AdjustmentMinutes  int     `json:"adjustmentMinutes"`
	SalaryDeduction    float64 `json:"salaryDeduction"`
	PerformancePenalty float64 `json:"performancePenalty"`
	DecidedBy          string  `json:"decidedBy,omitempty"`
}

func toExceptionResponse(exc *database.StoredException) exceptionResponse {
	return exceptionResponse{
		ID:                 exc.ID,
		EmployeeID:         exc.EmployeeID,
		Date:               exc.Date.Format("2006-01-02"),
		Type:               exc.Type,
		Status:             string(exc.Status),
		AdjustmentMinutes:  exc.AdjustmentMinutes,
		SalaryDeduction:    exc.SalaryDeduction,
		PerformancePenalty: exc.PerformancePenalty,
		DecidedBy:          exc.DecidedBy,
	}
}

// Submit handles POST /api/exceptions.
func (h *ExceptionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitExceptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondCode(w, http.StatusBadRequest, attendance.CodeValidationFailed, errInvalidRequestBody)
		return
	}
	date, err := time.ParseInLocation("2006-01-02", req.Date, h.processor.Location())
	if err != nil {
		respondCode(w, http.StatusBadRequest, attendance.CodeValidationFailed, "date must be YYYY-MM-DD")
		return
	}

	exc, err := h.processor.Submit(r.Context(), &database.StoredException{
		EmployeeID:        req.EmployeeID,
		Date:              date,
		Type:              req.Type,
		Reason:            req.Reason,
		DocumentRef:       req.DocumentRef,
		DeviationMinutes:  req.DeviationMinutes,
		RequestAdjustment: req.RequestAdjustment,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, toExceptionResponse(exc))
}

type decideRequest struct {
	Approver string `json:"approver"`
	Approve  bool   `json:"approve"`
	Note     string `json:"note,omitempty"`
}

// Decide handles POST /api/exceptions/{id}/decide.
func (h *ExceptionHandler) Decide(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req decideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondCode(w, http.StatusBadRequest, attendance.CodeValidationFailed, errInvalidRequestBody)
		return
	}
	if req.Approver == "" {
		respondCode(w, http.StatusBadRequest, attendance.CodeValidationFailed, "approver is required")
		return
	}

	exc, err := h.processor.Decide(r.Context(), id, req.Approver, req.Approve, req.Note)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, toExceptionResponse(exc))
}

// Pending handles GET /api/exceptions/pending?org={orgID}.
func (h *ExceptionHandler) Pending(w http.ResponseWriter, r *http.Request) {
	orgID := r.URL.Query().Get("org")
	if orgID == "" {
		respondCode(w, http.StatusBadRequest, attendance.CodeValidationFailed, "org query parameter is required")
		return
	}

	pending, err := h.processor.Pending(r.Context(), orgID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]exceptionResponse, 0, len(pending))
	for i := range pending {
		out = append(out, toExceptionResponse(&pending[i]))
	}
	respondOK(w, out)
}
