package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/faceclock/faceclock/internal/attendance"
	"github.com/faceclock/faceclock/internal/recognize"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// envelope is the wire format of every API response. ErrorCode is stable
// and enumerable so clients branch on it instead of parsing messages.
type envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	ErrorCode string `json:"errorCode,omitempty"`
	Message   string `json:"message,omitempty"`
}

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondOK sends a success envelope.
func respondOK(w http.ResponseWriter, data any) {
	respondJSON(w, http.StatusOK, envelope{Success: true, Data: data})
}

// respondCode sends a failure envelope with a stable error code.
func respondCode(w http.ResponseWriter, status int, code attendance.Code, message string) {
	respondJSON(w, status, envelope{Success: false, ErrorCode: string(code), Message: message})
}

// respondError maps an error to its envelope. Business rejections keep
// their code and message; anything else is an INTERNAL_ERROR logged with
// the request's correlation id and never exposes internal detail.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var ae *attendance.Error
	if errors.As(err, &ae) {
		respondCode(w, statusFor(ae.Code), ae.Code, ae.Message)
		return
	}

	switch {
	case errors.Is(err, recognize.ErrNoFacesEnrolled):
		respondCode(w, http.StatusNotFound, attendance.CodeNoFacesEnrolled, "no faces enrolled yet")
	case errors.Is(err, recognize.ErrNotRecognized):
		respondCode(w, http.StatusNotFound, attendance.CodeFaceNotRecognized, "face not recognized")
	case errors.Is(err, recognize.ErrLowConfidence):
		respondCode(w, http.StatusUnprocessableEntity, attendance.CodeLowConfidence, "match confidence too low, try better lighting")
	case errors.Is(err, recognize.ErrDimensionMismatch):
		respondCode(w, http.StatusBadRequest, attendance.CodeValidationFailed, "embedding has the wrong dimension")
	case errors.Is(err, recognize.ErrMatchTimeout):
		respondCode(w, http.StatusServiceUnavailable, attendance.CodeFailedToMatch, "matching timed out, try again")
	default:
		reqID := chiMiddleware.GetReqID(r.Context())
		log.Printf("ERROR: request %s: %v", sanitizeForLog(reqID), err)
		respondCode(w, http.StatusInternalServerError, attendance.CodeInternal, "internal error")
	}
}

// statusFor picks the HTTP status for a business error code.
func statusFor(code attendance.Code) int {
	switch code {
	case attendance.CodeAlreadyCheckedIn, attendance.CodeAlreadyCheckedOut,
		attendance.CodeBreakInProgress, attendance.CodeNoActiveBreak,
		attendance.CodeNotCheckedIn:
		return http.StatusConflict
	case attendance.CodeUserInactive:
		return http.StatusForbidden
	case attendance.CodeUserNotFound:
		return http.StatusNotFound
	case attendance.CodeValidationFailed:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
