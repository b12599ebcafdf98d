package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/faceclock/faceclock/internal/attendance"
	"github.com/faceclock/faceclock/internal/database"
	"github.com/faceclock/faceclock/internal/recognize"
)

// AttendanceHandler serves the face-triggered and manual attendance
// endpoints. Face events run the embedding through the matcher first;
// manual events carry an employee id and are marked unverified.
type AttendanceHandler struct {
	matches      *recognize.Service
	engine       *attendance.Engine
	matchTimeout time.Duration
}

// NewAttendanceHandler wires the handler.
func NewAttendanceHandler(matches *recognize.Service, engine *attendance.Engine, matchTimeout time.Duration) *AttendanceHandler {
	if matchTimeout <= 0 {
		matchTimeout = 3 * time.Second
	}
	return &AttendanceHandler{
		matches:      matches,
		engine:       engine,
		matchTimeout: matchTimeout,
	}
}

// faceEventRequest is the body of the face-triggered endpoints.
type faceEventRequest struct {
	Embedding []float32 `json:"embedding"`
	Location  string    `json:"location,omitempty"`
}

// manualEventRequest is the body of the admin manual-entry endpoint.
type manualEventRequest struct {
	EmployeeID string `json:"employeeId"`
	Kind       string `json:"kind"`
	Timestamp  string `json:"timestamp,omitempty"` // RFC 3339, empty means now
	Location   string `json:"location,omitempty"`
}

// eventResponse is returned by all event-recording endpoints.
type eventResponse struct {
	Match *matchInfo            `json:"match,omitempty"`
	Day   *attendance.DayRecord `json:"day"`
}

type matchInfo struct {
	EmployeeID string  `json:"employeeId"`
	Confidence float64 `json:"confidence"`
	Tier       string  `json:"tier"`
}

// CheckIn handles POST /api/checkin.
func (h *AttendanceHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	h.recordFaceEvent(w, r, database.EventCheckIn)
}

// CheckOut handles POST /api/checkout.
func (h *AttendanceHandler) CheckOut(w http.ResponseWriter, r *http.Request) {
	h.recordFaceEvent(w, r, database.EventCheckOut)
}

// BreakStart handles POST /api/break/start.
func (h *AttendanceHandler) BreakStart(w http.ResponseWriter, r *http.Request) {
	h.recordFaceEvent(w, r, database.EventBreakStart)
}

// BreakEnd handles POST /api/break/end.
func (h *AttendanceHandler) BreakEnd(w http.ResponseWriter, r *http.Request) {
	h.recordFaceEvent(w, r, database.EventBreakEnd)
}

func (h *AttendanceHandler) recordFaceEvent(w http.ResponseWriter, r *http.Request, kind database.EventKind) {
	var req faceEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondCode(w, http.StatusBadRequest, attendance.CodeValidationFailed, errInvalidRequestBody)
		return
	}
	if len(req.Embedding) == 0 {
		respondCode(w, http.StatusBadRequest, attendance.CodeValidationFailed, "embedding is required")
		return
	}

	matchCtx, cancel := context.WithTimeout(r.Context(), h.matchTimeout)
	defer cancel()

	match, err := h.matches.FindBestMatch(matchCtx, req.Embedding)
	if err != nil {
		respondError(w, r, err)
		return
	}

	confidence := match.Confidence
	day, err := h.engine.Record(r.Context(), attendance.RecordRequest{
		EmployeeID: match.EmployeeID,
		Kind:       kind,
		Location:   req.Location,
		Confidence: &confidence,
		Verified:   true,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondOK(w, eventResponse{
		Match: &matchInfo{
			EmployeeID: match.EmployeeID,
			Confidence: match.Confidence,
			Tier:       string(match.Tier),
		},
		Day: day,
	})
}

// ManualEvent handles POST /api/manual. Manual entries skip the matcher
// and are recorded unverified for later review.
func (h *AttendanceHandler) ManualEvent(w http.ResponseWriter, r *http.Request) {
	var req manualEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondCode(w, http.StatusBadRequest, attendance.CodeValidationFailed, errInvalidRequestBody)
		return
	}

	var ts time.Time
	if req.Timestamp != "" {
		parsed, err := time.Parse(time.RFC3339, req.Timestamp)
		if err != nil {
			respondCode(w, http.StatusBadRequest, attendance.CodeValidationFailed, "timestamp must be RFC 3339")
			return
		}
		ts = parsed
	}

	day, err := h.engine.Record(r.Context(), attendance.RecordRequest{
		EmployeeID: req.EmployeeID,
		Kind:       database.EventKind(req.Kind),
		Timestamp:  ts,
		Location:   req.Location,
		Verified:   false,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, eventResponse{Day: day})
}

// Status handles GET /api/status/{employeeID}. Returns the current day's
// derived record.
func (h *AttendanceHandler) Status(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "employeeID")
	day, err := h.engine.Status(r.Context(), employeeID, time.Now())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, day)
}

// Day handles GET /api/day/{employeeID}/{date}. Date is YYYY-MM-DD,
// interpreted in the business time zone.
func (h *AttendanceHandler) Day(w http.ResponseWriter, r *http.Request) {
	employeeID := chi.URLParam(r, "employeeID")
	date, err := time.ParseInLocation("2006-01-02", chi.URLParam(r, "date"), h.engine.Location())
	if err != nil {
		respondCode(w, http.StatusBadRequest, attendance.CodeValidationFailed, "date must be YYYY-MM-DD")
		return
	}

	day, err := h.engine.Status(r.Context(), employeeID, date)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, day)
}
