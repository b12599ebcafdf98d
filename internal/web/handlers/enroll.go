package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/faceclock/faceclock/internal/attendance"
	"github.com/faceclock/faceclock/internal/database"
	"github.com/faceclock/faceclock/internal/recognize"
)

// EnrollHandler serves the enrollment endpoints. A capture only enters
// the embedding store after passing the quality gate; the probe path at
// check-in never goes through this gate.
type EnrollHandler struct {
	embeddings database.EmbeddingWriter
	matches    *recognize.Service
	scorer     *recognize.QualityScorer
	directory  database.Directory
	dim        int
	model      string
}

// NewEnrollHandler wires the handler.
func NewEnrollHandler(
	embeddings database.EmbeddingWriter,
	matches *recognize.Service,
	scorer *recognize.QualityScorer,
	directory database.Directory,
	dim int,
	model string,
) *EnrollHandler {
	return &EnrollHandler{
		embeddings: embeddings,
		matches:    matches,
		scorer:     scorer,
		directory:  directory,
		dim:        dim,
		model:      model,
	}
}

type enrollRequest struct {
	EmployeeID string                     `json:"employeeId"`
	Embedding  []float32                  `json:"embedding"`
	Detection  *recognize.DetectionResult `json:"detection"`
	CapturedAt string                     `json:"capturedAt,omitempty"` // RFC 3339, empty means now
}

type enrollResponse struct {
	EmbeddingID int64                    `json:"embeddingId"`
	Quality     *recognize.QualityReport `json:"quality"`
}

// Enroll handles POST /api/enroll.
func (h *EnrollHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	var req enrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondCode(w, http.StatusBadRequest, attendance.CodeValidationFailed, errInvalidRequestBody)
		return
	}
	if req.EmployeeID == "" {
		respondCode(w, http.StatusBadRequest, attendance.CodeValidationFailed, "employee id is required")
		return
	}
	if len(req.Embedding) != h.dim {
		respondCode(w, http.StatusBadRequest, attendance.CodeValidationFailed, "embedding has the wrong dimension")
		return
	}
	if req.Detection == nil {
		respondCode(w, http.StatusBadRequest, attendance.CodeValidationFailed, "detection result is required")
		return
	}

	employee, err := h.directory.GetEmployee(r.Context(), req.EmployeeID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if employee == nil {
		respondCode(w, http.StatusNotFound, attendance.CodeUserNotFound, "employee not found")
		return
	}
	if !employee.Active {
		respondCode(w, http.StatusForbidden, attendance.CodeUserInactive, "employee is deactivated")
		return
	}

	report := h.scorer.Score(req.Detection)
	if !report.IsGoodQuality {
		// Failed captures return the full report so the kiosk can guide
		// the operator (move closer, face the camera, ...).
		respondJSON(w, http.StatusUnprocessableEntity, envelope{
			Success:   false,
			ErrorCode: string(attendance.CodeValidationFailed),
			Message:   "capture quality too low",
			Data:      enrollResponse{Quality: report},
		})
		return
	}

	capturedAt := time.Now()
	if req.CapturedAt != "" {
		parsed, err := time.Parse(time.RFC3339, req.CapturedAt)
		if err != nil {
			respondCode(w, http.StatusBadRequest, attendance.CodeValidationFailed, "capturedAt must be RFC 3339")
			return
		}
		capturedAt = parsed
	}

	emb := database.StoredEmbedding{
		EmployeeID: req.EmployeeID,
		Embedding:  req.Embedding,
		Model:      h.model,
		Dim:        h.dim,
		Quality:    report.Score,
		CapturedAt: capturedAt,
	}
	if err := h.embeddings.SaveEmbedding(r.Context(), &emb); err != nil {
		respondError(w, r, err)
		return
	}
	h.matches.Append(emb)

	respondOK(w, enrollResponse{EmbeddingID: emb.ID, Quality: report})
}

type revokeRequest struct {
	EmbeddingID int64 `json:"embeddingId"`
}

// Revoke handles POST /api/enroll/revoke. The embedding row stays; it is
// only excluded from matching from now on.
func (h *EnrollHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	var req revokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondCode(w, http.StatusBadRequest, attendance.CodeValidationFailed, errInvalidRequestBody)
		return
	}
	if req.EmbeddingID <= 0 {
		respondCode(w, http.StatusBadRequest, attendance.CodeValidationFailed, "embedding id is required")
		return
	}

	if err := h.embeddings.RevokeEmbedding(r.Context(), req.EmbeddingID); err != nil {
		respondError(w, r, err)
		return
	}
	if err := h.matches.Reload(r.Context(), h.embeddings); err != nil {
		respondError(w, r, err)
		return
	}
	respondOK(w, map[string]int64{"revoked": req.EmbeddingID})
}
