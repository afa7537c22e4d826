/**
 * @description
 * HTTP handlers for the billing service.
 */
package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/repotrack/billing-service/internal/app"
	"github.com/repotrack/billing-service/internal/domain"
)

// Handler holds the application service that handlers will interact with.
type Handler struct {
	service app.Service
}

// NewHandler creates a new Handler with the given service.
func NewHandler(service app.Service) *Handler {
	return &Handler{service: service}
}

type setRateRequest struct {
	Tier        string          `json:"tier"`
	PerHeadRate decimal.Decimal `json:"per_head_rate"`
	ServiceRate decimal.Decimal `json:"service_rate"`
	Notes       string          `json:"notes"`
}

func (h *Handler) handleSetRate(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req setRateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	tier, err := domain.ParseTier(req.Tier)
	if err != nil {
		respondWithError(w, err)
		return
	}

	rc, err := h.service.SetRate(r.Context(), tier, req.PerHeadRate, req.ServiceRate, req.Notes, actor)
	if err != nil {
		log.Printf("Error setting rate for tier %s: %v", tier, err)
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, rc)
}

func (h *Handler) handleGetActiveRate(w http.ResponseWriter, r *http.Request) {
	tier, err := domain.ParseTier(r.URL.Query().Get("tier"))
	if err != nil {
		respondWithError(w, err)
		return
	}

	rc, err := h.service.GetActiveRate(r.Context(), tier)
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, rc)
}

func (h *Handler) handleListRates(w http.ResponseWriter, r *http.Request) {
	tier, err := domain.ParseTier(r.URL.Query().Get("tier"))
	if err != nil {
		respondWithError(w, err)
		return
	}

	rates, err := h.service.ListRates(r.Context(), tier)
	if err != nil {
		log.Printf("Error listing rates for tier %s: %v", tier, err)
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, rates)
}

type generateRequest struct {
	PayeeID string `json:"payee_id"`
	Tier    string `json:"tier"`
	Period  string `json:"period"`
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	// Reached via the JWT surface (payee defaults to the caller) or the
	// internal surface (payee must be supplied).
	actor, authenticated := ActorFromContext(r.Context())

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	tier, err := domain.ParseTier(req.Tier)
	if err != nil {
		respondWithError(w, err)
		return
	}
	period, err := domain.ParsePeriod(req.Period)
	if err != nil {
		respondWithError(w, err)
		return
	}

	payeeID := actor.ID
	if req.PayeeID != "" {
		payeeID, err = uuid.Parse(req.PayeeID)
		if err != nil {
			http.Error(w, "Invalid payee ID", http.StatusBadRequest)
			return
		}
	} else if !authenticated {
		http.Error(w, "Payee ID is required", http.StatusBadRequest)
		return
	}

	result, err := h.service.Generate(r.Context(), payeeID, tier, period, actor)
	if err != nil {
		log.Printf("Error generating billing records for payee %s period %s: %v", payeeID, req.Period, err)
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

func (h *Handler) handleListRecords(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	filter, err := recordFilterFromQuery(r)
	if err != nil {
		respondWithError(w, err)
		return
	}

	records, err := h.service.ListRecords(r.Context(), actor.ID, filter)
	if err != nil {
		log.Printf("Error listing billing records for payee %s: %v", actor.ID, err)
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, records)
}

func (h *Handler) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	recordID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid record ID", http.StatusBadRequest)
		return
	}

	rec, err := h.service.GetRecord(r.Context(), recordID)
	if err != nil {
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, rec)
}

type submitProofRequest struct {
	BillingRecordID      string          `json:"billing_record_id,omitempty"`
	PayeeID              string          `json:"payee_id"`
	ProofType            string          `json:"proof_type"`
	ImageBase64          string          `json:"image_base64,omitempty"`
	TransactionReference string          `json:"transaction_reference,omitempty"`
	ClaimedAmount        decimal.Decimal `json:"claimed_amount"`
	ClaimedPaymentDate   string          `json:"claimed_payment_date"`
	Notes                string          `json:"notes,omitempty"`
}

func (h *Handler) handleSubmitProof(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req submitProofRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	in := app.SubmitProofInput{
		PayerID:              actor.ID,
		ProofType:            domain.ProofType(req.ProofType),
		TransactionReference: req.TransactionReference,
		ClaimedAmount:        req.ClaimedAmount,
		Notes:                req.Notes,
	}

	payeeID, err := uuid.Parse(req.PayeeID)
	if err != nil {
		http.Error(w, "Invalid payee ID", http.StatusBadRequest)
		return
	}
	in.PayeeID = payeeID

	if req.BillingRecordID != "" {
		recordID, err := uuid.Parse(req.BillingRecordID)
		if err != nil {
			http.Error(w, "Invalid billing record ID", http.StatusBadRequest)
			return
		}
		in.BillingRecordID = &recordID
	}

	if req.ImageBase64 != "" {
		image, err := base64.StdEncoding.DecodeString(req.ImageBase64)
		if err != nil {
			http.Error(w, "Invalid image encoding", http.StatusBadRequest)
			return
		}
		in.Image = image
	}

	if req.ClaimedPaymentDate != "" {
		paymentDate, err := parseDate(req.ClaimedPaymentDate)
		if err != nil {
			http.Error(w, "Invalid claimed payment date", http.StatusBadRequest)
			return
		}
		in.ClaimedPaymentDate = paymentDate
	}

	proof, err := h.service.SubmitProof(r.Context(), in)
	if err != nil {
		log.Printf("Error submitting proof from payer %s: %v", actor.ID, err)
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, proof)
}

func (h *Handler) handleListProofs(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var status *domain.ProofStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		st := domain.ProofStatus(raw)
		status = &st
	}

	proofs, err := h.service.ListProofs(r.Context(), actor.ID, status)
	if err != nil {
		log.Printf("Error listing proofs for payee %s: %v", actor.ID, err)
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, proofs)
}

type reviewProofRequest struct {
	Decision        string `json:"decision"`
	ReviewerNotes   string `json:"reviewer_notes,omitempty"`
	BillingRecordID string `json:"billing_record_id,omitempty"`
}

func (h *Handler) handleReviewProof(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	proofID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid proof ID", http.StatusBadRequest)
		return
	}

	var req reviewProofRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var recordID *uuid.UUID
	if req.BillingRecordID != "" {
		id, err := uuid.Parse(req.BillingRecordID)
		if err != nil {
			http.Error(w, "Invalid billing record ID", http.StatusBadRequest)
			return
		}
		recordID = &id
	}

	proof, err := h.service.ReviewProof(r.Context(), proofID, actor.ID, domain.ReviewDecision(req.Decision), req.ReviewerNotes, recordID)
	if err != nil {
		log.Printf("Error reviewing proof %s: %v", proofID, err)
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, proof)
}

type uploadQRRequest struct {
	ImageBase64 string `json:"image_base64"`
	Description string `json:"description,omitempty"`
}

func (h *Handler) handleUploadQR(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req uploadQRRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var image []byte
	if req.ImageBase64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(req.ImageBase64)
		if err != nil {
			http.Error(w, "Invalid image encoding", http.StatusBadRequest)
			return
		}
		image = decoded
	}

	qr, err := h.service.UploadQR(r.Context(), actor.ID, image, req.Description)
	if err != nil {
		log.Printf("Error uploading QR for owner %s: %v", actor.ID, err)
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, qr)
}

func (h *Handler) handleListQRs(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	qrs, err := h.service.ListQRs(r.Context(), actor.ID)
	if err != nil {
		log.Printf("Error listing QR artifacts for owner %s: %v", actor.ID, err)
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, qrs)
}

func (h *Handler) handleToggleQR(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	qrID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid QR ID", http.StatusBadRequest)
		return
	}

	qr, err := h.service.ToggleQR(r.Context(), qrID, actor.ID)
	if err != nil {
		log.Printf("Error toggling QR %s: %v", qrID, err)
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, qr)
}

func (h *Handler) handleDeleteQR(w http.ResponseWriter, r *http.Request) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	qrID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid QR ID", http.StatusBadRequest)
		return
	}

	if err := h.service.DeleteQR(r.Context(), qrID, actor.ID); err != nil {
		log.Printf("Error deleting QR %s: %v", qrID, err)
		respondWithError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRunOverdueSweep(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.RunOverdueSweep(r.Context())
	if err != nil {
		log.Printf("Error running overdue sweep: %v", err)
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

func (h *Handler) handleRunProofRetentionSweep(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.RunProofRetentionSweep(r.Context())
	if err != nil {
		log.Printf("Error running proof retention sweep: %v", err)
		respondWithError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

func recordFilterFromQuery(r *http.Request) (domain.RecordFilter, error) {
	var filter domain.RecordFilter
	q := r.URL.Query()

	if raw := q.Get("payer_id"); raw != "" {
		payerID, err := uuid.Parse(raw)
		if err != nil {
			return filter, fmt.Errorf("%w: invalid payer_id", domain.ErrValidation)
		}
		filter.PayerID = &payerID
	}
	if raw := q.Get("status"); raw != "" {
		status := domain.RecordStatus(raw)
		filter.Status = &status
	}
	if raw := q.Get("period"); raw != "" {
		period, err := domain.ParsePeriod(raw)
		if err != nil {
			return filter, err
		}
		filter.Period = &period
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return filter, fmt.Errorf("%w: invalid limit", domain.ErrValidation)
		}
		filter.Limit = limit
	}
	if raw := q.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return filter, fmt.Errorf("%w: invalid offset", domain.ErrValidation)
		}
		filter.Offset = offset
	}

	return filter, nil
}

// parseDate accepts either a date or a full RFC 3339 timestamp.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// respondWithError maps domain error kinds to HTTP status codes.
func respondWithError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrPreconditionFailed):
		status = http.StatusPreconditionFailed
	}

	respondWithJSON(w, status, map[string]string{"error": err.Error()})
}

// respondWithJSON writes JSON responses.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
