/*
handlers.go - HTTP API handlers for the fee ledger

PURPOSE:
  Exposes the fee engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Structures:
    POST   /api/structures              Create fee structure
    PATCH  /api/structures/{id}         Update amounts
    GET    /api/structures/{id}         Get structure
    GET    /api/structures              Lookup by ?class_id=&academic_year_id=

  Profiles:
    POST   /api/profiles                Create profile
    POST   /api/profiles/bulk           Bulk create against a structure
    PATCH  /api/profiles/{id}           Update concession/transport/locks
    DELETE /api/profiles/{id}           Soft-deactivate
    GET    /api/profiles/{id}           Get profile
    GET    /api/profiles                Lookup by ?student_id=&academic_year_id=
    GET    /api/profiles/{id}/status    Reconciliation status
    GET    /api/profiles/{id}/payments  Payment history (commit order)

  Payments:
    POST   /api/payments                Record payment
    POST   /api/payments/{id}/verify    Toggle verification flag
    POST   /api/payments/{id}/reverse   Append reversal entry

  Classes:
    GET    /api/classes/{classID}/summary     Class collection summary
    GET    /api/classes/{classID}/defaulters  PARTIAL/PENDING rows only

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input (go-playground/validator)
  3. Call domain logic (structures, profiles, ledger, reconciler)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Conflict (duplicates, lock guards, below-paid invariant)
  - 503: Profile lock contention (Retry-After: 1)
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. The recorded_by/actor
  fields are caller-asserted until an auth middleware lands.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/warp/fee-ledger/fees"
	"github.com/warp/fee-ledger/money"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Structures *fees.Structures
	Profiles   *fees.Profiles
	Ledger     *fees.PaymentLedger
	Reconciler *fees.Reconciler

	validate *validator.Validate
	log      *slog.Logger
}

// NewHandler creates a new handler over the domain services.
func NewHandler(structures *fees.Structures, profiles *fees.Profiles, ledger *fees.PaymentLedger, reconciler *fees.Reconciler, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		Structures: structures,
		Profiles:   profiles,
		Ledger:     ledger,
		Reconciler: reconciler,
		validate:   validator.New(),
		log:        log,
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

// =============================================================================
// STRUCTURE HANDLERS
// =============================================================================

// CreateStructure creates a fee structure for a (class, year) pair.
func (h *Handler) CreateStructure(w http.ResponseWriter, r *http.Request) {
	var req CreateStructureRequest
	if !h.decode(w, r, &req) {
		return
	}

	structure, err := h.Structures.Create(r.Context(),
		fees.ClassID(req.ClassID), fees.YearID(req.AcademicYearID),
		money.FromPaise(req.AnnualCharges), money.FromPaise(req.MonthlyFee))
	if err != nil {
		h.writeDomainError(w, "Failed to create structure", err)
		return
	}

	writeJSON(w, http.StatusCreated, toStructureDTO(*structure))
}

// UpdateStructure patches a structure's amounts.
func (h *Handler) UpdateStructure(w http.ResponseWriter, r *http.Request) {
	id := fees.StructureID(chi.URLParam(r, "id"))

	var req UpdateStructureRequest
	if !h.decode(w, r, &req) {
		return
	}

	structure, err := h.Structures.Update(r.Context(), id, fees.StructureUpdate{
		AnnualCharges: moneyPtr(req.AnnualCharges),
		MonthlyFee:    moneyPtr(req.MonthlyFee),
	})
	if err != nil {
		h.writeDomainError(w, "Failed to update structure", err)
		return
	}

	writeJSON(w, http.StatusOK, toStructureDTO(*structure))
}

// GetStructure returns a structure by id.
func (h *Handler) GetStructure(w http.ResponseWriter, r *http.Request) {
	id := fees.StructureID(chi.URLParam(r, "id"))

	structure, err := h.Structures.Get(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to get structure", err)
		return
	}

	writeJSON(w, http.StatusOK, toStructureDTO(*structure))
}

// LookupStructure returns the structure for ?class_id=&academic_year_id=.
func (h *Handler) LookupStructure(w http.ResponseWriter, r *http.Request) {
	classID := r.URL.Query().Get("class_id")
	yearID := r.URL.Query().Get("academic_year_id")
	if classID == "" || yearID == "" {
		writeError(w, http.StatusBadRequest, "class_id and academic_year_id are required", nil)
		return
	}

	structure, err := h.Structures.GetByClassYear(r.Context(), fees.ClassID(classID), fees.YearID(yearID))
	if err != nil {
		h.writeDomainError(w, "Failed to get structure", err)
		return
	}

	writeJSON(w, http.StatusOK, toStructureDTO(*structure))
}

// =============================================================================
// PROFILE HANDLERS
// =============================================================================

// CreateProfile creates a fee profile for one student.
func (h *Handler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	var req CreateProfileRequest
	if !h.decode(w, r, &req) {
		return
	}

	profile, err := h.Profiles.Create(r.Context(), fees.CreateProfileParams{
		StudentID:        fees.StudentID(req.StudentID),
		StudentName:      req.StudentName,
		StructureID:      fees.StructureID(req.StructureID),
		TransportCharges: money.FromPaise(req.TransportCharges),
		ConcessionAmount: money.FromPaise(req.ConcessionAmount),
		ConcessionReason: req.ConcessionReason,
	})
	if err != nil {
		h.writeDomainError(w, "Failed to create profile", err)
		return
	}

	writeJSON(w, http.StatusCreated, toProfileDTO(*profile))
}

// BulkCreateProfiles creates profiles for many students.
// Students who already have a profile for the year are skipped.
func (h *Handler) BulkCreateProfiles(w http.ResponseWriter, r *http.Request) {
	var req BulkCreateRequest
	if !h.decode(w, r, &req) {
		return
	}

	students := make([]fees.BulkStudent, len(req.Students))
	for i, s := range req.Students {
		students[i] = fees.BulkStudent{
			StudentID:   fees.StudentID(s.StudentID),
			StudentName: s.StudentName,
		}
	}

	result, err := h.Profiles.BulkCreate(r.Context(),
		fees.StructureID(req.StructureID), students,
		money.FromPaise(req.TransportCharges), money.FromPaise(req.ConcessionAmount))
	if err != nil {
		h.writeDomainError(w, "Failed to bulk create profiles", err)
		return
	}

	resp := BulkCreateResponse{
		Created: make([]ProfileDTO, len(result.Created)),
		Skipped: make([]string, len(result.Skipped)),
	}
	for i, p := range result.Created {
		resp.Created[i] = toProfileDTO(p)
	}
	for i, id := range result.Skipped {
		resp.Skipped[i] = string(id)
	}

	writeJSON(w, http.StatusCreated, resp)
}

// UpdateProfile patches concession/transport amounts and lock flags.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	id := fees.ProfileID(chi.URLParam(r, "id"))

	var req UpdateProfileRequest
	if !h.decode(w, r, &req) {
		return
	}

	profile, err := h.Profiles.Update(r.Context(), id, fees.ProfileUpdate{
		TransportCharges:   moneyPtr(req.TransportCharges),
		ConcessionAmount:   moneyPtr(req.ConcessionAmount),
		ConcessionReason:   req.ConcessionReason,
		SetLocked:          req.Locked,
		SetTransportLocked: req.TransportLocked,
		Actor:              fees.ActorID(req.Actor),
	})
	if err != nil {
		h.writeDomainError(w, "Failed to update profile", err)
		return
	}

	writeJSON(w, http.StatusOK, toProfileDTO(*profile))
}

// DeactivateProfile soft-deactivates a profile. The row and its payment
// history survive; the profile drops out of class aggregates.
func (h *Handler) DeactivateProfile(w http.ResponseWriter, r *http.Request) {
	id := fees.ProfileID(chi.URLParam(r, "id"))
	actor := fees.ActorID(r.URL.Query().Get("actor"))

	profile, err := h.Profiles.Deactivate(r.Context(), id, actor)
	if err != nil {
		h.writeDomainError(w, "Failed to deactivate profile", err)
		return
	}

	writeJSON(w, http.StatusOK, toProfileDTO(*profile))
}

// GetProfile returns a profile by id.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id := fees.ProfileID(chi.URLParam(r, "id"))

	profile, err := h.Profiles.Get(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to get profile", err)
		return
	}

	writeJSON(w, http.StatusOK, toProfileDTO(*profile))
}

// LookupProfile returns the profile for ?student_id=&academic_year_id=.
func (h *Handler) LookupProfile(w http.ResponseWriter, r *http.Request) {
	studentID := r.URL.Query().Get("student_id")
	yearID := r.URL.Query().Get("academic_year_id")
	if studentID == "" || yearID == "" {
		writeError(w, http.StatusBadRequest, "student_id and academic_year_id are required", nil)
		return
	}

	profile, err := h.Profiles.GetByStudentYear(r.Context(), fees.StudentID(studentID), fees.YearID(yearID))
	if err != nil {
		h.writeDomainError(w, "Failed to get profile", err)
		return
	}

	writeJSON(w, http.StatusOK, toProfileDTO(*profile))
}

// GetProfileStatus returns the derived reconciliation status.
func (h *Handler) GetProfileStatus(w http.ResponseWriter, r *http.Request) {
	id := fees.ProfileID(chi.URLParam(r, "id"))

	status, err := h.Reconciler.StatusFor(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to compute status", err)
		return
	}

	writeJSON(w, http.StatusOK, toStatusDTO(*status))
}

// GetProfilePayments returns payment history in commit order.
func (h *Handler) GetProfilePayments(w http.ResponseWriter, r *http.Request) {
	id := fees.ProfileID(chi.URLParam(r, "id"))

	payments, err := h.Ledger.History(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to load payments", err)
		return
	}

	writeJSON(w, http.StatusOK, toPaymentDTOs(payments))
}

// =============================================================================
// PAYMENT HANDLERS
// =============================================================================

// RecordPayment appends a payment to the ledger.
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var req RecordPaymentRequest
	if !h.decode(w, r, &req) {
		return
	}

	var paidAt *time.Time
	if req.PaidAt != "" {
		t, err := time.Parse(time.RFC3339, req.PaidAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid paid_at format (use RFC3339)", err)
			return
		}
		paidAt = &t
	}

	payment, err := h.Ledger.Record(r.Context(), fees.RecordParams{
		ProfileID:     fees.ProfileID(req.ProfileID),
		Amount:        money.FromPaise(req.Amount),
		Frequency:     fees.PaymentFrequency(req.Frequency),
		ReceiptNumber: req.ReceiptNumber,
		PaidAt:        paidAt,
		Remarks:       req.Remarks,
		RecordedBy:    fees.ActorID(req.RecordedBy),
		Verified:      req.Verified,
	})
	if err != nil {
		h.writeDomainError(w, "Failed to record payment", err)
		return
	}

	writeJSON(w, http.StatusCreated, toPaymentDTO(*payment))
}

// VerifyPayment toggles the informational verification flag.
func (h *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := paymentIDParam(w, r)
	if !ok {
		return
	}

	var req VerifyPaymentRequest
	if !h.decode(w, r, &req) {
		return
	}

	payment, err := h.Ledger.Verify(r.Context(), id, req.Verified, req.Remarks)
	if err != nil {
		h.writeDomainError(w, "Failed to update verification", err)
		return
	}

	writeJSON(w, http.StatusOK, toPaymentDTO(*payment))
}

// ReversePayment appends a reversal entry for a recorded payment.
func (h *Handler) ReversePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := paymentIDParam(w, r)
	if !ok {
		return
	}

	var req ReversePaymentRequest
	if !h.decode(w, r, &req) {
		return
	}

	reversal, err := h.Ledger.Reverse(r.Context(), id, req.Reason, fees.ActorID(req.Actor))
	if err != nil {
		h.writeDomainError(w, "Failed to reverse payment", err)
		return
	}

	writeJSON(w, http.StatusCreated, toPaymentDTO(*reversal))
}

// =============================================================================
// CLASS VIEW HANDLERS
// =============================================================================

// GetClassSummary aggregates collection across a class.
func (h *Handler) GetClassSummary(w http.ResponseWriter, r *http.Request) {
	classID := fees.ClassID(chi.URLParam(r, "classID"))
	yearID := fees.YearID(r.URL.Query().Get("academic_year_id"))
	if yearID == "" {
		writeError(w, http.StatusBadRequest, "academic_year_id is required", nil)
		return
	}

	summary, err := h.Reconciler.ClassSummary(r.Context(), classID, yearID)
	if err != nil {
		h.writeDomainError(w, "Failed to compute class summary", err)
		return
	}

	writeJSON(w, http.StatusOK, toClassSummaryDTO(*summary))
}

// GetDefaulters returns PARTIAL and PENDING rows of a class summary.
func (h *Handler) GetDefaulters(w http.ResponseWriter, r *http.Request) {
	classID := fees.ClassID(chi.URLParam(r, "classID"))
	yearID := fees.YearID(r.URL.Query().Get("academic_year_id"))
	if yearID == "" {
		writeError(w, http.StatusBadRequest, "academic_year_id is required", nil)
		return
	}

	defaulters, err := h.Reconciler.DefaulterList(r.Context(), classID, yearID)
	if err != nil {
		h.writeDomainError(w, "Failed to compute defaulter list", err)
		return
	}

	writeJSON(w, http.StatusOK, toStudentStatusDTOs(defaulters))
}

// =============================================================================
// ERROR MAPPING AND RESPONSE HELPERS
// =============================================================================

// writeDomainError maps a fees error to the HTTP status the error
// taxonomy prescribes. Retryable contention gets 503 plus Retry-After so
// well-behaved clients back off instead of hammering the profile lock.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case fees.IsRetryable(err):
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, message, err)
	case fees.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, fees.ErrInvalidAmount) ||
		errors.Is(err, fees.ErrInvalidFrequency) ||
		errors.Is(err, fees.ErrConcessionExceedsPayable):
		writeError(w, http.StatusBadRequest, message, err)
	case fees.IsClientError(err):
		writeError(w, http.StatusConflict, message, err)
	default:
		h.log.Error("internal error", "message", message, "error", err)
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func paymentIDParam(w http.ResponseWriter, r *http.Request) (fees.PaymentID, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid payment id", err)
		return 0, false
	}
	return fees.PaymentID(id), true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
