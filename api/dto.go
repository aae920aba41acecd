/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

AMOUNT ENCODING:
  All monetary fields travel as integer paise. Responses additionally
  carry a formatted rupee string (suffix _display) for direct rendering;
  clients must never feed the display form back into requests.

VALIDATION:
  Request structs carry go-playground/validator tags; the handler runs
  the validator after JSON decoding and before touching domain logic.

SEE ALSO:
  - handlers.go: Uses these types
  - fees/types.go: domain counterparts
*/
package api

import (
	"time"

	"github.com/warp/fee-ledger/fees"
	"github.com/warp/fee-ledger/money"
)

// =============================================================================
// FEE STRUCTURES
// =============================================================================

// StructureDTO represents a fee structure in API responses.
type StructureDTO struct {
	ID                   string `json:"id"`
	ClassID              string `json:"class_id"`
	AcademicYearID       string `json:"academic_year_id"`
	AnnualCharges        int64  `json:"annual_charges"`
	MonthlyFee           int64  `json:"monthly_fee"`
	AnnualTotal          int64  `json:"annual_total"`
	AnnualChargesDisplay string `json:"annual_charges_display"`
	MonthlyFeeDisplay    string `json:"monthly_fee_display"`
	AnnualTotalDisplay   string `json:"annual_total_display"`
	CreatedAt            string `json:"created_at,omitempty"`
	UpdatedAt            string `json:"updated_at,omitempty"`
}

// CreateStructureRequest is the request to create a fee structure.
type CreateStructureRequest struct {
	ClassID        string `json:"class_id" validate:"required"`
	AcademicYearID string `json:"academic_year_id" validate:"required"`
	AnnualCharges  int64  `json:"annual_charges" validate:"min=0"`
	MonthlyFee     int64  `json:"monthly_fee" validate:"required,gt=0"`
}

// UpdateStructureRequest patches a structure's amounts.
// Omitted fields keep their current values.
type UpdateStructureRequest struct {
	AnnualCharges *int64 `json:"annual_charges,omitempty" validate:"omitempty,min=0"`
	MonthlyFee    *int64 `json:"monthly_fee,omitempty" validate:"omitempty,gt=0"`
}

// =============================================================================
// STUDENT FEE PROFILES
// =============================================================================

// ProfileDTO represents a student fee profile in API responses.
type ProfileDTO struct {
	ID               string `json:"id"`
	StudentID        string `json:"student_id"`
	StudentName      string `json:"student_name"`
	StructureID      string `json:"structure_id"`
	AcademicYearID   string `json:"academic_year_id"`
	TransportCharges int64  `json:"transport_charges"`
	TransportLocked  bool   `json:"transport_locked"`
	ConcessionAmount int64  `json:"concession_amount"`
	ConcessionReason string `json:"concession_reason,omitempty"`
	Locked           bool   `json:"is_locked"`
	Active           bool   `json:"is_active"`
	CreatedAt        string `json:"created_at,omitempty"`
	UpdatedAt        string `json:"updated_at,omitempty"`
}

// CreateProfileRequest is the request to create a profile.
type CreateProfileRequest struct {
	StudentID        string `json:"student_id" validate:"required"`
	StudentName      string `json:"student_name" validate:"required"`
	StructureID      string `json:"structure_id" validate:"required"`
	TransportCharges int64  `json:"transport_charges" validate:"min=0"`
	ConcessionAmount int64  `json:"concession_amount" validate:"min=0"`
	ConcessionReason string `json:"concession_reason,omitempty"`
}

// BulkStudentRequest is one student in a bulk profile import.
type BulkStudentRequest struct {
	StudentID   string `json:"student_id" validate:"required"`
	StudentName string `json:"student_name" validate:"required"`
}

// BulkCreateRequest creates profiles for many students at once.
type BulkCreateRequest struct {
	StructureID       string               `json:"structure_id" validate:"required"`
	Students          []BulkStudentRequest `json:"students" validate:"required,min=1,dive"`
	TransportCharges  int64                `json:"transport_charges" validate:"min=0"`
	ConcessionAmount  int64                `json:"concession_amount" validate:"min=0"`
}

// BulkCreateResponse reports per-item outcomes of a bulk import.
type BulkCreateResponse struct {
	Created []ProfileDTO `json:"created"`
	Skipped []string     `json:"skipped"`
}

// UpdateProfileRequest patches concession, transport and lock flags.
// Omitted fields keep their current values.
type UpdateProfileRequest struct {
	TransportCharges *int64  `json:"transport_charges,omitempty" validate:"omitempty,min=0"`
	ConcessionAmount *int64  `json:"concession_amount,omitempty" validate:"omitempty,min=0"`
	ConcessionReason *string `json:"concession_reason,omitempty"`
	Locked           *bool   `json:"is_locked,omitempty"`
	TransportLocked  *bool   `json:"transport_locked,omitempty"`
	Actor            string  `json:"actor,omitempty"`
}

// =============================================================================
// PAYMENTS
// =============================================================================

// PaymentDTO represents one ledger entry in API responses.
type PaymentDTO struct {
	ID             int64  `json:"id"`
	ProfileID      string `json:"profile_id"`
	AcademicYearID string `json:"academic_year_id"`
	Amount         int64  `json:"amount"`
	AmountDisplay  string `json:"amount_display"`
	Frequency      string `json:"frequency"`
	ReceiptNumber  string `json:"receipt_number,omitempty"`
	PaidAt         string `json:"paid_at"`
	Remarks        string `json:"remarks,omitempty"`
	Kind           string `json:"kind"`
	ReversalOf     int64  `json:"reversal_of,omitempty"`
	Verified       bool   `json:"is_verified"`
	RecordedBy     string `json:"recorded_by,omitempty"`
	CreatedAt      string `json:"created_at,omitempty"`
}

// RecordPaymentRequest is the request to record a payment.
type RecordPaymentRequest struct {
	ProfileID     string `json:"profile_id" validate:"required"`
	Amount        int64  `json:"amount" validate:"required,gt=0"`
	Frequency     string `json:"frequency" validate:"required,oneof=MONTHLY QUARTERLY HALF_YEARLY YEARLY"`
	ReceiptNumber string `json:"receipt_number,omitempty"`
	PaidAt        string `json:"paid_at,omitempty"` // RFC3339; empty = now
	Remarks       string `json:"remarks,omitempty"`
	RecordedBy    string `json:"recorded_by,omitempty"`
	Verified      *bool  `json:"is_verified,omitempty"`
}

// VerifyPaymentRequest toggles the informational verification flag.
type VerifyPaymentRequest struct {
	Verified bool    `json:"is_verified"`
	Remarks  *string `json:"remarks,omitempty"`
}

// ReversePaymentRequest appends a reversal entry for a payment.
type ReversePaymentRequest struct {
	Reason string `json:"reason" validate:"required"`
	Actor  string `json:"actor,omitempty"`
}

// =============================================================================
// RECONCILIATION VIEWS
// =============================================================================

// StatusDTO is the derived reconciliation status for one profile.
type StatusDTO struct {
	ProfileID            string `json:"profile_id"`
	TotalPayable         int64  `json:"total_payable"`
	TotalPaid            int64  `json:"total_paid"`
	Pending              int64  `json:"pending"`
	TotalPayableDisplay  string `json:"total_payable_display"`
	TotalPaidDisplay     string `json:"total_paid_display"`
	PendingDisplay       string `json:"pending_display"`
	Status               string `json:"status"`
}

// StudentStatusDTO is one row of a class summary or defaulter list.
type StudentStatusDTO struct {
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name"`
	StatusDTO
}

// ClassSummaryDTO aggregates collection across a class.
type ClassSummaryDTO struct {
	ClassID              string             `json:"class_id"`
	AcademicYearID       string             `json:"academic_year_id"`
	TotalStudents        int                `json:"total_students"`
	Inactive             int                `json:"inactive"`
	TotalExpected        int64              `json:"total_expected"`
	TotalCollected       int64              `json:"total_collected"`
	TotalPending         int64              `json:"total_pending"`
	CollectionPercentage float64            `json:"collection_percentage"`
	Students             []StudentStatusDTO `json:"students"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toStructureDTO(s fees.FeeStructure) StructureDTO {
	total := s.AnnualTotal()
	return StructureDTO{
		ID:                   string(s.ID),
		ClassID:              string(s.ClassID),
		AcademicYearID:       string(s.YearID),
		AnnualCharges:        s.AnnualCharges.Paise(),
		MonthlyFee:           s.MonthlyFee.Paise(),
		AnnualTotal:          total.Paise(),
		AnnualChargesDisplay: s.AnnualCharges.Rupees(),
		MonthlyFeeDisplay:    s.MonthlyFee.Rupees(),
		AnnualTotalDisplay:   total.Rupees(),
		CreatedAt:            s.CreatedAt.Format(time.RFC3339),
		UpdatedAt:            s.UpdatedAt.Format(time.RFC3339),
	}
}

func toProfileDTO(p fees.StudentFeeProfile) ProfileDTO {
	return ProfileDTO{
		ID:               string(p.ID),
		StudentID:        string(p.StudentID),
		StudentName:      p.StudentName,
		StructureID:      string(p.StructureID),
		AcademicYearID:   string(p.YearID),
		TransportCharges: p.TransportCharges.Paise(),
		TransportLocked:  p.TransportLocked,
		ConcessionAmount: p.ConcessionAmount.Paise(),
		ConcessionReason: p.ConcessionReason,
		Locked:           p.Locked,
		Active:           p.Active,
		CreatedAt:        p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        p.UpdatedAt.Format(time.RFC3339),
	}
}

func toPaymentDTO(p fees.Payment) PaymentDTO {
	return PaymentDTO{
		ID:             int64(p.ID),
		ProfileID:      string(p.ProfileID),
		AcademicYearID: string(p.YearID),
		Amount:         p.Amount.Paise(),
		AmountDisplay:  p.Amount.Rupees(),
		Frequency:      string(p.Frequency),
		ReceiptNumber:  p.ReceiptNumber,
		PaidAt:         p.PaidAt.Format(time.RFC3339),
		Remarks:        p.Remarks,
		Kind:           string(p.Kind),
		ReversalOf:     int64(p.ReversalOf),
		Verified:       p.Verified,
		RecordedBy:     string(p.RecordedBy),
		CreatedAt:      p.CreatedAt.Format(time.RFC3339),
	}
}

func toPaymentDTOs(payments []fees.Payment) []PaymentDTO {
	dtos := make([]PaymentDTO, len(payments))
	for i, p := range payments {
		dtos[i] = toPaymentDTO(p)
	}
	return dtos
}

func toStatusDTO(s fees.ProfileStatus) StatusDTO {
	return StatusDTO{
		ProfileID:           string(s.ProfileID),
		TotalPayable:        s.TotalPayable.Paise(),
		TotalPaid:           s.TotalPaid.Paise(),
		Pending:             s.Pending.Paise(),
		TotalPayableDisplay: s.TotalPayable.Rupees(),
		TotalPaidDisplay:    s.TotalPaid.Rupees(),
		PendingDisplay:      s.Pending.Rupees(),
		Status:              string(s.Status),
	}
}

func toStudentStatusDTOs(rows []fees.StudentStatus) []StudentStatusDTO {
	dtos := make([]StudentStatusDTO, len(rows))
	for i, r := range rows {
		dtos[i] = StudentStatusDTO{
			StudentID:   string(r.StudentID),
			StudentName: r.StudentName,
			StatusDTO:   toStatusDTO(r.ProfileStatus),
		}
	}
	return dtos
}

func toClassSummaryDTO(s fees.ClassFeeSummary) ClassSummaryDTO {
	return ClassSummaryDTO{
		ClassID:              string(s.ClassID),
		AcademicYearID:       string(s.YearID),
		TotalStudents:        s.TotalStudents,
		Inactive:             s.Inactive,
		TotalExpected:        s.TotalExpected.Paise(),
		TotalCollected:       s.TotalCollected.Paise(),
		TotalPending:         s.TotalPending.Paise(),
		CollectionPercentage: s.CollectionPercentage,
		Students:             toStudentStatusDTOs(s.Students),
	}
}

func moneyPtr(v *int64) *money.Money {
	if v == nil {
		return nil
	}
	m := money.FromPaise(*v)
	return &m
}
