/*
handlers_test.go - HTTP-level tests for the fee ledger API

Exercises the router end to end with httptest over the in-memory store:
happy paths, validation failures, and the error-to-status mapping.
*/
package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/fee-ledger/api"
	"github.com/warp/fee-ledger/fees"
	feestore "github.com/warp/fee-ledger/fees/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	store := feestore.NewTxMemory()
	locks := fees.NewProfileLocks(200 * time.Millisecond)

	handler := api.NewHandler(
		fees.NewStructures(store, nil),
		fees.NewProfiles(store, locks, nil),
		fees.NewPaymentLedger(store, locks, nil),
		fees.NewReconciler(store),
		nil,
	)

	srv := httptest.NewServer(api.NewRouter(handler))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		decoded = nil
	}
	return resp, decoded
}

func createStructure(t *testing.T, srv *httptest.Server, classID, yearID string) string {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/structures", map[string]any{
		"class_id":         classID,
		"academic_year_id": yearID,
		"annual_charges":   500000, // 5000.00
		"monthly_fee":      50000,  // 500.00
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return body["id"].(string)
}

func createProfile(t *testing.T, srv *httptest.Server, studentID, structureID string) string {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/profiles", map[string]any{
		"student_id":   studentID,
		"student_name": "Student " + studentID,
		"structure_id": structureID,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return body["id"].(string)
}

func recordPayment(t *testing.T, srv *httptest.Server, profileID string, amount int64, receipt string) map[string]any {
	t.Helper()
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/payments", map[string]any{
		"profile_id":     profileID,
		"amount":         amount,
		"frequency":      "MONTHLY",
		"receipt_number": receipt,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return body
}

// =============================================================================
// STRUCTURES
// =============================================================================

func TestAPI_CreateStructure_AndLookup(t *testing.T) {
	srv := newTestServer(t)

	id := createStructure(t, srv, "class-5a", "2025-26")

	resp, body := doJSON(t, http.MethodGet,
		srv.URL+"/api/structures?class_id=class-5a&academic_year_id=2025-26", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, id, body["id"])
	assert.Equal(t, float64(1100000), body["annual_total"])
	assert.Equal(t, "11000.00", body["annual_total_display"])
}

func TestAPI_CreateStructure_Duplicate_Conflict(t *testing.T) {
	srv := newTestServer(t)

	createStructure(t, srv, "class-5a", "2025-26")

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/structures", map[string]any{
		"class_id":         "class-5a",
		"academic_year_id": "2025-26",
		"annual_charges":   1,
		"monthly_fee":      1,
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPI_CreateStructure_ValidationFailure(t *testing.T) {
	srv := newTestServer(t)

	// Missing class_id and non-positive monthly fee
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/structures", map[string]any{
		"academic_year_id": "2025-26",
		"monthly_fee":      0,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, body["error"])
}

func TestAPI_GetStructure_Missing_NotFound(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/api/structures/nope", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// PROFILES
// =============================================================================

func TestAPI_ProfileLifecycle(t *testing.T) {
	srv := newTestServer(t)

	structureID := createStructure(t, srv, "class-5a", "2025-26")
	profileID := createProfile(t, srv, "stu-1", structureID)

	// Patch concession
	resp, body := doJSON(t, http.MethodPatch, srv.URL+"/api/profiles/"+profileID, map[string]any{
		"concession_amount": 100000,
		"concession_reason": "sibling discount",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(100000), body["concession_amount"])

	// Lookup by student and year
	resp, body = doJSON(t, http.MethodGet,
		srv.URL+"/api/profiles?student_id=stu-1&academic_year_id=2025-26", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, profileID, body["id"])

	// Soft-deactivate
	resp, body = doJSON(t, http.MethodDelete, srv.URL+"/api/profiles/"+profileID+"?actor=admin-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["is_active"])
}

func TestAPI_BulkCreateProfiles(t *testing.T) {
	srv := newTestServer(t)

	structureID := createStructure(t, srv, "class-5a", "2025-26")
	createProfile(t, srv, "stu-2", structureID)

	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/profiles/bulk", map[string]any{
		"structure_id": structureID,
		"students": []map[string]any{
			{"student_id": "stu-1", "student_name": "Anaya"},
			{"student_id": "stu-2", "student_name": "Bilal"},
			{"student_id": "stu-3", "student_name": "Chitra"},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Len(t, body["created"], 2)
	assert.Equal(t, []any{"stu-2"}, body["skipped"])
}

func TestAPI_UpdateLockedProfile_Conflict(t *testing.T) {
	srv := newTestServer(t)

	structureID := createStructure(t, srv, "class-5a", "2025-26")
	profileID := createProfile(t, srv, "stu-1", structureID)

	resp, _ := doJSON(t, http.MethodPatch, srv.URL+"/api/profiles/"+profileID, map[string]any{
		"is_locked": true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPatch, srv.URL+"/api/profiles/"+profileID, map[string]any{
		"concession_amount": 100000,
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

// =============================================================================
// PAYMENTS AND STATUS
// =============================================================================

func TestAPI_PaymentFlow_StatusProgression(t *testing.T) {
	srv := newTestServer(t)

	structureID := createStructure(t, srv, "class-5a", "2025-26")
	profileID := createProfile(t, srv, "stu-1", structureID)

	recordPayment(t, srv, profileID, 400000, "RCP-001")
	recordPayment(t, srv, profileID, 400000, "RCP-002")

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/profiles/"+profileID+"/status", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "PARTIAL", body["status"])
	assert.Equal(t, float64(300000), body["pending"])
	assert.Equal(t, "3000.00", body["pending_display"])

	recordPayment(t, srv, profileID, 300000, "RCP-003")

	resp, body = doJSON(t, http.MethodGet, srv.URL+"/api/profiles/"+profileID+"/status", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "PAID", body["status"])

	histReq, err := http.NewRequest(http.MethodGet, srv.URL+"/api/profiles/"+profileID+"/payments", nil)
	require.NoError(t, err)
	histResp, err := http.DefaultClient.Do(histReq)
	require.NoError(t, err)
	defer histResp.Body.Close()
	require.Equal(t, http.StatusOK, histResp.StatusCode)

	var history []map[string]any
	require.NoError(t, json.NewDecoder(histResp.Body).Decode(&history))
	require.Len(t, history, 3)
	assert.Equal(t, "RCP-001", history[0]["receipt_number"])
}

func TestAPI_RecordPayment_DuplicateReceipt_Conflict(t *testing.T) {
	srv := newTestServer(t)

	structureID := createStructure(t, srv, "class-5a", "2025-26")
	profileID := createProfile(t, srv, "stu-1", structureID)

	recordPayment(t, srv, profileID, 100000, "RCP-001")

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/payments", map[string]any{
		"profile_id":     profileID,
		"amount":         100000,
		"frequency":      "MONTHLY",
		"receipt_number": "RCP-001",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPI_RecordPayment_BadInputs(t *testing.T) {
	srv := newTestServer(t)

	structureID := createStructure(t, srv, "class-5a", "2025-26")
	profileID := createProfile(t, srv, "stu-1", structureID)

	// Validator catches the non-positive amount before domain logic.
	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/payments", map[string]any{
		"profile_id": profileID,
		"amount":     0,
		"frequency":  "MONTHLY",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/payments", map[string]any{
		"profile_id": profileID,
		"amount":     1000,
		"frequency":  "WEEKLY",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/payments", map[string]any{
		"profile_id": "no-such-profile",
		"amount":     1000,
		"frequency":  "MONTHLY",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_ReverseAndVerifyPayment(t *testing.T) {
	srv := newTestServer(t)

	structureID := createStructure(t, srv, "class-5a", "2025-26")
	profileID := createProfile(t, srv, "stu-1", structureID)
	payment := recordPayment(t, srv, profileID, 400000, "RCP-001")
	paymentID := fmt.Sprintf("%.0f", payment["id"].(float64))

	// Toggle verification
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/payments/"+paymentID+"/verify", map[string]any{
		"is_verified": false,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["is_verified"])

	// Reverse
	resp, body = doJSON(t, http.MethodPost, srv.URL+"/api/payments/"+paymentID+"/reverse", map[string]any{
		"reason": "recorded against wrong student",
		"actor":  "admin-1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "reversal", body["kind"])
	assert.Equal(t, float64(-400000), body["amount"])

	// Second reversal conflicts
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/payments/"+paymentID+"/reverse", map[string]any{
		"reason": "again",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Bad id is a client error, not a panic
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/payments/abc/reverse", map[string]any{
		"reason": "x",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// CLASS VIEWS
// =============================================================================

func TestAPI_ClassSummaryAndDefaulters(t *testing.T) {
	srv := newTestServer(t)

	structureID := createStructure(t, srv, "class-5a", "2025-26")
	paid := createProfile(t, srv, "stu-1", structureID)
	createProfile(t, srv, "stu-2", structureID)

	recordPayment(t, srv, paid, 1100000, "RCP-001")

	resp, body := doJSON(t, http.MethodGet,
		srv.URL+"/api/classes/class-5a/summary?academic_year_id=2025-26", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), body["total_students"])
	assert.Equal(t, float64(50), body["collection_percentage"])

	resp, _ = doJSON(t, http.MethodGet, srv.URL+"/api/classes/class-5a/summary", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "year is mandatory")

	req, err := http.NewRequest(http.MethodGet,
		srv.URL+"/api/classes/class-5a/defaulters?academic_year_id=2025-26", nil)
	require.NoError(t, err)
	defResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer defResp.Body.Close()

	var defaulters []map[string]any
	require.NoError(t, json.NewDecoder(defResp.Body).Decode(&defaulters))
	require.Len(t, defaulters, 1)
	assert.Equal(t, "stu-2", defaulters[0]["student_id"])
	assert.Equal(t, "PENDING", defaulters[0]["status"])
}
