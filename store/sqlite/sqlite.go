/*
Package sqlite provides the SQLite-backed implementation of fees.TxStore.

PURPOSE:
  Production persistence for fee structures, profiles and the payment
  ledger. In production the same patterns apply to PostgreSQL - only
  minor SQL dialect differences.

APPEND-ONLY ENFORCEMENT:
  No UPDATE or DELETE ever touches the payments.amount column. The only
  mutable payment fields are the verification flag and its remarks, both
  informational. Corrections are reversal rows.

KEY TABLES:
  fee_structures:       per-(class, year) charge templates
  student_fee_profiles: per-(student, year) instances
  payments:             immutable ledger; AUTOINCREMENT id = commit order

UNIQUE INDEXES:
  idx_structures_class_year   one structure per class/year
  idx_profiles_student_year   one profile per student/year
  idx_payments_receipt        receipt unique within academic year
  idx_payments_reversal       at most one reversal per payment
  Constraint violations map to the fees duplicate sentinels, so the
  database backs up the service-level prechecks under concurrency.

WAL MODE:
  Opened with WAL (Write-Ahead Logging) and foreign keys on:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

MIGRATIONS:
  Versioned SQL migrations embedded from migrations/ and applied on
  New() via golang-migrate. Opening an already-migrated database is a
  no-op.

USAGE:
  store, err := sqlite.New("./data/fees.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - fees/store.go: Interface definitions
  - fees/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/fee-ledger/fees"
	"github.com/warp/fee-ledger/money"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store implements fees.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) the database at dbPath and applies migrations.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// dbtx is satisfied by both *sql.DB and *sql.Tx so that every query
// helper works inside and outside transactions.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// FEE STRUCTURES
// =============================================================================

func (s *Store) InsertStructure(ctx context.Context, st fees.FeeStructure) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertStructure(ctx, s.db, st)
}

func insertStructure(ctx context.Context, db dbtx, st fees.FeeStructure) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO fee_structures
		(id, class_id, academic_year_id, annual_charges, monthly_fee, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		st.ID, st.ClassID, st.YearID,
		int64(st.AnnualCharges), int64(st.MonthlyFee),
		st.CreatedAt.Format(time.RFC3339), st.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err, "fee_structures.class_id", "idx_structures_class_year") {
			return fees.ErrDuplicateStructure
		}
		return fmt.Errorf("failed to insert structure: %w", err)
	}
	return nil
}

func (s *Store) UpdateStructure(ctx context.Context, st fees.FeeStructure) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateStructure(ctx, s.db, st)
}

func updateStructure(ctx context.Context, db dbtx, st fees.FeeStructure) error {
	res, err := db.ExecContext(ctx, `
		UPDATE fee_structures
		SET annual_charges = ?, monthly_fee = ?, updated_at = ?
		WHERE id = ?`,
		int64(st.AnnualCharges), int64(st.MonthlyFee),
		st.UpdatedAt.Format(time.RFC3339), st.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update structure: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fees.ErrNotFound
	}
	return nil
}

func (s *Store) GetStructure(ctx context.Context, id fees.StructureID) (*fees.FeeStructure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getStructureBy(ctx, s.db, "id = ?", id)
}

func (s *Store) GetStructureByClassYear(ctx context.Context, classID fees.ClassID, yearID fees.YearID) (*fees.FeeStructure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getStructureBy(ctx, s.db, "class_id = ? AND academic_year_id = ?", classID, yearID)
}

func getStructureBy(ctx context.Context, db dbtx, where string, args ...any) (*fees.FeeStructure, error) {
	var (
		st                   fees.FeeStructure
		annual, monthly      int64
		createdAt, updatedAt string
	)

	err := db.QueryRowContext(ctx, `
		SELECT id, class_id, academic_year_id, annual_charges, monthly_fee, created_at, updated_at
		FROM fee_structures WHERE `+where, args...,
	).Scan(&st.ID, &st.ClassID, &st.YearID, &annual, &monthly, &createdAt, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get structure: %w", err)
	}

	st.AnnualCharges = money.FromPaise(annual)
	st.MonthlyFee = money.FromPaise(monthly)
	st.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	st.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &st, nil
}

// =============================================================================
// STUDENT FEE PROFILES
// =============================================================================

func (s *Store) InsertProfile(ctx context.Context, p fees.StudentFeeProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertProfile(ctx, s.db, p)
}

func insertProfile(ctx context.Context, db dbtx, p fees.StudentFeeProfile) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO student_fee_profiles
		(id, student_id, student_name, structure_id, academic_year_id,
		 transport_charges, transport_locked, concession_amount, concession_reason,
		 is_locked, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.StudentID, p.StudentName, p.StructureID, p.YearID,
		int64(p.TransportCharges), p.TransportLocked,
		int64(p.ConcessionAmount), nullString(p.ConcessionReason),
		p.Locked, p.Active,
		p.CreatedAt.Format(time.RFC3339), p.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err, "student_fee_profiles.student_id", "idx_profiles_student_year") {
			return fees.ErrDuplicateProfile
		}
		return fmt.Errorf("failed to insert profile: %w", err)
	}
	return nil
}

func (s *Store) UpdateProfile(ctx context.Context, p fees.StudentFeeProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateProfile(ctx, s.db, p)
}

func updateProfile(ctx context.Context, db dbtx, p fees.StudentFeeProfile) error {
	res, err := db.ExecContext(ctx, `
		UPDATE student_fee_profiles
		SET student_name = ?, transport_charges = ?, transport_locked = ?,
		    concession_amount = ?, concession_reason = ?,
		    is_locked = ?, is_active = ?, updated_at = ?
		WHERE id = ?`,
		p.StudentName, int64(p.TransportCharges), p.TransportLocked,
		int64(p.ConcessionAmount), nullString(p.ConcessionReason),
		p.Locked, p.Active, p.UpdatedAt.Format(time.RFC3339), p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fees.ErrNotFound
	}
	return nil
}

const profileColumns = `id, student_id, student_name, structure_id, academic_year_id,
	transport_charges, transport_locked, concession_amount, concession_reason,
	is_locked, is_active, created_at, updated_at`

func (s *Store) GetProfile(ctx context.Context, id fees.ProfileID) (*fees.StudentFeeProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getProfileBy(ctx, s.db, "id = ?", id)
}

func (s *Store) GetProfileByStudentYear(ctx context.Context, studentID fees.StudentID, yearID fees.YearID) (*fees.StudentFeeProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getProfileBy(ctx, s.db, "student_id = ? AND academic_year_id = ?", studentID, yearID)
}

func getProfileBy(ctx context.Context, db dbtx, where string, args ...any) (*fees.StudentFeeProfile, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT "+profileColumns+" FROM student_fee_profiles WHERE "+where, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query profile: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	p, err := scanProfile(rows)
	if err != nil {
		return nil, err
	}
	return &p, rows.Err()
}

func (s *Store) ListProfilesByStructure(ctx context.Context, structureID fees.StructureID) ([]fees.StudentFeeProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listProfilesByStructure(ctx, s.db, structureID)
}

func listProfilesByStructure(ctx context.Context, db dbtx, structureID fees.StructureID) ([]fees.StudentFeeProfile, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT "+profileColumns+" FROM student_fee_profiles WHERE structure_id = ? ORDER BY student_name ASC, student_id ASC",
		structureID)
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	var profiles []fees.StudentFeeProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

func scanProfile(rows *sql.Rows) (fees.StudentFeeProfile, error) {
	var (
		p                    fees.StudentFeeProfile
		transport, conc      int64
		reason               sql.NullString
		createdAt, updatedAt string
	)

	err := rows.Scan(
		&p.ID, &p.StudentID, &p.StudentName, &p.StructureID, &p.YearID,
		&transport, &p.TransportLocked, &conc, &reason,
		&p.Locked, &p.Active, &createdAt, &updatedAt,
	)
	if err != nil {
		return p, fmt.Errorf("failed to scan profile: %w", err)
	}

	p.TransportCharges = money.FromPaise(transport)
	p.ConcessionAmount = money.FromPaise(conc)
	p.ConcessionReason = reason.String
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return p, nil
}

// =============================================================================
// PAYMENTS (append-only ledger)
// =============================================================================

func (s *Store) AppendPayment(ctx context.Context, p fees.Payment) (fees.PaymentID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendPayment(ctx, s.db, p)
}

func appendPayment(ctx context.Context, db dbtx, p fees.Payment) (fees.PaymentID, error) {
	var reversalOf any
	if p.ReversalOf != 0 {
		reversalOf = int64(p.ReversalOf)
	}

	res, err := db.ExecContext(ctx, `
		INSERT INTO payments
		(profile_id, academic_year_id, amount, frequency, receipt_number,
		 paid_at, remarks, kind, reversal_of, is_verified, recorded_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ProfileID, p.YearID, int64(p.Amount), p.Frequency,
		nullString(p.ReceiptNumber),
		p.PaidAt.Format(time.RFC3339), nullString(p.Remarks),
		p.Kind, reversalOf, p.Verified, nullString(string(p.RecordedBy)),
		p.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err, "payments.reversal_of", "idx_payments_reversal") {
			return 0, fees.ErrAlreadyReversed
		}
		if isUniqueViolation(err, "payments.academic_year_id", "idx_payments_receipt") {
			return 0, fees.ErrDuplicateReceipt
		}
		return 0, fmt.Errorf("failed to append payment: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read payment id: %w", err)
	}
	return fees.PaymentID(id), nil
}

const paymentColumns = `id, profile_id, academic_year_id, amount, frequency, receipt_number,
	paid_at, remarks, kind, reversal_of, is_verified, recorded_by, created_at`

func (s *Store) GetPayment(ctx context.Context, id fees.PaymentID) (*fees.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getPayment(ctx, s.db, id)
}

func getPayment(ctx context.Context, db dbtx, id fees.PaymentID) (*fees.Payment, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT "+paymentColumns+" FROM payments WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("failed to query payment: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	p, err := scanPayment(rows)
	if err != nil {
		return nil, err
	}
	return &p, rows.Err()
}

func (s *Store) SetPaymentVerified(ctx context.Context, id fees.PaymentID, verified bool, remarks *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return setPaymentVerified(ctx, s.db, id, verified, remarks)
}

func setPaymentVerified(ctx context.Context, db dbtx, id fees.PaymentID, verified bool, remarks *string) error {
	var (
		res sql.Result
		err error
	)
	if remarks != nil {
		res, err = db.ExecContext(ctx,
			"UPDATE payments SET is_verified = ?, remarks = ? WHERE id = ?",
			verified, *remarks, id)
	} else {
		res, err = db.ExecContext(ctx,
			"UPDATE payments SET is_verified = ? WHERE id = ?",
			verified, id)
	}
	if err != nil {
		return fmt.Errorf("failed to update verification: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fees.ErrNotFound
	}
	return nil
}

func (s *Store) LoadPayments(ctx context.Context, profileID fees.ProfileID) ([]fees.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return loadPayments(ctx, s.db, profileID)
}

func loadPayments(ctx context.Context, db dbtx, profileID fees.ProfileID) ([]fees.Payment, error) {
	// Ascending id = commit order. Never paid_at: backdated entries must
	// not reshuffle the audit trail.
	rows, err := db.QueryContext(ctx,
		"SELECT "+paymentColumns+" FROM payments WHERE profile_id = ? ORDER BY id ASC",
		profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []fees.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func scanPayment(rows *sql.Rows) (fees.Payment, error) {
	var (
		p                          fees.Payment
		amount                     int64
		receipt, remarks, recorded sql.NullString
		reversalOf                 sql.NullInt64
		paidAt, createdAt          string
	)

	err := rows.Scan(
		&p.ID, &p.ProfileID, &p.YearID, &amount, &p.Frequency, &receipt,
		&paidAt, &remarks, &p.Kind, &reversalOf, &p.Verified, &recorded, &createdAt,
	)
	if err != nil {
		return p, fmt.Errorf("failed to scan payment: %w", err)
	}

	p.Amount = money.FromPaise(amount)
	p.ReceiptNumber = receipt.String
	p.Remarks = remarks.String
	p.RecordedBy = fees.ActorID(recorded.String)
	p.ReversalOf = fees.PaymentID(reversalOf.Int64)
	p.PaidAt, _ = time.Parse(time.RFC3339, paidAt)
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return p, nil
}

func (s *Store) TotalPaid(ctx context.Context, profileID fees.ProfileID) (money.Money, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return totalPaid(ctx, s.db, profileID)
}

func totalPaid(ctx context.Context, db dbtx, profileID fees.ProfileID) (money.Money, error) {
	var total int64
	err := db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(amount), 0) FROM payments WHERE profile_id = ?",
		profileID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum payments: %w", err)
	}
	return money.FromPaise(total), nil
}

func (s *Store) HasPayments(ctx context.Context, profileID fees.ProfileID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return hasPayments(ctx, s.db, profileID)
}

func hasPayments(ctx context.Context, db dbtx, profileID fees.ProfileID) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM payments WHERE profile_id = ?",
		profileID,
	).Scan(&count)
	return count > 0, err
}

func (s *Store) ReceiptExists(ctx context.Context, yearID fees.YearID, receiptNumber string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return receiptExists(ctx, s.db, yearID, receiptNumber)
}

func receiptExists(ctx context.Context, db dbtx, yearID fees.YearID, receiptNumber string) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM payments WHERE academic_year_id = ? AND receipt_number = ?",
		yearID, receiptNumber,
	).Scan(&count)
	return count > 0, err
}

func (s *Store) HasReversal(ctx context.Context, original fees.PaymentID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return hasReversal(ctx, s.db, original)
}

func hasReversal(ctx context.Context, db dbtx, original fees.PaymentID) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM payments WHERE reversal_of = ?",
		original,
	).Scan(&count)
	return count > 0, err
}

// =============================================================================
// TRANSACTIONAL STORE (fees.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(fees.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// txStore routes every Store method through the open transaction.
type txStore struct {
	tx *sql.Tx
}

func (t *txStore) InsertStructure(ctx context.Context, st fees.FeeStructure) error {
	return insertStructure(ctx, t.tx, st)
}

func (t *txStore) UpdateStructure(ctx context.Context, st fees.FeeStructure) error {
	return updateStructure(ctx, t.tx, st)
}

func (t *txStore) GetStructure(ctx context.Context, id fees.StructureID) (*fees.FeeStructure, error) {
	return getStructureBy(ctx, t.tx, "id = ?", id)
}

func (t *txStore) GetStructureByClassYear(ctx context.Context, classID fees.ClassID, yearID fees.YearID) (*fees.FeeStructure, error) {
	return getStructureBy(ctx, t.tx, "class_id = ? AND academic_year_id = ?", classID, yearID)
}

func (t *txStore) InsertProfile(ctx context.Context, p fees.StudentFeeProfile) error {
	return insertProfile(ctx, t.tx, p)
}

func (t *txStore) UpdateProfile(ctx context.Context, p fees.StudentFeeProfile) error {
	return updateProfile(ctx, t.tx, p)
}

func (t *txStore) GetProfile(ctx context.Context, id fees.ProfileID) (*fees.StudentFeeProfile, error) {
	return getProfileBy(ctx, t.tx, "id = ?", id)
}

func (t *txStore) GetProfileByStudentYear(ctx context.Context, studentID fees.StudentID, yearID fees.YearID) (*fees.StudentFeeProfile, error) {
	return getProfileBy(ctx, t.tx, "student_id = ? AND academic_year_id = ?", studentID, yearID)
}

func (t *txStore) ListProfilesByStructure(ctx context.Context, structureID fees.StructureID) ([]fees.StudentFeeProfile, error) {
	return listProfilesByStructure(ctx, t.tx, structureID)
}

func (t *txStore) AppendPayment(ctx context.Context, p fees.Payment) (fees.PaymentID, error) {
	return appendPayment(ctx, t.tx, p)
}

func (t *txStore) GetPayment(ctx context.Context, id fees.PaymentID) (*fees.Payment, error) {
	return getPayment(ctx, t.tx, id)
}

func (t *txStore) SetPaymentVerified(ctx context.Context, id fees.PaymentID, verified bool, remarks *string) error {
	return setPaymentVerified(ctx, t.tx, id, verified, remarks)
}

func (t *txStore) LoadPayments(ctx context.Context, profileID fees.ProfileID) ([]fees.Payment, error) {
	return loadPayments(ctx, t.tx, profileID)
}

func (t *txStore) TotalPaid(ctx context.Context, profileID fees.ProfileID) (money.Money, error) {
	return totalPaid(ctx, t.tx, profileID)
}

func (t *txStore) HasPayments(ctx context.Context, profileID fees.ProfileID) (bool, error) {
	return hasPayments(ctx, t.tx, profileID)
}

func (t *txStore) ReceiptExists(ctx context.Context, yearID fees.YearID, receiptNumber string) (bool, error) {
	return receiptExists(ctx, t.tx, yearID, receiptNumber)
}

func (t *txStore) HasReversal(ctx context.Context, original fees.PaymentID) (bool, error) {
	return hasReversal(ctx, t.tx, original)
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// isUniqueViolation matches both SQLite error shapes: the column-list
// form ("UNIQUE constraint failed: table.col") and the index-name form
// reported for partial indexes.
func isUniqueViolation(err error, column, index string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") {
		return false
	}
	return strings.Contains(msg, column) || strings.Contains(msg, index)
}
