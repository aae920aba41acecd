// Package store provides fees.Store implementations.
package store

import (
	"context"
	"sync"

	"github.com/warp/fee-ledger/fees"
	"github.com/warp/fee-ledger/money"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu sync.RWMutex

	structures    map[fees.StructureID]fees.FeeStructure
	structureByCY map[classYear]fees.StructureID

	profiles    map[fees.ProfileID]fees.StudentFeeProfile
	profileBySY map[studentYear]fees.ProfileID

	// payments is append-only; slice order is commit order.
	payments      []fees.Payment
	nextPaymentID fees.PaymentID
	receipts      map[receiptKey]bool
}

type classYear struct {
	ClassID fees.ClassID
	YearID  fees.YearID
}

type studentYear struct {
	StudentID fees.StudentID
	YearID    fees.YearID
}

type receiptKey struct {
	YearID  fees.YearID
	Receipt string
}

func NewMemory() *Memory {
	return &Memory{
		structures:    make(map[fees.StructureID]fees.FeeStructure),
		structureByCY: make(map[classYear]fees.StructureID),
		profiles:      make(map[fees.ProfileID]fees.StudentFeeProfile),
		profileBySY:   make(map[studentYear]fees.ProfileID),
		receipts:      make(map[receiptKey]bool),
		nextPaymentID: 1,
	}
}

// =============================================================================
// FEE STRUCTURES
// =============================================================================

func (m *Memory) InsertStructure(_ context.Context, s fees.FeeStructure) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertStructureLocked(s)
}

func (m *Memory) insertStructureLocked(s fees.FeeStructure) error {
	key := classYear{ClassID: s.ClassID, YearID: s.YearID}
	if _, exists := m.structureByCY[key]; exists {
		return fees.ErrDuplicateStructure
	}
	m.structures[s.ID] = s
	m.structureByCY[key] = s.ID
	return nil
}

func (m *Memory) UpdateStructure(_ context.Context, s fees.FeeStructure) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateStructureLocked(s)
}

func (m *Memory) updateStructureLocked(s fees.FeeStructure) error {
	if _, exists := m.structures[s.ID]; !exists {
		return fees.ErrNotFound
	}
	m.structures[s.ID] = s
	return nil
}

func (m *Memory) GetStructure(_ context.Context, id fees.StructureID) (*fees.FeeStructure, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getStructureLocked(id)
}

func (m *Memory) getStructureLocked(id fees.StructureID) (*fees.FeeStructure, error) {
	s, ok := m.structures[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *Memory) GetStructureByClassYear(_ context.Context, classID fees.ClassID, yearID fees.YearID) (*fees.FeeStructure, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getStructureByClassYearLocked(classID, yearID)
}

func (m *Memory) getStructureByClassYearLocked(classID fees.ClassID, yearID fees.YearID) (*fees.FeeStructure, error) {
	id, ok := m.structureByCY[classYear{ClassID: classID, YearID: yearID}]
	if !ok {
		return nil, nil
	}
	return m.getStructureLocked(id)
}

// =============================================================================
// STUDENT FEE PROFILES
// =============================================================================

func (m *Memory) InsertProfile(_ context.Context, p fees.StudentFeeProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertProfileLocked(p)
}

func (m *Memory) insertProfileLocked(p fees.StudentFeeProfile) error {
	key := studentYear{StudentID: p.StudentID, YearID: p.YearID}
	if _, exists := m.profileBySY[key]; exists {
		return fees.ErrDuplicateProfile
	}
	m.profiles[p.ID] = p
	m.profileBySY[key] = p.ID
	return nil
}

func (m *Memory) UpdateProfile(_ context.Context, p fees.StudentFeeProfile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateProfileLocked(p)
}

func (m *Memory) updateProfileLocked(p fees.StudentFeeProfile) error {
	if _, exists := m.profiles[p.ID]; !exists {
		return fees.ErrNotFound
	}
	m.profiles[p.ID] = p
	return nil
}

func (m *Memory) GetProfile(_ context.Context, id fees.ProfileID) (*fees.StudentFeeProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getProfileLocked(id)
}

func (m *Memory) getProfileLocked(id fees.ProfileID) (*fees.StudentFeeProfile, error) {
	p, ok := m.profiles[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *Memory) GetProfileByStudentYear(_ context.Context, studentID fees.StudentID, yearID fees.YearID) (*fees.StudentFeeProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getProfileByStudentYearLocked(studentID, yearID)
}

func (m *Memory) getProfileByStudentYearLocked(studentID fees.StudentID, yearID fees.YearID) (*fees.StudentFeeProfile, error) {
	id, ok := m.profileBySY[studentYear{StudentID: studentID, YearID: yearID}]
	if !ok {
		return nil, nil
	}
	return m.getProfileLocked(id)
}

func (m *Memory) ListProfilesByStructure(_ context.Context, structureID fees.StructureID) ([]fees.StudentFeeProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listProfilesByStructureLocked(structureID)
}

func (m *Memory) listProfilesByStructureLocked(structureID fees.StructureID) ([]fees.StudentFeeProfile, error) {
	var result []fees.StudentFeeProfile
	for _, p := range m.profiles {
		if p.StructureID == structureID {
			result = append(result, p)
		}
	}
	return result, nil
}

// =============================================================================
// PAYMENTS (append-only)
// =============================================================================

func (m *Memory) AppendPayment(_ context.Context, p fees.Payment) (fees.PaymentID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendPaymentLocked(p)
}

func (m *Memory) appendPaymentLocked(p fees.Payment) (fees.PaymentID, error) {
	if p.ReceiptNumber != "" {
		key := receiptKey{YearID: p.YearID, Receipt: p.ReceiptNumber}
		if m.receipts[key] {
			return 0, fees.ErrDuplicateReceipt
		}
		m.receipts[key] = true
	}
	p.ID = m.nextPaymentID
	m.nextPaymentID++
	m.payments = append(m.payments, p)
	return p.ID, nil
}

func (m *Memory) GetPayment(_ context.Context, id fees.PaymentID) (*fees.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getPaymentLocked(id)
}

func (m *Memory) getPaymentLocked(id fees.PaymentID) (*fees.Payment, error) {
	for i := range m.payments {
		if m.payments[i].ID == id {
			p := m.payments[i]
			return &p, nil
		}
	}
	return nil, nil
}

func (m *Memory) SetPaymentVerified(_ context.Context, id fees.PaymentID, verified bool, remarks *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setPaymentVerifiedLocked(id, verified, remarks)
}

func (m *Memory) setPaymentVerifiedLocked(id fees.PaymentID, verified bool, remarks *string) error {
	for i := range m.payments {
		if m.payments[i].ID == id {
			m.payments[i].Verified = verified
			if remarks != nil {
				m.payments[i].Remarks = *remarks
			}
			return nil
		}
	}
	return fees.ErrNotFound
}

func (m *Memory) LoadPayments(_ context.Context, profileID fees.ProfileID) ([]fees.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loadPaymentsLocked(profileID)
}

func (m *Memory) loadPaymentsLocked(profileID fees.ProfileID) ([]fees.Payment, error) {
	var result []fees.Payment
	for _, p := range m.payments {
		if p.ProfileID == profileID {
			result = append(result, p)
		}
	}
	return result, nil
}

func (m *Memory) TotalPaid(_ context.Context, profileID fees.ProfileID) (money.Money, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.totalPaidLocked(profileID)
}

func (m *Memory) totalPaidLocked(profileID fees.ProfileID) (money.Money, error) {
	var total money.Money
	for _, p := range m.payments {
		if p.ProfileID == profileID {
			total = total.Add(p.Amount)
		}
	}
	return total, nil
}

func (m *Memory) HasPayments(_ context.Context, profileID fees.ProfileID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hasPaymentsLocked(profileID)
}

func (m *Memory) hasPaymentsLocked(profileID fees.ProfileID) (bool, error) {
	for _, p := range m.payments {
		if p.ProfileID == profileID {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) ReceiptExists(_ context.Context, yearID fees.YearID, receiptNumber string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.receipts[receiptKey{YearID: yearID, Receipt: receiptNumber}], nil
}

func (m *Memory) HasReversal(_ context.Context, original fees.PaymentID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hasReversalLocked(original)
}

func (m *Memory) hasReversalLocked(original fees.PaymentID) (bool, error) {
	for _, p := range m.payments {
		if p.Kind == fees.EntryReversal && p.ReversalOf == original {
			return true, nil
		}
	}
	return false, nil
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction.
// For the memory store this is simulated with a snapshot + rollback on
// error; the store mutex is held so the whole fn is atomic.
func (tm *TxMemory) WithTx(_ context.Context, fn func(fees.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snap := tm.snapshot()
	view := &txMemoryView{parent: tm.Memory}

	if err := fn(view); err != nil {
		tm.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	structures    map[fees.StructureID]fees.FeeStructure
	structureByCY map[classYear]fees.StructureID
	profiles      map[fees.ProfileID]fees.StudentFeeProfile
	profileBySY   map[studentYear]fees.ProfileID
	payments      []fees.Payment
	nextPaymentID fees.PaymentID
	receipts      map[receiptKey]bool
}

func (tm *TxMemory) snapshot() memorySnapshot {
	s := memorySnapshot{
		structures:    make(map[fees.StructureID]fees.FeeStructure, len(tm.structures)),
		structureByCY: make(map[classYear]fees.StructureID, len(tm.structureByCY)),
		profiles:      make(map[fees.ProfileID]fees.StudentFeeProfile, len(tm.profiles)),
		profileBySY:   make(map[studentYear]fees.ProfileID, len(tm.profileBySY)),
		payments:      append([]fees.Payment{}, tm.payments...),
		nextPaymentID: tm.nextPaymentID,
		receipts:      make(map[receiptKey]bool, len(tm.receipts)),
	}
	for k, v := range tm.structures {
		s.structures[k] = v
	}
	for k, v := range tm.structureByCY {
		s.structureByCY[k] = v
	}
	for k, v := range tm.profiles {
		s.profiles[k] = v
	}
	for k, v := range tm.profileBySY {
		s.profileBySY[k] = v
	}
	for k, v := range tm.receipts {
		s.receipts[k] = v
	}
	return s
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.structures = s.structures
	tm.structureByCY = s.structureByCY
	tm.profiles = s.profiles
	tm.profileBySY = s.profileBySY
	tm.payments = s.payments
	tm.nextPaymentID = s.nextPaymentID
	tm.receipts = s.receipts
}

// txMemoryView calls the locked helpers directly; the mutex is already
// held by WithTx.
type txMemoryView struct {
	parent *Memory
}

func (tv *txMemoryView) InsertStructure(_ context.Context, s fees.FeeStructure) error {
	return tv.parent.insertStructureLocked(s)
}

func (tv *txMemoryView) UpdateStructure(_ context.Context, s fees.FeeStructure) error {
	return tv.parent.updateStructureLocked(s)
}

func (tv *txMemoryView) GetStructure(_ context.Context, id fees.StructureID) (*fees.FeeStructure, error) {
	return tv.parent.getStructureLocked(id)
}

func (tv *txMemoryView) GetStructureByClassYear(_ context.Context, classID fees.ClassID, yearID fees.YearID) (*fees.FeeStructure, error) {
	return tv.parent.getStructureByClassYearLocked(classID, yearID)
}

func (tv *txMemoryView) InsertProfile(_ context.Context, p fees.StudentFeeProfile) error {
	return tv.parent.insertProfileLocked(p)
}

func (tv *txMemoryView) UpdateProfile(_ context.Context, p fees.StudentFeeProfile) error {
	return tv.parent.updateProfileLocked(p)
}

func (tv *txMemoryView) GetProfile(_ context.Context, id fees.ProfileID) (*fees.StudentFeeProfile, error) {
	return tv.parent.getProfileLocked(id)
}

func (tv *txMemoryView) GetProfileByStudentYear(_ context.Context, studentID fees.StudentID, yearID fees.YearID) (*fees.StudentFeeProfile, error) {
	return tv.parent.getProfileByStudentYearLocked(studentID, yearID)
}

func (tv *txMemoryView) ListProfilesByStructure(_ context.Context, structureID fees.StructureID) ([]fees.StudentFeeProfile, error) {
	return tv.parent.listProfilesByStructureLocked(structureID)
}

func (tv *txMemoryView) AppendPayment(_ context.Context, p fees.Payment) (fees.PaymentID, error) {
	return tv.parent.appendPaymentLocked(p)
}

func (tv *txMemoryView) GetPayment(_ context.Context, id fees.PaymentID) (*fees.Payment, error) {
	return tv.parent.getPaymentLocked(id)
}

func (tv *txMemoryView) SetPaymentVerified(_ context.Context, id fees.PaymentID, verified bool, remarks *string) error {
	return tv.parent.setPaymentVerifiedLocked(id, verified, remarks)
}

func (tv *txMemoryView) LoadPayments(_ context.Context, profileID fees.ProfileID) ([]fees.Payment, error) {
	return tv.parent.loadPaymentsLocked(profileID)
}

func (tv *txMemoryView) TotalPaid(_ context.Context, profileID fees.ProfileID) (money.Money, error) {
	return tv.parent.totalPaidLocked(profileID)
}

func (tv *txMemoryView) HasPayments(_ context.Context, profileID fees.ProfileID) (bool, error) {
	return tv.parent.hasPaymentsLocked(profileID)
}

func (tv *txMemoryView) ReceiptExists(_ context.Context, yearID fees.YearID, receiptNumber string) (bool, error) {
	return tv.parent.receipts[receiptKey{YearID: yearID, Receipt: receiptNumber}], nil
}

func (tv *txMemoryView) HasReversal(_ context.Context, original fees.PaymentID) (bool, error) {
	return tv.parent.hasReversalLocked(original)
}
