package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/ixberis/doxai-indexer/internal/db"
	"github.com/ixberis/doxai-indexer/internal/models"
)

type fakeStore struct {
	wallets      map[string]*models.Wallet
	reservations map[string]*models.Reservation
	txs          []*models.CreditTransaction
	txKeys       map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		wallets:      make(map[string]*models.Wallet),
		reservations: make(map[string]*models.Reservation),
		txKeys:       make(map[string]bool),
	}
}

func (f *fakeStore) GetWalletByUser(_ context.Context, userID string) (*models.Wallet, error) {
	w, ok := f.wallets[userID]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (f *fakeStore) CreateWallet(_ context.Context, userID string, balance int) (*models.Wallet, error) {
	if _, ok := f.wallets[userID]; ok {
		return nil, db.ErrDuplicateRecord
	}
	w := &models.Wallet{
		ID:      surrealmodels.NewRecordID("wallet", userID),
		UserID:  userID,
		Balance: balance,
	}
	f.wallets[userID] = w
	cp := *w
	return &cp, nil
}

func (f *fakeStore) AdjustWallet(_ context.Context, userID string, balanceDelta, reservedDelta int) (*models.Wallet, error) {
	w, ok := f.wallets[userID]
	if !ok {
		return nil, db.ErrNotFound
	}
	w.Balance += balanceDelta
	w.Reserved += reservedDelta
	if w.Balance < 0 || w.Reserved < 0 {
		w.Balance -= balanceDelta
		w.Reserved -= reservedDelta
		return nil, fmt.Errorf("wallet constraint violated")
	}
	cp := *w
	return &cp, nil
}

func (f *fakeStore) CreateReservationRecord(_ context.Context, userID string, credits int, operationID string, expiresAt time.Time) (*models.Reservation, error) {
	if _, ok := f.reservations[operationID]; ok {
		return nil, db.ErrDuplicateRecord
	}
	r := &models.Reservation{
		ID:          surrealmodels.NewRecordID("reservation", operationID),
		UserID:      userID,
		Credits:     credits,
		OperationID: operationID,
		Status:      models.ReservationActive,
		ExpiresAt:   expiresAt,
		CreatedAt:   time.Now(),
	}
	f.reservations[operationID] = r
	cp := *r
	return &cp, nil
}

func (f *fakeStore) GetReservationByOperationID(_ context.Context, operationID string) (*models.Reservation, error) {
	r, ok := f.reservations[operationID]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeStore) UpdateReservationStatus(_ context.Context, operationID string, status models.ReservationStatus) error {
	r, ok := f.reservations[operationID]
	if !ok {
		return db.ErrNotFound
	}
	r.Status = status
	return nil
}

func (f *fakeStore) CreateCreditTx(_ context.Context, userID string, txType models.TxType, amount int, idempotencyKey string, reservation *surrealmodels.RecordID) (*models.CreditTransaction, error) {
	if f.txKeys[idempotencyKey] {
		return nil, db.ErrDuplicateRecord
	}
	f.txKeys[idempotencyKey] = true
	tx := &models.CreditTransaction{
		ID:             surrealmodels.NewRecordID("credit_tx", idempotencyKey),
		UserID:         userID,
		TxType:         txType,
		Amount:         amount,
		IdempotencyKey: idempotencyKey,
		Reservation:    reservation,
		CreatedAt:      time.Now(),
	}
	f.txs = append(f.txs, tx)
	cp := *tx
	return &cp, nil
}

func (f *fakeStore) txOfType(t models.TxType) []*models.CreditTransaction {
	var out []*models.CreditTransaction
	for _, tx := range f.txs {
		if tx.TxType == t {
			out = append(out, tx)
		}
	}
	return out
}

func seedWallet(f *fakeStore, userID string, balance int) {
	f.wallets[userID] = &models.Wallet{
		ID:      surrealmodels.NewRecordID("wallet", userID),
		UserID:  userID,
		Balance: balance,
	}
}

func TestCreateReservationHoldsCredits(t *testing.T) {
	store := newFakeStore()
	seedWallet(store, "alice", 100)
	svc := NewService(store)

	res, err := svc.CreateReservation(context.Background(), "alice", 40, "rag_job_1")
	if err != nil {
		t.Fatalf("CreateReservation: %v", err)
	}
	if res.Credits != 40 || res.Status != models.ReservationActive {
		t.Fatalf("unexpected reservation: %+v", res)
	}

	w := store.wallets["alice"]
	if w.Balance != 100 || w.Reserved != 40 {
		t.Fatalf("want balance=100 reserved=40, got balance=%d reserved=%d", w.Balance, w.Reserved)
	}
	if got := len(store.txOfType(models.TxReserve)); got != 1 {
		t.Fatalf("want 1 reserve tx, got %d", got)
	}
}

func TestCreateReservationInsufficientCredits(t *testing.T) {
	store := newFakeStore()
	seedWallet(store, "alice", 30)
	svc := NewService(store)

	_, err := svc.CreateReservation(context.Background(), "alice", 40, "rag_job_1")
	if !errors.Is(err, ErrInsufficientCredits) {
		t.Fatalf("want ErrInsufficientCredits, got %v", err)
	}
	if w := store.wallets["alice"]; w.Reserved != 0 {
		t.Fatalf("failed reservation must not hold credits, reserved=%d", w.Reserved)
	}
}

func TestCreateReservationAccountsForExistingHolds(t *testing.T) {
	store := newFakeStore()
	seedWallet(store, "alice", 100)
	svc := NewService(store)

	if _, err := svc.CreateReservation(context.Background(), "alice", 70, "rag_job_1"); err != nil {
		t.Fatalf("first reservation: %v", err)
	}
	_, err := svc.CreateReservation(context.Background(), "alice", 40, "rag_job_2")
	if !errors.Is(err, ErrInsufficientCredits) {
		t.Fatalf("want ErrInsufficientCredits for second hold, got %v", err)
	}
}

func TestCreateReservationIdempotentOnOperationID(t *testing.T) {
	store := newFakeStore()
	seedWallet(store, "alice", 100)
	svc := NewService(store)

	first, err := svc.CreateReservation(context.Background(), "alice", 40, "rag_job_1")
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := svc.CreateReservation(context.Background(), "alice", 40, "rag_job_1")
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("want same reservation, got %v and %v", first.ID, second.ID)
	}
	if w := store.wallets["alice"]; w.Reserved != 40 {
		t.Fatalf("repeat reservation must not stack holds, reserved=%d", w.Reserved)
	}
}

func TestConsumeReservationExactCost(t *testing.T) {
	store := newFakeStore()
	seedWallet(store, "alice", 100)
	svc := NewService(store)
	ctx := context.Background()

	if _, err := svc.CreateReservation(ctx, "alice", 40, "rag_job_1"); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	consumed, err := svc.ConsumeReservation(ctx, "rag_job_1", "rag_job_1:consume", 25)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if consumed != 25 {
		t.Fatalf("want consumed=25, got %d", consumed)
	}

	w := store.wallets["alice"]
	if w.Balance != 75 || w.Reserved != 0 {
		t.Fatalf("want balance=75 reserved=0, got balance=%d reserved=%d", w.Balance, w.Reserved)
	}
	if store.reservations["rag_job_1"].Status != models.ReservationConsumed {
		t.Fatalf("reservation not marked consumed")
	}
}

func TestConsumeReservationCapsAtReserved(t *testing.T) {
	store := newFakeStore()
	seedWallet(store, "alice", 100)
	svc := NewService(store)
	ctx := context.Background()

	if _, err := svc.CreateReservation(ctx, "alice", 40, "rag_job_1"); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	consumed, err := svc.ConsumeReservation(ctx, "rag_job_1", "rag_job_1:consume", 55)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if consumed != 40 {
		t.Fatalf("consumed must cap at reservation, got %d", consumed)
	}
	if w := store.wallets["alice"]; w.Balance != 60 {
		t.Fatalf("want balance=60, got %d", w.Balance)
	}
}

func TestConsumeReservationIdempotent(t *testing.T) {
	store := newFakeStore()
	seedWallet(store, "alice", 100)
	svc := NewService(store)
	ctx := context.Background()

	if _, err := svc.CreateReservation(ctx, "alice", 40, "rag_job_1"); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if _, err := svc.ConsumeReservation(ctx, "rag_job_1", "rag_job_1:consume", 25); err != nil {
		t.Fatalf("first consume: %v", err)
	}
	consumed, err := svc.ConsumeReservation(ctx, "rag_job_1", "rag_job_1:consume", 25)
	if err != nil {
		t.Fatalf("second consume: %v", err)
	}
	if consumed != 0 {
		t.Fatalf("repeat consume must deduct nothing, got %d", consumed)
	}
	if w := store.wallets["alice"]; w.Balance != 75 {
		t.Fatalf("balance changed on repeat consume: %d", w.Balance)
	}
	if got := len(store.txOfType(models.TxConsume)); got != 1 {
		t.Fatalf("want 1 consume tx, got %d", got)
	}
}

func TestCancelReservationReleasesHold(t *testing.T) {
	store := newFakeStore()
	seedWallet(store, "alice", 100)
	svc := NewService(store)
	ctx := context.Background()

	if _, err := svc.CreateReservation(ctx, "alice", 40, "rag_job_1"); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := svc.CancelReservation(ctx, "rag_job_1"); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	w := store.wallets["alice"]
	if w.Balance != 100 || w.Reserved != 0 {
		t.Fatalf("cancel must not charge, got balance=%d reserved=%d", w.Balance, w.Reserved)
	}
	if store.reservations["rag_job_1"].Status != models.ReservationCancelled {
		t.Fatalf("reservation not marked cancelled")
	}

	// Repeat cancel is a no-op.
	if err := svc.CancelReservation(ctx, "rag_job_1"); err != nil {
		t.Fatalf("repeat cancel: %v", err)
	}
	if got := len(store.txOfType(models.TxRelease)); got != 1 {
		t.Fatalf("want 1 release tx, got %d", got)
	}
}

func TestConsumeAndCancelAreExclusive(t *testing.T) {
	store := newFakeStore()
	seedWallet(store, "alice", 100)
	svc := NewService(store)
	ctx := context.Background()

	if _, err := svc.CreateReservation(ctx, "alice", 40, "rag_job_1"); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if _, err := svc.ConsumeReservation(ctx, "rag_job_1", "rag_job_1:consume", 30); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if err := svc.CancelReservation(ctx, "rag_job_1"); !errors.Is(err, ErrReservationClosed) {
		t.Fatalf("cancel after consume must fail, got %v", err)
	}

	if _, err := svc.CreateReservation(ctx, "bob", 40, "rag_job_2"); err == nil {
		t.Fatalf("reservation for user without wallet must fail")
	}
	seedWallet(store, "bob", 100)
	if _, err := svc.CreateReservation(ctx, "bob", 40, "rag_job_2"); err != nil {
		t.Fatalf("reserve bob: %v", err)
	}
	if err := svc.CancelReservation(ctx, "rag_job_2"); err != nil {
		t.Fatalf("cancel bob: %v", err)
	}
	if _, err := svc.ConsumeReservation(ctx, "rag_job_2", "rag_job_2:consume", 10); !errors.Is(err, ErrReservationClosed) {
		t.Fatalf("consume after cancel must fail, got %v", err)
	}
}

func TestConsumeUnknownReservation(t *testing.T) {
	svc := NewService(newFakeStore())
	_, err := svc.ConsumeReservation(context.Background(), "missing", "missing:consume", 10)
	if !errors.Is(err, ErrReservationNotFound) {
		t.Fatalf("want ErrReservationNotFound, got %v", err)
	}
}

func TestCreditWallet(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	ctx := context.Background()

	w, err := svc.CreditWallet(ctx, "alice", 50, "grant-1")
	if err != nil {
		t.Fatalf("CreditWallet: %v", err)
	}
	if w.Balance != 50 {
		t.Fatalf("want balance=50, got %d", w.Balance)
	}

	// Same idempotency key grants nothing extra.
	if _, err := svc.CreditWallet(ctx, "alice", 50, "grant-1"); err != nil {
		t.Fatalf("repeat CreditWallet: %v", err)
	}
	if b := store.wallets["alice"].Balance; b != 50 {
		t.Fatalf("duplicate grant changed balance: %d", b)
	}

	if _, err := svc.CreditWallet(ctx, "alice", 25, "grant-2"); err != nil {
		t.Fatalf("second grant: %v", err)
	}
	if b := store.wallets["alice"].Balance; b != 75 {
		t.Fatalf("want balance=75, got %d", b)
	}
}
