// Package ledger implements credit accounting: wallets, reservations
// and the append-only transaction log. Reservations follow a strict
// saga: reserve up front, then exactly one of consume or cancel.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/ixberis/doxai-indexer/internal/db"
	"github.com/ixberis/doxai-indexer/internal/models"
)

// Sentinel errors for ledger operations.
var (
	// ErrInsufficientCredits indicates the wallet's available balance
	// cannot cover the requested reservation.
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrReservationNotFound indicates no reservation exists for the
	// given operation id.
	ErrReservationNotFound = errors.New("reservation not found")

	// ErrReservationClosed indicates the reservation already reached
	// the opposite terminal state: consume after cancel, or cancel
	// after consume.
	ErrReservationClosed = errors.New("reservation already closed")
)

// DefaultReservationTTL bounds how long a hold stays active before it
// is considered expired.
const DefaultReservationTTL = 30 * time.Minute

// Store is the persistence surface the ledger needs. *db.Client
// implements it.
type Store interface {
	GetWalletByUser(ctx context.Context, userID string) (*models.Wallet, error)
	CreateWallet(ctx context.Context, userID string, balance int) (*models.Wallet, error)
	AdjustWallet(ctx context.Context, userID string, balanceDelta, reservedDelta int) (*models.Wallet, error)
	CreateReservationRecord(ctx context.Context, userID string, credits int, operationID string, expiresAt time.Time) (*models.Reservation, error)
	GetReservationByOperationID(ctx context.Context, operationID string) (*models.Reservation, error)
	UpdateReservationStatus(ctx context.Context, operationID string, status models.ReservationStatus) error
	CreateCreditTx(ctx context.Context, userID string, txType models.TxType, amount int, idempotencyKey string, reservation *surrealmodels.RecordID) (*models.CreditTransaction, error)
}

// Service coordinates wallet, reservation and ledger writes.
type Service struct {
	store Store
	ttl   time.Duration
}

// NewService creates a ledger service with the default reservation TTL.
func NewService(store Store) *Service {
	return &Service{store: store, ttl: DefaultReservationTTL}
}

// NewServiceWithTTL creates a ledger service with a custom TTL.
func NewServiceWithTTL(store Store, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultReservationTTL
	}
	return &Service{store: store, ttl: ttl}
}

// CreateReservation holds credits against the user's wallet under the
// given operation id. Calling again with the same operation id returns
// the existing active hold instead of stacking a second one.
func (s *Service) CreateReservation(ctx context.Context, userID string, credits int, operationID string) (*models.Reservation, error) {
	if credits <= 0 {
		return nil, fmt.Errorf("reservation credits must be positive, got %d", credits)
	}

	existing, err := s.store.GetReservationByOperationID(ctx, operationID)
	if err == nil {
		if existing.Status == models.ReservationActive {
			slog.Debug("reusing active reservation", "operation_id", operationID, "credits", existing.Credits)
			return existing, nil
		}
		return nil, fmt.Errorf("operation %s: %w", operationID, ErrReservationClosed)
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, err
	}

	wallet, err := s.store.GetWalletByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if wallet.Available() < credits {
		return nil, fmt.Errorf("need %d credits, %d available: %w", credits, wallet.Available(), ErrInsufficientCredits)
	}

	if _, err := s.store.AdjustWallet(ctx, userID, 0, credits); err != nil {
		return nil, err
	}

	res, err := s.store.CreateReservationRecord(ctx, userID, credits, operationID, time.Now().Add(s.ttl))
	if err != nil {
		// Undo the hold; a concurrent caller won the unique index.
		if _, undoErr := s.store.AdjustWallet(ctx, userID, 0, -credits); undoErr != nil {
			slog.Error("failed to undo reservation hold", "user_id", userID, "credits", credits, "error", undoErr)
		}
		if errors.Is(err, db.ErrDuplicateRecord) {
			return s.store.GetReservationByOperationID(ctx, operationID)
		}
		return nil, err
	}

	if _, err := s.store.CreateCreditTx(ctx, userID, models.TxReserve, credits, operationID+":reserve", &res.ID); err != nil && !errors.Is(err, db.ErrDuplicateRecord) {
		return nil, err
	}

	slog.Info("credits reserved", "user_id", userID, "operation_id", operationID, "credits", credits)
	return res, nil
}

// ConsumeReservation settles the hold for the actual cost, which may
// be lower than the reserved estimate. The consumed amount never
// exceeds the reservation; the unused remainder returns to the wallet.
// Repeated consumes for the same operation are no-ops. Returns the
// amount actually deducted.
func (s *Service) ConsumeReservation(ctx context.Context, operationID, ledgerOperationID string, credits int) (int, error) {
	res, err := s.store.GetReservationByOperationID(ctx, operationID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return 0, fmt.Errorf("operation %s: %w", operationID, ErrReservationNotFound)
		}
		return 0, err
	}

	switch res.Status {
	case models.ReservationConsumed:
		return 0, nil
	case models.ReservationCancelled, models.ReservationExpired:
		return 0, fmt.Errorf("operation %s is %s: %w", operationID, res.Status, ErrReservationClosed)
	}

	if credits < 0 {
		credits = 0
	}
	if credits > res.Credits {
		slog.Warn("actual cost exceeds reservation, capping",
			"operation_id", operationID, "actual", credits, "reserved", res.Credits)
		credits = res.Credits
	}

	// Deduct the actual cost, release the full hold.
	if _, err := s.store.AdjustWallet(ctx, res.UserID, -credits, -res.Credits); err != nil {
		return 0, err
	}
	if err := s.store.UpdateReservationStatus(ctx, operationID, models.ReservationConsumed); err != nil {
		return 0, err
	}
	if _, err := s.store.CreateCreditTx(ctx, res.UserID, models.TxConsume, credits, ledgerOperationID, &res.ID); err != nil && !errors.Is(err, db.ErrDuplicateRecord) {
		return 0, err
	}

	slog.Info("credits consumed", "user_id", res.UserID, "operation_id", operationID, "credits", credits, "reserved", res.Credits)
	return credits, nil
}

// CancelReservation releases the hold without charging the wallet.
// Cancelling an already cancelled reservation is a no-op; cancelling a
// consumed one is an error.
func (s *Service) CancelReservation(ctx context.Context, operationID string) error {
	res, err := s.store.GetReservationByOperationID(ctx, operationID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("operation %s: %w", operationID, ErrReservationNotFound)
		}
		return err
	}

	switch res.Status {
	case models.ReservationCancelled, models.ReservationExpired:
		return nil
	case models.ReservationConsumed:
		return fmt.Errorf("operation %s already consumed: %w", operationID, ErrReservationClosed)
	}

	if _, err := s.store.AdjustWallet(ctx, res.UserID, 0, -res.Credits); err != nil {
		return err
	}
	if err := s.store.UpdateReservationStatus(ctx, operationID, models.ReservationCancelled); err != nil {
		return err
	}
	if _, err := s.store.CreateCreditTx(ctx, res.UserID, models.TxRelease, res.Credits, operationID+":release", &res.ID); err != nil && !errors.Is(err, db.ErrDuplicateRecord) {
		return err
	}

	slog.Info("reservation cancelled", "user_id", res.UserID, "operation_id", operationID, "credits", res.Credits)
	return nil
}

// CreditWallet adds credits to a user's wallet, creating the wallet on
// first use. The idempotency key guards against double grants.
func (s *Service) CreditWallet(ctx context.Context, userID string, credits int, idempotencyKey string) (*models.Wallet, error) {
	if credits <= 0 {
		return nil, fmt.Errorf("credit amount must be positive, got %d", credits)
	}

	wallet, err := s.store.GetWalletByUser(ctx, userID)
	if errors.Is(err, db.ErrNotFound) {
		wallet, err = s.store.CreateWallet(ctx, userID, 0)
	}
	if err != nil {
		return nil, err
	}

	if _, err := s.store.CreateCreditTx(ctx, userID, models.TxCredit, credits, idempotencyKey, nil); err != nil {
		if errors.Is(err, db.ErrDuplicateRecord) {
			return wallet, nil
		}
		return nil, err
	}

	return s.store.AdjustWallet(ctx, userID, credits, 0)
}

// GetWallet returns the user's wallet.
func (s *Service) GetWallet(ctx context.Context, userID string) (*models.Wallet, error) {
	return s.store.GetWalletByUser(ctx, userID)
}
