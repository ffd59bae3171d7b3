package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/ixberis/doxai-indexer/internal/models"
)

// GetWalletByUser retrieves a user's wallet.
// Returns ErrNotFound if the user has no wallet yet.
func (c *Client) GetWalletByUser(ctx context.Context, userID string) (*models.Wallet, error) {
	results, err := surrealdb.Query[[]models.Wallet](ctx, c.db, `
		SELECT * FROM wallet WHERE user_id = $user_id LIMIT 1
	`, map[string]any{"user_id": userID})
	if err != nil {
		return nil, fmt.Errorf("get wallet: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("wallet for user %s: %w", userID, ErrNotFound)
	}
	return &(*results)[0].Result[0], nil
}

// CreateWallet creates a wallet with an opening balance. The unique
// user index makes a second create fail with ErrDuplicateRecord.
func (c *Client) CreateWallet(ctx context.Context, userID string, balance int) (*models.Wallet, error) {
	results, err := surrealdb.Query[[]models.Wallet](ctx, c.db, `
		CREATE wallet SET
			user_id = $user_id,
			balance = $balance,
			reserved = 0
		RETURN AFTER
	`, map[string]any{
		"user_id": userID,
		"balance": balance,
	})
	if err != nil {
		return nil, fmt.Errorf("create wallet: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("create wallet: no result returned")
	}
	return &(*results)[0].Result[0], nil
}

// AdjustWallet applies deltas to a wallet's balance and reserved
// amounts. Schema assertions reject adjustments that would drive
// either below zero.
func (c *Client) AdjustWallet(ctx context.Context, userID string, balanceDelta, reservedDelta int) (*models.Wallet, error) {
	results, err := surrealdb.Query[[]models.Wallet](ctx, c.db, `
		UPDATE wallet SET
			balance += $balance_delta,
			reserved += $reserved_delta,
			updated_at = time::now()
		WHERE user_id = $user_id
		RETURN AFTER
	`, map[string]any{
		"user_id":        userID,
		"balance_delta":  balanceDelta,
		"reserved_delta": reservedDelta,
	})
	if err != nil {
		return nil, fmt.Errorf("adjust wallet: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("wallet for user %s: %w", userID, ErrNotFound)
	}
	return &(*results)[0].Result[0], nil
}

// CreateReservationRecord inserts an active credit hold. The unique
// operation_id index guarantees at most one reservation per operation.
func (c *Client) CreateReservationRecord(ctx context.Context, userID string, credits int, operationID string, expiresAt time.Time) (*models.Reservation, error) {
	id := uuid.New().String()

	results, err := surrealdb.Query[[]models.Reservation](ctx, c.db, `
		CREATE type::record("reservation", $id) SET
			user_id = $user_id,
			credits = $credits,
			operation_id = $operation_id,
			status = $status,
			expires_at = <datetime>$expires_at
		RETURN AFTER
	`, map[string]any{
		"id":           id,
		"user_id":      userID,
		"credits":      credits,
		"operation_id": operationID,
		"status":       string(models.ReservationActive),
		"expires_at":   expiresAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, fmt.Errorf("create reservation: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("create reservation: no result returned")
	}
	return &(*results)[0].Result[0], nil
}

// GetReservationByOperationID retrieves a reservation by its operation
// id. Returns ErrNotFound when no reservation exists.
func (c *Client) GetReservationByOperationID(ctx context.Context, operationID string) (*models.Reservation, error) {
	results, err := surrealdb.Query[[]models.Reservation](ctx, c.db, `
		SELECT * FROM reservation WHERE operation_id = $operation_id LIMIT 1
	`, map[string]any{"operation_id": operationID})
	if err != nil {
		return nil, fmt.Errorf("get reservation: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("reservation %s: %w", operationID, ErrNotFound)
	}
	return &(*results)[0].Result[0], nil
}

// UpdateReservationStatus moves a reservation to a terminal status.
func (c *Client) UpdateReservationStatus(ctx context.Context, operationID string, status models.ReservationStatus) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPDATE reservation SET status = $status
		WHERE operation_id = $operation_id
	`, map[string]any{
		"operation_id": operationID,
		"status":       string(status),
	})
	if err != nil {
		return fmt.Errorf("update reservation status: %w", wrapQueryError(err))
	}
	return nil
}

// CreateCreditTx appends a ledger entry. The unique idempotency key
// index makes retried operations record at most one entry; callers
// treat ErrDuplicateRecord as already-recorded.
func (c *Client) CreateCreditTx(ctx context.Context, userID string, txType models.TxType, amount int, idempotencyKey string, reservation *surrealmodels.RecordID) (*models.CreditTransaction, error) {
	results, err := surrealdb.Query[[]models.CreditTransaction](ctx, c.db, `
		CREATE credit_tx SET
			user_id = $user_id,
			tx_type = $tx_type,
			amount = $amount,
			idempotency_key = $idempotency_key,
			reservation = $reservation
		RETURN AFTER
	`, map[string]any{
		"user_id":         userID,
		"tx_type":         string(txType),
		"amount":          amount,
		"idempotency_key": idempotencyKey,
		"reservation":     reservation,
	})
	if err != nil {
		return nil, fmt.Errorf("create credit tx: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 || len((*results)[0].Result) == 0 {
		return nil, fmt.Errorf("create credit tx: no result returned")
	}
	return &(*results)[0].Result[0], nil
}

// ListCreditTxByUser returns a user's ledger entries, newest first.
func (c *Client) ListCreditTxByUser(ctx context.Context, userID string, limit int) ([]models.CreditTransaction, error) {
	results, err := surrealdb.Query[[]models.CreditTransaction](ctx, c.db, `
		SELECT * FROM credit_tx WHERE user_id = $user_id
		ORDER BY created_at DESC LIMIT $limit
	`, map[string]any{
		"user_id": userID,
		"limit":   limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list credit tx: %w", wrapQueryError(err))
	}

	if results == nil || len(*results) == 0 {
		return []models.CreditTransaction{}, nil
	}
	return (*results)[0].Result, nil
}
