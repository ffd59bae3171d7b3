package models

import (
	"time"

	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// ReservationStatus is the lifecycle state of a credit hold.
// A reservation moves from active to exactly one of consumed,
// cancelled or expired.
type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "active"
	ReservationConsumed  ReservationStatus = "consumed"
	ReservationCancelled ReservationStatus = "cancelled"
	ReservationExpired   ReservationStatus = "expired"
)

// Terminal reports whether the reservation can no longer change state.
func (s ReservationStatus) Terminal() bool {
	return s != ReservationActive
}

// TxType classifies credit ledger transactions.
type TxType string

const (
	TxReserve TxType = "reserve"
	TxConsume TxType = "consume"
	TxRelease TxType = "release"
	TxCredit  TxType = "credit"
)

// Wallet holds a user's credit balance. Reserved credits stay part of
// the balance until consumed; available = balance - reserved.
type Wallet struct {
	ID        surrealmodels.RecordID `json:"id"`
	UserID    string                 `json:"user_id"`
	Balance   int                    `json:"balance"`
	Reserved  int                    `json:"reserved"`
	UpdatedAt time.Time              `json:"updated_at"`
}

// Available returns the credits not currently held by a reservation.
func (w *Wallet) Available() int {
	return w.Balance - w.Reserved
}

// Reservation is a temporary hold of credits against a wallet,
// identified by a caller-supplied operation id.
type Reservation struct {
	ID          surrealmodels.RecordID `json:"id"`
	UserID      string                 `json:"user_id"`
	Credits     int                    `json:"credits"`
	OperationID string                 `json:"operation_id"`
	Status      ReservationStatus      `json:"status"`
	ExpiresAt   time.Time              `json:"expires_at"`
	CreatedAt   time.Time              `json:"created_at"`
}

// CreditTransaction is one append-only ledger entry. The idempotency
// key makes retried operations record at most one entry.
type CreditTransaction struct {
	ID             surrealmodels.RecordID  `json:"id"`
	UserID         string                  `json:"user_id"`
	TxType         TxType                  `json:"tx_type"`
	Amount         int                     `json:"amount"`
	IdempotencyKey string                  `json:"idempotency_key"`
	Reservation    *surrealmodels.RecordID `json:"reservation,omitempty"`
	CreatedAt      time.Time               `json:"created_at"`
}
