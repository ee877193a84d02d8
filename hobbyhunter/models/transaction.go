package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var ErrInvalidTransition = errors.New("invalid status transition")

type TransactionType string

const (
	TransactionCreditPurchase TransactionType = "credit_purchase"
	TransactionPackPurchase   TransactionType = "pack_purchase"
	TransactionCardSale       TransactionType = "card_sale"
	TransactionShippingFee    TransactionType = "shipping_fee"
	TransactionRefund         TransactionType = "refund"
	TransactionCardConversion TransactionType = "card_conversion"
	TransactionBonusCredit    TransactionType = "bonus_credit"
)

type TransactionStatus string

const (
	StatusPending    TransactionStatus = "pending"
	StatusProcessing TransactionStatus = "processing"
	StatusCompleted  TransactionStatus = "completed"
	StatusFailed     TransactionStatus = "failed"
	StatusCancelled  TransactionStatus = "cancelled"
	StatusRefunded   TransactionStatus = "refunded"
)

var transactionTransitions = map[TransactionStatus][]TransactionStatus{
	StatusPending:    {StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled},
	StatusProcessing: {StatusCompleted, StatusFailed, StatusCancelled},
	StatusCompleted:  {StatusRefunded},
}

// Terminal reports whether no further transition can leave s. Completed is not
// terminal because a completed transaction may still be refunded.
func (s TransactionStatus) Terminal() bool {
	return len(transactionTransitions[s]) == 0
}

func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	for _, allowed := range transactionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Transaction struct {
	ID               string
	UserID           string
	Type             TransactionType
	Amount           decimal.Decimal
	Currency         string
	Status           TransactionStatus
	Description      string
	PaymentReference string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (t *Transaction) Transition(next TransactionStatus, now time.Time) error {
	if !t.Status.CanTransitionTo(next) {
		return fmt.Errorf("transaction %s %s -> %s: %w", t.ID, t.Status, next, ErrInvalidTransition)
	}
	t.Status = next
	t.UpdatedAt = now
	return nil
}

type CreditPurchase struct {
	UserID        string
	Credits       int64
	Price         decimal.Decimal
	Currency      string
	PaymentMethod string
}

type Payment struct {
	ID            string
	TransactionID string
	Provider      string
	Reference     string
	Amount        decimal.Decimal
	Currency      string
	Status        TransactionStatus
	ProcessedAt   time.Time
}

type Receipt struct {
	TransactionID string
	UserID        string
	Lines         []ReceiptLine
	Total         decimal.Decimal
	Currency      string
	IssuedAt      time.Time
}

type ReceiptLine struct {
	Description string
	Amount      decimal.Decimal
}

type TransactionFilters struct {
	UserID string
	Type   TransactionType
	Status TransactionStatus
	Limit  int
	Offset int
}
