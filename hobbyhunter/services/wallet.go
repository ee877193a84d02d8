package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hobbyhunter/storefront/hobbyhunter/logger"
	"github.com/hobbyhunter/storefront/hobbyhunter/models"
	"github.com/hobbyhunter/storefront/hobbyhunter/query"
	"github.com/hobbyhunter/storefront/hobbyhunter/repositories"
)

// WalletService covers credit balances and the transaction ledger.
type WalletService struct {
	repos *repositories.Repositories
	cache *query.Client
}

func NewWalletService(repos *repositories.Repositories, cache *query.Client) *WalletService {
	return &WalletService{repos: repos, cache: cache}
}

func (s *WalletService) Credits(ctx context.Context, userID string) (int64, error) {
	return query.Fetch(ctx, s.cache, query.UserKeys.Credits(userID), func(ctx context.Context) (int64, error) {
		return s.repos.Users.GetCredits(ctx, userID)
	})
}

func (s *WalletService) Transactions(ctx context.Context, userID string) ([]models.Transaction, error) {
	return query.Fetch(ctx, s.cache, query.TransactionKeys.User(userID), func(ctx context.Context) ([]models.Transaction, error) {
		return s.repos.Transactions.GetUserTransactions(ctx, userID)
	})
}

// PendingTransactions lists transactions still waiting on settlement. The
// key is refetched in the background while cached.
func (s *WalletService) PendingTransactions(ctx context.Context, userID string) ([]models.Transaction, error) {
	return query.Fetch(ctx, s.cache, query.TransactionKeys.Pending(userID), func(ctx context.Context) ([]models.Transaction, error) {
		txs, err := s.repos.Transactions.GetUserTransactions(ctx, userID)
		if err != nil {
			return nil, err
		}
		var pending []models.Transaction
		for _, tx := range txs {
			if tx.Status == models.StatusPending || tx.Status == models.StatusProcessing {
				pending = append(pending, tx)
			}
		}
		return pending, nil
	})
}

func (s *WalletService) Receipt(ctx context.Context, transactionID string) (models.Receipt, error) {
	return query.Fetch(ctx, s.cache, query.TransactionKeys.Receipt(transactionID), func(ctx context.Context) (models.Receipt, error) {
		return s.repos.Transactions.GetReceipt(ctx, transactionID)
	})
}

// PurchaseCredits records a credit purchase and settles its payment. Credits
// show up only after the payment completed.
func (s *WalletService) PurchaseCredits(ctx context.Context, purchase models.CreditPurchase) (models.Transaction, models.Payment, error) {
	defer func() {
		s.cache.InvalidateUser(purchase.UserID)
		s.cache.InvalidateTransactions()
	}()

	tx, err := s.repos.Transactions.PurchaseCredits(ctx, purchase)
	if err != nil {
		return models.Transaction{}, models.Payment{}, err
	}

	payment, err := s.repos.Transactions.ProcessPayment(ctx, models.Payment{
		TransactionID: tx.ID,
		Provider:      purchase.PaymentMethod,
		Amount:        purchase.Price,
		Currency:      purchase.Currency,
	})
	if err != nil {
		return tx, models.Payment{}, fmt.Errorf("payment for transaction %s failed: %w", tx.ID, err)
	}

	logger.LogSystem("Credits purchased",
		slog.String("user", purchase.UserID),
		slog.Int64("credits", purchase.Credits),
		slog.String("transaction", tx.ID),
	)
	return tx, payment, nil
}

func (s *WalletService) Refund(ctx context.Context, transactionID, reason string) (models.Transaction, error) {
	tx, err := s.repos.Transactions.Refund(ctx, transactionID, reason)
	if err != nil {
		return models.Transaction{}, err
	}
	s.cache.InvalidateUser(tx.UserID)
	s.cache.InvalidateTransactions()
	return tx, nil
}
