package repositories

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/hobbyhunter/storefront/hobbyhunter/api"
	"github.com/hobbyhunter/storefront/hobbyhunter/mockdata"
	"github.com/hobbyhunter/storefront/hobbyhunter/models"
)

type TransactionRepository interface {
	FindAll(ctx context.Context, filters models.TransactionFilters) ([]models.Transaction, error)
	FindByID(ctx context.Context, id string) (models.Transaction, error)
	Create(ctx context.Context, tx models.Transaction) (models.Transaction, error)
	Update(ctx context.Context, id string, tx models.Transaction) (models.Transaction, error)
	Delete(ctx context.Context, id string) error
	GetUserTransactions(ctx context.Context, userID string) ([]models.Transaction, error)
	PurchaseCredits(ctx context.Context, purchase models.CreditPurchase) (models.Transaction, error)
	UpdateStatus(ctx context.Context, id string, status models.TransactionStatus) (models.Transaction, error)
	Refund(ctx context.Context, id, reason string) (models.Transaction, error)
	ProcessPayment(ctx context.Context, payment models.Payment) (models.Payment, error)
	GetReceipt(ctx context.Context, id string) (models.Receipt, error)
}

type transactionRepository struct {
	*BaseRepository
	state *mockdata.State
}

func NewTransactionRepository(base *BaseRepository, state *mockdata.State) TransactionRepository {
	return &transactionRepository{BaseRepository: base, state: state}
}

func transactionPath(id string, rest ...string) string {
	p := "/transactions/" + url.PathEscape(id)
	for _, r := range rest {
		p += "/" + r
	}
	return p
}

func transactionParams(f models.TransactionFilters) url.Values {
	params := url.Values{}
	if f.UserID != "" {
		params.Set("user_id", f.UserID)
	}
	if f.Type != "" {
		params.Set("transaction_type", string(f.Type))
	}
	if f.Status != "" {
		params.Set("status", string(f.Status))
	}
	if f.Limit > 0 {
		params.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.Offset > 0 {
		params.Set("offset", strconv.Itoa(f.Offset))
	}
	return params
}

func (r *transactionRepository) FindAll(ctx context.Context, filters models.TransactionFilters) ([]models.Transaction, error) {
	params := transactionParams(filters)
	return run(ctx, r.BaseRepository, "find_all", "", func(ctx context.Context) ([]models.Transaction, error) {
		resp, err := api.Get[[]wireTransaction](ctx, r.client, "/transactions", params)
		if err != nil {
			return nil, err
		}
		return toTransactions(resp.Data), nil
	}, func(context.Context) ([]models.Transaction, error) {
		var out []models.Transaction
		for _, tx := range r.state.AllTransactions() {
			if filters.UserID != "" && tx.UserID != filters.UserID {
				continue
			}
			if filters.Type != "" && tx.Type != filters.Type {
				continue
			}
			if filters.Status != "" && tx.Status != filters.Status {
				continue
			}
			out = append(out, tx)
		}
		return paginate(out, params), nil
	})
}

func (r *transactionRepository) FindByID(ctx context.Context, id string) (models.Transaction, error) {
	return run(ctx, r.BaseRepository, "find_by_id", id, func(ctx context.Context) (models.Transaction, error) {
		resp, err := api.Get[wireTransaction](ctx, r.client, transactionPath(id), nil)
		if err != nil {
			return models.Transaction{}, err
		}
		return toTransaction(resp.Data), nil
	}, func(context.Context) (models.Transaction, error) {
		return r.state.Transaction(id)
	})
}

func (r *transactionRepository) Create(ctx context.Context, tx models.Transaction) (models.Transaction, error) {
	if tx.UserID == "" || tx.Type == "" {
		return models.Transaction{}, &ValidationError{Entity: "transaction", Reasons: []string{"user and type are required"}}
	}
	return run(ctx, r.BaseRepository, "create", tx.ID, func(ctx context.Context) (models.Transaction, error) {
		resp, err := api.Post[wireTransaction](ctx, r.client, "/transactions", fromTransaction(tx))
		if err != nil {
			return models.Transaction{}, err
		}
		return toTransaction(resp.Data), nil
	}, func(context.Context) (models.Transaction, error) {
		return r.state.AddTransaction(tx), nil
	})
}

// Update replaces the editable fields of a transaction. Status changes still
// have to be legal transitions.
func (r *transactionRepository) Update(ctx context.Context, id string, tx models.Transaction) (models.Transaction, error) {
	tx.ID = id
	return run(ctx, r.BaseRepository, "update", id, func(ctx context.Context) (models.Transaction, error) {
		resp, err := api.Put[wireTransaction](ctx, r.client, transactionPath(id), fromTransaction(tx))
		if err != nil {
			return models.Transaction{}, err
		}
		return toTransaction(resp.Data), nil
	}, func(context.Context) (models.Transaction, error) {
		return r.state.UpdateTransaction(id, func(stored *models.Transaction) error {
			if tx.Status != "" && tx.Status != stored.Status {
				if err := stored.Transition(tx.Status, r.state.Now()); err != nil {
					return err
				}
			}
			stored.Description = tx.Description
			stored.PaymentReference = tx.PaymentReference
			return nil
		})
	})
}

func (r *transactionRepository) Delete(ctx context.Context, id string) error {
	return exec(ctx, r.BaseRepository, "delete", id, func(ctx context.Context) error {
		_, err := api.Delete[struct{}](ctx, r.client, transactionPath(id))
		return err
	}, func(context.Context) error {
		return r.state.DeleteTransaction(id)
	})
}

func (r *transactionRepository) GetUserTransactions(ctx context.Context, userID string) ([]models.Transaction, error) {
	return run(ctx, r.BaseRepository, "get_user_transactions", userID, func(ctx context.Context) ([]models.Transaction, error) {
		resp, err := api.Get[[]wireTransaction](ctx, r.client, userPath(userID, "transactions"), nil)
		if err != nil {
			return nil, err
		}
		return toTransactions(resp.Data), nil
	}, func(context.Context) ([]models.Transaction, error) {
		return r.state.Transactions(userID)
	})
}

// PurchaseCredits records a pending credit purchase. Credits are granted
// once the payment is processed.
func (r *transactionRepository) PurchaseCredits(ctx context.Context, purchase models.CreditPurchase) (models.Transaction, error) {
	if purchase.Credits <= 0 {
		return models.Transaction{}, &ValidationError{Entity: "credit purchase", Reasons: []string{"credits must be positive"}}
	}
	return run(ctx, r.BaseRepository, "purchase_credits", purchase.UserID, func(ctx context.Context) (models.Transaction, error) {
		resp, err := api.Post[wireTransaction](ctx, r.client, "/transactions/credits", fromCreditPurchase(purchase))
		if err != nil {
			return models.Transaction{}, err
		}
		return toTransaction(resp.Data), nil
	}, func(context.Context) (models.Transaction, error) {
		if _, err := r.state.User(purchase.UserID); err != nil {
			return models.Transaction{}, err
		}
		return r.state.AddTransaction(models.Transaction{
			UserID:      purchase.UserID,
			Type:        models.TransactionCreditPurchase,
			Amount:      decimal.NewFromInt(purchase.Credits),
			Currency:    purchase.Currency,
			Status:      models.StatusPending,
			Description: fmt.Sprintf("Purchase of %d credits (%s %s)", purchase.Credits, purchase.Price.StringFixed(2), purchase.Currency),
		}), nil
	})
}

func (r *transactionRepository) UpdateStatus(ctx context.Context, id string, status models.TransactionStatus) (models.Transaction, error) {
	return run(ctx, r.BaseRepository, "update_status", id, func(ctx context.Context) (models.Transaction, error) {
		resp, err := api.Patch[wireTransaction](ctx, r.client, transactionPath(id, "status"), wireStatusUpdate{Status: string(status)})
		if err != nil {
			return models.Transaction{}, err
		}
		return toTransaction(resp.Data), nil
	}, func(context.Context) (models.Transaction, error) {
		return r.state.UpdateTransaction(id, func(tx *models.Transaction) error {
			return tx.Transition(status, r.state.Now())
		})
	})
}

func (r *transactionRepository) Refund(ctx context.Context, id, reason string) (models.Transaction, error) {
	return run(ctx, r.BaseRepository, "refund", id, func(ctx context.Context) (models.Transaction, error) {
		resp, err := api.Post[wireTransaction](ctx, r.client, transactionPath(id, "refund"), wireRefundRequest{Reason: reason})
		if err != nil {
			return models.Transaction{}, err
		}
		return toTransaction(resp.Data), nil
	}, func(context.Context) (models.Transaction, error) {
		return r.state.RefundTransaction(id, reason)
	})
}

// ProcessPayment settles the transaction a payment belongs to. In mock mode a
// settled credit purchase grants its credits.
func (r *transactionRepository) ProcessPayment(ctx context.Context, payment models.Payment) (models.Payment, error) {
	return run(ctx, r.BaseRepository, "process_payment", payment.TransactionID, func(ctx context.Context) (models.Payment, error) {
		resp, err := api.Post[wirePayment](ctx, r.client, transactionPath(payment.TransactionID, "payments"), fromPayment(payment))
		if err != nil {
			return models.Payment{}, err
		}
		return toPayment(resp.Data), nil
	}, func(context.Context) (models.Payment, error) {
		tx, err := r.state.UpdateTransaction(payment.TransactionID, func(tx *models.Transaction) error {
			if tx.Status == models.StatusPending {
				if err := tx.Transition(models.StatusProcessing, r.state.Now()); err != nil {
					return err
				}
			}
			if err := tx.Transition(models.StatusCompleted, r.state.Now()); err != nil {
				return err
			}
			tx.PaymentReference = payment.Reference
			return nil
		})
		if err != nil {
			return models.Payment{}, err
		}
		if tx.Type == models.TransactionCreditPurchase {
			if _, err := r.state.AdjustCredits(tx.UserID, tx.Amount.IntPart()); err != nil {
				return models.Payment{}, err
			}
		}

		if payment.ID == "" {
			payment.ID = r.state.NewID()
		}
		if payment.Amount.IsZero() {
			payment.Amount = tx.Amount
		}
		if payment.Currency == "" {
			payment.Currency = tx.Currency
		}
		payment.Status = models.StatusCompleted
		payment.ProcessedAt = r.state.Now()
		return payment, nil
	})
}

func (r *transactionRepository) GetReceipt(ctx context.Context, id string) (models.Receipt, error) {
	return run(ctx, r.BaseRepository, "get_receipt", id, func(ctx context.Context) (models.Receipt, error) {
		resp, err := api.Get[wireReceipt](ctx, r.client, transactionPath(id, "receipt"), nil)
		if err != nil {
			return models.Receipt{}, err
		}
		return toReceipt(resp.Data), nil
	}, func(context.Context) (models.Receipt, error) {
		tx, err := r.state.Transaction(id)
		if err != nil {
			return models.Receipt{}, err
		}
		return models.Receipt{
			TransactionID: tx.ID,
			UserID:        tx.UserID,
			Lines:         []models.ReceiptLine{{Description: tx.Description, Amount: tx.Amount}},
			Total:         tx.Amount,
			Currency:      tx.Currency,
			IssuedAt:      r.state.Now(),
		}, nil
	})
}
