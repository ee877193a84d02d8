package mockdata

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hobbyhunter/storefront/hobbyhunter/models"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrPurchaseRejected    = errors.New("purchase rejected")
)

// RejectedError carries the validation reasons of a refused purchase.
type RejectedError struct {
	Reasons []string
}

func (e *RejectedError) Error() string {
	return "purchase rejected: " + strings.Join(e.Reasons, ", ")
}

func (e *RejectedError) Is(target error) bool {
	return target == ErrPurchaseRejected
}

// State is the mutable mock backend for one session. Reads of an unknown
// user id produce the deterministic generated user, so the same id always
// resolves to the same data.
type State struct {
	mu sync.Mutex

	now   func() time.Time
	newID func() string
	start time.Time

	templates    []models.CardTemplate
	users        map[string]*models.User
	deletedUsers map[string]bool
	cards        map[string][]models.Card
	transactions map[string][]models.Transaction
	packs        map[string]models.Pack
	packOrder    []string
	addresses    map[string][]models.ShippingAddress
	purchases    map[string][]models.PackPurchaseRecord
	stats        map[string]*models.PackStatistics
}

type StateOption func(*State)

func WithStateClock(now func() time.Time) StateOption {
	return func(s *State) { s.now = now }
}

func WithStateIDs(newID func() string) StateOption {
	return func(s *State) { s.newID = newID }
}

func WithTemplates(templates []models.CardTemplate) StateOption {
	return func(s *State) { s.templates = templates }
}

func WithPacks(packs []models.Pack) StateOption {
	return func(s *State) {
		s.packs = make(map[string]models.Pack, len(packs))
		s.packOrder = s.packOrder[:0]
		for _, p := range packs {
			s.packs[p.ID] = p
			s.packOrder = append(s.packOrder, p.ID)
		}
	}
}

func NewState(opts ...StateOption) *State {
	s := &State{
		now:          time.Now,
		newID:        uuid.NewString,
		templates:    Templates(),
		users:        make(map[string]*models.User),
		deletedUsers: make(map[string]bool),
		cards:        make(map[string][]models.Card),
		transactions: make(map[string][]models.Transaction),
		addresses:    make(map[string][]models.ShippingAddress),
		purchases:    make(map[string][]models.PackPurchaseRecord),
		stats:        make(map[string]*models.PackStatistics),
	}
	WithPacks(Packs())(s)
	for _, u := range Users() {
		u := u
		s.users[u.ID] = &u
	}
	for _, opt := range opts {
		opt(s)
	}
	s.start = s.now()
	return s
}

func (s *State) Now() time.Time {
	return s.now()
}

func (s *State) NewID() string {
	return s.newID()
}

func (s *State) Templates() []models.CardTemplate {
	return append([]models.CardTemplate(nil), s.templates...)
}

func (s *State) userLocked(id string) (*models.User, error) {
	if id == "" || s.deletedUsers[id] {
		return nil, fmt.Errorf("user %q: %w", id, ErrNotFound)
	}
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	u := GenerateUser(id)
	s.users[id] = &u
	return &u, nil
}

func (s *State) Users() []models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *State) User(id string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := s.userLocked(id)
	if err != nil {
		return models.User{}, err
	}
	return *u, nil
}

func (s *State) CreateUser(u models.User) models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = s.newID()
	}
	now := s.now()
	u.CreatedAt, u.UpdatedAt = now, now
	delete(s.deletedUsers, u.ID)
	s.users[u.ID] = &u
	s.cards[u.ID] = []models.Card{}
	s.transactions[u.ID] = []models.Transaction{}
	return u
}

// UpdateUser applies fn to the stored user.
func (s *State) UpdateUser(id string, fn func(*models.User)) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := s.userLocked(id)
	if err != nil {
		return models.User{}, err
	}
	fn(u)
	u.ID = id
	u.UpdatedAt = s.now()
	return *u, nil
}

func (s *State) DeleteUser(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.userLocked(id); err != nil {
		return err
	}
	delete(s.users, id)
	delete(s.cards, id)
	delete(s.transactions, id)
	s.deletedUsers[id] = true
	return nil
}

// AdjustCredits adds delta to the balance. A balance never goes negative.
func (s *State) AdjustCredits(id string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.adjustCreditsLocked(id, delta)
}

func (s *State) adjustCreditsLocked(id string, delta int64) (int64, error) {
	u, err := s.userLocked(id)
	if err != nil {
		return 0, err
	}
	if u.Credits+delta < 0 {
		return u.Credits, fmt.Errorf("balance %d, change %d: %w", u.Credits, delta, ErrInsufficientCredits)
	}
	u.Credits += delta
	u.UpdatedAt = s.now()
	return u.Credits, nil
}

func (s *State) cardsLocked(userID string) ([]models.Card, error) {
	if _, err := s.userLocked(userID); err != nil {
		return nil, err
	}
	if cards, ok := s.cards[userID]; ok {
		return cards, nil
	}
	cards := GenerateCards(userID, s.templates, s.start)
	s.cards[userID] = cards
	return cards, nil
}

// Cards returns the cards userID currently owns, including those with a
// pending shipment.
func (s *State) Cards(userID string) ([]models.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cards, err := s.cardsLocked(userID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	out := make([]models.Card, 0, len(cards))
	for _, c := range cards {
		if c.Status == models.CardStatusOwned || c.Status == models.CardStatusShippingRequested {
			c.Expired = c.IsExpired(now)
			out = append(out, c)
		}
	}
	return out, nil
}

// AllCards lists every card of every user this session has touched.
func (s *State) AllCards() []models.Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Card
	for id := range s.users {
		cards, _ := s.cardsLocked(id)
		out = append(out, cards...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *State) findCardLocked(id string) (string, int, bool) {
	for userID, cards := range s.cards {
		for i, c := range cards {
			if c.ID == id {
				return userID, i, true
			}
		}
	}
	return "", 0, false
}

func (s *State) Card(id string) (models.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID, i, ok := s.findCardLocked(id)
	if !ok {
		return models.Card{}, fmt.Errorf("card %q: %w", id, ErrNotFound)
	}
	card := s.cards[userID][i]
	card.Expired = card.IsExpired(s.now())
	return card, nil
}

func (s *State) AddCards(userID string, cards []models.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, err := s.cardsLocked(userID)
	if err != nil {
		return err
	}
	for _, c := range cards {
		c.OwnerID = userID
		existing = append(existing, c)
	}
	s.cards[userID] = existing
	return nil
}

// SaveCard inserts or replaces a card, keyed by its id.
func (s *State) SaveCard(card models.Card) (models.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if card.ID == "" {
		card.ID = s.newID()
	}
	if userID, i, ok := s.findCardLocked(card.ID); ok {
		if card.OwnerID == "" {
			card.OwnerID = userID
		}
		if card.OwnerID == userID {
			s.cards[userID][i] = card
			return card, nil
		}
		s.cards[userID] = append(s.cards[userID][:i], s.cards[userID][i+1:]...)
	}
	existing, err := s.cardsLocked(card.OwnerID)
	if err != nil {
		return models.Card{}, err
	}
	s.cards[card.OwnerID] = append(existing, card)
	return card, nil
}

func (s *State) DeleteCard(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID, i, ok := s.findCardLocked(id)
	if !ok {
		return fmt.Errorf("card %q: %w", id, ErrNotFound)
	}
	s.cards[userID] = append(s.cards[userID][:i], s.cards[userID][i+1:]...)
	return nil
}

// TransitionCards moves every listed card of userID to next. Nothing changes
// unless every card exists and may make the transition.
func (s *State) TransitionCards(userID string, ids []string, next models.CardStatus) ([]models.Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cards, err := s.cardsLocked(userID)
	if err != nil {
		return nil, err
	}
	return s.transitionLocked(userID, cards, ids, next)
}

// transitionLocked moves each distinct id once; repeats are ignored.
func (s *State) transitionLocked(userID string, cards []models.Card, ids []string, next models.CardStatus) ([]models.Card, error) {
	ids = uniqueIDs(ids)
	index := make(map[string]int, len(cards))
	for i, c := range cards {
		index[c.ID] = i
	}

	for _, id := range ids {
		i, ok := index[id]
		if !ok {
			return nil, fmt.Errorf("card %q of user %q: %w", id, userID, ErrNotFound)
		}
		if !cards[i].Status.CanTransitionTo(next) {
			return nil, fmt.Errorf("card %s %s -> %s: %w", id, cards[i].Status, next, models.ErrInvalidTransition)
		}
	}

	moved := make([]models.Card, 0, len(ids))
	for _, id := range ids {
		i := index[id]
		cards[i].Status = next
		moved = append(moved, cards[i])
	}
	return moved, nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func movedIDs(cards []models.Card) []string {
	ids := make([]string, len(cards))
	for i, c := range cards {
		ids[i] = c.ID
	}
	return ids
}

// ConvertCards turns owned cards into credits at rate credits per dollar of
// card value and records the conversion.
func (s *State) ConvertCards(userID string, ids []string, rate int64) (models.ConversionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cards, err := s.cardsLocked(userID)
	if err != nil {
		return models.ConversionResult{}, err
	}
	moved, err := s.transitionLocked(userID, cards, ids, models.CardStatusConverted)
	if err != nil {
		return models.ConversionResult{}, err
	}

	awarded := CardCredits(moved, rate)
	balance, err := s.adjustCreditsLocked(userID, awarded)
	if err != nil {
		return models.ConversionResult{}, err
	}
	tx := s.addTransactionLocked(models.Transaction{
		UserID:      userID,
		Type:        models.TransactionCardConversion,
		Amount:      decimal.NewFromInt(awarded),
		Status:      models.StatusCompleted,
		Description: fmt.Sprintf("Converted %d cards", len(moved)),
	})
	return models.ConversionResult{
		CardIDs:        movedIDs(moved),
		CreditsAwarded: awarded,
		NewBalance:     balance,
		TransactionID:  tx.ID,
	}, nil
}

// SellCards sells owned cards at market value.
func (s *State) SellCards(userID string, ids []string, rate int64) (models.SaleResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cards, err := s.cardsLocked(userID)
	if err != nil {
		return models.SaleResult{}, err
	}
	moved, err := s.transitionLocked(userID, cards, ids, models.CardStatusSold)
	if err != nil {
		return models.SaleResult{}, err
	}

	earned := CardCredits(moved, rate)
	if _, err := s.adjustCreditsLocked(userID, earned); err != nil {
		return models.SaleResult{}, err
	}
	tx := s.addTransactionLocked(models.Transaction{
		UserID:      userID,
		Type:        models.TransactionCardSale,
		Amount:      decimal.NewFromInt(earned),
		Status:      models.StatusCompleted,
		Description: fmt.Sprintf("Sold %d cards", len(moved)),
	})
	return models.SaleResult{CardIDs: movedIDs(moved), CreditsEarned: earned, TransactionID: tx.ID}, nil
}

// ShipCards charges fee and marks the cards as awaiting shipment.
func (s *State) ShipCards(req models.ShippingRequest, fee int64) (models.ShippingResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cards, err := s.cardsLocked(req.UserID)
	if err != nil {
		return models.ShippingResult{}, err
	}
	u, _ := s.userLocked(req.UserID)
	if u.Credits < fee {
		return models.ShippingResult{}, fmt.Errorf("shipping fee %d: %w", fee, ErrInsufficientCredits)
	}
	moved, err := s.transitionLocked(req.UserID, cards, req.CardIDs, models.CardStatusShippingRequested)
	if err != nil {
		return models.ShippingResult{}, err
	}
	if _, err := s.adjustCreditsLocked(req.UserID, -fee); err != nil {
		return models.ShippingResult{}, err
	}
	s.addTransactionLocked(models.Transaction{
		UserID:      req.UserID,
		Type:        models.TransactionShippingFee,
		Amount:      decimal.NewFromInt(-fee),
		Status:      models.StatusCompleted,
		Description: fmt.Sprintf("Shipping for %d cards to %s", len(moved), req.Address.City),
	})
	return models.ShippingResult{
		RequestID:   s.newID(),
		CardIDs:     movedIDs(moved),
		Fee:         fee,
		Status:      string(models.CardStatusShippingRequested),
		RequestedAt: s.now(),
	}, nil
}

// CardCredits values cards at rate credits per dollar, rounded down, with a
// floor of one credit per card.
func CardCredits(cards []models.Card, rate int64) int64 {
	var total int64
	for _, c := range cards {
		credits := c.Value.Mul(decimal.NewFromInt(rate)).IntPart()
		if credits < 1 {
			credits = 1
		}
		total += credits
	}
	return total
}

func (s *State) transactionsLocked(userID string) []models.Transaction {
	if txs, ok := s.transactions[userID]; ok {
		return txs
	}
	txs := GenerateTransactions(userID)
	s.transactions[userID] = txs
	return txs
}

// Transactions returns the history of userID, newest first.
func (s *State) Transactions(userID string) ([]models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.userLocked(userID); err != nil {
		return nil, err
	}
	out := append([]models.Transaction(nil), s.transactionsLocked(userID)...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *State) AllTransactions() []models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Transaction
	for id := range s.users {
		out = append(out, s.transactionsLocked(id)...)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *State) findTransactionLocked(id string) (string, int, bool) {
	for userID, txs := range s.transactions {
		for i, tx := range txs {
			if tx.ID == id {
				return userID, i, true
			}
		}
	}
	return "", 0, false
}

func (s *State) Transaction(id string) (models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID, i, ok := s.findTransactionLocked(id)
	if !ok {
		return models.Transaction{}, fmt.Errorf("transaction %q: %w", id, ErrNotFound)
	}
	return s.transactions[userID][i], nil
}

func (s *State) AddTransaction(tx models.Transaction) models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addTransactionLocked(tx)
}

func (s *State) addTransactionLocked(tx models.Transaction) models.Transaction {
	if tx.ID == "" {
		tx.ID = s.newID()
	}
	if tx.Currency == "" {
		tx.Currency = "USD"
	}
	if tx.Status == "" {
		tx.Status = models.StatusPending
	}
	now := s.now()
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = now
	}
	tx.UpdatedAt = now
	s.transactions[tx.UserID] = append(s.transactionsLocked(tx.UserID), tx)
	return tx
}

// UpdateTransaction applies fn to the stored transaction; an error from fn
// leaves it untouched.
func (s *State) UpdateTransaction(id string, fn func(*models.Transaction) error) (models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID, i, ok := s.findTransactionLocked(id)
	if !ok {
		return models.Transaction{}, fmt.Errorf("transaction %q: %w", id, ErrNotFound)
	}
	tx := s.transactions[userID][i]
	if err := fn(&tx); err != nil {
		return models.Transaction{}, err
	}
	tx.ID = id
	tx.UpdatedAt = s.now()
	s.transactions[userID][i] = tx
	return tx, nil
}

func (s *State) DeleteTransaction(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID, i, ok := s.findTransactionLocked(id)
	if !ok {
		return fmt.Errorf("transaction %q: %w", id, ErrNotFound)
	}
	s.transactions[userID] = append(s.transactions[userID][:i], s.transactions[userID][i+1:]...)
	return nil
}

// RefundTransaction reverses a completed transaction and records the refund.
func (s *State) RefundTransaction(id, reason string) (models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID, i, ok := s.findTransactionLocked(id)
	if !ok {
		return models.Transaction{}, fmt.Errorf("transaction %q: %w", id, ErrNotFound)
	}
	original := s.transactions[userID][i]
	if err := original.Transition(models.StatusRefunded, s.now()); err != nil {
		return models.Transaction{}, err
	}

	credits := original.Amount.Neg().IntPart()
	if _, err := s.adjustCreditsLocked(userID, credits); err != nil {
		return models.Transaction{}, err
	}
	s.transactions[userID][i] = original

	description := "Refund of " + original.Description
	if reason != "" {
		description += ": " + reason
	}
	return s.addTransactionLocked(models.Transaction{
		UserID:           userID,
		Type:             models.TransactionRefund,
		Amount:           original.Amount.Neg(),
		Status:           models.StatusCompleted,
		Description:      description,
		PaymentReference: original.ID,
	}), nil
}

// Packs lists the catalog in its original order.
func (s *State) Packs() []models.Pack {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Pack, 0, len(s.packOrder))
	for _, id := range s.packOrder {
		out = append(out, s.packs[id])
	}
	return out
}

func (s *State) Pack(id string) (models.Pack, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.packs[id]
	if !ok {
		return models.Pack{}, fmt.Errorf("pack %q: %w", id, ErrNotFound)
	}
	return p, nil
}

func (s *State) SavePack(p models.Pack) models.Pack {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = slug(p.Name)
		if _, taken := s.packs[p.ID]; taken || p.ID == "" {
			p.ID = s.newID()
		}
	}
	if _, ok := s.packs[p.ID]; !ok {
		s.packOrder = append(s.packOrder, p.ID)
	}
	s.packs[p.ID] = p
	return p
}

func (s *State) DeletePack(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.packs[id]; !ok {
		return fmt.Errorf("pack %q: %w", id, ErrNotFound)
	}
	delete(s.packs, id)
	for i, pid := range s.packOrder {
		if pid == id {
			s.packOrder = append(s.packOrder[:i], s.packOrder[i+1:]...)
			break
		}
	}
	return nil
}

func (s *State) ValidatePurchase(userID, packID string, quantity int) (models.PurchaseValidation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := s.userLocked(userID)
	if err != nil {
		return models.PurchaseValidation{}, err
	}
	p, ok := s.packs[packID]
	if !ok {
		return models.PurchaseValidation{}, fmt.Errorf("pack %q: %w", packID, ErrNotFound)
	}
	return models.ValidatePurchase(p, u.Credits, quantity), nil
}

// Purchase validates and then charges for quantity packs in one step.
func (s *State) Purchase(userID, packID string, quantity int) (models.PurchaseResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, err := s.userLocked(userID)
	if err != nil {
		return models.PurchaseResult{}, err
	}
	p, ok := s.packs[packID]
	if !ok {
		return models.PurchaseResult{}, fmt.Errorf("pack %q: %w", packID, ErrNotFound)
	}
	if v := models.ValidatePurchase(p, u.Credits, quantity); !v.Valid {
		return models.PurchaseResult{}, &RejectedError{Reasons: v.Errors}
	}

	cost, _ := p.Cost(quantity)
	remaining, err := s.adjustCreditsLocked(userID, -cost)
	if err != nil {
		return models.PurchaseResult{}, err
	}
	if p.Stock != nil {
		left := *p.Stock - quantity
		p.Stock = &left
		s.packs[packID] = p
	}

	tx := s.addTransactionLocked(models.Transaction{
		UserID:      userID,
		Type:        models.TransactionPackPurchase,
		Amount:      decimal.NewFromInt(-cost),
		Status:      models.StatusCompleted,
		Description: fmt.Sprintf("Purchased %d x %s", quantity, p.Name),
	})
	s.purchases[userID] = append(s.purchases[userID], models.PackPurchaseRecord{
		PackID:      p.ID,
		PackName:    p.Name,
		Quantity:    quantity,
		TotalCost:   cost,
		PurchasedAt: tx.CreatedAt,
	})

	return models.PurchaseResult{
		Pack:             p,
		Quantity:         quantity,
		TotalCost:        cost,
		RemainingCredits: remaining,
		Transaction:      tx,
	}, nil
}

func (s *State) PurchaseHistory(userID string) []models.PackPurchaseRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.PackPurchaseRecord(nil), s.purchases[userID]...)
}

// RecordOpening credits the drawn cards to userID and folds them into the
// pack statistics.
func (s *State) RecordOpening(userID string, pack models.Pack, cards []models.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, err := s.cardsLocked(userID)
	if err != nil {
		return err
	}
	for _, c := range cards {
		c.OwnerID = userID
		existing = append(existing, c)
	}
	s.cards[userID] = existing

	stats := s.statsLocked(pack)
	prevTotal := stats.AverageValue.Mul(decimal.NewFromInt(stats.TimesOpened * int64(pack.CardCount)))
	stats.TimesOpened++
	for _, c := range cards {
		stats.RarityCounts[c.Rarity]++
		prevTotal = prevTotal.Add(c.Value)
		if c.Rarity > stats.BestPullRarity {
			stats.BestPullName = c.Name
			stats.BestPullRarity = c.Rarity
		}
	}
	if n := stats.TimesOpened * int64(pack.CardCount); n > 0 {
		stats.AverageValue = prevTotal.Div(decimal.NewFromInt(n)).Round(2)
	}
	return nil
}

func (s *State) statsLocked(pack models.Pack) *models.PackStatistics {
	if st, ok := s.stats[pack.ID]; ok {
		return st
	}
	st := BaseStatistics(pack, s.templates)
	s.stats[pack.ID] = &st
	return &st
}

func (s *State) Statistics(packID string) (models.PackStatistics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.packs[packID]
	if !ok {
		return models.PackStatistics{}, fmt.Errorf("pack %q: %w", packID, ErrNotFound)
	}
	st := *s.statsLocked(p)
	counts := make(map[models.Rarity]int64, len(st.RarityCounts))
	for k, v := range st.RarityCounts {
		counts[k] = v
	}
	st.RarityCounts = counts
	return st, nil
}

func (s *State) Addresses(userID string) ([]models.ShippingAddress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.userLocked(userID); err != nil {
		return nil, err
	}
	return append([]models.ShippingAddress(nil), s.addresses[userID]...), nil
}

func (s *State) AddAddress(userID string, addr models.ShippingAddress) (models.ShippingAddress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.userLocked(userID); err != nil {
		return models.ShippingAddress{}, err
	}
	if addr.ID == "" {
		addr.ID = s.newID()
	}
	s.addresses[userID] = append(s.addresses[userID], addr)
	return addr, nil
}

func slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
