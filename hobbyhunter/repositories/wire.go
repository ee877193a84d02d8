package repositories

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/hobbyhunter/storefront/hobbyhunter/models"
)

// Wire shapes of the remote API. Nothing outside this package sees them.

type wireProfile struct {
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	Bio         string `json:"bio,omitempty"`
}

type wirePreferences struct {
	EmailNotifications bool   `json:"email_notifications"`
	PushNotifications  bool   `json:"push_notifications"`
	Currency           string `json:"currency"`
}

type wireSettings struct {
	Theme    string `json:"theme"`
	Language string `json:"language"`
	Private  bool   `json:"private_profile"`
}

type wireUser struct {
	ID          string          `json:"id"`
	Email       string          `json:"email"`
	Username    string          `json:"username"`
	Credits     int64           `json:"credits"`
	Cards       []wireCard      `json:"cards,omitempty"`
	Profile     wireProfile     `json:"profile"`
	Preferences wirePreferences `json:"preferences"`
	Settings    wireSettings    `json:"settings"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type wireCredits struct {
	UserID  string `json:"user_id"`
	Credits int64  `json:"credits"`
}

type wireCreditAdjustment struct {
	Amount int64  `json:"amount"`
	Reason string `json:"reason,omitempty"`
}

type wireCard struct {
	ID         string          `json:"id"`
	TemplateID string          `json:"template_id"`
	Name       string          `json:"name"`
	Rarity     models.Rarity   `json:"rarity"`
	Value      decimal.Decimal `json:"value"`
	Finish     models.Finish   `json:"finish"`
	ImageURL   string          `json:"image_url"`
	ExpiresAt  time.Time       `json:"expires_at"`
	Expired    bool            `json:"is_expired"`
	PackID     string          `json:"pack_id,omitempty"`
	OwnerID    string          `json:"owner_id"`
	Status     string          `json:"status"`
	ObtainedAt time.Time       `json:"obtained_at"`
}

type wireMarketPrice struct {
	TemplateID string          `json:"template_id"`
	Name       string          `json:"name"`
	Rarity     models.Rarity   `json:"rarity"`
	Price      decimal.Decimal `json:"price"`
	Change24h  decimal.Decimal `json:"change_24h"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

type wireCardHistory struct {
	CardID    string          `json:"card_id"`
	Event     string          `json:"event"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
}

type wireCardDetails struct {
	Card    wireCard          `json:"card"`
	Market  *wireMarketPrice  `json:"market_price,omitempty"`
	History []wireCardHistory `json:"history"`
}

type wireCardIDs struct {
	UserID  string   `json:"user_id"`
	CardIDs []string `json:"card_ids"`
}

type wireAddress struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"recipient_name"`
	Line1      string `json:"address_line1"`
	Line2      string `json:"address_line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type wireShippingRequest struct {
	UserID  string      `json:"user_id"`
	CardIDs []string    `json:"card_ids"`
	Address wireAddress `json:"shipping_address"`
	Express bool        `json:"express"`
}

type wireShippingResult struct {
	RequestID   string    `json:"request_id"`
	CardIDs     []string  `json:"card_ids"`
	Fee         int64     `json:"fee"`
	Status      string    `json:"status"`
	RequestedAt time.Time `json:"requested_at"`
}

type wireConversionResult struct {
	CardIDs        []string `json:"card_ids"`
	CreditsAwarded int64    `json:"credits_awarded"`
	NewBalance     int64    `json:"new_balance"`
	TransactionID  string   `json:"transaction_id"`
}

type wireSaleResult struct {
	CardIDs       []string `json:"card_ids"`
	CreditsEarned int64    `json:"credits_earned"`
	TransactionID string   `json:"transaction_id"`
}

type wireGuarantee struct {
	Rarity models.Rarity `json:"rarity"`
	Count  int           `json:"count"`
}

type wirePack struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         int64           `json:"price"`
	CardCount     int             `json:"card_count"`
	Guarantees    []wireGuarantee `json:"rarity_guarantees"`
	Available     bool            `json:"is_available"`
	Stock         *int            `json:"stock,omitempty"`
	FeaturedUntil *time.Time      `json:"featured_until,omitempty"`
	ImageURL      string          `json:"image_url"`
}

type wirePurchaseRequest struct {
	UserID   string `json:"user_id"`
	Quantity int    `json:"quantity"`
}

type wirePurchaseResult struct {
	Pack             wirePack        `json:"pack"`
	Quantity         int             `json:"quantity"`
	TotalCost        int64           `json:"total_cost"`
	RemainingCredits int64           `json:"remaining_credits"`
	Transaction      wireTransaction `json:"transaction"`
}

type wirePackOpening struct {
	Pack     wirePack   `json:"pack"`
	Cards    []wireCard `json:"cards"`
	OpenedAt time.Time  `json:"opened_at"`
}

type wirePackStatistics struct {
	PackID         string                  `json:"pack_id"`
	TimesOpened    int64                   `json:"times_opened"`
	RarityCounts   map[models.Rarity]int64 `json:"rarity_counts"`
	AverageValue   decimal.Decimal         `json:"average_value"`
	BestPullName   string                  `json:"best_pull_name"`
	BestPullRarity models.Rarity           `json:"best_pull_rarity"`
}

type wirePurchaseRecord struct {
	PackID      string    `json:"pack_id"`
	PackName    string    `json:"pack_name"`
	Quantity    int       `json:"quantity"`
	TotalCost   int64     `json:"total_cost"`
	PurchasedAt time.Time `json:"purchased_at"`
}

type wireTransaction struct {
	ID               string          `json:"id"`
	UserID           string          `json:"user_id"`
	Type             string          `json:"transaction_type"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	Status           string          `json:"status"`
	Description      string          `json:"description"`
	PaymentReference string          `json:"payment_reference,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

type wireStatusUpdate struct {
	Status string `json:"status"`
}

type wireRefundRequest struct {
	Reason string `json:"reason,omitempty"`
}

type wireCreditPurchase struct {
	UserID        string          `json:"user_id"`
	Credits       int64           `json:"credits"`
	Price         decimal.Decimal `json:"price"`
	Currency      string          `json:"currency"`
	PaymentMethod string          `json:"payment_method"`
}

type wirePayment struct {
	ID            string          `json:"id"`
	TransactionID string          `json:"transaction_id"`
	Provider      string          `json:"provider"`
	Reference     string          `json:"reference"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Status        string          `json:"status"`
	ProcessedAt   time.Time       `json:"processed_at"`
}

type wireReceiptLine struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

type wireReceipt struct {
	TransactionID string            `json:"transaction_id"`
	UserID        string            `json:"user_id"`
	Lines         []wireReceiptLine `json:"line_items"`
	Total         decimal.Decimal   `json:"total"`
	Currency      string            `json:"currency"`
	IssuedAt      time.Time         `json:"issued_at"`
}

type wireSession struct {
	User         wireUser  `json:"user"`
	Token        string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type wireCredentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type wireRegistration struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type wireRefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func toUser(w wireUser) models.User {
	return models.User{
		ID:       w.ID,
		Email:    w.Email,
		Username: w.Username,
		Credits:  w.Credits,
		Cards:    toCards(w.Cards),
		Profile:  toProfile(w.Profile),
		Preferences: models.Preferences{
			EmailNotifications: w.Preferences.EmailNotifications,
			PushNotifications:  w.Preferences.PushNotifications,
			Currency:           w.Preferences.Currency,
		},
		Settings:  toSettings(w.Settings),
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}
}

func fromUser(u models.User) wireUser {
	return wireUser{
		ID:       u.ID,
		Email:    u.Email,
		Username: u.Username,
		Credits:  u.Credits,
		Cards:    fromCards(u.Cards),
		Profile:  fromProfile(u.Profile),
		Preferences: wirePreferences{
			EmailNotifications: u.Preferences.EmailNotifications,
			PushNotifications:  u.Preferences.PushNotifications,
			Currency:           u.Preferences.Currency,
		},
		Settings:  fromSettings(u.Settings),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func toUsers(ws []wireUser) []models.User {
	out := make([]models.User, len(ws))
	for i, w := range ws {
		out[i] = toUser(w)
	}
	return out
}

func toProfile(w wireProfile) models.Profile {
	return models.Profile{DisplayName: w.DisplayName, AvatarURL: w.AvatarURL, Bio: w.Bio}
}

func fromProfile(p models.Profile) wireProfile {
	return wireProfile{DisplayName: p.DisplayName, AvatarURL: p.AvatarURL, Bio: p.Bio}
}

func toSettings(w wireSettings) models.Settings {
	return models.Settings{Theme: w.Theme, Language: w.Language, Private: w.Private}
}

func fromSettings(s models.Settings) wireSettings {
	return wireSettings{Theme: s.Theme, Language: s.Language, Private: s.Private}
}

func toCard(w wireCard) models.Card {
	return models.Card{
		ID:         w.ID,
		TemplateID: w.TemplateID,
		Name:       w.Name,
		Rarity:     w.Rarity,
		Value:      w.Value,
		Finish:     w.Finish,
		ImageURL:   w.ImageURL,
		ExpiresAt:  w.ExpiresAt,
		Expired:    w.Expired,
		PackID:     w.PackID,
		OwnerID:    w.OwnerID,
		Status:     models.CardStatus(w.Status),
		ObtainedAt: w.ObtainedAt,
	}
}

func fromCard(c models.Card) wireCard {
	return wireCard{
		ID:         c.ID,
		TemplateID: c.TemplateID,
		Name:       c.Name,
		Rarity:     c.Rarity,
		Value:      c.Value,
		Finish:     c.Finish,
		ImageURL:   c.ImageURL,
		ExpiresAt:  c.ExpiresAt,
		Expired:    c.Expired,
		PackID:     c.PackID,
		OwnerID:    c.OwnerID,
		Status:     string(c.Status),
		ObtainedAt: c.ObtainedAt,
	}
}

func toCards(ws []wireCard) []models.Card {
	if ws == nil {
		return nil
	}
	out := make([]models.Card, len(ws))
	for i, w := range ws {
		out[i] = toCard(w)
	}
	return out
}

func fromCards(cs []models.Card) []wireCard {
	if cs == nil {
		return nil
	}
	out := make([]wireCard, len(cs))
	for i, c := range cs {
		out[i] = fromCard(c)
	}
	return out
}

func toMarketPrice(w wireMarketPrice) models.MarketPrice {
	return models.MarketPrice{
		TemplateID: w.TemplateID,
		Name:       w.Name,
		Rarity:     w.Rarity,
		Price:      w.Price,
		Change24h:  w.Change24h,
		UpdatedAt:  w.UpdatedAt,
	}
}

func toMarketPrices(ws []wireMarketPrice) []models.MarketPrice {
	out := make([]models.MarketPrice, len(ws))
	for i, w := range ws {
		out[i] = toMarketPrice(w)
	}
	return out
}

func toCardHistory(ws []wireCardHistory) []models.CardHistoryEntry {
	out := make([]models.CardHistoryEntry, len(ws))
	for i, w := range ws {
		out[i] = models.CardHistoryEntry{CardID: w.CardID, Event: w.Event, Price: w.Price, Timestamp: w.Timestamp}
	}
	return out
}

func toCardDetails(w wireCardDetails) models.CardDetails {
	d := models.CardDetails{
		Card:    toCard(w.Card),
		History: toCardHistory(w.History),
	}
	if w.Market != nil {
		m := toMarketPrice(*w.Market)
		d.Market = &m
	}
	return d
}

func toAddress(w wireAddress) models.ShippingAddress {
	return models.ShippingAddress{
		ID:         w.ID,
		Name:       w.Name,
		Line1:      w.Line1,
		Line2:      w.Line2,
		City:       w.City,
		State:      w.State,
		PostalCode: w.PostalCode,
		Country:    w.Country,
	}
}

func fromAddress(a models.ShippingAddress) wireAddress {
	return wireAddress{
		ID:         a.ID,
		Name:       a.Name,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

func toAddresses(ws []wireAddress) []models.ShippingAddress {
	out := make([]models.ShippingAddress, len(ws))
	for i, w := range ws {
		out[i] = toAddress(w)
	}
	return out
}

func fromShippingRequest(r models.ShippingRequest) wireShippingRequest {
	return wireShippingRequest{
		UserID:  r.UserID,
		CardIDs: r.CardIDs,
		Address: fromAddress(r.Address),
		Express: r.Express,
	}
}

func toShippingResult(w wireShippingResult) models.ShippingResult {
	return models.ShippingResult{
		RequestID:   w.RequestID,
		CardIDs:     w.CardIDs,
		Fee:         w.Fee,
		Status:      w.Status,
		RequestedAt: w.RequestedAt,
	}
}

func toConversionResult(w wireConversionResult) models.ConversionResult {
	return models.ConversionResult{
		CardIDs:        w.CardIDs,
		CreditsAwarded: w.CreditsAwarded,
		NewBalance:     w.NewBalance,
		TransactionID:  w.TransactionID,
	}
}

func toSaleResult(w wireSaleResult) models.SaleResult {
	return models.SaleResult{CardIDs: w.CardIDs, CreditsEarned: w.CreditsEarned, TransactionID: w.TransactionID}
}

func toPack(w wirePack) models.Pack {
	guarantees := make([]models.RarityGuarantee, len(w.Guarantees))
	for i, g := range w.Guarantees {
		guarantees[i] = models.RarityGuarantee{Rarity: g.Rarity, Count: g.Count}
	}
	return models.Pack{
		ID:            w.ID,
		Name:          w.Name,
		Description:   w.Description,
		Price:         w.Price,
		CardCount:     w.CardCount,
		Guarantees:    guarantees,
		Available:     w.Available,
		Stock:         w.Stock,
		FeaturedUntil: w.FeaturedUntil,
		ImageURL:      w.ImageURL,
	}
}

func fromPack(p models.Pack) wirePack {
	guarantees := make([]wireGuarantee, len(p.Guarantees))
	for i, g := range p.Guarantees {
		guarantees[i] = wireGuarantee{Rarity: g.Rarity, Count: g.Count}
	}
	return wirePack{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Price:         p.Price,
		CardCount:     p.CardCount,
		Guarantees:    guarantees,
		Available:     p.Available,
		Stock:         p.Stock,
		FeaturedUntil: p.FeaturedUntil,
		ImageURL:      p.ImageURL,
	}
}

func toPacks(ws []wirePack) []models.Pack {
	out := make([]models.Pack, len(ws))
	for i, w := range ws {
		out[i] = toPack(w)
	}
	return out
}

func toPurchaseResult(w wirePurchaseResult) models.PurchaseResult {
	return models.PurchaseResult{
		Pack:             toPack(w.Pack),
		Quantity:         w.Quantity,
		TotalCost:        w.TotalCost,
		RemainingCredits: w.RemainingCredits,
		Transaction:      toTransaction(w.Transaction),
	}
}

func toPackOpening(w wirePackOpening) models.PackOpening {
	return models.PackOpening{Pack: toPack(w.Pack), Cards: toCards(w.Cards), OpenedAt: w.OpenedAt}
}

func toPackStatistics(w wirePackStatistics) models.PackStatistics {
	return models.PackStatistics{
		PackID:         w.PackID,
		TimesOpened:    w.TimesOpened,
		RarityCounts:   w.RarityCounts,
		AverageValue:   w.AverageValue,
		BestPullName:   w.BestPullName,
		BestPullRarity: w.BestPullRarity,
	}
}

func toPurchaseRecords(ws []wirePurchaseRecord) []models.PackPurchaseRecord {
	out := make([]models.PackPurchaseRecord, len(ws))
	for i, w := range ws {
		out[i] = models.PackPurchaseRecord{
			PackID:      w.PackID,
			PackName:    w.PackName,
			Quantity:    w.Quantity,
			TotalCost:   w.TotalCost,
			PurchasedAt: w.PurchasedAt,
		}
	}
	return out
}

func toTransaction(w wireTransaction) models.Transaction {
	return models.Transaction{
		ID:               w.ID,
		UserID:           w.UserID,
		Type:             models.TransactionType(w.Type),
		Amount:           w.Amount,
		Currency:         w.Currency,
		Status:           models.TransactionStatus(w.Status),
		Description:      w.Description,
		PaymentReference: w.PaymentReference,
		CreatedAt:        w.CreatedAt,
		UpdatedAt:        w.UpdatedAt,
	}
}

func fromTransaction(t models.Transaction) wireTransaction {
	return wireTransaction{
		ID:               t.ID,
		UserID:           t.UserID,
		Type:             string(t.Type),
		Amount:           t.Amount,
		Currency:         t.Currency,
		Status:           string(t.Status),
		Description:      t.Description,
		PaymentReference: t.PaymentReference,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
}

func toTransactions(ws []wireTransaction) []models.Transaction {
	out := make([]models.Transaction, len(ws))
	for i, w := range ws {
		out[i] = toTransaction(w)
	}
	return out
}

func fromCreditPurchase(p models.CreditPurchase) wireCreditPurchase {
	return wireCreditPurchase{
		UserID:        p.UserID,
		Credits:       p.Credits,
		Price:         p.Price,
		Currency:      p.Currency,
		PaymentMethod: p.PaymentMethod,
	}
}

func toPayment(w wirePayment) models.Payment {
	return models.Payment{
		ID:            w.ID,
		TransactionID: w.TransactionID,
		Provider:      w.Provider,
		Reference:     w.Reference,
		Amount:        w.Amount,
		Currency:      w.Currency,
		Status:        models.TransactionStatus(w.Status),
		ProcessedAt:   w.ProcessedAt,
	}
}

func fromPayment(p models.Payment) wirePayment {
	return wirePayment{
		ID:            p.ID,
		TransactionID: p.TransactionID,
		Provider:      p.Provider,
		Reference:     p.Reference,
		Amount:        p.Amount,
		Currency:      p.Currency,
		Status:        string(p.Status),
		ProcessedAt:   p.ProcessedAt,
	}
}

func toReceipt(w wireReceipt) models.Receipt {
	lines := make([]models.ReceiptLine, len(w.Lines))
	for i, l := range w.Lines {
		lines[i] = models.ReceiptLine{Description: l.Description, Amount: l.Amount}
	}
	return models.Receipt{
		TransactionID: w.TransactionID,
		UserID:        w.UserID,
		Lines:         lines,
		Total:         w.Total,
		Currency:      w.Currency,
		IssuedAt:      w.IssuedAt,
	}
}

func toSession(w wireSession) models.Session {
	return models.Session{
		User:         toUser(w.User),
		Token:        w.Token,
		RefreshToken: w.RefreshToken,
		ExpiresAt:    w.ExpiresAt,
	}
}
