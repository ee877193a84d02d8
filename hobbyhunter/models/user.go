package models

import "time"

type User struct {
	ID          string
	Email       string
	Username    string
	Credits     int64
	Cards       []Card
	Profile     Profile
	Preferences Preferences
	Settings    Settings
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Profile struct {
	DisplayName string
	AvatarURL   string
	Bio         string
}

type Preferences struct {
	EmailNotifications bool
	PushNotifications  bool
	Currency           string
}

type Settings struct {
	Theme    string
	Language string
	Private  bool
}

type ShippingAddress struct {
	ID         string
	Name       string
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
}

type ShippingRequest struct {
	UserID  string
	CardIDs []string
	Address ShippingAddress
	Express bool
}

type ShippingResult struct {
	RequestID   string
	CardIDs     []string
	Fee         int64
	Status      string
	RequestedAt time.Time
}

type ConversionResult struct {
	CardIDs        []string
	CreditsAwarded int64
	NewBalance     int64
	TransactionID  string
}

type SaleResult struct {
	CardIDs       []string
	CreditsEarned int64
	TransactionID string
}

type Session struct {
	User         User
	Token        string
	RefreshToken string
	ExpiresAt    time.Time
}

type Credentials struct {
	Email    string
	Password string
}

type Registration struct {
	Email    string
	Username string
	Password string
}
