package query

import (
	"net/url"
	"strings"
)

type Domain string

const (
	DomainUser        Domain = "user"
	DomainCards       Domain = "cards"
	DomainPacks       Domain = "packs"
	DomainTransaction Domain = "transactions"
)

type Op string

const (
	OpAll             Op = ""
	OpList            Op = "list"
	OpDetail          Op = "detail"
	OpProfile         Op = "profile"
	OpCredits         Op = "credits"
	OpAddresses       Op = "addresses"
	OpUserCards       Op = "user_cards"
	OpExpiring        Op = "expiring"
	OpSearch          Op = "search"
	OpMarket          Op = "market"
	OpHistory         Op = "history"
	OpRecommendations Op = "recommendations"
	OpStatistics      Op = "statistics"
	OpUserTxs         Op = "user_transactions"
	OpPending         Op = "pending"
	OpReceipt         Op = "receipt"
)

// Key identifies one cached query: the entity domain, the operation and the
// parameters that discriminate it. Two keys are equal when their String forms
// are.
type Key struct {
	Domain Domain
	Op     Op
	Params []string
}

func NewKey(domain Domain, op Op, params ...string) Key {
	return Key{Domain: domain, Op: op, Params: params}
}

func (k Key) String() string {
	var b strings.Builder
	b.WriteString(string(k.Domain))
	if k.Op != OpAll || len(k.Params) > 0 {
		b.WriteByte('/')
		b.WriteString(string(k.Op))
	}
	for _, p := range k.Params {
		b.WriteByte('/')
		b.WriteString(url.PathEscape(p))
	}
	return b.String()
}

func (k Key) Equal(other Key) bool {
	return k.String() == other.String()
}

// Matches reports whether k falls under prefix. An empty prefix op matches
// every op of the domain; prefix params must equal the leading params of k.
func (k Key) Matches(prefix Key) bool {
	if k.Domain != prefix.Domain {
		return false
	}
	if prefix.Op != OpAll && k.Op != prefix.Op {
		return false
	}
	if len(prefix.Params) > len(k.Params) {
		return false
	}
	for i, p := range prefix.Params {
		if k.Params[i] != p {
			return false
		}
	}
	return true
}

type userKeys struct{}

// UserKeys builds keys of the user domain.
var UserKeys userKeys

func (userKeys) All() Key                { return NewKey(DomainUser, OpAll) }
func (userKeys) Detail(id string) Key    { return NewKey(DomainUser, OpDetail, id) }
func (userKeys) Profile(id string) Key   { return NewKey(DomainUser, OpProfile, id) }
func (userKeys) Credits(id string) Key   { return NewKey(DomainUser, OpCredits, id) }
func (userKeys) Addresses(id string) Key { return NewKey(DomainUser, OpAddresses, id) }

type cardKeys struct{}

// CardKeys builds keys of the card domain.
var CardKeys cardKeys

func (cardKeys) All() Key                           { return NewKey(DomainCards, OpAll) }
func (cardKeys) List(params ...string) Key          { return NewKey(DomainCards, OpList, params...) }
func (cardKeys) Detail(id string) Key               { return NewKey(DomainCards, OpDetail, id) }
func (cardKeys) User(userID string) Key             { return NewKey(DomainCards, OpUserCards, userID) }
func (cardKeys) Expiring(userID, within string) Key { return NewKey(DomainCards, OpExpiring, userID, within) }
func (cardKeys) Search(userID, query string) Key    { return NewKey(DomainCards, OpSearch, userID, query) }
func (cardKeys) Market() Key                        { return NewKey(DomainCards, OpMarket) }
func (cardKeys) History(id string) Key              { return NewKey(DomainCards, OpHistory, id) }

type packKeys struct{}

// PackKeys builds keys of the pack domain.
var PackKeys packKeys

func (packKeys) All() Key                          { return NewKey(DomainPacks, OpAll) }
func (packKeys) List(params ...string) Key         { return NewKey(DomainPacks, OpList, params...) }
func (packKeys) Detail(id string) Key              { return NewKey(DomainPacks, OpDetail, id) }
func (packKeys) Recommendations(userID string) Key { return NewKey(DomainPacks, OpRecommendations, userID) }
func (packKeys) History(userID string) Key         { return NewKey(DomainPacks, OpHistory, userID) }
func (packKeys) Statistics(id string) Key          { return NewKey(DomainPacks, OpStatistics, id) }

type transactionKeys struct{}

// TransactionKeys builds keys of the transaction domain.
var TransactionKeys transactionKeys

func (transactionKeys) All() Key                  { return NewKey(DomainTransaction, OpAll) }
func (transactionKeys) List(params ...string) Key { return NewKey(DomainTransaction, OpList, params...) }
func (transactionKeys) Detail(id string) Key      { return NewKey(DomainTransaction, OpDetail, id) }
func (transactionKeys) User(userID string) Key    { return NewKey(DomainTransaction, OpUserTxs, userID) }
func (transactionKeys) Pending(userID string) Key { return NewKey(DomainTransaction, OpPending, userID) }
func (transactionKeys) Receipt(id string) Key     { return NewKey(DomainTransaction, OpReceipt, id) }
