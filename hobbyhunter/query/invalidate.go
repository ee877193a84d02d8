package query

import (
	"log/slog"

	"github.com/hobbyhunter/storefront/hobbyhunter/logger"
)

// Invalidate marks every entry matching one of prefixes as stale and returns
// how many were marked. Data stays cached until the next fetch replaces it.
func (c *Client) Invalidate(prefixes ...Key) int {
	marked := 0
	for _, key := range c.Keys() {
		if !matchesAny(key, prefixes) {
			continue
		}
		unlock := c.locks.lock(key.String())
		c.mu.Lock()
		if v, ok := c.cache.Peek(key.String()); ok {
			v.(*entry).invalidated = true
			marked++
		}
		c.mu.Unlock()
		unlock()
	}

	if marked > 0 {
		names := make([]string, len(prefixes))
		for i, p := range prefixes {
			names[i] = p.String()
		}
		logger.LogCache("Entries invalidated", "", slog.Any("prefixes", names), slog.Int("count", marked))
	}
	return marked
}

func matchesAny(key Key, prefixes []Key) bool {
	for _, p := range prefixes {
		if key.Matches(p) {
			return true
		}
	}
	return false
}

// UserGroup lists the prefixes that depend on a single user: the user
// record, profile, credits, owned cards and transactions.
func UserGroup(userID string) []Key {
	return []Key{
		UserKeys.Detail(userID),
		UserKeys.Profile(userID),
		UserKeys.Credits(userID),
		UserKeys.Addresses(userID),
		CardKeys.User(userID),
		NewKey(DomainCards, OpExpiring, userID),
		NewKey(DomainCards, OpSearch, userID),
		TransactionKeys.User(userID),
		TransactionKeys.Pending(userID),
		PackKeys.Recommendations(userID),
		PackKeys.History(userID),
	}
}

func (c *Client) InvalidateUser(userID string) int {
	return c.Invalidate(UserGroup(userID)...)
}

func (c *Client) InvalidateCards() int {
	return c.Invalidate(CardKeys.All())
}

func (c *Client) InvalidatePacks() int {
	return c.Invalidate(PackKeys.All())
}

func (c *Client) InvalidateTransactions() int {
	return c.Invalidate(TransactionKeys.All())
}
