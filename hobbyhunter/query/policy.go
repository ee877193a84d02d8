package query

import "time"

// Policy controls how long an entry counts as fresh and whether it is
// refetched in the background.
type Policy struct {
	StaleTime       time.Duration
	RefetchInterval time.Duration
}

const defaultStaleTime = 5 * time.Minute

// Policies maps domain/op to its freshness policy.
var Policies = map[string]Policy{
	policyKey(DomainUser, OpDetail):    {StaleTime: 5 * time.Minute},
	policyKey(DomainUser, OpProfile):   {StaleTime: 5 * time.Minute},
	policyKey(DomainUser, OpCredits):   {StaleTime: 30 * time.Second},
	policyKey(DomainUser, OpAddresses): {StaleTime: 10 * time.Minute},

	policyKey(DomainCards, OpList):      {StaleTime: 2 * time.Minute},
	policyKey(DomainCards, OpDetail):    {StaleTime: 5 * time.Minute},
	policyKey(DomainCards, OpUserCards): {StaleTime: time.Minute},
	policyKey(DomainCards, OpExpiring):  {StaleTime: 5 * time.Minute},
	policyKey(DomainCards, OpSearch):    {StaleTime: time.Minute},
	policyKey(DomainCards, OpMarket):    {StaleTime: time.Minute, RefetchInterval: time.Minute},
	policyKey(DomainCards, OpHistory):   {StaleTime: 10 * time.Minute},

	policyKey(DomainPacks, OpList):            {StaleTime: 5 * time.Minute, RefetchInterval: 5 * time.Minute},
	policyKey(DomainPacks, OpDetail):          {StaleTime: 10 * time.Minute},
	policyKey(DomainPacks, OpRecommendations): {StaleTime: 30 * time.Minute},
	policyKey(DomainPacks, OpHistory):         {StaleTime: 5 * time.Minute},
	policyKey(DomainPacks, OpStatistics):      {StaleTime: 15 * time.Minute},

	policyKey(DomainTransaction, OpList):    {StaleTime: time.Minute},
	policyKey(DomainTransaction, OpDetail):  {StaleTime: 2 * time.Minute},
	policyKey(DomainTransaction, OpUserTxs): {StaleTime: time.Minute},
	policyKey(DomainTransaction, OpPending): {StaleTime: 10 * time.Second, RefetchInterval: 10 * time.Second},
	policyKey(DomainTransaction, OpReceipt): {StaleTime: 30 * time.Minute},
}

func policyKey(d Domain, op Op) string {
	return string(d) + "/" + string(op)
}

// PolicyFor returns the policy of key, falling back to a five minute stale
// time for ops without one.
func PolicyFor(key Key) Policy {
	if p, ok := Policies[policyKey(key.Domain, key.Op)]; ok {
		return p
	}
	return Policy{StaleTime: defaultStaleTime}
}
