package repositories

import (
	"github.com/hobbyhunter/storefront/hobbyhunter/api"
	"github.com/hobbyhunter/storefront/hobbyhunter/economy/opening"
	"github.com/hobbyhunter/storefront/hobbyhunter/flags"
	"github.com/hobbyhunter/storefront/hobbyhunter/localstore"
	"github.com/hobbyhunter/storefront/hobbyhunter/mockdata"
)

// Deps is everything the repositories share.
type Deps struct {
	Client    *api.Client
	Flags     *flags.Manager
	State     *mockdata.State
	Store     localstore.Store
	Generator *opening.Generator

	// Latency paces ordinary mock calls and Reveal paces mock pack openings.
	// Nil means no delay.
	Latency *mockdata.Latency
	Reveal  *mockdata.Latency
}

type Repositories struct {
	Users        UserRepository
	Auth         AuthRepository
	Cards        CardRepository
	Packs        PackRepository
	Transactions TransactionRepository
}

func New(d Deps) *Repositories {
	base := func(flag flags.Name, entity string) *BaseRepository {
		return NewBaseRepository(d.Client, d.Flags, flag, entity, d.Latency)
	}

	users := NewUserRepository(base(flags.UseRealUserAPI, "user"), d.State)
	return &Repositories{
		Users:        users,
		Auth:         NewAuthRepository(base(flags.UseRealAuthAPI, "auth").WithoutFallback(), d.State, d.Store),
		Cards:        NewCardRepository(base(flags.UseRealCardAPI, "card"), d.State),
		Packs:        NewPackRepository(base(flags.UseRealPackAPI, "pack"), d.State, d.Generator, users, d.Reveal),
		Transactions: NewTransactionRepository(base(flags.UseRealTransactionAPI, "transaction"), d.State),
	}
}
