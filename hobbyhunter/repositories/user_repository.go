package repositories

import (
	"context"
	"net/url"
	"strconv"

	"github.com/hobbyhunter/storefront/hobbyhunter/api"
	"github.com/hobbyhunter/storefront/hobbyhunter/mockdata"
	"github.com/hobbyhunter/storefront/hobbyhunter/models"
)

type UserRepository interface {
	FindAll(ctx context.Context, params url.Values) ([]models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
	Create(ctx context.Context, user models.User) (models.User, error)
	Update(ctx context.Context, id string, user models.User) (models.User, error)
	Delete(ctx context.Context, id string) error
	GetProfile(ctx context.Context, id string) (models.Profile, error)
	UpdateProfile(ctx context.Context, id string, profile models.Profile) (models.Profile, error)
	GetCredits(ctx context.Context, id string) (int64, error)
	AdjustCredits(ctx context.Context, id string, delta int64, reason string) (int64, error)
	GetTransactions(ctx context.Context, id string) ([]models.Transaction, error)
	GetShippingAddresses(ctx context.Context, id string) ([]models.ShippingAddress, error)
	AddShippingAddress(ctx context.Context, id string, addr models.ShippingAddress) (models.ShippingAddress, error)
	UpdateSettings(ctx context.Context, id string, settings models.Settings) (models.Settings, error)
}

type userRepository struct {
	*BaseRepository
	state *mockdata.State
}

func NewUserRepository(base *BaseRepository, state *mockdata.State) UserRepository {
	return &userRepository{BaseRepository: base, state: state}
}

func userPath(id string, rest ...string) string {
	p := "/users/" + url.PathEscape(id)
	for _, r := range rest {
		p += "/" + r
	}
	return p
}

func (r *userRepository) FindAll(ctx context.Context, params url.Values) ([]models.User, error) {
	return run(ctx, r.BaseRepository, "find_all", "", func(ctx context.Context) ([]models.User, error) {
		resp, err := api.Get[[]wireUser](ctx, r.client, "/users", params)
		if err != nil {
			return nil, err
		}
		return toUsers(resp.Data), nil
	}, func(context.Context) ([]models.User, error) {
		return paginate(r.state.Users(), params), nil
	})
}

func (r *userRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	return run(ctx, r.BaseRepository, "find_by_id", id, func(ctx context.Context) (models.User, error) {
		resp, err := api.Get[wireUser](ctx, r.client, userPath(id), nil)
		if err != nil {
			return models.User{}, err
		}
		return toUser(resp.Data), nil
	}, func(context.Context) (models.User, error) {
		return r.state.User(id)
	})
}

func (r *userRepository) Create(ctx context.Context, user models.User) (models.User, error) {
	return run(ctx, r.BaseRepository, "create", user.ID, func(ctx context.Context) (models.User, error) {
		resp, err := api.Post[wireUser](ctx, r.client, "/users", fromUser(user))
		if err != nil {
			return models.User{}, err
		}
		return toUser(resp.Data), nil
	}, func(context.Context) (models.User, error) {
		return r.state.CreateUser(user), nil
	})
}

func (r *userRepository) Update(ctx context.Context, id string, user models.User) (models.User, error) {
	return run(ctx, r.BaseRepository, "update", id, func(ctx context.Context) (models.User, error) {
		resp, err := api.Put[wireUser](ctx, r.client, userPath(id), fromUser(user))
		if err != nil {
			return models.User{}, err
		}
		return toUser(resp.Data), nil
	}, func(context.Context) (models.User, error) {
		return r.state.UpdateUser(id, func(u *models.User) {
			credits := u.Credits
			*u = user
			u.Credits = credits
		})
	})
}

func (r *userRepository) Delete(ctx context.Context, id string) error {
	return exec(ctx, r.BaseRepository, "delete", id, func(ctx context.Context) error {
		_, err := api.Delete[struct{}](ctx, r.client, userPath(id))
		return err
	}, func(context.Context) error {
		return r.state.DeleteUser(id)
	})
}

func (r *userRepository) GetProfile(ctx context.Context, id string) (models.Profile, error) {
	return run(ctx, r.BaseRepository, "get_profile", id, func(ctx context.Context) (models.Profile, error) {
		resp, err := api.Get[wireProfile](ctx, r.client, userPath(id, "profile"), nil)
		if err != nil {
			return models.Profile{}, err
		}
		return toProfile(resp.Data), nil
	}, func(context.Context) (models.Profile, error) {
		u, err := r.state.User(id)
		return u.Profile, err
	})
}

func (r *userRepository) UpdateProfile(ctx context.Context, id string, profile models.Profile) (models.Profile, error) {
	return run(ctx, r.BaseRepository, "update_profile", id, func(ctx context.Context) (models.Profile, error) {
		resp, err := api.Put[wireProfile](ctx, r.client, userPath(id, "profile"), fromProfile(profile))
		if err != nil {
			return models.Profile{}, err
		}
		return toProfile(resp.Data), nil
	}, func(context.Context) (models.Profile, error) {
		u, err := r.state.UpdateUser(id, func(u *models.User) { u.Profile = profile })
		return u.Profile, err
	})
}

func (r *userRepository) GetCredits(ctx context.Context, id string) (int64, error) {
	return run(ctx, r.BaseRepository, "get_credits", id, func(ctx context.Context) (int64, error) {
		resp, err := api.Get[wireCredits](ctx, r.client, userPath(id, "credits"), nil)
		if err != nil {
			return 0, err
		}
		return resp.Data.Credits, nil
	}, func(context.Context) (int64, error) {
		u, err := r.state.User(id)
		return u.Credits, err
	})
}

// AdjustCredits applies a signed change to the balance and returns the new
// balance. Balances never go negative.
func (r *userRepository) AdjustCredits(ctx context.Context, id string, delta int64, reason string) (int64, error) {
	return run(ctx, r.BaseRepository, "adjust_credits", id, func(ctx context.Context) (int64, error) {
		resp, err := api.Post[wireCredits](ctx, r.client, userPath(id, "credits"), wireCreditAdjustment{Amount: delta, Reason: reason})
		if err != nil {
			return 0, err
		}
		return resp.Data.Credits, nil
	}, func(context.Context) (int64, error) {
		return r.state.AdjustCredits(id, delta)
	})
}

func (r *userRepository) GetTransactions(ctx context.Context, id string) ([]models.Transaction, error) {
	return run(ctx, r.BaseRepository, "get_transactions", id, func(ctx context.Context) ([]models.Transaction, error) {
		resp, err := api.Get[[]wireTransaction](ctx, r.client, userPath(id, "transactions"), nil)
		if err != nil {
			return nil, err
		}
		return toTransactions(resp.Data), nil
	}, func(context.Context) ([]models.Transaction, error) {
		return r.state.Transactions(id)
	})
}

func (r *userRepository) GetShippingAddresses(ctx context.Context, id string) ([]models.ShippingAddress, error) {
	return run(ctx, r.BaseRepository, "get_shipping_addresses", id, func(ctx context.Context) ([]models.ShippingAddress, error) {
		resp, err := api.Get[[]wireAddress](ctx, r.client, userPath(id, "shipping-addresses"), nil)
		if err != nil {
			return nil, err
		}
		return toAddresses(resp.Data), nil
	}, func(context.Context) ([]models.ShippingAddress, error) {
		return r.state.Addresses(id)
	})
}

func (r *userRepository) AddShippingAddress(ctx context.Context, id string, addr models.ShippingAddress) (models.ShippingAddress, error) {
	return run(ctx, r.BaseRepository, "add_shipping_address", id, func(ctx context.Context) (models.ShippingAddress, error) {
		resp, err := api.Post[wireAddress](ctx, r.client, userPath(id, "shipping-addresses"), fromAddress(addr))
		if err != nil {
			return models.ShippingAddress{}, err
		}
		return toAddress(resp.Data), nil
	}, func(context.Context) (models.ShippingAddress, error) {
		return r.state.AddAddress(id, addr)
	})
}

func (r *userRepository) UpdateSettings(ctx context.Context, id string, settings models.Settings) (models.Settings, error) {
	return run(ctx, r.BaseRepository, "update_settings", id, func(ctx context.Context) (models.Settings, error) {
		resp, err := api.Put[wireSettings](ctx, r.client, userPath(id, "settings"), fromSettings(settings))
		if err != nil {
			return models.Settings{}, err
		}
		return toSettings(resp.Data), nil
	}, func(context.Context) (models.Settings, error) {
		u, err := r.state.UpdateUser(id, func(u *models.User) { u.Settings = settings })
		return u.Settings, err
	})
}

// paginate applies the limit and offset query parameters to a mock listing.
func paginate[T any](items []T, params url.Values) []T {
	offset, _ := strconv.Atoi(params.Get("offset"))
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit, err := strconv.Atoi(params.Get("limit")); err == nil && limit >= 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
