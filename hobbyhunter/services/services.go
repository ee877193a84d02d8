package services

import (
	"github.com/hobbyhunter/storefront/hobbyhunter/query"
	"github.com/hobbyhunter/storefront/hobbyhunter/repositories"
)

type Services struct {
	Store      *StoreService
	Collection *CollectionService
	Wallet     *WalletService
}

// New builds the services over one shared query cache. images may be nil.
func New(repos *repositories.Repositories, cache *query.Client, images ImageSigner) *Services {
	return &Services{
		Store:      NewStoreService(repos, cache, images),
		Collection: NewCollectionService(repos, cache, images),
		Wallet:     NewWalletService(repos, cache),
	}
}
