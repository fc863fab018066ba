package tracker

import (
	"context"
	"sync"

	"github.com/foodiehq/storefront/client"
	"github.com/foodiehq/storefront/models"
	"github.com/foodiehq/storefront/repository"
)

// Fetcher resolves an order identifier to its current record, remote
// first. One Fetcher corresponds to one tracking session: once it has
// fallen back to the local cache it stays there for its whole lifetime,
// so the view can never flap between sources. A fresh session (new
// Fetcher) retries the remote path, which is how a guest order that has
// since reached the backend gets reconciled.
type Fetcher struct {
	remote *client.OrderAPI
	local  repository.OrderRepository

	mu         sync.Mutex
	usingLocal bool
}

func NewFetcher(remote *client.OrderAPI, local repository.OrderRepository) *Fetcher {
	return &Fetcher{remote: remote, local: local}
}

// UsingLocal reports whether this session has fallen back to the local
// cache.
func (f *Fetcher) UsingLocal() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.usingLocal
}

// Fetch returns the current record for id. The remote lookup is skipped
// entirely once the session is in local mode. When neither source
// resolves the id, repository.ErrOrderNotFound is returned and the
// caller renders the terminal not-found state; there is no retry.
func (f *Fetcher) Fetch(ctx context.Context, id string) (*models.Order, error) {
	if id == "" {
		return nil, repository.ErrOrderNotFound
	}

	if f.UsingLocal() {
		return f.local.Get(ctx, id)
	}

	order, err := f.remote.GetOrder(ctx, id)
	if err == nil {
		return order, nil
	}

	// Guest orders live only in the local cache: the backend rejects the
	// lookup with 401, or the id is a local order number rather than a
	// backend id.
	if client.IsUnauthorized(err) || !models.IsRemoteID(id) {
		f.mu.Lock()
		f.usingLocal = true
		f.mu.Unlock()

		local, localErr := f.local.Get(ctx, id)
		if localErr != nil {
			return nil, repository.ErrOrderNotFound
		}
		return local, nil
	}

	if client.IsNotFound(err) {
		return nil, repository.ErrOrderNotFound
	}
	return nil, err
}
