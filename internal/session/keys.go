package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/clerk/clerk-sdk-go/v2"
	"golang.org/x/sync/singleflight"
)

var errNoKeySet = errors.New("clerk returned no signing keys")

// signingKeys caches Clerk's JSON Web Key Set by key id. The set is fetched
// on first use and again when a token names a kid the cache does not hold,
// at most once per minRefresh.
type signingKeys struct {
	fetch      func(ctx context.Context) (*clerk.JSONWebKeySet, error)
	minRefresh time.Duration
	timeout    time.Duration
	now        func() time.Time

	mu        sync.RWMutex
	keys      map[string]*clerk.JSONWebKey
	fetchedAt time.Time
	group     singleflight.Group
}

func newSigningKeys(fetch func(ctx context.Context) (*clerk.JSONWebKeySet, error), minRefresh, timeout time.Duration) *signingKeys {
	return &signingKeys{
		fetch:      fetch,
		minRefresh: minRefresh,
		timeout:    timeout,
		now:        time.Now,
		keys:       make(map[string]*clerk.JSONWebKey),
	}
}

// Key returns the key for kid. (nil, nil) means the current key set does not
// contain kid; an error means the key set could not be loaded.
func (k *signingKeys) Key(ctx context.Context, kid string) (*clerk.JSONWebKey, error) {
	k.mu.RLock()
	key, ok := k.keys[kid]
	recent := !k.fetchedAt.IsZero() && k.now().Sub(k.fetchedAt) < k.minRefresh
	k.mu.RUnlock()
	if ok {
		return key, nil
	}
	if recent {
		return nil, nil
	}

	ch := k.group.DoChan("jwks", func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), k.timeout)
		defer cancel()
		return nil, k.refresh(fetchCtx)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
	}

	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.keys[kid], nil
}

func (k *signingKeys) refresh(ctx context.Context) error {
	set, err := k.fetch(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch clerk signing keys: %w", err)
	}
	if set == nil {
		return errNoKeySet
	}

	keys := make(map[string]*clerk.JSONWebKey, len(set.Keys))
	for _, key := range set.Keys {
		if key != nil && key.KeyID != "" {
			keys[key.KeyID] = key
		}
	}

	k.mu.Lock()
	k.keys = keys
	k.fetchedAt = k.now()
	k.mu.Unlock()
	return nil
}
