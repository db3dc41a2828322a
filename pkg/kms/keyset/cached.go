/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package keyset

import (
	"fmt"
	"time"

	"github.com/bluele/gcache"
	"github.com/cenkalti/backoff/v4"
	"github.com/go-jose/go-jose/v3"
	"github.com/hyperledger/aries-framework-go/component/log"

	jwe "github.com/hyperledger/aries-framework-go-jwe/pkg/doc/jose"
)

const (
	defaultCacheSize       = 100
	defaultCacheExpiration = 5 * time.Minute
	defaultLoadRetries     = 3
	defaultLoadBackOff     = 100 * time.Millisecond
)

var logger = log.New("aries-framework/jwe/keyset")

// CachedProvider caches the keys returned by another key set, per key ID and algorithm. Loads are retried with a
// constant back off. The underlying gcache is thread safe.
type CachedProvider struct {
	provider    jwe.KeySetProvider
	cache       gcache.Cache
	retries     uint64
	backOffTime time.Duration
}

// CacheOpt is an option of NewCachedProvider.
type CacheOpt func(*cacheOpts)

type cacheOpts struct {
	size        int
	expiration  time.Duration
	retries     uint64
	backOffTime time.Duration
}

// WithCacheSize sets the maximum number of cached entries.
func WithCacheSize(size int) CacheOpt {
	return func(o *cacheOpts) {
		o.size = size
	}
}

// WithExpiration sets how long keys stay cached.
func WithExpiration(d time.Duration) CacheOpt {
	return func(o *cacheOpts) {
		o.expiration = d
	}
}

// WithLoadRetries sets the number of retries of a failed load and the time between them.
func WithLoadRetries(retries uint64, backOffTime time.Duration) CacheOpt {
	return func(o *cacheOpts) {
		o.retries = retries
		o.backOffTime = backOffTime
	}
}

// NewCachedProvider creates a CachedProvider in front of provider.
func NewCachedProvider(provider jwe.KeySetProvider, opts ...CacheOpt) *CachedProvider {
	o := &cacheOpts{
		size:        defaultCacheSize,
		expiration:  defaultCacheExpiration,
		retries:     defaultLoadRetries,
		backOffTime: defaultLoadBackOff,
	}

	for _, opt := range opts {
		opt(o)
	}

	return &CachedProvider{
		provider:    provider,
		cache:       gcache.New(o.size).LRU().Expiration(o.expiration).Build(),
		retries:     o.retries,
		backOffTime: o.backOffTime,
	}
}

// cacheKey identifies the headers the underlying key set may filter on.
type cacheKey struct {
	kid string
	alg string
}

// FindKeysFor returns the cached keys for the "kid" and "alg" headers, loading them from the underlying key set on
// a miss.
func (c *CachedProvider) FindKeysFor(headers jwe.Headers) ([]*jose.JSONWebKey, error) {
	kid, _ := headers.KeyID()
	alg, _ := headers.Algorithm()
	key := cacheKey{kid: kid, alg: alg}

	if cached, err := c.cache.Get(key); err == nil {
		return cached.([]*jose.JSONWebKey), nil //nolint:forcetypeassert
	}

	var keys []*jose.JSONWebKey

	err := backoff.RetryNotify(
		func() error {
			var errLoad error
			keys, errLoad = c.provider.FindKeysFor(headers)

			return errLoad
		},
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.backOffTime), c.retries),
		func(retryErr error, t time.Duration) {
			logger.Warnf("failed to load keys for kid [%s], will sleep for %s before trying again: %s",
				kid, t, retryErr)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("load keys: %w", err)
	}

	if err = c.cache.Set(key, keys); err != nil {
		return nil, fmt.Errorf("cache keys: %w", err)
	}

	return keys, nil
}

// Invalidate removes the cached keys of a key ID for every algorithm, an empty key ID is the entry of headers
// without "kid".
func (c *CachedProvider) Invalidate(kid string) {
	for _, k := range c.cache.Keys(false) {
		if ck, ok := k.(cacheKey); ok && ck.kid == kid {
			c.cache.Remove(k)
		}
	}
}

// Purge removes every cached entry.
func (c *CachedProvider) Purge() {
	c.cache.Purge()
}
