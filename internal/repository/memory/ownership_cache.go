package memory

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// OwnershipCache remembers which user owns a chat so that repeated sends into
// the same chat skip the ownership query.
type OwnershipCache struct {
	cache *cache.Cache
}

func NewOwnershipCache(ttl time.Duration) *OwnershipCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &OwnershipCache{cache: cache.New(ttl, 2*ttl)}
}

func (r *OwnershipCache) Remember(chatID, ownerID uuid.UUID) {
	r.cache.Set(chatID.String(), ownerID, cache.DefaultExpiration)
}

func (r *OwnershipCache) Owner(chatID uuid.UUID) (uuid.UUID, bool) {
	if x, found := r.cache.Get(chatID.String()); found {
		return x.(uuid.UUID), true
	}
	return uuid.Nil, false
}

func (r *OwnershipCache) Forget(chatID uuid.UUID) {
	r.cache.Delete(chatID.String())
}
