// Package cache holds read-through caches for projections owned by
// external collaborators.
package cache

import (
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/AltairaLabs/portalops/internal/types"
)

const (
	// ErrEmptyCaseID is returned when a case ID is empty
	ErrEmptyCaseID = "caseID cannot be empty"

	// DefaultCaseCacheSize bounds the number of cached cases
	DefaultCaseCacheSize = 1024
)

// CaseCache caches case summaries with TTL-based expiration.
// Entries are copies; callers may mutate what they get back.
type CaseCache struct {
	lru *expirable.LRU[string, types.Case]
	ttl time.Duration
}

// NewCaseCache creates a case cache holding up to size entries for ttl.
// A non-positive size uses DefaultCaseCacheSize.
func NewCaseCache(size int, ttl time.Duration) *CaseCache {
	if size <= 0 {
		size = DefaultCaseCacheSize
	}
	return &CaseCache{
		lru: expirable.NewLRU[string, types.Case](size, nil, ttl),
		ttl: ttl,
	}
}

// Store caches a case summary
func (c *CaseCache) Store(summary *types.Case) error {
	if summary == nil {
		return fmt.Errorf("case cannot be nil")
	}
	if summary.ID == "" {
		return fmt.Errorf(ErrEmptyCaseID)
	}
	c.lru.Add(summary.ID, *summary)
	return nil
}

// Get returns a cached case and whether it was present and unexpired
func (c *CaseCache) Get(caseID string) (*types.Case, bool) {
	summary, ok := c.lru.Get(caseID)
	if !ok {
		return nil, false
	}
	return &summary, true
}

// Delete evicts a case
func (c *CaseCache) Delete(caseID string) {
	c.lru.Remove(caseID)
}

// Size returns the current number of cached cases
func (c *CaseCache) Size() int {
	return c.lru.Len()
}

// Clear removes all cached cases
func (c *CaseCache) Clear() {
	c.lru.Purge()
}

// TTL returns the configured expiration
func (c *CaseCache) TTL() time.Duration {
	return c.ttl
}
