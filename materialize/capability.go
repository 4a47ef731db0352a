package materialize

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/voltpack/corepm"
)

// capabilityCache remembers, per destination volume, which placement
// tiers have already been observed to fail so repeated packages under
// the same node_modules tree don't pay for a failed clone or hardlink
// attempt on every single package. Keyed by the parent directory rather
// than the device number: corepm has no dependency that exposes a
// cheap stat-based device id across platforms, and the project root
// rarely spans multiple volumes.
type capabilityCache struct {
	mu      sync.Mutex
	demoted map[string]corepm.LinkStrategy
}

func newCapabilityCache() *capabilityCache {
	return &capabilityCache{demoted: make(map[string]corepm.LinkStrategy)}
}

// demote records that tier failed for the volume stagingPath lives on,
// so probeTier starts from the next tier down next time.
func (c *capabilityCache) demote(stagingPath string, tier corepm.LinkStrategy) {
	scope := filepath.Dir(stagingPath)
	next := nextTier(tier)
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.demoted[scope]; !ok || tierRank(next) > tierRank(cur) {
		c.demoted[scope] = next
	}
}

func nextTier(t corepm.LinkStrategy) corepm.LinkStrategy {
	switch t {
	case corepm.LinkClone:
		return corepm.LinkHardlink
	default:
		return corepm.LinkCopy
	}
}

// probeTier returns the best tier not yet known to have failed for
// stagingPath's scope, starting from clone.
func (m *Materializer) probeTier(ctx context.Context, stagingPath string) corepm.LinkStrategy {
	scope := filepath.Dir(stagingPath)
	m.caps.mu.Lock()
	demoted, ok := m.caps.demoted[scope]
	m.caps.mu.Unlock()
	if !ok {
		return corepm.LinkClone
	}
	return demoted
}

func tierRank(t corepm.LinkStrategy) int {
	switch t {
	case corepm.LinkClone:
		return 0
	case corepm.LinkHardlink:
		return 1
	default:
		return 2
	}
}
