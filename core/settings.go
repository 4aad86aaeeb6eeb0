package core

import "sync"

// SettingsCache is a process-wide snapshot of the mutable operator
// settings. Readers take a full copy; the listener replaces the snapshot
// atomically when the database notifies a change. Callers must copy the
// fields they need before doing anything blocking rather than re-reading
// mid-operation.
type SettingsCache struct {
	mu  sync.RWMutex
	cur Settings
}

func NewSettingsCache(initial Settings) *SettingsCache {
	return &SettingsCache{cur: initial}
}

// Snapshot returns a copy of the current settings.
func (c *SettingsCache) Snapshot() Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cur
}

// Replace swaps the snapshot.
func (c *SettingsCache) Replace(s Settings) {
	c.mu.Lock()
	c.cur = s
	c.mu.Unlock()
}
