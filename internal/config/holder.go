package config

import "sync"

// Holder keeps the active Config and supports hot reload from the original
// YAML path. A failed reload keeps the previous config.
type Holder struct {
	mu   sync.RWMutex
	cfg  *Config
	path string
}

// NewHolder wraps an already-loaded Config for later reloads.
func NewHolder(cfg *Config, yamlPath string) *Holder {
	return &Holder{cfg: cfg, path: yamlPath}
}

// Get returns the current Config. The returned pointer must be treated as
// read-only.
func (h *Holder) Get() *Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cfg
}

// Reload re-runs the full load hierarchy from the stored YAML path and swaps
// the active config. On error the previous config stays active.
func (h *Holder) Reload() error {
	cfg, err := LoadFrom(h.path)
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.cfg = cfg
	h.mu.Unlock()
	return nil
}
