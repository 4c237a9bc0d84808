package config

import "sync"

var (
	mu       sync.RWMutex
	instance *Config
)

// Initialize installs cfg as the process-wide configuration singleton.
// Call it exactly once, after Load, before starting the server or the
// health monitor.
func Initialize(cfg *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = cfg
}

// Get returns the process-wide configuration singleton. It panics if
// Initialize has not been called, since every caller of Get runs after
// startup has completed.
func Get() *Config {
	mu.RLock()
	defer mu.RUnlock()
	if instance == nil {
		panic("config: Get called before Initialize")
	}
	return instance
}

// reset clears the singleton; used by tests only.
func reset() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
}
