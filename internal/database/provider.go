package database

import (
	"errors"
	"sync"
)

var (
	registryMu      sync.RWMutex
	backendName     string
	sessionLedger   func() SessionLedger
	webSessionStore func() WebSessionStore
)

// RegisterBackend registers the repository constructors of the active backend.
// This is called by the backend packages to avoid import cycles.
func RegisterBackend(name string, ledger func() SessionLedger, sessions func() WebSessionStore) {
	registryMu.Lock()
	defer registryMu.Unlock()
	backendName = name
	sessionLedger = ledger
	webSessionStore = sessions
}

// Reset forgets the registered backend.
func Reset() {
	RegisterBackend("", nil, nil)
}

// IsInitialized returns whether a backend has been registered.
func IsInitialized() bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return backendName != ""
}

// BackendName returns the registered backend name, empty when none.
func BackendName() string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return backendName
}

// GetSessionLedger returns the ledger of the registered backend.
func GetSessionLedger() (SessionLedger, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if backendName == "" {
		return nil, errors.New("database backend not initialized: DATABASE_URL is required")
	}
	if sessionLedger == nil {
		return nil, errors.New("session ledger not registered")
	}
	return sessionLedger(), nil
}

// GetWebSessionStore returns the web session store of the registered backend.
func GetWebSessionStore() (WebSessionStore, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if backendName == "" {
		return nil, errors.New("database backend not initialized: DATABASE_URL is required")
	}
	if webSessionStore == nil {
		return nil, errors.New("web session store not registered")
	}
	return webSessionStore(), nil
}
