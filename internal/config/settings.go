package config

import (
	"sync"
)

// Settings is the runtime-mutable state the admin surface edits. The key
// material fields mirror the two provider credentials the admin panel
// manages; the gateway reads only the maintenance flag and the chat key.
type Settings struct {
	GeminiAPIKey string `json:"gemini_api_key"`
	VeoAPIKey    string `json:"veo_api_key"`
	Maintenance  bool   `json:"is_maintenance"`
}

// SettingsUpdate carries a partial settings change; nil fields are kept.
type SettingsUpdate struct {
	GeminiAPIKey *string `json:"gemini_api_key,omitempty"`
	VeoAPIKey    *string `json:"veo_api_key,omitempty"`
	Maintenance  *bool   `json:"is_maintenance,omitempty"`
}

// SettingsStore holds settings behind a mutex so the gateway and admin
// handlers can share them without ambient globals.
type SettingsStore struct {
	mu       sync.RWMutex
	settings Settings
}

// NewSettingsStore seeds the store from the loaded configuration.
func NewSettingsStore(cfg *Config) *SettingsStore {
	return &SettingsStore{
		settings: Settings{
			GeminiAPIKey: cfg.APIKey,
			VeoAPIKey:    cfg.APIKey,
			Maintenance:  cfg.Maintenance,
		},
	}
}

// Get returns a snapshot of the current settings.
func (s *SettingsStore) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Apply merges a partial update into the current settings.
func (s *SettingsStore) Apply(update SettingsUpdate) Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	if update.GeminiAPIKey != nil {
		s.settings.GeminiAPIKey = *update.GeminiAPIKey
	}
	if update.VeoAPIKey != nil {
		s.settings.VeoAPIKey = *update.VeoAPIKey
	}
	if update.Maintenance != nil {
		s.settings.Maintenance = *update.Maintenance
	}
	return s.settings
}

// Maintenance reports whether maintenance mode is active.
func (s *SettingsStore) Maintenance() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.Maintenance
}

// APIKey returns the model credential currently in effect.
func (s *SettingsStore) APIKey() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.GeminiAPIKey
}
