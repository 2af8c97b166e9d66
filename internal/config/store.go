// Package config persists the safety channel table and configured limited
// speed to a single JSON file. Latch state is never persisted: a restart
// always starts with every channel un-triggered.
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

// DefaultLimitedSpeed is the speed percentage used when no configuration
// exists or a stored value is out of range. The value is stored and reported
// only; the supervisor's actions are always full pause/resume.
const DefaultLimitedSpeed = 30

// FileName is the name of the configuration file inside the store directory.
const FileName = "interlock_config.json"

// Entry is one persisted safety channel configuration.
type Entry struct {
	Channel      int    `json:"channel"`
	ResetChannel int    `json:"reset_channel"`
	TriggerValue int    `json:"trigger_value"` // 1 = trip on asserted, 0 = trip on deasserted
	Description  string `json:"description"`
}

// UnmarshalJSON defaults TriggerValue to 1 (trip on asserted) when the field
// is absent, matching the behavior of configuration updates.
func (e *Entry) UnmarshalJSON(data []byte) error {
	type plain Entry
	v := plain{TriggerValue: 1}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*e = Entry(v)
	return nil
}

// Config is the full persisted record.
type Config struct {
	LastUpdate   int64   `json:"last_update"`
	LimitedSpeed int     `json:"limited_speed"`
	Channels     []Entry `json:"channels"`
}

// Store reads and writes the configuration file in a fixed directory.
type Store struct {
	dir string
}

// NewStore creates a Store rooted at the given directory.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Path returns the full path of the configuration file.
func (s *Store) Path() string {
	return filepath.Join(s.dir, FileName)
}

// Load reads the stored configuration. On first run (no file) it materializes
// and persists a default configuration (no channels, default speed) instead
// of failing. An out-of-range stored speed is replaced by the default with a
// logged warning.
func (s *Store) Load() (Config, error) {
	path := s.Path()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Printf("config: %s not found, creating default", path)
		cfg := Config{LimitedSpeed: DefaultLimitedSpeed}
		if err := s.Save(cfg); err != nil {
			return Config{}, fmt.Errorf("create default config: %w", err)
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if cfg.LimitedSpeed < 0 || cfg.LimitedSpeed > 100 {
		log.Printf("config: stored limited speed %d out of range, using default %d",
			cfg.LimitedSpeed, DefaultLimitedSpeed)
		cfg.LimitedSpeed = DefaultLimitedSpeed
	}

	return cfg, nil
}

// Save writes the configuration, stamping LastUpdate with the current time.
// The store directory is created if needed.
func (s *Store) Save(cfg Config) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	cfg.LastUpdate = time.Now().Unix()
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := os.WriteFile(s.Path(), data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
