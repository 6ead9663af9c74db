package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

type Config struct {
	Language LanguageConfig `json:"language"`
	Planner  PlannerConfig  `json:"planner"`
	HTTP     HTTPConfig     `json:"http"`
	Archive  ArchiveConfig  `json:"archive"`
}

type LanguageConfig struct {
	Model             string `json:"model"`
	APIKeyEnv         string `json:"api_key_env"`
	BaseURL           string `json:"base_url"`
	RequestTimeoutSec int    `json:"request_timeout_sec"`
}

type PlannerConfig struct {
	MaxClarifyingQuestions int    `json:"max_clarifying_questions"`
	ApologyText            string `json:"apology_text"`
}

type HTTPConfig struct {
	Port               int `json:"port"`
	ShutdownTimeoutSec int `json:"shutdown_timeout_sec"`
}

type ArchiveConfig struct {
	Dir string `json:"dir"`
}

type Manager struct {
	path string
	mu   sync.RWMutex
	cfg  Config
}

func DefaultPath() string {
	return filepath.Join("config", "config.json")
}

func NewManager(path string) (*Manager, error) {
	cfg := defaultConfig()
	mgr := &Manager{
		path: path,
		cfg:  cfg,
	}
	if err := mgr.load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	}
	if err := mgr.save(); err != nil {
		return nil, err
	}
	return mgr, nil
}

func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

func (m *Manager) Path() string {
	return m.path
}

func (m *Manager) Update(apply func(*Config)) (Config, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	apply(&m.cfg)
	applyDefaults(&m.cfg)
	if err := m.saveLocked(); err != nil {
		return Config{}, err
	}
	return m.cfg, nil
}

func (m *Manager) load() error {
	data, err := os.ReadFile(m.path)
	if err != nil {
		return err
	}
	var fileCfg Config
	if err := json.Unmarshal(data, &fileCfg); err != nil {
		return err
	}
	m.cfg = fileCfg
	applyDefaults(&m.cfg)
	return nil
}

func (m *Manager) reload() (Config, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev := m.cfg
	if err := m.load(); err != nil {
		return Config{}, false, err
	}
	return m.cfg, m.cfg != prev, nil
}

func (m *Manager) save() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveLocked()
}

func (m *Manager) saveLocked() error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m.cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.path, data, 0644)
}

func defaultConfig() Config {
	cfg := Config{}
	applyDefaults(&cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Language.Model) == "" {
		cfg.Language.Model = "gpt-4o-mini"
	}
	if strings.TrimSpace(cfg.Language.APIKeyEnv) == "" {
		cfg.Language.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Language.RequestTimeoutSec <= 0 {
		cfg.Language.RequestTimeoutSec = 45
	}
	if cfg.Planner.MaxClarifyingQuestions <= 0 {
		cfg.Planner.MaxClarifyingQuestions = 2
	}
	if cfg.Planner.MaxClarifyingQuestions > 5 {
		cfg.Planner.MaxClarifyingQuestions = 5
	}
	if strings.TrimSpace(cfg.Planner.ApologyText) == "" {
		cfg.Planner.ApologyText = "Sorry, I couldn't answer that just now. Your plan is unchanged; please try asking again."
	}
	if cfg.HTTP.Port <= 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.HTTP.ShutdownTimeoutSec <= 0 {
		cfg.HTTP.ShutdownTimeoutSec = 5
	}
	if strings.TrimSpace(cfg.Archive.Dir) == "" {
		cfg.Archive.Dir = filepath.Join("output", "db")
	}
}
