package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// DefaultContractAddress is the deployed WavePortal contract the UI talks to.
const DefaultContractAddress = "0xc468696e21fAa7776268C028b76F873168527e07"

// DefaultPollInterval is used for NewWave polling when the endpoint has no subscriptions.
const DefaultPollInterval = 4 * time.Second

// Config represents the application configuration
type Config struct {
	RPCURLs      []RPCUrl `json:"rpc_urls"`
	Contract     string   `json:"contract"`
	ExplorerURL  string   `json:"explorer_url,omitempty"`
	PollInterval Duration `json:"poll_interval,omitempty"`
	Logger       bool     `json:"logger"`
}

// RPCUrl represents an RPC endpoint
type RPCUrl struct {
	Name   string `json:"name"`
	URL    string `json:"url"`
	Active bool   `json:"active"`
}

// Duration is a time.Duration stored as a string ("4s") in the config file.
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// DefaultPath returns ~/.wave-portal-config.json
func DefaultPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".wave-portal-config.json")
}

// Load reads the config from the specified path
func Load(path string) Config {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}
	}

	return cfg
}

// Save writes the config to the specified path
func Save(path string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// DefaultConfig returns a new configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		RPCURLs: []RPCUrl{
			{
				Name:   "Sepolia (public)",
				URL:    "https://ethereum-sepolia-rpc.publicnode.com",
				Active: true,
			},
		},
		Contract:     DefaultContractAddress,
		ExplorerURL:  "https://sepolia.etherscan.io",
		PollInterval: Duration(DefaultPollInterval),
		Logger:       false,
	}
}

// LoadOrCreate loads config from path, or creates a default one if not found
func LoadOrCreate(path string) Config {
	data, err := os.ReadFile(path)
	if err != nil {
		cfg := DefaultConfig()
		_ = Save(path, cfg)
		return cfg
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig()
	}

	return cfg.withDefaults()
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Contract == "" {
		c.Contract = def.Contract
	}
	if c.ExplorerURL == "" {
		c.ExplorerURL = def.ExplorerURL
	}
	if c.PollInterval <= 0 {
		c.PollInterval = def.PollInterval
	}
	return c
}

// ActiveRPC returns the URL of the endpoint marked active, or "".
func (c Config) ActiveRPC() string {
	for _, r := range c.RPCURLs {
		if r.Active {
			return r.URL
		}
	}
	return ""
}

// Activate marks the endpoint at idx as the only active one.
func (c *Config) Activate(idx int) bool {
	if idx < 0 || idx >= len(c.RPCURLs) {
		return false
	}
	for i := range c.RPCURLs {
		c.RPCURLs[i].Active = i == idx
	}
	return true
}
