package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"challengechain/native/challenge"
	"challengechain/storage"
)

type Config struct {
	ListenAddress      string    `toml:"ListenAddress"`
	DataDir            string    `toml:"DataDir"`
	DBBackend          string    `toml:"DBBackend"`
	GenesisFile        string    `toml:"GenesisFile"`
	PlatformAccount    string    `toml:"PlatformAccount"`
	Authority          string    `toml:"Authority"`
	SubmissionFee      uint64    `toml:"SubmissionFee"`
	CreationFee        uint64    `toml:"CreationFee"`
	EscrowFunding      uint64    `toml:"EscrowFunding"`
	LogLevel           string    `toml:"LogLevel"`
	LogFile            string    `toml:"LogFile"`
	Environment        string    `toml:"Environment"`
	RateLimitPerSecond float64   `toml:"RateLimitPerSecond"`
	RateLimitBurst     int       `toml:"RateLimitBurst"`
	Telemetry          Telemetry `toml:"telemetry"`
}

// Load loads the configuration at path, writing a default file first when
// none exists. Unset keys take their defaults and the result is validated.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	} else if err != nil {
		return nil, err
	}

	cfg := &Config{}
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return nil, fmt.Errorf("config file %s has unknown keys: %s", path, strings.Join(keys, ", "))
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns the configuration written for a fresh node. The platform
// account is left empty and must be filled in before the node will start.
func Default() *Config {
	params := challenge.DefaultParams()
	return &Config{
		ListenAddress:      ":8080",
		DataDir:            "./challenge-data",
		DBBackend:          storage.BackendLevelDB,
		SubmissionFee:      params.SubmissionFee,
		CreationFee:        params.CreationFee,
		EscrowFunding:      params.EscrowFunding,
		LogLevel:           "info",
		Environment:        "local",
		RateLimitPerSecond: 20,
		RateLimitBurst:     40,
		Telemetry: Telemetry{
			Endpoint:    "localhost:4318",
			Insecure:    true,
			SampleRatio: 1,
		},
	}
}

func (c *Config) applyDefaults() {
	def := Default()
	if strings.TrimSpace(c.ListenAddress) == "" {
		c.ListenAddress = def.ListenAddress
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = def.DataDir
	}
	if strings.TrimSpace(c.DBBackend) == "" {
		c.DBBackend = def.DBBackend
	}
	c.DBBackend = strings.ToLower(strings.TrimSpace(c.DBBackend))
	if c.SubmissionFee == 0 {
		c.SubmissionFee = def.SubmissionFee
	}
	if c.CreationFee == 0 {
		c.CreationFee = def.CreationFee
	}
	if c.EscrowFunding == 0 {
		c.EscrowFunding = def.EscrowFunding
	}
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = def.LogLevel
	}
	if c.RateLimitPerSecond == 0 {
		c.RateLimitPerSecond = def.RateLimitPerSecond
	}
	if c.RateLimitBurst == 0 {
		c.RateLimitBurst = def.RateLimitBurst
	}
	if strings.TrimSpace(c.Telemetry.Endpoint) == "" {
		c.Telemetry.Endpoint = def.Telemetry.Endpoint
	}
	if c.Telemetry.SampleRatio == 0 {
		c.Telemetry.SampleRatio = def.Telemetry.SampleRatio
	}
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := Default()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
