package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"lessonchain/crypto"
	"lessonchain/storage"

	"github.com/BurntSushi/toml"
)

type Config struct {
	ListenAddress     string    `toml:"ListenAddress"`
	DataDir           string    `toml:"DataDir"`
	StorageBackend    string    `toml:"StorageBackend"`
	ProgramID         string    `toml:"ProgramID"`
	MetadataProgramID string    `toml:"MetadataProgramID"`
	MintAuthority     string    `toml:"MintAuthority"`
	NetworkName       string    `toml:"NetworkName"`
	Environment       string    `toml:"Environment"`
	LogFile           string    `toml:"LogFile"`
	RateLimit         RateLimit `toml:"RateLimit"`
	Indexer           Indexer   `toml:"Indexer"`
}

// Load loads the configuration from the given path. A missing file is
// replaced by the defaults, which are written back to path.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s has unknown field %s", path, undecoded[0].String())
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.ListenAddress) == "" {
		c.ListenAddress = ":8547"
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./lesson-data"
	}
	if strings.TrimSpace(c.StorageBackend) == "" {
		c.StorageBackend = storage.BackendLevelDB
	}
	if strings.TrimSpace(c.NetworkName) == "" {
		c.NetworkName = "lesson-local"
	}
	if strings.TrimSpace(c.Environment) == "" {
		c.Environment = "dev"
	}
	if c.RateLimit.RequestsPerMinute == 0 {
		c.RateLimit.RequestsPerMinute = 600
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 60
	}
	if c.Indexer.DSN != "" && strings.TrimSpace(c.Indexer.Driver) == "" {
		c.Indexer.Driver = IndexerDriverSQLite
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

// ProgramIDBytes resolves the progress program id. An empty value falls back
// to the id derived from DefaultProgramLabel.
func (c *Config) ProgramIDBytes() ([20]byte, error) {
	return resolveProgram(c.ProgramID, DefaultProgramLabel)
}

// MetadataProgramIDBytes resolves the metadata program id.
func (c *Config) MetadataProgramIDBytes() ([20]byte, error) {
	return resolveProgram(c.MetadataProgramID, DefaultMetadataProgramLabel)
}

// MintAuthorityBytes returns the configured mint authority and whether one was
// set at all. The authority is a program account, so it must carry the program
// address prefix.
func (c *Config) MintAuthorityBytes() ([20]byte, bool, error) {
	trimmed := strings.TrimSpace(c.MintAuthority)
	if trimmed == "" {
		return [20]byte{}, false, nil
	}
	addr, err := crypto.DecodeAddress(trimmed)
	if err != nil {
		return [20]byte{}, false, fmt.Errorf("invalid MintAuthority: %w", err)
	}
	if addr.Prefix() != crypto.ProgramPrefix {
		return [20]byte{}, false, fmt.Errorf("invalid MintAuthority: %s must use the %s prefix", trimmed, crypto.ProgramPrefix)
	}
	return addr.Raw(), true, nil
}

func resolveProgram(value, label string) ([20]byte, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return crypto.ProgramIDFromLabel(label)
	}
	addr, err := crypto.DecodeAddress(trimmed)
	if err != nil {
		return [20]byte{}, err
	}
	if addr.Prefix() != crypto.ProgramPrefix {
		return [20]byte{}, fmt.Errorf("program id %s must use the %s prefix", trimmed, crypto.ProgramPrefix)
	}
	return addr.Raw(), nil
}
