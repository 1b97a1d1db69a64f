package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"lessonchain/crypto"
	"lessonchain/storage"
)

func TestLoadCreatesDefaultFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, storage.BackendLevelDB, cfg.StorageBackend)
	require.Equal(t, "lesson-local", cfg.NetworkName)
	require.Equal(t, 600, cfg.RateLimit.RequestsPerMinute)

	_, err = os.Stat(path)
	require.NoError(t, err)

	reloaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, reloaded)
}

func TestLoadParsesFile(t *testing.T) {
	var raw [20]byte
	raw[0] = 0x42
	program := crypto.FromRaw(crypto.ProgramPrefix, raw).String()
	authority := crypto.FromRaw(crypto.ProgramPrefix, raw).String()

	path := filepath.Join(t.TempDir(), "config.toml")
	contents := `ListenAddress = "127.0.0.1:9000"
DataDir = "./data"
StorageBackend = "bolt"
ProgramID = "` + program + `"
MintAuthority = "` + authority + `"
Environment = "test"

[RateLimit]
RequestsPerMinute = 30
Burst = 5
TrustedProxies = ["10.0.0.1", "10.8.0.0/16"]

[Indexer]
DSN = "file:history.db"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9000", cfg.ListenAddress)
	require.Equal(t, storage.BackendBolt, cfg.StorageBackend)
	require.Equal(t, 30, cfg.RateLimit.RequestsPerMinute)
	require.Equal(t, 5, cfg.RateLimit.Burst)
	require.Equal(t, []string{"10.0.0.1", "10.8.0.0/16"}, cfg.RateLimit.TrustedProxies)
	require.True(t, cfg.Indexer.Enabled())
	require.Equal(t, IndexerDriverSQLite, cfg.Indexer.Driver)

	id, err := cfg.ProgramIDBytes()
	require.NoError(t, err)
	require.Equal(t, raw, id)

	mintAuthority, ok, err := cfg.MintAuthorityBytes()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, raw, mintAuthority)

	metadataID, err := cfg.MetadataProgramIDBytes()
	require.NoError(t, err)
	expected, err := crypto.ProgramIDFromLabel(DefaultMetadataProgramLabel)
	require.NoError(t, err)
	require.Equal(t, expected, metadataID)
}

func TestLoadRejectsUnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("GenesisFile = \"genesis.json\"\n"), 0o644))

	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "GenesisFile") {
		t.Fatalf("expected unknown field error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	var raw [20]byte
	raw[3] = 7

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "defaults"},
		{name: "unknown backend", mutate: func(c *Config) { c.StorageBackend = "rocks" }, want: "unknown backend"},
		{name: "participant program id", mutate: func(c *Config) {
			c.ProgramID = crypto.FromRaw(crypto.ParticipantPrefix, raw).String()
		}, want: "ProgramID"},
		{name: "garbage metadata id", mutate: func(c *Config) { c.MetadataProgramID = "nope" }, want: "MetadataProgramID"},
		{name: "garbage authority", mutate: func(c *Config) { c.MintAuthority = "nope" }, want: "MintAuthority"},
		{name: "participant authority", mutate: func(c *Config) {
			c.MintAuthority = crypto.FromRaw(crypto.ParticipantPrefix, raw).String()
		}, want: "MintAuthority"},
		{name: "token authority", mutate: func(c *Config) {
			c.MintAuthority = crypto.FromRaw(crypto.TokenPrefix, raw).String()
		}, want: "MintAuthority"},
		{name: "program authority", mutate: func(c *Config) {
			c.MintAuthority = crypto.FromRaw(crypto.ProgramPrefix, raw).String()
		}},
		{name: "bad proxy", mutate: func(c *Config) { c.RateLimit.TrustedProxies = []string{"proxy.internal"} }, want: "TrustedProxies"},
		{name: "cidr proxy", mutate: func(c *Config) { c.RateLimit.TrustedProxies = []string{"10.0.0.0/8", "::1"} }},
		{name: "negative rate", mutate: func(c *Config) { c.RateLimit.RequestsPerMinute = -1 }, want: "RequestsPerMinute"},
		{name: "negative burst", mutate: func(c *Config) { c.RateLimit.Burst = -1 }, want: "Burst"},
		{name: "unknown indexer", mutate: func(c *Config) {
			c.Indexer = Indexer{Driver: "mysql", DSN: "x"}
		}, want: "unknown driver"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			if tc.mutate != nil {
				tc.mutate(cfg)
			}
			err := cfg.Validate()
			if tc.want == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.want)
		})
	}
}
