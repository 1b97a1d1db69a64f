package config

import (
	"fmt"
	"net"
	"strings"

	"lessonchain/storage"
)

// Validate rejects configurations the daemon cannot start with.
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case storage.BackendMemory, storage.BackendLevelDB, storage.BackendBolt:
	default:
		return fmt.Errorf("storage: unknown backend %q", c.StorageBackend)
	}
	if _, err := c.ProgramIDBytes(); err != nil {
		return fmt.Errorf("program: invalid ProgramID: %w", err)
	}
	if _, err := c.MetadataProgramIDBytes(); err != nil {
		return fmt.Errorf("program: invalid MetadataProgramID: %w", err)
	}
	if _, _, err := c.MintAuthorityBytes(); err != nil {
		return fmt.Errorf("program: %w", err)
	}
	if c.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("ratelimit: RequestsPerMinute must be positive")
	}
	if c.RateLimit.Burst <= 0 {
		return fmt.Errorf("ratelimit: Burst must be positive")
	}
	for _, proxy := range c.RateLimit.TrustedProxies {
		if !validProxy(proxy) {
			return fmt.Errorf("ratelimit: invalid TrustedProxies entry %q", proxy)
		}
	}
	if c.Indexer.Enabled() {
		switch c.Indexer.Driver {
		case IndexerDriverSQLite, IndexerDriverPostgres:
		default:
			return fmt.Errorf("indexer: unknown driver %q", c.Indexer.Driver)
		}
	}
	return nil
}

func validProxy(entry string) bool {
	trimmed := strings.TrimSpace(entry)
	if strings.Contains(trimmed, "/") {
		_, _, err := net.ParseCIDR(trimmed)
		return err == nil
	}
	return net.ParseIP(trimmed) != nil
}
