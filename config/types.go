package config

// RateLimit bounds the request rate accepted per client address on the RPC
// listener. TrustedProxies lists the peers, as IPs or CIDR ranges, whose
// X-Forwarded-For and X-Real-IP headers identify the client.
type RateLimit struct {
	RequestsPerMinute int      `toml:"RequestsPerMinute"`
	Burst             int      `toml:"Burst"`
	TrustedProxies    []string `toml:"TrustedProxies"`
}

// Indexer selects the optional event history database.
type Indexer struct {
	Driver string `toml:"Driver"`
	DSN    string `toml:"DSN"`
}

// Enabled reports whether an indexer DSN has been configured.
func (i Indexer) Enabled() bool { return i.DSN != "" }

const (
	IndexerDriverSQLite   = "sqlite"
	IndexerDriverPostgres = "postgres"
)

const (
	// DefaultProgramLabel seeds the progress program id when none is configured.
	DefaultProgramLabel = "lesson_progress"
	// DefaultMetadataProgramLabel seeds the metadata program id when none is configured.
	DefaultMetadataProgramLabel = "token_metadata"
)
