package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for tipfeed.
type Config struct {
	BaseDir      string             `toml:"base_dir"`
	LogDir       string             `toml:"log_dir"`
	Chain        ChainConfig        `toml:"chain"`
	ContentStore ContentStoreConfig `toml:"content_store"`
	Cache        CacheConfig        `toml:"cache"`
	Journal      JournalConfig      `toml:"journal"`
	Notify       NotifyConfig       `toml:"notify"`
	Metrics      MetricsConfig      `toml:"metrics"`
	Feed         FeedConfig         `toml:"feed"`
}

// ChainConfig describes the EVM node and the feed contract.
type ChainConfig struct {
	RPCURL          string `toml:"rpc_url"`
	ContractAddress string `toml:"contract_address"`
	ChainID         int64  `toml:"chain_id"`
	// Address is used as the viewer identity when no signing key is
	// configured. Writes are refused in that mode.
	Address  string    `toml:"address,omitempty"`
	GasLimit uint64    `toml:"gas_limit,omitempty"` // zero lets the node estimate
	Key      KeyConfig `toml:"key"`
}

// KeyConfig locates the signing key.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type KeyConfig struct {
	Type string `toml:"type"`           // "age" (default), "plain" or "none"
	Path string `toml:"path,omitempty"` // unused for type=none
}

// ContentStoreConfig represents configuration for the content-addressed store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type ContentStoreConfig struct {
	Type string `toml:"type"` // "memory", "filesystem", "ipfs" or "s3"

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSRoot string `toml:"fs_root,omitempty"`

	// IPFS-specific fields (only used when Type == "ipfs")
	IPFSAPIURL     string  `toml:"ipfs_api_url,omitempty"`
	IPFSGatewayURL string  `toml:"ipfs_gateway_url,omitempty"`
	IPFSToken      string  `toml:"ipfs_token,omitempty"`
	IPFSRateLimit  float64 `toml:"ipfs_rate_limit,omitempty"` // requests per second, zero for unlimited

	// S3-specific fields (only used when Type == "s3")
	S3Bucket   string `toml:"s3_bucket,omitempty"`
	S3Prefix   string `toml:"s3_prefix,omitempty"`
	S3Region   string `toml:"s3_region,omitempty"`
	S3Endpoint string `toml:"s3_endpoint,omitempty"` // for S3-compatible services
	// Static credentials. When empty the default AWS credential chain is used.
	S3AccessKeyID     string `toml:"s3_access_key_id,omitempty"`
	S3SecretAccessKey string `toml:"s3_secret_access_key,omitempty"`
}

// CacheConfig represents configuration for the document cache placed in front
// of the content store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type CacheConfig struct {
	Type       string `toml:"type"`                  // "none", "memory" or "redis"
	MaxEntries int    `toml:"max_entries,omitempty"` // only used for type=memory

	// Redis-specific fields (only used when Type == "redis")
	RedisAddr     string `toml:"redis_addr,omitempty"`
	RedisPassword string `toml:"redis_password,omitempty"`
	RedisDB       int    `toml:"redis_db,omitempty"`
	TTL           string `toml:"ttl,omitempty"` // Go duration, e.g. "24h"
}

// JournalConfig represents configuration for the operation journal.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type JournalConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// NotifyConfig represents configuration for write announcements.
type NotifyConfig struct {
	Type    string `toml:"type"`               // "none" or "nats"
	NATSURL string `toml:"nats_url,omitempty"` // only used for type=nats
	Subject string `toml:"subject,omitempty"`  // subject prefix, defaults to "tipfeed"
}

// MetricsConfig represents configuration for metrics export.
type MetricsConfig struct {
	// Textfile is the node_exporter textfile collector path metrics are
	// written to on exit. Empty disables the export.
	Textfile string `toml:"textfile,omitempty"`
}

// FeedConfig tunes feed assembly.
type FeedConfig struct {
	Concurrency  int    `toml:"concurrency"`
	FetchTimeout string `toml:"fetch_timeout,omitempty"` // Go duration; empty for no limit
}

// FetchTimeoutDuration parses FetchTimeout.
func (c FeedConfig) FetchTimeoutDuration() (time.Duration, error) {
	if c.FetchTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.FetchTimeout)
	if err != nil {
		return 0, fmt.Errorf("parsing feed.fetch_timeout: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("feed.fetch_timeout must not be negative: %s", c.FetchTimeout)
	}
	return d, nil
}

// NewConfig creates a new Config rooted at baseDir with default settings
// for a local development chain.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Chain: ChainConfig{
			RPCURL:  "http://127.0.0.1:8545",
			ChainID: 31337,
			Key: KeyConfig{
				Type: "age",
				Path: filepath.Join(baseDir, "keys", "tipfeed.key"),
			},
		},
		ContentStore: ContentStoreConfig{
			Type:   "filesystem",
			FSRoot: filepath.Join(baseDir, "content"),
		},
		Cache:   CacheConfig{Type: "memory", MaxEntries: 1024},
		Journal: JournalConfig{Type: "sqlite", DataDir: filepath.Join(baseDir, "db")},
		Notify:  NotifyConfig{Type: "none"},
		Feed:    FeedConfig{Concurrency: 16, FetchTimeout: "10s"},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// The file may hold storage and cache credentials.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
