package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage drivers
const (
	StorageMemory = "memory"
	StorageSQLite = "sqlite"
)

// MCP transports
const (
	MCPTransportStdio = "stdio"
	MCPTransportSSE   = "sse"
	MCPTransportNone  = "none"
)

// EnvPrefix prefixes every environment override, e.g. PORTALOPS_HTTP_ADDR
const EnvPrefix = "PORTALOPS"

// SessionConfig holds configuration for automation sessions
type SessionConfig struct {
	// TTL is the time box applied to every new session
	TTL time.Duration
	// SweepInterval is how often live sessions are checked for expiry.
	// Zero disables the sweeper; expiry is still applied on every read.
	SweepInterval time.Duration
}

// DefaultSessionConfig returns default configuration for sessions
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		TTL:           DefaultSessionTTL,
		SweepInterval: DefaultSweepInterval,
	}
}

// CacheConfig holds configuration for case summary caching
type CacheConfig struct {
	// TTL is the time-to-live for cached cases
	TTL time.Duration
	// Size is the maximum number of cached cases
	Size int
}

// DefaultCacheConfig returns default configuration for caching
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		TTL:  DefaultCaseCacheTTL,
		Size: DefaultCaseCacheSize,
	}
}

// StorageConfig selects and configures the record backend
type StorageConfig struct {
	Driver   string
	Path     string
	SeedFile string
}

// MCPConfig configures the MCP tool gateway
type MCPConfig struct {
	Transport string
	Addr      string
	// AgentID and AgentRole identify the single caller of a stdio server
	AgentID   string
	AgentRole string
}

// Config is the coordinator's full runtime configuration
type Config struct {
	Name        string
	Version     string
	Debug       bool
	HTTPAddr    string
	GRPCAddr    string
	CORSOrigins []string
	MCP         MCPConfig
	Storage     StorageConfig
	Session     SessionConfig
	Cache       CacheConfig
}

// SetDefaults registers every default with v
func SetDefaults(v *viper.Viper) {
	session := DefaultSessionConfig()
	cache := DefaultCacheConfig()

	v.SetDefault("name", "portalops-coordinator")
	v.SetDefault("version", "0.1.0")
	v.SetDefault("debug", false)
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("grpc.addr", ":50051")
	v.SetDefault("cors.origins", []string{"http://localhost:3000"})
	v.SetDefault("mcp.transport", MCPTransportSSE)
	v.SetDefault("mcp.addr", ":8081")
	v.SetDefault("mcp.agent_id", "")
	v.SetDefault("mcp.agent_role", "AGENT")
	v.SetDefault("storage.driver", StorageMemory)
	v.SetDefault("storage.path", "portalops.db")
	v.SetDefault("storage.seed_file", "")
	v.SetDefault("session.ttl", session.TTL)
	v.SetDefault("session.sweep_interval", session.SweepInterval)
	v.SetDefault("cache.ttl", cache.TTL)
	v.SetDefault("cache.size", cache.Size)
}

// NewViper returns a viper instance with defaults and PORTALOPS_* env
// overrides. A non-empty configFile is read as well.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}
	return v, nil
}

// Load builds a validated Config from v
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Name:        v.GetString("name"),
		Version:     v.GetString("version"),
		Debug:       v.GetBool("debug"),
		HTTPAddr:    v.GetString("http.addr"),
		GRPCAddr:    v.GetString("grpc.addr"),
		CORSOrigins: v.GetStringSlice("cors.origins"),
		MCP: MCPConfig{
			Transport: strings.ToLower(v.GetString("mcp.transport")),
			Addr:      v.GetString("mcp.addr"),
			AgentID:   v.GetString("mcp.agent_id"),
			AgentRole: v.GetString("mcp.agent_role"),
		},
		Storage: StorageConfig{
			Driver:   strings.ToLower(v.GetString("storage.driver")),
			Path:     v.GetString("storage.path"),
			SeedFile: v.GetString("storage.seed_file"),
		},
		Session: SessionConfig{
			TTL:           v.GetDuration("session.ttl"),
			SweepInterval: v.GetDuration("session.sweep_interval"),
		},
		Cache: CacheConfig{
			TTL:  v.GetDuration("cache.ttl"),
			Size: v.GetInt("cache.size"),
		},
	}
	return cfg, cfg.Validate()
}

// Validate reports the first invalid setting
func (c Config) Validate() error {
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session.ttl must be positive, got %v", c.Session.TTL)
	}
	if c.Session.SweepInterval < 0 {
		return fmt.Errorf("session.sweep_interval must not be negative, got %v", c.Session.SweepInterval)
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative, got %v", c.Cache.TTL)
	}

	switch c.Storage.Driver {
	case StorageMemory:
	case StorageSQLite:
		if c.Storage.Path == "" {
			return fmt.Errorf("storage.path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}

	switch c.MCP.Transport {
	case MCPTransportStdio:
		if c.MCP.AgentID == "" {
			return fmt.Errorf("mcp.agent_id is required for the stdio transport")
		}
	case MCPTransportSSE, MCPTransportNone:
	default:
		return fmt.Errorf("unknown mcp.transport %q", c.MCP.Transport)
	}
	return nil
}
