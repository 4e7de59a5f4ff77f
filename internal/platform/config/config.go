package config

import (
	"fmt"
	"log"
	"slices"
	"strings"
	"time"

	"github.com/SscSPs/bank_mesh/internal/core/domain"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Identity provider modes.
const (
	IdentityModeRemote = "remote"
	IdentityModeJWT    = "jwt"
)

// Cross-service transfer policies.
const (
	CrossServiceReject = "reject"
	CrossServiceSaga   = "saga"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL   string // Empty selects the in-memory store
	Port          string
	IsProduction  bool
	EnableDBCheck bool

	// ServiceName is recorded as origin_service on rows this instance owns.
	ServiceName      string
	OwnedCollections []domain.Collection

	// Owners of the collections this service replicates. A URL may also be
	// set for an owned collection; it then names a peer ledger that
	// receives saga credits.
	UpstreamAccountsURL    string
	UpstreamPaymentsURL    string
	UpstreamCreditCardsURL string

	IdentityURL  string
	IdentityMode string
	JWTSecret    string
	JWTIssuer    string
	ServiceToken string // Admin token used by the background sync

	UpstreamTimeout     time.Duration
	UpstreamMaxAttempts int
	UpstreamBaseDelay   time.Duration
	ReplicaMaxStaleness time.Duration
	SyncInterval        time.Duration

	RedisAddr     string // Empty selects the in-process freshness tracker
	RedisPassword string
	RedisDB       int

	LedgerMaxAttempts int
	LedgerLockTimeout time.Duration

	SingleAccountPerOwner bool
	CrossServiceTransfers string

	RateLimit          string // ulule/limiter format, e.g. "100-M"; empty disables
	CORSAllowedOrigins []string
	LogLevel           string
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg, err := fromViper(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PGSQL_URL", "")
	v.SetDefault("PORT", "8080")
	v.SetDefault("IS_PRODUCTION", false)
	v.SetDefault("ENABLE_DB_CHECK", false)
	v.SetDefault("SERVICE_NAME", "bank")
	v.SetDefault("OWNED_COLLECTIONS", "accounts,payments,credit-cards")
	v.SetDefault("UPSTREAM_ACCOUNTS_URL", "")
	v.SetDefault("UPSTREAM_PAYMENTS_URL", "")
	v.SetDefault("UPSTREAM_CREDIT_CARDS_URL", "")
	v.SetDefault("IDENTITY_URL", "http://localhost:8000")
	v.SetDefault("IDENTITY_MODE", IdentityModeRemote)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ISSUER", "identity")
	v.SetDefault("SERVICE_TOKEN", "")
	v.SetDefault("UPSTREAM_TIMEOUT", "5s")
	v.SetDefault("UPSTREAM_MAX_ATTEMPTS", 3)
	v.SetDefault("UPSTREAM_BASE_DELAY", "100ms")
	v.SetDefault("REPLICA_MAX_STALENESS", "30s")
	v.SetDefault("SYNC_INTERVAL", "0s")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("LEDGER_MAX_ATTEMPTS", 3)
	v.SetDefault("LEDGER_LOCK_TIMEOUT", "2s")
	v.SetDefault("SINGLE_ACCOUNT_PER_OWNER", true)
	v.SetDefault("CROSS_SERVICE_TRANSFERS", CrossServiceReject)
	v.SetDefault("RATE_LIMIT", "")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("LOG_LEVEL", "info")
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		DatabaseURL:            v.GetString("PGSQL_URL"),
		Port:                   v.GetString("PORT"),
		IsProduction:           v.GetBool("IS_PRODUCTION"),
		EnableDBCheck:          v.GetBool("ENABLE_DB_CHECK"),
		ServiceName:            v.GetString("SERVICE_NAME"),
		UpstreamAccountsURL:    strings.TrimRight(v.GetString("UPSTREAM_ACCOUNTS_URL"), "/"),
		UpstreamPaymentsURL:    strings.TrimRight(v.GetString("UPSTREAM_PAYMENTS_URL"), "/"),
		UpstreamCreditCardsURL: strings.TrimRight(v.GetString("UPSTREAM_CREDIT_CARDS_URL"), "/"),
		IdentityURL:            strings.TrimRight(v.GetString("IDENTITY_URL"), "/"),
		IdentityMode:           strings.ToLower(v.GetString("IDENTITY_MODE")),
		JWTSecret:              v.GetString("JWT_SECRET"),
		JWTIssuer:              v.GetString("JWT_ISSUER"),
		ServiceToken:           v.GetString("SERVICE_TOKEN"),
		UpstreamMaxAttempts:    v.GetInt("UPSTREAM_MAX_ATTEMPTS"),
		RedisAddr:              v.GetString("REDIS_ADDR"),
		RedisPassword:          v.GetString("REDIS_PASSWORD"),
		RedisDB:                v.GetInt("REDIS_DB"),
		LedgerMaxAttempts:      v.GetInt("LEDGER_MAX_ATTEMPTS"),
		SingleAccountPerOwner:  v.GetBool("SINGLE_ACCOUNT_PER_OWNER"),
		CrossServiceTransfers:  strings.ToLower(v.GetString("CROSS_SERVICE_TRANSFERS")),
		RateLimit:              v.GetString("RATE_LIMIT"),
		CORSAllowedOrigins:     splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		LogLevel:               v.GetString("LOG_LEVEL"),
	}

	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set. Using the in-memory store.")
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
		log.Printf("Warning: PORT environment variable not set. Defaulting to %s\n", cfg.Port)
	}

	for _, raw := range splitList(v.GetString("OWNED_COLLECTIONS")) {
		c, err := parseCollection(raw)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(cfg.OwnedCollections, c) {
			cfg.OwnedCollections = append(cfg.OwnedCollections, c)
		}
	}

	durations := []struct {
		key    string
		target *time.Duration
	}{
		{"UPSTREAM_TIMEOUT", &cfg.UpstreamTimeout},
		{"UPSTREAM_BASE_DELAY", &cfg.UpstreamBaseDelay},
		{"REPLICA_MAX_STALENESS", &cfg.ReplicaMaxStaleness},
		{"SYNC_INTERVAL", &cfg.SyncInterval},
		{"LEDGER_LOCK_TIMEOUT", &cfg.LedgerLockTimeout},
	}
	for _, d := range durations {
		raw := v.GetString(d.key)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s (%q): %w", d.key, raw, err)
		}
		*d.target = parsed
	}

	return cfg, nil
}

// Validate rejects ownership and policy combinations the service cannot run with.
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("SERVICE_NAME must not be empty")
	}
	if c.Owns(domain.CollectionClients) {
		return fmt.Errorf("OWNED_COLLECTIONS: clients are owned by the identity provider")
	}
	if c.Owns(domain.CollectionPayments) && !c.Owns(domain.CollectionAccounts) {
		return fmt.Errorf("OWNED_COLLECTIONS: the service owning payments must also own accounts")
	}
	for _, col := range []domain.Collection{domain.CollectionAccounts, domain.CollectionPayments, domain.CollectionCreditCards} {
		if !c.Owns(col) && c.UpstreamURL(col) == "" {
			return fmt.Errorf("collection %s is neither owned nor has an upstream URL", col)
		}
	}

	switch c.IdentityMode {
	case IdentityModeRemote:
		if c.IdentityURL == "" {
			return fmt.Errorf("IDENTITY_URL is required when IDENTITY_MODE=%s", IdentityModeRemote)
		}
	case IdentityModeJWT:
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required when IDENTITY_MODE=%s", IdentityModeJWT)
		}
	default:
		return fmt.Errorf("unknown IDENTITY_MODE %q", c.IdentityMode)
	}

	switch c.CrossServiceTransfers {
	case CrossServiceReject, CrossServiceSaga:
	default:
		return fmt.Errorf("unknown CROSS_SERVICE_TRANSFERS %q", c.CrossServiceTransfers)
	}

	if c.UpstreamMaxAttempts < 1 || c.LedgerMaxAttempts < 1 {
		return fmt.Errorf("UPSTREAM_MAX_ATTEMPTS and LEDGER_MAX_ATTEMPTS must be at least 1")
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("UPSTREAM_TIMEOUT must be positive")
	}
	if c.ReplicaMaxStaleness < 0 || c.SyncInterval < 0 {
		return fmt.Errorf("REPLICA_MAX_STALENESS and SYNC_INTERVAL must not be negative")
	}
	return nil
}

// Owns reports whether this service is authoritative for a collection.
func (c *Config) Owns(col domain.Collection) bool {
	return slices.Contains(c.OwnedCollections, col)
}

// UpstreamURL returns the configured base URL for a collection's owner.
// Clients come from the identity provider.
func (c *Config) UpstreamURL(col domain.Collection) string {
	switch col {
	case domain.CollectionClients:
		return c.IdentityURL
	case domain.CollectionAccounts:
		return c.UpstreamAccountsURL
	case domain.CollectionPayments:
		return c.UpstreamPaymentsURL
	case domain.CollectionCreditCards:
		return c.UpstreamCreditCardsURL
	default:
		return ""
	}
}

func parseCollection(raw string) (domain.Collection, error) {
	c := domain.Collection(strings.ToLower(raw))
	if !slices.Contains(domain.SyncOrder, c) {
		return "", fmt.Errorf("OWNED_COLLECTIONS: unknown collection %q", raw)
	}
	return c, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
