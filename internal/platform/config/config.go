// Package config reads the process configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr         string
	WriteTimeout time.Duration
	LogLevel     string
	// Workers above 1 enables parallel batch dispatch.
	Workers int
}

// VIES configures the upstream transport.
type VIES struct {
	Endpoint    string
	Timeout     time.Duration
	MaxAttempts int
	BaseBackoff time.Duration
	Operation   string
	// ReemitDuplicates repeats a row for every duplicate position instead of
	// only the first.
	ReemitDuplicates bool
}

// Credit holds the metering parameters.
type Credit struct {
	CostPerCheck  decimal.Decimal
	InitialCredit decimal.Decimal
	LockTTL       time.Duration
	LockWait      time.Duration
}

// RedisConfig enables the distributed account lock when URL is set.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Postgres enables the durable credit store and audit outbox when DSN is set.
type Postgres struct {
	DSN          string
	MaxOpenConns int
}

// Kafka enables audit publishing when Brokers is non-empty.
type Kafka struct {
	Brokers        []string
	Topic          string
	RelayInterval  time.Duration
	RelayBatchSize int
}

// Auth holds token and operator secrets.
type Auth struct {
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string
	AdminToken    string
}

// Config is the full process configuration. It is not modified after FromEnv
// returns.
type Config struct {
	Server   Server
	VIES     VIES
	Credit   Credit
	Redis    RedisConfig
	Postgres Postgres
	Kafka    Kafka
	Auth     Auth
}

const devSigningKey = "dev-secret-key-change-in-production"

// maxVIESAttempts matches vies.MaxAttempts.
const maxVIESAttempts = 16

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	return fromLookup(os.LookupEnv)
}

func fromLookup(lookup func(string) (string, bool)) (Config, error) {
	e := env{lookup: lookup}
	cfg := Config{
		Server: Server{
			Addr:         e.strVal("VATGATE_ADDR", ":8080"),
			WriteTimeout: e.durationVal("VATGATE_WRITE_TIMEOUT", 30*time.Minute),
			LogLevel:     e.strVal("VATGATE_LOG_LEVEL", "info"),
			Workers:      e.intVal("VATGATE_WORKERS", 1),
		},
		VIES: VIES{
			Endpoint:         e.strVal("VIES_ENDPOINT", "https://ec.europa.eu/taxation_customs/vies/services/checkVatService"),
			Timeout:          e.durationVal("VIES_TIMEOUT", 120*time.Second),
			MaxAttempts:      e.intVal("VIES_MAX_ATTEMPTS", 6),
			BaseBackoff:      e.durationVal("VIES_BASE_BACKOFF", time.Second),
			Operation:        e.strVal("VIES_OPERATION", "checkVat"),
			ReemitDuplicates: e.boolVal("VIES_REEMIT_DUPLICATES", false),
		},
		Credit: Credit{
			CostPerCheck:  e.decimalVal("CREDIT_COST_PER_CHECK", "0.05"),
			InitialCredit: e.decimalVal("CREDIT_INITIAL", "10.00"),
			LockTTL:       e.durationVal("CREDIT_LOCK_TTL", 30*time.Second),
			LockWait:      e.durationVal("CREDIT_LOCK_WAIT", 5*time.Second),
		},
		Redis: RedisConfig{
			URL:          e.strVal("REDIS_URL", ""),
			PoolSize:     e.intVal("REDIS_POOL_SIZE", 10),
			MinIdleConns: e.intVal("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  e.durationVal("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  e.durationVal("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: e.durationVal("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Postgres: Postgres{
			DSN:          e.strVal("DATABASE_URL", ""),
			MaxOpenConns: e.intVal("DATABASE_MAX_OPEN_CONNS", 10),
		},
		Kafka: Kafka{
			Brokers:        e.listVal("KAFKA_BROKERS"),
			Topic:          e.strVal("KAFKA_AUDIT_TOPIC", "vatgate.audit"),
			RelayInterval:  e.durationVal("KAFKA_RELAY_INTERVAL", time.Second),
			RelayBatchSize: e.intVal("KAFKA_RELAY_BATCH_SIZE", 100),
		},
		Auth: Auth{
			JWTSigningKey: e.strVal("JWT_SIGNING_KEY", devSigningKey),
			JWTIssuer:     e.strVal("JWT_ISSUER", "vatgate"),
			JWTAudience:   e.strVal("JWT_AUDIENCE", "vatgate-api"),
			AdminToken:    e.strVal("ADMIN_API_TOKEN", ""),
		},
	}
	if len(e.errs) > 0 {
		return Config{}, fmt.Errorf("invalid configuration: %s", strings.Join(e.errs, "; "))
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if !c.Credit.CostPerCheck.IsPositive() {
		return fmt.Errorf("invalid configuration: CREDIT_COST_PER_CHECK must be positive")
	}
	if c.Credit.InitialCredit.IsNegative() {
		return fmt.Errorf("invalid configuration: CREDIT_INITIAL cannot be negative")
	}
	if c.VIES.MaxAttempts < 1 || c.VIES.MaxAttempts > maxVIESAttempts {
		return fmt.Errorf("invalid configuration: VIES_MAX_ATTEMPTS must be between 1 and %d", maxVIESAttempts)
	}
	return nil
}

// UsesDevSigningKey reports whether tokens are signed with the built-in
// development key.
func (c Config) UsesDevSigningKey() bool {
	return c.Auth.JWTSigningKey == devSigningKey
}

// env collects parse errors so every bad variable is reported at once.
type env struct {
	lookup func(string) (string, bool)
	errs   []string
}

func (e *env) raw(key string) (string, bool) {
	v, ok := e.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (e *env) strVal(key, def string) string {
	if v, ok := e.raw(key); ok {
		return v
	}
	return def
}

func (e *env) intVal(key string, def int) int {
	v, ok := e.raw(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Sprintf("%s: %v", key, err))
		return def
	}
	return n
}

func (e *env) boolVal(key string, def bool) bool {
	v, ok := e.raw(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Sprintf("%s: %v", key, err))
		return def
	}
	return b
}

func (e *env) durationVal(key string, def time.Duration) time.Duration {
	v, ok := e.raw(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Sprintf("%s: %v", key, err))
		return def
	}
	return d
}

func (e *env) decimalVal(key, def string) decimal.Decimal {
	v, ok := e.raw(key)
	if !ok {
		v = def
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Sprintf("%s: %v", key, err))
		return decimal.RequireFromString(def)
	}
	return d
}

func (e *env) listVal(key string) []string {
	v, ok := e.raw(key)
	if !ok {
		return nil
	}
	var out []string
	for part := range strings.SplitSeq(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
