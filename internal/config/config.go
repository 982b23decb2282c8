package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Helpdesk     HelpdeskConfig
	SMTP         SMTPConfig
	Mailbox      MailboxConfig
	Ingest       IngestConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values. An empty DSN selects the in-memory store.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
	BootstrapName         string
	BootstrapEmail        string
	BootstrapPassword     string
}

// HelpdeskConfig tunes the ticket workflow and ingestion matching.
type HelpdeskConfig struct {
	Kinds             []string
	Timezone          string
	ValidateAddresses bool
	MatchBySubject    bool
	ReplyPrefixesFile string
	FallbackSubject   string
}

// SMTPServer describes one outgoing mail server.
type SMTPServer struct {
	Host     string
	Port     int
	User     string
	Password string
	AuthType string // plain, login or none
	TLSMode  string // smtps, starttls or none
	From     string
}

// SMTPConfig holds the default server plus per-kind overrides.
type SMTPConfig struct {
	Default *SMTPServer
	Kinds   map[string]SMTPServer
}

// MailboxConfig points the ingestion job at an IMAP folder.
type MailboxConfig struct {
	Host              string
	Port              int
	TLS               bool
	User              string
	Password          string
	Folder            string
	DeleteAfterFetch  bool
	Kind              string
	FileAttachments   bool
	FetchLimit        int
	DialTimeoutSecond int
}

// IngestConfig controls scheduled ingestion.
type IngestConfig struct {
	Enabled       bool
	Schedule      string
	LockTTLSecond int
}

// NotificationConfig controls event fan-out.
type NotificationConfig struct {
	RedisChannel string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	smtpCfg, err := loadSMTP()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "helpdesk-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
			BootstrapName:         getEnv("AUTH_BOOTSTRAP_NAME", "Administrator"),
			BootstrapEmail:        os.Getenv("AUTH_BOOTSTRAP_EMAIL"),
			BootstrapPassword:     os.Getenv("AUTH_BOOTSTRAP_PASSWORD"),
		},
		Helpdesk: HelpdeskConfig{
			Kinds:             getEnvAsList("HELPDESK_KINDS", []string{"generic"}),
			Timezone:          getEnv("HELPDESK_TIMEZONE", "UTC"),
			ValidateAddresses: getEnvAsBool("HELPDESK_VALIDATE_ADDRESSES", true),
			MatchBySubject:    getEnvAsBool("HELPDESK_MATCH_BY_SUBJECT", true),
			ReplyPrefixesFile: os.Getenv("HELPDESK_REPLY_PREFIXES_FILE"),
			FallbackSubject:   getEnv("HELPDESK_FALLBACK_SUBJECT", "No subject"),
		},
		SMTP: smtpCfg,
		Mailbox: MailboxConfig{
			Host:              os.Getenv("MAILBOX_HOST"),
			Port:              getEnvAsInt("MAILBOX_PORT", 993),
			TLS:               getEnvAsBool("MAILBOX_TLS", true),
			User:              os.Getenv("MAILBOX_USER"),
			Password:          os.Getenv("MAILBOX_PASSWORD"),
			Folder:            getEnv("MAILBOX_FOLDER", "INBOX"),
			DeleteAfterFetch:  getEnvAsBool("MAILBOX_DELETE_AFTER_FETCH", false),
			Kind:              getEnv("MAILBOX_KIND", "generic"),
			FileAttachments:   getEnvAsBool("MAILBOX_FILE_ATTACHMENTS", true),
			FetchLimit:        getEnvAsInt("MAILBOX_FETCH_LIMIT", 50),
			DialTimeoutSecond: getEnvAsInt("MAILBOX_DIAL_TIMEOUT_SECONDS", 30),
		},
		Ingest: IngestConfig{
			Enabled:       getEnvAsBool("INGEST_ENABLED", false),
			Schedule:      getEnv("INGEST_SCHEDULE", "*/5 * * * *"),
			LockTTLSecond: getEnvAsInt("INGEST_LOCK_TTL_SECONDS", 300),
		},
		Notification: NotificationConfig{
			RedisChannel: getEnv("NOTIFY_REDIS_CHANNEL", "helpdesk.events"),
		},
	}

	if cfg.Mailbox.Configured() && !cfg.Helpdesk.KnownKind(cfg.Mailbox.Kind) {
		return nil, fmt.Errorf("MAILBOX_KIND %q is not listed in HELPDESK_KINDS", cfg.Mailbox.Kind)
	}
	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Location resolves the configured timezone, falling back to UTC.
func (h HelpdeskConfig) Location() *time.Location {
	if h.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(h.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// KnownKind reports whether kind is one of the configured ticket kinds.
func (h HelpdeskConfig) KnownKind(kind string) bool {
	for _, k := range h.Kinds {
		if strings.EqualFold(k, kind) {
			return true
		}
	}
	return false
}

// Configured reports whether a mailbox host and user are set.
func (m MailboxConfig) Configured() bool {
	return m.Host != "" && m.User != ""
}

// Addr returns host:port for the IMAP dial.
func (m MailboxConfig) Addr() string {
	return fmt.Sprintf("%s:%d", m.Host, m.Port)
}

// DialTimeout returns the IMAP dial timeout.
func (m MailboxConfig) DialTimeout() time.Duration {
	return time.Duration(m.DialTimeoutSecond) * time.Second
}

// LockTTL returns how long an ingestion run may hold the lock.
func (i IngestConfig) LockTTL() time.Duration {
	return time.Duration(i.LockTTLSecond) * time.Second
}

// ServerFor returns the outgoing server for a ticket kind.
func (s SMTPConfig) ServerFor(kind string) (SMTPServer, bool) {
	if server, ok := s.Kinds[strings.ToLower(kind)]; ok {
		return server, true
	}
	if s.Default != nil {
		return *s.Default, true
	}
	return SMTPServer{}, false
}

// Addr returns host:port for the SMTP dial.
func (s SMTPServer) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func loadSMTP() (SMTPConfig, error) {
	cfg := SMTPConfig{Kinds: map[string]SMTPServer{}}
	if server, ok := smtpServerFromEnv("SMTP_"); ok {
		cfg.Default = &server
	}
	for _, kind := range getEnvAsList("HELPDESK_KINDS", []string{"generic"}) {
		prefix := "SMTP_" + strings.ToUpper(kind) + "_"
		server, ok := smtpServerFromEnv(prefix)
		if !ok {
			continue
		}
		if server.From == "" {
			return cfg, fmt.Errorf("%sFROM is required", prefix)
		}
		cfg.Kinds[strings.ToLower(kind)] = server
	}
	if cfg.Default != nil && cfg.Default.From == "" {
		return cfg, fmt.Errorf("SMTP_FROM is required when SMTP_HOST is set")
	}
	return cfg, nil
}

func smtpServerFromEnv(prefix string) (SMTPServer, bool) {
	host := os.Getenv(prefix + "HOST")
	if host == "" {
		return SMTPServer{}, false
	}
	return SMTPServer{
		Host:     host,
		Port:     getEnvAsInt(prefix+"PORT", 587),
		User:     os.Getenv(prefix + "USER"),
		Password: os.Getenv(prefix + "PASSWORD"),
		AuthType: strings.ToLower(getEnv(prefix+"AUTH", "plain")),
		TLSMode:  strings.ToLower(getEnv(prefix+"TLS", "starttls")),
		From:     os.Getenv(prefix + "FROM"),
	}, true
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
