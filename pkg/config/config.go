package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Removal policies for courses dropped outside the active semester.
const (
	RemovalPolicyDiscard = "discard"
	RemovalPolicyHold    = "hold"
)

// Import submission modes.
const (
	ImportModePerRow = "per_row"
	ImportModeBatch  = "batch"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Registrar    RegistrarConfig
	Redis        RedisConfig
	Session      SessionConfig
	CORS         CORSConfig
	Log          LogConfig
	Registration RegistrationConfig
	Import       ImportConfig
	Cache        CacheConfig
	Institution  InstitutionConfig
	Rollbar      RollbarConfig
	CLI          CLIConfig
}

// RegistrarConfig points the gateway at the remote system of record.
type RegistrarConfig struct {
	BaseURL    string
	Timeout    time.Duration
	AuthScheme string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	// Namespace prefixes every key the portal writes.
	Namespace string
}

// SessionConfig governs the gateway session tokens.
type SessionConfig struct {
	Secret string
	TTL    time.Duration
	Issuer string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// RegistrationConfig holds the enrollment rules the ledger enforces locally.
type RegistrationConfig struct {
	CreditCeiling int
	SemesterCount int
	RemovalPolicy string
}

// ImportConfig controls spreadsheet imports.
type ImportConfig struct {
	Mode        string
	MaxFileSize int64
	Workers     int
	JobTTL      time.Duration
}

// CacheConfig controls the per-user read-through cache of registrar lists.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// InstitutionConfig feeds the header of printed student sheets.
type InstitutionConfig struct {
	Name     string
	Subtitle string
	Address  string
	Contact  string
}

// RollbarConfig enables error reporting when a token is present.
type RollbarConfig struct {
	Token string
}

// CLIConfig configures cbcsctl.
type CLIConfig struct {
	TokenFile string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Registrar = RegistrarConfig{
		BaseURL:    strings.TrimRight(v.GetString("REGISTRAR_BASE_URL"), "/"),
		Timeout:    parseDuration(v.GetString("REGISTRAR_TIMEOUT"), 10*time.Second),
		AuthScheme: v.GetString("REGISTRAR_AUTH_SCHEME"),
	}

	cfg.Redis = RedisConfig{
		Host:      v.GetString("REDIS_HOST"),
		Port:      v.GetInt("REDIS_PORT"),
		Password:  v.GetString("REDIS_PASSWORD"),
		DB:        v.GetInt("REDIS_DB"),
		Namespace: strings.Trim(v.GetString("REDIS_NAMESPACE"), ": "),
	}

	cfg.Session = SessionConfig{
		Secret: v.GetString("SESSION_SECRET"),
		TTL:    parseDuration(v.GetString("SESSION_TTL"), 8*time.Hour),
		Issuer: v.GetString("SESSION_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Registration = RegistrationConfig{
		CreditCeiling: v.GetInt("CREDIT_CEILING"),
		SemesterCount: v.GetInt("SEMESTER_COUNT"),
		RemovalPolicy: strings.ToLower(v.GetString("REMOVAL_POLICY")),
	}
	if cfg.Registration.CreditCeiling <= 0 {
		cfg.Registration.CreditCeiling = 30
	}
	if cfg.Registration.SemesterCount <= 0 {
		cfg.Registration.SemesterCount = 8
	}
	if cfg.Registration.RemovalPolicy != RemovalPolicyHold {
		cfg.Registration.RemovalPolicy = RemovalPolicyDiscard
	}

	maxImportSize := v.GetInt64("IMPORT_MAX_FILE_SIZE")
	if maxImportSize <= 0 {
		maxImportSize = 5 * 1024 * 1024
	}
	cfg.Import = ImportConfig{
		Mode:        strings.ToLower(v.GetString("IMPORT_MODE")),
		MaxFileSize: maxImportSize,
		Workers:     v.GetInt("IMPORT_WORKERS"),
		JobTTL:      parseDuration(v.GetString("IMPORT_JOB_TTL"), 24*time.Hour),
	}
	if cfg.Import.Mode != ImportModeBatch {
		cfg.Import.Mode = ImportModePerRow
	}

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("CACHE_ENABLED"),
		TTL:     parseDuration(v.GetString("CACHE_TTL"), 2*time.Minute),
	}

	cfg.Institution = InstitutionConfig{
		Name:     v.GetString("INSTITUTION_NAME"),
		Subtitle: v.GetString("INSTITUTION_SUBTITLE"),
		Address:  v.GetString("INSTITUTION_ADDRESS"),
		Contact:  v.GetString("INSTITUTION_CONTACT"),
	}

	cfg.Rollbar = RollbarConfig{Token: v.GetString("ROLLBAR_TOKEN")}
	cfg.CLI = CLIConfig{TokenFile: v.GetString("CLI_TOKEN_FILE")}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("REGISTRAR_BASE_URL", "http://127.0.0.1:8000")
	v.SetDefault("REGISTRAR_TIMEOUT", "10s")
	v.SetDefault("REGISTRAR_AUTH_SCHEME", "Token")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_NAMESPACE", "cbcs")

	v.SetDefault("SESSION_SECRET", "dev_session_secret")
	v.SetDefault("SESSION_TTL", "8h")
	v.SetDefault("SESSION_ISSUER", "cbcs-portal")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("CREDIT_CEILING", 30)
	v.SetDefault("SEMESTER_COUNT", 8)
	v.SetDefault("REMOVAL_POLICY", RemovalPolicyDiscard)

	v.SetDefault("IMPORT_MODE", ImportModePerRow)
	v.SetDefault("IMPORT_MAX_FILE_SIZE", 5*1024*1024)
	v.SetDefault("IMPORT_WORKERS", 1)
	v.SetDefault("IMPORT_JOB_TTL", "24h")

	v.SetDefault("CACHE_ENABLED", true)
	v.SetDefault("CACHE_TTL", "2m")

	v.SetDefault("INSTITUTION_NAME", "Faculty of Engineering")
	v.SetDefault("INSTITUTION_SUBTITLE", "Choice Based Credit System")
	v.SetDefault("INSTITUTION_ADDRESS", "")
	v.SetDefault("INSTITUTION_CONTACT", "")

	v.SetDefault("ROLLBAR_TOKEN", "")
	v.SetDefault("CLI_TOKEN_FILE", ".cbcs_token")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
