package config

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/ttbw/rangliste/internal/platform/logging"
)

// Config stores runtime configuration for the CLI.
type Config struct {
	AppEnv                  string
	ServiceName             string
	ServiceVersion          string
	LogLevel                logging.Level
	DBDriver                string
	DBURL                   string
	DBDisablePreparedBinary bool
	DBAutoMigrate           bool
	RulesFile               string
	ReportDir               string
	CSVDelimiter            rune
	RosterEncoding          string
	RosterFederation        string
	MatchWorkers            int
	CacheEnabled            bool
	CacheTTL                time.Duration
	UptraceEnabled          bool
	UptraceDSN              string
}

type rawConfig struct {
	AppEnv                  string        `env:"APP_ENV" envDefault:"dev"`
	ServiceName             string        `env:"APP_SERVICE_NAME" envDefault:"rangliste"`
	ServiceVersion          string        `env:"APP_SERVICE_VERSION" envDefault:"dev"`
	LogLevel                string        `env:"APP_LOG_LEVEL" envDefault:"info"`
	DBDriver                string        `env:"DB_DRIVER" envDefault:"sqlite"`
	DBURL                   string        `env:"DB_URL"`
	DBDisablePreparedBinary bool          `env:"DB_DISABLE_PREPARED_BINARY_RESULT" envDefault:"false"`
	DBAutoMigrate           bool          `env:"DB_AUTO_MIGRATE" envDefault:"true"`
	RulesFile               string        `env:"RULES_FILE"`
	ReportDir               string        `env:"REPORT_DIR" envDefault:"reports"`
	CSVDelimiter            string        `env:"CSV_DELIMITER" envDefault:";"`
	RosterEncoding          string        `env:"ROSTER_ENCODING" envDefault:"latin1"`
	RosterFederation        string        `env:"ROSTER_FEDERATION"`
	MatchWorkers            int           `env:"MATCH_WORKERS" envDefault:"0"`
	CacheEnabled            bool          `env:"CACHE_ENABLED" envDefault:"true"`
	CacheTTL                time.Duration `env:"CACHE_TTL" envDefault:"5m"`
	UptraceEnabled          bool          `env:"UPTRACE_ENABLED" envDefault:"false"`
	UptraceDSN              string        `env:"UPTRACE_DSN"`
	OTLPHeaders             string        `env:"OTEL_EXPORTER_OTLP_HEADERS"`
}

const (
	defaultSQLitePath = "rangliste.db"
	defaultReportDir  = "reports"
)

// LoadDotEnv loads the first existing .env file of paths into the process
// environment. Variables already set win.
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err == nil {
			return
		}
	}
}

func Load() (Config, error) {
	var raw rawConfig
	if err := env.Parse(&raw); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	appEnv, err := parseAppEnv(raw.AppEnv)
	if err != nil {
		return Config{}, err
	}

	driver, err := parseDBDriver(raw.DBDriver)
	if err != nil {
		return Config{}, err
	}
	dbURL := strings.TrimSpace(raw.DBURL)
	if dbURL == "" {
		if driver == DriverPostgres {
			return Config{}, fmt.Errorf("DB_URL is required when DB_DRIVER=%s", DriverPostgres)
		}
		dbURL = defaultSQLitePath
	}

	delimiter, err := parseDelimiter(raw.CSVDelimiter)
	if err != nil {
		return Config{}, err
	}

	if raw.MatchWorkers < 0 {
		return Config{}, fmt.Errorf("MATCH_WORKERS must be >= 0")
	}
	if raw.CacheEnabled && raw.CacheTTL <= 0 {
		return Config{}, fmt.Errorf("CACHE_TTL must be > 0 when CACHE_ENABLED=true")
	}

	uptraceDSN := strings.TrimSpace(raw.UptraceDSN)
	if uptraceDSN == "" {
		uptraceDSN = parseUptraceDSNFromOTLPHeaders(raw.OTLPHeaders)
	}
	if raw.UptraceEnabled && uptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}

	reportDir := strings.TrimSpace(raw.ReportDir)
	if reportDir == "" {
		reportDir = defaultReportDir
	}

	return Config{
		AppEnv:                  appEnv,
		ServiceName:             strings.TrimSpace(raw.ServiceName),
		ServiceVersion:          strings.TrimSpace(raw.ServiceVersion),
		LogLevel:                parseLogLevel(raw.LogLevel),
		DBDriver:                driver,
		DBURL:                   dbURL,
		DBDisablePreparedBinary: raw.DBDisablePreparedBinary,
		DBAutoMigrate:           raw.DBAutoMigrate,
		RulesFile:               strings.TrimSpace(raw.RulesFile),
		ReportDir:               reportDir,
		CSVDelimiter:            delimiter,
		RosterEncoding:          strings.TrimSpace(raw.RosterEncoding),
		RosterFederation:        strings.TrimSpace(raw.RosterFederation),
		MatchWorkers:            raw.MatchWorkers,
		CacheEnabled:            raw.CacheEnabled,
		CacheTTL:                raw.CacheTTL,
		UptraceEnabled:          raw.UptraceEnabled,
		UptraceDSN:              uptraceDSN,
	}, nil
}

func parseLogLevel(v string) logging.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return logging.LevelDebug
	case "warn", "warning":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

func parseDBDriver(v string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "postgres", "postgresql":
		return DriverPostgres, nil
	case "", "sqlite", "sqlite3":
		return DriverSQLite, nil
	default:
		return "", fmt.Errorf("invalid DB_DRIVER %q: valid values are %s, %s", v, DriverPostgres, DriverSQLite)
	}
}

func parseDelimiter(v string) (rune, error) {
	switch strings.ToLower(v) {
	case "":
		return ';', nil
	case "tab", `\t`:
		return '\t', nil
	}
	if utf8.RuneCountInString(v) != 1 {
		return 0, fmt.Errorf("CSV_DELIMITER must be a single character, got %q", v)
	}
	r, _ := utf8.DecodeRuneInString(v)
	if r == '"' || r == '\n' || r == '\r' {
		return 0, fmt.Errorf("CSV_DELIMITER %q is not allowed", v)
	}
	return r, nil
}

func parseUptraceDSNFromOTLPHeaders(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	items := strings.Split(raw, ",")
	for _, item := range items {
		parts := strings.SplitN(strings.TrimSpace(item), "=", 2)
		if len(parts) != 2 {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(parts[0]), "uptrace-dsn") {
			value := strings.TrimSpace(parts[1])
			return strings.Trim(value, "\"'")
		}
	}

	return ""
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}
