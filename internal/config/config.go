package config // package config loads application configuration from environment variables

import (
    "errors"
    "fmt"
    "os"
    "strings"
    "time"
)

// Store drivers accepted in STORE_DRIVER.
const (
    DriverMySQL    = "mysql"
    DriverPostgres = "postgres"
    DriverJSONFile = "jsonfile"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable; defaults apply when a variable is unset.
type Config struct {
    Env  string // APP_ENV: dev, test, prod
    Port string // APP_PORT

    StoreDriver string   // STORE_DRIVER: mysql | postgres | jsonfile
    DB          DBConfig // DB_* for mysql
    DatabaseURL string   // DATABASE_URL for postgres
    DataFile    string   // DATA_FILE for jsonfile

    JWTSecret         string        // JWT_SECRET, required
    JWTIssuer         string        // JWT_ISSUER
    TokenTTL          time.Duration // TOKEN_TTL
    BcryptCost        int           // BCRYPT_COST
    PasswordMinLength int           // PASSWORD_MIN_LENGTH

    WebRoot      string   // WEB_ROOT; pages are not served when empty
    CORSOrigins  []string // CORS_ALLOWED_ORIGINS, comma separated
    CookieSecure bool     // COOKIE_SECURE

    EventsEnabled bool   // EVENTS_ENABLED
    AMQPURL       string // RABBITMQ_URL, falling back to AMQP_URL
    EventLogDir   string // EVENT_LOG_DIR

    AdminEmail    string // ADMIN_EMAIL
    AdminPassword string // ADMIN_PASSWORD

    RateLimit RateLimitConfig
    Redis     RedisConfig
}

// DBConfig is the MySQL connection tuple.
type DBConfig struct {
    User string
    Pass string
    Host string
    Port string
    Name string
}

// IsDev reports whether the app runs in a development environment.
func (c Config) IsDev() bool {
    return c.Env == "" || c.Env == "dev" || c.Env == "development"
}

// Load reads the environment.  Unlike a fatal exit it returns every problem
// it found joined into one error, so commands and tests can report them.
func Load() (Config, error) {
    cfg := Config{
        Env:  envStr("APP_ENV", "dev"),
        Port: envStr("APP_PORT", "8080"),

        StoreDriver: strings.ToLower(envStr("STORE_DRIVER", DriverMySQL)),
        DB: DBConfig{
            User: envStr("DB_USER", "root"),
            Pass: os.Getenv("DB_PASS"),
            Host: envStr("DB_HOST", "127.0.0.1"),
            Port: envStr("DB_PORT", "3306"),
            Name: envStr("DB_NAME", "home_services"),
        },
        DatabaseURL: os.Getenv("DATABASE_URL"),
        DataFile:    envStr("DATA_FILE", "data/db.json"),

        JWTSecret:         os.Getenv("JWT_SECRET"),
        JWTIssuer:         envStr("JWT_ISSUER", "home-services"),
        TokenTTL:          envDur("TOKEN_TTL", 7*24*time.Hour),
        BcryptCost:        envInt("BCRYPT_COST", 10),
        PasswordMinLength: envInt("PASSWORD_MIN_LENGTH", 8),

        WebRoot:      os.Getenv("WEB_ROOT"),
        CORSOrigins:  splitList(envStr("CORS_ALLOWED_ORIGINS", "*")),
        CookieSecure: envBool("COOKIE_SECURE", false),

        EventsEnabled: envBool("EVENTS_ENABLED", false),
        AMQPURL:       envStr("RABBITMQ_URL", os.Getenv("AMQP_URL")),
        EventLogDir:   envStr("EVENT_LOG_DIR", "logs"),

        AdminEmail:    os.Getenv("ADMIN_EMAIL"),
        AdminPassword: os.Getenv("ADMIN_PASSWORD"),

        RateLimit: LoadRateLimitConfig(),
        Redis:     LoadRedisConfig(),
    }
    return cfg, cfg.validate()
}

func (c Config) validate() error {
    var errs []error
    if c.JWTSecret == "" {
        errs = append(errs, errors.New("missing required env var: JWT_SECRET"))
    }
    switch c.StoreDriver {
    case DriverMySQL, DriverJSONFile:
    case DriverPostgres:
        if c.DatabaseURL == "" {
            errs = append(errs, errors.New("missing required env var: DATABASE_URL (STORE_DRIVER=postgres)"))
        }
    default:
        errs = append(errs, fmt.Errorf("invalid STORE_DRIVER %q", c.StoreDriver))
    }
    if c.TokenTTL <= 0 {
        errs = append(errs, fmt.Errorf("invalid TOKEN_TTL %s", c.TokenTTL))
    }
    if c.PasswordMinLength < 1 {
        errs = append(errs, fmt.Errorf("invalid PASSWORD_MIN_LENGTH %d", c.PasswordMinLength))
    }
    return errors.Join(errs...)
}

func splitList(s string) []string {
    var out []string
    for _, p := range strings.Split(s, ",") {
        if p = strings.TrimSpace(p); p != "" {
            out = append(out, p)
        }
    }
    return out
}
