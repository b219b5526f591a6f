package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	Env         string `env:"ENV" envDefault:"development"`
	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`

	JWTSecret        string        `env:"JWT_SECRET,required,notEmpty"`
	JWTAccessExpiry  time.Duration `env:"JWT_ACCESS_EXPIRY" envDefault:"15m"`
	JWTRefreshExpiry time.Duration `env:"JWT_REFRESH_EXPIRY" envDefault:"720h"`

	FrontendCallbackURL string `env:"FRONTEND_CALLBACK_URL" envDefault:"http://localhost:3000/auth/callback"`
	BaseURL             string `env:"BASE_URL" envDefault:"http://localhost:8080"`
	LoginURL            string `env:"LOGIN_URL" envDefault:"http://localhost:3000/login"`

	// AdminEmails receive the admin role on their first OAuth sign-in.
	AdminEmails []string `env:"ADMIN_EMAILS" envSeparator:","`

	// DemoUsers is the credential registry, given as a JSON list. When unset
	// outside production the built-in demo accounts are used.
	DemoUsers DemoRegistry `env:"DEMO_USERS"`

	LoginRateLimit  int           `env:"LOGIN_RATE_LIMIT" envDefault:"10"`
	LoginRatePeriod time.Duration `env:"LOGIN_RATE_PERIOD" envDefault:"1m"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE"`

	GitHub OAuthConfig `envPrefix:"GITHUB_"`
	Google OAuthConfig `envPrefix:"GOOGLE_"`

	Storage StorageConfig `envPrefix:"STORAGE_"`
	SMTP    SMTPConfig    `envPrefix:"SMTP_"`
}

type OAuthConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL"`
}

// StorageConfig selects the media backend. Type is "minio" or "local".
type StorageConfig struct {
	Type      string `env:"TYPE" envDefault:"local"`
	LocalPath string `env:"LOCAL_PATH" envDefault:"uploads"`
	PublicURL string `env:"PUBLIC_URL"`
	Endpoint  string `env:"ENDPOINT"`
	AccessKey string `env:"ACCESS_KEY"`
	SecretKey string `env:"SECRET_KEY"`
	Bucket    string `env:"BUCKET" envDefault:"lectern"`
	UseSSL    bool   `env:"USE_SSL"`
}

type SMTPConfig struct {
	Host     string `env:"HOST"`
	Port     string `env:"PORT" envDefault:"587"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
	From     string `env:"FROM"`
}

// DemoUser is one entry of the fixed credential registry.
type DemoUser struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

// DemoRegistry is an immutable list of permitted credentials.
type DemoRegistry []DemoUser

var defaultDemoUsers = DemoRegistry{
	{Email: "admin@demo.com", Password: "admin123", Name: "Demo Admin", Role: "admin"},
	{Email: "teacher@demo.com", Password: "teacher123", Name: "Demo Teacher", Role: "teacher"},
	{Email: "student@demo.com", Password: "student123", Name: "Demo Student", Role: "student"},
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.AdminEmails = trimList(cfg.AdminEmails)

	if cfg.DemoUsers == nil && !cfg.IsProduction() {
		cfg.DemoUsers = make(DemoRegistry, len(defaultDemoUsers))
		copy(cfg.DemoUsers, defaultDemoUsers)
	}

	return &cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// UnmarshalText decodes and validates the JSON form of the registry.
func (r *DemoRegistry) UnmarshalText(text []byte) error {
	// A plain slice, so json does not recurse into this method.
	users := []DemoUser{}
	if strings.TrimSpace(string(text)) != "" {
		if err := json.Unmarshal(text, &users); err != nil {
			return fmt.Errorf("parse DEMO_USERS: %w", err)
		}
	}

	seen := make(map[string]struct{}, len(users))
	for i, u := range users {
		if u.Email == "" || u.Password == "" {
			return fmt.Errorf("DEMO_USERS[%d]: email and password are required", i)
		}
		switch u.Role {
		case "admin", "teacher", "student":
		default:
			return fmt.Errorf("DEMO_USERS[%d]: unknown role %q", i, u.Role)
		}
		if _, dup := seen[u.Email]; dup {
			return errors.New("DEMO_USERS: duplicate email " + u.Email)
		}
		seen[u.Email] = struct{}{}
	}

	*r = DemoRegistry(users)
	return nil
}

func trimList(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
