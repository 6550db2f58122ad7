package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const minSecretLength = 32

// Config is built once at startup and passed by pointer to the components that need it.
// Nothing mutates it after Load returns.
type Config struct {
	Env      string
	Port     string
	LogLevel string

	WebhookSecret  string
	TrackingSecret string
	DatabaseURL    string

	OpenAIKey     string
	OpenAIModel   string
	OpenAIBaseURL string

	SMTP       SMTPConfig
	AdminEmail string

	DocuSealAPIKey        string
	DocuSealWebhookSecret string
	TurnstileSecret       string

	SupabaseURL        string
	SupabaseServiceKey string

	APIBaseURL       string
	WebsiteURL       string
	DashboardURL     string
	ClickRedirectURL string

	HotLeadThreshold int
	HotOpenThreshold int

	AMQPURL                string
	ReportSchedulerEnabled bool

	Tunables Tunables
}

type SMTPConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	FromEmail string
	FromName  string
}

// Tunables holds non-secret settings that may be overridden by the CONFIG_FILE YAML overlay.
type Tunables struct {
	CORSOrigins            []string `yaml:"cors_origins"`
	DuplicateWindowMinutes int      `yaml:"duplicate_window_minutes"`
	Timezone               string   `yaml:"timezone"`
	Company                Company  `yaml:"company"`
	Pricing                Pricing  `yaml:"pricing"`
}

type Company struct {
	Name        string `yaml:"name"`
	Address     string `yaml:"address"`
	Phone       string `yaml:"phone"`
	Email       string `yaml:"email"`
	Siret       string `yaml:"siret"`
	TVAIntracom string `yaml:"tva_intracom"`
	RGE         string `yaml:"rge"`
}

// Pricing drives quote line generation when no custom lines are given.
type Pricing struct {
	MainOeuvreRatio  float64 `yaml:"main_oeuvre_ratio"`
	MateriauxRatio   float64 `yaml:"materiaux_ratio"`
	EchafaudageRatio float64 `yaml:"echafaudage_ratio"`
	EvacuationRatio  float64 `yaml:"evacuation_ratio"`
	DefaultSurface   float64 `yaml:"default_surface"`

	FallbackTravauxM2    float64 `yaml:"fallback_travaux_m2"`
	FallbackMainOeuvreM2 float64 `yaml:"fallback_main_oeuvre_m2"`
	FallbackEchafaudage  float64 `yaml:"fallback_echafaudage"`
	FallbackEvacuation   float64 `yaml:"fallback_evacuation"`
}

func DefaultTunables() Tunables {
	return Tunables{
		CORSOrigins: []string{
			"https://toitureai.fr",
			"https://www.toitureai.fr",
			"https://dashboard.toitureai.fr",
		},
		DuplicateWindowMinutes: 10,
		Timezone:               "Europe/Paris",
		Company: Company{
			Name:        "ToitureAI SAS",
			Address:     "123 Rue des Couvreurs, 57000 Metz",
			Phone:       "06 44 99 32 31",
			Email:       "contact@toitureai.fr",
			Siret:       "123 456 789 00012",
			TVAIntracom: "FR12345678900",
			RGE:         "2024-R-057-001",
		},
		Pricing: Pricing{
			MainOeuvreRatio:      0.40,
			MateriauxRatio:       0.35,
			EchafaudageRatio:     0.15,
			EvacuationRatio:      0.10,
			DefaultSurface:       100,
			FallbackTravauxM2:    80,
			FallbackMainOeuvreM2: 40,
			FallbackEchafaudage:  800,
			FallbackEvacuation:   400,
		},
	}
}

// Load reads .env (when present), the environment and the optional YAML overlay,
// then validates the result. Every problem is reported at once.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getenv("APP_ENV", "development"),
		Port:     getenv("API_PORT", "8000"),
		LogLevel: getenv("LOG_LEVEL", "INFO"),

		WebhookSecret:  os.Getenv("WEBHOOK_SECRET"),
		TrackingSecret: os.Getenv("TRACKING_SECRET"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),

		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:   getenv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL: getenv("OPENAI_BASE_URL", "https://api.openai.com/v1"),

		SMTP: SMTPConfig{
			Host:      getenv("SMTP_HOST", "smtp.sendgrid.net"),
			User:      getenv("SMTP_USER", "apikey"),
			Password:  os.Getenv("SENDGRID_API_KEY"),
			FromEmail: getenv("SENDGRID_FROM_EMAIL", "contact@toitureai.fr"),
			FromName:  getenv("SENDGRID_FROM_NAME", "ToitureAI"),
		},
		AdminEmail: getenv("ADMIN_EMAIL", "contact@toitureai.fr"),

		DocuSealAPIKey:        os.Getenv("DOCUSEAL_API_KEY"),
		DocuSealWebhookSecret: os.Getenv("DOCUSEAL_WEBHOOK_SECRET"),
		TurnstileSecret:       os.Getenv("TURNSTILE_SECRET_KEY"),

		SupabaseURL:        os.Getenv("SUPABASE_URL"),
		SupabaseServiceKey: os.Getenv("SUPABASE_SERVICE_KEY"),

		APIBaseURL:       strings.TrimRight(getenv("API_BASE_URL", "http://localhost:8000"), "/"),
		WebsiteURL:       getenv("WEBSITE_URL", "https://toitureai.fr"),
		DashboardURL:     getenv("DASHBOARD_URL", "https://dashboard.toitureai.fr"),
		ClickRedirectURL: os.Getenv("TRACKING_CLICK_REDIRECT_URL"),

		AMQPURL: os.Getenv("AMQP_URL"),

		Tunables: DefaultTunables(),
	}

	var problems []error

	var err error
	if cfg.SMTP.Port, err = getenvInt("SMTP_PORT", 587); err != nil {
		problems = append(problems, err)
	}
	if cfg.HotLeadThreshold, err = getenvInt("HOT_LEAD_THRESHOLD", 70); err != nil {
		problems = append(problems, err)
	}
	if cfg.HotOpenThreshold, err = getenvInt("HOT_OPEN_THRESHOLD", 3); err != nil {
		problems = append(problems, err)
	}
	if cfg.ReportSchedulerEnabled, err = getenvBool("REPORT_SCHEDULER_ENABLED", true); err != nil {
		problems = append(problems, err)
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadOverlay(path); err != nil {
			problems = append(problems, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		problems = append(problems, err)
	}
	if len(problems) > 0 {
		return nil, errors.Join(problems...)
	}
	return cfg, nil
}

func (c *Config) loadOverlay(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &c.Tunables); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// Validate checks that required secrets are present and values are sane.
func (c *Config) Validate() error {
	var problems []error

	if len(c.WebhookSecret) < minSecretLength {
		problems = append(problems, fmt.Errorf("WEBHOOK_SECRET must be at least %d characters", minSecretLength))
	}
	if len(c.TrackingSecret) < minSecretLength {
		problems = append(problems, fmt.Errorf("TRACKING_SECRET must be at least %d characters", minSecretLength))
	}
	if c.DatabaseURL == "" {
		problems = append(problems, errors.New("DATABASE_URL is required"))
	}
	if c.OpenAIKey == "" {
		problems = append(problems, errors.New("OPENAI_API_KEY is required"))
	}
	if c.SMTP.Password == "" {
		problems = append(problems, errors.New("SENDGRID_API_KEY is required"))
	}
	if c.HotLeadThreshold < 0 || c.HotLeadThreshold > 100 {
		problems = append(problems, errors.New("HOT_LEAD_THRESHOLD must be between 0 and 100"))
	}
	if c.HotOpenThreshold < 1 {
		problems = append(problems, errors.New("HOT_OPEN_THRESHOLD must be >= 1"))
	}
	switch c.Env {
	case "development", "production", "test":
	default:
		problems = append(problems, fmt.Errorf("APP_ENV %q must be development, production or test", c.Env))
	}

	p := c.Tunables.Pricing
	if sum := p.MainOeuvreRatio + p.MateriauxRatio + p.EchafaudageRatio + p.EvacuationRatio; sum < 0.999 || sum > 1.001 {
		problems = append(problems, fmt.Errorf("pricing ratios must sum to 1 (got %.3f)", sum))
	}
	if p.DefaultSurface <= 0 {
		problems = append(problems, errors.New("pricing.default_surface must be > 0"))
	}
	if c.Tunables.DuplicateWindowMinutes < 0 {
		problems = append(problems, errors.New("duplicate_window_minutes must be >= 0"))
	}

	return errors.Join(problems...)
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// AllowedOrigins is the CORS allow-list: the configured origins in production, anything otherwise.
func (c *Config) AllowedOrigins() []string {
	if c.IsProduction() {
		return c.Tunables.CORSOrigins
	}
	return []string{"*"}
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func getenvBool(key string, fallback bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback, fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	return b, nil
}
