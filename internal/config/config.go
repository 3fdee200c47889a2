package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds our configuration taken from the environment
type Config struct {
	AppEnv   string `envconfig:"APP_ENV" default:"development"`
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8000"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	JWTSecret        string        `envconfig:"JWT_SECRET" required:"true"`
	JWTRefreshSecret string        `envconfig:"JWT_REFRESH_SECRET" required:"true"`
	AccessTokenTTL   time.Duration `envconfig:"ACCESS_TOKEN_TTL" default:"15m"`
	RefreshTokenTTL  time.Duration `envconfig:"REFRESH_TOKEN_TTL" default:"168h"`
	CookieSecure     bool          `envconfig:"COOKIE_SECURE" default:"false"`

	// first admin, created at startup when the email is not registered yet
	AdminName     string `envconfig:"ADMIN_NAME" default:"Administrator"`
	AdminEmail    string `envconfig:"ADMIN_EMAIL"`
	AdminPassword string `envconfig:"ADMIN_PASSWORD"`

	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`

	AuthRateLimitRPS   float64 `envconfig:"AUTH_RATE_LIMIT_RPS" default:"5"`
	AuthRateLimitBurst int     `envconfig:"AUTH_RATE_LIMIT_BURST" default:"10"`

	AllocationFallbackWeight float64 `envconfig:"ALLOCATION_FALLBACK_WEIGHT" default:"100"`

	// embedded so envconfig keeps the full variable names
	R2Config
	EmailConfig
	SMTPConfig
	WhatsAppConfig
	CompanyConfig

	PDFConverterURL string `envconfig:"PDF_CONVERTER_URL"`
}

// CompanyConfig is printed in the header of every document.
type CompanyConfig struct {
	Name    string `envconfig:"COMPANY_NAME" default:"Caterly"`
	Address string `envconfig:"COMPANY_ADDRESS"`
	Phone   string `envconfig:"COMPANY_PHONE"`
	Email   string `envconfig:"COMPANY_EMAIL"`
}

// R2Config is optional: documents are not uploaded when Endpoint is empty.
type R2Config struct {
	Endpoint      string `envconfig:"R2_ENDPOINT"`
	AccessKey     string `envconfig:"R2_ACCESS_KEY"`
	SecretKey     string `envconfig:"R2_SECRET_KEY"`
	Bucket        string `envconfig:"R2_BUCKET_NAME"`
	PublicBaseURL string `envconfig:"R2_PUBLIC_BASE_URL"`
}

func (c R2Config) Enabled() bool {
	return c.Endpoint != "" && c.Bucket != ""
}

type EmailConfig struct {
	APIURL string `envconfig:"EMAIL_API_URL" default:"https://api.resend.com/emails"`
	APIKey string `envconfig:"EMAIL_API_KEY"`
	From   string `envconfig:"EMAIL_FROM"`
}

type SMTPConfig struct {
	Host     string `envconfig:"SMTP_HOST"`
	Port     int    `envconfig:"SMTP_PORT" default:"587"`
	Username string `envconfig:"SMTP_USERNAME"`
	Password string `envconfig:"SMTP_PASSWORD"`
	From     string `envconfig:"SMTP_FROM"`
}

type WhatsAppConfig struct {
	APIURL        string `envconfig:"WHATSAPP_API_URL" default:"https://graph.facebook.com/v19.0"`
	PhoneNumberID string `envconfig:"WHATSAPP_PHONE_NUMBER_ID"`
	AccessToken   string `envconfig:"WHATSAPP_ACCESS_TOKEN"`
}

func (c Config) Production() bool {
	return c.AppEnv == "production"
}

// Load reads .env outside production and binds the environment onto Config.
func Load() (*Config, error) {
	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load()
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
