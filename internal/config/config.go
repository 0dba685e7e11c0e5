// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// MinBookingHold is the shortest hold window accepted.  Shorter windows would
// reap bookings whose checkout is still in progress.
const MinBookingHold = 5 * time.Minute

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable named in its envconfig tag.
type Config struct {
	Env  string `envconfig:"APP_ENV" default:"dev"`
	Port string `envconfig:"APP_PORT" default:"8080"`

	DBUser string `envconfig:"DB_USER" required:"true"`
	DBPass string `envconfig:"DB_PASS"`
	DBHost string `envconfig:"DB_HOST" required:"true"`
	DBPort string `envconfig:"DB_PORT" default:"3306"`
	DBName string `envconfig:"DB_NAME" required:"true"`

	// PublicSiteURL is the origin used for checkout success/cancel URLs
	// and unsubscribe links.
	PublicSiteURL string `envconfig:"PUBLIC_SITE_URL" default:"http://localhost:5173"`
	VenueTimezone string `envconfig:"VENUE_TIMEZONE" default:"Europe/Stockholm"`

	// Exactly one of these should be set.  The hash form is a bcrypt digest.
	AdminAccessCode     string `envconfig:"ADMIN_ACCESS_CODE"`
	AdminAccessCodeHash string `envconfig:"ADMIN_ACCESS_CODE_HASH"`

	BookingHold      time.Duration `envconfig:"BOOKING_HOLD" default:"30m"`
	PendingRetention time.Duration `envconfig:"BOOKING_PENDING_RETENTION" default:"72h"`
	SweepInterval    time.Duration `envconfig:"BOOKING_SWEEP_INTERVAL" default:"1h"`
	HorizonMonths    int           `envconfig:"BOOKING_HORIZON_MONTHS" default:"3"`

	StripeSecretKey  string `envconfig:"STRIPE_SECRET_KEY"`
	CheckoutCurrency string `envconfig:"CHECKOUT_CURRENCY" default:"sek"`

	LaunchCode            string `envconfig:"LAUNCH_CODE" default:"READYPIXELLAUNCH25"`
	LaunchCodeExpiry      string `envconfig:"LAUNCH_CODE_EXPIRY" default:"2026-01-22"`
	LaunchDiscountPercent int    `envconfig:"LAUNCH_DISCOUNT_PERCENT" default:"10"`
	LaunchMaxCodes        int    `envconfig:"LAUNCH_MAX_CODES" default:"100"`

	UnsubscribeSecret string `envconfig:"UNSUBSCRIBE_SECRET"`

	SMTPHost  string `envconfig:"SMTP_HOST"`
	SMTPPort  int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUser  string `envconfig:"SMTP_USER"`
	SMTPPass  string `envconfig:"SMTP_PASS"`
	MailFrom  string `envconfig:"MAIL_FROM" default:"ReadyPixelGo <bookings@readypixelgo.se>"`
	HostEmail string `envconfig:"HOST_EMAIL"`

	// AMQPURL enables queued confirmation mails when set.
	AMQPURL string `envconfig:"AMQP_URL"`
}

// Load reads configuration from the environment and validates it.  Missing
// required variables or invalid values cause the program to exit with a
// fatal log message.
func Load() Config {
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := c.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}
	return c
}

// Validate checks values envconfig cannot express as tags.
func (c Config) Validate() error {
	if c.AdminAccessCode == "" && c.AdminAccessCodeHash == "" {
		return fmt.Errorf("one of ADMIN_ACCESS_CODE or ADMIN_ACCESS_CODE_HASH is required")
	}
	if c.BookingHold < MinBookingHold {
		return fmt.Errorf("BOOKING_HOLD must be at least %s, got %s", MinBookingHold, c.BookingHold)
	}
	if c.PendingRetention < c.BookingHold {
		return fmt.Errorf("BOOKING_PENDING_RETENTION (%s) must not be shorter than BOOKING_HOLD (%s)", c.PendingRetention, c.BookingHold)
	}
	if c.HorizonMonths < 1 {
		return fmt.Errorf("BOOKING_HORIZON_MONTHS must be positive")
	}
	if c.LaunchDiscountPercent < 0 || c.LaunchDiscountPercent > 100 {
		return fmt.Errorf("LAUNCH_DISCOUNT_PERCENT must be within 0..100")
	}
	if _, err := time.Parse("2006-01-02", c.LaunchCodeExpiry); err != nil {
		return fmt.Errorf("LAUNCH_CODE_EXPIRY: %w", err)
	}
	if _, err := time.LoadLocation(c.VenueTimezone); err != nil {
		return fmt.Errorf("VENUE_TIMEZONE: %w", err)
	}
	return nil
}

// Location returns the venue time zone.  Validate has already checked it.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.VenueTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LaunchExpiry returns the last calendar day the launch code is accepted.
func (c Config) LaunchExpiry() time.Time {
	t, _ := time.ParseInLocation("2006-01-02", c.LaunchCodeExpiry, c.Location())
	return t
}

// DSN builds the MySQL data source name.  parseTime is required so DATETIME
// columns scan into time.Time.
func (c Config) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&loc=UTC&charset=utf8mb4",
		c.DBUser, c.DBPass, c.DBHost, c.DBPort, c.DBName)
}

// IsProduction reports whether APP_ENV selects production behaviour.
func (c Config) IsProduction() bool { return c.Env == "prod" || c.Env == "production" }

// Secrets reports which provider secrets are configured.  Values are never
// exposed, only their presence.
func (c Config) Secrets() map[string]bool {
	return map[string]bool{
		"stripe":      c.StripeSecretKey != "",
		"smtp":        c.SMTPHost != "",
		"host_email":  c.HostEmail != "",
		"admin_code":  c.AdminAccessCode != "" || c.AdminAccessCodeHash != "",
		"unsubscribe": c.UnsubscribeSecret != "",
		"amqp":        c.AMQPURL != "",
		"public_site": c.PublicSiteURL != "",
	}
}
