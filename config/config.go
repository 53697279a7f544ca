package config

import (
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultSlotLabels is the half-hour grid used when a shop does not configure its own.
var DefaultSlotLabels = []string{
	"09:00", "09:30", "10:00", "10:30", "11:00", "11:30",
	"12:00", "12:30", "13:00", "13:30", "14:00", "14:30",
	"15:00", "15:30", "16:00", "16:30", "17:00", "17:30",
	"18:00", "18:30",
}

type Config struct {
	Env               string
	Port              string
	MongoURI          string
	MongoDB           string
	RedisAddr         string
	JwtSecret         []byte
	PassSecret        []byte
	SlotRetention     time.Duration
	SlotLabels        []string
	CustomerMayCancel bool
	BookingRatePerMin int
	SubscriberBuffer  int
	MutationTimeout   time.Duration
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found; using system environment")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function so tests need not touch the process env.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		Env:               orDefault(getenv("APP_ENV"), "prod"),
		Port:              normalizePort(getenv("PORT")),
		MongoURI:          getenv("MONGO_URI"),
		MongoDB:           orDefault(getenv("MONGO_DB"), "salonq"),
		RedisAddr:         getenv("REDIS_ADDR"),
		SlotRetention:     48 * time.Hour,
		SlotLabels:        DefaultSlotLabels,
		BookingRatePerMin: 30,
		SubscriberBuffer:  64,
		MutationTimeout:   10 * time.Second,
	}

	secret := getenv("JWT_SECRET")
	if secret == "" {
		if cfg.Env != "dev" {
			return nil, fmt.Errorf("JWT_SECRET is required outside APP_ENV=dev")
		}
		secret = "dev-secret"
	}
	cfg.JwtSecret = []byte(secret)
	if v := getenv("PASS_SECRET"); v != "" {
		cfg.PassSecret = []byte(v)
	} else {
		cfg.PassSecret = derivePassSecret(cfg.JwtSecret)
	}

	var err error
	if v := getenv("SLOT_RETENTION"); v != "" {
		if cfg.SlotRetention, err = time.ParseDuration(v); err != nil {
			return nil, fmt.Errorf("SLOT_RETENTION: %w", err)
		}
	}
	if v := getenv("MUTATION_TIMEOUT"); v != "" {
		if cfg.MutationTimeout, err = time.ParseDuration(v); err != nil {
			return nil, fmt.Errorf("MUTATION_TIMEOUT: %w", err)
		}
	}
	if v := getenv("SLOT_LABELS"); v != "" {
		cfg.SlotLabels = splitLabels(v)
		if len(cfg.SlotLabels) == 0 {
			return nil, fmt.Errorf("SLOT_LABELS: no labels in %q", v)
		}
	}
	if v := getenv("CUSTOMER_MAY_CANCEL"); v != "" {
		if cfg.CustomerMayCancel, err = strconv.ParseBool(v); err != nil {
			return nil, fmt.Errorf("CUSTOMER_MAY_CANCEL: %w", err)
		}
	}
	if cfg.BookingRatePerMin, err = positiveInt(getenv, "BOOKING_RATE_PER_MIN", cfg.BookingRatePerMin); err != nil {
		return nil, err
	}
	if cfg.SubscriberBuffer, err = positiveInt(getenv, "SUBSCRIBER_BUFFER", cfg.SubscriberBuffer); err != nil {
		return nil, err
	}
	return cfg, nil
}

// derivePassSecret keys check-in passes apart from session tokens when no
// PASS_SECRET is configured.
func derivePassSecret(jwtSecret []byte) []byte {
	mac := hmac.New(sha256.New, jwtSecret)
	mac.Write([]byte("salonq check-in pass"))
	return mac.Sum(nil)
}

func positiveInt(getenv func(string) string, key string, def int) (int, error) {
	v := getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s: want a positive integer, got %q", key, v)
	}
	return n, nil
}

func normalizePort(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] != ':' {
		return ":" + port
	}
	return port
}

func splitLabels(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
