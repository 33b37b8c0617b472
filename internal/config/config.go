package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the gateway reads from the environment.
type Config struct {
	Port           string
	AllowedOrigins []string

	UpstreamTimeout time.Duration

	// Optional: when set, rate-limit counters live in Redis instead of
	// process memory so multiple instances share one view.
	RedisAddr string

	// Optional: path to the sqlite request log. Empty disables logging
	// to disk.
	RequestLogDB string

	OpenAIAPIKey string
	OpenAIModel  string

	WeatherAPIKey      string
	TicketmasterAPIKey string

	AmadeusAPIKey     string
	AmadeusAPISecret  string
	AmadeusTokenCache bool

	ExchangeRateAPIKey string
}

const defaultUpstreamTimeout = 15 * time.Second

// Load reads configuration from the process environment. A .env file in the
// working directory is merged in first if present.
func Load() (*Config, error) {
	// Best effort: a missing .env just means everything comes from the
	// real environment.
	_ = godotenv.Load()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	timeout := defaultUpstreamTimeout
	if raw := os.Getenv("UPSTREAM_TIMEOUT"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid UPSTREAM_TIMEOUT %q: %w", raw, err)
		}
		if d <= 0 {
			return nil, fmt.Errorf("UPSTREAM_TIMEOUT must be positive, got %q", raw)
		}
		timeout = d
	}

	cfg := &Config{
		Port:               port,
		AllowedOrigins:     splitList(os.Getenv("ALLOWED_ORIGINS")),
		UpstreamTimeout:    timeout,
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		RequestLogDB:       os.Getenv("REQUEST_LOG_DB"),
		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:        os.Getenv("OPENAI_MODEL"),
		WeatherAPIKey:      os.Getenv("WEATHER_API_KEY"),
		TicketmasterAPIKey: os.Getenv("TICKETMASTER_API_KEY"),
		AmadeusAPIKey:      os.Getenv("AMADEUS_API_KEY"),
		AmadeusAPISecret:   os.Getenv("AMADEUS_API_SECRET"),
		AmadeusTokenCache:  os.Getenv("AMADEUS_TOKEN_CACHE") == "1",
		ExchangeRateAPIKey: os.Getenv("EXCHANGERATE_API_KEY"),
	}

	if cfg.OpenAIModel == "" {
		cfg.OpenAIModel = "gpt-4o-mini"
	}

	var missing []string
	for _, req := range []struct {
		name, value string
	}{
		{"OPENAI_API_KEY", cfg.OpenAIAPIKey},
		{"WEATHER_API_KEY", cfg.WeatherAPIKey},
		{"TICKETMASTER_API_KEY", cfg.TicketmasterAPIKey},
		{"AMADEUS_API_KEY", cfg.AmadeusAPIKey},
		{"AMADEUS_API_SECRET", cfg.AmadeusAPISecret},
		{"EXCHANGERATE_API_KEY", cfg.ExchangeRateAPIKey},
	} {
		if req.value == "" {
			missing = append(missing, req.name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	return cfg, nil
}

// RouteLimit returns the limiter override for a route, if one is set.
// Overrides are read from RATE_LIMIT_<ROUTE> (e.g. RATE_LIMIT_WEATHER) in
// "<max>/<window>" form, e.g. "100/1m" or "50/24h".
func RouteLimit(route string) (max int, window time.Duration, ok bool, err error) {
	name := "RATE_LIMIT_" + strings.ToUpper(strings.Trim(route, "/"))
	raw := os.Getenv(name)
	if raw == "" {
		return 0, 0, false, nil
	}

	parts := strings.SplitN(raw, "/", 2)
	if len(parts) != 2 {
		return 0, 0, false, fmt.Errorf("invalid %s %q: expected <max>/<window>", name, raw)
	}
	max, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || max <= 0 {
		return 0, 0, false, fmt.Errorf("invalid %s %q: max must be a positive integer", name, raw)
	}
	window, err = time.ParseDuration(strings.TrimSpace(parts[1]))
	if err != nil || window <= 0 {
		return 0, 0, false, fmt.Errorf("invalid %s %q: bad window duration", name, raw)
	}
	return max, window, true, nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
