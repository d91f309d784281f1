package cfg

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

type Secret struct {
	value []byte
}

func NewSecret(s string) Secret {
	return Secret{value: []byte(s)}
}
func (s Secret) Value() string {
	return string(s.value)
}
func (s Secret) Wipe() {
	for i := range s.value {
		s.value[i] = 0
	}
}
func (s Secret) String() string {
	return "***REDACTED***"
}

type Cfg struct {
	APIBaseURL      string
	Environment     string
	LogLevel        string
	RequestTimeout  time.Duration
	LedgerPath      string
	RedisURL        string
	RedisTLS        bool
	RedisUsername   string
	RedisPassword   Secret
	RedisTimeout    time.Duration
	CacheSize       int
	SearchRPS       int
	SearchBurst     int
	PageSize        int
	WelcomeDocument string
}

func Load() (*Cfg, error) {
	c := &Cfg{}
	c.APIBaseURL = getEnv("OXYPASTE_API_URL", "http://localhost:8080")
	c.Environment = getEnv("ENVIRONMENT", "development")
	c.LogLevel = getEnv("LOG_LEVEL", "info")
	var err error
	c.RequestTimeout, err = getDuration("REQUEST_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}
	c.LedgerPath = getEnv("LEDGER_PATH", "")
	if c.LedgerPath == "" {
		c.LedgerPath, err = defaultLedgerPath()
		if err != nil {
			return nil, err
		}
	}
	c.RedisURL = getEnv("REDIS_URL", "")
	c.RedisTLS = getEnv("REDIS_TLS", "false") == "true"
	c.RedisUsername = getEnv("REDIS_USERNAME", "")
	c.RedisPassword = NewSecret(getEnv("REDIS_PASSWORD", ""))
	c.RedisTimeout, err = getDuration("REDIS_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}
	c.CacheSize, err = getInt("CACHE_SIZE", 128)
	if err != nil {
		return nil, err
	}
	c.SearchRPS, err = getInt("SEARCH_RPS", 5)
	if err != nil {
		return nil, err
	}
	c.SearchBurst, err = getInt("SEARCH_BURST", 10)
	if err != nil {
		return nil, err
	}
	c.PageSize, err = getInt("PAGE_SIZE", 20)
	if err != nil {
		return nil, err
	}
	c.WelcomeDocument = getEnv("WELCOME_DOCUMENT", "readme")
	return c, nil
}

func Validate(c *Cfg) error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil {
		return fmt.Errorf("invalid OXYPASTE_API_URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errors.New("OXYPASTE_API_URL must be http or https")
	}
	if u.Host == "" {
		return errors.New("OXYPASTE_API_URL must include a host")
	}
	if c.LedgerPath == "" {
		return errors.New("LEDGER_PATH is required")
	}
	if c.RedisURL != "" {
		if !strings.HasPrefix(c.RedisURL, "redis://") && !strings.HasPrefix(c.RedisURL, "rediss://") {
			return errors.New("REDIS_URL must start with redis:// or rediss://")
		}
		if strings.HasPrefix(c.RedisURL, "rediss://") && !c.RedisTLS {
			return errors.New("REDIS_URL uses rediss:// but REDIS_TLS=false")
		}
	}
	if c.RequestTimeout < 1*time.Second {
		return errors.New("REQUEST_TIMEOUT must be at least 1s")
	}
	if c.RequestTimeout > 5*time.Minute {
		return errors.New("REQUEST_TIMEOUT cannot exceed 5 minutes")
	}
	if c.CacheSize <= 0 {
		return errors.New("CACHE_SIZE must be positive")
	}
	if c.CacheSize > 100000 {
		return errors.New("CACHE_SIZE too large")
	}
	if c.SearchRPS <= 0 || c.SearchBurst <= 0 {
		return errors.New("SEARCH_RPS and SEARCH_BURST must be positive")
	}
	if c.PageSize <= 0 || c.PageSize > 200 {
		return errors.New("PAGE_SIZE must be between 1 and 200")
	}
	if c.WelcomeDocument == "" {
		return errors.New("WELCOME_DOCUMENT is required")
	}
	return nil
}

func (c *Cfg) Wipe() {
	c.RedisPassword.Wipe()
}

func defaultLedgerPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "resolve home directory")
	}
	return filepath.Join(home, ".local", "share", "oxypaste", "ledger.db"), nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}
func getInt(key string, fallback int) (int, error) {
	s := getEnv(key, "")
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid integer for %s: %w", key, err)
	}
	return v, nil
}
func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	s := getEnv(key, "")
	if s == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return v, nil
}
