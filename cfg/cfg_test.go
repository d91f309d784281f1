package cfg

import (
	"strings"
	"testing"
	"time"
)

func validCfg() *Cfg {
	return &Cfg{
		APIBaseURL:      "https://paste.example.com",
		Environment:     "development",
		LogLevel:        "info",
		RequestTimeout:  15 * time.Second,
		LedgerPath:      "/tmp/ledger.db",
		CacheSize:       128,
		SearchRPS:       5,
		SearchBurst:     10,
		PageSize:        20,
		WelcomeDocument: "readme",
	}
}

func TestValidate_OK(t *testing.T) {
	if err := Validate(validCfg()); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestValidate_BaseURL(t *testing.T) {
	for _, bad := range []string{"", "ftp://x", "not a url at all://", "http://"} {
		c := validCfg()
		c.APIBaseURL = bad
		if err := Validate(c); err == nil {
			t.Errorf("APIBaseURL=%q accepted", bad)
		}
	}
}

func TestValidate_Redis(t *testing.T) {
	c := validCfg()
	c.RedisURL = "rediss://host:6379"
	c.RedisTLS = false
	err := Validate(c)
	if err == nil || !strings.Contains(err.Error(), "REDIS_TLS") {
		t.Errorf("rediss without TLS accepted: %v", err)
	}
	c.RedisTLS = true
	if err := Validate(c); err != nil {
		t.Errorf("rediss with TLS rejected: %v", err)
	}
}

func TestValidate_Bounds(t *testing.T) {
	c := validCfg()
	c.RequestTimeout = 100 * time.Millisecond
	if err := Validate(c); err == nil {
		t.Error("sub-second timeout accepted")
	}
	c = validCfg()
	c.CacheSize = 0
	if err := Validate(c); err == nil {
		t.Error("zero cache size accepted")
	}
	c = validCfg()
	c.PageSize = 500
	if err := Validate(c); err == nil {
		t.Error("oversized page accepted")
	}
}

func TestLoad_Defaults(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.APIBaseURL == "" || c.WelcomeDocument == "" || c.LedgerPath == "" {
		t.Errorf("missing defaults: %+v", c)
	}
}

func TestSecretRedaction(t *testing.T) {
	s := NewSecret("hunter2")
	if s.String() != "***REDACTED***" {
		t.Errorf("secret leaked through String: %q", s.String())
	}
	if s.Value() != "hunter2" {
		t.Errorf("secret value mangled: %q", s.Value())
	}
	s.Wipe()
	if strings.Contains(s.Value(), "hunter2") {
		t.Error("wipe left secret bytes intact")
	}
}
