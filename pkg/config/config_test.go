package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func envFrom(m map[string]string) envSource {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func validEnv() map[string]string {
	return map[string]string{
		"ADMIN_API_KEY": "abcdefghijklmnop",
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(envFrom(validEnv()))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Host != "0.0.0.0" || cfg.Port != 8000 {
		t.Errorf("unexpected bind address: %s:%d", cfg.Host, cfg.Port)
	}
	if cfg.HealthCheckInterval != 60*time.Second {
		t.Errorf("unexpected health check interval: %v", cfg.HealthCheckInterval)
	}
	if cfg.MaxConsecutiveFailures != 3 {
		t.Errorf("unexpected max consecutive failures: %d", cfg.MaxConsecutiveFailures)
	}
	if cfg.MaxRetryAttempts != 2 {
		t.Errorf("unexpected max retry attempts: %d", cfg.MaxRetryAttempts)
	}
	if cfg.MaxRequestBodySize != 1048576 {
		t.Errorf("unexpected max request body size: %d", cfg.MaxRequestBodySize)
	}
	if !cfg.AutoDeregisterAfterFailures {
		t.Error("expected auto deregister to default true")
	}
}

func TestLoadMissingAdminKey(t *testing.T) {
	_, err := load(envFrom(map[string]string{}))
	if err == nil {
		t.Fatal("expected error for missing ADMIN_API_KEY")
	}
}

func TestLoadShortAdminKey(t *testing.T) {
	_, err := load(envFrom(map[string]string{"ADMIN_API_KEY": "short"}))
	if err == nil {
		t.Fatal("expected error for short ADMIN_API_KEY")
	}
}

func TestLoadHealthCheckIntervalBelowMinimum(t *testing.T) {
	env := validEnv()
	env["HEALTH_CHECK_INTERVAL_SECONDS"] = "5"
	_, err := load(envFrom(env))
	if err == nil {
		t.Fatal("expected error for interval below 10s minimum")
	}
}

func TestLoadOverrides(t *testing.T) {
	env := validEnv()
	env["PORT"] = "9001"
	env["MAX_RETRY_ATTEMPTS"] = "4"
	env["AUTO_DEREGISTER_AFTER_FAILURES"] = "false"
	cfg, err := load(envFrom(env))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 9001 {
		t.Errorf("expected port override, got %d", cfg.Port)
	}
	if cfg.MaxRetryAttempts != 4 {
		t.Errorf("expected retry override, got %d", cfg.MaxRetryAttempts)
	}
	if cfg.AutoDeregisterAfterFailures {
		t.Error("expected auto deregister override to false")
	}
	if cfg.Addr() != "0.0.0.0:9001" {
		t.Errorf("unexpected Addr(): %s", cfg.Addr())
	}
}

func TestSingleton(t *testing.T) {
	defer reset()
	cfg, err := load(envFrom(validEnv()))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	Initialize(cfg)
	if Get() != cfg {
		t.Error("Get did not return the initialized config")
	}
}

func TestLoadFromConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gateway.yaml")
	content := "ADMIN_API_KEY: filebackedadminkey123\nPORT: \"9100\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("CONFIG_FILE", path)
	os.Unsetenv("ADMIN_API_KEY")
	os.Unsetenv("PORT")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AdminAPIKey != "filebackedadminkey123" {
		t.Errorf("AdminAPIKey = %q, want value from CONFIG_FILE", cfg.AdminAPIKey)
	}
	if cfg.Port != 9100 {
		t.Errorf("Port = %d, want 9100 from CONFIG_FILE", cfg.Port)
	}
}

func TestLoadConfigFileEnvWins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gateway.yaml")
	if err := os.WriteFile(path, []byte("PORT: \"9100\"\n"), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("ADMIN_API_KEY", "envbackedadminkey456")
	t.Setenv("PORT", "9200")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 9200 {
		t.Errorf("Port = %d, want env value 9200 to win over CONFIG_FILE", cfg.Port)
	}
}

func TestGetBeforeInitializePanics(t *testing.T) {
	defer reset()
	defer func() {
		if recover() == nil {
			t.Error("expected panic when Get called before Initialize")
		}
	}()
	Get()
}
