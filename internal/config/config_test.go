package config

import (
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackzampolin/tablescan/internal/profile"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configFile, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return configFile
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.AWS.Bucket != "${TABLESCAN_BUCKET}" {
		t.Errorf("expected bucket placeholder, got %s", cfg.AWS.Bucket)
	}
	if cfg.Defaults.Profile != profile.BankStatementName {
		t.Errorf("expected default profile %s, got %s", profile.BankStatementName, cfg.Defaults.Profile)
	}
	if cfg.Textract.MaxResults != 1000 {
		t.Errorf("expected 1000 max results, got %d", cfg.Textract.MaxResults)
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Run("resolves environment variable", func(t *testing.T) {
		t.Setenv("TEST_BUCKET", "statements")

		result := ResolveEnvVars("${TEST_BUCKET}")
		if result != "statements" {
			t.Errorf("expected statements, got %s", result)
		}
	})

	t.Run("returns empty for missing env var", func(t *testing.T) {
		result := ResolveEnvVars("${DEFINITELY_NOT_SET_12345}")
		if result != "" {
			t.Errorf("expected empty string, got %s", result)
		}
	})

	t.Run("leaves literal values unchanged", func(t *testing.T) {
		result := ResolveEnvVars("literal-value")
		if result != "literal-value" {
			t.Errorf("expected literal-value, got %s", result)
		}
	})

	t.Run("expands inside text", func(t *testing.T) {
		t.Setenv("TEST_ACCOUNT", "123456789012")
		result := ResolveEnvVars("arn:aws:iam::${TEST_ACCOUNT}:role/Textract")
		if result != "arn:aws:iam::123456789012:role/Textract" {
			t.Errorf("unexpected %s", result)
		}
	})
}

func TestConfig_ResolvedAWS(t *testing.T) {
	t.Setenv("TEST_BUCKET_NAME", "my-bucket")
	cfg := &Config{AWS: AWSCfg{Region: "us-east-1", Bucket: "${TEST_BUCKET_NAME}"}}

	aws := cfg.ResolvedAWS()
	if aws.Bucket != "my-bucket" {
		t.Errorf("expected my-bucket, got %s", aws.Bucket)
	}
	if aws.Region != "us-east-1" {
		t.Errorf("expected us-east-1, got %s", aws.Region)
	}
	if cfg.AWS.Bucket != "${TEST_BUCKET_NAME}" {
		t.Error("ResolvedAWS must not modify the config")
	}
}

func TestNewManager(t *testing.T) {
	t.Run("loads from config file", func(t *testing.T) {
		configFile := writeConfig(t, `
aws:
  region: us-west-2
  bucket: statements
textract:
  mode: detection
`)
		mgr, err := NewManager(configFile)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}

		cfg := mgr.Get()
		if cfg.AWS.Region != "us-west-2" {
			t.Errorf("expected us-west-2, got %s", cfg.AWS.Region)
		}
		if cfg.Textract.Mode != "detection" {
			t.Errorf("expected detection, got %s", cfg.Textract.Mode)
		}
		// Unset keys keep their defaults.
		if cfg.Textract.MaxResults != 1000 {
			t.Errorf("expected default max results, got %d", cfg.Textract.MaxResults)
		}
		if cfg.Defaults.Profile != profile.BankStatementName {
			t.Errorf("expected default profile, got %s", cfg.Defaults.Profile)
		}
		if mgr.ConfigFile() != configFile {
			t.Errorf("expected config file %s, got %s", configFile, mgr.ConfigFile())
		}
	})

	t.Run("environment overrides file", func(t *testing.T) {
		t.Setenv("TABLESCAN_AWS_REGION", "ap-south-1")
		configFile := writeConfig(t, "aws:\n  region: us-west-2\n")

		mgr, err := NewManager(configFile)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}
		if got := mgr.Get().AWS.Region; got != "ap-south-1" {
			t.Errorf("expected ap-south-1, got %s", got)
		}
	})

	t.Run("invalid file", func(t *testing.T) {
		configFile := writeConfig(t, "aws: [unclosed")
		if _, err := NewManager(configFile); err == nil {
			t.Error("expected error for malformed config")
		}
	})
}

func TestConfig_ProfileRegistry(t *testing.T) {
	dir := t.TempDir()
	profilePath := filepath.Join(dir, "invoice.yaml")
	if err := os.WriteFile(profilePath, []byte(`
name: invoice
fields:
  - name: Line
    synonyms: [line, item]
`), 0644); err != nil {
		t.Fatal(err)
	}

	configFile := writeConfig(t, `
profiles:
  receipt:
    fields:
      - name: Item
        synonyms: [item, product]
      - name: Price
        synonyms: [price]
    summary_indicators: [merchant]
    min_transaction_fields: 2
profile_files:
  - `+profilePath+`
`)
	mgr, err := NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	reg, err := mgr.Get().ProfileRegistry()
	if err != nil {
		t.Fatalf("ProfileRegistry() error = %v", err)
	}
	for _, name := range []string{profile.BankStatementName, "receipt", "invoice"} {
		if _, err := reg.Get(name); err != nil {
			t.Errorf("expected profile %s: %v", name, err)
		}
	}
	p, _ := reg.Get("receipt")
	if p.MinTransactionFields != 2 || len(p.Schema) != 2 {
		t.Errorf("unexpected receipt profile %+v", p)
	}

	bad := &Config{Profiles: map[string]profile.Spec{"broken": {}}}
	if _, err := bad.ProfileRegistry(); !errors.Is(err, profile.ErrInvalidProfile) {
		t.Errorf("expected ErrInvalidProfile, got %v", err)
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	mgr, err := NewManager(path)
	if err != nil {
		t.Fatalf("failed to load written default: %v", err)
	}
	cfg := mgr.Get()
	if cfg.AWS.Bucket != "${TABLESCAN_BUCKET}" {
		t.Errorf("expected bucket placeholder, got %s", cfg.AWS.Bucket)
	}
	if len(cfg.Textract.FeatureTypes) != 2 {
		t.Errorf("expected 2 feature types, got %v", cfg.Textract.FeatureTypes)
	}
}

func TestDurations(t *testing.T) {
	if d := (TextractCfg{}).PollEvery(); d != 5*time.Second {
		t.Errorf("expected 5s default, got %s", d)
	}
	if d := (TextractCfg{PollInterval: 2}).PollEvery(); d != 2*time.Second {
		t.Errorf("expected 2s, got %s", d)
	}
	if d := (NotificationsCfg{}).TimeoutDuration(); d != 10*time.Minute {
		t.Errorf("expected 10m default, got %s", d)
	}
}

func TestManager_OnChange_Multiple(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, "aws:\n  region: us-east-1\n"))
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})

	mgr.mu.RLock()
	if len(mgr.callbacks) != 3 {
		t.Errorf("expected 3 callbacks, got %d", len(mgr.callbacks))
	}
	mgr.mu.RUnlock()
}

func TestManager_Get_ThreadSafe(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, "aws:\n  region: us-east-1\n"))
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				cfg := mgr.Get()
				_ = cfg.AWS.Region
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestManager_WatchConfig(t *testing.T) {
	configFile := writeConfig(t, "aws:\n  region: us-east-1\n")

	mgr, err := NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	if got := mgr.Get().AWS.Region; got != "us-east-1" {
		t.Errorf("initial value mismatch: expected us-east-1, got %s", got)
	}

	var callbackCount atomic.Int32
	var lastValue atomic.Value

	mgr.OnChange(func(cfg *Config) {
		callbackCount.Add(1)
		lastValue.Store(cfg.AWS.Region)
	})

	mgr.WatchConfig()

	// Give fsnotify time to set up the watcher
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(configFile, []byte("aws:\n  region: eu-west-1\n"), 0644); err != nil {
		t.Fatalf("failed to write updated config file: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if callbackCount.Load() > 0 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	if callbackCount.Load() == 0 {
		t.Error("callback was not invoked after config file change")
	}
	if got := mgr.Get().AWS.Region; got != "eu-west-1" {
		t.Errorf("config not updated: expected eu-west-1, got %s", got)
	}
	if v := lastValue.Load(); v != "eu-west-1" {
		t.Errorf("callback received wrong value: expected eu-west-1, got %v", v)
	}
}
