package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"bindery/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("BINDERY_SERVICE_URL", "")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantOutput := filepath.Join(tempHome, "Downloads", "bindery")
	if cfg.Output.Dir != wantOutput {
		t.Fatalf("unexpected output dir: got %q want %q", cfg.Output.Dir, wantOutput)
	}
	if cfg.Output.BundleName != "ebooks_bundle.zip" {
		t.Fatalf("unexpected bundle name: %q", cfg.Output.BundleName)
	}
	if cfg.UploadURL() != "http://127.0.0.1:5000/upload" {
		t.Fatalf("unexpected upload url: %q", cfg.UploadURL())
	}
	if cfg.BatchURL() != "http://127.0.0.1:5000/download_batch" {
		t.Fatalf("unexpected batch url: %q", cfg.BatchURL())
	}
	if cfg.RequestTimeout() != 0 {
		t.Fatalf("expected no request timeout by default, got %s", cfg.RequestTimeout())
	}
	if cfg.MaxUploadBytes() != 50*1024*1024 {
		t.Fatalf("unexpected upload limit: %d", cfg.MaxUploadBytes())
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
}

func TestLoadHonoursEnvironmentServiceURL(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("BINDERY_SERVICE_URL", "https://convert.example.com/")

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Service.BaseURL != "https://convert.example.com" {
		t.Fatalf("expected trailing slash trimmed env url, got %q", cfg.Service.BaseURL)
	}
}

func TestLoadCustomConfigFile(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("BINDERY_SERVICE_URL", "")

	cfgPath := filepath.Join(tempHome, "custom.toml")
	contents := `
[service]
base_url = "http://books.local:8080"
upload_path = "convert"
request_timeout = 30

[output]
dir = "~/out"
bundle_name = "all.zip"

[intake]
extensions = ["EPUB", ".epub", "azw3"]
max_upload_mb = 10

[logging]
format = "JSON"
level = "DEBUG"
file = "~/logs/bindery.log"
`
	if err := os.WriteFile(cfgPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != cfgPath {
		t.Fatalf("expected custom config to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.UploadURL() != "http://books.local:8080/convert" {
		t.Fatalf("unexpected upload url: %q", cfg.UploadURL())
	}
	if cfg.RequestTimeout() != 30*time.Second {
		t.Fatalf("unexpected timeout: %s", cfg.RequestTimeout())
	}
	if cfg.Output.Dir != filepath.Join(tempHome, "out") {
		t.Fatalf("unexpected output dir: %q", cfg.Output.Dir)
	}
	if got := strings.Join(cfg.Intake.Extensions, ","); got != ".epub,.azw3" {
		t.Fatalf("unexpected normalized extensions: %q", got)
	}
	if !cfg.AcceptsExtension(".AZW3") || cfg.AcceptsExtension(".mobi") {
		t.Fatalf("unexpected extension filter behaviour: %v", cfg.Intake.Extensions)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
	if cfg.Logging.File != filepath.Join(tempHome, "logs", "bindery.log") {
		t.Fatalf("unexpected log file: %q", cfg.Logging.File)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Output.Dir, filepath.Dir(cfg.Logging.File)} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s to exist: %v", dir, err)
		}
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"scheme", func(c *config.Config) { c.Service.BaseURL = "ftp://host" }, "http or https"},
		{"host", func(c *config.Config) { c.Service.BaseURL = "http://" }, "missing a host"},
		{"same paths", func(c *config.Config) { c.Service.BatchPath = c.Service.UploadPath }, "must differ"},
		{"bundle ext", func(c *config.Config) { c.Output.BundleName = "bundle.tar" }, ".zip"},
		{"bundle path", func(c *config.Config) { c.Output.BundleName = "../x.zip" }, "plain file name"},
		{"upload limit", func(c *config.Config) { c.Intake.MaxUploadMB = 0 }, "max_upload_mb"},
		{"log level", func(c *config.Config) { c.Logging.Level = "loud" }, "logging.level"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q in %q", tc.want, err.Error())
			}
		})
	}
}

func TestCreateSampleProducesParsableConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var parsed config.Config
	if err := toml.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("sample config is not valid TOML: %v", err)
	}
	if parsed.Service.BaseURL != config.Default().Service.BaseURL {
		t.Fatalf("sample base url drifted from defaults: %q", parsed.Service.BaseURL)
	}
	if parsed.Output.BundleName != config.Default().Output.BundleName {
		t.Fatalf("sample bundle name drifted from defaults: %q", parsed.Output.BundleName)
	}
}
