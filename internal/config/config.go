package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Service describes the remote conversion and packaging endpoints.
type Service struct {
	BaseURL    string `toml:"base_url"`
	UploadPath string `toml:"upload_path"`
	BatchPath  string `toml:"batch_path"`
	// RequestTimeout is in seconds; zero means no timeout.
	RequestTimeout int    `toml:"request_timeout"`
	UserAgent      string `toml:"user_agent"`
}

// Output controls where retrieved results and bundles are written.
type Output struct {
	Dir        string `toml:"dir"`
	BundleName string `toml:"bundle_name"`
}

// Intake filters which files the CLI offers to the queue.
type Intake struct {
	Extensions  []string `toml:"extensions"`
	MaxUploadMB int      `toml:"max_upload_mb"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	File   string `toml:"file"`
}

// Config encapsulates all configuration values for bindery.
//
// Configuration sections by subsystem:
//   - Service: conversion/packaging endpoint locations and request behaviour
//   - Output: result directory and bundle file name
//   - Intake: accepted extensions and upload size limit
//   - Logging: log format, level, and optional file
type Config struct {
	Service Service `toml:"service"`
	Output  Output  `toml:"output"`
	Intake  Intake  `toml:"intake"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/bindery/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("bindery.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the output directory (and log directory when a
// log file is configured).
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Output.Dir}
	if strings.TrimSpace(c.Logging.File) != "" {
		dirs = append(dirs, filepath.Dir(c.Logging.File))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// UploadURL returns the absolute conversion endpoint.
func (c *Config) UploadURL() string {
	return c.Service.BaseURL + c.Service.UploadPath
}

// BatchURL returns the absolute packaging endpoint.
func (c *Config) BatchURL() string {
	return c.Service.BaseURL + c.Service.BatchPath
}

// RequestTimeout returns the per-request timeout; zero means none.
func (c *Config) RequestTimeout() time.Duration {
	if c.Service.RequestTimeout <= 0 {
		return 0
	}
	return time.Duration(c.Service.RequestTimeout) * time.Second
}

// MaxUploadBytes returns the intake size limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Intake.MaxUploadMB) * 1024 * 1024
}

// AcceptsExtension reports whether intake should offer a file with ext.
// An empty extension list accepts everything.
func (c *Config) AcceptsExtension(ext string) bool {
	if len(c.Intake.Extensions) == 0 {
		return true
	}
	ext = strings.ToLower(strings.TrimSpace(ext))
	for _, allowed := range c.Intake.Extensions {
		if allowed == ext {
			return true
		}
	}
	return false
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
