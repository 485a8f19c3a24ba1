package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateService(); err != nil {
		return err
	}
	if err := c.validateOutput(); err != nil {
		return err
	}
	if err := c.validateIntake(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateService() error {
	parsed, err := url.Parse(c.Service.BaseURL)
	if err != nil {
		return fmt.Errorf("service.base_url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("service.base_url must use http or https, got %q", c.Service.BaseURL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("service.base_url is missing a host: %q", c.Service.BaseURL)
	}
	if c.Service.UploadPath == c.Service.BatchPath {
		return errors.New("service.upload_path and service.batch_path must differ")
	}
	return nil
}

func (c *Config) validateOutput() error {
	name := c.Output.BundleName
	if name != filepath.Base(name) || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("output.bundle_name must be a plain file name, got %q", name)
	}
	if !strings.EqualFold(filepath.Ext(name), ".zip") {
		return fmt.Errorf("output.bundle_name must end in .zip, got %q", name)
	}
	return nil
}

func (c *Config) validateIntake() error {
	return ensurePositiveMap(map[string]int{
		"intake.max_upload_mb": c.Intake.MaxUploadMB,
	})
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
