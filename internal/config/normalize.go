package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.normalizeService()
	if err := c.normalizeOutput(); err != nil {
		return err
	}
	c.normalizeIntake()
	return c.normalizeLogging()
}

func (c *Config) normalizeService() {
	if value, ok := os.LookupEnv(serviceURLEnvironment); ok && strings.TrimSpace(value) != "" {
		c.Service.BaseURL = value
	}
	c.Service.BaseURL = strings.TrimRight(strings.TrimSpace(c.Service.BaseURL), "/")
	if c.Service.BaseURL == "" {
		c.Service.BaseURL = defaultServiceURL
	}
	c.Service.UploadPath = normalizeEndpointPath(c.Service.UploadPath, defaultUploadPath)
	c.Service.BatchPath = normalizeEndpointPath(c.Service.BatchPath, defaultBatchPath)
	c.Service.UserAgent = strings.TrimSpace(c.Service.UserAgent)
	if c.Service.UserAgent == "" {
		c.Service.UserAgent = defaultUserAgent
	}
	if c.Service.RequestTimeout < 0 {
		c.Service.RequestTimeout = 0
	}
}

func normalizeEndpointPath(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	if !strings.HasPrefix(value, "/") {
		value = "/" + value
	}
	return value
}

func (c *Config) normalizeOutput() error {
	if strings.TrimSpace(c.Output.Dir) == "" {
		c.Output.Dir = defaultOutputDir
	}
	var err error
	if c.Output.Dir, err = expandPath(c.Output.Dir); err != nil {
		return fmt.Errorf("output.dir: %w", err)
	}
	c.Output.BundleName = strings.TrimSpace(c.Output.BundleName)
	if c.Output.BundleName == "" {
		c.Output.BundleName = defaultBundleName
	}
	return nil
}

func (c *Config) normalizeIntake() {
	seen := make(map[string]struct{}, len(c.Intake.Extensions))
	exts := make([]string, 0, len(c.Intake.Extensions))
	for _, ext := range c.Intake.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		exts = append(exts, ext)
	}
	c.Intake.Extensions = exts
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if strings.TrimSpace(c.Logging.File) != "" {
		var err error
		if c.Logging.File, err = expandPath(c.Logging.File); err != nil {
			return fmt.Errorf("logging.file: %w", err)
		}
	}
	return nil
}
