package config

const (
	defaultServiceURL     = "http://127.0.0.1:5000"
	defaultUploadPath     = "/upload"
	defaultBatchPath      = "/download_batch"
	defaultUserAgent      = "bindery/0.1.0"
	defaultOutputDir      = "~/Downloads/bindery"
	defaultBundleName     = "ebooks_bundle.zip"
	defaultMaxUploadMB    = 50
	defaultLogFormat      = "console"
	defaultLogLevel       = "info"
	serviceURLEnvironment = "BINDERY_SERVICE_URL"
)

var defaultExtensions = []string{".epub", ".mobi"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	exts := make([]string, len(defaultExtensions))
	copy(exts, defaultExtensions)
	return Config{
		Service: Service{
			BaseURL:    defaultServiceURL,
			UploadPath: defaultUploadPath,
			BatchPath:  defaultBatchPath,
			UserAgent:  defaultUserAgent,
		},
		Output: Output{
			Dir:        defaultOutputDir,
			BundleName: defaultBundleName,
		},
		Intake: Intake{
			Extensions:  exts,
			MaxUploadMB: defaultMaxUploadMB,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
