package converter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"bindery/internal/config"
	"bindery/internal/logging"
	"bindery/internal/services"
)

const (
	// maxEnvelopeBytes bounds how much of a JSON answer is read.
	maxEnvelopeBytes = 1 << 20
	uploadField      = "file"
	requestIDHeader  = "X-Request-ID"
)

// HTTPDoer describes the HTTP client used by the converter.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Result is the service's answer to a successful conversion.
type Result struct {
	Filename    string
	DownloadURL string
}

// Client issues conversion, retrieval and packaging requests.
type Client struct {
	baseURL   string
	uploadURL string
	batchURL  string
	userAgent string
	maxUpload int64
	timeout   time.Duration
	client    HTTPDoer
	logger    *slog.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client HTTPDoer) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient builds a client from the service section of cfg.
func NewClient(cfg *config.Config, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(strings.TrimSpace(cfg.Service.BaseURL), "/"),
		uploadURL: cfg.UploadURL(),
		batchURL:  cfg.BatchURL(),
		userAgent: cfg.Service.UserAgent,
		maxUpload: cfg.MaxUploadBytes(),
		timeout:   cfg.RequestTimeout(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		c.client = &http.Client{Timeout: c.timeout}
	}
	c.logger = logging.NewComponentLogger(c.logger, "converter")
	return c
}

type envelope struct {
	Success     bool   `json:"success"`
	Filename    string `json:"filename"`
	DownloadURL string `json:"download_url"`
	Error       string `json:"error"`
}

// Convert uploads the file at sourcePath and returns the converted result's name and locator.
func (c *Client) Convert(ctx context.Context, sourcePath string) (Result, error) {
	ctx = services.WithStage(ctx, "upload")
	body, contentType, err := c.buildUpload(sourcePath)
	if err != nil {
		return Result{}, services.Wrap(services.ErrConversion, "converter", "upload", "", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.uploadURL, body)
	if err != nil {
		return Result{}, services.Wrap(services.ErrConversion, "converter", "upload", "build request", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	logger := logging.WithContext(services.WithRequestID(ctx, req.Header.Get(requestIDHeader)), c.logger)
	logger.Debug("uploading file", logging.String("path", sourcePath), logging.Int("bytes", body.Len()))
	started := time.Now()

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, services.Wrap(services.ErrConversion, "converter", "upload", "",
			&Failure{Op: "upload", Err: transportError(ctx, err)})
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxEnvelopeBytes))
	if err != nil {
		return Result{}, services.Wrap(services.ErrConversion, "converter", "upload", "read response",
			&Failure{Op: "upload", StatusCode: resp.StatusCode, Err: err})
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)
	if resp.StatusCode >= http.StatusMultipleChoices {
		failure := &Failure{Op: "upload", StatusCode: resp.StatusCode}
		if decodeErr == nil {
			failure.Message = strings.TrimSpace(env.Error)
		}
		return Result{}, services.Wrap(services.ErrConversion, "converter", "upload", "", failure)
	}
	if decodeErr != nil {
		return Result{}, services.Wrap(services.ErrConversion, "converter", "upload", "",
			&Failure{Op: "upload", StatusCode: resp.StatusCode, Message: "unreadable response from conversion service", Err: decodeErr})
	}
	if !env.Success {
		message := strings.TrimSpace(env.Error)
		if message == "" {
			message = "conversion failed"
		}
		return Result{}, services.Wrap(services.ErrConversion, "converter", "upload", "",
			&Failure{Op: "upload", StatusCode: resp.StatusCode, Message: message})
	}
	result := Result{
		Filename:    strings.TrimSpace(env.Filename),
		DownloadURL: strings.TrimSpace(env.DownloadURL),
	}
	if result.Filename == "" || result.DownloadURL == "" {
		return Result{}, services.Wrap(services.ErrConversion, "converter", "upload", "",
			&Failure{Op: "upload", StatusCode: resp.StatusCode, Message: "conversion service returned no result file"})
	}

	logger.Debug("conversion accepted",
		logging.String("result", result.Filename),
		logging.Duration("elapsed", time.Since(started)),
	)
	return result, nil
}

func (c *Client) buildUpload(sourcePath string) (*bytes.Buffer, string, error) {
	info, err := os.Stat(sourcePath)
	if err != nil {
		return nil, "", &Failure{Op: "upload", Message: "source file unavailable", Err: err}
	}
	if info.IsDir() {
		return nil, "", &Failure{Op: "upload", Message: "source is a directory"}
	}
	if c.maxUpload > 0 && info.Size() > c.maxUpload {
		message := fmt.Sprintf("file is %s, larger than the %s upload limit",
			humanize.IBytes(uint64(info.Size())), humanize.IBytes(uint64(c.maxUpload)))
		return nil, "", &Failure{Op: "upload", Message: message}
	}

	file, err := os.Open(sourcePath)
	if err != nil {
		return nil, "", &Failure{Op: "upload", Message: "source file unavailable", Err: err}
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile(uploadField, filepath.Base(sourcePath))
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", &Failure{Op: "upload", Message: "read source file", Err: err}
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart body: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}

func (c *Client) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	requestID, ok := services.RequestIDFromContext(ctx)
	if !ok {
		requestID = uuid.NewString()
	}
	req.Header.Set(requestIDHeader, requestID)
	return req, nil
}

// resolve turns a download url from the service into an absolute URL.
func (c *Client) resolve(locator string) string {
	locator = strings.TrimSpace(locator)
	if strings.HasPrefix(locator, "http://") || strings.HasPrefix(locator, "https://") {
		return locator
	}
	return c.baseURL + "/" + strings.TrimLeft(locator, "/")
}

// transportError keeps context cancellation recognizable through the wrap.
func transportError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
		return fmt.Errorf("%w: %w", ctxErr, err)
	}
	return err
}

// failureFromResponse reads an error answer, using its JSON error field when present.
func failureFromResponse(op string, resp *http.Response) *Failure {
	failure := &Failure{Op: op, StatusCode: resp.StatusCode}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxEnvelopeBytes))
	if err != nil {
		return failure
	}
	var env envelope
	if json.Unmarshal(raw, &env) == nil {
		failure.Message = strings.TrimSpace(env.Error)
	}
	return failure
}
