package converter

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"bindery/internal/fileutil"
	"bindery/internal/logging"
	"bindery/internal/services"
)

// Download fetches one converted result and writes it to dest, returning the byte count.
// dest is written through a temporary file in the same directory and renamed on success.
func (c *Client) Download(ctx context.Context, locator, dest string) (int64, error) {
	ctx = services.WithStage(ctx, "download")
	if strings.TrimSpace(locator) == "" {
		return 0, services.Wrap(services.ErrValidation, "converter", "download", "download url is empty", nil)
	}

	req, err := c.newRequest(ctx, http.MethodGet, c.resolve(locator), nil)
	if err != nil {
		return 0, services.Wrap(services.ErrTransport, "converter", "download", "build request", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return 0, services.Wrap(services.ErrTransport, "converter", "download", "",
			&Failure{Op: "download", Err: transportError(ctx, err)})
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		failure := failureFromResponse("download", resp)
		marker := services.ErrTransport
		if resp.StatusCode == http.StatusNotFound {
			marker = services.ErrNotFound
		}
		return 0, services.Wrap(marker, "converter", "download", "", failure)
	}

	written, err := fileutil.WriteAtomic(dest, resp.Body)
	if err != nil {
		return 0, services.Wrap(services.ErrTransport, "converter", "download", "save result", err)
	}
	logging.WithContext(ctx, c.logger).Debug("result saved",
		logging.String("path", dest),
		logging.Int64("bytes", written),
	)
	return written, nil
}

// Bundle asks the service to package the named results and returns the archive bytes.
func (c *Client) Bundle(ctx context.Context, filenames []string) ([]byte, error) {
	ctx = services.WithStage(ctx, "bundle")
	payload, err := json.Marshal(struct {
		Filenames []string `json:"filenames"`
	}{Filenames: filenames})
	if err != nil {
		return nil, services.Wrap(services.ErrPackaging, "converter", "bundle", "encode request", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.batchURL, bytes.NewReader(payload))
	if err != nil {
		return nil, services.Wrap(services.ErrPackaging, "converter", "bundle", "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/zip")

	logging.WithContext(ctx, c.logger).Debug("requesting bundle",
		logging.Int("files", len(filenames)),
		logging.String(logging.FieldCorrelationID, req.Header.Get(requestIDHeader)),
	)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrPackaging, "converter", "bundle", "",
			&Failure{Op: "bundle", Err: transportError(ctx, err)})
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, services.Wrap(services.ErrPackaging, "converter", "bundle", "", failureFromResponse("bundle", resp))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrPackaging, "converter", "bundle", "read archive",
			&Failure{Op: "bundle", StatusCode: resp.StatusCode, Err: err})
	}
	return data, nil
}

// Ping checks that the service answers HTTP at its base URL. Any status counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "converter", "ping", "build request", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransport, "converter", "ping", "", &Failure{Op: "ping", Err: err})
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return nil
}
