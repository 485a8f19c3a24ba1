package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"bindery/internal/config"
	"bindery/internal/services/converter"
)

const serviceCheckTimeout = 5 * time.Second

// CheckService verifies that the conversion service answers HTTP.
func CheckService(ctx context.Context, cfg *config.Config, opts ...converter.Option) Result {
	const name = "Conversion service"
	if cfg.Service.BaseURL == "" {
		return Result{Name: name, Detail: "missing base_url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, serviceCheckTimeout)
	defer cancel()

	client := converter.NewClient(cfg, opts...)
	if err := client.Ping(checkCtx); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (%s)", cfg.Service.BaseURL, summarizeServiceError(err))}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (reachable)", cfg.Service.BaseURL)}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

func summarizeServiceError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timed out"
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return "unreachable: " + opErr.Err.Error()
	}
	return err.Error()
}
