package preflight

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bindery/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_Missing(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed || !strings.Contains(result.Detail, "does not exist") {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestCheckDirectoryAccess_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", path)
	if result.Passed || !strings.Contains(result.Detail, "not a directory") {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestCheckService(t *testing.T) {
	svc := testsupport.NewFakeService(t)
	cfg := testsupport.NewConfig(t, testsupport.WithServiceURL(svc.URL))

	if result := CheckService(context.Background(), cfg); !result.Passed {
		t.Fatalf("expected reachable service, got %+v", result)
	}

	svc.Close()
	result := CheckService(context.Background(), cfg)
	if result.Passed {
		t.Fatal("expected failure once the service is gone")
	}
}

func TestRunAllReportsEachCheck(t *testing.T) {
	svc := testsupport.NewFakeService(t)
	cfg := testsupport.NewConfig(t, testsupport.WithServiceURL(svc.URL))
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}

	results := RunAll(context.Background(), cfg)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures %+v", failed)
	}
}
