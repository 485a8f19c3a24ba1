package converter_test

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bindery/internal/services"
	"bindery/internal/services/converter"
	"bindery/internal/testsupport"
)

func newClient(t *testing.T, svc *testsupport.FakeService, opts ...testsupport.ConfigOption) (*converter.Client, string) {
	t.Helper()
	opts = append([]testsupport.ConfigOption{testsupport.WithServiceURL(svc.URL)}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	return converter.NewClient(cfg), testsupport.BaseDir(cfg)
}

func TestConvertSuccess(t *testing.T) {
	svc := testsupport.NewFakeService(t)
	client, base := newClient(t, svc)
	src := filepath.Join(base, "in", "book.mobi")
	testsupport.WriteFile(t, src, 128)

	result, err := client.Convert(context.Background(), src)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if result.Filename != "converted-book.mobi" || result.DownloadURL != "/download/converted-book.mobi" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if uploads := svc.Uploads(); len(uploads) != 1 || uploads[0] != "book.mobi" {
		t.Fatalf("unexpected uploads: %v", uploads)
	}
	ids := svc.RequestIDs()
	if len(ids) != 1 || len(ids[0]) != 36 {
		t.Fatalf("expected uuid request id, got %v", ids)
	}
	if agents := svc.UserAgents(); !strings.HasPrefix(agents[0], "bindery/") {
		t.Fatalf("unexpected user agent %q", agents[0])
	}
}

func TestConvertFailures(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		message string
		want    string
	}{
		{"server error without json", http.StatusInternalServerError, "", "HTTP 500"},
		{"server error with json", http.StatusBadRequest, "Unsupported file type", "Unsupported file type"},
		{"envelope failure", http.StatusOK, "Conversion failed: corrupt input", "Conversion failed: corrupt input"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := testsupport.NewFakeService(t)
			svc.Fail("bad.epub", tc.status, tc.message)
			client, base := newClient(t, svc)
			src := filepath.Join(base, "bad.epub")
			testsupport.WriteFile(t, src, 16)

			_, err := client.Convert(context.Background(), src)
			if !errors.Is(err, services.ErrConversion) {
				t.Fatalf("expected ErrConversion, got %v", err)
			}
			if got := services.UserMessage(err); got != tc.want {
				t.Fatalf("user message = %q, want %q", got, tc.want)
			}
			var failure *converter.Failure
			if !errors.As(err, &failure) {
				t.Fatalf("expected *converter.Failure in chain: %v", err)
			}
		})
	}
}

func TestConvertTransportFailure(t *testing.T) {
	svc := testsupport.NewFakeService(t)
	client, base := newClient(t, svc)
	svc.Close()

	src := filepath.Join(base, "a.epub")
	testsupport.WriteFile(t, src, 16)
	_, err := client.Convert(context.Background(), src)
	if !errors.Is(err, services.ErrConversion) {
		t.Fatalf("expected ErrConversion, got %v", err)
	}
	var failure *converter.Failure
	if !errors.As(err, &failure) || !failure.Temporary() {
		t.Fatalf("expected temporary failure, got %v", err)
	}
}

func TestConvertRejectsOversizedFile(t *testing.T) {
	svc := testsupport.NewFakeService(t)
	client, base := newClient(t, svc, testsupport.WithMaxUploadMB(1))
	src := filepath.Join(base, "huge.epub")
	testsupport.WriteFile(t, src, 2*1024*1024)

	_, err := client.Convert(context.Background(), src)
	if err == nil || !strings.Contains(services.UserMessage(err), "upload limit") {
		t.Fatalf("expected upload limit failure, got %v", err)
	}
	if len(svc.Uploads()) != 0 {
		t.Fatal("oversized file should not be uploaded")
	}
}

func TestConvertMissingSource(t *testing.T) {
	svc := testsupport.NewFakeService(t)
	client, base := newClient(t, svc)
	_, err := client.Convert(context.Background(), filepath.Join(base, "missing.epub"))
	if !errors.Is(err, services.ErrConversion) || !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected conversion error wrapping ErrNotExist, got %v", err)
	}
}

func TestDownloadWritesResult(t *testing.T) {
	svc := testsupport.NewFakeService(t)
	client, base := newClient(t, svc)
	src := filepath.Join(base, "a.epub")
	testsupport.WriteFile(t, src, 10)
	result, err := client.Convert(context.Background(), src)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}

	dest := filepath.Join(base, "out", result.Filename)
	n, err := client.Download(context.Background(), result.DownloadURL, dest)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("read result: %v", err)
	}
	if int64(len(data)) != n || !strings.HasPrefix(string(data), "converted:") {
		t.Fatalf("unexpected result payload (%d bytes): %q", n, data)
	}
}

func TestDownloadMissingResult(t *testing.T) {
	svc := testsupport.NewFakeService(t)
	client, base := newClient(t, svc)
	dest := filepath.Join(base, "out", "nope.epub")

	_, err := client.Download(context.Background(), "/download/nope.epub", dest)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if services.UserMessage(err) != "File not found" {
		t.Fatalf("unexpected message %q", services.UserMessage(err))
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Fatal("no file should be written on failure")
	}
}

func TestBundleReturnsArchive(t *testing.T) {
	svc := testsupport.NewFakeService(t)
	client, base := newClient(t, svc)
	var names []string
	for _, n := range []string{"a.epub", "b.epub"} {
		src := filepath.Join(base, n)
		testsupport.WriteFile(t, src, 10)
		result, err := client.Convert(context.Background(), src)
		if err != nil {
			t.Fatalf("Convert: %v", err)
		}
		names = append(names, result.Filename)
	}

	data, err := client.Bundle(context.Background(), names)
	if err != nil {
		t.Fatalf("Bundle: %v", err)
	}
	entries := testsupport.ZipEntries(t, data)
	if len(entries) != 2 || entries[0] != names[0] || entries[1] != names[1] {
		t.Fatalf("unexpected entries %v", entries)
	}
	batches := svc.Batches()
	if len(batches) != 1 || len(batches[0]) != 2 {
		t.Fatalf("unexpected batches %v", batches)
	}
}

func TestBundleServerFailure(t *testing.T) {
	svc := testsupport.NewFakeService(t)
	svc.FailBatch(http.StatusInternalServerError, "disk full")
	client, _ := newClient(t, svc)

	_, err := client.Bundle(context.Background(), []string{"x.epub"})
	if !errors.Is(err, services.ErrPackaging) {
		t.Fatalf("expected ErrPackaging, got %v", err)
	}
	if services.UserMessage(err) != "disk full" {
		t.Fatalf("unexpected message %q", services.UserMessage(err))
	}
}

func TestPing(t *testing.T) {
	svc := testsupport.NewFakeService(t)
	client, _ := newClient(t, svc)
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	svc.Close()
	if err := client.Ping(context.Background()); !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected transport error after close, got %v", err)
	}
}

func TestConvertHonoursRequestTimeout(t *testing.T) {
	svc := testsupport.NewFakeService(t)
	gate := svc.HoldUploads(t)
	client, base := newClient(t, svc, testsupport.WithRequestTimeout(1))
	src := filepath.Join(base, "slow.epub")
	testsupport.WriteFile(t, src, 16)

	_, err := client.Convert(context.Background(), src)
	if !errors.Is(err, services.ErrConversion) {
		t.Fatalf("expected ErrConversion after timeout, got %v", err)
	}
	select {
	case name := <-gate.Started():
		if name != "slow.epub" {
			t.Fatalf("unexpected upload %q", name)
		}
	default:
		t.Fatal("upload never reached the service")
	}
}
