package testsupport

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// FakeService is an in-process stand-in for the conversion service. Uploads
// succeed with a "converted-<name>" result unless Fail registers otherwise.
type FakeService struct {
	*httptest.Server

	mu         sync.Mutex
	uploads    []string
	batches    [][]string
	requestIDs []string
	userAgents []string
	results    map[string][]byte
	failures   map[string]fakeFailure
	batchFail  *fakeFailure
	batchRaw   []byte
	gate       *UploadGate
}

type fakeFailure struct {
	status  int
	message string
}

// NewFakeService starts a fake service and closes it when the test ends.
func NewFakeService(t testing.TB) *FakeService {
	t.Helper()

	svc := &FakeService{
		results:  make(map[string][]byte),
		failures: make(map[string]fakeFailure),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload", svc.handleUpload)
	mux.HandleFunc("GET /download/{name}", svc.handleDownload)
	mux.HandleFunc("POST /download_batch", svc.handleBatch)
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "ok")
	})
	svc.Server = httptest.NewServer(mux)
	t.Cleanup(svc.Server.Close)
	return svc
}

// Fail makes uploads of name answer with status. A 200 status answers with
// success=false; an empty message sends a non-JSON body.
func (s *FakeService) Fail(name string, status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[name] = fakeFailure{status: status, message: message}
}

// FailBatch makes packaging requests answer with status and message.
func (s *FakeService) FailBatch(status int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batchFail = &fakeFailure{status: status, message: message}
}

// BatchBody replaces the packaging answer with raw bytes served as a zip.
func (s *FakeService) BatchBody(raw []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batchRaw = raw
}

// Uploads returns the uploaded file names in arrival order.
func (s *FakeService) Uploads() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.uploads...)
}

// Batches returns the filename lists of every packaging request.
func (s *FakeService) Batches() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]string, len(s.batches))
	for i, b := range s.batches {
		out[i] = append([]string(nil), b...)
	}
	return out
}

// RequestIDs returns the X-Request-ID header of every request seen.
func (s *FakeService) RequestIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requestIDs...)
}

// UserAgents returns the User-Agent header of every request seen.
func (s *FakeService) UserAgents() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.userAgents...)
}

// HoldUploads makes every subsequent upload wait for UploadGate.Release.
func (s *FakeService) HoldUploads(t testing.TB) *UploadGate {
	t.Helper()
	gate := &UploadGate{
		started: make(chan string, 64),
		release: make(chan struct{}, 64),
		done:    make(chan struct{}),
	}
	s.mu.Lock()
	s.gate = gate
	s.mu.Unlock()
	t.Cleanup(gate.close)
	return gate
}

// UploadGate holds uploads until released one at a time.
type UploadGate struct {
	started chan string
	release chan struct{}
	done    chan struct{}
	once    sync.Once
}

// Started delivers the name of each upload as it begins waiting.
func (g *UploadGate) Started() <-chan string { return g.started }

// Release lets one held upload finish.
func (g *UploadGate) Release() { g.release <- struct{}{} }

func (g *UploadGate) close() { g.once.Do(func() { close(g.done) }) }

func (s *FakeService) record(r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requestIDs = append(s.requestIDs, r.Header.Get("X-Request-ID"))
	s.userAgents = append(s.userAgents, r.Header.Get("User-Agent"))
}

func (s *FakeService) handleUpload(w http.ResponseWriter, r *http.Request) {
	s.record(r)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "No file part"})
		return
	}
	defer file.Close()
	data, _ := io.ReadAll(file)
	name := header.Filename

	s.mu.Lock()
	s.uploads = append(s.uploads, name)
	gate := s.gate
	failure, failing := s.failures[name]
	s.mu.Unlock()

	if gate != nil {
		gate.started <- name
		select {
		case <-gate.release:
		case <-gate.done:
		case <-r.Context().Done():
			return
		}
	}

	if failing {
		switch {
		case failure.status == http.StatusOK:
			writeJSON(w, http.StatusOK, map[string]any{"success": false, "error": failure.message})
		case failure.message == "":
			http.Error(w, http.StatusText(failure.status), failure.status)
		default:
			writeJSON(w, failure.status, map[string]any{"error": failure.message})
		}
		return
	}

	result := "converted-" + name
	s.mu.Lock()
	s.results[result] = append([]byte("converted:"), data...)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"filename":     result,
		"download_url": "/download/" + result,
	})
}

func (s *FakeService) handleDownload(w http.ResponseWriter, r *http.Request) {
	s.record(r)
	s.mu.Lock()
	data, ok := s.results[r.PathValue("name")]
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "File not found"})
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(data)
}

func (s *FakeService) handleBatch(w http.ResponseWriter, r *http.Request) {
	s.record(r)
	var req struct {
		Filenames []string `json:"filenames"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid request"})
		return
	}

	s.mu.Lock()
	s.batches = append(s.batches, req.Filenames)
	fail := s.batchFail
	raw := s.batchRaw
	results := make(map[string][]byte, len(s.results))
	for k, v := range s.results {
		results[k] = v
	}
	s.mu.Unlock()

	if fail != nil {
		writeJSON(w, fail.status, map[string]any{"error": fail.message})
		return
	}
	if len(req.Filenames) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "No files specified"})
		return
	}
	if raw != nil {
		w.Header().Set("Content-Type", "application/zip")
		_, _ = w.Write(raw)
		return
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range req.Filenames {
		data, ok := results[name]
		if !ok {
			continue
		}
		entry, err := zw.Create(name)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		_, _ = entry.Write(data)
	}
	if err := zw.Close(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="converted_ebooks.zip"`)
	_, _ = w.Write(buf.Bytes())
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// ZipEntries lists the entry names of a zip archive held in memory.
func ZipEntries(t testing.TB, data []byte) []string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, strings.TrimSpace(f.Name))
	}
	return names
}
