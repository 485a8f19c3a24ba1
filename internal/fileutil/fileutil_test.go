package fileutil

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteAtomicCreatesParentAndFile(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "nested", "out.epub")

	n, err := WriteAtomic(dst, strings.NewReader("hello world"))
	if err != nil {
		t.Fatal(err)
	}
	if n != int64(len("hello world")) {
		t.Fatalf("written = %d", n)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello world" {
		t.Fatalf("content mismatch: got %q", got)
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o644 {
		t.Fatalf("mode = %v, want 0644", info.Mode().Perm())
	}
}

func TestWriteAtomicReplacesExisting(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "out.zip")
	if err := os.WriteFile(dst, []byte("old content that is longer"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := WriteAtomic(dst, strings.NewReader("new")); err != nil {
		t.Fatal(err)
	}
	got, _ := os.ReadFile(dst)
	if string(got) != "new" {
		t.Fatalf("content = %q, want new", got)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func TestWriteAtomicLeavesNothingOnFailure(t *testing.T) {
	dir := t.TempDir()
	dst := filepath.Join(dir, "out.epub")

	_, err := WriteAtomic(dst, io.MultiReader(strings.NewReader("partial"), failingReader{}))
	if err == nil {
		t.Fatal("expected error")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty dir, found %d entries", len(entries))
	}
}

func TestSafeName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "converted-book.epub", want: "converted-book.epub"},
		{in: "../../etc/passwd", want: "passwd"},
		{in: `dir\sub\Title: Part*1.epub`, want: "Title- Part-1.epub"},
		{in: `what?"<>|.mobi`, want: "what.mobi"},
		{in: "  ", want: ""},
		{in: "..", want: ""},
		{in: "/", want: ""},
	}
	for _, tc := range cases {
		if got := SafeName(tc.in); got != tc.want {
			t.Errorf("SafeName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
