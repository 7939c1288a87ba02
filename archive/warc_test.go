package archive

import (
	"compress/gzip"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
)

func TestWriter_RotatesAtPagesPerFile(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, "pages", 2)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	header := http.Header{"Content-Type": {"text/html"}}
	for i := 0; i < 3; i++ {
		if err := w.Write("https://example.com/p", 200, header, []byte("<html>hi</html>")); err != nil {
			t.Fatalf("Write #%d: %v", i, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	for _, name := range []string{"pages-1.warc.gz", "pages-2.warc.gz"} {
		path := dir + "/" + name
		if _, err := os.Stat(path); err != nil {
			t.Errorf("expected %s to exist: %v", name, err)
		}
		assertValidGzip(t, path)
	}
}

func TestWriter_RejectsNonPositivePagesPerFile(t *testing.T) {
	if _, err := NewWriter(t.TempDir(), "pages", 0); err == nil {
		t.Error("expected error for pagesPerFile=0")
	}
	if _, err := NewWriter(t.TempDir(), "pages", -1); err == nil {
		t.Error("expected error for negative pagesPerFile")
	}
}

func TestWriter_RecordContainsTargetURI(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, "pages", 10)
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := w.Write("https://example.com/target-page", 200, http.Header{}, []byte("body")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(dir + "/pages-1.warc.gz")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("gzip.NewReader: %v", err)
	}
	defer gz.Close()

	data, err := io.ReadAll(gz)
	if err != nil {
		t.Fatalf("read record: %v", err)
	}
	if !strings.Contains(string(data), "https://example.com/target-page") {
		t.Error("expected record to contain WARC-Target-URI")
	}
	if !strings.Contains(string(data), "WARC-Type: response") {
		t.Error("expected record to declare WARC-Type: response")
	}
}

func assertValidGzip(t *testing.T, path string) {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("%s is not valid gzip: %v", path, err)
	}
	defer gz.Close()

	if _, err := io.ReadAll(gz); err != nil {
		t.Fatalf("%s: error reading gzip stream: %v", path, err)
	}
}
