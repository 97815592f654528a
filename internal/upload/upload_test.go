package upload

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
)

func TestUploadSimpleSendsRequiredHeaders(t *testing.T) {
	var gotContentType, gotMD5, gotUA string
	var gotBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotMD5 = r.Header.Get("Content-MD5")
		gotUA = r.Header.Get("User-Agent")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "thumbnail.png")
	content := []byte("fake-png-bytes")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}

	d := NewDriver(nil)
	var progressed []int
	err := d.UploadSimple(context.Background(), srv.URL, path, "image/png", "deadbeef==", "Third3D Uploader/1.0", func(part, total int) {
		progressed = append(progressed, part)
	})
	if err != nil {
		t.Fatalf("UploadSimple: %v", err)
	}
	if gotContentType != "image/png" {
		t.Fatalf("Content-Type = %q", gotContentType)
	}
	if gotMD5 != "deadbeef==" {
		t.Fatalf("Content-MD5 = %q", gotMD5)
	}
	if gotUA != "Third3D Uploader/1.0" {
		t.Fatalf("User-Agent = %q", gotUA)
	}
	if string(gotBody) != string(content) {
		t.Fatalf("body = %q, want %q", gotBody, content)
	}
	if len(progressed) != 2 || progressed[0] != 0 || progressed[1] != 1 {
		t.Fatalf("unexpected progress sequence: %v", progressed)
	}
}

func TestUploadSimpleNon2xxIsFailureError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("signature expired"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "f.bin")
	os.WriteFile(path, []byte("x"), 0o644)

	d := NewDriver(nil)
	err := d.UploadSimple(context.Background(), srv.URL, path, "application/octet-stream", "==", "ua", nil)
	fe, ok := err.(*FailureError)
	if !ok {
		t.Fatalf("expected *FailureError, got %v (%T)", err, err)
	}
	if fe.Status != http.StatusForbidden {
		t.Fatalf("status = %d", fe.Status)
	}
}

func TestUploadMultipartCollectsEtagsInOrder(t *testing.T) {
	var mu sync.Mutex
	seen := map[int]bool{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		partNumber := r.URL.Query().Get("part")
		mu.Lock()
		idx, _ := strconv.Atoi(partNumber)
		seen[idx] = true
		mu.Unlock()
		w.Header().Set("ETag", fmt.Sprintf(`"etag-%s-%d"`, partNumber, len(body)))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "bundle.vrca")
	fileSize := int64(PartSize*2 + 1024)
	if err := os.WriteFile(path, make([]byte, fileSize), 0o644); err != nil {
		t.Fatal(err)
	}

	d := NewDriver(nil)
	urlFor := func(ctx context.Context, partNumber int) (string, error) {
		return fmt.Sprintf("%s?part=%d", srv.URL, partNumber), nil
	}

	etags, err := d.UploadMultipart(context.Background(), path, fileSize, 4, "application/x-avatar", "ua", urlFor, nil)
	if err != nil {
		t.Fatalf("UploadMultipart: %v", err)
	}
	if len(etags) != 3 {
		t.Fatalf("expected 3 parts, got %d", len(etags))
	}
	for i, tag := range etags {
		if tag == "" {
			t.Fatalf("part %d missing etag", i)
		}
		if tag[0] == '"' {
			t.Fatalf("part %d etag not unquoted: %q", i, tag)
		}
		want := fmt.Sprintf("etag-%d-%d", i+1, min(int64(PartSize), fileSize-int64(i)*int64(PartSize)))
		if tag != want {
			t.Fatalf("etags[%d] = %q, want %q", i, tag, want)
		}
	}
}

func TestPartCount(t *testing.T) {
	cases := map[int64]int{
		0:                    0,
		1:                    1,
		PartSize:             1,
		PartSize + 1:         2,
		PartSize*3 - 1:       3,
		30 * 1024 * 1024:     3,
	}
	for size, want := range cases {
		if got := PartCount(size); got != want {
			t.Errorf("PartCount(%d) = %d, want %d", size, got, want)
		}
	}
}
