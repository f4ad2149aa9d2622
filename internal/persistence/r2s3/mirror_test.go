package r2s3

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordingUploader struct {
	mu       sync.Mutex
	keys     []string
	types    []string
	failures int
	failWith error
	attempts int
}

func (u *recordingUploader) PutFile(_ context.Context, key, _ string, contentType string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.attempts++
	if u.failures > 0 {
		u.failures--
		if u.failWith != nil {
			return u.failWith
		}
		return errors.New("boom")
	}
	u.keys = append(u.keys, key)
	u.types = append(u.types, contentType)
	return nil
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("png"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestMirror_UploadsWithPrefixedKey(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "alice_all.png")
	writeFile(t, img)

	up := &recordingUploader{failures: 1}
	m := newMirror(up, MirrorConfig{DataDir: dir, Prefix: "/reports/", BackoffUnit: time.Millisecond})
	m.Enqueue(img)
	m.Close()

	st := m.Stats()
	if st.UploadSuccessTotal != 1 || st.UploadFailTotal != 0 || st.EnqueuedTotal != 1 {
		t.Fatalf("stats = %+v", st)
	}
	if len(up.keys) != 1 || up.keys[0] != "reports/alice_all.png" || up.types[0] != "image/png" {
		t.Fatalf("uploads = %v %v", up.keys, up.types)
	}
}

func TestMirror_RejectsPathsOutsideDataDir(t *testing.T) {
	dir := t.TempDir()
	outside := filepath.Join(t.TempDir(), "x.png")
	writeFile(t, outside)

	up := &recordingUploader{}
	m := newMirror(up, MirrorConfig{DataDir: dir})
	m.Enqueue(outside)
	m.Close()

	if st := m.Stats(); st.UploadFailTotal != 1 || len(up.keys) != 0 {
		t.Fatalf("expected rejection, stats=%+v keys=%v", st, up.keys)
	}
}

func TestMirror_GivesUpAfterMaxAttempts(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "bob_shard0.png")
	writeFile(t, img)

	up := &recordingUploader{failures: 10}
	m := newMirror(up, MirrorConfig{DataDir: dir, MaxAttempts: 2, BackoffUnit: time.Millisecond})
	m.Enqueue(img)
	m.Close()

	st := m.Stats()
	if st.UploadFailTotal != 1 || st.UploadSuccessTotal != 0 || st.LastErrorUnix == 0 {
		t.Fatalf("stats = %+v", st)
	}
	if up.failures != 8 {
		t.Fatalf("attempts = %d want 2", 10-up.failures)
	}
}

func TestMirror_PermanentStatusStopsRetrying(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "bob_shard0.png")
	writeFile(t, img)

	up := &recordingUploader{failures: 10, failWith: &StatusError{Status: http.StatusForbidden, Key: "bob_shard0.png"}}
	m := newMirror(up, MirrorConfig{DataDir: dir, MaxAttempts: 4, BackoffUnit: time.Millisecond})
	m.Enqueue(img)
	m.Close()
	if up.attempts != 1 || m.Stats().UploadFailTotal != 1 {
		t.Fatalf("attempts=%d stats=%+v", up.attempts, m.Stats())
	}

	up = &recordingUploader{failures: 1, failWith: &StatusError{Status: http.StatusServiceUnavailable}}
	m = newMirror(up, MirrorConfig{DataDir: dir, MaxAttempts: 4, BackoffUnit: time.Millisecond})
	m.Enqueue(img)
	m.Close()
	if up.attempts != 2 || m.Stats().UploadSuccessTotal != 1 {
		t.Fatalf("503 should be retried: attempts=%d stats=%+v", up.attempts, m.Stats())
	}
}

func TestNilMirrorIsNoop(t *testing.T) {
	var m *Mirror
	m.Enqueue("x")
	m.Close()
	if st := m.Stats(); st != (Stats{}) {
		t.Fatalf("stats = %+v", st)
	}
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := New(Credentials{Endpoint: url, Bucket: "bucket", AccessKeyID: "AKID", SecretAccessKey: "secret"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.signer.now = func() time.Time { return time.Date(2024, 3, 5, 7, 8, 9, 0, time.UTC) }
	return c
}

func TestClient_PutFileSignsRequest(t *testing.T) {
	var (
		gotPath, gotAuth, gotType, gotBody, gotDate, gotCache string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		gotDate = r.Header.Get("X-Amz-Date")
		gotCache = r.Header.Get("Cache-Control")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	img := filepath.Join(t.TempDir(), "alice all.png")
	writeFile(t, img)
	if err := c.PutFile(context.Background(), "/reports/alice all.png", img, ""); err != nil {
		t.Fatalf("PutFile: %v", err)
	}
	if gotPath != "/bucket/reports/alice all.png" {
		t.Fatalf("path = %q", gotPath)
	}
	if !strings.HasPrefix(gotAuth, "AWS4-HMAC-SHA256 Credential=AKID/20240305/auto/s3/aws4_request, SignedHeaders=host;x-amz-content-sha256;x-amz-date, Signature=") {
		t.Fatalf("authorization = %q", gotAuth)
	}
	if gotDate != "20240305T070809Z" {
		t.Fatalf("x-amz-date = %q", gotDate)
	}
	if gotType != "image/png" || gotCache != "no-cache" || gotBody != "png" {
		t.Fatalf("content type=%q cache=%q body=%q", gotType, gotCache, gotBody)
	}

	// Same request, same clock: the signature is stable; another secret changes it.
	first := gotAuth
	if err := c.PutFile(context.Background(), "/reports/alice all.png", img, ""); err != nil {
		t.Fatalf("PutFile again: %v", err)
	}
	if gotAuth != first {
		t.Fatalf("signature not deterministic:\n%s\n%s", first, gotAuth)
	}
	c.signer.secret = "other"
	if err := c.PutFile(context.Background(), "/reports/alice all.png", img, ""); err != nil {
		t.Fatalf("PutFile other secret: %v", err)
	}
	if gotAuth == first {
		t.Fatalf("signature ignores the secret")
	}

	seg := filepath.Join(t.TempDir(), "audit-2024-03-05-07.jsonl.zst")
	writeFile(t, seg)
	if err := c.PutFile(context.Background(), "audit/"+filepath.Base(seg), seg, ""); err != nil {
		t.Fatalf("PutFile segment: %v", err)
	}
	if gotType != "application/zstd" || gotCache != "max-age=31536000, immutable" {
		t.Fatalf("segment content type=%q cache=%q", gotType, gotCache)
	}
}

func TestClient_PutFileStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	img := filepath.Join(t.TempDir(), "a.png")
	writeFile(t, img)
	err := c.PutFile(context.Background(), "a.png", img, "")
	var se *StatusError
	if !errors.As(err, &se) || se.Status != http.StatusForbidden || se.Temporary() || !strings.Contains(err.Error(), "status=403") {
		t.Fatalf("expected 403 StatusError, got %v", err)
	}
}

func TestNew_RequiresCredentials(t *testing.T) {
	if _, err := New(Credentials{Endpoint: "example.com", AccessKeyID: "a", SecretAccessKey: "b"}); err == nil {
		t.Fatalf("expected error for missing bucket")
	}
	if _, err := New(Credentials{Endpoint: "ftp://example.com", Bucket: "x", AccessKeyID: "a", SecretAccessKey: "b"}); err == nil {
		t.Fatalf("expected error for non-http endpoint")
	}
	c, err := New(Credentials{Endpoint: "example.com/", Bucket: "x", AccessKeyID: "a", SecretAccessKey: "b"})
	if err != nil || c.base != "https://example.com" || c.signer.region != "auto" {
		t.Fatalf("New defaults: %+v %v", c, err)
	}
}

func TestNormalizeObjectKey(t *testing.T) {
	cases := map[string]string{
		"/reports/a.png":   "reports/a.png",
		`reports\a.png`:    "reports/a.png",
		"../../a.png":      "a.png",
		"reports/./x/../y": "reports/y",
		"   ":              "",
		"/":                "",
	}
	for in, want := range cases {
		if got := normalizeObjectKey(in); got != want {
			t.Fatalf("normalizeObjectKey(%q) = %q want %q", in, got, want)
		}
	}
}
