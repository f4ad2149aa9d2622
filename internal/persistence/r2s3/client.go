package r2s3

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// Credentials locate one S3-compatible bucket (Cloudflare R2, MinIO, AWS S3 path-style).
// Region defaults to "auto", which is what R2 expects.
type Credentials struct {
	Endpoint        string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Region          string
}

// Client PUTs report images and audit segments into a bucket.
type Client struct {
	base   string
	bucket string
	signer signer
	http   *http.Client
}

func New(creds Credentials) (*Client, error) {
	endpoint := strings.TrimSpace(creds.Endpoint)
	bucket := strings.TrimSpace(creds.Bucket)
	keyID := strings.TrimSpace(creds.AccessKeyID)
	secret := strings.TrimSpace(creds.SecretAccessKey)
	if endpoint == "" || bucket == "" || keyID == "" || secret == "" {
		return nil, fmt.Errorf("endpoint/bucket/access key/secret key are required")
	}
	if !strings.Contains(endpoint, "://") {
		endpoint = "https://" + endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid endpoint: %s", endpoint)
	}
	region := strings.TrimSpace(creds.Region)
	if region == "" {
		region = "auto"
	}
	return &Client{
		base:   strings.TrimRight(u.String(), "/"),
		bucket: bucket,
		signer: signer{keyID: keyID, secret: secret, region: region, now: time.Now},
		http:   &http.Client{Timeout: 2 * time.Minute},
	}, nil
}

// StatusError is a non-2xx answer from the bucket.
type StatusError struct {
	Status int
	Key    string
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("object put failed status=%d key=%s body=%s", e.Status, e.Key, e.Body)
}

// Temporary reports whether a retry can succeed: throttling and server-side failures.
func (e *StatusError) Temporary() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// artifactKind is how one kind of local file is stored. Report images are overwritten in
// place under the same key; closed audit segments never change.
type artifactKind struct {
	contentType  string
	cacheControl string
}

var artifactKinds = map[string]artifactKind{
	".png":   {contentType: "image/png", cacheControl: "no-cache"},
	".zst":   {contentType: "application/zstd", cacheControl: "max-age=31536000, immutable"},
	".json":  {contentType: "application/json", cacheControl: "no-cache"},
	".jsonl": {contentType: "application/json", cacheControl: "no-cache"},
}

func kindOf(localPath string) artifactKind {
	if k, ok := artifactKinds[strings.ToLower(filepath.Ext(localPath))]; ok {
		return k
	}
	return artifactKind{contentType: "application/octet-stream", cacheControl: "no-cache"}
}

// ContentTypeFor maps the file kinds the report service writes to their MIME types.
func ContentTypeFor(localPath string) string { return kindOf(localPath).contentType }

// PutFile uploads localPath under objectKey. An empty contentType is derived from the extension.
func (c *Client) PutFile(ctx context.Context, objectKey, localPath, contentType string) error {
	key := normalizeObjectKey(objectKey)
	if key == "" {
		return fmt.Errorf("empty object key")
	}
	f, size, digest, err := openHashed(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	kind := kindOf(localPath)
	if contentType != "" {
		kind.contentType = contentType
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.base+"/"+c.bucket+"/"+escapePath(key), f)
	if err != nil {
		return err
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", kind.contentType)
	req.Header.Set("Cache-Control", kind.cacheControl)
	c.signer.sign(req, digest)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 == 2 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8*1024))
	return &StatusError{Status: resp.StatusCode, Key: key, Body: strings.TrimSpace(string(body))}
}

// openHashed opens a regular file and returns it rewound together with its size and sha256.
func openHashed(localPath string) (*os.File, int64, string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return nil, 0, "", err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, "", err
	}
	if !st.Mode().IsRegular() {
		f.Close()
		return nil, 0, "", fmt.Errorf("not a regular file: %s", localPath)
	}
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		f.Close()
		return nil, 0, "", err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return nil, 0, "", err
	}
	return f, st.Size(), hex.EncodeToString(h.Sum(nil)), nil
}

// normalizeObjectKey turns a slash or backslash path into a clean relative key rooted at the
// bucket; ".." cannot climb above the root.
func normalizeObjectKey(key string) string {
	key = strings.TrimSpace(strings.ReplaceAll(key, "\\", "/"))
	clean := strings.TrimPrefix(path.Clean("/"+key), "/")
	if clean == "" || clean == "." {
		return ""
	}
	return clean
}

func escapePath(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
