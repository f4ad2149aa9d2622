package r2s3

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"time"
)

const sigV4Algorithm = "AWS4-HMAC-SHA256"

// signedHeaders is sorted, as the canonical request requires.
var signedHeaders = []string{"host", "x-amz-content-sha256", "x-amz-date"}

// signer adds an AWS SigV4 Authorization header for the s3 service.
type signer struct {
	keyID  string
	secret string
	region string
	now    func() time.Time
}

func (s signer) sign(req *http.Request, payloadSHA256 string) {
	now := s.now().UTC()
	amzDate := now.Format("20060102T150405Z")
	day := now.Format("20060102")

	req.Header.Set("X-Amz-Date", amzDate)
	req.Header.Set("X-Amz-Content-Sha256", payloadSHA256)

	var canonHeaders strings.Builder
	for _, h := range signedHeaders {
		v := req.Header.Get(h)
		if h == "host" {
			v = req.URL.Host
		}
		canonHeaders.WriteString(h + ":" + strings.TrimSpace(v) + "\n")
	}
	headerList := strings.Join(signedHeaders, ";")

	canonical := strings.Join([]string{
		req.Method,
		req.URL.EscapedPath(),
		req.URL.RawQuery,
		canonHeaders.String(),
		headerList,
		payloadSHA256,
	}, "\n")

	scope := day + "/" + s.region + "/s3/aws4_request"
	sum := sha256.Sum256([]byte(canonical))
	toSign := sigV4Algorithm + "\n" + amzDate + "\n" + scope + "\n" + hex.EncodeToString(sum[:])

	key := []byte("AWS4" + s.secret)
	for _, part := range []string{day, s.region, "s3", "aws4_request"} {
		key = hmacSHA256(key, part)
	}
	sig := hex.EncodeToString(hmacSHA256(key, toSign))

	req.Header.Set("Authorization", sigV4Algorithm+" Credential="+s.keyID+"/"+scope+
		", SignedHeaders="+headerList+", Signature="+sig)
}

func hmacSHA256(key []byte, data string) []byte {
	h := hmac.New(sha256.New, key)
	_, _ = h.Write([]byte(data))
	return h.Sum(nil)
}
