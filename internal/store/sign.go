package store

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"
)

// signer produces AWS Signature Version 4 presigned URLs. Every signed URL
// carries a bounded validity window; after expiry the request is unusable
// and must be resigned.
type signer struct {
	accessKey string
	secretKey string
	region    string
	now       func() time.Time
}

const (
	signAlgorithm = "AWS4-HMAC-SHA256"
	signService   = "s3"
	// unsignedPayload is used for presigned URLs where the body is not part
	// of the signature.
	unsignedPayload = "UNSIGNED-PAYLOAD"
)

func newSigner(accessKey, secretKey, region string) *signer {
	return &signer{
		accessKey: accessKey,
		secretKey: secretKey,
		region:    region,
		now:       time.Now,
	}
}

// Presign signs method + u for the given validity window. extraHeaders are
// included in the signature and must be sent verbatim with the request
// (conditional-write headers ride through here).
func (s *signer) Presign(method string, u *url.URL, expires time.Duration, extraHeaders map[string]string) *url.URL {
	t := s.now().UTC()
	amzDate := t.Format("20060102T150405Z")
	dateStamp := t.Format("20060102")
	scope := strings.Join([]string{dateStamp, s.region, signService, "aws4_request"}, "/")

	// Signed header set: host plus any conditional headers, sorted.
	headers := map[string]string{"host": u.Host}
	for k, v := range extraHeaders {
		headers[strings.ToLower(k)] = strings.TrimSpace(v)
	}
	headerNames := make([]string, 0, len(headers))
	for k := range headers {
		headerNames = append(headerNames, k)
	}
	sort.Strings(headerNames)
	signedHeaders := strings.Join(headerNames, ";")

	var canonicalHeaders strings.Builder
	for _, k := range headerNames {
		canonicalHeaders.WriteString(k)
		canonicalHeaders.WriteString(":")
		canonicalHeaders.WriteString(headers[k])
		canonicalHeaders.WriteString("\n")
	}

	// Query parameters, existing plus the signing set.
	params := u.Query()
	params.Set("X-Amz-Algorithm", signAlgorithm)
	params.Set("X-Amz-Credential", s.accessKey+"/"+scope)
	params.Set("X-Amz-Date", amzDate)
	params.Set("X-Amz-Expires", fmt.Sprintf("%d", int64(expires.Seconds())))
	params.Set("X-Amz-SignedHeaders", signedHeaders)
	canonicalQuery := canonicalQueryString(params)

	canonicalRequest := strings.Join([]string{
		method,
		canonicalURI(u.Path),
		canonicalQuery,
		canonicalHeaders.String(),
		signedHeaders,
		unsignedPayload,
	}, "\n")

	stringToSign := strings.Join([]string{
		signAlgorithm,
		amzDate,
		scope,
		hexSHA256([]byte(canonicalRequest)),
	}, "\n")

	signature := hex.EncodeToString(hmacSHA256(s.signingKey(dateStamp), stringToSign))

	signed := *u
	signed.RawQuery = canonicalQuery + "&X-Amz-Signature=" + signature
	return &signed
}

// signingKey derives the per-day signing key via the SigV4 HMAC chain.
func (s *signer) signingKey(dateStamp string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+s.secretKey), dateStamp)
	kRegion := hmacSHA256(kDate, s.region)
	kService := hmacSHA256(kRegion, signService)
	return hmacSHA256(kService, "aws4_request")
}

func hmacSHA256(key []byte, data string) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(data))
	return mac.Sum(nil)
}

func hexSHA256(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// canonicalQueryString encodes query parameters the way SigV4 requires:
// keys sorted, AWS URI encoding, space as %20.
func canonicalQueryString(params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		values := append([]string(nil), params[k]...)
		sort.Strings(values)
		for _, v := range values {
			parts = append(parts, uriEncode(k, true)+"="+uriEncode(v, true))
		}
	}
	return strings.Join(parts, "&")
}

// canonicalURI encodes each path segment, leaving the separators intact.
func canonicalURI(path string) string {
	if path == "" {
		return "/"
	}
	return uriEncode(path, false)
}

// uriEncode implements the AWS flavor of percent-encoding: unreserved
// characters pass through, everything else (including '/' when encodeSlash
// is set) becomes %XX with uppercase hex.
func uriEncode(s string, encodeSlash bool) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9',
			c == '-', c == '.', c == '_', c == '~':
			b.WriteByte(c)
		case c == '/' && !encodeSlash:
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "%%%02X", c)
		}
	}
	return b.String()
}
