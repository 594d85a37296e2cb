package store

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultPresignTTL bounds the validity window of every signed request.
const DefaultPresignTTL = 15 * time.Minute

// S3Client talks to an S3-compatible object store with path-style URLs.
// Every request is presigned with a bounded validity window; anonymous
// access (no credentials) sends unsigned requests.
type S3Client struct {
	baseURL    *url.URL
	bucket     string
	signer     *signer
	httpClient *http.Client
	presignTTL time.Duration
}

// Ensure S3Client implements Client
var _ Client = (*S3Client)(nil)

// NewS3Client creates a client for one bucket on an S3-compatible endpoint.
// Endpoints without a scheme default to https. Empty credentials mean
// anonymous (unsigned) access.
func NewS3Client(endpoint, bucket, accessKey, secretKey, region string) (*S3Client, error) {
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		endpoint = "https://" + endpoint
	}
	endpoint = strings.TrimRight(endpoint, "/")

	base, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}

	var sig *signer
	if accessKey != "" && secretKey != "" {
		sig = newSigner(accessKey, secretKey, region)
	}

	return &S3Client{
		baseURL: base,
		bucket:  bucket,
		signer:  sig,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		presignTTL: DefaultPresignTTL,
	}, nil
}

// listBucketResult is the ListObjectsV2 XML response body.
type listBucketResult struct {
	XMLName               xml.Name     `xml:"ListBucketResult"`
	IsTruncated           bool         `xml:"IsTruncated"`
	NextContinuationToken string       `xml:"NextContinuationToken"`
	Contents              []listObject `xml:"Contents"`
}

type listObject struct {
	Key          string `xml:"Key"`
	Size         int64  `xml:"Size"`
	LastModified string `xml:"LastModified"`
	ETag         string `xml:"ETag"`
}

// ListObjects enumerates the bucket, following continuation tokens.
func (c *S3Client) ListObjects(ctx context.Context) ([]ObjectInfo, error) {
	var objects []ObjectInfo
	token := ""

	for {
		query := url.Values{"list-type": {"2"}}
		if token != "" {
			query.Set("continuation-token", token)
		}

		resp, err := c.do(ctx, http.MethodGet, c.bucketURL(query), nil, nil, "list")
		if err != nil {
			return nil, err
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, &TransportError{Op: "list", Err: err}
		}
		if resp.StatusCode != http.StatusOK {
			return nil, &TransportError{Op: "list", Status: resp.StatusCode}
		}

		var result listBucketResult
		if err := xml.Unmarshal(body, &result); err != nil {
			return nil, &TransportError{Op: "list", Err: fmt.Errorf("failed to parse listing: %w", err)}
		}

		for _, obj := range result.Contents {
			info := ObjectInfo{
				Key:  obj.Key,
				Size: obj.Size,
				ETag: strings.Trim(obj.ETag, `"`),
			}
			if obj.LastModified != "" {
				if t, err := time.Parse(time.RFC3339, obj.LastModified); err == nil {
					info.LastModified = t
				}
			}
			objects = append(objects, info)
		}

		if !result.IsTruncated || result.NextContinuationToken == "" {
			break
		}
		token = result.NextContinuationToken
	}

	return objects, nil
}

// GetObject fetches one object by key.
func (c *S3Client) GetObject(ctx context.Context, key string) (*Object, error) {
	resp, err := c.do(ctx, http.MethodGet, c.objectURL(key), nil, nil, "get")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("object %s: %w", key, ErrObjectNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &TransportError{Op: "get", Key: key, Status: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: "get", Key: key, Err: err}
	}

	obj := &Object{
		Data:        data,
		ETag:        strings.Trim(resp.Header.Get("ETag"), `"`),
		ContentType: resp.Header.Get("Content-Type"),
	}
	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, err := http.ParseTime(lm); err == nil {
			obj.LastModified = t
		}
	}
	return obj, nil
}

// PutObject stores one object, honoring write preconditions.
func (c *S3Client) PutObject(ctx context.Context, key string, data []byte, opts PutOptions) error {
	headers := map[string]string{}
	if opts.ContentType != "" {
		headers["Content-Type"] = opts.ContentType
	}
	if opts.IfMatch != "" {
		headers["If-Match"] = `"` + opts.IfMatch + `"`
	}
	if opts.IfNoneMatchAny {
		headers["If-None-Match"] = "*"
	}

	resp, err := c.do(ctx, http.MethodPut, c.objectURL(key), data, headers, "put")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusPreconditionFailed {
		return fmt.Errorf("object %s: %w", key, ErrPreconditionFailed)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &TransportError{Op: "put", Key: key, Status: resp.StatusCode}
	}
	return nil
}

// BucketExists checks the bucket with a HEAD request.
func (c *S3Client) BucketExists(ctx context.Context) (bool, error) {
	resp, err := c.do(ctx, http.MethodHead, c.bucketURL(nil), nil, nil, "head bucket")
	if err != nil {
		return false, err
	}
	resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return true, nil
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	default:
		return false, &TransportError{Op: "head bucket", Status: resp.StatusCode}
	}
}

// EnsureBucket creates the bucket when it does not exist yet.
func (c *S3Client) EnsureBucket(ctx context.Context) error {
	exists, err := c.BucketExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	resp, err := c.do(ctx, http.MethodPut, c.bucketURL(nil), nil, nil, "create bucket")
	if err != nil {
		return err
	}
	resp.Body.Close()

	// 409 means another writer created it first, which is fine.
	if resp.StatusCode == http.StatusConflict {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &TransportError{Op: "create bucket", Status: resp.StatusCode}
	}
	return nil
}

// do presigns and executes one request. There are no retries: any transport
// failure aborts the caller's operation.
func (c *S3Client) do(ctx context.Context, method string, u *url.URL, body []byte, headers map[string]string, op string) (*http.Response, error) {
	if c.signer != nil {
		u = c.signer.Presign(method, u, c.presignTTL, headers)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	return resp, nil
}

func (c *S3Client) bucketURL(query url.Values) *url.URL {
	u := *c.baseURL
	u.Path = "/" + c.bucket
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return &u
}

func (c *S3Client) objectURL(key string) *url.URL {
	u := *c.baseURL
	u.Path = "/" + c.bucket + "/" + key
	return &u
}
