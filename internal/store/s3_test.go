package store

import (
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
)

// fakeS3 is an httptest-backed S3-compatible endpoint covering the subset
// of the protocol the client uses: bucket head/create, ListObjectsV2, get,
// and conditional put.
type fakeS3 struct {
	mu      sync.Mutex
	bucket  string
	created bool
	objects map[string][]byte
}

func newFakeS3(bucket string, created bool) *fakeS3 {
	return &fakeS3{
		bucket:  bucket,
		created: created,
		objects: make(map[string][]byte),
	}
}

func (f *fakeS3) etag(data []byte) string {
	return fmt.Sprintf("%x", md5.Sum(data))
}

func (f *fakeS3) router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/{bucket}", f.handleBucket).Methods(http.MethodHead, http.MethodPut, http.MethodGet)
	r.HandleFunc("/{bucket}/{key:.+}", f.handleObject).Methods(http.MethodGet, http.MethodPut)
	return r
}

func (f *fakeS3) handleBucket(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if mux.Vars(r)["bucket"] != f.bucket {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	switch r.Method {
	case http.MethodHead:
		if f.created {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	case http.MethodPut:
		f.created = true
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		if !f.created {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprint(w, `<?xml version="1.0" encoding="UTF-8"?><ListBucketResult>`)
		fmt.Fprint(w, `<IsTruncated>false</IsTruncated>`)
		for key, data := range f.objects {
			fmt.Fprintf(w, "<Contents><Key>%s</Key><Size>%d</Size><LastModified>%s</LastModified><ETag>&#34;%s&#34;</ETag></Contents>",
				key, len(data), time.Now().UTC().Format(time.RFC3339), f.etag(data))
		}
		fmt.Fprint(w, `</ListBucketResult>`)
	}
}

func (f *fakeS3) handleObject(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	vars := mux.Vars(r)
	if vars["bucket"] != f.bucket {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	key := vars["key"]

	switch r.Method {
	case http.MethodGet:
		data, ok := f.objects[key]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("ETag", `"`+f.etag(data)+`"`)
		w.Write(data)
	case http.MethodPut:
		existing, exists := f.objects[key]
		if match := r.Header.Get("If-Match"); match != "" {
			if !exists || `"`+f.etag(existing)+`"` != match {
				w.WriteHeader(http.StatusPreconditionFailed)
				return
			}
		}
		if r.Header.Get("If-None-Match") == "*" && exists {
			w.WriteHeader(http.StatusPreconditionFailed)
			return
		}
		body, _ := io.ReadAll(r.Body)
		f.objects[key] = body
		w.WriteHeader(http.StatusOK)
	}
}

func newTestClient(t *testing.T, f *fakeS3) *S3Client {
	t.Helper()
	server := httptest.NewServer(f.router())
	t.Cleanup(server.Close)

	client, err := NewS3Client(server.URL, f.bucket, "test-access", "test-secret", "us-east-1")
	if err != nil {
		t.Fatal(err)
	}
	return client
}

func TestS3PutGetRoundTrip(t *testing.T) {
	f := newFakeS3("packages", true)
	client := newTestClient(t, f)
	ctx := context.Background()

	data := []byte("artifact bytes")
	err := client.PutObject(ctx, "demo-1.0.0.tgz", data, PutOptions{ContentType: "application/gzip"})
	if err != nil {
		t.Fatalf("PutObject() error = %v", err)
	}

	obj, err := client.GetObject(ctx, "demo-1.0.0.tgz")
	if err != nil {
		t.Fatalf("GetObject() error = %v", err)
	}
	if string(obj.Data) != string(data) {
		t.Errorf("data = %q, want %q", obj.Data, data)
	}
	if obj.ETag == "" {
		t.Error("ETag not captured from response")
	}
}

func TestS3GetNotFound(t *testing.T) {
	client := newTestClient(t, newFakeS3("packages", true))

	_, err := client.GetObject(context.Background(), "absent.tgz")
	if !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("GetObject() error = %v, want ErrObjectNotFound", err)
	}
}

func TestS3ListObjects(t *testing.T) {
	f := newFakeS3("packages", true)
	client := newTestClient(t, f)
	ctx := context.Background()

	for _, key := range []string{"a-1.0.0.tgz", "b-2.0.0.tgz"} {
		if err := client.PutObject(ctx, key, []byte("x"), PutOptions{}); err != nil {
			t.Fatal(err)
		}
	}

	objects, err := client.ListObjects(ctx)
	if err != nil {
		t.Fatalf("ListObjects() error = %v", err)
	}
	if len(objects) != 2 {
		t.Fatalf("listed %d objects, want 2", len(objects))
	}
	for _, obj := range objects {
		if obj.Size != 1 || obj.ETag == "" {
			t.Errorf("object %s: size=%d etag=%q", obj.Key, obj.Size, obj.ETag)
		}
	}
}

func TestS3ConditionalPut(t *testing.T) {
	f := newFakeS3("packages", true)
	client := newTestClient(t, f)
	ctx := context.Background()

	// Create-only precondition on an empty key succeeds once.
	if err := client.PutObject(ctx, "doc.json", []byte("v1"), PutOptions{IfNoneMatchAny: true}); err != nil {
		t.Fatalf("create-only put failed: %v", err)
	}
	if err := client.PutObject(ctx, "doc.json", []byte("v1b"), PutOptions{IfNoneMatchAny: true}); !errors.Is(err, ErrPreconditionFailed) {
		t.Errorf("second create-only put error = %v, want ErrPreconditionFailed", err)
	}

	obj, err := client.GetObject(ctx, "doc.json")
	if err != nil {
		t.Fatal(err)
	}

	// If-Match with the current ETag succeeds.
	if err := client.PutObject(ctx, "doc.json", []byte("v2"), PutOptions{IfMatch: obj.ETag}); err != nil {
		t.Fatalf("if-match put failed: %v", err)
	}

	// The old ETag is now stale.
	if err := client.PutObject(ctx, "doc.json", []byte("v3"), PutOptions{IfMatch: obj.ETag}); !errors.Is(err, ErrPreconditionFailed) {
		t.Errorf("stale if-match put error = %v, want ErrPreconditionFailed", err)
	}
}

func TestS3BucketLifecycle(t *testing.T) {
	f := newFakeS3("packages", false)
	client := newTestClient(t, f)
	ctx := context.Background()

	exists, err := client.BucketExists(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Error("BucketExists() = true before creation")
	}

	if err := client.EnsureBucket(ctx); err != nil {
		t.Fatalf("EnsureBucket() error = %v", err)
	}

	exists, err = client.BucketExists(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !exists {
		t.Error("BucketExists() = false after EnsureBucket")
	}
}

func TestS3RequestsArePresigned(t *testing.T) {
	var sawSignature bool
	f := newFakeS3("packages", true)
	router := f.router()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("X-Amz-Signature") != "" && q.Get("X-Amz-Algorithm") == "AWS4-HMAC-SHA256" {
			sawSignature = true
		}
		router.ServeHTTP(w, r)
	}))
	defer server.Close()

	client, err := NewS3Client(server.URL, "packages", "ak", "sk", "us-east-1")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := client.ListObjects(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !sawSignature {
		t.Error("request was not presigned")
	}
}
