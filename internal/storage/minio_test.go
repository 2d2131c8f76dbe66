package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/andresuchdata/permitvault/backend-go/internal/config"
	"github.com/stretchr/testify/require"
)

type s3Request struct {
	method string
	path   string
}

// fakeS3 answers every request with status; a non-empty code is sent as an
// S3 XML error body.
func fakeS3(t *testing.T, status int, code string) (*httptest.Server, func() []s3Request) {
	t.Helper()

	var (
		mu   sync.Mutex
		seen []s3Request
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, s3Request{method: r.Method, path: r.URL.Path})
		mu.Unlock()

		if code == "" {
			w.WriteHeader(status)
			return
		}
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>` + code + `</Code><Message>` + code + `</Message></Error>`))
	}))
	t.Cleanup(srv.Close)

	return srv, func() []s3Request {
		mu.Lock()
		defer mu.Unlock()
		return append([]s3Request(nil), seen...)
	}
}

func newTestMinio(t *testing.T, srv *httptest.Server) *MinioClient {
	t.Helper()
	client, err := NewMinioClient(MinioConfig{
		Endpoint:  srv.URL,
		AccessKey: "access",
		SecretKey: "secret",
		Bucket:    "assets",
	})
	require.NoError(t, err)
	return client
}

func TestMinioDeleteObject(t *testing.T) {
	t.Parallel()

	srv, requests := fakeS3(t, http.StatusNoContent, "")
	client := newTestMinio(t, srv)

	require.NoError(t, client.DeleteObject(context.Background(), "permits/p1.jpg"))
	require.Equal(t, []s3Request{{method: http.MethodDelete, path: "/assets/permits/p1.jpg"}}, requests())
}

func TestMinioDeleteTreatsNoSuchKeyAsDeleted(t *testing.T) {
	t.Parallel()

	srv, _ := fakeS3(t, http.StatusNotFound, "NoSuchKey")
	client := newTestMinio(t, srv)

	require.NoError(t, client.DeleteObject(context.Background(), "permits/gone.jpg"))
}

func TestMinioDeleteReportsMissingBucket(t *testing.T) {
	t.Parallel()

	srv, _ := fakeS3(t, http.StatusNotFound, "NoSuchBucket")
	client := newTestMinio(t, srv)

	err := client.DeleteObject(context.Background(), "permits/p1.jpg")
	require.Error(t, err)
	require.Contains(t, err.Error(), "permits/p1.jpg")
}

func TestMinioDeleteSurfacesAccessDenied(t *testing.T) {
	t.Parallel()

	srv, _ := fakeS3(t, http.StatusForbidden, "AccessDenied")
	client := newTestMinio(t, srv)

	err := client.DeleteObject(context.Background(), "permits/p1.jpg")
	require.Error(t, err)
	require.Contains(t, err.Error(), "permits/p1.jpg")
}

func TestSplitEndpoint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		endpoint string
		useSSL   bool
		host     string
		secure   bool
	}{
		{"minio.local:9000", false, "minio.local:9000", false},
		{"minio.local:9000", true, "minio.local:9000", true},
		{"http://minio.local:9000", true, "minio.local:9000", false},
		{"https://s3.example.com", false, "s3.example.com", true},
		{"//minio.local", true, "minio.local", true},
	}
	for _, tt := range tests {
		host, secure, err := splitEndpoint(tt.endpoint, tt.useSSL)
		require.NoError(t, err, tt.endpoint)
		require.Equal(t, tt.host, host, tt.endpoint)
		require.Equal(t, tt.secure, secure, tt.endpoint)
	}
}

func TestNewMinioClientValidation(t *testing.T) {
	t.Parallel()

	_, err := NewMinioClient(MinioConfig{Bucket: "assets"})
	require.Error(t, err)

	_, err = NewMinioClient(MinioConfig{Endpoint: "minio.local:9000"})
	require.Error(t, err)
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), config.StorageConfig{Driver: "ftp"})
	require.ErrorContains(t, err, `unknown storage driver "ftp"`)
}

func TestNewSelectsMinio(t *testing.T) {
	t.Parallel()

	store, err := New(context.Background(), config.StorageConfig{
		Driver:   "s3",
		Bucket:   "assets",
		Endpoint: "minio.local:9000",
	})
	require.NoError(t, err)
	require.IsType(t, &MinioClient{}, store)
	require.NoError(t, store.Close())
}
