package netx

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestDownloadFromPresignedURL(t *testing.T) {
	payload := []byte(`{"messages":[]}`)

	t.Run("success 200 OK", func(t *testing.T) {
		var gotMethod, gotQuery string

		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotMethod = r.Method
			gotQuery = r.URL.RawQuery
			_, _ = w.Write(payload)
		}))
		defer ts.Close()

		got, err := DownloadFromPresignedURL(context.Background(), ts.URL+"/exports/x.json?X-Amz-Signature=abc")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if gotMethod != http.MethodGet {
			t.Fatalf("method = %q, want GET", gotMethod)
		}
		if gotQuery != "X-Amz-Signature=abc" {
			t.Fatalf("query = %q, want signature preserved", gotQuery)
		}
		if !bytes.Equal(got, payload) {
			t.Fatalf("body = %q, want %q", string(got), string(payload))
		}
	})

	t.Run("non-200 -> error", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte("<Error>SignatureDoesNotMatch</Error>"))
		}))
		defer ts.Close()

		_, err := DownloadFromPresignedURL(context.Background(), ts.URL)
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if !strings.Contains(err.Error(), "download failed: 403") || !strings.Contains(err.Error(), "SignatureDoesNotMatch") {
			t.Fatalf("error = %q, want status and body", err.Error())
		}
	})

	t.Run("bad url -> error", func(t *testing.T) {
		if _, err := DownloadFromPresignedURL(context.Background(), "://bad"); err == nil {
			t.Fatal("expected error, got nil")
		}
	})

	t.Run("cancelled context -> error", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write(payload)
		}))
		defer ts.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := DownloadFromPresignedURL(ctx, ts.URL); err == nil {
			t.Fatal("expected error, got nil")
		}
	})
}
