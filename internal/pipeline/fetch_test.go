package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPFetcherSendsBrowserHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(jpegBytes(t, 2, 2, red))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(srv.Client(), Headers{Referer: "https://shop.example.com/"})
	res, err := f.Fetch(context.Background(), srv.URL+"/a.jpg", time.Second)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res.ContentType != "image/jpeg" || len(res.Body) == 0 {
		t.Fatalf("unexpected result: %q, %d bytes", res.ContentType, len(res.Body))
	}
	if got.Get("User-Agent") != DefaultUserAgent {
		t.Errorf("User-Agent = %q", got.Get("User-Agent"))
	}
	if got.Get("Accept") != DefaultAccept {
		t.Errorf("Accept = %q", got.Get("Accept"))
	}
	if got.Get("Accept-Language") != DefaultAcceptLanguage {
		t.Errorf("Accept-Language = %q", got.Get("Accept-Language"))
	}
	if got.Get("Referer") != "https://shop.example.com/" {
		t.Errorf("Referer = %q", got.Get("Referer"))
	}
}

func TestHTTPFetcherDefaultsRefererToOrigin(t *testing.T) {
	var referer string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		referer = r.Header.Get("Referer")
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(pngBytes(t, solidImage(1, 1, red)))
	}))
	defer srv.Close()

	if _, err := NewHTTPFetcher(srv.Client(), Headers{}).Fetch(context.Background(), srv.URL+"/x.png", time.Second); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if referer != srv.URL+"/" {
		t.Fatalf("Referer = %q, want %q", referer, srv.URL+"/")
	}
}

func TestHTTPFetcherFailures(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		contentType string
		body        string
	}{
		{"not found", http.StatusNotFound, "image/jpeg", "missing"},
		{"server error", http.StatusInternalServerError, "image/jpeg", "boom"},
		{"html with 200", http.StatusOK, "text/html; charset=utf-8", "<html></html>"},
		{"html with 404", http.StatusNotFound, "text/html", "<html></html>"},
		{"no content type", http.StatusOK, "", ""},
		{"empty image body", http.StatusOK, "image/jpeg", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				// Suppress Go's sniffing so an empty value reaches the client.
				w.Header()["Content-Type"] = []string{tt.contentType}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewHTTPFetcher(srv.Client(), Headers{}).Fetch(context.Background(), srv.URL, time.Second)
			if !errors.Is(err, ErrFetch) {
				t.Fatalf("Fetch err = %v, want ErrFetch", err)
			}
		})
	}
}

func TestHTTPFetcherTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := NewHTTPFetcher(srv.Client(), Headers{}).Fetch(context.Background(), srv.URL, 50*time.Millisecond)
	if !errors.Is(err, ErrFetch) {
		t.Fatalf("Fetch err = %v, want ErrFetch", err)
	}
	if !timeoutError(err) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestHTTPFetcherUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	if _, err := NewHTTPFetcher(nil, Headers{}).Fetch(context.Background(), url, time.Second); !errors.Is(err, ErrFetch) {
		t.Fatalf("Fetch err = %v, want ErrFetch", err)
	}
}
