package testsupport

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// NewImageServer serves the given bodies as image/jpeg keyed by request path
// and 404s everything else. The server is closed on test cleanup.
func NewImageServer(t testing.TB, images map[string][]byte) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := images[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}
