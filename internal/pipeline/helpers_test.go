package pipeline

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"sync"
	"testing"
	"time"
)

func solidImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func jpegBytes(t *testing.T, w, h int, c color.NRGBA) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, solidImage(w, h, c), &jpeg.Options{Quality: 95}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// near reports whether two colours match within a JPEG-friendly tolerance.
func near(a, b color.Color, tol int) bool {
	ar, ag, ab, _ := a.RGBA()
	br, bg, bb, _ := b.RGBA()
	diff := func(x, y uint32) int {
		d := int(x>>8) - int(y>>8)
		if d < 0 {
			return -d
		}
		return d
	}
	return diff(ar, br) <= tol && diff(ag, bg) <= tol && diff(ab, bb) <= tol
}

func readZip(t *testing.T, a *Archive) map[string][]byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(a.Data), int64(len(a.Data)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	out := make(map[string][]byte, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open entry %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read entry %s: %v", f.Name, err)
		}
		out[f.Name] = data
	}
	return out
}

// stubFetcher serves canned responses keyed by URL.
type stubFetcher struct {
	mu        sync.Mutex
	responses map[string]stubResponse
	calls     []string
	timeouts  map[string]time.Duration
}

type stubResponse struct {
	body  []byte
	err   error
	panic string
	delay time.Duration
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{responses: map[string]stubResponse{}, timeouts: map[string]time.Duration{}}
}

func (s *stubFetcher) set(url string, r stubResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[url] = r
}

func (s *stubFetcher) Fetch(ctx context.Context, url string, timeout time.Duration) (*FetchResult, error) {
	s.mu.Lock()
	s.calls = append(s.calls, url)
	s.timeouts[url] = timeout
	r, ok := s.responses[url]
	s.mu.Unlock()

	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	if r.panic != "" {
		panic(r.panic)
	}
	if !ok {
		return nil, errors.Join(ErrFetch, errors.New("404 Not Found"))
	}
	if r.err != nil {
		return nil, r.err
	}
	return &FetchResult{Body: r.body, ContentType: "image/jpeg"}, nil
}

func (s *stubFetcher) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}
