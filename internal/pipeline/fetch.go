package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultUserAgent mimics a desktop browser; some image hosts reject bare clients.
	DefaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	DefaultAccept         = "image/avif,image/webp,image/apng,image/*,*/*;q=0.8"
	DefaultAcceptLanguage = "en-US,en;q=0.9"

	// DefaultMaxBytes caps a single download.
	DefaultMaxBytes int64 = 64 << 20
)

// FetchResult is the raw payload of a successful fetch.
type FetchResult struct {
	Body        []byte
	ContentType string
}

// Fetcher retrieves the bytes behind a URL. Implementations must wrap every
// failure with ErrFetch and honour ctx and timeout.
type Fetcher interface {
	Fetch(ctx context.Context, url string, timeout time.Duration) (*FetchResult, error)
}

// Headers are the browser-like request headers sent with every fetch.
type Headers struct {
	UserAgent      string
	Accept         string
	AcceptLanguage string
	// Referer is omitted when empty; the request origin is used instead.
	Referer string
}

// DefaultHeaders returns the stock browser header set.
func DefaultHeaders() Headers {
	return Headers{
		UserAgent:      DefaultUserAgent,
		Accept:         DefaultAccept,
		AcceptLanguage: DefaultAcceptLanguage,
	}
}

// HTTPFetcher fetches over HTTP(S) and accepts only 2xx responses whose
// Content-Type is image/*.
type HTTPFetcher struct {
	client   *http.Client
	headers  Headers
	maxBytes int64
}

// NewHTTPFetcher builds a fetcher. A nil client uses a dedicated http.Client;
// per-request deadlines come from the timeout passed to Fetch.
func NewHTTPFetcher(client *http.Client, headers Headers) *HTTPFetcher {
	if client == nil {
		client = &http.Client{}
	}
	defaults := DefaultHeaders()
	if strings.TrimSpace(headers.UserAgent) == "" {
		headers.UserAgent = defaults.UserAgent
	}
	if strings.TrimSpace(headers.Accept) == "" {
		headers.Accept = defaults.Accept
	}
	if strings.TrimSpace(headers.AcceptLanguage) == "" {
		headers.AcceptLanguage = defaults.AcceptLanguage
	}
	return &HTTPFetcher{client: client, headers: headers, maxBytes: DefaultMaxBytes}
}

// Fetch downloads url within timeout.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string, timeout time.Duration) (*FetchResult, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrFetch, err)
	}
	f.applyHeaders(req)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: unexpected status %s", ErrFetch, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if !isImageContentType(contentType) {
		return nil, fmt.Errorf("%w: content type %q is not an image", ErrFetch, contentType)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrFetch, err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("%w: response larger than %d bytes", ErrFetch, f.maxBytes)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty response body", ErrFetch)
	}

	return &FetchResult{Body: body, ContentType: contentType}, nil
}

func (f *HTTPFetcher) applyHeaders(req *http.Request) {
	req.Header.Set("User-Agent", f.headers.UserAgent)
	req.Header.Set("Accept", f.headers.Accept)
	req.Header.Set("Accept-Language", f.headers.AcceptLanguage)
	referer := strings.TrimSpace(f.headers.Referer)
	if referer == "" && req.URL != nil {
		referer = req.URL.Scheme + "://" + req.URL.Host + "/"
	}
	req.Header.Set("Referer", referer)
}

func isImageContentType(value string) bool {
	if strings.TrimSpace(value) == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(value)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mediaType, "image/")
}

// timeoutError reports whether err came from a fetch deadline.
func timeoutError(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
