package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/guttosm/pixie-cache/internal/circuitbreaker"
	"github.com/guttosm/pixie-cache/internal/metrics"
)

// Fetcher retrieves image bytes from an origin URL. One call is one attempt.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// HTTPFetcherConfig configures an HTTPFetcher.
type HTTPFetcherConfig struct {
	// Timeout bounds a whole fetch. Zero leaves the transport default in place.
	Timeout time.Duration
	// MaxBodyBytes caps the payload size. Zero or less means unlimited.
	MaxBodyBytes int64
	UserAgent    string
	// Breaker is the template for the per-host circuit breakers.
	Breaker circuitbreaker.Config
}

// HTTPFetcher downloads images over HTTP(S). Each origin host gets its own
// circuit breaker; only transport failures count against it.
type HTTPFetcher struct {
	client   *http.Client
	cfg      HTTPFetcherConfig
	breakers *circuitbreaker.Registry
}

// HTTPFetcherOption configures an HTTPFetcher.
type HTTPFetcherOption func(*HTTPFetcher)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) HTTPFetcherOption {
	return func(f *HTTPFetcher) {
		f.client = client
	}
}

// NewHTTPFetcher creates an HTTPFetcher.
func NewHTTPFetcher(cfg HTTPFetcherConfig, opts ...HTTPFetcherOption) *HTTPFetcher {
	breakerCfg := cfg.Breaker
	breakerCfg.IsFailure = func(err error) bool {
		return errors.Is(err, ErrTransport)
	}
	breakerCfg.OnStateChange = func(host string, _, to circuitbreaker.State) {
		metrics.SetOriginBreakerState(host, int(to))
	}

	f := &HTTPFetcher{
		client:   &http.Client{Timeout: cfg.Timeout},
		cfg:      cfg,
		breakers: circuitbreaker.NewRegistry(breakerCfg),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Breakers exposes the per-host breakers for health reporting.
func (f *HTTPFetcher) Breakers() *circuitbreaker.Registry {
	return f.breakers
}

// ParseImageURL validates that rawURL is an absolute http or https URL.
func ParseImageURL(rawURL string) (*url.URL, error) {
	if strings.TrimSpace(rawURL) == "" {
		return nil, fmt.Errorf("%w: empty url", ErrInvalidURL)
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return u, nil
}

// Fetch downloads rawURL and checks that the payload sniffs as an image.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	start := time.Now()

	u, err := ParseImageURL(rawURL)
	if err != nil {
		metrics.RecordFetch(time.Since(start), 0, "invalid_url")
		return nil, err
	}

	var data []byte
	err = f.breakers.Get(u.Host).Execute(ctx, func() error {
		var fetchErr error
		data, fetchErr = f.download(ctx, u)
		return fetchErr
	})
	if err != nil {
		if !errors.Is(err, ErrTransport) && !errors.Is(err, ErrInvalidURL) {
			err = fmt.Errorf("%w: %w", ErrTransport, err)
		}
		metrics.RecordFetch(time.Since(start), 0, fetchResult(err))
		return nil, err
	}

	if err := checkImage(data); err != nil {
		metrics.RecordFetch(time.Since(start), len(data), "decode_error")
		return nil, err
	}

	metrics.RecordFetch(time.Since(start), len(data), "success")
	return data, nil
}

func (f *HTTPFetcher) download(ctx context.Context, u *url.URL) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if f.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", f.cfg.UserAgent)
	}
	req.Header.Set("Accept", "image/*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrTransport, resp.StatusCode)
	}

	var body io.Reader = resp.Body
	if f.cfg.MaxBodyBytes > 0 {
		body = io.LimitReader(resp.Body, f.cfg.MaxBodyBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrTransport, err)
	}
	if f.cfg.MaxBodyBytes > 0 && int64(len(data)) > f.cfg.MaxBodyBytes {
		return nil, fmt.Errorf("%w: payload exceeds %d bytes", ErrTransport, f.cfg.MaxBodyBytes)
	}
	return data, nil
}

// checkImage sniffs the payload's magic bytes.
func checkImage(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty payload", ErrDecode)
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return fmt.Errorf("%w: detected %s", ErrDecode, mt.String())
	}
	return nil
}

// DetectContentType returns the sniffed MIME type of an image payload.
func DetectContentType(data []byte) string {
	return mimetype.Detect(data).String()
}

func fetchResult(err error) string {
	switch {
	case errors.Is(err, ErrInvalidURL):
		return "invalid_url"
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, ErrDecode):
		return "decode_error"
	default:
		return "transport_error"
	}
}
