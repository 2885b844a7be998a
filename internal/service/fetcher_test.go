package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/guttosm/pixie-cache/internal/circuitbreaker"
	"github.com/guttosm/pixie-cache/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pngPayload is a ten byte payload carrying the PNG signature.
var pngPayload = []byte("\x89PNG\r\n\x1a\n\x00\x01")

func newTestFetcher(cfg HTTPFetcherConfig) *HTTPFetcher {
	if cfg.Breaker.Timeout == 0 {
		cfg.Breaker = circuitbreaker.Config{FailureThreshold: 3, SuccessThreshold: 1, Timeout: time.Minute}
	}
	return NewHTTPFetcher(cfg)
}

func TestParseImageURL(t *testing.T) {
	tests := []struct {
		name    string
		rawURL  string
		wantErr bool
	}{
		{name: "http", rawURL: "http://example.com/a.png"},
		{name: "https with query", rawURL: "https://example.com/a?size=2"},
		{name: "empty", rawURL: "", wantErr: true},
		{name: "blank", rawURL: "   ", wantErr: true},
		{name: "relative", rawURL: "/images/a.png", wantErr: true},
		{name: "ftp scheme", rawURL: "ftp://example.com/a.png", wantErr: true},
		{name: "missing host", rawURL: "http:///a.png", wantErr: true},
		{name: "unparseable", rawURL: "http://[::1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := ParseImageURL(tt.rawURL)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidURL)
				assert.Nil(t, u)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, u.Host)
		})
	}
}

func TestHTTPFetcher_Fetch(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		maxBytes int64
		wantData []byte
		wantErr  error
	}{
		{
			name: "returns image bytes",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write(pngPayload)
			},
			wantData: pngPayload,
		},
		{
			name: "non 2xx is a transport error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
			wantErr: ErrTransport,
		},
		{
			name: "payload over the size cap is a transport error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write(pngPayload)
			},
			maxBytes: 4,
			wantErr:  ErrTransport,
		},
		{
			name: "payload at the size cap is accepted",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write(pngPayload)
			},
			maxBytes: int64(len(pngPayload)),
			wantData: pngPayload,
		},
		{
			name: "non image payload is a decode error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("hello, this is plain text"))
			},
			wantErr: ErrDecode,
		},
		{
			name: "empty payload is a decode error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			},
			wantErr: ErrDecode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			f := newTestFetcher(HTTPFetcherConfig{MaxBodyBytes: tt.maxBytes})
			data, err := f.Fetch(context.Background(), server.URL+"/image.png")

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, data)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantData, data)
		})
	}
}

func TestHTTPFetcher_InvalidURL(t *testing.T) {
	f := newTestFetcher(HTTPFetcherConfig{})

	data, err := f.Fetch(context.Background(), "")

	assert.ErrorIs(t, err, ErrInvalidURL)
	assert.False(t, errors.Is(err, ErrTransport))
	assert.Nil(t, data)
	assert.Empty(t, f.Breakers().Stats())
}

func TestHTTPFetcher_SendsHeaders(t *testing.T) {
	var gotUA, gotAccept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		_, _ = w.Write(pngPayload)
	}))
	defer server.Close()

	f := newTestFetcher(HTTPFetcherConfig{UserAgent: "pixie-test/1.0"})
	_, err := f.Fetch(context.Background(), server.URL)

	require.NoError(t, err)
	assert.Equal(t, "pixie-test/1.0", gotUA)
	assert.Equal(t, "image/*", gotAccept)
}

func TestHTTPFetcher_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
		_, _ = w.Write(pngPayload)
	}))
	defer server.Close()

	f := newTestFetcher(HTTPFetcherConfig{Timeout: 50 * time.Millisecond})
	_, err := f.Fetch(context.Background(), server.URL)

	assert.ErrorIs(t, err, ErrTransport)
}

func TestHTTPFetcher_CancelledContext(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write(pngPayload)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := newTestFetcher(HTTPFetcherConfig{})
	_, err := f.Fetch(ctx, server.URL)

	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(0), calls.Load())
}

func TestHTTPFetcher_CircuitBreaker(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	f := NewHTTPFetcher(HTTPFetcherConfig{
		Breaker: circuitbreaker.Config{FailureThreshold: 2, SuccessThreshold: 1, Timeout: time.Minute},
	})

	for i := 0; i < 2; i++ {
		_, err := f.Fetch(context.Background(), server.URL)
		require.ErrorIs(t, err, ErrTransport)
	}

	_, err := f.Fetch(context.Background(), server.URL)

	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
	assert.Equal(t, int32(2), calls.Load())

	stats := f.Breakers().Stats()
	require.Len(t, stats, 1)
	assert.Equal(t, "open", stats[0].State)
	assert.False(t, stats[0].IsHealthy)

	u, err := url.Parse(server.URL)
	require.NoError(t, err)
	assert.Equal(t, float64(circuitbreaker.StateOpen), testutil.ToFloat64(metrics.OriginBreakerState.WithLabelValues(u.Host)))
}

func TestHTTPFetcher_DecodeErrorsDoNotTripBreaker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not an image at all"))
	}))
	defer server.Close()

	f := NewHTTPFetcher(HTTPFetcherConfig{
		Breaker: circuitbreaker.Config{FailureThreshold: 1, SuccessThreshold: 1, Timeout: time.Minute},
	})

	for i := 0; i < 3; i++ {
		_, err := f.Fetch(context.Background(), server.URL)
		require.ErrorIs(t, err, ErrDecode)
	}

	stats := f.Breakers().Stats()
	require.Len(t, stats, 1)
	assert.Equal(t, "closed", stats[0].State)
}

func TestDetectContentType(t *testing.T) {
	assert.Equal(t, "image/png", DetectContentType(pngPayload))
	assert.Equal(t, "image/jpeg", DetectContentType([]byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00")))
}
