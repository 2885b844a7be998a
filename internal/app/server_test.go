package app

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/guttosm/pixie-cache/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name             string
		cfg              config.ServerConfig
		wantWriteTimeout time.Duration
	}{
		{
			name:             "short request timeout keeps the default write timeout",
			cfg:              config.ServerConfig{Port: "8080", RequestTimeout: 5 * time.Second},
			wantWriteTimeout: 15 * time.Second,
		},
		{
			name:             "long request timeout extends the write timeout",
			cfg:              config.ServerConfig{Port: "9090", RequestTimeout: 30 * time.Second},
			wantWriteTimeout: 35 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := NewServer(handler, tt.cfg)

			assert.Equal(t, ":"+tt.cfg.Port, server.httpServer.Addr)
			assert.Equal(t, 15*time.Second, server.httpServer.ReadTimeout)
			assert.Equal(t, 5*time.Second, server.httpServer.ReadHeaderTimeout)
			assert.Equal(t, tt.wantWriteTimeout, server.httpServer.WriteTimeout)
			assert.Equal(t, 60*time.Second, server.httpServer.IdleTimeout)
			assert.Equal(t, 10*time.Second, server.shutdownTimeout)
		})
	}
}

func TestServer_ShutdownBeforeStart(t *testing.T) {
	server := NewServer(http.NotFoundHandler(), config.ServerConfig{Port: "0"})

	assert.NoError(t, server.Shutdown())
}

func TestServer_Run_ListenError(t *testing.T) {
	server := NewServer(http.NotFoundHandler(), config.ServerConfig{Port: "invalid-port"})

	err := server.Run(context.Background())

	assert.Error(t, err)
}

func TestServer_Serve_GracefulShutdown(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("pong"))
	})
	server := NewServer(handler, config.ServerConfig{Port: "0"})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- server.Serve(ctx, ln)
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, "pong", string(body))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
