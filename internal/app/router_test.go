package app

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/guttosm/pixie-cache/config"
	"github.com/guttosm/pixie-cache/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeRouter_Readiness(t *testing.T) {
	fsys := memfs.New()
	settings := service.DefaultSettings()
	services := NewServiceComponents(fsys, config.FetchConfig{Timeout: time.Second}, settings)
	router := InitializeRouter(services, config.ServerConfig{RequestTimeout: time.Second})

	ready := func() int {
		req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, ready())

	require.NoError(t, util.RemoveAll(fsys, settings.DirectoryName))
	assert.Equal(t, http.StatusServiceUnavailable, ready())

	services.Coordinator.ConfigureForMemory(1)
	assert.Equal(t, http.StatusOK, ready(), "a missing directory does not matter on the memory tier")
}
