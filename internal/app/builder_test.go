package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/omnifield-ingest/internal/config"
	"github.com/stacklok/omnifield-ingest/internal/dashboard"
	"github.com/stacklok/omnifield-ingest/internal/sources"
	"github.com/stacklok/omnifield-ingest/internal/status"
	syncmocks "github.com/stacklok/omnifield-ingest/internal/sync/mocks"
)

// createTestConfig declares a loadable petro table and a missing sensors file
func createTestConfig(t *testing.T) *config.Config {
	t.Helper()

	dir := t.TempDir()
	petro := filepath.Join(dir, "petro.csv")
	require.NoError(t, os.WriteFile(petro, []byte("depth,pressure\n100,3000\n200,3100\n"), 0600))

	return &config.Config{
		RegistryName: "test-field",
		Sources: []config.SourceConfig{
			{Name: "petro", File: &config.FileConfig{Path: petro}},
			{Name: "sensors", File: &config.FileConfig{Path: filepath.Join(dir, "sensors.csv")}},
		},
		StatusDir: filepath.Join(dir, "status"),
		SchemaDir: filepath.Join(dir, "schemas"),
	}
}

func TestBaseConfigDefaults(t *testing.T) {
	t.Parallel()

	built, err := baseConfig(WithConfig(&config.Config{}))
	require.NoError(t, err)
	assert.Equal(t, defaultHTTPAddress, built.address)
	assert.Equal(t, defaultRequestTimeout, built.requestTimeout)
	assert.Equal(t, defaultReadTimeout, built.readTimeout)
	assert.Equal(t, defaultWriteTimeout, built.writeTimeout)
	assert.Equal(t, defaultIdleTimeout, built.idleTimeout)
}

func TestWithAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		addr    string
		wantErr bool
	}{
		{addr: ":8080"},
		{addr: "localhost:9090"},
		{addr: "127.0.0.1:0"},
		{addr: "", wantErr: true},
		{addr: ":", wantErr: true},
		{addr: "8080", wantErr: true},
		{addr: "not-a-host:80", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			t.Parallel()
			built, err := baseConfig(WithAddress(tt.addr))
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, built)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.addr, built.address)
		})
	}
}

func TestNewRegistryApp_RequiresConfig(t *testing.T) {
	t.Parallel()

	_, err := NewRegistryApp(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config cannot be nil")
}

func TestNewRegistryApp_Minimal(t *testing.T) {
	t.Parallel()

	cfg := createTestConfig(t)
	app, err := NewRegistryApp(context.Background(),
		WithConfig(cfg),
		WithAddress("127.0.0.1:0"),
		WithStatusPersistence(status.NewMemoryStatusPersistence()),
		WithSchemaStore(sources.NewMemorySchemaStore()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Stop(time.Second) })

	c := app.Components()
	require.NotNil(t, c.Registry)
	require.NotNil(t, c.Tracker)
	require.NotNil(t, c.Dashboard)
	require.NotNil(t, c.Telemetry)
	assert.Nil(t, c.SyncCoordinator, "no refresh interval configured")
	assert.Nil(t, c.Watcher, "watching not enabled")

	assert.False(t, c.Registry.Ready(), "nothing loads before Start")
	assert.Equal(t, dashboard.DefaultBindings(), c.Dashboard.Bindings())
	assert.Same(t, cfg, app.GetConfig())
	assert.Equal(t, "127.0.0.1:0", app.GetHTTPServer().Addr)
}

func TestNewRegistryApp_SyncComponents(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	manager := syncmocks.NewMockManager(ctrl)

	cfg := createTestConfig(t)
	cfg.Cache = config.CacheConfig{RefreshInterval: "1m", Watch: true}
	cfg.Dashboard = &config.DashboardConfig{Modules: map[string]string{"safety": "petro"}}

	app, err := NewRegistryApp(context.Background(),
		WithConfig(cfg),
		WithSyncManager(manager),
		WithStatusPersistence(status.NewMemoryStatusPersistence()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Stop(time.Second) })

	c := app.Components()
	assert.NotNil(t, c.SyncCoordinator)
	require.NotNil(t, c.Watcher)
	assert.Equal(t, 2, c.Watcher.Paths())
	assert.Equal(t, "petro", c.Dashboard.Bindings()[dashboard.ModuleSafety])
}

func TestNewRegistryApp_InvalidBinding(t *testing.T) {
	t.Parallel()

	cfg := createTestConfig(t)
	cfg.Dashboard = &config.DashboardConfig{Modules: map[string]string{"finance": "petro"}}

	_, err := NewRegistryApp(context.Background(),
		WithConfig(cfg),
		WithStatusPersistence(status.NewMemoryStatusPersistence()),
	)
	require.ErrorIs(t, err, dashboard.ErrUnknownModule)
}

func TestBuildHTTPServer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		middlewares    []func(http.Handler) http.Handler
		address        string
		timeouts       [3]time.Duration
		wantMiddleware int
	}{
		{
			name:     "default middlewares",
			address:  ":8080",
			timeouts: [3]time.Duration{10 * time.Second, 15 * time.Second, 60 * time.Second},
			// RequestID, RealIP, Recoverer, Timeout, LoggingMiddleware
			wantMiddleware: 5,
		},
		{
			name:           "custom middlewares",
			address:        "127.0.0.1:3000",
			middlewares:    []func(http.Handler) http.Handler{func(next http.Handler) http.Handler { return next }},
			timeouts:       [3]time.Duration{5 * time.Second, 10 * time.Second, 30 * time.Second},
			wantMiddleware: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			b := &registryAppConfig{
				config:            createTestConfig(t),
				address:           tt.address,
				middlewares:       tt.middlewares,
				requestTimeout:    time.Second,
				readTimeout:       tt.timeouts[0],
				writeTimeout:      tt.timeouts[1],
				idleTimeout:       tt.timeouts[2],
				statusPersistence: status.NewMemoryStatusPersistence(),
				schemaStore:       sources.NewMemorySchemaStore(),
			}
			var err error
			b.telemetry, err = newTestTelemetry(t)
			require.NoError(t, err)

			components, err := buildRegistryComponents(context.Background(), b)
			require.NoError(t, err)
			components.Telemetry = b.telemetry
			t.Cleanup(components.Registry.Close)

			server, err := buildHTTPServer(context.Background(), b, components)
			require.NoError(t, err)
			assert.Equal(t, tt.address, server.Addr)
			assert.Equal(t, tt.timeouts[0], server.ReadTimeout)
			assert.Equal(t, tt.timeouts[1], server.WriteTimeout)
			assert.Equal(t, tt.timeouts[2], server.IdleTimeout)
			assert.Len(t, b.middlewares, tt.wantMiddleware)

			rr := httptest.NewRecorder()
			server.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/modules", nil))
			assert.Equal(t, http.StatusOK, rr.Code)
		})
	}
}

func TestBuildSyncComponents_Disabled(t *testing.T) {
	t.Parallel()

	b := &registryAppConfig{config: createTestConfig(t)}
	c := &AppComponents{}
	require.NoError(t, buildSyncComponents(b, c))
	assert.Nil(t, c.SyncCoordinator)
	assert.Nil(t, c.Watcher)
	assert.Nil(t, b.syncManager)
}
