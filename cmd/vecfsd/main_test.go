package main

import (
	"bytes"
	"context"
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/vecfs/internal/config"
	"github.com/fyrsmithlabs/vecfs/internal/logging"
	"github.com/fyrsmithlabs/vecfs/internal/resource"
	"github.com/fyrsmithlabs/vecfs/internal/telemetry"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Storage.InMemory = true
	cfg.Storage.GCInterval = 0
	cfg.Embeddings.Provider = "hash"
	cfg.Embeddings.Dimension = 32
	cfg.Server.DefaultTenant = "alice"
	return cfg
}

func TestNewApp_ServesHealth(t *testing.T) {
	a, err := newApp(context.Background(), testConfig(), zap.NewNop(), nil)
	require.NoError(t, err)
	t.Cleanup(a.close)

	assert.Equal(t, 32, a.provider.Dimension())

	rec := httptest.NewRecorder()
	a.server.Handler().ServeHTTP(rec, httptest.NewRequest(nethttp.MethodGet, "/health", nil))
	require.Equal(t, nethttp.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestNewApp_DefaultTenantServesTree(t *testing.T) {
	a, err := newApp(context.Background(), testConfig(), zap.NewNop(), nil)
	require.NoError(t, err)
	t.Cleanup(a.close)

	rec := httptest.NewRecorder()
	a.server.Handler().ServeHTTP(rec, httptest.NewRequest(nethttp.MethodGet, "/v2/fs/tree", nil))
	assert.Equal(t, nethttp.StatusOK, rec.Code)
}

func TestNewApp_UsesGivenTelemetry(t *testing.T) {
	cfg := testConfig()
	tel, err := telemetry.New(context.Background(), telemetry.FromSettings(cfg.Telemetry), nil)
	require.NoError(t, err)

	a, err := newApp(context.Background(), cfg, zap.NewNop(), tel)
	require.NoError(t, err)
	assert.Same(t, tel, a.telemetry)
	a.close()
	require.NoError(t, tel.Shutdown(context.Background()), "already shut down by close")
}

func TestBootstrapConfig_StdoutOnly(t *testing.T) {
	cfg := logging.NewDefaultConfig()
	cfg.Output = logging.OutputConfig{OTEL: true}

	boot := bootstrapConfig(cfg)
	assert.Equal(t, logging.OutputConfig{Stdout: true}, boot.Output)
	assert.True(t, cfg.Output.OTEL, "caller config untouched")
	_, err := logging.NewLogger(boot, nil)
	require.NoError(t, err)
}

func TestNewApp_BadProvider(t *testing.T) {
	cfg := testConfig()
	cfg.Embeddings.Provider = "nope"

	_, err := newApp(context.Background(), cfg, zap.NewNop(), nil)
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)
	assert.Contains(t, out.String(), "vecfsd "+version)
}

func TestRootCommand_Subcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["version"])
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
}

func TestNewApp_BadSecretAllowlist(t *testing.T) {
	p := filepath.Join(t.TempDir(), "allow.toml")
	require.NoError(t, os.WriteFile(p, []byte("[allowlist]\nregexes = ['(']\n"), 0o600))
	cfg := testConfig()
	cfg.Ingest.SecretAllowlist = p

	_, err := newApp(context.Background(), cfg, zap.NewNop(), nil)
	assert.Error(t, err)
}

func TestNewApp_DataTags(t *testing.T) {
	cfg := testConfig()
	cfg.Ingest.DataTags = []config.DataTagConfig{{Name: "ticket", Pattern: `[A-Z]+-\d+`}}
	a, err := newApp(context.Background(), cfg, zap.NewNop(), nil)
	require.NoError(t, err)
	a.close()

	cfg.Ingest.DataTags = []config.DataTagConfig{{Name: "broken", Pattern: `(`}}
	_, err = newApp(context.Background(), cfg, zap.NewNop(), nil)
	assert.ErrorIs(t, err, resource.ErrInvalidDataTag)
}
