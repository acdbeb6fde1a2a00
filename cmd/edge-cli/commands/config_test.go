package commands

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"edgestats-backend/internal/edge"
	"edgestats-backend/internal/session"

	"github.com/stretchr/testify/require"
)

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "edge.json5")

	cfg, err := readConfig(path)
	require.NoError(t, err)
	require.Equal(t, defaultConfig(), cfg)

	err = os.WriteFile(path, []byte(`{
		// tighter timeouts for the nightly job
		receive_timeout: "5s",
		targets: ["overview", "#zonetime-section-content"],
		cookies: { session: "abc" },
	}`), 0600)
	require.NoError(t, err)
	err = os.WriteFile(filepath.Join(dir, "edge.local.json5"), []byte(`{ store: "edge.db", insecure_skip_verify: true }`), 0600)
	require.NoError(t, err)

	cfg, err = readConfig(path)
	require.NoError(t, err)
	require.Equal(t, "15s", cfg.Heartbeat)
	require.Equal(t, "edge.db", cfg.Store)
	require.True(t, cfg.InsecureSkipVerify)
	require.Equal(t, map[string]string{"session": "abc"}, cfg.Cookies)

	sessionCfg, err := cfg.Session()
	require.NoError(t, err)
	require.Equal(t, 5*time.Second, sessionCfg.ReceiveTimeout)
	require.Equal(t, session.DefaultConfig().SendInterval, sessionCfg.SendInterval)
	require.Equal(t, []edge.Target{edge.TargetOverview, edge.TargetZoneTime}, sessionCfg.ExpectedTargets)
}

func TestConfigSession(t *testing.T) {
	sessionCfg, err := Config{
		URL:          "ws://localhost:9000/en/skater/{player}",
		Headers:      map[string]string{"User-Agent": "edge-test"},
		Season:       "20232024",
		SendInterval: "0s",
	}.Session()
	require.NoError(t, err)

	require.Equal(t, "ws://localhost:9000/en/skater/{player}", sessionCfg.URLTemplate)
	require.Equal(t, "edge-test", sessionCfg.Headers["User-Agent"])
	require.Equal(t, "https://edge.nhl.com", sessionCfg.Headers["Origin"])
	require.Equal(t, "20232024", sessionCfg.Season)
	require.Equal(t, "imperial", sessionCfg.Units)
	require.Zero(t, sessionCfg.SendInterval)
	require.Equal(t, edge.AllTargets(), sessionCfg.ExpectedTargets)

	// the defaults are not shared
	require.NotEqual(t, "edge-test", session.DefaultConfig().Headers["User-Agent"])
}

func TestConfigInvalid(t *testing.T) {
	_, err := Config{Targets: []string{"#profile-playercard"}}.Session()
	require.ErrorContains(t, err, "unknown target")

	_, err = Config{ReceiveTimeout: "soon"}.Session()
	require.ErrorContains(t, err, "invalid duration")

	_, err = Config{Heartbeat: "often"}.Dialer()
	require.Error(t, err)
}

func TestConfigDialer(t *testing.T) {
	dialer, err := defaultConfig().Dialer()
	require.NoError(t, err)
	require.Equal(t, 15*time.Second, dialer.Heartbeat)
	require.False(t, dialer.InsecureSkipVerify)

	cfg := defaultConfig()
	cfg.InsecureSkipVerify = true
	dialer, err = cfg.Dialer()
	require.NoError(t, err)
	require.True(t, dialer.InsecureSkipVerify)
}
