package configutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Name    string            `json:"name"`
	Season  string            `json:"season"`
	Cookies map[string]string `json:"cookies"`
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	err := os.WriteFile(path, []byte(contents), 0600)
	require.NoError(t, err)
}

func TestReadConfigLocalOverride(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "edge.json5"), `{
		// comments are allowed
		name: "default",
		season: "20242025",
	}`)
	writeFile(t, filepath.Join(dir, "edge.local.json5"), `{ season: "20232024" }`)

	cfg, err := ReadConfig[testConfig](filepath.Join(dir, "edge.json5"))
	require.NoError(t, err)
	require.Equal(t, "default", cfg.Name)
	require.Equal(t, "20232024", cfg.Season)
}

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "edge.json5"))
	require.True(t, os.IsNotExist(err))
}

func TestOverlay(t *testing.T) {
	dir := t.TempDir()
	base := testConfig{Name: "base", Season: "20242025"}

	out, err := Overlay(base, filepath.Join(dir, "edge.json5"))
	require.NoError(t, err)
	require.Equal(t, base, out)

	writeFile(t, filepath.Join(dir, "edge.json5"), `{ cookies: { session: "abc" } }`)
	out, err = Overlay(base, filepath.Join(dir, "edge.json5"))
	require.NoError(t, err)
	require.Equal(t, "base", out.Name)
	require.Equal(t, "20242025", out.Season)
	require.Equal(t, map[string]string{"session": "abc"}, out.Cookies)
}

func TestDuration(t *testing.T) {
	d, err := Duration("", time.Second)
	require.NoError(t, err)
	require.Equal(t, time.Second, d)

	d, err = Duration("250ms", time.Second)
	require.NoError(t, err)
	require.Equal(t, 250*time.Millisecond, d)

	_, err = Duration("soon", time.Second)
	require.Error(t, err)
}
