package credentials

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"edgestats-backend/lib/telemetry"

	"github.com/stretchr/testify/require"
)

func TestCookieHeader(t *testing.T) {
	require.Equal(t, "", Credentials{}.CookieHeader())
	require.Equal(t, "a=1; b=2", Credentials{"b": "2", "a": "1"}.CookieHeader())
}

func TestChain(t *testing.T) {
	creds, err := Chain(
		Static{"session": "old", "region": "us"},
		Static{"session": "new"},
	).Credentials(context.Background())
	require.NoError(t, err)
	require.Equal(t, Credentials{"session": "new", "region": "us"}, creds)
}

func TestStaticIsCopied(t *testing.T) {
	static := Static{"a": "1"}
	creds, err := static.Credentials(context.Background())
	require.NoError(t, err)
	creds["a"] = "2"
	require.Equal(t, "1", static["a"])
}

func TestBootstrap(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "edge-test", r.Header.Get("user-agent"))
		http.SetCookie(w, &http.Cookie{Name: "visitor", Value: "abc", Path: "/"})
		http.SetCookie(w, &http.Cookie{Name: "consent", Value: "1", Path: "/"})
		w.Write([]byte("<html></html>"))
	}))
	defer server.Close()

	rec := &telemetry.RecorderAPI{}
	b, err := NewBootstrap(server.URL, "edge-test", rec)
	require.NoError(t, err)

	creds, err := b.Credentials(context.Background())
	require.NoError(t, err)
	require.Equal(t, Credentials{"visitor": "abc", "consent": "1"}, creds)
	require.Empty(t, rec.Reports("broken"))
}

func TestBootstrapErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	rec := &telemetry.RecorderAPI{}
	b, err := NewBootstrap(server.URL, "edge-test", rec)
	require.NoError(t, err)

	_, err = b.Credentials(context.Background())
	require.Error(t, err)
	require.True(t, rec.Has("broken", report_bootstrap_fetch))
}
