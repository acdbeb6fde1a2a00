package commands

import (
	"fmt"
	"time"

	"edgestats-backend/internal/credentials"
	"edgestats-backend/internal/edge"
	"edgestats-backend/internal/session"
	"edgestats-backend/lib/configutil"
	"edgestats-backend/lib/telemetry"
)

// Config is the file configuration of the CLI, every field is optional.
type Config struct {
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers"`
	Units   string            `json:"units"`
	Season  string            `json:"season"`
	Stage   string            `json:"stage"`
	Feed    string            `json:"feed"`
	Targets []string          `json:"targets"`

	SendInterval   string `json:"send_interval"`
	ReceiveTimeout string `json:"receive_timeout"`
	SessionTimeout string `json:"session_timeout"`
	DrainTimeout   string `json:"drain_timeout"`
	Heartbeat      string `json:"heartbeat"`
	// InsecureSkipVerify disables certificate checks on the websocket, for
	// intercepting proxies only.
	InsecureSkipVerify bool `json:"insecure_skip_verify"`

	// Cookies are presented as is on every connection.
	Cookies map[string]string `json:"cookies"`
	// Bootstrap is a page whose cookies are collected before connecting,
	// empty skips it.
	Bootstrap string `json:"bootstrap"`

	Store      string `json:"store"`
	ArchiveDir string `json:"archive_dir"`
	// Parallel is the number of players fetched at once.
	Parallel int `json:"parallel"`
}

func defaultConfig() Config {
	return Config{
		Heartbeat: "15s",
		Bootstrap: "https://edge.nhl.com",
		Parallel:  2,
	}
}

func readConfig(path string) (Config, error) {
	return configutil.Overlay(defaultConfig(), path)
}

// Session turns the file configuration into a session configuration, unset
// fields keep their defaults.
func (c Config) Session() (session.Config, error) {
	out := session.DefaultConfig()
	if c.URL != "" {
		out.URLTemplate = c.URL
	}
	headers := map[string]string{}
	for k, v := range out.Headers {
		headers[k] = v
	}
	for k, v := range c.Headers {
		headers[k] = v
	}
	out.Headers = headers

	if c.Units != "" {
		out.Units = c.Units
	}
	if c.Season != "" {
		out.Season = c.Season
	}
	if c.Stage != "" {
		out.Stage = c.Stage
	}
	if c.Feed != "" {
		out.Feed = c.Feed
	}

	if len(c.Targets) > 0 {
		out.ExpectedTargets = nil
		for _, name := range c.Targets {
			target := edge.ParseTarget(name)
			if !target.Known() {
				return session.Config{}, fmt.Errorf("unknown target %q", name)
			}
			out.ExpectedTargets = append(out.ExpectedTargets, target)
		}
	}

	durations := []struct {
		value string
		out   *time.Duration
	}{
		{value: c.SendInterval, out: &out.SendInterval},
		{value: c.ReceiveTimeout, out: &out.ReceiveTimeout},
		{value: c.SessionTimeout, out: &out.SessionTimeout},
		{value: c.DrainTimeout, out: &out.DrainTimeout},
	}
	for _, d := range durations {
		parsed, err := configutil.Duration(d.value, *d.out)
		if err != nil {
			return session.Config{}, err
		}
		*d.out = parsed
	}

	return out, nil
}

func (c Config) Dialer() (session.WebsocketDialer, error) {
	heartbeat, err := configutil.Duration(c.Heartbeat, 0)
	if err != nil {
		return session.WebsocketDialer{}, err
	}
	return session.WebsocketDialer{
		Heartbeat:          heartbeat,
		HandshakeTimeout:   30 * time.Second,
		InsecureSkipVerify: c.InsecureSkipVerify,
	}, nil
}

// Credentials collects the bootstrap cookies first so the configured ones can
// override them.
func (c Config) Credentials(userAgent string, tel telemetry.API) (credentials.Provider, error) {
	providers := []credentials.Provider{}
	if c.Bootstrap != "" {
		bootstrap, err := credentials.NewBootstrap(c.Bootstrap, userAgent, tel)
		if err != nil {
			return nil, err
		}
		providers = append(providers, bootstrap)
	}
	providers = append(providers, credentials.Static(c.Cookies))
	return credentials.Chain(providers...), nil
}
