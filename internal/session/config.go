package session

import (
	"net/url"
	"strings"
	"time"

	"edgestats-backend/internal/edge"
)

const playerPlaceholder = "{player}"

type Config struct {
	// URLTemplate is the websocket address, {player} is replaced by the player id.
	URLTemplate string
	// Headers are sent on the upgrade request next to the credential cookies.
	Headers map[string]string

	Units  string
	Season string
	Stage  string
	Feed   string

	// ExpectedTargets are the fragments that have to arrive before the session
	// closes on its own, an empty list means every known target.
	ExpectedTargets []edge.Target

	// SendInterval spaces out outbound requests, 0 sends them back to back.
	SendInterval time.Duration
	// ReceiveTimeout bounds the wait for each inbound message, 0 waits forever.
	ReceiveTimeout time.Duration
	// SessionTimeout bounds the whole session, 0 disables it.
	SessionTimeout time.Duration
	// DrainTimeout bounds how long the session waits for the remote to
	// acknowledge a close it initiated.
	DrainTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		URLTemplate: "wss://edge.nhl.com/en/skater/{player}",
		Headers: map[string]string{
			"User-Agent": "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
			"Origin":     "https://edge.nhl.com",
		},
		Units:           "imperial",
		Season:          "20242025",
		Stage:           "regular",
		Feed:            "skatersProfiles",
		ExpectedTargets: edge.AllTargets(),
		SendInterval:    200 * time.Millisecond,
		ReceiveTimeout:  20 * time.Second,
		SessionTimeout:  2 * time.Minute,
		DrainTimeout:    2 * time.Second,
	}
}

// Endpoint returns the websocket address for a player.
func (c Config) Endpoint(playerID string) (*url.URL, error) {
	return url.Parse(strings.ReplaceAll(c.URLTemplate, playerPlaceholder, url.PathEscape(playerID)))
}

func (c Config) expected() edge.TargetSet {
	if len(c.ExpectedTargets) == 0 {
		return edge.NewTargetSet(edge.AllTargets()...)
	}
	return edge.NewTargetSet(c.ExpectedTargets...)
}
