package session

import (
	"fmt"
	"net/url"
	"strings"

	"edgestats-backend/internal/edge"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

const (
	actionGetLabel = "getLabel"
	actionLoad     = "load"

	envelopeAction = "action"
	envelopeHTML   = "html"

	callbackInitialize = "initializeDataElements"
	callbackClientFns  = "runClientFns"
	renderContent      = "renderProfileContent"
)

// Request is one outbound action, it is never modified after BuildRequests.
type Request struct {
	Domain           string
	URI              string
	Action           string
	RenderFunction   string
	Target           string
	Params           map[string]string
	CallbackFunction string
}

type outboundData struct {
	RenderFunction   string            `json:"renderFunction,omitempty"`
	Target           string            `json:"target,omitempty"`
	Params           map[string]string `json:"params"`
	CallbackFunction string            `json:"callbackFunction,omitempty"`
}

type outboundEvent struct {
	Domain string       `json:"domain"`
	URI    string       `json:"uri"`
	Action string       `json:"action"`
	Data   outboundData `json:"data"`
}

type outboundEnvelope struct {
	Type  string        `json:"type"`
	Event outboundEvent `json:"event"`
}

func (r Request) Encode() ([]byte, error) {
	return json.Marshal(outboundEnvelope{
		Type: envelopeAction,
		Event: outboundEvent{
			Domain: r.Domain,
			URI:    r.URI,
			Action: r.Action,
			Data: outboundData{
				RenderFunction:   r.RenderFunction,
				Target:           r.Target,
				Params:           r.Params,
				CallbackFunction: r.CallbackFunction,
			},
		},
	})
}

func (r Request) String() string {
	if r.Action == actionGetLabel {
		return r.Action
	}
	return fmt.Sprintf("%s %s -> %s", r.Action, r.RenderFunction, r.Target)
}

var profileRequests = []struct {
	render string
	target string
}{
	{render: "renderPlayerCard", target: "#profile-playercard"},
	{render: "renderProfilePlayerSection", target: "#profile-section"},
}

// sectionFilters are the extra filters each section load carries.
var sectionFilters = map[edge.Target]map[string]string{
	edge.TargetSkatingDistance: {"manpower": "all"},
	edge.TargetShotLocation:    {"shootingmetrics": "shots", "shotlocation": "all"},
	edge.TargetZoneTime:        {"manpower": "all"},
}

func profileParams(playerID string) map[string]string {
	return map[string]string{
		"type":     "skaters",
		"player":   playerID,
		"rootName": "skatersProfiles",
		"source":   "players",
	}
}

// BuildRequests returns the handshake followed by the profile and section
// loads, in the order they must be sent.
func BuildRequests(playerID string, endpoint *url.URL, cfg Config) []Request {
	base := Request{Domain: endpoint.Host, URI: endpoint.Path}

	handshake := base
	handshake.Action = actionGetLabel
	handshake.Params = profileParams(playerID)
	requests := []Request{handshake}

	for _, p := range profileRequests {
		req := base
		req.Action = actionLoad
		req.RenderFunction = p.render
		req.Target = p.target
		req.Params = profileParams(playerID)
		req.CallbackFunction = callbackInitialize
		requests = append(requests, req)
	}

	for _, target := range cfg.expected().Slice() {
		params := map[string]string{
			"sectionName": target.Section(),
			"units":       cfg.Units,
			"season":      cfg.Season,
			"stage":       cfg.Stage,
			"feed":        cfg.Feed,
			"id":          playerID,
		}
		for k, v := range sectionFilters[target] {
			params[k] = v
		}

		req := base
		req.Action = actionLoad
		req.RenderFunction = renderContent
		req.Target = target.Selector()
		req.Params = params
		req.CallbackFunction = callbackClientFns
		requests = append(requests, req)
	}

	return requests
}

// Envelope is the part of an inbound message the session cares about.
type Envelope struct {
	Type   string
	Target string
	HTML   string
}

func (e Envelope) IsHTML() bool {
	return e.Type == envelopeHTML
}

func ParseEnvelope(data []byte) (Envelope, error) {
	if !gjson.ValidBytes(data) {
		return Envelope{}, fmt.Errorf("%w: invalid json (%d bytes)", ErrMalformedEnvelope, len(data))
	}
	parsed := gjson.ParseBytes(data)
	if !parsed.IsObject() {
		return Envelope{}, fmt.Errorf("%w: not an object", ErrMalformedEnvelope)
	}
	return Envelope{
		Type:   parsed.Get("type").String(),
		Target: strings.TrimSpace(parsed.Get("target").String()),
		HTML:   parsed.Get("html").String(),
	}, nil
}
