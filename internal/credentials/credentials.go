// Package credentials supplies the cookies a session presents when it opens
// its connection.
package credentials

import (
	"context"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"slices"
	"strings"
	"time"

	"edgestats-backend/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
)

const (
	report_bootstrap_fetch = "bootstrap.fetch"
)

// Credentials is a set of cookies keyed by name.
type Credentials map[string]string

// CookieHeader renders the credentials as the value of a Cookie header,
// ordered by name.
func (c Credentials) CookieHeader() string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	slices.Sort(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%s", name, c[name])
	}
	return strings.Join(parts, "; ")
}

type Provider interface {
	Credentials(ctx context.Context) (Credentials, error)
}

// Static always hands out the same cookies, usually read from a config file.
type Static Credentials

func (s Static) Credentials(context.Context) (Credentials, error) {
	out := make(Credentials, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out, nil
}

type chain []Provider

// Chain asks every provider in order and merges the results, later
// providers win on conflicting names.
func Chain(providers ...Provider) Provider {
	return chain(providers)
}

func (c chain) Credentials(ctx context.Context) (Credentials, error) {
	out := Credentials{}
	for _, p := range c {
		creds, err := p.Credentials(ctx)
		if err != nil {
			return nil, err
		}
		for k, v := range creds {
			out[k] = v
		}
	}
	return out, nil
}

// Bootstrap collects the cookies the site hands to a first time visitor of
// its landing page.
type Bootstrap struct {
	baseUrl *url.URL
	http    *resty.Client
	jar     *cookiejar.Jar
	tel     telemetry.API
}

func NewBootstrap(baseUrl, userAgent string, tel telemetry.API) (*Bootstrap, error) {
	tel = telemetry.NewScopedAPI("credentials", tel)

	parsedBaseUrl, err := url.Parse(baseUrl)
	if err != nil {
		return nil, err
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(baseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	httpClient.SetCookieJar(jar)
	httpClient.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(httpClient.GetClient().Transport)
	if userAgent != "" {
		httpClient.SetHeader("user-agent", userAgent)
	}
	httpClient.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(parsedBaseUrl.Hostname()))
	httpClient.SetTimeout(time.Second * 30)

	telemetry.InstrumentResty(httpClient, tel)

	return &Bootstrap{
		baseUrl: parsedBaseUrl,
		http:    httpClient,
		jar:     jar,
		tel:     tel,
	}, nil
}

func (b *Bootstrap) Credentials(ctx context.Context) (Credentials, error) {
	res, err := b.http.R().
		SetContext(ctx).
		Get("/")
	if err != nil {
		b.tel.ReportBroken(report_bootstrap_fetch, fmt.Errorf("fetch: %w", err))
		return nil, err
	}
	if res.IsError() {
		err := fmt.Errorf("landing page returned %s", res.Status())
		b.tel.ReportBroken(report_bootstrap_fetch, err)
		return nil, err
	}

	out := Credentials{}
	for _, c := range b.jar.Cookies(b.baseUrl) {
		out[c.Name] = c.Value
	}
	b.tel.ReportDebug("collected cookies", len(out))
	return out, nil
}
