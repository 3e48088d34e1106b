// Package bakalari is a client for the Bakaláři school portal's
// public timetable pages. It owns the credential/session lifecycle and
// hands the fetched HTML to the timetable package for decoding.
package bakalari

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"bakalari-backend/lib/scrapers/bakalari/timetable"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/codes"

	"bakalari-backend/lib/restyutil"
)

// Client is a ready session against one portal: a shared transport,
// an auth mode and the resolved directory maps. The maps are populated
// once at construction and immutable afterwards; construct a fresh
// Client to observe portal-side changes.
type Client struct {
	http *resty.Client
	auth auth
	dir  directory
}

type Options struct {
	BaseUrl  string
	Username string
	Password string
}

func newHttpClient(baseUrl string) (*resty.Client, error) {
	parsed, err := url.Parse(baseUrl)
	if err != nil {
		return nil, err
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid base url: %q", baseUrl)
	}

	client := resty.New()
	client.SetBaseURL(baseUrl)
	client.SetTimeout(time.Second * 30)
	// redirects stay observable: login success is a 302 and a
	// redirect-to-login is how the portal reports expired tokens
	client.SetRedirectPolicy(resty.RedirectPolicyFunc(
		func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	))
	restyutil.InstrumentClient(client, tracer, restyInstrumentOutput)

	return client, nil
}

// FromCredentials logs in with a username/password pair, keeps the
// pair for token renewal and resolves the directory.
func FromCredentials(ctx context.Context, opts Options) (*Client, error) {
	httpClient, err := newHttpClient(opts.BaseUrl)
	if err != nil {
		return nil, err
	}
	creds, err := newCredentials(ctx, httpClient, opts.Username, opts.Password)
	if err != nil {
		return nil, err
	}
	client, err := build(ctx, httpClient, creds)
	if err != nil {
		creds.close()
		return nil, err
	}
	return client, nil
}

// FromCredentialsNoStore logs in once and keeps only the issued token,
// never the credentials. The token is not renewed; long-lived callers
// should use FromCredentials.
func FromCredentialsNoStore(ctx context.Context, opts Options) (*Client, error) {
	httpClient, err := newHttpClient(opts.BaseUrl)
	if err != nil {
		return nil, err
	}
	token, err := login(ctx, httpClient, opts.Username, opts.Password)
	if err != nil {
		return nil, err
	}
	return build(ctx, httpClient, staticToken(token))
}

// FromToken builds a session around an externally-obtained token.
func FromToken(ctx context.Context, baseUrl, token string) (*Client, error) {
	httpClient, err := newHttpClient(baseUrl)
	if err != nil {
		return nil, err
	}
	return build(ctx, httpClient, staticToken(token))
}

// Anonymous builds an unauthenticated session. Most portals expose the
// public timetable without auth.
func Anonymous(ctx context.Context, baseUrl string) (*Client, error) {
	httpClient, err := newHttpClient(baseUrl)
	if err != nil {
		return nil, err
	}
	return build(ctx, httpClient, anonymous{})
}

// build resolves the directory with the given auth mode. Construction
// is atomic: a session that logged in but failed to resolve the
// directory is an error, not a half-initialized client.
func build(ctx context.Context, httpClient *resty.Client, a auth) (*Client, error) {
	token, err := a.token(ctx)
	if err != nil {
		return nil, err
	}
	dir, err := fetchDirectory(ctx, httpClient, token)
	if err != nil {
		return nil, err
	}
	return &Client{http: httpClient, auth: a, dir: dir}, nil
}

// Close releases the token-renewal goroutine of a credentialed
// session. The client must not be used afterwards.
func (c *Client) Close() {
	c.auth.close()
}

func (c *Client) mapFor(kind timetable.Kind) map[string]string {
	switch kind {
	case timetable.KindClass:
		return c.dir.classes
	case timetable.KindTeacher:
		return c.dir.teachers
	case timetable.KindRoom:
		return c.dir.rooms
	}
	return nil
}

// Objects lists the display names known for a subject kind, sorted.
func (c *Client) Objects(kind timetable.Kind) []string {
	m := c.mapFor(kind)
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Selector resolves a display name to the portal's internal selector.
// Unknown names resolve to nothing rather than a guessed identifier.
func (c *Client) Selector(kind timetable.Kind, name string) (timetable.Selector, bool) {
	id, ok := c.mapFor(kind)[name]
	if !ok {
		return timetable.Selector{}, false
	}
	return timetable.Selector{Kind: kind, Id: id}, true
}

// Test fetches the public landing page and asserts a known marker is
// present, to fail fast on wrong base URLs before doing real work.
func (c *Client) Test(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "client:Test")
	defer span.End()

	token, err := c.auth.token(ctx)
	if err != nil {
		return err
	}
	res, err := authedGet(ctx, c.http, "/timetable/public", token)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "connectivity check failed")
		return err
	}
	if !strings.Contains(res.String(), "timetable") {
		span.SetStatus(codes.Error, "marker not present")
		return &UnknownResponseError{Reason: "timetable not present"}
	}
	return nil
}

// Timetable fetches and decodes one timetable window for a selector
// previously resolved by this session.
func (c *Client) Timetable(ctx context.Context, which timetable.Which, selector timetable.Selector) (*timetable.Timetable, error) {
	ctx, span := tracer.Start(ctx, "client:Timetable")
	defer span.End()

	token, err := c.auth.token(ctx)
	if err != nil {
		return nil, err
	}

	path := fmt.Sprintf("/timetable/public/%s/%s", which, selector)
	res, err := authedGet(ctx, c.http, path, token)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch timetable page")
		return nil, err
	}

	parsed, err := timetable.Parse(res.String(), selector)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to decode timetable page")
		return nil, err
	}
	return parsed, nil
}

// authedGet performs a GET with the auth cookie attached (omitted
// entirely for anonymous sessions) and turns portal redirects into
// typed errors: a redirect to the login page means the token is no
// longer accepted, anything else is structural drift.
func authedGet(ctx context.Context, client *resty.Client, path, token string) (*resty.Response, error) {
	req := client.R().SetContext(ctx)
	if token != "" {
		req.SetHeader("Cookie", fmt.Sprintf("%s=%s", AuthCookie, token))
	}
	res, err := req.Get(path)
	if err != nil {
		return nil, err
	}

	if res.StatusCode() >= 300 && res.StatusCode() < 400 {
		location := res.Header().Get("Location")
		if strings.Contains(strings.ToLower(location), "login") {
			return nil, ErrAuthRequired
		}
		return nil, &UnknownResponseError{Reason: fmt.Sprintf("unexpected redirect to %q", location)}
	}

	return res, nil
}
