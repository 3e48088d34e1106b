package bakalari

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/codes"
)

// AuthCookie is the name of the session cookie the portal issues on
// login and expects back on authenticated requests.
const AuthCookie = "BakaAuth"

// tokens issued by the portal stay usable for longer, but treating
// them as fresh for only a few minutes keeps a long-lived session from
// ever presenting a stale cookie
var tokenLifetime = time.Minute * 5

// auth produces a currently-valid access token for one session.
type auth interface {
	token(ctx context.Context) (string, error)
	close()
}

// staticToken is the bare-token mode: a fixed string, never renewed.
type staticToken string

func (t staticToken) token(context.Context) (string, error) { return string(t), nil }
func (t staticToken) close()                                {}

// anonymous supplies no auth cookie on any request.
type anonymous struct{}

func (anonymous) token(context.Context) (string, error) { return "", nil }
func (anonymous) close()                                {}

type tokenReply struct {
	token string
	err   error
}

type tokenRequest struct {
	ctx   context.Context
	reply chan tokenReply
}

type tempToken struct {
	value      string
	expiration time.Time
}

func newTempToken(value string) tempToken {
	return tempToken{value: value, expiration: time.Now().Add(tokenLifetime)}
}

func (t tempToken) get() (string, bool) {
	if time.Now().After(t.expiration) {
		return "", false
	}
	return t.value, true
}

// credentials owns a username/password pair and the last-issued token.
// A single goroutine holds the cached token and serves renewal
// requests one at a time, so concurrent callers at expiry trigger
// exactly one login exchange and all observe its outcome.
type credentials struct {
	requests chan tokenRequest
}

func newCredentials(ctx context.Context, client *resty.Client, username, password string) (*credentials, error) {
	token, err := login(ctx, client, username, password)
	if err != nil {
		return nil, err
	}

	c := &credentials{requests: make(chan tokenRequest, 10)}
	go c.serve(client, username, password, newTempToken(token))
	return c, nil
}

func (c *credentials) serve(client *resty.Client, username, password string, store tempToken) {
	for req := range c.requests {
		value, ok := store.get()
		if ok {
			req.reply <- tokenReply{token: value}
			continue
		}

		value, err := login(req.ctx, client, username, password)
		if err != nil {
			req.reply <- tokenReply{err: err}
			continue
		}
		store = newTempToken(value)
		req.reply <- tokenReply{token: value}
	}
}

func (c *credentials) token(ctx context.Context) (string, error) {
	req := tokenRequest{ctx: ctx, reply: make(chan tokenReply, 1)}
	select {
	case c.requests <- req:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	select {
	case res := <-req.reply:
		return res.token, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *credentials) close() {
	close(c.requests)
}

// login performs the portal's form-encoded login exchange. Success is
// a 302 carrying the auth cookie; any other status is a credentials
// failure and a 302 without the cookie is a cookie-parse failure.
func login(ctx context.Context, client *resty.Client, username, password string) (string, error) {
	ctx, span := tracer.Start(ctx, "login")
	defer span.End()

	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	res, err := client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetBody(form.Encode()).
		Post("/Login")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "login request failed")
		return "", err
	}

	if res.StatusCode() != http.StatusFound {
		span.SetStatus(codes.Error, "login rejected")
		return "", &LoginFailedError{StatusCode: res.StatusCode(), Body: res.String()}
	}

	for _, cookie := range res.RawResponse.Cookies() {
		if cookie.Name == AuthCookie {
			return cookie.Value, nil
		}
	}

	span.SetStatus(codes.Error, "auth cookie not present")
	return "", ErrCookieParse
}
