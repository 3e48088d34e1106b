package bakalari

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"bakalari-backend/lib/scrapers/bakalari/timetable"
	"bakalari-backend/lib/telemetry"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const directoryHtml = `<!DOCTYPE html>
<html><body>
<div id="main">timetable</div>
<form>
  <select id="selectedClass">
    <option>Vyberte třídu</option>
    <option value="UA">7.A</option>
    <option value="UB1">7.B</option>
    <option value="UB2">7.B</option>
  </select>
  <select id="selectedTeacher">
    <option value="UXYZ">Mgr. Jana Dlouha</option>
  </select>
  <select id="selectedRoom">
    <option value="R128">128</option>
  </select>
</form>
</body></html>`

// fakePortal mimics the portal's login exchange and public timetable
// pages closely enough to drive the client end to end.
type fakePortal struct {
	mu          sync.Mutex
	logins      int
	issued      map[string]bool
	rejectLogin bool
	omitCookie  bool
	requireAuth bool
	lastCookie  string
}

func newFakePortal() *fakePortal {
	return &fakePortal{issued: map[string]bool{}}
}

func (p *fakePortal) loginCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.logins
}

func (p *fakePortal) cookieValid(r *http.Request) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	cookie, err := r.Cookie(AuthCookie)
	if err != nil {
		p.lastCookie = ""
		return false
	}
	p.lastCookie = cookie.Value
	return p.issued[cookie.Value]
}

func (p *fakePortal) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/Login":
		p.mu.Lock()
		p.logins++
		token := fmt.Sprintf("token-%d", p.logins)
		p.issued[token] = true
		reject := p.rejectLogin
		omit := p.omitCookie
		p.mu.Unlock()

		if reject {
			w.WriteHeader(http.StatusOK)
			fmt.Fprint(w, "invalid credentials")
			return
		}
		if !omit {
			http.SetCookie(w, &http.Cookie{Name: AuthCookie, Value: token})
		}
		w.Header().Set("Location", "/dashboard")
		w.WriteHeader(http.StatusFound)
	case r.Method == http.MethodGet && r.URL.Path == "/timetable/public":
		valid := p.cookieValid(r)
		if p.requireAuth && !valid {
			w.Header().Set("Location", "/Login?ReturnUrl=/timetable/public")
			w.WriteHeader(http.StatusFound)
			return
		}
		fmt.Fprint(w, directoryHtml)
	case r.Method == http.MethodGet && r.URL.Path == "/timetable/public/actual/class/UB2":
		if p.requireAuth && !p.cookieValid(r) {
			w.Header().Set("Location", "/Login?ReturnUrl="+r.URL.Path)
			w.WriteHeader(http.StatusFound)
			return
		}
		page, err := os.ReadFile(filepath.Join("timetable", "testdata", "class_actual.html"))
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write(page)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func TestSession(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/bakalari")
	defer cleanup()

	portal := newFakePortal()
	portal.requireAuth = true
	server := httptest.NewServer(portal)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	client, err := FromCredentials(ctx, Options{
		BaseUrl:  server.URL,
		Username: "student",
		Password: "hunter2",
	})
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	err = client.Test(ctx)
	if err != nil {
		t.Fatal(err)
	}

	diff := cmp.Diff([]string{"7.A", "7.B"}, client.Objects(timetable.KindClass))
	if diff != "" {
		t.Fatal(diff)
	}
	diff = cmp.Diff([]string{"Mgr. Jana Dlouha"}, client.Objects(timetable.KindTeacher))
	if diff != "" {
		t.Fatal(diff)
	}

	// duplicate display names resolve to the last occurrence
	selector, ok := client.Selector(timetable.KindClass, "7.B")
	require.True(t, ok)
	require.Equal(t, timetable.Selector{Kind: timetable.KindClass, Id: "UB2"}, selector)

	_, ok = client.Selector(timetable.KindClass, "9.Z")
	require.False(t, ok)

	tt, err := client.Timetable(ctx, timetable.WhichActual, selector)
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, tt.Hours, 3)
	require.Len(t, tt.Days, 2)
	require.Equal(t, "Matematika", tt.Days[0].Lessons[0][0].Subject)
	require.Equal(t, timetable.LessonCanceled, tt.Days[1].Lessons[0][0].Kind)
}

func TestAnonymousSendsNoCookie(t *testing.T) {
	portal := newFakePortal()
	server := httptest.NewServer(portal)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	client, err := Anonymous(ctx, server.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	err = client.Test(ctx)
	if err != nil {
		t.Fatal(err)
	}

	portal.mu.Lock()
	defer portal.mu.Unlock()
	require.Zero(t, portal.logins)
	require.Empty(t, portal.lastCookie)
}

func TestLoginRejected(t *testing.T) {
	portal := newFakePortal()
	portal.rejectLogin = true
	server := httptest.NewServer(portal)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	_, err := FromCredentials(ctx, Options{
		BaseUrl:  server.URL,
		Username: "student",
		Password: "wrong",
	})
	var loginErr *LoginFailedError
	if !errors.As(err, &loginErr) {
		t.Fatal("expected LoginFailedError, got", err)
	}
	require.Equal(t, http.StatusOK, loginErr.StatusCode)
}

func TestLoginWithoutCookie(t *testing.T) {
	portal := newFakePortal()
	portal.omitCookie = true
	server := httptest.NewServer(portal)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	_, err := FromCredentials(ctx, Options{
		BaseUrl:  server.URL,
		Username: "student",
		Password: "hunter2",
	})
	if !errors.Is(err, ErrCookieParse) {
		t.Fatal("expected ErrCookieParse, got", err)
	}
}

func TestStaleTokenReportsAuthRequired(t *testing.T) {
	portal := newFakePortal()
	portal.requireAuth = true
	server := httptest.NewServer(portal)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	_, err := FromToken(ctx, server.URL, "token-from-last-week")
	if !errors.Is(err, ErrAuthRequired) {
		t.Fatal("expected ErrAuthRequired, got", err)
	}
}

func TestInvalidBaseUrl(t *testing.T) {
	ctx := context.Background()
	_, err := Anonymous(ctx, "not a url")
	require.Error(t, err)
}

// concurrent callers hitting an expired token must trigger exactly one
// renewal exchange between them
func TestTokenRenewalSingleFlight(t *testing.T) {
	previousLifetime := tokenLifetime
	tokenLifetime = time.Millisecond * 30
	defer func() { tokenLifetime = previousLifetime }()

	portal := newFakePortal()
	server := httptest.NewServer(portal)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	httpClient, err := newHttpClient(server.URL)
	if err != nil {
		t.Fatal(err)
	}
	creds, err := newCredentials(ctx, httpClient, "student", "hunter2")
	if err != nil {
		t.Fatal(err)
	}
	defer creds.close()
	require.Equal(t, 1, portal.loginCount())

	first, err := creds.token(ctx)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, "token-1", first)
	require.Equal(t, 1, portal.loginCount())

	time.Sleep(time.Millisecond * 60)

	var wg sync.WaitGroup
	tokens := make([]string, 10)
	for i := range tokens {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			token, err := creds.token(ctx)
			if err != nil {
				t.Error(err)
				return
			}
			tokens[i] = token
		}(i)
	}
	wg.Wait()

	require.Equal(t, 2, portal.loginCount())
	for _, token := range tokens {
		require.Equal(t, "token-2", token)
	}
}
