package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apiclient "github.com/nebulacloud/console/pkg/api/client"
)

type checkerStub struct {
	user apiclient.User
	err  error
	seen string
}

func (c *checkerStub) Session(_ context.Context, token string) (apiclient.User, error) {
	c.seen = token
	return c.user, c.err
}

func requestWith(cookie *http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return req
}

func TestCookieRoundTrip(t *testing.T) {
	m, err := New("secret", "", false)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	cookie, err := m.MakeCookie("access-token", 15*time.Minute)
	if err != nil {
		t.Fatalf("make cookie: %v", err)
	}
	if cookie.Name != "nebula_session" || !cookie.HttpOnly {
		t.Fatalf("unexpected cookie %+v", cookie)
	}
	token, err := m.TokenFromRequest(requestWith(cookie))
	if err != nil {
		t.Fatalf("token from request: %v", err)
	}
	if token != "access-token" {
		t.Fatalf("expected access-token, got %q", token)
	}
}

func TestTokenFromRequestRejectsForgedAndExpired(t *testing.T) {
	m, _ := New("secret", "sess", false)
	if _, err := m.TokenFromRequest(requestWith(nil)); !errors.Is(err, http.ErrNoCookie) {
		t.Fatalf("expected ErrNoCookie, got %v", err)
	}

	other, _ := New("other-secret", "sess", false)
	forged, _ := other.MakeCookie("access-token", time.Minute)
	if _, err := m.TokenFromRequest(requestWith(forged)); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession for forged cookie, got %v", err)
	}

	past := m
	past.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _ := past.MakeCookie("access-token", time.Minute)
	if _, err := m.TokenFromRequest(requestWith(expired)); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession for expired cookie, got %v", err)
	}
}

func TestNewRequiresSecret(t *testing.T) {
	if _, err := New(" ", "sess", false); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}

func TestResolveStates(t *testing.T) {
	m, _ := New("secret", "sess", false)
	cookie, _ := m.MakeCookie("access-token", time.Minute)

	cases := []struct {
		name   string
		cookie *http.Cookie
		stub   *checkerStub
		want   State
	}{
		{"no cookie", nil, &checkerStub{}, Anonymous},
		{"valid", cookie, &checkerStub{user: apiclient.User{ID: "u1", Email: "ada@example.com"}}, Authenticated},
		{"api rejects", cookie, &checkerStub{err: apiclient.APIError{Status: http.StatusUnauthorized}}, Anonymous},
		{"api down", cookie, &checkerStub{err: errors.New("connection refused")}, Unknown},
		{"api forbids", cookie, &checkerStub{err: apiclient.APIError{Status: http.StatusForbidden}}, Anonymous},
		{"api error", cookie, &checkerStub{err: apiclient.APIError{Status: http.StatusBadGateway}}, Unknown},
		{"api throttled", cookie, &checkerStub{err: apiclient.APIError{Status: http.StatusTooManyRequests}}, Unknown},
		{"wrapped rejection", cookie, &checkerStub{err: fmt.Errorf("session: %w", apiclient.APIError{Status: http.StatusUnauthorized})}, Anonymous},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := NewResolver(m, tc.stub, time.Second).Resolve(requestWith(tc.cookie))
			if got.State != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got.State)
			}
			if tc.want == Authenticated {
				if got.User.ID != "u1" || got.Token != "access-token" || tc.stub.seen != "access-token" {
					t.Fatalf("unexpected context %+v", got)
				}
			}
		})
	}
}
