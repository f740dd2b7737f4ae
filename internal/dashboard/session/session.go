// Package session keeps the API access token in a signed cookie and resolves who
// the visitor is.
package session

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	apiclient "github.com/nebulacloud/console/pkg/api/client"
)

const cookieIssuer = "nebula-dashboard"

// ErrInvalidSession means the cookie exists but cannot be trusted.
var ErrInvalidSession = errors.New("invalid session cookie")

type cookieClaims struct {
	AccessToken string `json:"tok"`
	jwtlib.RegisteredClaims
}

// Manager signs and reads session cookies.
type Manager struct {
	secret []byte
	name   string
	secure bool
	now    func() time.Time
}

// New returns a Manager. The secret signs cookies with HS256.
func New(secret, cookieName string, secure bool) (Manager, error) {
	if strings.TrimSpace(secret) == "" {
		return Manager{}, errors.New("session secret required")
	}
	if strings.TrimSpace(cookieName) == "" {
		cookieName = "nebula_session"
	}
	return Manager{secret: []byte(secret), name: cookieName, secure: secure, now: time.Now}, nil
}

// MakeCookie wraps accessToken in a signed cookie that expires after ttl.
func (m Manager) MakeCookie(accessToken string, ttl time.Duration) (*http.Cookie, error) {
	if ttl <= 0 {
		ttl = time.Hour
	}
	now := m.now()
	expires := now.Add(ttl)
	claims := cookieClaims{
		AccessToken: accessToken,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    cookieIssuer,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(expires),
		},
	}
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return nil, err
	}
	return &http.Cookie{
		Name:     m.name,
		Value:    signed,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}, nil
}

// ExpireCookie returns a cookie that clears the session.
func (m Manager) ExpireCookie() *http.Cookie {
	return &http.Cookie{
		Name:     m.name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// TokenFromRequest returns the access token carried by the session cookie.
// A missing cookie yields http.ErrNoCookie.
func (m Manager) TokenFromRequest(r *http.Request) (string, error) {
	cookie, err := r.Cookie(m.name)
	if err != nil {
		return "", err
	}
	parsed, err := jwtlib.ParseWithClaims(cookie.Value, &cookieClaims{}, func(*jwtlib.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Name}),
		jwtlib.WithIssuer(cookieIssuer),
		jwtlib.WithTimeFunc(m.now),
	)
	if err != nil {
		return "", errors.Join(ErrInvalidSession, err)
	}
	claims, ok := parsed.Claims.(*cookieClaims)
	if !ok || !parsed.Valid || strings.TrimSpace(claims.AccessToken) == "" {
		return "", ErrInvalidSession
	}
	return claims.AccessToken, nil
}

// State is the resolution of a visitor.
type State int

const (
	// Unknown means the session could not be checked yet.
	Unknown State = iota
	Authenticated
	Anonymous
)

func (s State) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	case Anonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// User is the signed-in account.
type User struct {
	ID    string
	Email string
}

// Context is the resolved session. User and Token are set only when Authenticated.
type Context struct {
	State State
	User  User
	Token string
}

// Checker asks the API who owns a token.
type Checker interface {
	Session(ctx context.Context, token string) (apiclient.User, error)
}

// Resolver turns a request into a Context.
type Resolver struct {
	sessions Manager
	api      Checker
	timeout  time.Duration
}

// NewResolver returns a Resolver that gives the API at most timeout to answer.
func NewResolver(sessions Manager, api Checker, timeout time.Duration) Resolver {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return Resolver{sessions: sessions, api: api, timeout: timeout}
}

// Resolve reads the cookie and confirms it with the API. A missing, forged or
// rejected cookie is Anonymous. Any other failure, a throttled check included,
// leaves the state Unknown.
func (r Resolver) Resolve(req *http.Request) Context {
	token, err := r.sessions.TokenFromRequest(req)
	if err != nil {
		return Context{State: Anonymous}
	}
	ctx, cancel := context.WithTimeout(req.Context(), r.timeout)
	defer cancel()
	user, err := r.api.Session(ctx, token)
	if err != nil {
		if apiclient.IsUnauthorized(err) {
			return Context{State: Anonymous}
		}
		return Context{State: Unknown}
	}
	return Context{
		State: Authenticated,
		User:  User{ID: user.ID, Email: user.Email},
		Token: token,
	}
}
