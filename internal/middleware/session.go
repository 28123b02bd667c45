package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"storefront/internal/client"
	"storefront/internal/model"
	"storefront/internal/session"
)

const (
	CookieName = "sf_session"

	sessionKey = "session"
	userKey    = "user"
	userIDKey  = "user_id"

	cookieMaxAge = 30 * 24 * time.Hour
)

// UserSession is the per-browser auth state the handlers work with.
type UserSession interface {
	session.SessionStore
	Session(ctx context.Context) *model.Session
	WaitForProfile(ctx context.Context, timeout time.Duration) (*model.UserProfile, error)
}

// Registry hands out the store for a browser session or a bearer token.
type Registry interface {
	Get(ctx context.Context, key string) *session.Store
	Adopt(ctx context.Context, key string, seed *model.Session) *session.Store
}

type SessionConfig struct {
	Sessions Registry
	// Verifier checks bearer tokens. Without one, bearer requests are
	// rejected.
	Verifier     client.TokenVerifier
	SecureCookie bool
	Log          logrus.FieldLogger
}

// LoadSession attaches the caller's session store to the context. Browsers
// are tracked with the sf_session cookie, API callers with a bearer token.
// When the session carries an access token it is put on the request context
// for provider calls.
func LoadSession(cfg SessionConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			var store *session.Store
			if token := bearerToken(c.Request()); token != "" {
				if cfg.Verifier == nil {
					return echo.NewHTTPError(http.StatusUnauthorized, "bearer tokens are not accepted")
				}
				seed, err := cfg.Verifier.Verify(token)
				if err != nil {
					cfg.Log.WithError(err).Debug("reject bearer token")
					return echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
				}
				store = cfg.Sessions.Adopt(ctx, session.BearerKey(token), seed)
			} else {
				store = cfg.Sessions.Get(ctx, browserSessionID(c, cfg.SecureCookie))
			}

			SetUserSession(c, store)
			if s := store.Session(ctx); s != nil {
				c.SetRequest(c.Request().WithContext(client.WithAccessToken(ctx, s.AccessToken)))
			}
			if user := store.GetState().User; user != nil {
				c.Set(userIDKey, user.ID)
			}
			return next(c)
		}
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get(echo.HeaderAuthorization)
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// browserSessionID reads the session cookie, issuing a new id when it is
// missing or malformed.
func browserSessionID(c echo.Context, secure bool) string {
	if cookie, err := c.Cookie(CookieName); err == nil {
		if _, err := uuid.Parse(cookie.Value); err == nil {
			return cookie.Value
		}
	}
	id := session.NewSessionID()
	c.SetCookie(&http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(cookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func SetUserSession(c echo.Context, s UserSession) {
	c.Set(sessionKey, s)
}

// UserSessionFrom returns nil when LoadSession did not run.
func UserSessionFrom(c echo.Context) UserSession {
	s, _ := c.Get(sessionKey).(UserSession)
	return s
}

// CurrentUser is set by RequireUser.
func CurrentUser(c echo.Context) *model.UserProfile {
	u, _ := c.Get(userKey).(*model.UserProfile)
	return u
}

func UserID(c echo.Context) string {
	id, _ := c.Get(userIDKey).(string)
	return id
}
