package web

import (
	"net/http"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"

	"github.com/hpungsan/roadmap/internal/errors"
	"github.com/hpungsan/roadmap/internal/session"
)

const (
	cookieName = "roadmap_session"
	idKey      = "sid"
	cookieAge  = 3600 * 24 * 30
)

// sessionCookies maps a browser to a session id through a signed cookie.
// The state itself lives in a session.Store.
type sessionCookies struct {
	store *sessions.CookieStore
}

// newSessionCookies creates the cookie codec. An empty secret gets a random
// key, so cookies do not survive a restart.
func newSessionCookies(secret []byte, secure bool) *sessionCookies {
	if len(secret) == 0 {
		secret = securecookie.GenerateRandomKey(32)
	}
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   cookieAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &sessionCookies{store: store}
}

// id returns the caller's session id, issuing a new one when the cookie is
// missing, tampered with or malformed.
func (c *sessionCookies) id(w http.ResponseWriter, r *http.Request) (string, error) {
	// A decode error still yields a usable new session
	sess, _ := c.store.Get(r, cookieName)
	if id, ok := sess.Values[idKey].(string); ok && session.ValidID(id) {
		return id, nil
	}
	return c.issue(w, r, sess)
}

// current returns the caller's session id without issuing one.
func (c *sessionCookies) current(r *http.Request) (string, bool) {
	sess, err := c.store.Get(r, cookieName)
	if err != nil {
		return "", false
	}
	id, ok := sess.Values[idKey].(string)
	return id, ok && session.ValidID(id)
}

// reset replaces the caller's session id.
func (c *sessionCookies) reset(w http.ResponseWriter, r *http.Request) (string, error) {
	sess, _ := c.store.Get(r, cookieName)
	return c.issue(w, r, sess)
}

func (c *sessionCookies) issue(w http.ResponseWriter, r *http.Request, sess *sessions.Session) (string, error) {
	id := session.NewID()
	sess.Values[idKey] = id
	if err := sess.Save(r, w); err != nil {
		return "", errors.NewInternal(err)
	}
	return id, nil
}
