package middleware

import (
	"net/http"
	"time"

	"sweetbite/session"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	SessionCookie = "sb_session"

	ctxSession   = "session"
	ctxSessionID = "sessionID"
	ctxManager   = "sessionManager"
)

// Sessions ties each request to a server-side session.Data through a signed cookie
type Sessions struct {
	Store  session.Store
	Secret []byte
	TTL    time.Duration
	Secure bool
}

// Middleware loads the session before the handler and saves it afterwards if modified.
// A missing, tampered or expired cookie starts a fresh anonymous session.
func (s *Sessions) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ctxManager, s)

		var data *session.Data
		id := ""
		if raw, err := c.Cookie(SessionCookie); err == nil {
			if sid, err := session.ParseToken(s.Secret, raw); err == nil {
				id = sid
			}
		}
		if id != "" {
			loaded, err := s.Store.Load(c.Request.Context(), id)
			if err != nil {
				logrus.WithError(err).Warn("session load failed, starting a new one")
				id = ""
			} else {
				data = loaded
			}
		}
		if id == "" {
			if err := s.issue(c); err != nil {
				logrus.WithError(err).Error("session token signing failed")
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
		} else {
			c.Set(ctxSessionID, id)
			c.Set(ctxSession, data)
		}

		c.Next()

		if err := SaveSession(c); err != nil {
			logrus.WithError(err).Error("session save failed")
		}
	}
}

// issue starts a new empty session and sets its cookie
func (s *Sessions) issue(c *gin.Context) error {
	id := session.NewID()
	token, err := session.SignToken(s.Secret, id, s.TTL)
	if err != nil {
		return err
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, token, int(s.TTL.Seconds()), "/", "", s.Secure, true)
	c.Set(ctxSessionID, id)
	c.Set(ctxSession, &session.Data{})
	return nil
}

// CurrentSession returns the request's session data; never nil inside Sessions
func CurrentSession(c *gin.Context) *session.Data {
	if v, ok := c.Get(ctxSession); ok {
		return v.(*session.Data)
	}
	return &session.Data{}
}

func manager(c *gin.Context) *Sessions {
	if v, ok := c.Get(ctxManager); ok {
		return v.(*Sessions)
	}
	return nil
}

// SaveSession persists the session now if it changed. Handlers call it before
// responding so the next request sees the update.
func SaveSession(c *gin.Context) error {
	m := manager(c)
	data := CurrentSession(c)
	if m == nil || !data.Dirty() {
		return nil
	}
	return m.Store.Save(c.Request.Context(), c.GetString(ctxSessionID), data, m.TTL)
}

// RotateSession moves the current data to a new session id, as done at login
func RotateSession(c *gin.Context) error {
	m := manager(c)
	if m == nil {
		return nil
	}
	data := CurrentSession(c)
	if err := m.Store.Delete(c.Request.Context(), c.GetString(ctxSessionID)); err != nil {
		return err
	}
	if err := m.issue(c); err != nil {
		return err
	}
	c.Set(ctxSession, data)
	return m.Store.Save(c.Request.Context(), c.GetString(ctxSessionID), data, m.TTL)
}

// DestroySession drops the stored data and starts a fresh anonymous session
func DestroySession(c *gin.Context) error {
	m := manager(c)
	if m == nil {
		return nil
	}
	if err := m.Store.Delete(c.Request.Context(), c.GetString(ctxSessionID)); err != nil {
		return err
	}
	return m.issue(c)
}
