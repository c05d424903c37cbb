package handlers

import (
	"net/http"
	"net/url"

	"sweetbite/events"
	"sweetbite/middleware"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     sameOrigin,
}

func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	return err == nil && u.Host == r.Host
}

// OrdersSocket pushes order events that concern the logged-in user
func (h *Handler) OrdersSocket(c *gin.Context) {
	data := middleware.CurrentSession(c)
	if !data.LoggedIn() {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Debug("websocket upgrade failed")
		return
	}

	h.Hub.Register(ws, events.Subscriber{UserID: data.UserID, Role: data.Role})
	defer h.Hub.Unregister(ws)

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return
		}
	}
}
