package handlers

import (
	"net/http"

	"sweetbite/middleware"
	"sweetbite/models"
	"sweetbite/statemachine"

	"github.com/gin-gonic/gin"
)

// Home sends visitors to their dashboard, or to the login page
func (h *Handler) Home(c *gin.Context) {
	data := middleware.CurrentSession(c)
	if !data.LoggedIn() {
		redirect(c, "/login")
		return
	}
	redirect(c, data.Role.HomePath())
}

// Health reports whether the service and its database respond
func (h *Handler) Health(c *gin.Context) {
	status := "healthy"
	code := http.StatusOK
	if sqlDB, err := h.DB.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	clients := 0
	if h.Hub != nil {
		clients = h.Hub.Count()
	}
	c.JSON(code, gin.H{
		"status":            status,
		"service":           "Sweet Bite",
		"websocket_clients": clients,
	})
}

// StateMachineInfo returns the order lifecycle for informational purposes
func (h *Handler) StateMachineInfo(c *gin.Context) {
	transitions := statemachine.GetAllTransitions()
	info := make([]gin.H, 0, len(transitions))
	for _, t := range transitions {
		info = append(info, gin.H{"from": t.From, "to": t.To, "actor": t.Actor})
	}
	var terminal []models.OrderStatus
	for _, s := range models.Statuses {
		if statemachine.IsTerminal(s) {
			terminal = append(terminal, s)
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"state_machine":   info,
		"terminal_states": terminal,
		"description":     "Sweet Bite order lifecycle",
	})
}

func (h *Handler) NotFound(c *gin.Context) {
	h.render(c, http.StatusNotFound, "error.html", gin.H{
		"Title":   "Page not found",
		"Message": "We could not find what you were looking for.",
	})
}
