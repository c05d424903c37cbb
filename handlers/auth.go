package handlers

import (
	"net/http"

	"sweetbite/middleware"
	"sweetbite/models"
	"sweetbite/services"
	"sweetbite/session"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type SignupRequest struct {
	Name     string `form:"name" binding:"required,min=3,max=50"`
	Email    string `form:"email" binding:"required,email,min=5,max=50"`
	Password string `form:"password" binding:"required,min=6,max=50"`
	Role     string `form:"role" binding:"required,oneof=customer restaurant delivery"`
}

type LoginRequest struct {
	Email    string `form:"email" binding:"required"`
	Password string `form:"password" binding:"required"`
}

func (h *Handler) SignupPage(c *gin.Context) {
	role := c.DefaultQuery("role", "customer")
	h.render(c, http.StatusOK, "signup.html", gin.H{
		"Title": "Sign up",
		"Form":  SignupRequest{Role: role},
	})
}

// Signup creates the account, logs the user in and sends them to their dashboard
func (h *Handler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBind(&req); err != nil {
		flash(c, session.FlashError, bindMessage(err))
		h.render(c, http.StatusUnprocessableEntity, "signup.html", gin.H{"Title": "Sign up", "Form": req})
		return
	}

	user, err := h.Accounts.Register(c.Request.Context(), services.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		if !services.IsUserError(err) {
			logrus.WithError(err).Error("signup failed")
		}
		flash(c, session.FlashError, services.UserMessage(err, "Could not create your account, please try again"))
		h.render(c, http.StatusUnprocessableEntity, "signup.html", gin.H{"Title": "Sign up", "Form": req})
		return
	}

	startSession(c, user)
	flash(c, session.FlashSuccess, "Welcome to Sweet Bite, "+user.Name+"!")
	redirect(c, user.Role.HomePath())
}

func (h *Handler) LoginPage(c *gin.Context) {
	h.render(c, http.StatusOK, "login.html", gin.H{"Title": "Log in"})
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		flash(c, session.FlashError, services.ErrInvalidCredentials.Error())
		h.render(c, http.StatusUnauthorized, "login.html", gin.H{"Title": "Log in", "Email": req.Email})
		return
	}

	user, err := h.Accounts.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if !services.IsUserError(err) {
			logrus.WithError(err).Error("login failed")
		}
		flash(c, session.FlashError, services.UserMessage(err, "Could not log you in, please try again"))
		h.render(c, http.StatusUnauthorized, "login.html", gin.H{"Title": "Log in", "Email": req.Email})
		return
	}

	startSession(c, user)
	redirect(c, user.Role.HomePath())
}

// startSession logs the user in under a new session id
func startSession(c *gin.Context, user *models.User) {
	middleware.CurrentSession(c).Login(user)
	if err := middleware.RotateSession(c); err != nil {
		logrus.WithError(err).Error("session rotation failed")
	}
}

func (h *Handler) Logout(c *gin.Context) {
	if err := middleware.DestroySession(c); err != nil {
		logrus.WithError(err).Error("session delete failed")
	}
	flash(c, session.FlashInfo, "You have been logged out")
	redirect(c, "/login")
}
