package handlers

import (
	"net/http"

	"sweetbite/middleware"
	"sweetbite/services"
	"sweetbite/session"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type AccountRequest struct {
	Name    string `form:"name" binding:"required,min=3,max=50"`
	Email   string `form:"email" binding:"required,email,max=50"`
	Phone   string `form:"phone" binding:"max=30"`
	Address string `form:"address" binding:"max=255"`
}

// AccountPage shows the profile form for any role
func (h *Handler) AccountPage(c *gin.Context) {
	h.render(c, http.StatusOK, "account.html", gin.H{"Title": "My account"})
}

func (h *Handler) UpdateAccount(c *gin.Context) {
	var req AccountRequest
	if err := c.ShouldBind(&req); err != nil {
		flash(c, session.FlashError, bindMessage(err))
		redirect(c, "/account")
		return
	}

	userID := middleware.GetUserID(c)
	_, err := h.Accounts.UpdateProfile(c.Request.Context(), userID, services.ProfileInput{
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
	}, formImage(c, "image"))
	if err != nil {
		fail(c, err, "Your profile could not be saved", "/account", logrus.Fields{"op": "update_profile"})
		return
	}
	flash(c, session.FlashSuccess, "Profile updated")
	redirect(c, "/account")
}
