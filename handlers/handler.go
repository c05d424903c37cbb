package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"sweetbite/events"
	"sweetbite/middleware"
	"sweetbite/models"
	"sweetbite/services"
	"sweetbite/session"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Handler serves every page. Each page handles its own form posts and
// reports the outcome with a flash message on redirect.
type Handler struct {
	DB       *gorm.DB
	Accounts *services.Accounts
	Menu     *services.Menu
	Orders   *services.Orders
	Hub      *events.Hub
}

func (h *Handler) currentUser(c *gin.Context) *models.User {
	data := middleware.CurrentSession(c)
	if !data.LoggedIn() {
		return nil
	}
	u, err := h.Accounts.Get(c.Request.Context(), data.UserID)
	if err != nil {
		return nil
	}
	return u
}

// render fills in the layout values, saves the session and writes the page
func (h *Handler) render(c *gin.Context, code int, name string, data gin.H) {
	sess := middleware.CurrentSession(c)
	if data == nil {
		data = gin.H{}
	}
	if _, ok := data["Me"]; !ok {
		data["Me"] = h.currentUser(c)
	}
	data["Flashes"] = sess.Flashes()
	if err := middleware.SaveSession(c); err != nil {
		logrus.WithError(err).Error("session save failed")
	}
	c.HTML(code, name, data)
}

func redirect(c *gin.Context, path string) {
	if err := middleware.SaveSession(c); err != nil {
		logrus.WithError(err).Error("session save failed")
	}
	c.Redirect(http.StatusSeeOther, path)
}

func flash(c *gin.Context, kind, message string) {
	middleware.CurrentSession(c).AddFlash(kind, message)
}

// fail reports err to the user and redirects. Unexpected errors are logged
// and shown with the fallback text.
func fail(c *gin.Context, err error, fallback, path string, fields logrus.Fields) {
	if services.IsUserError(err) {
		flash(c, session.FlashError, services.UserMessage(err, fallback))
	} else {
		if fields == nil {
			fields = logrus.Fields{}
		}
		fields["path"] = c.Request.URL.Path
		fields["user_id"] = middleware.GetUserID(c)
		logrus.WithFields(fields).WithError(err).Error(fallback)
		flash(c, session.FlashError, fallback)
	}
	redirect(c, path)
}

func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// formImage returns the uploaded file for field, or nil when none was sent
func formImage(c *gin.Context, field string) *multipart.FileHeader {
	fh, err := c.FormFile(field)
	if err != nil || fh.Size == 0 {
		return nil
	}
	return fh
}

var fieldLabels = map[string]string{
	"MenuItemID":   "Menu item",
	"RestaurantID": "Restaurant",
}

// bindMessage turns a binding error into a sentence for a flash message
func bindMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Please check the form and try again"
	}
	fe := verrs[0]
	name, ok := fieldLabels[fe.Field()]
	if !ok {
		name = fe.Field()
	}
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "email":
		return name + " must be a valid email address"
	case "min", "gte":
		if fe.Kind().String() == "string" {
			return name + " must be at least " + fe.Param() + " characters"
		}
		return name + " must be at least " + fe.Param()
	case "max", "lte":
		if fe.Kind().String() == "string" {
			return name + " must be at most " + fe.Param() + " characters"
		}
		return name + " must be at most " + fe.Param()
	case "oneof":
		return name + " must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	}
	return name + " is not valid"
}
