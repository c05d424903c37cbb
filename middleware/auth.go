package middleware

import (
	"net/http"

	"sweetbite/models"
	"sweetbite/session"

	"github.com/gin-gonic/gin"
)

// AuthRequired sends visitors without a logged-in session to the login page
// and injects the user into context
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		data := CurrentSession(c)
		if !data.LoggedIn() {
			data.AddFlash(session.FlashError, "Please log in to continue")
			redirectAbort(c, "/login")
			return
		}
		c.Set("userID", data.UserID)
		c.Set("role", string(data.Role))
		c.Next()
	}
}

// RoleRequired lets through only the given roles; everyone else goes to their own home page
func RoleRequired(roles ...models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		callerRole := GetRole(c)
		for _, r := range roles {
			if callerRole == r {
				c.Next()
				return
			}
		}
		redirectAbort(c, callerRole.HomePath())
	}
}

// GuestOnly redirects logged-in users away from the login and signup pages
func GuestOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		data := CurrentSession(c)
		if data.LoggedIn() {
			redirectAbort(c, data.Role.HomePath())
			return
		}
		c.Next()
	}
}

func redirectAbort(c *gin.Context, path string) {
	_ = SaveSession(c)
	c.Redirect(http.StatusSeeOther, path)
	c.Abort()
}

// GetUserID extracts caller user ID from context
func GetUserID(c *gin.Context) uint {
	val, _ := c.Get("userID")
	id, _ := val.(uint)
	return id
}

// GetRole extracts caller role from context
func GetRole(c *gin.Context) models.UserRole {
	return models.UserRole(c.GetString("role"))
}
