package routes

import (
	"sweetbite/handlers"
	"sweetbite/middleware"
	"sweetbite/models"
	"sweetbite/templates"

	"github.com/gin-gonic/gin"
)

// Deps is everything the router needs
type Deps struct {
	Handler      *handlers.Handler
	Sessions     *middleware.Sessions
	LoginLimiter *middleware.RateLimiter
	UploadDir    string
	IsProd       bool
}

// NewRouter builds the engine with the global middleware, templates and routes
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(), middleware.SecurityHeaders(d.IsProd))
	r.SetHTMLTemplate(templates.MustLoad())
	r.MaxMultipartMemory = 8 << 20

	SetupRoutes(r, d)
	return r
}

func SetupRoutes(r *gin.Engine, d Deps) {
	h := d.Handler

	// ── Ops routes ─────────────────────────────────────────────────
	r.GET("/health", h.Health)
	r.GET("/state-machine", h.StateMachineInfo)
	r.Static("/uploads", d.UploadDir)

	site := r.Group("/")
	site.Use(d.Sessions.Middleware())
	{
		site.GET("/", h.Home)
		site.POST("/logout", h.Logout)
	}

	// ── Guest routes ───────────────────────────────────────────────
	guest := site.Group("/")
	guest.Use(middleware.GuestOnly())
	{
		guest.GET("/signup", h.SignupPage)
		guest.POST("/signup", d.LoginLimiter.Limit(), h.Signup)
		guest.GET("/login", h.LoginPage)
		guest.POST("/login", d.LoginLimiter.Limit(), h.Login)
	}

	// ── Authenticated routes ───────────────────────────────────────
	auth := site.Group("/")
	auth.Use(middleware.AuthRequired())
	{
		auth.GET("/account", h.AccountPage)
		auth.POST("/account", h.UpdateAccount)
		auth.GET("/ws/orders", h.OrdersSocket)
	}

	// ── Customer routes ────────────────────────────────────────────
	customer := site.Group("/customer")
	customer.Use(middleware.AuthRequired(), middleware.RoleRequired(models.RoleCustomer))
	{
		customer.GET("", h.CustomerHome)
		customer.POST("/cart/add", h.AddToCart)
		customer.POST("/cart/remove", h.RemoveFromCart)
		customer.POST("/cart/clear", h.ClearCart)
		customer.POST("/checkout", h.Checkout)
		customer.GET("/orders", h.CustomerOrders)
	}

	// ── Restaurant owner routes ────────────────────────────────────
	restaurant := site.Group("/restaurant")
	restaurant.Use(middleware.AuthRequired(), middleware.RoleRequired(models.RoleRestaurant))
	{
		// Restaurant management
		restaurant.GET("/setup", h.RestaurantSetupPage)
		restaurant.POST("/setup", h.CreateRestaurant)
		restaurant.POST("/profile", h.UpdateRestaurantProfile)

		// Menu management
		restaurant.GET("/menu", h.MenuPage)
		restaurant.POST("/menu", h.CreateMenuItem)
		restaurant.POST("/menu/:id", h.UpdateMenuItem)
		restaurant.POST("/menu/:id/delete", h.DeleteMenuItem)

		// Order management
		restaurant.GET("", h.RestaurantDashboard)
		restaurant.POST("/orders/:id/status", h.UpdateOrderStatus)
	}

	// ── Delivery routes ────────────────────────────────────────────
	delivery := site.Group("/delivery")
	delivery.Use(middleware.AuthRequired(), middleware.RoleRequired(models.RoleDelivery))
	{
		delivery.GET("", h.DeliveryDashboard)
		delivery.POST("/orders/:id/claim", h.ClaimOrder)
		delivery.POST("/orders/:id/status", h.UpdateDeliveryStatus)
	}

	r.NoRoute(d.Sessions.Middleware(), h.NotFound)
}
