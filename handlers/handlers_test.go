package handlers_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sweetbite/cart"
	"sweetbite/config"
	"sweetbite/events"
	"sweetbite/handlers"
	"sweetbite/middleware"
	"sweetbite/models"
	"sweetbite/routes"
	"sweetbite/services"
	"sweetbite/session"
	"sweetbite/uploads"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type app struct {
	router http.Handler
	db     *gorm.DB
	h      *handlers.Handler
}

func newApp(t *testing.T) *app {
	t.Helper()
	dir := t.TempDir()
	db, err := config.OpenDB(&config.Config{DBDriver: "sqlite", DBPath: filepath.Join(dir, "test.db")})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	uploadDir := filepath.Join(dir, "uploads")
	files := uploads.NewStore(uploadDir)
	hub := events.NewHub()
	h := &handlers.Handler{
		DB:       db,
		Accounts: services.NewAccounts(db, files),
		Menu:     services.NewMenu(db, files),
		Orders:   services.NewOrders(db, hub),
		Hub:      hub,
	}
	r := routes.NewRouter(routes.Deps{
		Handler:      h,
		Sessions:     &middleware.Sessions{Store: session.NewMemoryStore(), Secret: []byte("test"), TTL: time.Hour},
		LoginLimiter: middleware.NewRateLimiter(1000),
		UploadDir:    uploadDir,
	})
	return &app{router: r, db: db, h: h}
}

func (a *app) user(t *testing.T, name string, role models.UserRole) *models.User {
	t.Helper()
	u, err := a.h.Accounts.Register(context.Background(), services.SignupInput{
		Name:     name,
		Email:    strings.ReplaceAll(strings.ToLower(name), " ", ".") + "@example.com",
		Password: "secret123",
		Role:     string(role),
	})
	require.NoError(t, err)
	return u
}

func (a *app) kitchen(t *testing.T, owner *models.User, dish, price string) (*models.Restaurant, *models.MenuItem) {
	t.Helper()
	ctx := context.Background()
	r, err := a.h.Menu.CreateRestaurant(ctx, owner.ID, services.RestaurantInput{Name: owner.Name + " Bakery", Address: "1 Main St"}, nil)
	require.NoError(t, err)
	it, err := a.h.Menu.CreateItem(ctx, owner.ID, services.MenuItemInput{Name: dish, Price: price, Available: true}, nil)
	require.NoError(t, err)
	return r, it
}

func (a *app) placeOrder(t *testing.T, customer *models.User, it *models.MenuItem) models.Order {
	t.Helper()
	ctx := context.Background()
	ci, err := a.h.Menu.FindForCart(ctx, it.ID, it.RestaurantID)
	require.NoError(t, err)
	c := cart.New()
	require.NoError(t, c.Add(ci, 1))
	placed, err := a.h.Orders.Checkout(ctx, customer.ID, c, services.CheckoutInput{Address: "2 Side St"})
	require.NoError(t, err)
	require.Len(t, placed, 1)
	return placed[0]
}

func (a *app) status(t *testing.T, orderID uint) models.OrderStatus {
	t.Helper()
	var o models.Order
	require.NoError(t, a.db.First(&o, orderID).Error)
	return o.Status
}

// browser keeps the session cookie between requests
type browser struct {
	t      *testing.T
	app    *app
	cookie *http.Cookie
}

func (a *app) browser(t *testing.T) *browser {
	return &browser{t: t, app: a}
}

func (b *browser) do(method, path string, form url.Values) *httptest.ResponseRecorder {
	b.t.Helper()
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	return b.send(method, path, body, form != nil)
}

// raw posts an already encoded form body as is
func (b *browser) raw(method, path, encoded string) *httptest.ResponseRecorder {
	b.t.Helper()
	return b.send(method, path, strings.NewReader(encoded), true)
}

func (b *browser) send(method, path string, body io.Reader, isForm bool) *httptest.ResponseRecorder {
	b.t.Helper()
	req := httptest.NewRequest(method, path, body)
	if isForm {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if b.cookie != nil {
		req.AddCookie(b.cookie)
	}
	w := httptest.NewRecorder()
	b.app.router.ServeHTTP(w, req)
	for _, ck := range w.Result().Cookies() {
		if ck.Name == middleware.SessionCookie {
			b.cookie = ck
		}
	}
	return w
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.do(http.MethodGet, path, nil)
}

func (b *browser) post(path string, form url.Values) *httptest.ResponseRecorder {
	if form == nil {
		form = url.Values{}
	}
	return b.do(http.MethodPost, path, form)
}

// follow asserts a See Other redirect and loads its target
func (b *browser) follow(w *httptest.ResponseRecorder) *httptest.ResponseRecorder {
	b.t.Helper()
	require.Equal(b.t, http.StatusSeeOther, w.Code, w.Body.String())
	return b.get(w.Header().Get("Location"))
}

func (b *browser) login(u *models.User) {
	b.t.Helper()
	w := b.post("/login", url.Values{"email": {u.Email}, "password": {"secret123"}})
	require.Equal(b.t, http.StatusSeeOther, w.Code)
	require.Equal(b.t, u.Role.HomePath(), w.Header().Get("Location"))
}

func TestSignupLogsInAndEnforcesRole(t *testing.T) {
	a := newApp(t)
	b := a.browser(t)

	w := b.post("/signup", url.Values{
		"name":     {"Alice Smith"},
		"email":    {"alice@example.com"},
		"password": {"secret123"},
		"role":     {"customer"},
	})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/customer", w.Header().Get("Location"))

	page := b.follow(w)
	assert.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "Welcome to Sweet Bite, Alice Smith!")

	w = b.get("/restaurant/menu")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/customer", w.Header().Get("Location"))

	w = b.get("/login")
	assert.Equal(t, http.StatusSeeOther, w.Code)
}

func TestSignupValidationRerendersForm(t *testing.T) {
	a := newApp(t)
	b := a.browser(t)

	w := b.post("/signup", url.Values{
		"name":     {"Bob Jones"},
		"email":    {"bob@example.com"},
		"password": {"123"},
		"role":     {"delivery"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Password must be at least 6 characters")
	assert.Contains(t, w.Body.String(), "bob@example.com")

	a.user(t, "Carol King", models.RoleCustomer)
	w = b.post("/signup", url.Values{
		"name":     {"Carol Again"},
		"email":    {"carol.king@example.com"},
		"password": {"secret123"},
		"role":     {"customer"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Email is already registered")
}

func TestLoginAndLogout(t *testing.T) {
	a := newApp(t)
	u := a.user(t, "Dan Brown", models.RoleDelivery)
	b := a.browser(t)

	w := b.post("/login", url.Values{"email": {u.Email}, "password": {"wrong-password"}})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid email or password")

	b.login(u)
	page := b.get("/delivery")
	assert.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "Dan Brown")

	page = b.follow(b.post("/logout", nil))
	assert.Contains(t, page.Body.String(), "You have been logged out")

	w = b.get("/delivery")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestAnonymousVisitorIsSentToLogin(t *testing.T) {
	a := newApp(t)
	b := a.browser(t)

	w := b.get("/")
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	page := b.follow(b.get("/customer/orders"))
	assert.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "Please log in to continue")
}

func TestCartAndCheckout(t *testing.T) {
	a := newApp(t)
	owner := a.user(t, "Olive Baker", models.RoleRestaurant)
	r, cake := a.kitchen(t, owner, "Cheesecake", "5.00")
	customer := a.user(t, "Eve Adams", models.RoleCustomer)

	b := a.browser(t)
	b.login(customer)

	page := b.get(fmt.Sprintf("/customer?restaurant_id=%d", r.ID))
	require.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "Cheesecake")
	assert.Contains(t, page.Body.String(), "Your cart is empty.")

	w := b.post("/customer/cart/add", url.Values{
		"menu_item_id":  {fmt.Sprint(cake.ID)},
		"restaurant_id": {fmt.Sprint(r.ID)},
		"quantity":      {"2"},
	})
	assert.Equal(t, fmt.Sprintf("/customer?restaurant_id=%d", r.ID), w.Header().Get("Location"))
	page = b.follow(w)
	assert.Contains(t, page.Body.String(), "Total: $10.00")

	page = b.follow(b.post("/customer/checkout", url.Values{"address": {"  "}}))
	assert.Contains(t, page.Body.String(), "A delivery address is required")

	page = b.follow(b.post("/customer/checkout", url.Values{"address": {"2 Side St"}, "latitude": {"north"}}))
	assert.Contains(t, page.Body.String(), "Location must be given as decimal latitude and longitude")

	page = b.follow(b.raw(http.MethodPost, "/customer/checkout", "address=%zz"))
	assert.Contains(t, page.Body.String(), "Please check the form and try again")
	assert.NotContains(t, page.Body.String(), "A delivery address is required")

	w = b.post("/customer/checkout", url.Values{"address": {"2 Side St"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/customer/orders", w.Header().Get("Location"))
	page = b.follow(w)
	body := page.Body.String()
	assert.Contains(t, body, "Your order has been placed")
	assert.Contains(t, body, "2 Side St")
	assert.Contains(t, body, "$10.00")

	var orders []models.Order
	require.NoError(t, a.db.Where("customer_id = ?", customer.ID).Find(&orders).Error)
	require.Len(t, orders, 1)
	assert.Equal(t, models.StatusPlaced, orders[0].Status)

	var saved models.User
	require.NoError(t, a.db.First(&saved, customer.ID).Error)
	assert.Equal(t, "2 Side St", saved.Address)

	page = b.follow(b.post("/customer/checkout", url.Values{"address": {"2 Side St"}}))
	assert.Contains(t, page.Body.String(), "Your cart is empty")
}

func TestCartRemoveAndClear(t *testing.T) {
	a := newApp(t)
	owner := a.user(t, "Olive Baker", models.RoleRestaurant)
	r, cake := a.kitchen(t, owner, "Cheesecake", "5.00")
	customer := a.user(t, "Eve Adams", models.RoleCustomer)

	b := a.browser(t)
	b.login(customer)

	ids := url.Values{"menu_item_id": {fmt.Sprint(cake.ID)}, "restaurant_id": {fmt.Sprint(r.ID)}}
	page := b.follow(b.post("/customer/cart/remove", ids))
	assert.Contains(t, page.Body.String(), "That item is not in your cart")

	b.post("/customer/cart/add", ids)
	page = b.follow(b.post("/customer/cart/remove", ids))
	assert.Contains(t, page.Body.String(), "Item removed from your cart")
	assert.Contains(t, page.Body.String(), "Your cart is empty.")

	b.post("/customer/cart/add", ids)
	page = b.follow(b.post("/customer/cart/clear", nil))
	assert.Contains(t, page.Body.String(), "Your cart is now empty")

	page = b.follow(b.post("/customer/cart/add", url.Values{"restaurant_id": {fmt.Sprint(r.ID)}}))
	assert.Contains(t, page.Body.String(), "Menu item is required")
}

func TestRestaurantSetupAndMenu(t *testing.T) {
	a := newApp(t)
	owner := a.user(t, "Olive Baker", models.RoleRestaurant)
	b := a.browser(t)
	b.login(owner)

	w := b.get("/restaurant")
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/restaurant/setup", w.Header().Get("Location"))
	page := b.follow(w)
	assert.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "Set up your restaurant to get started")

	w = b.post("/restaurant/setup", url.Values{"name": {"Sugar Rush"}, "address": {"9 Candy Ln"}})
	assert.Equal(t, "/restaurant/menu", w.Header().Get("Location"))
	page = b.follow(w)
	assert.Contains(t, page.Body.String(), "Restaurant created")

	page = b.follow(b.post("/restaurant/setup", url.Values{"name": {"Second"}, "address": {"x"}}))
	assert.Contains(t, page.Body.String(), "You already have a restaurant")

	page = b.follow(b.post("/restaurant/menu", url.Values{"name": {"Eclair"}, "price": {"abc"}}))
	assert.NotContains(t, page.Body.String(), "Eclair added")

	page = b.follow(b.post("/restaurant/menu", url.Values{"name": {"Eclair"}, "price": {"6.50"}, "available": {"true"}}))
	body := page.Body.String()
	assert.Contains(t, body, "Eclair added to the menu")
	assert.Contains(t, body, "<td>$6.50</td>")

	page = b.get("/restaurant")
	assert.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "Sugar Rush")
}

func TestRestaurantStatusUpdate(t *testing.T) {
	a := newApp(t)
	owner := a.user(t, "Olive Baker", models.RoleRestaurant)
	_, cake := a.kitchen(t, owner, "Cheesecake", "5.00")
	customer := a.user(t, "Eve Adams", models.RoleCustomer)
	order := a.placeOrder(t, customer, cake)

	b := a.browser(t)
	b.login(owner)
	path := fmt.Sprintf("/restaurant/orders/%d/status", order.ID)

	page := b.follow(b.post(path, url.Values{"status": {"cooking"}}))
	assert.Contains(t, page.Body.String(), "Invalid order status")

	page = b.follow(b.post(path, url.Values{"status": {"delivered"}}))
	assert.Contains(t, page.Body.String(), "Valid transitions from placed are: ready")
	assert.Equal(t, models.StatusPlaced, a.status(t, order.ID))

	page = b.follow(b.post(path, url.Values{"status": {"ready"}}))
	assert.Contains(t, page.Body.String(), fmt.Sprintf("Order #%d marked Ready", order.ID))
	assert.Equal(t, models.StatusReady, a.status(t, order.ID))

	// another owner cannot touch it
	other := a.user(t, "Rival Cook", models.RoleRestaurant)
	a.kitchen(t, other, "Donut", "2.00")
	rb := a.browser(t)
	rb.login(other)
	page = rb.follow(rb.post(path, url.Values{"status": {"ready"}}))
	assert.Contains(t, page.Body.String(), "Order could not be updated")
	assert.Equal(t, models.StatusReady, a.status(t, order.ID))

	// the customer sees each step with its time
	cb := a.browser(t)
	cb.login(customer)
	page = cb.get("/customer/orders")
	require.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), " Placed</small>")
	assert.Contains(t, page.Body.String(), " Ready</small>")
}

func TestClaimConflictIsReported(t *testing.T) {
	a := newApp(t)
	owner := a.user(t, "Olive Baker", models.RoleRestaurant)
	_, cake := a.kitchen(t, owner, "Cheesecake", "5.00")
	customer := a.user(t, "Eve Adams", models.RoleCustomer)
	order := a.placeOrder(t, customer, cake)
	require.NoError(t, a.h.Orders.UpdateStatusAsRestaurant(context.Background(), owner.ID, order.ID, models.StatusReady))

	first := a.browser(t)
	first.login(a.user(t, "Fast Rider", models.RoleDelivery))
	second := a.browser(t)
	second.login(a.user(t, "Slow Rider", models.RoleDelivery))

	page := second.get("/delivery")
	assert.Contains(t, page.Body.String(), fmt.Sprintf("/delivery/orders/%d/claim", order.ID))

	claim := fmt.Sprintf("/delivery/orders/%d/claim", order.ID)
	page = first.follow(first.post(claim, nil))
	assert.Contains(t, page.Body.String(), "is yours")

	page = second.follow(second.post(claim, nil))
	assert.Contains(t, page.Body.String(), "that order was just taken by someone else")
	assert.Equal(t, models.StatusPickedUp, a.status(t, order.ID))

	status := fmt.Sprintf("/delivery/orders/%d/status", order.ID)
	second.follow(second.post(status, url.Values{"status": {"delivered"}}))
	assert.Equal(t, models.StatusPickedUp, a.status(t, order.ID))

	page = first.follow(first.post(status, url.Values{"status": {"delivered"}}))
	assert.Contains(t, page.Body.String(), "marked Delivered")
	assert.Equal(t, models.StatusDelivered, a.status(t, order.ID))
}

func TestDeleteMenuItemKeepsOrderHistory(t *testing.T) {
	a := newApp(t)
	owner := a.user(t, "Olive Baker", models.RoleRestaurant)
	_, cake := a.kitchen(t, owner, "Cheesecake", "5.00")
	customer := a.user(t, "Eve Adams", models.RoleCustomer)
	a.placeOrder(t, customer, cake)

	b := a.browser(t)
	b.login(owner)
	page := b.follow(b.post(fmt.Sprintf("/restaurant/menu/%d/delete", cake.ID), nil))
	assert.Contains(t, page.Body.String(), "Dish deleted")

	var count int64
	require.NoError(t, a.db.Model(&models.MenuItem{}).Where("id = ?", cake.ID).Count(&count).Error)
	assert.Zero(t, count)

	cb := a.browser(t)
	cb.login(customer)
	page = cb.get("/customer/orders")
	assert.Equal(t, http.StatusOK, page.Code)
	assert.Contains(t, page.Body.String(), "Cheesecake")
}

func TestAccountUpdate(t *testing.T) {
	a := newApp(t)
	u := a.user(t, "Eve Adams", models.RoleCustomer)
	b := a.browser(t)
	b.login(u)

	page := b.get("/account")
	require.Equal(t, http.StatusOK, page.Code)

	page = b.follow(b.post("/account", url.Values{
		"name":    {"Eve Baker"},
		"email":   {"eve.baker@example.com"},
		"address": {"5 New Rd"},
	}))
	assert.Contains(t, page.Body.String(), "Profile updated")
	assert.Contains(t, page.Body.String(), "Eve Baker")
}

func TestHealthStateMachineAndNotFound(t *testing.T) {
	a := newApp(t)
	b := a.browser(t)

	w := b.get("/health")
	require.Equal(t, http.StatusOK, w.Code)
	var health map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health["status"])

	w = b.get("/state-machine")
	require.Equal(t, http.StatusOK, w.Code)
	var info struct {
		StateMachine   []map[string]string `json:"state_machine"`
		TerminalStates []string            `json:"terminal_states"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.NotEmpty(t, info.StateMachine)
	assert.Equal(t, []string{"delivered"}, info.TerminalStates)

	w = b.get("/no/such/page")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Page not found")

	w = b.get("/ws/orders")
	assert.Equal(t, http.StatusSeeOther, w.Code)
}
