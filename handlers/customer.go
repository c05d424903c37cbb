package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"sweetbite/middleware"
	"sweetbite/services"
	"sweetbite/session"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type CartAddRequest struct {
	MenuItemID   uint `form:"menu_item_id" binding:"required"`
	RestaurantID uint `form:"restaurant_id" binding:"required"`
	Quantity     int  `form:"quantity" binding:"omitempty,min=1,max=99"`
}

type CartRemoveRequest struct {
	MenuItemID   uint `form:"menu_item_id" binding:"required"`
	RestaurantID uint `form:"restaurant_id" binding:"required"`
}

type CheckoutRequest struct {
	Address   string `form:"address"`
	Latitude  string `form:"latitude"`
	Longitude string `form:"longitude"`
}

// CustomerHome lists restaurants, the selected restaurant's menu and the cart
func (h *Handler) CustomerHome(c *gin.Context) {
	ctx := c.Request.Context()
	restaurants, err := h.Menu.ListRestaurants(ctx)
	if err != nil {
		h.serverError(c, err, "list_restaurants")
		return
	}

	data := gin.H{
		"Title":       "Restaurants",
		"Restaurants": restaurants,
	}

	if rid, err := strconv.ParseUint(c.Query("restaurant_id"), 10, 64); err == nil && rid > 0 {
		r, err := h.Menu.Restaurant(ctx, uint(rid))
		if err == nil {
			items, err := h.Menu.AvailableItems(ctx, r.ID)
			if err != nil {
				h.serverError(c, err, "list_menu")
				return
			}
			data["Selected"] = r
			data["Items"] = items
		} else {
			flash(c, session.FlashError, "That restaurant does not exist")
		}
	}

	basket := middleware.CurrentSession(c).Cart
	data["Buckets"] = basket.Buckets()
	data["GrandTotal"] = basket.GrandTotal()

	me := h.currentUser(c)
	data["Me"] = me
	if me != nil {
		data["Address"] = me.Address
	}
	h.render(c, http.StatusOK, "customer.html", data)
}

func (h *Handler) AddToCart(c *gin.Context) {
	var req CartAddRequest
	if err := c.ShouldBind(&req); err != nil {
		flash(c, session.FlashError, bindMessage(err))
		redirect(c, "/customer")
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	back := fmt.Sprintf("/customer?restaurant_id=%d", req.RestaurantID)

	item, err := h.Menu.FindForCart(c.Request.Context(), req.MenuItemID, req.RestaurantID)
	if err != nil {
		fail(c, err, "Could not add the item to your cart", back, logrus.Fields{"op": "cart_add", "menu_item_id": req.MenuItemID})
		return
	}
	if err := middleware.CurrentSession(c).CartForUpdate().Add(item, req.Quantity); err != nil {
		fail(c, err, "Could not add the item to your cart", back, nil)
		return
	}
	flash(c, session.FlashSuccess, fmt.Sprintf("Added %d × %s to your cart", req.Quantity, item.Name))
	redirect(c, back)
}

func (h *Handler) RemoveFromCart(c *gin.Context) {
	var req CartRemoveRequest
	if err := c.ShouldBind(&req); err != nil {
		flash(c, session.FlashError, bindMessage(err))
		redirect(c, "/customer")
		return
	}
	sess := middleware.CurrentSession(c)
	if sess.Cart.IsEmpty() || !sess.CartForUpdate().Remove(req.RestaurantID, req.MenuItemID) {
		flash(c, session.FlashError, "That item is not in your cart")
	} else {
		flash(c, session.FlashSuccess, "Item removed from your cart")
	}
	redirect(c, "/customer")
}

func (h *Handler) ClearCart(c *gin.Context) {
	middleware.CurrentSession(c).ClearCart()
	flash(c, session.FlashSuccess, "Your cart is now empty")
	redirect(c, "/customer")
}

func parseCoord(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// Checkout places one order per restaurant in the cart, then empties the cart
func (h *Handler) Checkout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBind(&req); err != nil {
		flash(c, session.FlashError, bindMessage(err))
		redirect(c, "/customer")
		return
	}

	lat, err1 := parseCoord(req.Latitude)
	lng, err2 := parseCoord(req.Longitude)
	if err1 != nil || err2 != nil {
		flash(c, session.FlashError, "Location must be given as decimal latitude and longitude")
		redirect(c, "/customer")
		return
	}

	sess := middleware.CurrentSession(c)
	customerID := middleware.GetUserID(c)
	orders, err := h.Orders.Checkout(c.Request.Context(), customerID, sess.Cart, services.CheckoutInput{
		Address:   req.Address,
		Latitude:  lat,
		Longitude: lng,
	})
	if err != nil {
		fail(c, err, "Your order could not be placed, please try again", "/customer",
			logrus.Fields{"op": "checkout", "restaurants": len(sess.Cart.RestaurantIDs())})
		return
	}

	sess.ClearCart()
	if len(orders) == 1 {
		flash(c, session.FlashSuccess, "Your order has been placed")
	} else {
		flash(c, session.FlashSuccess, fmt.Sprintf("%d orders have been placed, one per restaurant", len(orders)))
	}
	redirect(c, "/customer/orders")
}

// CustomerOrders shows the customer's order history
func (h *Handler) CustomerOrders(c *gin.Context) {
	ctx := c.Request.Context()
	orders, err := h.Orders.CustomerOrders(ctx, middleware.GetUserID(c))
	if err != nil {
		h.serverError(c, err, "customer_orders")
		return
	}
	ids := make([]uint, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	timeline, err := h.Orders.History(ctx, ids...)
	if err != nil {
		h.serverError(c, err, "order_history")
		return
	}
	h.render(c, http.StatusOK, "customer_orders.html", gin.H{
		"Title":    "My orders",
		"Orders":   orders,
		"Timeline": timeline,
		"Live":     true,
	})
}

// serverError logs err and renders the error page
func (h *Handler) serverError(c *gin.Context, err error, op string) {
	logrus.WithFields(logrus.Fields{
		"op":      op,
		"path":    c.Request.URL.Path,
		"user_id": middleware.GetUserID(c),
	}).WithError(err).Error("request failed")
	h.render(c, http.StatusInternalServerError, "error.html", gin.H{
		"Title":   "Something went wrong",
		"Message": "Please try again in a moment.",
	})
}
