package handlers

import (
	"net/http"
	"strconv"

	"sweetbite/middleware"
	"sweetbite/services"
	"sweetbite/session"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RestaurantDashboard lists the restaurant's orders with filters and a per-status summary
func (h *Handler) RestaurantDashboard(c *gin.Context) {
	r, ok := h.ownRestaurant(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	filter := services.NewRestaurantFilter(c.Query("status"), c.Query("start_date"), c.Query("end_date"))

	orders, err := h.Orders.RestaurantOrders(ctx, r.ID, filter)
	if err != nil {
		h.serverError(c, err, "restaurant_orders")
		return
	}
	summary, err := h.Orders.StatusSummary(ctx, r.ID)
	if err != nil {
		h.serverError(c, err, "status_summary")
		return
	}

	data := gin.H{
		"Title":      r.Name,
		"Restaurant": r,
		"Orders":     orders,
		"Summary":    summary,
		"Filter":     filter,
		"StartDate":  "",
		"EndDate":    "",
		"Live":       true,
	}
	if !filter.From.IsZero() {
		data["StartDate"] = filter.From.Format("2006-01-02")
	}
	if !filter.Until.IsZero() {
		data["EndDate"] = filter.Until.AddDate(0, 0, -1).Format("2006-01-02")
	}
	h.render(c, http.StatusOK, "restaurant.html", data)
}

// UpdateOrderStatus handles the restaurant's status selector
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	orderID, ok := paramID(c, "id")
	if !ok {
		flash(c, session.FlashError, services.ErrOrderNotUpdated.Error())
		redirect(c, "/restaurant")
		return
	}
	status, err := services.ParseStatus(c.PostForm("status"))
	if err != nil {
		fail(c, err, "Order could not be updated", "/restaurant", nil)
		return
	}

	ownerID := middleware.GetUserID(c)
	if err := h.Orders.UpdateStatusAsRestaurant(c.Request.Context(), ownerID, orderID, status); err != nil {
		fail(c, err, "Order could not be updated", "/restaurant",
			logrus.Fields{"op": "restaurant_status", "order_id": orderID, "status": status})
		return
	}
	flash(c, session.FlashSuccess, "Order #"+strconv.FormatUint(uint64(orderID), 10)+" marked "+status.Label())
	redirect(c, "/restaurant")
}
