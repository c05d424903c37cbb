package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"sweetbite/middleware"
	"sweetbite/services"
	"sweetbite/session"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// DeliveryDashboard shows orders waiting for pickup, the courier's current
// deliveries and their recent history
func (h *Handler) DeliveryDashboard(c *gin.Context) {
	ctx := c.Request.Context()
	deliveryID := middleware.GetUserID(c)

	available, err := h.Orders.AvailableForDelivery(ctx)
	if err != nil {
		h.serverError(c, err, "available_orders")
		return
	}
	assigned, err := h.Orders.AssignedTo(ctx, deliveryID)
	if err != nil {
		h.serverError(c, err, "assigned_orders")
		return
	}
	history, err := h.Orders.DeliveryHistory(ctx, deliveryID)
	if err != nil {
		h.serverError(c, err, "delivery_history")
		return
	}

	h.render(c, http.StatusOK, "delivery.html", gin.H{
		"Title":     "Deliveries",
		"Available": available,
		"Assigned":  assigned,
		"History":   history,
		"Live":      true,
	})
}

// ClaimOrder assigns a ready order to the courier. Losing a race to another
// courier is an expected outcome, reported without logging an error.
func (h *Handler) ClaimOrder(c *gin.Context) {
	orderID, ok := paramID(c, "id")
	if !ok {
		flash(c, session.FlashError, "Order not found")
		redirect(c, "/delivery")
		return
	}
	deliveryID := middleware.GetUserID(c)
	err := h.Orders.Claim(c.Request.Context(), deliveryID, orderID)
	if errors.Is(err, services.ErrClaimConflict) {
		logrus.WithFields(logrus.Fields{"order_id": orderID, "delivery_id": deliveryID}).Info("claim lost")
		flash(c, session.FlashError, "Sorry, that order was just taken by someone else or is no longer ready. Pick another one.")
		redirect(c, "/delivery")
		return
	} else if err != nil {
		fail(c, err, "Order could not be claimed", "/delivery", logrus.Fields{"op": "claim", "order_id": orderID})
		return
	}
	flash(c, session.FlashSuccess, "Order #"+strconv.FormatUint(uint64(orderID), 10)+" is yours. Time to pick it up!")
	redirect(c, "/delivery")
}

// UpdateDeliveryStatus handles the courier's status selector for assigned orders
func (h *Handler) UpdateDeliveryStatus(c *gin.Context) {
	orderID, ok := paramID(c, "id")
	if !ok {
		flash(c, session.FlashError, "Order not found")
		redirect(c, "/delivery")
		return
	}
	status, err := services.ParseStatus(c.PostForm("status"))
	if err != nil {
		fail(c, err, "Order could not be updated", "/delivery", nil)
		return
	}

	deliveryID := middleware.GetUserID(c)
	if err := h.Orders.UpdateStatusAsDelivery(c.Request.Context(), deliveryID, orderID, status); err != nil {
		fail(c, err, "Order could not be updated", "/delivery",
			logrus.Fields{"op": "delivery_status", "order_id": orderID, "status": status})
		return
	}
	flash(c, session.FlashSuccess, "Order #"+strconv.FormatUint(uint64(orderID), 10)+" marked "+status.Label())
	redirect(c, "/delivery")
}
