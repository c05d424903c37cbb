package handlers

import (
	"errors"
	"net/http"

	"sweetbite/middleware"
	"sweetbite/models"
	"sweetbite/services"
	"sweetbite/session"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type RestaurantRequest struct {
	Name        string `form:"name" binding:"required,max=100"`
	Address     string `form:"address" binding:"required,max=255"`
	Description string `form:"description" binding:"max=1000"`
}

type MenuItemRequest struct {
	Name        string `form:"name" binding:"required,max=100"`
	Description string `form:"description" binding:"max=1000"`
	Price       string `form:"price" binding:"required"`
	Available   bool   `form:"available"`
}

func (r MenuItemRequest) input() services.MenuItemInput {
	return services.MenuItemInput{
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		Available:   r.Available,
	}
}

// ownRestaurant returns the owner's restaurant or sends them to the setup page
func (h *Handler) ownRestaurant(c *gin.Context) (*models.Restaurant, bool) {
	r, err := h.Menu.RestaurantForOwner(c.Request.Context(), middleware.GetUserID(c))
	if errors.Is(err, services.ErrRestaurantNotFound) {
		flash(c, session.FlashInfo, "Set up your restaurant to get started")
		redirect(c, "/restaurant/setup")
		return nil, false
	} else if err != nil {
		h.serverError(c, err, "load_restaurant")
		return nil, false
	}
	return r, true
}

// RestaurantSetupPage shows the create form, or the profile form once the restaurant exists
func (h *Handler) RestaurantSetupPage(c *gin.Context) {
	r, err := h.Menu.RestaurantForOwner(c.Request.Context(), middleware.GetUserID(c))
	if err != nil && !errors.Is(err, services.ErrRestaurantNotFound) {
		h.serverError(c, err, "load_restaurant")
		return
	}
	form := RestaurantRequest{}
	if r != nil {
		form = RestaurantRequest{Name: r.Name, Address: r.Address, Description: r.Description}
	}
	h.render(c, http.StatusOK, "restaurant_setup.html", gin.H{
		"Title":      "Restaurant",
		"Restaurant": r,
		"Form":       form,
	})
}

func (h *Handler) bindRestaurant(c *gin.Context) (services.RestaurantInput, bool) {
	var req RestaurantRequest
	if err := c.ShouldBind(&req); err != nil {
		flash(c, session.FlashError, bindMessage(err))
		redirect(c, "/restaurant/setup")
		return services.RestaurantInput{}, false
	}
	return services.RestaurantInput{Name: req.Name, Address: req.Address, Description: req.Description}, true
}

func (h *Handler) CreateRestaurant(c *gin.Context) {
	in, ok := h.bindRestaurant(c)
	if !ok {
		return
	}
	ownerID := middleware.GetUserID(c)
	if _, err := h.Menu.CreateRestaurant(c.Request.Context(), ownerID, in, formImage(c, "image")); err != nil {
		fail(c, err, "Your restaurant could not be created", "/restaurant/setup", logrus.Fields{"op": "create_restaurant"})
		return
	}
	flash(c, session.FlashSuccess, "Restaurant created. Add some dishes to your menu!")
	redirect(c, "/restaurant/menu")
}

func (h *Handler) UpdateRestaurantProfile(c *gin.Context) {
	in, ok := h.bindRestaurant(c)
	if !ok {
		return
	}
	ownerID := middleware.GetUserID(c)
	if _, err := h.Menu.UpdateRestaurant(c.Request.Context(), ownerID, in, formImage(c, "image")); err != nil {
		fail(c, err, "Your restaurant could not be updated", "/restaurant/setup", logrus.Fields{"op": "update_restaurant"})
		return
	}
	flash(c, session.FlashSuccess, "Restaurant updated")
	redirect(c, "/restaurant/setup")
}

// MenuPage lists the owner's dishes with edit forms
func (h *Handler) MenuPage(c *gin.Context) {
	r, ok := h.ownRestaurant(c)
	if !ok {
		return
	}
	items, err := h.Menu.Items(c.Request.Context(), r.OwnerID)
	if err != nil {
		h.serverError(c, err, "list_menu")
		return
	}
	h.render(c, http.StatusOK, "restaurant_menu.html", gin.H{
		"Title":      "Menu",
		"Restaurant": r,
		"Items":      items,
	})
}

func (h *Handler) CreateMenuItem(c *gin.Context) {
	var req MenuItemRequest
	if err := c.ShouldBind(&req); err != nil {
		flash(c, session.FlashError, bindMessage(err))
		redirect(c, "/restaurant/menu")
		return
	}
	item, err := h.Menu.CreateItem(c.Request.Context(), middleware.GetUserID(c), req.input(), formImage(c, "image"))
	if err != nil {
		fail(c, err, "The dish could not be added", "/restaurant/menu", logrus.Fields{"op": "create_menu_item"})
		return
	}
	flash(c, session.FlashSuccess, item.Name+" added to the menu")
	redirect(c, "/restaurant/menu")
}

func (h *Handler) UpdateMenuItem(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		flash(c, session.FlashError, services.ErrMenuItemNotFound.Error())
		redirect(c, "/restaurant/menu")
		return
	}
	var req MenuItemRequest
	if err := c.ShouldBind(&req); err != nil {
		flash(c, session.FlashError, bindMessage(err))
		redirect(c, "/restaurant/menu")
		return
	}
	item, err := h.Menu.UpdateItem(c.Request.Context(), middleware.GetUserID(c), id, req.input(), formImage(c, "image"))
	if err != nil {
		fail(c, err, "The dish could not be updated", "/restaurant/menu", logrus.Fields{"op": "update_menu_item", "menu_item_id": id})
		return
	}
	flash(c, session.FlashSuccess, item.Name+" updated")
	redirect(c, "/restaurant/menu")
}

// DeleteMenuItem removes a dish; past orders keep their copy of its name and price
func (h *Handler) DeleteMenuItem(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		flash(c, session.FlashError, "Menu item not found")
		redirect(c, "/restaurant/menu")
		return
	}
	if err := h.Menu.DeleteItem(c.Request.Context(), middleware.GetUserID(c), id); err != nil {
		fail(c, err, "The dish could not be deleted", "/restaurant/menu", logrus.Fields{"op": "delete_menu_item", "menu_item_id": id})
		return
	}
	flash(c, session.FlashSuccess, "Dish deleted")
	redirect(c, "/restaurant/menu")
}
