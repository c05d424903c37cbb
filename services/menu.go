package services

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"

	"sweetbite/cart"
	"sweetbite/models"
	"sweetbite/uploads"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type RestaurantInput struct {
	Name        string
	Address     string
	Description string
}

type MenuItemInput struct {
	Name        string
	Description string
	Price       string
	Available   bool
}

type Menu struct {
	db      *gorm.DB
	uploads *uploads.Store
}

func NewMenu(db *gorm.DB, store *uploads.Store) *Menu {
	return &Menu{db: db, uploads: store}
}

func (in RestaurantInput) validate() (RestaurantInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Address = strings.TrimSpace(in.Address)
	in.Description = strings.TrimSpace(in.Description)
	if in.Name == "" || len(in.Name) > 100 {
		return in, invalid("Restaurant name is required (up to 100 characters)")
	}
	if in.Address == "" {
		return in, invalid("Restaurant address is required")
	}
	return in, nil
}

func (in MenuItemInput) parse() (MenuItemInput, decimal.Decimal, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if in.Name == "" || len(in.Name) > 100 {
		return in, decimal.Zero, invalid("Item name is required (up to 100 characters)")
	}
	price, err := decimal.NewFromString(strings.TrimSpace(in.Price))
	if err != nil || !price.IsPositive() {
		return in, decimal.Zero, invalid("Price must be a number greater than zero")
	}
	if price.Exponent() < -2 || price.GreaterThanOrEqual(decimal.New(1, 8)) {
		return in, decimal.Zero, invalid("Price must have at most two decimals and be below 100000000")
	}
	return in, price, nil
}

// RestaurantForOwner returns the restaurant owned by the user
func (m *Menu) RestaurantForOwner(ctx context.Context, ownerID uint) (*models.Restaurant, error) {
	var r models.Restaurant
	err := m.db.WithContext(ctx).Where("owner_id = ?", ownerID).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRestaurantNotFound
	}
	return &r, err
}

func (m *Menu) Restaurant(ctx context.Context, id uint) (*models.Restaurant, error) {
	var r models.Restaurant
	err := m.db.WithContext(ctx).First(&r, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRestaurantNotFound
	}
	return &r, err
}

// ListRestaurants returns every restaurant with its number of available items
func (m *Menu) ListRestaurants(ctx context.Context) ([]models.Restaurant, error) {
	var rs []models.Restaurant
	err := m.db.WithContext(ctx).Model(&models.Restaurant{}).
		Select("restaurants.*, (SELECT COUNT(*) FROM menu_items WHERE menu_items.restaurant_id = restaurants.id AND menu_items.available = ?) AS available_items", true).
		Order("restaurants.name ASC, restaurants.id ASC").
		Find(&rs).Error
	return rs, err
}

// AvailableItems lists what customers can order from a restaurant
func (m *Menu) AvailableItems(ctx context.Context, restaurantID uint) ([]models.MenuItem, error) {
	var items []models.MenuItem
	err := m.db.WithContext(ctx).
		Where("restaurant_id = ? AND available = ?", restaurantID, true).
		Order("name ASC, id ASC").
		Find(&items).Error
	return items, err
}

// FindForCart looks up a menu item by id and restaurant and returns what the cart stores
func (m *Menu) FindForCart(ctx context.Context, menuItemID, restaurantID uint) (cart.Item, error) {
	var item models.MenuItem
	err := m.db.WithContext(ctx).
		Where("id = ? AND restaurant_id = ?", menuItemID, restaurantID).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return cart.Item{}, ErrMenuItemNotFound
	} else if err != nil {
		return cart.Item{}, err
	}
	if !item.Available {
		return cart.Item{}, ErrMenuItemUnavailable
	}

	r, err := m.Restaurant(ctx, restaurantID)
	if err != nil {
		return cart.Item{}, err
	}
	return cart.Item{
		MenuItemID:      item.ID,
		RestaurantID:    r.ID,
		RestaurantName:  r.Name,
		RestaurantImage: r.Image,
		Name:            item.Name,
		Price:           item.Price,
		Image:           item.Image,
	}, nil
}

// CreateRestaurant sets up the owner's restaurant. An owner has at most one.
func (m *Menu) CreateRestaurant(ctx context.Context, ownerID uint, in RestaurantInput, image *multipart.FileHeader) (*models.Restaurant, error) {
	in, err := in.validate()
	if err != nil {
		return nil, err
	}
	if _, err := m.RestaurantForOwner(ctx, ownerID); err == nil {
		return nil, ErrRestaurantExists
	} else if !errors.Is(err, ErrRestaurantNotFound) {
		return nil, err
	}

	r := models.Restaurant{
		OwnerID:     ownerID,
		Name:        in.Name,
		Address:     in.Address,
		Description: in.Description,
	}
	if image != nil {
		if r.Image, err = m.uploads.Save(image, uploads.DirRestaurants); err != nil {
			return nil, imageError(err)
		}
	}
	if err := m.db.WithContext(ctx).Create(&r).Error; err != nil {
		_ = m.uploads.Remove(r.Image)
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"restaurant_id": r.ID, "owner_id": ownerID}).Info("restaurant created")
	return &r, nil
}

func (m *Menu) UpdateRestaurant(ctx context.Context, ownerID uint, in RestaurantInput, image *multipart.FileHeader) (*models.Restaurant, error) {
	in, err := in.validate()
	if err != nil {
		return nil, err
	}
	r, err := m.RestaurantForOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{
		"name":        in.Name,
		"address":     in.Address,
		"description": in.Description,
	}
	oldImage := r.Image
	newImage := ""
	if image != nil {
		if newImage, err = m.uploads.Save(image, uploads.DirRestaurants); err != nil {
			return nil, imageError(err)
		}
		updates["image"] = newImage
	}
	if err := m.db.WithContext(ctx).Model(r).Updates(updates).Error; err != nil {
		_ = m.uploads.Remove(newImage)
		return nil, err
	}
	if newImage != "" {
		removeQuietly(m.uploads, oldImage)
	}
	return m.RestaurantForOwner(ctx, ownerID)
}

// Items lists every item of the owner's restaurant
func (m *Menu) Items(ctx context.Context, ownerID uint) ([]models.MenuItem, error) {
	r, err := m.RestaurantForOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	var items []models.MenuItem
	err = m.db.WithContext(ctx).Where("restaurant_id = ?", r.ID).Order("name ASC, id ASC").Find(&items).Error
	return items, err
}

func (m *Menu) CreateItem(ctx context.Context, ownerID uint, in MenuItemInput, image *multipart.FileHeader) (*models.MenuItem, error) {
	in, price, err := in.parse()
	if err != nil {
		return nil, err
	}
	r, err := m.RestaurantForOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	item := models.MenuItem{
		RestaurantID: r.ID,
		Name:         in.Name,
		Description:  in.Description,
		Price:        price,
		Available:    in.Available,
	}
	if image != nil {
		if item.Image, err = m.uploads.Save(image, uploads.DirMenu); err != nil {
			return nil, imageError(err)
		}
	}
	if err := m.db.WithContext(ctx).Create(&item).Error; err != nil {
		_ = m.uploads.Remove(item.Image)
		return nil, err
	}
	return &item, nil
}

// ownedItem loads a menu item only if it belongs to the owner's restaurant
func ownedItem(tx *gorm.DB, ownerID, itemID uint) (*models.MenuItem, error) {
	var item models.MenuItem
	err := tx.Select("menu_items.*").
		Joins("JOIN restaurants ON restaurants.id = menu_items.restaurant_id").
		Where("menu_items.id = ? AND restaurants.owner_id = ?", itemID, ownerID).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMenuItemNotFound
	}
	return &item, err
}

func (m *Menu) UpdateItem(ctx context.Context, ownerID, itemID uint, in MenuItemInput, image *multipart.FileHeader) (*models.MenuItem, error) {
	in, price, err := in.parse()
	if err != nil {
		return nil, err
	}
	db := m.db.WithContext(ctx)
	item, err := ownedItem(db, ownerID, itemID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{
		"name":        in.Name,
		"description": in.Description,
		"price":       price,
		"available":   in.Available,
	}
	oldImage := item.Image
	newImage := ""
	if image != nil {
		if newImage, err = m.uploads.Save(image, uploads.DirMenu); err != nil {
			return nil, imageError(err)
		}
		updates["image"] = newImage
	}
	if err := db.Model(item).Updates(updates).Error; err != nil {
		_ = m.uploads.Remove(newImage)
		return nil, err
	}
	if newImage != "" {
		removeQuietly(m.uploads, oldImage)
	}
	return ownedItem(db, ownerID, itemID)
}

// DeleteItem removes a menu item owned by the user. Order lines that referenced it
// keep their name, quantity and price with a null menu item reference.
// The stored image goes last so a failure to remove it rolls the delete back.
func (m *Menu) DeleteItem(ctx context.Context, ownerID, itemID uint) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item, err := ownedItem(tx, ownerID, itemID)
		if err != nil {
			return err
		}
		if err := tx.Model(&models.OrderItem{}).
			Where("menu_item_id = ?", item.ID).
			Update("menu_item_id", nil).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.MenuItem{}, item.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrMenuItemNotFound
		}
		if err := m.uploads.Remove(item.Image); err != nil {
			return err
		}
		logrus.WithFields(logrus.Fields{"menu_item_id": item.ID, "restaurant_id": item.RestaurantID}).Info("menu item deleted")
		return nil
	})
}
