package services

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"sweetbite/cart"
	"sweetbite/models"
	"sweetbite/uploads"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 64)...)

func TestDeleteItemKeepsOrderHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	customer := f.user(t, "carol", models.RoleCustomer)
	owner := f.user(t, "alice", models.RoleRestaurant)
	f.restaurant(t, owner)
	burger := f.item(t, owner, "Burger", "5.00")

	image, err := f.store.SaveReader(bytes.NewReader(pngHeader), uploads.DirMenu)
	require.NoError(t, err)
	require.NoError(t, f.db.Model(burger).Update("image", image).Error)

	c := cart.New()
	f.addToCart(t, c, burger, 2)
	placed, err := f.orders.Checkout(ctx, customer.ID, c, CheckoutInput{Address: "x"})
	require.NoError(t, err)

	require.NoError(t, f.menu.DeleteItem(ctx, owner.ID, burger.ID))

	var count int64
	f.db.Model(&models.MenuItem{}).Where("id = ?", burger.ID).Count(&count)
	assert.Zero(t, count)

	o := f.order(t, placed[0].ID)
	require.Len(t, o.Items, 1)
	assert.Nil(t, o.Items[0].MenuItemID)
	assert.Equal(t, "Burger", o.Items[0].Name)
	assert.Equal(t, 2, o.Items[0].Quantity)
	assert.True(t, o.Items[0].Price.Equal(dec("5.00")))

	_, err = os.Stat(filepath.Join(f.store.Root, filepath.FromSlash(image)))
	assert.True(t, os.IsNotExist(err))
}

func TestDeleteItemRequiresOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "alice", models.RoleRestaurant)
	other := f.user(t, "bob", models.RoleRestaurant)
	f.restaurant(t, owner)
	f.restaurant(t, other)
	burger := f.item(t, owner, "Burger", "5.00")

	assert.ErrorIs(t, f.menu.DeleteItem(ctx, other.ID, burger.ID), ErrMenuItemNotFound)
	assert.ErrorIs(t, f.menu.DeleteItem(ctx, owner.ID, 12345), ErrMenuItemNotFound)

	var count int64
	f.db.Model(&models.MenuItem{}).Where("id = ?", burger.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestDeleteItemWithMissingImageFile(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "alice", models.RoleRestaurant)
	f.restaurant(t, owner)
	burger := f.item(t, owner, "Burger", "5.00")
	require.NoError(t, f.db.Model(burger).Update("image", "menu/gone.png").Error)

	assert.NoError(t, f.menu.DeleteItem(context.Background(), owner.ID, burger.ID))
}

func TestFindForCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "alice", models.RoleRestaurant)
	other := f.user(t, "bob", models.RoleRestaurant)
	r := f.restaurant(t, owner)
	f.restaurant(t, other)
	burger := f.item(t, owner, "Burger", "5.00")
	soup := f.item(t, other, "Soup", "3.00")

	ci, err := f.menu.FindForCart(ctx, burger.ID, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.Name, ci.RestaurantName)
	assert.True(t, ci.Price.Equal(dec("5")))

	_, err = f.menu.FindForCart(ctx, soup.ID, r.ID)
	assert.ErrorIs(t, err, ErrMenuItemNotFound)

	_, err = f.menu.UpdateItem(ctx, owner.ID, burger.ID, MenuItemInput{Name: "Burger", Price: "5.00", Available: false}, nil)
	require.NoError(t, err)
	_, err = f.menu.FindForCart(ctx, burger.ID, r.ID)
	assert.ErrorIs(t, err, ErrMenuItemUnavailable)
}

func TestMenuItemValidationAndUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "alice", models.RoleRestaurant)
	other := f.user(t, "bob", models.RoleRestaurant)
	f.restaurant(t, owner)
	f.restaurant(t, other)

	for _, price := range []string{"", "abc", "0", "-1", "1.234"} {
		_, err := f.menu.CreateItem(ctx, owner.ID, MenuItemInput{Name: "X", Price: price}, nil)
		assert.ErrorIs(t, err, ErrValidation, price)
	}
	_, err := f.menu.CreateItem(ctx, owner.ID, MenuItemInput{Name: " ", Price: "1"}, nil)
	assert.ErrorIs(t, err, ErrValidation)

	it := f.item(t, owner, "Fries", "2.50")
	_, err = f.menu.UpdateItem(ctx, other.ID, it.ID, MenuItemInput{Name: "Stolen", Price: "1"}, nil)
	assert.ErrorIs(t, err, ErrMenuItemNotFound)

	updated, err := f.menu.UpdateItem(ctx, owner.ID, it.ID, MenuItemInput{Name: "Large Fries", Price: "3.75", Available: true}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Large Fries", updated.Name)
	assert.True(t, updated.Price.Equal(dec("3.75")))

	items, err := f.menu.Items(ctx, owner.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestRestaurantSetup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "alice", models.RoleRestaurant)

	_, err := f.menu.RestaurantForOwner(ctx, owner.ID)
	assert.ErrorIs(t, err, ErrRestaurantNotFound)

	_, err = f.menu.CreateRestaurant(ctx, owner.ID, RestaurantInput{Name: "A"}, nil)
	assert.ErrorIs(t, err, ErrValidation)

	r := f.restaurant(t, owner)
	_, err = f.menu.CreateRestaurant(ctx, owner.ID, RestaurantInput{Name: "Again", Address: "x"}, nil)
	assert.ErrorIs(t, err, ErrRestaurantExists)

	updated, err := f.menu.UpdateRestaurant(ctx, owner.ID, RestaurantInput{Name: "Renamed", Address: "2 Road", Description: "Tasty"}, nil)
	require.NoError(t, err)
	assert.Equal(t, r.ID, updated.ID)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, "Tasty", updated.Description)
}

func TestListRestaurantsCountsAvailableItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, "alice", models.RoleRestaurant)
	other := f.user(t, "bob", models.RoleRestaurant)
	ra := f.restaurant(t, owner)
	f.restaurant(t, other)
	f.item(t, owner, "Burger", "5.00")
	fries := f.item(t, owner, "Fries", "2.00")
	_, err := f.menu.UpdateItem(ctx, owner.ID, fries.ID, MenuItemInput{Name: "Fries", Price: "2.00"}, nil)
	require.NoError(t, err)

	rs, err := f.menu.ListRestaurants(ctx)
	require.NoError(t, err)
	require.Len(t, rs, 2)
	counts := map[uint]int{}
	for _, r := range rs {
		counts[r.ID] = r.AvailableItems
	}
	assert.Equal(t, 1, counts[ra.ID])

	avail, err := f.menu.AvailableItems(ctx, ra.ID)
	require.NoError(t, err)
	require.Len(t, avail, 1)
	assert.Equal(t, "Burger", avail[0].Name)
}
