package services

import (
	"context"
	"path/filepath"
	"testing"

	"sweetbite/cart"
	"sweetbite/config"
	"sweetbite/events"
	"sweetbite/models"
	"sweetbite/uploads"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	store    *uploads.Store
	pub      *capture
	accounts *Accounts
	menu     *Menu
	orders   *Orders
}

type capture struct {
	got []events.OrderEvent
}

func (c *capture) Publish(_ context.Context, ev events.OrderEvent) error {
	c.got = append(c.got, ev)
	return nil
}

func newFixture(t *testing.T) *fixture {
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

	store := uploads.NewStore(filepath.Join(dir, "uploads"))
	pub := &capture{}
	return &fixture{
		db:       db,
		store:    store,
		pub:      pub,
		accounts: NewAccounts(db, store),
		menu:     NewMenu(db, store),
		orders:   NewOrders(db, pub),
	}
}

func (f *fixture) user(t *testing.T, name string, role models.UserRole) *models.User {
	t.Helper()
	u, err := f.accounts.Register(context.Background(), SignupInput{
		Name:     name,
		Email:    name + "@example.com",
		Password: "secret123",
		Role:     string(role),
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) restaurant(t *testing.T, owner *models.User) *models.Restaurant {
	t.Helper()
	r, err := f.menu.CreateRestaurant(context.Background(), owner.ID, RestaurantInput{
		Name:    owner.Name + " Kitchen",
		Address: "1 Main St",
	}, nil)
	require.NoError(t, err)
	return r
}

func (f *fixture) item(t *testing.T, owner *models.User, name, price string) *models.MenuItem {
	t.Helper()
	it, err := f.menu.CreateItem(context.Background(), owner.ID, MenuItemInput{
		Name:      name,
		Price:     price,
		Available: true,
	}, nil)
	require.NoError(t, err)
	return it
}

func (f *fixture) addToCart(t *testing.T, c *cart.Cart, it *models.MenuItem, qty int) {
	t.Helper()
	ci, err := f.menu.FindForCart(context.Background(), it.ID, it.RestaurantID)
	require.NoError(t, err)
	require.NoError(t, c.Add(ci, qty))
}

// readyOrder places an order for one item and lets the restaurant mark it ready
func (f *fixture) readyOrder(t *testing.T, customer, owner *models.User, it *models.MenuItem) models.Order {
	t.Helper()
	ctx := context.Background()
	c := cart.New()
	f.addToCart(t, c, it, 1)
	placed, err := f.orders.Checkout(ctx, customer.ID, c, CheckoutInput{Address: "2 Side St"})
	require.NoError(t, err)
	require.Len(t, placed, 1)
	require.NoError(t, f.orders.UpdateStatusAsRestaurant(ctx, owner.ID, placed[0].ID, models.StatusReady))
	return placed[0]
}

func (f *fixture) order(t *testing.T, id uint) models.Order {
	t.Helper()
	var o models.Order
	require.NoError(t, f.db.Preload("Items").First(&o, id).Error)
	return o
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
