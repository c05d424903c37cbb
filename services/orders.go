package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"sweetbite/cart"
	"sweetbite/events"
	"sweetbite/models"
	"sweetbite/statemachine"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DeliveryHistoryLimit caps the delivered orders shown to a courier
const DeliveryHistoryLimit = 50

type CheckoutInput struct {
	Address   string
	Latitude  *float64
	Longitude *float64
}

// RestaurantFilter narrows the restaurant dashboard. Zero values mean no filter.
type RestaurantFilter struct {
	Status models.OrderStatus
	From   time.Time // inclusive
	Until  time.Time // exclusive
}

// NewRestaurantFilter parses dashboard query values. Unknown statuses and
// malformed dates are ignored; end is inclusive of the whole day.
func NewRestaurantFilter(status, start, end string) RestaurantFilter {
	var f RestaurantFilter
	if st, ok := models.ParseOrderStatus(status); ok {
		f.Status = st
	}
	if t, err := time.ParseInLocation("2006-01-02", start, time.Local); err == nil {
		f.From = t
	}
	if t, err := time.ParseInLocation("2006-01-02", end, time.Local); err == nil {
		f.Until = t.AddDate(0, 0, 1)
	}
	return f
}

type Orders struct {
	db     *gorm.DB
	events events.Publisher
}

func NewOrders(db *gorm.DB, pub events.Publisher) *Orders {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Orders{db: db, events: pub}
}

func (in CheckoutInput) validate() (CheckoutInput, error) {
	in.Address = strings.TrimSpace(in.Address)
	if in.Address == "" {
		return in, ErrAddressRequired
	}
	if (in.Latitude == nil) != (in.Longitude == nil) {
		return in, invalid("Location needs both latitude and longitude")
	}
	if in.Latitude != nil {
		if *in.Latitude < -90 || *in.Latitude > 90 || *in.Longitude < -180 || *in.Longitude > 180 {
			return in, invalid("Location is out of range")
		}
	}
	return in, nil
}

// Checkout turns the cart into one placed order per restaurant. Every insert runs in
// a single transaction; on any error nothing is written and the cart is left as is.
func (o *Orders) Checkout(ctx context.Context, customerID uint, c *cart.Cart, in CheckoutInput) ([]models.Order, error) {
	if c.IsEmpty() {
		return nil, ErrEmptyCart
	}
	in, err := in.validate()
	if err != nil {
		return nil, err
	}

	var placed []models.Order
	var evs []events.OrderEvent

	err = o.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).
			Where("id = ? AND address <> ?", customerID, in.Address).
			Update("address", in.Address).Error; err != nil {
			return err
		}

		for _, rid := range c.RestaurantIDs() {
			bucket := c.Restaurants[rid]

			var r models.Restaurant
			err := tx.Select("id", "owner_id").First(&r, rid).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %d", ErrRestaurantNotFound, rid)
			} else if err != nil {
				return err
			}

			ids := make([]uint, len(bucket.Lines))
			for i, l := range bucket.Lines {
				ids[i] = l.MenuItemID
			}
			var found int64
			if err := tx.Model(&models.MenuItem{}).
				Where("restaurant_id = ? AND id IN ?", rid, ids).
				Count(&found).Error; err != nil {
				return err
			}
			if found != int64(len(ids)) {
				return fmt.Errorf("%w in restaurant %d", ErrMenuItemNotFound, rid)
			}

			order := models.Order{
				CustomerID:      customerID,
				RestaurantID:    rid,
				Status:          models.StatusPlaced,
				Total:           bucket.Total(),
				DeliveryAddress: in.Address,
				Latitude:        in.Latitude,
				Longitude:       in.Longitude,
			}
			if err := tx.Omit(clause.Associations).Create(&order).Error; err != nil {
				return err
			}

			items := make([]models.OrderItem, len(bucket.Lines))
			for i, l := range bucket.Lines {
				menuItemID := l.MenuItemID
				items[i] = models.OrderItem{
					OrderID:    order.ID,
					MenuItemID: &menuItemID,
					Name:       l.Name,
					Quantity:   l.Quantity,
					Price:      l.Price,
				}
			}
			if err := tx.Omit(clause.Associations).Create(&items).Error; err != nil {
				return err
			}
			if err := tx.Create(&models.OrderStatusHistory{
				OrderID:   order.ID,
				ToStatus:  models.StatusPlaced,
				ChangedBy: customerID,
				Note:      "Order placed by customer",
			}).Error; err != nil {
				return err
			}

			order.Items = items
			placed = append(placed, order)
			evs = append(evs, events.OrderEvent{
				Type:              events.OrderPlaced,
				OrderID:           order.ID,
				CustomerID:        customerID,
				RestaurantID:      rid,
				RestaurantOwnerID: r.OwnerID,
				Status:            models.StatusPlaced,
				At:                order.CreatedAt,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{"customer_id": customerID, "orders": len(placed)}).Info("checkout completed")
	events.PublishAll(ctx, o.events, evs...)
	return placed, nil
}

// transition applies a conditional status update for the first source state the
// actor may leave towards to, records it, and returns the resulting event.
// When nothing matches, an order the actor can see but whose status does not
// allow the change yields the state machine's explanation; anything else is
// ErrOrderNotUpdated.
func (o *Orders) transition(ctx context.Context, orderID, actorID uint, actor statemachine.Actor, to models.OrderStatus,
	scope func(*gorm.DB) *gorm.DB, extra map[string]any, note string) (events.OrderEvent, error) {

	var ev events.OrderEvent
	err := o.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var from models.OrderStatus
		for _, src := range statemachine.SourcesFor(to, actor) {
			updates := map[string]any{"status": to, "updated_at": time.Now()}
			for k, v := range extra {
				updates[k] = v
			}
			res := scope(tx.Model(&models.Order{}).Where("id = ? AND status = ?", orderID, src)).Updates(updates)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 1 {
				from = src
				break
			}
		}
		if from == "" {
			return explainRejected(tx, orderID, to, actor, scope)
		}

		if err := tx.Create(&models.OrderStatusHistory{
			OrderID:    orderID,
			FromStatus: from,
			ToStatus:   to,
			ChangedBy:  actorID,
			Note:       note,
		}).Error; err != nil {
			return err
		}

		var order models.Order
		if err := tx.Preload("Restaurant").First(&order, orderID).Error; err != nil {
			return err
		}
		ev = events.OrderEvent{
			Type:              events.OrderStatusChanged,
			OrderID:           order.ID,
			CustomerID:        order.CustomerID,
			RestaurantID:      order.RestaurantID,
			RestaurantOwnerID: order.Restaurant.OwnerID,
			DeliveryID:        order.DeliveryID,
			Status:            order.Status,
			At:                order.UpdatedAt,
		}
		return nil
	})
	return ev, err
}

// explainRejected reports why no conditional update matched
func explainRejected(tx *gorm.DB, orderID uint, to models.OrderStatus, actor statemachine.Actor,
	scope func(*gorm.DB) *gorm.DB) error {

	var current models.Order
	err := scope(tx.Model(&models.Order{}).Select("id", "status").Where("id = ?", orderID)).Take(&current).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrOrderNotUpdated
	} else if err != nil {
		return err
	}
	if err := statemachine.CanTransition(current.Status, to, actor); err != nil {
		return fmt.Errorf("%w: %w", ErrTransitionNotAllowed, err)
	}
	// the status moved on between the update and this read
	return ErrOrderNotUpdated
}

// UpdateStatusAsRestaurant moves an order of the owner's restaurant to status to.
// The ownership and current status checks are part of the update itself.
func (o *Orders) UpdateStatusAsRestaurant(ctx context.Context, ownerID, orderID uint, to models.OrderStatus) error {
	owned := func(q *gorm.DB) *gorm.DB {
		return q.Where("restaurant_id IN (?)",
			o.db.Model(&models.Restaurant{}).Select("id").Where("owner_id = ?", ownerID))
	}
	ev, err := o.transition(ctx, orderID, ownerID, statemachine.ActorRestaurant, to, owned, nil, "Updated by restaurant")
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{"order_id": orderID, "owner_id": ownerID, "status": to}).Info("order status updated")
	events.PublishAll(ctx, o.events, ev)
	return nil
}

// Claim assigns a ready, unassigned order to the courier and marks it picked up.
// When several couriers race, exactly one update matches; the others get ErrClaimConflict.
func (o *Orders) Claim(ctx context.Context, deliveryID, orderID uint) error {
	unassigned := func(q *gorm.DB) *gorm.DB {
		return q.Where("delivery_id IS NULL")
	}
	ev, err := o.transition(ctx, orderID, deliveryID, statemachine.ActorDelivery, models.StatusPickedUp,
		unassigned, map[string]any{"delivery_id": deliveryID}, "Claimed by delivery")
	if errors.Is(err, ErrOrderNotUpdated) || errors.Is(err, ErrTransitionNotAllowed) {
		return ErrClaimConflict
	} else if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{"order_id": orderID, "delivery_id": deliveryID}).Info("order claimed")
	events.PublishAll(ctx, o.events, ev)
	return nil
}

// UpdateStatusAsDelivery moves an order assigned to the courier. Picking up goes
// through Claim since it is also the assignment.
func (o *Orders) UpdateStatusAsDelivery(ctx context.Context, deliveryID, orderID uint, to models.OrderStatus) error {
	if to == models.StatusPickedUp {
		return o.Claim(ctx, deliveryID, orderID)
	}
	mine := func(q *gorm.DB) *gorm.DB {
		return q.Where("delivery_id = ?", deliveryID)
	}
	ev, err := o.transition(ctx, orderID, deliveryID, statemachine.ActorDelivery, to, mine, nil, "Updated by delivery")
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{"order_id": orderID, "delivery_id": deliveryID, "status": to}).Info("order status updated")
	events.PublishAll(ctx, o.events, ev)
	return nil
}

// CustomerOrders returns the customer's orders, newest first
func (o *Orders) CustomerOrders(ctx context.Context, customerID uint) ([]models.Order, error) {
	var orders []models.Order
	err := o.db.WithContext(ctx).
		Preload("Items").Preload("Restaurant").Preload("Delivery").
		Where("customer_id = ?", customerID).
		Order("created_at DESC, id DESC").
		Find(&orders).Error
	return orders, err
}

// RestaurantOrders returns the restaurant's orders, newest first
func (o *Orders) RestaurantOrders(ctx context.Context, restaurantID uint, f RestaurantFilter) ([]models.Order, error) {
	q := o.db.WithContext(ctx).
		Preload("Items").Preload("Customer").Preload("Delivery").
		Where("restaurant_id = ?", restaurantID)
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if !f.From.IsZero() {
		q = q.Where("created_at >= ?", f.From)
	}
	if !f.Until.IsZero() {
		q = q.Where("created_at < ?", f.Until)
	}
	var orders []models.Order
	err := q.Order("created_at DESC, id DESC").Find(&orders).Error
	return orders, err
}

// StatusSummary counts the restaurant's orders per status
func (o *Orders) StatusSummary(ctx context.Context, restaurantID uint) (map[models.OrderStatus]int64, error) {
	var rows []struct {
		Status models.OrderStatus
		Count  int64
	}
	err := o.db.WithContext(ctx).Model(&models.Order{}).
		Select("status, COUNT(*) AS count").
		Where("restaurant_id = ?", restaurantID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	summary := make(map[models.OrderStatus]int64, len(models.Statuses))
	for _, st := range models.Statuses {
		summary[st] = 0
	}
	for _, r := range rows {
		summary[r.Status] = r.Count
	}
	return summary, nil
}

func (o *Orders) deliveryQuery(ctx context.Context) *gorm.DB {
	return o.db.WithContext(ctx).Preload("Items").Preload("Restaurant").Preload("Customer")
}

// AvailableForDelivery lists ready, unassigned orders, oldest first
func (o *Orders) AvailableForDelivery(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := o.deliveryQuery(ctx).
		Where("status = ? AND delivery_id IS NULL", models.StatusReady).
		Order("created_at ASC, id ASC").
		Find(&orders).Error
	return orders, err
}

// AssignedTo lists the courier's orders still on the way
func (o *Orders) AssignedTo(ctx context.Context, deliveryID uint) ([]models.Order, error) {
	var orders []models.Order
	err := o.deliveryQuery(ctx).
		Where("delivery_id = ? AND status = ?", deliveryID, models.StatusPickedUp).
		Order("updated_at ASC, id ASC").
		Find(&orders).Error
	return orders, err
}

// DeliveryHistory lists the courier's delivered orders, newest first
func (o *Orders) DeliveryHistory(ctx context.Context, deliveryID uint) ([]models.Order, error) {
	var orders []models.Order
	err := o.deliveryQuery(ctx).
		Where("delivery_id = ? AND status = ?", deliveryID, models.StatusDelivered).
		Order("updated_at DESC, id DESC").
		Limit(DeliveryHistoryLimit).
		Find(&orders).Error
	return orders, err
}

// History returns the recorded status changes of the given orders, oldest first per order
func (o *Orders) History(ctx context.Context, orderIDs ...uint) (map[uint][]models.OrderStatusHistory, error) {
	out := make(map[uint][]models.OrderStatusHistory, len(orderIDs))
	if len(orderIDs) == 0 {
		return out, nil
	}
	var rows []models.OrderStatusHistory
	if err := o.db.WithContext(ctx).Where("order_id IN ?", orderIDs).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.OrderID] = append(out[r.OrderID], r)
	}
	return out, nil
}
