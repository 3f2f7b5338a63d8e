package usecase

import (
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clawlab/companion/domain/entities"
	"github.com/clawlab/companion/domain/repositories"
)

const cartStorageKey = "cart"

// Simulated payment processor envelope: the transaction takes a bounded
// delay and succeeds with probability 0.9.
const (
	defaultCheckoutDelay   = 2 * time.Second
	checkoutSuccessRate    = 0.9
	paymentFailedDesc      = "There was an error processing your payment. Please try again."
	orderPlacedTitle       = "Order placed!"
	orderPlacedDescription = "Thank you for your purchase"
)

// CartSnapshot is the Cart core read model. ItemCount and Subtotal are
// derived from Lines on every snapshot, never stored.
type CartSnapshot struct {
	Lines               []entities.CartLine `json:"lines"`
	ItemCount           int                 `json:"item_count"`
	Subtotal            entities.Cents      `json:"subtotal"`
	IsProcessingPayment bool                `json:"is_processing_payment"`
	LastError           string              `json:"last_error,omitempty"`
}

// CartService owns the cart lines, derives totals, persists the lines
// after every mutation and drives the simulated checkout.
type CartService struct {
	mu       sync.Mutex
	store    repositories.KeyValueStore
	notifier repositories.Notifier
	logger   *zap.Logger

	cart         entities.Cart
	isProcessing bool
	lastError    string

	checkoutDelay time.Duration
	outcome       func() float64
}

// NewCartService creates the Cart core and adopts a previously persisted
// cart. A present-but-corrupt record is removed and the cart starts empty
// with no notification.
func NewCartService(store repositories.KeyValueStore, notifier repositories.Notifier, logger *zap.Logger) *CartService {
	c := &CartService{
		store:         store,
		notifier:      notifier,
		logger:        logger,
		checkoutDelay: defaultCheckoutDelay,
		outcome:       rand.Float64,
	}
	c.restore()
	return c
}

func (c *CartService) restore() {
	raw, ok := c.store.Get(cartStorageKey)
	if !ok {
		return
	}

	var lines []entities.CartLine
	if err := json.Unmarshal([]byte(raw), &lines); err != nil || !validCartLines(lines) {
		c.logger.Warn("Persisted cart is corrupt, clearing it",
			zap.String("key", cartStorageKey))
		c.store.Remove(cartStorageKey)
		return
	}

	c.cart.Lines = lines
	c.logger.Info("Restored persisted cart", zap.Int("lines", len(lines)))
}

// validCartLines checks the cart invariants: unique product ids, positive
// quantities, non-negative prices.
func validCartLines(lines []entities.CartLine) bool {
	seen := make(map[string]bool, len(lines))
	for _, l := range lines {
		if l.ProductID == "" || l.Quantity < 1 || l.UnitPrice < 0 || seen[l.ProductID] {
			return false
		}
		seen[l.ProductID] = true
	}
	return true
}

// Snapshot returns a consistent copy of the read model.
func (c *CartService) Snapshot() CartSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	lines := make([]entities.CartLine, len(c.cart.Lines))
	copy(lines, c.cart.Lines)

	return CartSnapshot{
		Lines:               lines,
		ItemCount:           c.cart.ItemCount(),
		Subtotal:            c.cart.Subtotal(),
		IsProcessingPayment: c.isProcessing,
		LastError:           c.lastError,
	}
}

// AddItem puts one unit of the product in the cart. Adding an id already
// present increments its quantity; the captured name, image and price stay
// frozen at their first-insertion values.
func (c *CartService) AddItem(p entities.Product) {
	c.mu.Lock()
	c.cart.Add(p)
	c.persistLocked()
	c.mu.Unlock()

	c.notifier.Notify(entities.Notification{
		Kind:        entities.NotificationSuccess,
		Title:       "Added to cart",
		Description: p.Name + " has been added to your cart",
		Duration:    2 * time.Second,
	})
}

// RemoveItem deletes the line for productID. Removing an absent id is a
// no-op and never fails.
func (c *CartService) RemoveItem(productID string) {
	c.mu.Lock()
	removed := c.cart.Remove(productID)
	if removed {
		c.persistLocked()
	}
	c.mu.Unlock()

	if removed {
		c.notifier.Notify(entities.Notification{
			Kind:        entities.NotificationInfo,
			Title:       "Item removed",
			Description: "Item has been removed from your cart",
			Duration:    2 * time.Second,
		})
	}
}

// UpdateQuantity sets the quantity for productID. Values below 1 are
// ignored outright. This is a high-frequency control, so it never
// notifies.
func (c *CartService) UpdateQuantity(productID string, quantity int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cart.SetQuantity(productID, quantity) {
		c.persistLocked()
	}
}

// ClearCart removes all lines without notifying.
func (c *CartService) ClearCart() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cart.Clear()
	c.persistLocked()
}

// Checkout runs the simulated payment transaction. On success the cart is
// cleared and a fresh order id is returned. On failure the cart is left
// intact, the failure is notified once, and ErrPaymentFailed is returned.
// A second Checkout while one is processing is rejected without touching
// state.
func (c *CartService) Checkout(shipping entities.ShippingAddress, paymentMethodID string) (string, error) {
	c.mu.Lock()
	if c.isProcessing {
		c.mu.Unlock()
		return "", entities.ErrCommandInFlight
	}
	c.lastError = ""
	if len(c.cart.Lines) == 0 {
		err := c.failLocked(entities.CodeEmptyCart, entities.ErrEmptyCart, "")
		c.mu.Unlock()
		return "", err
	}
	if err := shipping.Validate(); err != nil {
		err = c.failLocked(entities.CodeInvalidShipping, err, "")
		c.mu.Unlock()
		return "", err
	}
	c.isProcessing = true
	c.mu.Unlock()

	time.Sleep(c.checkoutDelay)

	c.mu.Lock()
	defer c.mu.Unlock()
	defer func() { c.isProcessing = false }()

	if c.outcome() >= checkoutSuccessRate {
		return "", c.failLocked(entities.CodePaymentFailed, entities.ErrPaymentFailed, paymentFailedDesc)
	}

	orderID := uuid.NewString()
	c.cart.Clear()
	c.persistLocked()

	c.logger.Info("Checkout completed",
		zap.String("orderID", orderID),
		zap.String("paymentMethod", paymentMethodID))
	c.notifier.Notify(entities.Notification{
		Kind:        entities.NotificationSuccess,
		Title:       orderPlacedTitle,
		Description: orderPlacedDescription,
	})
	return orderID, nil
}

// SetCheckoutDelay overrides the simulated transaction latency.
func (c *CartService) SetCheckoutDelay(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checkoutDelay = d
}

// SetOutcomeSource overrides the randomness driving payment outcomes.
func (c *CartService) SetOutcomeSource(f func() float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outcome = f
}

func (c *CartService) failLocked(code string, err error, description string) error {
	c.lastError = err.Error()
	title := err.Error()
	if code == entities.CodePaymentFailed {
		title = "Payment failed"
	}
	c.notifier.Notify(entities.Notification{
		Kind:        entities.NotificationError,
		Title:       title,
		Description: description,
		Code:        code,
	})
	return err
}

func (c *CartService) persistLocked() {
	lines := c.cart.Lines
	if lines == nil {
		lines = []entities.CartLine{}
	}
	data, err := json.Marshal(lines)
	if err != nil {
		c.logger.Error("Failed to encode cart", zap.Error(err))
		return
	}
	c.store.Set(cartStorageKey, string(data))
}
