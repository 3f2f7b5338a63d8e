package entities

import (
	"errors"
	"fmt"
)

// Cart domain errors.
var (
	ErrEmptyCart       = errors.New("cart is empty")
	ErrInvalidShipping = errors.New("all shipping fields are required")
	ErrPaymentFailed   = errors.New("there was an error processing your payment")
)

// Cents is a money amount in integer cents. Totals stay exact to two
// fractional digits, which the display formatting relies on.
type Cents int64

// String formats the amount as a plain decimal, e.g. "38.97".
func (c Cents) String() string {
	sign := ""
	if c < 0 {
		sign = "-"
		c = -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}

// Product is the view-supplied input to AddItem. Name, image and price are
// captured on first insertion and never re-fetched.
type Product struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	ImageURL  string `json:"image_url"`
	UnitPrice Cents  `json:"unit_price"`
}

// CartLine is one product entry in the cart.
type CartLine struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	ImageURL  string `json:"image_url"`
	UnitPrice Cents  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
}

// Cart holds cart lines ordered by insertion time.
type Cart struct {
	Lines []CartLine `json:"lines"`
}

// Add increments the quantity of an existing line or appends a new one
// with quantity 1. The captured name, image and unit price of an existing
// line are frozen; later adds with a different price do not change them.
func (c *Cart) Add(p Product) {
	for i := range c.Lines {
		if c.Lines[i].ProductID == p.ProductID {
			c.Lines[i].Quantity++
			return
		}
	}
	c.Lines = append(c.Lines, CartLine{
		ProductID: p.ProductID,
		Name:      p.Name,
		ImageURL:  p.ImageURL,
		UnitPrice: p.UnitPrice,
		Quantity:  1,
	})
}

// Remove deletes the line for productID. It reports whether a line was
// actually removed.
func (c *Cart) Remove(productID string) bool {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
			return true
		}
	}
	return false
}

// SetQuantity sets the quantity for productID. Quantities below 1 are
// ignored outright rather than clamped or treated as removal. It reports
// whether the cart changed.
func (c *Cart) SetQuantity(productID string, quantity int) bool {
	if quantity < 1 {
		return false
	}
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			if c.Lines[i].Quantity == quantity {
				return false
			}
			c.Lines[i].Quantity = quantity
			return true
		}
	}
	return false
}

// Clear removes all lines.
func (c *Cart) Clear() {
	c.Lines = nil
}

// ItemCount is the sum of all line quantities.
func (c *Cart) ItemCount() int {
	total := 0
	for _, l := range c.Lines {
		total += l.Quantity
	}
	return total
}

// Subtotal is the sum of unit price times quantity over all lines.
func (c *Cart) Subtotal() Cents {
	var total Cents
	for _, l := range c.Lines {
		total += l.UnitPrice * Cents(l.Quantity)
	}
	return total
}

// ShippingAddress is checkout input. It is never persisted.
type ShippingAddress struct {
	FullName string `json:"full_name"`
	Address  string `json:"address"`
	City     string `json:"city"`
	State    string `json:"state"`
	ZipCode  string `json:"zip_code"`
	Country  string `json:"country"`
	Phone    string `json:"phone"`
}

// Validate requires every shipping field to be non-empty.
func (s *ShippingAddress) Validate() error {
	if s.FullName == "" || s.Address == "" || s.City == "" || s.State == "" ||
		s.ZipCode == "" || s.Country == "" || s.Phone == "" {
		return ErrInvalidShipping
	}
	return nil
}
