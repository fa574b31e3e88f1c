// Package cart keeps the shopper's ordered line items and computes their totals.
package cart

import (
	"fmt"
	"math"
)

// Bounds keep every line and the cart total within int64 cents
const (
	MaxUnitPrice = 1_000_000_000_00
	MaxQuantity  = 10_000
)

type Item struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Image     string `json:"image,omitempty"`
	UnitPrice int64  `json:"unitPrice"`
	Quantity  int    `json:"quantity"`
}

func (i Item) LineTotal() int64 {
	return i.UnitPrice * int64(i.Quantity)
}

// Cart keeps items in the order they were first added; an id occurs at most once
type Cart struct {
	Items []Item `json:"items"`
}

// Add merges the quantity into an existing line with the same id
func (c *Cart) Add(item Item) error {
	if item.ID == "" {
		return fmt.Errorf("item has no id")
	}
	if item.Quantity < 1 {
		return fmt.Errorf("quantity of %s must be at least 1, got %d", item.ID, item.Quantity)
	}
	if item.UnitPrice < 0 {
		return fmt.Errorf("price of %s must not be negative, got %d", item.ID, item.UnitPrice)
	}
	if item.UnitPrice > MaxUnitPrice {
		return fmt.Errorf("price of %s exceeds %d, got %d", item.ID, MaxUnitPrice, item.UnitPrice)
	}
	if item.Quantity > MaxQuantity {
		return fmt.Errorf("quantity of %s exceeds %d, got %d", item.ID, MaxQuantity, item.Quantity)
	}

	for idx := range c.Items {
		if c.Items[idx].ID == item.ID {
			if c.Items[idx].Quantity+item.Quantity > MaxQuantity {
				return fmt.Errorf("quantity of %s would exceed %d", item.ID, MaxQuantity)
			}
			c.Items[idx].Quantity += item.Quantity
			if !c.totalFits() {
				c.Items[idx].Quantity -= item.Quantity
				return fmt.Errorf("cart total would exceed %d", int64(math.MaxInt64))
			}
			return nil
		}
	}
	c.Items = append(c.Items, item)
	if !c.totalFits() {
		c.Items = c.Items[:len(c.Items)-1]
		return fmt.Errorf("cart total would exceed %d", int64(math.MaxInt64))
	}
	return nil
}

// Update sets the quantity of a line; zero or less removes it
func (c *Cart) Update(id string, quantity int) error {
	if quantity <= 0 {
		return c.Remove(id)
	}
	if quantity > MaxQuantity {
		return fmt.Errorf("quantity of %s exceeds %d, got %d", id, MaxQuantity, quantity)
	}
	for idx := range c.Items {
		if c.Items[idx].ID == id {
			previous := c.Items[idx].Quantity
			c.Items[idx].Quantity = quantity
			if !c.totalFits() {
				c.Items[idx].Quantity = previous
				return fmt.Errorf("cart total would exceed %d", int64(math.MaxInt64))
			}
			return nil
		}
	}
	return fmt.Errorf("item %s not in cart", id)
}

func (c Cart) totalFits() bool {
	total := int64(0)
	for _, item := range c.Items {
		line := item.LineTotal()
		if total > math.MaxInt64-line {
			return false
		}
		total += line
	}
	return true
}

func (c *Cart) Remove(id string) error {
	for idx := range c.Items {
		if c.Items[idx].ID == id {
			c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
			return nil
		}
	}
	return fmt.Errorf("item %s not in cart", id)
}

func (c *Cart) Clear() {
	c.Items = nil
}

func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Count is the number of units over all lines
func (c Cart) Count() int {
	count := 0
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

func (c Cart) Subtotal() int64 {
	subtotal := int64(0)
	for _, item := range c.Items {
		subtotal += item.LineTotal()
	}
	return subtotal
}

// Total equals the subtotal: manual payments carry no fees or shipping
func (c Cart) Total() int64 {
	return c.Subtotal()
}
