package models

import (
	"time"
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

type Account struct {
	ID           string    `bson:"_id" json:"_id"`
	Name         string    `bson:"name" json:"name"`
	Email        string    `bson:"email" json:"email"`
	Password     string    `bson:"password" json:"-"`
	CartData     Cart      `bson:"cartData" json:"cartData"`
	WishlistData []string  `bson:"wishlistData" json:"wishlistData"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
}

// Cart maps product id to size label to quantity. A missing key means a
// quantity of zero; stored quantities are always at least 1.
type Cart map[string]map[string]int

// Add increments the quantity of productID in size by delta and returns the
// resulting quantity. Entries that drop to zero or below are removed.
func (c Cart) Add(productID, size string, delta int) int {
	return c.Set(productID, size, c.Quantity(productID, size)+delta)
}

// Set stores quantity for productID/size. A quantity of zero or less deletes
// the size, and the product too once it has no sizes left.
func (c Cart) Set(productID, size string, quantity int) int {
	if quantity <= 0 {
		sizes, ok := c[productID]
		if !ok {
			return 0
		}
		delete(sizes, size)
		if len(sizes) == 0 {
			delete(c, productID)
		}
		return 0
	}
	sizes, ok := c[productID]
	if !ok {
		sizes = make(map[string]int)
		c[productID] = sizes
	}
	sizes[size] = quantity
	return quantity
}

func (c Cart) Quantity(productID, size string) int {
	return c[productID][size]
}

func (c Cart) IsEmpty() bool {
	return len(c) == 0
}

// Items returns the total number of units in the cart.
func (c Cart) Items() int {
	n := 0
	for _, sizes := range c {
		for _, q := range sizes {
			n += q
		}
	}
	return n
}

// Clone returns a deep copy; a nil cart clones to an empty one.
func (c Cart) Clone() Cart {
	out := make(Cart, len(c))
	for pid, sizes := range c {
		cp := make(map[string]int, len(sizes))
		for s, q := range sizes {
			cp[s] = q
		}
		out[pid] = cp
	}
	return out
}

// Normalize drops non-positive quantities and empty products, which may
// exist in documents written before the invariant was enforced.
func (c Cart) Normalize() Cart {
	out := make(Cart, len(c))
	for pid, sizes := range c {
		for s, q := range sizes {
			if q > 0 {
				out.Set(pid, s, q)
			}
		}
	}
	return out
}
