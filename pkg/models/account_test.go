package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCart_AddIncrements(t *testing.T) {
	c := Cart{}
	for i := 1; i <= 5; i++ {
		assert.Equal(t, i, c.Add("p1", "M", 1))
	}
	assert.Equal(t, Cart{"p1": {"M": 5}}, c)
	assert.Equal(t, 5, c.Items())
}

func TestCart_SetZeroRemoves(t *testing.T) {
	c := Cart{"p1": {"M": 2, "L": 1}, "p2": {"S": 1}}

	c.Set("p1", "M", 0)
	assert.Equal(t, Cart{"p1": {"L": 1}, "p2": {"S": 1}}, c)

	c.Set("p2", "S", -3)
	_, ok := c["p2"]
	assert.False(t, ok, "product with no sizes left must be removed")

	c.Set("missing", "XL", 0)
	assert.Equal(t, Cart{"p1": {"L": 1}}, c)
}

func TestCart_AddNegativeDropsEntry(t *testing.T) {
	c := Cart{"p1": {"M": 1}}
	assert.Equal(t, 0, c.Add("p1", "M", -1))
	assert.True(t, c.IsEmpty())
}

func TestCart_CloneIsDeep(t *testing.T) {
	c := Cart{"p1": {"M": 1}}
	cp := c.Clone()
	cp.Add("p1", "M", 1)
	assert.Equal(t, 1, c.Quantity("p1", "M"))

	var nilCart Cart
	assert.NotNil(t, nilCart.Clone())
}

func TestCart_Normalize(t *testing.T) {
	c := Cart{"p1": {"M": 0, "L": 2}, "p2": {"S": -1}, "p3": {}}
	assert.Equal(t, Cart{"p1": {"L": 2}}, c.Normalize())
}

func TestOrderStatus_Valid(t *testing.T) {
	for _, s := range OrderStatuses() {
		assert.True(t, s.Valid(), s)
	}
	assert.False(t, OrderStatus("Lost").Valid())
	assert.False(t, OrderStatus("delivered").Valid())
}
