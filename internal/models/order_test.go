package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestItemsTotal(t *testing.T) {
	items := []OrderItem{
		{ProductID: 1, Qty: 2, Price: 10.5},
		{ProductID: 2, Qty: 3, Price: 0.1},
	}
	assert.Equal(t, 21.3, ItemsTotal(items))
	assert.Equal(t, 0.0, ItemsTotal(nil))
}

func TestCloneIsDeep(t *testing.T) {
	o := &Order{ID: 1, Items: []OrderItem{{ProductID: 1, Qty: 1, Price: 5}}}
	c := o.Clone()
	c.Items[0].Qty = 9
	c.CustomerName = "changed"

	assert.Equal(t, 1, o.Items[0].Qty)
	assert.Empty(t, o.CustomerName)
}

func TestParseOrderStatus(t *testing.T) {
	st, ok := ParseOrderStatus(" Processing ")
	assert.True(t, ok)
	assert.Equal(t, OrderStatusProcessing, st)

	_, ok = ParseOrderStatus("all")
	assert.False(t, ok)
}
