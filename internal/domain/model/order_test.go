package model_test

import (
	"testing"

	"storefront/internal/domain/model"

	"github.com/stretchr/testify/assert"
)

func TestOrder_StoreHelpers(t *testing.T) {
	o := model.Order{
		TotalAmount: dec("150.00"),
		ShippingFee: dec("25.00"),
		Items: []model.OrderItem{
			{StoreID: 2, Subtotal: dec("100.00")},
			{StoreID: 5, Subtotal: dec("30.00")},
			{StoreID: 2, Subtotal: dec("20.00")},
		},
	}

	assert.Equal(t, []int64{2, 5}, o.StoreIDs())
	assert.True(t, o.ContainsAnyStore([]int64{9, 5}))
	assert.False(t, o.ContainsAnyStore([]int64{9}))
	assert.True(t, dec("175.00").Equal(o.GrandTotal()))

	by := o.SubtotalByStore()
	assert.True(t, dec("120.00").Equal(by[2]))
	assert.True(t, dec("30.00").Equal(by[5]))
}

func TestPaymentMethod(t *testing.T) {
	assert.True(t, model.PaymentGCash.Prepaid())
	assert.True(t, model.PaymentGCashManual.Prepaid())
	assert.False(t, model.PaymentCashOnDelivery.Prepaid())
	assert.True(t, model.PaymentCashOnPickup.Cash())
	assert.False(t, model.PaymentMethod("Card").Valid())
}
