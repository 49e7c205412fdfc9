package policy_test

import (
	"testing"

	"storefront/internal/domain/apperr"
	"storefront/internal/domain/model"
	"storefront/internal/policy"

	"github.com/stretchr/testify/assert"
)

func order() model.Order {
	return model.Order{
		ID:         1,
		CustomerID: 10,
		Items: []model.OrderItem{
			{ProductID: 100, StoreID: 7},
			{ProductID: 200, StoreID: 8},
		},
	}
}

func customer(id int64) policy.Subject {
	return policy.Subject{Actor: model.Actor{UserID: id, Role: model.RoleCustomer}}
}

func seller(id int64, stores ...int64) policy.Subject {
	return policy.Subject{Actor: model.Actor{UserID: id, Role: model.RoleSeller}, StoreIDs: stores}
}

func TestAuthorizeOrder_Customer(t *testing.T) {
	assert.NoError(t, policy.AuthorizeOrder(customer(10), order(), policy.ActionPlace))
	assert.NoError(t, policy.AuthorizeOrder(customer(10), order(), policy.ActionCancel))

	// 他人の注文は見えない
	err := policy.AuthorizeOrder(customer(11), order(), policy.ActionView)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	err = policy.AuthorizeOrder(customer(11), order(), policy.ActionCancel)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	// 他人の注文の確定は遷移エラー
	err = policy.AuthorizeOrder(customer(11), order(), policy.ActionPlace)
	assert.Equal(t, apperr.KindInvalidTransition, apperr.KindOf(err))

	err = policy.AuthorizeOrder(customer(10), order(), policy.ActionShip)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestAuthorizeOrder_Seller(t *testing.T) {
	assert.NoError(t, policy.AuthorizeOrder(seller(50, 8), order(), policy.ActionShip))
	assert.NoError(t, policy.AuthorizeOrder(seller(50, 1, 7), order(), policy.ActionCancel))

	err := policy.AuthorizeOrder(seller(51, 9), order(), policy.ActionCancel)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	err = policy.AuthorizeOrder(seller(50, 8), order(), policy.ActionPlace)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestAuthorizeOrder_System(t *testing.T) {
	sys := policy.Subject{Actor: model.SystemActor}
	assert.NoError(t, policy.AuthorizeOrder(sys, order(), policy.ActionCancel))
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(policy.AuthorizeOrder(sys, order(), policy.ActionShip)))
}

func TestAuthorizeProduct(t *testing.T) {
	p := model.Product{ID: 1, StoreID: 7}
	assert.NoError(t, policy.AuthorizeProduct(seller(50, 7), p))
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(policy.AuthorizeProduct(seller(50, 8), p)))
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(policy.AuthorizeProduct(customer(10), p)))
}

func TestVisibleItems(t *testing.T) {
	items := order().Items
	assert.Len(t, policy.VisibleItems(customer(10), items), 2)

	own := policy.VisibleItems(seller(50, 8), items)
	if assert.Len(t, own, 1) {
		assert.Equal(t, int64(200), own[0].ProductID)
	}
}
