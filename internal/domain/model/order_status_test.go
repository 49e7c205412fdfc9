package model_test

import (
	"testing"

	"storefront/internal/domain/apperr"
	"storefront/internal/domain/model"

	"github.com/stretchr/testify/assert"
)

func TestNextStatus_ForwardEdges(t *testing.T) {
	to, err := model.NextStatus(model.OrderStatusPending, model.EventPlace, model.RoleCustomer)
	assert.NoError(t, err)
	assert.Equal(t, model.OrderStatusPlaced, to)

	to, err = model.NextStatus(model.OrderStatusPlaced, model.EventShip, model.RoleSeller)
	assert.NoError(t, err)
	assert.Equal(t, model.OrderStatusShipped, to)

	to, err = model.NextStatus(model.OrderStatusShipped, model.EventDeliver, model.RoleSeller)
	assert.NoError(t, err)
	assert.Equal(t, model.OrderStatusDelivered, to)
}

// 全ての(状態, イベント)の組み合わせで、許可された辺だけが通ることを確認する。
func TestNextStatus_OnlyDeclaredEdgesReachable(t *testing.T) {
	statuses := []model.OrderStatus{
		model.OrderStatusPending,
		model.OrderStatusPlaced,
		model.OrderStatusShipped,
		model.OrderStatusDelivered,
		model.OrderStatusCanceled,
	}
	events := map[model.OrderEvent]model.Role{
		model.EventPlace:   model.RoleCustomer,
		model.EventCancel:  model.RoleCustomer,
		model.EventShip:    model.RoleSeller,
		model.EventDeliver: model.RoleSeller,
	}
	allowed := map[model.OrderStatus]map[model.OrderEvent]model.OrderStatus{
		model.OrderStatusPending: {
			model.EventPlace:  model.OrderStatusPlaced,
			model.EventCancel: model.OrderStatusCanceled,
		},
		model.OrderStatusPlaced: {
			model.EventShip:   model.OrderStatusShipped,
			model.EventCancel: model.OrderStatusCanceled,
		},
		model.OrderStatusShipped: {
			model.EventDeliver: model.OrderStatusDelivered,
		},
	}

	for _, from := range statuses {
		for ev, role := range events {
			to, err := model.NextStatus(from, ev, role)
			want, ok := allowed[from][ev]
			if ok {
				assert.NoError(t, err, "%s --%s-->", from, ev)
				assert.Equal(t, want, to)
				continue
			}
			assert.Equal(t, apperr.KindInvalidTransition, apperr.KindOf(err), "%s --%s-->", from, ev)
		}
	}
}

func TestNextStatus_TerminalStatesRejectEverything(t *testing.T) {
	for _, from := range []model.OrderStatus{model.OrderStatusDelivered, model.OrderStatusCanceled} {
		assert.True(t, from.IsTerminal())
		_, err := model.NextStatus(from, model.EventCancel, model.RoleSeller)
		assert.Equal(t, apperr.KindInvalidTransition, apperr.KindOf(err))
	}
}

func TestNextStatus_RoleRules(t *testing.T) {
	// 顧客は発送できない
	_, err := model.NextStatus(model.OrderStatusPlaced, model.EventShip, model.RoleCustomer)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	// 出品者は確定できない
	_, err = model.NextStatus(model.OrderStatusPending, model.EventPlace, model.RoleSeller)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	// システムはキャンセルのみ
	to, err := model.NextStatus(model.OrderStatusPending, model.EventCancel, model.RoleSystem)
	assert.NoError(t, err)
	assert.Equal(t, model.OrderStatusCanceled, to)
	_, err = model.NextStatus(model.OrderStatusShipped, model.EventDeliver, model.RoleSystem)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestNextStatus_SellerShipOnPending(t *testing.T) {
	_, err := model.NextStatus(model.OrderStatusPending, model.EventShip, model.RoleSeller)

	e, ok := apperr.As(err)
	if assert.True(t, ok) {
		assert.Equal(t, apperr.KindInvalidTransition, e.Kind)
		assert.Equal(t, "PENDING", e.Details["from"])
	}
}

func TestNextStatus_SkipPlacedToDelivered(t *testing.T) {
	_, err := model.NextStatus(model.OrderStatusPlaced, model.EventDeliver, model.RoleSeller)
	assert.Equal(t, apperr.KindInvalidTransition, apperr.KindOf(err))
}

func TestAllowedFrom(t *testing.T) {
	assert.Equal(t, []model.OrderStatus{model.OrderStatusPending, model.OrderStatusPlaced}, model.AllowedFrom(model.EventCancel))
	assert.Nil(t, model.AllowedFrom(model.OrderEvent("refund")))
}
