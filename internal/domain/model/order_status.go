package model

import "storefront/internal/domain/apperr"

// 注文に対するイベント。
type OrderEvent string

const (
	EventPlace   OrderEvent = "place"
	EventCancel  OrderEvent = "cancel"
	EventShip    OrderEvent = "ship"
	EventDeliver OrderEvent = "deliver"
)

type transitionRule struct {
	from   []OrderStatus
	to     OrderStatus
	actors []Role
}

// 遷移表。ここに無い辺には進めない。
var transitionRules = map[OrderEvent]transitionRule{
	EventPlace: {
		from:   []OrderStatus{OrderStatusPending},
		to:     OrderStatusPlaced,
		actors: []Role{RoleCustomer},
	},
	EventCancel: {
		from:   []OrderStatus{OrderStatusPending, OrderStatusPlaced},
		to:     OrderStatusCanceled,
		actors: []Role{RoleCustomer, RoleSeller, RoleSystem},
	},
	EventShip: {
		from:   []OrderStatus{OrderStatusPlaced},
		to:     OrderStatusShipped,
		actors: []Role{RoleSeller},
	},
	EventDeliver: {
		from:   []OrderStatus{OrderStatusShipped},
		to:     OrderStatusDelivered,
		actors: []Role{RoleSeller},
	},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPlaced, OrderStatusShipped, OrderStatusDelivered, OrderStatusCanceled:
		return true
	}
	return false
}

// IsTerminal は以降遷移できない状態か。
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCanceled
}

// OpenOrderStatuses は商品削除をブロックする（未完了の）状態。
func OpenOrderStatuses() []OrderStatus {
	return []OrderStatus{OrderStatusPending, OrderStatusPlaced, OrderStatusShipped}
}

// AllowedFrom はイベントを受け付ける遷移元（CAS更新の条件に使う）。
func AllowedFrom(ev OrderEvent) []OrderStatus {
	rule, ok := transitionRules[ev]
	if !ok {
		return nil
	}
	return append([]OrderStatus(nil), rule.from...)
}

// NextStatus は現在の状態・イベント・ロールから遷移先を決める。
// ロール不可はUNAUTHORIZED、状態不可はINVALID_TRANSITION。
func NextStatus(from OrderStatus, ev OrderEvent, role Role) (OrderStatus, error) {
	rule, ok := transitionRules[ev]
	if !ok {
		return "", apperr.Validation("unknown order event").WithDetail("event", string(ev))
	}
	if !containsRole(rule.actors, role) {
		return "", apperr.Unauthorized("role cannot "+string(ev)+" order").WithDetail("role", string(role))
	}
	if !containsStatus(rule.from, from) {
		return "", apperr.InvalidTransition("cannot "+string(ev)+" order in status "+string(from)).
			WithDetail("from", string(from)).
			WithDetail("event", string(ev))
	}
	return rule.to, nil
}

func containsRole(list []Role, r Role) bool {
	for _, x := range list {
		if x == r {
			return true
		}
	}
	return false
}

func containsStatus(list []OrderStatus, s OrderStatus) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
