// Package policy は「誰がどの注文・商品を操作できるか」を決める。
package policy

import (
	"storefront/internal/domain/apperr"
	"storefront/internal/domain/model"
)

type Action string

const (
	ActionView     Action = "view"
	ActionPlace    Action = "place"
	ActionCancel   Action = "cancel"
	ActionShip     Action = "ship"
	ActionDeliver  Action = "deliver"
	ActionMarkPaid Action = "mark_paid"
)

// Subject は操作する利用者と、出品者なら所有ストア。
type Subject struct {
	model.Actor
	StoreIDs []int64
}

var (
	customerActions = []Action{ActionView, ActionPlace, ActionCancel}
	sellerActions   = []Action{ActionView, ActionCancel, ActionShip, ActionDeliver, ActionMarkPaid}
	systemActions   = []Action{ActionView, ActionCancel}
)

// AuthorizeOrder は注文に対する操作を許可するか判定する。
// 顧客が他人の注文を触ったときは存在を隠してNOT_FOUNDにする。
// ただし確定（place）は自分のPending注文だけが対象なのでINVALID_TRANSITION。
func AuthorizeOrder(s Subject, o model.Order, a Action) error {
	switch s.Role {
	case model.RoleCustomer:
		if o.CustomerID != s.UserID {
			if a == ActionPlace {
				return apperr.InvalidTransition("order does not belong to customer")
			}
			return apperr.NotFound("order not found")
		}
		if !has(customerActions, a) {
			return apperr.Unauthorized("customer cannot " + string(a) + " order")
		}
		return nil
	case model.RoleSeller:
		if !has(sellerActions, a) {
			return apperr.Unauthorized("seller cannot " + string(a) + " order")
		}
		if !o.ContainsAnyStore(s.StoreIDs) {
			return apperr.Unauthorized("order does not contain your store")
		}
		return nil
	case model.RoleSystem:
		if !has(systemActions, a) {
			return apperr.Unauthorized("system cannot " + string(a) + " order")
		}
		return nil
	}
	return apperr.Unauthorized("unknown role")
}

// AuthorizeStore は出品者がストアを所有しているか。
func AuthorizeStore(s Subject, storeID int64) error {
	if s.Role != model.RoleSeller {
		return apperr.Unauthorized("seller only")
	}
	for _, id := range s.StoreIDs {
		if id == storeID {
			return nil
		}
	}
	return apperr.Unauthorized("store not owned")
}

// AuthorizeProduct は商品の編集・削除・在庫変更ができるか。
func AuthorizeProduct(s Subject, p model.Product) error {
	return AuthorizeStore(s, p.StoreID)
}

// VisibleItems は出品者には自分のストアの明細だけを見せる。
func VisibleItems(s Subject, items []model.OrderItem) []model.OrderItem {
	if s.Role != model.RoleSeller {
		return items
	}
	out := make([]model.OrderItem, 0, len(items))
	for _, it := range items {
		for _, id := range s.StoreIDs {
			if it.StoreID == id {
				out = append(out, it)
				break
			}
		}
	}
	return out
}

func has(list []Action, a Action) bool {
	for _, x := range list {
		if x == a {
			return true
		}
	}
	return false
}
