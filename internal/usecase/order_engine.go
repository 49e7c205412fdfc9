package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"storefront/internal/domain/apperr"
	"storefront/internal/domain/model"
	"storefront/internal/policy"
	repo "storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// orderEngine は注文の状態遷移をまとめる。チェックアウトと注文操作の両方から使う。
type orderEngine struct {
	tx       repo.TransactionManager
	notifier Notifier
	log      logrus.FieldLogger
	now      func() time.Time
}

type OrderItemOutput struct {
	ProductID       int64                  `json:"product_id"`
	StoreID         int64                  `json:"store_id"`
	Name            string                 `json:"name"`
	Selection       model.VariantSelection `json:"selection"`
	SelectionLabel  string                 `json:"selection_label"`
	Quantity        int64                  `json:"quantity"`
	PriceAtPurchase decimal.Decimal        `json:"price_at_purchase"`
	Subtotal        decimal.Decimal        `json:"subtotal"`
}

type OrderOutput struct {
	ID               int64                      `json:"id"`
	CustomerID       int64                      `json:"customer_id"`
	CartID           *int64                     `json:"cart_id,omitempty"`
	Status           string                     `json:"status"`
	PaymentStatus    string                     `json:"payment_status"`
	PaymentMethod    string                     `json:"payment_method"`
	CustomerName     string                     `json:"customer_name"`
	ContactNumber    string                     `json:"contact_number"`
	DeliveryLocation string                     `json:"delivery_location"`
	Notes            string                     `json:"notes"`
	TotalAmount      decimal.Decimal            `json:"total_amount"`
	ShippingFee      decimal.Decimal            `json:"shipping_fee"`
	GrandTotal       decimal.Decimal            `json:"grand_total"`
	EstimatedMinutes int                        `json:"estimated_minutes"`
	CreatedAt        time.Time                  `json:"created_at"`
	PlacedAt         *time.Time                 `json:"placed_at,omitempty"`
	ShippedAt        *time.Time                 `json:"shipped_at,omitempty"`
	DeliveredAt      *time.Time                 `json:"delivered_at,omitempty"`
	CanceledAt       *time.Time                 `json:"canceled_at,omitempty"`
	Items            []OrderItemOutput          `json:"items"`
	History          []model.OrderStatusHistory `json:"history,omitempty"`
}

type OrderListOutput struct {
	Items []OrderOutput `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

func toOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			ProductID:       it.ProductID,
			StoreID:         it.StoreID,
			Name:            it.ProductNameSnapshot,
			Selection:       it.Selection,
			SelectionLabel:  it.SelectionLabel,
			Quantity:        it.Quantity,
			PriceAtPurchase: it.PriceAtPurchase,
			Subtotal:        it.Subtotal,
		})
	}

	return OrderOutput{
		ID:               o.ID,
		CustomerID:       o.CustomerID,
		CartID:           o.CartID,
		Status:           string(o.Status),
		PaymentStatus:    string(o.PaymentStatus),
		PaymentMethod:    string(o.PaymentMethod),
		CustomerName:     o.CustomerName,
		ContactNumber:    o.ContactNumber,
		DeliveryLocation: o.DeliveryLocation,
		Notes:            o.Notes,
		TotalAmount:      o.TotalAmount,
		ShippingFee:      o.ShippingFee,
		GrandTotal:       o.GrandTotal(),
		EstimatedMinutes: o.EstimatedMinutes,
		CreatedAt:        o.CreatedAt,
		PlacedAt:         o.PlacedAt,
		ShippedAt:        o.ShippedAt,
		DeliveredAt:      o.DeliveredAt,
		CanceledAt:       o.CanceledAt,
		Items:            outItems,
	}
}

// loadOrder は注文と明細を読み込む。
func loadOrder(ctx context.Context, r repo.TxRepos, orderID int64) (model.Order, error) {
	o, err := r.Orders().FindByID(ctx, orderID)
	if err != nil {
		return model.Order{}, notFoundOr(err, "order not found")
	}
	items, err := r.OrderItems().ListByOrderID(ctx, orderID)
	if err != nil {
		return model.Order{}, dbErr(err)
	}
	o.Items = items
	return o, nil
}

// loadSubject は出品者なら所有ストアを埋める。
func loadSubject(ctx context.Context, r repo.TxRepos, actor model.Actor) (policy.Subject, error) {
	s := policy.Subject{Actor: actor}
	if actor.Role != model.RoleSeller {
		return s, nil
	}
	stores, err := r.Stores().ListByOwner(ctx, actor.UserID)
	if err != nil {
		return policy.Subject{}, dbErr(err)
	}
	for _, st := range stores {
		s.StoreIDs = append(s.StoreIDs, st.ID)
	}
	return s, nil
}

type transitionOpts struct {
	placement *model.Placement
	note      string
}

// transition はTx内で1回の状態遷移を行う。
// 1) 遷移表で判定 2) CAS更新 3) 副作用（在庫戻し・カートクリア・売上計上） 4) 履歴と監査ログ
func (e *orderEngine) transition(ctx context.Context, r repo.TxRepos, o model.Order, actor model.Actor, ev model.OrderEvent, opts transitionOpts) (model.Order, model.OrderNotification, error) {
	to, err := model.NextStatus(o.Status, ev, actor.Role)
	if err != nil {
		return model.Order{}, model.OrderNotification{}, err
	}

	now := e.now()
	ch := repo.StatusChange{
		From:      []model.OrderStatus{o.Status},
		To:        to,
		At:        now,
		Placement: opts.placement,
	}
	//現金払いは受け渡し時に支払い済み
	if ev == model.EventDeliver && o.PaymentMethod.Cash() && o.PaymentStatus != model.PaymentStatusPaid {
		paid := model.PaymentStatusPaid
		ch.PaymentStatus = &paid
	}

	ok, err := r.Orders().TransitionStatus(ctx, o.ID, ch)
	if err != nil {
		return model.Order{}, model.OrderNotification{}, notFoundOr(err, "order not found")
	}
	if !ok {
		//読み込んだ後に他のリクエストが状態を変えた
		cur, err := r.Orders().FindByID(ctx, o.ID)
		if err != nil {
			return model.Order{}, model.OrderNotification{}, notFoundOr(err, "order not found")
		}
		return model.Order{}, model.OrderNotification{}, apperr.InvalidTransition("order status changed concurrently").
			WithDetail("from", string(cur.Status)).
			WithDetail("event", string(ev))
	}

	switch ev {
	case model.EventCancel:
		if err := restoreOrderStock(ctx, r, o); err != nil {
			return model.Order{}, model.OrderNotification{}, err
		}
	case model.EventPlace:
		if o.CartID != nil {
			if err := r.Carts().Clear(ctx, *o.CartID); err != nil {
				return model.Order{}, model.OrderNotification{}, dbErr(err)
			}
		}
	case model.EventDeliver:
		for storeID, amount := range o.SubtotalByStore() {
			if _, err := r.Earnings().Credit(ctx, storeID, o.ID, amount); err != nil {
				return model.Order{}, model.OrderNotification{}, dbErr(err)
			}
		}
	}

	if err := r.Orders().AppendHistory(ctx, model.OrderStatusHistory{
		OrderID:     o.ID,
		FromStatus:  o.Status,
		ToStatus:    to,
		ActorUserID: actor.UserID,
		ActorRole:   actor.Role,
		Note:        opts.note,
		CreatedAt:   now,
	}); err != nil {
		return model.Order{}, model.OrderNotification{}, dbErr(err)
	}

	if err := writeOrderAudit(ctx, r, actor, o.ID, model.AuditActionUpdateOrderStatus,
		map[string]any{"status": o.Status},
		map[string]any{"status": to, "event": ev},
		now,
	); err != nil {
		return model.Order{}, model.OrderNotification{}, err
	}

	updated, err := loadOrder(ctx, r, o.ID)
	if err != nil {
		return model.Order{}, model.OrderNotification{}, err
	}
	return updated, newNotification(updated, ev, o.Status, actor, now), nil
}

// restoreOrderStock は明細の在庫を戻す。同じ注文のキャンセルでは1回だけ。
func restoreOrderStock(ctx context.Context, r repo.TxRepos, o model.Order) error {
	fresh, err := r.Inventory().MarkRestored(ctx, fmt.Sprintf("order:%d:cancel", o.ID), o.ID)
	if err != nil {
		return dbErr(err)
	}
	if !fresh {
		return nil
	}
	for _, i := range stockRowOrder(o.Items, func(it model.OrderItem) (int64, string) { return it.ProductID, it.Selection.Key() }) {
		it := o.Items[i]
		if err := r.Inventory().IncreaseStock(ctx, it.ProductID, it.Selection, it.Quantity); err != nil {
			return dbErr(err)
		}
	}
	return nil
}

func writeOrderAudit(ctx context.Context, r repo.TxRepos, actor model.Actor, orderID int64, action model.AuditAction, before, after map[string]any, at time.Time) error {
	beforeJSON, _ := json.Marshal(before)
	afterJSON, _ := json.Marshal(after)
	if err := r.AuditLogs().Create(ctx, model.AuditLog{
		ActorUserID:  actor.UserID,
		ActorRole:    actor.Role,
		Action:       action,
		ResourceType: model.AuditResourceOrder,
		ResourceID:   orderID,
		BeforeJSON:   string(beforeJSON),
		AfterJSON:    string(afterJSON),
		CreatedAt:    at,
	}); err != nil {
		return dbErr(err)
	}
	return nil
}

func newNotification(o model.Order, ev model.OrderEvent, from model.OrderStatus, actor model.Actor, at time.Time) model.OrderNotification {
	return model.OrderNotification{
		EventID:     uuid.NewString(),
		Event:       ev,
		OrderID:     o.ID,
		CustomerID:  o.CustomerID,
		StoreIDs:    o.StoreIDs(),
		From:        from,
		To:          o.Status,
		Payment:     o.PaymentStatus,
		GrandTotal:  o.GrandTotal(),
		ActorUserID: actor.UserID,
		ActorRole:   actor.Role,
		OccurredAt:  at,
	}
}

// publish はコミット後に通知する。失敗はログだけ。
func (e *orderEngine) publish(ctx context.Context, notes ...model.OrderNotification) {
	if e.notifier == nil {
		return
	}
	for _, n := range notes {
		if err := e.notifier.Notify(ctx, n); err != nil {
			e.log.WithFields(logrus.Fields{
				"order_id": n.OrderID,
				"event":    n.Event,
			}).WithError(err).Warn("order notification failed")
		}
	}
}

// runTransition は「読み込み→権限→遷移」を1つのTxで行い、コミット後に通知する。
func (e *orderEngine) runTransition(ctx context.Context, actor model.Actor, orderID int64, ev model.OrderEvent, action policy.Action, opts func(o model.Order) (transitionOpts, error)) (OrderOutput, error) {
	if orderID <= 0 {
		return OrderOutput{}, apperr.Validation("invalid id")
	}

	var out OrderOutput
	var note model.OrderNotification

	err := e.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := loadOrder(ctx, r, orderID)
		if err != nil {
			return err
		}
		subject, err := loadSubject(ctx, r, actor)
		if err != nil {
			return err
		}
		if err := policy.AuthorizeOrder(subject, o, action); err != nil {
			return err
		}

		var to transitionOpts
		if opts != nil {
			if to, err = opts(o); err != nil {
				return err
			}
		}

		updated, n, err := e.transition(ctx, r, o, actor, ev, to)
		if err != nil {
			return err
		}
		note = n
		out = toOrderOutput(updated, policy.VisibleItems(subject, updated.Items))
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}

	e.publish(ctx, note)
	return out, nil
}
