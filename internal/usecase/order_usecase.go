package usecase

import (
	"context"
	"strings"
	"time"

	"storefront/internal/domain/apperr"
	"storefront/internal/domain/model"
	"storefront/internal/policy"
	repo "storefront/internal/repository"

	"github.com/sirupsen/logrus"
)

// OrderUsecase は注文の参照と、作成後の状態遷移（キャンセル・発送・配達・支払い）。
type OrderUsecase struct {
	orderEngine
}

func NewOrderUsecase(tx repo.TransactionManager, notifier Notifier, log logrus.FieldLogger) *OrderUsecase {
	return &OrderUsecase{orderEngine: orderEngine{tx: tx, notifier: notifier, log: log, now: time.Now}}
}

// WithClock はテスト用。
func (u *OrderUsecase) WithClock(now func() time.Time) *OrderUsecase {
	u.now = now
	return u
}

type SellerOrderQuery struct {
	Page    int
	Limit   int
	Status  string
	StoreID *int64
}

func validateStatusFilter(status string) error {
	if status == "" {
		return nil
	}
	if !model.OrderStatus(status).Valid() {
		return apperr.Validation("invalid status")
	}
	return nil
}

// ListMyOrders は顧客自身の注文一覧。
func (u *OrderUsecase) ListMyOrders(ctx context.Context, customerID int64, page, limit int, status string) (OrderListOutput, error) {
	if customerID <= 0 {
		return OrderListOutput{}, apperr.Unauthorized("unauthorized")
	}
	if err := validatePaging(page, limit); err != nil {
		return OrderListOutput{}, err
	}
	status = strings.ToUpper(strings.TrimSpace(status))
	if err := validateStatusFilter(status); err != nil {
		return OrderListOutput{}, err
	}

	return u.list(ctx, repo.OrderListFilter{
		Page:       page,
		Limit:      limit,
		Status:     status,
		CustomerID: &customerID,
	}, policy.Subject{Actor: model.Actor{UserID: customerID, Role: model.RoleCustomer}})
}

// ListSellerOrders は出品者のストアの明細を含む注文一覧。見える明細は自分のストアの分だけ。
func (u *OrderUsecase) ListSellerOrders(ctx context.Context, actor model.Actor, q SellerOrderQuery) (OrderListOutput, error) {
	if actor.Role != model.RoleSeller {
		return OrderListOutput{}, apperr.Unauthorized("seller only")
	}
	if err := validatePaging(q.Page, q.Limit); err != nil {
		return OrderListOutput{}, err
	}
	status := strings.ToUpper(strings.TrimSpace(q.Status))
	if err := validateStatusFilter(status); err != nil {
		return OrderListOutput{}, err
	}

	var subject policy.Subject
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		subject, err = loadSubject(ctx, r, actor)
		return err
	})
	if err != nil {
		return OrderListOutput{}, err
	}

	storeIDs := subject.StoreIDs
	if q.StoreID != nil {
		if err := policy.AuthorizeStore(subject, *q.StoreID); err != nil {
			return OrderListOutput{}, err
		}
		storeIDs = []int64{*q.StoreID}
	}
	if len(storeIDs) == 0 {
		return OrderListOutput{Items: []OrderOutput{}, Page: q.Page, Limit: q.Limit}, nil
	}

	return u.list(ctx, repo.OrderListFilter{
		Page:     q.Page,
		Limit:    q.Limit,
		Status:   status,
		StoreIDs: storeIDs,
	}, subject)
}

func (u *OrderUsecase) list(ctx context.Context, f repo.OrderListFilter, subject policy.Subject) (OrderListOutput, error) {
	out := OrderListOutput{Items: []OrderOutput{}, Page: f.Page, Limit: f.Limit}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, total, err := r.Orders().List(ctx, f)
		if err != nil {
			return dbErr(err)
		}
		out.Total = total

		ids := make([]int64, 0, len(orders))
		for _, o := range orders {
			ids = append(ids, o.ID)
		}
		byOrder, err := r.OrderItems().ListByOrderIDs(ctx, ids)
		if err != nil {
			return dbErr(err)
		}
		for _, o := range orders {
			out.Items = append(out.Items, toOrderOutput(o, policy.VisibleItems(subject, byOrder[o.ID])))
		}
		return nil
	})
	if err != nil {
		return OrderListOutput{}, err
	}
	return out, nil
}

// GetOrder は注文詳細（履歴つき）。顧客が他人の注文を見るとNOT_FOUND。
func (u *OrderUsecase) GetOrder(ctx context.Context, actor model.Actor, orderID int64) (OrderOutput, error) {
	if orderID <= 0 {
		return OrderOutput{}, apperr.Validation("invalid id")
	}

	var out OrderOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := loadOrder(ctx, r, orderID)
		if err != nil {
			return err
		}
		subject, err := loadSubject(ctx, r, actor)
		if err != nil {
			return err
		}
		if err := policy.AuthorizeOrder(subject, o, policy.ActionView); err != nil {
			return err
		}

		history, err := r.Orders().ListHistory(ctx, orderID)
		if err != nil {
			return dbErr(err)
		}
		out = toOrderOutput(o, policy.VisibleItems(subject, o.Items))
		out.History = history
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

// Cancel は顧客（自分の注文）または出品者（自分のストアを含む注文）がPending/Placedを取り消す。
// 在庫はキャンセル1回につき1回だけ戻す。
func (u *OrderUsecase) Cancel(ctx context.Context, actor model.Actor, orderID int64, reason string) (OrderOutput, error) {
	note := strings.TrimSpace(reason)
	if len(note) > 500 {
		return OrderOutput{}, apperr.Validation("reason too long")
	}
	return u.runTransition(ctx, actor, orderID, model.EventCancel, policy.ActionCancel, func(model.Order) (transitionOpts, error) {
		return transitionOpts{note: note}, nil
	})
}

func (u *OrderUsecase) Ship(ctx context.Context, actor model.Actor, orderID int64) (OrderOutput, error) {
	return u.runTransition(ctx, actor, orderID, model.EventShip, policy.ActionShip, nil)
}

// Deliver は配達完了。ストアごとの売上を1回だけ計上する。
func (u *OrderUsecase) Deliver(ctx context.Context, actor model.Actor, orderID int64) (OrderOutput, error) {
	return u.runTransition(ctx, actor, orderID, model.EventDeliver, policy.ActionDeliver, nil)
}

// MarkPaid は出品者が入金を記録する。キャンセル済みは変更不可。
func (u *OrderUsecase) MarkPaid(ctx context.Context, actor model.Actor, orderID int64) (OrderOutput, error) {
	if orderID <= 0 {
		return OrderOutput{}, apperr.Validation("invalid id")
	}

	var out OrderOutput
	var note *model.OrderNotification

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := loadOrder(ctx, r, orderID)
		if err != nil {
			return err
		}
		subject, err := loadSubject(ctx, r, actor)
		if err != nil {
			return err
		}
		if err := policy.AuthorizeOrder(subject, o, policy.ActionMarkPaid); err != nil {
			return err
		}

		if o.Status == model.OrderStatusCanceled {
			return apperr.InvalidTransition("payment status of canceled order is frozen").WithDetail("from", string(o.Status))
		}
		// すでに支払い済みなら何もしない
		if o.PaymentStatus == model.PaymentStatusPaid {
			out = toOrderOutput(o, policy.VisibleItems(subject, o.Items))
			return nil
		}

		ok, err := r.Orders().UpdatePaymentStatus(ctx, orderID, model.PaymentStatusPaid)
		if err != nil {
			return dbErr(err)
		}
		if !ok {
			return apperr.InvalidTransition("payment status of canceled order is frozen")
		}

		now := u.now()
		if err := writeOrderAudit(ctx, r, actor, orderID, model.AuditActionUpdatePayment,
			map[string]any{"payment_status": o.PaymentStatus},
			map[string]any{"payment_status": model.PaymentStatusPaid},
			now,
		); err != nil {
			return err
		}

		updated, err := loadOrder(ctx, r, orderID)
		if err != nil {
			return err
		}
		n := newNotification(updated, model.EventPaid, o.Status, actor, now)
		note = &n
		out = toOrderOutput(updated, policy.VisibleItems(subject, updated.Items))
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}

	if note != nil {
		u.publish(ctx, *note)
	}
	return out, nil
}

// ExpireStalePending はttlより古いPending注文をシステムとしてキャンセルし、在庫を戻す。
// 1件ずつ別Txで処理するので、途中で失敗しても処理済みの分は残る。
func (u *OrderUsecase) ExpireStalePending(ctx context.Context, ttl time.Duration, batch int) (int, error) {
	if ttl <= 0 {
		return 0, apperr.Validation("invalid ttl")
	}
	if batch <= 0 {
		batch = 100
	}

	var stale []model.Order
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		stale, err = r.Orders().ListStalePending(ctx, u.now().Add(-ttl), batch)
		if err != nil {
			return dbErr(err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, o := range stale {
		_, err := u.runTransition(ctx, model.SystemActor, o.ID, model.EventCancel, policy.ActionCancel, func(model.Order) (transitionOpts, error) {
			return transitionOpts{note: "reservation expired"}, nil
		})
		if apperr.KindOf(err) == apperr.KindInvalidTransition {
			//その間に確定・キャンセルされた
			continue
		}
		if err != nil {
			return expired, err
		}
		expired++
	}
	return expired, nil
}

// AuditTrail は注文の監査ログ（新しい順）。出品者が自分のストアを含む注文だけ見られる。
func (u *OrderUsecase) AuditTrail(ctx context.Context, actor model.Actor, orderID int64, limit int) ([]model.AuditLog, error) {
	if actor.Role != model.RoleSeller {
		return nil, apperr.Unauthorized("seller only")
	}
	if orderID <= 0 {
		return nil, apperr.Validation("invalid id")
	}

	var logs []model.AuditLog
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := loadOrder(ctx, r, orderID)
		if err != nil {
			return err
		}
		subject, err := loadSubject(ctx, r, actor)
		if err != nil {
			return err
		}
		if err := policy.AuthorizeOrder(subject, o, policy.ActionView); err != nil {
			return err
		}

		logs, err = r.AuditLogs().ListForResource(ctx, repo.AuditLogFilter{
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			Limit:        limit,
		})
		if err != nil {
			return dbErr(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return logs, nil
}
