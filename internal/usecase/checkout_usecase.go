package usecase

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"storefront/internal/domain/apperr"
	"storefront/internal/domain/model"
	"storefront/internal/policy"
	repo "storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// CheckoutUsecase はカート（または単品）から注文を作り、在庫を確保する。
type CheckoutUsecase struct {
	orderEngine
	locker CheckoutLocker
}

func NewCheckoutUsecase(tx repo.TransactionManager, locker CheckoutLocker, notifier Notifier, log logrus.FieldLogger) *CheckoutUsecase {
	return &CheckoutUsecase{
		orderEngine: orderEngine{tx: tx, notifier: notifier, log: log, now: time.Now},
		locker:      locker,
	}
}

// WithClock はテスト用。
func (u *CheckoutUsecase) WithClock(now func() time.Time) *CheckoutUsecase {
	u.now = now
	return u
}

func (u *CheckoutUsecase) lock(ctx context.Context, customerID int64) (func(), error) {
	unlock, err := u.locker.Lock(ctx, customerID)
	if err != nil {
		return nil, apperr.Internal("checkout lock unavailable", err)
	}
	return unlock, nil
}

type CheckoutProductInput struct {
	ProductID      int64
	Selection      model.VariantSelection
	Quantity       int64
	IdempotencyKey string
}

type PlaceOrderInput struct {
	CustomerName     string
	ContactNumber    string
	DeliveryLocation string
	PaymentMethod    string
	Notes            string
}

type checkoutLine struct {
	ProductID int64
	Selection model.VariantSelection
	Quantity  int64
}

// 空ならuuidを振る（リトライで同じ注文を返したいときはクライアントがキーを送る）。
func normalizeIdempotencyKey(key string) (string, bool, error) {
	key = strings.TrimSpace(key)
	if len(key) > 255 {
		return "", false, apperr.Validation("invalid idempotency_key")
	}
	if key == "" {
		return uuid.NewString(), false, nil
	}
	return key, true, nil
}

// CheckoutFromCart はACTIVEカートからPending注文を作る。カートはまだ空にしない。
func (u *CheckoutUsecase) CheckoutFromCart(ctx context.Context, customerID int64, idempotencyKey string) (OrderOutput, error) {
	if customerID <= 0 {
		return OrderOutput{}, apperr.Unauthorized("unauthorized")
	}
	key, provided, err := normalizeIdempotencyKey(idempotencyKey)
	if err != nil {
		return OrderOutput{}, err
	}

	unlock, err := u.lock(ctx, customerID)
	if err != nil {
		return OrderOutput{}, err
	}
	defer unlock()

	var out OrderOutput
	var notes []model.OrderNotification

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 同じキーなら同じ結果
		if provided {
			if o, found, err := u.findReplay(ctx, r, customerID, key); err != nil || found {
				out = o
				return err
			}
		}

		//ACTIVEカート取得
		cart, err := r.Carts().FindActiveByUserID(ctx, customerID)
		if err == repo.ErrNotFound {
			return apperr.EmptyCart()
		}
		if err != nil {
			return dbErr(err)
		}
		cartItems, err := r.CartItems().ListByCartID(ctx, cart.ID)
		if err != nil {
			return dbErr(err)
		}
		if len(cartItems) == 0 {
			return apperr.EmptyCart()
		}

		//同じカートの古いPending注文は取り消して在庫を戻す
		pendings, err := r.Orders().ListPendingByCart(ctx, cart.ID)
		if err != nil {
			return dbErr(err)
		}
		customer := model.Actor{UserID: customerID, Role: model.RoleCustomer}
		for _, p := range pendings {
			old, err := loadOrder(ctx, r, p.ID)
			if err != nil {
				return err
			}
			_, n, err := u.transition(ctx, r, old, customer, model.EventCancel, transitionOpts{note: "superseded by new checkout"})
			if err != nil {
				return err
			}
			notes = append(notes, n)
		}

		lines := make([]checkoutLine, 0, len(cartItems))
		for _, ci := range cartItems {
			lines = append(lines, checkoutLine{ProductID: ci.ProductID, Selection: ci.Selection, Quantity: ci.Quantity})
		}

		cartID := cart.ID
		o, n, err := u.reserve(ctx, r, customerID, &cartID, lines, key)
		if err != nil {
			return err
		}
		notes = append(notes, n)
		out = toOrderOutput(o, o.Items)
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}

	u.publish(ctx, notes...)
	return out, nil
}

// CheckoutProduct はカートを通さずに1商品だけ注文する（今すぐ購入）。
func (u *CheckoutUsecase) CheckoutProduct(ctx context.Context, customerID int64, in CheckoutProductInput) (OrderOutput, error) {
	if customerID <= 0 {
		return OrderOutput{}, apperr.Unauthorized("unauthorized")
	}
	if in.ProductID <= 0 {
		return OrderOutput{}, apperr.Validation("invalid product_id")
	}
	if in.Quantity < 1 {
		return OrderOutput{}, apperr.Validation("invalid quantity")
	}
	key, provided, err := normalizeIdempotencyKey(in.IdempotencyKey)
	if err != nil {
		return OrderOutput{}, err
	}

	unlock, err := u.lock(ctx, customerID)
	if err != nil {
		return OrderOutput{}, err
	}
	defer unlock()

	var out OrderOutput
	var note model.OrderNotification

	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if provided {
			if o, found, err := u.findReplay(ctx, r, customerID, key); err != nil || found {
				out = o
				return err
			}
		}

		//入力の選択はここで検証（400）。在庫はreserveで確定する。
		p, err := r.Products().FindByID(ctx, in.ProductID)
		if err != nil {
			return notFoundOr(err, "product not found")
		}
		if _, err := model.ResolveSelection(p, in.Selection); err != nil {
			return err
		}

		o, n, err := u.reserve(ctx, r, customerID, nil, []checkoutLine{{
			ProductID: in.ProductID,
			Selection: in.Selection.Normalize(),
			Quantity:  in.Quantity,
		}}, key)
		if err != nil {
			return err
		}
		note = n
		out = toOrderOutput(o, o.Items)
		return nil
	})
	if err != nil {
		return OrderOutput{}, err
	}

	u.publish(ctx, note)
	return out, nil
}

func (u *CheckoutUsecase) findReplay(ctx context.Context, r repo.TxRepos, customerID int64, key string) (OrderOutput, bool, error) {
	existing, found, err := r.Orders().FindByIdempotencyKey(ctx, customerID, key)
	if err != nil {
		return OrderOutput{}, false, dbErr(err)
	}
	if !found {
		return OrderOutput{}, false, nil
	}
	o, err := loadOrder(ctx, r, existing.ID)
	if err != nil {
		return OrderOutput{}, false, err
	}
	return toOrderOutput(o, o.Items), true, nil
}

// reserve は各明細を再検証して在庫を減らし、Pending注文を作る。
// どこかで失敗したらエラーを返すだけで、Txのrollbackで全部元に戻る。
func (u *CheckoutUsecase) reserve(ctx context.Context, r repo.TxRepos, customerID int64, cartID *int64, lines []checkoutLine, key string) (model.Order, model.OrderNotification, error) {
	items := make([]model.OrderItem, len(lines))
	total := decimal.Zero
	shipping := decimal.Zero
	estimated := 0
	shippedProducts := map[int64]bool{}

	//明細の並びは保ったまま、在庫行は決まった順で減らす
	for _, i := range stockRowOrder(lines, func(ln checkoutLine) (int64, string) { return ln.ProductID, ln.Selection.Key() }) {
		ln := lines[i]
		p, err := r.Products().FindByID(ctx, ln.ProductID)
		if err == repo.ErrNotFound {
			return model.Order{}, model.OrderNotification{}, apperr.ProductUnavailable("product no longer available").
				WithDetail("line", i).
				WithDetail("product_id", ln.ProductID)
		}
		if err != nil {
			return model.Order{}, model.OrderNotification{}, dbErr(err)
		}

		//価格は今のカタログから
		resolved, err := model.ResolveSelection(p, ln.Selection)
		if err != nil {
			return model.Order{}, model.OrderNotification{}, apperr.ProductUnavailable("selection no longer available").
				WithDetail("line", i).
				WithDetail("product_id", ln.ProductID).
				WithDetail("reason", err.Error())
		}

		//在庫を確定時に再チェックして減らす
		ok, err := r.Inventory().DecreaseStockIfEnough(ctx, ln.ProductID, ln.Selection, ln.Quantity)
		if err != nil {
			return model.Order{}, model.OrderNotification{}, dbErr(err)
		}
		if !ok {
			return model.Order{}, model.OrderNotification{}, apperr.InsufficientStock("insufficient stock").
				WithDetail("line", i).
				WithDetail("product_id", ln.ProductID).
				WithDetail("product_name", p.Name)
		}

		subtotal := model.LineSubtotal(resolved.UnitPrice, ln.Quantity)
		items[i] = model.OrderItem{
			ProductID:           p.ID,
			StoreID:             p.StoreID,
			ProductNameSnapshot: p.Name,
			Selection:           ln.Selection.Normalize(),
			SelectionLabel:      resolved.Label,
			Quantity:            ln.Quantity,
			PriceAtPurchase:     resolved.UnitPrice,
			Subtotal:            subtotal,
		}
		total = total.Add(subtotal)

		//送料は商品ごとに1回
		if !shippedProducts[p.ID] {
			shippedProducts[p.ID] = true
			shipping = shipping.Add(p.ShippingFee)
		}
		if m := p.EstimatedMinutes(); m > estimated {
			estimated = m
		}
	}

	now := u.now()
	for i := range items {
		items[i].CreatedAt = now
	}
	order := model.Order{
		CustomerID:       customerID,
		CartID:           cartID,
		Status:           model.OrderStatusPending,
		PaymentStatus:    model.PaymentStatusUnpaid,
		TotalAmount:      total,
		ShippingFee:      shipping,
		EstimatedMinutes: estimated,
		IdempotencyKey:   key,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	orderID, err := r.Orders().Create(ctx, order)
	if err != nil {
		return model.Order{}, model.OrderNotification{}, dbErr(err)
	}
	if err := r.OrderItems().CreateBulk(ctx, orderID, items); err != nil {
		return model.Order{}, model.OrderNotification{}, dbErr(err)
	}

	actor := model.Actor{UserID: customerID, Role: model.RoleCustomer}
	if err := r.Orders().AppendHistory(ctx, model.OrderStatusHistory{
		OrderID:     orderID,
		ToStatus:    model.OrderStatusPending,
		ActorUserID: actor.UserID,
		ActorRole:   actor.Role,
		Note:        "checkout",
		CreatedAt:   now,
	}); err != nil {
		return model.Order{}, model.OrderNotification{}, dbErr(err)
	}

	created, err := loadOrder(ctx, r, orderID)
	if err != nil {
		return model.Order{}, model.OrderNotification{}, err
	}
	return created, newNotification(created, model.EventCheckout, "", actor, now), nil
}

// stockRowOrder は在庫を触る順番（商品ID, 選択キーの昇順）で添字を返す。
// 複数行を更新するTxは全部この順で行ロックを取る。
func stockRowOrder[T any](xs []T, key func(T) (int64, string)) []int {
	idx := make([]int, len(xs))
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		pa, sa := key(xs[a])
		pb, sb := key(xs[b])
		if c := cmp.Compare(pa, pb); c != 0 {
			return c
		}
		return strings.Compare(sa, sb)
	})
	return idx
}

// PlaceOrder は配送情報を入れてPending→Placedにし、元のカートを空にする。
func (u *CheckoutUsecase) PlaceOrder(ctx context.Context, customerID int64, orderID int64, in PlaceOrderInput) (OrderOutput, error) {
	if customerID <= 0 {
		return OrderOutput{}, apperr.Unauthorized("unauthorized")
	}
	actor := model.Actor{UserID: customerID, Role: model.RoleCustomer}

	return u.runTransition(ctx, actor, orderID, model.EventPlace, policy.ActionPlace, func(o model.Order) (transitionOpts, error) {
		//状態の判定を先に（Pending以外は入力に関係なくINVALID_TRANSITION）
		if _, err := model.NextStatus(o.Status, model.EventPlace, actor.Role); err != nil {
			return transitionOpts{}, err
		}
		placement, err := validatePlacement(in)
		if err != nil {
			return transitionOpts{}, err
		}
		return transitionOpts{placement: &placement, note: "placed"}, nil
	})
}

func validatePlacement(in PlaceOrderInput) (model.Placement, error) {
	p := model.Placement{
		CustomerName:     strings.TrimSpace(in.CustomerName),
		ContactNumber:    strings.TrimSpace(in.ContactNumber),
		DeliveryLocation: strings.TrimSpace(in.DeliveryLocation),
		PaymentMethod:    model.PaymentMethod(strings.TrimSpace(in.PaymentMethod)),
		Notes:            strings.TrimSpace(in.Notes),
	}

	//fieldsは項目名、json_fieldsはリクエストJSONのキー
	missing, keys := []string{}, []string{}
	need := func(value, name, key string) {
		if value == "" {
			missing = append(missing, name)
			keys = append(keys, key)
		}
	}
	need(p.CustomerName, "customerName", "customer_name")
	need(p.ContactNumber, "contactNumber", "contact_number")
	need(p.DeliveryLocation, "deliveryLocation", "delivery_location")
	need(string(p.PaymentMethod), "paymentMethod", "payment_method")
	if len(missing) > 0 {
		return model.Placement{}, apperr.MissingFields(missing...).WithDetail("json_fields", keys)
	}
	if !p.PaymentMethod.Valid() {
		return model.Placement{}, apperr.Validation("invalid payment method").WithDetail("paymentMethod", string(p.PaymentMethod))
	}
	if len(p.Notes) > 1000 {
		return model.Placement{}, apperr.Validation("notes too long")
	}

	//前払いは確認待ち、それ以外（代引きなど）は未払いのまま
	p.PaymentStatus = model.PaymentStatusUnpaid
	if p.PaymentMethod.Prepaid() {
		p.PaymentStatus = model.PaymentStatusPending
	}
	return p, nil
}
