package usecase_test

import (
	"context"
	"testing"
	"time"

	"storefront/internal/domain/apperr"
	"storefront/internal/domain/model"
	"storefront/internal/usecase"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShip_PendingOrderIsRejected(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "mug", "10.00", 5)
	o := f.pendingOrder(t, p.ID, 1)

	_, err := f.orders.Ship(context.Background(), seller, o.ID)
	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindInvalidTransition, ae.Kind)
	assert.Equal(t, string(model.OrderStatusPending), ae.Details["from"])
}

func TestCancel_PlacedOrderRestoresStockAndLeavesCart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "mug", "10.00", 5)
	other := f.product(t, "plate", "3.00", 5)
	placed := f.placedOrder(t, p.ID, 2)
	assert.Equal(t, int64(3), f.stock(t, p.ID))

	//確定後に別の商品をカートへ
	f.addToCart(t, customerID, other.ID, 1)

	canceled, err := f.orders.Cancel(ctx, customer, placed.ID, "changed my mind")
	require.NoError(t, err)
	assert.Equal(t, string(model.OrderStatusCanceled), canceled.Status)
	assert.NotNil(t, canceled.CanceledAt)
	assert.Equal(t, int64(5), f.stock(t, p.ID))

	cart, err := f.cart.View(ctx, customerID)
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, other.ID, cart.Items[0].ProductID)
}

func TestCancel_TwiceRestoresOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "mug", "10.00", 5)
	o := f.pendingOrder(t, p.ID, 2)

	_, err := f.orders.Cancel(ctx, customer, o.ID, "")
	require.NoError(t, err)
	_, err = f.orders.Cancel(ctx, seller, o.ID, "")
	assert.Equal(t, apperr.KindInvalidTransition, apperr.KindOf(err))

	assert.Equal(t, int64(5), f.stock(t, p.ID))
}

func TestCancel_RestoresVariantAndOptionRowsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.catalog.CreateProduct(ctx, seller, usecase.ProductInput{
		StoreID:  f.storeID,
		Name:     "tee",
		Price:    dec("10"),
		Variants: []usecase.VariantInput{{Name: "S", Price: dec("15"), Stock: 2}},
		ChoiceGroups: []usecase.ChoiceGroupInput{{
			Name:     "print",
			Required: true,
			Options:  []usecase.ChoiceOptionInput{{Name: "logo", Price: dec("2.50"), Stock: 2}},
		}},
	})
	require.NoError(t, err)
	group := p.ChoiceGroups[0]

	o, err := f.checkout.CheckoutProduct(ctx, customerID, usecase.CheckoutProductInput{
		ProductID: p.ID,
		Selection: model.VariantSelection{
			VariantID: p.Variants[0].ID,
			Choices:   []model.ChoiceSelection{{GroupID: group.ID, OptionID: group.Options[0].ID}},
		},
		Quantity: 2,
	})
	require.NoError(t, err)

	sold, err := f.catalog.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), sold.Variants[0].Stock)
	assert.Equal(t, int64(0), sold.ChoiceGroups[0].Options[0].Stock)
	assert.Equal(t, model.AvailabilityOutOfStock, sold.Availability)

	_, err = f.orders.Cancel(ctx, customer, o.ID, "")
	require.NoError(t, err)
	_, err = f.orders.Cancel(ctx, customer, o.ID, "")
	assert.Equal(t, apperr.KindInvalidTransition, apperr.KindOf(err))

	restored, err := f.catalog.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), restored.Variants[0].Stock)
	assert.Equal(t, int64(2), restored.ChoiceGroups[0].Options[0].Stock)
	assert.Equal(t, model.AvailabilityAvailable, restored.Availability)
}

func TestCancel_ShippedIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "mug", "10.00", 5)
	placed := f.placedOrder(t, p.ID, 1)

	_, err := f.orders.Ship(ctx, seller, placed.ID)
	require.NoError(t, err)

	_, err = f.orders.Cancel(ctx, customer, placed.ID, "")
	assert.Equal(t, apperr.KindInvalidTransition, apperr.KindOf(err))
	assert.Equal(t, int64(4), f.stock(t, p.ID))
}

func TestDeliver_CreditsOnceAndMarksCashPaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "mug", "20.00", 5)
	placed := f.placedOrder(t, p.ID, 2)
	assert.Equal(t, string(model.PaymentStatusUnpaid), placed.PaymentStatus)

	_, err := f.orders.Ship(ctx, seller, placed.ID)
	require.NoError(t, err)
	delivered, err := f.orders.Deliver(ctx, seller, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, string(model.OrderStatusDelivered), delivered.Status)
	assert.Equal(t, string(model.PaymentStatusPaid), delivered.PaymentStatus)

	_, err = f.orders.Deliver(ctx, seller, placed.ID)
	assert.Equal(t, apperr.KindInvalidTransition, apperr.KindOf(err))

	stores, err := f.catalog.ListMyStores(ctx, seller)
	require.NoError(t, err)
	require.Len(t, stores, 1)
	assert.Equal(t, int64(1), stores[0].CompletedOrders)
	assert.True(t, stores[0].TotalEarnings.Equal(dec("40")), "earnings=%s", stores[0].TotalEarnings)

	assert.Equal(t, []model.OrderEvent{
		model.EventCheckout, model.EventPlace, model.EventShip, model.EventDeliver,
	}, f.notifier.events())
}

func TestTransitions_RoleChecks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "mug", "10.00", 5)
	placed := f.placedOrder(t, p.ID, 1)

	_, err := f.orders.Ship(ctx, customer, placed.ID)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	//別のストアの出品者
	stranger := model.Actor{UserID: 77, Role: model.RoleSeller}
	_, err = f.catalog.CreateStore(ctx, stranger, "elsewhere")
	require.NoError(t, err)
	_, err = f.orders.Ship(ctx, stranger, placed.ID)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	_, err = f.orders.GetOrder(ctx, model.Actor{UserID: 11, Role: model.RoleCustomer}, placed.ID)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestMarkPaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "mug", "10.00", 5)
	placed := f.placedOrder(t, p.ID, 1)

	paid, err := f.orders.MarkPaid(ctx, seller, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, string(model.PaymentStatusPaid), paid.PaymentStatus)
	assert.Equal(t, string(model.OrderStatusPlaced), paid.Status)

	//もう一度は何もしない
	again, err := f.orders.MarkPaid(ctx, seller, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, string(model.PaymentStatusPaid), again.PaymentStatus)

	_, err = f.orders.MarkPaid(ctx, customer, placed.ID)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestMarkPaid_CanceledIsFrozen(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "mug", "10.00", 5)
	o := f.pendingOrder(t, p.ID, 1)

	_, err := f.orders.Cancel(ctx, seller, o.ID, "out of ink")
	require.NoError(t, err)

	_, err = f.orders.MarkPaid(ctx, seller, o.ID)
	assert.Equal(t, apperr.KindInvalidTransition, apperr.KindOf(err))

	cur, err := f.orders.GetOrder(ctx, seller, o.ID)
	require.NoError(t, err)
	assert.Equal(t, string(model.PaymentStatusUnpaid), cur.PaymentStatus)
}

func TestGetOrder_HistoryAndSellerView(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mine := f.product(t, "mug", "10.00", 5)

	//別ストアの商品を同じ注文に入れる
	other := model.Actor{UserID: 77, Role: model.RoleSeller}
	st, err := f.catalog.CreateStore(ctx, other, "elsewhere")
	require.NoError(t, err)
	theirs, err := f.catalog.CreateProduct(ctx, other, usecase.ProductInput{StoreID: st.ID, Name: "spoon", Price: dec("1"), Stock: 5})
	require.NoError(t, err)

	f.addToCart(t, customerID, theirs.ID, 1)
	placed := f.placedOrder(t, mine.ID, 1)

	full, err := f.orders.GetOrder(ctx, customer, placed.ID)
	require.NoError(t, err)
	assert.Len(t, full.Items, 2)
	require.Len(t, full.History, 2)
	assert.Equal(t, model.OrderStatusPending, full.History[0].ToStatus)
	assert.Equal(t, model.OrderStatusPlaced, full.History[1].ToStatus)

	sellerView, err := f.orders.GetOrder(ctx, seller, placed.ID)
	require.NoError(t, err)
	require.Len(t, sellerView.Items, 1)
	assert.Equal(t, mine.ID, sellerView.Items[0].ProductID)
}

func TestListSellerOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "mug", "10.00", 10)
	first := f.placedOrder(t, p.ID, 1)
	_, err := f.checkout.CheckoutProduct(ctx, customerID, usecase.CheckoutProductInput{ProductID: p.ID, Quantity: 1})
	require.NoError(t, err)

	all, err := f.orders.ListSellerOrders(ctx, seller, usecase.SellerOrderQuery{Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(2), all.Total)

	placedOnly, err := f.orders.ListSellerOrders(ctx, seller, usecase.SellerOrderQuery{Page: 1, Limit: 20, Status: "placed"})
	require.NoError(t, err)
	require.Len(t, placedOnly.Items, 1)
	assert.Equal(t, first.ID, placedOnly.Items[0].ID)

	foreign := int64(9999)
	_, err = f.orders.ListSellerOrders(ctx, seller, usecase.SellerOrderQuery{Page: 1, Limit: 20, StoreID: &foreign})
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	_, err = f.orders.ListSellerOrders(ctx, seller, usecase.SellerOrderQuery{Page: 1, Limit: 20, Status: "LOST"})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = f.orders.ListSellerOrders(ctx, customer, usecase.SellerOrderQuery{Page: 1, Limit: 20})
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestAuditTrail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "mug", "10.00", 10)
	placed := f.placedOrder(t, p.ID, 1)
	_, err := f.orders.MarkPaid(ctx, seller, placed.ID)
	require.NoError(t, err)

	logs, err := f.orders.AuditTrail(ctx, seller, placed.ID, 10)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, model.AuditActionUpdatePayment, logs[0].Action)
	assert.Equal(t, model.AuditActionUpdateOrderStatus, logs[1].Action)

	_, err = f.orders.AuditTrail(ctx, customer, placed.ID, 10)
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
}

func TestExpireStalePending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "mug", "10.00", 5)

	stale, err := f.checkout.CheckoutProduct(ctx, customerID, usecase.CheckoutProductInput{ProductID: p.ID, Quantity: 2})
	require.NoError(t, err)
	placed := f.placedOrder(t, p.ID, 1)
	assert.Equal(t, int64(2), f.stock(t, p.ID))

	log, _ := logtest.NewNullLogger()
	later := usecase.NewOrderUsecase(f.db, f.notifier, log).WithClock(func() time.Time {
		return time.Now().Add(time.Hour)
	})

	n, err := later.ExpireStalePending(ctx, 30*time.Minute, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := f.orders.GetOrder(ctx, customer, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, string(model.OrderStatusCanceled), got.Status)
	assert.Equal(t, model.RoleSystem, got.History[len(got.History)-1].ActorRole)

	kept, err := f.orders.GetOrder(ctx, customer, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, string(model.OrderStatusPlaced), kept.Status)

	assert.Equal(t, int64(4), f.stock(t, p.ID))

	_, err = later.ExpireStalePending(ctx, 0, 10)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}
