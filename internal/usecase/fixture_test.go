package usecase_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"storefront/internal/domain/model"
	"storefront/internal/infra/lock"
	"storefront/internal/infra/memstore"
	"storefront/internal/usecase"

	"github.com/shopspring/decimal"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

const (
	customerID int64 = 10
	sellerID   int64 = 50
)

var (
	customer = model.Actor{UserID: customerID, Role: model.RoleCustomer}
	seller   = model.Actor{UserID: sellerID, Role: model.RoleSeller}
)

// recordingNotifier は通知を記録するだけ。
type recordingNotifier struct {
	mu    sync.Mutex
	notes []model.OrderNotification
}

func (n *recordingNotifier) Notify(ctx context.Context, ev model.OrderNotification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notes = append(n.notes, ev)
	return nil
}

func (n *recordingNotifier) events() []model.OrderEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]model.OrderEvent, 0, len(n.notes))
	for _, x := range n.notes {
		out = append(out, x.Event)
	}
	return out
}

type fixture struct {
	db       *memstore.DB
	catalog  *usecase.CatalogUsecase
	cart     *usecase.CartUsecase
	checkout *usecase.CheckoutUsecase
	orders   *usecase.OrderUsecase
	notifier *recordingNotifier
	storeID  int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log, _ := logtest.NewNullLogger()
	db := memstore.New()
	n := &recordingNotifier{}
	f := &fixture{
		db:       db,
		catalog:  usecase.NewCatalogUsecase(db),
		cart:     usecase.NewCartUsecase(db),
		checkout: usecase.NewCheckoutUsecase(db, lock.NewLocalLocker(time.Second), n, log),
		orders:   usecase.NewOrderUsecase(db, n, log),
		notifier: n,
	}

	st, err := f.catalog.CreateStore(context.Background(), seller, "corner shop")
	require.NoError(t, err)
	f.storeID = st.ID
	return f
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// 在庫つきの単純な商品を作る
func (f *fixture) product(t *testing.T, name, price string, stock int64) model.Product {
	t.Helper()
	p, err := f.catalog.CreateProduct(context.Background(), seller, usecase.ProductInput{
		StoreID: f.storeID,
		Name:    name,
		Price:   dec(price),
		Stock:   stock,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) stock(t *testing.T, productID int64) int64 {
	t.Helper()
	p, err := f.catalog.GetProduct(context.Background(), productID)
	require.NoError(t, err)
	return p.Stock
}

func (f *fixture) addToCart(t *testing.T, customerID, productID, qty int64) {
	t.Helper()
	_, err := f.cart.AddItem(context.Background(), customerID, usecase.CartLineInput{ProductID: productID, Quantity: qty})
	require.NoError(t, err)
}

// カートからチェックアウトしてPending注文を作る
func (f *fixture) pendingOrder(t *testing.T, productID, qty int64) usecase.OrderOutput {
	t.Helper()
	f.addToCart(t, customerID, productID, qty)
	o, err := f.checkout.CheckoutFromCart(context.Background(), customerID, "")
	require.NoError(t, err)
	return o
}

func validPlacement() usecase.PlaceOrderInput {
	return usecase.PlaceOrderInput{
		CustomerName:     "Ana",
		ContactNumber:    "0917",
		DeliveryLocation: "Blk 1 Lot 2",
		PaymentMethod:    string(model.PaymentCashOnDelivery),
	}
}

func (f *fixture) placedOrder(t *testing.T, productID, qty int64) usecase.OrderOutput {
	t.Helper()
	o := f.pendingOrder(t, productID, qty)
	placed, err := f.checkout.PlaceOrder(context.Background(), customerID, o.ID, validPlacement())
	require.NoError(t, err)
	return placed
}
