package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront/internal/domain/apperr"
	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
	"storefront/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// =====================
// TxManager / TxRepos mocks
// =====================

// TxManagerMock は WithinTx の中で渡す repos を固定する
type TxManagerMock struct {
	mock.Mock
	Repos repo.TxRepos
}

func (m *TxManagerMock) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	m.Called(ctx)
	return fn(m.Repos)
}

// 注文操作で使うものだけ持つ。残りはnil
type TxReposMock struct {
	orders     repo.OrderRepository
	orderItems repo.OrderItemRepository
	stores     repo.StoreRepository
}

func (r *TxReposMock) Orders() repo.OrderRepository         { return r.orders }
func (r *TxReposMock) OrderItems() repo.OrderItemRepository { return r.orderItems }
func (r *TxReposMock) Stores() repo.StoreRepository         { return r.stores }
func (r *TxReposMock) Carts() repo.CartRepository           { return nil }
func (r *TxReposMock) CartItems() repo.CartItemRepository   { return nil }
func (r *TxReposMock) Inventory() repo.InventoryRepository  { return nil }
func (r *TxReposMock) Products() repo.ProductRepository     { return nil }
func (r *TxReposMock) Earnings() repo.EarningsRepository    { return nil }
func (r *TxReposMock) AuditLogs() repo.AuditLogRepository   { return nil }

// =====================
// Repository mocks
// =====================

type OrderRepoMock struct{ mock.Mock }

func (m *OrderRepoMock) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) List(ctx context.Context, f repo.OrderListFilter) ([]model.Order, int64, error) {
	panic("not used in order engine tests")
}

func (m *OrderRepoMock) Create(ctx context.Context, order model.Order) (int64, error) {
	panic("not used in order engine tests")
}

func (m *OrderRepoMock) FindByIdempotencyKey(ctx context.Context, customerID int64, key string) (model.Order, bool, error) {
	panic("not used in order engine tests")
}

func (m *OrderRepoMock) TransitionStatus(ctx context.Context, orderID int64, ch repo.StatusChange) (bool, error) {
	args := m.Called(ctx, orderID, ch)
	return args.Bool(0), args.Error(1)
}

func (m *OrderRepoMock) UpdatePaymentStatus(ctx context.Context, orderID int64, status model.PaymentStatus) (bool, error) {
	args := m.Called(ctx, orderID, status)
	return args.Bool(0), args.Error(1)
}

func (m *OrderRepoMock) ListPendingByCart(ctx context.Context, cartID int64) ([]model.Order, error) {
	panic("not used in order engine tests")
}

func (m *OrderRepoMock) ListStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]model.Order, error) {
	panic("not used in order engine tests")
}

func (m *OrderRepoMock) ExistsOpenWithProduct(ctx context.Context, productID int64) (bool, error) {
	panic("not used in order engine tests")
}

func (m *OrderRepoMock) AppendHistory(ctx context.Context, h model.OrderStatusHistory) error {
	args := m.Called(ctx, h)
	return args.Error(0)
}

func (m *OrderRepoMock) ListHistory(ctx context.Context, orderID int64) ([]model.OrderStatusHistory, error) {
	panic("not used in order engine tests")
}

type OrderItemRepoMock struct{ mock.Mock }

func (m *OrderItemRepoMock) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	panic("not used in order engine tests")
}

func (m *OrderItemRepoMock) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	args := m.Called(ctx, orderID)
	items, _ := args.Get(0).([]model.OrderItem)
	return items, args.Error(1)
}

func (m *OrderItemRepoMock) ListByOrderIDs(ctx context.Context, orderIDs []int64) (map[int64][]model.OrderItem, error) {
	panic("not used in order engine tests")
}

type StoreRepoMock struct{ mock.Mock }

func (m *StoreRepoMock) Create(ctx context.Context, s model.Store) (model.Store, error) {
	panic("not used in order engine tests")
}

func (m *StoreRepoMock) FindByID(ctx context.Context, storeID int64) (model.Store, error) {
	panic("not used in order engine tests")
}

func (m *StoreRepoMock) ListByOwner(ctx context.Context, ownerUserID int64) ([]model.Store, error) {
	args := m.Called(ctx, ownerUserID)
	stores, _ := args.Get(0).([]model.Store)
	return stores, args.Error(1)
}

type NotifierMock struct{ mock.Mock }

func (m *NotifierMock) Notify(ctx context.Context, n model.OrderNotification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func engineMocks(t *testing.T) (*TxManagerMock, *OrderRepoMock, *OrderItemRepoMock, *StoreRepoMock) {
	t.Helper()
	orders := &OrderRepoMock{}
	items := &OrderItemRepoMock{}
	stores := &StoreRepoMock{}
	tx := &TxManagerMock{Repos: &TxReposMock{orders: orders, orderItems: items, stores: stores}}
	tx.On("WithinTx", mock.Anything).Return()
	return tx, orders, items, stores
}

func placedOrderModel() model.Order {
	return model.Order{ID: 1, CustomerID: customerID, Status: model.OrderStatusPlaced, PaymentStatus: model.PaymentStatusUnpaid}
}

func TestShip_LostRaceReturnsInvalidTransitionWithoutSideEffects(t *testing.T) {
	tx, orders, items, stores := engineMocks(t)
	notifier := &NotifierMock{}
	log, _ := logtest.NewNullLogger()
	uc := usecase.NewOrderUsecase(tx, notifier, log)

	orders.On("FindByID", mock.Anything, int64(1)).Return(placedOrderModel(), nil).Once()
	items.On("ListByOrderID", mock.Anything, int64(1)).Return([]model.OrderItem{{OrderID: 1, StoreID: 8, Subtotal: decimal.NewFromInt(5)}}, nil)
	stores.On("ListByOwner", mock.Anything, sellerID).Return([]model.Store{{ID: 8, OwnerUserID: sellerID}}, nil)

	//読んだ後に別のリクエストがキャンセルした
	orders.On("TransitionStatus", mock.Anything, int64(1), mock.MatchedBy(func(ch repo.StatusChange) bool {
		return ch.To == model.OrderStatusShipped && len(ch.From) == 1 && ch.From[0] == model.OrderStatusPlaced
	})).Return(false, nil)
	canceled := placedOrderModel()
	canceled.Status = model.OrderStatusCanceled
	orders.On("FindByID", mock.Anything, int64(1)).Return(canceled, nil).Once()

	_, err := uc.Ship(context.Background(), seller, 1)

	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindInvalidTransition, ae.Kind)
	assert.Equal(t, string(model.OrderStatusCanceled), ae.Details["from"])
	orders.AssertNotCalled(t, "AppendHistory", mock.Anything, mock.Anything)
	notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
}

func TestCancel_ComparesAgainstStatusThatWasRead(t *testing.T) {
	tx, orders, items, _ := engineMocks(t)
	notifier := &NotifierMock{}
	log, _ := logtest.NewNullLogger()
	uc := usecase.NewOrderUsecase(tx, notifier, log)

	pending := placedOrderModel()
	pending.Status = model.OrderStatusPending
	orders.On("FindByID", mock.Anything, int64(1)).Return(pending, nil).Once()
	items.On("ListByOrderID", mock.Anything, int64(1)).Return([]model.OrderItem{{OrderID: 1, ProductID: 3, Quantity: 1}}, nil)

	//Pendingで読んだので条件はPendingだけ（Placedは含めない）
	orders.On("TransitionStatus", mock.Anything, int64(1), mock.MatchedBy(func(ch repo.StatusChange) bool {
		return ch.To == model.OrderStatusCanceled && len(ch.From) == 1 && ch.From[0] == model.OrderStatusPending
	})).Return(false, nil)
	orders.On("FindByID", mock.Anything, int64(1)).Return(placedOrderModel(), nil).Once()

	_, err := uc.Cancel(context.Background(), customer, 1, "")

	ae, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindInvalidTransition, ae.Kind)
	assert.Equal(t, string(model.OrderStatusPlaced), ae.Details["from"])
	orders.AssertNotCalled(t, "AppendHistory", mock.Anything, mock.Anything)
	notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
}

func TestShip_RepositoryErrorIsInternal(t *testing.T) {
	tx, orders, _, _ := engineMocks(t)
	log, _ := logtest.NewNullLogger()
	uc := usecase.NewOrderUsecase(tx, &NotifierMock{}, log)

	orders.On("FindByID", mock.Anything, int64(1)).Return(model.Order{}, errors.New("connection reset"))

	_, err := uc.Ship(context.Background(), seller, 1)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
	assert.ErrorContains(t, err, "connection reset")
}

func TestMarkPaid_CanceledConcurrently(t *testing.T) {
	tx, orders, items, stores := engineMocks(t)
	log, _ := logtest.NewNullLogger()
	uc := usecase.NewOrderUsecase(tx, &NotifierMock{}, log)

	orders.On("FindByID", mock.Anything, int64(1)).Return(placedOrderModel(), nil)
	items.On("ListByOrderID", mock.Anything, int64(1)).Return([]model.OrderItem{{OrderID: 1, StoreID: 8}}, nil)
	stores.On("ListByOwner", mock.Anything, sellerID).Return([]model.Store{{ID: 8, OwnerUserID: sellerID}}, nil)
	orders.On("UpdatePaymentStatus", mock.Anything, int64(1), model.PaymentStatusPaid).Return(false, nil)

	_, err := uc.MarkPaid(context.Background(), seller, 1)
	assert.Equal(t, apperr.KindInvalidTransition, apperr.KindOf(err))
}

func TestNotifyFailureDoesNotFailTransition(t *testing.T) {
	log, hook := logtest.NewNullLogger()
	notifier := &NotifierMock{}
	notifier.On("Notify", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	f := newFixture(t)
	p := f.product(t, "mug", "10.00", 5)
	o := f.placedOrder(t, p.ID, 1)

	uc := usecase.NewOrderUsecase(f.db, notifier, log)
	out, err := uc.Ship(context.Background(), seller, o.ID)
	require.NoError(t, err)
	assert.Equal(t, string(model.OrderStatusShipped), out.Status)

	notifier.AssertNumberOfCalls(t, "Notify", 1)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
	assert.Equal(t, "order notification failed", hook.LastEntry().Message)
}
