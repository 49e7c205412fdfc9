// Package memstore はテストとローカル実行用のメモリ上のストレージ。
// WithinTx は全体を1つのロックで直列化し、作業用コピーに書き込んで成功時だけ差し替える。
package memstore

import (
	"context"
	"sync"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

type state struct {
	nextID int64

	products map[int64]model.Product
	deleted  map[int64]bool

	carts     map[int64]model.Cart
	cartItems map[int64]model.CartItem

	orders       map[int64]model.Order
	orderItems   map[int64][]model.OrderItem
	history      map[int64][]model.OrderStatusHistory
	restorations map[string]int64

	stores  map[int64]model.Store
	credits map[string]model.EarningCredit

	adjustments []model.InventoryAdjustment
	audits      []model.AuditLog
}

func newState() *state {
	return &state{
		products:     map[int64]model.Product{},
		deleted:      map[int64]bool{},
		carts:        map[int64]model.Cart{},
		cartItems:    map[int64]model.CartItem{},
		orders:       map[int64]model.Order{},
		orderItems:   map[int64][]model.OrderItem{},
		history:      map[int64][]model.OrderStatusHistory{},
		restorations: map[string]int64{},
		stores:       map[int64]model.Store{},
		credits:      map[string]model.EarningCredit{},
	}
}

func (s *state) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *state) clone() *state {
	c := newState()
	c.nextID = s.nextID
	for k, v := range s.products {
		c.products[k] = cloneProduct(v)
	}
	for k, v := range s.deleted {
		c.deleted[k] = v
	}
	for k, v := range s.carts {
		c.carts[k] = v
	}
	for k, v := range s.cartItems {
		c.cartItems[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.orderItems {
		c.orderItems[k] = append([]model.OrderItem(nil), v...)
	}
	for k, v := range s.history {
		c.history[k] = append([]model.OrderStatusHistory(nil), v...)
	}
	for k, v := range s.restorations {
		c.restorations[k] = v
	}
	for k, v := range s.stores {
		c.stores[k] = v
	}
	for k, v := range s.credits {
		c.credits[k] = v
	}
	c.adjustments = append([]model.InventoryAdjustment(nil), s.adjustments...)
	c.audits = append([]model.AuditLog(nil), s.audits...)
	return c
}

func cloneProduct(p model.Product) model.Product {
	p.Variants = append([]model.ProductVariant(nil), p.Variants...)
	groups := make([]model.ChoiceGroup, len(p.ChoiceGroups))
	for i, g := range p.ChoiceGroups {
		g.Options = append([]model.ChoiceOption(nil), g.Options...)
		groups[i] = g
	}
	p.ChoiceGroups = groups
	return p
}

// DB はメモリ上のデータベース。TransactionManagerを満たす。
type DB struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time
}

func New() *DB {
	return &DB{st: newState(), now: time.Now}
}

// WithClock はテスト用に時刻を差し替える。
func (d *DB) WithClock(now func() time.Time) *DB {
	d.now = now
	return d
}

func (d *DB) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := d.st.clone()
	if err := fn(&txRepos{st: work, now: d.now}); err != nil {
		return err
	}
	d.st = work
	return nil
}

type txRepos struct {
	st  *state
	now func() time.Time
}

func (r *txRepos) Orders() repo.OrderRepository         { return &orderRepo{st: r.st, now: r.now} }
func (r *txRepos) OrderItems() repo.OrderItemRepository { return &orderItemRepo{st: r.st} }
func (r *txRepos) Carts() repo.CartRepository           { return &cartRepo{st: r.st, now: r.now} }
func (r *txRepos) CartItems() repo.CartItemRepository   { return &cartItemRepo{st: r.st, now: r.now} }
func (r *txRepos) Inventory() repo.InventoryRepository  { return &inventoryRepo{st: r.st, now: r.now} }
func (r *txRepos) Products() repo.ProductRepository     { return &productRepo{st: r.st, now: r.now} }
func (r *txRepos) Stores() repo.StoreRepository         { return &storeRepo{st: r.st, now: r.now} }
func (r *txRepos) Earnings() repo.EarningsRepository    { return &earningsRepo{st: r.st, now: r.now} }
func (r *txRepos) AuditLogs() repo.AuditLogRepository   { return &auditRepo{st: r.st, now: r.now} }
