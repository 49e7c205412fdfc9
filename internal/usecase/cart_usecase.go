package usecase

import (
	"context"

	"storefront/internal/domain/apperr"
	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/shopspring/decimal"
)

// CartUsecase は /cart の業務ロジックです。
// カートは目安なので在庫は減らさない（確保はチェックアウト時）。
type CartUsecase struct {
	tx repo.TransactionManager
}

func NewCartUsecase(tx repo.TransactionManager) *CartUsecase {
	return &CartUsecase{tx: tx}
}

type CartLineInput struct {
	ProductID int64
	Selection model.VariantSelection
	Quantity  int64
}

// CartLineOutput の価格はカタログから毎回計算し直す。
type CartLineOutput struct {
	ProductID         int64                  `json:"product_id"`
	StoreID           int64                  `json:"store_id"`
	Name              string                 `json:"name"`
	Image             string                 `json:"image"`
	Selection         model.VariantSelection `json:"selection"`
	SelectionKey      string                 `json:"selection_key"`
	SelectionLabel    string                 `json:"selection_label"`
	Quantity          int64                  `json:"quantity"`
	UnitPrice         decimal.Decimal        `json:"unit_price"`
	UnitPriceSnapshot decimal.Decimal        `json:"unit_price_snapshot"`
	Subtotal          decimal.Decimal        `json:"subtotal"`
	Available         bool                   `json:"available"`
}

type CartOutput struct {
	CartID int64            `json:"cart_id,omitempty"`
	Items  []CartLineOutput `json:"items"`
	Total  decimal.Decimal  `json:"total"`
}

// AddItem はカートに追加（同じ商品・同じ選択は数量加算）。
func (u *CartUsecase) AddItem(ctx context.Context, customerID int64, in CartLineInput) (CartOutput, error) {
	if customerID <= 0 {
		return CartOutput{}, apperr.Unauthorized("unauthorized")
	}
	if in.ProductID <= 0 {
		return CartOutput{}, apperr.Validation("invalid product_id")
	}
	if in.Quantity < 1 {
		return CartOutput{}, apperr.Validation("invalid quantity")
	}
	sel := in.Selection.Normalize()

	var out CartOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		p, err := r.Products().FindByID(ctx, in.ProductID)
		if err != nil {
			return notFoundOr(err, "product not found")
		}
		resolved, err := model.ResolveSelection(p, sel)
		if err != nil {
			return err
		}
		if p.Availability == model.AvailabilityOutOfStock || resolved.StockHint <= 0 {
			return apperr.ProductUnavailable("product out of stock").WithDetail("product_id", p.ID)
		}

		// ACTIVEカート取得（無ければ作成）
		cart, err := r.Carts().GetOrCreateActiveByUserID(ctx, customerID)
		if err != nil {
			return dbErr(err)
		}

		var existingQty int64
		line, err := r.CartItems().FindLine(ctx, cart.ID, p.ID, sel.Key())
		switch {
		case err == nil:
			existingQty = line.Quantity
		case err != repo.ErrNotFound:
			return dbErr(err)
		}
		if existingQty+in.Quantity > resolved.StockHint {
			return apperr.ProductUnavailable("not enough stock").
				WithDetail("product_id", p.ID).
				WithDetail("available", resolved.StockHint)
		}

		// unit_price_snapshot は「追加時点の価格」
		if err := r.CartItems().UpsertLine(ctx, cart.ID, p.ID, sel, in.Quantity, resolved.UnitPrice); err != nil {
			return dbErr(err)
		}

		out, err = buildCart(ctx, r, cart.ID)
		return err
	})
	if err != nil {
		return CartOutput{}, err
	}
	return out, nil
}

// UpdateItem は数量を置き換える。1未満なら明細を削除する。
// 明細が無ければNOT_FOUND。
func (u *CartUsecase) UpdateItem(ctx context.Context, customerID int64, in CartLineInput) (CartOutput, error) {
	if customerID <= 0 {
		return CartOutput{}, apperr.Unauthorized("unauthorized")
	}
	if in.ProductID <= 0 {
		return CartOutput{}, apperr.Validation("invalid product_id")
	}
	key := in.Selection.Key()

	var out CartOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := r.Carts().FindActiveByUserID(ctx, customerID)
		if err != nil {
			return notFoundOr(err, "cart item not found")
		}
		if _, err := r.CartItems().FindLine(ctx, cart.ID, in.ProductID, key); err != nil {
			return notFoundOr(err, "cart item not found")
		}

		if in.Quantity < 1 {
			if err := r.CartItems().DeleteLine(ctx, cart.ID, in.ProductID, key); err != nil {
				return dbErr(err)
			}
			out, err = buildCart(ctx, r, cart.ID)
			return err
		}

		//商品の在庫チェック
		p, err := r.Products().FindByID(ctx, in.ProductID)
		if err == repo.ErrNotFound {
			return apperr.ProductUnavailable("product no longer available").WithDetail("product_id", in.ProductID)
		}
		if err != nil {
			return dbErr(err)
		}
		resolved, err := model.ResolveSelection(p, in.Selection)
		if err != nil {
			return apperr.ProductUnavailable("selection no longer available").WithDetail("product_id", in.ProductID)
		}
		if in.Quantity > resolved.StockHint {
			return apperr.ProductUnavailable("not enough stock").
				WithDetail("product_id", p.ID).
				WithDetail("available", resolved.StockHint)
		}

		if _, err := r.CartItems().SetLineQuantity(ctx, cart.ID, in.ProductID, key, in.Quantity); err != nil {
			return dbErr(err)
		}
		out, err = buildCart(ctx, r, cart.ID)
		return err
	})
	if err != nil {
		return CartOutput{}, err
	}
	return out, nil
}

// RemoveItem は明細削除。無くても成功。
func (u *CartUsecase) RemoveItem(ctx context.Context, customerID int64, productID int64, sel model.VariantSelection) (CartOutput, error) {
	if customerID <= 0 {
		return CartOutput{}, apperr.Unauthorized("unauthorized")
	}
	if productID <= 0 {
		return CartOutput{}, apperr.Validation("invalid product_id")
	}

	var out CartOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := r.Carts().FindActiveByUserID(ctx, customerID)
		if err == repo.ErrNotFound {
			out = emptyCart()
			return nil
		}
		if err != nil {
			return dbErr(err)
		}
		if err := r.CartItems().DeleteLine(ctx, cart.ID, productID, sel.Key()); err != nil {
			return dbErr(err)
		}
		out, err = buildCart(ctx, r, cart.ID)
		return err
	})
	if err != nil {
		return CartOutput{}, err
	}
	return out, nil
}

// Clear は明細を全部削除。
func (u *CartUsecase) Clear(ctx context.Context, customerID int64) error {
	if customerID <= 0 {
		return apperr.Unauthorized("unauthorized")
	}
	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := r.Carts().FindActiveByUserID(ctx, customerID)
		if err == repo.ErrNotFound {
			return nil
		}
		if err != nil {
			return dbErr(err)
		}
		if err := r.Carts().Clear(ctx, cart.ID); err != nil {
			return dbErr(err)
		}
		return nil
	})
}

// View はカートを返す。読むだけで何も作らない。
func (u *CartUsecase) View(ctx context.Context, customerID int64) (CartOutput, error) {
	if customerID <= 0 {
		return CartOutput{}, apperr.Unauthorized("unauthorized")
	}

	var out CartOutput
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cart, err := r.Carts().FindActiveByUserID(ctx, customerID)
		if err == repo.ErrNotFound {
			out = emptyCart()
			return nil
		}
		if err != nil {
			return dbErr(err)
		}
		out, err = buildCart(ctx, r, cart.ID)
		return err
	})
	if err != nil {
		return CartOutput{}, err
	}
	return out, nil
}

func emptyCart() CartOutput {
	return CartOutput{Items: []CartLineOutput{}, Total: decimal.Zero}
}

// cartIDの明細をまとめてCartOutputを作る。
// 合計は今の単価×数量の総和。在庫切れなどはavailable=falseで知らせるだけ。
// 商品が消えた・選択が無効な明細は単価が決まらないので小計0。
func buildCart(ctx context.Context, r repo.TxRepos, cartID int64) (CartOutput, error) {
	items, err := r.CartItems().ListByCartID(ctx, cartID)
	if err != nil {
		return CartOutput{}, dbErr(err)
	}

	out := CartOutput{CartID: cartID, Items: make([]CartLineOutput, 0, len(items)), Total: decimal.Zero}
	for _, it := range items {
		line := CartLineOutput{
			ProductID:         it.ProductID,
			Selection:         it.Selection,
			SelectionKey:      it.SelectionKey,
			Quantity:          it.Quantity,
			UnitPrice:         it.UnitPriceSnapshot,
			UnitPriceSnapshot: it.UnitPriceSnapshot,
			Subtotal:          decimal.Zero,
		}

		p, err := r.Products().FindByID(ctx, it.ProductID)
		if err != nil && err != repo.ErrNotFound {
			return CartOutput{}, dbErr(err)
		}
		if err == nil {
			line.StoreID = p.StoreID
			line.Name = p.Name
			line.Image = p.Image
			if resolved, rerr := model.ResolveSelection(p, it.Selection); rerr == nil {
				line.UnitPrice = resolved.UnitPrice
				line.SelectionLabel = resolved.Label
				line.Subtotal = model.LineSubtotal(resolved.UnitPrice, it.Quantity)
				line.Available = p.Availability == model.AvailabilityAvailable && resolved.StockHint >= it.Quantity
				out.Total = out.Total.Add(line.Subtotal)
			}
		}

		out.Items = append(out.Items, line)
	}
	return out, nil
}
