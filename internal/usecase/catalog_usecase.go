package usecase

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"storefront/internal/domain/apperr"
	"storefront/internal/domain/model"
	"storefront/internal/policy"
	repo "storefront/internal/repository"

	"github.com/shopspring/decimal"
)

// CatalogUsecase は商品の公開参照と、出品者のストア・商品・在庫管理。
type CatalogUsecase struct {
	tx  repo.TransactionManager
	now func() time.Time
}

func NewCatalogUsecase(tx repo.TransactionManager) *CatalogUsecase {
	return &CatalogUsecase{tx: tx, now: time.Now}
}

// GET /productsの入力DTO
type ListProductsInput struct {
	Page     int
	Limit    int
	Q        string
	Category string
	StoreID  *int64
	Sort     string
}

type ProductListOutput struct {
	Items []model.Product `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

type VariantInput struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Stock int64           `json:"stock"`
	Image string          `json:"image"`
}

type ChoiceOptionInput struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Stock int64           `json:"stock"`
	Image string          `json:"image"`
}

type ChoiceGroupInput struct {
	ID       int64               `json:"id"`
	Name     string              `json:"name"`
	Required bool                `json:"required"`
	Options  []ChoiceOptionInput `json:"options"`
}

// 商品の作成・更新の入力。更新時のStoreIDは無視する。
type ProductInput struct {
	StoreID              int64              `json:"store_id"`
	Name                 string             `json:"name"`
	Description          string             `json:"description"`
	Category             string             `json:"category"`
	Image                string             `json:"image"`
	Price                decimal.Decimal    `json:"price"`
	Stock                int64              `json:"stock"`
	EstimatedTimeMinutes *int               `json:"estimated_time_minutes"`
	ShippingFee          decimal.Decimal    `json:"shipping_fee"`
	Variants             []VariantInput     `json:"variants"`
	ChoiceGroups         []ChoiceGroupInput `json:"variant_choices"`
}

type RestockInput struct {
	VariantID *int64
	OptionID  *int64
	Stock     int64
	Reason    string
}

func (u *CatalogUsecase) ListProducts(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	if err := validatePaging(in.Page, in.Limit); err != nil {
		return ProductListOutput{}, err
	}
	if len(in.Q) > 100 {
		return ProductListOutput{}, apperr.Validation("q too long")
	}
	switch in.Sort {
	case "", "new", "price_asc", "price_desc":
	default:
		return ProductListOutput{}, apperr.Validation("invalid sort")
	}

	out := ProductListOutput{Page: in.Page, Limit: in.Limit}
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		items, total, err := r.Products().ListPublic(ctx, repo.ProductListQuery{
			Page:     in.Page,
			Limit:    in.Limit,
			Q:        strings.TrimSpace(in.Q),
			Category: strings.TrimSpace(in.Category),
			StoreID:  in.StoreID,
			Sort:     in.Sort,
		})
		if err != nil {
			return dbErr(err)
		}
		out.Items = items
		out.Total = total
		return nil
	})
	if err != nil {
		return ProductListOutput{}, err
	}
	return out, nil
}

func (u *CatalogUsecase) GetProduct(ctx context.Context, productID int64) (model.Product, error) {
	if productID <= 0 {
		return model.Product{}, apperr.Validation("invalid product id")
	}

	var p model.Product
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		p, err = r.Products().FindByID(ctx, productID)
		if err != nil {
			return notFoundOr(err, "product not found")
		}
		return nil
	})
	if err != nil {
		return model.Product{}, err
	}
	return p, nil
}

func (u *CatalogUsecase) CreateStore(ctx context.Context, actor model.Actor, name string) (model.Store, error) {
	if actor.Role != model.RoleSeller || actor.UserID <= 0 {
		return model.Store{}, apperr.Unauthorized("seller only")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Store{}, apperr.MissingFields("name")
	}

	var s model.Store
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		s, err = r.Stores().Create(ctx, model.Store{OwnerUserID: actor.UserID, Name: name, TotalEarnings: decimal.Zero})
		if err != nil {
			return dbErr(err)
		}
		return nil
	})
	if err != nil {
		return model.Store{}, err
	}
	return s, nil
}

func (u *CatalogUsecase) ListMyStores(ctx context.Context, actor model.Actor) ([]model.Store, error) {
	if actor.Role != model.RoleSeller {
		return nil, apperr.Unauthorized("seller only")
	}

	var stores []model.Store
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		stores, err = r.Stores().ListByOwner(ctx, actor.UserID)
		if err != nil {
			return dbErr(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return stores, nil
}

func (u *CatalogUsecase) CreateProduct(ctx context.Context, actor model.Actor, in ProductInput) (model.Product, error) {
	if err := validateProductInput(in, true); err != nil {
		return model.Product{}, err
	}
	for _, v := range in.Variants {
		if v.ID != 0 {
			return model.Product{}, apperr.Validation("unknown variant").WithDetail("variant_id", v.ID)
		}
	}
	for _, g := range in.ChoiceGroups {
		if g.ID != 0 {
			return model.Product{}, apperr.Validation("unknown choice group").WithDetail("group_id", g.ID)
		}
		for _, o := range g.Options {
			if o.ID != 0 {
				return model.Product{}, apperr.Validation("unknown choice option").WithDetail("option_id", o.ID)
			}
		}
	}

	var created model.Product
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		subject, err := loadSubject(ctx, r, actor)
		if err != nil {
			return err
		}
		if err := policy.AuthorizeStore(subject, in.StoreID); err != nil {
			return err
		}

		p := buildProduct(model.Product{StoreID: in.StoreID}, in)
		created, err = r.Products().Create(ctx, p)
		if err != nil {
			return dbErr(err)
		}
		return writeProductAudit(ctx, r, actor, created.ID, model.AuditActionCreateProduct, nil, created, u.now())
	})
	if err != nil {
		return model.Product{}, err
	}
	return created, nil
}

// UpdateProduct は商品を更新する。子（バリアント・選択肢）は ID=0 で追加、既存IDで更新、省略で削除。
func (u *CatalogUsecase) UpdateProduct(ctx context.Context, actor model.Actor, productID int64, in ProductInput) (model.Product, error) {
	if productID <= 0 {
		return model.Product{}, apperr.Validation("invalid product id")
	}
	if err := validateProductInput(in, false); err != nil {
		return model.Product{}, err
	}

	var updated model.Product
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cur, err := r.Products().FindByID(ctx, productID)
		if err != nil {
			return notFoundOr(err, "product not found")
		}
		subject, err := loadSubject(ctx, r, actor)
		if err != nil {
			return err
		}
		if err := policy.AuthorizeProduct(subject, cur); err != nil {
			return err
		}
		if err := checkChildIDs(cur, in); err != nil {
			return err
		}

		p := buildProduct(model.Product{ID: cur.ID, StoreID: cur.StoreID, CreatedAt: cur.CreatedAt}, in)
		updated, err = r.Products().Update(ctx, p)
		if err != nil {
			return notFoundOr(err, "product not found")
		}
		return writeProductAudit(ctx, r, actor, productID, model.AuditActionUpdateProduct, cur, updated, u.now())
	})
	if err != nil {
		return model.Product{}, err
	}
	return updated, nil
}

// DeleteProduct は論理削除。未完了の注文から参照されている間は消せない。
func (u *CatalogUsecase) DeleteProduct(ctx context.Context, actor model.Actor, productID int64) error {
	if productID <= 0 {
		return apperr.Validation("invalid product id")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cur, err := r.Products().FindByID(ctx, productID)
		if err != nil {
			return notFoundOr(err, "product not found")
		}
		subject, err := loadSubject(ctx, r, actor)
		if err != nil {
			return err
		}
		if err := policy.AuthorizeProduct(subject, cur); err != nil {
			return err
		}

		open, err := r.Orders().ExistsOpenWithProduct(ctx, productID)
		if err != nil {
			return dbErr(err)
		}
		if open {
			return apperr.InvalidTransition("product is referenced by an open order").WithDetail("product_id", productID)
		}

		if err := r.Products().SoftDelete(ctx, productID); err != nil {
			return notFoundOr(err, "product not found")
		}
		return writeProductAudit(ctx, r, actor, productID, model.AuditActionDeleteProduct, cur, nil, u.now())
	})
}

// Restock は在庫の現在値を設定し、調整履歴と監査ログを残す。
func (u *CatalogUsecase) Restock(ctx context.Context, actor model.Actor, productID int64, in RestockInput) (model.Product, error) {
	if productID <= 0 {
		return model.Product{}, apperr.Validation("invalid product id")
	}
	if in.Stock < 0 {
		return model.Product{}, apperr.Validation("stock must be >= 0")
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return model.Product{}, apperr.MissingFields("reason")
	}
	if in.VariantID != nil && in.OptionID != nil {
		return model.Product{}, apperr.Validation("specify either variant_id or option_id")
	}

	var out model.Product
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cur, err := r.Products().FindByID(ctx, productID)
		if err != nil {
			return notFoundOr(err, "product not found")
		}
		subject, err := loadSubject(ctx, r, actor)
		if err != nil {
			return err
		}
		if err := policy.AuthorizeProduct(subject, cur); err != nil {
			return err
		}

		//在庫の現在値を更新
		old, err := r.Inventory().SetStock(ctx, repo.StockTarget{ProductID: productID, VariantID: in.VariantID, OptionID: in.OptionID}, in.Stock)
		if err != nil {
			return notFoundOr(err, "stock row not found")
		}

		now := u.now()
		//履歴を作成（差分）
		if err := r.Inventory().CreateAdjustment(ctx, model.InventoryAdjustment{
			ProductID:    productID,
			VariantID:    in.VariantID,
			OptionID:     in.OptionID,
			SellerUserID: actor.UserID,
			Delta:        in.Stock - old,
			Reason:       reason,
			CreatedAt:    now,
		}); err != nil {
			return dbErr(err)
		}

		//監査ログを作成（在庫更新）
		before, _ := json.Marshal(map[string]any{"stock": old, "variant_id": in.VariantID, "option_id": in.OptionID})
		after, _ := json.Marshal(map[string]any{"stock": in.Stock, "variant_id": in.VariantID, "option_id": in.OptionID})
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actor.UserID,
			ActorRole:    actor.Role,
			Action:       model.AuditActionUpdateStock,
			ResourceType: model.AuditResourceProduct,
			ResourceID:   productID,
			BeforeJSON:   string(before),
			AfterJSON:    string(after),
			CreatedAt:    now,
		}); err != nil {
			return dbErr(err)
		}

		out, err = r.Products().FindByID(ctx, productID)
		if err != nil {
			return dbErr(err)
		}
		return nil
	})
	if err != nil {
		return model.Product{}, err
	}
	return out, nil
}

func validateProductInput(in ProductInput, requireStore bool) error {
	missing := []string{}
	if strings.TrimSpace(in.Name) == "" {
		missing = append(missing, "name")
	}
	if requireStore && in.StoreID <= 0 {
		missing = append(missing, "store_id")
	}
	if len(missing) > 0 {
		return apperr.MissingFields(missing...)
	}
	if in.Price.IsNegative() {
		return apperr.Validation("price must be >= 0")
	}
	if in.Stock < 0 {
		return apperr.Validation("stock must be >= 0")
	}
	if in.ShippingFee.IsNegative() {
		return apperr.Validation("shipping_fee must be >= 0")
	}
	if in.EstimatedTimeMinutes != nil && *in.EstimatedTimeMinutes < 0 {
		return apperr.Validation("estimated_time_minutes must be >= 0")
	}
	for _, v := range in.Variants {
		if strings.TrimSpace(v.Name) == "" {
			return apperr.Validation("variant name required")
		}
		if v.Price.IsNegative() || v.Stock < 0 {
			return apperr.Validation("variant price and stock must be >= 0").WithDetail("variant", v.Name)
		}
	}
	for _, g := range in.ChoiceGroups {
		if strings.TrimSpace(g.Name) == "" {
			return apperr.Validation("choice group name required")
		}
		if len(g.Options) == 0 {
			return apperr.Validation("choice group needs options").WithDetail("group", g.Name)
		}
		for _, o := range g.Options {
			if strings.TrimSpace(o.Name) == "" {
				return apperr.Validation("choice option name required").WithDetail("group", g.Name)
			}
			if o.Price.IsNegative() || o.Stock < 0 {
				return apperr.Validation("choice option price and stock must be >= 0").WithDetail("option", o.Name)
			}
		}
	}
	return nil
}

// checkChildIDs は更新時に渡された子のIDがその商品のものか確認する。
func checkChildIDs(cur model.Product, in ProductInput) error {
	for _, v := range in.Variants {
		if v.ID == 0 {
			continue
		}
		if _, ok := cur.FindVariant(v.ID); !ok {
			return apperr.Validation("unknown variant").WithDetail("variant_id", v.ID)
		}
	}
	groups := map[int64]model.ChoiceGroup{}
	for _, g := range cur.ChoiceGroups {
		groups[g.ID] = g
	}
	for _, g := range in.ChoiceGroups {
		if g.ID == 0 {
			for _, o := range g.Options {
				if o.ID != 0 {
					return apperr.Validation("unknown choice option").WithDetail("option_id", o.ID)
				}
			}
			continue
		}
		if _, ok := groups[g.ID]; !ok {
			return apperr.Validation("unknown choice group").WithDetail("group_id", g.ID)
		}
		for _, o := range g.Options {
			if o.ID == 0 {
				continue
			}
			if _, _, ok := cur.FindOption(g.ID, o.ID); !ok {
				return apperr.Validation("unknown choice option").WithDetail("option_id", o.ID)
			}
		}
	}
	return nil
}

func buildProduct(base model.Product, in ProductInput) model.Product {
	p := base
	p.Name = strings.TrimSpace(in.Name)
	p.Description = in.Description
	p.Category = strings.TrimSpace(in.Category)
	p.Image = in.Image
	p.Price = in.Price
	p.Stock = in.Stock
	p.EstimatedTimeMinutes = in.EstimatedTimeMinutes
	p.ShippingFee = in.ShippingFee

	p.Variants = make([]model.ProductVariant, 0, len(in.Variants))
	for i, v := range in.Variants {
		p.Variants = append(p.Variants, model.ProductVariant{
			ID:        v.ID,
			ProductID: p.ID,
			Name:      strings.TrimSpace(v.Name),
			Price:     v.Price,
			Stock:     v.Stock,
			Image:     v.Image,
			Position:  i,
		})
	}
	p.ChoiceGroups = make([]model.ChoiceGroup, 0, len(in.ChoiceGroups))
	for i, g := range in.ChoiceGroups {
		group := model.ChoiceGroup{
			ID:        g.ID,
			ProductID: p.ID,
			Name:      strings.TrimSpace(g.Name),
			Required:  g.Required,
			Position:  i,
		}
		for j, o := range g.Options {
			group.Options = append(group.Options, model.ChoiceOption{
				ID:        o.ID,
				GroupID:   g.ID,
				ProductID: p.ID,
				Name:      strings.TrimSpace(o.Name),
				Price:     o.Price,
				Stock:     o.Stock,
				Image:     o.Image,
				Position:  j,
			})
		}
		p.ChoiceGroups = append(p.ChoiceGroups, group)
	}
	p.Availability = p.ComputeAvailability()
	return p
}

func writeProductAudit(ctx context.Context, r repo.TxRepos, actor model.Actor, productID int64, action model.AuditAction, before, after any, at time.Time) error {
	beforeJSON := ""
	if before != nil {
		b, _ := json.Marshal(before)
		beforeJSON = string(b)
	}
	afterJSON := ""
	if after != nil {
		b, _ := json.Marshal(after)
		afterJSON = string(b)
	}
	if err := r.AuditLogs().Create(ctx, model.AuditLog{
		ActorUserID:  actor.UserID,
		ActorRole:    actor.Role,
		Action:       action,
		ResourceType: model.AuditResourceProduct,
		ResourceID:   productID,
		BeforeJSON:   beforeJSON,
		AfterJSON:    afterJSON,
		CreatedAt:    at,
	}); err != nil {
		return dbErr(err)
	}
	return nil
}
