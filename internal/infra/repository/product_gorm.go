package repository

import (
	"context"
	"errors"
	"strings"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductGormRepository struct {
	db *gorm.DB
}

// DI
func NewProductGormRepository(db *gorm.DB) *ProductGormRepository {
	return &ProductGormRepository{db: db}
}

// バリアントと選択肢を並び順で読み込む
func withChildren(tx *gorm.DB) *gorm.DB {
	return tx.
		Preload("Variants", func(db *gorm.DB) *gorm.DB { return db.Order("position asc, id asc") }).
		Preload("ChoiceGroups", func(db *gorm.DB) *gorm.DB { return db.Order("position asc, id asc") }).
		Preload("ChoiceGroups.Options", func(db *gorm.DB) *gorm.DB { return db.Order("position asc, id asc") })
}

// 削除されていない商品を、検索/カテゴリ/ストア/ソート/ページング付きで返す。
func (r *ProductGormRepository) ListPublic(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	var products []model.Product
	var total int64

	tx := r.db.WithContext(ctx).Model(&model.Product{})

	// q name/descriptionを対象
	if strings.TrimSpace(q.Q) != "" {
		like := "%" + strings.TrimSpace(q.Q) + "%"
		tx = tx.Where("name ILIKE ? OR description ILIKE ?", like, like)
	}
	if q.Category != "" {
		tx = tx.Where("category = ?", q.Category)
	}
	if q.StoreID != nil {
		tx = tx.Where("store_id = ?", *q.StoreID)
	}

	//total（件数）
	if err := tx.Count(&total).Error; err != nil {
		return []model.Product{}, 0, err
	}

	//sort
	switch q.Sort {
	case "price_asc":
		tx = tx.Order("price asc").Order("id desc")
	case "price_desc":
		tx = tx.Order("price desc").Order("id desc")
	default:
		tx = tx.Order("created_at desc").Order("id desc")
	}

	offset := (q.Page - 1) * q.Limit
	if err := withChildren(tx).Offset(offset).Limit(q.Limit).Find(&products).Error; err != nil {
		return []model.Product{}, 0, err
	}

	return products, total, nil
}

// IDで商品を取得（子も一緒に）
func (r *ProductGormRepository) FindByID(ctx context.Context, id int64) (model.Product, error) {
	var p model.Product
	err := withChildren(r.db.WithContext(ctx)).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Product{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Product{}, err
	}
	return p, nil
}

// 商品の作成。子は親IDを埋めてから作る。
func (r *ProductGormRepository) Create(ctx context.Context, p model.Product) (model.Product, error) {
	p.Availability = p.ComputeAvailability()
	variants, groups := p.Variants, p.ChoiceGroups

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p.Variants, p.ChoiceGroups = nil, nil
		if err := tx.Omit(clause.Associations).Create(&p).Error; err != nil {
			return err
		}
		p.Variants, p.ChoiceGroups = variants, groups
		return saveChildren(tx, &p)
	})
	if err != nil {
		return model.Product{}, err
	}
	return r.FindByID(ctx, p.ID)
}

// 商品の更新。子はIDで突き合わせ（0は追加、無いものは削除）。
func (r *ProductGormRepository) Update(ctx context.Context, p model.Product) (model.Product, error) {
	p.Availability = p.ComputeAvailability()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Product{}).Where("id = ?", p.ID).Updates(map[string]interface{}{
			"name":                   p.Name,
			"description":            p.Description,
			"price":                  p.Price,
			"category":               p.Category,
			"image":                  p.Image,
			"stock":                  p.Stock,
			"availability":           p.Availability,
			"estimated_time_minutes": p.EstimatedTimeMinutes,
			"shipping_fee":           p.ShippingFee,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return repo.ErrNotFound
		}

		if err := deleteMissing(tx, &model.ProductVariant{}, "product_id = ?", p.ID, variantIDs(p.Variants)); err != nil {
			return err
		}
		keptGroups := make([]int64, 0, len(p.ChoiceGroups))
		keptOptions := []int64{}
		for _, g := range p.ChoiceGroups {
			if g.ID != 0 {
				keptGroups = append(keptGroups, g.ID)
			}
			for _, o := range g.Options {
				if o.ID != 0 {
					keptOptions = append(keptOptions, o.ID)
				}
			}
		}
		if err := deleteMissing(tx, &model.ChoiceOption{}, "product_id = ?", p.ID, keptOptions); err != nil {
			return err
		}
		if err := deleteMissing(tx, &model.ChoiceGroup{}, "product_id = ?", p.ID, keptGroups); err != nil {
			return err
		}
		return saveChildren(tx, &p)
	})
	if err != nil {
		return model.Product{}, err
	}
	return r.FindByID(ctx, p.ID)
}

// 商品削除（論理削除）
func (r *ProductGormRepository) SoftDelete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&model.Product{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// saveChildren はID=0なら作成、それ以外は更新する。
func saveChildren(tx *gorm.DB, p *model.Product) error {
	for i := range p.Variants {
		v := &p.Variants[i]
		v.ProductID = p.ID
		if err := upsertChild(tx, v, v.ID, map[string]interface{}{
			"name": v.Name, "price": v.Price, "stock": v.Stock, "image": v.Image, "position": v.Position,
		}); err != nil {
			return err
		}
	}
	for i := range p.ChoiceGroups {
		g := &p.ChoiceGroups[i]
		g.ProductID = p.ID
		options := g.Options
		g.Options = nil
		if err := upsertChild(tx, g, g.ID, map[string]interface{}{
			"name": g.Name, "required": g.Required, "position": g.Position,
		}); err != nil {
			return err
		}
		for j := range options {
			o := &options[j]
			o.GroupID = g.ID
			o.ProductID = p.ID
			if err := upsertChild(tx, o, o.ID, map[string]interface{}{
				"group_id": o.GroupID, "name": o.Name, "price": o.Price, "stock": o.Stock, "image": o.Image, "position": o.Position,
			}); err != nil {
				return err
			}
		}
		g.Options = options
	}
	return nil
}

func upsertChild(tx *gorm.DB, row interface{}, id int64, fields map[string]interface{}) error {
	if id == 0 {
		return tx.Omit(clause.Associations).Create(row).Error
	}
	return tx.Model(row).Where("id = ?", id).Updates(fields).Error
}

// 残すID以外を削除（空なら全部）
func deleteMissing(tx *gorm.DB, m interface{}, cond string, parentID int64, keep []int64) error {
	q := tx.Where(cond, parentID)
	if len(keep) > 0 {
		q = q.Where("id NOT IN ?", keep)
	}
	return q.Delete(m).Error
}

func variantIDs(vs []model.ProductVariant) []int64 {
	ids := make([]int64, 0, len(vs))
	for _, v := range vs {
		if v.ID != 0 {
			ids = append(ids, v.ID)
		}
	}
	return ids
}
