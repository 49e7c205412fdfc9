package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Availability string

const (
	AvailabilityAvailable  Availability = "Available"
	AvailabilityOutOfStock Availability = "OutOfStock"
)

// 商品。ストア（出品者）に属する。
// バリアントがある場合は在庫をバリアント単位で管理し、Stockは使わない。
type Product struct {
	ID                   int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	StoreID              int64           `gorm:"not null;index" json:"store_id"`
	Name                 string          `gorm:"type:varchar(255);not null" json:"name"`
	Description          string          `gorm:"type:text" json:"description"`
	Price                decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Category             string          `gorm:"type:varchar(100);index" json:"category"`
	Image                string          `gorm:"type:text" json:"image"`
	Stock                int64           `gorm:"not null;default:0" json:"stock"`
	Availability         Availability    `gorm:"type:varchar(20);not null;index" json:"availability"`
	EstimatedTimeMinutes *int            `json:"estimated_time_minutes,omitempty"`
	ShippingFee          decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"shipping_fee"`

	Variants     []ProductVariant `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"variants"`
	ChoiceGroups []ChoiceGroup    `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE" json:"variant_choices"`

	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// 独立して購入できるサブ商品（サイズなど）。
type ProductVariant struct {
	ID        int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID int64           `gorm:"not null;index" json:"product_id"`
	Name      string          `gorm:"type:varchar(255);not null" json:"name"`
	Price     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Stock     int64           `gorm:"not null;default:0" json:"stock"`
	Image     string          `gorm:"type:text" json:"image"`
	Position  int             `gorm:"not null;default:0" json:"position"`
}

// 選択肢グループ（辛さ、トッピングなど）。
type ChoiceGroup struct {
	ID        int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID int64          `gorm:"not null;index" json:"product_id"`
	Name      string         `gorm:"type:varchar(255);not null" json:"name"`
	Required  bool           `gorm:"not null;default:false" json:"required"`
	Position  int            `gorm:"not null;default:0" json:"position"`
	Options   []ChoiceOption `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE" json:"options"`
}

// 選択肢。価格は基本価格への加算。
type ChoiceOption struct {
	ID        int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	GroupID   int64           `gorm:"not null;index" json:"group_id"`
	ProductID int64           `gorm:"not null;index" json:"product_id"`
	Name      string          `gorm:"type:varchar(255);not null" json:"name"`
	Price     decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"price"`
	Stock     int64           `gorm:"not null;default:0" json:"stock"`
	Image     string          `gorm:"type:text" json:"image"`
	Position  int             `gorm:"not null;default:0" json:"position"`
}

func (p Product) HasVariants() bool {
	return len(p.Variants) > 0
}

// TrackedStock は在庫切れ判定に使う在庫数。バリアントがあれば合計。
func (p Product) TrackedStock() int64 {
	if !p.HasVariants() {
		return p.Stock
	}
	var total int64
	for _, v := range p.Variants {
		total += v.Stock
	}
	return total
}

// ComputeAvailability は在庫から販売状態を決める。
func (p Product) ComputeAvailability() Availability {
	if p.TrackedStock() > 0 {
		return AvailabilityAvailable
	}
	return AvailabilityOutOfStock
}

func (p Product) FindVariant(id int64) (ProductVariant, bool) {
	for _, v := range p.Variants {
		if v.ID == id {
			return v, true
		}
	}
	return ProductVariant{}, false
}

func (p Product) FindOption(groupID, optionID int64) (ChoiceGroup, ChoiceOption, bool) {
	for _, g := range p.ChoiceGroups {
		if g.ID != groupID {
			continue
		}
		for _, o := range g.Options {
			if o.ID == optionID {
				return g, o, true
			}
		}
		return g, ChoiceOption{}, false
	}
	return ChoiceGroup{}, ChoiceOption{}, false
}

// EstimatedMinutes は未設定なら30分。
func (p Product) EstimatedMinutes() int {
	if p.EstimatedTimeMinutes == nil {
		return DefaultEstimatedMinutes
	}
	return *p.EstimatedTimeMinutes
}

const DefaultEstimatedMinutes = 30
