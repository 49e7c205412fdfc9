package memstore

import (
	"context"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"
)

type inventoryRepo struct {
	st  *state
	now func() time.Time
}

// stockRows は選択に対応する在庫の場所（ポインタ）を集める。
// 見つからない行があればfalse。
func stockRows(p *model.Product, sel model.VariantSelection) ([]*int64, bool) {
	rows := []*int64{}
	if sel.VariantID != 0 {
		found := false
		for i := range p.Variants {
			if p.Variants[i].ID == sel.VariantID {
				rows = append(rows, &p.Variants[i].Stock)
				found = true
			}
		}
		if !found {
			return nil, false
		}
	} else {
		rows = append(rows, &p.Stock)
	}
	for _, c := range sel.Choices {
		found := false
		for gi := range p.ChoiceGroups {
			g := &p.ChoiceGroups[gi]
			if g.ID != c.GroupID {
				continue
			}
			for oi := range g.Options {
				if g.Options[oi].ID == c.OptionID {
					rows = append(rows, &g.Options[oi].Stock)
					found = true
				}
			}
		}
		if !found {
			return nil, false
		}
	}
	return rows, true
}

func (r *inventoryRepo) DecreaseStockIfEnough(ctx context.Context, productID int64, sel model.VariantSelection, qty int64) (bool, error) {
	p, ok := r.st.products[productID]
	if !ok || r.st.deleted[productID] {
		return false, nil
	}
	rows, ok := stockRows(&p, sel)
	if !ok {
		return false, nil
	}
	for _, s := range rows {
		if *s < qty {
			return false, nil
		}
	}
	for _, s := range rows {
		*s -= qty
	}
	p.Availability = p.ComputeAvailability()
	r.st.products[productID] = p
	return true, nil
}

func (r *inventoryRepo) IncreaseStock(ctx context.Context, productID int64, sel model.VariantSelection, qty int64) error {
	p, ok := r.st.products[productID]
	if !ok {
		return repo.ErrNotFound
	}
	//削除されたバリアント/選択肢は戻し先がないので飛ばす
	if sel.VariantID != 0 {
		for i := range p.Variants {
			if p.Variants[i].ID == sel.VariantID {
				p.Variants[i].Stock += qty
			}
		}
	} else {
		p.Stock += qty
	}
	for _, c := range sel.Choices {
		for gi := range p.ChoiceGroups {
			if p.ChoiceGroups[gi].ID != c.GroupID {
				continue
			}
			for oi := range p.ChoiceGroups[gi].Options {
				if p.ChoiceGroups[gi].Options[oi].ID == c.OptionID {
					p.ChoiceGroups[gi].Options[oi].Stock += qty
				}
			}
		}
	}
	p.Availability = p.ComputeAvailability()
	r.st.products[productID] = p
	return nil
}

func (r *inventoryRepo) SetStock(ctx context.Context, target repo.StockTarget, newStock int64) (int64, error) {
	p, ok := r.st.products[target.ProductID]
	if !ok || r.st.deleted[target.ProductID] {
		return 0, repo.ErrNotFound
	}

	var slot *int64
	switch {
	case target.VariantID != nil:
		for i := range p.Variants {
			if p.Variants[i].ID == *target.VariantID {
				slot = &p.Variants[i].Stock
			}
		}
	case target.OptionID != nil:
		for gi := range p.ChoiceGroups {
			for oi := range p.ChoiceGroups[gi].Options {
				if p.ChoiceGroups[gi].Options[oi].ID == *target.OptionID {
					slot = &p.ChoiceGroups[gi].Options[oi].Stock
				}
			}
		}
	default:
		slot = &p.Stock
	}
	if slot == nil {
		return 0, repo.ErrNotFound
	}

	old := *slot
	*slot = newStock
	p.Availability = p.ComputeAvailability()
	p.UpdatedAt = r.now()
	r.st.products[target.ProductID] = p
	return old, nil
}

func (r *inventoryRepo) RefreshAvailability(ctx context.Context, productID int64) (model.Availability, error) {
	p, ok := r.st.products[productID]
	if !ok {
		return "", repo.ErrNotFound
	}
	p.Availability = p.ComputeAvailability()
	r.st.products[productID] = p
	return p.Availability, nil
}

func (r *inventoryRepo) MarkRestored(ctx context.Context, eventKey string, orderID int64) (bool, error) {
	if _, done := r.st.restorations[eventKey]; done {
		return false, nil
	}
	r.st.restorations[eventKey] = orderID
	return true, nil
}

func (r *inventoryRepo) CreateAdjustment(ctx context.Context, adjustment model.InventoryAdjustment) error {
	adjustment.ID = r.st.id()
	if adjustment.CreatedAt.IsZero() {
		adjustment.CreatedAt = r.now()
	}
	r.st.adjustments = append(r.st.adjustments, adjustment)
	return nil
}
