package model

import (
	"strings"

	"storefront/internal/domain/apperr"

	"github.com/shopspring/decimal"
)

// ResolvedLine は商品＋選択を解決した結果。
type ResolvedLine struct {
	UnitPrice decimal.Decimal
	Label     string
	// StockHint は関係する在庫行の最小値（カート追加時の目安）。
	StockHint int64
}

// ResolveSelection は選択を検証して単価と在庫の目安を返す。
// 単価 = (バリアント価格 or 基本価格) + 選択肢価格の合計。
func ResolveSelection(p Product, sel VariantSelection) (ResolvedLine, error) {
	sel = sel.Normalize()

	out := ResolvedLine{UnitPrice: p.Price, StockHint: p.Stock}
	labels := []string{}

	//バリアント
	if p.HasVariants() {
		if sel.VariantID == 0 {
			return ResolvedLine{}, apperr.Validation("variant required").WithDetail("product_id", p.ID)
		}
		v, ok := p.FindVariant(sel.VariantID)
		if !ok {
			return ResolvedLine{}, apperr.Validation("unknown variant").WithDetail("variant_id", sel.VariantID)
		}
		out.UnitPrice = v.Price
		out.StockHint = v.Stock
		labels = append(labels, v.Name)
	} else if sel.VariantID != 0 {
		return ResolvedLine{}, apperr.Validation("product has no variants").WithDetail("variant_id", sel.VariantID)
	}

	//選択肢（1グループ1つまで）
	seen := map[int64]bool{}
	for _, c := range sel.Choices {
		if seen[c.GroupID] {
			return ResolvedLine{}, apperr.Validation("one option per choice group").WithDetail("group_id", c.GroupID)
		}
		seen[c.GroupID] = true

		g, o, ok := p.FindOption(c.GroupID, c.OptionID)
		if !ok {
			return ResolvedLine{}, apperr.Validation("unknown choice option").WithDetail("option_id", c.OptionID)
		}
		out.UnitPrice = out.UnitPrice.Add(o.Price)
		if o.Stock < out.StockHint {
			out.StockHint = o.Stock
		}
		labels = append(labels, g.Name+": "+o.Name)
	}

	//必須グループ
	for _, g := range p.ChoiceGroups {
		if g.Required && !seen[g.ID] {
			return ResolvedLine{}, apperr.Validation("choice required").WithDetail("group", g.Name)
		}
	}

	out.Label = strings.Join(labels, ", ")
	return out, nil
}

// LineSubtotal は 単価 × 数量。
func LineSubtotal(unit decimal.Decimal, qty int64) decimal.Decimal {
	return unit.Mul(decimal.NewFromInt(qty))
}
