package model_test

import (
	"testing"

	"storefront/internal/domain/apperr"
	"storefront/internal/domain/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func pizza() model.Product {
	return model.Product{
		ID:    1,
		Name:  "Pizza",
		Price: dec("200.00"),
		Variants: []model.ProductVariant{
			{ID: 10, ProductID: 1, Name: "Small", Price: dec("180.00"), Stock: 5},
			{ID: 11, ProductID: 1, Name: "Large", Price: dec("260.00"), Stock: 0},
		},
		ChoiceGroups: []model.ChoiceGroup{
			{ID: 3, ProductID: 1, Name: "Crust", Required: true, Options: []model.ChoiceOption{
				{ID: 30, GroupID: 3, Name: "Thin", Price: dec("0"), Stock: 100},
				{ID: 31, GroupID: 3, Name: "Stuffed", Price: dec("45.50"), Stock: 2},
			}},
			{ID: 4, ProductID: 1, Name: "Extra", Options: []model.ChoiceOption{
				{ID: 40, GroupID: 4, Name: "Cheese", Price: dec("20.00"), Stock: 50},
			}},
		},
	}
}

func TestResolveSelection_VariantPlusOptions(t *testing.T) {
	sel := model.VariantSelection{VariantID: 10, Choices: []model.ChoiceSelection{
		{GroupID: 4, OptionID: 40},
		{GroupID: 3, OptionID: 31},
	}}

	line, err := model.ResolveSelection(pizza(), sel)
	assert.NoError(t, err)
	assert.True(t, dec("245.50").Equal(line.UnitPrice), line.UnitPrice.String())
	assert.Equal(t, int64(2), line.StockHint)
	assert.Equal(t, "Small, Crust: Stuffed, Extra: Cheese", line.Label)
}

func TestResolveSelection_Errors(t *testing.T) {
	cases := map[string]model.VariantSelection{
		"variant required": {Choices: []model.ChoiceSelection{{GroupID: 3, OptionID: 30}}},
		"unknown variant":  {VariantID: 99, Choices: []model.ChoiceSelection{{GroupID: 3, OptionID: 30}}},
		"choice required":  {VariantID: 10},
		"unknown option":   {VariantID: 10, Choices: []model.ChoiceSelection{{GroupID: 3, OptionID: 99}}},
		"two per group": {VariantID: 10, Choices: []model.ChoiceSelection{
			{GroupID: 3, OptionID: 30}, {GroupID: 3, OptionID: 31},
		}},
	}
	for name, sel := range cases {
		_, err := model.ResolveSelection(pizza(), sel)
		assert.Equal(t, apperr.KindValidation, apperr.KindOf(err), name)
	}
}

func TestResolveSelection_PlainProduct(t *testing.T) {
	p := model.Product{ID: 2, Price: dec("50.00"), Stock: 7}

	line, err := model.ResolveSelection(p, model.VariantSelection{})
	assert.NoError(t, err)
	assert.True(t, dec("50.00").Equal(line.UnitPrice))
	assert.Equal(t, int64(7), line.StockHint)
	assert.Equal(t, "", line.Label)

	_, err = model.ResolveSelection(p, model.VariantSelection{VariantID: 1})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestLineSubtotal(t *testing.T) {
	assert.True(t, dec("100.00").Equal(model.LineSubtotal(dec("50.00"), 2)))
}

func TestProduct_Availability(t *testing.T) {
	p := pizza()
	assert.Equal(t, int64(5), p.TrackedStock())
	assert.Equal(t, model.AvailabilityAvailable, p.ComputeAvailability())

	p.Variants[0].Stock = 0
	assert.Equal(t, model.AvailabilityOutOfStock, p.ComputeAvailability())

	plain := model.Product{Stock: 0}
	assert.Equal(t, model.AvailabilityOutOfStock, plain.ComputeAvailability())
	assert.Equal(t, model.DefaultEstimatedMinutes, plain.EstimatedMinutes())
}
