package model_test

import (
	"testing"

	"storefront/internal/domain/model"

	"github.com/stretchr/testify/assert"
)

func TestVariantSelection_KeyIgnoresOrder(t *testing.T) {
	a := model.VariantSelection{VariantID: 12, Choices: []model.ChoiceSelection{
		{GroupID: 4, OptionID: 9}, {GroupID: 3, OptionID: 7},
	}}
	b := model.VariantSelection{VariantID: 12, Choices: []model.ChoiceSelection{
		{GroupID: 3, OptionID: 7}, {GroupID: 4, OptionID: 9},
	}}

	assert.Equal(t, "v12|g3:o7,g4:o9", a.Key())
	assert.Equal(t, a.Key(), b.Key())
	// 元のスライスは並べ替えない
	assert.Equal(t, int64(4), a.Choices[0].GroupID)
}

func TestVariantSelection_KeyShapes(t *testing.T) {
	assert.Equal(t, "", model.VariantSelection{}.Key())
	assert.Equal(t, "v5", model.VariantSelection{VariantID: 5}.Key())
	assert.Equal(t, "|g1:o2", model.VariantSelection{Choices: []model.ChoiceSelection{{GroupID: 1, OptionID: 2}}}.Key())
}

func TestVariantSelection_ValueScan(t *testing.T) {
	in := model.VariantSelection{VariantID: 3, Choices: []model.ChoiceSelection{{GroupID: 2, OptionID: 8}}}

	v, err := in.Value()
	assert.NoError(t, err)

	var out model.VariantSelection
	assert.NoError(t, out.Scan([]byte(v.(string))))
	assert.Equal(t, in.Key(), out.Key())

	assert.NoError(t, out.Scan(nil))
	assert.True(t, out.IsEmpty())

	assert.Error(t, out.Scan(42))
}
