package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"storefront/internal/domain/apperr"

	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesByKind(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", apperr.NotFound("order not found"))

	assert.True(t, errors.Is(err, apperr.NotFound("")))
	assert.False(t, errors.Is(err, apperr.Validation("")))
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestError_HTTPStatus(t *testing.T) {
	cases := map[apperr.Kind]int{
		apperr.KindValidation:         http.StatusBadRequest,
		apperr.KindEmptyCart:          http.StatusBadRequest,
		apperr.KindNotFound:           http.StatusNotFound,
		apperr.KindInsufficientStock:  http.StatusConflict,
		apperr.KindProductUnavailable: http.StatusConflict,
		apperr.KindInvalidTransition:  http.StatusConflict,
		apperr.KindUnauthorized:       http.StatusForbidden,
		apperr.KindInternal:           http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, apperr.New(kind, "x").HTTPStatus(), kind)
	}
}

func TestError_WithDetailDoesNotMutateOriginal(t *testing.T) {
	base := apperr.InsufficientStock("out of stock")
	withLine := base.WithDetail("product_id", int64(7))

	assert.Nil(t, base.Details)
	assert.Equal(t, int64(7), withLine.Details["product_id"])
}

func TestMissingFields(t *testing.T) {
	err := apperr.MissingFields("deliveryLocation")

	assert.Equal(t, apperr.KindValidation, err.Kind)
	assert.Equal(t, []string{"deliveryLocation"}, err.Details["fields"])
}

func TestKindOf_PlainErrorIsInternal(t *testing.T) {
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(errors.New("boom")))
	assert.Equal(t, apperr.Kind(""), apperr.KindOf(nil))
}
