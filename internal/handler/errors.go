package handler

import (
	"net/http"
	"strconv"

	"storefront/internal/domain/apperr"
	"storefront/internal/domain/model"
	"storefront/internal/logging"
	"storefront/internal/middleware"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error   string         `json:"error"`
	Kind    string         `json:"kind,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

// writeError はapperrのKindをHTTPステータスに変換して返す。
func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if ae, ok := apperr.As(err); ok {
		if ae.Kind == apperr.KindInternal {
			c.Set(logging.ErrorKey, err)
			return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: ae.Message, Kind: string(ae.Kind)})
		}
		return c.JSON(ae.HTTPStatus(), ErrorResponse{Error: ae.Message, Kind: string(ae.Kind), Details: ae.Details})
	}

	//500
	c.Set(logging.ErrorKey, err)
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error", Kind: string(apperr.KindInternal)})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, Kind: string(apperr.KindValidation)})
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
}

func actorFromContext(c echo.Context) (model.Actor, bool) {
	return middleware.ActorFrom(c)
}

func parseIDParam(c echo.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// page（default 1）, limit（default 20）
func parsePaging(c echo.Context) (int, int, bool) {
	page, limit := 1, 20
	if v := c.QueryParam("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, false
		}
		page = p
	}
	if v := c.QueryParam("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, false
		}
		limit = l
	}
	return page, limit, true
}

func parseOptionalID(c echo.Context, name string) (*int64, bool) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return nil, false
	}
	return &id, true
}

// 明細の指定（商品 + バリアント + 選択肢）
type LineRequest struct {
	ProductID int64                   `json:"product_id"`
	VariantID int64                   `json:"variant_id"`
	Choices   []model.ChoiceSelection `json:"choices"`
	Quantity  int64                   `json:"quantity"`
}

func (r LineRequest) selection() model.VariantSelection {
	return model.VariantSelection{VariantID: r.VariantID, Choices: r.Choices}
}
