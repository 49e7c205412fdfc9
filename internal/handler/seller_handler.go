package handler

import (
	"context"
	"net/http"

	"storefront/internal/domain/model"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /seller 配下（ストア・商品・在庫・注文処理）
type SellerHandler struct {
	catalog *usecase.CatalogUsecase
	orders  *usecase.OrderUsecase
}

func NewSellerHandler(catalog *usecase.CatalogUsecase, orders *usecase.OrderUsecase) *SellerHandler {
	return &SellerHandler{catalog: catalog, orders: orders}
}

type CreateStoreRequest struct {
	Name string `json:"name"`
}

type RestockRequest struct {
	VariantID *int64 `json:"variant_id"`
	OptionID  *int64 `json:"option_id"`
	Stock     *int64 `json:"stock"`
	Reason    string `json:"reason"`
}

func (h *SellerHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/stores", h.createStore)
	g.GET("/stores", h.listStores)

	g.POST("/products", h.createProduct)
	g.PUT("/products/:id", h.updateProduct)
	g.DELETE("/products/:id", h.deleteProduct)
	g.PUT("/inventory/:id", h.restock)

	g.GET("/orders", h.listOrders)
	g.GET("/orders/:id", h.orderDetail)
	g.GET("/orders/:id/audit", h.auditTrail)
	g.POST("/orders/:id/cancel", h.cancel)
	g.POST("/orders/:id/ship", h.transition(func(ctx context.Context, a model.Actor, id int64) (usecase.OrderOutput, error) {
		return h.orders.Ship(ctx, a, id)
	}))
	g.POST("/orders/:id/deliver", h.transition(func(ctx context.Context, a model.Actor, id int64) (usecase.OrderOutput, error) {
		return h.orders.Deliver(ctx, a, id)
	}))
	g.POST("/orders/:id/paid", h.transition(func(ctx context.Context, a model.Actor, id int64) (usecase.OrderOutput, error) {
		return h.orders.MarkPaid(ctx, a, id)
	}))
}

func (h *SellerHandler) createStore(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	var req CreateStoreRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	st, err := h.catalog.CreateStore(c.Request().Context(), actor, req.Name)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, st)
}

func (h *SellerHandler) listStores(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	stores, err := h.catalog.ListMyStores(c.Request().Context(), actor)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, stores)
}

func (h *SellerHandler) createProduct(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	var req usecase.ProductInput
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	p, err := h.catalog.CreateProduct(c.Request().Context(), actor, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *SellerHandler) updateProduct(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req usecase.ProductInput
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	p, err := h.catalog.UpdateProduct(c.Request().Context(), actor, id, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *SellerHandler) deleteProduct(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	if err := h.catalog.DeleteProduct(c.Request().Context(), actor, id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// 在庫を「現在値」に設定する
func (h *SellerHandler) restock(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req RestockRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.Stock == nil {
		return badRequest(c, "stock is required")
	}

	p, err := h.catalog.Restock(c.Request().Context(), actor, id, usecase.RestockInput{
		VariantID: req.VariantID,
		OptionID:  req.OptionID,
		Stock:     *req.Stock,
		Reason:    req.Reason,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *SellerHandler) listOrders(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	page, limit, ok := parsePaging(c)
	if !ok {
		return badRequest(c, "invalid paging")
	}
	storeID, ok := parseOptionalID(c, "store_id")
	if !ok {
		return badRequest(c, "invalid store_id")
	}

	out, err := h.orders.ListSellerOrders(c.Request().Context(), actor, usecase.SellerOrderQuery{
		Page:    page,
		Limit:   limit,
		Status:  c.QueryParam("status"),
		StoreID: storeID,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *SellerHandler) orderDetail(c echo.Context) error {
	return h.transition(h.orders.GetOrder)(c)
}

func (h *SellerHandler) auditTrail(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	_, limit, ok := parsePaging(c)
	if !ok {
		return badRequest(c, "invalid paging")
	}

	logs, err := h.orders.AuditTrail(c.Request().Context(), actor, id, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, logs)
}

func (h *SellerHandler) cancel(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}
	var req CancelRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.orders.Cancel(c.Request().Context(), actor, id, req.Reason)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// transition は「注文ID → 操作」だけのハンドラを作る
func (h *SellerHandler) transition(op func(ctx context.Context, actor model.Actor, orderID int64) (usecase.OrderOutput, error)) echo.HandlerFunc {
	return func(c echo.Context) error {
		actor, ok := actorFromContext(c)
		if !ok {
			return unauthorized(c)
		}
		id, ok := parseIDParam(c, "id")
		if !ok {
			return badRequest(c, "invalid id")
		}

		out, err := op(c.Request().Context(), actor, id)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, out)
	}
}
