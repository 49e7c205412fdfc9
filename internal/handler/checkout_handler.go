package handler

import (
	"net/http"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 二重送信防止キーはヘッダーから受け取る（bodyには入れない）
const idempotencyHeader = "X-Idempotency-Key"

type CheckoutHandler struct {
	uc *usecase.CheckoutUsecase
}

func NewCheckoutHandler(uc *usecase.CheckoutUsecase) *CheckoutHandler {
	return &CheckoutHandler{uc: uc}
}

type PlaceOrderRequest struct {
	CustomerName     string `json:"customer_name"`
	ContactNumber    string `json:"contact_number"`
	DeliveryLocation string `json:"delivery_location"`
	PaymentMethod    string `json:"payment_method"`
	Notes            string `json:"notes"`
}

func (h *CheckoutHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/checkout", h.fromCart)
	g.POST("/checkout/product", h.fromProduct)
	g.POST("/orders/:id/place", h.place)
}

func (h *CheckoutHandler) fromCart(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	out, err := h.uc.CheckoutFromCart(c.Request().Context(), actor.UserID, c.Request().Header.Get(idempotencyHeader))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

// 1商品だけ今すぐ購入
func (h *CheckoutHandler) fromProduct(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req LineRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.CheckoutProduct(c.Request().Context(), actor.UserID, usecase.CheckoutProductInput{
		ProductID:      req.ProductID,
		Selection:      req.selection(),
		Quantity:       req.Quantity,
		IdempotencyKey: c.Request().Header.Get(idempotencyHeader),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, out)
}

// 配送先と支払い方法を入れて注文を確定する
func (h *CheckoutHandler) place(c echo.Context) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	orderID, ok := parseIDParam(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	var req PlaceOrderRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	out, err := h.uc.PlaceOrder(c.Request().Context(), actor.UserID, orderID, usecase.PlaceOrderInput{
		CustomerName:     req.CustomerName,
		ContactNumber:    req.ContactNumber,
		DeliveryLocation: req.DeliveryLocation,
		PaymentMethod:    req.PaymentMethod,
		Notes:            req.Notes,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
