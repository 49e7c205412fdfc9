package server

import (
	"net/http"

	"storefront/internal/domain/model"
	"storefront/internal/handler"
	"storefront/internal/middleware"

	"github.com/labstack/echo/v4"
)

type Handlers struct {
	Product  *handler.ProductHandler
	Cart     *handler.CartHandler
	Checkout *handler.CheckoutHandler
	Order    *handler.OrderHandler
	Seller   *handler.SellerHandler
}

// RegisterRoutes は公開・顧客・出品者のルートを登録する。
func RegisterRoutes(e *echo.Echo, h Handlers, opts Options) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if opts.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(opts.Metrics))
	}

	//公開
	h.Product.RegisterRoutes(e)

	authed := []echo.MiddlewareFunc{middleware.AuthJWT(opts.JWTSecret)}
	if opts.Limiter != nil {
		authed = append(authed, opts.Limiter.Middleware())
	}

	//顧客
	customer := e.Group("", append(authed, middleware.RequireRole(model.RoleCustomer))...)
	h.Cart.RegisterRoutes(customer)
	h.Checkout.RegisterRoutes(customer)

	//注文の参照とキャンセルは顧客のみ（出品者は /seller/orders）
	h.Order.RegisterRoutes(customer)

	//出品者
	seller := e.Group("/seller", append(authed, middleware.RequireRole(model.RoleSeller))...)
	h.Seller.RegisterRoutes(seller)
}
