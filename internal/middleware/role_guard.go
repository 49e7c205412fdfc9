package middleware

import (
	"net/http"

	"storefront/internal/domain/apperr"
	"storefront/internal/domain/model"

	"github.com/labstack/echo/v4"
)

//contextに入っているroleが許可されたものか確認します。

func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, ok := ActorFrom(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			for _, r := range roles {
				if actor.Role == r {
					return next(c)
				}
			}
			return c.JSON(http.StatusForbidden, errorResponse{
				Error: "role not allowed",
				Kind:  string(apperr.KindUnauthorized),
			})
		}
	}
}
