package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"storefront/internal/domain/model"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

const (
	CtxUserIDKey   = "user_id"   // int64
	CtxUserRoleKey = "user_role" // model.Role
)

var errBadClaims = errors.New("invalid claims")

// AuthJWT はBearerトークンを検証して利用者をcontextに入れる。
// トークンの発行は外部。sub=ユーザーID（数値か文字列）、role=CUSTOMER/SELLER。
func AuthJWT(secret string) echo.MiddlewareFunc {
	key := []byte(secret)
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	keyFunc := func(*jwt.Token) (interface{}, error) { return key, nil }

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			claims := jwt.MapClaims{}
			token, err := parser.ParseWithClaims(raw, claims, keyFunc)
			if err != nil || !token.Valid {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			actor, err := actorFromClaims(claims)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			c.Set(CtxUserIDKey, actor.UserID)
			c.Set(CtxUserRoleKey, actor.Role)
			return next(c)
		}
	}
}

// "Bearer <token>" からtokenを取り出す。
func bearerToken(header string) (string, bool) {
	scheme, raw, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}

// SYSTEMはトークンでは名乗れない
func actorFromClaims(claims jwt.MapClaims) (model.Actor, error) {
	var id int64
	switch sub := claims["sub"].(type) {
	case float64:
		id = int64(sub)
	case string:
		n, err := strconv.ParseInt(sub, 10, 64)
		if err != nil {
			return model.Actor{}, errBadClaims
		}
		id = n
	}
	if id <= 0 {
		return model.Actor{}, errBadClaims
	}

	role, _ := claims["role"].(string)
	switch r := model.Role(strings.ToUpper(role)); r {
	case model.RoleCustomer, model.RoleSeller:
		return model.Actor{UserID: id, Role: r}, nil
	default:
		return model.Actor{}, errBadClaims
	}
}

// ActorFrom はAuthJWTが保存した利用者を返す。
func ActorFrom(c echo.Context) (model.Actor, bool) {
	id, ok := c.Get(CtxUserIDKey).(int64)
	if !ok || id <= 0 {
		return model.Actor{}, false
	}
	role, ok := c.Get(CtxUserRoleKey).(model.Role)
	if !ok {
		return model.Actor{}, false
	}
	return model.Actor{UserID: id, Role: role}, true
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func errorJSON(msg string) errorResponse {
	return errorResponse{Error: msg}
}
