package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// エラーの種類。呼び出し側はKindで分岐する（メッセージ文字列には依存しない）。
type Kind string

const (
	KindValidation         Kind = "VALIDATION"
	KindNotFound           Kind = "NOT_FOUND"
	KindInsufficientStock  Kind = "INSUFFICIENT_STOCK"
	KindProductUnavailable Kind = "PRODUCT_UNAVAILABLE"
	KindInvalidTransition  Kind = "INVALID_TRANSITION"
	KindUnauthorized       Kind = "UNAUTHORIZED"
	KindEmptyCart          Kind = "EMPTY_CART"
	KindInternal           Kind = "INTERNAL"
)

// Error はusecaseから返す共通エラー。
type Error struct {
	Kind    Kind
	Message string
	Details map[string]any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is はKindが同じなら一致とみなす（errors.Is(err, apperr.NotFound("")) のように使う）。
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// WithDetail は詳細を1件追加したコピーを返す。
func (e *Error) WithDetail(key string, value any) *Error {
	cp := *e
	cp.Details = make(map[string]any, len(e.Details)+1)
	for k, v := range e.Details {
		cp.Details[k] = v
	}
	cp.Details[key] = value
	return &cp
}

// HTTPStatus はKindをHTTPステータスに変換する。
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation, KindEmptyCart:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindInsufficientStock, KindProductUnavailable, KindInvalidTransition:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Validation(message string) *Error { return New(KindValidation, message) }

// MissingFields は未入力項目を列挙したValidationエラー。
func MissingFields(fields ...string) *Error {
	return &Error{
		Kind:    KindValidation,
		Message: "missing required fields",
		Details: map[string]any{"fields": fields},
	}
}

func NotFound(message string) *Error { return New(KindNotFound, message) }

func InsufficientStock(message string) *Error { return New(KindInsufficientStock, message) }

func ProductUnavailable(message string) *Error { return New(KindProductUnavailable, message) }

func InvalidTransition(message string) *Error { return New(KindInvalidTransition, message) }

func Unauthorized(message string) *Error { return New(KindUnauthorized, message) }

func EmptyCart() *Error { return New(KindEmptyCart, "cart empty") }

// Internal はDBエラーなどをラップする。原因はログ用に保持する。
func Internal(message string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: message, cause: cause}
}

// As はerrから*Errorを取り出す。
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// KindOf はerrのKindを返す。*Errorでなければ INTERNAL。
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}
