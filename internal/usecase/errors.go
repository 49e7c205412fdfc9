package usecase

import (
	"errors"

	"storefront/internal/domain/apperr"
	repo "storefront/internal/repository"
)

// dbErr はリポジトリのエラーをINTERNALにする（原因はログ用に残る）。
func dbErr(err error) error {
	if _, ok := apperr.As(err); ok {
		return err
	}
	return apperr.Internal("db error", err)
}

// notFoundOr はErrNotFoundならNOT_FOUND、それ以外はdb error。
func notFoundOr(err error, msg string) error {
	if errors.Is(err, repo.ErrNotFound) {
		return apperr.NotFound(msg)
	}
	return dbErr(err)
}

func validatePaging(page, limit int) error {
	if page < 1 {
		return apperr.Validation("invalid page")
	}
	if limit < 1 || limit > 100 {
		return apperr.Validation("invalid limit")
	}
	return nil
}
