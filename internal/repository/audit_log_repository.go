package repository

import (
	"context"

	"storefront/internal/domain/model"
)

// AuditLogFilter は1つの対象（注文・商品）の監査ログを絞り込む。
// Actionsが空なら全操作。Limitは実装側で上限をかける。
type AuditLogFilter struct {
	ResourceType model.AuditResourceType
	ResourceID   int64
	Actions      []model.AuditAction
	Limit        int
}

type AuditLogRepository interface {
	Create(ctx context.Context, log model.AuditLog) error
	// 新しい順
	ListForResource(ctx context.Context, f AuditLogFilter) ([]model.AuditLog, error)
}
