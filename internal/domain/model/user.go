package model

type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleSeller   Role = "SELLER"
	// システム（期限切れ注文の自動キャンセルなど）
	RoleSystem Role = "SYSTEM"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleSeller, RoleSystem:
		return true
	}
	return false
}

// Actor はリクエストごとの利用者。認証は外部で済んでいる前提で、そのまま信頼する。
type Actor struct {
	UserID int64
	Role   Role
}

// SystemActor はジョブから状態遷移するときの利用者。
var SystemActor = Actor{UserID: 0, Role: RoleSystem}
