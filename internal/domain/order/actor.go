package order

// Actor 已认证的调用方
// 身份认证由外部完成，这里只关心用户ID和是否具备管理员能力。
type Actor struct {
	UserID  uint
	IsAdmin bool
}

// RequireAdmin 校验管理员能力
func (a Actor) RequireAdmin() error {
	if !a.IsAdmin {
		return ErrAdminRequired
	}
	return nil
}

// RequireOwner 校验是否为订单买家
func (a Actor) RequireOwner(o *Order) error {
	if !o.IsOwnedBy(a.UserID) {
		return ErrNotOwner
	}
	return nil
}

// CanView 买家本人或管理员可以查看订单
func (a Actor) CanView(o *Order) bool {
	return a.IsAdmin || o.IsOwnedBy(a.UserID)
}
