package payment

// Status 支付记录状态
type Status string

const (
	StatusPending   Status = "PENDING"   // 会话已创建，等待网关结果
	StatusCompleted Status = "COMPLETED" // 支付成功
	StatusFailed    Status = "FAILED"    // 支付失败
	StatusCancelled Status = "CANCELLED" // 主动取消
	StatusExpired   Status = "EXPIRED"   // 会话超时未支付
)

// IsTerminal 终态判断，终态之间不再互相迁移
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled, StatusExpired:
		return true
	}
	return false
}

// IsPending 检查是否待支付
func (p *PaymentRecord) IsPending() bool {
	return p.Status == string(StatusPending)
}

// IsCompleted 检查支付是否成功
func (p *PaymentRecord) IsCompleted() bool {
	return p.Status == string(StatusCompleted)
}

// InTerminalState 检查记录是否已进入终态
func (p *PaymentRecord) InTerminalState() bool {
	return Status(p.Status).IsTerminal()
}

// Transition 尝试迁移到目标状态
//
// 终态记录拒绝任何迁移；重复迁移到当前状态视为幂等成功。
// 返回值表示状态是否真的发生了变化。
func (p *PaymentRecord) Transition(target Status) bool {
	if p.Status == string(target) {
		return false
	}
	if p.InTerminalState() {
		return false
	}
	p.Status = string(target)
	return true
}
