package discount

import "confreg/app/models/payment"

// IsPending 是否待支付
func (r *DiscountRecord) IsPending() bool {
	return payment.Status(r.Status) == payment.StatusPending
}

// IsCompleted 是否已完成
func (r *DiscountRecord) IsCompleted() bool {
	return payment.Status(r.Status) == payment.StatusCompleted
}

// InTerminalState 是否已进终态
func (r *DiscountRecord) InTerminalState() bool {
	return payment.Status(r.Status).IsTerminal()
}

// Transition 尝试迁移到目标状态，规则与支付记录一致
func (r *DiscountRecord) Transition(target payment.Status) bool {
	if r.Status == string(target) {
		return false
	}
	if r.InTerminalState() {
		return false
	}
	r.Status = string(target)
	return true
}
