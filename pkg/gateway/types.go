package gateway

// SessionParams 创建结账会话的请求参数
// 金额一律以最小货币单位（分）传给网关
type SessionParams struct {
	ProductName   string            `json:"product_name"`
	Description   string            `json:"description,omitempty"`
	UnitAmount    int64             `json:"unit_amount"`
	Quantity      int64             `json:"quantity"`
	Currency      string            `json:"currency"`
	CustomerEmail string            `json:"customer_email"`
	SuccessURL    string            `json:"success_url"`
	CancelURL     string            `json:"cancel_url"`
	ExpiresAt     int64             `json:"expires_at"` // Unix 秒，网关在该时刻后关闭会话
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// CheckoutSession 网关返回的结账会话对象
// 会话相关的 webhook 事件携带同样的结构
type CheckoutSession struct {
	ID            string            `json:"id"`
	URL           string            `json:"url,omitempty"`
	Status        string            `json:"status,omitempty"`
	PaymentStatus string            `json:"payment_status,omitempty"` // 网关侧支付状态原文，如 paid / unpaid
	AmountTotal   *int64            `json:"amount_total,omitempty"`   // 分
	Currency      string            `json:"currency,omitempty"`
	CustomerEmail string            `json:"customer_email,omitempty"`
	ChargeID      string            `json:"charge_id,omitempty"` // 支付成功后网关回填
	Created       int64             `json:"created"`
	ExpiresAt     int64             `json:"expires_at,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Charge 网关的扣款对象，由 charge_succeeded / charge_failed 事件携带
type Charge struct {
	ID             string `json:"id"`
	Amount         *int64 `json:"amount,omitempty"` // 分
	Currency       string `json:"currency,omitempty"`
	Status         string `json:"status,omitempty"`
	FailureMessage string `json:"failure_message,omitempty"`
	Created        int64  `json:"created"`
}
