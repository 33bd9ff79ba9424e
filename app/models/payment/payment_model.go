package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentRecord 支付记录模型
//
// 每次创建 checkout 会话都会落一条 PENDING 记录，
// 后续由 webhook 对账流程推进到终态。
type PaymentRecord struct {
	ID               uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID        string          `gorm:"type:varchar(128);uniqueIndex" json:"session_id"`
	ChargeID         *string         `gorm:"type:varchar(128);uniqueIndex" json:"charge_id"` // 一经写入不再变更，NULL 不受唯一约束
	CustomerEmail    string          `gorm:"type:varchar(255);index" json:"customer_email"`
	CustomerName     string          `gorm:"type:varchar(255)" json:"customer_name"`
	ProductName      string          `gorm:"type:varchar(255)" json:"product_name"`
	OrderReference   string          `gorm:"type:varchar(64);index" json:"order_reference"`
	AmountTotal      decimal.Decimal `gorm:"type:decimal(12,2)" json:"amount_total"` // 欧元
	Currency         string          `gorm:"type:varchar(8)" json:"currency"`
	Status           string          `gorm:"type:varchar(20);index" json:"status"`
	PaymentStatus    string          `gorm:"type:varchar(40)" json:"payment_status"` // 网关侧状态原文
	FailureReason    string          `gorm:"type:varchar(512)" json:"failure_reason"`
	PricingConfigID  *uint64         `gorm:"index" json:"pricing_config_id"`
	RegistrationID   *uint64         `gorm:"index" json:"registration_id"`
	GatewayCreatedAt *time.Time      `gorm:"" json:"gateway_created_at"`
	GatewayExpiresAt *time.Time      `gorm:"" json:"gateway_expires_at"`
	CreatedAt        time.Time       `gorm:"" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"" json:"updated_at"`
}

// TableName 指定表名
func (PaymentRecord) TableName() string {
	return "payment_records"
}
