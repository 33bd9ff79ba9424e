// Package discount 优惠支付记录模型
//
// 优惠支付是定价配置之外的第二条收款通道：金额由运营按个案指定，
// 不经定价校验，也不关联报名表单，只按会话号对账。
package discount

import (
	"time"

	"github.com/shopspring/decimal"
)

// DiscountRecord 优惠支付记录
type DiscountRecord struct {
	ID               uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID        string          `gorm:"type:varchar(128);uniqueIndex" json:"session_id"`
	ChargeID         *string         `gorm:"type:varchar(128);uniqueIndex" json:"charge_id"`
	Name             string          `gorm:"type:varchar(255)" json:"name"`
	Phone            string          `gorm:"type:varchar(64)" json:"phone"`
	Institute        string          `gorm:"type:varchar(255)" json:"institute"`
	Country          string          `gorm:"type:varchar(128)" json:"country"`
	CustomerEmail    string          `gorm:"type:varchar(255);index" json:"customer_email"`
	AmountTotal      decimal.Decimal `gorm:"type:decimal(12,2)" json:"amount_total"` // 欧元
	Currency         string          `gorm:"type:varchar(8)" json:"currency"`
	Status           string          `gorm:"type:varchar(20);index" json:"status"`
	PaymentStatus    string          `gorm:"type:varchar(40)" json:"payment_status"`
	GatewayCreatedAt *time.Time      `gorm:"" json:"gateway_created_at"`
	GatewayExpiresAt *time.Time      `gorm:"" json:"gateway_expires_at"`
	CreatedAt        time.Time       `gorm:"" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"" json:"updated_at"`
}

// TableName 指定表名
func (DiscountRecord) TableName() string {
	return "discount_records"
}
