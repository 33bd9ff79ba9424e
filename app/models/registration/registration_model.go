package registration

import (
	"time"

	"github.com/shopspring/decimal"
)

// RegistrationForm 参会报名表单模型
//
// PaymentRecordID 与支付记录的 RegistrationID 构成双向关联，
// 两者由报名关联流程在同一事务里成对写入。
type RegistrationForm struct {
	ID              uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	Name            string          `gorm:"type:varchar(255)" json:"name"`
	Phone           string          `gorm:"type:varchar(64)" json:"phone"`
	Email           string          `gorm:"type:varchar(255);index" json:"email"`
	Institute       string          `gorm:"type:varchar(255)" json:"institute"`
	Country         string          `gorm:"type:varchar(128)" json:"country"`
	PricingConfigID *uint64         `gorm:"index" json:"pricing_config_id"`
	AmountPaid      decimal.Decimal `gorm:"type:decimal(12,2)" json:"amount_paid"` // 报名时总价快照
	PaymentRecordID *uint64         `gorm:"index" json:"payment_record_id"`
	CreatedAt       time.Time       `gorm:"" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"" json:"updated_at"`
}

// TableName 指定表名
func (RegistrationForm) TableName() string {
	return "registration_forms"
}

// IsLinked 检查是否已关联支付记录
func (r *RegistrationForm) IsLinked() bool {
	return r.PaymentRecordID != nil
}
