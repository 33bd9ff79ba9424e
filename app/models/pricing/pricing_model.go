package pricing

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PricingConfig 定价配置模型
//
// TotalPrice 是派生字段，由发表费、住宿费和手续费率计算得出，
// 任何路径的保存都会重新计算，保证权威价格不被手工篡改。
type PricingConfig struct {
	ID                 uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	PresentationName   string          `gorm:"type:varchar(128)" json:"presentation_name"`
	PresentationPrice  decimal.Decimal `gorm:"type:decimal(12,2)" json:"presentation_price"`
	AccommodationName  string          `gorm:"type:varchar(128)" json:"accommodation_name"`
	AccommodationPrice decimal.Decimal `gorm:"type:decimal(12,2)" json:"accommodation_price"`
	ProcessingFeePct   float64         `gorm:"" json:"processing_fee_pct"`
	TotalPrice         decimal.Decimal `gorm:"type:decimal(12,2)" json:"total_price"`
	CreatedAt          time.Time       `gorm:"" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"" json:"updated_at"`
}

// TableName 指定表名
func (PricingConfig) TableName() string {
	return "pricing_configs"
}

// BeforeSave 保存前重新计算总价
func (p *PricingConfig) BeforeSave(tx *gorm.DB) error {
	if p.PresentationPrice.IsNegative() || p.AccommodationPrice.IsNegative() {
		return errors.New("价格不能为负数")
	}

	subtotal := p.PresentationPrice.Add(p.AccommodationPrice)
	fee := subtotal.Mul(decimal.NewFromFloat(p.ProcessingFeePct / 100.0))
	p.TotalPrice = subtotal.Add(fee).Round(2)
	return nil
}
