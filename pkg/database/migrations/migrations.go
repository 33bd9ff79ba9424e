package migrations

import (
	"confreg/app/models/discount"
	"confreg/app/models/payment"
	"confreg/app/models/pricing"
	"confreg/app/models/registration"
)

// RegisterTables 返回需要迁移的表的模型列表
func RegisterTables() []interface{} {
	return []interface{}{
		&pricing.PricingConfig{},
		&payment.PaymentRecord{},
		&registration.RegistrationForm{},
		&discount.DiscountRecord{},
	}
}
