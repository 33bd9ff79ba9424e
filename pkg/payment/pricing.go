package payment

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"confreg/app/models/pricing"
	"confreg/app/repositories"
	"confreg/pkg/config"
	"confreg/pkg/logger"
	"confreg/pkg/money"
)

// PricingValidator 定价校验器
//
// 对照定价配置的权威总价做精确比对，不允许任何容差；
// 同时把关单一结算货币策略。
type PricingValidator struct {
	repo     *repositories.PricingRepository
	currency string
}

// NewPricingValidator 创建定价校验器
func NewPricingValidator(repo *repositories.PricingRepository) *PricingValidator {
	return &PricingValidator{
		repo:     repo,
		currency: config.GetString("payment.currency"),
	}
}

// NewPricingValidatorWithCurrency 指定结算货币创建校验器，测试使用
func NewPricingValidatorWithCurrency(repo *repositories.PricingRepository, currency string) *PricingValidator {
	return &PricingValidator{repo: repo, currency: currency}
}

// Currency 结算货币
func (v *PricingValidator) Currency() string {
	return v.currency
}

// NormalizeCurrency 货币归一化
//
// 空值默认为结算货币；其余币种必须与结算货币一致，否则拒绝。
func (v *PricingValidator) NormalizeCurrency(requested string) (string, error) {
	requested = strings.ToLower(strings.TrimSpace(requested))
	if requested == "" {
		return v.currency, nil
	}
	if requested != v.currency {
		logger.WarnString("定价", "货币校验", "拒绝非结算货币: "+requested)
		return "", ErrUnsupportedCurrency
	}
	return v.currency, nil
}

// Validate 校验请求总价与权威定价精确一致
//
// unitAmount 为最小货币单位（分），requested = unitAmount × quantity。
func (v *PricingValidator) Validate(ctx context.Context, pricingConfigID uint64, unitAmount, quantity int64) (*pricing.PricingConfig, error) {
	cfg, err := v.repo.GetByID(ctx, pricingConfigID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	requested := money.FromCents(unitAmount * quantity)
	if err := v.ValidateAgainst(cfg, requested); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ValidateAgainst 对照已加载的定价配置校验一个十进制总价
//
// 对账阶段的复核也走这里，由调用方决定不一致是否致命。
func (v *PricingValidator) ValidateAgainst(cfg *pricing.PricingConfig, requested decimal.Decimal) error {
	if !money.Equal(cfg.TotalPrice, requested) {
		return &AmountMismatchError{
			Expected: cfg.TotalPrice,
			Received: requested,
		}
	}
	return nil
}
