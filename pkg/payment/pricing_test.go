package payment

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"confreg/app/models/pricing"
	"confreg/app/repositories"
)

func TestPricingValidatorExactMatch(t *testing.T) {
	db := newTestDB(t)
	repo := repositories.NewPricingRepositoryWithDB(db)
	validator := NewPricingValidatorWithCurrency(repo, "eur")

	cfg := seedPricing(t, db, "45.00", 0)
	require.Equal(t, "45.00", cfg.TotalPrice.StringFixed(2))

	t.Run("金额精确一致", func(t *testing.T) {
		got, err := validator.Validate(testCtx(), cfg.ID, 4500, 1)
		require.NoError(t, err)
		require.Equal(t, cfg.ID, got.ID)
	})

	t.Run("单价乘数量后一致", func(t *testing.T) {
		_, err := validator.Validate(testCtx(), cfg.ID, 2250, 2)
		require.NoError(t, err)
	})

	t.Run("金额不一致", func(t *testing.T) {
		_, err := validator.Validate(testCtx(), cfg.ID, 5000, 1)

		var mismatch *AmountMismatchError
		require.ErrorAs(t, err, &mismatch)
		require.Equal(t, "45.00", mismatch.Expected.StringFixed(2))
		require.Equal(t, "50.00", mismatch.Received.StringFixed(2))
	})

	t.Run("差一分也不放行", func(t *testing.T) {
		_, err := validator.Validate(testCtx(), cfg.ID, 4499, 1)
		require.True(t, IsAmountMismatch(err))
	})

	t.Run("定价配置不存在", func(t *testing.T) {
		_, err := validator.Validate(testCtx(), 9999, 4500, 1)
		require.ErrorIs(t, err, ErrConfigNotFound)
	})
}

func TestNormalizeCurrency(t *testing.T) {
	db := newTestDB(t)
	validator := NewPricingValidatorWithCurrency(repositories.NewPricingRepositoryWithDB(db), "eur")

	t.Run("缺省为结算货币", func(t *testing.T) {
		currency, err := validator.NormalizeCurrency("")
		require.NoError(t, err)
		require.Equal(t, "eur", currency)
	})

	t.Run("大小写不敏感", func(t *testing.T) {
		currency, err := validator.NormalizeCurrency("EUR")
		require.NoError(t, err)
		require.Equal(t, "eur", currency)
	})

	t.Run("其它币种拒绝", func(t *testing.T) {
		_, err := validator.NormalizeCurrency("usd")
		require.ErrorIs(t, err, ErrUnsupportedCurrency)
	})
}

func TestPricingConfigTotalComputation(t *testing.T) {
	db := newTestDB(t)

	// (30 + 10) × (1 + 12.5%) = 45.00
	cfg := &pricing.PricingConfig{
		PresentationName:   "Oral Presentation",
		PresentationPrice:  decimal.RequireFromString("30.00"),
		AccommodationName:  "Standard Room",
		AccommodationPrice: decimal.RequireFromString("10.00"),
		ProcessingFeePct:   12.5,
	}
	require.NoError(t, db.Create(cfg).Error)
	require.Equal(t, "45.00", cfg.TotalPrice.StringFixed(2))

	// 手工改写总价在保存时被重算覆盖
	cfg.TotalPrice = decimal.RequireFromString("1.00")
	require.NoError(t, db.Save(cfg).Error)
	require.Equal(t, "45.00", cfg.TotalPrice.StringFixed(2))

	// 负的价格拒绝保存
	bad := &pricing.PricingConfig{
		PresentationPrice: decimal.RequireFromString("-1.00"),
	}
	require.Error(t, db.Create(bad).Error)
}
