package payment

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"confreg/app/models/discount"
	"confreg/app/models/payment"
	"confreg/app/models/pricing"
	"confreg/app/models/registration"
	"confreg/app/repositories"
)

var testDBSeq atomic.Int64

// newTestDB 每个测试用独立的内存 sqlite 库
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:payment_test_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&pricing.PricingConfig{},
		&payment.PaymentRecord{},
		&registration.RegistrationForm{},
		&discount.DiscountRecord{},
	))
	return db
}

// seedDiscount 插入一条 PENDING 优惠支付记录并返回
func seedDiscount(t *testing.T, db *gorm.DB, sessionID, email, amount string) *discount.DiscountRecord {
	t.Helper()

	record := &discount.DiscountRecord{
		SessionID:     sessionID,
		Name:          "Ada Lovelace",
		CustomerEmail: email,
		AmountTotal:   decimal.RequireFromString(amount),
		Currency:      "eur",
		Status:        string(payment.StatusPending),
	}
	require.NoError(t, db.Create(record).Error)
	return record
}

// seedPricing 插入一条定价配置并返回
func seedPricing(t *testing.T, db *gorm.DB, presentation string, fee float64) *pricing.PricingConfig {
	t.Helper()

	cfg := &pricing.PricingConfig{
		PresentationName:  "Oral Presentation",
		PresentationPrice: decimal.RequireFromString(presentation),
		ProcessingFeePct:  fee,
	}
	require.NoError(t, db.Create(cfg).Error)
	return cfg
}

// seedPending 插入一条 PENDING 支付记录并返回
func seedPending(t *testing.T, db *gorm.DB, sessionID, email, amount string) *payment.PaymentRecord {
	t.Helper()

	record := &payment.PaymentRecord{
		SessionID:     sessionID,
		CustomerEmail: email,
		AmountTotal:   decimal.RequireFromString(amount),
		Currency:      "eur",
		Status:        string(payment.StatusPending),
	}
	require.NoError(t, db.Create(record).Error)
	return record
}

// newTestReconciler 组装一套基于测试库的对账器
func newTestReconciler(t *testing.T, db *gorm.DB) (*Reconciler, *repositories.PaymentRepository) {
	t.Helper()

	payments := repositories.NewPaymentRepositoryWithDB(db)
	pricings := repositories.NewPricingRepositoryWithDB(db)
	discounts := repositories.NewDiscountRepositoryWithDB(db)
	validator := NewPricingValidatorWithCurrency(pricings, "eur")
	linker := NewRegistrationLinker(db)
	return NewReconciler(payments, pricings, discounts, validator, linker), payments
}

func testCtx() context.Context {
	return context.Background()
}
