package payment

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"confreg/app/models/discount"
	"confreg/app/models/payment"
	"confreg/app/repositories"
	"confreg/pkg/gateway"
)

func newTestDiscountService(t *testing.T, db *gorm.DB, baseURL string) *DiscountService {
	t.Helper()

	discounts := repositories.NewDiscountRepositoryWithDB(db)
	pricings := repositories.NewPricingRepositoryWithDB(db)
	validator := NewPricingValidatorWithCurrency(pricings, "eur")

	client := gateway.NewClient(gateway.Config{
		BaseURL: baseURL,
		APIKey:  "sk_test",
	})
	return NewDiscountServiceWithOptions(client, discounts, validator,
		"https://conf.example.com/success", "https://conf.example.com/cancel", 30*time.Minute)
}

func TestDiscountCreate(t *testing.T) {
	t.Run("按个案金额落 PENDING 记录", func(t *testing.T) {
		db := newTestDB(t)

		now := time.Now().Unix()
		server, calls := newGatewayStub(t, http.StatusOK, map[string]interface{}{
			"id":             "cs_disc_1",
			"url":            "https://gateway.example.com/pay/cs_disc_1",
			"payment_status": "unpaid",
			"created":        now,
			"expires_at":     now + 1800,
		})
		service := newTestDiscountService(t, db, server.URL)

		resp, err := service.Create(testCtx(), &DiscountRequest{
			Name:          "Ada Lovelace",
			Phone:         "+3312345678",
			Institute:     "Analytical Engine Lab",
			Country:       "FR",
			CustomerEmail: "ada@example.com",
			UnitAmount:    2500,
		})
		require.NoError(t, err)
		require.Equal(t, 1, *calls)
		require.Equal(t, "cs_disc_1", resp.SessionID)
		require.Equal(t, string(payment.StatusPending), resp.Status)
		require.EqualValues(t, 2500, resp.AmountTotal)

		record := &discount.DiscountRecord{}
		require.NoError(t, db.Where("session_id = ?", "cs_disc_1").First(record).Error)
		require.Equal(t, "25.00", record.AmountTotal.StringFixed(2))
		require.Equal(t, "Ada Lovelace", record.Name)
		require.Equal(t, string(payment.StatusPending), record.Status)
		require.NotNil(t, record.GatewayExpiresAt)
	})

	t.Run("金额非正数拒绝且不触网关", func(t *testing.T) {
		db := newTestDB(t)
		server, calls := newGatewayStub(t, http.StatusOK, nil)
		service := newTestDiscountService(t, db, server.URL)

		_, err := service.Create(testCtx(), &DiscountRequest{
			Name:          "Ada Lovelace",
			CustomerEmail: "ada@example.com",
			UnitAmount:    0,
		})
		require.ErrorIs(t, err, ErrAmountRequired)
		require.Equal(t, 0, *calls)
	})

	t.Run("非结算货币拒绝", func(t *testing.T) {
		db := newTestDB(t)
		server, calls := newGatewayStub(t, http.StatusOK, nil)
		service := newTestDiscountService(t, db, server.URL)

		_, err := service.Create(testCtx(), &DiscountRequest{
			Name:          "Ada Lovelace",
			CustomerEmail: "ada@example.com",
			UnitAmount:    2500,
			Currency:      "usd",
		})
		require.ErrorIs(t, err, ErrUnsupportedCurrency)
		require.Equal(t, 0, *calls)
	})

	t.Run("网关失败不留半条记录", func(t *testing.T) {
		db := newTestDB(t)
		server, _ := newGatewayStub(t, http.StatusInternalServerError, nil)
		service := newTestDiscountService(t, db, server.URL)

		_, err := service.Create(testCtx(), &DiscountRequest{
			Name:          "Ada Lovelace",
			CustomerEmail: "ada@example.com",
			UnitAmount:    2500,
		})

		var apiErr *gateway.APIError
		require.ErrorAs(t, err, &apiErr)

		var count int64
		require.NoError(t, db.Model(&discount.DiscountRecord{}).Count(&count).Error)
		require.EqualValues(t, 0, count)
	})
}

func TestDiscountReconciliation(t *testing.T) {
	amount := int64(2500)

	t.Run("会话完成事件归位到优惠记录", func(t *testing.T) {
		db := newTestDB(t)
		reconciler, _ := newTestReconciler(t, db)
		seedDiscount(t, db, "cs_disc_1", "ada@example.com", "25.00")

		err := reconciler.HandleSessionCompleted(testCtx(), &gateway.CheckoutSession{
			ID:            "cs_disc_1",
			PaymentStatus: "paid",
			ChargeID:      "ch_disc_1",
			AmountTotal:   &amount,
			Currency:      "eur",
		})
		require.NoError(t, err)

		record := &discount.DiscountRecord{}
		require.NoError(t, db.Where("session_id = ?", "cs_disc_1").First(record).Error)
		require.Equal(t, string(payment.StatusCompleted), record.Status)
		require.Equal(t, "paid", record.PaymentStatus)
		require.NotNil(t, record.ChargeID)
		require.Equal(t, "ch_disc_1", *record.ChargeID)

		// 不合成支付记录
		var count int64
		require.NoError(t, db.Model(&payment.PaymentRecord{}).Count(&count).Error)
		require.EqualValues(t, 0, count)
	})

	t.Run("重复投递幂等", func(t *testing.T) {
		db := newTestDB(t)
		reconciler, _ := newTestReconciler(t, db)
		seedDiscount(t, db, "cs_disc_1", "ada@example.com", "25.00")

		session := &gateway.CheckoutSession{ID: "cs_disc_1", PaymentStatus: "paid", AmountTotal: &amount}
		require.NoError(t, reconciler.HandleSessionCompleted(testCtx(), session))
		require.NoError(t, reconciler.HandleSessionCompleted(testCtx(), session))

		record := &discount.DiscountRecord{}
		require.NoError(t, db.Where("session_id = ?", "cs_disc_1").First(record).Error)
		require.Equal(t, string(payment.StatusCompleted), record.Status)
	})

	t.Run("过期事件只动 PENDING 记录", func(t *testing.T) {
		db := newTestDB(t)
		reconciler, _ := newTestReconciler(t, db)
		seedDiscount(t, db, "cs_disc_1", "ada@example.com", "25.00")

		require.NoError(t, reconciler.HandleSessionExpired(testCtx(), &gateway.CheckoutSession{ID: "cs_disc_1"}))

		record := &discount.DiscountRecord{}
		require.NoError(t, db.Where("session_id = ?", "cs_disc_1").First(record).Error)
		require.Equal(t, string(payment.StatusExpired), record.Status)

		// 已过期后再收完成事件，终态不回退
		require.NoError(t, reconciler.HandleSessionCompleted(testCtx(), &gateway.CheckoutSession{
			ID: "cs_disc_1", PaymentStatus: "paid", AmountTotal: &amount,
		}))
		require.NoError(t, db.Where("session_id = ?", "cs_disc_1").First(record).Error)
		require.Equal(t, string(payment.StatusExpired), record.Status)
	})

	t.Run("支付记录优先于优惠记录", func(t *testing.T) {
		db := newTestDB(t)
		reconciler, _ := newTestReconciler(t, db)
		seedPending(t, db, "cs_shared", "ada@example.com", "45.00")
		seedDiscount(t, db, "cs_other", "ada@example.com", "25.00")

		require.NoError(t, reconciler.HandleSessionCompleted(testCtx(), &gateway.CheckoutSession{
			ID: "cs_shared", PaymentStatus: "paid",
		}))

		got := &payment.PaymentRecord{}
		require.NoError(t, db.Where("session_id = ?", "cs_shared").First(got).Error)
		require.Equal(t, string(payment.StatusCompleted), got.Status)

		untouched := &discount.DiscountRecord{}
		require.NoError(t, db.Where("session_id = ?", "cs_other").First(untouched).Error)
		require.Equal(t, string(payment.StatusPending), untouched.Status)
	})
}
