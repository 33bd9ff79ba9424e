package payment

import (
	"testing"

	"github.com/stretchr/testify/require"

	"confreg/app/models/payment"
	"confreg/pkg/gateway"
)

func int64Ptr(n int64) *int64 { return &n }

func TestHandleSessionCompleted(t *testing.T) {
	t.Run("精确匹配并置为完成", func(t *testing.T) {
		db := newTestDB(t)
		reconciler, payments := newTestReconciler(t, db)
		seedPending(t, db, "cs_1", "ada@example.com", "45.00")

		session := &gateway.CheckoutSession{
			ID:            "cs_1",
			PaymentStatus: "paid",
			ChargeID:      "ch_1",
			AmountTotal:   int64Ptr(4500),
			Currency:      "eur",
		}
		require.NoError(t, reconciler.HandleSessionCompleted(testCtx(), session))

		record, err := payments.GetBySessionID(testCtx(), "cs_1")
		require.NoError(t, err)
		require.Equal(t, string(payment.StatusCompleted), record.Status)
		require.Equal(t, "paid", record.PaymentStatus)
		require.NotNil(t, record.ChargeID)
		require.Equal(t, "ch_1", *record.ChargeID)
		require.Equal(t, "45.00", record.AmountTotal.StringFixed(2))
	})

	t.Run("重复投递幂等", func(t *testing.T) {
		db := newTestDB(t)
		reconciler, payments := newTestReconciler(t, db)
		seedPending(t, db, "cs_1", "ada@example.com", "45.00")

		session := &gateway.CheckoutSession{
			ID:            "cs_1",
			PaymentStatus: "paid",
			ChargeID:      "ch_1",
			AmountTotal:   int64Ptr(4500),
		}
		require.NoError(t, reconciler.HandleSessionCompleted(testCtx(), session))

		first, err := payments.GetBySessionID(testCtx(), "cs_1")
		require.NoError(t, err)

		require.NoError(t, reconciler.HandleSessionCompleted(testCtx(), session))

		second, err := payments.GetBySessionID(testCtx(), "cs_1")
		require.NoError(t, err)
		require.Equal(t, first.Status, second.Status)
		require.Equal(t, *first.ChargeID, *second.ChargeID)
		require.True(t, first.AmountTotal.Equal(second.AmountTotal))

		var count int64
		require.NoError(t, db.Model(&payment.PaymentRecord{}).Count(&count).Error)
		require.EqualValues(t, 1, count)
	})

	t.Run("已有金额不被事件覆盖", func(t *testing.T) {
		db := newTestDB(t)
		reconciler, payments := newTestReconciler(t, db)
		seedPending(t, db, "cs_1", "ada@example.com", "45.00")

		session := &gateway.CheckoutSession{
			ID:          "cs_1",
			AmountTotal: int64Ptr(5000), // 网关侧金额异常，本地已有值以创建时为准
		}
		require.NoError(t, reconciler.HandleSessionCompleted(testCtx(), session))

		record, err := payments.GetBySessionID(testCtx(), "cs_1")
		require.NoError(t, err)
		require.Equal(t, "45.00", record.AmountTotal.StringFixed(2))
		require.Equal(t, "paid", record.PaymentStatus) // 事件缺省状态按 paid 处理
	})

	t.Run("无本地记录合成兜底记录", func(t *testing.T) {
		db := newTestDB(t)
		reconciler, payments := newTestReconciler(t, db)

		session := &gateway.CheckoutSession{
			ID:            "cs_orphan",
			PaymentStatus: "paid",
			ChargeID:      "ch_9",
			AmountTotal:   int64Ptr(3000),
			Currency:      "eur",
			CustomerEmail: "grace@example.com",
			Metadata:      map[string]string{"customer_name": "Grace"},
		}
		require.NoError(t, reconciler.HandleSessionCompleted(testCtx(), session))

		record, err := payments.GetBySessionID(testCtx(), "cs_orphan")
		require.NoError(t, err)
		require.Equal(t, string(payment.StatusCompleted), record.Status)
		require.Equal(t, "30.00", record.AmountTotal.StringFixed(2))
		require.Equal(t, "Grace", record.CustomerName)
	})
}

func TestHandleChargeSucceeded(t *testing.T) {
	t.Run("按扣款号精确匹配", func(t *testing.T) {
		db := newTestDB(t)
		reconciler, payments := newTestReconciler(t, db)
		record := seedPending(t, db, "cs_1", "ada@example.com", "45.00")
		chargeID := "ch_1"
		record.ChargeID = &chargeID
		require.NoError(t, db.Save(record).Error)

		charge := &gateway.Charge{ID: "ch_1", Amount: int64Ptr(4500), Status: "succeeded"}
		require.NoError(t, reconciler.HandleChargeSucceeded(testCtx(), charge))

		got, err := payments.GetByChargeID(testCtx(), "ch_1")
		require.NoError(t, err)
		require.Equal(t, string(payment.StatusCompleted), got.Status)
	})

	t.Run("启发式选中金额相等的记录", func(t *testing.T) {
		db := newTestDB(t)
		reconciler, payments := newTestReconciler(t, db)
		match := seedPending(t, db, "cs_45", "ada@example.com", "45.00")
		other := seedPending(t, db, "cs_30", "bob@example.com", "30.00")

		charge := &gateway.Charge{ID: "ch_1", Amount: int64Ptr(4500), Status: "succeeded"}
		require.NoError(t, reconciler.HandleChargeSucceeded(testCtx(), charge))

		got, err := payments.GetBySessionID(testCtx(), match.SessionID)
		require.NoError(t, err)
		require.Equal(t, string(payment.StatusCompleted), got.Status)
		require.NotNil(t, got.ChargeID)
		require.Equal(t, "ch_1", *got.ChargeID)

		untouched, err := payments.GetBySessionID(testCtx(), other.SessionID)
		require.NoError(t, err)
		require.Equal(t, string(payment.StatusPending), untouched.Status)
	})

	t.Run("无金额匹配时取最近的待支付记录", func(t *testing.T) {
		db := newTestDB(t)
		reconciler, payments := newTestReconciler(t, db)
		seedPending(t, db, "cs_old", "ada@example.com", "30.00")
		latest := seedPending(t, db, "cs_new", "bob@example.com", "60.00")

		charge := &gateway.Charge{ID: "ch_1", Amount: int64Ptr(9900), Status: "succeeded"}
		require.NoError(t, reconciler.HandleChargeSucceeded(testCtx(), charge))

		got, err := payments.GetBySessionID(testCtx(), latest.SessionID)
		require.NoError(t, err)
		require.Equal(t, string(payment.StatusCompleted), got.Status)
	})

	t.Run("重复投递幂等", func(t *testing.T) {
		db := newTestDB(t)
		reconciler, payments := newTestReconciler(t, db)
		seedPending(t, db, "cs_1", "ada@example.com", "45.00")

		charge := &gateway.Charge{ID: "ch_1", Amount: int64Ptr(4500), Status: "succeeded"}
		require.NoError(t, reconciler.HandleChargeSucceeded(testCtx(), charge))
		require.NoError(t, reconciler.HandleChargeSucceeded(testCtx(), charge))

		got, err := payments.GetByChargeID(testCtx(), "ch_1")
		require.NoError(t, err)
		require.Equal(t, string(payment.StatusCompleted), got.Status)

		var count int64
		require.NoError(t, db.Model(&payment.PaymentRecord{}).Count(&count).Error)
		require.EqualValues(t, 1, count)
	})

	t.Run("无任何待支付记录时合成兜底记录", func(t *testing.T) {
		db := newTestDB(t)
		reconciler, payments := newTestReconciler(t, db)

		charge := &gateway.Charge{ID: "ch_lone", Amount: int64Ptr(4500), Currency: "eur", Status: "succeeded"}
		require.NoError(t, reconciler.HandleChargeSucceeded(testCtx(), charge))

		got, err := payments.GetByChargeID(testCtx(), "ch_lone")
		require.NoError(t, err)
		require.Equal(t, string(payment.StatusCompleted), got.Status)
		require.Equal(t, "45.00", got.AmountTotal.StringFixed(2))
	})
}

func TestHandleChargeFailed(t *testing.T) {
	t.Run("已知扣款置为失败并记录原因", func(t *testing.T) {
		db := newTestDB(t)
		reconciler, payments := newTestReconciler(t, db)
		record := seedPending(t, db, "cs_1", "ada@example.com", "45.00")
		chargeID := "ch_1"
		record.ChargeID = &chargeID
		require.NoError(t, db.Save(record).Error)

		charge := &gateway.Charge{ID: "ch_1", Status: "failed", FailureMessage: "card declined"}
		require.NoError(t, reconciler.HandleChargeFailed(testCtx(), charge))

		got, err := payments.GetByChargeID(testCtx(), "ch_1")
		require.NoError(t, err)
		require.Equal(t, string(payment.StatusFailed), got.Status)
		require.Equal(t, "card declined", got.FailureReason)
	})

	t.Run("未知扣款丢弃不合成记录", func(tt *testing.T) {
		db := newTestDB(tt)
		reconciler, _ := newTestReconciler(tt, db)

		charge := &gateway.Charge{ID: "ch_unknown", FailureMessage: "card declined"}
		require.NoError(tt, reconciler.HandleChargeFailed(testCtx(), charge))

		var count int64
		require.NoError(tt, db.Model(&payment.PaymentRecord{}).Count(&count).Error)
		require.EqualValues(tt, 0, count)
	})

	t.Run("已完成记录不被失败事件回退", func(t *testing.T) {
		db := newTestDB(t)
		reconciler, payments := newTestReconciler(t, db)
		seedPending(t, db, "cs_1", "ada@example.com", "45.00")

		charge := &gateway.Charge{ID: "ch_1", Amount: int64Ptr(4500), Status: "succeeded"}
		require.NoError(t, reconciler.HandleChargeSucceeded(testCtx(), charge))

		failed := &gateway.Charge{ID: "ch_1", Status: "failed", FailureMessage: "late failure"}
		require.NoError(t, reconciler.HandleChargeFailed(testCtx(), failed))

		got, err := payments.GetByChargeID(testCtx(), "ch_1")
		require.NoError(t, err)
		require.Equal(t, string(payment.StatusCompleted), got.Status)
		require.Empty(t, got.FailureReason)
	})
}

func TestHandleSessionExpired(t *testing.T) {
	t.Run("待支付记录过期", func(t *testing.T) {
		db := newTestDB(t)
		reconciler, payments := newTestReconciler(t, db)
		seedPending(t, db, "cs_1", "ada@example.com", "45.00")

		require.NoError(t, reconciler.HandleSessionExpired(testCtx(), &gateway.CheckoutSession{ID: "cs_1"}))

		got, err := payments.GetBySessionID(testCtx(), "cs_1")
		require.NoError(t, err)
		require.Equal(t, string(payment.StatusExpired), got.Status)
	})

	t.Run("已完成记录不回退", func(t *testing.T) {
		db := newTestDB(t)
		reconciler, payments := newTestReconciler(t, db)
		seedPending(t, db, "cs_1", "ada@example.com", "45.00")

		session := &gateway.CheckoutSession{ID: "cs_1", PaymentStatus: "paid", ChargeID: "ch_1"}
		require.NoError(t, reconciler.HandleSessionCompleted(testCtx(), session))
		require.NoError(t, reconciler.HandleSessionExpired(testCtx(), &gateway.CheckoutSession{ID: "cs_1"}))

		got, err := payments.GetBySessionID(testCtx(), "cs_1")
		require.NoError(t, err)
		require.Equal(t, string(payment.StatusCompleted), got.Status)
	})

	t.Run("无本地记录丢弃", func(t *testing.T) {
		db := newTestDB(t)
		reconciler, _ := newTestReconciler(t, db)

		require.NoError(t, reconciler.HandleSessionExpired(testCtx(), &gateway.CheckoutSession{ID: "cs_none"}))

		var count int64
		require.NoError(t, db.Model(&payment.PaymentRecord{}).Count(&count).Error)
		require.EqualValues(t, 0, count)
	})
}
