package payment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"confreg/app/models/payment"
	"confreg/app/repositories"
)

func newTestRecords(t *testing.T) (*RecordService, *testEnv) {
	t.Helper()

	db := newTestDB(t)
	payments := repositories.NewPaymentRepositoryWithDB(db)
	pricings := repositories.NewPricingRepositoryWithDB(db)
	return NewRecordService(payments, pricings), &testEnv{db: db, payments: payments}
}

type testEnv struct {
	db       *gorm.DB
	payments *repositories.PaymentRepository
}

func TestRecordStats(t *testing.T) {
	service, env := newTestRecords(t)

	seedPending(t, env.db, "cs_1", "a@example.com", "45.00")
	seedPending(t, env.db, "cs_2", "b@example.com", "30.00")

	completed := seedPending(t, env.db, "cs_3", "c@example.com", "45.00")
	completed.Status = string(payment.StatusCompleted)
	require.NoError(t, env.db.Save(completed).Error)

	failed := seedPending(t, env.db, "cs_4", "d@example.com", "45.00")
	failed.Status = string(payment.StatusFailed)
	require.NoError(t, env.db.Save(failed).Error)

	stats, err := service.Stats(testCtx())
	require.NoError(t, err)
	require.EqualValues(t, 2, stats.Pending)
	require.EqualValues(t, 1, stats.Completed)
	require.EqualValues(t, 1, stats.Failed)
	require.EqualValues(t, 0, stats.Expired)
	require.Equal(t, "45.00", stats.CompletedTotal.StringFixed(2))
}

func TestMismatchReport(t *testing.T) {
	service, env := newTestRecords(t)
	cfg := seedPricing(t, env.db, "45.00", 0)

	// 金额一致的完成记录不进报表
	ok := seedPending(t, env.db, "cs_ok", "a@example.com", "45.00")
	ok.Status = string(payment.StatusCompleted)
	ok.PricingConfigID = &cfg.ID
	require.NoError(t, env.db.Save(ok).Error)

	// 金额偏离的完成记录进报表
	bad := seedPending(t, env.db, "cs_bad", "b@example.com", "50.00")
	bad.Status = string(payment.StatusCompleted)
	bad.PricingConfigID = &cfg.ID
	require.NoError(t, env.db.Save(bad).Error)

	entries, err := service.MismatchReport(testCtx())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "cs_bad", entries[0].SessionID)
	require.Equal(t, "45.00", entries[0].Expected.StringFixed(2))
	require.Equal(t, "50.00", entries[0].Received.StringFixed(2))
}

func TestSweepOverdue(t *testing.T) {
	service, env := newTestRecords(t)

	overdue := seedPending(t, env.db, "cs_overdue", "a@example.com", "45.00")
	past := time.Now().Add(-time.Hour)
	overdue.GatewayExpiresAt = &past
	require.NoError(t, env.db.Save(overdue).Error)

	fresh := seedPending(t, env.db, "cs_fresh", "b@example.com", "45.00")
	future := time.Now().Add(time.Hour)
	fresh.GatewayExpiresAt = &future
	require.NoError(t, env.db.Save(fresh).Error)

	// 无网关过期时刻的记录不参与清扫
	seedPending(t, env.db, "cs_unknown", "c@example.com", "45.00")

	affected, err := service.SweepOverdue(testCtx())
	require.NoError(t, err)
	require.EqualValues(t, 1, affected)

	got, err := env.payments.GetBySessionID(testCtx(), "cs_overdue")
	require.NoError(t, err)
	require.Equal(t, string(payment.StatusExpired), got.Status)

	got, err = env.payments.GetBySessionID(testCtx(), "cs_fresh")
	require.NoError(t, err)
	require.Equal(t, string(payment.StatusPending), got.Status)

	// 清扫幂等
	affected, err = service.SweepOverdue(testCtx())
	require.NoError(t, err)
	require.EqualValues(t, 0, affected)
}
