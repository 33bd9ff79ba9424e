package payment

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"confreg/app/models/payment"
	"confreg/pkg/gateway"
)

const testWebhookSecret = "whsec_dispatcher_test"

type memoryArchiver struct {
	entries []string
}

func (a *memoryArchiver) Store(ctx context.Context, eventID string, payload []byte) {
	a.entries = append(a.entries, eventID)
}

func newTestDispatcher(t *testing.T, db *gorm.DB) (*Dispatcher, *memoryArchiver) {
	t.Helper()

	reconciler, _ := newTestReconciler(t, db)
	client := gateway.NewClient(gateway.Config{
		BaseURL:       "http://gateway.invalid",
		APIKey:        "sk_test",
		WebhookSecret: testWebhookSecret,
		Tolerance:     5 * time.Minute,
	})
	archiver := &memoryArchiver{}
	return NewDispatcher(client, reconciler, archiver), archiver
}

func signedHeader(payload []byte) string {
	return gateway.SignatureFor(payload, testWebhookSecret, time.Now().Unix())
}

func sessionCompletedPayload(sessionID, chargeID string, amount int64) []byte {
	return []byte(fmt.Sprintf(`{
		"id": "evt_%s",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": %q,
			"payment_status": "paid",
			"charge_id": %q,
			"amount_total": %d,
			"currency": "eur"
		}}
	}`, sessionID, sessionID, chargeID, amount))
}

func TestDispatcherSignatureGate(t *testing.T) {
	db := newTestDB(t)
	dispatcher, archiver := newTestDispatcher(t, db)
	seedPending(t, db, "cs_1", "ada@example.com", "45.00")

	payload := sessionCompletedPayload("cs_1", "ch_1", 4500)

	t.Run("签名无效拒绝且不动任何记录", func(t *testing.T) {
		tampered := append([]byte(nil), payload...)
		tampered[len(tampered)-2] = ' '

		err := dispatcher.Dispatch(testCtx(), tampered, signedHeader(payload))
		require.ErrorIs(t, err, gateway.ErrSignatureInvalid)

		record := &payment.PaymentRecord{}
		require.NoError(t, db.Where("session_id = ?", "cs_1").First(record).Error)
		require.Equal(t, string(payment.StatusPending), record.Status)
		require.Empty(t, archiver.entries)
	})

	t.Run("签名有效正常分发", func(t *testing.T) {
		err := dispatcher.Dispatch(testCtx(), payload, signedHeader(payload))
		require.NoError(t, err)

		record := &payment.PaymentRecord{}
		require.NoError(t, db.Where("session_id = ?", "cs_1").First(record).Error)
		require.Equal(t, string(payment.StatusCompleted), record.Status)
		require.Equal(t, []string{"evt_cs_1"}, archiver.entries)
	})
}

func TestDispatcherUnrecognizedKind(t *testing.T) {
	db := newTestDB(t)
	dispatcher, _ := newTestDispatcher(t, db)

	payload := []byte(`{"id": "evt_x", "type": "customer.created", "data": {"object": {}}}`)
	require.NoError(t, dispatcher.Dispatch(testCtx(), payload, signedHeader(payload)))

	snapshot := dispatcher.Metrics().Snapshot()
	require.EqualValues(t, 1, snapshot["unrecognized"])
	require.EqualValues(t, 1, snapshot["received"])
}

func TestDispatcherMalformedPayloadStillAcknowledged(t *testing.T) {
	db := newTestDB(t)
	dispatcher, archiver := newTestDispatcher(t, db)

	payload := []byte(`{"id": "evt_bad"`)
	require.NoError(t, dispatcher.Dispatch(testCtx(), payload, signedHeader(payload)))

	snapshot := dispatcher.Metrics().Snapshot()
	require.EqualValues(t, 1, snapshot["parse_failed"])

	// 坏报文同样要归档留痕，归档键退化为内容摘要
	require.Len(t, archiver.entries, 1)
	require.Regexp(t, `^raw_[0-9a-f]{16}$`, archiver.entries[0])
}

func TestDispatcherArchivesUnparseableEvents(t *testing.T) {
	db := newTestDB(t)
	dispatcher, archiver := newTestDispatcher(t, db)

	// 合法 JSON 但缺事件类型，解析失败，归档键仍取报文自带 ID
	payload := []byte(`{"id": "evt_typeless", "data": {"object": {}}}`)
	require.NoError(t, dispatcher.Dispatch(testCtx(), payload, signedHeader(payload)))

	require.Equal(t, []string{"evt_typeless"}, archiver.entries)
	require.EqualValues(t, 1, dispatcher.Metrics().Snapshot()["parse_failed"])
}

// 完整场景：创建 → 完成 → 重复投递 → 乱序失败事件
func TestDispatcherEndToEndScenario(t *testing.T) {
	db := newTestDB(t)
	dispatcher, _ := newTestDispatcher(t, db)
	cfg := seedPricing(t, db, "45.00", 0)
	record := seedPending(t, db, "cs_1", "ada@example.com", "45.00")
	record.PricingConfigID = &cfg.ID
	require.NoError(t, db.Save(record).Error)

	completed := sessionCompletedPayload("cs_1", "ch_1", 4500)
	require.NoError(t, dispatcher.Dispatch(testCtx(), completed, signedHeader(completed)))
	require.NoError(t, dispatcher.Dispatch(testCtx(), completed, signedHeader(completed)))

	failed := []byte(`{
		"id": "evt_fail",
		"type": "charge.failed",
		"data": {"object": {"id": "ch_1", "failure_message": "late failure"}}
	}`)
	require.NoError(t, dispatcher.Dispatch(testCtx(), failed, signedHeader(failed)))

	got := &payment.PaymentRecord{}
	require.NoError(t, db.Where("session_id = ?", "cs_1").First(got).Error)
	require.Equal(t, string(payment.StatusCompleted), got.Status)
	require.NotNil(t, got.ChargeID)
	require.Equal(t, "ch_1", *got.ChargeID)

	var count int64
	require.NoError(t, db.Model(&payment.PaymentRecord{}).Count(&count).Error)
	require.EqualValues(t, 1, count)

	snapshot := dispatcher.Metrics().Snapshot()
	require.EqualValues(t, 2, snapshot["session_completed"])
	require.EqualValues(t, 1, snapshot["charge_failed"])
}
