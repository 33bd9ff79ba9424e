package payment

import (
	"context"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"confreg/app/models/payment"
	"confreg/app/repositories"
	"confreg/pkg/logger"
	"confreg/pkg/money"
)

// RecordStats 支付记录统计
type RecordStats struct {
	Pending        int64           `json:"pending"`
	Completed      int64           `json:"completed"`
	Failed         int64           `json:"failed"`
	Cancelled      int64           `json:"cancelled"`
	Expired        int64           `json:"expired"`
	CompletedTotal decimal.Decimal `json:"completed_total"`
}

// MismatchEntry 金额与定价不一致的记录，供人工复核
type MismatchEntry struct {
	RecordID  uint64          `json:"record_id"`
	SessionID string          `json:"session_id"`
	Status    string          `json:"status"`
	Expected  decimal.Decimal `json:"expected"`
	Received  decimal.Decimal `json:"received"`
}

// RecordService 支付记录的运营侧查询
//
// 启发式匹配是尽力而为的修复路径，这里的对账报表是它的兜底：
// 把金额不一致的记录暴露出来人工复核，而不是追求完美推断。
type RecordService struct {
	payments *repositories.PaymentRepository
	pricings *repositories.PricingRepository
}

// NewRecordService 创建查询服务
func NewRecordService(payments *repositories.PaymentRepository, pricings *repositories.PricingRepository) *RecordService {
	return &RecordService{
		payments: payments,
		pricings: pricings,
	}
}

// Stats 按状态统计记录数与完成总额
func (s *RecordService) Stats(ctx context.Context) (*RecordStats, error) {
	stats := &RecordStats{}

	counts := []struct {
		status payment.Status
		dest   *int64
	}{
		{payment.StatusPending, &stats.Pending},
		{payment.StatusCompleted, &stats.Completed},
		{payment.StatusFailed, &stats.Failed},
		{payment.StatusCancelled, &stats.Cancelled},
		{payment.StatusExpired, &stats.Expired},
	}
	for _, c := range counts {
		count, err := s.payments.CountByStatus(ctx, c.status)
		if err != nil {
			return nil, err
		}
		*c.dest = count
	}

	total, err := s.payments.SumCompletedAmount(ctx)
	if err != nil {
		return nil, err
	}
	stats.CompletedTotal = total
	return stats, nil
}

// ListByStatus 按状态分页列出记录
func (s *RecordService) ListByStatus(ctx context.Context, status payment.Status, limit, offset int) ([]payment.PaymentRecord, error) {
	return s.payments.ListByStatus(ctx, status, limit, offset)
}

// ListByEmail 按客户邮箱列出记录，最新在前
func (s *RecordService) ListByEmail(ctx context.Context, email string) ([]payment.PaymentRecord, error) {
	return s.payments.ListByEmail(ctx, email)
}

// GetBySessionID 按会话 ID 查单条记录
func (s *RecordService) GetBySessionID(ctx context.Context, sessionID string) (*payment.PaymentRecord, error) {
	return s.payments.GetBySessionID(ctx, sessionID)
}

// MismatchReport 金额复核报表
//
// 逐条对照已完成记录的金额与其定价配置的权威总价。
func (s *RecordService) MismatchReport(ctx context.Context) ([]MismatchEntry, error) {
	records, err := s.payments.ListByStatus(ctx, payment.StatusCompleted, 0, 0)
	if err != nil {
		return nil, err
	}

	entries := []MismatchEntry{}
	for _, record := range records {
		if record.PricingConfigID == nil {
			continue
		}
		cfg, err := s.pricings.GetByID(ctx, *record.PricingConfigID)
		if err != nil {
			logger.WarnString("对账", "复核报表", "会话 "+record.SessionID+" 定价配置加载失败: "+err.Error())
			continue
		}
		if !money.Equal(cfg.TotalPrice, record.AmountTotal) {
			entries = append(entries, MismatchEntry{
				RecordID:  record.ID,
				SessionID: record.SessionID,
				Status:    record.Status,
				Expected:  cfg.TotalPrice,
				Received:  record.AmountTotal,
			})
		}
	}
	return entries, nil
}

// SweepOverdue 把网关过期时刻已过仍 PENDING 的记录批量置为 EXPIRED
//
// 过期正常由 session_expired 事件反应式处理，这只是兜底的清扫任务。
func (s *RecordService) SweepOverdue(ctx context.Context) (int64, error) {
	affected, err := s.payments.MarkExpiredOverdue(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	if affected > 0 {
		logger.InfoString("对账", "过期清扫", "本轮清扫标记 EXPIRED 记录数: "+strconv.FormatInt(affected, 10))
	}
	return affected, nil
}
