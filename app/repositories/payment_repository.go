package repositories

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"confreg/app/models/payment"
	"confreg/pkg/database"
)

// PaymentRepository 支付记录仓库
type PaymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository 创建仓库实例
func NewPaymentRepository() *PaymentRepository {
	return &PaymentRepository{
		db: database.DB,
	}
}

// NewPaymentRepositoryWithDB 基于指定连接创建仓库实例，测试使用
func NewPaymentRepositoryWithDB(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create 创建支付记录
func (r *PaymentRepository) Create(ctx context.Context, record *payment.PaymentRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// Save 保存支付记录
func (r *PaymentRepository) Save(ctx context.Context, record *payment.PaymentRecord) error {
	return r.db.WithContext(ctx).Save(record).Error
}

// GetByID 根据主键获取支付记录
func (r *PaymentRepository) GetByID(ctx context.Context, id uint64) (*payment.PaymentRecord, error) {
	var record payment.PaymentRecord
	err := r.db.WithContext(ctx).First(&record, id).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// GetBySessionID 根据会话 ID 获取支付记录
func (r *PaymentRepository) GetBySessionID(ctx context.Context, sessionID string) (*payment.PaymentRecord, error) {
	var record payment.PaymentRecord
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// GetByChargeID 根据扣款 ID 获取支付记录
func (r *PaymentRepository) GetByChargeID(ctx context.Context, chargeID string) (*payment.PaymentRecord, error) {
	var record payment.PaymentRecord
	err := r.db.WithContext(ctx).Where("charge_id = ?", chargeID).First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// GetLatestByEmail 获取某邮箱最近一条支付记录
func (r *PaymentRepository) GetLatestByEmail(ctx context.Context, email string) (*payment.PaymentRecord, error) {
	var record payment.PaymentRecord
	err := r.db.WithContext(ctx).
		Where("customer_email = ?", email).
		Order("id DESC").
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ListPendingDesc 按创建顺序倒序列出所有待支付记录
func (r *PaymentRepository) ListPendingDesc(ctx context.Context) ([]payment.PaymentRecord, error) {
	var records []payment.PaymentRecord
	err := r.db.WithContext(ctx).
		Where("status = ?", string(payment.StatusPending)).
		Order("id DESC").
		Find(&records).Error
	return records, err
}

// ListByEmail 按客户邮箱列出支付记录
func (r *PaymentRepository) ListByEmail(ctx context.Context, email string) ([]payment.PaymentRecord, error) {
	var records []payment.PaymentRecord
	err := r.db.WithContext(ctx).
		Where("customer_email = ?", email).
		Order("id DESC").
		Find(&records).Error
	return records, err
}

// ListByStatus 按状态列出支付记录
func (r *PaymentRepository) ListByStatus(ctx context.Context, status payment.Status, limit, offset int) ([]payment.PaymentRecord, error) {
	var records []payment.PaymentRecord
	query := r.db.WithContext(ctx).Where("status = ?", string(status)).Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit).Offset(offset)
	}
	err := query.Find(&records).Error
	return records, err
}

// MutateBySessionID 在事务内按会话 ID 加载并修改支付记录
//
// 回调返回的记录会在同一事务内保存；回调返回 nil 表示无需写回。
// Postgres 下对行加 FOR UPDATE 锁，串行化并发到达的 webhook。
func (r *PaymentRepository) MutateBySessionID(ctx context.Context, sessionID string, fn func(tx *gorm.DB, record *payment.PaymentRecord) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record payment.PaymentRecord
		query := tx.Where("session_id = ?", sessionID)
		if r.supportsRowLock() {
			query = query.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := query.First(&record).Error; err != nil {
			return err
		}
		if err := fn(tx, &record); err != nil {
			return err
		}
		return tx.Save(&record).Error
	})
}

// MutateByChargeID 在事务内按扣款 ID 加载并修改支付记录
func (r *PaymentRepository) MutateByChargeID(ctx context.Context, chargeID string, fn func(tx *gorm.DB, record *payment.PaymentRecord) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record payment.PaymentRecord
		query := tx.Where("charge_id = ?", chargeID)
		if r.supportsRowLock() {
			query = query.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		if err := query.First(&record).Error; err != nil {
			return err
		}
		if err := fn(tx, &record); err != nil {
			return err
		}
		return tx.Save(&record).Error
	})
}

// MarkExpiredOverdue 批量将超过网关过期时间仍 PENDING 的记录置为 EXPIRED
func (r *PaymentRepository) MarkExpiredOverdue(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&payment.PaymentRecord{}).
		Where("status = ?", string(payment.StatusPending)).
		Where("gateway_expires_at IS NOT NULL AND gateway_expires_at < ?", now).
		Update("status", string(payment.StatusExpired))
	return result.RowsAffected, result.Error
}

// CountByStatus 按状态统计支付记录数量
func (r *PaymentRepository) CountByStatus(ctx context.Context, status payment.Status) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&payment.PaymentRecord{}).
		Where("status = ?", string(status)).
		Count(&count).Error
	return count, err
}

// SumCompletedAmount 统计已完成支付的总金额
func (r *PaymentRepository) SumCompletedAmount(ctx context.Context) (decimal.Decimal, error) {
	var raw decimal.NullDecimal
	err := r.db.WithContext(ctx).Model(&payment.PaymentRecord{}).
		Where("status = ?", string(payment.StatusCompleted)).
		Select("COALESCE(SUM(amount_total), 0)").
		Scan(&raw).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !raw.Valid {
		return decimal.Zero, nil
	}
	return raw.Decimal, nil
}

// supportsRowLock 仅 Postgres 支持 FOR UPDATE 行锁
func (r *PaymentRepository) supportsRowLock() bool {
	return r.db.Dialector.Name() == "postgres"
}
