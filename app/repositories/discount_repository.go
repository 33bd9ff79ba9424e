package repositories

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"confreg/app/models/discount"
	"confreg/app/models/payment"
	"confreg/pkg/database"
)

// DiscountRepository 优惠支付记录仓库
type DiscountRepository struct {
	db *gorm.DB
}

// NewDiscountRepository 创建仓库实例
func NewDiscountRepository() *DiscountRepository {
	return &DiscountRepository{
		db: database.DB,
	}
}

// NewDiscountRepositoryWithDB 基于指定连接创建仓库实例，测试使用
func NewDiscountRepositoryWithDB(db *gorm.DB) *DiscountRepository {
	return &DiscountRepository{db: db}
}

// Create 创建优惠支付记录
func (r *DiscountRepository) Create(ctx context.Context, record *discount.DiscountRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// GetBySessionID 根据会话 ID 获取优惠支付记录
func (r *DiscountRepository) GetBySessionID(ctx context.Context, sessionID string) (*discount.DiscountRecord, error) {
	var record discount.DiscountRecord
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ListByStatus 按状态列出优惠支付记录
func (r *DiscountRepository) ListByStatus(ctx context.Context, status payment.Status, limit, offset int) ([]discount.DiscountRecord, error) {
	var records []discount.DiscountRecord
	query := r.db.WithContext(ctx).Where("status = ?", string(status)).Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit).Offset(offset)
	}
	err := query.Find(&records).Error
	return records, err
}

// MutateBySessionID 在事务内按会话 ID 加载并修改优惠支付记录
//
// 与支付记录仓库的同名方法同一套规则：Postgres 下加 FOR UPDATE 行锁。
func (r *DiscountRepository) MutateBySessionID(ctx context.Context, sessionID string, fn func(tx *gorm.DB, record *discount.DiscountRecord) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record discount.DiscountRecord
		query := tx.Where("session_id = ?", sessionID)
		if r.db.Dialector.Name() == "postgres" {
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
