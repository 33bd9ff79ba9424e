package repositories

import (
	"context"

	"gorm.io/gorm"

	"confreg/app/models/pricing"
	"confreg/pkg/database"
)

// PricingRepository 定价配置仓库
type PricingRepository struct {
	db *gorm.DB
}

// NewPricingRepository 创建仓库实例
func NewPricingRepository() *PricingRepository {
	return &PricingRepository{
		db: database.DB,
	}
}

// NewPricingRepositoryWithDB 基于指定连接创建仓库实例，测试使用
func NewPricingRepositoryWithDB(db *gorm.DB) *PricingRepository {
	return &PricingRepository{db: db}
}

// Create 创建定价配置
func (r *PricingRepository) Create(ctx context.Context, config *pricing.PricingConfig) error {
	return r.db.WithContext(ctx).Create(config).Error
}

// GetByID 根据 ID 获取定价配置
func (r *PricingRepository) GetByID(ctx context.Context, id uint64) (*pricing.PricingConfig, error) {
	var config pricing.PricingConfig
	err := r.db.WithContext(ctx).First(&config, id).Error
	if err != nil {
		return nil, err
	}
	return &config, nil
}

// List 列出所有定价配置
func (r *PricingRepository) List(ctx context.Context) ([]pricing.PricingConfig, error) {
	var configs []pricing.PricingConfig
	err := r.db.WithContext(ctx).Order("id ASC").Find(&configs).Error
	return configs, err
}
