package repositories

import (
	"context"

	"gorm.io/gorm"

	"confreg/app/models/registration"
	"confreg/pkg/database"
)

// RegistrationRepository 报名表单仓库
type RegistrationRepository struct {
	db *gorm.DB
}

// NewRegistrationRepository 创建仓库实例
func NewRegistrationRepository() *RegistrationRepository {
	return &RegistrationRepository{
		db: database.DB,
	}
}

// NewRegistrationRepositoryWithDB 基于指定连接创建仓库实例，测试使用
func NewRegistrationRepositoryWithDB(db *gorm.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// Create 创建报名表单
func (r *RegistrationRepository) Create(ctx context.Context, form *registration.RegistrationForm) error {
	return r.db.WithContext(ctx).Create(form).Error
}

// Save 保存报名表单
func (r *RegistrationRepository) Save(ctx context.Context, form *registration.RegistrationForm) error {
	return r.db.WithContext(ctx).Save(form).Error
}

// GetByID 根据主键获取报名表单
func (r *RegistrationRepository) GetByID(ctx context.Context, id uint64) (*registration.RegistrationForm, error) {
	var form registration.RegistrationForm
	err := r.db.WithContext(ctx).First(&form, id).Error
	if err != nil {
		return nil, err
	}
	return &form, nil
}

// GetLatestByEmail 获取某邮箱最近一条报名表单
func (r *RegistrationRepository) GetLatestByEmail(ctx context.Context, email string) (*registration.RegistrationForm, error) {
	var form registration.RegistrationForm
	err := r.db.WithContext(ctx).
		Where("email = ?", email).
		Order("id DESC").
		First(&form).Error
	if err != nil {
		return nil, err
	}
	return &form, nil
}
