package payment

import (
	"context"
	"errors"
	"strconv"

	"gorm.io/gorm"

	"confreg/app/models/payment"
	"confreg/app/models/registration"
	"confreg/pkg/logger"
)

// RegistrationLinker 支付记录与报名表单的一对一关联器
//
// 双向外键在同一事务里成对写入，写成一次之后永不覆盖。
type RegistrationLinker struct {
	db *gorm.DB
}

// NewRegistrationLinker 创建关联器
func NewRegistrationLinker(db *gorm.DB) *RegistrationLinker {
	return &RegistrationLinker{db: db}
}

// Link 把刚完成的支付关联到客户最近一次报名
//
// 下游缺报名表单不是支付流程的错误，记日志即返回；
// 候选表单已关联其它支付则记冲突待人工复核，双方都不改写。
func (l *RegistrationLinker) Link(ctx context.Context, record *payment.PaymentRecord) {
	if record.RegistrationID != nil {
		return
	}
	if record.CustomerEmail == "" {
		logger.InfoString("关联", "支付报名关联", "会话 "+record.SessionID+" 无客户邮箱，跳过关联")
		return
	}

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var form registration.RegistrationForm
		err := tx.Where("email = ?", record.CustomerEmail).
			Order("id DESC").
			First(&form).Error
		if err != nil {
			return err
		}

		if form.PaymentRecordID != nil {
			if *form.PaymentRecordID != record.ID {
				logger.WarnString("关联", "关联冲突",
					"报名 "+strconv.FormatUint(form.ID, 10)+" 已关联支付 "+strconv.FormatUint(*form.PaymentRecordID, 10)+
						"，拒绝改绑到 "+strconv.FormatUint(record.ID, 10))
				return nil
			}
			// 表单已指向本支付但支付侧外键缺失，补齐成对状态
			record.RegistrationID = &form.ID
			return tx.Model(&payment.PaymentRecord{}).
				Where("id = ?", record.ID).
				Update("registration_id", form.ID).Error
		}

		form.PaymentRecordID = &record.ID
		record.RegistrationID = &form.ID

		if err := tx.Model(&registration.RegistrationForm{}).
			Where("id = ?", form.ID).
			Update("payment_record_id", record.ID).Error; err != nil {
			return err
		}
		return tx.Model(&payment.PaymentRecord{}).
			Where("id = ?", record.ID).
			Update("registration_id", form.ID).Error
	})

	if errors.Is(err, gorm.ErrRecordNotFound) {
		logger.InfoString("关联", "支付报名关联", "邮箱 "+record.CustomerEmail+" 无报名表单，跳过关联")
		return
	}
	if err != nil {
		logger.ErrorString("关联", "支付报名关联", err.Error())
	}
}
