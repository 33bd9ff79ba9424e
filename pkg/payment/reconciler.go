package payment

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	disc "confreg/app/models/discount"
	"confreg/app/models/payment"
	"confreg/app/repositories"
	"confreg/pkg/app"
	"confreg/pkg/gateway"
	"confreg/pkg/logger"
	"confreg/pkg/money"
)

// Reconciler 对账状态机
//
// webhook 事件至少一次投递且无顺序保证，每个处理器都必须幂等，
// 同一记录的读改写在仓库事务内串行化。
// 会话事件优先归位到支付记录，匹配不到再查优惠支付记录。
type Reconciler struct {
	payments  *repositories.PaymentRepository
	pricings  *repositories.PricingRepository
	discounts *repositories.DiscountRepository
	validator *PricingValidator
	linker    *RegistrationLinker
}

// NewReconciler 创建对账器，discounts 可为 nil（不启用优惠支付通道）
func NewReconciler(payments *repositories.PaymentRepository, pricings *repositories.PricingRepository, discounts *repositories.DiscountRepository, validator *PricingValidator, linker *RegistrationLinker) *Reconciler {
	return &Reconciler{
		payments:  payments,
		pricings:  pricings,
		discounts: discounts,
		validator: validator,
		linker:    linker,
	}
}

// HandleSessionCompleted 处理会话完成事件
//
// 按 sessionId 精确匹配；记录不存在说明落库晚于通知到达，
// 走兜底路径直接用事件字段合成一条记录。
func (r *Reconciler) HandleSessionCompleted(ctx context.Context, session *gateway.CheckoutSession) error {
	var completed *payment.PaymentRecord

	err := r.payments.MutateBySessionID(ctx, session.ID, func(tx *gorm.DB, record *payment.PaymentRecord) error {
		r.applyCompletion(ctx, record, session.PaymentStatus, session.ChargeID, session.AmountTotal, session.Currency)
		if record.IsCompleted() {
			completed = record
		}
		return nil
	})

	if errors.Is(err, gorm.ErrRecordNotFound) {
		derr := r.completeDiscount(ctx, session)
		if derr == nil {
			return nil
		}
		if !errors.Is(derr, gorm.ErrRecordNotFound) {
			return derr
		}

		logger.WarnString("对账", "会话完成", "会话 "+session.ID+" 无本地记录，合成兜底记录")
		record := r.synthesizeFromSession(session)
		if err := r.payments.Create(ctx, record); err != nil {
			return err
		}
		completed = record
	} else if err != nil {
		return err
	}

	if completed != nil {
		r.linker.Link(ctx, completed)
	}
	return nil
}

// HandleChargeSucceeded 处理扣款成功事件
//
// 优先按 chargeId 精确匹配。扣款成功通知可能先于会话完成通知到达，
// 此时 chargeId 尚未建立关联，退而在 PENDING 记录中选最佳匹配：
// 金额相等者优先，否则取最近创建的一条。两者皆无则合成兜底记录。
func (r *Reconciler) HandleChargeSucceeded(ctx context.Context, charge *gateway.Charge) error {
	var completed *payment.PaymentRecord

	err := r.payments.MutateByChargeID(ctx, charge.ID, func(tx *gorm.DB, record *payment.PaymentRecord) error {
		r.applyCompletion(ctx, record, charge.Status, charge.ID, charge.Amount, charge.Currency)
		if record.IsCompleted() {
			completed = record
		}
		return nil
	})

	if errors.Is(err, gorm.ErrRecordNotFound) {
		completed, err = r.adoptPendingForCharge(ctx, charge)
	}
	if err != nil {
		return err
	}

	if completed != nil {
		r.linker.Link(ctx, completed)
	}
	return nil
}

// adoptPendingForCharge 在 PENDING 记录中为孤儿扣款事件找归属
//
// 并发场景下两笔金额相同的扣款可能选中同一条 PENDING 记录，
// 这是尽力而为的修复路径，不做强一致保证，差异留给对账报表复核。
func (r *Reconciler) adoptPendingForCharge(ctx context.Context, charge *gateway.Charge) (*payment.PaymentRecord, error) {
	pendings, err := r.payments.ListPendingDesc(ctx)
	if err != nil {
		return nil, err
	}

	if len(pendings) == 0 {
		logger.WarnString("对账", "扣款成功", "扣款 "+charge.ID+" 无可匹配记录，合成兜底记录")
		record := r.synthesizeFromCharge(charge)
		if err := r.payments.Create(ctx, record); err != nil {
			return nil, err
		}
		return record, nil
	}

	// 金额相等者优先，否则取最近创建的 PENDING 记录
	candidate := pendings[0]
	if charge.Amount != nil {
		amount := money.FromCents(*charge.Amount)
		for _, p := range pendings {
			if money.Equal(p.AmountTotal, amount) {
				candidate = p
				break
			}
		}
	}

	logger.WarnString("对账", "扣款成功", "扣款 "+charge.ID+" 启发式匹配到会话 "+candidate.SessionID)

	var completed *payment.PaymentRecord
	err = r.payments.MutateBySessionID(ctx, candidate.SessionID, func(tx *gorm.DB, record *payment.PaymentRecord) error {
		r.applyCompletion(ctx, record, charge.Status, charge.ID, charge.Amount, charge.Currency)
		if record.IsCompleted() {
			completed = record
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return completed, nil
}

// HandleChargeFailed 处理扣款失败事件
//
// 未知扣款的失败通知不可操作，记日志后丢弃，不合成记录。
func (r *Reconciler) HandleChargeFailed(ctx context.Context, charge *gateway.Charge) error {
	err := r.payments.MutateByChargeID(ctx, charge.ID, func(tx *gorm.DB, record *payment.PaymentRecord) error {
		if record.IsCompleted() {
			// 已完成的支付又收到失败通知，多半是网关重试乱序，标记异常人工复核
			logger.WarnString("对账", "对账异常", "扣款 "+charge.ID+" 已 COMPLETED 仍收到失败事件，保持原状态")
			return nil
		}
		if record.Transition(payment.StatusFailed) {
			record.FailureReason = charge.FailureMessage
			if charge.Status != "" {
				record.PaymentStatus = charge.Status
			}
			r.revalidateAmount(ctx, record)
		}
		return nil
	})

	if errors.Is(err, gorm.ErrRecordNotFound) {
		logger.WarnString("对账", "扣款失败", "扣款 "+charge.ID+" 无本地记录，丢弃")
		return nil
	}
	return err
}

// HandleSessionExpired 处理会话过期事件
//
// 仅 PENDING 记录过期；已进终态的记录不回退。
func (r *Reconciler) HandleSessionExpired(ctx context.Context, session *gateway.CheckoutSession) error {
	err := r.payments.MutateBySessionID(ctx, session.ID, func(tx *gorm.DB, record *payment.PaymentRecord) error {
		if !record.IsPending() {
			logger.InfoString("对账", "会话过期", "会话 "+session.ID+" 已是 "+record.Status+"，忽略过期事件")
			return nil
		}
		record.Transition(payment.StatusExpired)
		if session.PaymentStatus != "" {
			record.PaymentStatus = session.PaymentStatus
		}
		return nil
	})

	if errors.Is(err, gorm.ErrRecordNotFound) {
		derr := r.expireDiscount(ctx, session)
		if derr == nil {
			return nil
		}
		if !errors.Is(derr, gorm.ErrRecordNotFound) {
			return derr
		}
		logger.WarnString("对账", "会话过期", "会话 "+session.ID+" 无本地记录，丢弃")
		return nil
	}
	return err
}

// completeDiscount 尝试把会话完成事件归位到优惠支付记录
//
// 优惠支付不关联报名表单，也不做定价复核，幂等规则与支付记录一致。
func (r *Reconciler) completeDiscount(ctx context.Context, session *gateway.CheckoutSession) error {
	if r.discounts == nil {
		return gorm.ErrRecordNotFound
	}
	err := r.discounts.MutateBySessionID(ctx, session.ID, func(tx *gorm.DB, record *disc.DiscountRecord) error {
		if record.InTerminalState() && !record.IsCompleted() {
			logger.WarnString("对账", "对账异常", "优惠会话 "+record.SessionID+" 处于终态 "+record.Status+"，不接受成功事件")
			return nil
		}
		record.Transition(payment.StatusCompleted)

		if session.PaymentStatus != "" {
			record.PaymentStatus = session.PaymentStatus
		} else if record.PaymentStatus == "" {
			record.PaymentStatus = "paid"
		}
		if session.ChargeID != "" && record.ChargeID == nil {
			chargeID := session.ChargeID
			record.ChargeID = &chargeID
		}
		if session.AmountTotal != nil && record.AmountTotal.IsZero() {
			record.AmountTotal = money.FromCents(*session.AmountTotal)
		}
		if session.Currency != "" && record.Currency == "" {
			record.Currency = session.Currency
		}
		return nil
	})
	if err == nil {
		logger.InfoString("对账", "会话完成", "会话 "+session.ID+" 归位到优惠支付记录")
	}
	return err
}

// expireDiscount 尝试把会话过期事件归位到优惠支付记录
func (r *Reconciler) expireDiscount(ctx context.Context, session *gateway.CheckoutSession) error {
	if r.discounts == nil {
		return gorm.ErrRecordNotFound
	}
	return r.discounts.MutateBySessionID(ctx, session.ID, func(tx *gorm.DB, record *disc.DiscountRecord) error {
		if !record.IsPending() {
			logger.InfoString("对账", "会话过期", "优惠会话 "+session.ID+" 已是 "+record.Status+"，忽略过期事件")
			return nil
		}
		record.Transition(payment.StatusExpired)
		if session.PaymentStatus != "" {
			record.PaymentStatus = session.PaymentStatus
		}
		return nil
	})
}

// applyCompletion 把一次支付成功事实套用到记录上
//
// 幂等：已 COMPLETED 的记录只补写空缺字段，不回退其它任何字段；
// 其它终态不被覆盖，仅记异常。
func (r *Reconciler) applyCompletion(ctx context.Context, record *payment.PaymentRecord, gatewayStatus, chargeID string, amount *int64, currency string) {
	if record.InTerminalState() && !record.IsCompleted() {
		logger.WarnString("对账", "对账异常", "会话 "+record.SessionID+" 处于终态 "+record.Status+"，不接受成功事件")
		return
	}

	record.Transition(payment.StatusCompleted)

	if gatewayStatus != "" {
		record.PaymentStatus = gatewayStatus
	} else if record.PaymentStatus == "" {
		record.PaymentStatus = "paid"
	}

	if chargeID != "" && record.ChargeID == nil {
		record.ChargeID = &chargeID
	}
	// 金额与货币只在空缺时补写，已有值以创建时为准
	if amount != nil && record.AmountTotal.IsZero() {
		record.AmountTotal = money.FromCents(*amount)
	}
	if currency != "" && record.Currency == "" {
		record.Currency = currency
	}

	r.revalidateAmount(ctx, record)
}

// revalidateAmount 对账阶段复核金额与定价一致性
//
// 不一致只记 ERROR 供对账报表消费，绝不让 webhook 处理失败，
// 否则会触发网关重试风暴。
func (r *Reconciler) revalidateAmount(ctx context.Context, record *payment.PaymentRecord) {
	if record.PricingConfigID == nil {
		return
	}
	cfg, err := r.pricings.GetByID(ctx, *record.PricingConfigID)
	if err != nil {
		logger.WarnString("对账", "金额复核", "会话 "+record.SessionID+" 定价配置加载失败: "+err.Error())
		return
	}
	if err := r.validator.ValidateAgainst(cfg, record.AmountTotal); err != nil {
		logger.ErrorString("对账", "金额复核", "会话 "+record.SessionID+" "+err.Error())
	}
}

// synthesizeFromSession 用会话完成事件合成兜底记录
func (r *Reconciler) synthesizeFromSession(session *gateway.CheckoutSession) *payment.PaymentRecord {
	record := &payment.PaymentRecord{
		SessionID:     session.ID,
		CustomerEmail: session.CustomerEmail,
		Currency:      session.Currency,
		Status:        string(payment.StatusCompleted),
		PaymentStatus: session.PaymentStatus,
	}
	if record.PaymentStatus == "" {
		record.PaymentStatus = "paid"
	}
	if session.ChargeID != "" {
		chargeID := session.ChargeID
		record.ChargeID = &chargeID
	}
	if session.AmountTotal != nil {
		record.AmountTotal = money.FromCents(*session.AmountTotal)
	}
	if session.Created > 0 {
		created := app.TimeInTimezone(time.Unix(session.Created, 0))
		record.GatewayCreatedAt = &created
	}
	if session.ExpiresAt > 0 {
		expires := app.TimeInTimezone(time.Unix(session.ExpiresAt, 0))
		record.GatewayExpiresAt = &expires
	}
	if name, ok := session.Metadata["customer_name"]; ok {
		record.CustomerName = name
	}
	if product, ok := session.Metadata["product_name"]; ok {
		record.ProductName = product
	}
	if ref, ok := session.Metadata["order_reference"]; ok {
		record.OrderReference = ref
	}
	return record
}

// synthesizeFromCharge 用扣款成功事件合成兜底记录
//
// 扣款事件不携带会话 ID，用扣款 ID 占位保证唯一索引不空。
func (r *Reconciler) synthesizeFromCharge(charge *gateway.Charge) *payment.PaymentRecord {
	chargeID := charge.ID
	record := &payment.PaymentRecord{
		SessionID:     "synthetic_" + charge.ID,
		ChargeID:      &chargeID,
		Currency:      charge.Currency,
		Status:        string(payment.StatusCompleted),
		PaymentStatus: charge.Status,
	}
	if record.PaymentStatus == "" {
		record.PaymentStatus = "paid"
	}
	if charge.Amount != nil {
		record.AmountTotal = money.FromCents(*charge.Amount)
	}
	return record
}
