package payment

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"confreg/app/models/payment"
	"confreg/app/models/registration"
	"confreg/app/repositories"
	"confreg/pkg/app"
	"confreg/pkg/config"
	"confreg/pkg/gateway"
	"confreg/pkg/logger"
	"confreg/pkg/money"
)

// CheckoutRequest 创建 checkout 会话的入参
type CheckoutRequest struct {
	ProductName     string `json:"product_name"`
	Description     string `json:"description"`
	OrderReference  string `json:"order_reference"`
	UnitAmount      int64  `json:"unit_amount"` // 分
	Quantity        int64  `json:"quantity"`
	Currency        string `json:"currency"`
	CustomerEmail   string `json:"customer_email"`
	CustomerName    string `json:"customer_name"`
	PricingConfigID uint64 `json:"pricing_config_id"`
}

// CheckoutResponse 网关字段与本地记录字段合并后的出参
type CheckoutResponse struct {
	RecordID    uint64 `json:"record_id"`
	SessionID   string `json:"session_id"`
	RedirectURL string `json:"redirect_url"`
	Status      string `json:"status"`
	AmountTotal int64  `json:"amount_total"` // 分
	Currency    string `json:"currency"`
	ExpiresAt   int64  `json:"expires_at"`
}

// CheckoutService checkout 会话编排
//
// 正常流程下这是唯一会产生新 PENDING 记录的入口。
type CheckoutService struct {
	gateway       *gateway.Client
	payments      *repositories.PaymentRepository
	registrations *repositories.RegistrationRepository
	validator     *PricingValidator
	successURL    string
	cancelURL     string
	sessionExpiry time.Duration
}

// NewCheckoutService 创建 checkout 服务
func NewCheckoutService(gw *gateway.Client, payments *repositories.PaymentRepository, registrations *repositories.RegistrationRepository, validator *PricingValidator) *CheckoutService {
	return &CheckoutService{
		gateway:       gw,
		payments:      payments,
		registrations: registrations,
		validator:     validator,
		successURL:    config.GetString("gateway.success_url"),
		cancelURL:     config.GetString("gateway.cancel_url"),
		sessionExpiry: time.Duration(config.GetInt("payment.session_expiry_minutes")) * time.Minute,
	}
}

// NewCheckoutServiceWithOptions 指定回调地址和过期时长创建服务，测试使用
func NewCheckoutServiceWithOptions(gw *gateway.Client, payments *repositories.PaymentRepository, registrations *repositories.RegistrationRepository, validator *PricingValidator, successURL, cancelURL string, expiry time.Duration) *CheckoutService {
	return &CheckoutService{
		gateway:       gw,
		payments:      payments,
		registrations: registrations,
		validator:     validator,
		successURL:    successURL,
		cancelURL:     cancelURL,
		sessionExpiry: expiry,
	}
}

// Create 创建 checkout 会话并落 PENDING 记录
//
// 网关调用失败时不落任何记录，错误原样抛给调用方。
func (s *CheckoutService) Create(ctx context.Context, req *CheckoutRequest) (*CheckoutResponse, error) {
	if req.PricingConfigID == 0 {
		return nil, ErrConfigRequired
	}
	if req.Quantity <= 0 {
		req.Quantity = 1
	}

	if req.OrderReference == "" {
		req.OrderReference = "ord_" + uuid.NewString()
	}

	currency, err := s.validator.NormalizeCurrency(req.Currency)
	if err != nil {
		return nil, err
	}

	cfg, err := s.validator.Validate(ctx, req.PricingConfigID, req.UnitAmount, req.Quantity)
	if err != nil {
		return nil, err
	}

	expiresAt := time.Now().Add(s.sessionExpiry)
	session, err := s.gateway.CreateSession(ctx, &gateway.SessionParams{
		ProductName:   req.ProductName,
		Description:   req.Description,
		UnitAmount:    req.UnitAmount,
		Quantity:      req.Quantity,
		Currency:      currency,
		CustomerEmail: req.CustomerEmail,
		SuccessURL:    s.successURL,
		CancelURL:     s.cancelURL,
		ExpiresAt:     expiresAt.Unix(),
		Metadata: map[string]string{
			"product_name":      req.ProductName,
			"order_reference":   req.OrderReference,
			"customer_email":    req.CustomerEmail,
			"customer_name":     req.CustomerName,
			"pricing_config_id": strconv.FormatUint(req.PricingConfigID, 10),
		},
	})
	if err != nil {
		logger.ErrorString("支付", "创建会话", err.Error())
		return nil, err
	}

	record := &payment.PaymentRecord{
		SessionID:       session.ID,
		CustomerEmail:   req.CustomerEmail,
		CustomerName:    req.CustomerName,
		ProductName:     req.ProductName,
		OrderReference:  req.OrderReference,
		AmountTotal:     money.FromCents(req.UnitAmount * req.Quantity),
		Currency:        currency,
		Status:          string(payment.StatusPending),
		PaymentStatus:   session.PaymentStatus,
		PricingConfigID: &cfg.ID,
	}
	if session.Created > 0 {
		created := app.TimeInTimezone(time.Unix(session.Created, 0))
		record.GatewayCreatedAt = &created
	}
	if session.ExpiresAt > 0 {
		expires := app.TimeInTimezone(time.Unix(session.ExpiresAt, 0))
		record.GatewayExpiresAt = &expires
	}

	if err := s.payments.Create(ctx, record); err != nil {
		logger.ErrorString("支付", "保存记录", err.Error())
		return nil, err
	}

	logger.InfoString("支付", "创建会话", "会话 "+session.ID+" 已落 PENDING 记录")

	return &CheckoutResponse{
		RecordID:    record.ID,
		SessionID:   session.ID,
		RedirectURL: session.URL,
		Status:      record.Status,
		AmountTotal: money.ToCents(record.AmountTotal),
		Currency:    currency,
		ExpiresAt:   session.ExpiresAt,
	}, nil
}

// Register 创建报名表单
//
// AmountPaid 是报名当刻权威总价的快照，后续定价调整不影响已报名用户。
func (s *CheckoutService) Register(ctx context.Context, form *registration.RegistrationForm) error {
	if form.PricingConfigID != nil {
		cfg, err := s.validator.repo.GetByID(ctx, *form.PricingConfigID)
		if err != nil {
			return ErrConfigNotFound
		}
		form.AmountPaid = cfg.TotalPrice
	}
	return s.registrations.Create(ctx, form)
}

// RetrieveSession 透传查询网关会话，合并本地记录状态
func (s *CheckoutService) RetrieveSession(ctx context.Context, sessionID string) (*gateway.CheckoutSession, *payment.PaymentRecord, error) {
	session, err := s.gateway.RetrieveSession(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	record, err := s.payments.GetBySessionID(ctx, sessionID)
	if err != nil {
		// 网关有会话而本地无记录，只返回网关侧数据
		logger.WarnString("支付", "查询会话", "会话 "+sessionID+" 无本地记录")
		return session, nil, nil
	}
	return session, record, nil
}

// ExpireSession 透传网关的会话关闭调用
//
// 本地状态不在这里改，等网关回发 session_expired 事件统一对账。
func (s *CheckoutService) ExpireSession(ctx context.Context, sessionID string) (*gateway.CheckoutSession, error) {
	return s.gateway.ExpireSession(ctx, sessionID)
}
