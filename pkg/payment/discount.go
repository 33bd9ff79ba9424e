package payment

import (
	"context"
	"time"

	disc "confreg/app/models/discount"
	"confreg/app/models/payment"
	"confreg/app/repositories"
	"confreg/pkg/app"
	"confreg/pkg/config"
	"confreg/pkg/gateway"
	"confreg/pkg/logger"
	"confreg/pkg/money"
)

// DiscountRequest 创建优惠支付会话的入参
//
// 金额由运营按个案指定，不经定价配置校验。
type DiscountRequest struct {
	Name          string `json:"name"`
	Phone         string `json:"phone"`
	Institute     string `json:"institute"`
	Country       string `json:"country"`
	CustomerEmail string `json:"customer_email"`
	UnitAmount    int64  `json:"unit_amount"` // 分
	Currency      string `json:"currency"`
}

// DiscountResponse 优惠支付会话出参
type DiscountResponse struct {
	RecordID    uint64 `json:"record_id"`
	SessionID   string `json:"session_id"`
	RedirectURL string `json:"redirect_url"`
	Status      string `json:"status"`
	AmountTotal int64  `json:"amount_total"` // 分
	Currency    string `json:"currency"`
	ExpiresAt   int64  `json:"expires_at"`
}

// DiscountService 优惠支付会话编排
//
// 与常规 checkout 共用网关与 webhook 通道，落库到独立的优惠记录表，
// 对账时按会话号归位。
type DiscountService struct {
	gateway       *gateway.Client
	discounts     *repositories.DiscountRepository
	validator     *PricingValidator
	successURL    string
	cancelURL     string
	sessionExpiry time.Duration
}

// NewDiscountService 创建优惠支付服务
func NewDiscountService(gw *gateway.Client, discounts *repositories.DiscountRepository, validator *PricingValidator) *DiscountService {
	return &DiscountService{
		gateway:       gw,
		discounts:     discounts,
		validator:     validator,
		successURL:    config.GetString("gateway.success_url"),
		cancelURL:     config.GetString("gateway.cancel_url"),
		sessionExpiry: time.Duration(config.GetInt("payment.session_expiry_minutes")) * time.Minute,
	}
}

// NewDiscountServiceWithOptions 指定回调地址和过期时长创建服务，测试使用
func NewDiscountServiceWithOptions(gw *gateway.Client, discounts *repositories.DiscountRepository, validator *PricingValidator, successURL, cancelURL string, expiry time.Duration) *DiscountService {
	return &DiscountService{
		gateway:       gw,
		discounts:     discounts,
		validator:     validator,
		successURL:    successURL,
		cancelURL:     cancelURL,
		sessionExpiry: expiry,
	}
}

// Create 创建优惠支付会话并落 PENDING 记录
//
// 与常规 checkout 一样，网关调用失败时不落任何记录。
func (s *DiscountService) Create(ctx context.Context, req *DiscountRequest) (*DiscountResponse, error) {
	if req.UnitAmount <= 0 {
		return nil, ErrAmountRequired
	}

	currency, err := s.validator.NormalizeCurrency(req.Currency)
	if err != nil {
		return nil, err
	}

	expiresAt := time.Now().Add(s.sessionExpiry)
	session, err := s.gateway.CreateSession(ctx, &gateway.SessionParams{
		ProductName:   req.Name,
		UnitAmount:    req.UnitAmount,
		Quantity:      1,
		Currency:      currency,
		CustomerEmail: req.CustomerEmail,
		SuccessURL:    s.successURL,
		CancelURL:     s.cancelURL,
		ExpiresAt:     expiresAt.Unix(),
		Metadata: map[string]string{
			"kind":           "discount",
			"customer_email": req.CustomerEmail,
			"customer_name":  req.Name,
		},
	})
	if err != nil {
		logger.ErrorString("优惠支付", "创建会话", err.Error())
		return nil, err
	}

	record := &disc.DiscountRecord{
		SessionID:     session.ID,
		Name:          req.Name,
		Phone:         req.Phone,
		Institute:     req.Institute,
		Country:       req.Country,
		CustomerEmail: req.CustomerEmail,
		AmountTotal:   money.FromCents(req.UnitAmount),
		Currency:      currency,
		Status:        string(payment.StatusPending),
		PaymentStatus: session.PaymentStatus,
	}
	if session.Created > 0 {
		created := app.TimeInTimezone(time.Unix(session.Created, 0))
		record.GatewayCreatedAt = &created
	}
	if session.ExpiresAt > 0 {
		expires := app.TimeInTimezone(time.Unix(session.ExpiresAt, 0))
		record.GatewayExpiresAt = &expires
	}

	if err := s.discounts.Create(ctx, record); err != nil {
		logger.ErrorString("优惠支付", "保存记录", err.Error())
		return nil, err
	}

	logger.InfoString("优惠支付", "创建会话", "会话 "+session.ID+" 已落 PENDING 记录")

	return &DiscountResponse{
		RecordID:    record.ID,
		SessionID:   session.ID,
		RedirectURL: session.URL,
		Status:      record.Status,
		AmountTotal: money.ToCents(record.AmountTotal),
		Currency:    currency,
		ExpiresAt:   session.ExpiresAt,
	}, nil
}
