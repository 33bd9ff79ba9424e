package routes

import (
	"confreg/app/http/controllers/api/v1/payment"
	"confreg/app/http/middlewares"
	"confreg/app/repositories"
	"confreg/pkg/archive"
	"confreg/pkg/config"
	"confreg/pkg/database"
	"confreg/pkg/gateway"
	paymentpkg "confreg/pkg/payment"

	"github.com/gin-gonic/gin"
)

// 路由限流配置，全局限流走 app.api_rate_limit 配置
const (
	// 创建会话限流：每小时每IP 100 请求
	CreateSessionLimit = "100-H"
	// webhook 限流：每分钟每IP 600 请求，网关重试高峰也够用
	WebhookLimit = "600-M"
	// 查询限流：每分钟每IP 300 请求
	QueryLimit = "300-M"
)

// RegisterAPIRoutes 注册所有 API 路由
func RegisterAPIRoutes(r *gin.Engine, gw *gateway.Client) {
	v1 := r.Group("/v1")

	v1.Use(
		middlewares.Recovery(),
		middlewares.SecurityHeaders(),
		middlewares.LimitIP(config.Get("app.api_rate_limit")),
		middlewares.Cors(),
	)

	// 组装支付域服务
	payments := repositories.NewPaymentRepository()
	pricings := repositories.NewPricingRepository()
	registrations := repositories.NewRegistrationRepository()
	discountRepo := repositories.NewDiscountRepository()

	validator := paymentpkg.NewPricingValidator(pricings)
	checkout := paymentpkg.NewCheckoutService(gw, payments, registrations, validator)
	discounts := paymentpkg.NewDiscountService(gw, discountRepo, validator)
	linker := paymentpkg.NewRegistrationLinker(database.DB)
	reconciler := paymentpkg.NewReconciler(payments, pricings, discountRepo, validator, linker)
	dispatcher := paymentpkg.NewDispatcher(gw, reconciler, archive.NewService())

	records := paymentpkg.NewRecordService(payments, pricings)

	// 支付相关路由
	paymentRoutes := v1.Group("/payments")
	{
		pc := payment.NewPaymentController(checkout, dispatcher)

		// 创建 checkout 会话
		// POST /v1/payments/checkout-sessions
		paymentRoutes.POST("/checkout-sessions",
			middlewares.LimitIP(CreateSessionLimit),
			pc.CreateCheckoutSession,
		)

		// 查询会话与本地记录
		// GET /v1/payments/checkout-sessions/:session_id
		paymentRoutes.GET("/checkout-sessions/:session_id",
			middlewares.LimitIP(QueryLimit),
			pc.RetrieveSession,
		)

		// 主动关闭会话
		// POST /v1/payments/checkout-sessions/:session_id/expire
		paymentRoutes.POST("/checkout-sessions/:session_id/expire",
			middlewares.LimitIP(QueryLimit),
			pc.ExpireSession,
		)

		// 网关异步通知
		// POST /v1/payments/webhook
		paymentRoutes.POST("/webhook",
			middlewares.LimitIP(WebhookLimit),
			pc.Webhook,
		)

		// 提交报名表单
		// POST /v1/registrations
		v1.POST("/registrations",
			middlewares.LimitIP(CreateSessionLimit),
			pc.Register,
		)
	}

	// 优惠支付路由，与常规 checkout 共用 webhook 通道
	discountRoutes := v1.Group("/discounts")
	{
		dc := payment.NewDiscountController(discounts)

		// POST /v1/discounts/checkout-sessions
		discountRoutes.POST("/checkout-sessions",
			middlewares.LimitIP(CreateSessionLimit),
			dc.CreateSession,
		)
	}

	// 运营侧记录查询路由
	recordRoutes := v1.Group("/records")
	recordRoutes.Use(middlewares.LimitIP(QueryLimit))
	{
		rc := payment.NewRecordController(records, dispatcher)

		recordRoutes.GET("", rc.List)
		recordRoutes.GET("/stats", rc.Stats)
		recordRoutes.GET("/by-session/:session_id", rc.Show)
		recordRoutes.GET("/by-email/:email", rc.ByEmail)
		recordRoutes.GET("/mismatches", rc.MismatchReport)
		recordRoutes.POST("/sweep-overdue", rc.SweepOverdue)
		recordRoutes.GET("/metrics", rc.Metrics)
	}
}
