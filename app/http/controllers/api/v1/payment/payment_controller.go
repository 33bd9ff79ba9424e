package payment

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"confreg/app/requests"
	"confreg/pkg/gateway"
	paymentpkg "confreg/pkg/payment"
	"confreg/pkg/response"
)

type PaymentController struct {
	checkout   *paymentpkg.CheckoutService
	dispatcher *paymentpkg.Dispatcher
}

// NewPaymentController 创建支付控制器
func NewPaymentController(checkout *paymentpkg.CheckoutService, dispatcher *paymentpkg.Dispatcher) *PaymentController {
	return &PaymentController{
		checkout:   checkout,
		dispatcher: dispatcher,
	}
}

// CreateCheckoutSession 创建 checkout 会话
func (pc *PaymentController) CreateCheckoutSession(c *gin.Context) {
	req, err := requests.ValidateCheckout(c)
	if err != nil {
		var validationErr requests.ValidationError
		if errors.As(err, &validationErr) {
			response.ValidationError(c, validationErr.Errors)
			return
		}
		response.BadRequest(c, err, "请求格式错误")
		return
	}

	result, err := pc.checkout.Create(c.Request.Context(), req)
	if err != nil {
		pc.renderCheckoutError(c, err)
		return
	}

	response.Created(c, result, "会话创建成功")
}

// Register 提交报名表单
func (pc *PaymentController) Register(c *gin.Context) {
	form, err := requests.ValidateRegistration(c)
	if err != nil {
		var validationErr requests.ValidationError
		if errors.As(err, &validationErr) {
			response.ValidationError(c, validationErr.Errors)
			return
		}
		response.BadRequest(c, err, "请求格式错误")
		return
	}

	if err := pc.checkout.Register(c.Request.Context(), form); err != nil {
		if errors.Is(err, paymentpkg.ErrConfigNotFound) {
			response.Abort404(c, "定价配置不存在")
			return
		}
		response.ServerError(c, err, "报名保存失败")
		return
	}

	response.Created(c, form, "报名成功")
}

// RetrieveSession 查询会话及本地记录状态
func (pc *PaymentController) RetrieveSession(c *gin.Context) {
	sessionID := c.Param("session_id")
	if sessionID == "" {
		response.Abort400(c, "会话 ID 不能为空")
		return
	}

	session, record, err := pc.checkout.RetrieveSession(c.Request.Context(), sessionID)
	if err != nil {
		pc.renderGatewayError(c, err)
		return
	}

	response.Data(c, gin.H{
		"session": session,
		"record":  record,
	})
}

// ExpireSession 主动关闭会话
func (pc *PaymentController) ExpireSession(c *gin.Context) {
	sessionID := c.Param("session_id")
	if sessionID == "" {
		response.Abort400(c, "会话 ID 不能为空")
		return
	}

	session, err := pc.checkout.ExpireSession(c.Request.Context(), sessionID)
	if err != nil {
		pc.renderGatewayError(c, err)
		return
	}

	response.Data(c, session)
}

// Webhook 网关异步通知入口
//
// 验签失败回 400；其余情况一律回 200，处理细节只进日志。
func (pc *PaymentController) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.Abort400(c, "读取请求体失败")
		return
	}

	signature := c.GetHeader(gateway.SignatureHeader)
	if err := pc.dispatcher.Dispatch(c.Request.Context(), payload, signature); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"status":  "error",
			"message": "签名校验失败",
		})
		return
	}

	response.Data(c, gin.H{"received": true})
}

// renderCheckoutError 把创建阶段的领域错误翻译成 HTTP 响应
func (pc *PaymentController) renderCheckoutError(c *gin.Context, err error) {
	var mismatch *paymentpkg.AmountMismatchError
	switch {
	case errors.As(err, &mismatch):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
			"status":   "error",
			"message":  "金额与定价不一致",
			"expected": mismatch.Expected.StringFixed(2),
			"received": mismatch.Received.StringFixed(2),
		})
	case errors.Is(err, paymentpkg.ErrConfigNotFound):
		response.Abort404(c, "定价配置不存在")
	case errors.Is(err, paymentpkg.ErrConfigRequired):
		response.Abort400(c, "定价配置 ID 不能为空")
	case errors.Is(err, paymentpkg.ErrUnsupportedCurrency):
		response.Abort400(c, "不支持的货币")
	default:
		pc.renderGatewayError(c, err)
	}
}

// renderGatewayError 网关调用错误原样透传状态含义
func (pc *PaymentController) renderGatewayError(c *gin.Context, err error) {
	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		response.Abort404(c, "会话不存在")
		return
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		response.Abort404(c, "记录不存在")
		return
	}
	response.ServerError(c, err, "网关调用失败")
}
