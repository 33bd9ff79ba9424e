package payment

import (
	"errors"

	"github.com/gin-gonic/gin"

	"confreg/app/requests"
	paymentpkg "confreg/pkg/payment"
	"confreg/pkg/response"
)

// DiscountController 优惠支付接口
type DiscountController struct {
	discounts *paymentpkg.DiscountService
}

// NewDiscountController 创建优惠支付控制器
func NewDiscountController(discounts *paymentpkg.DiscountService) *DiscountController {
	return &DiscountController{
		discounts: discounts,
	}
}

// CreateSession 创建优惠支付会话
func (dc *DiscountController) CreateSession(c *gin.Context) {
	req, err := requests.ValidateDiscount(c)
	if err != nil {
		var validationErr requests.ValidationError
		if errors.As(err, &validationErr) {
			response.ValidationError(c, validationErr.Errors)
			return
		}
		response.BadRequest(c, err, "请求格式错误")
		return
	}

	result, err := dc.discounts.Create(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, paymentpkg.ErrAmountRequired):
			response.Abort400(c, "金额必须大于 0")
		case errors.Is(err, paymentpkg.ErrUnsupportedCurrency):
			response.Abort400(c, "不支持的货币")
		default:
			response.ServerError(c, err, "网关调用失败")
		}
		return
	}

	response.Created(c, result, "会话创建成功")
}
