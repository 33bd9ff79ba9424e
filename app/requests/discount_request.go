package requests

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/thedevsaddam/govalidator"

	"confreg/pkg/payment"
)

// ValidateDiscount 校验创建优惠支付会话的请求
func ValidateDiscount(c *gin.Context) (*payment.DiscountRequest, error) {
	var req payment.DiscountRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, fmt.Errorf("解析 JSON 失败: %w", err)
	}

	rules := govalidator.MapData{
		"name":           []string{"required", "min:1"},
		"unit_amount":    []string{"required", "numeric"},
		"customer_email": []string{"required", "email"},
	}

	messages := govalidator.MapData{
		"name": []string{
			"required:客户姓名不能为空",
			"min:客户姓名长度不能小于 1 个字符",
		},
		"unit_amount": []string{
			"required:金额不能为空",
			"numeric:金额必须是整数（最小货币单位）",
		},
		"customer_email": []string{
			"required:客户邮箱不能为空",
			"email:客户邮箱格式不正确",
		},
	}

	opts := govalidator.Options{
		Data:     &req,
		Rules:    rules,
		Messages: messages,
	}

	validator := govalidator.New(opts)
	if errs := validator.ValidateStruct(); len(errs) > 0 {
		return nil, ValidationError{Errors: errs}
	}

	if req.UnitAmount <= 0 {
		return nil, fmt.Errorf("金额必须大于 0")
	}

	return &req, nil
}
