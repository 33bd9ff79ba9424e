package requests

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/thedevsaddam/govalidator"

	"confreg/pkg/payment"
)

// ValidateCheckout 校验创建 checkout 会话的请求
func ValidateCheckout(c *gin.Context) (*payment.CheckoutRequest, error) {
	var req payment.CheckoutRequest

	// 1. 首先绑定 JSON
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, fmt.Errorf("解析 JSON 失败: %w", err)
	}

	// 2. 验证规则
	rules := govalidator.MapData{
		"product_name":      []string{"required", "min:1"},
		"unit_amount":       []string{"required", "numeric"},
		"customer_email":    []string{"required", "email"},
		"pricing_config_id": []string{"required", "numeric"},
	}

	// 3. 验证消息
	messages := govalidator.MapData{
		"product_name": []string{
			"required:商品名称不能为空",
			"min:商品名称长度不能小于 1 个字符",
		},
		"unit_amount": []string{
			"required:金额不能为空",
			"numeric:金额必须是整数（最小货币单位）",
		},
		"customer_email": []string{
			"required:客户邮箱不能为空",
			"email:客户邮箱格式不正确",
		},
		"pricing_config_id": []string{
			"required:定价配置 ID 不能为空",
			"numeric:定价配置 ID 必须是整数",
		},
	}

	// 4. 开始验证
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
