package requests

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/thedevsaddam/govalidator"

	"confreg/app/models/registration"
)

// RegistrationRequest 报名表单请求
type RegistrationRequest struct {
	Name            string  `json:"name" valid:"required"`
	Phone           string  `json:"phone"`
	Email           string  `json:"email" valid:"required"`
	Institute       string  `json:"institute"`
	Country         string  `json:"country"`
	PricingConfigID *uint64 `json:"pricing_config_id"`
}

// ValidateRegistration 校验报名表单请求
func ValidateRegistration(c *gin.Context) (*registration.RegistrationForm, error) {
	var req RegistrationRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, fmt.Errorf("解析 JSON 失败: %w", err)
	}

	rules := govalidator.MapData{
		"name":  []string{"required", "min:1"},
		"email": []string{"required", "email"},
	}

	messages := govalidator.MapData{
		"name": []string{
			"required:姓名不能为空",
		},
		"email": []string{
			"required:邮箱不能为空",
			"email:邮箱格式不正确",
		},
	}

	if err := ValidateStruct(&req, rules, messages); err != nil {
		return nil, err
	}

	return &registration.RegistrationForm{
		Name:            req.Name,
		Phone:           req.Phone,
		Email:           req.Email,
		Institute:       req.Institute,
		Country:         req.Country,
		PricingConfigID: req.PricingConfigID,
	}, nil
}
