// Package config 支付结算配置
package config

import (
	"confreg/pkg/config"
)

func init() {
	config.Add("payment", func() map[string]interface{} {
		return map[string]interface{}{

			// 结算币种，全站只允许这一种币种
			"currency": config.Env("PAYMENT_CURRENCY", "eur"),

			// 结账会话有效期，单位分钟
			"session_expiry_minutes": config.Env("PAYMENT_SESSION_EXPIRY_MINUTES", 30),
		}
	})
}
