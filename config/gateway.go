// Package config 支付网关配置
package config

import (
	"confreg/pkg/config"
)

func init() {
	config.Add("gateway", func() map[string]interface{} {
		return map[string]interface{}{

			// 网关 API 地址
			"base_url": config.Env("GATEWAY_BASE_URL", "https://api.checkout-gateway.com"),

			// API 私钥，通过构造的客户端注入，不允许进程级全局共享
			"api_key": config.Env("GATEWAY_API_KEY", ""),

			// webhook 签名共享密钥
			"webhook_secret": config.Env("GATEWAY_WEBHOOK_SECRET", ""),

			// 签名时间戳容忍窗口，单位秒，防重放
			"signature_tolerance": config.Env("GATEWAY_SIGNATURE_TOLERANCE", 300),

			// 请求超时，单位秒
			"timeout": config.Env("GATEWAY_TIMEOUT", 15),

			// 支付完成/取消后的跳转地址
			"success_url": config.Env("GATEWAY_SUCCESS_URL", "https://conference.example.com/payment/success"),
			"cancel_url":  config.Env("GATEWAY_CANCEL_URL", "https://conference.example.com/payment/cancel"),
		}
	})
}
