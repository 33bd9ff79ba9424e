package bootstrap

import (
	"fmt"
	"time"

	"confreg/pkg/config"
	"confreg/pkg/gateway"
	"confreg/pkg/logger"
)

// SetupGateway 初始化支付网关客户端
func SetupGateway() *gateway.Client {
	logger.InfoString("网关", "Setup", "正在初始化支付网关客户端...")

	// 获取配置
	baseURL := config.GetString("gateway.base_url")
	apiKey := config.GetString("gateway.api_key")
	webhookSecret := config.GetString("gateway.webhook_secret")
	tolerance := config.GetInt("gateway.signature_tolerance")
	timeout := config.GetInt("gateway.timeout")

	// 检查配置完整性
	if baseURL == "" {
		logger.ErrorString("网关", "Config", "缺少必要的配置: GATEWAY_BASE_URL 未设置")
		return nil
	}
	if apiKey == "" {
		logger.ErrorString("网关", "Config", "缺少必要的配置: GATEWAY_API_KEY 未设置")
		return nil
	}
	if webhookSecret == "" {
		// 没有密钥时 webhook 一律被拒，创建会话仍可用
		logger.WarnString("网关", "Config", "GATEWAY_WEBHOOK_SECRET 未设置，webhook 将全部拒绝")
	}

	client := gateway.NewClient(gateway.Config{
		BaseURL:       baseURL,
		APIKey:        apiKey,
		WebhookSecret: webhookSecret,
		Tolerance:     time.Duration(tolerance) * time.Second,
		Timeout:       time.Duration(timeout) * time.Second,
	})

	logger.InfoString("网关", "Setup", fmt.Sprintf("支付网关客户端初始化成功 [BaseURL: %s]", baseURL))
	return client
}
