// Package gateway 封装了与支付网关 API 的交互
//
// 网关是外部协作方，本包只消费它的线上格式：
// 结账会话的创建/查询/作废，以及 webhook 签名与事件解析。
// API 私钥通过显式构造的客户端持有，不设置任何进程级全局状态
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"confreg/pkg/logger"
)

// Config 网关客户端配置
type Config struct {
	BaseURL       string
	APIKey        string
	WebhookSecret string
	// Tolerance webhook 签名时间戳的容忍窗口
	Tolerance time.Duration
	// Timeout 单次 API 请求超时
	Timeout time.Duration
}

// Client 网关 API 客户端
type Client struct {
	client        *resty.Client
	baseURL       string
	apiKey        string
	webhookSecret string
	tolerance     time.Duration
}

// APIError 网关返回的业务错误
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

// Error 实现 error 接口
func (e *APIError) Error() string {
	return fmt.Sprintf("gateway error [%d %s]: %s", e.StatusCode, e.Code, e.Message)
}

// NewClient 创建网关客户端
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = 5 * time.Minute
	}

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")

	return &Client{
		client:        client,
		baseURL:       cfg.BaseURL,
		apiKey:        cfg.APIKey,
		webhookSecret: cfg.WebhookSecret,
		tolerance:     cfg.Tolerance,
	}
}

// CreateSession 创建结账会话
func (c *Client) CreateSession(ctx context.Context, params *SessionParams) (*CheckoutSession, error) {
	session := &CheckoutSession{}

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", c.apiKey)).
		SetBody(params).
		SetResult(session).
		Post(fmt.Sprintf("%s/v1/checkout/sessions", c.baseURL))

	if err != nil {
		return nil, fmt.Errorf("create checkout session error: %w", err)
	}
	if resp.IsError() {
		return nil, c.apiError(resp)
	}

	logger.InfoString("网关", "创建会话", fmt.Sprintf(
		"会话:%s 金额:%d 币种:%s", session.ID, params.UnitAmount*params.Quantity, params.Currency))

	return session, nil
}

// RetrieveSession 查询结账会话
func (c *Client) RetrieveSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	session := &CheckoutSession{}

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", c.apiKey)).
		SetResult(session).
		Get(fmt.Sprintf("%s/v1/checkout/sessions/%s", c.baseURL, sessionID))

	if err != nil {
		return nil, fmt.Errorf("retrieve checkout session error: %w", err)
	}
	if resp.IsError() {
		return nil, c.apiError(resp)
	}

	return session, nil
}

// ExpireSession 主动作废一个未完成的结账会话
func (c *Client) ExpireSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	session := &CheckoutSession{}

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", c.apiKey)).
		SetResult(session).
		Post(fmt.Sprintf("%s/v1/checkout/sessions/%s/expire", c.baseURL, sessionID))

	if err != nil {
		return nil, fmt.Errorf("expire checkout session error: %w", err)
	}
	if resp.IsError() {
		return nil, c.apiError(resp)
	}

	logger.InfoString("网关", "作废会话", session.ID)

	return session, nil
}

// apiError 解析网关返回的错误体
func (c *Client) apiError(resp *resty.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode()}
	if err := json.Unmarshal(resp.Body(), apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = resp.Status()
	}
	return apiErr
}
